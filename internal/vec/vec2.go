package vec

// Vec2 представляет целочисленные координаты клетки мира
type Vec2 struct {
	X, Y int
}
