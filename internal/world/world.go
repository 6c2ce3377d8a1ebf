package world

import (
	"errors"
	"fmt"
	"math"

	"github.com/annel0/minisrooft/internal/vec"
	"github.com/annel0/minisrooft/internal/world/block"
)

// TileSize: размер клетки в пикселях клиента
const TileSize = 32

// ErrInvalidSize возвращается при попытке создать мир с неположительными размерами
var ErrInvalidSize = errors.New("world: invalid size")

// Cell: клетка мира в снимке чанка
type Cell struct {
	X    int      `json:"x"`
	Y    int      `json:"y"`
	Type block.ID `json:"type"`
}

// World хранит сетку блоков фиксированного размера.
// Не потокобезопасен: все обращения идут из цикла событий игрового хаба.
type World struct {
	width  int
	height int
	blocks []block.ID
}

// New создаёт мир и генерирует его содержимое
func New(width, height int) (*World, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}

	return &World{
		width:  width,
		height: height,
		blocks: Generate(width, height),
	}, nil
}

// Width возвращает ширину мира в клетках
func (w *World) Width() int { return w.width }

// Height возвращает высоту мира в клетках
func (w *World) Height() int { return w.height }

// Center возвращает точку спавна (центр мира)
func (w *World) Center() vec.Vec2Float {
	return vec.Vec2Float{X: float64(w.width / 2), Y: float64(w.height / 2)}
}

func (w *World) inBounds(x, y int) bool {
	return x >= 0 && x < w.width && y >= 0 && y < w.height
}

// cellOf переводит дробные координаты в клетку. NaN и бесконечности дают false.
func (w *World) cellOf(x, y float64) (vec.Vec2, bool) {
	if math.IsNaN(x) || math.IsNaN(y) {
		return vec.Vec2{}, false
	}
	fx, fy := math.Floor(x), math.Floor(y)
	if fx < 0 || fy < 0 || fx >= float64(w.width) || fy >= float64(w.height) {
		return vec.Vec2{}, false
	}
	return vec.Vec2{X: int(fx), Y: int(fy)}, true
}

// GetBlock возвращает блок клетки или block.OutOfBounds за пределами карты
func (w *World) GetBlock(x, y int) block.ID {
	if !w.inBounds(x, y) {
		return block.OutOfBounds
	}
	return w.blocks[y*w.width+x]
}

// GetChunk возвращает все клетки квадрата [center-radius, center+radius],
// обрезанного границами мира. Порядок построчный.
func (w *World) GetChunk(centerX, centerY float64, radius int) []Cell {
	r := float64(radius)
	startX := max(0, int(math.Floor(centerX-r)))
	endX := min(w.width-1, int(math.Floor(centerX+r)))
	startY := max(0, int(math.Floor(centerY-r)))
	endY := min(w.height-1, int(math.Floor(centerY+r)))

	if startX > endX || startY > endY {
		return nil
	}

	cells := make([]Cell, 0, (endX-startX+1)*(endY-startY+1))
	for y := startY; y <= endY; y++ {
		for x := startX; x <= endX; x++ {
			cells = append(cells, Cell{X: x, Y: y, Type: w.blocks[y*w.width+x]})
		}
	}
	return cells
}

// BreakBlock превращает клетку в воздух и возвращает прежний тип.
// Ломать нечего за пределами карты и в воздухе.
func (w *World) BreakBlock(x, y float64) (block.ID, bool) {
	cell, ok := w.cellOf(x, y)
	if !ok {
		return block.Air, false
	}

	idx := cell.Y*w.width + cell.X
	prev := w.blocks[idx]
	if prev == block.Air {
		return block.Air, false
	}

	w.blocks[idx] = block.Air
	return prev, true
}

// CanPlace проверяет, можно ли поставить блок id в клетку (x,y)
func (w *World) CanPlace(x, y float64, id block.ID) bool {
	if !block.Placeable(id) {
		return false
	}
	cell, ok := w.cellOf(x, y)
	if !ok {
		return false
	}
	return w.blocks[cell.Y*w.width+cell.X] == block.Air
}

// PlaceBlock ставит блок только на воздух; занятые клетки не перезаписываются
func (w *World) PlaceBlock(x, y float64, id block.ID) bool {
	if !w.CanPlace(x, y, id) {
		return false
	}
	cell, _ := w.cellOf(x, y)
	w.blocks[cell.Y*w.width+cell.X] = id
	return true
}

// CanMoveTo проверяет проходимость клетки, содержащей пиксельную точку
func (w *World) CanMoveTo(pixelX, pixelY float64) bool {
	cell, ok := w.cellOf(pixelX/TileSize, pixelY/TileSize)
	if !ok {
		return false
	}
	return !block.IsSolid(w.blocks[cell.Y*w.width+cell.X])
}

// ToPixels переводит мировые координаты в пиксельные
func ToPixels(p vec.Vec2Float) vec.Vec2Float {
	return p.Mul(TileSize)
}
