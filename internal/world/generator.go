package world

import "github.com/annel0/minisrooft/internal/world/block"

// Толщина слоя земли под травой
const DirtDepth = 2

// SurfaceLevel возвращает строку травяного слоя для мира заданной высоты.
// Центр мира (точка спавна) всегда оказывается в воздухе прямо над травой.
func SurfaceLevel(height int) int {
	return height/2 + 1
}

// Generate заполняет сетку детерминированными слоями:
// воздух сверху, одна строка травы, DirtDepth строк земли, ниже камень.
// Результат зависит только от размеров; ячейка (x,y) лежит по индексу y*width+x.
func Generate(width, height int) []block.ID {
	blocks := make([]block.ID, width*height)
	surface := SurfaceLevel(height)

	for y := 0; y < height; y++ {
		var id block.ID
		switch {
		case y < surface:
			id = block.Air
		case y == surface:
			id = block.Grass
		case y <= surface+DirtDepth:
			id = block.Dirt
		default:
			id = block.Stone
		}

		row := blocks[y*width : (y+1)*width]
		for x := range row {
			row[x] = id
		}
	}

	return blocks
}
