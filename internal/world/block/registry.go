package block

import "sort"

// ID представляет идентификатор типа блока
type ID int

// Константы ID блоков. Реестр закрыт: новые типы добавляются только здесь.
const (
	// OutOfBounds возвращается при чтении за пределами карты
	OutOfBounds ID = -1

	Air   ID = 0
	Grass ID = 1
	Dirt  ID = 2
	Stone ID = 3
)

// Type описывает тип блока
type Type struct {
	ID    ID     `json:"id"`
	Name  string `json:"name"`
	Solid bool   `json:"solid"` // Твёрдый блок блокирует движение
}

var registry = map[ID]Type{
	Air:   {ID: Air, Name: "air", Solid: false},
	Grass: {ID: Grass, Name: "grass", Solid: true},
	Dirt:  {ID: Dirt, Name: "dirt", Solid: true},
	Stone: {ID: Stone, Name: "stone", Solid: true},
}

// Get возвращает описание типа блока
func Get(id ID) (Type, bool) {
	t, exists := registry[id]
	return t, exists
}

// IsValid проверяет, зарегистрирован ли тип блока
func IsValid(id ID) bool {
	_, exists := registry[id]
	return exists
}

// IsSolid сообщает, блокирует ли блок движение. Незарегистрированные ID считаются твёрдыми.
func IsSolid(id ID) bool {
	t, exists := registry[id]
	if !exists {
		return true
	}
	return t.Solid
}

// Placeable сообщает, можно ли поставить блок этого типа из инвентаря
func Placeable(id ID) bool {
	return id != Air && IsValid(id)
}

// All возвращает все зарегистрированные типы, упорядоченные по ID
func All() []Type {
	types := make([]Type, 0, len(registry))
	for _, t := range registry {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i].ID < types[j].ID })
	return types
}

// Collectable возвращает типы, которые могут лежать в инвентаре
func Collectable() []ID {
	ids := make([]ID, 0, len(registry))
	for _, t := range All() {
		if Placeable(t.ID) {
			ids = append(ids, t.ID)
		}
	}
	return ids
}

// String возвращает имя блока
func (id ID) String() string {
	if t, exists := registry[id]; exists {
		return t.Name
	}
	if id == OutOfBounds {
		return "out_of_bounds"
	}
	return "unknown"
}
