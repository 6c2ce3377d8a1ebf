package game

import (
	"context"

	"github.com/annel0/minisrooft/internal/player"
	"github.com/annel0/minisrooft/internal/world/block"
)

// PlayerView: снимок игрока для REST API
type PlayerView struct {
	ID       string  `json:"id"`
	Username string  `json:"username"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Health   int     `json:"health"`
	Alive    bool    `json:"alive"`
}

// Stats: сводка состояния Hub
type Stats struct {
	PlayersOnline int `json:"players_online"`
	Connections   int `json:"connections"`
	WorldWidth    int `json:"world_width"`
	WorldHeight   int `json:"world_height"`
}

// Players возвращает вошедших игроков в порядке входа.
func (h *Hub) Players(ctx context.Context) ([]PlayerView, error) {
	var views []PlayerView
	if err := h.Query(ctx, func() { views = h.playerViews() }); err != nil {
		return nil, err
	}
	return views, nil
}

func (h *Hub) playerViews() []PlayerView {
	views := make([]PlayerView, 0, h.registry.Len())
	h.registry.Each(func(_ string, p *player.Player) {
		views = append(views, PlayerView{
			ID:       p.ID,
			Username: p.Username,
			X:        p.Position.X,
			Y:        p.Position.Y,
			Health:   p.Health,
			Alive:    p.Alive,
		})
	})
	return views
}

// BlockAt возвращает блок клетки; за пределами мира block.OutOfBounds.
func (h *Hub) BlockAt(ctx context.Context, x, y int) (block.ID, error) {
	var id block.ID
	if err := h.Query(ctx, func() { id = h.world.GetBlock(x, y) }); err != nil {
		return block.OutOfBounds, err
	}
	return id, nil
}

// Stats возвращает сводку состояния.
func (h *Hub) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	if err := h.Query(ctx, func() { s = h.stats() }); err != nil {
		return Stats{}, err
	}
	return s, nil
}

func (h *Hub) stats() Stats {
	return Stats{
		PlayersOnline: h.registry.Len(),
		Connections:   len(h.conns),
		WorldWidth:    h.world.Width(),
		WorldHeight:   h.world.Height(),
	}
}
