package social

import (
	"github.com/talgya/hamlet/internal/economy"
	"github.com/talgya/hamlet/internal/world"
)

// Village is the settlement every family belongs to. Its Stock is the
// shared ledger construction costs are paid from and gathered goods go to.
type Village struct {
	Name   string         `json:"name"`
	Center world.Coord    `json:"center"`
	Stock  economy.Ledger `json:"stock"`
}

// NewVillage creates a village with its opening stock.
func NewVillage(name string, center world.Coord, opening economy.Bundle) (*Village, error) {
	stock, err := economy.NewLedger(opening)
	if err != nil {
		return nil, err
	}
	return &Village{Name: name, Center: center, Stock: stock}, nil
}
