// Package portfolio evaluates books of signed option positions.
package portfolio

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/bcdannyboy/optbook/models"
)

// Position is a signed quantity of one contract. Negative quantities are
// short.
type Position struct {
	ID       string
	Quantity float64
	Contract models.OptionContract
}

// NewPosition returns a position, assigning a random ID when id is empty.
func NewPosition(id string, quantity float64, c models.OptionContract) Position {
	if id == "" {
		id = uuid.New().String()
	}
	return Position{ID: id, Quantity: quantity, Contract: c}
}

func (p Position) clone() Position {
	if p.Contract.Volatility != nil {
		p.Contract.Volatility = models.Vol(*p.Contract.Volatility)
	}
	return p
}

// Portfolio is an ordered set of positions with unique IDs. It keeps its
// own copies, so callers cannot change a position after adding it.
type Portfolio struct {
	positions []Position
	index     map[string]int
}

// New builds a portfolio from positions in order.
func New(positions ...Position) (*Portfolio, error) {
	p := &Portfolio{
		positions: make([]Position, 0, len(positions)),
		index:     make(map[string]int, len(positions)),
	}
	for _, pos := range positions {
		if err := p.Add(pos); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Add appends a position.
func (p *Portfolio) Add(pos Position) error {
	if pos.ID == "" {
		return fmt.Errorf("%w: position %d has no id", models.ErrMalformedPortfolio, len(p.positions))
	}
	if _, dup := p.index[pos.ID]; dup {
		return fmt.Errorf("%w: duplicate position id %q", models.ErrMalformedPortfolio, pos.ID)
	}
	if math.IsNaN(pos.Quantity) || math.IsInf(pos.Quantity, 0) {
		return fmt.Errorf("%w: position %q has quantity %g", models.ErrMalformedPortfolio, pos.ID, pos.Quantity)
	}
	if p.index == nil {
		p.index = make(map[string]int)
	}
	p.index[pos.ID] = len(p.positions)
	p.positions = append(p.positions, pos.clone())
	return nil
}

func (p *Portfolio) Len() int {
	if p == nil {
		return 0
	}
	return len(p.positions)
}

// At returns a copy of the i-th position.
func (p *Portfolio) At(i int) Position {
	return p.positions[i].clone()
}

// Lookup returns the position with the given ID.
func (p *Portfolio) Lookup(id string) (Position, bool) {
	i, ok := p.index[id]
	if !ok {
		return Position{}, false
	}
	return p.positions[i].clone(), true
}

// Positions returns copies of all positions in order.
func (p *Portfolio) Positions() []Position {
	out := make([]Position, len(p.positions))
	for i, pos := range p.positions {
		out[i] = pos.clone()
	}
	return out
}
