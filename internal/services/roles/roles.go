// Package roles builds the hidden role deck for a round.
package roles

import (
	"github.com/leeschmalz/secret-hitler-role-assigner/internal/dependencies/random"
	"github.com/leeschmalz/secret-hitler-role-assigner/internal/model"
)

type composition struct {
	liberals int
	fascists int // Not counting hitler
}

// Every supported table size has exactly one hitler
var compositions = map[int]composition{
	5:  {liberals: 3, fascists: 1},
	6:  {liberals: 4, fascists: 1},
	7:  {liberals: 4, fascists: 2},
	8:  {liberals: 5, fascists: 2},
	9:  {liberals: 5, fascists: 3},
	10: {liberals: 6, fascists: 3},
}

// Supported returns true if there is a role table for n players
func Supported(n int) bool {
	_, ok := compositions[n]
	return ok
}

// Composition returns the unshuffled roles for n players, or nil if n is unsupported
func Composition(n int) []model.Role {
	c, ok := compositions[n]
	if !ok {
		return nil
	}
	deck := make([]model.Role, 0, n)
	for i := 0; i < c.liberals; i++ {
		deck = append(deck, model.RoleLiberal)
	}
	for i := 0; i < c.fascists; i++ {
		deck = append(deck, model.RoleFascist)
	}
	return append(deck, model.RoleHitler)
}

// Generate returns a uniformly shuffled deck for n players. The result is
// empty when n is unsupported.
func Generate(rnd random.Random, n int) []model.Role {
	deck := Composition(n)
	if deck == nil {
		return []model.Role{}
	}
	// Fisher-Yates
	for i := len(deck) - 1; i > 0; i-- {
		j := rnd.Intn(i + 1)
		deck[i], deck[j] = deck[j], deck[i]
	}
	return deck
}
