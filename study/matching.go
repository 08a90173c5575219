package study

import (
	"math/rand"
	"strconv"
)

// TileType distinguishes the two halves of a matching pair.
type TileType string

const (
	TileTerm       TileType = "term"
	TileDefinition TileType = "definition"
)

// Tile is one face-up item on a matching board.
type Tile struct {
	ID       string   `json:"id"`
	PairID   string   `json:"pair_id"`
	Type     TileType `json:"type"`
	Text     string   `json:"text"`
	Matched  bool     `json:"matched"`
	Selected bool     `json:"selected"`
}

// IsMatch reports whether two tiles form a pair: same pair and opposite halves.
func IsMatch(a, b Tile) bool {
	return a.PairID == b.PairID && a.Type != b.Type
}

// newBoard lays out a term and a definition tile per card, shuffled.
func newBoard(cards []Card, rng *rand.Rand) []Tile {
	tiles := make([]Tile, 0, len(cards)*2)
	for i, c := range cards {
		n := strconv.Itoa(i)
		tiles = append(tiles,
			Tile{ID: "t" + n, PairID: c.ID, Type: TileTerm, Text: c.FrontText},
			Tile{ID: "d" + n, PairID: c.ID, Type: TileDefinition, Text: c.BackText},
		)
	}
	rng.Shuffle(len(tiles), func(i, j int) { tiles[i], tiles[j] = tiles[j], tiles[i] })
	return tiles
}
