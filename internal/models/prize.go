package models

import (
	"fmt"
	"sort"
)

// Prize is one ranked award of a lottery. Ranks are unique and contiguous from 1.
type Prize struct {
	Rank  int    `bson:"rank" json:"rank" binding:"required,min=1"`
	Title string `bson:"title" json:"title" binding:"required"`
}

// SortPrizes orders prizes by rank in place
func SortPrizes(prizes []Prize) {
	sort.Slice(prizes, func(i, j int) bool { return prizes[i].Rank < prizes[j].Rank })
}

// CheckPrizeRanks verifies that ranks form the sequence 1..len(prizes)
func CheckPrizeRanks(prizes []Prize) error {
	seen := make(map[int]bool, len(prizes))
	for _, p := range prizes {
		if p.Rank < 1 || p.Rank > len(prizes) {
			return fmt.Errorf("prize rank %d outside 1..%d", p.Rank, len(prizes))
		}
		if seen[p.Rank] {
			return fmt.Errorf("prize rank %d appears more than once", p.Rank)
		}
		seen[p.Rank] = true
	}
	return nil
}
