package table

import (
	"slices"
)

// Pot is one layer of the pot with the seats eligible to win it.
type Pot struct {
	Amount   int   `json:"amount"`
	Eligible []int `json:"eligible"`
}

// Contribution is what one seat put in over the whole hand.
type Contribution struct {
	Seat   int
	Amount int
	Folded bool
}

// BuildPots splits contributions into a main pot and side pots. Each distinct
// contribution level forms a layer; every seat that reached the level pays
// into it and the non-folded ones are eligible to win it. Layers nobody can
// win are merged into the layer below so no chips are lost. When nobody can
// win any layer the whole amount comes back as one pot with no eligible
// seats.
func BuildPots(contribs []Contribution) []Pot {
	levels := make([]int, 0, len(contribs))
	for _, c := range contribs {
		if c.Amount > 0 && !slices.Contains(levels, c.Amount) {
			levels = append(levels, c.Amount)
		}
	}
	slices.Sort(levels)

	var pots []Pot
	carry := 0
	prev := 0
	for _, level := range levels {
		pot := Pot{Amount: carry}
		carry = 0
		for _, c := range contribs {
			if c.Amount >= level {
				pot.Amount += level - prev
				if !c.Folded {
					pot.Eligible = append(pot.Eligible, c.Seat)
				}
			} else if c.Amount > prev {
				pot.Amount += c.Amount - prev
			}
		}
		prev = level

		if len(pot.Eligible) == 0 {
			if len(pots) > 0 {
				pots[len(pots)-1].Amount += pot.Amount
			} else {
				carry = pot.Amount
			}
			continue
		}
		// Consecutive layers with the same eligible set collapse into one.
		if n := len(pots); n > 0 && slices.Equal(pots[n-1].Eligible, pot.Eligible) {
			pots[n-1].Amount += pot.Amount
			continue
		}
		pots = append(pots, pot)
	}
	if carry > 0 {
		pots = append(pots, Pot{Amount: carry})
	}
	return pots
}

// splitPot divides amount between winners. Remainder chips go to the first
// winner clockwise from the dealer.
func splitPot(amount int, winners []int, dealer, numSeats int) map[int]int {
	awards := make(map[int]int, len(winners))
	if len(winners) == 0 {
		return awards
	}
	share := amount / len(winners)
	for _, w := range winners {
		awards[w] = share
	}
	if rem := amount - share*len(winners); rem > 0 {
		awards[firstAfter(winners, dealer, numSeats)] += rem
	}
	return awards
}

// firstAfter returns the seat in seats closest clockwise after dealer.
func firstAfter(seats []int, dealer, numSeats int) int {
	best, bestDist := seats[0], numSeats+1
	for _, s := range seats {
		dist := ((s-dealer)%numSeats + numSeats) % numSeats
		if dist == 0 {
			dist = numSeats // the dealer acts last
		}
		if dist < bestDist {
			best, bestDist = s, dist
		}
	}
	return best
}
