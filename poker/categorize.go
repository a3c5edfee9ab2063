package poker

// HoleCardCategory is a coarse preflop strength bucket.
type HoleCardCategory string

const (
	CategoryPremium HoleCardCategory = "Premium"
	CategoryStrong  HoleCardCategory = "Strong"
	CategoryMedium  HoleCardCategory = "Medium"
	CategoryWeak    HoleCardCategory = "Weak"
	CategoryTrash   HoleCardCategory = "Trash"
	CategoryUnknown HoleCardCategory = "Unknown"
)

var categoryOrder = map[HoleCardCategory]int{
	CategoryTrash:   1,
	CategoryWeak:    2,
	CategoryMedium:  3,
	CategoryStrong:  4,
	CategoryPremium: 5,
}

// AtLeast reports whether c is as strong as other. Unknown is never at
// least anything.
func (c HoleCardCategory) AtLeast(other HoleCardCategory) bool {
	return categoryOrder[c] > 0 && categoryOrder[c] >= categoryOrder[other]
}

// CategorizeHoleCards buckets two hole cards:
//
//	Premium  JJ+ and AK
//	Strong   TT, AQ and AJ
//	Medium   77-99 and suited cards Ten or higher
//	Weak     22-66 and suited cards at most two ranks apart
//	Trash    everything else
func CategorizeHoleCards(a, b Card) HoleCardCategory {
	if !a.Valid() || !b.Valid() {
		return CategoryUnknown
	}
	lo, hi := a.Rank(), b.Rank()
	if lo > hi {
		lo, hi = hi, lo
	}
	pair := lo == hi
	suited := a.Suit() == b.Suit()

	switch {
	case pair && lo >= Jack, lo == King && hi == Ace:
		return CategoryPremium
	case pair && lo == Ten, hi == Ace && (lo == Queen || lo == Jack):
		return CategoryStrong
	case pair && lo >= Seven, suited && lo >= Ten:
		return CategoryMedium
	case pair, suited && hi-lo <= 2:
		return CategoryWeak
	}
	return CategoryTrash
}
