package fares

import (
	"math"

	"transit-fares/internal/gtfs"
	"transit-fares/internal/itinerary"
	"transit-fares/internal/money"
)

// Segment is one priced contiguous run of fare legs.
type Segment struct {
	// First and Last are inclusive indexes into the fare legs.
	First  int
	Last   int
	Price  money.Money
	FareID gtfs.FeedScopedID
	// Legs are the itinerary legs covered, with combined legs expanded.
	Legs []*itinerary.Leg
}

const unpriced = math.MaxInt64

// searchTables is allocated once per Decompose call and never shared.
type searchTables struct {
	cost           [][]int64
	next           [][]int
	direct         [][]FareAndID
	endOfComponent []int
}

func newSearchTables(n int) *searchTables {
	t := &searchTables{
		cost:           make([][]int64, n),
		next:           make([][]int, n),
		direct:         make([][]FareAndID, n),
		endOfComponent: make([]int, n),
	}
	for i := 0; i < n; i++ {
		t.cost[i] = make([]int64, n)
		t.next[i] = make([]int, n)
		t.direct[i] = make([]FareAndID, n)
		for j := range t.cost[i] {
			t.cost[i][j] = unpriced
			t.next[i][j] = -1
		}
		t.endOfComponent[i] = -1
	}
	return t
}

// Decompose partitions legs into the cheapest sequence of contiguous rule-matched
// segments. It is a Floyd-Warshall style interval program where legs are the edges
// between cut points, so i..k is connected to k+1..j. Legs no rule can price are
// left out of every segment.
func (m *Matcher) Decompose(legs []FareLeg, rules []*FareRuleSet) []Segment {
	t := m.search(legs, rules)
	return t.walk(legs)
}

func (m *Matcher) search(legs []FareLeg, rules []*FareRuleSet) *searchTables {
	n := len(legs)
	t := newSearchTables(n)
	for span := 0; span < n; span++ {
		for i := 0; i+span < n; i++ {
			j := i + span
			if best, ok := m.BestMatch(legs[i:j+1], rules); ok {
				if best.Price.IsNegative() {
					m.logger.Error("negative cost for a leg range, ignoring rule",
						"fare_id", best.FareID.String(), "price", best.Price.String(), "first", i, "last", j)
					if m.metrics != nil {
						m.metrics.NegativeCost()
					}
				} else {
					t.cost[i][j] = best.Price.Cents
					t.direct[i][j] = best
					t.next[i][j] = j
					t.endOfComponent[i] = j
				}
			}
			for k := i; k < j; k++ {
				a, b := t.cost[i][k], t.cost[k+1][j]
				if a == unpriced || b == unpriced {
					continue
				}
				if via := a + b; via < t.cost[i][j] {
					t.cost[i][j] = via
					t.next[i][j] = t.next[i][k]
					t.endOfComponent[i] = j
				}
			}
		}
	}
	return t
}

// walk follows the via pointers from the first priced leg. next always points at
// the end of a directly priced segment, so direct holds that segment's rule.
func (t *searchTables) walk(legs []FareLeg) []Segment {
	var out []Segment
	n := len(legs)
	start := 0
	for start < n {
		for start < n && t.endOfComponent[start] < 0 {
			start++
		}
		if start >= n {
			break
		}
		via := t.next[start][t.endOfComponent[start]]
		best := t.direct[start][via]
		seg := Segment{First: start, Last: via, Price: best.Price, FareID: best.FareID}
		for i := start; i <= via; i++ {
			seg.Legs = append(seg.Legs, OriginalLegs(legs[i])...)
		}
		out = append(out, seg)
		start = via + 1
	}
	return out
}
