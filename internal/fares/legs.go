package fares

import (
	"transit-fares/internal/itinerary"
)

// FareLeg is a leg as seen by pricing: either a PlainLeg or a CombinedLeg.
type FareLeg interface {
	// View returns the properties used for rule matching.
	View() *itinerary.Leg
	isFareLeg()
}

// PlainLeg wraps a single itinerary leg.
type PlainLeg struct {
	Leg *itinerary.Leg
}

func (p PlainLeg) View() *itinerary.Leg { return p.Leg }
func (PlainLeg) isFareLeg()             {}

// CombinedLeg is a synthetic leg standing in for two stay-seated interlined legs.
// It exists only for pricing; products are attached back to First and Second.
type CombinedLeg struct {
	First  *itinerary.Leg
	Second *itinerary.Leg
	view   itinerary.Leg
}

func NewCombinedLeg(first, second *itinerary.Leg) CombinedLeg {
	v := *first
	v.To = second.To
	v.End = second.End
	v.DistanceMeters = first.DistanceMeters + second.DistanceMeters
	v.GeneralizedCost = combinedCost(first.GeneralizedCost, second.GeneralizedCost)
	// every stop ridden through, so the zone union covers both legs
	v.IntermediateStops = make([]itinerary.Stop, 0, len(first.IntermediateStops)+len(second.IntermediateStops)+2)
	v.IntermediateStops = append(v.IntermediateStops, first.IntermediateStops...)
	v.IntermediateStops = append(v.IntermediateStops, first.To, second.From)
	v.IntermediateStops = append(v.IntermediateStops, second.IntermediateStops...)
	return CombinedLeg{First: first, Second: second, view: v}
}

func (c CombinedLeg) View() *itinerary.Leg { return &c.view }
func (CombinedLeg) isFareLeg()             {}

func combinedCost(a, b int) int {
	switch {
	case a == itinerary.UnknownCost && b == itinerary.UnknownCost:
		return itinerary.UnknownCost
	case a == itinerary.UnknownCost:
		return b
	case b == itinerary.UnknownCost:
		return a
	}
	return a + b
}

// OriginalLegs returns the itinerary legs a product attached to fl covers.
func OriginalLegs(fl FareLeg) []*itinerary.Leg {
	switch l := fl.(type) {
	case PlainLeg:
		return []*itinerary.Leg{l.Leg}
	case CombinedLeg:
		return []*itinerary.Leg{l.First, l.Second}
	}
	return nil
}

// InterlinePolicy decides whether an interlined pair is priced as one ride.
type InterlinePolicy func(prev, curr *itinerary.Leg) bool

func NeverCombine(_, _ *itinerary.Leg) bool  { return false }
func AlwaysCombine(_, _ *itinerary.Leg) bool { return true }

func SameRouteCombine(prev, curr *itinerary.Leg) bool {
	return prev.Route.ID == curr.Route.ID
}

// Preprocess keeps the fare-relevant legs of an itinerary and merges interlined
// scheduled legs the policy asks for. A combined leg is never merged again.
func Preprocess(it itinerary.Itinerary, combine InterlinePolicy) []FareLeg {
	if combine == nil {
		combine = NeverCombine
	}
	var out []FareLeg
	for _, leg := range it.Legs {
		if !leg.IsFareRelevant() {
			continue
		}
		if leg.InterlinedWithPrevious && leg.IsScheduledTransit() && len(out) > 0 {
			if prev, ok := out[len(out)-1].(PlainLeg); ok && prev.Leg.IsScheduledTransit() && combine(prev.Leg, leg) {
				out[len(out)-1] = NewCombinedLeg(prev.Leg, leg)
				continue
			}
		}
		out = append(out, PlainLeg{Leg: leg})
	}
	return out
}
