package regional_test

import (
	"testing"
	"time"

	"transit-fares/internal/fares"
	"transit-fares/internal/fares/regional"
	"transit-fares/internal/gtfs"
	"transit-fares/internal/itinerary"
	"transit-fares/internal/money"
)

var t0 = time.Date(2026, 5, 4, 7, 30, 0, 0, time.UTC)

func usd(cents int64) money.Money { return money.Of("USD", cents) }

// bus builds a 30 minute bus ride on feed "1".
func bus(agency, route string, offset time.Duration) *itinerary.Leg {
	return rideOn(agency, route, 3, offset)
}

func rideOn(agency, route string, routeType int, offset time.Duration) *itinerary.Leg {
	start := t0.Add(offset)
	return &itinerary.Leg{
		Mode:            itinerary.ModeTransit,
		AgencyID:        gtfs.NewID("1", agency),
		Route:           itinerary.Route{ID: gtfs.NewID("1", route), ShortName: route, Type: routeType},
		TripID:          gtfs.NewID("1", route+"-"+offset.String()),
		From:            itinerary.Stop{ID: gtfs.NewID("1", "s-"+route)},
		To:              itinerary.Stop{ID: gtfs.NewID("1", "e-"+route)},
		Start:           start,
		End:             start.Add(30 * time.Minute),
		GeneralizedCost: itinerary.UnknownCost,
	}
}

// routeFares builds a regular catalog with one rule per route.
func routeFares(prices map[string]int64) fares.Catalog {
	var rules []*fares.FareRuleSet
	for route, cents := range prices {
		rules = append(rules, fares.NewFareRuleSet(gtfs.NewID("1", "fare-"+route), usd(cents)).
			AddRoute(gtfs.NewID("1", route)))
	}
	return fares.Catalog{fares.Regular: rules}
}

func price(t *testing.T, p fares.Pricer, ft fares.FareType, c fares.Catalog, legs ...*itinerary.Leg) (int64, []fares.Segment) {
	t.Helper()
	fl := fares.Preprocess(itinerary.Itinerary{Legs: legs}, p.ShouldCombineInterlinedLegs)
	segs := p.Price(fl, ft, c)
	var total int64
	for _, s := range segs {
		total += s.Price.Cents
	}
	return total, segs
}

func machine(r regional.Region) *regional.Machine {
	return regional.NewMachine(r, fares.NewMatcher(nil, nil), nil)
}
