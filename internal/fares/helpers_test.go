package fares_test

import (
	"time"

	"transit-fares/internal/fares"
	"transit-fares/internal/gtfs"
	"transit-fares/internal/itinerary"
	"transit-fares/internal/money"
)

var t0 = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func usd(cents int64) money.Money { return money.Of("USD", cents) }

func zoneStop(feed, id, zone string) itinerary.Stop {
	s := itinerary.Stop{ID: gtfs.NewID(feed, id), Name: id}
	if zone != "" {
		s.FareZones = []string{zone}
	}
	return s
}

// ride builds a scheduled transit leg on feed "1" from zone to zone, starting
// offset after t0 and lasting 20 minutes.
func ride(route, from, to string, offset time.Duration) *itinerary.Leg {
	return feedRide("1", route, from, to, offset)
}

func feedRide(feed, route, from, to string, offset time.Duration) *itinerary.Leg {
	start := t0.Add(offset)
	return &itinerary.Leg{
		Mode:            itinerary.ModeTransit,
		AgencyID:        gtfs.NewID(feed, "agency"),
		Route:           itinerary.Route{ID: gtfs.NewID(feed, route)},
		TripID:          gtfs.NewID(feed, route+"-trip"),
		From:            zoneStop(feed, from, from),
		To:              zoneStop(feed, to, to),
		Start:           start,
		End:             start.Add(20 * time.Minute),
		GeneralizedCost: itinerary.UnknownCost,
	}
}

func walk(offset time.Duration) *itinerary.Leg {
	return &itinerary.Leg{Mode: itinerary.ModeWalk, Start: t0.Add(offset), End: t0.Add(offset + 5*time.Minute)}
}

func odRule(id string, cents int64, from, to string) *fares.FareRuleSet {
	return fares.NewFareRuleSet(gtfs.NewID("1", id), usd(cents)).AddOriginDestination(from, to)
}
