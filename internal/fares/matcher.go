package fares

import (
	"log/slog"

	"transit-fares/internal/gtfs"
	"transit-fares/internal/money"
)

// FareAndID is the cheapest rule found for a leg range.
type FareAndID struct {
	Price  money.Money
	FareID gtfs.FeedScopedID
}

// Matcher scores leg ranges against rule sets.
type Matcher struct {
	logger  *slog.Logger
	metrics Metrics
}

// NewMatcher returns a matcher; metrics may be nil.
func NewMatcher(logger *slog.Logger, metrics Metrics) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{logger: logger, metrics: metrics}
}

// BestMatch returns the cheapest rule matching the whole contiguous range. Ranges
// spanning several feeds never match. On equal prices the first rule wins.
func (m *Matcher) BestMatch(legs []FareLeg, rules []*FareRuleSet) (FareAndID, bool) {
	if len(legs) == 0 {
		return FareAndID{}, false
	}
	feedID := legs[0].View().FeedID()
	for _, l := range legs[1:] {
		if l.View().FeedID() != feedID {
			m.logger.Debug("leg range spans several feeds, no fare rule applies",
				"first_feed", feedID, "other_feed", l.View().FeedID(), "legs", len(legs))
			return FareAndID{}, false
		}
	}

	facts := collectFacts(legs)
	var (
		best  FareAndID
		found bool
	)
	for _, r := range rules {
		if r.FeedID() != feedID {
			continue
		}
		if !r.matches(facts) {
			continue
		}
		if !found || r.Price.LessThan(best.Price) {
			best = FareAndID{Price: r.Price, FareID: r.FareID}
			found = true
		}
	}
	if !found {
		m.logger.Debug("no fare rule matches leg range",
			"feed", feedID, "start_zone", facts.startZone, "end_zone", facts.endZone,
			"zones", sortedZones(facts.zones), "legs", len(legs))
	}
	return best, found
}

func collectFacts(legs []FareLeg) rangeFacts {
	first := legs[0].View()
	last := legs[len(legs)-1].View()
	f := rangeFacts{
		agencies:      make(map[gtfs.FeedScopedID]struct{}),
		startZone:     first.From.FirstZone(),
		endZone:       last.To.FirstZone(),
		zones:         make(map[string]struct{}),
		routes:        make(map[gtfs.FeedScopedID]struct{}),
		trips:         make(map[gtfs.FeedScopedID]struct{}),
		transfersUsed: len(legs) - 1,
		tripTime:      last.Start.Sub(first.Start),
		journeyTime:   last.End.Sub(first.Start),
	}
	for _, fl := range legs {
		v := fl.View()
		f.agencies[v.AgencyID] = struct{}{}
		f.routes[v.Route.ID] = struct{}{}
		f.trips[v.TripID] = struct{}{}
		for _, z := range v.FareZones() {
			f.zones[z] = struct{}{}
		}
	}
	return f
}
