package fares

import (
	"sort"
	"time"

	"transit-fares/internal/gtfs"
	"transit-fares/internal/money"
)

// Unlimited marks an absent transfer-count or duration bound.
const Unlimited = -1

type OriginDestination struct {
	Origin      string
	Destination string
}

// FareRuleSet is one priced rule with its matching predicates. A rule without
// predicates matches every leg range of its feed. It is immutable once built.
type FareRuleSet struct {
	FareID   gtfs.FeedScopedID
	Price    money.Money
	AgencyID gtfs.FeedScopedID

	MaxTransfers   int
	MaxTripTime    time.Duration
	MaxJourneyTime time.Duration

	originDestinations map[OriginDestination]struct{}
	contains           map[string]struct{}
	routes             map[gtfs.FeedScopedID]struct{}
	trips              map[gtfs.FeedScopedID]struct{}
}

func NewFareRuleSet(id gtfs.FeedScopedID, price money.Money) *FareRuleSet {
	return &FareRuleSet{
		FareID:             id,
		Price:              price,
		MaxTransfers:       Unlimited,
		MaxTripTime:        Unlimited,
		MaxJourneyTime:     Unlimited,
		originDestinations: make(map[OriginDestination]struct{}),
		contains:           make(map[string]struct{}),
		routes:             make(map[gtfs.FeedScopedID]struct{}),
		trips:              make(map[gtfs.FeedScopedID]struct{}),
	}
}

// FeedID is the feed the rule was imported from.
func (r *FareRuleSet) FeedID() string { return r.FareID.FeedID }

func (r *FareRuleSet) AddOriginDestination(origin, destination string) *FareRuleSet {
	r.originDestinations[OriginDestination{Origin: origin, Destination: destination}] = struct{}{}
	return r
}

func (r *FareRuleSet) AddContains(zone string) *FareRuleSet {
	r.contains[zone] = struct{}{}
	return r
}

func (r *FareRuleSet) AddRoute(id gtfs.FeedScopedID) *FareRuleSet {
	r.routes[id] = struct{}{}
	return r
}

func (r *FareRuleSet) AddTrip(id gtfs.FeedScopedID) *FareRuleSet {
	r.trips[id] = struct{}{}
	return r
}

// rangeFacts is what the matcher derives from a contiguous leg range.
type rangeFacts struct {
	agencies      map[gtfs.FeedScopedID]struct{}
	startZone     string
	endZone       string
	zones         map[string]struct{}
	routes        map[gtfs.FeedScopedID]struct{}
	trips         map[gtfs.FeedScopedID]struct{}
	transfersUsed int
	tripTime      time.Duration
	journeyTime   time.Duration
}

func (r *FareRuleSet) matches(f rangeFacts) bool {
	if !r.AgencyID.IsZero() {
		for a := range f.agencies {
			if a != r.AgencyID {
				return false
			}
		}
	}
	if len(r.originDestinations) > 0 && !r.matchesOriginDestination(f.startZone, f.endZone) {
		return false
	}
	if len(r.contains) > 0 && !subset(f.zones, r.contains) {
		return false
	}
	if len(r.routes) > 0 && !subset(f.routes, r.routes) {
		return false
	}
	if len(r.trips) > 0 && !subset(f.trips, r.trips) {
		return false
	}
	if r.MaxTransfers != Unlimited && f.transfersUsed > r.MaxTransfers {
		return false
	}
	// transfers are evaluated at boarding time
	if r.MaxTripTime != Unlimited && f.tripTime > r.MaxTripTime {
		return false
	}
	if r.MaxJourneyTime != Unlimited && f.journeyTime > r.MaxJourneyTime {
		return false
	}
	return true
}

// An empty origin or destination in a pair matches any zone on that side.
func (r *FareRuleSet) matchesOriginDestination(start, end string) bool {
	for _, od := range []OriginDestination{{start, end}, {start, ""}, {"", end}} {
		if _, ok := r.originDestinations[od]; ok {
			return true
		}
	}
	return false
}

func subset[K comparable](sub, super map[K]struct{}) bool {
	for k := range sub {
		if _, ok := super[k]; !ok {
			return false
		}
	}
	return true
}

// Catalog holds the rule sets of every fare type. It is built once at import time.
type Catalog map[FareType][]*FareRuleSet

// FareTypes lists the fare types that have at least one rule.
func (c Catalog) FareTypes() []FareType {
	var out []FareType
	for t, rules := range c {
		if len(rules) > 0 {
			out = append(out, t)
		}
	}
	SortFareTypes(out)
	return out
}

// BuildRuleSets groups fare_rules rows under their fare_attributes row. Attributes
// come out in input order; rows naming an unknown fare id are skipped.
func BuildRuleSets(feedID string, attrs []gtfs.FareAttribute, rules []gtfs.FareRule) []*FareRuleSet {
	byID := make(map[string]*FareRuleSet, len(attrs))
	out := make([]*FareRuleSet, 0, len(attrs))
	for _, a := range attrs {
		rs := NewFareRuleSet(gtfs.NewID(feedID, a.FareID), money.FromDecimal(a.CurrencyType, a.Price))
		if a.AgencyID != "" {
			rs.AgencyID = gtfs.NewID(feedID, a.AgencyID)
		}
		if a.Transfers >= 0 {
			rs.MaxTransfers = a.Transfers
		}
		if a.TransferDuration >= 0 {
			rs.MaxTripTime = time.Duration(a.TransferDuration) * time.Second
		}
		if a.JourneyDuration >= 0 {
			rs.MaxJourneyTime = time.Duration(a.JourneyDuration) * time.Second
		}
		byID[a.FareID] = rs
		out = append(out, rs)
	}
	for _, row := range rules {
		rs, ok := byID[row.FareID]
		if !ok {
			continue
		}
		if row.OriginID != "" || row.DestinationID != "" {
			rs.AddOriginDestination(row.OriginID, row.DestinationID)
		}
		if row.ContainsID != "" {
			rs.AddContains(row.ContainsID)
		}
		if row.RouteID != "" {
			rs.AddRoute(gtfs.NewID(feedID, row.RouteID))
		}
		if row.TripID != "" {
			rs.AddTrip(gtfs.NewID(feedID, row.TripID))
		}
	}
	return out
}

// sortedZones is used for deterministic log output.
func sortedZones(zs map[string]struct{}) []string {
	out := make([]string, 0, len(zs))
	for z := range zs {
		out = append(out, z)
	}
	sort.Strings(out)
	return out
}
