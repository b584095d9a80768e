// Package faresv2 prices itineraries against GTFS-Fares v2 leg and transfer rules.
package faresv2

import (
	"time"

	"transit-fares/internal/fares"
	"transit-fares/internal/gtfs"
	"transit-fares/internal/itinerary"
	"transit-fares/internal/money"
)

type DistanceKind int

const (
	AnyDistance DistanceKind = iota
	StopCount
	LinearDistance
)

// Unbounded marks an absent minimum or maximum distance.
const Unbounded = -1

// FareDistance restricts a leg rule to a range of stops ridden or meters travelled.
type FareDistance struct {
	Kind DistanceKind
	Min  float64
	Max  float64
}

// matches counts stops inclusively; linear distance must lie strictly inside the range.
func (d FareDistance) matches(leg *itinerary.Leg) bool {
	switch d.Kind {
	case StopCount:
		n := float64(len(leg.IntermediateStops))
		return (d.Min == Unbounded || n >= d.Min) && (d.Max == Unbounded || n <= d.Max)
	case LinearDistance:
		m := leg.DirectDistanceMeters()
		return (d.Min == Unbounded || m > d.Min) && (d.Max == Unbounded || m < d.Max)
	}
	return true
}

// LegRule prices a single leg. Zero ids mean the rule does not restrict that dimension.
type LegRule struct {
	FeedID     string
	LegGroupID gtfs.FeedScopedID
	NetworkID  gtfs.FeedScopedID
	FromAreaID gtfs.FeedScopedID
	ToAreaID   gtfs.FeedScopedID
	Distance   FareDistance
	Products   []fares.FareProduct
}

// TransferRule prices the step from a leg of one leg group to the next leg of another.
type TransferRule struct {
	FromLegGroup gtfs.FeedScopedID
	ToLegGroup   gtfs.FeedScopedID
	Products     []fares.FareProduct
}

// IsFree reports whether the transfer costs nothing.
func (t TransferRule) IsFree() bool {
	for _, p := range t.Products {
		if !p.Price.IsZero() {
			return false
		}
	}
	return true
}

// Catalog is the immutable v2 rule set of one or more feeds.
type Catalog struct {
	LegRules      []LegRule
	TransferRules []TransferRule
	// StopAreas maps a stop to the areas containing it.
	StopAreas map[gtfs.FeedScopedID][]gtfs.FeedScopedID
	// RouteNetworks maps a route to its networks, for legs that do not carry them.
	RouteNetworks map[gtfs.FeedScopedID][]gtfs.FeedScopedID
}

func (c Catalog) IsEmpty() bool { return len(c.LegRules) == 0 }

// Merge returns a catalog holding the rules of both.
func (c Catalog) Merge(o Catalog) Catalog {
	out := Catalog{
		LegRules:      append(append([]LegRule(nil), c.LegRules...), o.LegRules...),
		TransferRules: append(append([]TransferRule(nil), c.TransferRules...), o.TransferRules...),
		StopAreas:     make(map[gtfs.FeedScopedID][]gtfs.FeedScopedID, len(c.StopAreas)+len(o.StopAreas)),
		RouteNetworks: make(map[gtfs.FeedScopedID][]gtfs.FeedScopedID, len(c.RouteNetworks)+len(o.RouteNetworks)),
	}
	for _, m := range []map[gtfs.FeedScopedID][]gtfs.FeedScopedID{c.StopAreas, o.StopAreas} {
		for k, v := range m {
			out.StopAreas[k] = append(out.StopAreas[k], v...)
		}
	}
	for _, m := range []map[gtfs.FeedScopedID][]gtfs.FeedScopedID{c.RouteNetworks, o.RouteNetworks} {
		for k, v := range m {
			out.RouteNetworks[k] = append(out.RouteNetworks[k], v...)
		}
	}
	return out
}

// BuildCatalog scopes the v2 rows of one feed. A fare product id may appear on
// several rows, one per rider category or medium; rules reference all of them.
func BuildCatalog(feedID string, products []gtfs.FareProduct, legRules []gtfs.FareLegRule,
	transferRules []gtfs.FareTransferRule, stopAreas []gtfs.StopArea, routeNetworks []gtfs.RouteNetwork) Catalog {
	byID := make(map[string][]fares.FareProduct)
	for _, p := range products {
		byID[p.FareProductID] = append(byID[p.FareProductID], toProduct(feedID, p))
	}
	id := func(s string) gtfs.FeedScopedID {
		if s == "" {
			return gtfs.FeedScopedID{}
		}
		return gtfs.NewID(feedID, s)
	}

	c := Catalog{
		StopAreas:     make(map[gtfs.FeedScopedID][]gtfs.FeedScopedID),
		RouteNetworks: make(map[gtfs.FeedScopedID][]gtfs.FeedScopedID),
	}
	for _, r := range legRules {
		c.LegRules = append(c.LegRules, LegRule{
			FeedID:     feedID,
			LegGroupID: id(r.LegGroupID),
			NetworkID:  id(r.NetworkID),
			FromAreaID: id(r.FromAreaID),
			ToAreaID:   id(r.ToAreaID),
			Distance:   toDistance(r),
			Products:   byID[r.FareProductID],
		})
	}
	for _, t := range transferRules {
		c.TransferRules = append(c.TransferRules, TransferRule{
			FromLegGroup: id(t.FromLegGroupID),
			ToLegGroup:   id(t.ToLegGroupID),
			Products:     byID[t.FareProductID],
		})
	}
	for _, sa := range stopAreas {
		stop := gtfs.NewID(feedID, sa.StopID)
		c.StopAreas[stop] = append(c.StopAreas[stop], gtfs.NewID(feedID, sa.AreaID))
	}
	for _, rn := range routeNetworks {
		route := gtfs.NewID(feedID, rn.RouteID)
		c.RouteNetworks[route] = append(c.RouteNetworks[route], gtfs.NewID(feedID, rn.NetworkID))
	}
	return c
}

func toProduct(feedID string, p gtfs.FareProduct) fares.FareProduct {
	fp := fares.FareProduct{
		ID:       gtfs.NewID(feedID, p.FareProductID),
		Name:     p.FareProductName,
		Price:    money.FromDecimal(p.Currency, p.Amount),
		Duration: time.Duration(p.DurationSeconds) * time.Second,
	}
	if p.RiderCategoryID != "" {
		fp.Category = fares.RiderCategory{ID: gtfs.NewID(feedID, p.RiderCategoryID), Name: p.RiderCategoryID}
	}
	if p.FareMediaID != "" {
		fp.Medium = fares.FareMedium{ID: gtfs.NewID(feedID, p.FareMediaID), Name: p.FareMediaID}
	}
	return fp
}

func toDistance(r gtfs.FareLegRule) FareDistance {
	switch r.DistanceType {
	case gtfs.DistanceStops:
		return FareDistance{Kind: StopCount, Min: r.MinDistance, Max: r.MaxDistance}
	case gtfs.DistanceLinear:
		return FareDistance{Kind: LinearDistance, Min: r.MinDistance, Max: r.MaxDistance}
	}
	return FareDistance{Kind: AnyDistance}
}
