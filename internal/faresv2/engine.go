package faresv2

import (
	"log/slog"
	"slices"
	"time"

	"transit-fares/internal/fares"
	"transit-fares/internal/gtfs"
	"transit-fares/internal/itinerary"
)

type Metrics interface {
	MalformedTransferRule()
}

// Engine matches scheduled transit legs against a v2 catalog. It is immutable
// after NewEngine and safe for concurrent use.
type Engine struct {
	catalog   Catalog
	groups    map[gtfs.FeedScopedID][]LegRule
	transfers []TransferRule

	networksWithRules map[gtfs.FeedScopedID]struct{}
	fromAreas         map[gtfs.FeedScopedID]struct{}
	toAreas           map[gtfs.FeedScopedID]struct{}

	logger  *slog.Logger
	metrics Metrics
}

type Option func(*Engine)

func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.logger = l } }
func WithMetrics(m Metrics) Option     { return func(e *Engine) { e.metrics = m } }

var _ fares.ProductEngine = (*Engine)(nil)

// NewEngine indexes the catalog. Transfer rules whose leg groups do not resolve
// to a leg rule are logged and left out.
func NewEngine(c Catalog, opts ...Option) *Engine {
	e := &Engine{
		catalog:           c,
		groups:            make(map[gtfs.FeedScopedID][]LegRule),
		networksWithRules: make(map[gtfs.FeedScopedID]struct{}),
		fromAreas:         make(map[gtfs.FeedScopedID]struct{}),
		toAreas:           make(map[gtfs.FeedScopedID]struct{}),
		logger:            slog.Default(),
	}
	for _, o := range opts {
		o(e)
	}
	for _, r := range c.LegRules {
		if !r.LegGroupID.IsZero() {
			e.groups[r.LegGroupID] = append(e.groups[r.LegGroupID], r)
		}
		if !r.NetworkID.IsZero() {
			e.networksWithRules[r.NetworkID] = struct{}{}
		}
		if !r.FromAreaID.IsZero() {
			e.fromAreas[r.FromAreaID] = struct{}{}
		}
		if !r.ToAreaID.IsZero() {
			e.toAreas[r.ToAreaID] = struct{}{}
		}
	}
	for _, t := range c.TransferRules {
		_, fromOK := e.groups[t.FromLegGroup]
		_, toOK := e.groups[t.ToLegGroup]
		if !fromOK || !toOK {
			e.logger.Error("transfer rule references unknown leg group, ignoring it",
				"from_leg_group", t.FromLegGroup.String(), "to_leg_group", t.ToLegGroup.String())
			if e.metrics != nil {
				e.metrics.MalformedTransferRule()
			}
			continue
		}
		e.transfers = append(e.transfers, t)
	}
	return e
}

// Transfers returns the transfer rules kept after validation.
func (e *Engine) Transfers() []TransferRule { return e.transfers }

// match is a leg rule matching a leg together with the transfer rules leading to
// the next leg.
type match struct {
	rule      LegRule
	transfers []TransferRule
}

// Products computes the v2 products of the itinerary's scheduled transit legs.
func (e *Engine) Products(it itinerary.Itinerary) fares.ProductResult {
	legs := it.TransitLegs()
	if len(legs) == 0 || e.catalog.IsEmpty() {
		return fares.ProductResult{}
	}

	matches := make([][]match, len(legs))
	for i, leg := range legs {
		for _, r := range e.catalog.LegRules {
			if !e.LegMatches(r, leg) {
				continue
			}
			m := match{rule: r}
			if i+1 < len(legs) {
				m.transfers = e.transfersTo(r, legs[i+1])
			}
			matches[i] = append(matches[i], m)
		}
	}

	var res fares.ProductResult
	duration := it.TransitDuration()
	for _, ms := range matches {
		for _, m := range ms {
			for _, p := range m.rule.Products {
				if e.covers(legs, m, p, duration) && !slices.Contains(res.ItineraryProducts, p) {
					res.ItineraryProducts = append(res.ItineraryProducts, p)
				}
			}
		}
	}
	for i, ms := range matches {
		var ps []fares.FareProduct
		for _, m := range ms {
			for _, p := range m.rule.Products {
				if !slices.Contains(ps, p) {
					ps = append(ps, p)
				}
			}
		}
		if len(ps) > 0 {
			res.LegProducts = append(res.LegProducts, fares.LegProducts{Leg: legs[i], Products: ps})
		}
	}
	return res
}

// covers reports whether product p of a matched rule is valid for the whole itinerary.
func (e *Engine) covers(legs []*itinerary.Leg, m match, p fares.FareProduct, duration time.Duration) bool {
	for _, l := range legs {
		if l.FeedID() != m.rule.FeedID {
			return false
		}
	}
	if len(legs) == 1 {
		return true
	}
	allMatch := true
	for _, l := range legs {
		if !e.LegMatches(m.rule, l) {
			allMatch = false
			break
		}
	}
	if allMatch && p.CoversDuration(duration) {
		return true
	}
	for _, t := range m.transfers {
		if t.IsFree() {
			return true
		}
	}
	return false
}

func (e *Engine) transfersTo(r LegRule, next *itinerary.Leg) []TransferRule {
	if r.LegGroupID.IsZero() {
		return nil
	}
	var out []TransferRule
	for _, t := range e.transfers {
		if t.FromLegGroup != r.LegGroupID {
			continue
		}
		for _, to := range e.groups[t.ToLegGroup] {
			if e.LegMatches(to, next) {
				out = append(out, t)
				break
			}
		}
	}
	return out
}

// LegMatches reports whether a single leg satisfies the rule. A rule without a
// network, from-area or to-area only applies where no other rule claims one.
func (e *Engine) LegMatches(r LegRule, leg *itinerary.Leg) bool {
	return r.FeedID == leg.FeedID() &&
		matchesDefaulting(r.NetworkID, e.networksOf(leg), e.networksWithRules) &&
		matchesDefaulting(r.FromAreaID, e.catalog.StopAreas[leg.From.ID], e.fromAreas) &&
		matchesDefaulting(r.ToAreaID, e.catalog.StopAreas[leg.To.ID], e.toAreas) &&
		r.Distance.matches(leg)
}

func (e *Engine) networksOf(leg *itinerary.Leg) []gtfs.FeedScopedID {
	if len(leg.Route.NetworkIDs) > 0 {
		return leg.Route.NetworkIDs
	}
	return e.catalog.RouteNetworks[leg.Route.ID]
}

func matchesDefaulting(want gtfs.FeedScopedID, have []gtfs.FeedScopedID, withRules map[gtfs.FeedScopedID]struct{}) bool {
	if !want.IsZero() {
		return slices.Contains(have, want)
	}
	for _, id := range have {
		if _, ok := withRules[id]; ok {
			return false
		}
	}
	return true
}
