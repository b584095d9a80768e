package fares_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transit-fares/internal/fares"
	"transit-fares/internal/gtfs"
	"transit-fares/internal/itinerary"
)

// stubProducts is a hand-written ProductEngine returning a fixed result.
type stubProducts struct {
	result fares.ProductResult
	calls  int
}

func (s *stubProducts) Products(itinerary.Itinerary) fares.ProductResult {
	s.calls++
	return s.result
}

var _ fares.ProductEngine = (*stubProducts)(nil)

type countingMetrics struct {
	calculations int
	priced       int
	segments     map[fares.FareType]int
	negative     int
}

func (m *countingMetrics) ObserveCalculation(_ time.Duration, priced bool) {
	m.calculations++
	if priced {
		m.priced++
	}
}
func (m *countingMetrics) SegmentPriced(t fares.FareType) {
	if m.segments == nil {
		m.segments = make(map[fares.FareType]int)
	}
	m.segments[t]++
}
func (m *countingMetrics) NegativeCost() { m.negative++ }

func twoZoneCatalog() fares.Catalog {
	return fares.Catalog{
		fares.Regular: {
			odRule("ab", 1000, "A", "B"),
			odRule("bc", 1000, "B", "C"),
			odRule("ac", 1500, "A", "C"),
		},
		fares.Senior: {
			odRule("ab-senior", 500, "A", "B"),
			odRule("bc-senior", 500, "B", "C"),
		},
	}
}

func newService(c fares.Catalog, opts ...fares.Option) *fares.Service {
	m := fares.NewMatcher(nil, nil)
	return fares.NewService(c, fares.NewSearchPricer(m, nil), opts...)
}

func TestService_NoFareLegs(t *testing.T) {
	metrics := &countingMetrics{}
	svc := newService(twoZoneCatalog(), fares.WithMetrics(metrics))

	got := svc.Calculate(itinerary.Itinerary{Legs: []*itinerary.Leg{walk(0)}})

	assert.Nil(t, got)
	assert.Equal(t, 1, metrics.calculations)
	assert.Equal(t, 0, metrics.priced)
}

func TestService_PricesEveryFareType(t *testing.T) {
	ab := ride("r1", "A", "B", 0)
	bc := ride("r2", "B", "C", 30*time.Minute)
	it := itinerary.Itinerary{Legs: []*itinerary.Leg{walk(-5 * time.Minute), ab, bc}}

	fare := newService(twoZoneCatalog()).Calculate(it)

	require.NotNil(t, fare)
	assert.Equal(t, []fares.FareType{fares.Regular, fares.Senior}, fare.FareTypes())

	regular, ok := fare.Total(fares.Regular)
	require.True(t, ok)
	assert.Equal(t, usd(1500), regular)
	senior, _ := fare.Total(fares.Senior)
	assert.Equal(t, usd(1000), senior)

	// leg ab: one regular through-fare use plus its own senior use
	uses := fare.UsesFor(ab)
	require.Len(t, uses, 2)
	assert.Equal(t, "ac", uses[0].Product.ID.ID)
	assert.Equal(t, "regular", uses[0].Product.Name)
	assert.Equal(t, "cash", uses[0].Product.Medium.Name)
	assert.Equal(t, "senior", uses[1].Product.Category.Name)

	// the through fare is one instance shared by both legs
	assert.Equal(t, uses[0].ID, fare.UsesFor(bc)[0].ID)
	assert.NotEqual(t, uses[1].ID, fare.UsesFor(bc)[1].ID)
	assert.Equal(t, []*itinerary.Leg{ab, bc}, fare.Legs())
}

func TestService_IsIdempotent(t *testing.T) {
	ab := ride("r1", "A", "B", 0)
	bc := ride("r2", "B", "C", 30*time.Minute)
	it := itinerary.Itinerary{Legs: []*itinerary.Leg{ab, bc}}
	svc := newService(twoZoneCatalog())

	first := svc.Calculate(it)
	second := svc.Calculate(it)

	assert.Equal(t, first, second)
}

func TestService_UsesNeverRepeatALegWithinAFareType(t *testing.T) {
	legs := []*itinerary.Leg{
		ride("r1", "A", "B", 0),
		ride("r2", "B", "C", 30*time.Minute),
		ride("r3", "C", "D", time.Hour),
	}
	c := fares.Catalog{fares.Regular: {
		odRule("ab", 1000, "A", "B"),
		odRule("bc", 1000, "B", "C"),
		odRule("cd", 1000, "C", "D"),
		odRule("ac", 1500, "A", "C"),
	}}

	fare := newService(c).Calculate(itinerary.Itinerary{Legs: legs})

	require.NotNil(t, fare)
	for _, leg := range legs {
		assert.Len(t, fare.UsesFor(leg), 1)
	}
}

func TestService_ItineraryProductsSuppressLegProducts(t *testing.T) {
	ab := ride("r1", "A", "B", 0)
	day := fares.FareProduct{ID: gtfs.NewID("1", "day"), Name: "Day pass", Price: usd(500), Duration: 24 * time.Hour}
	single := fares.FareProduct{ID: gtfs.NewID("1", "single"), Name: "Single", Price: usd(250)}
	engine := &stubProducts{result: fares.ProductResult{
		ItineraryProducts: []fares.FareProduct{day},
		LegProducts:       []fares.LegProducts{{Leg: ab, Products: []fares.FareProduct{single}}},
	}}

	fare := newService(fares.Catalog{}, fares.WithProductEngine(engine)).
		Calculate(itinerary.Itinerary{Legs: []*itinerary.Leg{ab}})

	require.NotNil(t, fare)
	assert.Equal(t, []fares.FareProduct{day}, fare.ItineraryProducts())
	assert.Empty(t, fare.UsesFor(ab))
	assert.Equal(t, 1, engine.calls)
}

func TestService_LegProductsWhenNothingCoversItinerary(t *testing.T) {
	ab := ride("r1", "A", "B", 0)
	single := fares.FareProduct{ID: gtfs.NewID("1", "single"), Name: "Single", Price: usd(250)}
	engine := &stubProducts{result: fares.ProductResult{
		LegProducts: []fares.LegProducts{{Leg: ab, Products: []fares.FareProduct{single}}},
	}}

	fare := newService(twoZoneCatalog(), fares.WithProductEngine(engine)).
		Calculate(itinerary.Itinerary{Legs: []*itinerary.Leg{ab}})

	require.NotNil(t, fare)
	assert.Empty(t, fare.ItineraryProducts())
	// legacy uses for regular and senior, then the v2 product
	uses := fare.UsesFor(ab)
	require.Len(t, uses, 3)
	assert.Equal(t, single, uses[2].Product)
	assert.Equal(t, single.InstanceID(ab.Start), uses[2].ID)
}

func TestService_ReportsMetrics(t *testing.T) {
	metrics := &countingMetrics{}
	ab := ride("r1", "A", "B", 0)

	newService(twoZoneCatalog(), fares.WithMetrics(metrics)).
		Calculate(itinerary.Itinerary{Legs: []*itinerary.Leg{ab}})

	assert.Equal(t, 1, metrics.priced)
	assert.Equal(t, 1, metrics.segments[fares.Regular])
	assert.Equal(t, 1, metrics.segments[fares.Senior])
}
