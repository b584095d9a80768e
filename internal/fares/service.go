package fares

import (
	"log/slog"
	"time"

	"transit-fares/internal/itinerary"
	"transit-fares/internal/money"
)

// Pricer prices fare legs for one fare type. The rule-matching search is the
// default; regional transfer policies supply their own.
type Pricer interface {
	// FareTypes lists the fare types this pricer can produce from the catalog.
	FareTypes(c Catalog) []FareType
	Price(legs []FareLeg, t FareType, c Catalog) []Segment
	ShouldCombineInterlinedLegs(prev, curr *itinerary.Leg) bool
}

// SearchPricer runs the decomposition search against the rules of each fare type.
type SearchPricer struct {
	matcher   *Matcher
	interline InterlinePolicy
}

func NewSearchPricer(m *Matcher, interline InterlinePolicy) *SearchPricer {
	if interline == nil {
		interline = NeverCombine
	}
	return &SearchPricer{matcher: m, interline: interline}
}

func (p *SearchPricer) FareTypes(c Catalog) []FareType { return c.FareTypes() }

func (p *SearchPricer) Price(legs []FareLeg, t FareType, c Catalog) []Segment {
	return p.matcher.Decompose(legs, c[t])
}

func (p *SearchPricer) ShouldCombineInterlinedLegs(prev, curr *itinerary.Leg) bool {
	return p.interline(prev, curr)
}

// ProductEngine produces products independently of the fare-type search.
type ProductEngine interface {
	Products(it itinerary.Itinerary) ProductResult
}

type ProductResult struct {
	// ItineraryProducts each cover the whole itinerary.
	ItineraryProducts []FareProduct
	LegProducts       []LegProducts
}

type LegProducts struct {
	Leg      *itinerary.Leg
	Products []FareProduct
}

type Metrics interface {
	ObserveCalculation(d time.Duration, priced bool)
	SegmentPriced(t FareType)
	NegativeCost()
}

// Service combines the fare-type search with the product engine. It holds no
// mutable state and can be shared between goroutines.
type Service struct {
	catalog  Catalog
	pricer   Pricer
	products ProductEngine
	logger   *slog.Logger
	metrics  Metrics
}

type Option func(*Service)

func WithProductEngine(e ProductEngine) Option { return func(s *Service) { s.products = e } }
func WithLogger(l *slog.Logger) Option         { return func(s *Service) { s.logger = l } }
func WithMetrics(m Metrics) Option             { return func(s *Service) { s.metrics = m } }

func NewService(c Catalog, p Pricer, opts ...Option) *Service {
	s := &Service{catalog: c, pricer: p, logger: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Calculate prices an itinerary. It returns nil when the itinerary has no
// fare-relevant legs.
func (s *Service) Calculate(it itinerary.Itinerary) *ItineraryFare {
	start := time.Now()
	legs := Preprocess(it, s.pricer.ShouldCombineInterlinedLegs)
	if len(legs) == 0 {
		s.observe(start, false)
		return nil
	}

	fare := NewItineraryFare()
	for _, t := range s.pricer.FareTypes(s.catalog) {
		segments := s.pricer.Price(legs, t, s.catalog)
		if len(segments) == 0 {
			continue
		}
		total := money.Zero(segments[0].Price.Currency)
		for _, seg := range segments {
			total = total.Plus(seg.Price)
			if len(seg.Legs) == 0 {
				continue
			}
			p := FareProduct{
				ID:       seg.FareID,
				Name:     t.String(),
				Price:    seg.Price,
				Category: t.RiderCategory(),
				Medium:   t.Medium(),
			}
			use := NewUse(p, seg.Legs[0])
			for _, leg := range seg.Legs {
				fare.AddUse(leg, use)
			}
			if s.metrics != nil {
				s.metrics.SegmentPriced(t)
			}
		}
		fare.AddTotal(t, total)
	}

	if s.products != nil {
		res := s.products.Products(it)
		if len(res.ItineraryProducts) > 0 {
			fare.AddItineraryProducts(res.ItineraryProducts...)
		} else {
			for _, lp := range res.LegProducts {
				for _, p := range lp.Products {
					fare.AddUse(lp.Leg, NewUse(p, lp.Leg))
				}
			}
		}
	}

	s.logger.Debug("itinerary priced",
		"fare_legs", len(legs), "fare_types", len(fare.FareTypes()),
		"itinerary_products", len(fare.ItineraryProducts()))
	s.observe(start, !fare.IsEmpty())
	return fare
}

func (s *Service) observe(start time.Time, priced bool) {
	if s.metrics != nil {
		s.metrics.ObserveCalculation(time.Since(start), priced)
	}
}
