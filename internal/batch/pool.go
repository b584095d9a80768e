// Package batch prices many itineraries in parallel with a fixed concurrency limit.
package batch

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"transit-fares/internal/fares"
	"transit-fares/internal/itinerary"
)

// Calculator prices one itinerary. *fares.Service satisfies it.
type Calculator interface {
	Calculate(it itinerary.Itinerary) *fares.ItineraryFare
}

type Metrics interface {
	BatchStarted(size int)
	BatchInFlight(delta int)
}

type Pool struct {
	calc    Calculator
	limit   int
	metrics Metrics
	logger  *slog.Logger
}

func NewPool(calc Calculator, limit int, m Metrics, logger *slog.Logger) *Pool {
	if limit <= 0 {
		limit = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{calc: calc, limit: limit, metrics: m, logger: logger}
}

// CalculateAll prices every itinerary with at most limit in flight. out[i] is the
// fare of its[i]. Cancelling ctx stops scheduling new work and returns ctx.Err().
func (p *Pool) CalculateAll(ctx context.Context, its []itinerary.Itinerary) ([]*fares.ItineraryFare, error) {
	start := time.Now()
	if p.metrics != nil {
		p.metrics.BatchStarted(len(its))
	}
	out := make([]*fares.ItineraryFare, len(its))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.limit)
	for i := range its {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if p.metrics != nil {
				p.metrics.BatchInFlight(1)
				defer p.metrics.BatchInFlight(-1)
			}
			out[i] = p.calc.Calculate(its[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.logger.Debug("batch priced", "itineraries", len(its), "took", time.Since(start))
	return out, nil
}
