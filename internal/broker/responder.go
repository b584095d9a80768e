package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"transit-fares/internal/fares"
	"transit-fares/internal/itinerary"
)

// Calculator prices a single itinerary.
type Calculator interface {
	Calculate(it itinerary.Itinerary) *fares.ItineraryFare
}

// BatchCalculator prices many itineraries, preserving input order.
type BatchCalculator interface {
	CalculateAll(ctx context.Context, its []itinerary.Itinerary) ([]*fares.ItineraryFare, error)
}

const (
	KindItinerary = "itinerary"
	KindBatch     = "batch"
)

// AuditMessage is published on <prefix>.computed.<feed> for every computed fare.
type AuditMessage struct {
	FeedID     string    `json:"feedId"`
	ComputedAt time.Time `json:"computedAt"`
	Legs       int       `json:"legs"`
	Fare       FareDTO   `json:"fare"`
}

// Responder answers pricing requests on <prefix>.itinerary and <prefix>.batch.
type Responder struct {
	client *Client
	prefix string
	feedID string
	calc   Calculator
	batch  BatchCalculator
	logger *slog.Logger
	subs   []*nats.Subscription
}

func NewResponder(c *Client, prefix, feedID string, calc Calculator, batch BatchCalculator) *Responder {
	return &Responder{client: c, prefix: prefix, feedID: feedID, calc: calc, batch: batch, logger: c.logger}
}

func (r *Responder) Subject(kind string) string { return r.prefix + "." + kind }

func (r *Responder) AuditSubject() string {
	return fmt.Sprintf("%s.computed.%s", r.prefix, subjectToken(r.feedID))
}

// Start subscribes both request subjects in the "fares" queue group so replicas share load.
func (r *Responder) Start(ctx context.Context) error {
	subscribe := func(kind string, h nats.MsgHandler) error {
		sub, err := r.client.nc.QueueSubscribe(r.Subject(kind), "fares", h)
		if err != nil {
			r.Stop()
			return fmt.Errorf("subscribe %s: %w", r.Subject(kind), err)
		}
		r.subs = append(r.subs, sub)
		r.logger.Info("nats subscribed", "subject", r.Subject(kind))
		return nil
	}
	if err := subscribe(KindItinerary, func(m *nats.Msg) {
		r.serve(KindItinerary, m, r.handleItinerary)
	}); err != nil {
		return err
	}
	return subscribe(KindBatch, func(m *nats.Msg) {
		r.serve(KindBatch, m, func(data []byte) (any, error) { return r.handleBatch(ctx, data) })
	})
}

func (r *Responder) Stop() {
	for _, s := range r.subs {
		_ = s.Unsubscribe()
	}
	r.subs = nil
}

func (r *Responder) serve(kind string, m *nats.Msg, handle func([]byte) (any, error)) {
	start := time.Now()
	if r.client.logSubjects {
		r.logger.Debug("nats request", "subject", m.Subject)
	}
	reply, err := handle(m.Data)
	if err != nil {
		level := slog.LevelError
		if errors.Is(err, ErrBadRequest) {
			level = slog.LevelWarn
		}
		r.logger.Log(context.Background(), level, "pricing request failed", "kind", kind, "err", err)
		reply = ErrorReply{Error: err.Error()}
	}
	b, merr := json.Marshal(reply)
	if merr != nil {
		r.logger.Error("encode reply", "kind", kind, "err", merr)
		b, err = []byte(`{"error":"internal error"}`), merr
	}
	if m.Reply != "" {
		if rerr := m.Respond(b); rerr != nil {
			r.logger.Warn("nats respond", "kind", kind, "err", rerr)
		}
	}
	if r.client.metrics != nil {
		r.client.metrics.RequestHandled(kind, err == nil, time.Since(start))
	}
}

func (r *Responder) handleItinerary(data []byte) (any, error) {
	it, fare, err := PriceItinerary(r.calc, data)
	if err != nil {
		return nil, err
	}
	r.audit(len(it.Legs), fare)
	return fare, nil
}

func (r *Responder) handleBatch(ctx context.Context, data []byte) (any, error) {
	its, out, err := PriceBatch(ctx, r.batch, data)
	if err != nil {
		return nil, err
	}
	for i, f := range out {
		r.audit(len(its[i].Legs), f)
	}
	return out, nil
}

func (r *Responder) audit(legs int, f FareDTO) {
	msg := AuditMessage{FeedID: r.feedID, ComputedAt: time.Now().UTC(), Legs: legs, Fare: f}
	if err := r.client.PublishJSON(r.AuditSubject(), msg); err != nil {
		r.logger.Warn("audit publish failed", "subject", r.AuditSubject(), "err", err)
	}
}

// PriceItinerary decodes one itinerary request and prices it.
func PriceItinerary(calc Calculator, data []byte) (itinerary.Itinerary, FareDTO, error) {
	it, err := DecodeItinerary(data)
	if err != nil {
		return itinerary.Itinerary{}, FareDTO{}, err
	}
	return it, EncodeFare(it, calc.Calculate(it)), nil
}

// PriceBatch decodes a batch request and prices every itinerary. Results keep request order.
func PriceBatch(ctx context.Context, calc BatchCalculator, data []byte) ([]itinerary.Itinerary, []FareDTO, error) {
	its, err := DecodeBatch(data)
	if err != nil {
		return nil, nil, err
	}
	fs, err := calc.CalculateAll(ctx, its)
	if err != nil {
		return nil, nil, fmt.Errorf("price batch: %w", err)
	}
	out := make([]FareDTO, len(its))
	for i, it := range its {
		out[i] = EncodeFare(it, fs[i])
	}
	return its, out, nil
}
