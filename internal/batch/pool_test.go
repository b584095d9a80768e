package batch

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transit-fares/internal/fares"
	"transit-fares/internal/gtfs"
	"transit-fares/internal/itinerary"
	"transit-fares/internal/money"
)

// lengthCalculator charges one cent per leg and tracks peak concurrency.
type lengthCalculator struct {
	inFlight atomic.Int32
	peak     atomic.Int32
	delay    time.Duration
}

func (c *lengthCalculator) Calculate(it itinerary.Itinerary) *fares.ItineraryFare {
	n := c.inFlight.Add(1)
	defer c.inFlight.Add(-1)
	for {
		p := c.peak.Load()
		if n <= p || c.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(c.delay)
	f := fares.NewItineraryFare()
	f.AddTotal(fares.Regular, money.Of("USD", int64(len(it.Legs))))
	return f
}

type recordingMetrics struct {
	mu       sync.Mutex
	sizes    []int
	inFlight int
}

func (m *recordingMetrics) BatchStarted(size int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sizes = append(m.sizes, size)
}

func (m *recordingMetrics) BatchInFlight(delta int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inFlight += delta
}

func itineraries(n int) []itinerary.Itinerary {
	its := make([]itinerary.Itinerary, n)
	for i := range its {
		for range i {
			its[i].Legs = append(its[i].Legs, &itinerary.Leg{Mode: itinerary.ModeTransit, AgencyID: gtfs.NewID("1", "a")})
		}
	}
	return its
}

func TestPool_PreservesOrder(t *testing.T) {
	m := &recordingMetrics{}
	p := NewPool(&lengthCalculator{delay: time.Millisecond}, 4, m, nil)

	out, err := p.CalculateAll(context.Background(), itineraries(20))

	require.NoError(t, err)
	require.Len(t, out, 20)
	for i, f := range out {
		total, ok := f.Total(fares.Regular)
		require.True(t, ok)
		assert.Equal(t, int64(i), total.Cents)
	}
	assert.Equal(t, []int{20}, m.sizes)
	assert.Equal(t, 0, m.inFlight)
}

func TestPool_RespectsLimit(t *testing.T) {
	calc := &lengthCalculator{delay: 5 * time.Millisecond}
	p := NewPool(calc, 3, nil, nil)

	_, err := p.CalculateAll(context.Background(), itineraries(12))

	require.NoError(t, err)
	assert.LessOrEqual(t, calc.peak.Load(), int32(3))
}

func TestPool_Empty(t *testing.T) {
	out, err := NewPool(&lengthCalculator{}, 2, nil, nil).CalculateAll(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestPool_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := NewPool(&lengthCalculator{}, 2, nil, nil).CalculateAll(ctx, itineraries(5))

	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, out)
}

func TestNewPool_ClampsLimit(t *testing.T) {
	p := NewPool(&lengthCalculator{}, 0, nil, nil)

	assert.Equal(t, 1, p.limit)
}
