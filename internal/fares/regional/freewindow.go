package regional

import (
	"time"

	"transit-fares/internal/fares"
	"transit-fares/internal/itinerary"
)

// DefaultFreeTransferWindow is used when no window is configured.
const DefaultFreeTransferWindow = 150 * time.Minute

// FreeWindow charges, per free-transfer window, the highest single-ride fare seen
// in it. A ride boarding after the window lapses opens a new window.
type FreeWindow struct {
	matcher *fares.Matcher
	window  time.Duration
	// analyzeInterlined treats a stay-seated continuation as a transfer.
	analyzeInterlined bool
}

func NewFreeWindow(m *fares.Matcher, window time.Duration, analyzeInterlined bool) *FreeWindow {
	if window <= 0 {
		window = DefaultFreeTransferWindow
	}
	return &FreeWindow{matcher: m, window: window, analyzeInterlined: analyzeInterlined}
}

var _ fares.Pricer = (*FreeWindow)(nil)

func (p *FreeWindow) FareTypes(c fares.Catalog) []fares.FareType { return c.FareTypes() }

func (p *FreeWindow) ShouldCombineInterlinedLegs(_, _ *itinerary.Leg) bool {
	return !p.analyzeInterlined
}

type freeWindowState struct {
	seg   fares.Segment
	start time.Time
}

// Price returns nil when any ride has no matching rule: the itinerary is then
// not priced under this fare type.
func (p *FreeWindow) Price(legs []fares.FareLeg, t fares.FareType, c fares.Catalog) []fares.Segment {
	var (
		out []fares.Segment
		cur *freeWindowState
	)
	for i, fl := range legs {
		fare, ok := p.matcher.BestMatch(legs[i:i+1], c[t])
		if !ok {
			return nil
		}
		start := fl.View().Start
		if cur != nil && start.After(cur.start.Add(p.window)) {
			out = append(out, cur.seg)
			cur = nil
		}
		if cur == nil {
			cur = &freeWindowState{
				seg:   fares.Segment{First: i, Price: fare.Price, FareID: fare.FareID},
				start: start,
			}
		} else if fare.Price.GreaterThan(cur.seg.Price) {
			cur.seg.Price = fare.Price
			cur.seg.FareID = fare.FareID
		}
		cur.seg.Last = i
		cur.seg.Legs = append(cur.seg.Legs, fares.OriginalLegs(fl)...)
	}
	if cur != nil {
		out = append(out, cur.seg)
	}
	return out
}
