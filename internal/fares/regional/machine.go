package regional

import (
	"log/slog"
	"slices"
	"time"

	"transit-fares/internal/fares"
	"transit-fares/internal/gtfs"
	"transit-fares/internal/itinerary"
	"transit-fares/internal/money"
)

// Ride is a priced fare leg fed to the state machine.
type Ride struct {
	// Index is the position in the fare legs.
	Index    int
	Leg      fares.FareLeg
	Category RideCategory
	// Fare is the discounted default fare; Charged is what the aggregation added for it.
	Fare    money.Money
	Charged money.Money
	FareID  gtfs.FeedScopedID
}

// Aggregation is one running transfer: the rides sharing a single boarding fare.
type Aggregation struct {
	Rides []Ride
	Total money.Money
	Start time.Time
	// Anchor is the category of the last ride counted as a transfer.
	Anchor      RideCategory
	LastCharged money.Money
	Transfers   int
}

func open(r Ride) Aggregation {
	r.Charged = r.Fare
	return Aggregation{
		Rides:       []Ride{r},
		Total:       r.Fare,
		Start:       r.Leg.View().Start,
		Anchor:      r.Category,
		LastCharged: r.Fare,
	}
}

func (a Aggregation) with(r Ride, charged money.Money) Aggregation {
	r.Charged = charged
	a.Rides = append(slices.Clip(a.Rides), r)
	a.Total = a.Total.Plus(charged)
	return a
}

// Absorb returns the aggregations after adding ride. The input is never modified.
func Absorb(region Region, pm PaymentMethod, aggs []Aggregation, ride Ride) []Aggregation {
	if len(aggs) == 0 {
		return []Aggregation{open(ride)}
	}
	last := len(aggs) - 1
	cur := aggs[last]
	out := region.TransferOutcome(cur.Anchor, ride.Category, pm)

	var next Aggregation
	switch out.Kind {
	case EndTransfer:
		return append(slices.Clip(aggs), open(ride))
	case NoTransfer:
		next = cur.with(ride, ride.Fare)
	default:
		if !withinWindow(region, cur, ride) || exceedsTransfers(region, cur) {
			return append(slices.Clip(aggs), open(ride))
		}
		var charged money.Money
		switch out.Kind {
		case FreeTransfer:
			charged = money.Zero(ride.Fare.Currency)
			next = cur.with(ride, charged)
			next.LastCharged = ride.Fare
		case TransferWithUpcharge:
			charged = out.Upcharge
			next = cur.with(ride, charged)
			next.LastCharged = cur.LastCharged.Plus(charged)
		case TransferPayDifference:
			charged = money.Max(money.Zero(ride.Fare.Currency), ride.Fare.Minus(cur.LastCharged))
			next = cur.with(ride, charged)
			next.LastCharged = ride.Fare
		}
		next.Anchor = ride.Category
		next.Transfers++
	}
	return append(slices.Clip(aggs[:last]), next)
}

func withinWindow(region Region, cur Aggregation, ride Ride) bool {
	at := ride.Leg.View().Start
	if region.PayOnExit(ride.Category) {
		at = ride.Leg.View().End
	}
	return !at.After(cur.Start.Add(region.TransferWindow()))
}

func exceedsTransfers(region Region, cur Aggregation) bool {
	limit := region.MaxTransfers()
	return limit != fares.Unlimited && cur.Transfers+1 > limit
}

// Fold runs the state machine over rides in order.
func Fold(region Region, pm PaymentMethod, rides []Ride) []Aggregation {
	var aggs []Aggregation
	for _, r := range rides {
		aggs = Absorb(region, pm, aggs, r)
	}
	return aggs
}

// Machine prices fare legs with a region's transfer state machine. Default fares
// come from the regular rule catalog.
type Machine struct {
	region  Region
	matcher *fares.Matcher
	logger  *slog.Logger
}

func NewMachine(region Region, m *fares.Matcher, logger *slog.Logger) *Machine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Machine{region: region, matcher: m, logger: logger}
}

var _ fares.Pricer = (*Machine)(nil)

func (m *Machine) FareTypes(c fares.Catalog) []fares.FareType {
	if len(c[fares.Regular]) == 0 {
		return nil
	}
	return m.region.FareTypes()
}

func (m *Machine) ShouldCombineInterlinedLegs(prev, curr *itinerary.Leg) bool {
	return m.region.ShouldCombineInterlinedLegs(prev, curr)
}

// Rides prices every fare leg at its default fare for t. Legs without a default
// fare, or excluded for t, are left out.
func (m *Machine) Rides(legs []fares.FareLeg, t fares.FareType, c fares.Catalog) []Ride {
	rides := make([]Ride, 0, len(legs))
	for i, fl := range legs {
		def, ok := m.matcher.BestMatch(legs[i:i+1], c[fares.Regular])
		if !ok {
			continue
		}
		cat := m.region.Classify(fl.View())
		fare, ok := m.region.LegDiscount(t, cat, fl.View()).Apply(def.Price)
		if !ok {
			m.logger.Debug("ride not priced for fare type",
				"region", m.region.Name(), "fare_type", t.String(), "category", string(cat))
			continue
		}
		rides = append(rides, Ride{Index: i, Leg: fl, Category: cat, Fare: fare, FareID: def.FareID})
	}
	return rides
}

// Price emits one segment per aggregation, identified by its first ride's rule.
func (m *Machine) Price(legs []fares.FareLeg, t fares.FareType, c fares.Catalog) []fares.Segment {
	aggs := Fold(m.region, PaymentFor(t), m.Rides(legs, t, c))
	out := make([]fares.Segment, 0, len(aggs))
	for _, a := range aggs {
		seg := fares.Segment{
			First:  a.Rides[0].Index,
			Last:   a.Rides[len(a.Rides)-1].Index,
			Price:  a.Total,
			FareID: a.Rides[0].FareID,
		}
		for _, r := range a.Rides {
			seg.Legs = append(seg.Legs, fares.OriginalLegs(r.Leg)...)
		}
		out = append(out, seg)
	}
	return out
}
