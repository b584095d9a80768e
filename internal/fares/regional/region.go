// Package regional prices itineraries for agencies whose fare for a ride depends on
// the rides before it. The transfer state machine is written once against Region;
// each region supplies its tables.
package regional

import (
	"time"

	"transit-fares/internal/fares"
	"transit-fares/internal/itinerary"
	"transit-fares/internal/money"
)

// RideCategory is a region-specific classification of a ride (local bus, rail, ferry...).
type RideCategory string

const Unclassified RideCategory = "unclassified"

type PaymentMethod int

const (
	Cash PaymentMethod = iota
	Electronic
)

func (p PaymentMethod) String() string {
	if p == Electronic {
		return "electronic"
	}
	return "cash"
}

// PaymentFor is the payment method riders of a fare type use.
func PaymentFor(t fares.FareType) PaymentMethod {
	if t.IsElectronic() {
		return Electronic
	}
	return Cash
}

type OutcomeKind int

const (
	// EndTransfer closes the running transfer; the ride starts a new one.
	EndTransfer OutcomeKind = iota
	// NoTransfer charges the full fare but leaves the running transfer open.
	NoTransfer
	FreeTransfer
	TransferWithUpcharge
	// TransferPayDifference charges max(0, fare - last fare charged).
	TransferPayDifference
)

func (k OutcomeKind) String() string {
	switch k {
	case EndTransfer:
		return "end_transfer"
	case NoTransfer:
		return "no_transfer"
	case FreeTransfer:
		return "free_transfer"
	case TransferWithUpcharge:
		return "upcharge"
	case TransferPayDifference:
		return "pay_difference"
	}
	return "unknown"
}

// Outcome is the result of a transfer lookup. Upcharge is set only for
// TransferWithUpcharge.
type Outcome struct {
	Kind     OutcomeKind
	Upcharge money.Money
}

func End() Outcome           { return Outcome{Kind: EndTransfer} }
func Full() Outcome          { return Outcome{Kind: NoTransfer} }
func Free() Outcome          { return Outcome{Kind: FreeTransfer} }
func PayDifference() Outcome { return Outcome{Kind: TransferPayDifference} }

func Upcharge(m money.Money) Outcome {
	return Outcome{Kind: TransferWithUpcharge, Upcharge: m}
}

type DiscountKind int

const (
	UseDefault DiscountKind = iota
	Literal
	HalfRounded
	// NotApplicable excludes the ride from pricing under the fare type.
	NotApplicable
)

// Discount turns a ride's default fare into the fare charged for a fare type.
type Discount struct {
	Kind  DiscountKind
	Cents int64
}

func Default() Discount          { return Discount{Kind: UseDefault} }
func Fixed(cents int64) Discount { return Discount{Kind: Literal, Cents: cents} }
func Halved() Discount           { return Discount{Kind: HalfRounded} }
func Excluded() Discount         { return Discount{Kind: NotApplicable} }

// Apply returns the discounted fare, or false when the ride is not priced.
func (d Discount) Apply(def money.Money) (money.Money, bool) {
	switch d.Kind {
	case Literal:
		return money.Of(def.Currency, d.Cents), true
	case HalfRounded:
		return def.Half(), true
	case NotApplicable:
		return money.Money{}, false
	}
	return def, true
}

// Region supplies the tables the transfer state machine runs on.
type Region interface {
	Name() string
	Classify(leg *itinerary.Leg) RideCategory
	TransferOutcome(from, to RideCategory, pm PaymentMethod) Outcome
	LegDiscount(t fares.FareType, c RideCategory, leg *itinerary.Leg) Discount
	ShouldCombineInterlinedLegs(prev, curr *itinerary.Leg) bool
	FareTypes() []fares.FareType
	TransferWindow() time.Duration
	// MaxTransfers is the number of counted transfers allowed per aggregation,
	// or fares.Unlimited.
	MaxTransfers() int
	// PayOnExit reports whether the transfer window is checked at alighting.
	PayOnExit(c RideCategory) bool
}
