package fares

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"transit-fares/internal/gtfs"
	"transit-fares/internal/itinerary"
	"transit-fares/internal/money"
)

type RiderCategory struct {
	ID   gtfs.FeedScopedID
	Name string
}

type FareMedium struct {
	ID   gtfs.FeedScopedID
	Name string
}

// FareProduct is a priced decision emitted by the engine. Zero Category, Medium or
// Duration mean the product does not specify them.
type FareProduct struct {
	ID       gtfs.FeedScopedID
	Name     string
	Price    money.Money
	Duration time.Duration
	Category RiderCategory
	Medium   FareMedium
}

// CoversDuration reports whether the product stays valid for a ride of length d.
func (p FareProduct) CoversDuration(d time.Duration) bool {
	return p.Duration > 0 && p.Duration >= d
}

var productNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:transit-fares:fare-product"))

// InstanceID identifies one purchase of the product starting at the given instant.
// The same product bought twice in one itinerary gets two ids; recomputing yields the same id.
func (p FareProduct) InstanceID(start time.Time) string {
	key := fmt.Sprintf("%s|%s|%d|%s|%s|%d",
		p.ID, p.Price.Currency, p.Price.Cents, p.Category.ID, p.Medium.ID, start.Unix())
	return uuid.NewMD5(productNamespace, []byte(key)).String()
}

// FareProductUse binds a product instance to the legs it covers.
type FareProductUse struct {
	ID      string
	Product FareProduct
}

// NewUse creates a use whose instance id is derived from the first covered leg.
func NewUse(p FareProduct, first *itinerary.Leg) FareProductUse {
	return FareProductUse{ID: p.InstanceID(first.Start), Product: p}
}

// ItineraryFare is the result of pricing one itinerary.
type ItineraryFare struct {
	totals            map[FareType]money.Money
	itineraryProducts []FareProduct
	legs              []*itinerary.Leg
	uses              map[*itinerary.Leg][]FareProductUse
}

func NewItineraryFare() *ItineraryFare {
	return &ItineraryFare{
		totals: make(map[FareType]money.Money),
		uses:   make(map[*itinerary.Leg][]FareProductUse),
	}
}

// AddTotal records the summed legacy cost of a fare type.
func (f *ItineraryFare) AddTotal(t FareType, m money.Money) {
	if cur, ok := f.totals[t]; ok {
		m = cur.Plus(m)
	}
	f.totals[t] = m
}

func (f *ItineraryFare) Total(t FareType) (money.Money, bool) {
	m, ok := f.totals[t]
	return m, ok
}

// FareTypes lists fare types with a recorded total.
func (f *ItineraryFare) FareTypes() []FareType {
	out := make([]FareType, 0, len(f.totals))
	for t := range f.totals {
		out = append(out, t)
	}
	SortFareTypes(out)
	return out
}

func (f *ItineraryFare) AddItineraryProducts(ps ...FareProduct) {
	for _, p := range ps {
		if !containsProduct(f.itineraryProducts, p) {
			f.itineraryProducts = append(f.itineraryProducts, p)
		}
	}
}

func (f *ItineraryFare) ItineraryProducts() []FareProduct { return f.itineraryProducts }

// AddUse attaches a product use to a leg, ignoring a repeat of the same instance.
func (f *ItineraryFare) AddUse(leg *itinerary.Leg, use FareProductUse) {
	cur, seen := f.uses[leg]
	for _, u := range cur {
		if u.ID == use.ID {
			return
		}
	}
	if !seen {
		f.legs = append(f.legs, leg)
	}
	f.uses[leg] = append(cur, use)
}

func (f *ItineraryFare) UsesFor(leg *itinerary.Leg) []FareProductUse { return f.uses[leg] }

// Legs returns legs holding at least one product use, in insertion order.
func (f *ItineraryFare) Legs() []*itinerary.Leg { return f.legs }

func (f *ItineraryFare) IsEmpty() bool {
	return len(f.totals) == 0 && len(f.itineraryProducts) == 0 && len(f.legs) == 0
}

func containsProduct(ps []FareProduct, p FareProduct) bool {
	for _, q := range ps {
		if q == p {
			return true
		}
	}
	return false
}
