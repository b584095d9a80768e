package gtfs

import (
	"strings"
	"time"
)

// FeedScopedID qualifies a GTFS id with the feed it was imported from.
type FeedScopedID struct {
	FeedID string
	ID     string
}

func NewID(feedID, id string) FeedScopedID { return FeedScopedID{FeedID: feedID, ID: id} }

func (f FeedScopedID) IsZero() bool { return f.ID == "" }

func (f FeedScopedID) String() string {
	if f.IsZero() {
		return ""
	}
	return f.FeedID + ":" + f.ID
}

// ParseID splits "feed:id"; an id without a separator gets defaultFeed.
func ParseID(s, defaultFeed string) FeedScopedID {
	s = strings.TrimSpace(s)
	if s == "" {
		return FeedScopedID{}
	}
	if feed, id, ok := strings.Cut(s, ":"); ok && feed != "" && id != "" {
		return FeedScopedID{FeedID: feed, ID: id}
	}
	return FeedScopedID{FeedID: defaultFeed, ID: s}
}

// fare_attributes.txt
type FareAttribute struct {
	FareID           string
	Price            float64
	CurrencyType     string
	PaymentMethod    int
	Transfers        int // -1 means unlimited
	AgencyID         string
	TransferDuration int // seconds, -1 when absent
	JourneyDuration  int // seconds, -1 when absent
}

// fare_rules.txt
type FareRule struct {
	FareID        string
	RouteID       string
	OriginID      string
	DestinationID string
	ContainsID    string
	TripID        string // experimental column, empty when absent
}

// fare_products.txt
type FareProduct struct {
	FareProductID   string
	FareProductName string
	Amount          float64
	Currency        string
	DurationSeconds int // 0 when the product has no validity duration
	RiderCategoryID string
	FareMediaID     string
}

// Distance types of fare_leg_rules.
const (
	DistanceNone   = -1
	DistanceStops  = 0
	DistanceLinear = 1
)

// fare_leg_rules.txt
type FareLegRule struct {
	LegGroupID    string
	NetworkID     string
	FromAreaID    string
	ToAreaID      string
	FareProductID string
	DistanceType  int
	MinDistance   float64 // -1 when absent
	MaxDistance   float64 // -1 when absent
}

// fare_transfer_rules.txt
type FareTransferRule struct {
	FromLegGroupID   string
	ToLegGroupID     string
	TransferCount    int
	DurationLimit    time.Duration
	FareTransferType int
	FareProductID    string
}

// stop_areas.txt
type StopArea struct {
	AreaID string
	StopID string
}

// route_networks.txt
type RouteNetwork struct {
	NetworkID string
	RouteID   string
}
