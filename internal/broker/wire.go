package broker

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"transit-fares/internal/fares"
	"transit-fares/internal/gtfs"
	"transit-fares/internal/itinerary"
)

// ErrBadRequest marks a request payload that cannot be turned into itineraries.
var ErrBadRequest = errors.New("bad request")

type StopDTO struct {
	FeedID string   `json:"feedId,omitempty"`
	ID     string   `json:"id"`
	Name   string   `json:"name,omitempty"`
	Lat    float64  `json:"lat"`
	Lon    float64  `json:"lon"`
	Zones  []string `json:"zones,omitempty"`
}

type LegDTO struct {
	Mode                   string    `json:"mode"`
	FeedID                 string    `json:"feedId,omitempty"`
	AgencyID               string    `json:"agencyId,omitempty"`
	RouteID                string    `json:"routeId,omitempty"`
	RouteShortName         string    `json:"routeShortName,omitempty"`
	RouteLongName          string    `json:"routeLongName,omitempty"`
	RouteType              int       `json:"routeType"`
	NetworkIDs             []string  `json:"networkIds,omitempty"`
	TripID                 string    `json:"tripId,omitempty"`
	From                   StopDTO   `json:"from"`
	To                     StopDTO   `json:"to"`
	IntermediateStops      []StopDTO `json:"intermediateStops,omitempty"`
	StartTime              time.Time `json:"startTime"`
	EndTime                time.Time `json:"endTime"`
	DistanceMeters         float64   `json:"distanceMeters"`
	GeneralizedCost        *int      `json:"generalizedCost,omitempty"`
	InterlinedWithPrevious bool      `json:"interlinedWithPrevious,omitempty"`
}

type ItineraryDTO struct {
	Legs []LegDTO `json:"legs"`
}

type MoneyDTO struct {
	Currency string `json:"currency"`
	Cents    int64  `json:"cents"`
}

type ProductDTO struct {
	ID              string   `json:"id"`
	Name            string   `json:"name,omitempty"`
	Price           MoneyDTO `json:"price"`
	DurationSeconds int64    `json:"durationSeconds,omitempty"`
	RiderCategory   string   `json:"riderCategory,omitempty"`
	FareMedium      string   `json:"fareMedium,omitempty"`
}

type ProductUseDTO struct {
	ID      string     `json:"id"`
	Product ProductDTO `json:"product"`
}

type LegProductsDTO struct {
	LegIndex int             `json:"legIndex"`
	Products []ProductUseDTO `json:"products"`
}

type FareDTO struct {
	Totals            map[string]MoneyDTO `json:"totals"`
	ItineraryProducts []ProductDTO        `json:"itineraryProducts"`
	LegProducts       []LegProductsDTO    `json:"legProducts"`
}

type ErrorReply struct {
	Error string `json:"error"`
}

// DecodeItinerary parses a single itinerary request.
func DecodeItinerary(data []byte) (itinerary.Itinerary, error) {
	var dto ItineraryDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return itinerary.Itinerary{}, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return dto.toItinerary()
}

// DecodeBatch parses a JSON array of itineraries.
func DecodeBatch(data []byte) ([]itinerary.Itinerary, error) {
	var dtos []ItineraryDTO
	if err := json.Unmarshal(data, &dtos); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	out := make([]itinerary.Itinerary, 0, len(dtos))
	for i, d := range dtos {
		it, err := d.toItinerary()
		if err != nil {
			return nil, fmt.Errorf("itinerary %d: %w", i, err)
		}
		out = append(out, it)
	}
	return out, nil
}

func (d ItineraryDTO) toItinerary() (itinerary.Itinerary, error) {
	it := itinerary.Itinerary{Legs: make([]*itinerary.Leg, 0, len(d.Legs))}
	for i, l := range d.Legs {
		leg, err := l.toLeg()
		if err != nil {
			return itinerary.Itinerary{}, fmt.Errorf("%w: leg %d: %v", ErrBadRequest, i, err)
		}
		it.Legs = append(it.Legs, leg)
	}
	return it, nil
}

func (l LegDTO) toLeg() (*itinerary.Leg, error) {
	mode, err := parseMode(l.Mode)
	if err != nil {
		return nil, err
	}
	if l.EndTime.Before(l.StartTime) {
		return nil, fmt.Errorf("endTime %s before startTime %s", l.EndTime.Format(time.RFC3339), l.StartTime.Format(time.RFC3339))
	}
	leg := &itinerary.Leg{
		Mode:                   mode,
		From:                   l.From.toStop(l.FeedID),
		To:                     l.To.toStop(l.FeedID),
		Start:                  l.StartTime,
		End:                    l.EndTime,
		DistanceMeters:         l.DistanceMeters,
		GeneralizedCost:        itinerary.UnknownCost,
		InterlinedWithPrevious: l.InterlinedWithPrevious,
	}
	if l.GeneralizedCost != nil {
		leg.GeneralizedCost = *l.GeneralizedCost
	}
	if l.AgencyID != "" {
		leg.AgencyID = gtfs.NewID(l.FeedID, l.AgencyID)
	}
	if l.TripID != "" {
		leg.TripID = gtfs.NewID(l.FeedID, l.TripID)
	}
	if l.RouteID != "" {
		leg.Route = itinerary.Route{
			ID:        gtfs.NewID(l.FeedID, l.RouteID),
			ShortName: l.RouteShortName,
			LongName:  l.RouteLongName,
			Type:      l.RouteType,
		}
		for _, n := range l.NetworkIDs {
			leg.Route.NetworkIDs = append(leg.Route.NetworkIDs, gtfs.ParseID(n, l.FeedID))
		}
	}
	for _, s := range l.IntermediateStops {
		leg.IntermediateStops = append(leg.IntermediateStops, s.toStop(l.FeedID))
	}
	if mode != itinerary.ModeWalk && mode != itinerary.ModeBicycle && leg.AgencyID.IsZero() {
		return nil, fmt.Errorf("%s leg without agencyId", l.Mode)
	}
	return leg, nil
}

func (s StopDTO) toStop(legFeed string) itinerary.Stop {
	feed := s.FeedID
	if feed == "" {
		feed = legFeed
	}
	return itinerary.Stop{
		ID:        gtfs.NewID(feed, s.ID),
		Name:      s.Name,
		Lat:       s.Lat,
		Lon:       s.Lon,
		FareZones: s.Zones,
	}
}

func parseMode(s string) (itinerary.Mode, error) {
	switch s {
	case "transit":
		return itinerary.ModeTransit, nil
	case "flex":
		return itinerary.ModeFlex, nil
	case "walk":
		return itinerary.ModeWalk, nil
	case "bicycle":
		return itinerary.ModeBicycle, nil
	}
	return 0, fmt.Errorf("unknown mode %q", s)
}

// EncodeFare renders a computed fare. Leg indexes refer to positions in it.Legs;
// a nil fare encodes as an empty result.
func EncodeFare(it itinerary.Itinerary, f *fares.ItineraryFare) FareDTO {
	out := FareDTO{
		Totals:            map[string]MoneyDTO{},
		ItineraryProducts: []ProductDTO{},
		LegProducts:       []LegProductsDTO{},
	}
	if f == nil {
		return out
	}
	for _, t := range f.FareTypes() {
		m, _ := f.Total(t)
		out.Totals[t.String()] = MoneyDTO{Currency: m.Currency, Cents: m.Cents}
	}
	for _, p := range f.ItineraryProducts() {
		out.ItineraryProducts = append(out.ItineraryProducts, encodeProduct(p))
	}
	for i, leg := range it.Legs {
		uses := f.UsesFor(leg)
		if len(uses) == 0 {
			continue
		}
		lp := LegProductsDTO{LegIndex: i, Products: make([]ProductUseDTO, 0, len(uses))}
		for _, u := range uses {
			lp.Products = append(lp.Products, ProductUseDTO{ID: u.ID, Product: encodeProduct(u.Product)})
		}
		out.LegProducts = append(out.LegProducts, lp)
	}
	return out
}

func encodeProduct(p fares.FareProduct) ProductDTO {
	return ProductDTO{
		ID:              p.ID.String(),
		Name:            p.Name,
		Price:           MoneyDTO{Currency: p.Price.Currency, Cents: p.Price.Cents},
		DurationSeconds: int64(p.Duration / time.Second),
		RiderCategory:   p.Category.Name,
		FareMedium:      p.Medium.Name,
	}
}
