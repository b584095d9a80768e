// Package itinerary is the read-only leg model handed to the fare engine by the router.
package itinerary

import (
	"time"

	"transit-fares/internal/gtfs"
)

type Mode int

const (
	ModeWalk Mode = iota
	ModeBicycle
	ModeTransit // scheduled transit
	ModeFlex    // demand-responsive transit
)

func (m Mode) String() string {
	switch m {
	case ModeWalk:
		return "walk"
	case ModeBicycle:
		return "bicycle"
	case ModeTransit:
		return "transit"
	case ModeFlex:
		return "flex"
	}
	return "unknown"
}

// UnknownCost marks a leg whose generalized cost was not computed.
const UnknownCost = -1

type Stop struct {
	ID        gtfs.FeedScopedID
	Name      string
	Lat       float64
	Lon       float64
	FareZones []string
}

// FirstZone is the zone used for origin/destination matching.
func (s Stop) FirstZone() string {
	if len(s.FareZones) == 0 {
		return ""
	}
	return s.FareZones[0]
}

type Route struct {
	ID        gtfs.FeedScopedID
	ShortName string
	LongName  string
	Type      int
	// NetworkIDs are the groups of routes this route belongs to.
	NetworkIDs []gtfs.FeedScopedID
}

// Leg is one ride or walk of an itinerary. The fare engine never mutates it.
type Leg struct {
	Mode       Mode
	AgencyID   gtfs.FeedScopedID
	AgencyName string
	Route      Route
	TripID     gtfs.FeedScopedID

	From              Stop
	To                Stop
	IntermediateStops []Stop

	Start time.Time
	End   time.Time

	DistanceMeters  float64
	GeneralizedCost int

	// InterlinedWithPrevious is set when the rider stays seated from the previous leg.
	InterlinedWithPrevious bool
}

func (l *Leg) IsScheduledTransit() bool { return l.Mode == ModeTransit }

// IsFareRelevant reports whether the leg is a ride that can be priced.
func (l *Leg) IsFareRelevant() bool { return l.Mode == ModeTransit || l.Mode == ModeFlex }

// FeedID is the feed of the operating agency.
func (l *Leg) FeedID() string { return l.AgencyID.FeedID }

func (l *Leg) Duration() time.Duration { return l.End.Sub(l.Start) }

// FareZones returns the union of zones of every stop the leg visits, in visiting order.
func (l *Leg) FareZones() []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(s Stop) {
		for _, z := range s.FareZones {
			if _, ok := seen[z]; ok {
				continue
			}
			seen[z] = struct{}{}
			out = append(out, z)
		}
	}
	add(l.From)
	for _, s := range l.IntermediateStops {
		add(s)
	}
	add(l.To)
	return out
}

// DirectDistanceMeters is the great-circle distance between boarding and alighting stop.
func (l *Leg) DirectDistanceMeters() float64 {
	return Haversine(l.From.Lat, l.From.Lon, l.To.Lat, l.To.Lon)
}

// Itinerary is an ordered sequence of legs owned by the router.
type Itinerary struct {
	Legs []*Leg
}

// TransitLegs returns the scheduled transit legs in order.
func (it Itinerary) TransitLegs() []*Leg {
	var out []*Leg
	for _, l := range it.Legs {
		if l.IsScheduledTransit() {
			out = append(out, l)
		}
	}
	return out
}

// TransitDuration sums the riding time of all scheduled transit legs.
func (it Itinerary) TransitDuration() time.Duration {
	var d time.Duration
	for _, l := range it.TransitLegs() {
		d += l.Duration()
	}
	return d
}
