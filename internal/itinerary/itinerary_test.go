package itinerary

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"transit-fares/internal/gtfs"
)

func stop(id string, zones ...string) Stop {
	return Stop{ID: gtfs.NewID("1", id), Name: id, FareZones: zones}
}

func TestLeg_FareZonesUnionInVisitOrder(t *testing.T) {
	l := &Leg{
		From:              stop("a", "Z1"),
		IntermediateStops: []Stop{stop("b", "Z2", "Z1"), stop("c")},
		To:                stop("d", "Z3", "Z2"),
	}

	assert.Equal(t, []string{"Z1", "Z2", "Z3"}, l.FareZones())
	assert.Equal(t, "Z1", l.From.FirstZone())
	assert.Equal(t, "", l.IntermediateStops[1].FirstZone())
}

func TestLeg_DirectDistance(t *testing.T) {
	// one degree of latitude is roughly 111.2 km
	l := &Leg{From: Stop{Lat: 47.0, Lon: -122.0}, To: Stop{Lat: 48.0, Lon: -122.0}}
	assert.InDelta(t, 111195, l.DirectDistanceMeters(), 100)
}

func TestItinerary_TransitLegsAndDuration(t *testing.T) {
	t0 := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	it := Itinerary{Legs: []*Leg{
		{Mode: ModeWalk, Start: t0, End: t0.Add(5 * time.Minute)},
		{Mode: ModeTransit, Start: t0.Add(5 * time.Minute), End: t0.Add(25 * time.Minute)},
		{Mode: ModeFlex, Start: t0.Add(30 * time.Minute), End: t0.Add(40 * time.Minute)},
		{Mode: ModeTransit, Start: t0.Add(45 * time.Minute), End: t0.Add(55 * time.Minute)},
	}}

	assert.Len(t, it.TransitLegs(), 2)
	assert.Equal(t, 30*time.Minute, it.TransitDuration())
	assert.True(t, it.Legs[2].IsFareRelevant())
	assert.False(t, it.Legs[0].IsFareRelevant())
}
