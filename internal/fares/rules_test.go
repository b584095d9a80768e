package fares_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transit-fares/internal/fares"
	"transit-fares/internal/gtfs"
	"transit-fares/internal/itinerary"
)

func TestBuildRuleSets(t *testing.T) {
	attrs := []gtfs.FareAttribute{
		{FareID: "local", Price: 2.75, CurrencyType: "usd", Transfers: -1, TransferDuration: 7200, JourneyDuration: -1},
		{FareID: "express", Price: 3.5, CurrencyType: "USD", Transfers: 0, AgencyID: "40", TransferDuration: -1, JourneyDuration: 5400},
	}
	rows := []gtfs.FareRule{
		{FareID: "local", OriginID: "Z1", DestinationID: "Z2"},
		{FareID: "local", ContainsID: "Z1"},
		{FareID: "local", ContainsID: "Z2"},
		{FareID: "express", RouteID: "590"},
		{FareID: "express", TripID: "t1"},
		{FareID: "unknown", RouteID: "1"},
	}

	sets := fares.BuildRuleSets("st", attrs, rows)

	require.Len(t, sets, 2)
	local, express := sets[0], sets[1]
	assert.Equal(t, gtfs.NewID("st", "local"), local.FareID)
	assert.Equal(t, usd(275), local.Price)
	assert.Equal(t, fares.Unlimited, local.MaxTransfers)
	assert.Equal(t, 2*time.Hour, local.MaxTripTime)
	assert.Equal(t, time.Duration(fares.Unlimited), local.MaxJourneyTime)
	assert.True(t, local.AgencyID.IsZero())

	assert.Equal(t, 0, express.MaxTransfers)
	assert.Equal(t, gtfs.NewID("st", "40"), express.AgencyID)
	assert.Equal(t, 90*time.Minute, express.MaxJourneyTime)
	assert.Equal(t, "st", express.FeedID())
}

func TestBuildRuleSets_MatchAgainstLegs(t *testing.T) {
	attrs := []gtfs.FareAttribute{{FareID: "zone", Price: 2, CurrencyType: "USD", Transfers: -1, TransferDuration: -1, JourneyDuration: -1}}
	rows := []gtfs.FareRule{{FareID: "zone", ContainsID: "A"}, {FareID: "zone", ContainsID: "B"}}
	sets := fares.BuildRuleSets("1", attrs, rows)
	m := fares.NewMatcher(nil, nil)

	_, ok := m.BestMatch(plain(ride("r1", "A", "B", 0)), sets)
	assert.True(t, ok)
	_, ok = m.BestMatch(plain(ride("r1", "A", "C", 0)), sets)
	assert.False(t, ok)
}

func TestCatalog_FareTypes(t *testing.T) {
	c := fares.Catalog{
		fares.ElectronicYouth: {odRule("y", 0, "A", "B")},
		fares.Regular:         {odRule("r", 100, "A", "B")},
		fares.Senior:          nil,
	}
	assert.Equal(t, []fares.FareType{fares.Regular, fares.ElectronicYouth}, c.FareTypes())
}

func TestFareType_Names(t *testing.T) {
	for _, ft := range []fares.FareType{fares.Regular, fares.Senior, fares.ElectronicSpecial} {
		got, ok := fares.ParseFareType(ft.String())
		require.True(t, ok)
		assert.Equal(t, ft, got)
	}
	_, ok := fares.ParseFareType("platinum")
	assert.False(t, ok)
	assert.True(t, fares.ElectronicSenior.IsElectronic())
	assert.False(t, fares.Senior.IsElectronic())
	assert.Equal(t, "electronic", fares.ElectronicYouth.Medium().Name)
	assert.Equal(t, "youth", fares.ElectronicYouth.RiderCategory().Name)
}

func TestFareProduct_InstanceID(t *testing.T) {
	p := fares.FareProduct{ID: gtfs.NewID("1", "single"), Price: usd(250)}
	a := ride("r1", "A", "B", 0)
	b := ride("r1", "A", "B", time.Hour)

	assert.Equal(t, p.InstanceID(a.Start), p.InstanceID(a.Start))
	assert.NotEqual(t, p.InstanceID(a.Start), p.InstanceID(b.Start))
	assert.Equal(t, p.InstanceID(a.Start), fares.NewUse(p, a).ID)

	assert.True(t, fares.FareProduct{Duration: time.Hour}.CoversDuration(time.Hour))
	assert.False(t, fares.FareProduct{Duration: time.Hour}.CoversDuration(61*time.Minute))
	assert.False(t, fares.FareProduct{}.CoversDuration(time.Minute))
}

func TestItineraryFare_Accumulates(t *testing.T) {
	f := fares.NewItineraryFare()
	assert.True(t, f.IsEmpty())

	leg := &itinerary.Leg{}
	p := fares.FareProduct{ID: gtfs.NewID("1", "p"), Price: usd(100)}
	use := fares.FareProductUse{ID: "x", Product: p}
	f.AddUse(leg, use)
	f.AddUse(leg, use)
	f.AddItineraryProducts(p, p)
	f.AddTotal(fares.Regular, usd(100))
	f.AddTotal(fares.Regular, usd(50))

	assert.Len(t, f.UsesFor(leg), 1)
	assert.Len(t, f.ItineraryProducts(), 1)
	total, _ := f.Total(fares.Regular)
	assert.Equal(t, usd(150), total)
	assert.False(t, f.IsEmpty())
}
