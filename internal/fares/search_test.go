package fares_test

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transit-fares/internal/fares"
	"transit-fares/internal/gtfs"
	"transit-fares/internal/itinerary"
)

func totalCents(segs []fares.Segment) int64 {
	var sum int64
	for _, s := range segs {
		sum += s.Price.Cents
	}
	return sum
}

func TestDecompose_ThroughFareIsCheaper(t *testing.T) {
	ab := ride("r1", "A", "B", 0)
	bc := ride("r2", "B", "C", 30*time.Minute)
	rules := []*fares.FareRuleSet{
		odRule("ab", 1000, "A", "B"),
		odRule("bc", 1000, "B", "C"),
		odRule("ac", 1500, "A", "C"),
	}

	segs := fares.NewMatcher(nil, nil).Decompose(plain(ab, bc), rules)

	require.Len(t, segs, 1)
	assert.Equal(t, usd(1500), segs[0].Price)
	assert.Equal(t, "ac", segs[0].FareID.ID)
	assert.Equal(t, []*itinerary.Leg{ab, bc}, segs[0].Legs)
}

func TestDecompose_NoThroughFare(t *testing.T) {
	ab := ride("r1", "A", "B", 0)
	bc := ride("r2", "B", "C", 30*time.Minute)
	rules := []*fares.FareRuleSet{
		odRule("ab", 1000, "A", "B"),
		odRule("bc", 1000, "B", "C"),
	}

	segs := fares.NewMatcher(nil, nil).Decompose(plain(ab, bc), rules)

	require.Len(t, segs, 2)
	assert.Equal(t, []*itinerary.Leg{ab}, segs[0].Legs)
	assert.Equal(t, []*itinerary.Leg{bc}, segs[1].Legs)
	assert.Equal(t, int64(2000), totalCents(segs))
}

func TestDecompose_ThroughFareMoreExpensiveIsSplit(t *testing.T) {
	ab := ride("r1", "A", "B", 0)
	bc := ride("r2", "B", "C", 30*time.Minute)
	rules := []*fares.FareRuleSet{
		odRule("ab", 1000, "A", "B"),
		odRule("bc", 1000, "B", "C"),
		odRule("ac", 2500, "A", "C"),
	}

	segs := fares.NewMatcher(nil, nil).Decompose(plain(ab, bc), rules)

	require.Len(t, segs, 2)
	assert.Equal(t, int64(2000), totalCents(segs))
}

func TestDecompose_UnpricedLegsAreSkipped(t *testing.T) {
	ab := ride("r1", "A", "B", 0)
	bx := ride("r2", "B", "X", 30*time.Minute) // nothing prices zone X
	xc := ride("r3", "X", "C", time.Hour)
	cd := ride("r4", "C", "D", 90*time.Minute)
	rules := []*fares.FareRuleSet{
		odRule("ab", 1000, "A", "B"),
		odRule("cd", 700, "C", "D"),
	}

	segs := fares.NewMatcher(nil, nil).Decompose(plain(ab, bx, xc, cd), rules)

	require.Len(t, segs, 2)
	assert.Equal(t, []*itinerary.Leg{ab}, segs[0].Legs)
	assert.Equal(t, 3, segs[1].First)
	assert.Equal(t, []*itinerary.Leg{cd}, segs[1].Legs)
}

func TestDecompose_ThreeLegsMixedSegments(t *testing.T) {
	ab := ride("r1", "A", "B", 0)
	bc := ride("r2", "B", "C", 30*time.Minute)
	cd := ride("r3", "C", "D", time.Hour)
	rules := []*fares.FareRuleSet{
		odRule("ab", 1000, "A", "B"),
		odRule("bc", 1000, "B", "C"),
		odRule("cd", 1000, "C", "D"),
		odRule("bd", 1200, "B", "D"),
	}

	segs := fares.NewMatcher(nil, nil).Decompose(plain(ab, bc, cd), rules)

	require.Len(t, segs, 2)
	assert.Equal(t, "ab", segs[0].FareID.ID)
	assert.Equal(t, "bd", segs[1].FareID.ID)
	assert.Equal(t, []*itinerary.Leg{bc, cd}, segs[1].Legs)
	assert.Equal(t, int64(2200), totalCents(segs))
}

func TestDecompose_CheaperRuleNeverIncreasesTotal(t *testing.T) {
	legs := plain(
		ride("r1", "A", "B", 0),
		ride("r2", "B", "C", 30*time.Minute),
		ride("r3", "C", "D", time.Hour),
	)
	base := []*fares.FareRuleSet{
		odRule("ab", 1000, "A", "B"),
		odRule("bc", 1000, "B", "C"),
		odRule("cd", 1000, "C", "D"),
	}
	m := fares.NewMatcher(nil, nil)
	before := totalCents(m.Decompose(legs, base))

	for _, extra := range []*fares.FareRuleSet{
		odRule("ac", 1900, "A", "C"),
		odRule("ad", 2500, "A", "D"),
		odRule("bd", 3000, "B", "D"),
	} {
		after := totalCents(m.Decompose(legs, append(append([]*fares.FareRuleSet{}, base...), extra)))
		assert.LessOrEqual(t, after, before, extra.FareID.ID)
	}
}

func TestDecompose_CombinedLegExpandsToOriginals(t *testing.T) {
	ab := ride("r1", "A", "B", 0)
	bc := ride("r1", "B", "C", 20*time.Minute)
	bc.InterlinedWithPrevious = true
	legs := fares.Preprocess(itinerary.Itinerary{Legs: []*itinerary.Leg{ab, bc}}, fares.AlwaysCombine)
	require.Len(t, legs, 1)

	segs := fares.NewMatcher(nil, nil).Decompose(legs, []*fares.FareRuleSet{odRule("ac", 500, "A", "C")})

	require.Len(t, segs, 1)
	assert.Equal(t, []*itinerary.Leg{ab, bc}, segs[0].Legs)
}

func TestDecompose_NegativeCostIsIgnoredAndLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	ab := ride("r1", "A", "B", 0)
	rules := []*fares.FareRuleSet{fares.NewFareRuleSet(gtfs.NewID("1", "broken"), usd(-100))}

	segs := fares.NewMatcher(logger, nil).Decompose(plain(ab), rules)

	assert.Empty(t, segs)
	assert.Contains(t, buf.String(), "negative cost")
}

func TestDecompose_NoLegs(t *testing.T) {
	assert.Empty(t, fares.NewMatcher(nil, nil).Decompose(nil, nil))
}
