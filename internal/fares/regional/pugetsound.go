package regional

import (
	"strings"
	"time"

	"transit-fares/internal/fares"
	"transit-fares/internal/itinerary"
)

// Puget Sound agency ids as published in the regional feed.
const (
	agencyKingCounty   = "1"
	agencyPierce       = "3"
	agencyStreetcar    = "23"
	agencyCommunity    = "29"
	agencySoundTransit = "40"
	agencyWSF          = "95"
	agencyMonorail     = "96"
	agencyEverett      = "97"
	agencyKitsap       = "kt"
)

// GTFS route_type values.
const (
	routeTypeTram  = 0
	routeTypeRail  = 2
	routeTypeBus   = 3
	routeTypeFerry = 4
)

const pugetSoundWindow = 2 * time.Hour

const (
	KingCountyMetro  RideCategory = "kcm"
	KCWaterTaxi      RideCategory = "kc_water_taxi"
	PierceTransit    RideCategory = "pierce"
	CommunityTransit RideCategory = "community"
	STExpress        RideCategory = "st_express"
	LinkRail         RideCategory = "link"
	Sounder          RideCategory = "sounder"
	EverettTransit   RideCategory = "everett"
	WSFerries        RideCategory = "wsf"
	KitsapTransit    RideCategory = "kitsap"
	SeattleStreetcar RideCategory = "streetcar"
	SeattleMonorail  RideCategory = "monorail"
)

// PugetSound implements the ORCA card transfer rules of the Seattle region.
type PugetSound struct{}

var _ Region = PugetSound{}

func (PugetSound) Name() string { return "pugetsound" }

func (PugetSound) Classify(leg *itinerary.Leg) RideCategory {
	switch leg.AgencyID.ID {
	case agencyKingCounty:
		if leg.Route.Type == routeTypeFerry || strings.Contains(strings.ToLower(leg.Route.LongName), "water taxi") {
			return KCWaterTaxi
		}
		return KingCountyMetro
	case agencyPierce:
		return PierceTransit
	case agencyCommunity:
		return CommunityTransit
	case agencySoundTransit:
		switch leg.Route.Type {
		case routeTypeTram:
			return LinkRail
		case routeTypeRail:
			return Sounder
		}
		return STExpress
	case agencyEverett:
		return EverettTransit
	case agencyWSF:
		return WSFerries
	case agencyKitsap:
		return KitsapTransit
	case agencyStreetcar:
		return SeattleStreetcar
	case agencyMonorail:
		return SeattleMonorail
	}
	return Unclassified
}

func (PugetSound) TransferOutcome(from, to RideCategory, pm PaymentMethod) Outcome {
	if pm == Cash {
		return End()
	}
	switch {
	case to == SeattleMonorail:
		return Full()
	case from == WSFerries || to == WSFerries:
		return End()
	case from == Unclassified || to == Unclassified || from == SeattleMonorail:
		return End()
	}
	return PayDifference()
}

// reduced fares where the agency sets a flat amount rather than half the adult fare
var pugetSoundFlatReduced = map[RideCategory]int64{
	KingCountyMetro:  100,
	PierceTransit:    100,
	CommunityTransit: 125,
	STExpress:        100,
	LinkRail:         100,
	EverettTransit:   50,
	SeattleStreetcar: 100,
}

func (PugetSound) LegDiscount(t fares.FareType, c RideCategory, _ *itinerary.Leg) Discount {
	// the monorail takes ORCA only at the adult rate
	if c == SeattleMonorail && t.IsElectronic() && t != fares.ElectronicRegular {
		return Excluded()
	}
	switch t {
	case fares.Youth, fares.ElectronicYouth:
		return Fixed(0)
	case fares.Senior, fares.ElectronicSenior, fares.ElectronicSpecial:
		if cents, ok := pugetSoundFlatReduced[c]; ok {
			return Fixed(cents)
		}
		return Halved()
	}
	return Default()
}

func (PugetSound) ShouldCombineInterlinedLegs(prev, curr *itinerary.Leg) bool {
	return fares.SameRouteCombine(prev, curr)
}

func (PugetSound) FareTypes() []fares.FareType {
	return []fares.FareType{
		fares.Regular, fares.Senior, fares.Youth,
		fares.ElectronicRegular, fares.ElectronicSenior, fares.ElectronicYouth, fares.ElectronicSpecial,
	}
}

func (PugetSound) TransferWindow() time.Duration { return pugetSoundWindow }
func (PugetSound) MaxTransfers() int             { return fares.Unlimited }

// Link and Sounder riders tap off, so the transfer is checked at alighting.
func (PugetSound) PayOnExit(c RideCategory) bool {
	return c == LinkRail || c == Sounder
}
