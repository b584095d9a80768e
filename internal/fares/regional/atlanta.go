package regional

import (
	"strconv"
	"time"

	"transit-fares/internal/fares"
	"transit-fares/internal/itinerary"
	"transit-fares/internal/money"
)

const (
	agencyMARTA     = "MARTA"
	agencyCobb      = "CCT"
	agencyGwinnett  = "GCT"
	agencyXpress    = "GRTA"
	agencyATLStreet = "ATLSC"
)

const (
	atlantaWindow       = 3 * time.Hour
	atlantaMaxTransfers = 4
	firstExpressRoute   = 100 // suburban express routes are numbered from 100
)

const (
	MARTA            RideCategory = "marta"
	CobbLocal        RideCategory = "cobb_local"
	CobbExpress      RideCategory = "cobb_express"
	GwinnettLocal    RideCategory = "gwinnett_local"
	GwinnettExpress  RideCategory = "gwinnett_express"
	Xpress           RideCategory = "xpress"
	AtlantaStreetcar RideCategory = "atl_streetcar"
)

// Atlanta implements the Breeze card transfer rules of the Atlanta region.
type Atlanta struct{}

var _ Region = Atlanta{}

func (Atlanta) Name() string { return "atlanta" }

func (Atlanta) Classify(leg *itinerary.Leg) RideCategory {
	switch leg.AgencyID.ID {
	case agencyMARTA:
		return MARTA
	case agencyCobb:
		if isExpressRoute(leg.Route) {
			return CobbExpress
		}
		return CobbLocal
	case agencyGwinnett:
		if isExpressRoute(leg.Route) {
			return GwinnettExpress
		}
		return GwinnettLocal
	case agencyXpress:
		return Xpress
	case agencyATLStreet:
		return AtlantaStreetcar
	}
	return Unclassified
}

func isExpressRoute(r itinerary.Route) bool {
	if r.Type != routeTypeBus {
		return false
	}
	n, err := strconv.Atoi(r.ShortName)
	return err == nil && n >= firstExpressRoute
}

func isAtlantaLocal(c RideCategory) bool {
	return c == MARTA || c == CobbLocal || c == GwinnettLocal
}

func isAtlantaExpress(c RideCategory) bool {
	return c == CobbExpress || c == GwinnettExpress || c == Xpress
}

// gwinnettExpressUpcharge is the flat step-up from a Gwinnett local to its express service.
var gwinnettExpressUpcharge = money.Of("USD", 150)

func (Atlanta) TransferOutcome(from, to RideCategory, pm PaymentMethod) Outcome {
	if to == AtlantaStreetcar {
		return Full()
	}
	if from == Unclassified || to == Unclassified || from == AtlantaStreetcar {
		return End()
	}
	if pm == Cash {
		if from == to && (from == CobbLocal || from == GwinnettLocal) {
			return Free()
		}
		return End()
	}
	switch {
	case from == GwinnettLocal && to == GwinnettExpress:
		return Upcharge(gwinnettExpressUpcharge)
	case isAtlantaExpress(to):
		return PayDifference()
	case isAtlantaLocal(to) && (isAtlantaLocal(from) || isAtlantaExpress(from)):
		return Free()
	}
	return End()
}

func (Atlanta) LegDiscount(t fares.FareType, c RideCategory, _ *itinerary.Leg) Discount {
	switch t {
	case fares.Senior, fares.ElectronicSenior:
		if c == MARTA {
			return Fixed(100)
		}
		return Halved()
	case fares.Youth, fares.ElectronicYouth:
		if c == Xpress {
			return Excluded()
		}
		return Halved()
	}
	return Default()
}

func (Atlanta) ShouldCombineInterlinedLegs(_, _ *itinerary.Leg) bool { return true }

func (Atlanta) FareTypes() []fares.FareType {
	return []fares.FareType{
		fares.Regular, fares.Senior, fares.Youth,
		fares.ElectronicRegular, fares.ElectronicSenior, fares.ElectronicYouth,
	}
}

func (Atlanta) TransferWindow() time.Duration { return atlantaWindow }
func (Atlanta) MaxTransfers() int             { return atlantaMaxTransfers }
func (Atlanta) PayOnExit(_ RideCategory) bool { return false }
