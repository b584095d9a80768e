package fares

import (
	"sort"
	"strings"

	"transit-fares/internal/gtfs"
)

// FareType is a rider classification priced independently of the others.
type FareType int

const (
	Regular FareType = iota
	Student
	Senior
	Youth
	Special
	ElectronicRegular
	ElectronicSenior
	ElectronicYouth
	ElectronicSpecial
)

var fareTypeNames = [...]string{
	Regular:           "regular",
	Student:           "student",
	Senior:            "senior",
	Youth:             "youth",
	Special:           "special",
	ElectronicRegular: "electronicRegular",
	ElectronicSenior:  "electronicSenior",
	ElectronicYouth:   "electronicYouth",
	ElectronicSpecial: "electronicSpecial",
}

func (t FareType) String() string {
	if t < 0 || int(t) >= len(fareTypeNames) {
		return "unknown"
	}
	return fareTypeNames[t]
}

// ParseFareType accepts the names produced by String, case-insensitively.
func ParseFareType(s string) (FareType, bool) {
	s = strings.TrimSpace(s)
	for i, n := range fareTypeNames {
		if strings.EqualFold(n, s) {
			return FareType(i), true
		}
	}
	return 0, false
}

func (t FareType) IsElectronic() bool {
	switch t {
	case ElectronicRegular, ElectronicSenior, ElectronicYouth, ElectronicSpecial:
		return true
	}
	return false
}

// RiderCategory derives the category attached to products of this fare type.
func (t FareType) RiderCategory() RiderCategory {
	var name string
	switch t {
	case Senior, ElectronicSenior:
		name = "senior"
	case Youth, ElectronicYouth:
		name = "youth"
	case Special, ElectronicSpecial:
		name = "special"
	case Student:
		name = "student"
	default:
		name = "regular"
	}
	return RiderCategory{ID: gtfs.NewID(derivedFeed, name), Name: name}
}

// Medium derives the fare medium attached to products of this fare type.
func (t FareType) Medium() FareMedium {
	if t.IsElectronic() {
		return FareMedium{ID: gtfs.NewID(derivedFeed, "electronic"), Name: "electronic"}
	}
	return FareMedium{ID: gtfs.NewID(derivedFeed, "cash"), Name: "cash"}
}

// derivedFeed scopes ids that are synthesized by the engine rather than imported.
const derivedFeed = "fares"

// SortFareTypes orders fare types by declaration order.
func SortFareTypes(ts []FareType) {
	sort.Slice(ts, func(i, j int) bool { return ts[i] < ts[j] })
}
