package model

import (
	"fmt"
	"strings"
)

// Unit is a vertical length unit for elevations and heights.
type Unit int

const (
	UnitMeters Unit = iota
	UnitFeet
)

const (
	metersPerFoot = 0.3048
	feetPerMeter  = 3.28084
)

func (u Unit) String() string {
	if u == UnitFeet {
		return "ft"
	}
	return "m"
}

// UnitFromString parses a unit name. Unlike the height mode, a wrong unit
// silently changes every number in the output, so unknown values are an error.
func UnitFromString(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "m", "meter", "meters", "metre", "metres":
		return UnitMeters, nil
	case "ft", "foot", "feet":
		return UnitFeet, nil
	default:
		return UnitMeters, fmt.Errorf("unknown unit %q", s)
	}
}

// ConversionFactor returns the multiplier that converts a vertical value
// from one unit to the other. Same-unit conversion is 1.
func ConversionFactor(from, to Unit) float64 {
	if from == to {
		return 1
	}
	if from == UnitFeet {
		return metersPerFoot
	}
	return feetPerMeter
}
