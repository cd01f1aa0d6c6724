package model

import "strings"

// HeightMode selects how base and top heights are expressed.
type HeightMode int

const (
	// HeightAbsolute reports base/top as raw absolute elevations.
	HeightAbsolute HeightMode = iota
	// HeightRelative reports base/top relative to ground elevation.
	HeightRelative
)

func (m HeightMode) String() string {
	if m == HeightRelative {
		return "relative"
	}
	return "absolute"
}

// HeightModeFromString maps a CLI/config string to a HeightMode.
// Unknown or empty values default to absolute.
func HeightModeFromString(s string) HeightMode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "relative", "rel", "true":
		return HeightRelative
	default:
		return HeightAbsolute
	}
}

// HeightResult holds the derived heights of a single part. It is a pure
// function of (part geometry, ground elevation, mode) and is recomputed
// whenever the mode changes rather than stored.
//
// Top >= Base in both modes. Height is always >= 0; a degenerate part with
// MinZ == MaxZ yields exactly 0.
type HeightResult struct {
	MinZ   float64 `json:"min_z"`
	MaxZ   float64 `json:"max_z"`
	Height float64 `json:"height"`
	Base   float64 `json:"base_height"`
	Top    float64 `json:"top_height"`
}
