package core

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/gridforma/massing/model"
)

// ConvertElevations returns a copy of vertices with every Z value converted
// from one vertical unit to the other. X and Y are untouched: they live in
// source CRS units and are the reprojector's business, not the height
// pipeline's. Same-unit conversion returns the input slice unchanged.
func ConvertElevations(vertices []mgl64.Vec3, from, to model.Unit) []mgl64.Vec3 {
	factor := model.ConversionFactor(from, to)
	if factor == 1 {
		return vertices
	}
	out := make([]mgl64.Vec3, len(vertices))
	for i, v := range vertices {
		out[i] = mgl64.Vec3{v.X(), v.Y(), v.Z() * factor}
	}
	return out
}
