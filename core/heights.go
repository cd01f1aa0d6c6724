package core

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/gridforma/massing/model"
)

// ErrInvalidGeometry indicates a part whose vertex data cannot yield a height:
// an empty sequence, a non-finite Z value, or (at feature assembly) a footprint
// with too few distinct vertices.
var ErrInvalidGeometry = errors.New("invalid part geometry")

// ExtractHeights derives the height figures for a single part from its vertex
// sequence and the record's ground elevation.
//
// In absolute mode base/top are the raw min/max Z. In relative mode both are
// shifted down by groundElevation; a ground elevation of 0 makes the two modes
// coincide, which is the documented behaviour for records whose ground
// attribute was absent and defaulted.
//
// The function is pure: it never mutates vertices, and calling it twice with
// the same inputs yields bit-identical results. Non-finite inputs fail rather
// than producing a fabricated height.
func ExtractHeights(vertices []mgl64.Vec3, groundElevation float64, mode model.HeightMode) (model.HeightResult, error) {
	if len(vertices) == 0 {
		return model.HeightResult{}, fmt.Errorf("%w: empty vertex sequence", ErrInvalidGeometry)
	}
	if !isFinite(groundElevation) {
		return model.HeightResult{}, fmt.Errorf("%w: non-finite ground elevation %v", ErrInvalidGeometry, groundElevation)
	}

	minZ, maxZ := vertices[0].Z(), vertices[0].Z()
	for i, v := range vertices {
		z := v.Z()
		if !isFinite(z) {
			return model.HeightResult{}, fmt.Errorf("%w: vertex %d has no finite z (%v)", ErrInvalidGeometry, i, z)
		}
		if z < minZ {
			minZ = z
		}
		if z > maxZ {
			maxZ = z
		}
	}

	res := model.HeightResult{
		MinZ:   minZ,
		MaxZ:   maxZ,
		Height: maxZ - minZ,
	}
	if mode == model.HeightRelative {
		res.Base = minZ - groundElevation
		res.Top = maxZ - groundElevation
	} else {
		res.Base = minZ
		res.Top = maxZ
	}
	return res, nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
