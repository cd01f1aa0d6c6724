package model

import "github.com/go-gl/mathgl/mgl64"

// PartType identifies the role of a multipatch part. Values match the
// part type codes in the shapefile multipatch record header.
type PartType int

const (
	PartTriangleStrip PartType = iota
	PartTriangleFan
	PartOuterRing
	PartInnerRing
	PartFirstRing
	PartRing
)

// Part is one 3D polygon ring extracted from a multipatch. Vertices are in
// source CRS with Z in absolute elevation units. MinZ/MaxZ are computed once
// at decode time and never mutated afterwards.
type Part struct {
	Vertices []mgl64.Vec3
	Type     PartType

	MinZ float64
	MaxZ float64
}

// MultipatchRecord represents one building: an identifier, a ground elevation
// shared by all of its parts, and the ordered parts themselves.
type MultipatchRecord struct {
	BuildingID string

	// GroundElevation is the terrain elevation at the building's location,
	// in the same vertical units as the part Z values. HasGroundElevation
	// reports whether the source attribute was actually present; the
	// missing-attribute policy is applied downstream, not here.
	GroundElevation    float64
	HasGroundElevation bool

	Parts []Part

	// SourceFile and RecordIndex identify where the record came from,
	// for diagnostics only.
	SourceFile  string
	RecordIndex int
}
