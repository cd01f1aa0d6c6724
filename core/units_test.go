package core

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/gridforma/massing/model"
)

func TestConvertElevations_FeetToMeters(t *testing.T) {
	verts := []mgl64.Vec3{{100, 200, 10}, {110, 210, 100}}
	got := ConvertElevations(verts, model.UnitFeet, model.UnitMeters)

	if got[0].Z() != 3.048 {
		t.Errorf("z[0] = %v, want 3.048", got[0].Z())
	}
	if got[1].Z() != 30.48 {
		t.Errorf("z[1] = %v, want 30.48", got[1].Z())
	}
	// X/Y stay in source CRS units.
	if got[0].X() != 100 || got[0].Y() != 200 {
		t.Errorf("x/y changed: %v", got[0])
	}
}

func TestConvertElevations_MetersToFeet(t *testing.T) {
	verts := []mgl64.Vec3{{0, 0, 1}}
	got := ConvertElevations(verts, model.UnitMeters, model.UnitFeet)
	if math.Abs(got[0].Z()-3.28084) > 1e-12 {
		t.Errorf("z = %v, want 3.28084", got[0].Z())
	}
}

func TestConvertElevations_SameUnitIsIdentity(t *testing.T) {
	verts := []mgl64.Vec3{{1, 2, 3}}
	got := ConvertElevations(verts, model.UnitMeters, model.UnitMeters)
	if &got[0] != &verts[0] {
		t.Errorf("same-unit conversion should return the input slice")
	}
}

func TestConvertElevations_DoesNotMutateInput(t *testing.T) {
	verts := []mgl64.Vec3{{1, 2, 10}}
	_ = ConvertElevations(verts, model.UnitFeet, model.UnitMeters)
	if verts[0].Z() != 10 {
		t.Errorf("input mutated: z = %v, want 10", verts[0].Z())
	}
}

func TestUnitFromString(t *testing.T) {
	if u, err := model.UnitFromString("ft"); err != nil || u != model.UnitFeet {
		t.Errorf("UnitFromString(ft) = %v, %v", u, err)
	}
	if u, err := model.UnitFromString("Meters"); err != nil || u != model.UnitMeters {
		t.Errorf("UnitFromString(Meters) = %v, %v", u, err)
	}
	if _, err := model.UnitFromString("furlongs"); err == nil {
		t.Errorf("expected error for unknown unit")
	}
}
