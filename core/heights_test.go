package core

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/gridforma/massing/model"
)

const heightEps = 1e-9

// roofline is the worked example used throughout: a sloped part between
// 1046.2 and 1050.8 over ground at 1046.2.
func roofline() []mgl64.Vec3 {
	return []mgl64.Vec3{
		{987612.3, 193422.1, 1046.2},
		{987630.9, 193435.7, 1050.8},
		{987601.4, 193440.2, 1046.2},
	}
}

func TestExtractHeights_Relative(t *testing.T) {
	res, err := ExtractHeights(roofline(), 1046.2, model.HeightRelative)
	if err != nil {
		t.Fatalf("ExtractHeights error: %v", err)
	}
	if math.Abs(res.Base-0.0) > heightEps {
		t.Errorf("Base = %v, want 0.0", res.Base)
	}
	if math.Abs(res.Top-4.6) > heightEps {
		t.Errorf("Top = %v, want 4.6", res.Top)
	}
	if math.Abs(res.Height-4.6) > heightEps {
		t.Errorf("Height = %v, want 4.6", res.Height)
	}
	if res.MinZ != 1046.2 || res.MaxZ != 1050.8 {
		t.Errorf("MinZ/MaxZ = %v/%v, want 1046.2/1050.8", res.MinZ, res.MaxZ)
	}
}

func TestExtractHeights_Absolute(t *testing.T) {
	res, err := ExtractHeights(roofline(), 1046.2, model.HeightAbsolute)
	if err != nil {
		t.Fatalf("ExtractHeights error: %v", err)
	}
	if res.Base != 1046.2 {
		t.Errorf("Base = %v, want 1046.2", res.Base)
	}
	if res.Top != 1050.8 {
		t.Errorf("Top = %v, want 1050.8", res.Top)
	}
	if math.Abs(res.Height-4.6) > heightEps {
		t.Errorf("Height = %v, want 4.6", res.Height)
	}
}

func TestExtractHeights_DegeneratePartIsExactlyZero(t *testing.T) {
	flat := []mgl64.Vec3{
		{0, 0, 12.5},
		{1, 0, 12.5},
		{1, 1, 12.5},
	}
	for _, mode := range []model.HeightMode{model.HeightAbsolute, model.HeightRelative} {
		res, err := ExtractHeights(flat, 3.0, mode)
		if err != nil {
			t.Fatalf("mode %v: ExtractHeights error: %v", mode, err)
		}
		if res.Height != 0 {
			t.Errorf("mode %v: Height = %v, want exactly 0", mode, res.Height)
		}
	}
}

func TestExtractHeights_TopMinusBaseEqualsHeight(t *testing.T) {
	grounds := []float64{0, 1046.2, -50.25, 300.777}
	for _, g := range grounds {
		for _, mode := range []model.HeightMode{model.HeightAbsolute, model.HeightRelative} {
			res, err := ExtractHeights(roofline(), g, mode)
			if err != nil {
				t.Fatalf("ground %v mode %v: %v", g, mode, err)
			}
			if diff := (res.Top - res.Base) - res.Height; math.Abs(diff) > heightEps {
				t.Errorf("ground %v mode %v: Top-Base-Height = %v, want 0", g, mode, diff)
			}
			if res.Top < res.Base {
				t.Errorf("ground %v mode %v: Top %v < Base %v", g, mode, res.Top, res.Base)
			}
		}
	}
}

func TestExtractHeights_Idempotent(t *testing.T) {
	verts := roofline()
	first, err := ExtractHeights(verts, 1046.2, model.HeightRelative)
	if err != nil {
		t.Fatalf("first extraction: %v", err)
	}
	second, err := ExtractHeights(verts, 1046.2, model.HeightRelative)
	if err != nil {
		t.Fatalf("second extraction: %v", err)
	}
	if first != second {
		t.Errorf("results differ across identical extractions: %#v vs %#v", first, second)
	}
}

func TestExtractHeights_ZeroGroundMatchesAbsolute(t *testing.T) {
	rel, err := ExtractHeights(roofline(), 0, model.HeightRelative)
	if err != nil {
		t.Fatalf("relative extraction: %v", err)
	}
	abs, err := ExtractHeights(roofline(), 0, model.HeightAbsolute)
	if err != nil {
		t.Fatalf("absolute extraction: %v", err)
	}
	if rel != abs {
		t.Errorf("relative with ground 0 = %#v, absolute = %#v; want equal", rel, abs)
	}
}

func TestExtractHeights_DoesNotMutateVertices(t *testing.T) {
	verts := roofline()
	want := make([]mgl64.Vec3, len(verts))
	copy(want, verts)

	if _, err := ExtractHeights(verts, 10, model.HeightRelative); err != nil {
		t.Fatalf("ExtractHeights error: %v", err)
	}
	for i := range verts {
		if verts[i] != want[i] {
			t.Fatalf("vertex %d mutated: %v, want %v", i, verts[i], want[i])
		}
	}
}

func TestExtractHeights_EmptyVertices(t *testing.T) {
	_, err := ExtractHeights(nil, 0, model.HeightAbsolute)
	if err == nil {
		t.Fatalf("expected error for empty vertex sequence")
	}
	if !errors.Is(err, ErrInvalidGeometry) {
		t.Errorf("error = %v, want ErrInvalidGeometry", err)
	}
}

func TestExtractHeights_NonFiniteZ(t *testing.T) {
	cases := map[string]float64{
		"nan":     math.NaN(),
		"pos_inf": math.Inf(1),
		"neg_inf": math.Inf(-1),
	}
	for name, z := range cases {
		t.Run(name, func(t *testing.T) {
			verts := []mgl64.Vec3{{0, 0, 5}, {1, 0, z}}
			_, err := ExtractHeights(verts, 0, model.HeightAbsolute)
			if !errors.Is(err, ErrInvalidGeometry) {
				t.Errorf("error = %v, want ErrInvalidGeometry", err)
			}
		})
	}
}

func TestExtractHeights_NonFiniteGround(t *testing.T) {
	_, err := ExtractHeights(roofline(), math.NaN(), model.HeightRelative)
	if !errors.Is(err, ErrInvalidGeometry) {
		t.Errorf("error = %v, want ErrInvalidGeometry", err)
	}
}
