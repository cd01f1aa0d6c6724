package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gridforma/massing/core"
	"github.com/gridforma/massing/model"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func TestResolveInputs_SingleFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "buildings.shp")
	touch(t, path)

	paths, err := resolveInputs(path)
	if err != nil {
		t.Fatalf("resolveInputs: %v", err)
	}
	if len(paths) != 1 || paths[0] != path {
		t.Fatalf("paths = %v, want [%s]", paths, path)
	}
}

func TestResolveInputs_RejectsNonShapefile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "buildings.geojson")
	touch(t, path)

	if _, err := resolveInputs(path); err == nil {
		t.Fatal("expected error for non-shapefile input")
	}
}

func TestResolveInputs_DirectoryGlobsSorted(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "b.shp"))
	touch(t, filepath.Join(dir, "a.shp"))
	touch(t, filepath.Join(dir, "notes.txt"))

	paths, err := resolveInputs(dir)
	if err != nil {
		t.Fatalf("resolveInputs: %v", err)
	}
	want := []string{filepath.Join(dir, "a.shp"), filepath.Join(dir, "b.shp")}
	if len(paths) != 2 || paths[0] != want[0] || paths[1] != want[1] {
		t.Fatalf("paths = %v, want %v", paths, want)
	}
}

func TestResolveInputs_EmptyDirectory(t *testing.T) {
	if _, err := resolveInputs(t.TempDir()); err == nil {
		t.Fatal("expected error for directory without shapefiles")
	}
}

func TestSplitList(t *testing.T) {
	if got := splitList(""); got != nil {
		t.Fatalf("splitList(\"\") = %v, want nil", got)
	}
	got := splitList(" BIN, GRD_ELEV ,,")
	if len(got) != 2 || got[0] != "BIN" || got[1] != "GRD_ELEV" {
		t.Fatalf("splitList = %v, want [BIN GRD_ELEV]", got)
	}
}

func TestConvertOptions_ParsesFlags(t *testing.T) {
	opts, err := convertOptions(true, 2.5, "ft", "m", "skip")
	if err != nil {
		t.Fatalf("convertOptions: %v", err)
	}
	if opts.Mode != model.HeightRelative {
		t.Fatalf("Mode = %v, want relative", opts.Mode)
	}
	if opts.MinHeight != 2.5 {
		t.Fatalf("MinHeight = %v, want 2.5", opts.MinHeight)
	}
	if opts.UnitsIn != model.UnitFeet || opts.UnitsOut != model.UnitMeters {
		t.Fatalf("units = %v/%v, want ft/m", opts.UnitsIn, opts.UnitsOut)
	}
	if opts.MissingGround != core.MissingGroundSkip {
		t.Fatalf("MissingGround = %v, want skip", opts.MissingGround)
	}
}

func TestConvertOptions_RejectsUnknownUnit(t *testing.T) {
	if _, err := convertOptions(false, 0, "furlongs", "m", "zero"); err == nil {
		t.Fatal("expected error for unknown unit")
	}
}

func TestConvertOptions_RejectsUnknownPolicy(t *testing.T) {
	if _, err := convertOptions(false, 0, "m", "m", "explode"); err == nil {
		t.Fatal("expected error for unknown missing-ground policy")
	}
}
