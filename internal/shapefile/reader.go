package shapefile

import (
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	shp "github.com/jonas-p/go-shp"

	"github.com/gridforma/massing/model"
)

// Attribute fallback chains tried in order when resolving DBF columns.
// DBF restricts field names to 10 characters, hence GROUND_ELE.
var (
	DefaultIDAttributes     = []string{"BIN", "STRUCT_ID", "OBJECTID"}
	DefaultGroundAttributes = []string{"GRD_ELEV", "GROUND_ELE", "ELEVATION"}
)

// Options control how records are assembled from a shapefile.
type Options struct {
	// IDAttributes are candidate DBF columns for the building identifier,
	// tried in order. Empty means DefaultIDAttributes.
	IDAttributes []string
	// GroundAttributes are candidate DBF columns for the ground elevation,
	// tried in order. Empty means DefaultGroundAttributes.
	GroundAttributes []string
}

// Source streams multipatch records out of a single shapefile. PolygonZ
// files are accepted too; their rings become parts without patch types.
type Source struct {
	path string
	stem string
	r    *shp.Reader

	idCol  int // -1 when no candidate column exists
	gndCol int

	rec *model.MultipatchRecord
	err error
}

// Open opens path and validates that it holds Z-aware geometry.
func Open(path string, opts Options) (*Source, error) {
	r, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open shapefile: %w", err)
	}
	if r.GeometryType != shp.MULTIPATCH && r.GeometryType != shp.POLYGONZ {
		r.Close()
		return nil, fmt.Errorf("%s: shape type %d carries no Z values", path, r.GeometryType)
	}

	idAttrs := opts.IDAttributes
	if len(idAttrs) == 0 {
		idAttrs = DefaultIDAttributes
	}
	gndAttrs := opts.GroundAttributes
	if len(gndAttrs) == 0 {
		gndAttrs = DefaultGroundAttributes
	}

	fields := r.Fields()
	return &Source{
		path:   path,
		stem:   strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		r:      r,
		idCol:  fieldIndex(fields, idAttrs),
		gndCol: fieldIndex(fields, gndAttrs),
	}, nil
}

// fieldIndex resolves the first matching candidate, case-insensitively.
func fieldIndex(fields []shp.Field, candidates []string) int {
	for _, want := range candidates {
		for i := range fields {
			if strings.EqualFold(fields[i].String(), want) {
				return i
			}
		}
	}
	return -1
}

// Next advances to the following record. It returns false at end of file or
// on the first read error; Err distinguishes the two.
func (s *Source) Next() bool {
	if s.err != nil {
		return false
	}
	for s.r.Next() {
		row, shape := s.r.Shape()
		switch g := shape.(type) {
		case *shp.MultiPatch:
			s.rec = s.decode(row, g.Parts, g.PartTypes, g.Points, g.ZArray)
			return true
		case *shp.PolygonZ:
			s.rec = s.decode(row, g.Parts, nil, g.Points, g.ZArray)
			return true
		case *shp.Null:
			continue
		default:
			s.err = fmt.Errorf("row %d: unexpected shape type %T", row, shape)
			return false
		}
	}
	s.err = s.r.Err()
	return false
}

// Record returns the record decoded by the last successful Next.
func (s *Source) Record() *model.MultipatchRecord { return s.rec }

// Err reports the first error encountered while reading.
func (s *Source) Err() error { return s.err }

// Close releases the underlying shp and dbf handles.
func (s *Source) Close() error { return s.r.Close() }

func (s *Source) decode(row int, parts, partTypes []int32, points []shp.Point, zs []float64) *model.MultipatchRecord {
	rec := &model.MultipatchRecord{
		BuildingID:  s.buildingID(row),
		SourceFile:  s.path,
		RecordIndex: row,
	}
	if s.gndCol >= 0 {
		if v, err := strconv.ParseFloat(s.attr(row, s.gndCol), 64); err == nil {
			rec.GroundElevation = v
			rec.HasGroundElevation = true
		}
	}

	if len(parts) == 0 && len(points) > 0 {
		parts = []int32{0}
	}
	for i := range parts {
		start := int(parts[i])
		end := len(points)
		if i+1 < len(parts) {
			end = int(parts[i+1])
		}
		if start < 0 || start > end || end > len(points) {
			continue
		}
		rec.Parts = append(rec.Parts, buildPart(partType(partTypes, i), points[start:end], sliceZ(zs, start, end)))
	}
	return rec
}

func (s *Source) buildingID(row int) string {
	if s.idCol >= 0 {
		if v := s.attr(row, s.idCol); v != "" {
			return v
		}
	}
	return fmt.Sprintf("%s-%d", s.stem, row)
}

// attr reads a DBF cell and strips the space and NUL padding dBase files
// carry around values.
func (s *Source) attr(row, col int) string {
	return strings.Trim(s.r.ReadAttribute(row, col), " \x00")
}

// sliceZ returns the z values for a point range, padding with NaN when the
// Z array is shorter than the point array.
func sliceZ(zs []float64, start, end int) []float64 {
	out := make([]float64, 0, end-start)
	for j := start; j < end; j++ {
		if j < len(zs) {
			out = append(out, zs[j])
		} else {
			out = append(out, math.NaN())
		}
	}
	return out
}

func partType(partTypes []int32, i int) model.PartType {
	if i < len(partTypes) {
		t := model.PartType(partTypes[i])
		if t >= model.PartTriangleStrip && t <= model.PartRing {
			return t
		}
	}
	return model.PartOuterRing
}

func buildPart(t model.PartType, points []shp.Point, zs []float64) model.Part {
	p := model.Part{
		Type:     t,
		Vertices: make([]mgl64.Vec3, 0, len(points)),
		MinZ:     math.Inf(1),
		MaxZ:     math.Inf(-1),
	}
	for j := range points {
		z := zs[j]
		if z < p.MinZ {
			p.MinZ = z
		}
		if z > p.MaxZ {
			p.MaxZ = z
		}
		p.Vertices = append(p.Vertices, mgl64.Vec3{points[j].X, points[j].Y, z})
	}
	if math.IsInf(p.MinZ, 1) {
		p.MinZ, p.MaxZ = math.NaN(), math.NaN()
	}
	return p
}
