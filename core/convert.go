package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/gridforma/massing/internal/logging"
	"github.com/gridforma/massing/model"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

var (
	// ErrMissingAttribute indicates a record without a ground elevation
	// attribute under the skip policy.
	ErrMissingAttribute = errors.New("missing ground elevation attribute")
	// ErrNoValidParts indicates a record whose parts were all skipped or
	// filtered; the record is dropped from output.
	ErrNoValidParts = errors.New("no valid parts in record")
)

// Part skip reasons, used as metric labels and in logs.
const (
	SkipReasonInvalidGeometry = "invalid_geometry"
	SkipReasonBelowMinHeight  = "below_min_height"
)

// MissingGroundPolicy decides how records without a ground elevation
// attribute are handled.
type MissingGroundPolicy int

const (
	// MissingGroundZero treats the missing attribute as ground elevation 0,
	// which makes relative and absolute heights coincide for that record.
	MissingGroundZero MissingGroundPolicy = iota
	// MissingGroundSkip aborts the record with ErrMissingAttribute.
	MissingGroundSkip
)

// MissingGroundPolicyFromString parses a policy name for CLI use.
func MissingGroundPolicyFromString(s string) (MissingGroundPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "zero", "default":
		return MissingGroundZero, nil
	case "skip", "drop":
		return MissingGroundSkip, nil
	default:
		return MissingGroundZero, fmt.Errorf("unknown missing-ground policy %q", s)
	}
}

// Reprojector maps source CRS coordinates onto WGS84 lon/lat. A nil
// Reprojector means the input is already in WGS84.
type Reprojector interface {
	Transform(x, y float64) (lon, lat float64)
}

// ConvertMetricsRecorder receives pipeline counters. All methods must be
// safe to call from a single goroutine; the pipeline is not concurrent.
type ConvertMetricsRecorder interface {
	IncRecordProcessed()
	IncRecordDropped()
	IncPartSkipped(reason string)
	IncFileFailed()
	ObservePartHeight(h float64)
}

// ConvertOptions are the per-run conversion knobs.
type ConvertOptions struct {
	// Mode selects absolute or ground-relative base/top heights.
	Mode model.HeightMode
	// MinHeight drops parts below the threshold after extraction. 0 keeps
	// everything, including degenerate zero-height parts.
	MinHeight float64
	// UnitsIn/UnitsOut drive vertical unit conversion, applied to vertex Z
	// and ground elevation before extraction.
	UnitsIn  model.Unit
	UnitsOut model.Unit
	// MissingGround is the policy for records lacking a ground attribute.
	MissingGround MissingGroundPolicy
}

// Converter turns decoded multipatch records into GeoJSON features with
// per-part height properties.
type Converter struct {
	reproject Reprojector
	opts      ConvertOptions
	log       logging.Logger
	metrics   ConvertMetricsRecorder
}

// ConverterOption customises Converter construction.
type ConverterOption func(*Converter)

// WithMetricsRecorder attaches an optional recorder for pipeline counters.
func WithMetricsRecorder(m ConvertMetricsRecorder) ConverterOption {
	return func(c *Converter) {
		c.metrics = m
	}
}

// NewConverter builds a Converter. reproject may be nil for WGS84 input.
func NewConverter(reproject Reprojector, opts ConvertOptions, log logging.Logger, options ...ConverterOption) *Converter {
	if log == nil {
		log = logging.Noop()
	}
	c := &Converter{
		reproject: reproject,
		opts:      opts,
		log:       log,
	}
	for _, o := range options {
		o(c)
	}
	return c
}

// RecordResult is the per-record output of ConvertRecord.
type RecordResult struct {
	// Features holds one feature per surviving part, in part order.
	Features []*geojson.Feature
	// Heights holds the matching height results, for aggregation.
	Heights []model.HeightResult

	PartsSkipped  int
	PartsFiltered int
}

// ConvertRecord converts one record. Invalid parts are skipped and counted;
// the record only fails as a whole under the skip policy for a missing
// ground attribute (ErrMissingAttribute) or when no parts survive
// (ErrNoValidParts).
func (c *Converter) ConvertRecord(ctx context.Context, rec *model.MultipatchRecord) (*RecordResult, error) {
	if rec == nil {
		return nil, fmt.Errorf("ConvertRecord: nil record")
	}
	if c.metrics != nil {
		c.metrics.IncRecordProcessed()
	}

	ground := rec.GroundElevation
	if !rec.HasGroundElevation {
		if c.opts.MissingGround == MissingGroundSkip {
			if c.metrics != nil {
				c.metrics.IncRecordDropped()
			}
			return nil, fmt.Errorf("%w: record %q", ErrMissingAttribute, rec.BuildingID)
		}
		ground = 0
		c.log.Debug(ctx, "ground elevation attribute absent, defaulting to 0",
			logging.String("building_id", rec.BuildingID))
	}

	factor := model.ConversionFactor(c.opts.UnitsIn, c.opts.UnitsOut)
	ground *= factor

	result := &RecordResult{}
	for i, part := range rec.Parts {
		verts := part.Vertices
		if factor != 1 {
			verts = ConvertElevations(verts, c.opts.UnitsIn, c.opts.UnitsOut)
		}

		res, err := ExtractHeights(verts, ground, c.opts.Mode)
		if err != nil {
			result.PartsSkipped++
			if c.metrics != nil {
				c.metrics.IncPartSkipped(SkipReasonInvalidGeometry)
			}
			c.log.Warn(ctx, "skipping part",
				logging.String("building_id", rec.BuildingID),
				logging.Int("part_index", i),
				logging.String("error", err.Error()))
			continue
		}

		if res.Height < c.opts.MinHeight {
			result.PartsFiltered++
			if c.metrics != nil {
				c.metrics.IncPartSkipped(SkipReasonBelowMinHeight)
			}
			continue
		}

		ring, ok := c.footprint(verts)
		if !ok {
			result.PartsSkipped++
			if c.metrics != nil {
				c.metrics.IncPartSkipped(SkipReasonInvalidGeometry)
			}
			c.log.Warn(ctx, "skipping part with degenerate footprint",
				logging.String("building_id", rec.BuildingID),
				logging.Int("part_index", i))
			continue
		}

		f := geojson.NewFeature(orb.Polygon{ring})
		f.ID = fmt.Sprintf("%s/%d", rec.BuildingID, i)
		f.Properties = geojson.Properties{
			"building_id":      rec.BuildingID,
			"part_index":       i,
			"min_z":            res.MinZ,
			"max_z":            res.MaxZ,
			"height":           res.Height,
			"base_height":      res.Base,
			"top_height":       res.Top,
			"ground_elevation": ground,
		}

		result.Features = append(result.Features, f)
		result.Heights = append(result.Heights, res)
		if c.metrics != nil {
			c.metrics.ObservePartHeight(res.Height)
		}
	}

	if len(result.Features) == 0 {
		if c.metrics != nil {
			c.metrics.IncRecordDropped()
		}
		return nil, fmt.Errorf("%w: record %q (%d invalid, %d below min height)",
			ErrNoValidParts, rec.BuildingID, result.PartsSkipped, result.PartsFiltered)
	}
	return result, nil
}

// footprint flattens a part to its 2D ring in WGS84: project, drop Z, remove
// consecutive duplicate points, close the ring. Rings with fewer than 3
// distinct vertices cannot form a polygon.
func (c *Converter) footprint(vertices []mgl64.Vec3) (orb.Ring, bool) {
	ring := make(orb.Ring, 0, len(vertices)+1)
	for _, v := range vertices {
		x, y := v.X(), v.Y()
		if c.reproject != nil {
			x, y = c.reproject.Transform(x, y)
		}
		if !isFinite(x) || !isFinite(y) {
			return nil, false
		}
		p := orb.Point{x, y}
		if n := len(ring); n > 0 && ring[n-1] == p {
			continue
		}
		ring = append(ring, p)
	}

	// Shapefile rings usually repeat the first vertex; normalize to a closed
	// ring regardless of what the source did.
	if len(ring) >= 2 && ring[len(ring)-1] == ring[0] {
		ring = ring[:len(ring)-1]
	}
	if len(ring) < 3 {
		return nil, false
	}
	ring = append(ring, ring[0])
	return ring, true
}
