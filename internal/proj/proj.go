package proj

import (
	"errors"
	"fmt"
	"math"

	"github.com/wroge/wgs84"
)

// ErrUnsupportedCRS indicates the EPSG code is not in the built-in registry.
var ErrUnsupportedCRS = errors.New("unsupported source CRS")

const wgs84Code = 4326

// Transformer converts planar source coordinates into WGS84 lon/lat.
type Transformer struct {
	epsg int
	fn   wgs84.Func
}

// NewTransformer builds a Transformer from the given source EPSG code to
// WGS84. Code 4326 yields an identity transform.
func NewTransformer(epsg int) (*Transformer, error) {
	if epsg == wgs84Code {
		return &Transformer{epsg: epsg}, nil
	}

	fn := wgs84.EPSG().Transform(epsg, wgs84Code)
	// The registry signals unknown codes by mapping every input to NaN, so
	// probe once with a plausible projected coordinate.
	if x, y, _ := fn(500000, 5000000, 0); math.IsNaN(x) || math.IsNaN(y) {
		return nil, fmt.Errorf("%w: EPSG:%d", ErrUnsupportedCRS, epsg)
	}
	return &Transformer{epsg: epsg, fn: fn}, nil
}

// EPSG reports the source code the transformer was built for.
func (t *Transformer) EPSG() int { return t.epsg }

// Transform maps x/y in the source CRS onto WGS84 lon/lat.
func (t *Transformer) Transform(x, y float64) (lon, lat float64) {
	if t.fn == nil {
		return x, y
	}
	lon, lat, _ = t.fn(x, y, 0)
	return lon, lat
}
