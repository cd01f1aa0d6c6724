package export

import (
	"fmt"

	shp "github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// DBF column layout for shapefile output. Names stay within the dBase
// 10-character limit.
func shapeFields() []shp.Field {
	return []shp.Field{
		shp.StringField("BUILD_ID", 32),
		shp.NumberField("PART_IDX", 6),
		shp.FloatField("MIN_Z", 13, 3),
		shp.FloatField("MAX_Z", 13, 3),
		shp.FloatField("HEIGHT", 13, 3),
		shp.FloatField("BASE_HT", 13, 3),
		shp.FloatField("TOP_HT", 13, 3),
	}
}

// WriteShapefile writes the footprints as 2D polygons with the height
// attributes carried in the companion DBF.
func WriteShapefile(path string, fc *geojson.FeatureCollection) error {
	w, err := shp.Create(path, shp.POLYGON)
	if err != nil {
		return fmt.Errorf("create shapefile: %w", err)
	}
	w.SetFields(shapeFields())

	row := 0
	for _, f := range fc.Features {
		poly, ok := f.Geometry.(orb.Polygon)
		if !ok {
			continue
		}
		rings := make([][]shp.Point, 0, len(poly))
		for _, ring := range poly {
			pts := make([]shp.Point, 0, len(ring))
			for _, p := range ring {
				pts = append(pts, shp.Point{X: p[0], Y: p[1]})
			}
			rings = append(rings, pts)
		}

		w.Write((*shp.Polygon)(shp.NewPolyLine(rings)))
		w.WriteAttribute(row, 0, f.Properties.MustString("building_id", ""))
		w.WriteAttribute(row, 1, f.Properties.MustInt("part_index", 0))
		w.WriteAttribute(row, 2, f.Properties.MustFloat64("min_z", 0))
		w.WriteAttribute(row, 3, f.Properties.MustFloat64("max_z", 0))
		w.WriteAttribute(row, 4, f.Properties.MustFloat64("height", 0))
		w.WriteAttribute(row, 5, f.Properties.MustFloat64("base_height", 0))
		w.WriteAttribute(row, 6, f.Properties.MustFloat64("top_height", 0))
		row++
	}

	w.Close()
	return nil
}
