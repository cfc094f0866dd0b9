// Package campus holds the campus boundary polygon reports must fall inside.
package campus

import (
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
	"github.com/pkg/errors"
)

// defaultRing outlines the main campus, as [lng, lat] pairs.
var defaultRing = orb.Ring{
	{120.2050, 22.9850},
	{120.2290, 22.9850},
	{120.2290, 23.0030},
	{120.2190, 23.0055},
	{120.2050, 23.0030},
	{120.2050, 22.9850},
}

type Boundary struct {
	Name    string
	polygon orb.Polygon
}

func Default() *Boundary {
	return &Boundary{Name: "Main campus", polygon: orb.Polygon{defaultRing}}
}

// Load reads a boundary from a GeoJSON file holding a Polygon geometry, a
// Feature or a FeatureCollection whose first polygon feature is used.
func Load(path string) (*Boundary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading campus boundary %s", path)
	}
	return Parse(data)
}

func Parse(data []byte) (*Boundary, error) {
	if fc, err := geojson.UnmarshalFeatureCollection(data); err == nil && len(fc.Features) > 0 {
		for _, f := range fc.Features {
			if b, ok := fromFeature(f); ok {
				return b, nil
			}
		}
		return nil, errors.New("campus boundary has no polygon feature")
	}

	if f, err := geojson.UnmarshalFeature(data); err == nil && f.Geometry != nil {
		if b, ok := fromFeature(f); ok {
			return b, nil
		}
	}

	g, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return nil, errors.Wrap(err, "parsing campus boundary")
	}
	poly, ok := g.Geometry().(orb.Polygon)
	if !ok || len(poly) == 0 || len(poly[0]) < 4 {
		return nil, errors.Errorf("campus boundary must be a polygon, got %s", g.Type)
	}
	return &Boundary{Name: "Campus", polygon: poly}, nil
}

func fromFeature(f *geojson.Feature) (*Boundary, bool) {
	poly, ok := f.Geometry.(orb.Polygon)
	if !ok || len(poly) == 0 || len(poly[0]) < 4 {
		return nil, false
	}
	name := f.Properties.MustString("name", "Campus")
	return &Boundary{Name: name, polygon: poly}, true
}

// Contains reports whether a coordinate lies inside the campus.
func (b *Boundary) Contains(lat, lng float64) bool {
	return planar.PolygonContains(b.polygon, orb.Point{lng, lat})
}

// Feature renders the boundary for map clients.
func (b *Boundary) Feature() *geojson.Feature {
	f := geojson.NewFeature(b.polygon)
	f.Properties["name"] = b.Name
	return f
}
