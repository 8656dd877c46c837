/*
Copyright © 2019 the CityGraph authors.
This file is part of CityGraph.

CityGraph is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

CityGraph is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with CityGraph.  If not, see <http://www.gnu.org/licenses/>.
*/

package citygraph

import (
	"fmt"

	"github.com/ctessum/geom"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/citygraph/internal/hash"
)

// Feature is an input geometry with its attributes, as produced by a data
// acquisition step. Lines become edges, points become stations.
type Feature struct {
	// Geometry is used when it is not nil.
	Geometry geom.Geom

	// Coords holds raw coordinate tuples of any dimensionality. It is only
	// used when Geometry is nil.
	Coords [][]float64

	Name, Type string

	// Attributes holds any other attributes of the feature.
	Attributes map[string]string
}

// NormalizeStats counts what Normalize removed.
type NormalizeStats struct {
	In, Out    int
	Malformed  int
	Duplicates int
}

// LineFromCoords builds a 2D line from coordinate tuples, discarding any
// ordinate after the second.
func LineFromCoords(coords [][]float64) (geom.LineString, error) {
	l := make(geom.LineString, 0, len(coords))
	for i, c := range coords {
		if len(c) < 2 {
			return nil, fmt.Errorf("coordinate %d has %d ordinates", i, len(c))
		}
		l = append(l, geom.Point{X: c[0], Y: c[1]})
	}
	return l, nil
}

// PointFromCoords builds a 2D point from a coordinate tuple, discarding any
// ordinate after the second.
func PointFromCoords(c []float64) (geom.Point, error) {
	if len(c) < 2 {
		return geom.Point{}, fmt.Errorf("coordinate has %d ordinates", len(c))
	}
	return geom.Point{X: c[0], Y: c[1]}, nil
}

// lineParts returns the single-part 2D lines making up f.
func (f *Feature) lineParts() ([]geom.LineString, error) {
	if f.Geometry == nil {
		if f.Coords == nil {
			return nil, fmt.Errorf("empty geometry")
		}
		l, err := LineFromCoords(f.Coords)
		if err != nil {
			return nil, err
		}
		return []geom.LineString{l}, nil
	}
	switch g := f.Geometry.(type) {
	case geom.LineString:
		return []geom.LineString{g}, nil
	case geom.MultiLineString:
		return g, nil
	default:
		return nil, fmt.Errorf("unsupported geometry type %T", f.Geometry)
	}
}

func degenerate(l geom.LineString) string {
	if len(l) < 2 {
		return fmt.Sprintf("%d coordinates", len(l))
	}
	for _, p := range l[1:] {
		if !p.Equals(l[0]) {
			return ""
		}
	}
	return "all coordinates are identical"
}

// zeroed returns a copy of l in which negative zero coordinates are
// replaced by zero, so that the duplicate key agrees with coordinate
// equality.
func zeroed(l geom.LineString) geom.LineString {
	o := make(geom.LineString, len(l))
	for i, p := range l {
		if p.X == 0 {
			p.X = 0
		}
		if p.Y == 0 {
			p.Y = 0
		}
		o[i] = p
	}
	return o
}

// Normalize prepares line features for graph building. Multi-part lines are
// split into one feature per part, coordinates are reduced to 2D, features
// that cannot form a line are dropped, and exact geometry duplicates are
// dropped keeping the first occurrence. The input is not modified.
func Normalize(features []*Feature, log logrus.FieldLogger) ([]*Feature, NormalizeStats) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	stats := NormalizeStats{In: len(features)}
	seen := make(map[string]bool)
	var o []*Feature
	for i, f := range features {
		parts, err := f.lineParts()
		if err != nil {
			stats.Malformed++
			log.WithFields(logrus.Fields{"feature": i}).Warn(
				(&MalformedGeometryError{Index: i, Reason: err.Error()}).Error())
			continue
		}
		for _, l := range parts {
			if reason := degenerate(l); reason != "" {
				stats.Malformed++
				log.WithFields(logrus.Fields{"feature": i}).Warn(
					(&MalformedGeometryError{Index: i, Reason: reason}).Error())
				continue
			}
			l = zeroed(l)
			key := hash.Geometry(l)
			if seen[key] {
				stats.Duplicates++
				continue
			}
			seen[key] = true
			o = append(o, &Feature{
				Geometry:   l,
				Name:       f.Name,
				Type:       f.Type,
				Attributes: f.Attributes,
			})
		}
	}
	stats.Out = len(o)
	log.WithFields(logrus.Fields{
		"in":         stats.In,
		"out":        stats.Out,
		"malformed":  stats.Malformed,
		"duplicates": stats.Duplicates,
	}).Info("normalized line features")
	return o, stats
}
