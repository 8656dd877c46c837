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
	"strings"

	"github.com/ctessum/geom"
	"github.com/sirupsen/logrus"
)

// BarrierType is the kind of a barrier.
type BarrierType int

// Barrier kinds.
const (
	Road BarrierType = iota
	Water
	Railway
	Park
)

var barrierTypeNames = [...]string{"road", "water", "railway", "park"}

func (t BarrierType) String() string {
	if t < 0 || int(t) >= len(barrierTypeNames) {
		return fmt.Sprintf("BarrierType(%d)", int(t))
	}
	return barrierTypeNames[t]
}

// ParseBarrierType returns the barrier type with the given name.
func ParseBarrierType(s string) (BarrierType, error) {
	for i, n := range barrierTypeNames {
		if strings.EqualFold(strings.TrimSpace(s), n) {
			return BarrierType(i), nil
		}
	}
	return 0, fmt.Errorf("citygraph: invalid barrier type %q", s)
}

// Barrier is a linear feature that may obstruct or structure movement
// along the network. Parks are represented by their boundary rings.
type Barrier struct {
	ID       int
	Type     BarrierType
	Geometry geom.MultiLineString
}

// polygon returns the area enclosed by the closed parts of the barrier
// geometry, or nil if there are none.
func (b *Barrier) polygon() geom.Polygon {
	var pg geom.Polygon
	for _, l := range b.Geometry {
		if closed(l) {
			pg = append(pg, []geom.Point(l))
		}
	}
	return pg
}

// BarrierStats counts the outcome of AssembleBarriers.
type BarrierStats struct {
	In, Out   int
	Malformed int
	Tunnels   int
	Dangling  int // short road sectors with dangling ends
	SmallPark int
}

type barrierPart struct {
	typ   BarrierType
	shape geom.MultiLineString
}

// AssembleBarriers turns typed features into barriers with dense IDs in
// input order. The Type of each feature names the barrier type. Line
// features become one barrier per part. Road tunnels are skipped, as are
// road sectors that are probably not continuous enough to act as barriers:
// sectors with both ends dangling shorter than cfg.RoadIsolatedLength and
// sectors with one dangling end shorter than cfg.RoadDanglingLength. Park
// polygons smaller than cfg.MinParkArea are skipped; the others become
// barriers made of their rings.
func AssembleBarriers(features []*Feature, cfg Config, log logrus.FieldLogger) ([]*Barrier, BarrierStats, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	stats := BarrierStats{In: len(features)}
	var parts []barrierPart
	for i, f := range features {
		typ, err := ParseBarrierType(f.Type)
		if err != nil {
			return nil, stats, fmt.Errorf("citygraph: barrier feature %d: %v", i, err)
		}
		if typ == Road && isTunnel(f.Attributes) {
			stats.Tunnels++
			continue
		}
		if typ == Park {
			pgs, err := parkPolygons(f)
			if err != nil {
				stats.Malformed++
				log.WithFields(logrus.Fields{"feature": i}).Warn(
					(&MalformedGeometryError{Index: i, Reason: err.Error()}).Error())
				continue
			}
			for _, pg := range pgs {
				if pg.Area() < cfg.MinParkArea {
					stats.SmallPark++
					continue
				}
				var rings geom.MultiLineString
				for _, r := range pg {
					rings = append(rings, closeRing(r))
				}
				parts = append(parts, barrierPart{typ: Park, shape: rings})
			}
			continue
		}
		lines, err := f.lineParts()
		if err != nil {
			stats.Malformed++
			log.WithFields(logrus.Fields{"feature": i}).Warn(
				(&MalformedGeometryError{Index: i, Reason: err.Error()}).Error())
			continue
		}
		for _, l := range lines {
			if reason := degenerate(l); reason != "" {
				stats.Malformed++
				log.WithFields(logrus.Fields{"feature": i}).Warn(
					(&MalformedGeometryError{Index: i, Reason: reason}).Error())
				continue
			}
			parts = append(parts, barrierPart{typ: typ, shape: geom.MultiLineString{append(geom.LineString{}, l...)}})
		}
	}

	ends := make(map[geom.Point]int)
	for _, p := range parts {
		if p.typ == Road {
			l := p.shape[0]
			ends[l[0]]++
			ends[l[len(l)-1]]++
		}
	}
	var o []*Barrier
	for _, p := range parts {
		if p.typ == Road {
			l := p.shape[0]
			from, to := ends[l[0]] == 1, ends[l[len(l)-1]] == 1
			length := l.Length()
			if (from && to && length < cfg.RoadIsolatedLength) || ((from || to) && length < cfg.RoadDanglingLength) {
				stats.Dangling++
				continue
			}
		}
		o = append(o, &Barrier{ID: len(o), Type: p.typ, Geometry: p.shape})
	}
	stats.Out = len(o)
	log.WithFields(logrus.Fields{
		"in":         stats.In,
		"out":        stats.Out,
		"malformed":  stats.Malformed,
		"tunnels":    stats.Tunnels,
		"dangling":   stats.Dangling,
		"small_park": stats.SmallPark,
	}).Info("assembled barriers")
	return o, stats, nil
}

func isTunnel(attr map[string]string) bool {
	switch strings.ToLower(strings.TrimSpace(attr["tunnel"])) {
	case "", "0", "no", "false":
		return false
	}
	return true
}

// parkPolygons returns the polygons of a park feature. Closed lines are
// accepted as single-ring polygons.
func parkPolygons(f *Feature) ([]geom.Polygon, error) {
	switch t := f.Geometry.(type) {
	case geom.Polygon:
		return []geom.Polygon{t}, nil
	case geom.MultiPolygon:
		return t, nil
	}
	lines, err := f.lineParts()
	if err != nil {
		return nil, err
	}
	var o []geom.Polygon
	for _, l := range lines {
		if !closed(l) {
			return nil, fmt.Errorf("park outline is not closed")
		}
		o = append(o, geom.Polygon{[]geom.Point(l)})
	}
	return o, nil
}

// closeRing returns r as a line whose last coordinate repeats the first.
func closeRing(r []geom.Point) geom.LineString {
	l := append(geom.LineString{}, r...)
	if len(l) > 0 && !l[0].Equals(l[len(l)-1]) {
		l = append(l, l[0])
	}
	return l
}
