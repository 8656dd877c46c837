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
	"math"
	"sort"

	"github.com/ctessum/geom"
)

// dist returns the euclidean distance between a and b.
func dist(a, b geom.Point) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

// centroid returns the centroid of two points.
func centroid(a, b geom.Point) geom.Point {
	if a.Equals(b) {
		return a
	}
	return geom.Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
}

// orient returns the sign of the cross product (b-a)x(c-a).
func orient(a, b, c geom.Point) int {
	v := (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// closestOnSegment returns the point of segment ab closest to p and its
// parameter t in [0, 1].
func closestOnSegment(p, a, b geom.Point) (geom.Point, float64) {
	dx, dy := b.X-a.X, b.Y-a.Y
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return a, 0
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / l2
	switch {
	case t <= 0:
		return a, 0
	case t >= 1:
		return b, 1
	}
	return geom.Point{X: a.X + t*dx, Y: a.Y + t*dy}, t
}

// project returns the point of l nearest to p, its distance from p and its
// distance along l from the first coordinate.
func project(p geom.Point, l geom.LineString) (q geom.Point, d, along float64) {
	d = math.Inf(1)
	walked := 0.
	for i := 0; i < len(l)-1; i++ {
		c, t := closestOnSegment(p, l[i], l[i+1])
		seg := dist(l[i], l[i+1])
		if cd := dist(p, c); cd < d {
			q, d, along = c, cd, walked+t*seg
		}
		walked += seg
	}
	if len(l) == 1 {
		q, d = l[0], dist(p, l[0])
	}
	return q, d, along
}

// nearestPoint returns the point of any part of ml nearest to p and its
// distance from p.
func nearestPoint(p geom.Point, ml geom.MultiLineString) (geom.Point, float64) {
	var q geom.Point
	d := math.Inf(1)
	for _, l := range ml {
		c, cd, _ := project(p, l)
		if cd < d {
			q, d = c, cd
		}
	}
	return q, d
}

// interpolate returns the point at distance along l from its first
// coordinate, clamped to the ends of l.
func interpolate(l geom.LineString, along float64) geom.Point {
	if along <= 0 {
		return l[0]
	}
	walked := 0.
	for i := 0; i < len(l)-1; i++ {
		seg := dist(l[i], l[i+1])
		if seg > 0 && walked+seg >= along {
			t := (along - walked) / seg
			return geom.Point{
				X: l[i].X + t*(l[i+1].X-l[i].X),
				Y: l[i].Y + t*(l[i+1].Y-l[i].Y),
			}
		}
		walked += seg
	}
	return l[len(l)-1]
}

// midpoint returns the point halfway along l.
func midpoint(l geom.LineString) geom.Point {
	return interpolate(l, l.Length()/2)
}

// cut splits l at distance along from its first coordinate. The last
// coordinate of the first part equals the first coordinate of the second
// part, and equals an existing vertex of l when the cut falls on one.
func cut(l geom.LineString, along float64) (geom.LineString, geom.LineString) {
	walked := 0.
	for i := 0; i < len(l)-1; i++ {
		seg := dist(l[i], l[i+1])
		if walked+seg < along {
			walked += seg
			continue
		}
		var p geom.Point
		switch {
		case along <= walked:
			p = l[i]
		case along >= walked+seg:
			p = l[i+1]
		default:
			t := (along - walked) / seg
			p = geom.Point{X: l[i].X + t*(l[i+1].X-l[i].X), Y: l[i].Y + t*(l[i+1].Y-l[i].Y)}
		}
		first := append(append(geom.LineString{}, l[:i+1]...), p)
		if p.Equals(l[i]) {
			first = append(geom.LineString{}, l[:i+1]...)
		}
		second := append(geom.LineString{p}, l[i+1:]...)
		if p.Equals(l[i+1]) {
			second = append(geom.LineString{}, l[i+1:]...)
		}
		return first, second
	}
	return append(geom.LineString{}, l...), geom.LineString{l[len(l)-1]}
}

// cutAt splits l at its point nearest to p.
func cutAt(l geom.LineString, p geom.Point) (first, second geom.LineString, at geom.Point) {
	at, _, along := project(p, l)
	first, second = cut(l, along)
	// Use the exact cut coordinate so both halves share it bit for bit.
	at = second[0]
	first[len(first)-1] = at
	return first, second, at
}

// reversed returns a reversed copy of l.
func reversed(l geom.LineString) geom.LineString {
	o := make(geom.LineString, len(l))
	for i, p := range l {
		o[len(l)-1-i] = p
	}
	return o
}

// onSegment reports whether p, which is collinear with ab, lies within
// the bounding box of ab.
func onSegment(p, a, b geom.Point) bool {
	return math.Min(a.X, b.X) <= p.X && p.X <= math.Max(a.X, b.X) &&
		math.Min(a.Y, b.Y) <= p.Y && p.Y <= math.Max(a.Y, b.Y)
}

// segmentIntersection returns the number of distinct intersection points of
// segments ab and cd: 0, 1 (returned in p0) or 2 for a collinear overlap
// (its end points in p0 and p1). Intersections located on a segment end are
// returned with the exact end coordinates.
func segmentIntersection(a, b, c, d geom.Point) (n int, p0, p1 geom.Point) {
	o1, o2 := orient(a, b, c), orient(a, b, d)
	o3, o4 := orient(c, d, a), orient(c, d, b)
	if o1 == 0 && o2 == 0 && o3 == 0 && o4 == 0 {
		return collinearOverlap(a, b, c, d)
	}
	if o1*o2 > 0 || o3*o4 > 0 {
		return 0, p0, p1
	}
	switch {
	case o1 == 0 && onSegment(c, a, b):
		return 1, c, p1
	case o2 == 0 && onSegment(d, a, b):
		return 1, d, p1
	case o3 == 0 && onSegment(a, c, d):
		return 1, a, p1
	case o4 == 0 && onSegment(b, c, d):
		return 1, b, p1
	case o1 == 0 || o2 == 0 || o3 == 0 || o4 == 0:
		return 0, p0, p1
	}
	den := (b.X-a.X)*(d.Y-c.Y) - (b.Y-a.Y)*(d.X-c.X)
	t := ((c.X-a.X)*(d.Y-c.Y) - (c.Y-a.Y)*(d.X-c.X)) / den
	return 1, geom.Point{X: a.X + t*(b.X-a.X), Y: a.Y + t*(b.Y-a.Y)}, p1
}

func collinearOverlap(a, b, c, d geom.Point) (int, geom.Point, geom.Point) {
	var pts []geom.Point
	add := func(p geom.Point) {
		for _, q := range pts {
			if q.Equals(p) {
				return
			}
		}
		pts = append(pts, p)
	}
	for _, p := range []geom.Point{a, b} {
		if onSegment(p, c, d) {
			add(p)
		}
	}
	for _, p := range []geom.Point{c, d} {
		if onSegment(p, a, b) {
			add(p)
		}
	}
	switch len(pts) {
	case 0:
		return 0, geom.Point{}, geom.Point{}
	case 1:
		return 1, pts[0], geom.Point{}
	}
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].X != pts[j].X {
			return pts[i].X < pts[j].X
		}
		return pts[i].Y < pts[j].Y
	})
	return 2, pts[0], pts[len(pts)-1]
}

// lineDistance returns the minimum distance between any part of a and any
// part of b. Lines that do not intersect are closest at a vertex of one of
// them.
func lineDistance(a, b geom.MultiLineString) float64 {
	if intersects(a, b) {
		return 0
	}
	m := math.Inf(1)
	for _, pair := range [2][2]geom.MultiLineString{{a, b}, {b, a}} {
		for _, l := range pair[0] {
			for _, p := range l {
				m = math.Min(m, pair[1].Distance(p))
			}
		}
	}
	return m
}

// expand returns a copy of b grown by r in every direction.
func expand(b *geom.Bounds, r float64) *geom.Bounds {
	if math.IsInf(r, 1) {
		return &geom.Bounds{
			Min: geom.Point{X: math.Inf(-1), Y: math.Inf(-1)},
			Max: geom.Point{X: math.Inf(1), Y: math.Inf(1)},
		}
	}
	return &geom.Bounds{
		Min: geom.Point{X: b.Min.X - r, Y: b.Min.Y - r},
		Max: geom.Point{X: b.Max.X + r, Y: b.Max.Y + r},
	}
}

// intersects reports whether any part of a shares at least one point with
// any part of b.
func intersects(a, b geom.MultiLineString) bool {
	for _, la := range a {
		for _, lb := range b {
			if !la.Bounds().Overlaps(lb.Bounds()) {
				continue
			}
			for i := 0; i < len(la)-1; i++ {
				for j := 0; j < len(lb)-1; j++ {
					if n, _, _ := segmentIntersection(la[i], la[i+1], lb[j], lb[j+1]); n > 0 {
						return true
					}
				}
			}
		}
	}
	return false
}

// boundary returns the boundary points of ml following the mod-2 rule:
// an end point is on the boundary if it closes an odd number of parts.
// Closed parts therefore have no boundary.
func boundary(ml geom.MultiLineString) map[geom.Point]bool {
	count := make(map[geom.Point]int)
	for _, l := range ml {
		if len(l) < 2 {
			continue
		}
		count[l[0]]++
		count[l[len(l)-1]]++
	}
	o := make(map[geom.Point]bool)
	for p, c := range count {
		if c%2 == 1 {
			o[p] = true
		}
	}
	return o
}

// lineRelation summarises how two linear geometries meet.
type lineRelation struct {
	intersects bool // at least one shared point
	interiors  bool // the interiors share at least one point
}

// touches is true when the geometries meet only at boundary points.
func (r lineRelation) touches() bool { return r.intersects && !r.interiors }

// crosses is true when the interiors of the geometries meet.
func (r lineRelation) crosses() bool { return r.interiors }

// relateLines classifies the intersection of a and b.
func relateLines(a, b geom.MultiLineString) lineRelation {
	var r lineRelation
	ba, bb := boundary(a), boundary(b)
	for _, la := range a {
		for _, lb := range b {
			if !la.Bounds().Overlaps(lb.Bounds()) {
				continue
			}
			for i := 0; i < len(la)-1; i++ {
				for j := 0; j < len(lb)-1; j++ {
					n, p0, p1 := segmentIntersection(la[i], la[i+1], lb[j], lb[j+1])
					switch n {
					case 0:
						continue
					case 1:
						r.intersects = true
						if !ba[p0] && !bb[p0] {
							r.interiors = true
						}
					default:
						// The middle of an overlap is interior to both.
						r.intersects = true
						if !p0.Equals(p1) {
							r.interiors = true
						}
					}
					if r.interiors {
						return r
					}
				}
			}
		}
	}
	return r
}

// interiorMeetsArea reports whether the interior of l shares at least one
// point with the interior of polygon pg.
func interiorMeetsArea(l geom.LineString, pg geom.Polygon) bool {
	if !l.Bounds().Overlaps(pg.Bounds()) {
		return false
	}
	for i := 0; i < len(l)-1; i++ {
		a, b := l[i], l[i+1]
		seg := dist(a, b)
		if seg == 0 {
			continue
		}
		// Split the segment wherever it meets a ring, then test the middle
		// of every piece.
		ts := []float64{0, 1}
		for _, ring := range pg {
			for j := 0; j < len(ring)-1; j++ {
				n, p0, p1 := segmentIntersection(a, b, ring[j], ring[j+1])
				if n > 0 {
					ts = append(ts, dist(a, p0)/seg)
				}
				if n > 1 {
					ts = append(ts, dist(a, p1)/seg)
				}
			}
		}
		sort.Float64s(ts)
		for k := 0; k < len(ts)-1; k++ {
			if ts[k+1]-ts[k] <= 0 {
				continue
			}
			t := (ts[k] + ts[k+1]) / 2
			p := geom.Point{X: a.X + t*(b.X-a.X), Y: a.Y + t*(b.Y-a.Y)}
			if p.Within(pg) == geom.Inside {
				return true
			}
		}
	}
	return false
}

// closed reports whether l is a ring.
func closed(l geom.LineString) bool {
	return len(l) > 3 && l[0].Equals(l[len(l)-1])
}
