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
	"reflect"
	"testing"

	"github.com/ctessum/geom"
	"gonum.org/v1/gonum/floats"
)

func TestProject(t *testing.T) {
	l := line(0, 0, 10, 0, 10, 10)
	q, d, along := project(geom.Point{X: 12, Y: 4}, l)
	if want := (geom.Point{X: 10, Y: 4}); q != want {
		t.Errorf("want %v but have %v", want, q)
	}
	if d != 2 {
		t.Errorf("want distance 2 but have %g", d)
	}
	if along != 14 {
		t.Errorf("want along 14 but have %g", along)
	}
}

func TestCut(t *testing.T) {
	l := line(0, 0, 10, 0, 10, 10)
	for _, test := range []struct {
		along         float64
		first, second geom.LineString
	}{
		{along: 5, first: line(0, 0, 5, 0), second: line(5, 0, 10, 0, 10, 10)},
		{along: 10, first: line(0, 0, 10, 0), second: line(10, 0, 10, 10)},
		{along: 15, first: line(0, 0, 10, 0, 10, 5), second: line(10, 5, 10, 10)},
		{along: 0, first: line(0, 0), second: line(0, 0, 10, 0, 10, 10)},
	} {
		first, second := cut(l, test.along)
		if !reflect.DeepEqual(first, test.first) {
			t.Errorf("%g first: want %v but have %v", test.along, test.first, first)
		}
		if !reflect.DeepEqual(second, test.second) {
			t.Errorf("%g second: want %v but have %v", test.along, test.second, second)
		}
		if test.along > 0 {
			sum := first.Length() + second.Length()
			if !floats.EqualWithinAbsOrRel(sum, l.Length(), 1e-10, 1e-10) {
				t.Errorf("%g: want total length %g but have %g", test.along, l.Length(), sum)
			}
		}
	}
}

func TestSegmentIntersection(t *testing.T) {
	p := func(x, y float64) geom.Point { return geom.Point{X: x, Y: y} }
	for _, test := range []struct {
		name       string
		a, b, c, d geom.Point
		n          int
		p0         geom.Point
	}{
		{name: "cross", a: p(0, 0), b: p(10, 10), c: p(0, 10), d: p(10, 0), n: 1, p0: p(5, 5)},
		{name: "disjoint", a: p(0, 0), b: p(1, 0), c: p(0, 1), d: p(1, 1), n: 0},
		{name: "end", a: p(0, 0), b: p(10, 0), c: p(10, 0), d: p(10, 10), n: 1, p0: p(10, 0)},
		{name: "tee", a: p(0, 0), b: p(10, 0), c: p(5, 0), d: p(5, 10), n: 1, p0: p(5, 0)},
		{name: "overlap", a: p(0, 0), b: p(10, 0), c: p(5, 0), d: p(15, 0), n: 2, p0: p(5, 0)},
	} {
		n, p0, _ := segmentIntersection(test.a, test.b, test.c, test.d)
		if n != test.n {
			t.Errorf("%s: want %d intersections but have %d", test.name, test.n, n)
		}
		if n > 0 && p0 != test.p0 {
			t.Errorf("%s: want %v but have %v", test.name, test.p0, p0)
		}
	}
}

func TestRelateLines(t *testing.T) {
	edge := geom.MultiLineString{line(0, 0, 100, 0)}
	for _, test := range []struct {
		name             string
		other            geom.MultiLineString
		touches, crosses bool
	}{
		{name: "end to end", other: geom.MultiLineString{line(100, 0, 150, 50)}, touches: true},
		{name: "collinear end", other: geom.MultiLineString{line(0, 0, -50, 0)}, touches: true},
		{name: "crossing", other: geom.MultiLineString{line(50, -50, 50, 50)}, crosses: true},
		{name: "barrier end on edge", other: geom.MultiLineString{line(50, 0, 50, 50)}, touches: true},
		{name: "edge end on barrier", other: geom.MultiLineString{line(100, -50, 100, 50)}, touches: true},
		{name: "apart", other: geom.MultiLineString{line(0, 10, 100, 10)}},
		{name: "overlap", other: geom.MultiLineString{line(50, 0, 150, 0)}, crosses: true},
	} {
		r := relateLines(edge, test.other)
		if r.touches() != test.touches {
			t.Errorf("%s: want touches %v but have %v", test.name, test.touches, r.touches())
		}
		if r.crosses() != test.crosses {
			t.Errorf("%s: want crosses %v but have %v", test.name, test.crosses, r.crosses())
		}
	}
}

func TestLineDistance(t *testing.T) {
	a := geom.MultiLineString{line(0, 0, 100, 0)}
	b := geom.MultiLineString{line(50, 30, 50, 60)}
	if d := lineDistance(a, b); d != 30 {
		t.Errorf("want 30 but have %g", d)
	}
	c := geom.MultiLineString{line(50, -10, 50, 10)}
	if d := lineDistance(a, c); d != 0 {
		t.Errorf("want 0 but have %g", d)
	}
	// The nearest vertex belongs to a.
	d := geom.MultiLineString{line(120, 5, 200, 5), line(300, 0, 400, 0)}
	if have, want := lineDistance(a, d), math.Hypot(20, 5); !floats.EqualWithinAbsOrRel(have, want, 1e-9, 1e-9) {
		t.Errorf("want %g but have %g", want, have)
	}
	if have, want := lineDistance(d, a), math.Hypot(20, 5); !floats.EqualWithinAbsOrRel(have, want, 1e-9, 1e-9) {
		t.Errorf("reversed: want %g but have %g", want, have)
	}
}

func TestInteriorMeetsArea(t *testing.T) {
	square := geom.Polygon{geom.Path(line(0, 0, 100, 0, 100, 100, 0, 100, 0, 0))}
	for _, test := range []struct {
		name string
		l    geom.LineString
		want bool
	}{
		{name: "inside", l: line(20, 20, 80, 20), want: true},
		{name: "through", l: line(-50, 50, 150, 50), want: true},
		{name: "on boundary", l: line(0, 0, 100, 0)},
		{name: "outside touching", l: line(100, 50, 150, 50)},
		{name: "outside", l: line(200, 0, 300, 0)},
	} {
		if have := interiorMeetsArea(test.l, square); have != test.want {
			t.Errorf("%s: want %v but have %v", test.name, test.want, have)
		}
	}
}
