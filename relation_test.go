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
	"context"
	"reflect"
	"testing"

	"github.com/ctessum/geom"
)

// linesGraph builds a graph without repairs from the given lines.
func linesGraph(t *testing.T, lines ...geom.LineString) *Graph {
	var f []*Feature
	for _, l := range lines {
		f = append(f, &Feature{Geometry: l})
	}
	g, err := Build(f, quietLog())
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func barrier(id int, typ BarrierType, l ...geom.LineString) *Barrier {
	return &Barrier{ID: id, Type: typ, Geometry: geom.MultiLineString(l)}
}

func TestTouchingBarrier(t *testing.T) {
	g := linesGraph(t, line(0, 0, 100, 0))
	r := NewRelationEngine(g.Snapshot(), []*Barrier{
		barrier(0, Water, line(100, 0, 150, 50)),
		barrier(1, Road, line(0, 0, -50, 0)),
	}, DefaultConfig())
	r.Log = quietLog()

	crossing, err := r.Crossing(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(crossing) != 0 {
		t.Errorf("touching barriers should not cross, have %v", crossing)
	}
	along, err := r.Along(0, 200)
	if err != nil {
		t.Fatal(err)
	}
	if len(along) != 0 {
		t.Errorf("touching barriers should not be along, have %v", along)
	}
	rels, err := r.Assign(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if want := []Relations{{EdgeID: 0}}; !reflect.DeepEqual(rels, want) {
		t.Errorf("want %+v but have %+v", want, rels)
	}
}

func TestCrossingNotAlong(t *testing.T) {
	g := linesGraph(t, line(0, 0, 100, 0))
	r := NewRelationEngine(g.Snapshot(), []*Barrier{
		barrier(0, Water, line(50, -50, 50, 50)),
		barrier(1, Water, line(0, 40, 100, 40)),
	}, DefaultConfig())
	r.Log = quietLog()

	crossing, err := r.Crossing(0, Water)
	if err != nil {
		t.Fatal(err)
	}
	if want := []int{0}; !reflect.DeepEqual(crossing, want) {
		t.Errorf("want crossing %v but have %v", want, crossing)
	}
	along, err := r.Along(0, 200, Water)
	if err != nil {
		t.Fatal(err)
	}
	if want := []int{1}; !reflect.DeepEqual(along, want) {
		t.Errorf("want along %v but have %v", want, along)
	}
	along, crossing, bridge, err := r.AlongWater(0)
	if err != nil {
		t.Fatal(err)
	}
	if !bridge || len(along) != 0 || !reflect.DeepEqual(crossing, []int{0}) {
		t.Errorf("want a bridge with no water along it but have %v, %v, %v", along, crossing, bridge)
	}
	sep, err := r.Separating(0)
	if err != nil {
		t.Fatal(err)
	}
	if !sep {
		t.Error("an edge crossing water is separating")
	}
}

func TestAlongOccluded(t *testing.T) {
	g := linesGraph(t, line(0, 0, 100, 0), line(0, 30, 100, 30))
	r := NewRelationEngine(g.Snapshot(), []*Barrier{
		barrier(0, Road, line(0, 60, 100, 60)),
	}, DefaultConfig())
	r.Log = quietLog()

	for _, test := range []struct {
		edge int
		want []int
	}{
		{edge: 0},
		{edge: 1, want: []int{0}},
	} {
		along, err := r.Along(test.edge, 100, Road)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(along, test.want) {
			t.Errorf("edge %d: want %v but have %v", test.edge, test.want, along)
		}
	}
	if along, _ := r.Along(1, 20, Road); len(along) != 0 {
		t.Errorf("barrier is beyond the offset but have %v", along)
	}
	if along, _ := r.Along(1, 100, Water); len(along) != 0 {
		t.Errorf("no water barriers but have %v", along)
	}
}

func TestWithinParks(t *testing.T) {
	g := linesGraph(t, line(50, 50, 150, 50), line(0, -10, 200, -10))
	park := barrier(0, Park, line(0, 0, 200, 0, 200, 200, 0, 200, 0, 0))
	r := NewRelationEngine(g.Snapshot(), []*Barrier{park}, DefaultConfig())
	r.Log = quietLog()

	within, err := r.Within(0)
	if err != nil {
		t.Fatal(err)
	}
	if want := []int{0}; !reflect.DeepEqual(within, want) {
		t.Errorf("want within %v but have %v", want, within)
	}
	if within, _ := r.Within(1); len(within) != 0 {
		t.Errorf("edge outside the park is not within it, have %v", within)
	}
	aw, err := r.AlongWithinParks(0)
	if err != nil {
		t.Fatal(err)
	}
	if want := []int{0}; !reflect.DeepEqual(aw, want) {
		t.Errorf("want %v but have %v", want, aw)
	}

	rels, err := g.AssignBarriers(context.Background(), []*Barrier{park}, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	want := []Relations{
		{EdgeID: 0, Within: []int{0}},
		{EdgeID: 1, Along: []int{0}},
	}
	if !reflect.DeepEqual(rels, want) {
		t.Errorf("want %+v but have %+v", want, rels)
	}
	if e := g.Edge(0); !reflect.DeepEqual(e.Within, []int{0}) || len(e.Along) != 0 {
		t.Errorf("relations not stored: %+v", e)
	}
}

func TestAssignParallel(t *testing.T) {
	var lines []geom.LineString
	for i := 0; i < 50; i++ {
		y := float64(i * 10)
		lines = append(lines, line(0, y, 100, y))
	}
	g := linesGraph(t, lines...)
	barriers := []*Barrier{
		barrier(0, Water, line(50, -20, 50, 600)),
		barrier(1, Railway, line(-30, -20, -30, 600)),
	}
	cfg := DefaultConfig()
	cfg.Workers = 4
	rels, err := g.AssignBarriers(context.Background(), barriers, cfg)
	if err != nil {
		t.Fatal(err)
	}
	for i, rel := range rels {
		if rel.EdgeID != i {
			t.Errorf("relation %d is for edge %d", i, rel.EdgeID)
		}
		if !rel.Bridge || !rel.Separating || !reflect.DeepEqual(rel.Crossing, []int{0}) {
			t.Errorf("edge %d should cross the river: %+v", i, rel)
		}
		if want := []int{1}; !reflect.DeepEqual(rel.Along, want) {
			t.Errorf("edge %d: want the railway along but have %v", i, rel.Along)
		}
	}
}

func TestStaleRelations(t *testing.T) {
	g := linesGraph(t, line(0, 0, 100, 0))
	r := NewRelationEngine(g.Snapshot(), nil, DefaultConfig())
	r.Log = quietLog()
	rels, err := r.Assign(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	g.removeEdge(0)
	if err := g.ApplyRelations(rels); err == nil {
		t.Error("relations for a removed edge should be rejected")
	}
	if _, err := r.Crossing(5); err == nil {
		t.Error("querying a missing edge should fail")
	}
}
