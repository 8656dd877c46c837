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
	"fmt"
	"runtime"
	"sort"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// RelationEngine answers spatial relation queries between the edges of a
// graph snapshot and a set of barriers. It is safe for concurrent use.
// Because it only sees the snapshot it was built from, it never observes
// later changes to the graph; take a new snapshot to query a changed graph.
type RelationEngine struct {
	snap     *Snapshot
	barriers map[int]*Barrier
	parks    map[int]geom.Polygon

	edgeIndex, barrierIndex *rtree.Rtree

	cfg Config

	// Log receives progress messages.
	Log logrus.FieldLogger
}

// NewRelationEngine indexes the edges of s and the barriers.
func NewRelationEngine(s *Snapshot, barriers []*Barrier, cfg Config) *RelationEngine {
	r := &RelationEngine{
		snap:         s,
		barriers:     make(map[int]*Barrier, len(barriers)),
		parks:        make(map[int]geom.Polygon),
		edgeIndex:    newEdgeIndex(s.Edges),
		barrierIndex: newBarrierIndex(barriers),
		cfg:          cfg,
		Log:          logrus.StandardLogger(),
	}
	for _, b := range barriers {
		r.barriers[b.ID] = b
		if b.Type == Park {
			if pg := b.polygon(); len(pg) > 0 {
				r.parks[b.ID] = pg
			}
		}
	}
	return r
}

func (r *RelationEngine) edge(id int) (*Edge, error) {
	e := r.snap.Edge(id)
	if e == nil {
		return nil, fmt.Errorf("citygraph: edge %d is not in the snapshot", id)
	}
	return e, nil
}

// candidates returns the barriers of the given types, or of any type if
// none are given, whose bounds meet b. They are ordered by ID.
func (r *RelationEngine) candidates(b *geom.Bounds, types []BarrierType) []*Barrier {
	var o []*Barrier
	for _, item := range r.barrierIndex.SearchIntersect(b) {
		br := item.(barrierItem).barrier
		if hasType(types, br.Type) {
			o = append(o, br)
		}
	}
	sort.Slice(o, func(i, j int) bool { return o[i].ID < o[j].ID })
	return o
}

func hasType(types []BarrierType, t BarrierType) bool {
	if len(types) == 0 {
		return true
	}
	for _, tt := range types {
		if tt == t {
			return true
		}
	}
	return false
}

// Crossing returns the IDs of the barriers of the given types whose
// interior meets the interior of the edge. Barriers that only touch the
// edge at end points are not crossing.
func (r *RelationEngine) Crossing(edgeID int, types ...BarrierType) ([]int, error) {
	e, err := r.edge(edgeID)
	if err != nil {
		return nil, err
	}
	return r.crossing(e, types), nil
}

func (r *RelationEngine) crossing(e *Edge, types []BarrierType) []int {
	line := geom.MultiLineString{e.Geometry}
	var o []int
	for _, b := range r.candidates(e.Geometry.Bounds(), types) {
		if relateLines(line, b.Geometry).crosses() {
			o = append(o, b.ID)
		}
	}
	return o
}

// Along returns the IDs of the barriers of the given types that lie
// within offset of the edge without touching or crossing it and that can
// be seen from the middle of the edge: the straight line from the middle
// of the edge to the nearest point of the barrier must not meet any other
// edge.
func (r *RelationEngine) Along(edgeID int, offset float64, types ...BarrierType) ([]int, error) {
	e, err := r.edge(edgeID)
	if err != nil {
		return nil, err
	}
	return r.along(e, offset, types), nil
}

func (r *RelationEngine) along(e *Edge, offset float64, types []BarrierType) []int {
	line := geom.MultiLineString{e.Geometry}
	mid := midpoint(e.Geometry)
	crossing := make(map[int]bool)
	for _, id := range r.crossing(e, types) {
		crossing[id] = true
	}
	var o []int
	for _, b := range r.candidates(expand(e.Geometry.Bounds(), offset), types) {
		if crossing[b.ID] || lineDistance(line, b.Geometry) > offset {
			continue
		}
		if relateLines(line, b.Geometry).touches() {
			continue
		}
		q, _ := nearestPoint(mid, b.Geometry)
		if r.occluded(e.ID, geom.LineString{mid, q}) {
			continue
		}
		o = append(o, b.ID)
	}
	return o
}

// occluded reports whether any edge other than the one with the given ID
// meets the sight line.
func (r *RelationEngine) occluded(edgeID int, sight geom.LineString) bool {
	s := geom.MultiLineString{sight}
	for _, item := range r.edgeIndex.SearchIntersect(sight.Bounds()) {
		o := item.(edgeItem).edge
		if o.ID == edgeID {
			continue
		}
		if intersects(s, geom.MultiLineString{o.Geometry}) {
			return true
		}
	}
	return false
}

// Within returns the IDs of the parks whose area, bounded by the park's
// rings, shares interior points with the edge. Edges that only touch a
// park boundary are not within it.
func (r *RelationEngine) Within(edgeID int) ([]int, error) {
	e, err := r.edge(edgeID)
	if err != nil {
		return nil, err
	}
	return r.within(e), nil
}

func (r *RelationEngine) within(e *Edge) []int {
	var o []int
	for _, b := range r.candidates(e.Geometry.Bounds(), []BarrierType{Park}) {
		pg, ok := r.parks[b.ID]
		if ok && interiorMeetsArea(e.Geometry, pg) {
			o = append(o, b.ID)
		}
	}
	return o
}

// AlongWater returns the water barriers along and crossing the edge. An
// edge that crosses water is a bridge and has no water along it.
func (r *RelationEngine) AlongWater(edgeID int) (along, crossing []int, bridge bool, err error) {
	e, err := r.edge(edgeID)
	if err != nil {
		return nil, nil, false, err
	}
	along, crossing, bridge = r.alongWater(e)
	return along, crossing, bridge, nil
}

func (r *RelationEngine) alongWater(e *Edge) (along, crossing []int, bridge bool) {
	crossing = r.crossing(e, []BarrierType{Water})
	if len(crossing) > 0 {
		return nil, crossing, true
	}
	return r.along(e, r.cfg.WaterOffset, []BarrierType{Water}), nil, false
}

// AlongWithinParks returns the parks along the edge together with the
// parks the edge runs through, without repetition.
func (r *RelationEngine) AlongWithinParks(edgeID int) ([]int, error) {
	e, err := r.edge(edgeID)
	if err != nil {
		return nil, err
	}
	return union(r.along(e, r.cfg.ParkOffset, []BarrierType{Park}), r.within(e)), nil
}

// Separating reports whether the edge crosses a structuring barrier, that
// is, any barrier that is not a park.
func (r *RelationEngine) Separating(edgeID int) (bool, error) {
	e, err := r.edge(edgeID)
	if err != nil {
		return false, err
	}
	return len(r.crossing(e, []BarrierType{Road, Water, Railway})) > 0, nil
}

func union(a, b []int) []int {
	seen := make(map[int]bool, len(a)+len(b))
	var o []int
	for _, s := range [][]int{a, b} {
		for _, id := range s {
			if !seen[id] {
				seen[id] = true
				o = append(o, id)
			}
		}
	}
	sort.Ints(o)
	return o
}

func subtract(a []int, b ...[]int) []int {
	drop := make(map[int]bool)
	for _, s := range b {
		for _, id := range s {
			drop[id] = true
		}
	}
	var o []int
	for _, id := range a {
		if !drop[id] {
			o = append(o, id)
		}
	}
	return o
}

// Relations holds the barrier relations of one edge. Along, Crossing and
// Within never share an ID.
type Relations struct {
	EdgeID int

	// Along holds water barriers (unless the edge is a bridge), parks,
	// roads and railways alongside the edge.
	Along []int

	// Crossing holds the water barriers the edge crosses.
	Crossing []int

	// Within holds the parks the edge runs through.
	Within []int

	Bridge     bool // len(Crossing) > 0
	Separating bool // the edge crosses a barrier that is not a park
}

func (r *RelationEngine) relate(e *Edge) Relations {
	rel := Relations{EdgeID: e.ID}
	var waterAlong []int
	waterAlong, rel.Crossing, rel.Bridge = r.alongWater(e)
	rel.Within = r.within(e)
	along := union(waterAlong, r.along(e, r.cfg.ParkOffset, []BarrierType{Park}))
	along = union(along, r.along(e, r.cfg.AlongOffset, []BarrierType{Road, Railway}))
	rel.Along = subtract(along, rel.Crossing, rel.Within)
	rel.Separating = len(r.crossing(e, []BarrierType{Road, Water, Railway})) > 0
	return rel
}

// Assign computes the relations of every edge of the snapshot, in the
// order of the snapshot edges. Edges are processed concurrently by at most
// cfg.Workers goroutines, or GOMAXPROCS when cfg.Workers is less than one.
func (r *RelationEngine) Assign(ctx context.Context) ([]Relations, error) {
	workers := r.cfg.Workers
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	o := make([]Relations, len(r.snap.Edges))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i, e := range r.snap.Edges {
		i, e := i, e
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			o[i] = r.relate(e)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("citygraph: problem assigning barriers: %v", err)
	}
	var bridges, separating int
	for _, rel := range o {
		if rel.Bridge {
			bridges++
		}
		if rel.Separating {
			separating++
		}
	}
	r.Log.WithFields(logrus.Fields{
		"edges":      len(o),
		"barriers":   len(r.barriers),
		"bridges":    bridges,
		"separating": separating,
	}).Info("assigned barriers")
	return o, nil
}

// ApplyRelations stores relations in the edges of g. It returns an error,
// before changing anything, if a relation refers to an edge g no longer
// has.
func (g *Graph) ApplyRelations(rels []Relations) error {
	var missing []int
	for _, rel := range rels {
		if _, ok := g.edges[rel.EdgeID]; !ok {
			missing = append(missing, rel.EdgeID)
		}
	}
	if len(missing) > 0 {
		return &InvariantError{Problem: "relations computed for edges no longer in the graph", EdgeIDs: missing}
	}
	for _, rel := range rels {
		e := g.edges[rel.EdgeID]
		e.Along, e.Crossing, e.Within = rel.Along, rel.Crossing, rel.Within
		e.Bridge, e.Separating = rel.Bridge, rel.Separating
	}
	return nil
}

// AssignBarriers snapshots g, computes the relations of all its edges to
// the barriers and stores them in the edges.
func (g *Graph) AssignBarriers(ctx context.Context, barriers []*Barrier, cfg Config) ([]Relations, error) {
	r := NewRelationEngine(g.Snapshot(), barriers, cfg)
	r.Log = g.Log
	rels, err := r.Assign(ctx)
	if err != nil {
		return nil, err
	}
	return rels, g.ApplyRelations(rels)
}
