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
	"sort"

	"github.com/ctessum/geom"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// RepairOptions selects the cleanup rules applied by Repair. Edge
// orientation, duplicate removal and removal of loops shorter than
// MinLoopLength are always applied.
type RepairOptions struct {
	// RemoveIslands keeps only the largest connected component.
	RemoveIslands bool

	// DeadEnds removes nodes of degree one, and their edges, until none
	// remain.
	DeadEnds bool

	// SameUVEdges keeps only the shortest of the edges joining the same
	// pair of nodes.
	SameUVEdges bool

	// SelfLoops removes every edge that starts and ends at the same node.
	SelfLoops bool

	// FixTopology splits edges where they meet other edges at points that
	// are not nodes.
	FixTopology bool

	MinLoopLength float64
}

// DefaultRepairOptions returns the conservative settings used between
// merge passes: only self loops are removed.
func DefaultRepairOptions() RepairOptions {
	return RepairOptions{SelfLoops: true, MinLoopLength: 1}
}

// RepairStats counts the changes made by Repair.
type RepairStats struct {
	Snapped, Reoriented int
	Duplicates          int
	DegenerateLoops     int
	SelfLoops           int
	SameUV              int
	DeadEnds            int
	IslandEdges         int
	TopologySplits      int
	OrphanNodes         int
	Passes              int
}

// Changes returns the total number of changes.
func (s RepairStats) Changes() int {
	return s.Snapped + s.Reoriented + s.Duplicates + s.DegenerateLoops + s.SelfLoops +
		s.SameUV + s.DeadEnds + s.IslandEdges + s.TopologySplits + s.OrphanNodes
}

func (s *RepairStats) add(o RepairStats) {
	s.Snapped += o.Snapped
	s.Reoriented += o.Reoriented
	s.Duplicates += o.Duplicates
	s.DegenerateLoops += o.DegenerateLoops
	s.SelfLoops += o.SelfLoops
	s.SameUV += o.SameUV
	s.DeadEnds += o.DeadEnds
	s.IslandEdges += o.IslandEdges
	s.TopologySplits += o.TopologySplits
	s.OrphanNodes += o.OrphanNodes
}

// Repair restores the graph invariants after a structural change. It
// repeats its rules until they no longer change anything, so calling it a
// second time makes no changes. It returns an *InvariantError, and leaves
// the graph untouched, if an edge references a missing node.
func (g *Graph) Repair(opts RepairOptions) (RepairStats, error) {
	var total RepairStats
	if err := g.validate(); err != nil {
		return total, err
	}
	limit := len(g.edges) + len(g.nodes) + 2
	for total.Passes < limit {
		var s RepairStats
		if err := g.repairPass(opts, &s); err != nil {
			return total, err
		}
		total.add(s)
		total.Passes++
		if s.Changes() == 0 {
			break
		}
	}
	if total.Changes() > 0 {
		g.Log.WithFields(logrus.Fields{
			"duplicates":       total.Duplicates,
			"degenerate_loops": total.DegenerateLoops,
			"self_loops":       total.SelfLoops,
			"same_uv":          total.SameUV,
			"dead_ends":        total.DeadEnds,
			"island_edges":     total.IslandEdges,
			"splits":           total.TopologySplits,
			"orphans":          total.OrphanNodes,
		}).Debug("repaired graph")
	}
	return total, nil
}

// validate checks that every edge references existing nodes.
func (g *Graph) validate() error {
	var badEdges, badNodes []int
	for _, e := range g.Edges() {
		bad := false
		for _, id := range []int{e.U, e.V} {
			if _, ok := g.nodes[id]; !ok {
				badNodes = append(badNodes, id)
				bad = true
			}
		}
		if bad {
			badEdges = append(badEdges, e.ID)
		}
		if e.ID < 0 {
			return &InvariantError{Problem: "negative edge ID", EdgeIDs: []int{e.ID}}
		}
	}
	if len(badEdges) > 0 {
		return &InvariantError{Problem: "edges reference missing nodes",
			EdgeIDs: badEdges, NodeIDs: badNodes}
	}
	for id, n := range g.nodes {
		if n.ID != id {
			return &InvariantError{Problem: "node stored under a different ID", NodeIDs: []int{id, n.ID}}
		}
	}
	for id, e := range g.edges {
		if e.ID != id {
			return &InvariantError{Problem: "edge stored under a different ID", EdgeIDs: []int{id, e.ID}}
		}
	}
	return nil
}

func (g *Graph) repairPass(opts RepairOptions, s *RepairStats) error {
	for _, e := range g.Edges() {
		if g.snapEnds(e) {
			s.Snapped++
		}
		if e.canonicalize() {
			s.Reoriented++
		}
	}
	if opts.FixTopology {
		n, err := g.fixTopology()
		if err != nil {
			return err
		}
		s.TopologySplits += n
	}
	s.Duplicates += g.dropDuplicates()
	for _, e := range g.Edges() {
		if e.U != e.V {
			continue
		}
		switch {
		case e.Length() < opts.MinLoopLength:
			g.removeEdge(e.ID)
			s.DegenerateLoops++
		case opts.SelfLoops:
			g.removeEdge(e.ID)
			s.SelfLoops++
		}
	}
	if opts.SameUVEdges {
		s.SameUV += g.dropSameUV()
	}
	if opts.DeadEnds {
		s.DeadEnds += g.dropDeadEnds()
	}
	if opts.RemoveIslands {
		s.IslandEdges += g.dropIslands()
	}
	s.OrphanNodes += g.dropOrphans()
	return nil
}

// snapEnds makes the end coordinates of e equal to the positions of its
// nodes. Node positions are authoritative.
func (g *Graph) snapEnds(e *Edge) bool {
	u, v := g.nodes[e.U].Point, g.nodes[e.V].Point
	last := len(e.Geometry) - 1
	if e.Geometry[0].Equals(u) && e.Geometry[last].Equals(v) {
		return false
	}
	e.Geometry = append(geom.LineString{}, e.Geometry...)
	e.Geometry[0], e.Geometry[last] = u, v
	return true
}

func sameCoords(a, b geom.LineString) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equals(b[i]) {
			return false
		}
	}
	return true
}

// dropDuplicates removes edges that join the same nodes along the same
// coordinates in either direction, keeping the one with the lowest ID.
func (g *Graph) dropDuplicates() int {
	kept := make(map[string][]*Edge)
	removed := 0
	for _, e := range g.Edges() {
		c := e.Code()
		dup := false
		for _, k := range kept[c] {
			if sameCoords(k.Geometry, e.Geometry) || sameCoords(k.Geometry, reversed(e.Geometry)) {
				dup = true
				break
			}
		}
		if dup {
			g.removeEdge(e.ID)
			removed++
			continue
		}
		kept[c] = append(kept[c], e)
	}
	return removed
}

// dropSameUV keeps the shortest edge, then the lowest ID, of every group
// of edges joining the same two nodes.
func (g *Graph) dropSameUV() int {
	best := make(map[string]*Edge)
	for _, e := range g.Edges() {
		c := e.Code()
		if b, ok := best[c]; !ok || e.Length() < b.Length() {
			best[c] = e
		}
	}
	removed := 0
	for _, e := range g.Edges() {
		if best[e.Code()] != e {
			g.removeEdge(e.ID)
			removed++
		}
	}
	return removed
}

func (g *Graph) dropDeadEnds() int {
	removed := 0
	for {
		deg := g.degree()
		n := 0
		for _, e := range g.Edges() {
			if e.U != e.V && (deg[e.U] == 1 || deg[e.V] == 1) {
				g.removeEdge(e.ID)
				n++
			}
		}
		if n == 0 {
			return removed
		}
		removed += n
	}
}

// dropIslands removes every edge outside the largest connected component.
// Ties go to the component holding the lowest node ID.
func (g *Graph) dropIslands() int {
	ug := simple.NewUndirectedGraph()
	for _, n := range g.Nodes() {
		ug.AddNode(simple.Node(n.ID))
	}
	for _, e := range g.Edges() {
		if e.U == e.V {
			continue
		}
		ug.SetEdge(simple.Edge{F: simple.Node(e.U), T: simple.Node(e.V)})
	}
	components := topo.ConnectedComponents(ug)
	if len(components) < 2 {
		return 0
	}
	keep := make(map[int]bool)
	bestSize, bestMin := -1, 0
	var best int
	for i, c := range components {
		min := int(c[0].ID())
		for _, n := range c {
			if int(n.ID()) < min {
				min = int(n.ID())
			}
		}
		if len(c) > bestSize || (len(c) == bestSize && min < bestMin) {
			best, bestSize, bestMin = i, len(c), min
		}
	}
	for _, n := range components[best] {
		keep[int(n.ID())] = true
	}
	removed := 0
	for _, e := range g.Edges() {
		if !keep[e.U] {
			g.removeEdge(e.ID)
			removed++
		}
	}
	for _, n := range g.Nodes() {
		if !keep[n.ID] {
			g.removeNode(n.ID)
		}
	}
	return removed
}

// dropOrphans removes nodes without edges. Station nodes are kept.
func (g *Graph) dropOrphans() int {
	deg := g.degree()
	removed := 0
	for _, n := range g.Nodes() {
		if deg[n.ID] == 0 && !n.Station.Valid() {
			g.removeNode(n.ID)
			removed++
		}
	}
	return removed
}

// fixTopology splits edges at every point where they meet another edge
// somewhere other than at their own end nodes. It returns the number of
// splits made.
func (g *Graph) fixTopology() (int, error) {
	edges := g.Edges()
	index := newEdgeIndex(edges)
	cuts := make(map[int][]geom.Point)
	addCut := func(e *Edge, p geom.Point) {
		if p.Equals(e.Geometry[0]) || p.Equals(e.Geometry[len(e.Geometry)-1]) {
			return
		}
		for _, q := range cuts[e.ID] {
			if q.Equals(p) {
				return
			}
		}
		cuts[e.ID] = append(cuts[e.ID], p)
	}
	for _, a := range edges {
		for _, item := range index.SearchIntersect(a.Geometry.Bounds()) {
			b := item.(edgeItem).edge
			if b.ID <= a.ID {
				continue
			}
			for i := 0; i < len(a.Geometry)-1; i++ {
				for j := 0; j < len(b.Geometry)-1; j++ {
					n, p, _ := segmentIntersection(a.Geometry[i], a.Geometry[i+1], b.Geometry[j], b.Geometry[j+1])
					if n != 1 {
						continue
					}
					addCut(a, p)
					addCut(b, p)
				}
			}
		}
	}

	nodeAt := make(map[geom.Point]int, len(g.nodes))
	for _, n := range g.Nodes() {
		nodeAt[n.Point] = n.ID
	}
	ids := make([]int, 0, len(cuts))
	for id := range cuts {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	splits := 0
	for _, id := range ids {
		e := g.edges[id]
		pts := cuts[id]
		sort.Slice(pts, func(i, j int) bool {
			_, _, ai := project(pts[i], e.Geometry)
			_, _, aj := project(pts[j], e.Geometry)
			return ai < aj
		})
		for _, p := range pts {
			nid, ok := nodeAt[p]
			if !ok {
				nid = g.AddNode(p).ID
				nodeAt[p] = nid
			}
			next, err := g.splitEdgeAt(e, p, g.nodes[nid])
			if err != nil {
				return splits, err
			}
			if next == nil {
				continue
			}
			splits++
			e = next
		}
	}
	return splits, nil
}
