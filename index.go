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
	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
)

// R-tree entries. The embedded geometry is the one the entry was indexed
// with; it gives the bounds of the entry, which stay valid for an edge
// that is later shortened by a split.

type edgeItem struct {
	geom.LineString
	edge *Edge
}

type nodeItem struct {
	geom.Point
	node *Node
}

type barrierItem struct {
	geom.MultiLineString
	barrier *Barrier
}

func newEdgeIndex(edges []*Edge) *rtree.Rtree {
	t := rtree.NewTree(25, 50)
	for _, e := range edges {
		t.Insert(edgeItem{LineString: e.Geometry, edge: e})
	}
	return t
}

func newNodeIndex(nodes []*Node) *rtree.Rtree {
	t := rtree.NewTree(25, 50)
	for _, n := range nodes {
		t.Insert(nodeItem{Point: n.Point, node: n})
	}
	return t
}

func newBarrierIndex(barriers []*Barrier) *rtree.Rtree {
	t := rtree.NewTree(25, 50)
	for _, b := range barriers {
		t.Insert(barrierItem{MultiLineString: b.Geometry, barrier: b})
	}
	return t
}

// nearestNode returns the node nearest to p within r, or nil.
// Candidates that have moved since they were indexed are measured at
// their current position.
func nearestNode(index *rtree.Rtree, p geom.Point, r float64) (*Node, float64) {
	var best *Node
	bestD := r
	for _, item := range index.SearchIntersect(expand(p.Bounds(), r)) {
		n := item.(nodeItem).node
		d := dist(p, n.Point)
		if d < bestD || (d == bestD && (best == nil || n.ID < best.ID)) {
			best, bestD = n, d
		}
	}
	return best, bestD
}

// nearestEdge returns the edge nearest to p within r, or nil. live
// filters out entries for edges that have been removed since indexing.
func nearestEdge(index *rtree.Rtree, p geom.Point, r float64, live func(*Edge) bool) (*Edge, float64) {
	var best *Edge
	bestD := r
	for _, item := range index.SearchIntersect(expand(p.Bounds(), r)) {
		e := item.(edgeItem).edge
		if live != nil && !live(e) {
			continue
		}
		d := e.Geometry.Distance(p)
		if d < bestD || (d == bestD && (best == nil || e.ID < best.ID)) {
			best, bestD = e, d
		}
	}
	return best, bestD
}
