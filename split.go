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
)

// SplitEdge cuts the edge with the given ID at the point of its geometry
// nearest to p. A new node is created at the cut, the original edge keeps
// the first part and now ends at the new node, and a new edge carrying
// the same attributes is created for the second part, starting at the new
// node. The lengths of the two parts add up to the original length.
//
// If the nearest point is an end of the edge, the existing end node is
// returned with a nil edge and the graph is not changed. The new edge is
// not re-oriented; Repair does that.
func (g *Graph) SplitEdge(edgeID int, p geom.Point) (*Node, *Edge, error) {
	e, ok := g.edges[edgeID]
	if !ok {
		return nil, nil, fmt.Errorf("citygraph: cannot split edge %d: no such edge", edgeID)
	}
	first, second, at := cutAt(e.Geometry, p)
	if len(first) < 2 {
		return g.nodes[e.U], nil, nil
	}
	if len(second) < 2 {
		return g.nodes[e.V], nil, nil
	}
	n := g.AddNode(at)
	next, err := g.splitEdgeAt(e, p, n)
	if err != nil {
		g.removeNode(n.ID)
		return nil, nil, err
	}
	return n, next, nil
}

// splitEdgeAt cuts e at its point nearest p and connects both parts to n,
// which need not lie on e. It returns the new edge holding the second
// part, or nil if the cut falls on an end of e.
func (g *Graph) splitEdgeAt(e *Edge, p geom.Point, n *Node) (*Edge, error) {
	first, second, _ := cutAt(e.Geometry, p)
	if len(first) < 2 || len(second) < 2 {
		return nil, nil
	}
	next := e.clone()
	next.ID = g.nextEdge
	next.U = n.ID
	next.Geometry = second
	if err := g.InsertEdge(next); err != nil {
		return nil, fmt.Errorf("citygraph: problem splitting edge %d: %v", e.ID, err)
	}
	e.V = n.ID
	e.Geometry = first
	return next, nil
}

// AttachStats counts the outcome of AttachStations.
type AttachStats struct {
	Snapped    int // attached to an existing node
	Split      int // attached to a node created by splitting an edge
	Unattached int // too far from the network
	Malformed  int

	// Replaced counts attached stations that took over a node already
	// holding another station. The later station wins.
	Replaced int
}

// stationPoint returns the location of a station feature.
func stationPoint(f *Feature) (geom.Point, error) {
	if f.Geometry == nil {
		if len(f.Coords) != 1 {
			return geom.Point{}, fmt.Errorf("%d coordinates for a point", len(f.Coords))
		}
		return PointFromCoords(f.Coords[0])
	}
	switch t := f.Geometry.(type) {
	case geom.Point:
		return t, nil
	case geom.MultiPoint:
		if len(t) == 1 {
			return t[0], nil
		}
		return geom.Point{}, fmt.Errorf("multipoint with %d points", len(t))
	}
	return geom.Point{}, fmt.Errorf("unsupported geometry type %T", f.Geometry)
}

// AttachStations ties every station feature to the network. The station
// with index i gets station reference i and the feature's name. A station
// within cfg.AttachDistance of a node is assigned to the nearest such
// node; otherwise a station within cfg.AttachDistance of an edge splits
// the nearest edge and is assigned to the new node. Stations farther away
// are counted as unattached. The graph is repaired at the end.
func (g *Graph) AttachStations(stations []*Feature, cfg Config) (AttachStats, error) {
	var stats AttachStats
	assign := func(n *Node, i int, name string) {
		if n.Station.Valid() {
			stats.Replaced++
			g.Log.WithFields(logrus.Fields{
				"node":     n.ID,
				"previous": n.Station,
				"station":  i,
				"name":     name,
			}).Warn("station replaces another station at the same node")
		}
		n.Station = Station(i)
		n.Name = name
	}
	nodeIndex := newNodeIndex(g.Nodes())
	edgeIndex := newEdgeIndex(g.Edges())
	live := func(e *Edge) bool { return g.edges[e.ID] == e }

	for i, f := range stations {
		p, err := stationPoint(f)
		if err != nil {
			stats.Malformed++
			g.Log.WithFields(logrus.Fields{"station": i}).Warn(
				(&MalformedGeometryError{Index: i, Reason: err.Error()}).Error())
			continue
		}
		if n, _ := nearestNode(nodeIndex, p, cfg.AttachDistance); n != nil {
			assign(n, i, f.Name)
			stats.Snapped++
			continue
		}
		e, _ := nearestEdge(edgeIndex, p, cfg.AttachDistance, live)
		if e == nil {
			stats.Unattached++
			g.Log.WithFields(logrus.Fields{"station": i, "name": f.Name}).Debug("station too far from network")
			continue
		}
		n, next, err := g.SplitEdge(e.ID, p)
		if err != nil {
			return stats, err
		}
		assign(n, i, f.Name)
		if next != nil {
			nodeIndex.Insert(nodeItem{Point: n.Point, node: n})
			edgeIndex.Insert(edgeItem{LineString: next.Geometry, edge: next})
		}
		stats.Split++
	}
	g.Log.WithFields(logrus.Fields{
		"snapped":    stats.Snapped,
		"split":      stats.Split,
		"unattached": stats.Unattached,
		"malformed":  stats.Malformed,
		"replaced":   stats.Replaced,
	}).Info("attached stations")

	opts := DefaultRepairOptions()
	opts.MinLoopLength = cfg.MinLoopLength
	if _, err := g.Repair(opts); err != nil {
		return stats, fmt.Errorf("citygraph: problem repairing after attaching stations: %v", err)
	}
	return stats, nil
}
