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

	"github.com/sirupsen/logrus"
)

// mergeCandidate proposes merging node drop into node keep.
type mergeCandidate struct {
	keep, drop int
	edge       int
}

// mergePredicate decides, against the current state of the graph, which
// of two distinct nodes survives a merge. ok is false if the nodes should
// not be merged.
type mergePredicate func(a, b *Node) (keep, drop *Node, ok bool)

// sameName merges nodes that carry the same non-empty name, keeping the
// first one.
func sameName(a, b *Node) (*Node, *Node, bool) {
	if a.Name == "" || a.Name != b.Name {
		return nil, nil, false
	}
	return a, b, true
}

// oneStation merges an unassigned node into a station node.
func oneStation(a, b *Node) (*Node, *Node, bool) {
	if a.Station == b.Station {
		return nil, nil, false
	}
	switch {
	case !b.Station.Valid():
		return a, b, true
	case !a.Station.Valid():
		return b, a, true
	}
	return nil, nil, false
}

// MergeByName merges the end nodes of every edge whose two ends carry the
// same station name. The surviving node moves to the midpoint of the two
// positions. It returns the number of nodes removed.
func (g *Graph) MergeByName() (int, error) {
	n, _, err := g.mergeByName(DefaultRepairOptions())
	return n, err
}

func (g *Graph) mergeByName(opts RepairOptions) (int, RepairStats, error) {
	var candidates []mergeCandidate
	for _, e := range g.Snapshot().Edges {
		candidates = append(candidates, mergeCandidate{keep: e.U, drop: e.V, edge: e.ID})
	}
	return g.mergeNodes(candidates, sameName, "name", opts)
}

// MergeStations merges short edges into stations: for every edge no
// longer than tolerance that joins a station node to a node without a
// station, the latter is merged into the station node, which moves to the
// midpoint of the two positions. It returns the number of nodes removed.
func (g *Graph) MergeStations(tolerance float64) (int, error) {
	n, _, err := g.mergeStations(tolerance, DefaultRepairOptions())
	return n, err
}

func (g *Graph) mergeStations(tolerance float64, opts RepairOptions) (int, RepairStats, error) {
	var candidates []mergeCandidate
	for _, e := range g.Snapshot().Edges {
		if e.Length() > tolerance {
			continue
		}
		candidates = append(candidates, mergeCandidate{keep: e.U, drop: e.V, edge: e.ID})
	}
	return g.mergeNodes(candidates, oneStation, "station", opts)
}

// mergeNodes applies candidates computed from a snapshot in order. Each
// candidate is re-evaluated against the nodes its ends have been merged
// into by earlier candidates, so overlapping merges are never applied
// without checking the predicate again. Edges are then rewired to the
// surviving nodes; edges whose ends end up on the same node become loops,
// which the closing repair with opts removes.
func (g *Graph) mergeNodes(candidates []mergeCandidate, pred mergePredicate, kind string, opts RepairOptions) (int, RepairStats, error) {
	into := make(map[int]int)
	var resolve func(id int) int
	resolve = func(id int) int {
		if s, ok := into[id]; ok {
			r := resolve(s)
			into[id] = r
			return r
		}
		return id
	}

	for _, c := range candidates {
		a, b := resolve(c.keep), resolve(c.drop)
		if a == b {
			continue
		}
		na, nb := g.nodes[a], g.nodes[b]
		if na == nil || nb == nil {
			return 0, RepairStats{}, &InvariantError{
				Problem: fmt.Sprintf("%s merge candidate from edge %d references missing node", kind, c.edge),
				NodeIDs: []int{a, b},
				EdgeIDs: []int{c.edge},
			}
		}
		keep, drop, ok := pred(na, nb)
		if !ok {
			continue
		}
		keep.Point = centroid(keep.Point, drop.Point)
		if !keep.Station.Valid() {
			keep.Station = drop.Station
		}
		if keep.Name == "" {
			keep.Name = drop.Name
		}
		into[drop.ID] = keep.ID
	}
	if len(into) == 0 {
		return 0, RepairStats{}, nil
	}

	for _, e := range g.Edges() {
		e.U, e.V = resolve(e.U), resolve(e.V)
	}
	for id := range into {
		g.removeNode(id)
	}
	g.Log.WithFields(logrus.Fields{
		"kind":    kind,
		"removed": len(into),
		"nodes":   len(g.nodes),
	}).Debug("merged nodes")

	stats, err := g.Repair(opts)
	if err != nil {
		return len(into), stats, fmt.Errorf("citygraph: problem repairing after %s merge: %v", kind, err)
	}
	return len(into), stats, nil
}
