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
	"sort"

	"github.com/ctessum/geom"
	"github.com/sirupsen/logrus"
)

// DissolveStats describes a DissolveStations run.
type DissolveStats struct {
	Iterations    int
	NameMerges    int
	StationMerges int

	// Repair sums the repairs made after each merge.
	Repair RepairStats

	// Converged is false if the iteration limit was reached while merges
	// were still happening.
	Converged bool
}

// DissolveStations collapses the groups of nodes that represent a single
// station into one node. It alternates MergeByName and MergeStations until
// a pass merges nothing or cfg.MaxDissolveIterations passes have run. When
// cfg.MaxDissolveIterations is less than one the limit is the initial node
// count plus one, which is never reached because every productive pass
// removes at least one node. Loops left by merges are removed, and those
// shorter than cfg.MinLoopLength are counted as degenerate.
func (g *Graph) DissolveStations(cfg Config) (DissolveStats, error) {
	var stats DissolveStats
	opts := DefaultRepairOptions()
	opts.MinLoopLength = cfg.MinLoopLength
	limit := cfg.MaxDissolveIterations
	if limit < 1 {
		limit = len(g.nodes) + 1
	}
	for stats.Iterations < limit {
		stats.Iterations++
		byName, rs, err := g.mergeByName(opts)
		stats.Repair.add(rs)
		if err != nil {
			return stats, err
		}
		byStation, rs, err := g.mergeStations(cfg.MergeTolerance, opts)
		stats.Repair.add(rs)
		if err != nil {
			return stats, err
		}
		stats.NameMerges += byName
		stats.StationMerges += byStation
		if byName+byStation == 0 {
			stats.Converged = true
			break
		}
	}
	log := g.Log.WithFields(logrus.Fields{
		"iterations":     stats.Iterations,
		"name_merges":    stats.NameMerges,
		"station_merges": stats.StationMerges,
		"nodes":          len(g.nodes),
	})
	if stats.Converged {
		log.Info("dissolved stations")
	} else {
		log.Warn("station dissolving stopped at iteration limit")
	}
	return stats, nil
}

// ExtendStations connects every station to the edges passing within
// cfg.ExtendBuffer of it that do not already end there. Each such edge is
// split at its point nearest the station and both parts are attached to
// the station, unless another station is closer to that point or an end
// of the edge already carries the station's name. A station that captures
// an edge moves halfway towards the split point. Parallel edges are then
// reduced to the shortest one and the stations are dissolved again. It
// returns the number of edges captured.
func (g *Graph) ExtendStations(cfg Config) (int, error) {
	stations := g.Stations()
	index := newEdgeIndex(g.Edges())
	live := func(e *Edge) bool { return g.edges[e.ID] == e }

	captured := 0
	for _, s := range stations {
		origin := s.Point
		var candidates []*Edge
		for _, item := range index.SearchIntersect(expand(origin.Bounds(), cfg.ExtendBuffer)) {
			e := item.(edgeItem).edge
			if live(e) && e.U != s.ID && e.V != s.ID {
				candidates = append(candidates, e)
			}
		}
		sort.Slice(candidates, func(i, j int) bool { return candidates[i].ID < candidates[j].ID })

		for _, e := range candidates {
			if e.U == s.ID || e.V == s.ID {
				continue
			}
			q, d, _ := project(origin, e.Geometry)
			if d > cfg.ExtendBuffer {
				continue
			}
			if closerStation(stations, s, q, dist(q, origin)) {
				continue
			}
			if s.Name != "" && (g.nodes[e.U].Name == s.Name || g.nodes[e.V].Name == s.Name) {
				continue
			}
			next, err := g.splitEdgeAt(e, origin, s)
			if err != nil {
				return captured, err
			}
			if next == nil {
				continue
			}
			s.Point = centroid(origin, q)
			index.Insert(edgeItem{LineString: next.Geometry, edge: next})
			captured++
		}
	}
	g.Log.WithFields(logrus.Fields{"captured": captured}).Info("extended stations")

	opts := DefaultRepairOptions()
	opts.MinLoopLength = cfg.MinLoopLength
	opts.SameUVEdges = true
	if _, err := g.Repair(opts); err != nil {
		return captured, fmt.Errorf("citygraph: problem repairing extended stations: %v", err)
	}
	if _, err := g.DissolveStations(cfg); err != nil {
		return captured, err
	}
	return captured, nil
}

// closerStation reports whether a station other than s lies closer than d
// to q.
func closerStation(stations []*Node, s *Node, q geom.Point, d float64) bool {
	for _, o := range stations {
		if o.ID != s.ID && dist(q, o.Point) < d {
			return true
		}
	}
	return false
}
