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

// Build creates a graph from normalized line features. Every distinct end
// coordinate becomes a node, with IDs assigned in encounter order, and
// every feature becomes an edge, with IDs assigned in input order.
// Coordinates are matched exactly; nearly coincident end points stay
// separate nodes until they are merged.
func Build(features []*Feature, log logrus.FieldLogger) (*Graph, error) {
	g := NewGraph()
	if log != nil {
		g.Log = log
	}
	ids := make(map[geom.Point]int)
	nodeFor := func(p geom.Point) int {
		if id, ok := ids[p]; ok {
			return id
		}
		n := g.AddNode(p)
		ids[p] = n.ID
		return n.ID
	}
	for i, f := range features {
		l, ok := f.Geometry.(geom.LineString)
		if !ok || len(l) < 2 {
			return nil, fmt.Errorf("citygraph: feature %d is not a normalized line (%T)", i, f.Geometry)
		}
		u := nodeFor(l[0])
		v := nodeFor(l[len(l)-1])
		e, err := g.AddEdge(u, v, append(geom.LineString{}, l...))
		if err != nil {
			return nil, err
		}
		e.Name, e.Type = f.Name, f.Type
		if len(f.Attributes) > 0 {
			e.Attributes = make(map[string]string, len(f.Attributes))
			for k, v := range f.Attributes {
				e.Attributes[k] = v
			}
		}
	}
	g.Log.WithFields(logrus.Fields{
		"nodes": g.NumNodes(),
		"edges": g.NumEdges(),
	}).Info("built graph")
	return g, nil
}

// BuildNetwork normalizes the line features, builds the graph and applies
// the default repair pass, which orients every edge canonically and drops
// reversed duplicates and degenerate loops.
func BuildNetwork(features []*Feature, cfg Config, log logrus.FieldLogger) (*Graph, NormalizeStats, error) {
	lines, stats := Normalize(features, log)
	g, err := Build(lines, log)
	if err != nil {
		return nil, stats, err
	}
	opts := DefaultRepairOptions()
	opts.MinLoopLength = cfg.MinLoopLength
	if _, err := g.Repair(opts); err != nil {
		return nil, stats, err
	}
	return g, stats, nil
}
