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

package citygraphutil

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/BurntSushi/toml"
	"github.com/ctessum/geom/proj"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/citygraph"
)

// Summary describes a pipeline run. It is written as TOML.
type Summary struct {
	Version string
	Config  citygraph.Config

	Lines    citygraph.NormalizeStats
	Nodes    int
	Edges    int
	Stations *StationSummary `toml:",omitempty"`
	Barriers *BarrierSummary `toml:",omitempty"`
}

// StationSummary describes the station steps of a run.
type StationSummary struct {
	Attach   citygraph.AttachStats
	Extended int
	Dissolve citygraph.DissolveStats
	Stations int
}

// BarrierSummary describes the barrier steps of a run.
type BarrierSummary struct {
	Assembly   citygraph.BarrierStats
	Bridges    int
	Separating int
}

func newSummary(cfg citygraph.Config) *Summary {
	return &Summary{Version: citygraph.Version, Config: cfg}
}

func (s *Summary) count(g *citygraph.Graph) {
	s.Nodes, s.Edges = g.NumNodes(), g.NumEdges()
}

// WriteSummary writes s to the TOML file fname.
func WriteSummary(fname string, s *Summary) error {
	f, err := os.Create(fname)
	if err != nil {
		return fmt.Errorf("citygraph: problem creating summary file: %v", err)
	}
	if err := toml.NewEncoder(f).Encode(s); err != nil {
		f.Close()
		return fmt.Errorf("citygraph: problem writing summary file: %v", err)
	}
	return f.Close()
}

// BuildGraph reads the line shapefile and builds a repaired network from
// it.
func BuildGraph(linesFile string, sr *proj.SR, cfg citygraph.Config, log logrus.FieldLogger) (*citygraph.Graph, citygraph.NormalizeStats, error) {
	lines, err := ReadFeatures(linesFile, sr)
	if err != nil {
		return nil, citygraph.NormalizeStats{}, err
	}
	log.WithFields(logrus.Fields{"file": linesFile, "features": len(lines)}).Info("read lines")
	return citygraph.BuildNetwork(lines, cfg, log)
}

// AddStations reads the station shapefile, attaches the stations to g and
// dissolves each station into a single node. If extend is true, edges
// passing close to a station are connected to it first.
func AddStations(g *citygraph.Graph, stationsFile string, sr *proj.SR, cfg citygraph.Config, extend bool) (*StationSummary, error) {
	stations, err := ReadFeatures(stationsFile, sr)
	if err != nil {
		return nil, err
	}
	s := new(StationSummary)
	if s.Attach, err = g.AttachStations(stations, cfg); err != nil {
		return nil, err
	}
	if extend {
		if s.Extended, err = g.ExtendStations(cfg); err != nil {
			return nil, err
		}
	}
	if s.Dissolve, err = g.DissolveStations(cfg); err != nil {
		return nil, err
	}
	s.Stations = len(g.Stations())
	return s, nil
}

// AddBarriers reads the barrier shapefiles, which are keyed by barrier
// type, assembles the barriers and stores their relations in the edges of
// g. Features without a type column get the type of their file.
func AddBarriers(ctx context.Context, g *citygraph.Graph, files map[string]string, sr *proj.SR, cfg citygraph.Config, log logrus.FieldLogger) (*BarrierSummary, error) {
	types := make([]string, 0, len(files))
	for t := range files {
		types = append(types, t)
	}
	sort.Strings(types)

	var features []*citygraph.Feature
	for _, t := range types {
		if _, err := citygraph.ParseBarrierType(t); err != nil {
			return nil, err
		}
		f, err := ReadFeatures(files[t], sr)
		if err != nil {
			return nil, err
		}
		for _, ff := range f {
			if ff.Type == "" {
				ff.Type = t
			}
		}
		log.WithFields(logrus.Fields{"file": files[t], "type": t, "features": len(f)}).Info("read barriers")
		features = append(features, f...)
	}
	barriers, stats, err := citygraph.AssembleBarriers(features, cfg, log)
	if err != nil {
		return nil, err
	}
	rels, err := g.AssignBarriers(ctx, barriers, cfg)
	if err != nil {
		return nil, err
	}
	s := &BarrierSummary{Assembly: stats}
	for _, r := range rels {
		if r.Bridge {
			s.Bridges++
		}
		if r.Separating {
			s.Separating++
		}
	}
	return s, nil
}

// Pipeline holds the inputs and outputs of a run. Steps whose input file is
// empty are skipped.
type Pipeline struct {
	Lines, Stations string
	Barriers        map[string]string
	Extend          bool

	// SR is the spatial reference inputs are converted to. If it is nil,
	// inputs are used unchanged.
	SR *proj.SR

	// Prj is written next to output shapefiles when not empty.
	Prj string

	NodesFile, EdgesFile, SummaryFile string

	Config citygraph.Config
	Log    logrus.FieldLogger
}

// Run executes the pipeline and writes its outputs.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	if p.Lines == "" {
		return nil, fmt.Errorf("citygraph: a line shapefile is required")
	}
	log := p.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := newSummary(p.Config)
	g, stats, err := BuildGraph(p.Lines, p.SR, p.Config, log)
	if err != nil {
		return nil, err
	}
	s.Lines = stats
	if p.Stations != "" {
		if s.Stations, err = AddStations(g, p.Stations, p.SR, p.Config, p.Extend); err != nil {
			return nil, err
		}
	}
	if len(p.Barriers) > 0 {
		if s.Barriers, err = AddBarriers(ctx, g, p.Barriers, p.SR, p.Config, log); err != nil {
			return nil, err
		}
	}
	s.count(g)
	if p.NodesFile != "" || p.EdgesFile != "" {
		if p.NodesFile == "" || p.EdgesFile == "" {
			return nil, fmt.Errorf("citygraph: both a node and an edge output file are required")
		}
		if err := WriteGraph(g, p.NodesFile, p.EdgesFile, p.Prj); err != nil {
			return nil, err
		}
	}
	if p.SummaryFile != "" {
		if err := WriteSummary(p.SummaryFile, s); err != nil {
			return nil, err
		}
	}
	log.WithFields(logrus.Fields{"nodes": s.Nodes, "edges": s.Edges}).Info("finished")
	return s, nil
}
