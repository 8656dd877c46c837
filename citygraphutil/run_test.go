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
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/ctessum/geom"
	"github.com/spatialmodel/citygraph"
)

// writeInputs writes a small rail network, its stations and a river
// crossing the first line to dir.
func writeInputs(t *testing.T, dir string) (lines, stations, water string) {
	lines = filepath.Join(dir, "lines.shp")
	writeLines(t, lines,
		lineRec{MultiLineString: ml(0, 0, 100, 0), Name: "West line"},
		lineRec{MultiLineString: ml(100, 0, 200, 0), Name: "East line"},
		lineRec{MultiLineString: ml(200, 0, 100, 0), Name: "East line"}, // reversed duplicate
		lineRec{MultiLineString: ml(0, 0, 100, 0), Name: "West line"},   // exact duplicate
	)
	stations = filepath.Join(dir, "stations.shp")
	writePoints(t, stations,
		pointRec{Point: geom.Point{X: 102, Y: 3}, Name: "Central"},
		pointRec{Point: geom.Point{X: 150, Y: 30}, Name: "Park"},
		pointRec{Point: geom.Point{X: 1000, Y: 1000}, Name: "Airport"},
	)
	water = filepath.Join(dir, "water.shp")
	writeLines(t, water, lineRec{MultiLineString: ml(50, -100, 50, 100), Name: "River"})
	return
}

func TestPipeline(t *testing.T) {
	dir := tempDir(t)
	defer os.RemoveAll(dir)
	lines, stations, water := writeInputs(t, dir)

	p := &Pipeline{
		Lines:       lines,
		Stations:    stations,
		Barriers:    map[string]string{"water": water},
		NodesFile:   filepath.Join(dir, "nodes.geojson"),
		EdgesFile:   filepath.Join(dir, "edges.geojson"),
		SummaryFile: filepath.Join(dir, "summary.toml"),
		Config:      citygraph.DefaultConfig(),
		Log:         quietLog(),
	}
	s, err := p.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if want := (citygraph.NormalizeStats{In: 4, Out: 3, Duplicates: 1}); s.Lines != want {
		t.Errorf("want line stats %+v but have %+v", want, s.Lines)
	}
	if s.Nodes != 4 || s.Edges != 3 {
		t.Errorf("want 4 nodes and 3 edges but have %d and %d", s.Nodes, s.Edges)
	}
	if want := (citygraph.AttachStats{Snapped: 1, Split: 1, Unattached: 1}); s.Stations.Attach != want {
		t.Errorf("want attach stats %+v but have %+v", want, s.Stations.Attach)
	}
	if s.Stations.Stations != 2 || !s.Stations.Dissolve.Converged {
		t.Errorf("want 2 converged stations but have %+v", s.Stations)
	}
	wantBarriers := BarrierSummary{
		Assembly:   citygraph.BarrierStats{In: 1, Out: 1},
		Bridges:    1,
		Separating: 1,
	}
	if *s.Barriers != wantBarriers {
		t.Errorf("want %+v but have %+v", wantBarriers, *s.Barriers)
	}

	var saved Summary
	if _, err := toml.DecodeFile(p.SummaryFile, &saved); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(&saved, s) {
		t.Errorf("want saved summary %+v but have %+v", s, saved)
	}

	for file, n := range map[string]int{p.NodesFile: 4, p.EdgesFile: 3} {
		b, err := os.ReadFile(file)
		if err != nil {
			t.Fatal(err)
		}
		var c collection
		if err := json.Unmarshal(b, &c); err != nil {
			t.Fatal(err)
		}
		if len(c.Features) != n {
			t.Errorf("%s: want %d features but have %d", filepath.Base(file), n, len(c.Features))
		}
	}
}

func TestPipelineLinesOnly(t *testing.T) {
	dir := tempDir(t)
	defer os.RemoveAll(dir)
	lines, _, _ := writeInputs(t, dir)
	p := &Pipeline{Lines: lines, Config: citygraph.DefaultConfig(), Log: quietLog()}
	s, err := p.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if s.Nodes != 3 || s.Edges != 2 || s.Stations != nil || s.Barriers != nil {
		t.Errorf("unexpected summary %+v", s)
	}
}

func TestPipelineErrors(t *testing.T) {
	dir := tempDir(t)
	defer os.RemoveAll(dir)
	lines, _, water := writeInputs(t, dir)
	for _, test := range []struct {
		name string
		p    Pipeline
	}{
		{name: "no lines"},
		{name: "one output", p: Pipeline{Lines: lines, NodesFile: filepath.Join(dir, "n.shp")}},
		{name: "bad barrier type", p: Pipeline{Lines: lines, Barriers: map[string]string{"canal": water}}},
	} {
		test.p.Config = citygraph.DefaultConfig()
		test.p.Log = quietLog()
		if _, err := test.p.Run(context.Background()); err == nil {
			t.Errorf("%s: want an error", test.name)
		}
	}
}
