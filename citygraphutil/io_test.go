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
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/citygraph"
)

func quietLog() *logrus.Logger {
	l := logrus.New()
	l.Out = io.Discard
	return l
}

func tempDir(t *testing.T) string {
	dir, err := os.MkdirTemp("", "citygraph")
	if err != nil {
		t.Fatal(err)
	}
	return dir
}

type lineRec struct {
	geom.MultiLineString
	Name, Tunnel string
}

type pointRec struct {
	geom.Point
	Name string
}

func writeLines(t *testing.T, fname string, recs ...lineRec) {
	e, err := shp.NewEncoder(fname, lineRec{})
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range recs {
		if err := e.Encode(r); err != nil {
			t.Fatal(err)
		}
	}
	e.Close()
}

func writePoints(t *testing.T, fname string, recs ...pointRec) {
	e, err := shp.NewEncoder(fname, pointRec{})
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range recs {
		if err := e.Encode(r); err != nil {
			t.Fatal(err)
		}
	}
	e.Close()
}

func ml(xy ...float64) geom.MultiLineString {
	l := make(geom.LineString, len(xy)/2)
	for i := range l {
		l[i] = geom.Point{X: xy[2*i], Y: xy[2*i+1]}
	}
	return geom.MultiLineString{l}
}

func TestReadFeatures(t *testing.T) {
	dir := tempDir(t)
	defer os.RemoveAll(dir)
	fname := filepath.Join(dir, "lines.shp")
	writeLines(t, fname,
		lineRec{MultiLineString: ml(0, 0, 10, 0, 10, 10), Name: "Ring road"},
		lineRec{MultiLineString: ml(5, 5, 6, 6), Tunnel: "yes"},
	)
	features, err := ReadFeatures(fname, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(features) != 2 {
		t.Fatalf("want 2 features but have %d", len(features))
	}
	if want := ml(0, 0, 10, 0, 10, 10); !reflect.DeepEqual(features[0].Geometry, want) {
		t.Errorf("want %v but have %v", want, features[0].Geometry)
	}
	if features[0].Name != "Ring road" || features[0].Attributes != nil {
		t.Errorf("feature 0: have name %q and attributes %v", features[0].Name, features[0].Attributes)
	}
	if want := map[string]string{"tunnel": "yes"}; !reflect.DeepEqual(features[1].Attributes, want) {
		t.Errorf("want attributes %v but have %v", want, features[1].Attributes)
	}
	if _, err := ReadFeatures(filepath.Join(dir, "missing.shp"), nil); err == nil {
		t.Error("reading a missing file should fail")
	}
}

func testGraph(t *testing.T) *citygraph.Graph {
	g := citygraph.NewGraph()
	g.Log = quietLog()
	a := g.AddNode(geom.Point{X: 0, Y: 0})
	b := g.AddNode(geom.Point{X: 3, Y: 4})
	b.Station, b.Name = citygraph.Station(4), "Central"
	e, err := g.AddEdge(a.ID, b.ID, geom.LineString{a.Point, b.Point})
	if err != nil {
		t.Fatal(err)
	}
	e.Name, e.Bridge, e.Along = "High street", true, []int{3}
	e.Attributes = map[string]string{"tunnel": "no"}
	return g
}

type collection struct {
	Type     string
	Features []struct {
		Type     string
		Geometry struct {
			Type        string
			Coordinates json.RawMessage
		}
		Properties map[string]interface{}
	}
}

func TestWriteEdgesGeoJSON(t *testing.T) {
	g := testGraph(t)
	var b bytes.Buffer
	if err := WriteEdgesGeoJSON(&b, g.Edges()); err != nil {
		t.Fatal(err)
	}
	var c collection
	if err := json.Unmarshal(b.Bytes(), &c); err != nil {
		t.Fatal(err)
	}
	if c.Type != "FeatureCollection" || len(c.Features) != 1 {
		t.Fatalf("want one feature in a collection but have %+v", c)
	}
	f := c.Features[0]
	if f.Type != "Feature" || f.Geometry.Type != "LineString" {
		t.Errorf("have feature type %s and geometry type %s", f.Type, f.Geometry.Type)
	}
	var coords [][]float64
	if err := json.Unmarshal(f.Geometry.Coordinates, &coords); err != nil {
		t.Fatal(err)
	}
	if want := [][]float64{{0, 0}, {3, 4}}; !reflect.DeepEqual(coords, want) {
		t.Errorf("want %v but have %v", want, coords)
	}
	want := map[string]interface{}{
		"edgeID":     0.,
		"u":          0.,
		"v":          1.,
		"length":     5.,
		"name":       "High street",
		"type":       "",
		"bridge":     true,
		"separating": false,
		"along":      []interface{}{3.},
		"crossing":   []interface{}{},
		"within":     []interface{}{},
		"tunnel":     "no",
	}
	if !reflect.DeepEqual(f.Properties, want) {
		t.Errorf("want %v but have %v", want, f.Properties)
	}
}

func TestWriteNodesGeoJSON(t *testing.T) {
	g := testGraph(t)
	var b bytes.Buffer
	if err := WriteNodesGeoJSON(&b, g.Nodes()); err != nil {
		t.Fatal(err)
	}
	var c collection
	if err := json.Unmarshal(b.Bytes(), &c); err != nil {
		t.Fatal(err)
	}
	if len(c.Features) != 2 {
		t.Fatalf("want 2 features but have %d", len(c.Features))
	}
	want := []map[string]interface{}{
		{"nodeID": 0., "stationID": nil, "name": ""},
		{"nodeID": 1., "stationID": 4., "name": "Central"},
	}
	for i, f := range c.Features {
		if f.Geometry.Type != "Point" {
			t.Errorf("node %d: want a point but have %s", i, f.Geometry.Type)
		}
		if !reflect.DeepEqual(f.Properties, want[i]) {
			t.Errorf("node %d: want %v but have %v", i, want[i], f.Properties)
		}
	}
}

func TestWriteEmptyGeoJSON(t *testing.T) {
	var b bytes.Buffer
	if err := WriteEdgesGeoJSON(&b, nil); err != nil {
		t.Fatal(err)
	}
	if want := `{"type":"FeatureCollection","features":[]}` + "\n"; b.String() != want {
		t.Errorf("want %q but have %q", want, b.String())
	}
}

func TestWriteGraphShapefile(t *testing.T) {
	dir := tempDir(t)
	defer os.RemoveAll(dir)
	g := testGraph(t)
	nodes, edges := filepath.Join(dir, "nodes.shp"), filepath.Join(dir, "edges.shp")
	if err := WriteGraph(g, nodes, edges, "+proj=longlat"); err != nil {
		t.Fatal(err)
	}
	for _, f := range []string{"nodes.shp", "nodes.dbf", "nodes.prj", "edges.shp", "edges.dbf", "edges.prj"} {
		if _, err := os.Stat(filepath.Join(dir, f)); err != nil {
			t.Errorf("missing output: %v", err)
		}
	}
	features, err := ReadFeatures(edges, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(features) != 1 {
		t.Fatalf("want 1 edge but have %d", len(features))
	}
	if want := ml(0, 0, 3, 4); !reflect.DeepEqual(features[0].Geometry, want) {
		t.Errorf("want %v but have %v", want, features[0].Geometry)
	}
	if features[0].Name != "High street" || features[0].Attributes["bridge"] != "1" {
		t.Errorf("have name %q and attributes %v", features[0].Name, features[0].Attributes)
	}
}
