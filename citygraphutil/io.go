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
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/geojson"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/ctessum/geom/proj"
	"github.com/spatialmodel/citygraph"
)

// featureRecord holds the shapefile columns read for every input feature.
// Columns that are missing from a file are left empty.
type featureRecord struct {
	geom.Geom
	Name, Type     string
	Bridge, Tunnel string
}

// ReadFeatures reads the features in the given shapefile. If sr is not nil,
// geometries are converted from the spatial reference in the shapefile's
// .prj file to sr.
func ReadFeatures(fname string, sr *proj.SR) ([]*citygraph.Feature, error) {
	fname = strings.TrimSuffix(fname, ".shp")
	f, err := shp.NewDecoder(fname + ".shp")
	if err != nil {
		return nil, fmt.Errorf("citygraph: problem opening shapefile '%s': %v", fname, err)
	}
	defer f.Close()

	var trans proj.Transformer
	if sr != nil {
		src, err := f.SR()
		if err != nil {
			return nil, fmt.Errorf("citygraph: problem reading the projection of '%s': %v", fname, err)
		}
		trans, err = src.NewTransform(sr)
		if err != nil {
			return nil, fmt.Errorf("citygraph: problem creating a reprojector for '%s': %v", fname, err)
		}
	}

	var o []*citygraph.Feature
	for {
		var rec featureRecord
		if !f.DecodeRow(&rec) {
			break
		}
		g := rec.Geom
		if trans != nil && g != nil {
			g, err = g.Transform(trans)
			if err != nil {
				return nil, fmt.Errorf("citygraph: problem reprojecting '%s': %v", fname, err)
			}
		}
		feat := &citygraph.Feature{
			Geometry: g,
			Name:     clean(rec.Name),
			Type:     clean(rec.Type),
		}
		for k, v := range map[string]string{"bridge": rec.Bridge, "tunnel": rec.Tunnel} {
			if v = clean(v); v != "" {
				if feat.Attributes == nil {
					feat.Attributes = make(map[string]string)
				}
				feat.Attributes[k] = v
			}
		}
		o = append(o, feat)
	}
	if err := f.Error(); err != nil {
		return nil, fmt.Errorf("citygraph: problem reading shapefile '%s': %v", fname, err)
	}
	return o, nil
}

// clean removes the padding of a shapefile text attribute.
func clean(s string) string { return strings.Trim(s, " \x00") }

// Output records. Shapefile column names are limited to ten characters and
// cannot hold booleans or lists, so flags are stored as 0 or 1 and barrier
// ID lists as comma separated text.
type nodeRecord struct {
	geom.Point
	NodeID    int
	StationID int // -1 when the node is not a station
	Name      string
}

type edgeRecord struct {
	geom.MultiLineString
	EdgeID, U, V int
	Length       float64
	Name, Type   string
	Bridge       int
	Separating   int
	Along        string
	Crossing     string
	Within       string
}

func newNodeRecord(n *citygraph.Node) nodeRecord {
	station := -1
	if id, ok := n.Station.ID(); ok {
		station = id
	}
	return nodeRecord{Point: n.Point, NodeID: n.ID, StationID: station, Name: n.Name}
}

func newEdgeRecord(e *citygraph.Edge) edgeRecord {
	return edgeRecord{
		MultiLineString: geom.MultiLineString{e.Geometry},
		EdgeID:          e.ID,
		U:               e.U,
		V:               e.V,
		Length:          e.Length(),
		Name:            e.Name,
		Type:            e.Type,
		Bridge:          boolInt(e.Bridge),
		Separating:      boolInt(e.Separating),
		Along:           joinIDs(e.Along),
		Crossing:        joinIDs(e.Crossing),
		Within:          joinIDs(e.Within),
	}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func joinIDs(ids []int) string {
	s := make([]string, len(ids))
	for i, id := range ids {
		s[i] = strconv.Itoa(id)
	}
	return strings.Join(s, ",")
}

// isGeoJSON reports whether the file name calls for GeoJSON output rather
// than a shapefile.
func isGeoJSON(fname string) bool {
	switch strings.ToLower(filepath.Ext(fname)) {
	case ".geojson", ".json":
		return true
	}
	return false
}

// WriteGraph writes the nodes and edges of g to the given files. Files
// ending in .geojson or .json are written as GeoJSON feature collections,
// anything else as shapefiles. If prj is not empty, it is written to a .prj
// file next to each shapefile.
func WriteGraph(g *citygraph.Graph, nodesFile, edgesFile, prj string) error {
	if isGeoJSON(nodesFile) {
		if err := writeGeoJSONFile(nodesFile, func(w io.Writer) error { return WriteNodesGeoJSON(w, g.Nodes()) }); err != nil {
			return err
		}
	} else if err := writeNodesShapefile(nodesFile, g.Nodes(), prj); err != nil {
		return err
	}
	if isGeoJSON(edgesFile) {
		return writeGeoJSONFile(edgesFile, func(w io.Writer) error { return WriteEdgesGeoJSON(w, g.Edges()) })
	}
	return writeEdgesShapefile(edgesFile, g.Edges(), prj)
}

func writeNodesShapefile(fname string, nodes []*citygraph.Node, prj string) error {
	base := strings.TrimSuffix(fname, filepath.Ext(fname))
	e, err := shp.NewEncoder(base+".shp", nodeRecord{})
	if err != nil {
		return fmt.Errorf("citygraph: error creating node shapefile: %v", err)
	}
	for _, n := range nodes {
		if err := e.Encode(newNodeRecord(n)); err != nil {
			e.Close()
			return fmt.Errorf("citygraph: error writing node shapefile: %v", err)
		}
	}
	e.Close()
	return writePrj(base, prj)
}

func writeEdgesShapefile(fname string, edges []*citygraph.Edge, prj string) error {
	base := strings.TrimSuffix(fname, filepath.Ext(fname))
	e, err := shp.NewEncoder(base+".shp", edgeRecord{})
	if err != nil {
		return fmt.Errorf("citygraph: error creating edge shapefile: %v", err)
	}
	for _, edge := range edges {
		if err := e.Encode(newEdgeRecord(edge)); err != nil {
			e.Close()
			return fmt.Errorf("citygraph: error writing edge shapefile: %v", err)
		}
	}
	e.Close()
	return writePrj(base, prj)
}

func writePrj(base, prj string) error {
	if prj == "" {
		return nil
	}
	f, err := os.Create(base + ".prj")
	if err != nil {
		return fmt.Errorf("citygraph: error creating output prj file: %v", err)
	}
	fmt.Fprint(f, prj)
	return f.Close()
}

func writeGeoJSONFile(fname string, write func(io.Writer) error) error {
	f, err := os.Create(fname)
	if err != nil {
		return fmt.Errorf("citygraph: error creating GeoJSON file: %v", err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// geoJSONFeature is a GeoJSON feature. The geometry is encoded by
// github.com/ctessum/geom/encoding/geojson.
type geoJSONFeature struct {
	Type       string                 `json:"type"`
	Geometry   *geojson.Geometry      `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

type featureCollection struct {
	Type     string            `json:"type"`
	Features []*geoJSONFeature `json:"features"`
}

func writeCollection(w io.Writer, features []*geoJSONFeature) error {
	if features == nil {
		features = []*geoJSONFeature{}
	}
	e := json.NewEncoder(w)
	if err := e.Encode(featureCollection{Type: "FeatureCollection", Features: features}); err != nil {
		return fmt.Errorf("citygraph: error writing GeoJSON: %v", err)
	}
	return nil
}

// WriteNodesGeoJSON writes the nodes as a GeoJSON feature collection of
// points with properties nodeID, stationID (null for nodes that are not
// stations) and name.
func WriteNodesGeoJSON(w io.Writer, nodes []*citygraph.Node) error {
	var o []*geoJSONFeature
	for _, n := range nodes {
		g, err := geojson.ToGeoJSON(n.Point)
		if err != nil {
			return err
		}
		var station interface{}
		if id, ok := n.Station.ID(); ok {
			station = id
		}
		o = append(o, &geoJSONFeature{
			Type:     "Feature",
			Geometry: g,
			Properties: map[string]interface{}{
				"nodeID":    n.ID,
				"stationID": station,
				"name":      n.Name,
			},
		})
	}
	return writeCollection(w, o)
}

// WriteEdgesGeoJSON writes the edges as a GeoJSON feature collection of
// lines. Barrier relations are written as arrays of barrier IDs.
func WriteEdgesGeoJSON(w io.Writer, edges []*citygraph.Edge) error {
	var o []*geoJSONFeature
	for _, e := range edges {
		g, err := geojson.ToGeoJSON(e.Geometry)
		if err != nil {
			return err
		}
		props := map[string]interface{}{
			"edgeID":     e.ID,
			"u":          e.U,
			"v":          e.V,
			"length":     e.Length(),
			"name":       e.Name,
			"type":       e.Type,
			"bridge":     e.Bridge,
			"separating": e.Separating,
			"along":      ids(e.Along),
			"crossing":   ids(e.Crossing),
			"within":     ids(e.Within),
		}
		for k, v := range e.Attributes {
			if _, ok := props[k]; !ok {
				props[k] = v
			}
		}
		o = append(o, &geoJSONFeature{Type: "Feature", Geometry: g, Properties: props})
	}
	return writeCollection(w, o)
}

// ids makes sure empty ID lists are written as [] rather than null.
func ids(s []int) []int {
	if s == nil {
		return []int{}
	}
	return s
}
