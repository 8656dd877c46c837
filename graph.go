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

// Package citygraph builds normalized planar graphs from street and rail
// line geometries, attaches and dissolves stations, and classifies how
// graph edges relate to barriers such as rivers, major roads, railways and
// parks.
package citygraph

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/ctessum/geom"
	"github.com/sirupsen/logrus"
)

// Version gives the version number.
const Version = "0.3.0"

// StationRef optionally ties a node to an external station record.
// The zero value is NoStation.
type StationRef struct {
	id    int
	valid bool
}

// NoStation is the StationRef of a node that does not anchor a station.
var NoStation StationRef

// Station returns a reference to the station with the given ID.
func Station(id int) StationRef { return StationRef{id: id, valid: true} }

// ID returns the station ID and whether the reference is set.
func (s StationRef) ID() (int, bool) { return s.id, s.valid }

// Valid reports whether the reference is set.
func (s StationRef) Valid() bool { return s.valid }

func (s StationRef) String() string {
	if !s.valid {
		return "none"
	}
	return strconv.Itoa(s.id)
}

// Node is a vertex of the network.
type Node struct {
	ID int
	geom.Point

	// Station is the station this node anchors, if any.
	Station StationRef

	// Name is the station name, or "" if the node has none.
	Name string
}

// Edge is an arc of the network together with its full geometry.
type Edge struct {
	ID   int
	U, V int

	// Geometry runs from node U to node V.
	Geometry geom.LineString

	Name, Type string

	// Attributes holds any other input attributes.
	Attributes map[string]string

	// Barrier relations, filled in by RelationEngine.Assign.
	Along, Crossing, Within []int
	Bridge                  bool // the edge crosses a barrier of the queried kind
	Separating              bool // the edge crosses a structuring barrier
}

// Length returns the length of the edge geometry.
func (e *Edge) Length() float64 { return e.Geometry.Length() }

// Code returns the orientation-independent identity of the edge's end
// nodes: the smaller node ID, a dash, and the larger node ID.
func (e *Edge) Code() string { return code(e.U, e.V) }

func code(u, v int) string {
	if v < u {
		u, v = v, u
	}
	return strconv.Itoa(u) + "-" + strconv.Itoa(v)
}

// canonicalize reverses the geometry and endpoints of e when needed so that the
// smaller node ID comes first. Geometry direction is then a function of
// the node IDs only.
func (e *Edge) canonicalize() bool {
	if e.V >= e.U {
		return false
	}
	e.U, e.V = e.V, e.U
	e.Geometry = reversed(e.Geometry)
	return true
}

func (e *Edge) clone() *Edge {
	o := *e
	o.Geometry = append(geom.LineString{}, e.Geometry...)
	o.Along = append([]int(nil), e.Along...)
	o.Crossing = append([]int(nil), e.Crossing...)
	o.Within = append([]int(nil), e.Within...)
	if e.Attributes != nil {
		o.Attributes = make(map[string]string, len(e.Attributes))
		for k, v := range e.Attributes {
			o.Attributes[k] = v
		}
	}
	return &o
}

// Graph is a mutable planar network. Node and edge IDs are allocated
// monotonically and never reused.
type Graph struct {
	nodes map[int]*Node
	edges map[int]*Edge

	nextNode, nextEdge int

	// Log receives progress and diagnostic messages.
	Log logrus.FieldLogger
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes: make(map[int]*Node),
		edges: make(map[int]*Edge),
		Log:   logrus.StandardLogger(),
	}
}

// AddNode adds a node at p with the next free ID.
func (g *Graph) AddNode(p geom.Point) *Node {
	n := &Node{ID: g.nextNode, Point: p}
	g.nodes[n.ID] = n
	g.nextNode++
	return n
}

// InsertNode adds n with its own ID. It returns an error if the ID is
// already taken.
func (g *Graph) InsertNode(n *Node) error {
	if _, ok := g.nodes[n.ID]; ok {
		return &InvariantError{Problem: "duplicate node ID", NodeIDs: []int{n.ID}}
	}
	g.nodes[n.ID] = n
	if n.ID >= g.nextNode {
		g.nextNode = n.ID + 1
	}
	return nil
}

// AddEdge adds an edge from u to v with the next free ID. Both nodes must
// exist.
func (g *Graph) AddEdge(u, v int, l geom.LineString) (*Edge, error) {
	e := &Edge{ID: g.nextEdge, U: u, V: v, Geometry: l}
	if err := g.InsertEdge(e); err != nil {
		return nil, err
	}
	return e, nil
}

// InsertEdge adds e with its own ID. Its ID must be free and its end nodes
// must exist.
func (g *Graph) InsertEdge(e *Edge) error {
	if _, ok := g.edges[e.ID]; ok {
		return &InvariantError{Problem: "duplicate edge ID", EdgeIDs: []int{e.ID}}
	}
	var missing []int
	for _, id := range []int{e.U, e.V} {
		if _, ok := g.nodes[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return &InvariantError{Problem: "edge references missing node",
			EdgeIDs: []int{e.ID}, NodeIDs: missing}
	}
	if len(e.Geometry) < 2 {
		return fmt.Errorf("citygraph: edge %d has %d coordinates", e.ID, len(e.Geometry))
	}
	g.edges[e.ID] = e
	if e.ID >= g.nextEdge {
		g.nextEdge = e.ID + 1
	}
	return nil
}

// Node returns the node with the given ID, or nil.
func (g *Graph) Node(id int) *Node { return g.nodes[id] }

// Edge returns the edge with the given ID, or nil.
func (g *Graph) Edge(id int) *Edge { return g.edges[id] }

// NumNodes returns the number of nodes.
func (g *Graph) NumNodes() int { return len(g.nodes) }

// NumEdges returns the number of edges.
func (g *Graph) NumEdges() int { return len(g.edges) }

// Nodes returns the nodes ordered by ID.
func (g *Graph) Nodes() []*Node {
	o := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		o = append(o, n)
	}
	sort.Slice(o, func(i, j int) bool { return o[i].ID < o[j].ID })
	return o
}

// Edges returns the edges ordered by ID.
func (g *Graph) Edges() []*Edge {
	o := make([]*Edge, 0, len(g.edges))
	for _, e := range g.edges {
		o = append(o, e)
	}
	sort.Slice(o, func(i, j int) bool { return o[i].ID < o[j].ID })
	return o
}

// Stations returns the nodes that anchor a station, ordered by ID.
func (g *Graph) Stations() []*Node {
	var o []*Node
	for _, n := range g.Nodes() {
		if n.Station.Valid() {
			o = append(o, n)
		}
	}
	return o
}

// degree returns the number of edge ends at every node.
func (g *Graph) degree() map[int]int {
	d := make(map[int]int, len(g.nodes))
	for _, e := range g.edges {
		d[e.U]++
		d[e.V]++
	}
	return d
}

func (g *Graph) removeEdge(id int) { delete(g.edges, id) }

func (g *Graph) removeNode(id int) { delete(g.nodes, id) }

// Snapshot is an immutable copy of a graph. Queries against a snapshot
// never observe later mutations of the graph it was taken from.
type Snapshot struct {
	Nodes []*Node
	Edges []*Edge

	edgeIndex map[int]int
	nodeIndex map[int]int
}

// Snapshot returns a deep copy of the current state of g.
func (g *Graph) Snapshot() *Snapshot {
	s := &Snapshot{
		edgeIndex: make(map[int]int, len(g.edges)),
		nodeIndex: make(map[int]int, len(g.nodes)),
	}
	for i, n := range g.Nodes() {
		nn := *n
		s.Nodes = append(s.Nodes, &nn)
		s.nodeIndex[n.ID] = i
	}
	for i, e := range g.Edges() {
		s.Edges = append(s.Edges, e.clone())
		s.edgeIndex[e.ID] = i
	}
	return s
}

// Edge returns the snapshot copy of the edge with the given ID, or nil.
func (s *Snapshot) Edge(id int) *Edge {
	i, ok := s.edgeIndex[id]
	if !ok {
		return nil
	}
	return s.Edges[i]
}

// Node returns the snapshot copy of the node with the given ID, or nil.
func (s *Snapshot) Node(id int) *Node {
	i, ok := s.nodeIndex[id]
	if !ok {
		return nil
	}
	return s.Nodes[i]
}
