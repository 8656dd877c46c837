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

// Config holds the distance thresholds used when building, repairing and
// querying a network. All distances are in the units of the input spatial
// reference, which is expected to be projected (typically meters).
type Config struct {
	// AttachDistance is the maximum distance between a station and the
	// node or edge it is attached to.
	AttachDistance float64

	// MergeTolerance is the maximum length of an edge whose endpoints are
	// candidates for a station merge.
	MergeTolerance float64

	// ExtendBuffer is the distance around a station within which passing
	// edges are split and attached to it.
	ExtendBuffer float64

	// AlongOffset is the default buffer radius for along-barrier queries.
	AlongOffset float64

	// WaterOffset and ParkOffset are the buffer radii used when
	// assigning water and park barriers.
	WaterOffset, ParkOffset float64

	// MinLoopLength is the length below which an edge starting and ending
	// at the same node is considered a digitization artifact.
	MinLoopLength float64

	// MinParkArea is the smallest park area kept as a barrier.
	MinParkArea float64

	// RoadIsolatedLength and RoadDanglingLength are the lengths below which
	// road barrier sectors with two or one unconnected ends, respectively,
	// are discarded.
	RoadIsolatedLength, RoadDanglingLength float64

	// MaxDissolveIterations caps the station dissolving loop. Values < 1
	// mean one more than the number of nodes at the start of the loop.
	MaxDissolveIterations int

	// Workers is the number of concurrent relation queries. Values < 1
	// mean runtime.GOMAXPROCS(0).
	Workers int
}

// DefaultConfig returns thresholds suited to urban rail and barrier
// analyses, in meters.
func DefaultConfig() Config {
	return Config{
		AttachDistance:     50,
		MergeTolerance:     40,
		ExtendBuffer:       25,
		AlongOffset:        100,
		WaterOffset:        200,
		ParkOffset:         200,
		MinLoopLength:      1,
		MinParkArea:        100000,
		RoadIsolatedLength: 500,
		RoadDanglingLength: 200,
	}
}
