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
	"strings"
)

// MalformedGeometryError is returned for a feature whose geometry cannot be
// reduced to a non-degenerate line. Features carrying this error are
// dropped rather than aborting the run.
type MalformedGeometryError struct {
	Index  int    // position of the feature in its input collection
	Reason string
}

func (e *MalformedGeometryError) Error() string {
	return fmt.Sprintf("citygraph: malformed geometry in feature %d: %s", e.Index, e.Reason)
}

// InvariantError reports a violated graph invariant, such as an edge
// referencing a node that does not exist. It aborts the current repair pass.
type InvariantError struct {
	Problem string
	NodeIDs []int
	EdgeIDs []int
}

func (e *InvariantError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "citygraph: graph invariant violated: %s", e.Problem)
	if len(e.EdgeIDs) > 0 {
		fmt.Fprintf(&b, "; edges %v", e.EdgeIDs)
	}
	if len(e.NodeIDs) > 0 {
		fmt.Fprintf(&b, "; nodes %v", e.NodeIDs)
	}
	return b.String()
}
