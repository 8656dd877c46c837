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
along with CityGraph.  If not, see <http://www.gnu.org/licenses/>.*/

// Package hash computes content keys for geometries.
package hash

import (
	"encoding/gob"
	"fmt"
	"hash/fnv"

	"github.com/ctessum/geom"
	"github.com/davecgh/go-spew/spew"
)

// Geometry returns a key that is equal for two geometries if and only if
// they have the same concrete type and the same coordinate sequence, in
// the same order.
func Geometry(g geom.Geom) string {
	h := fnv.New128a()
	fmt.Fprintf(h, "%T:", g)

	e := gob.NewEncoder(h)
	if err := e.Encode(g); err == nil {
		bKey := h.Sum([]byte{})
		return fmt.Sprintf("%x", bKey[0:h.Size()])
	}
	// gob refuses some values (e.g., nil geometries); fall back to a
	// deterministic textual dump.
	h.Reset()
	fmt.Fprintf(h, "%T:", g)
	printer := spew.ConfigState{
		Indent:                  " ",
		DisableMethods:          true,
		DisablePointerAddresses: true,
		DisableCapacities:       true,
	}
	printer.Fprintf(h, "%#v", g)
	bKey := h.Sum([]byte{})
	return fmt.Sprintf("%x", bKey[0:h.Size()])
}
