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

// Command citygraph is a command-line interface for building street and
// rail networks.
package main

import (
	"fmt"
	"os"

	"github.com/spatialmodel/citygraph/citygraphutil"
)

func main() {
	if err := citygraphutil.Root.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(-1)
	}
}
