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

// Package citygraphutil contains the command-line interface to CityGraph.
package citygraphutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ctessum/geom/proj"
	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/citygraph"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

// Log is the logger used by the commands.
var Log = logrus.New()

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	def := citygraph.DefaultConfig()
	network := []*pflag.FlagSet{buildCmd.Flags(), stationsCmd.Flags(), barriersCmd.Flags()}

	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "loglevel",
			usage: `
              loglevel sets the logging level: debug, info, warn or error.`,
			defaultVal: "info",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Lines",
			usage: `
              Lines is the path to the shapefile holding the street or
              rail centrelines the network is built from.`,
			shorthand:  "l",
			defaultVal: "",
			flagsets:   network,
		},
		{
			name: "Stations",
			usage: `
              Stations is the path to the point shapefile holding the
              stations to attach to the network. The name column, if
              present, names the stations.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{stationsCmd.Flags(), barriersCmd.Flags()},
		},
		{
			name: "Extend",
			usage: `
              Extend specifies whether edges passing within ExtendBuffer of
              a station are split and connected to it.`,
			defaultVal: true,
			flagsets:   []*pflag.FlagSet{stationsCmd.Flags(), barriersCmd.Flags()},
		},
		{
			name: "Barriers",
			usage: `
              Barriers maps barrier types (road, water, railway or park) to
              the shapefiles holding barriers of that type, for example
              {"water":"rivers.shp","park":"parks.shp"}.`,
			defaultVal: map[string]string{},
			flagsets:   []*pflag.FlagSet{barriersCmd.Flags()},
		},
		{
			name: "SR",
			usage: `
              SR gives the spatial reference, in Proj4 or WKT format, that
              all inputs are converted to. It must be projected, with units
              of meters. If it is empty, inputs are used as they are.`,
			defaultVal: "",
			flagsets:   network,
		},
		{
			name: "NodesFile",
			usage: `
              NodesFile is the output file for the network nodes. Names
              ending in .geojson or .json are written as GeoJSON, others as
              shapefiles.`,
			defaultVal: "nodes.shp",
			flagsets:   network,
		},
		{
			name: "EdgesFile",
			usage: `
              EdgesFile is the output file for the network edges. Names
              ending in .geojson or .json are written as GeoJSON, others as
              shapefiles.`,
			defaultVal: "edges.shp",
			flagsets:   network,
		},
		{
			name: "summary",
			usage: `
              summary is the path of a TOML file to write a summary of the
              run to. No summary is written if it is empty.`,
			defaultVal: "",
			flagsets:   network,
		},
		{
			name: "Threshold.AttachDistance",
			usage: `
              Threshold.AttachDistance is the maximum distance between a
              station and the node or edge it is attached to.`,
			defaultVal: def.AttachDistance,
			flagsets:   []*pflag.FlagSet{stationsCmd.Flags(), barriersCmd.Flags()},
		},
		{
			name: "Threshold.MergeTolerance",
			usage: `
              Threshold.MergeTolerance is the maximum length of an edge
              between a station and a plain node for the two to be merged.`,
			defaultVal: def.MergeTolerance,
			flagsets:   []*pflag.FlagSet{stationsCmd.Flags(), barriersCmd.Flags()},
		},
		{
			name: "Threshold.ExtendBuffer",
			usage: `
              Threshold.ExtendBuffer is the distance around a station within
              which passing edges are connected to it.`,
			defaultVal: def.ExtendBuffer,
			flagsets:   []*pflag.FlagSet{stationsCmd.Flags(), barriersCmd.Flags()},
		},
		{
			name: "Threshold.MaxDissolveIterations",
			usage: `
              Threshold.MaxDissolveIterations caps the number of station
              dissolving passes. Values below 1 use one more than the
              number of nodes.`,
			defaultVal: def.MaxDissolveIterations,
			flagsets:   []*pflag.FlagSet{stationsCmd.Flags(), barriersCmd.Flags()},
		},
		{
			name: "Threshold.MinLoopLength",
			usage: `
              Threshold.MinLoopLength is the length below which an edge that
              starts and ends at the same node is removed.`,
			defaultVal: def.MinLoopLength,
			flagsets:   network,
		},
		{
			name: "Threshold.AlongOffset",
			usage: `
              Threshold.AlongOffset is the distance within which road and
              railway barriers are along an edge.`,
			defaultVal: def.AlongOffset,
			flagsets:   []*pflag.FlagSet{barriersCmd.Flags()},
		},
		{
			name: "Threshold.WaterOffset",
			usage: `
              Threshold.WaterOffset is the distance within which water
              barriers are along an edge.`,
			defaultVal: def.WaterOffset,
			flagsets:   []*pflag.FlagSet{barriersCmd.Flags()},
		},
		{
			name: "Threshold.ParkOffset",
			usage: `
              Threshold.ParkOffset is the distance within which parks are
              along an edge.`,
			defaultVal: def.ParkOffset,
			flagsets:   []*pflag.FlagSet{barriersCmd.Flags()},
		},
		{
			name: "Threshold.MinParkArea",
			usage: `
              Threshold.MinParkArea is the smallest park area kept as a
              barrier.`,
			defaultVal: def.MinParkArea,
			flagsets:   []*pflag.FlagSet{barriersCmd.Flags()},
		},
		{
			name: "Threshold.RoadIsolatedLength",
			usage: `
              Threshold.RoadIsolatedLength is the length below which road
              barriers with both ends unconnected are discarded.`,
			defaultVal: def.RoadIsolatedLength,
			flagsets:   []*pflag.FlagSet{barriersCmd.Flags()},
		},
		{
			name: "Threshold.RoadDanglingLength",
			usage: `
              Threshold.RoadDanglingLength is the length below which road
              barriers with one end unconnected are discarded.`,
			defaultVal: def.RoadDanglingLength,
			flagsets:   []*pflag.FlagSet{barriersCmd.Flags()},
		},
		{
			name: "Workers",
			usage: `
              Workers is the number of edges whose barrier relations are
              computed concurrently. Values below 1 use one per processor.`,
			defaultVal: def.Workers,
			flagsets:   []*pflag.FlagSet{barriersCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("CITYGRAPH")

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch v := option.defaultVal.(type) {
			case string:
				set.StringP(option.name, option.shorthand, v, option.usage)
			case bool:
				set.BoolP(option.name, option.shorthand, v, option.usage)
			case int:
				set.IntP(option.name, option.shorthand, v, option.usage)
			case float64:
				set.Float64P(option.name, option.shorthand, v, option.usage)
			case map[string]string:
				b := bytes.NewBuffer(nil)
				json.NewEncoder(b).Encode(v)
				set.StringP(option.name, option.shorthand, b.String(), option.usage)
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(buildCmd)
	Root.AddCommand(stationsCmd)
	Root.AddCommand(barriersCmd)
}

// setConfig finds and reads in the configuration file, if there is one,
// and sets the logging level.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("citygraph: problem reading configuration file: %v", err)
		}
	}
	level, err := logrus.ParseLevel(Cfg.GetString("loglevel"))
	if err != nil {
		return fmt.Errorf("citygraph: invalid loglevel: %v", err)
	}
	Log.SetLevel(level)
	return nil
}

// GraphConfig reads the network thresholds from a viper configuration.
// Thresholds that are not set keep their default values.
func GraphConfig(cfg *viper.Viper) citygraph.Config {
	c := citygraph.DefaultConfig()
	floats := map[string]*float64{
		"Threshold.AttachDistance":     &c.AttachDistance,
		"Threshold.MergeTolerance":     &c.MergeTolerance,
		"Threshold.ExtendBuffer":       &c.ExtendBuffer,
		"Threshold.AlongOffset":        &c.AlongOffset,
		"Threshold.WaterOffset":        &c.WaterOffset,
		"Threshold.ParkOffset":         &c.ParkOffset,
		"Threshold.MinLoopLength":      &c.MinLoopLength,
		"Threshold.MinParkArea":        &c.MinParkArea,
		"Threshold.RoadIsolatedLength": &c.RoadIsolatedLength,
		"Threshold.RoadDanglingLength": &c.RoadDanglingLength,
	}
	for name, v := range floats {
		if cfg.IsSet(name) {
			*v = cfg.GetFloat64(name)
		}
	}
	if cfg.IsSet("Threshold.MaxDissolveIterations") {
		c.MaxDissolveIterations = cfg.GetInt("Threshold.MaxDissolveIterations")
	}
	if cfg.IsSet("Workers") {
		c.Workers = cfg.GetInt("Workers")
	}
	return c
}

// GetStringMapString returns a map[string]string from a viper
// configuration, accounting for the fact that it might be a json object if
// it was set from a command line argument.
func GetStringMapString(varName string, cfg *viper.Viper) (map[string]string, error) {
	switch v := cfg.Get(varName).(type) {
	case nil:
		return nil, nil
	case map[string]string:
		return v, nil
	case map[string]interface{}:
		return cast.ToStringMapStringE(v)
	case string:
		o := make(map[string]string)
		if v == "" {
			return o, nil
		}
		if err := json.NewDecoder(bytes.NewBufferString(v)).Decode(&o); err != nil {
			return nil, fmt.Errorf("citygraph: problem parsing %s: %v", varName, err)
		}
		return o, nil
	default:
		return nil, fmt.Errorf("citygraph: invalid type for %s: %#v", varName, v)
	}
}

// spatialRef parses the SR configuration variable, returning nil if it is
// empty.
func spatialRef(cfg *viper.Viper) (*proj.SR, string, error) {
	s := os.ExpandEnv(cfg.GetString("SR"))
	if s == "" {
		return nil, "", nil
	}
	sr, err := proj.Parse(s)
	if err != nil {
		return nil, "", fmt.Errorf("citygraph: problem parsing the SR variable: %v", err)
	}
	return sr, s, nil
}

// pipeline creates a pipeline from the configuration. Only the inputs
// needed by the given command are set.
func pipeline(cfg *viper.Viper, stations, barriers bool) (*Pipeline, error) {
	sr, prj, err := spatialRef(cfg)
	if err != nil {
		return nil, err
	}
	p := &Pipeline{
		Lines:       os.ExpandEnv(cfg.GetString("Lines")),
		SR:          sr,
		Prj:         prj,
		NodesFile:   os.ExpandEnv(cfg.GetString("NodesFile")),
		EdgesFile:   os.ExpandEnv(cfg.GetString("EdgesFile")),
		SummaryFile: os.ExpandEnv(cfg.GetString("summary")),
		Config:      GraphConfig(cfg),
		Log:         Log,
	}
	if stations {
		p.Stations = os.ExpandEnv(cfg.GetString("Stations"))
		p.Extend = cfg.GetBool("Extend")
		if p.Stations == "" && !barriers {
			return nil, fmt.Errorf("citygraph: the Stations variable is required")
		}
	}
	if barriers {
		files, err := GetStringMapString("Barriers", cfg)
		if err != nil {
			return nil, err
		}
		if len(files) == 0 {
			return nil, fmt.Errorf("citygraph: the Barriers variable is required")
		}
		p.Barriers = make(map[string]string, len(files))
		for t, f := range files {
			p.Barriers[t] = os.ExpandEnv(f)
		}
	}
	return p, nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "citygraph",
	Short: "Build planar street and rail networks.",
	Long: `CityGraph builds a clean planar graph from street or rail centrelines,
attaches stations to it and classifies its edges against barriers such as
rivers, parks, major roads and railways.

Refer to the subcommand documentation for configuration options and default settings.
Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'CITYGRAPH_var' where 'var' is the
name of the variable to be set. File paths may contain environment variables.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of CityGraph.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("CityGraph v%s\n", citygraph.Version)
	},
	DisableAutoGenTag: true,
}

// buildCmd builds and saves a network.
var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build a network from lines",
	Long: `build reads the Lines shapefile, removes duplicate and malformed
lines, builds the network and repairs its topology, and writes the nodes
and edges to NodesFile and EdgesFile.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := pipeline(Cfg, false, false)
		if err != nil {
			return err
		}
		_, err = p.Run(context.Background())
		return err
	},
	DisableAutoGenTag: true,
}

// stationsCmd builds a network and attaches stations to it.
var stationsCmd = &cobra.Command{
	Use:   "stations",
	Short: "Build a network and attach stations",
	Long: `stations builds a network as the build command does, then attaches
the stations in the Stations shapefile to it, connects passing edges to the
stations if Extend is true, and dissolves each station into a single node.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := pipeline(Cfg, true, false)
		if err != nil {
			return err
		}
		_, err = p.Run(context.Background())
		return err
	},
	DisableAutoGenTag: true,
}

// barriersCmd builds a network and classifies its edges against barriers.
var barriersCmd = &cobra.Command{
	Use:   "barriers",
	Short: "Build a network and relate its edges to barriers",
	Long: `barriers builds a network as the build command does, attaching
stations if the Stations variable is set, then assembles the barriers in the
Barriers shapefiles and records for every edge the barriers along it, the
water it crosses and the parks it runs through.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := pipeline(Cfg, true, true)
		if err != nil {
			return err
		}
		_, err = p.Run(context.Background())
		return err
	},
	DisableAutoGenTag: true,
}
