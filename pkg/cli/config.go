// Package cli provides the shared configuration surface of the gantry
// binaries: flags with environment variable defaults describing the
// axis set, and construction of a connected-ready Gantry from them.
package cli

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/scanworks/gantry.go/pkg/axis"
	"github.com/scanworks/gantry.go/pkg/axis/serial"
	"github.com/scanworks/gantry.go/pkg/gantry"
)

// Config carries the per-deployment gantry setup. The list-valued
// fields are parallel, one element per axis.
type Config struct {
	Ports      string
	Baud       int
	DistPerRot string
	MaxStep    string
}

// Reference deployment: the three-axis scanner gantry. Distances per
// rotation were measured per axis; step limits come from
// FindMaximumStep runs against the physical hard stops.
var defaultConfig = Config{
	Ports:      "/dev/ttyUSB0,/dev/ttyUSB1,/dev/ttyUSB2",
	Baud:       9600,
	DistPerRot: "1.9983,1.9983,1.9959",
	MaxStep:    "1303641,1425174,1342922",
}

func init() {
	if val := os.Getenv("GANTRY_PORTS"); val != "" {
		defaultConfig.Ports = val
	}
	if val := os.Getenv("GANTRY_BAUD"); val != "" {
		if baud, err := strconv.Atoi(val); err == nil {
			defaultConfig.Baud = baud
		}
	}
	if val := os.Getenv("GANTRY_DIST_PER_ROT"); val != "" {
		defaultConfig.DistPerRot = val
	}
	if val := os.Getenv("GANTRY_MAX_STEP"); val != "" {
		defaultConfig.MaxStep = val
	}
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Ports, "ports", defaultConfig.Ports,
		"Comma-separated serial ports, one per axis.")
	flag.IntVar(&defaultConfig.Baud, "baud", defaultConfig.Baud,
		"Serial baud rate.")
	flag.StringVar(&defaultConfig.DistPerRot, "dist-per-rot", defaultConfig.DistPerRot,
		"Comma-separated travel per rotation in mm, one per axis.")
	flag.StringVar(&defaultConfig.MaxStep, "max-step", defaultConfig.MaxStep,
		"Comma-separated maximum microstep positions, one per axis.")
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// GantryConfig translates the flag values into a gantry.Config.
func (c *Config) GantryConfig() (gantry.Config, error) {
	cfg := gantry.Config{
		Ports: splitList(c.Ports),
		Baud:  c.Baud,
		Axis:  axis.Config{},
	}
	for _, item := range splitList(c.DistPerRot) {
		v, err := strconv.ParseFloat(item, 64)
		if err != nil {
			return cfg, fmt.Errorf("invalid dist-per-rot %q: %v", item, err)
		}
		cfg.DistPerRot = append(cfg.DistPerRot, v)
	}
	for _, item := range splitList(c.MaxStep) {
		v, err := strconv.ParseInt(item, 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("invalid max-step %q: %v", item, err)
		}
		cfg.MaxStep = append(cfg.MaxStep, v)
	}
	return cfg, nil
}

// NewGantry builds a Gantry on serial transports from the config.
func (c *Config) NewGantry() (*gantry.Gantry, error) {
	cfg, err := c.GantryConfig()
	if err != nil {
		return nil, err
	}
	return gantry.New(cfg, serial.Dialer{})
}

func splitList(s string) []string {
	var items []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
