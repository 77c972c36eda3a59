// Package netspec describes networks in YAML files and builds them into a
// kernel.
//
// A network file lists populations of nodes, the connections between them
// and the durations of the Advance calls that run the network:
//
//	resolution: 0.1
//	workers: 4
//	nodes:
//	  - name: drive
//	    model: iaf_psc_alpha
//	    params: {I_e: 1000.0}
//	  - name: spikes
//	    model: spike_recorder
//	connections:
//	  - {source: drive, target: spikes}
//	run: [50.0, 50.0]
//
// Settings can be overridden by NSIM_* environment variables, which may come
// from a .env file.
package netspec

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sarchlab/nsim/kernel"
	"github.com/sarchlab/nsim/model"
	"github.com/sarchlab/nsim/simerr"
)

// Environment variables that override network settings.
const (
	EnvResolution = "NSIM_RESOLUTION"
	EnvTicsPerMs  = "NSIM_TICS_PER_MS"
	EnvWorkers    = "NSIM_WORKERS"
	EnvLogLevel   = "NSIM_LOG_LEVEL"
)

// Network is a network file.
type Network struct {
	// Resolution is the step length in milliseconds. 0 keeps the kernel
	// default.
	Resolution float64 `yaml:"resolution"`

	// TicsPerMs is the tic base of the clock. 0 keeps the kernel default.
	TicsPerMs int64 `yaml:"tics_per_ms"`

	// Workers is the number of goroutines integrating neurons.
	Workers int `yaml:"workers"`

	// LogLevel is a zap level name such as "info" or "debug".
	LogLevel string `yaml:"log_level"`

	Populations []Population `yaml:"nodes"`
	Connections []Connection `yaml:"connections"`

	// Run lists the durations, in milliseconds, of successive Advance calls.
	Run []float64 `yaml:"run"`

	// Checks list recordings that must be identical after a run.
	Checks []Check `yaml:"checks"`
}

// A Population is a group of nodes created by one Create call.
type Population struct {
	Name   string         `yaml:"name"`
	Model  string         `yaml:"model"`
	Count  int            `yaml:"count"`
	Params map[string]any `yaml:"params"`
}

// A Connection connects two populations.
type Connection struct {
	Source string   `yaml:"source"`
	Target string   `yaml:"target"`
	Rule   string   `yaml:"rule"`
	Delay  *float64 `yaml:"delay"`
	Weight *float64 `yaml:"weight"`
}

// A Check requires one field to be recorded identically by several
// single-node recording populations.
type Check struct {
	Field   string   `yaml:"field"`
	Devices []string `yaml:"devices"`
}

// Parse decodes a network from YAML and validates it. Unknown keys are
// rejected.
func Parse(r io.Reader) (*Network, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	n := &Network{}
	if err := dec.Decode(n); err != nil && !errors.Is(err, io.EOF) {
		return nil, simerr.Configf("parsing network: %v", err)
	}

	if err := n.Validate(); err != nil {
		return nil, err
	}

	return n, nil
}

// ParseBytes decodes a network held in memory.
func ParseBytes(data []byte) (*Network, error) {
	return Parse(bytes.NewReader(data))
}

// Load reads a network file, loads the given env files and applies the
// NSIM_* environment overrides. Env files that do not exist are skipped.
func Load(path string, envFiles ...string) (*Network, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading network file: %w", err)
	}
	defer f.Close()

	n, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if err := LoadEnv(envFiles...); err != nil {
		return nil, err
	}

	if err := n.ApplyEnv(); err != nil {
		return nil, err
	}

	return n, nil
}

// LoadEnv loads env files into the process environment without overriding
// variables that are already set.
func LoadEnv(files ...string) error {
	for _, file := range files {
		err := godotenv.Load(file)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}

		if err != nil {
			return fmt.Errorf("loading %s: %w", file, err)
		}
	}

	return nil
}

// ApplyEnv overrides settings with the NSIM_* environment variables.
func (n *Network) ApplyEnv() error {
	if v := os.Getenv(EnvResolution); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return simerr.Configf("%s: %v", EnvResolution, err)
		}
		n.Resolution = f
	}

	if v := os.Getenv(EnvTicsPerMs); v != "" {
		i, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return simerr.Configf("%s: %v", EnvTicsPerMs, err)
		}
		n.TicsPerMs = i
	}

	if v := os.Getenv(EnvWorkers); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			return simerr.Configf("%s: %v", EnvWorkers, err)
		}
		n.Workers = i
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		n.LogLevel = v
	}

	return n.Validate()
}

// Validate checks the network without building it. Model parameters are
// checked when the network is built.
func (n *Network) Validate() error {
	if n.Resolution < 0 {
		return simerr.Configf("resolution must not be negative")
	}

	if n.TicsPerMs < 0 {
		return simerr.Configf("tics_per_ms must not be negative")
	}

	if n.Workers < 0 {
		return simerr.Configf("workers must not be negative")
	}

	if _, err := n.Level(); err != nil {
		return err
	}

	names := make(map[string]bool, len(n.Populations))
	for i, p := range n.Populations {
		if p.Name == "" {
			return simerr.Configf("node group %d has no name", i)
		}

		if names[p.Name] {
			return simerr.Configf("node group %q is defined twice", p.Name)
		}
		names[p.Name] = true

		if p.Model == "" {
			return simerr.Configf("node group %q has no model", p.Name)
		}

		if p.Count < 0 {
			return simerr.Configf("node group %q has a negative count", p.Name)
		}
	}

	for _, c := range n.Connections {
		if !names[c.Source] {
			return simerr.Configf("connection source %q is not defined", c.Source)
		}

		if !names[c.Target] {
			return simerr.Configf("connection target %q is not defined", c.Target)
		}
	}

	for _, c := range n.Checks {
		if c.Field == "" || len(c.Devices) < 2 {
			return simerr.Configf("a check needs a field and two devices")
		}

		for _, d := range c.Devices {
			if !names[d] {
				return simerr.Configf("checked device %q is not defined", d)
			}
		}
	}

	for _, d := range n.Run {
		if d <= 0 {
			return simerr.Configf("run durations must be positive, got %g", d)
		}
	}

	return nil
}

// Level returns the log level. An empty level means info.
func (n *Network) Level() (zap.AtomicLevel, error) {
	if n.LogLevel == "" {
		return zap.NewAtomicLevelAt(zap.InfoLevel), nil
	}

	level, err := zap.ParseAtomicLevel(n.LogLevel)
	if err != nil {
		return level, simerr.Configf("log level: %v", err)
	}

	return level, nil
}

// Options returns the kernel options the network asks for.
func (n *Network) Options() []kernel.Option {
	var opts []kernel.Option

	if n.TicsPerMs > 0 {
		opts = append(opts, kernel.WithTicsPerMs(n.TicsPerMs))
	}

	if n.Resolution > 0 {
		opts = append(opts, kernel.WithResolution(n.Resolution))
	}

	if n.Workers > 0 {
		opts = append(opts, kernel.WithWorkers(n.Workers))
	}

	return opts
}

// Duration is the total simulated time of the run blocks in milliseconds.
func (n *Network) Duration() float64 {
	total := 0.0
	for _, d := range n.Run {
		total += d
	}

	return total
}

func (p Population) count() int {
	if p.Count == 0 {
		return 1
	}

	return p.Count
}

func (p Population) params() model.Params {
	return model.Params(p.Params)
}

func (c Connection) spec() kernel.ConnSpec {
	spec := kernel.NewConnSpec()

	if c.Rule != "" {
		spec = spec.WithRule(kernel.Rule(c.Rule))
	}

	if c.Delay != nil {
		spec = spec.WithDelay(*c.Delay)
	}

	if c.Weight != nil {
		spec = spec.WithWeight(*c.Weight)
	}

	return spec
}
