// Package config loads and saves the YAML configuration of the build
// pipeline.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/chazu/aulos/pkg/assembly"
	"github.com/chazu/aulos/pkg/cutter"
	"github.com/chazu/aulos/pkg/instrument"
	"github.com/chazu/aulos/pkg/kernel/sdfx"
	"github.com/chazu/aulos/pkg/piece"
	"github.com/chazu/aulos/pkg/profile"
	"github.com/chazu/aulos/pkg/revolve"
)

// Kernel backends.
const (
	BackendSdfx     = "sdfx"
	BackendManifold = "manifold"
)

// Profile configures the sanitizer. Epsilon changes output geometry
// slightly: stepped points are pushed by this much.
type Profile struct {
	Epsilon           float64 `yaml:"epsilon"`            // mm
	DiameterTolerance float64 `yaml:"diameter_tolerance"` // mm
}

type Revolve struct {
	Resolution int `yaml:"resolution"`
}

type Cutter struct {
	Margin         float64 `yaml:"margin"`          // mm beyond the outer surface
	DefaultTaper   float64 `yaml:"default_taper"`   // degrees
	TaperDirection string  `yaml:"taper_direction"` // widen-inward | widen-outward
}

type Kernel struct {
	Backend   string `yaml:"backend"`
	MeshCells int    `yaml:"mesh_cells"`
}

type Pipeline struct {
	Workers int `yaml:"workers"`
}

// Config is the full configuration file.
type Config struct {
	Profile  Profile  `yaml:"profile"`
	Revolve  Revolve  `yaml:"revolve"`
	Cutter   Cutter   `yaml:"cutter"`
	Kernel   Kernel   `yaml:"kernel"`
	Pipeline Pipeline `yaml:"pipeline"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Profile: Profile{
			Epsilon:           profile.DefaultEpsilon,
			DiameterTolerance: profile.DefaultDiameterTolerance,
		},
		Revolve: Revolve{Resolution: instrument.DefaultResolution},
		Cutter: Cutter{
			Margin:         cutter.DefaultMargin,
			TaperDirection: cutter.WidenInward.String(),
		},
		Kernel: Kernel{
			Backend:   BackendSdfx,
			MeshCells: sdfx.DefaultMeshCells,
		},
		Pipeline: Pipeline{Workers: assembly.DefaultWorkers},
	}
}

// DefaultPath returns ~/.aulos/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".aulos", "config.yaml")
}

// Load reads the configuration at path. Fields absent from the file keep
// their defaults. A missing file yields Default with no error.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path, creating any missing parent directories.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate rejects out-of-range values.
func (c Config) Validate() error {
	switch {
	case !(c.Profile.Epsilon > 0):
		return fmt.Errorf("profile.epsilon must be positive, got %v", c.Profile.Epsilon)
	case !(c.Profile.DiameterTolerance >= 0):
		return fmt.Errorf("profile.diameter_tolerance must not be negative, got %v", c.Profile.DiameterTolerance)
	case c.Revolve.Resolution < revolve.MinResolution:
		return fmt.Errorf("revolve.resolution must be at least %d, got %d", revolve.MinResolution, c.Revolve.Resolution)
	case !(c.Cutter.Margin > 0):
		return fmt.Errorf("cutter.margin must be positive, got %v", c.Cutter.Margin)
	case math.IsNaN(c.Cutter.DefaultTaper) || math.Abs(c.Cutter.DefaultTaper) >= 90:
		return fmt.Errorf("cutter.default_taper must be within (-90, 90), got %v", c.Cutter.DefaultTaper)
	case c.Kernel.Backend != BackendSdfx && c.Kernel.Backend != BackendManifold:
		return fmt.Errorf("kernel.backend must be %q or %q, got %q", BackendSdfx, BackendManifold, c.Kernel.Backend)
	case c.Kernel.MeshCells < 8:
		return fmt.Errorf("kernel.mesh_cells must be at least 8, got %d", c.Kernel.MeshCells)
	case c.Pipeline.Workers < 1:
		return fmt.Errorf("pipeline.workers must be at least 1, got %d", c.Pipeline.Workers)
	}
	if _, err := cutter.ParseTaperDirection(c.Cutter.TaperDirection); err != nil {
		return fmt.Errorf("cutter.taper_direction: %w", err)
	}
	return nil
}

// Sanitizer returns the profile sanitizer described by c.
func (c Config) Sanitizer() profile.Sanitizer {
	return profile.Sanitizer{Epsilon: c.Profile.Epsilon, DiameterTolerance: c.Profile.DiameterTolerance}
}

// PieceOptions returns the piece builder options described by c.
func (c Config) PieceOptions() piece.Options {
	dir, _ := cutter.ParseTaperDirection(c.Cutter.TaperDirection)
	return piece.Options{
		Resolution: c.Revolve.Resolution,
		Margin:     c.Cutter.Margin,
		Direction:  dir,
		Sanitizer:  c.Sanitizer(),
	}
}

// InstrumentDefaults returns the defaults for DSL-built instruments.
func (c Config) InstrumentDefaults() instrument.Defaults {
	return instrument.Defaults{
		Resolution: c.Revolve.Resolution,
		TaperAngle: c.Cutter.DefaultTaper,
		Units:      "mm",
	}
}
