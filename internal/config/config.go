package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Capture struct {
	Wait   int    `yaml:"wait"`    // settle delay in main-camera frames
	BurnIn int    `yaml:"burn_in"` // frames before the first capture
	Region int    `yaml:"region"`  // probe edge length in pixels
	Camera string `yaml:"camera"`
	Reduce string `yaml:"reduce"` // "first" | "mean"
}

type Viewport struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

type Sweep struct {
	Start     int     `yaml:"start"`
	LightMin  float64 `yaml:"light_min"`
	LightMax  float64 `yaml:"light_max"`
	Increment float64 `yaml:"increment"`
	Knots     string  `yaml:"knots,omitempty"` // knot table yaml; empty for fixed range
	// knot-mode range widening around the neighbouring knots
	FloorMargin   float64 `yaml:"floor_margin"`
	CeilingMargin float64 `yaml:"ceiling_margin"`
}

type Output struct {
	Dir    string `yaml:"dir"`
	CSV    string `yaml:"csv,omitempty"` // defaults to OutputName()
	SQLite string `yaml:"sqlite,omitempty"`
}

type Monitor struct {
	Addr string `yaml:"addr,omitempty"`
}

type Config struct {
	Mode    string  `yaml:"mode"` // "sweep" | "direct" | "target"
	Samples int     `yaml:"samples"`
	Seed    *int64  `yaml:"seed,omitempty"` // unset: seeded from the clock
	MaxUK   float64 `yaml:"max_uk"`

	Material      string  `yaml:"material"` // "lambertian" | "unlit"
	Tonemap       bool    `yaml:"tonemap"`
	Exposure      float64 `yaml:"exposure"`
	LightingScale float64 `yaml:"lighting_scale"`

	Sampler        string  `yaml:"sampler"` // "naive" | "area"
	Symmetric      bool    `yaml:"symmetric"`
	MaxDeclination float64 `yaml:"max_declination"`

	Capture  Capture  `yaml:"capture"`
	Viewport Viewport `yaml:"viewport"`
	Sweep    Sweep    `yaml:"sweep"`
	LUTDir   string   `yaml:"lut_dir,omitempty"` // empty: generate delta tables

	Output  Output  `yaml:"output"`
	Monitor Monitor `yaml:"monitor"`
	Rate    string  `yaml:"rate,omitempty"` // frame pacing, e.g. "60Hz"; empty runs unpaced
}

// Default returns the settings the capture rig shipped with.
func Default() Config {
	return Config{
		Mode:           "target",
		Samples:        5000,
		MaxUK:          10,
		Material:       "lambertian",
		LightingScale:  1,
		Sampler:        "area",
		MaxDeclination: 60,
		Capture:        Capture{Wait: 2, BurnIn: 30, Region: 4, Camera: "main", Reduce: "first"},
		Viewport:       Viewport{Width: 256, Height: 256},
		Sweep:          Sweep{Start: 1, LightMin: 1e-4, LightMax: 400, Increment: 1.01, FloorMargin: 0.95, CeilingMargin: 1.05},
		Output:         Output{Dir: "data"},
	}
}

// Load reads path over Default, so omitted keys keep their defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Default()
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

func (c *Config) Validate() error {
	var errs []error
	switch c.Mode {
	case "sweep", "direct", "target":
	default:
		errs = append(errs, fmt.Errorf("mode %q: want sweep, direct or target", c.Mode))
	}
	switch c.Material {
	case "lambertian", "unlit":
	default:
		errs = append(errs, fmt.Errorf("material %q: want lambertian or unlit", c.Material))
	}
	switch c.Capture.Reduce {
	case "first", "mean":
	default:
		errs = append(errs, fmt.Errorf("capture.reduce %q: want first or mean", c.Capture.Reduce))
	}
	if c.Samples < 0 {
		errs = append(errs, fmt.Errorf("samples %d < 0", c.Samples))
	}
	if c.Capture.Wait < 1 {
		errs = append(errs, fmt.Errorf("capture.wait %d < 1", c.Capture.Wait))
	}
	if c.Capture.Region < 1 || c.Capture.Region > c.Viewport.Width || c.Capture.Region > c.Viewport.Height {
		errs = append(errs, fmt.Errorf("capture.region %d does not fit the viewport", c.Capture.Region))
	}
	if c.Viewport.Width < 1 || c.Viewport.Height < 1 {
		errs = append(errs, errors.New("viewport must be at least 1x1"))
	}
	return errors.Join(errs...)
}

// OutputName builds the data file name from the run toggles, e.g.
// data_L1_T0_F1_S05000_M10.txt for a seeded lambertian target run.
func (c *Config) OutputName() string {
	if c.Mode == "sweep" {
		return "data_delta.txt"
	}
	var b strings.Builder
	b.WriteString("data")
	b.WriteString(flag("_L", c.Material == "lambertian"))
	b.WriteString(flag("_T", c.Tonemap))
	b.WriteString(flag("_F", c.Seed != nil))
	b.WriteString(flag("_A", c.Mode == "direct"))
	fmt.Fprintf(&b, "_S%05d", c.Samples)
	if c.Mode == "target" {
		fmt.Fprintf(&b, "_M%.0f", c.MaxUK)
	}
	b.WriteString(".txt")
	return b.String()
}

func flag(tag string, on bool) string {
	if on {
		return tag + "1"
	}
	return tag + "0"
}
