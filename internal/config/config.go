// SPDX-License-Identifier: EPL-2.0

// Package config loads the audspace command configuration from a YAML
// file, AUDSPACE_ environment variables and command line flags, in that
// order of precedence from lowest to highest.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/kkyr/fig"
	"github.com/spf13/pflag"

	"github.com/ik5/audspace/buffer"
	"github.com/ik5/audspace/engine"
	"github.com/ik5/audspace/output"
	"github.com/ik5/audspace/spatial"
)

const (
	EnvPrefix   = "AUDSPACE"
	DefaultFile = "audspace.yaml"
)

var ErrInvalid = errors.New("invalid configuration")

type Engine struct {
	SampleRate      int     `fig:"sample_rate" default:"48000"`
	BlockSize       int     `fig:"block_size" default:"512"`
	QueueSize       int     `fig:"queue_size" default:"1024"`
	MaxSources      int     `fig:"max_sources" default:"256"`
	MasterGain      float64 `fig:"master_gain" default:"1"`
	DistanceModel   string  `fig:"distance_model" default:"inverse"`
	Renderer        string  `fig:"renderer" default:"panning"`
	StreamLookahead int     `fig:"stream_lookahead" default:"16384"`
}

type Output struct {
	Backend string        `fig:"backend" default:"oto"`
	Format  string        `fig:"format" default:"f32"`
	Latency time.Duration `fig:"latency" default:"20ms"`
}

type HRTF struct {
	// Dir holds measured HRIR files; empty selects the spherical head model.
	Dir string `fig:"dir"`
}

type Log struct {
	Level   string `fig:"level" default:"info"`
	Console bool   `fig:"console"`
}

type Metrics struct {
	// Addr is the listen address of the /metrics endpoint; empty disables it.
	Addr string `fig:"addr"`
}

type Config struct {
	Engine  Engine  `fig:"engine"`
	Output  Output  `fig:"output"`
	HRTF    HRTF    `fig:"hrtf"`
	Log     Log     `fig:"log"`
	Metrics Metrics `fig:"metrics"`
}

// Load reads path, or DefaultFile from the usual directories when path is
// empty. A missing default file is not an error.
func Load(path string) (*Config, error) {
	var c Config

	if path != "" {
		err := fig.Load(&c, fig.File(filepath.Base(path)), fig.Dirs(filepath.Dir(path)), fig.UseEnv(EnvPrefix))
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
		return &c, nil
	}

	dirs := []string{".", "configs"}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".audspace"))
	}
	err := fig.Load(&c, fig.File(DefaultFile), fig.Dirs(dirs...), fig.UseEnv(EnvPrefix))
	if errors.Is(err, fig.ErrFileNotFound) {
		c = Config{}
		err = fig.Load(&c, fig.IgnoreFile(), fig.UseEnv(EnvPrefix))
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &c, nil
}

// WithFlags binds flags to c using the loaded values as defaults.
func (c *Config) WithFlags(fs *pflag.FlagSet) *Config {
	fs.IntVarP(&c.Engine.SampleRate, "rate", "r", c.Engine.SampleRate, "Output sample rate")
	fs.IntVar(&c.Engine.BlockSize, "block", c.Engine.BlockSize, "Frames mixed per pass")
	fs.IntVar(&c.Engine.QueueSize, "queue", c.Engine.QueueSize, "Control command queue size")
	fs.IntVar(&c.Engine.MaxSources, "max-sources", c.Engine.MaxSources, "Maximum live sources")
	fs.Float64Var(&c.Engine.MasterGain, "gain", c.Engine.MasterGain, "Master gain")
	fs.StringVar(&c.Engine.DistanceModel, "distance", c.Engine.DistanceModel, "Distance model: none, inverse, inverse-square, linear, exponent")
	fs.StringVar(&c.Engine.Renderer, "renderer", c.Engine.Renderer, "Spatial renderer: panning, hrtf")
	fs.IntVar(&c.Engine.StreamLookahead, "lookahead", c.Engine.StreamLookahead, "Decoded frames kept ahead of stream playback")

	fs.StringVarP(&c.Output.Backend, "backend", "b", c.Output.Backend, "Audio backend: oto, malgo")
	fs.StringVar(&c.Output.Format, "format", c.Output.Format, "Device sample format: f32, s16")
	fs.DurationVar(&c.Output.Latency, "latency", c.Output.Latency, "Device buffer length")

	fs.StringVar(&c.HRTF.Dir, "hrir", c.HRTF.Dir, "Directory of HRIR wav files")

	fs.StringVar(&c.Log.Level, "log-level", c.Log.Level, "Log level")
	fs.BoolVar(&c.Log.Console, "log-console", c.Log.Console, "Human readable logs")

	fs.StringVar(&c.Metrics.Addr, "metrics", c.Metrics.Addr, "Prometheus listen address, e.g. :9090")
	return c
}

// Parse loads the file named by --config (or the default one), applies
// flags from args and validates the result. It returns the positional
// arguments. extra, when set, registers command specific flags.
func Parse(name string, args []string, extra func(*pflag.FlagSet)) (*Config, []string, error) {
	pre := pflag.NewFlagSet(name, pflag.ContinueOnError)
	pre.ParseErrorsWhitelist.UnknownFlags = true
	pre.SetOutput(io.Discard)
	pre.Usage = func() {}
	path := pre.StringP("config", "c", "", "")
	_ = pre.Parse(args)

	c, err := Load(*path)
	if err != nil {
		return nil, nil, err
	}

	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.StringP("config", "c", *path, "Configuration file")
	c.WithFlags(fs)
	if extra != nil {
		extra(fs)
	}
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, nil, err
	}
	return c, fs.Args(), nil
}

// Validate checks ranges and names.
func (c *Config) Validate() error {
	e := c.Engine
	switch {
	case e.SampleRate <= 0:
		return fmt.Errorf("%w: sample rate %d", ErrInvalid, e.SampleRate)
	case e.BlockSize <= 0, e.QueueSize <= 0, e.MaxSources <= 0, e.StreamLookahead <= 0:
		return fmt.Errorf("%w: sizes must be positive: %+v", ErrInvalid, e)
	case e.MasterGain < 0:
		return fmt.Errorf("%w: master gain %v", ErrInvalid, e.MasterGain)
	case c.Output.Latency < 0:
		return fmt.Errorf("%w: latency %v", ErrInvalid, c.Output.Latency)
	}
	if _, err := spatial.ParseDistanceModel(e.DistanceModel); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if _, err := engine.ParseRendererKind(e.Renderer); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if _, err := output.ParseSampleFormat(c.Output.Format); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// EngineConfig maps the engine section. Logger, metrics, HRTF and the
// streamer are left for the caller.
func (c *Config) EngineConfig() (engine.Config, error) {
	dm, err := spatial.ParseDistanceModel(c.Engine.DistanceModel)
	if err != nil {
		return engine.Config{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	rk, err := engine.ParseRendererKind(c.Engine.Renderer)
	if err != nil {
		return engine.Config{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	gain := float32(c.Engine.MasterGain)
	return engine.Config{
		SampleRate:    c.Engine.SampleRate,
		BlockSize:     c.Engine.BlockSize,
		QueueSize:     c.Engine.QueueSize,
		MaxSources:    c.Engine.MaxSources,
		MasterGain:    &gain,
		DistanceModel: dm,
		Renderer:      rk,
	}, nil
}

// DeviceOptions maps the output section.
func (c *Config) DeviceOptions() output.DeviceOptions {
	f, _ := output.ParseSampleFormat(c.Output.Format)
	return output.DeviceOptions{SampleRate: c.Engine.SampleRate, Format: f, Latency: c.Output.Latency}
}

// StreamOptions maps the stream look-ahead.
func (c *Config) StreamOptions() []buffer.StreamOption {
	return []buffer.StreamOption{buffer.WithLookahead(c.Engine.StreamLookahead)}
}
