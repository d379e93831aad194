package rgo

import (
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// DefaultROptions are the command line options R is started with when
// none are given. --interactive keeps R running after a top-level error.
var DefaultROptions = []string{"--no-save", "--no-restore", "--silent", "--interactive"}

const defaultCloseTimeout = 5 * time.Second

// Config holds the settings of a Conn. It can be loaded from a TOML file:
//
//	r_path = "/opt/R/4.3.1/bin/R"
//	r_options = ["--no-save", "--no-restore", "--silent", "--interactive"]
//	debug = false
//	close_timeout = "10s"
type Config struct {
	RPath               string   `toml:"r_path"`
	ROptions            []string `toml:"r_options"`
	Debug               bool     `toml:"debug"`
	SkipDependencyCheck bool     `toml:"skip_dependency_check"`
	CloseTimeout        Duration `toml:"close_timeout"`
}

// Duration is a time.Duration that decodes from a TOML string like "5s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// LoadConfig reads a Config from a TOML file.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, errors.Wrapf(err, "rgo: reading config %s", path)
	}
	if undec := md.Undecoded(); len(undec) > 0 {
		return Config{}, errors.Errorf("rgo: unknown config key %q in %s", undec[0].String(), path)
	}
	return cfg, nil
}

type connConfig struct {
	Config
	log *zap.Logger
}

func (c *connConfig) rPath() string {
	if c.RPath == "" {
		return "R"
	}
	return c.RPath
}

func (c *connConfig) rOptions() []string {
	if c.ROptions == nil {
		return DefaultROptions
	}
	return c.ROptions
}

func (c *connConfig) closeTimeout() time.Duration {
	if c.CloseTimeout.Duration <= 0 {
		return defaultCloseTimeout
	}
	return c.CloseTimeout.Duration
}

type ConnOption func(*connConfig)

// WithDebug forwards R's own stdout and stderr to the process's.
func WithDebug() ConnOption {
	return func(c *connConfig) {
		c.Debug = true
	}
}

// WithRPath sets the R executable. The default is R from PATH.
func WithRPath(path string) ConnOption {
	return func(c *connConfig) {
		c.RPath = path
	}
}

// WithROptions replaces DefaultROptions.
func WithROptions(opts ...string) ConnOption {
	return func(c *connConfig) {
		c.ROptions = opts
	}
}

func WithLogger(log *zap.Logger) ConnOption {
	return func(c *connConfig) {
		c.log = log
	}
}

// WithConfig applies every field of cfg. Options given after it override
// the corresponding fields.
func WithConfig(cfg Config) ConnOption {
	return func(c *connConfig) {
		c.Config = cfg
	}
}

// WithoutDependencyCheck skips the check for jsonlite and RCurl before
// starting R.
func WithoutDependencyCheck() ConnOption {
	return func(c *connConfig) {
		c.SkipDependencyCheck = true
	}
}
