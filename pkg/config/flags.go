package config

import (
	"time"

	"github.com/spf13/pflag"
)

// Flags are the command line overrides. Only flags set on the command line
// change the configuration.
type Flags struct {
	fs *pflag.FlagSet

	ConfigPath string
	Addr       string
	LogLevel   string
	Period     time.Duration
	Console    bool
	Laps       bool
	Mock       bool
}

func RegisterFlags(fs *pflag.FlagSet) *Flags {
	f := &Flags{fs: fs}
	fs.StringVarP(&f.ConfigPath, "config", "c", "", "path to the YAML configuration file")
	fs.StringVar(&f.Addr, "addr", "", "webserver listen address")
	fs.StringVar(&f.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	fs.DurationVar(&f.Period, "period", 0, "ingestion tick period")
	fs.BoolVar(&f.Console, "console", false, "print telemetry tables to stdout")
	fs.BoolVar(&f.Laps, "laps", false, "record completed laps")
	fs.BoolVar(&f.Mock, "mock", false, "add a synthetic source after the configured drivers")
	return f
}

// Apply copies the flags that were set onto cfg.
func (f *Flags) Apply(cfg *Config) {
	if f.fs.Changed("addr") {
		cfg.Webserver.Addr = f.Addr
		cfg.Webserver.Enabled = true
	}
	if f.fs.Changed("log-level") {
		cfg.Log.Level = f.LogLevel
	}
	if f.fs.Changed("period") {
		cfg.Ingest.Period = f.Period
	}
	if f.fs.Changed("console") {
		cfg.Console.Enabled = f.Console
	}
	if f.fs.Changed("laps") {
		cfg.Laps.Enabled = f.Laps
	}
	if f.Mock && !cfg.hasDriver("mock") {
		cfg.Drivers = append(cfg.Drivers, DriverConfig{Kind: KindMock, Name: "mock", Producer: "mock"})
	}
}

func (c *Config) hasDriver(name string) bool {
	for _, d := range c.Drivers {
		if d.Name == name {
			return true
		}
	}
	return false
}
