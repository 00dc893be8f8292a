// Package config loads the process configuration: defaults, then a YAML
// file, then environment variables, then command line flags.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"simtelemetry/pkg/model"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	KindSharedMemory = "shm"
	KindLiveTiming   = "livetiming"
	KindMock         = "mock"
)

type Config struct {
	Log       LogConfig       `yaml:"log"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Drivers   []DriverConfig  `yaml:"drivers"`
	Webserver WebserverConfig `yaml:"webserver"`
	Console   ConsoleConfig   `yaml:"console"`
	Laps      LapsConfig      `yaml:"laps"`
	Telegram  TelegramConfig  `yaml:"telegram"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
	// File, when set, also writes the log to a rotated file.
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMb"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
}

type IngestConfig struct {
	Period            time.Duration `yaml:"period"`
	IdleProbeInterval time.Duration `yaml:"idleProbeInterval"`
}

// DriverConfig describes one telemetry source. Drivers are tried in the
// order they are listed.
type DriverConfig struct {
	Kind     string `yaml:"kind"`
	Name     string `yaml:"name"`
	Producer string `yaml:"producer"`

	// shm
	Path string `yaml:"path"`

	// livetiming
	URL            string        `yaml:"url"`
	DialTimeout    time.Duration `yaml:"dialTimeout"`
	MessageTimeout time.Duration `yaml:"messageTimeout"`

	// mock
	UpFor   time.Duration `yaml:"upFor"`
	DownFor time.Duration `yaml:"downFor"`
	Cars    int           `yaml:"cars"`
	LapTime time.Duration `yaml:"lapTime"`
}

type WebserverConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Addr         string        `yaml:"addr"`
	PushInterval time.Duration `yaml:"pushInterval"`
}

type ConsoleConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

type LapsConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Path           string        `yaml:"path"`
	SampleInterval time.Duration `yaml:"sampleInterval"`
}

type TelegramConfig struct {
	Token   string  `yaml:"token"`
	ChatIDs []int64 `yaml:"chatIds"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
		Ingest: IngestConfig{
			Period:            time.Second / 60,
			IdleProbeInterval: time.Second,
		},
		Drivers: []DriverConfig{
			{Kind: KindSharedMemory, Name: "lmu-shm", Producer: "lmu", Path: "/dev/shm/simtelemetry-lmu"},
			{Kind: KindLiveTiming, Name: "lmu-live", Producer: "lmu", URL: "http://localhost:5397"},
		},
		Webserver: WebserverConfig{
			Enabled:      true,
			Addr:         ":8080",
			PushInterval: 100 * time.Millisecond,
		},
		Console: ConsoleConfig{
			Interval: time.Second,
		},
		Laps: LapsConfig{
			Path:           "./simtelemetry-laps.db",
			SampleInterval: 250 * time.Millisecond,
		},
	}
}

// Load reads path over the defaults and applies environment overrides. An
// empty path loads only the defaults. The result is not validated yet,
// flags may still change it.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, err
		}
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read config")
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return errors.Wrapf(err, "parse config %s", path)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) error {
	if addr := os.Getenv("WEBSERVER_ADDRESS"); addr != "" {
		cfg.Webserver.Addr = addr
	}
	if token := os.Getenv("TELEGRAM_TOKEN"); token != "" {
		cfg.Telegram.Token = token
	}
	if chats := os.Getenv("TELEGRAM_CHAT_IDS"); chats != "" {
		ids, err := parseChatIDs(chats)
		if err != nil {
			return err
		}
		cfg.Telegram.ChatIDs = ids
	}
	if level := os.Getenv("SIMTELEMETRY_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	return nil
}

func parseChatIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, field := range strings.Split(raw, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		id, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "telegram chat id %q", field)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return errors.Errorf("invalid log level %q", c.Log.Level)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return errors.Errorf("invalid log format %q", c.Log.Format)
	}
	if c.Ingest.Period <= 0 {
		return errors.Errorf("ingest period must be positive, got %s", c.Ingest.Period)
	}
	if c.Ingest.IdleProbeInterval < 0 {
		return errors.Errorf("idle probe interval must not be negative, got %s", c.Ingest.IdleProbeInterval)
	}
	if len(c.Drivers) == 0 {
		return errors.New("no drivers configured")
	}
	names := map[string]bool{}
	for i, d := range c.Drivers {
		if err := d.validate(); err != nil {
			return errors.Wrapf(err, "driver %d", i)
		}
		if names[d.Name] {
			return errors.Errorf("driver name %q used twice", d.Name)
		}
		names[d.Name] = true
	}
	if c.Webserver.Enabled && c.Webserver.PushInterval <= 0 {
		return errors.New("webserver push interval must be positive")
	}
	if c.Console.Enabled && c.Console.Interval <= 0 {
		return errors.New("console interval must be positive")
	}
	if c.Laps.Enabled && c.Laps.Path == "" {
		return errors.New("laps database path is required")
	}
	if len(c.Telegram.ChatIDs) > 0 && c.Telegram.Token == "" {
		return errors.New("telegram chat ids configured without a token")
	}
	return nil
}

func (d DriverConfig) validate() error {
	if d.Name == "" {
		return errors.New("name is required")
	}
	if d.Producer != "" {
		if _, err := model.ParseProducer(d.Producer); err != nil {
			return err
		}
	}
	switch d.Kind {
	case KindSharedMemory:
		if d.Path == "" {
			return errors.Errorf("%s: path is required", d.Name)
		}
	case KindLiveTiming:
		if d.URL == "" {
			return errors.Errorf("%s: url is required", d.Name)
		}
	case KindMock:
		if d.UpFor < 0 || d.DownFor < 0 {
			return errors.Errorf("%s: schedule must not be negative", d.Name)
		}
	default:
		return errors.Errorf("%s: unknown driver kind %q", d.Name, d.Kind)
	}
	return nil
}

// ProducerID returns the parsed producer, unknown when unset.
func (d DriverConfig) ProducerID() model.ProducerID {
	p, _ := model.ParseProducer(d.Producer)
	return p
}
