// Package config handles configuration loading using viper.
package config

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"firestige.xyz/rtpreplay/internal/core"
	"firestige.xyz/rtpreplay/internal/log"
	"firestige.xyz/rtpreplay/internal/sink/udp"
	"firestige.xyz/rtpreplay/internal/source/file"
)

// Config is the replay configuration.
// Maps to the `rtpreplay:` root key in YAML.
type Config struct {
	Destination udp.Config       `mapstructure:"destination"`
	Capture     CaptureConfig    `mapstructure:"capture"`
	Replay      ReplayConfig     `mapstructure:"replay"`
	Log         log.LoggerConfig `mapstructure:"log"`
	Metrics     MetricsConfig    `mapstructure:"metrics"`
	Verbose     bool             `mapstructure:"verbose"`
}

// CaptureConfig adds the fixed RTP header position to the source settings.
type CaptureConfig struct {
	file.Config `mapstructure:",squash"`

	PayloadOffset int `mapstructure:"payload_offset"` // ignored with auto_offset
}

type ReplayConfig struct {
	Loops  int  `mapstructure:"loops"` // 0 = forever, N = play N times
	DryRun bool `mapstructure:"dry_run"`
}

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
	Path    string `mapstructure:"path"`
}

// configRoot is the top-level wrapper matching the YAML structure `rtpreplay: ...`.
type configRoot struct {
	RTPReplay Config `mapstructure:"rtpreplay"`
}

const root = "rtpreplay."

// flagKeys binds command line flags to configuration keys.
var flagKeys = map[string]string{
	"address":        "destination.address",
	"port":           "destination.port",
	"ttl":            "destination.ttl",
	"capture":        "capture.file",
	"filter":         "capture.filter",
	"engine":         "capture.engine",
	"offset":         "capture.payload_offset",
	"auto-offset":    "capture.auto_offset",
	"loops":          "replay.loops",
	"dry-run":        "replay.dry_run",
	"verbose":        "verbose",
	"metrics-listen": "metrics.listen",
}

// Load builds the configuration from defaults, the optional file at path,
// RTPREPLAY_* environment variables and flags, in increasing precedence.
// Flags missing from the set are skipped.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%w: failed to read config file: %v", core.ErrConfigInvalid, err)
		}
	}

	// The `rtpreplay.` key prefix maps to `RTPREPLAY_` through the replacer,
	// e.g. "rtpreplay.destination.port" -> RTPREPLAY_DESTINATION_PORT.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(root+key, f); err != nil {
				return nil, fmt.Errorf("failed to bind flag --%s: %w", name, err)
			}
		}
	}

	var r configRoot
	if err := v.Unmarshal(&r); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal config: %v", core.ErrConfigInvalid, err)
	}
	cfg := r.RTPReplay

	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Destination
	v.SetDefault(root+"destination.address", "232.0.1.1")
	v.SetDefault(root+"destination.port", 1500)
	v.SetDefault(root+"destination.ttl", 4)
	v.SetDefault(root+"destination.loopback", false)
	v.SetDefault(root+"destination.interface", "")

	// Capture
	v.SetDefault(root+"capture.file", "capture.pcap")
	v.SetDefault(root+"capture.filter", "")
	v.SetDefault(root+"capture.engine", file.EnginePcap)
	v.SetDefault(root+"capture.payload_offset", 44)
	v.SetDefault(root+"capture.auto_offset", false)

	// Replay
	v.SetDefault(root+"replay.loops", 1)
	v.SetDefault(root+"replay.dry_run", false)
	v.SetDefault(root+"verbose", false)

	// Log
	v.SetDefault(root+"log.level", "info")
	v.SetDefault(root+"log.format", "pattern")
	v.SetDefault(root+"log.pattern", log.DefaultPattern)
	v.SetDefault(root+"log.time", log.DefaultTimeLayout)
	v.SetDefault(root+"log.file.enabled", false)
	v.SetDefault(root+"log.file.path", "rtpreplay.log")
	v.SetDefault(root+"log.file.max_size_mb", 100)
	v.SetDefault(root+"log.file.max_backups", 5)
	v.SetDefault(root+"log.file.max_age_days", 30)
	v.SetDefault(root+"log.file.compress", true)

	// Metrics
	v.SetDefault(root+"metrics.enabled", false)
	v.SetDefault(root+"metrics.listen", ":9100")
	v.SetDefault(root+"metrics.path", "/metrics")
}

// ValidateAndApplyDefaults validates configuration and applies runtime
// defaults. Every violation wraps core.ErrConfigInvalid.
func (cfg *Config) ValidateAndApplyDefaults() error {
	if err := cfg.validate(); err != nil {
		return fmt.Errorf("%w: %v", core.ErrConfigInvalid, err)
	}
	if cfg.Verbose {
		cfg.Log.Level = "debug"
	}
	return nil
}

func (cfg *Config) validate() error {
	// ── Destination ──
	d := &cfg.Destination
	if d.Address == "" {
		return errors.New("destination address is required")
	}
	if net.ParseIP(d.Address) == nil {
		if _, err := net.LookupHost(d.Address); err != nil {
			return fmt.Errorf("invalid destination address %q: %v", d.Address, err)
		}
	}
	if d.Port < 1 || d.Port > 65535 {
		return fmt.Errorf("invalid destination port: %d (must be 1-65535)", d.Port)
	}
	if d.TTL < 0 || d.TTL > 255 {
		return fmt.Errorf("invalid ttl: %d (must be 0-255)", d.TTL)
	}

	// ── Capture ──
	c := &cfg.Capture
	if c.Path == "" {
		return errors.New("capture file is required")
	}
	if c.PayloadOffset < 0 {
		return fmt.Errorf("invalid payload offset: %d", c.PayloadOffset)
	}
	c.Engine = strings.ToLower(c.Engine)
	if c.Engine != file.EnginePcap && c.Engine != file.EnginePcapgo {
		return fmt.Errorf("invalid capture engine: %s (must be pcap/pcapgo)", c.Engine)
	}

	// ── Replay ──
	if cfg.Replay.Loops < 0 {
		return fmt.Errorf("invalid loops: %d (0 plays forever)", cfg.Replay.Loops)
	}

	// ── Log ──
	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(cfg.Log.Level)] {
		return fmt.Errorf("invalid log level: %s (must be trace/debug/info/warn/error)", cfg.Log.Level)
	}
	switch strings.ToLower(cfg.Log.Format) {
	case "pattern", "json", "prefixed":
	default:
		return fmt.Errorf("invalid log format: %s (must be pattern/json/prefixed)", cfg.Log.Format)
	}

	// ── Metrics ──
	if cfg.Metrics.Enabled && cfg.Metrics.Listen == "" {
		return errors.New("metrics.listen is required when metrics.enabled=true")
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	return nil
}

// PlayCount is the number of traversals to play, zero meaning forever.
func (cfg *Config) PlayCount() int { return cfg.Replay.Loops }
