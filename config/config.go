package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jsphweid/chordcoach/constants"
	"github.com/jsphweid/chordcoach/session"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Config is the top-level chordcoach configuration.
type Config struct {
	StabilityWindowMs   int    `mapstructure:"stability_window_ms"`
	MinHoldMs           int    `mapstructure:"min_hold_ms"`
	FeedbackMs          int    `mapstructure:"feedback_ms"`
	Difficulty          string `mapstructure:"difficulty"`
	SessionLength       int    `mapstructure:"session_length"`
	RequirePerfectMatch bool   `mapstructure:"require_perfect_match"`
	Seed                uint64 `mapstructure:"seed"`
	ListenAddr          string `mapstructure:"listen_addr"`
	Midi                Midi   `mapstructure:"midi"`
	Serial              Serial `mapstructure:"serial"`
	Export              Export `mapstructure:"export"`
}

type Midi struct {
	// Port is a port number or part of a port name. Empty means watch for
	// any keyboard.
	Port string `mapstructure:"port"`
}

type Serial struct {
	Port string `mapstructure:"port"`
	Baud int    `mapstructure:"baud"`
}

// Export configures where finished sessions are written. An empty table
// disables DynamoDB export.
type Export struct {
	Table    string `mapstructure:"table"`
	Endpoint string `mapstructure:"endpoint"`
	Region   string `mapstructure:"region"`
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// Load reads configuration from cfgFile, or config.yaml in the config
// directory when cfgFile is empty. A missing file is not an error.
// CHORDCOACH_* environment variables override both, e.g.
// CHORDCOACH_SERIAL_PORT for serial.port.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("stability_window_ms", constants.DefaultStabilityWindow.Milliseconds())
	v.SetDefault("min_hold_ms", constants.DefaultMinHoldDuration.Milliseconds())
	v.SetDefault("feedback_ms", constants.DefaultFeedbackDuration.Milliseconds())
	v.SetDefault("difficulty", constants.DefaultDifficulty)
	v.SetDefault("session_length", constants.DefaultSessionLength)
	v.SetDefault("require_perfect_match", false)
	v.SetDefault("seed", 0)
	v.SetDefault("listen_addr", constants.DefaultListenAddr)
	v.SetDefault("midi.port", "")
	v.SetDefault("serial.port", "")
	v.SetDefault("serial.baud", constants.DefaultSerialBaud)
	v.SetDefault("export.table", "")
	v.SetDefault("export.endpoint", "")
	v.SetDefault("export.region", constants.DefaultExportRegion)

	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(expandPath(cfgFile))
	} else {
		v.AddConfigPath(constants.GetConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, errors.Wrap(err, "reading config")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decoding config")
	}
	cfg.Serial.Port = expandPath(cfg.Serial.Port)
	return &cfg, nil
}

// SessionOptions translates the practice settings for session.New, which
// validates them.
func (c *Config) SessionOptions() session.Options {
	return session.Options{
		Difficulty:          c.Difficulty,
		SessionLength:       c.SessionLength,
		MinHold:             time.Duration(c.MinHoldMs) * time.Millisecond,
		FeedbackDuration:    time.Duration(c.FeedbackMs) * time.Millisecond,
		RequirePerfectMatch: c.RequirePerfectMatch,
		Seed:                c.Seed,
	}
}

func (c *Config) AggregatorWindow() time.Duration {
	return time.Duration(c.StabilityWindowMs) * time.Millisecond
}
