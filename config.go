package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/pelletier/go-toml"
	"github.com/strager/chocowat/logging"
)

// ConfigFileName is looked up in the working directory when no -config
// flag is given.
const ConfigFileName = "chocowat.toml"

// Config is the contents of a chocowat.toml file.
type Config struct {
	Output OutputConfig `toml:"output"`
	Run    RunConfig    `toml:"run"`
	Log    LogConfig    `toml:"log"`
}

type OutputConfig struct {
	Indent int `toml:"indent" default:"4"` // spaces per nesting level
}

type RunConfig struct {
	ShowWAT bool `toml:"show-wat"` // print the module before running it
}

type LogConfig struct {
	Level string `toml:"level" default:"error"`
}

func defaultConfig() *Config {
	return &Config{
		Output: OutputConfig{Indent: 4},
		Log:    LogConfig{Level: "error"},
	}
}

// LoadConfig reads the config at path. An empty path means ConfigFileName,
// which may be absent; an explicitly named file must exist.
func LoadConfig(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = ConfigFileName
	}

	buff, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	return ParseConfig(buff)
}

// ParseConfig decodes TOML text. Keys that are left out keep their
// defaults.
func ParseConfig(buff []byte) (*Config, error) {
	cfg := defaultConfig()
	if err := toml.Unmarshal(buff, cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Output.Indent < 0 {
		return nil, fmt.Errorf("invalid config: output.indent must not be negative, got %d", cfg.Output.Indent)
	}
	if _, err := logging.ParseLevel(cfg.Log.Level); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LogLevel returns the configured level, raised to verbose when asked for
// on the command line.
func (cfg *Config) LogLevel(verbose bool) logging.Level {
	if verbose {
		return logging.LevelVerbose
	}
	level, _ := logging.ParseLevel(cfg.Log.Level)
	return level
}
