package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"qvox/internal/common/fsutil"
)

// Duration is a time.Duration that reads and writes as "1s", "250ms", ...
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalText() ([]byte, error) { return []byte(time.Duration(d).String()), nil }

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(b), err)
	}
	*d = Duration(v)
	return nil
}

// ServerConfig describes how the inference backend is launched.
type ServerConfig struct {
	Models     []string `json:"models" yaml:"models" toml:"models"`
	Device     string   `json:"device" yaml:"device" toml:"device"`
	Port       int      `json:"port" yaml:"port" toml:"port"`
	ModelSize  string   `json:"model_size" yaml:"model_size" toml:"model_size"`
	ScriptPath string   `json:"script_path" yaml:"script_path" toml:"script_path"`
	// Python runs the script directly with this interpreter instead of the launcher.
	Python   string `json:"python,omitempty" yaml:"python,omitempty" toml:"python,omitempty"`
	Launcher string `json:"launcher" yaml:"launcher" toml:"launcher"`
	Project  string `json:"project" yaml:"project" toml:"project"`
	// Dir is the backend's working directory.
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty" toml:"dir,omitempty"`
}

// APIConfig configures the local control API.
type APIConfig struct {
	Addr        string   `json:"addr" yaml:"addr" toml:"addr"`
	LogLevel    string   `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat   string   `json:"log_format" yaml:"log_format" toml:"log_format"`
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
}

// OrchestratorConfig holds the tick and process timing knobs.
type OrchestratorConfig struct {
	TickInterval Duration `json:"tick_interval" yaml:"tick_interval" toml:"tick_interval"`
	// HealthTimeout of 0 waits for the backend indefinitely.
	HealthTimeout  Duration `json:"health_timeout" yaml:"health_timeout" toml:"health_timeout"`
	TerminateGrace Duration `json:"terminate_grace" yaml:"terminate_grace" toml:"terminate_grace"`
}

// Config holds runtime parameters for qvox.
type Config struct {
	Server       ServerConfig       `json:"server" yaml:"server" toml:"server"`
	API          APIConfig          `json:"api" yaml:"api" toml:"api"`
	Orchestrator OrchestratorConfig `json:"orchestrator" yaml:"orchestrator" toml:"orchestrator"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Models:     []string{"base", "voice_design", "custom_voice"},
			Device:     "auto",
			Port:       8000,
			ModelSize:  "1.7B",
			ScriptPath: "python/start_server.py",
			Launcher:   "uv",
			Project:    "python",
		},
		API: APIConfig{
			Addr:      "127.0.0.1:8700",
			LogLevel:  "info",
			LogFormat: "console",
		},
		Orchestrator: OrchestratorConfig{
			TickInterval:   Duration(time.Second),
			TerminateGrace: Duration(2 * time.Second),
		},
	}
}

// withDefaults fills fields a file left zero.
func (c Config) withDefaults() Config {
	d := Default()
	if len(c.Server.Models) == 0 {
		c.Server.Models = d.Server.Models
	}
	if c.Server.Device == "" {
		c.Server.Device = d.Server.Device
	}
	if c.Server.Port == 0 {
		c.Server.Port = d.Server.Port
	}
	if c.Server.ModelSize == "" {
		c.Server.ModelSize = d.Server.ModelSize
	}
	if c.Server.ScriptPath == "" {
		c.Server.ScriptPath = d.Server.ScriptPath
	}
	if c.Server.Launcher == "" {
		c.Server.Launcher = d.Server.Launcher
	}
	if c.Server.Project == "" {
		c.Server.Project = d.Server.Project
	}
	if c.API.Addr == "" {
		c.API.Addr = d.API.Addr
	}
	if c.API.LogLevel == "" {
		c.API.LogLevel = d.API.LogLevel
	}
	if c.API.LogFormat == "" {
		c.API.LogFormat = d.API.LogFormat
	}
	if c.Orchestrator.TickInterval <= 0 {
		c.Orchestrator.TickInterval = d.Orchestrator.TickInterval
	}
	if c.Orchestrator.TerminateGrace <= 0 {
		c.Orchestrator.TerminateGrace = d.Orchestrator.TerminateGrace
	}
	if c.Orchestrator.HealthTimeout < 0 {
		c.Orchestrator.HealthTimeout = 0
	}
	return c
}

// Load reads a configuration file based on its extension and fills
// unspecified fields with defaults.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	path, err := fsutil.ExpandHome(path)
	if err != nil {
		return cfg, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg.withDefaults(), nil
}

// LoadOrDefault is Load, except that a missing file yields Default().
func LoadOrDefault(path string) (Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Marshal encodes cfg in the format named by ext (".toml", ".yaml", ".yml" or ".json").
func Marshal(cfg Config, ext string) ([]byte, error) {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		return yaml.Marshal(cfg)
	case ".json":
		return json.MarshalIndent(cfg, "", "  ")
	case ".toml":
		return toml.Marshal(cfg)
	default:
		return nil, fmt.Errorf("unsupported config extension: %s", ext)
	}
}

// Save writes cfg to path in the format implied by its extension, creating
// parent directories as needed. The file is replaced atomically.
func Save(path string, cfg Config) error {
	if path == "" {
		return fmt.Errorf("empty config path")
	}
	path, err := fsutil.ExpandHome(path)
	if err != nil {
		return err
	}
	b, err := Marshal(cfg, filepath.Ext(path))
	if err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(path, b, 0o644)
}
