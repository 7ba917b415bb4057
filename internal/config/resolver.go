// Package config resolves tool configuration from file, environment, and
// CLI flags, in rising precedence. Every resolved value remembers where it
// came from so `medjournal stats` can show the effective configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type ValueSource string

const (
	SourceDefault ValueSource = "default"
	SourceConfig  ValueSource = "config"
	SourceEnv     ValueSource = "env"
	SourceCLI     ValueSource = "cli"
)

// ResolvedValue is a configuration value plus its provenance.
type ResolvedValue struct {
	Value  string      `json:"value"`
	Source ValueSource `json:"source"`
	From   string      `json:"from,omitempty"`
}

// ResolveOptions carries CLI-level overrides into resolution.
type ResolveOptions struct {
	ConfigPath string
	CLIDBPath  string
	CLIProfile string
}

// ResolvedConfig is the effective configuration.
type ResolvedConfig struct {
	ConfigPath string `json:"config_path"`

	DBPath          ResolvedValue `json:"db_path"`
	DefaultProfile  ResolvedValue `json:"default_profile"`
	ContextMaxChars ResolvedValue `json:"context_max_chars"`
}

// ContextBudget returns the configured assistant context budget, or 0 when
// unset or unparsable (callers fall back to their own default).
func (c ResolvedConfig) ContextBudget() int {
	n, err := strconv.Atoi(strings.TrimSpace(c.ContextMaxChars.Value))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

type fileConfig struct {
	DBPath         string `yaml:"db_path"`
	DefaultProfile string `yaml:"default_profile"`
	Assist         struct {
		ContextMaxChars int `yaml:"context_max_chars"`
	} `yaml:"assist"`
}

// DefaultConfigPath is ~/.medjournal/config.yaml.
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".medjournal", "config.yaml")
}

// ResolveConfig layers defaults, the config file, environment variables, and
// CLI flags. A missing config file is fine; a malformed one is an error.
func ResolveConfig(opts ResolveOptions) (ResolvedConfig, error) {
	path := strings.TrimSpace(opts.ConfigPath)
	if path == "" {
		path = os.Getenv("MEDJOURNAL_CONFIG")
	}
	if path == "" {
		path = DefaultConfigPath()
	}

	out := ResolvedConfig{ConfigPath: path}

	cfg, err := loadConfig(path)
	if err != nil {
		return out, err
	}
	if cfg != nil {
		apply(&out.DBPath, cfg.DBPath, SourceConfig, path)
		apply(&out.DefaultProfile, cfg.DefaultProfile, SourceConfig, path)
		if cfg.Assist.ContextMaxChars > 0 {
			apply(&out.ContextMaxChars, strconv.Itoa(cfg.Assist.ContextMaxChars), SourceConfig, path)
		}
	}

	applyEnv(&out.DBPath, "MEDJOURNAL_DB")
	applyEnv(&out.DefaultProfile, "MEDJOURNAL_PROFILE")
	applyEnv(&out.ContextMaxChars, "MEDJOURNAL_CONTEXT_MAX_CHARS")

	apply(&out.DBPath, opts.CLIDBPath, SourceCLI, "")
	apply(&out.DefaultProfile, opts.CLIProfile, SourceCLI, "")

	if out.DBPath.Value == "" {
		out.DBPath = ResolvedValue{Value: "", Source: SourceDefault}
	}
	if out.DefaultProfile.Value == "" {
		out.DefaultProfile = ResolvedValue{Value: "default", Source: SourceDefault}
	}
	return out, nil
}

func loadConfig(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return &cfg, nil
}

func apply(dst *ResolvedValue, value string, source ValueSource, from string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	*dst = ResolvedValue{Value: strings.TrimSpace(value), Source: source, From: from}
}

func applyEnv(dst *ResolvedValue, name string) {
	apply(dst, os.Getenv(name), SourceEnv, name)
}
