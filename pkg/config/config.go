// Package config loads the wingetup.yaml settings file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"gopkg.in/yaml.v3"
)

// FileName is the settings file looked up next to the executable.
const FileName = "wingetup.yaml"

// Config holds every tunable of the updater. Zero values fall back to Default.
type Config struct {
	Title          string        `yaml:"title"`
	Command        []string      `yaml:"command"`
	Probe          []string      `yaml:"probe"`
	LogFile        string        `yaml:"log_file"`
	LogLevel       string        `yaml:"log_level"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	ProbeTimeout   time.Duration `yaml:"probe_timeout"`
	OutputEncoding string        `yaml:"output_encoding"`
}

// Default returns the stock winget configuration.
func Default() *Config {
	return &Config{
		Title: "App Updater (winget)",
		Command: []string{
			"winget", "upgrade", "--all",
			"--accept-source-agreements",
			"--accept-package-agreements",
			"--silent",
		},
		Probe:          []string{"winget", "--version"},
		LogFile:        "wingetup.log",
		LogLevel:       "info",
		PollInterval:   100 * time.Millisecond,
		ProbeTimeout:   30 * time.Second,
		OutputEncoding: "utf-8",
	}
}

// Parse decodes YAML on top of the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Load reads the config at path. A missing file yields Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Save writes cfg as YAML to path.
func Save(cfg *Config, path string) error {
	data, err := cfg.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// Marshal encodes cfg as YAML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}

// Resolve makes a relative LogFile absolute against baseDir.
func (c *Config) Resolve(baseDir string) {
	if c.LogFile != "" && !filepath.IsAbs(c.LogFile) {
		c.LogFile = filepath.Join(baseDir, c.LogFile)
	}
}

// CommandLine renders the upgrade command for display and logs.
func (c *Config) CommandLine() string {
	return strings.Join(c.Command, " ")
}

// Encoding returns the decoder for child output, or nil when output is UTF-8.
func (c *Config) Encoding() (encoding.Encoding, error) {
	name := strings.ToLower(strings.TrimSpace(c.OutputEncoding))
	if name == "" || name == "utf-8" || name == "utf8" {
		return nil, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("output_encoding %q: %w", c.OutputEncoding, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("output_encoding %q is not supported", c.OutputEncoding)
	}
	return enc, nil
}

func (c *Config) applyDefaults() {
	d := Default()
	if c.Title == "" {
		c.Title = d.Title
	}
	if len(c.Command) == 0 {
		c.Command = d.Command
	}
	if len(c.Probe) == 0 {
		c.Probe = d.Probe
	}
	if c.LogFile == "" {
		c.LogFile = d.LogFile
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.PollInterval == 0 {
		c.PollInterval = d.PollInterval
	}
	if c.ProbeTimeout == 0 {
		c.ProbeTimeout = d.ProbeTimeout
	}
	if c.OutputEncoding == "" {
		c.OutputEncoding = d.OutputEncoding
	}
}

// DefaultPath returns FileName inside the directory holding the running executable.
func DefaultPath() string {
	return filepath.Join(ExecutableDir(), FileName)
}

// ExecutableDir returns the directory of the running executable, or "." when unknown.
func ExecutableDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe)
}
