package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

const configFileName = "config.yaml"

const (
	EnvDirectory     = "BBHEALTH_DIRECTORY"
	EnvPluginChecker = "BBHEALTH_PLUGIN_CHECKER"
)

// Keys accepted by Set and Unset.
const (
	KeyDirectory     = "directory"
	KeyFormat        = "format"
	KeyPluginPanel   = "plugin_panel"
	KeyPluginChecker = "plugin_checker"
	KeyVerbose       = "verbose"
)

var Keys = []string{KeyDirectory, KeyFormat, KeyPluginPanel, KeyPluginChecker, KeyVerbose}

var ErrUnknownKey = errors.New("unknown config key")

var configDirFunc = configDir

type Config struct {
	Directory     string `yaml:"directory,omitempty"`
	Format        string `yaml:"format,omitempty"`
	PluginPanel   bool   `yaml:"plugin_panel,omitempty"`
	PluginChecker string `yaml:"plugin_checker,omitempty"`
	Verbose       bool   `yaml:"verbose,omitempty"`
}

const Template = `# bbhealth configuration
#
# Flags passed on the command line always win over these values.

# Folder containing the support zips. Defaults to the current directory.
# Overridden by BBHEALTH_DIRECTORY.
# directory: /path/to/support-zips

# Report format: wiki, text, json or yaml.
format: wiki

# Render the plugin compatibility result as its own panel instead of a table cell.
plugin_panel: false

# Command that checks plugin compatibility. It is invoked as
# "<command> <application.xml> [--jira] [--verbose] [--table]".
# Overridden by BBHEALTH_PLUGIN_CHECKER.
# plugin_checker: python3 /opt/plugin_checker/plugin_checker.py

verbose: false
`

// Load reads the config file. A missing file yields an empty Config.
// Environment overrides are applied on top.
func Load() (*Config, error) {
	cfg, err := load()
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		cfg = &Config{}
	}
	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if dir := os.Getenv(EnvDirectory); dir != "" {
		cfg.Directory = dir
	}
	if checker := os.Getenv(EnvPluginChecker); checker != "" {
		cfg.PluginChecker = checker
	}
}

// Stored returns the file contents without environment overrides.
func Stored() (*Config, error) {
	cfg, err := load()
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}
	return cfg, nil
}

func Set(key, value string) error {
	cfg, err := Stored()
	if err != nil {
		return err
	}

	switch key {
	case KeyDirectory:
		cfg.Directory = value
	case KeyFormat:
		cfg.Format = value
	case KeyPluginChecker:
		cfg.PluginChecker = value
	case KeyPluginPanel, KeyVerbose:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid value %q for %s: must be true or false", value, key)
		}
		if key == KeyPluginPanel {
			cfg.PluginPanel = b
		} else {
			cfg.Verbose = b
		}
	default:
		return fmt.Errorf("%w %q", ErrUnknownKey, key)
	}

	return save(cfg)
}

func Unset(key string) error {
	cfg, err := load()
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	switch key {
	case KeyDirectory:
		cfg.Directory = ""
	case KeyFormat:
		cfg.Format = ""
	case KeyPluginPanel:
		cfg.PluginPanel = false
	case KeyPluginChecker:
		cfg.PluginChecker = ""
	case KeyVerbose:
		cfg.Verbose = false
	default:
		return fmt.Errorf("%w %q", ErrUnknownKey, key)
	}

	return save(cfg)
}

// WriteTemplate creates the config file from Template. An existing file is
// only replaced when force is set.
func WriteTemplate(force bool) (string, error) {
	path, err := Path()
	if err != nil {
		return "", err
	}

	if !force {
		if _, err := os.Stat(path); err == nil {
			return path, fmt.Errorf("config %s already exists (use --force to overwrite)", path)
		}
	}

	if err := ensureConfigDir(); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(Template), 0600); err != nil {
		return "", fmt.Errorf("writing config %s: %w", path, err)
	}
	return path, nil
}

func load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return &cfg, nil
}

func configDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("finding config directory: %w", err)
	}
	return filepath.Join(base, "bbhealth"), nil
}

func Path() (string, error) {
	dir, err := configDirFunc()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

func ensureConfigDir() error {
	dir, err := configDirFunc()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

func save(cfg *Config) error {
	if err := ensureConfigDir(); err != nil {
		return err
	}

	path, err := Path()
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config %s: %w", path, err)
	}

	return nil
}
