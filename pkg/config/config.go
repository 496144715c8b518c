// Package config holds the persisted per-user configuration of a session:
// the working directory, the executor binary, an optional alternate EVM
// backend and the selected hard fork.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/creasty/defaults"
)

const (
	// FileName is the name of the configuration file in the home directory.
	FileName = ".t8n-repl.json"
	// WorkDirName is the name of the default working directory in the home directory.
	WorkDirName = "t8n-repl"
	// DefaultBackend is the evm command parameter that clears the backend.
	DefaultBackend = "default"
)

// ErrDirectoryNotFound indicates a working directory that does not exist.
var ErrDirectoryNotFound = errors.New("directory not found")

// Config is the persisted configuration.
type Config struct {
	// WorkDir is where session artifacts and traces are written.
	WorkDir string `json:"work_dir"`
	// T8n is the path of the state-transition executor.
	T8n string `json:"t8n" default:"/usr/bin/evm"`
	// EVM is an alternate backend for the executor. Empty selects the built-in one.
	EVM string `json:"evm"`
	// HardFork is the protocol version tag handed to the executor.
	HardFork string `json:"hard_fork"`
}

// New returns a configuration with defaults applied.
func New(workDir string) (*Config, error) {
	config := &Config{}

	if err := defaults.Set(config); err != nil {
		return nil, err
	}

	config.WorkDir = workDir

	return config, nil
}

// DefaultPath returns the configuration file path in the user's home directory.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}

	return filepath.Join(home, FileName), nil
}

// DefaultWorkDir returns the default working directory in the user's home directory.
func DefaultWorkDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}

	return filepath.Join(home, WorkDirName), nil
}

// Load reads the configuration at path. If the file does not exist, a default
// configuration using workDir is created, written to path and returned;
// workDir itself is created when missing.
func Load(path, workDir string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		if err := os.MkdirAll(workDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create working directory: %w", err)
		}

		config, err := New(workDir)
		if err != nil {
			return nil, err
		}

		if err := config.Save(path); err != nil {
			return nil, err
		}

		return config, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	config := &Config{}

	if err := defaults.Set(config); err != nil {
		return nil, err
	}

	type plain Config

	if err := json.Unmarshal(data, (*plain)(config)); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	return config, nil
}

// Save writes the configuration to path.
func (c *Config) Save(path string) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.T8n == "" {
		return fmt.Errorf("t8n executor path is required")
	}

	if err := checkDir(c.WorkDir); err != nil {
		return fmt.Errorf("invalid working directory: %w", err)
	}

	return nil
}

// SetWorkDir changes the working directory. The directory must exist.
func (c *Config) SetWorkDir(dir string) error {
	if err := checkDir(dir); err != nil {
		return err
	}

	c.WorkDir = dir

	return nil
}

// SetBackend selects an alternate EVM backend. DefaultBackend clears it.
func (c *Config) SetBackend(path string) {
	if path == DefaultBackend {
		c.EVM = ""

		return
	}

	c.EVM = path
}

// HasBackend reports whether an alternate EVM backend is configured.
func (c *Config) HasBackend() bool {
	return c.EVM != ""
}

func checkDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrDirectoryNotFound, dir)
	}

	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrDirectoryNotFound, dir)
	}

	return nil
}
