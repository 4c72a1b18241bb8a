// Package config loads passvault settings from a TOML file, environment
// variables and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/fahmaliyi/passvault/vault"
)

const (
	DirName      = ".passvault"
	FileName     = "config.toml"
	VaultName    = "passvault.txt"
	EnvVaultPath = "PASSVAULT_PATH"
	EnvLogLevel  = "PASSVAULT_LOG_LEVEL"
)

// Options holds the effective settings.
type Options struct {
	// VaultPath is the store file.
	VaultPath string `toml:"vault_path"`

	// Iterations is the KDF iteration count used for new vaults.
	Iterations int `toml:"iterations"`

	// ClipboardClear is how long a copied password stays on the clipboard.
	ClipboardClear Duration `toml:"clipboard_clear"`

	LogLevel string `toml:"log_level"`
}

// Duration decodes TOML strings such as "30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Dir returns ~/.passvault.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, DirName), nil
}

func Default(dir string) *Options {
	return &Options{
		VaultPath:      filepath.Join(dir, VaultName),
		Iterations:     vault.Iterations,
		ClipboardClear: Duration{30 * time.Second},
		LogLevel:       "warn",
	}
}

// Load reads path over the defaults and then applies the environment. A
// missing file is not an error.
func Load(path string) (*Options, error) {
	dir := filepath.Dir(path)
	opts := Default(dir)

	if _, err := toml.DecodeFile(path, opts); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if p := os.Getenv(EnvVaultPath); p != "" {
		opts.VaultPath = p
	}
	if lvl := os.Getenv(EnvLogLevel); lvl != "" {
		opts.LogLevel = lvl
	}
	return opts, opts.Validate()
}

func (o *Options) Validate() error {
	if o.VaultPath == "" {
		return errors.New("config: vault_path is empty")
	}
	if o.Iterations < vault.MinIterations || o.Iterations > vault.MaxIterations {
		return fmt.Errorf("config: iterations must be between %d and %d, got %d", vault.MinIterations, vault.MaxIterations, o.Iterations)
	}
	if o.ClipboardClear.Duration <= 0 {
		return fmt.Errorf("config: clipboard_clear must be positive, got %s", o.ClipboardClear)
	}
	return nil
}

// KDFParams returns the parameters for creating a vault.
func (o *Options) KDFParams() vault.KDFParams {
	p := vault.DefaultKDFParams()
	p.Iterations = o.Iterations
	return p
}

// Save writes o to path.
func Save(path string, o *Options) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(o)
}
