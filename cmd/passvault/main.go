package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/awnumar/memguard"
	"github.com/fahmaliyi/passvault/cli"
	"github.com/fahmaliyi/passvault/config"
	"github.com/fahmaliyi/passvault/logger"
	"github.com/fahmaliyi/passvault/vault"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const loginAttempts = 3

var (
	configPath string
	vaultPath  string
	logLevel   string

	opts *config.Options
	log  = logger.New()

	rootCmd = &cobra.Command{
		Use:   "passvault",
		Short: "A local credential vault gated by a single main key",
		Long: `passvault keeps site and login credentials in a local file. Every change
requires the main key, which is stored only as a salted PBKDF2 hash.

Running passvault without a command opens the interactive shell, or offers
to create a vault when none exists yet.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			opts, err = config.Load(configPath)
			if err != nil {
				return err
			}
			if vaultPath != "" {
				opts.VaultPath = vaultPath
			}
			if logLevel != "" {
				opts.LogLevel = logLevel
			}
			return log.Init(opts.LogLevel)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if !(&vault.FileStore{Path: opts.VaultPath}).Exists() {
				fmt.Println("No vault found. Setting up new main key.")
				if err := createVault(); err != nil {
					return err
				}
			}
			return runShell()
		},
	}
)

func init() {
	dir, err := config.Dir()
	if err != nil {
		dir = "."
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", filepath.Join(dir, config.FileName), "path to config file")
	rootCmd.PersistentFlags().StringVar(&vaultPath, "vault", "", "path to the vault file (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (overrides config)")

	rootCmd.AddCommand(initCmd, configCmd, shellCmd, tuiCmd, syncCmd)
}

func main() {
	memguard.CatchInterrupt()
	defer memguard.Purge()

	err := rootCmd.Execute()
	_ = log.Log.Sync()
	if err != nil {
		if errors.Is(err, vault.ErrMalformedHash) {
			fmt.Fprintln(os.Stderr, "Vault integrity check failed.")
		}
		memguard.SafeExit(1)
	}
}

func openVault(extra ...vault.Option) (*vault.Vault, error) {
	vopts := append([]vault.Option{vault.WithLogger(log.Log)}, extra...)
	v, err := cli.Login(opts.VaultPath, cli.ReadPasswordMasked, loginAttempts, vopts...)
	if errors.Is(err, vault.ErrStoreNotFound) {
		return nil, fmt.Errorf("%w; run 'passvault init' to create one", err)
	}
	if err != nil {
		log.Log.Warn("open vault failed", zap.Error(err))
	}
	return v, err
}
