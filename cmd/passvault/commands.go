package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/fahmaliyi/passvault/cli"
	"github.com/fahmaliyi/passvault/config"
	"github.com/fahmaliyi/passvault/vault"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	initCmd = &cobra.Command{
		Use:   "init",
		Short: "Create a new vault protected by a main key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := createVault(); err != nil {
				return err
			}
			fmt.Println("Vault created at", opts.VaultPath)
			return writeConfig()
		},
	}

	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Print the effective settings after file, environment and flags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return toml.NewEncoder(cmd.OutOrStdout()).Encode(opts)
		},
	}

	shellCmd = &cobra.Command{
		Use:   "shell",
		Short: "Open the line-oriented command shell",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell()
		},
	}

	tuiCmd = &cobra.Command{
		Use:   "tui",
		Short: "Open the full-screen interface",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := openVault()
			if err != nil {
				return err
			}
			return cli.RunTUI(v, opts.ClipboardClear.Duration)
		},
	}

	syncCmd = &cobra.Command{
		Use:       "sync push|pull",
		Short:     "Copy the vault file to or from Google Drive",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"push", "pull"},
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := config.Dir()
			if err != nil {
				return err
			}
			v, err := openVault(vault.WithSyncer(&vault.GoogleDriveSync{Dir: dir}))
			if err != nil {
				return err
			}
			switch args[0] {
			case "push":
				err = v.SyncPush()
			case "pull":
				err = v.SyncPull()
			}
			if err != nil {
				log.Log.Error("sync failed", zap.String("direction", args[0]), zap.Error(err))
				return err
			}
			fmt.Printf("Sync %s complete for %s.\n", args[0], v.Path())
			return nil
		},
	}
)

func createVault() error {
	key, err := cli.ReadNewMainKey(cli.ReadPasswordMasked)
	if err != nil {
		return err
	}
	if err := vault.Create(opts.VaultPath, key, opts.KDFParams()); err != nil {
		return err
	}
	log.Log.Info("vault created", zap.String("path", opts.VaultPath), zap.Int("iterations", opts.Iterations))
	return nil
}

// writeConfig saves the effective settings when no config file exists yet.
func writeConfig() error {
	if _, err := os.Stat(configPath); !errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := config.Save(configPath, opts); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	fmt.Println("Config written to", configPath)
	return nil
}

func runShell() error {
	v, err := openVault()
	if err != nil {
		return err
	}
	cli.RunCommands(v, os.Stdin, os.Stdout, opts.ClipboardClear.Duration)
	return nil
}
