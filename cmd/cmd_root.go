// Copyright 2025 The Gardecm Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/jcodagnone/gardecm/app"
	"github.com/jcodagnone/gardecm/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "garde",
	Short: "pharmacies de garde du Cameroun",
	Long: `
garde rapproche la liste quotidienne des pharmacies de garde publiée par ville
avec un registre géolocalisé de pharmacies, et répond aux recherches de
pharmacies de garde autour d'une position.
`,
	SilenceUsage: true,
}

var (
	Version = "dev"

	configPath string
	settings   = config.New()
)

func Execute(version string) {
	Version = version

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func userAgent() string {
	return fmt.Sprintf("garde/%s (+https://github.com/jcodagnone/gardecm)", Version)
}

// setup loads the configuration and builds the environment. The returned
// func releases it.
func setup(ctx context.Context) (*app.Env, func(), error) {
	cfg, err := config.Load(settings, configPath)
	if err != nil {
		return nil, nil, err
	}

	logger, err := config.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, fmt.Errorf("creating logger: %w", err)
	}

	provider := &app.DuckDBProvider{Path: cfg.DB.Path}

	env, err := app.NewEnv(ctx, cfg, provider, logger)
	if err != nil {
		_ = provider.Close()

		return nil, nil, err
	}

	return env, func() {
		_ = provider.Close()
		_ = logger.Sync()
	}, nil
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := settings.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func bindPersistentFlag(cmd *cobra.Command, key, flag string) {
	if err := settings.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&configPath,
		"config",
		"",
		"Fichier de configuration (./garde.yaml par défaut s'il existe)",
	)
	rootCmd.PersistentFlags().String("db-path", "garde.duckdb", "Base DuckDB où stocker l'état")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "console", "Log format: console or json")

	bindPersistentFlag(rootCmd, "db.path", "db-path")
	bindPersistentFlag(rootCmd, "log.level", "log-level")
	bindPersistentFlag(rootCmd, "log.format", "log-format")
}
