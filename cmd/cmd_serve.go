// Copyright 2025 The Gardecm Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/jcodagnone/gardecm/api"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Lance l'API HTTP de recherche de pharmacies de garde",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, closeEnv, err := setup(ctx)
		if err != nil {
			return err
		}
		defer closeEnv()

		if env.Config.Log.Level != "debug" {
			gin.SetMode(gin.ReleaseMode)
		}

		addr := env.Config.Server.Addr
		env.Logger.Info("serving", zap.String("addr", addr), zap.String("version", Version))

		return api.NewServer(env.Resolver(), env.DB, Version, env.Logger).Run(ctx, addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", ":8000", "Adresse d'écoute")
	bindFlag(serveCmd, "server.addr", "addr")
}
