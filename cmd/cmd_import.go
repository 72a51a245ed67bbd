// Copyright 2025 The Gardecm Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"os"

	"github.com/jcodagnone/gardecm/importer"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var importOptions struct {
	overpassURL string
	save        string
	traceHTTP   bool
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Alimente le registre des pharmacies",
}

var importOSMCmd = &cobra.Command{
	Use:   "osm",
	Short: "Importe les pharmacies du Cameroun depuis OpenStreetMap",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, closeEnv, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer closeEnv()

		client := importer.NewOSMClient(importer.OSMOptions{
			URL:             importOptions.overpassURL,
			UserAgent:       userAgent(),
			EnableHTTPTrace: importOptions.traceHTTP,
		}, env.Logger)

		pharmacies, err := client.Fetch(cmd.Context())
		if err != nil {
			return err
		}

		if importOptions.save != "" {
			if err := importer.SaveJSON(importOptions.save, pharmacies); err != nil {
				return fmt.Errorf("saving %s: %w", importOptions.save, err)
			}
		}

		res, err := importer.Import(cmd.Context(), env.Registry, pharmacies, env.Logger)
		if err != nil {
			return err
		}

		fmt.Printf("%d pharmacies lues, %d importées, %d déjà présentes, %d invalides\n",
			res.Parsed, res.Imported, res.Skipped, res.Invalid)

		return nil
	},
}

var importKMLCmd = &cobra.Command{
	Use:   "kml <fichier>",
	Short: "Importe les pharmacies d'un export Google Earth",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		pharmacies, errs, err := importer.ParseKML(f)
		if err != nil {
			return err
		}

		env, closeEnv, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer closeEnv()

		for _, e := range errs {
			env.Logger.Warn("skipping placemark", zap.Error(e))
		}

		res, err := importer.Import(cmd.Context(), env.Registry, pharmacies, env.Logger)
		if err != nil {
			return err
		}

		fmt.Printf("%d placemarks lus (%d illisibles), %d importés, %d déjà présents, %d invalides\n",
			res.Parsed, len(errs), res.Imported, res.Skipped, res.Invalid)

		return nil
	},
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Nettoie les noms et les villes du registre et supprime les doublons",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, closeEnv, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer closeEnv()

		res, err := importer.NewCleaner(env.Registry, env.Gazetteer, env.Logger).Run(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("%d pharmacies, %d corrigées, %d doublons supprimés\n", res.Scanned, res.Rewritten, res.Deleted)

		for _, c := range res.Cities {
			fmt.Printf("  %-20s %5d\n", c.City, c.Count)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(cleanupCmd)
	importCmd.AddCommand(importOSMCmd)
	importCmd.AddCommand(importKMLCmd)

	importOSMCmd.Flags().StringVar(
		&importOptions.overpassURL,
		"overpass-url",
		importer.DefaultOverpassURL,
		"Overpass API interpreter",
	)
	importOSMCmd.Flags().StringVar(
		&importOptions.save,
		"save",
		"",
		"Enregistre aussi les pharmacies lues dans ce fichier JSON",
	)
	importOSMCmd.Flags().BoolVar(
		&importOptions.traceHTTP,
		"trace-http",
		false,
		"Display HTTP requests-responses",
	)
}
