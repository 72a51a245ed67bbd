// Copyright 2025 The Gardecm Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"time"

	"github.com/jcodagnone/gardecm/scrape"
	"github.com/spf13/cobra"
)

var reconcileOptions struct {
	date string
}

func parseDay(s string) (time.Time, error) {
	if s == "" {
		return time.Now(), nil
	}

	day, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}

	return day, nil
}

func cityArgs(_ *cobra.Command, args []string) error {
	for _, arg := range args {
		if _, err := scrape.FindCity(arg); err != nil {
			return err
		}
	}

	return nil
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile [ville...]",
	Short: "Récupère la liste des pharmacies de garde et la rapproche du registre",
	Long: `Télécharge la page de garde de chaque ville, rapproche chaque nom du registre
et remplace les pharmacies de garde du jour en une seule transaction.

Sans argument, toutes les villes connues sont traitées.`,
	Args: cityArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		day, err := parseDay(reconcileOptions.date)
		if err != nil {
			return err
		}

		var cities []scrape.City

		for _, arg := range args {
			city, _ := scrape.FindCity(arg)
			cities = append(cities, city)
		}

		env, closeEnv, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer closeEnv()

		r := env.Reconciler(env.Fetcher(userAgent(), cities), true)

		m, err := r.Run(cmd.Context(), day)
		if err != nil {
			return err
		}

		fmt.Printf(
			"%d villes (%d en échec), %d entrées: %d rapprochées, %d non rapprochées, %d doublons, %d relocalisées. %d pharmacies de garde le %s.\n",
			m.Cities,
			m.Failed,
			m.Scraped,
			m.Matched,
			m.Unmatched,
			m.Duplicates,
			m.Relocated,
			m.Count,
			day.Format(time.DateOnly),
		)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	reconcileCmd.Flags().StringVar(&reconcileOptions.date, "date", "", "Jour à traiter (YYYY-MM-DD), aujourd'hui par défaut")
	reconcileCmd.Flags().Int("workers", 4, "Nombre de téléchargements simultanés (1 à 8)")
	reconcileCmd.Flags().Duration("delay", 300*time.Millisecond, "Pause entre deux téléchargements d'un même worker")
	reconcileCmd.Flags().Duration("timeout", 60*time.Second, "Délai maximal par page")
	reconcileCmd.Flags().String("base-url", scrape.DefaultBaseURL, "Racine du site des pharmacies de garde")
	reconcileCmd.Flags().Bool("trace-http", false, "Display HTTP requests-responses")

	bindFlag(reconcileCmd, "scrape.workers", "workers")
	bindFlag(reconcileCmd, "scrape.delay", "delay")
	bindFlag(reconcileCmd, "scrape.timeout", "timeout")
	bindFlag(reconcileCmd, "scrape.base_url", "base-url")
	bindFlag(reconcileCmd, "scrape.trace_http", "trace-http")
}
