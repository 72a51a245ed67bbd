// Copyright 2025 The Gardecm Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jcodagnone/gardecm/spatial"
	"github.com/spf13/cobra"
)

var nearbyOptions struct {
	lat, lon float64
	radius   int
	date     string
	all      bool
	limit    int
}

var nearbyCmd = &cobra.Command{
	Use:   "nearby",
	Short: "Liste les pharmacies de garde autour d'une position",
	Long: `Affiche en JSON les pharmacies de garde autour d'une position, les plus
proches d'abord, suivies des pharmacies de garde non rapprochées de la ville.

$ garde nearby --lat 3.8667 --lon 11.5167 --radius 3000

Avec --all, liste toutes les pharmacies du registre autour de la position.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		day, err := parseDay(nearbyOptions.date)
		if err != nil {
			return err
		}

		env, closeEnv, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer closeEnv()

		p := spatial.Point{Lat: nearbyOptions.lat, Lng: nearbyOptions.lon}
		resolver := env.Resolver()

		var results any
		if nearbyOptions.all {
			results, err = resolver.Search(cmd.Context(), p, nearbyOptions.radius, nearbyOptions.limit)
		} else {
			results, err = resolver.Nearby(cmd.Context(), p, nearbyOptions.radius, day)
		}

		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		if err := enc.Encode(results); err != nil {
			return fmt.Errorf("writing results: %w", err)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(nearbyCmd)

	nearbyCmd.Flags().Float64Var(&nearbyOptions.lat, "lat", 0, "Latitude")
	nearbyCmd.Flags().Float64Var(&nearbyOptions.lon, "lon", 0, "Longitude")
	nearbyCmd.Flags().IntVar(&nearbyOptions.radius, "radius", 0, "Rayon en mètres (5000 par défaut)")
	nearbyCmd.Flags().StringVar(&nearbyOptions.date, "date", "", "Jour de garde (YYYY-MM-DD), aujourd'hui par défaut")
	nearbyCmd.Flags().BoolVar(&nearbyOptions.all, "all", false, "Cherche dans tout le registre, de garde ou non")
	nearbyCmd.Flags().IntVar(&nearbyOptions.limit, "limit", 0, "Nombre maximal de résultats avec --all")

	_ = nearbyCmd.MarkFlagRequired("lat")
	_ = nearbyCmd.MarkFlagRequired("lon")
}
