// Copyright 2025 The Gardecm Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"strings"

	"github.com/jcodagnone/gardecm/scrape"
	"github.com/spf13/cobra"
)

var citiesCmd = &cobra.Command{
	Use:   "cities",
	Short: "Liste les villes dont la liste de garde est récupérée",
	Args:  cobra.NoArgs,
	Run: func(_ *cobra.Command, _ []string) {
		a, b, c := strings.Repeat("─", 14), strings.Repeat("─", 18), strings.Repeat("─", 18)
		fmt.Printf("╭─%-14s─┬─%-18s─┬─%-18s─╮\n", a, b, c)
		fmt.Printf("│ %-14s │ %-18s │ %-18s │\n", "Région", "Slug", "Ville")
		fmt.Printf("├─%-14s─┼─%-18s─┼─%-18s─┤\n", a, b, c)

		for _, city := range scrape.Cities() {
			fmt.Printf("│ %-14s │ %-18s │ %-18s │\n", city.Region, city.Slug, city.Label())
		}

		fmt.Printf("╰─%-14s─┴─%-18s─┴─%-18s─╯\n", a, b, c)
	},
}

func init() {
	rootCmd.AddCommand(citiesCmd)
}
