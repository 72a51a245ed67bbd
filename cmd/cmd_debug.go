// Copyright 2025 The Gardecm Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jcodagnone/gardecm/duty"
	"github.com/jcodagnone/gardecm/names"
	"github.com/jcodagnone/gardecm/scrape"
	"github.com/jcodagnone/gardecm/utils/htmlutils"
	"github.com/spf13/cobra"
)

// isTerminal reports whether f is a character device.
func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}

	return (info.Mode() & os.ModeCharDevice) != 0
}

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Dev tools",
}

var debugMatch bool

var debugNamesCmd = &cobra.Command{
	Use:   "names",
	Short: "Montre la forme canonique et les mots-clés de noms de pharmacie",
	Long: `Lit un nom par ligne et affiche sa forme canonique suivie de ses mots-clés.
Avec --match, affiche aussi la meilleure correspondance du registre.

$ echo "PHARMACIE DU SOLEIL" | garde debug names
PHARMACIE DU SOLEIL	soleil	[soleil]`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		var idx *duty.Index

		if debugMatch {
			env, closeEnv, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer closeEnv()

			pharmacies, err := env.Registry.All(cmd.Context())
			if err != nil {
				return err
			}

			idx = duty.NewIndex(pharmacies, env.Scorer)
		}

		input := os.Stdin
		if isTerminal(input) {
			fmt.Fprintln(os.Stderr, "Saisissez les noms à analyser, un par ligne…")
		}

		scanner := bufio.NewScanner(input)
		for scanner.Scan() {
			name := scanner.Text()
			line := fmt.Sprintf("%s\t%s\t[%s]", name, names.Normalize(name), strings.Join(names.Keywords(name), " "))

			if idx != nil {
				if p, score, ok := idx.BestMatch(name); ok {
					line += fmt.Sprintf("\t#%d %s (%d)", p.ID, p.Name, score)
				} else {
					line += fmt.Sprintf("\t- (%d)", score)
				}
			}

			fmt.Println(line)
		}

		return scanner.Err()
	},
}

var debugPageCmd = &cobra.Command{
	Use:   "page <ville> [fichier]",
	Short: "Lit une page de garde HTML et affiche les entrées extraites en JSON",
	Long: `Lit une page de garde depuis un fichier ou l'entrée standard, comme si elle
appartenait à la ville indiquée, et affiche le résultat de l'extraction.

Exemples:
  garde debug page yaounde ./yaounde.html
  curl -s https://… | garde debug page douala`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(_ *cobra.Command, args []string) error {
		city, err := scrape.FindCity(args[0])
		if err != nil {
			return err
		}

		var r io.Reader = os.Stdin

		if len(args) > 1 {
			f, err := os.Open(args[1])
			if err != nil {
				return fmt.Errorf("opening file: %w", err)
			}
			defer f.Close()

			r = f
		} else if isTerminal(os.Stdin) {
			fmt.Fprintln(os.Stderr, "Reading from stdin. Paste HTML and press Ctrl+D to finish.")
		}

		node, err := htmlutils.AsNode(r)
		if err != nil {
			return fmt.Errorf("parsing html: %w", err)
		}

		output, err := json.MarshalIndent(scrape.Parse(node, city), "", "  ")
		if err != nil {
			return err
		}

		fmt.Println(string(output))

		return nil
	},
}

func init() {
	rootCmd.AddCommand(debugCmd)
	debugCmd.AddCommand(debugNamesCmd)
	debugCmd.AddCommand(debugPageCmd)

	debugNamesCmd.Flags().BoolVar(&debugMatch, "match", false, "Cherche la meilleure correspondance dans le registre")
}
