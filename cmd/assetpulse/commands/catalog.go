package commands

import (
	"fmt"
	"strings"

	"github.com/DrSkyle/assetpulse/pkg/domain"
	"github.com/DrSkyle/assetpulse/pkg/engine/sources"
	"github.com/spf13/cobra"
)

var SourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the built-in finding sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		fmt.Fprintln(w, heading.Render("FINDING SOURCES (scheduling order)"))
		for i, s := range sources.Catalog() {
			fmt.Fprintf(w, "  %2d. %-24s %s\n", i+1, special.Render(s.Name), s.Perspective)
		}
		return nil
	},
}

var domainFile string

var DomainsCmd = &cobra.Command{
	Use:   "domains",
	Short: "List known system types and their critical parameters",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := domain.NewRegistry()
		if err != nil {
			return err
		}
		if domainFile != "" {
			if err := reg.LoadFile(domainFile); err != nil {
				return err
			}
		}
		w := cmd.OutOrStdout()
		fmt.Fprintln(w, heading.Render("SYSTEM TYPES"))
		for _, t := range reg.Types() {
			k, _ := reg.Lookup(t)
			params := strings.Join(k.CriticalParameters, ", ")
			if params == "" {
				params = subtle.Render("(none)")
			}
			fmt.Fprintf(w, "  %-20s %s\n", special.Render(t), params)
		}
		return nil
	},
}

func init() {
	DomainsCmd.Flags().StringVar(&domainFile, "domain-file", "", "YAML file with extra domain knowledge")
}
