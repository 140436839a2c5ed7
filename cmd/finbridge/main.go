// Package main is the entry point for the finbridge CLI.
package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/flemzord/finbridge/internal/market"
	"github.com/flemzord/finbridge/internal/router"
	"github.com/flemzord/finbridge/internal/source"
	"github.com/flemzord/finbridge/pkg/app"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "finbridge",
		Short:         "A resilient multi-provider financial-data gateway",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(versionCmd(), serveCmd(), sourcesCmd())
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("finbridge %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the tool API on stdio",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			return app.Run(app.RunParams{
				ConfigPath: cfgPath,
				Version:    version,
			})
		},
	}
	cmd.Flags().String("config", "", "path to a YAML routing override file")
	return cmd
}

func sourcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "Print the provider priority and coverage tables",
		Run: func(_ *cobra.Command, _ []string) {
			ops := make([]string, 0, len(router.DefaultPriorities))
			for op := range router.DefaultPriorities {
				ops = append(ops, string(op))
			}
			sort.Strings(ops)

			fmt.Println("Default priorities:")
			for _, op := range ops {
				fmt.Printf("  %-20s %s\n", op, joinNames(router.DefaultPriorities[source.Operation(op)]))
			}

			fmt.Println("\nMarket coverage:")
			for _, mkt := range append(market.All, market.Unknown) {
				fmt.Printf("  %-8s %s\n", mkt, joinNames(router.DefaultCoverage[mkt]))
			}
		},
	}
}

func joinNames(names []source.Name) string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = string(n)
	}
	return strings.Join(out, ", ")
}
