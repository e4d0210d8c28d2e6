// Package cli is the cobra command tree for the talk2data binary.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/talk2data/talk2data/internal/config"
)

var cfgFile string

// Execute creates the root command tree and runs it.
func Execute(version, commit, date string) error {
	rootCmd := newRootCmd(version, commit, date)
	return rootCmd.Execute()
}

func newRootCmd(version, commit, date string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "talk2data",
		Short: "Ask your data warehouse questions in plain language",
		Long: `Talk2Data answers analytics questions in natural language. It retrieves
relevant table metadata from a semantic graph, generates SQL grounded in that
metadata, runs it against the warehouse, and returns the results with a
summary and a chart recommendation.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./talk2data.yaml)")

	cobra.OnInitialize(func() { config.Init(cfgFile) })

	cmd.AddCommand(newServeCmd(version))
	cmd.AddCommand(newAskCmd())
	cmd.AddCommand(newOntologyCmd())
	cmd.AddCommand(newMCPCmd(version))
	cmd.AddCommand(newVersionCmd(version, commit, date))

	return cmd
}
