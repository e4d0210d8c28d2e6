package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/talk2data/talk2data/internal/graph"
	"github.com/talk2data/talk2data/internal/ontology"
)

func newOntologyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ontology",
		Short: "Manage the semantic graph",
	}
	cmd.AddCommand(newOntologyLoadCmd())
	return cmd
}

func newOntologyLoadCmd() *cobra.Command {
	var (
		schemaFile   string
		contextFile  string
		conceptsFile string
		keep         bool
		debug        bool
	)

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load ontology files into the semantic graph",
		Long: `Load the physical schema, business context, and concept files into the
graph store. The existing graph is cleared first unless --keep is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if schemaFile == "" {
				return fmt.Errorf("--file is required")
			}
			logger := newLogger(debug)

			store, err := graph.NewStore(viper.GetString("graph.data_dir"))
			if err != nil {
				return fmt.Errorf("open graph store: %w", err)
			}
			defer store.Close()

			loader := ontology.NewLoader(store, logger)
			if err := loader.Load(context.Background(), schemaFile, contextFile, conceptsFile, !keep); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "ontology loaded")
			return nil
		},
	}

	cmd.Flags().StringVar(&schemaFile, "file", "", "Physical schema YAML file (required)")
	cmd.Flags().StringVar(&contextFile, "context", "", "Business context YAML file")
	cmd.Flags().StringVar(&conceptsFile, "concepts", "", "Concepts YAML file")
	cmd.Flags().BoolVar(&keep, "keep", false, "Keep the existing graph instead of clearing it")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")

	return cmd
}
