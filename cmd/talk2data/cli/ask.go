package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/talk2data/talk2data/internal/model"
)

func newAskCmd() *cobra.Command {
	var (
		dryRun     bool
		noSummary  bool
		noViz      bool
		jsonOutput bool
		debug      bool
	)

	cmd := &cobra.Command{
		Use:   "ask \"question\"",
		Short: "Ask one question from the command line",
		Long: `Run the full pipeline for a single question and print the result.
With --dry-run the generated SQL is printed without touching the warehouse.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := model.DefaultFlags()
			if dryRun {
				flags = model.Flags{Execute: false}
			}
			if noSummary {
				flags.IncludeSummary = false
			}
			if noViz {
				flags.IncludeVisualization = false
			}
			return runAsk(cmd, args[0], flags, jsonOutput, debug)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Generate SQL without executing it")
	cmd.Flags().BoolVar(&noSummary, "no-summary", false, "Skip the result summary")
	cmd.Flags().BoolVar(&noViz, "no-viz", false, "Skip the chart recommendation")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the full result as JSON")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")

	return cmd
}

func runAsk(cmd *cobra.Command, question string, flags model.Flags, jsonOutput, debug bool) error {
	logger := newLogger(debug)

	deps, err := buildPipeline(logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	sess := deps.pipeline.Ask(context.Background(), question, flags)

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(sess)
	}

	out := cmd.OutOrStdout()
	if sess.Err != nil {
		fmt.Fprintf(out, "failed at %s: %s\n", sess.Err.Stage, sess.Err.Reason)
		if sess.Statement != nil {
			fmt.Fprintf(out, "\nSQL:\n%s\n", sess.Statement.SQL)
		}
		return fmt.Errorf("question failed")
	}

	if sess.Statement != nil {
		fmt.Fprintf(out, "SQL:\n%s\n", sess.Statement.SQL)
	}
	if sess.RowSet != nil {
		fmt.Fprintf(out, "\nRows: %d", sess.RowSet.RowCount())
		if sess.RowSet.Truncated {
			fmt.Fprint(out, " (truncated)")
		}
		fmt.Fprintln(out)
		printRows(out, sess.RowSet)
	}
	if sess.Summary != "" {
		fmt.Fprintf(out, "\nSummary: %s\n", sess.Summary)
	}
	if sess.Visualization != nil {
		fmt.Fprintf(out, "\nChart: %s (%s)\n", sess.Visualization.Chart, sess.Visualization.Reason)
	}
	return nil
}

// printRows renders up to 20 rows as tab-separated columns.
func printRows(out io.Writer, rs *model.RowSet) {
	const maxPrint = 20

	names := make([]string, len(rs.Columns))
	for i, c := range rs.Columns {
		names[i] = c.Name
	}
	fmt.Fprintln(out, strings.Join(names, "\t"))

	for i, row := range rs.Rows {
		if i == maxPrint {
			fmt.Fprintf(out, "... %d more rows\n", rs.RowCount()-maxPrint)
			break
		}
		cells := make([]string, len(names))
		for j, name := range names {
			cells[j] = fmt.Sprint(row[name])
		}
		fmt.Fprintln(out, strings.Join(cells, "\t"))
	}
}
