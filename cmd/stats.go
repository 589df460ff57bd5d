package cmd

import (
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/broker-genie/internal/activity"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show how much time recorded activity saved the broker",
	Run: func(_ *cobra.Command, _ []string) {
		stats()
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func stats() {
	ctx := context.Background()

	env := setup(ctx)
	defer env.close()

	if env.config.User == "" {
		env.logger.Fatal("broker id is required", zap.String("hint", "pass --user or set user in the config"))
	}

	entries, err := env.activity.List(ctx, env.config.User)
	if err != nil {
		env.logger.Fatal("listing activity", zap.Error(err))
	}

	printSummary(os.Stdout, activity.Summarize(entries))
}

// printSummary writes the totals and then one line per activity type, sorted by type.
func printSummary(w io.Writer, summary activity.Summary) {
	fmt.Fprintf(w, "Time saved: %s across %d activities\n", summary.Formatted, summary.Activities)
	for _, t := range slices.Sorted(maps.Keys(summary.ByType)) {
		fmt.Fprintf(w, "  %s: %d\n", t, summary.ByType[t])
	}
}
