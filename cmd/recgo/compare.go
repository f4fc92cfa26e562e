package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tracknova/recgo"
	"github.com/tracknova/recgo/compare"
	"github.com/tracknova/recgo/recommend"
)

var (
	compareStrategy string
	compareCount    int
	compareModels   []string
	compareJSON     bool
)

var compareCmd = &cobra.Command{
	Use:   "compare <seed-track-id>...",
	Short: "Run the same request against several models side by side",
	Long: `Run the same recommendation request against several model variants and
show the results side by side. A model that fails to load or search
reports its error without affecting the others.

Examples:
  recgo compare track:4uLU6hMC
  recgo compare --models audio_pca,audio_umap track:4uLU6hMC`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCompare,
}

func init() {
	rootCmd.AddCommand(compareCmd)

	compareCmd.Flags().StringVarP(&compareStrategy, "strategy", "s", "cluster", "Strategy (cluster, global, hybrid, artist_based, genre_based)")
	compareCmd.Flags().IntVarP(&compareCount, "count", "n", 10, "Maximum number of recommendations per model")
	compareCmd.Flags().StringSliceVarP(&compareModels, "models", "m", nil, "Models to compare (default: all configured)")
	compareCmd.Flags().BoolVar(&compareJSON, "json", false, "Output results as JSON")
}

func runCompare(cmd *cobra.Command, args []string) error {
	strategy, err := recommend.ParseStrategy(compareStrategy)
	if err != nil {
		return err
	}

	eng, err := newEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	res, err := eng.Compare(cmd.Context(), recgo.CompareInput{
		SeedTrackIDs: args,
		Strategy:     strategy,
		Count:        compareCount,
		Models:       compareModels,
	})
	if err != nil {
		return err
	}

	if compareJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	writeCompareText(cmd.OutOrStdout(), res)
	return nil
}

func writeCompareText(w io.Writer, res *compare.Result) {
	fmt.Fprintf(w, "Compared %d models in %v\n", len(res.Entries), res.TotalTime)
	for _, entry := range res.Entries {
		fmt.Fprintf(w, "\n== %s (%v)\n", entry.ModelName, entry.ProcessingTime)
		if entry.Err != "" {
			fmt.Fprintf(w, "   error: %s\n", entry.Err)
			continue
		}
		for i, item := range entry.Items {
			fmt.Fprintf(w, "%3d. %-40s %.4f\n", i+1, item.TrackID, item.Score)
		}
		if len(entry.Items) == 0 {
			fmt.Fprintln(w, "   no results")
		}
	}
}
