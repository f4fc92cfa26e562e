package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tracknova/recgo"
	"github.com/tracknova/recgo/artifact"
	"github.com/tracknova/recgo/recommend"
)

var (
	recommendStrategy string
	recommendCount    int
	recommendModel    string
	recommendKind     string
	recommendExclude  []string
	recommendJSON     bool
)

var recommendCmd = &cobra.Command{
	Use:   "recommend <seed-track-id>...",
	Short: "Recommend tracks similar to the given seeds",
	Long: `Recommend tracks similar to the given seed tracks.

Examples:
  recgo recommend track:4uLU6hMC
  recgo recommend --strategy hybrid --count 20 track:4uLU6hMC track:7ouMYWpw
  recgo recommend --model lyrics_tfidf --json track:4uLU6hMC | jq '.items'`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRecommend,
}

func init() {
	rootCmd.AddCommand(recommendCmd)

	recommendCmd.Flags().StringVarP(&recommendStrategy, "strategy", "s", "cluster", "Strategy (cluster, global, hybrid, artist_based, genre_based)")
	recommendCmd.Flags().IntVarP(&recommendCount, "count", "n", 10, "Maximum number of recommendations")
	recommendCmd.Flags().StringVarP(&recommendModel, "model", "m", "", "Model variant (default: active model of --kind)")
	recommendCmd.Flags().StringVarP(&recommendKind, "kind", "k", "audio_cluster", "Model kind when --model is unset (audio_cluster, lyrics)")
	recommendCmd.Flags().StringSliceVarP(&recommendExclude, "exclude", "x", nil, "Track ids to exclude from results")
	recommendCmd.Flags().BoolVar(&recommendJSON, "json", false, "Output results as JSON")
}

func runRecommend(cmd *cobra.Command, args []string) error {
	strategy, err := recommend.ParseStrategy(recommendStrategy)
	if err != nil {
		return err
	}
	kind, err := artifact.ParseKind(recommendKind)
	if err != nil {
		return err
	}

	eng, err := newEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	out, err := eng.Recommend(cmd.Context(), recgo.RecommendInput{
		SeedTrackIDs: args,
		Strategy:     strategy,
		Count:        recommendCount,
		ExcludeIDs:   recommendExclude,
		Model:        recommendModel,
		Kind:         kind,
	})
	if err != nil {
		return err
	}

	if recommendJSON {
		return writeRecommendJSON(cmd.OutOrStdout(), out)
	}
	writeRecommendTable(cmd.OutOrStdout(), out)
	return nil
}

type recommendOutput struct {
	Model            string       `json:"model"`
	ProcessingTimeMS int64        `json:"processing_time_ms"`
	Items            []outputItem `json:"items"`
}

type outputItem struct {
	TrackID string  `json:"track_id"`
	Score   float64 `json:"score"`
}

func writeRecommendJSON(w io.Writer, out *recgo.RecommendOutput) error {
	items := make([]outputItem, len(out.Items))
	for i, item := range out.Items {
		items[i] = outputItem{TrackID: item.TrackID, Score: item.Score}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(recommendOutput{
		Model:            out.ModelUsed,
		ProcessingTimeMS: out.ProcessingTime.Milliseconds(),
		Items:            items,
	})
}

func writeRecommendTable(w io.Writer, out *recgo.RecommendOutput) {
	fmt.Fprintf(w, "Model: %s  (%v)\n\n", out.ModelUsed, out.ProcessingTime)
	for i, item := range out.Items {
		fmt.Fprintf(w, "%3d. %-40s %.4f\n", i+1, item.TrackID, item.Score)
	}
	if len(out.Items) == 0 {
		fmt.Fprintln(w, "No recommendations found.")
	}
}
