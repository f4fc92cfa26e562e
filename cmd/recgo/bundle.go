package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tracknova/recgo/artifact"
	"github.com/tracknova/recgo/codec"
	"github.com/tracknova/recgo/distance"
)

var (
	bundleCodec       string
	bundleCompression string
)

var bundleCmd = &cobra.Command{
	Use:   "bundle",
	Short: "Inspect and convert model bundles",
}

var bundleInspectCmd = &cobra.Command{
	Use:   "inspect <bundle-file>",
	Short: "Print a bundle's header and artifact summary",
	Args:  cobra.ExactArgs(1),
	RunE:  runBundleInspect,
}

var bundleConvertCmd = &cobra.Command{
	Use:   "convert <in-file> <out-file>",
	Short: "Re-encode a bundle with a different codec or compression",
	Args:  cobra.ExactArgs(2),
	RunE:  runBundleConvert,
}

var bundlePackCmd = &cobra.Command{
	Use:   "pack <artifact-json> <out-file>",
	Short: "Build a bundle from a JSON artifact description",
	Long: `Build a bundle from a JSON artifact description. This is a development
helper for fixtures and local tooling; production bundles come from the
offline training pipeline.

The input file holds:

  {
    "name": "audio_pca",
    "kind": "audio_cluster",
    "metric": "euclidean",
    "vectors": [[0.1, 0.2], ...],
    "track_ids": ["track:...", ...],
    "cluster_labels": [0, 0, -1, ...],
    "neighbor_index": {"centroids": [[...]], "postings": [[0, 1], ...]}
  }

cluster_labels and neighbor_index are optional.`,
	Args: cobra.ExactArgs(2),
	RunE: runBundlePack,
}

func init() {
	rootCmd.AddCommand(bundleCmd)
	bundleCmd.AddCommand(bundleInspectCmd)
	bundleCmd.AddCommand(bundleConvertCmd)
	bundleCmd.AddCommand(bundlePackCmd)

	for _, c := range []*cobra.Command{bundleConvertCmd, bundlePackCmd} {
		c.Flags().StringVar(&bundleCodec, "codec", codec.Default.Name(), "Payload codec (json, go-json)")
		c.Flags().StringVar(&bundleCompression, "compression", artifact.CompressionZstd, "Compression (none, zstd, lz4)")
	}
}

func runBundleInspect(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	art, err := artifact.Decode(data)
	if err != nil {
		return fmt.Errorf("decode bundle: %w", err)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Name:    %s\n", art.Name())
	fmt.Fprintf(w, "Kind:    %s\n", art.Kind())
	fmt.Fprintf(w, "Metric:  %s\n", art.Metric())
	fmt.Fprintf(w, "Tracks:  %d\n", art.Len())
	fmt.Fprintf(w, "Dim:     %d\n", art.Dim())
	fmt.Fprintf(w, "Labels:  %v\n", art.HasLabels())
	if ivf := art.IVF(); ivf != nil {
		fmt.Fprintf(w, "IVF:     %d cells\n", len(ivf.Centroids))
	} else {
		fmt.Fprintf(w, "IVF:     none\n")
	}
	fmt.Fprintf(w, "Size:    %d bytes\n", len(data))
	return nil
}

func runBundleConvert(cmd *cobra.Command, args []string) error {
	c, ok := codec.ByName(bundleCodec)
	if !ok {
		return fmt.Errorf("unknown codec %q", bundleCodec)
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	art, err := artifact.Decode(data)
	if err != nil {
		return fmt.Errorf("decode bundle: %w", err)
	}

	out, err := artifact.Encode(art, c, bundleCompression)
	if err != nil {
		return fmt.Errorf("encode bundle: %w", err)
	}
	if err := os.WriteFile(args[1], out, 0o644); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes, codec=%s compression=%s)\n",
		args[1], len(out), bundleCodec, bundleCompression)
	return nil
}

// packInput mirrors the JSON artifact description accepted by pack.
type packInput struct {
	Name          string      `json:"name"`
	Kind          string      `json:"kind"`
	Metric        string      `json:"metric"`
	Vectors       [][]float32 `json:"vectors"`
	TrackIDs      []string    `json:"track_ids"`
	ClusterLabels []int32     `json:"cluster_labels,omitempty"`
	NeighborIndex *struct {
		Centroids [][]float32 `json:"centroids"`
		Postings  [][]int32   `json:"postings"`
	} `json:"neighbor_index,omitempty"`
}

func runBundlePack(cmd *cobra.Command, args []string) error {
	c, ok := codec.ByName(bundleCodec)
	if !ok {
		return fmt.Errorf("unknown codec %q", bundleCodec)
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	var in packInput
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("parse artifact description: %w", err)
	}

	kind, err := artifact.ParseKind(in.Kind)
	if err != nil {
		return err
	}
	metric, err := distance.ParseMetric(in.Metric)
	if err != nil {
		return err
	}
	var ivf *artifact.IVF
	if in.NeighborIndex != nil {
		ivf = &artifact.IVF{
			Centroids: in.NeighborIndex.Centroids,
			Postings:  in.NeighborIndex.Postings,
		}
	}

	art, err := artifact.New(in.Name, kind, metric, in.Vectors, in.TrackIDs, in.ClusterLabels, ivf)
	if err != nil {
		return fmt.Errorf("build artifact: %w", err)
	}

	out, err := artifact.Encode(art, c, bundleCompression)
	if err != nil {
		return fmt.Errorf("encode bundle: %w", err)
	}
	if err := os.WriteFile(args[1], out, 0o644); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "packed %s: %d tracks, dim %d -> %s (%d bytes)\n",
		in.Name, art.Len(), art.Dim(), args[1], len(out))
	return nil
}
