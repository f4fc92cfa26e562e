package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tracknova/recgo/artifact"
)

var modelsSwitch string

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List configured models and their lifecycle state",
	RunE:  runModels,
}

func init() {
	rootCmd.AddCommand(modelsCmd)

	modelsCmd.Flags().StringVar(&modelsSwitch, "switch", "", "Load the named model and make it active for its kind")
}

func runModels(cmd *cobra.Command, _ []string) error {
	eng, err := newEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	if modelsSwitch != "" {
		status, err := eng.SwitchModel(cmd.Context(), modelsSwitch)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "switched active model to %s (%s)\n", modelsSwitch, status)
	}

	active := map[string]bool{}
	for _, kind := range []artifact.Kind{artifact.KindAudioCluster, artifact.KindLyrics} {
		if name, ok := eng.ActiveModel(kind); ok {
			active[name] = true
		}
	}

	for _, name := range eng.Models() {
		marker := " "
		if active[name] {
			marker = "*"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %-30s %s\n", marker, name, eng.ModelStatus(name))
	}
	return nil
}
