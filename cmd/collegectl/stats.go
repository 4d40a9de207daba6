package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Regenerate the statistics document",
	Long:  `Summarize every college into statistics/overview and print the summary as JSON.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		im, store, err := openImporter()
		if err != nil {
			return err
		}
		defer store.Close()

		o, err := im.GenerateStatistics(cmd.Context())
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(o)
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
