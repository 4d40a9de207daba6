package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leonardcser/college-api/internal/realtime"
)

type rankingsFlags struct {
	source string
	year   int
}

var rankingsOpts rankingsFlags

var rankingsCmd = &cobra.Command{
	Use:   "rankings FILE",
	Short: "Import a ranking table from a saved HTML page",
	Long: `Import the first ranking table found in a saved HTML page. Columns are
located from header cells naming rank, name and score; without headers the
first three columns are read in that order. Use "-" to read standard input.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !realtime.KnownSource(rankingsOpts.source) {
			return fmt.Errorf("unknown ranking source %q, want %s or %s", rankingsOpts.source, realtime.SourceNIRF, realtime.SourceQS)
		}
		r, closeInput, err := openInput(cmd, args[0])
		if err != nil {
			return err
		}
		defer closeInput()

		im, store, err := openImporter()
		if err != nil {
			return err
		}
		defer store.Close()

		n, err := im.ImportRankingsHTML(cmd.Context(), r, rankingsOpts.source, rankingsOpts.year)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d %s rankings\n", n, realtime.SourceLabel(rankingsOpts.source))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rankingsCmd)
	rankingsCmd.Flags().StringVarP(&rankingsOpts.source, "source", "s", realtime.SourceNIRF, "Ranking source: nirf or qs")
	rankingsCmd.Flags().IntVar(&rankingsOpts.year, "year", 0, "Ranking year (default current year)")
}
