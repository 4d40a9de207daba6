package main

import (
	"github.com/spf13/cobra"

	"github.com/leonardcser/college-api/internal/config"
	"github.com/leonardcser/college-api/internal/docstore"
	"github.com/leonardcser/college-api/internal/importer"
	"github.com/leonardcser/college-api/internal/logger"
)

// rootOpts holds the persistent flags shared by every command.
type rootOpts struct {
	dbPath  string
	verbose bool
}

var opts rootOpts

var rootCmd = &cobra.Command{
	Use:   "collegectl",
	Short: "Load and maintain the college catalog",
	Long: `collegectl loads college records, news and ranking tables into the
catalog store and regenerates the statistics document.

The store path defaults to the server configuration (COLLEGE_API_CONFIG,
COLLEGE_API_DB) and can be overridden with --db.`,
	Version:       version,
	SilenceUsage:  true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.SetOutput(cmd.ErrOrStderr())
		if opts.verbose {
			logger.SetLevel(logger.LevelDebug)
		}
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&opts.dbPath, "db", "", "Path to the catalog store (default from configuration)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log debug output")
}

// openImporter opens the store for writing and returns an importer over it.
// The caller closes the returned store.
func openImporter() (*importer.Importer, *docstore.Bolt, error) {
	path := opts.dbPath
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, nil, err
	}
	if path == "" {
		path = cfg.Store.Path
	}
	logger.Debugf("opening store %s", path)
	store, err := docstore.Open(path, docstore.Options{Timeout: cfg.Store.OpenTimeout})
	if err != nil {
		return nil, nil, err
	}
	return importer.New(store), store, nil
}
