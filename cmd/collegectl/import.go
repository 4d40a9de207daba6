package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/leonardcser/college-api/internal/importer"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import JSON data into the catalog",
}

var importCollegesCmd = &cobra.Command{
	Use:   "colleges FILE",
	Short: "Import a JSON array of colleges",
	Long: `Import a JSON array of college objects. Every object needs an "id";
existing records with the same id are replaced. Use "-" to read standard input.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return importFile(cmd, args[0], "colleges", (*importer.Importer).ImportColleges)
	},
}

var importNewsCmd = &cobra.Command{
	Use:   "news FILE",
	Short: "Import a JSON array of news items",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return importFile(cmd, args[0], "news items", (*importer.Importer).ImportNews)
	},
}

func init() {
	importCmd.AddCommand(importCollegesCmd, importNewsCmd)
	rootCmd.AddCommand(importCmd)
}

func importFile(cmd *cobra.Command, path, what string, load func(*importer.Importer, context.Context, io.Reader) (int, error)) error {
	r, closeInput, err := openInput(cmd, path)
	if err != nil {
		return err
	}
	defer closeInput()

	im, store, err := openImporter()
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := load(im, cmd.Context(), r)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d %s\n", n, what)
	return nil
}

// openInput opens path, or standard input for "-".
func openInput(cmd *cobra.Command, path string) (io.Reader, func(), error) {
	if path == "-" {
		return cmd.InOrStdin(), func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}
