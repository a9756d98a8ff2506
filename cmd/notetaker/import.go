package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conorfennell/notetaker/internal/importer"
)

var reposDir string

var importCmd = &cobra.Command{
	Use:   "import [file, directory or git URL]",
	Short: "Add the notes found in markdown files",
	Long: `Import reads markdown in which every "# Title" heading starts a note and a
"---" line ends one. The source may be a single file, a directory that is
searched for .md files, or a git repository that is cloned (or pulled) first.
Notes already stored with the same content are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := newApp(ctx, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := importer.New(a, log, reposDir).Import(ctx, args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Found %d notes: %d added, %d skipped, %d errors.\n",
			report.Parsed, report.Added, report.Skipped, len(report.Errors))
		if len(report.Errors) > 0 {
			fmt.Println("\nErrors:")
			for _, e := range report.Errors {
				fmt.Printf("- %s\n", e)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().StringVar(&reposDir, "repos-dir", "repos", "Where git sources are checked out")
}
