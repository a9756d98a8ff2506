package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/conorfennell/notetaker/internal/domain"
	"github.com/conorfennell/notetaker/internal/notes"
)

var listJSON bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all notes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := newApp(ctx, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		var list []domain.Note
		err = a.Do(ctx, func(repo *notes.Repository) error {
			for n, err := range repo.ListAll(ctx) {
				if err != nil {
					return err
				}
				list = append(list, n)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("list notes: %w", err)
		}

		if listJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(list)
		}

		for _, n := range list {
			fmt.Printf("%d\t%s - %s\n", n.ID, notes.ShortTitle(n.Title), notes.ShortBody(n.Body))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
}
