package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conorfennell/notetaker/internal/app"
)

var resetYes bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete every note by dropping the database",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := newApp(ctx, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		var c app.Confirmer = promptConfirmer{in: os.Stdin, out: os.Stdout}
		if resetYes {
			c = app.Confirmed
		}

		dropped, err := a.Reset(ctx, c)
		if err != nil {
			return fmt.Errorf("reset notes: %w", err)
		}
		if dropped {
			fmt.Println("All notes deleted.")
		} else {
			fmt.Println("Nothing deleted.")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resetCmd)
	resetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "Skip the confirmation prompt")
}

// promptConfirmer asks on a terminal and accepts y or yes.
type promptConfirmer struct {
	in  io.Reader
	out io.Writer
}

func (p promptConfirmer) Confirm(_ context.Context, prompt string) bool {
	fmt.Fprintf(p.out, "%s [y/N]: ", prompt)
	answer, err := bufio.NewReader(p.in).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
