// Package cli implements the studyrag command line.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"studyrag/internal/app"
	"studyrag/internal/config"
	"studyrag/internal/logger"

	"github.com/spf13/cobra"
)

type options struct {
	jsonOut bool
	app     *app.App
}

// newRootCmd builds the command tree. Every run wires its own App from the
// environment into opts.
func newRootCmd(opts *options) *cobra.Command {
	root := &cobra.Command{
		Use:           "studyrag",
		Short:         "Generate grounded practice questions from study material",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			lg, err := logger.New(cfg.LogMode)
			if err != nil {
				return err
			}
			a, err := app.New(cmd.Context(), cfg, lg)
			if err != nil {
				return err
			}
			opts.app = a
			return nil
		},
	}
	root.PersistentFlags().BoolVar(&opts.jsonOut, "json", false, "output as JSON")

	root.AddCommand(
		newIngestCmd(opts),
		newMaterialsCmd(opts),
		newGenerateCmd(opts),
		newValidateCmd(opts),
		newSearchCmd(opts),
		newFlashcardsCmd(opts),
		newAskCmd(opts),
	)
	return root
}

// Execute runs the CLI with ctx and returns the command error.
func Execute(ctx context.Context, args []string) error {
	return execute(ctx, args, nil)
}

func execute(ctx context.Context, args []string, out io.Writer) error {
	opts := &options{}
	defer func() {
		if opts.app != nil {
			opts.app.Close()
		}
	}()
	root := newRootCmd(opts)
	root.SetArgs(args)
	if out != nil {
		root.SetOut(out)
		root.SetErr(out)
	}
	return root.ExecuteContext(ctx)
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}
