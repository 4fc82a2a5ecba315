package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"stencil/internal/config"
	"stencil/internal/queue"
	"stencil/internal/workflow"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:       "run <stage>",
		Short:     "Execute one pass of a pipeline stage",
		Long:      "Runs a single stage pass against the shared queue: ingest, resolver, artwork, nesting, or tagsync.",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"ingest", "resolver", "artwork", "nesting", "tagsync"},
		RunE: func(cmd *cobra.Command, args []string) error {
			stageName := strings.ToLower(strings.TrimSpace(args[0]))
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				manager := workflow.NewManager(cfg, store, ctx.cliLogger())
				summary, err := manager.RunStage(cmd.Context(), stageName)
				if err != nil {
					return fmt.Errorf("%s pass: %w", stageName, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(),
					"%s: examined %d, succeeded %d, failed %d, skipped %d\n",
					stageName, summary.Examined, summary.Succeeded, summary.Failed, summary.Skipped)
				return nil
			})
		},
	}
	return cmd
}
