package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"stencil/internal/config"
	"stencil/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and maintain the work queue",
	}

	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueReviewCommand(ctx))
	queueCmd.AddCommand(newQueueClearShippedCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))

	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var orderID string
	var includeShipped bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tracked work items",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				var items []*queue.WorkItem
				var err error
				if strings.TrimSpace(orderID) != "" {
					items, err = store.ListByOrderID(cmd.Context(), orderID)
				} else {
					items, err = store.ListAll(cmd.Context())
				}
				if err != nil {
					return err
				}

				rows := make([][]string, 0, len(items))
				for _, item := range items {
					if item.Shipped && !includeShipped {
						continue
					}
					rows = append(rows, []string{
						item.ItemID,
						item.OrderNumber,
						item.Store,
						item.Color,
						strings.Join(item.Names, ", "),
						itemState(item, cfg.AI.AttemptLimit),
						item.SheetID,
					})
				}
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Item", "Order", "Store", "Color", "Names", "State", "Sheet"}, rows))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&orderID, "order", "", "Only show items for this order id")
	cmd.Flags().BoolVar(&includeShipped, "shipped", false, "Include shipped items")
	return cmd
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queue counts per pipeline gate",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				summary, err := store.Summary(cmd.Context(), cfg.AI.AttemptLimit)
				if err != nil {
					return err
				}
				rows := [][]string{
					{"Total", strconv.Itoa(summary.Total)},
					{"Awaiting parse", strconv.Itoa(summary.AwaitingParse)},
					{"Awaiting artwork", strconv.Itoa(summary.AwaitingArtwork)},
					{"Awaiting nesting", strconv.Itoa(summary.AwaitingNesting)},
					{"Nested", strconv.Itoa(summary.Nested)},
					{"Needs review", strconv.Itoa(summary.ManualReview)},
					{"On hold", strconv.Itoa(summary.OnHold)},
					{"Tagged", strconv.Itoa(summary.Tagged)},
					{"Shipped", strconv.Itoa(summary.Shipped)},
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Gate", "Items"}, rows, 2))
				return nil
			})
		},
	}
}

func newQueueReviewCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "review",
		Short: "List items stuck waiting for an operator",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				items, err := store.ManualReviewItems(cmd.Context(), cfg.AI.AttemptLimit)
				if err != nil {
					return err
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Nothing needs review")
					return nil
				}

				rows := make([][]string, 0, len(items))
				for _, item := range items {
					rows = append(rows, []string{
						item.ItemID,
						item.OrderNumber,
						reviewReason(item, cfg.AI.AttemptLimit),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Item", "Order", "Reason"}, rows))
				return nil
			})
		},
	}
}

func newQueueClearShippedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-shipped",
		Short: "Delete shipped items not marked keep",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				removed, err := store.ClearShipped(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d shipped item(s)\n", removed)
				return nil
			})
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every work item",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				return fmt.Errorf("refusing to clear the queue without --force")
			}
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				removed, err := store.Clear(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d item(s)\n", removed)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Confirm deleting all queue data")
	return cmd
}

// itemState derives a short pipeline position label from the item's flags.
func itemState(item *queue.WorkItem, attemptLimit int) string {
	switch {
	case item.Shipped:
		return "shipped"
	case item.NeedsManualReview(attemptLimit):
		return "review"
	case !item.Parsed:
		return "awaiting parse"
	case !item.ArtworkGenerated:
		return "awaiting artwork"
	case !item.Nested:
		return "awaiting nesting"
	default:
		return "nested"
	}
}

func reviewReason(item *queue.WorkItem, attemptLimit int) string {
	var reasons []string
	if item.ProofRequested {
		reasons = append(reasons, "proof requested")
	}
	if item.CustomRequest {
		reasons = append(reasons, "custom request")
	}
	if !item.Parsed && item.ParseAttempts >= attemptLimit {
		reasons = append(reasons, "parse retries exhausted")
	}
	if strings.TrimSpace(item.GenerationError) != "" {
		reasons = append(reasons, "artwork: "+item.GenerationError)
	}
	if len(reasons) == 0 {
		return "unknown"
	}
	return strings.Join(reasons, "; ")
}
