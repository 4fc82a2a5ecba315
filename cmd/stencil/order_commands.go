package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"stencil/internal/config"
	"stencil/internal/queue"
)

func newOrderCommand(ctx *commandContext) *cobra.Command {
	orderCmd := &cobra.Command{
		Use:   "order",
		Short: "Operator actions on orders and items",
	}

	orderCmd.AddCommand(newOrderClearHoldsCommand(ctx))
	orderCmd.AddCommand(newOrderApproveCommand(ctx))
	orderCmd.AddCommand(newOrderKeepCommand(ctx))
	orderCmd.AddCommand(newOrderResetArtworkCommand(ctx))

	return orderCmd
}

func newOrderClearHoldsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-holds <order-id>",
		Short: "Clear proof and custom-request holds on an order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				if err := store.ClearOrderHolds(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared holds on order %s\n", args[0])
				return nil
			})
		},
	}
}

func newOrderApproveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "approve <order-id>",
		Short: "Approve a proof and release the order's holds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				if err := store.MarkOrderApproved(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Approved order %s\n", args[0])
				return nil
			})
		},
	}
}

func newOrderKeepCommand(ctx *commandContext) *cobra.Command {
	var off bool

	cmd := &cobra.Command{
		Use:   "keep <order-id>",
		Short: "Protect an order from shipped-cleanup (or release it with --off)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				if err := store.SetOrderKeep(cmd.Context(), args[0], !off); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Order %s keep=%s\n", args[0], yesNo(!off))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&off, "off", false, "Release the keep flag")
	return cmd
}

func newOrderResetArtworkCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-artwork <item-id>",
		Short: "Clear an item's artwork state so generation retries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				if err := store.ResetArtwork(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Artwork reset for item %s\n", args[0])
				return nil
			})
		},
	}
}
