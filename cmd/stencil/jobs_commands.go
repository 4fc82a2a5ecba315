package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"stencil/internal/config"
	"stencil/internal/jobs"
	"stencil/internal/queue"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Register and inspect production jobs",
	}

	jobsCmd.AddCommand(newJobsRegisterCommand(ctx))
	jobsCmd.AddCommand(newJobsListCommand(ctx))
	jobsCmd.AddCommand(newJobsRetryCommand(ctx))

	return jobsCmd
}

func newJobsRegisterCommand(ctx *commandContext) *cobra.Command {
	var sheetID string
	var stationID string
	var materialID string
	var itemList string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a confirmed sheet as a production job",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				registrar := jobs.NewRegistrar(cfg, store, ctx.cliLogger())

				desc := jobs.SheetDescription{
					SheetID:    strings.TrimSpace(sheetID),
					StationID:  stationID,
					MaterialID: materialID,
				}
				if trimmed := strings.TrimSpace(itemList); trimmed != "" {
					desc.ItemIDs = strings.Split(trimmed, ",")
				}

				job, err := registrar.Register(cmd.Context(), desc)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Registered job %s (#%d) covering %d item(s) across %d order(s)\n",
					job.JobCode, job.JobNumber, len(job.ItemIDs), len(job.OrderIDs))
				if job.TrackingJobID != "" {
					fmt.Fprintf(out, "Tracking id: %s\n", job.TrackingJobID)
				} else {
					fmt.Fprintln(out, "Tracking registration pending; retry with `stencil jobs retry`")
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&sheetID, "sheet", "", "Sheet id whose nested items form the job")
	cmd.Flags().StringVar(&stationID, "station", "", "Production station identifier")
	cmd.Flags().StringVar(&materialID, "material", "", "Material identifier")
	cmd.Flags().StringVar(&itemList, "items", "", "Comma-separated item ids (overrides --sheet membership)")
	_ = cmd.MarkFlagRequired("station")
	_ = cmd.MarkFlagRequired("material")
	return cmd
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered production jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				all, err := store.ListJobs(cmd.Context())
				if err != nil {
					return err
				}
				if len(all) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No jobs registered")
					return nil
				}

				rows := make([][]string, 0, len(all))
				for _, job := range all {
					rows = append(rows, []string{
						job.JobCode,
						job.StationID,
						job.MaterialID,
						strconv.FormatInt(job.JobNumber, 10),
						strconv.Itoa(len(job.ItemIDs)),
						job.TrackingJobID,
						yesNo(job.Notified),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Code", "Station", "Material", "Number", "Items", "Tracking", "Notified"}, rows, 4, 5))
				return nil
			})
		},
	}
}

func newJobsRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <job-code>",
		Short: "Re-post a job whose tracking registration failed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				registrar := jobs.NewRegistrar(cfg, store, ctx.cliLogger())
				if err := registrar.RetryTracking(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Job %s posted to tracking\n", args[0])
				return nil
			})
		},
	}
}
