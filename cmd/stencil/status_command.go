package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"stencil/internal/config"
	"stencil/internal/preflight"
	"stencil/internal/queue"
	"stencil/internal/workflow"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show preflight checks, stage health, and queue counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)

				printSection(out, "Preflight", colorize)
				for _, result := range preflight.RunAll(cmd.Context(), cfg) {
					kind := statusOK
					if !result.Passed {
						kind = statusError
					}
					fmt.Fprintln(out, renderStatusLine(result.Name, kind, result.Detail, colorize))
				}

				manager := workflow.NewManager(cfg, store, ctx.cliLogger())
				status := manager.Status(cmd.Context())

				printSection(out, "Stages", colorize)
				for _, name := range manager.StageNames() {
					health := status.StageHealth[name]
					kind := statusOK
					if !health.Ready {
						kind = statusWarn
					}
					fmt.Fprintln(out, renderStatusLine(name, kind, health.Detail, colorize))
				}

				printSection(out, "Queue", colorize)
				stats := status.QueueStats
				fmt.Fprintf(out, "  %d total, %d awaiting parse, %d awaiting artwork, %d awaiting nesting, %d nested\n",
					stats.Total, stats.AwaitingParse, stats.AwaitingArtwork, stats.AwaitingNesting, stats.Nested)
				fmt.Fprintf(out, "  %d on hold, %d need review, %d tagged, %d shipped\n",
					stats.OnHold, stats.ManualReview, stats.Tagged, stats.Shipped)
				dbHealth := store.Health(cmd.Context())
				dbKind := statusOK
				detail := fmt.Sprintf("schema v%s at %s", dbHealth.SchemaVersion, dbHealth.DBPath)
				if dbHealth.Error != "" {
					dbKind = statusError
					detail = dbHealth.Error
				} else if !dbHealth.IntegrityCheck {
					dbKind = statusWarn
					detail = "integrity check failed"
				}
				fmt.Fprintln(out, renderStatusLine("Database", dbKind, detail, colorize))
				return nil
			})
		},
	}
}

type statusKind int

const (
	statusOK statusKind = iota
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	text := fmt.Sprintf("  %-24s [%s]", label+":", statusKindLabel(kind))
	if strings.TrimSpace(message) != "" {
		text += " " + message
	}
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + text + ansiReset
		}
	}
	return text
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "OK"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	default:
		return ""
	}
}

func printSection(out io.Writer, title string, colorize bool) {
	line := fmt.Sprintf("== %s ==", title)
	if colorize {
		line = ansiGreen + line + ansiReset
	}
	fmt.Fprintln(out, line)
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
