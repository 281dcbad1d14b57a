package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/EwwwzhI/ActionPlus/internal/reminders"
)

func remindersCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reminders",
		Short: "Inspect and resync scheduled reminders",
	}
	cmd.AddCommand(remindersSyncCmd(flags))
	cmd.AddCommand(remindersListCmd(flags))
	return cmd
}

func remindersSyncCmd(flags *globalFlags) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Rebuild reminders from the saved state",
		Long: `Sync replaces the reminders of both categories with the ones the saved
settings produce. With the SQLite backend the result is written to the
reminder ledger, and a running TUI picks it up on its next start.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(flags, runtimeOptions{})
			if err != nil {
				return err
			}
			defer rt.Close()

			st := rt.store.Load(cmd.Context())
			outcomes, err := reminders.SyncAll(cmd.Context(), rt.syncers, reminders.SyncRequest{State: st, Force: force})
			if err != nil {
				return fmt.Errorf("sync reminders: %w", err)
			}
			for _, out := range outcomes {
				fmt.Fprintln(cmd.OutOrStdout(), describeOutcome(out))
				rt.logger.Info("reminder sync",
					"category", out.Category,
					"outcome", out.Kind,
					"syncs_total", rt.metrics.SyncCount(out.Category, out.Kind),
					"scheduled_total", rt.metrics.ScheduledCount(out.Category),
				)
			}
			if rt.repo == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "note: the file backend keeps no reminder ledger; reminders only fire while the TUI runs")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "reschedule even if nothing changed")
	return cmd
}

func remindersListCmd(flags *globalFlags) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List scheduled reminders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(flags, runtimeOptions{})
			if err != nil {
				return err
			}
			defer rt.Close()

			var filter reminders.Category
			switch strings.ToLower(category) {
			case "", "all":
			case "task":
				filter = reminders.CategoryTask
			case "longterm":
				filter = reminders.CategoryLongterm
			default:
				return fmt.Errorf("unknown category %q, use task, longterm or all", category)
			}
			items, err := rt.delivery.ListScheduled(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return writeScheduled(cmd.OutOrStdout(), items)
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", "all", "task, longterm or all")
	return cmd
}

func writeScheduled(w io.Writer, items []reminders.Scheduled) error {
	if len(items) == 0 {
		_, err := fmt.Fprintln(w, "no reminders scheduled")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tCATEGORY\tKIND\tTITLE\tBODY")
	for _, item := range items {
		when := item.At.Local().Format("2006-01-02 15:04")
		if item.Repeating {
			when = fmt.Sprintf("daily %02d:%02d", item.Hour, item.Minute)
		}
		body := strings.ReplaceAll(item.Payload.Body, "\n", " / ")
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", when, item.Category, item.Payload.Kind, item.Payload.Title, body)
	}
	return tw.Flush()
}

func describeOutcome(out reminders.SyncOutcome) string {
	line := fmt.Sprintf("%s: %s", out.Category, out.Kind)
	switch out.Kind {
	case reminders.OutcomeApplied:
		line += fmt.Sprintf(", %d scheduled", out.Scheduled)
		if out.Failed > 0 {
			line += fmt.Sprintf(", %d failed", out.Failed)
		}
	case reminders.OutcomeSkipped:
		line += " (" + out.Reason + ")"
	}
	if out.Message != "" {
		line += " - " + out.Message
	}
	return line
}
