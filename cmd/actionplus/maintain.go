package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/EwwwzhI/ActionPlus/internal/datekey"
	"github.com/EwwwzhI/ActionPlus/internal/reminders"
	"github.com/EwwwzhI/ActionPlus/internal/scheduler"
	"github.com/EwwwzhI/ActionPlus/internal/state"
)

const (
	maintainHour   = 0
	maintainMinute = 1
)

func maintainCmd(flags *globalFlags) *cobra.Command {
	var daemon bool

	cmd := &cobra.Command{
		Use:   "maintain",
		Short: "Run day maintenance: archive, cleanup, auto-generate, resync",
		Long: `Maintain loads the saved state, closes the score cycle when it has run
its length, drops records older than the retention window, creates the
tasks of auto templates, saves, and resyncs reminders.

With --daemon it keeps running and repeats every day at 00:01.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(flags, runtimeOptions{})
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx := cmd.Context()
			if !daemon {
				summary, err := rt.maintain(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), summary)
				return nil
			}

			c := scheduler.NewCron(time.Local)
			if _, err := c.ScheduleDaily(maintainHour, maintainMinute, func() {
				if _, err := rt.maintain(ctx); err != nil {
					rt.logger.Error("scheduled maintenance failed", "err", err)
				}
			}); err != nil {
				return err
			}
			if _, err := rt.maintain(ctx); err != nil {
				rt.logger.Error("maintenance failed", "err", err)
			}
			c.Start()
			defer c.Stop()
			rt.logger.Info("maintenance daemon running", "next", nextDailyRun(rt.clock.Now(), maintainHour, maintainMinute))
			<-ctx.Done()
			rt.logger.Info("maintenance daemon stopping")
			return nil
		},
	}
	cmd.Flags().BoolVar(&daemon, "daemon", false, "keep running and repeat daily at 00:01")
	return cmd
}

// maintain runs one maintenance pass over the saved state.
func (r *services) maintain(ctx context.Context) (string, error) {
	now := r.clock.Now()
	d := state.NewDispatcher(r.store.Load(ctx))
	applied := 0
	d.Subscribe(func(_, _ state.State, a state.Action) {
		applied++
		r.logger.Debug("maintenance action", "action", fmt.Sprintf("%T", a))
	})

	before := d.State()
	d.Dispatch(state.Maintenance(before, now, r.cfg.RetentionDays, r.cfg.GenerationOffsets(), state.NewID)...)
	after := d.State()
	if !r.store.Save(ctx, after) {
		return "", fmt.Errorf("save state failed, see the log for details")
	}

	if r.repo != nil {
		pruned, err := r.repo.PruneExpiredReminders(ctx, now)
		if err != nil {
			r.logger.Warn("prune expired reminders failed", "err", err)
		} else if pruned > 0 {
			r.logger.Info("pruned expired reminders", "count", pruned)
		}
	}

	outcomes, err := reminders.SyncAll(ctx, r.syncers, reminders.SyncRequest{State: after, Force: true})
	if err != nil {
		return "", fmt.Errorf("sync reminders: %w", err)
	}
	for _, out := range outcomes {
		r.logger.Info("reminder sync", "category", out.Category, "outcome", out.Kind, "scheduled", out.Scheduled)
	}

	summary := fmt.Sprintf("%s: %d actions, %d tasks (%d before), %d archives, cycle from %s",
		datekey.Format(now), applied, len(after.Tasks), len(before.Tasks), len(after.Archives), after.ArchiveSettings.PeriodStart)
	r.logger.Info("maintenance done", "summary", summary)
	return summary, nil
}

// nextDailyRun is the next hour:minute strictly after now.
func nextDailyRun(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
