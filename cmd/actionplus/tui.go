package main

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/EwwwzhI/ActionPlus/internal/update"
)

// ledgerPollInterval is how often a running UI picks up ledger changes made
// by `reminders sync` or the maintain daemon.
const ledgerPollInterval = time.Minute

func tuiCmd(flags *globalFlags) *cobra.Command {
	var desktop bool
	var exportDir string

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Open the terminal UI (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(flags, runtimeOptions{logToFile: true})
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx := cmd.Context()
			restored, err := rt.delivery.Restore(ctx)
			if err != nil {
				rt.logger.Warn("restore reminders failed", "err", err)
			}
			rt.delivery.Start()
			defer rt.delivery.Stop()
			rt.logger.Info("tui starting", "restored_reminders", restored)

			pollCtx, stopPoll := context.WithCancel(ctx)
			defer stopPoll()
			go pollLedger(pollCtx, rt, ledgerPollInterval)

			var notifier update.DesktopNotifier = update.NoopDesktopNotifier{}
			if desktop {
				notifier = update.ExecDesktopNotifier{}
			}
			model := update.NewModel(rt.store.Load(ctx), update.Deps{
				Store:             rt.store,
				Syncers:           rt.syncers,
				Reminders:         rt.delivery,
				Notifier:          notifier,
				Clock:             rt.clock,
				Logger:            rt.logger,
				RetentionDays:     rt.cfg.RetentionDays,
				GenerationOffsets: rt.cfg.GenerationOffsets(),
				ExportDir:         exportDir,
			})

			program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
			if _, err := program.Run(); err != nil {
				return fmt.Errorf("run tui: %w", err)
			}
			if dropped := rt.delivery.Dropped(); dropped > 0 {
				rt.logger.Warn("reminders dropped while the UI was busy", "count", dropped)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&desktop, "desktop", false, "also show reminders as desktop notifications")
	cmd.Flags().StringVar(&exportDir, "export-dir", ".", "directory the export command writes CSV files to")
	return cmd
}

func pollLedger(ctx context.Context, rt *services, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, _, err := rt.delivery.Reconcile(ctx); err != nil && ctx.Err() == nil {
				rt.logger.Warn("reconcile reminders failed", "err", err)
			}
		}
	}
}
