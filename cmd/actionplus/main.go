package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var Version = "dev"

type globalFlags struct {
	configPath string
	dbPath     string
	logLevel   string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "actionplus failed: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	tui := tuiCmd(flags)

	rootCmd := &cobra.Command{
		Use:           "actionplus",
		Short:         "ActionPlus - daily tasks, points and reminders in the terminal",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          tui.RunE,
	}
	rootCmd.Flags().AddFlagSet(tui.Flags())

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "config file (default "+defaultConfigHint()+")")
	pf.StringVar(&flags.dbPath, "db", "", "SQLite database path, overrides the config")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn or error")

	rootCmd.AddCommand(tui)
	rootCmd.AddCommand(exportCmd(flags))
	rootCmd.AddCommand(remindersCmd(flags))
	rootCmd.AddCommand(maintainCmd(flags))
	return rootCmd
}
