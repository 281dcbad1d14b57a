package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/EwwwzhI/ActionPlus/internal/datekey"
	"github.com/EwwwzhI/ActionPlus/internal/export"
)

func exportCmd(flags *globalFlags) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write recent settled tasks to a CSV file",
		Long: `Export writes every settled task of the retention window to a UTF-8 CSV
file with a byte-order mark. Without --out the file is named
ActionPlus_<today>.csv in the current directory; --out - writes to stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(flags, runtimeOptions{})
			if err != nil {
				return err
			}
			defer rt.Close()

			now := rt.clock.Now()
			st := rt.store.Load(cmd.Context())
			var buf bytes.Buffer
			n, err := export.WriteCSV(&buf, st, datekey.StartOfDay(now), rt.cfg.RetentionDays)
			if errors.Is(err, export.ErrNoRecords) {
				fmt.Fprintln(cmd.OutOrStdout(), export.EmptyMessage)
				return nil
			}
			if err != nil {
				return err
			}

			if out == "-" {
				_, err := cmd.OutOrStdout().Write(buf.Bytes())
				return err
			}
			path := out
			if path == "" {
				path = export.FileName(now)
			}
			if dir := filepath.Dir(path); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return fmt.Errorf("create export dir: %w", err)
				}
			}
			if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			rt.logger.Info("export written", "path", path, "rows", n)
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d rows to %s\n", n, path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file, or - for stdout")
	return cmd
}
