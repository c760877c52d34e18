package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"pegasus/internal/daemon"
	"pegasus/internal/quarantine"
)

func newTrashCommand(ctx *commandContext) *cobra.Command {
	trashCmd := &cobra.Command{
		Use:   "trash",
		Short: "Move flagged files to the Trash quarantine and manage it",
	}
	trashCmd.AddCommand(newTrashMoveCommand(ctx))
	trashCmd.AddCommand(newTrashPurgeCommand(ctx))
	trashCmd.AddCommand(newTrashListCommand(ctx))
	trashCmd.AddCommand(newTrashRestoreCommand(ctx))
	return trashCmd
}

func newTrashMoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "move",
		Short: "Move every file on the dislike list into the Trash",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(svc *daemon.Service) error {
				result, err := svc.Trash(cmd.Context())
				if err != nil {
					return err
				}
				return ctx.emit(cmd, result, func() error {
					return printResult(cmd, "Moved to Trash", result)
				})
			})
		},
	}
}

func newTrashPurgeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Permanently delete everything in the Trash",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(svc *daemon.Service) error {
				result, err := svc.Purge(cmd.Context())
				if err != nil {
					return err
				}
				return ctx.emit(cmd, result, func() error {
					return printResult(cmd, "Purged", result)
				})
			})
		},
	}
}

func printResult(cmd *cobra.Command, verb string, result quarantine.Result) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %d file(s)\n", verb, result.Success)
	if result.Failed > 0 {
		fmt.Fprintf(out, "Failed: %d file(s); see the log for details\n", result.Failed)
	}
	return nil
}

func newTrashListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List quarantined files",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(svc *daemon.Service) error {
				entries, err := svc.TrashEntries(cmd.Context())
				if err != nil {
					return err
				}
				if entries == nil {
					entries = []quarantine.Entry{}
				}
				return ctx.emit(cmd, entries, func() error {
					out := cmd.OutOrStdout()
					if len(entries) == 0 {
						_, err := fmt.Fprintln(out, "Trash is empty")
						return err
					}
					_, err := fmt.Fprintln(out, formatTrashTable(entries))
					return err
				})
			})
		},
	}
}

func formatTrashTable(entries []quarantine.Entry) string {
	rows := make([][]string, 0, len(entries))
	var total int64
	for _, e := range entries {
		id, origin, moved := "-", "-", humanize.Time(e.ModTime)
		if e.Record != nil {
			id = e.Record.ID
			origin = e.Record.OriginalPath
			moved = humanize.Time(e.Record.MovedAt)
		}
		total += e.SizeBytes
		rows = append(rows, []string{id, e.Name, humanize.Bytes(uint64(e.SizeBytes)), moved, origin})
	}
	return renderTable(tableLayout{
		headers:  []string{"ID", "Name", "Size", "Moved", "Original path"},
		rows:     rows,
		aligns:   []columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
		footer:   []string{"", fmt.Sprintf("%d files", len(entries)), humanize.Bytes(uint64(total)), "", ""},
		maxWidth: 60,
	})
}

func newTrashRestoreCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <id>",
		Short: "Move a quarantined file back to its original path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			return ctx.withService(cmd, func(svc *daemon.Service) error {
				rec, err := svc.Restore(cmd.Context(), id)
				if err != nil {
					return err
				}
				return ctx.emit(cmd, rec, func() error {
					_, err := fmt.Fprintf(cmd.OutOrStdout(), "Restored %s\n", rec.OriginalPath)
					return err
				})
			})
		},
	}
}
