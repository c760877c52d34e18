package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"pegasus/internal/daemon"
	"pegasus/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show paths, counts and directory checks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(svc *daemon.Service) error {
				st := svc.Status(cmd.Context())
				return ctx.emit(cmd, st, func() error {
					_, err := fmt.Fprintln(cmd.OutOrStdout(), formatStatus(st, shouldColorize(cmd.OutOrStdout())))
					return err
				})
			})
		},
	}
}

func formatStatus(st daemon.Status, colorize bool) string {
	var lines []string
	lines = append(lines, renderSectionHeader("Paths", colorize)...)
	lines = append(lines,
		renderStatusLine("Config directory", statusInfo, st.ConfigDir, colorize),
		renderStatusLine("List file", statusInfo, st.ListFile, colorize),
		renderStatusLine("Trash", statusInfo, st.QuarantineDir, colorize),
		renderStatusLine("Portable entries", statusInfo, yesNo(st.Portable), colorize),
	)
	journalKind := statusOK
	if !st.JournalAvailable {
		journalKind = statusWarn
	}
	lines = append(lines, renderStatusLine("Journal", journalKind, st.JournalPath, colorize))

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Dislikes", colorize)...)
	listDetail := "not created yet"
	if st.Load.Exists {
		listDetail = fmt.Sprintf("%d entries, %d matched, %d unresolved", st.Load.Entries, st.Load.Matched, st.Load.Unresolved)
	}
	unresolvedKind := statusOK
	if st.Load.Unresolved > 0 {
		unresolvedKind = statusWarn
	}
	lines = append(lines,
		renderStatusLine("Catalog", statusInfo, fmt.Sprintf("%d games, %d disliked", st.Games, st.Disliked), colorize),
		renderStatusLine("List", unresolvedKind, listDetail, colorize),
		renderStatusLine("Writer", statusInfo, fmt.Sprintf("%s, %d writes", st.WriteState, st.Writes), colorize),
		renderStatusLine("Quarantined", statusInfo, fmt.Sprintf("%d files, %s", st.TrashFiles, humanize.Bytes(uint64(st.TrashBytes))), colorize),
	)

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Checks", colorize)...)
	for _, check := range st.Checks {
		lines = append(lines, renderStatusLine(check.Name, checkKind(check), check.Detail, colorize))
	}
	return strings.Join(lines, "\n")
}

func checkKind(r preflight.Result) statusKind {
	switch {
	case r.Passed:
		return statusOK
	case r.Optional:
		return statusWarn
	default:
		return statusError
	}
}
