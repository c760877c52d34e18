package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pegasus/internal/daemon"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var unresolvedOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the dislike list and what each entry resolves to",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(svc *daemon.Service) error {
				entries, err := svc.ListEntries()
				if err != nil {
					return err
				}
				if unresolvedOnly {
					filtered := entries[:0]
					for _, e := range entries {
						if !e.Resolved {
							filtered = append(filtered, e)
						}
					}
					entries = filtered
				}
				return ctx.emit(cmd, entries, func() error {
					out := cmd.OutOrStdout()
					if len(entries) == 0 {
						_, err := fmt.Fprintln(out, "No disliked entries")
						return err
					}
					_, err := fmt.Fprintln(out, formatListTable(entries))
					return err
				})
			})
		},
	}
	cmd.Flags().BoolVar(&unresolvedOnly, "unresolved", false, "Only show entries no game matches")
	return cmd
}

func formatListTable(entries []daemon.ListEntry) string {
	rows := make([][]string, 0, len(entries))
	matched := 0
	for i, e := range entries {
		state := "missing"
		if e.Resolved {
			state = "matched"
			matched++
		}
		rows = append(rows, []string{fmt.Sprintf("%d", i+1), e.Title, state, e.Path})
	}
	return renderTable(tableLayout{
		headers:  []string{"#", "Game", "State", "Path"},
		rows:     rows,
		aligns:   []columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
		footer:   []string{"", fmt.Sprintf("%d matched", matched), "", fmt.Sprintf("%d entries", len(entries))},
		maxWidth: 80,
	})
}
