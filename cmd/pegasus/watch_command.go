package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"pegasus/internal/daemon"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stay running: rescan on storage hot-plug and reload on list edits",
		Long: "Holds the instance lock until interrupted. Attaching or removing block " +
			"storage triggers a catalog rescan and hand edits of the list file are " +
			"reloaded. Lifecycle events are logged.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(svc *daemon.Service) error {
				if !ctx.jsonMode() {
					fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s (Ctrl+C to stop)\n", svc.Config().Paths.ListFile)
				}
				err := svc.Watch(cmd.Context())
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
		},
	}
}
