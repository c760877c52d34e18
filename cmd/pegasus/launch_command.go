package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pegasus/internal/daemon"
)

func newLaunchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "launch -- <am start arguments>",
		Short: "Start an Android activity, falling back to the am command",
		Example: "  pegasus launch -- start --display 1 -n org.example.emu/.MainActivity\n" +
			"  pegasus launch -- -a android.intent.action.VIEW -d file:///sdcard/roms/game.sfc",
		Args:                  cobra.MinimumNArgs(1),
		DisableFlagsInUseLine: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(svc *daemon.Service) error {
				if err := svc.Launch(cmd.Context(), args); err != nil {
					return fmt.Errorf("launch activity: %w", err)
				}
				return ctx.emit(cmd, map[string]any{"launched": true, "args": args}, func() error {
					_, err := fmt.Fprintln(cmd.OutOrStdout(), "Activity started")
					return err
				})
			})
		},
	}
}
