package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"pegasus/internal/daemon"
)

type flagResult struct {
	Disliked  bool     `json:"disliked"`
	Requested int      `json:"requested"`
	Unmatched []string `json:"unmatched"`
}

// newFlagCommand builds `flag` when disliked is true and `unflag` otherwise.
func newFlagCommand(ctx *commandContext, disliked bool) *cobra.Command {
	use, short := "flag <path|uri>...", "Mark games as disliked"
	if !disliked {
		use, short = "unflag <path|uri>...", "Clear the disliked mark of games"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(svc *daemon.Service) error {
				unmatched, err := svc.SetDisliked(args, disliked)
				if err != nil {
					return err
				}
				if err := svc.Flush(cmd.Context()); err != nil {
					return fmt.Errorf("write list: %w", err)
				}
				res := flagResult{Disliked: disliked, Requested: len(args), Unmatched: unmatched}
				if res.Unmatched == nil {
					res.Unmatched = []string{}
				}
				err = ctx.emit(cmd, res, func() error {
					out := cmd.OutOrStdout()
					verb := "Flagged"
					if !disliked {
						verb = "Unflagged"
					}
					fmt.Fprintf(out, "%s %d of %d\n", verb, len(args)-len(unmatched), len(args))
					for _, target := range unmatched {
						fmt.Fprintf(out, "  no game matches %s\n", target)
					}
					return nil
				})
				if err == nil && len(unmatched) == len(args) {
					err = errors.New("no game matched the given targets")
				}
				return err
			})
		},
	}
}
