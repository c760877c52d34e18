package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"pegasus/internal/logging"
)

// ErrForeignCall reports that the foreign activity call failed.
var ErrForeignCall = errors.New("foreign call failed")

// ActivityLauncher starts an activity described by `am start` arguments.
type ActivityLauncher interface {
	StartActivity(ctx context.Context, args []string) error
}

// AmArgs is a parsed `am start` argument list.
type AmArgs struct {
	// Display is the target display id, or -1 when none was given.
	Display int
	// Args holds the remaining intent arguments.
	Args []string
}

// ParseAmArgs drops a leading "start" token and extracts a --display or
// -display option.
func ParseAmArgs(args []string) (AmArgs, error) {
	out := AmArgs{Display: -1}
	if len(args) > 0 && args[0] == "start" {
		args = args[1:]
	}
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg != "--display" && arg != "-display" {
			out.Args = append(out.Args, arg)
			continue
		}
		if i+1 >= len(args) {
			return AmArgs{}, fmt.Errorf("%s requires a display id", arg)
		}
		id, err := strconv.Atoi(args[i+1])
		if err != nil || id < 0 {
			return AmArgs{}, fmt.Errorf("invalid display id %q", args[i+1])
		}
		out.Display = id
		i++
	}
	return out, nil
}

// ForeignFunc is the in-process activity start call. It returns an empty
// string on success and a description of the failure otherwise. It may panic.
type ForeignFunc func(args []string) string

// Bridge adapts a ForeignFunc to ActivityLauncher.
type Bridge struct {
	call   ForeignFunc
	logger *slog.Logger
}

// NewBridge returns a bridge over call. A nil call makes every launch fail
// with ErrForeignCall, as when no Android runtime is attached.
func NewBridge(call ForeignFunc, logger *slog.Logger) *Bridge {
	return &Bridge{call: call, logger: logging.NewComponentLogger(logger, "platform")}
}

// StartActivity invokes the foreign call. Failures are logged and returned
// wrapping ErrForeignCall.
func (b *Bridge) StartActivity(ctx context.Context, args []string) (err error) {
	if b.call == nil {
		b.logger.Debug("no foreign runtime attached")
		return fmt.Errorf("%w: no foreign runtime attached", ErrForeignCall)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrForeignCall, r)
			b.logFailure(err, args)
		}
	}()
	if msg := strings.TrimSpace(b.call(append([]string(nil), args...))); msg != "" {
		err = fmt.Errorf("%w: %s", ErrForeignCall, msg)
		b.logFailure(err, args)
		return err
	}
	return nil
}

func (b *Bridge) logFailure(err error, args []string) {
	logging.WarnWithContext(b.logger, "activity start failed", "activity_start_failed",
		logging.String("args", strings.Join(args, " ")),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check the intent arguments"),
		logging.String(logging.FieldImpact, "falling back to the am command"),
	)
}

// Fallback tries each launcher in order until one succeeds.
type Fallback []ActivityLauncher

// StartActivity returns nil on the first success, or all errors joined.
func (f Fallback) StartActivity(ctx context.Context, args []string) error {
	if len(f) == 0 {
		return errors.New("no activity launcher configured")
	}
	var errs []error
	for _, launcher := range f {
		err := launcher.StartActivity(ctx, args)
		if err == nil {
			return nil
		}
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
