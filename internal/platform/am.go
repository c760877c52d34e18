package platform

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"pegasus/internal/logging"
)

// DefaultAmBinary is the activity manager command.
const DefaultAmBinary = "am"

// CommandRunner executes name with args and returns its combined output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// AmCommand launches activities by running `am start`.
type AmCommand struct {
	binary  string
	timeout time.Duration
	run     CommandRunner
	logger  *slog.Logger
}

// NewAmCommand returns a launcher running binary with a per-launch timeout.
func NewAmCommand(binary string, timeout time.Duration, logger *slog.Logger) *AmCommand {
	if strings.TrimSpace(binary) == "" {
		binary = DefaultAmBinary
	}
	return &AmCommand{
		binary:  binary,
		timeout: timeout,
		run:     defaultRunner,
		logger:  logging.NewComponentLogger(logger, "platform"),
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (a *AmCommand) WithCommandRunner(runner CommandRunner) *AmCommand {
	a.run = runner
	return a
}

func defaultRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput() //nolint:gosec
}

// Command returns the argv AmCommand would run for args.
func (a *AmCommand) Command(args []string) ([]string, error) {
	parsed, err := ParseAmArgs(args)
	if err != nil {
		return nil, err
	}
	argv := []string{a.binary, "start"}
	if parsed.Display >= 0 {
		argv = append(argv, "--display", strconv.Itoa(parsed.Display))
	}
	return append(argv, parsed.Args...), nil
}

// StartActivity runs `am start`. am reports some failures on its output with
// a zero exit status, so an "Error:" line is treated as failure too.
func (a *AmCommand) StartActivity(ctx context.Context, args []string) error {
	argv, err := a.Command(args)
	if err != nil {
		return err
	}
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	output, err := a.run(ctx, argv[0], argv[1:]...)
	text := strings.TrimSpace(string(output))
	if err != nil {
		return fmt.Errorf("%s: %w: %s", a.binary, err, text)
	}
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "Error:") {
			return fmt.Errorf("%s: %s", a.binary, strings.TrimSpace(line))
		}
	}
	a.logger.Debug("activity started", logging.String("argv", strings.Join(argv, " ")))
	return nil
}
