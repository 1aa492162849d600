package builtin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"hatch/internal/logging"
)

// Command is an external process run by a task.
type Command struct {
	Binary           string
	Arguments        []string
	WorkingDirectory string
	Environment      []string
	Stdout           io.Writer
	Stderr           io.Writer
}

// Result describes a finished command.
type Result struct {
	ExitCode int
	Duration time.Duration
}

// Run executes cmd. A non-zero exit is reported through Result, not as an
// error; errors mean the command could not run at all.
func Run(ctx context.Context, cmd Command) (*Result, error) {
	execCmd := exec.CommandContext(ctx, cmd.Binary, cmd.Arguments...)
	execCmd.Dir = cmd.WorkingDirectory
	execCmd.Env = append(os.Environ(), cmd.Environment...)
	execCmd.Stdout = cmd.Stdout
	execCmd.Stderr = cmd.Stderr

	logging.RuntimeDebug("starting process: %s %v", cmd.Binary, cmd.Arguments)
	start := time.Now()
	err := execCmd.Run()
	result := &Result{Duration: time.Since(start)}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && ctx.Err() == nil {
			result.ExitCode = exitErr.ExitCode()
			logging.RuntimeDebug("process exited non-zero: %s -> %d", cmd.Binary, result.ExitCode)
			return result, nil
		}
		return nil, fmt.Errorf("failed to run %s: %w", cmd.Binary, err)
	}
	return result, nil
}

func splitArgv(argv []string) (string, []string) {
	return argv[0], append([]string(nil), argv[1:]...)
}
