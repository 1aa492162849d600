package builtin

import (
	"context"
	"fmt"

	"hatch/internal/arguments"
	"hatch/internal/tasks"
)

func testTask() *tasks.TaskDefinition {
	return tasks.New(TaskTest, "Runs the project's tests").
		AddFlag("noCompile", "Don't compile before running this task").
		AddFlag("bail", "Stop running tests after the first test failure").
		AddVariadicPositionalParam("testFiles", "An optional list of files to test", nil, arguments.String).
		SetAction(testAction)
}

// testAction runs test.command. A failing run is not an error: the exit code
// is recorded on the environment so the process exits non-zero.
func testAction(ctx context.Context, args arguments.TaskArguments, rt tasks.Runtime) (any, error) {
	cfg := rt.Config()

	if !args.Bool("noCompile") {
		if _, err := rt.Run(ctx, "", TaskCompile, arguments.TaskArguments{"quiet": true}); err != nil {
			return nil, err
		}
	}

	if len(cfg.Test.Command) == 0 {
		fmt.Fprintln(rt.Stdout(), "No test.command configured; nothing to run")
		return 0, nil
	}

	binary, cmdArgs := splitArgv(cfg.Test.Command)
	if args.Bool("bail") {
		cmdArgs = append(cmdArgs, "--bail")
	}
	cmdArgs = append(cmdArgs, args.Strings("testFiles")...)

	res, err := Run(ctx, Command{
		Binary:           binary,
		Arguments:        cmdArgs,
		WorkingDirectory: cfg.Paths.Root,
		Environment:      []string{"HATCH_TESTS=" + cfg.Paths.Tests},
		Stdout:           rt.Stdout(),
		Stderr:           rt.Stderr(),
	})
	if err != nil {
		return nil, err
	}
	if res.ExitCode != 0 {
		rt.SetExitCode(res.ExitCode)
	}
	return res.ExitCode, nil
}
