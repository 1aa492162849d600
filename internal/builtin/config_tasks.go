package builtin

import (
	"context"
	"fmt"
	"sort"

	"hatch/internal/arguments"
	"hatch/internal/config"
	"hatch/internal/tasks"
)

// RegisterConfigTasks registers the scopes and command tasks declared in the
// project config. Config tasks may override built-in ones.
func RegisterConfigTasks(set *tasks.Set, cfg *config.ResolvedConfig) error {
	names := make([]string, 0, len(cfg.Scopes))
	for name := range cfg.Scopes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := set.RegisterScope(name, cfg.Scopes[name].Description); err != nil {
			return err
		}
	}

	for _, tc := range cfg.Tasks {
		def := tasks.New(tc.Name, tc.Description)
		if tc.Subtask {
			def = tasks.NewSubtask(tc.Name, tc.Description)
		}
		def.InScope(tc.Scope).
			AddVariadicPositionalParam("args", "Extra arguments passed to the command", nil, arguments.String).
			SetAction(commandAction(tc.Command))
		if err := set.Register(def); err != nil {
			return fmt.Errorf("config task %q: %w", tc.Name, err)
		}
	}
	return nil
}

func commandAction(argv []string) tasks.ActionFunc {
	return func(ctx context.Context, args arguments.TaskArguments, rt tasks.Runtime) (any, error) {
		binary, cmdArgs := splitArgv(argv)
		cmdArgs = append(cmdArgs, args.Strings("args")...)

		res, err := Run(ctx, Command{
			Binary:           binary,
			Arguments:        cmdArgs,
			WorkingDirectory: rt.Config().Paths.Root,
			Stdout:           rt.Stdout(),
			Stderr:           rt.Stderr(),
		})
		if err != nil {
			return nil, err
		}
		if res.ExitCode != 0 {
			return nil, fmt.Errorf("command %s exited with code %d", binary, res.ExitCode)
		}
		return nil, nil
	}
}
