package builtin

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"hatch/internal/arguments"
	"hatch/internal/tasks"
)

// SourceExtension marks the files compile collects.
const SourceExtension = ".sol"

func compileTask() *tasks.TaskDefinition {
	return tasks.New(TaskCompile, "Compiles the entire project, building all artifacts").
		AddFlag("force", "Force compilation ignoring cache").
		AddFlag("quiet", "Makes the compilation process less verbose").
		SetAction(compileAction)
}

func getSourcePathsTask() *tasks.TaskDefinition {
	return tasks.NewSubtask(SubtaskGetSourcePaths, "Get the list of source files to compile").
		SetAction(func(ctx context.Context, _ arguments.TaskArguments, rt tasks.Runtime) (any, error) {
			return SourcePaths(rt.Config().Paths.Sources)
		})
}

// SourcePaths lists the source files under dir, sorted. A missing dir has
// no sources.
func SourcePaths(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == dir {
				return filepath.SkipDir
			}
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == SourceExtension {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	sort.Strings(paths)
	return paths, nil
}

func compileAction(ctx context.Context, args arguments.TaskArguments, rt tasks.Runtime) (any, error) {
	quiet := args.Bool("quiet")
	cfg := rt.Config()

	out, err := rt.Run(ctx, "", SubtaskGetSourcePaths, nil)
	if err != nil {
		return nil, err
	}
	sources, _ := out.([]string)

	if len(sources) == 0 {
		if !quiet {
			fmt.Fprintln(rt.Stdout(), "Nothing to compile")
		}
		return sources, nil
	}
	if len(cfg.Compiler.Command) == 0 {
		if !quiet {
			fmt.Fprintf(rt.Stdout(), "Found %d source file(s); no compiler.command configured\n", len(sources))
		}
		return sources, nil
	}

	binary, cmdArgs := splitArgv(cfg.Compiler.Command)
	if args.Bool("force") {
		cmdArgs = append(cmdArgs, "--force")
	}
	cmdArgs = append(cmdArgs, sources...)

	res, err := Run(ctx, Command{
		Binary:           binary,
		Arguments:        cmdArgs,
		WorkingDirectory: cfg.Paths.Root,
		Environment: []string{
			"HATCH_COMPILER_VERSION=" + cfg.Compiler.Version,
			fmt.Sprintf("HATCH_OPTIMIZER_RUNS=%d", cfg.Compiler.OptimizerRuns),
			fmt.Sprintf("HATCH_VIA_IR=%t", cfg.Compiler.ViaIR),
			"HATCH_ARTIFACTS=" + cfg.Paths.Artifacts,
		},
		Stdout: rt.Stdout(),
		Stderr: rt.Stderr(),
	})
	if err != nil {
		return nil, err
	}
	if res.ExitCode != 0 {
		return nil, fmt.Errorf("compilation failed with exit code %d", res.ExitCode)
	}
	if !quiet {
		fmt.Fprintf(rt.Stdout(), "Compiled %d source file(s) successfully\n", len(sources))
	}
	return sources, nil
}
