package builtin

import (
	"context"
	"fmt"
	"os"

	"hatch/internal/arguments"
	"hatch/internal/tasks"
)

func cleanTask(opts Options) *tasks.TaskDefinition {
	return tasks.New(TaskClean, "Clears the cache and deletes all artifacts").
		AddFlag("global", "Clear the global cache").
		SetAction(func(ctx context.Context, args arguments.TaskArguments, rt tasks.Runtime) (any, error) {
			if args.Bool("global") {
				if opts.GlobalCacheDir == "" {
					return nil, nil
				}
				if err := os.RemoveAll(opts.GlobalCacheDir); err != nil {
					return nil, fmt.Errorf("failed to clear global cache: %w", err)
				}
				return nil, nil
			}

			paths := rt.Config().Paths
			for _, dir := range []string{paths.Cache, paths.Artifacts} {
				if err := os.RemoveAll(dir); err != nil {
					return nil, fmt.Errorf("failed to remove %s: %w", dir, err)
				}
			}
			return nil, nil
		})
}
