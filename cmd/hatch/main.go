// Command hatch is the hatch developer CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"hatch/internal/cli"
	"hatch/internal/logging"
)

// newRootCmd builds the root command. Argument parsing belongs to the
// dispatcher, so cobra only hands over the raw argv. The process exit code
// is stored in exitCode.
func newRootCmd(deps func() (cli.Deps, error), exitCode *int) *cobra.Command {
	return &cobra.Command{
		Use:                "hatch [GLOBAL OPTIONS] [SCOPE] <TASK> [TASK OPTIONS]",
		Short:              "hatch - a task runner for smart-contract projects",
		DisableFlagParsing: true,
		SilenceErrors:      true,
		SilenceUsage:       true,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := deps()
			if err != nil {
				return err
			}
			*exitCode = cli.New(d).Run(cmd.Context(), args)
			return nil
		},
	}
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	code := 0
	root := newRootCmd(cli.DefaultDeps, &code)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		code = 1
	}

	cancel()
	logging.Sync()
	os.Exit(code)
}
