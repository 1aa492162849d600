package environment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hatch/internal/arguments"
	"hatch/internal/clierrors"
	"hatch/internal/config"
	"hatch/internal/tasks"
)

func testRegistry(t *testing.T) *tasks.Set {
	t.Helper()
	s := tasks.NewSet()
	s.MustRegister(tasks.NewSubtask("inner", "").SetAction(
		func(ctx context.Context, args arguments.TaskArguments, rt tasks.Runtime) (any, error) {
			return "inner:" + args.String("label"), nil
		}).AddOptionalParam("label", "", "default", arguments.String))
	s.MustRegister(tasks.New("outer", "").SetAction(
		func(ctx context.Context, args arguments.TaskArguments, rt tasks.Runtime) (any, error) {
			return rt.Run(ctx, "", "inner", nil)
		}))
	s.MustRegister(tasks.New("noaction", ""))
	_, err := s.RegisterScope("node", "")
	require.NoError(t, err)
	return s
}

func TestRunNestedTaskAppliesDefaults(t *testing.T) {
	env := New(&config.ResolvedConfig{}, arguments.GlobalArguments{}, testRegistry(t), nil, nil)

	out, err := env.Run(context.Background(), "", "outer", arguments.TaskArguments{})
	require.NoError(t, err)
	assert.Equal(t, "inner:default", out)
	assert.Nil(t, env.EntryTaskProfile())
}

func TestRunErrors(t *testing.T) {
	env := New(&config.ResolvedConfig{}, arguments.GlobalArguments{}, testRegistry(t), nil, nil)
	ctx := context.Background()

	_, err := env.Run(ctx, "", "missing", nil)
	assert.True(t, clierrors.Is(err, clierrors.UnrecognizedTask))

	_, err = env.Run(ctx, "node", "missing", nil)
	assert.True(t, clierrors.Is(err, clierrors.UnrecognizedScopedTask))

	_, err = env.Run(ctx, "", "noaction", nil)
	assert.True(t, clierrors.Is(err, clierrors.ActionNotSet))
}

func TestExtendersRunInOrder(t *testing.T) {
	var order []string
	var stdout bytes.Buffer
	env := New(&config.ResolvedConfig{}, arguments.GlobalArguments{}, testRegistry(t), []Extender{
		func(e *Environment) { order = append(order, "first"); e.Set("plugin", "a") },
		func(e *Environment) { order = append(order, "second") },
	}, &config.UserConfig{}, WithOutput(&stdout, &stdout))

	assert.Equal(t, []string{"first", "second"}, order)
	v, ok := env.Value("plugin")
	require.True(t, ok)
	assert.Equal(t, "a", v)
	assert.Same(t, &stdout, env.Stdout())
}

func TestProfilingCapturesTree(t *testing.T) {
	env := New(&config.ResolvedConfig{}, arguments.GlobalArguments{Flamegraph: true}, testRegistry(t), nil, nil)

	_, err := env.Run(context.Background(), "", "outer", nil)
	require.NoError(t, err)

	prof := env.EntryTaskProfile()
	require.NotNil(t, prof)
	assert.Equal(t, "outer", prof.Name)
	require.Len(t, prof.Children, 1)
	assert.Equal(t, "inner", prof.Children[0].Name)
	assert.False(t, prof.End.Before(prof.Start))

	path, err := WriteFlamegraph(prof, t.TempDir())
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var node map[string]any
	require.NoError(t, json.Unmarshal(data, &node))
	assert.Equal(t, "outer", node["name"])
}

func TestPluginTaskErrorsAreAttributed(t *testing.T) {
	failure := errors.New("no price feed")
	s := tasks.NewSet()
	s.MustRegister(tasks.New("gas", "").FromPlugin("gas-reporter").SetAction(
		func(ctx context.Context, args arguments.TaskArguments, rt tasks.Runtime) (any, error) {
			return nil, failure
		}))
	s.MustRegister(tasks.New("strict", "").FromPlugin("gas-reporter").SetAction(
		func(ctx context.Context, args arguments.TaskArguments, rt tasks.Runtime) (any, error) {
			return nil, clierrors.New(clierrors.AssertionFailed, map[string]any{"message": "x"})
		}))
	s.MustRegister(tasks.New("local", "").SetAction(
		func(ctx context.Context, args arguments.TaskArguments, rt tasks.Runtime) (any, error) {
			return nil, failure
		}))
	env := New(&config.ResolvedConfig{}, arguments.GlobalArguments{}, s, nil, nil)
	ctx := context.Background()

	_, err := env.Run(ctx, "", "gas", nil)
	var pluginErr *clierrors.PluginError
	require.ErrorAs(t, err, &pluginErr)
	assert.Equal(t, "gas-reporter", pluginErr.Plugin)
	assert.ErrorIs(t, err, failure)

	_, err = env.Run(ctx, "", "strict", nil)
	assert.Equal(t, clierrors.KindCLI, clierrors.Classify(err))

	_, err = env.Run(ctx, "", "local", nil)
	assert.Same(t, failure, err)
}

func TestExitCode(t *testing.T) {
	env := New(&config.ResolvedConfig{}, arguments.GlobalArguments{}, testRegistry(t), nil, nil)
	assert.Equal(t, 0, env.ExitCode())
	env.SetExitCode(3)
	assert.Equal(t, 3, env.ExitCode())
}
