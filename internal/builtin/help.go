package builtin

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/glamour"

	"hatch/internal/arguments"
	"hatch/internal/clierrors"
	"hatch/internal/tasks"
)

const helpWordWrap = 100

func helpTask(opts Options) *tasks.TaskDefinition {
	return tasks.New(TaskHelp, "Prints this message").
		AddOptionalPositionalParam("scopeOrTask", "An optional scope or task to print more info about", nil, arguments.String).
		AddOptionalPositionalParam("task", "An optional task to print more info about", nil, arguments.String).
		SetAction(func(ctx context.Context, args arguments.TaskArguments, rt tasks.Runtime) (any, error) {
			md, err := HelpMarkdown(rt.Registry(), opts.Version, args.String("scopeOrTask"), args.String("task"))
			if err != nil {
				return nil, err
			}
			return nil, renderMarkdown(rt.Stdout(), md, opts.Styled)
		})
}

// HelpMarkdown builds the help text for the whole CLI, a scope, or a task.
func HelpMarkdown(r tasks.Registry, version, scopeOrTask, task string) (string, error) {
	switch {
	case scopeOrTask == "":
		return globalHelp(r, version), nil
	case tasks.IsScope(r, scopeOrTask) && task == "":
		return scopeHelp(r, scopeOrTask), nil
	case tasks.IsScope(r, scopeOrTask):
		def, ok := r.TaskDefinition(scopeOrTask, task)
		if !ok {
			return "", clierrors.New(clierrors.UnrecognizedScopedTask, map[string]any{"scope": scopeOrTask, "task": task})
		}
		return taskHelp(def), nil
	default:
		def, ok := r.TaskDefinition("", scopeOrTask)
		if !ok {
			return "", clierrors.New(clierrors.UnrecognizedTask, map[string]any{
				"task":       scopeOrTask,
				"suggestion": tasks.SuggestionSuffix(r, scopeOrTask),
			})
		}
		return taskHelp(def), nil
	}
}

func globalHelp(r tasks.Registry, version string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# hatch version %s\n\n", version)
	b.WriteString("Usage: `hatch [GLOBAL OPTIONS] [SCOPE] <TASK> [TASK OPTIONS]`\n\n")

	b.WriteString("## Global options\n\n")
	for _, p := range arguments.GlobalParams {
		name := arguments.CLIName(p.Name)
		if !p.IsFlag {
			name += " <" + strings.ToUpper(p.Type.Name) + ">"
		}
		fmt.Fprintf(&b, "- `%s` %s\n", name, p.Description)
	}

	b.WriteString("\n## Available tasks\n\n")
	writeTaskList(&b, r.TaskDefinitions())

	scopes := r.ScopeDefinitions()
	if len(scopes) > 0 {
		b.WriteString("\n## Available task scopes\n\n")
		for _, name := range sortedKeys(scopes) {
			fmt.Fprintf(&b, "- `%s` %s\n", name, scopes[name].Description)
		}
	}

	b.WriteString("\nTo get help for a specific task run: `hatch help [SCOPE] <TASK>`\n")
	return b.String()
}

func scopeHelp(r tasks.Registry, scope string) string {
	sd := r.ScopeDefinitions()[scope]
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", scope)
	if sd.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", sd.Description)
	}
	fmt.Fprintf(&b, "Usage: `hatch [GLOBAL OPTIONS] %s <TASK> [TASK OPTIONS]`\n\n", scope)
	b.WriteString("## Available tasks\n\n")
	writeTaskList(&b, sd.Tasks)
	fmt.Fprintf(&b, "\nTo get help for a specific task run: `hatch help %s <TASK>`\n", scope)
	return b.String()
}

func taskHelp(def *tasks.TaskDefinition) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# hatch %s\n\n", def.TaskName())
	if def.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", def.Description)
	}

	usage := []string{"hatch [GLOBAL OPTIONS]", def.TaskName()}
	for _, p := range def.Params {
		u := arguments.CLIName(p.Name)
		if !p.IsFlag {
			u += " <" + strings.ToUpper(p.Type.Name) + ">"
		}
		if p.IsOptional {
			u = "[" + u + "]"
		}
		usage = append(usage, u)
	}
	for _, p := range def.Positional {
		u := p.Name
		if p.IsVariadic {
			u += "..."
		}
		if p.IsOptional {
			u = "[" + u + "]"
		} else {
			u = "<" + u + ">"
		}
		usage = append(usage, u)
	}
	fmt.Fprintf(&b, "Usage: `%s`\n", strings.Join(usage, " "))

	if len(def.Params) > 0 {
		b.WriteString("\n## Options\n\n")
		for _, p := range def.Params {
			fmt.Fprintf(&b, "- `%s` %s%s\n", arguments.CLIName(p.Name), p.Description, defaultNote(p))
		}
	}
	if len(def.Positional) > 0 {
		b.WriteString("\n## Positional arguments\n\n")
		for _, p := range def.Positional {
			fmt.Fprintf(&b, "- `%s` %s%s\n", p.Name, p.Description, defaultNote(p))
		}
	}
	if def.IsSubtask {
		b.WriteString("\nThis is a subtask; it can only be run from other tasks.\n")
	}
	return b.String()
}

func writeTaskList(b *strings.Builder, defs map[string]*tasks.TaskDefinition) {
	for _, name := range sortedKeys(defs) {
		def := defs[name]
		if def.IsSubtask {
			continue
		}
		fmt.Fprintf(b, "- `%s` %s\n", name, def.Description)
	}
}

func defaultNote(p *arguments.ParamDefinition) string {
	if !p.IsOptional || p.IsFlag || p.Default == nil {
		return ""
	}
	return fmt.Sprintf(" (default: %v)", p.Default)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func renderMarkdown(w io.Writer, md string, styled bool) error {
	style := "notty"
	if styled {
		style = "dark"
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(helpWordWrap),
	)
	if err != nil {
		return fmt.Errorf("failed to create help renderer: %w", err)
	}
	out, err := renderer.Render(md)
	if err != nil {
		return fmt.Errorf("failed to render help: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}
