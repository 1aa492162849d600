package ux

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"hatch/internal/project"
)

// ErrPromptCancelled is returned when the user aborts a prompt.
var ErrPromptCancelled = errors.New("prompt cancelled")

// TermPrompter asks questions on a terminal.
type TermPrompter struct {
	In     io.Reader
	Out    io.Writer
	Styles Styles

	reader *bufio.Reader
}

// NewTermPrompter creates a prompter reading from in and writing to out.
func NewTermPrompter(in io.Reader, out io.Writer, styles Styles) *TermPrompter {
	return &TermPrompter{In: in, Out: out, Styles: styles}
}

// ConfirmTelemetry asks whether anonymous usage data may be sent.
func (p *TermPrompter) ConfirmTelemetry(ctx context.Context) (bool, error) {
	return p.confirm(ctx, "Help us improve hatch with anonymous crash reports & basic usage data?", true)
}

// ConfirmExtension offers the editor extension.
func (p *TermPrompter) ConfirmExtension(ctx context.Context) (bool, error) {
	fmt.Fprintln(p.Out, p.Styles.Info.Render("The hatch extension for VS Code adds task running and inline test results."))
	return p.confirm(ctx, "Would you like to install it?", false)
}

// ChooseProjectVariant asks which kind of project to create.
func (p *TermPrompter) ChooseProjectVariant(ctx context.Context) (project.Variant, error) {
	ts, err := p.confirm(ctx, "Create a TypeScript project?", false)
	if err != nil {
		return project.VariantPlain, err
	}
	if ts {
		return project.VariantTypeScript, nil
	}
	return project.VariantPlain, nil
}

// SecretValue reads a secret without echoing it.
func (p *TermPrompter) SecretValue(ctx context.Context, key string) (string, error) {
	m := newSecretModel(p.Styles.Prompt.Render(fmt.Sprintf("Enter secret for %s: ", key)))
	prog := tea.NewProgram(m, tea.WithContext(ctx), tea.WithInput(p.In), tea.WithOutput(p.Out))
	final, err := prog.Run()
	if err != nil {
		return "", fmt.Errorf("failed to read secret: %w", err)
	}
	sm := final.(secretModel)
	if sm.cancelled {
		return "", ErrPromptCancelled
	}
	return sm.value, nil
}

func (p *TermPrompter) confirm(ctx context.Context, question string, def bool) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if p.reader == nil {
		p.reader = bufio.NewReader(p.In)
	}
	hint := "(y/N)"
	if def {
		hint = "(Y/n)"
	}
	fmt.Fprintf(p.Out, "%s %s ", p.Styles.Prompt.Render("?"), question+" "+p.Styles.Muted.Render(hint))

	input, err := readInput(p.reader)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return def, nil
		}
		return false, fmt.Errorf("failed to read input: %w", err)
	}
	switch strings.ToLower(input) {
	case "":
		return def, nil
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func readInput(reader *bufio.Reader) (string, error) {
	input, err := reader.ReadString('\n')
	if err != nil && (input == "" || !errors.Is(err, io.EOF)) {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

// secretModel is a single masked text input.
type secretModel struct {
	input     textinput.Model
	value     string
	done      bool
	cancelled bool
}

func newSecretModel(prompt string) secretModel {
	ti := textinput.New()
	ti.Prompt = prompt
	ti.EchoMode = textinput.EchoPassword
	ti.EchoCharacter = '•'
	ti.Focus()
	return secretModel{input: ti}
}

func (m secretModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m secretModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEnter:
			m.value = m.input.Value()
			m.done = true
			return m, tea.Quit
		case tea.KeyCtrlC, tea.KeyEsc:
			m.cancelled = true
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m secretModel) View() string {
	if m.done || m.cancelled {
		return ""
	}
	return m.input.View() + "\n"
}
