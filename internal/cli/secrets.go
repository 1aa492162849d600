package cli

import (
	"context"
	"fmt"

	"hatch/internal/clierrors"
	"hatch/internal/logging"
	"hatch/internal/secrets"
)

// Secrets actions.
const (
	SecretsSet    = "set"
	SecretsGet    = "get"
	SecretsList   = "list"
	SecretsDelete = "delete"
)

// runSecrets handles "hatch secrets <action> [key]". tail starts with the
// secrets token itself.
func (inv *invocation) runSecrets(ctx context.Context, tail []string) error {
	action := tail[1]
	key := ""
	if len(tail) > 2 {
		key = tail[2]
	}
	logging.SecretsDebug("secrets %s %q", action, key)

	switch action {
	case SecretsSet, SecretsGet, SecretsDelete:
		if key == "" {
			return clierrors.New(clierrors.InvalidArgumentValue, map[string]any{
				"argument": "key",
				"reason":   fmt.Sprintf("the %s action requires a key", action),
			})
		}
	case SecretsList:
	default:
		return clierrors.New(clierrors.InvalidArgumentValue, map[string]any{
			"argument": "action",
			"reason":   fmt.Sprintf("unknown action %q, expected one of set, get, list or delete", action),
		})
	}

	if inv.d.deps.State == nil {
		return clierrors.New(clierrors.AssertionFailed, map[string]any{"message": "no user state directory configured"})
	}
	manager := secrets.NewManager(inv.d.deps.State.SecretsPath())
	out := inv.d.deps.Stdout
	advise := func(msg string) {
		fmt.Fprintln(out, inv.d.styles.Advisory.Render(msg))
	}

	switch action {
	case SecretsSet:
		if !secrets.ValidKey(key) {
			return clierrors.New(clierrors.InvalidArgumentValue, map[string]any{
				"argument": "key",
				"reason":   fmt.Sprintf("%q must start with a letter or underscore and contain only letters, digits and underscores", key),
			})
		}
		if inv.d.deps.Prompter == nil {
			return clierrors.New(clierrors.NotInInteractiveShell, nil)
		}
		value, err := inv.d.deps.Prompter.SecretValue(ctx, key)
		if err != nil {
			return err
		}
		if value == "" {
			return clierrors.New(clierrors.InvalidArgumentValue, map[string]any{
				"argument": "secret",
				"reason":   "the value cannot be empty",
			})
		}
		if err := manager.Set(key, value); err != nil {
			return err
		}
		fmt.Fprintf(out, "Secret %s stored\n", key)

	case SecretsGet:
		value, ok, err := manager.Get(key)
		if err != nil {
			return err
		}
		if !ok {
			advise(fmt.Sprintf("There is no secret named %s", key))
			return nil
		}
		fmt.Fprintln(out, value)

	case SecretsList:
		keys, err := manager.List()
		if err != nil {
			return err
		}
		if len(keys) == 0 {
			advise("There are no secrets stored")
			return nil
		}
		for _, k := range keys {
			fmt.Fprintln(out, k)
		}

	case SecretsDelete:
		deleted, err := manager.Delete(key)
		if err != nil {
			return err
		}
		if !deleted {
			advise(fmt.Sprintf("There is no secret named %s", key))
			return nil
		}
		fmt.Fprintf(out, "Secret %s deleted\n", key)
	}
	return nil
}
