package arguments

import (
	"strings"

	"hatch/internal/clierrors"
)

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// EnvArguments reads the HATCH_* variable of every definition. Values are
// parsed with the parameter's type; a malformed value is an error rather
// than being ignored.
func EnvArguments(defs []*ParamDefinition, lookup LookupFunc) (map[string]any, error) {
	out := make(map[string]any)
	for _, d := range defs {
		key := EnvVarName(d.Name)
		raw, ok := lookup(key)
		if !ok {
			continue
		}
		v, err := d.Type.Parse(d.Name, raw)
		if err != nil {
			return nil, clierrors.Wrap(clierrors.InvalidEnvVarValue, map[string]any{
				"variable": key,
				"value":    raw,
			}, err)
		}
		out[d.Name] = v
	}
	return out, nil
}

// LookupFromEnviron builds a LookupFunc over a KEY=VALUE slice.
func LookupFromEnviron(environ []string) LookupFunc {
	m := make(map[string]string, len(environ))
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok {
			m[k] = v
		}
	}
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}
