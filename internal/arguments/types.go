package arguments

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"hatch/internal/clierrors"
)

// ArgumentType converts a raw command-line or environment string into a
// typed value.
type ArgumentType struct {
	Name  string
	parse func(argName, raw string) (any, error)
}

// Parse converts raw for the argument argName.
func (t ArgumentType) Parse(argName, raw string) (any, error) {
	return t.parse(argName, raw)
}

func (t ArgumentType) String() string {
	return t.Name
}

func invalidValue(argName, raw, typeName string) error {
	return clierrors.New(clierrors.InvalidValueForType, map[string]any{
		"value": raw,
		"name":  argName,
		"type":  typeName,
	})
}

// Built-in argument types.
var (
	String = ArgumentType{
		Name: "string",
		parse: func(_ string, raw string) (any, error) {
			return raw, nil
		},
	}

	Boolean = ArgumentType{
		Name: "boolean",
		parse: func(argName, raw string) (any, error) {
			switch strings.ToLower(raw) {
			case "true":
				return true, nil
			case "false":
				return false, nil
			}
			return nil, invalidValue(argName, raw, "boolean")
		},
	}

	Int = ArgumentType{
		Name: "int",
		parse: func(argName, raw string) (any, error) {
			v, err := strconv.Atoi(raw)
			if err != nil {
				return nil, invalidValue(argName, raw, "int")
			}
			return v, nil
		},
	}

	Float = ArgumentType{
		Name: "float",
		parse: func(argName, raw string) (any, error) {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, invalidValue(argName, raw, "float")
			}
			return v, nil
		},
	}

	// InputFile accepts a path to an existing, readable regular file.
	InputFile = ArgumentType{
		Name: "inputFile",
		parse: func(argName, raw string) (any, error) {
			info, err := os.Stat(raw)
			if err != nil {
				return nil, clierrors.Wrap(clierrors.InvalidInputFile, map[string]any{
					"file": raw, "name": argName, "reason": "file not found",
				}, err)
			}
			if info.IsDir() {
				return nil, clierrors.New(clierrors.InvalidInputFile, map[string]any{
					"file": raw, "name": argName, "reason": "it is a directory",
				})
			}
			f, err := os.Open(raw)
			if err != nil {
				return nil, clierrors.Wrap(clierrors.InvalidInputFile, map[string]any{
					"file": raw, "name": argName, "reason": "file is not readable",
				}, err)
			}
			_ = f.Close()
			return raw, nil
		},
	}

	JSON = ArgumentType{
		Name: "json",
		parse: func(argName, raw string) (any, error) {
			var v any
			if err := json.Unmarshal([]byte(raw), &v); err != nil {
				return nil, clierrors.Wrap(clierrors.InvalidValueForType, map[string]any{
					"value": raw, "name": argName, "type": "json",
				}, fmt.Errorf("decode json: %w", err))
			}
			return v, nil
		},
	}
)
