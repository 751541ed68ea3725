package template

import (
	"fmt"
	"strings"

	"github.com/1ikeadragon/subconverge/internal/domain"
)

// RenderString replaces {{VAR}} placeholders with vars values.
// It returns an error if a variable is missing or a placeholder is malformed.
func RenderString(input string, vars map[string]string) (string, error) {
	if input == "" {
		return "", nil
	}

	var out strings.Builder
	rest := input
	for {
		start := strings.Index(rest, "{{")
		if start == -1 {
			out.WriteString(rest)
			return out.String(), nil
		}

		out.WriteString(rest[:start])
		rest = rest[start+2:]

		end := strings.Index(rest, "}}")
		if end == -1 {
			return "", &domain.OpError{
				Op:   "template.render",
				Kind: domain.KindInvalidConfig,
				Path: input,
				Err:  fmt.Errorf("unclosed template expression"),
			}
		}

		key := strings.TrimSpace(rest[:end])
		if key == "" {
			return "", &domain.OpError{
				Op:   "template.render",
				Kind: domain.KindInvalidConfig,
				Path: input,
				Err:  fmt.Errorf("empty template expression"),
			}
		}

		value, ok := vars[key]
		if !ok {
			return "", &domain.OpError{
				Op:   "template.render",
				Kind: domain.KindInvalidConfig,
				Path: input,
				Err:  fmt.Errorf("missing variable %q", key),
			}
		}

		out.WriteString(value)
		rest = rest[end+2:]
	}
}

// RenderArgs renders every element of an argv. Each element stays a single
// argument, so substituted values are never re-split by a shell.
func RenderArgs(args []string, vars map[string]string) ([]string, error) {
	out := make([]string, 0, len(args))
	for _, a := range args {
		r, err := RenderString(a, vars)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// References reports whether any element of args uses the {{key}} placeholder.
func References(args []string, key string) bool {
	for _, a := range args {
		rest := a
		for {
			start := strings.Index(rest, "{{")
			if start == -1 {
				break
			}
			rest = rest[start+2:]
			end := strings.Index(rest, "}}")
			if end == -1 {
				break
			}
			if strings.TrimSpace(rest[:end]) == key {
				return true
			}
			rest = rest[end+2:]
		}
	}
	return false
}
