// Package extract evaluates JSONPath rules against JSON documents, such as
// the JSON lines printed by a probe tool.
package extract

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/PaesslerAG/jsonpath"
)

// Result reports the outcome of one rule.
type Result struct {
	Name    string
	Success bool
	Message string
}

// Values holds the raw value found for each rule that succeeded.
type Values map[string]any

// Apply evaluates rules (name -> JSONPath) against body.
//
// Policy:
// - If body is not JSON -> every rule fails.
// - If a rule fails -> it's reported in Result; other rules still run.
// - Empty expressions are skipped silently (the field is not wanted).
func Apply(body []byte, rules map[string]string) (Values, []Result) {
	if len(rules) == 0 {
		return Values{}, []Result{}
	}

	keys := make([]string, 0, len(rules))
	for k := range rules {
		if strings.TrimSpace(rules[k]) != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		out := make([]Result, 0, len(keys))
		for _, name := range keys {
			out = append(out, Result{
				Name:    name,
				Message: fmt.Sprintf("extract %q: document is not valid JSON", name),
			})
		}
		return Values{}, out
	}

	values := Values{}
	results := make([]Result, 0, len(keys))
	for _, name := range keys {
		expr := strings.TrimSpace(rules[name])

		val, err := jsonpath.Get(expr, doc)
		if err != nil {
			results = append(results, Result{
				Name:    name,
				Message: fmt.Sprintf("extract %q (%s): jsonpath error: %v", name, expr, err),
			})
			continue
		}
		if isEmptyValue(val) {
			results = append(results, Result{
				Name:    name,
				Message: fmt.Sprintf("extract %q (%s): no value found", name, expr),
			})
			continue
		}

		values[name] = val
		results = append(results, Result{Name: name, Success: true, Message: fmt.Sprintf("extracted %q", name)})
	}
	return values, results
}

// String returns the value for name as a string, or "".
func (v Values) String(name string) string {
	raw, ok := v[name]
	if !ok {
		return ""
	}
	s, err := toString(raw)
	if err != nil {
		return ""
	}
	return s
}

// Int returns the value for name as an int, or 0.
func (v Values) Int(name string) int {
	raw, ok := v[name]
	if !ok {
		return 0
	}
	if arr, ok := raw.([]any); ok && len(arr) == 1 {
		raw = arr[0]
	}
	switch t := raw.(type) {
	case float64:
		return int(t)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0
		}
		return n
	}
	return 0
}

// Strings returns the value for name as a list of strings.
func (v Values) Strings(name string) []string {
	raw, ok := v[name]
	if !ok {
		return nil
	}
	arr, ok := raw.([]any)
	if !ok {
		s, err := toString(raw)
		if err != nil || s == "" {
			return nil
		}
		return []string{s}
	}
	out := make([]string, 0, len(arr))
	for _, el := range arr {
		if s, err := toString(el); err == nil && s != "" {
			out = append(out, s)
		}
	}
	return out
}

func isEmptyValue(v any) bool {
	if v == nil {
		return true
	}
	switch t := v.(type) {
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	default:
		return false
	}
}

func toString(v any) (string, error) {
	// Common case: jsonpath returns a slice with 1 element
	if arr, ok := v.([]any); ok {
		if len(arr) == 0 {
			return "", fmt.Errorf("empty array")
		}
		if len(arr) == 1 {
			return toString(arr[0])
		}
		b, err := json.Marshal(arr)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	switch t := v.(type) {
	case string:
		return t, nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(t), nil
	case map[string]any:
		b, err := json.Marshal(t)
		if err != nil {
			return "", err
		}
		return string(b), nil
	default:
		return fmt.Sprint(t), nil
	}
}
