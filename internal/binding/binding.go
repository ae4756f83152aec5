// Package binding fills ${key} placeholders in text templates such as
// OpenAPI documents before they are parsed.
package binding

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	openDelim  = "${"
	closeDelim = "}"
)

// Bind replaces every ${key} in template with the matching value from params
// in a single left-to-right pass. Dotted keys address nested maps, so ${a.b}
// reads params["a"]["b"]; a literal dotted key wins over the nested lookup.
// Placeholders without a value are left as they are, and substituted text is
// never scanned again.
func Bind(template string, params map[string]any) string {
	if len(params) == 0 || !strings.Contains(template, openDelim) {
		return template
	}

	var b strings.Builder
	b.Grow(len(template))

	rest := template
	for {
		start := strings.Index(rest, openDelim)
		if start < 0 {
			b.WriteString(rest)
			break
		}
		end := strings.Index(rest[start+len(openDelim):], closeDelim)
		if end < 0 {
			b.WriteString(rest)
			break
		}
		end += start + len(openDelim)

		key := rest[start+len(openDelim) : end]
		b.WriteString(rest[:start])
		if val, ok := Lookup(params, key); ok {
			b.WriteString(format(val))
		} else {
			b.WriteString(rest[start : end+len(closeDelim)])
		}
		rest = rest[end+len(closeDelim):]
	}
	return b.String()
}

// BindJSON binds template and parses the result as a JSON object.
func BindJSON(template string, params map[string]any) (map[string]any, error) {
	var doc map[string]any
	if err := json.Unmarshal([]byte(Bind(template, params)), &doc); err != nil {
		return nil, fmt.Errorf("parse bound template: %w", err)
	}
	return doc, nil
}

// Placeholders lists the keys referenced by template in order of appearance.
func Placeholders(template string) []string {
	var keys []string
	rest := template
	for {
		start := strings.Index(rest, openDelim)
		if start < 0 {
			return keys
		}
		end := strings.Index(rest[start+len(openDelim):], closeDelim)
		if end < 0 {
			return keys
		}
		end += start + len(openDelim)
		keys = append(keys, rest[start+len(openDelim):end])
		rest = rest[end+len(closeDelim):]
	}
}

// Lookup resolves key in params, descending into nested maps on dots.
func Lookup(params map[string]any, key string) (any, bool) {
	if key == "" {
		return nil, false
	}
	if v, ok := params[key]; ok {
		return v, true
	}
	head, tail, found := strings.Cut(key, ".")
	if !found {
		return nil, false
	}
	switch nested := params[head].(type) {
	case map[string]any:
		return Lookup(nested, tail)
	case map[string]string:
		v, ok := nested[tail]
		return v, ok
	}
	return nil, false
}

func format(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprintf("%v", val)
	}
}
