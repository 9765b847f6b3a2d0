package engine

import (
	"encoding/json"
	"fmt"
	"regexp"
)

var placeholderRe = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_.]*)\}`)

// RenderTemplate substitutes {input} and {dotted.path} placeholders in tpl
// with values from ctx. {input} expands to the full context serialized as
// JSON; other placeholders resolve via LookupPath. Unresolvable placeholders
// are left in place so the model sees what was asked for.
func RenderTemplate(tpl string, ctx map[string]any) string {
	return placeholderRe.ReplaceAllStringFunc(tpl, func(match string) string {
		key := match[1 : len(match)-1]
		if key == "input" {
			if b, err := json.Marshal(ctx); err == nil {
				return string(b)
			}
			return match
		}
		v := LookupPath(ctx, key)
		if v == nil {
			return match
		}
		return stringifyValue(v)
	})
}

func stringifyValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64, int, int64, bool:
		return fmt.Sprintf("%v", t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(b)
	}
}
