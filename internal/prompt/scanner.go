package prompt

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/waynewangyuxuan/graphex-aicore/internal/domain"
)

// render expands a body template against ctx, per the two substitution
// rules: {{path}} value interpolation and a single, non-nested
// {{#if path}}BODY{{/if}} conditional. A hand-written scanner is used
// instead of text/template: the grammar is intentionally this small, and
// text/template's dot-path/whitespace semantics don't match the
// truthiness and dot-path-into-map rules this templating needs.
func render(tmpl string, ctx domain.PromptContext) (string, error) {
	var out strings.Builder
	i := 0
	for i < len(tmpl) {
		open := strings.Index(tmpl[i:], "{{")
		if open == -1 {
			out.WriteString(tmpl[i:])
			break
		}
		out.WriteString(tmpl[i : i+open])
		i += open

		close := strings.Index(tmpl[i:], "}}")
		if close == -1 {
			return "", fmt.Errorf("prompt: unterminated {{ in template at offset %d", i)
		}
		tag := strings.TrimSpace(tmpl[i+2 : i+close])
		i += close + 2

		if strings.HasPrefix(tag, "#if ") {
			path := strings.TrimSpace(tag[len("#if "):])
			endTag := "{{/if}}"
			end := strings.Index(tmpl[i:], endTag)
			if end == -1 {
				return "", fmt.Errorf("prompt: unterminated {{#if %s}} block", path)
			}
			body := tmpl[i : i+end]
			i += end + len(endTag)

			if truthy(lookup(ctx, path)) {
				rendered, err := render(body, ctx)
				if err != nil {
					return "", err
				}
				out.WriteString(rendered)
			}
			continue
		}

		val := lookup(ctx, tag)
		s, err := stringify(val)
		if err != nil {
			return "", fmt.Errorf("prompt: substituting %q: %w", tag, err)
		}
		out.WriteString(s)
	}
	return out.String(), nil
}

// lookup resolves a dot-path ("nodeA.title") against ctx, returning nil if
// any segment is missing or not a map.
func lookup(ctx domain.PromptContext, path string) any {
	segments := strings.Split(path, ".")
	var cur any = map[string]any(ctx)
	for _, seg := range segments {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := m[seg]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	case int:
		return t != 0
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}

func stringify(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case bool:
		return strconv.FormatBool(t), nil
	case int:
		return strconv.Itoa(t), nil
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64), nil
	default:
		b, err := json.MarshalIndent(t, "", "  ")
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}
