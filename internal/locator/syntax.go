package locator

import (
	"slices"
	"strings"

	"github.com/vk/livespan/internal/span"
)

// Syntax maps the markers found in a document to fragment kinds and
// languages.
type Syntax struct {
	// Expressions maps inline prefixes, e.g. "hcl:", to a language.
	Expressions map[string]string `json:"expressions"`
	// Components maps inline component prefixes to a language.
	Components map[string]string `json:"components"`
	// Statements maps fence tags of statement blocks to a language.
	Statements map[string]string `json:"statements"`
	// ComponentFences maps fence tags of component blocks to a language.
	// Only these tags accept a `tag:Name` shortcut.
	ComponentFences map[string]string `json:"component_fences"`
}

// DefaultSyntax returns the markers for the built-in languages.
func DefaultSyntax() Syntax {
	return Syntax{
		Expressions:     map[string]string{"hcl:": "hcl", "star:": "starlark"},
		Components:      map[string]string{"tpl:": "tpl"},
		Statements:      map[string]string{"hcl": "hcl", "starlark": "starlark", "py": "starlark"},
		ComponentFences: map[string]string{"tpl": "tpl"},
	}
}

// Merge returns s with the entries of o added or replaced.
func (s Syntax) Merge(o Syntax) Syntax {
	merge := func(a, b map[string]string) map[string]string {
		out := make(map[string]string, len(a)+len(b))
		for k, v := range a {
			out[k] = v
		}
		for k, v := range b {
			out[k] = v
		}
		return out
	}
	return Syntax{
		Expressions:     merge(s.Expressions, o.Expressions),
		Components:      merge(s.Components, o.Components),
		Statements:      merge(s.Statements, o.Statements),
		ComponentFences: merge(s.ComponentFences, o.ComponentFences),
	}
}

// Inline classifies the text of an inline code element.
func (s Syntax) Inline(text string) (kind span.Kind, lang, src string, ok bool) {
	if p, l, found := longestPrefix(s.Components, text); found {
		return span.InlineComponent, l, strings.TrimSpace(text[len(p):]), true
	}
	if p, l, found := longestPrefix(s.Expressions, text); found {
		return span.InlineExpression, l, strings.TrimSpace(text[len(p):]), true
	}
	return 0, "", "", false
}

// Fence classifies the info string of a fenced block. Only the first word
// counts, so "hcl title=x" is an hcl block.
func (s Syntax) Fence(info string) (kind span.Kind, lang, shortcut string, ok bool) {
	fields := strings.Fields(info)
	if len(fields) == 0 {
		return 0, "", "", false
	}
	tag, name, hasName := strings.Cut(fields[0], ":")
	if l, found := s.ComponentFences[tag]; found {
		if hasName && name == "" {
			return 0, "", "", false
		}
		return span.BlockComponent, l, name, true
	}
	if hasName {
		return 0, "", "", false
	}
	if l, found := s.Statements[tag]; found {
		return span.BlockStatement, l, "", true
	}
	return 0, "", "", false
}

func longestPrefix(m map[string]string, text string) (prefix, lang string, ok bool) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// Longest first so "hcl:" never shadows a configured "hclx:".
	slices.SortFunc(keys, func(a, b string) int {
		if len(a) != len(b) {
			return len(b) - len(a)
		}
		return strings.Compare(a, b)
	})
	for _, k := range keys {
		if k != "" && strings.HasPrefix(text, k) {
			return k, m[k], true
		}
	}
	return "", "", false
}
