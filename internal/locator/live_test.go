package locator

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/livespan/internal/editor"
	"github.com/vk/livespan/internal/span"
)

func locate(t *testing.T, src string, cursor int) span.List {
	t.Helper()
	l := NewLive(DefaultSyntax())
	spans, err := l.Locate(context.Background(), editor.Snapshot{DocID: "notes.md", Source: src, Cursor: cursor})
	require.NoError(t, err)
	return spans
}

func TestLocate_FindsAllKinds(t *testing.T) {
	src := strings.Join([]string{
		"# Title",
		"",
		"```hcl",
		"x = 1",
		"```",
		"",
		"Value is `hcl: x + 1` and `tpl: <b>${x}</b>`.",
		"",
		"```tpl:Card",
		"Hello",
		"```",
		"",
	}, "\n")

	spans := locate(t, src, -1)
	require.Len(t, spans, 4)

	assert.Equal(t, span.BlockStatement, spans[0].Kind)
	assert.Equal(t, "hcl", spans[0].Lang)
	assert.Equal(t, "x = 1\n", spans[0].Source)
	assert.Equal(t, "```hcl\nx = 1\n```", src[spans[0].Range.From:spans[0].Range.To])

	assert.Equal(t, span.InlineExpression, spans[1].Kind)
	assert.Equal(t, "x + 1", spans[1].Source)
	assert.Equal(t, "`hcl: x + 1`", src[spans[1].Range.From:spans[1].Range.To])

	assert.Equal(t, span.InlineComponent, spans[2].Kind)
	assert.Equal(t, "tpl", spans[2].Lang)
	assert.Equal(t, "<b>${x}</b>", spans[2].Source)

	assert.Equal(t, span.BlockComponent, spans[3].Kind)
	assert.Equal(t, "Card", spans[3].Shortcut)
	assert.Equal(t, "Hello\n", spans[3].Source)

	for i, s := range spans {
		assert.Equal(t, i, s.Index)
		assert.False(t, s.Editing)
	}
}

func TestLocate_IgnoresUnrecognizedContent(t *testing.T) {
	src := "Plain `code` here.\n\n```go\nfunc main() {}\n```\n\n```\nno tag\n```\n"
	assert.Empty(t, locate(t, src, -1))
}

func TestLocate_UnterminatedFenceYieldsNoSpan(t *testing.T) {
	testCases := []struct {
		name string
		src  string
	}{
		{"never closed", "```hcl\nx = 1\n"},
		{"never closed without newline", "```hcl\nx = 1"},
		{"only the opening fence", "```hcl"},
		{"closed with a shorter fence", "````hcl\nx = 1\n```\n"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Empty(t, locate(t, tc.src, -1))
		})
	}
}

func TestClosedFences(t *testing.T) {
	src := "```hcl\nx = 1\n```\n\n```\nno language\n```\n\n~~~go\nfunc main() {}\n~~~\n\n```starlark\ny = 2\n"
	closed := NewLive(DefaultSyntax()).ClosedFences([]byte(src))
	assert.Equal(t, []bool{true, true, false}, closed, "fences without a language are not listed")
}

func TestLocate_EmptyComponentBlock(t *testing.T) {
	spans := locate(t, "```tpl\n```\n", -1)
	require.Len(t, spans, 1)
	assert.Equal(t, span.BlockComponent, spans[0].Kind)
	assert.Empty(t, spans[0].Source)
}

func TestLocate_TildeFence(t *testing.T) {
	spans := locate(t, "~~~starlark\ny = 2\n~~~\n", -1)
	require.Len(t, spans, 1)
	assert.Equal(t, "starlark", spans[0].Lang)
	assert.Equal(t, "y = 2\n", spans[0].Source)
}

func TestLocate_CursorMarksEditing(t *testing.T) {
	src := "```hcl\nx = 1\n```\n\nSee `hcl: x`.\n"
	inBlock := strings.Index(src, "x = 1")
	inline := strings.Index(src, "hcl: x`")

	t.Run("inside the block", func(t *testing.T) {
		spans := locate(t, src, inBlock)
		require.Len(t, spans, 2)
		assert.True(t, spans[0].Editing)
		assert.False(t, spans[1].Editing)

		process := spans.ToProcess()
		require.Len(t, process, 1)
		assert.Equal(t, 1, process[0].Index, "later spans keep their position")
	})

	t.Run("inside the inline span", func(t *testing.T) {
		spans := locate(t, src, inline)
		require.Len(t, spans, 2)
		assert.False(t, spans[0].Editing)
		assert.True(t, spans[1].Editing)
	})

	t.Run("moved out again", func(t *testing.T) {
		spans := locate(t, src, len(src))
		require.Len(t, spans.ToProcess(), 2)
	})
}

func TestSyntax_Fence(t *testing.T) {
	s := DefaultSyntax()
	testCases := []struct {
		info     string
		ok       bool
		kind     span.Kind
		lang     string
		shortcut string
	}{
		{info: "hcl", ok: true, kind: span.BlockStatement, lang: "hcl"},
		{info: "py", ok: true, kind: span.BlockStatement, lang: "starlark"},
		{info: "tpl", ok: true, kind: span.BlockComponent, lang: "tpl"},
		{info: "tpl:Card", ok: true, kind: span.BlockComponent, lang: "tpl", shortcut: "Card"},
		{info: "tpl:Card title", ok: true, kind: span.BlockComponent, lang: "tpl", shortcut: "Card"},
		{info: "tpl:", ok: false},
		{info: "hcl:Card", ok: false},
		{info: "go", ok: false},
		{info: "", ok: false},
	}
	for _, tc := range testCases {
		t.Run(tc.info, func(t *testing.T) {
			kind, lang, shortcut, ok := s.Fence(tc.info)
			require.Equal(t, tc.ok, ok)
			if !ok {
				return
			}
			assert.Equal(t, tc.kind, kind)
			assert.Equal(t, tc.lang, lang)
			assert.Equal(t, tc.shortcut, shortcut)
		})
	}
}

func TestSyntax_MergeOverrides(t *testing.T) {
	s := DefaultSyntax().Merge(Syntax{Statements: map[string]string{"star": "starlark"}})
	_, lang, _, ok := s.Fence("star")
	require.True(t, ok)
	assert.Equal(t, "starlark", lang)

	_, _, _, ok = s.Fence("hcl")
	assert.True(t, ok, "defaults survive a merge")
}
