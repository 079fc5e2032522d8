package locator

import (
	"bytes"
	"context"
	"strings"

	"github.com/vk/livespan/internal/ctxlog"
	"github.com/vk/livespan/internal/editor"
	"github.com/vk/livespan/internal/span"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Live locates spans in markdown source using the goldmark syntax tree.
type Live struct {
	Syntax Syntax
	md     goldmark.Markdown
}

// NewLive creates a locator for the given syntax table.
func NewLive(syntax Syntax) *Live {
	return &Live{Syntax: syntax, md: goldmark.New()}
}

// Locate returns the spans of the snapshot in document order.
func (l *Live) Locate(ctx context.Context, snap editor.Snapshot) (span.List, error) {
	logger := ctxlog.FromContext(ctx)
	src := []byte(snap.Source)
	doc := l.md.Parser().Parse(text.NewReader(src))

	var spans span.List
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.FencedCodeBlock:
			if s, ok := l.fenced(src, node); ok {
				spans = append(spans, s)
			}
			return ast.WalkSkipChildren, nil
		case *ast.CodeSpan:
			if s, ok := l.inline(src, node); ok {
				spans = append(spans, s)
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}

	for i := range spans {
		spans[i].Index = i
		spans[i].Editing = snap.HasCursor() && spans[i].Range.Contains(snap.Cursor)
	}
	logger.Debug("Spans located.", "doc", snap.DocID, "version", snap.Version, "count", len(spans))
	return spans, nil
}

func (l *Live) inline(src []byte, n *ast.CodeSpan) (span.Span, bool) {
	var buf bytes.Buffer
	from, to := -1, -1
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		t, ok := c.(*ast.Text)
		if !ok {
			continue
		}
		if from < 0 {
			from = t.Segment.Start
		}
		to = t.Segment.Stop
		buf.Write(t.Segment.Value(src))
	}
	if from < 0 {
		return span.Span{}, false
	}
	kind, lang, code, ok := l.Syntax.Inline(buf.String())
	if !ok || code == "" {
		return span.Span{}, false
	}

	// Widen to the backtick runs on both sides.
	for from > 0 && (src[from-1] == ' ' || src[from-1] == '\n') {
		from--
	}
	for from > 0 && src[from-1] == '`' {
		from--
	}
	for to < len(src) && (src[to] == ' ' || src[to] == '\n') {
		to++
	}
	for to < len(src) && src[to] == '`' {
		to++
	}
	return span.Span{
		Kind:   kind,
		Lang:   lang,
		Range:  span.Range{From: from, To: to},
		Source: code,
	}, true
}

func (l *Live) fenced(src []byte, n *ast.FencedCodeBlock) (span.Span, bool) {
	if n.Info == nil {
		return span.Span{}, false
	}
	kind, lang, shortcut, ok := l.Syntax.Fence(string(n.Info.Segment.Value(src)))
	if !ok {
		return span.Span{}, false
	}
	open, closeEnd, ok := fenceBounds(src, n)
	if !ok {
		return span.Span{}, false
	}

	var body strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		body.Write(seg.Value(src))
	}
	return span.Span{
		Kind:     kind,
		Lang:     lang,
		Range:    span.Range{From: open, To: closeEnd},
		Source:   body.String(),
		Shortcut: shortcut,
	}, true
}

// fenceBounds returns the start of the opening fence line of n and the end
// of its closing fence line. It fails when the fence is never closed.
func fenceBounds(src []byte, n *ast.FencedCodeBlock) (int, int, bool) {
	open := lineStart(src, n.Info.Segment.Start)
	fenceChar, fenceLen := fenceRun(src, open)
	if fenceLen < 3 {
		return 0, 0, false
	}

	bodyEnd := lineEnd(src, n.Info.Segment.Start) + 1
	lines := n.Lines()
	if lines.Len() > 0 {
		bodyEnd = lines.At(lines.Len() - 1).Stop
	}
	if bodyEnd > len(src) {
		return 0, 0, false
	}
	closeEnd, ok := closingFence(src, bodyEnd, fenceChar, fenceLen)
	if !ok {
		return 0, 0, false
	}
	return open, closeEnd, true
}

// ClosedFences reports, for every fenced code block of src that has a
// language in document order, whether its closing fence is present. These
// are the blocks a markdown renderer emits as <pre><code class="language-...">.
func (l *Live) ClosedFences(src []byte) []bool {
	doc := l.md.Parser().Parse(text.NewReader(src))
	var closed []bool
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fence, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}
		if fence.Info != nil && fence.Language(src) != nil {
			_, _, ok := fenceBounds(src, fence)
			closed = append(closed, ok)
		}
		return ast.WalkSkipChildren, nil
	})
	return closed
}

func lineStart(src []byte, pos int) int {
	i := bytes.LastIndexByte(src[:pos], '\n')
	return i + 1
}

func lineEnd(src []byte, pos int) int {
	i := bytes.IndexByte(src[pos:], '\n')
	if i < 0 {
		return len(src)
	}
	return pos + i
}

// fenceRun returns the fence character and run length of the line at start,
// after any container markers and indentation.
func fenceRun(src []byte, start int) (byte, int) {
	i := skipLinePrefix(src, start)
	if i >= len(src) || (src[i] != '`' && src[i] != '~') {
		return 0, 0
	}
	c := src[i]
	n := 0
	for i < len(src) && src[i] == c {
		i++
		n++
	}
	return c, n
}

// closingFence checks that the line at start closes a fence opened with
// fenceLen characters of fenceChar, and returns the end of that line.
func closingFence(src []byte, start int, fenceChar byte, fenceLen int) (int, bool) {
	if start >= len(src) {
		return 0, false
	}
	c, n := fenceRun(src, start)
	if c != fenceChar || n < fenceLen {
		return 0, false
	}
	end := lineEnd(src, start)
	rest := src[skipLinePrefix(src, start)+n : end]
	if len(bytes.TrimSpace(rest)) != 0 {
		return 0, false
	}
	return end, true
}

func skipLinePrefix(src []byte, i int) int {
	for i < len(src) && (src[i] == ' ' || src[i] == '\t' || src[i] == '>') {
		i++
	}
	return i
}
