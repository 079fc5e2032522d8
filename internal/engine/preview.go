package engine

import (
	"bytes"
	"context"
	"fmt"

	"github.com/vk/livespan/internal/ctxlog"
	"github.com/vk/livespan/internal/fragment"
	"github.com/vk/livespan/internal/preview"
	"github.com/vk/livespan/internal/reconciler"
	"github.com/vk/livespan/internal/scheduler"
	"github.com/vk/livespan/internal/span"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// RenderMarkdown renders src to HTML with every fragment replaced by its
// output.
func (e *Engine) RenderMarkdown(ctx context.Context, docID string, src []byte) (string, error) {
	ctx, logger := ctxlog.ForDoc(ctx, docID)

	var rendered bytes.Buffer
	if err := e.md.Convert(src, &rendered); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	doc, err := html.Parse(&rendered)
	if err != nil {
		return "", fmt.Errorf("failed to parse rendered markdown: %w", err)
	}
	body := findBody(doc)
	if body == nil {
		return "", fmt.Errorf("rendered markdown has no body")
	}

	// The tree is new, so nothing of a previous rendering is mounted in it.
	if err := e.recon.Forget(ctx, docID); err != nil {
		return "", err
	}

	surface := preview.NewTreeSurface()
	surface.Show(docID, body)
	proc := preview.NewProcessor(e.syntax, surface, func(ctx context.Context, docID string, spans span.List) error {
		p, err := e.sched.RunNow(ctx, scheduler.Request{DocID: docID, Spans: spans, Mode: fragment.ModePreview})
		if err != nil {
			return err
		}
		_, err = e.recon.Apply(ctx, docID, reconciler.Decorations(p, len(src)))
		return err
	})
	proc.ExcludeUnclosed(docID, body, e.live.ClosedFences(src))
	for block := body.FirstChild; block != nil; block = block.NextSibling {
		proc.Process(ctx, docID, block)
	}
	if err := proc.Flush(ctx, docID); err != nil {
		return "", err
	}

	var out bytes.Buffer
	for n := body.FirstChild; n != nil; n = n.NextSibling {
		if err := html.Render(&out, n); err != nil {
			return "", fmt.Errorf("failed to render preview: %w", err)
		}
	}
	logger.Debug("Preview rendered.", "bytes", out.Len())
	return out.String(), nil
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.Body {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
