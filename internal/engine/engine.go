package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vk/livespan/internal/ctxlog"
	"github.com/vk/livespan/internal/editor"
	"github.com/vk/livespan/internal/executor"
	"github.com/vk/livespan/internal/fragment"
	"github.com/vk/livespan/internal/locator"
	"github.com/vk/livespan/internal/reconciler"
	"github.com/vk/livespan/internal/render"
	"github.com/vk/livespan/internal/scheduler"
	"github.com/vk/livespan/internal/scope"
	"github.com/yuin/goldmark"
)

// Item is one published decoration.
type Item struct {
	From  int    `json:"from"`
	To    int    `json:"to"`
	Key   string `json:"key"`
	Index int    `json:"index"`
	Kind  string `json:"kind"`
	HTML  string `json:"html"`
}

// Update is the set of decorations of one document version.
type Update struct {
	DocID   string `json:"doc"`
	Version int    `json:"version"`
	Skipped bool   `json:"skipped"`
	Items   []Item `json:"decorations"`
	// Reused and Rebuilt count widgets kept and rendered by this update.
	Reused  int `json:"reused"`
	Rebuilt int `json:"rebuilt"`
}

// Sink receives the decorations of live documents.
type Sink interface {
	Publish(ctx context.Context, u Update) error
}

// Options configures an Engine.
type Options struct {
	Graph      scope.Graph
	Components executor.Components
	Compilers  []fragment.Compiler
	Syntax     locator.Syntax
	// Delay is the debounce window of live updates.
	Delay time.Duration
	Sink  Sink
}

// Engine evaluates documents in live and preview mode.
type Engine struct {
	syntax locator.Syntax
	live   *locator.Live
	sched  *scheduler.Scheduler
	table  *render.Table
	recon  *reconciler.Reconciler
	md     goldmark.Markdown
	sink   Sink

	mu        sync.Mutex
	snapshots map[string]editor.Snapshot
}

// New creates an engine.
func New(opts Options) *Engine {
	e := &Engine{
		syntax:    opts.Syntax,
		live:      locator.NewLive(opts.Syntax),
		table:     render.NewTable(),
		md:        goldmark.New(),
		sink:      opts.Sink,
		snapshots: make(map[string]editor.Snapshot),
	}
	e.recon = reconciler.New(e.table)
	exec := executor.New(opts.Graph, opts.Components, opts.Compilers...)
	e.sched = scheduler.New(opts.Graph, exec, scheduler.Options{
		Delay:  opts.Delay,
		OnPass: e.publish,
	})
	return e
}

// Update locates the spans of snap and schedules a pass.
func (e *Engine) Update(ctx context.Context, snap editor.Snapshot) error {
	spans, err := e.live.Locate(ctx, snap)
	if err != nil {
		return fmt.Errorf("failed to locate spans in %s: %w", snap.DocID, err)
	}

	e.mu.Lock()
	e.snapshots[snap.DocID] = snap
	e.mu.Unlock()

	e.sched.Notify(ctx, scheduler.Request{
		DocID:   snap.DocID,
		Version: snap.Version,
		Spans:   spans,
		Changes: snap.Changes,
		Mode:    fragment.ModeLive,
	})
	return nil
}

// publish reconciles a completed live pass and sends it to the sink.
func (e *Engine) publish(ctx context.Context, p *scheduler.Pass) {
	ctx, logger := ctxlog.ForDoc(ctx, p.DocID, "version", p.Version)

	e.mu.Lock()
	snap, ok := e.snapshots[p.DocID]
	e.mu.Unlock()
	if !ok || snap.Version != p.Version {
		logger.Debug("Dropping pass for an outdated version.")
		return
	}

	u, err := e.reconcile(ctx, p, len(snap.Source))
	if err != nil {
		logger.Error("Failed to apply decorations.", "error", err)
		return
	}
	if e.sink == nil {
		return
	}
	if err := e.sink.Publish(ctx, u); err != nil {
		logger.Error("Failed to publish decorations.", "error", err)
	}
}

func (e *Engine) reconcile(ctx context.Context, p *scheduler.Pass, docLen int) (Update, error) {
	decos := reconciler.Decorations(p, docLen)
	stats, err := e.recon.Apply(ctx, p.DocID, decos)
	if err != nil {
		return Update{}, err
	}

	u := Update{
		DocID:   p.DocID,
		Version: p.Version,
		Skipped: p.Skipped,
		Items:   make([]Item, 0, len(decos)),
		Reused:  stats.Reused,
		Rebuilt: stats.Rebuilt,
	}
	for _, d := range decos {
		m, ok := e.table.Get(d.Widget.Target.Key)
		if !ok {
			continue
		}
		u.Items = append(u.Items, Item{
			From:  d.Range.From,
			To:    d.Range.To,
			Key:   d.Widget.Target.Key,
			Index: d.Widget.Target.Index,
			Kind:  d.Widget.Target.Kind.String(),
			HTML:  m.HTML,
		})
	}
	return u, nil
}

// Close forgets docID and disposes its scopes.
func (e *Engine) Close(ctx context.Context, docID string) error {
	e.mu.Lock()
	delete(e.snapshots, docID)
	e.mu.Unlock()

	if err := e.sched.Close(ctx, docID); err != nil {
		return err
	}
	return e.recon.Forget(ctx, docID)
}
