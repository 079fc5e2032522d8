package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vk/livespan/internal/ctxlog"
	"github.com/vk/livespan/internal/executor"
	"github.com/vk/livespan/internal/fragment"
	"github.com/vk/livespan/internal/scope"
	"github.com/vk/livespan/internal/scopeid"
	"github.com/vk/livespan/internal/span"
)

// DefaultDelay is the debounce window of Notify.
const DefaultDelay = 10 * time.Millisecond

// ErrSuperseded is returned for a pass that a newer pass of the same
// document replaced before it finished.
var ErrSuperseded = errors.New("pass superseded by a newer one")

// Evaluator evaluates one span. *executor.Executor implements it.
type Evaluator interface {
	Evaluate(ctx context.Context, s span.Span, ec executor.Context) fragment.Output
}

// Request asks for the spans of a document to be evaluated.
type Request struct {
	DocID string
	// Version is the document version the spans were located in.
	Version int
	Spans   span.List
	// Changes are the ranges edited since the previous request.
	Changes []span.Range
	Mode    fragment.Mode
}

// Pass is the result of one evaluation round over a document.
type Pass struct {
	DocID   string
	Gen     uint64
	Version int
	Mode    fragment.Mode
	Spans   span.List
	// Outputs are keyed by span index. Spans being edited have none.
	Outputs map[int]fragment.Output
	// Skipped is set when nothing relevant changed and Outputs were carried
	// over from the previous pass.
	Skipped bool
}

// Options configures a Scheduler.
type Options struct {
	// Delay is the debounce window. Zero means DefaultDelay.
	Delay time.Duration
	// OnPass receives every completed pass started through Notify.
	OnPass func(ctx context.Context, p *Pass)
}

// Scheduler runs evaluation passes per document.
type Scheduler struct {
	graph  scope.Graph
	eval   Evaluator
	delay  time.Duration
	onPass func(ctx context.Context, p *Pass)

	mu   sync.Mutex
	docs map[string]*document
}

// document is the scheduling state of one page. Fields other than run are
// guarded by Scheduler.mu.
type document struct {
	// run serializes passes of the document.
	run sync.Mutex

	gen     uint64
	cancel  context.CancelFunc
	timer   *time.Timer
	pending *Request
	last    *Pass
	// unsettled accumulates changed ranges since the last completed pass.
	unsettled []span.Range
}

// New creates a scheduler over the scope graph.
func New(g scope.Graph, eval Evaluator, opts Options) *Scheduler {
	if opts.Delay <= 0 {
		opts.Delay = DefaultDelay
	}
	return &Scheduler{
		graph:  g,
		eval:   eval,
		delay:  opts.Delay,
		onPass: opts.OnPass,
		docs:   make(map[string]*document),
	}
}

// docLocked returns the state of docID, creating it. Callers must hold s.mu.
func (s *Scheduler) docLocked(docID string) *document {
	d, ok := s.docs[docID]
	if !ok {
		d = &document{}
		s.docs[docID] = d
	}
	return d
}

// Notify schedules a debounced pass. Requests for the same document within
// the delay coalesce: the latest span list wins and changed ranges
// accumulate.
func (s *Scheduler) Notify(ctx context.Context, req Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.docLocked(req.DocID)
	if d.pending != nil {
		req.Changes = append(d.pending.Changes, req.Changes...)
	}
	d.pending = &req
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(s.delay, func() { s.fire(ctx, req.DocID) })
}

// fire runs the pending request of docID.
func (s *Scheduler) fire(ctx context.Context, docID string) {
	s.mu.Lock()
	d, ok := s.docs[docID]
	if !ok || d.pending == nil {
		s.mu.Unlock()
		return
	}
	req := *d.pending
	d.pending = nil
	d.timer = nil
	s.mu.Unlock()

	p, err := s.RunNow(ctx, req)
	if err != nil {
		if errors.Is(err, ErrSuperseded) || errors.Is(err, context.Canceled) {
			ctxlog.FromContext(ctx).Debug("Pass dropped.", ctxlog.DocKey, docID, "error", err)
			return
		}
		ctxlog.FromContext(ctx).Error("Pass failed.", ctxlog.DocKey, docID, "error", err)
		return
	}
	if s.onPass != nil {
		s.onPass(ctx, p)
	}
}

// RunNow runs a pass for req synchronously and returns it.
func (s *Scheduler) RunNow(ctx context.Context, req Request) (*Pass, error) {
	s.mu.Lock()
	d := s.docLocked(req.DocID)
	d.gen++
	gen := d.gen
	if d.cancel != nil {
		d.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.unsettled = append(d.unsettled, req.Changes...)
	s.mu.Unlock()
	defer cancel()

	d.run.Lock()
	defer d.run.Unlock()

	ctx, logger := ctxlog.ForDoc(ctx, req.DocID, "gen", gen)

	s.mu.Lock()
	if d.gen != gen {
		s.mu.Unlock()
		return nil, ErrSuperseded
	}
	last := d.last
	changes := append([]span.Range(nil), d.unsettled...)
	s.mu.Unlock()

	var (
		p   *Pass
		err error
	)
	if last != nil && last.Spans.Unchanged(req.Spans, changes) {
		logger.Debug("Spans unchanged, skipping pass.", "spans", len(req.Spans))
		p = &Pass{DocID: req.DocID, Gen: gen, Version: req.Version, Mode: req.Mode, Spans: req.Spans, Outputs: last.Outputs, Skipped: true}
	} else {
		p, err = s.recompute(ctx, req, gen)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if d.gen != gen {
		logger.Debug("Pass superseded.")
		return nil, ErrSuperseded
	}
	if err != nil {
		return nil, err
	}
	d.last = p
	d.unsettled = nil
	return p, nil
}

// recompute rebuilds the scope chain of the page and evaluates every span
// not being edited.
func (s *Scheduler) recompute(ctx context.Context, req Request, gen uint64) (*Pass, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Recomputing page.", "spans", len(req.Spans), "mode", req.Mode.String())

	root, ok := s.graph.Get(ctx, scopeid.Root(req.DocID))
	if !ok {
		var err error
		root, err = s.graph.Create(ctx, scopeid.Root(req.DocID))
		if err != nil {
			return nil, fmt.Errorf("failed to create page scope: %w", err)
		}
	}
	if err := s.graph.DisposeDescendants(ctx, root); err != nil {
		return nil, fmt.Errorf("failed to dispose page scopes: %w", err)
	}

	p := &Pass{
		DocID:   req.DocID,
		Gen:     gen,
		Version: req.Version,
		Mode:    req.Mode,
		Spans:   req.Spans,
		Outputs: make(map[int]fragment.Output, len(req.Spans)),
	}
	read := root
	for _, sp := range req.Spans {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		write, err := s.graph.Create(ctx, scopeid.Fragment(req.DocID, sp.Index))
		if err == nil {
			err = s.graph.AddChild(ctx, read, write)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to link scope for span %d: %w", sp.Index, err)
		}

		if sp.Editing {
			logger.Debug("Span is being edited, not evaluating.", ctxlog.SpanKey, sp.Index)
			read = write
			continue
		}

		ec := executor.Context{
			DocID: req.DocID,
			Index: sp.Index,
			Count: len(req.Spans),
			Read:  read,
			Write: write,
			Mode:  req.Mode,
		}
		out, err := s.evaluate(ctx, sp, ec)
		if err != nil {
			return nil, err
		}
		p.Outputs[sp.Index] = out
		read = write
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger.Debug("Page recomputed.", "outputs", len(p.Outputs))
	return p, nil
}

// evaluate runs one span to completion. The write scope of a block span is
// blocked while it runs, so readers outside this pass wait for its exports.
func (s *Scheduler) evaluate(ctx context.Context, sp span.Span, ec executor.Context) (fragment.Output, error) {
	if !sp.Kind.IsBlock() {
		return s.eval.Evaluate(ctx, sp, ec), nil
	}
	if err := s.graph.Block(ctx, ec.Write); err != nil {
		return fragment.Output{}, fmt.Errorf("failed to block scope for span %d: %w", sp.Index, err)
	}
	defer s.graph.Unblock(context.WithoutCancel(ctx), ec.Write)
	return s.eval.Evaluate(ctx, sp, ec), nil
}

// Last returns the last completed pass of docID.
func (s *Scheduler) Last(docID string) (*Pass, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[docID]
	if !ok || d.last == nil {
		return nil, false
	}
	return d.last, true
}

// Close cancels pending work for docID, disposes its page scope and forgets
// the document.
func (s *Scheduler) Close(ctx context.Context, docID string) error {
	s.mu.Lock()
	d, ok := s.docs[docID]
	if ok {
		if d.timer != nil {
			d.timer.Stop()
		}
		if d.cancel != nil {
			d.cancel()
		}
		d.pending = nil
		d.gen++
		delete(s.docs, docID)
	}
	s.mu.Unlock()

	if ok {
		d.run.Lock()
		defer d.run.Unlock()
	}

	root, found := s.graph.Get(ctx, scopeid.Root(docID))
	if !found {
		return nil
	}
	if err := s.graph.Dispose(ctx, root); err != nil && !errors.Is(err, scope.ErrStale) {
		return fmt.Errorf("failed to dispose page %s: %w", docID, err)
	}
	ctxlog.FromContext(ctx).Debug("Document closed.", ctxlog.DocKey, docID)
	return nil
}
