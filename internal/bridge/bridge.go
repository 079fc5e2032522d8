// Package bridge connects the engine to a host editor over socket.io.
//
// The editor host emits "doc:update" with a snapshot and "doc:close" with a
// document id. The bridge answers every completed pass with
// "doc:decorations".
package bridge

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"github.com/vk/livespan/internal/ctxlog"
	"github.com/vk/livespan/internal/editor"
	"github.com/vk/livespan/internal/engine"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// Event names.
const (
	EventUpdate      = "doc:update"
	EventClose       = "doc:close"
	EventDecorations = "doc:decorations"
)

var _ engine.Sink = (*Bridge)(nil)

// ErrNotConnected is returned by Publish before Run connected.
var ErrNotConnected = errors.New("bridge is not connected")

// Handler receives document events.
type Handler interface {
	Update(ctx context.Context, snap editor.Snapshot) error
	Close(ctx context.Context, docID string) error
}

// Options configures the connection.
type Options struct {
	URL                string
	Namespace          string
	InsecureSkipVerify bool
}

// Bridge is a socket.io client for one editor host.
type Bridge struct {
	opts Options

	mu sync.Mutex
	io *socket.Socket
}

// New creates an unconnected bridge.
func New(opts Options) *Bridge {
	if opts.Namespace == "" {
		opts.Namespace = "/"
	}
	return &Bridge{opts: opts}
}

// Run connects to the host and dispatches its events to h until ctx is done
// or the connection fails.
func (b *Bridge) Run(ctx context.Context, h Handler) error {
	logger := ctxlog.FromContext(ctx).With("url", b.opts.URL, "namespace", b.opts.Namespace)
	ctx = ctxlog.WithLogger(ctx, logger)

	parsedURL, err := url.Parse(b.opts.URL)
	if err != nil {
		return fmt.Errorf("failed to parse URL: %w", err)
	}
	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	opts := socket.DefaultOptions()
	if parsedURL.Path != "" {
		opts.SetPath(parsedURL.Path)
	}
	if b.opts.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(b.opts.Namespace, opts)
	b.mu.Lock()
	b.io = io
	b.mu.Unlock()
	defer func() {
		logger.Debug("Disconnecting socket client")
		b.mu.Lock()
		b.io = nil
		b.mu.Unlock()
		io.Disconnect()
	}()

	failed := make(chan error, 1)
	io.On(types.EventName("connect"), func(...any) {
		logger.Info("🔌 Connected to editor host", "sid", io.Id())
	})
	io.On(types.EventName("connect_error"), func(errs ...any) {
		err := fmt.Errorf("connect error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		select {
		case failed <- err:
		default:
		}
	})
	io.On(types.EventName(EventUpdate), func(data ...any) {
		if err := b.dispatchUpdate(ctx, h, data...); err != nil {
			logger.Error("Failed to handle document update", "error", err)
		}
	})
	io.On(types.EventName(EventClose), func(data ...any) {
		if err := b.dispatchClose(ctx, h, data...); err != nil {
			logger.Error("Failed to close document", "error", err)
		}
	})

	io.Connect()

	select {
	case <-ctx.Done():
		return nil
	case err := <-failed:
		return fmt.Errorf("failed to connect to %s: %w", b.opts.URL, err)
	}
}

// Publish implements engine.Sink.
func (b *Bridge) Publish(ctx context.Context, u engine.Update) error {
	b.mu.Lock()
	io := b.io
	b.mu.Unlock()
	if io == nil || !io.Connected() {
		return ErrNotConnected
	}
	ctxlog.FromContext(ctx).Debug("Publishing decorations", "doc", u.DocID, "version", u.Version, "count", len(u.Items))
	return io.Emit(EventDecorations, u)
}

func (b *Bridge) dispatchUpdate(ctx context.Context, h Handler, data ...any) error {
	// A payload without a cursor means the document has no focus.
	snap := editor.Snapshot{Cursor: -1}
	if err := decode(data, &snap); err != nil {
		return fmt.Errorf("invalid %s payload: %w", EventUpdate, err)
	}
	if snap.DocID == "" {
		return fmt.Errorf("invalid %s payload: missing doc", EventUpdate)
	}
	return h.Update(ctx, snap)
}

func (b *Bridge) dispatchClose(ctx context.Context, h Handler, data ...any) error {
	var msg struct {
		DocID string `json:"doc"`
	}
	if err := decode(data, &msg); err != nil {
		return fmt.Errorf("invalid %s payload: %w", EventClose, err)
	}
	if msg.DocID == "" {
		return fmt.Errorf("invalid %s payload: missing doc", EventClose)
	}
	return h.Close(ctx, msg.DocID)
}

// decode converts the first event argument into v. Arguments arrive as
// decoded JSON, so they are re-encoded and decoded into the target type.
func decode(data []any, v any) error {
	if len(data) == 0 {
		return errors.New("empty payload")
	}
	raw, err := json.Marshal(data[0])
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}
