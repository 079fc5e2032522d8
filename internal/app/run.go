package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/vk/livespan/internal/ctxlog"
)

// Run executes the configured command. Render output is written to w.
func (a *App) Run(ctx context.Context, w io.Writer) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.", "command", a.config.Command)

	switch a.config.Command {
	case CommandRender:
		out, err := a.Render(ctx, a.config.Input)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, out); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	case CommandAttach:
		return a.Attach(ctx)
	default:
		return fmt.Errorf("unknown command %q", a.config.Command)
	}
}

// Render renders the markdown file at path.
func (a *App) Render(ctx context.Context, path string) (string, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	a.logger.Info("📝 Rendering document.", "path", path)
	out, err := a.engine.RenderMarkdown(ctx, path, src)
	if err != nil {
		return "", fmt.Errorf("failed to render %s: %w", path, err)
	}
	return out, nil
}

// Attach serves live documents from the editor host until ctx is done.
func (a *App) Attach(ctx context.Context) error {
	if a.config.BridgeURL == "" {
		return fmt.Errorf("attach needs an editor URL")
	}
	a.healthCheckServer()
	defer a.closeHealthCheckServer()

	a.logger.Info("🚀 Attaching to editor host.", "url", a.config.BridgeURL)
	if err := a.bridge.Run(ctx, a.engine); err != nil {
		return fmt.Errorf("editor bridge failed: %w", err)
	}
	a.logger.Info("🏁 Detached from editor host.")
	return nil
}
