package registry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vk/livespan/internal/ctxlog"
	"github.com/vk/livespan/internal/fragment"
	"github.com/vk/livespan/internal/fsutil"
)

// ComponentExt is the extension of component files.
const ComponentExt = ".tpl"

// Parser turns the contents of a component file into a component.
type Parser interface {
	Parse(name string, src []byte) (fragment.Component, error)
}

// LoadDir registers every component file under dir. The component name is
// the file name without its extension, so `components/Card.tpl` is `Card`.
func (r *Registry) LoadDir(ctx context.Context, dir string, p Parser) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Registry loading components...", "path", dir)

	filePaths, err := fsutil.Find(dir, ComponentExt)
	if err != nil {
		logger.Error("Failed to walk components directory", "path", dir, "error", err)
		return err
	}
	if len(filePaths) == 0 {
		logger.Warn("No component files found in path", "path", dir)
		return nil
	}

	for _, path := range filePaths {
		src, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read component file %s: %w", path, err)
		}
		name := strings.TrimSuffix(filepath.Base(path), ComponentExt)
		c, err := p.Parse(name, src)
		if err != nil {
			return fmt.Errorf("failed to parse component file %s: %w", path, err)
		}
		if err := r.add(c); err != nil {
			return fmt.Errorf("component file %s: %w", path, err)
		}
		logger.Debug("Loaded component file.", "file", path, "name", name)
	}

	logger.Info("📦 Components loaded.", "count", len(filePaths), "path", dir)
	return nil
}

// LoadDirAsync loads dir in the background and marks the registry ready when
// done, even on failure. The returned channel yields the load error, if any.
func (r *Registry) LoadDirAsync(ctx context.Context, dir string, p Parser) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer r.MarkReady()
		err := r.LoadDir(ctx, dir, p)
		if err != nil {
			ctxlog.FromContext(ctx).Error("Component loading failed.", "path", dir, "error", err)
		}
		done <- err
		close(done)
	}()
	return done
}
