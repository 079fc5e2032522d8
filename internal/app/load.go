package app

import (
	"github.com/vk/livespan/internal/compiler"
	"github.com/vk/livespan/internal/ctxlog"
)

// loadComponents starts loading the component directory in the background.
// The registry becomes ready when loading ends; without a directory it is
// ready immediately.
func (a *App) loadComponents() {
	logger := ctxlog.FromContext(a.ctx)
	if a.config.ComponentsPath == "" {
		logger.Debug("No components path configured.")
		a.registry.MarkReady()
		return
	}
	logger.Debug("Loading components...", "components_path", a.config.ComponentsPath)
	a.registry.LoadDirAsync(a.ctx, a.config.ComponentsPath, compiler.NewTemplate())
}
