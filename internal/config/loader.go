package config

import (
	"context"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/vk/livespan/internal/ctxlog"
	"github.com/vk/livespan/internal/fsutil"
)

// Loader reads configuration files into a Model.
type Loader interface {
	Load(ctx context.Context, paths ...string) (*Model, error)
}

// Schema constrains configuration files.
const Schema = `
log?: {
	level?:   "debug" | "info" | "warn" | "error"
	format?:  "text" | "json"
	journal?: bool
}
debounce?:   =~"^[0-9]+(ns|us|µs|ms|s|m)$"
components?: string
syntax?: {
	expressions?:      [string]: string
	components?:       [string]: string
	statements?:       [string]: string
	component_fences?: [string]: string
}
bridge?: {
	url?:       string
	namespace?: string
	insecure?:  bool
}
healthcheck_port?: int & >=0 & <=65535
`

// CueLoader loads CUE files validated against Schema.
type CueLoader struct{}

// NewCueLoader creates a loader.
func NewCueLoader() *CueLoader {
	return &CueLoader{}
}

// Load implements Loader. Directories are expanded to the *.cue files they
// hold; later files override earlier ones.
func (l *CueLoader) Load(ctx context.Context, paths ...string) (*Model, error) {
	logger := ctxlog.FromContext(ctx)
	cctx := cuecontext.New()
	schema := cctx.CompileString("close({" + Schema + "})")
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("invalid config schema: %w", err)
	}

	files, err := fsutil.Expand(paths, ".cue")
	if err != nil {
		return nil, fmt.Errorf("failed to find config files: %w", err)
	}

	model := &Model{}
	for _, path := range files {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		value := cctx.CompileBytes(content, cue.Filename(path))
		if err := value.Err(); err != nil {
			return nil, fmt.Errorf("failed to compile config %s: %w", path, err)
		}
		unified := schema.Unify(value)
		if err := unified.Validate(cue.Concrete(true)); err != nil {
			return nil, fmt.Errorf("invalid config %s: %w", path, err)
		}
		var m Model
		if err := unified.Decode(&m); err != nil {
			return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
		}
		model.merge(m)
		logger.Debug("Config file loaded.", "path", path)
	}

	if _, err := model.DebounceDuration(); err != nil {
		return nil, err
	}
	return model, nil
}
