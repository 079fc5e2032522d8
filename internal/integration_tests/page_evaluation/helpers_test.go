package integration_tests

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/livespan/internal/app"
	"github.com/vk/livespan/internal/testutil"
)

// renderResult is the outcome of rendering one page through the app.
type renderResult struct {
	HTML string
	Logs *testutil.SafeBuffer
	Err  error
}

// renderPage writes files into a temp dir, then renders page.md with the
// components/ directory loaded.
func renderPage(t *testing.T, files map[string]string) renderResult {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		testutil.WriteFile(t, dir, name, content)
	}
	require.Contains(t, files, "page.md", "the harness renders page.md")

	cfg := &app.Config{
		Command:        app.CommandRender,
		Input:          filepath.Join(dir, "page.md"),
		ComponentsPath: filepath.Join(dir, "components"),
	}
	a, logs := app.SetupAppTest(t, cfg)

	var out bytes.Buffer
	err := a.Run(context.Background(), &out)
	return renderResult{HTML: out.String(), Logs: logs, Err: err}
}
