package integration_tests

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/livespan/internal/app"
	"github.com/vk/livespan/internal/cli"
	"github.com/vk/livespan/internal/config"
	"github.com/vk/livespan/internal/testutil"
)

// TestCLI_ConfigFilesAndFlagsMerge validates that CUE files are applied in
// order, that flags win over them, and that the merged result drives a render.
func TestCLI_ConfigFilesAndFlagsMerge(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	dir := t.TempDir()
	base := testutil.WriteFile(t, dir, "base.cue", `
components: "`+filepath.Join(dir, "ignored")+`"
syntax: expressions: "calc:": "hcl"
log: format: "json"
`)
	override := testutil.WriteFile(t, dir, "override.cue", `
syntax: component_fences: "ui": "tpl"
`)
	testutil.WriteFile(t, dir, "widgets/Pill.tpl", `<em class="pill">${children}</em>`)
	page := testutil.WriteFile(t, dir, "page.md", "Total: `calc:6 * 7`\n\n```ui:Pill\nok\n```\n")

	args := []string{
		"-config", base, "-config", override,
		"-components", filepath.Join(dir, "widgets"),
		"-log-level", "debug",
		"render", page,
	}
	cfg, exit, err := cli.Parse(args, &bytes.Buffer{})
	require.NoError(t, err)
	require.False(t, exit)

	// --- Act ---
	logs := &testutil.SafeBuffer{}
	a := app.NewApp(logs, cfg, config.NewCueLoader())
	var out bytes.Buffer
	runErr := a.Run(context.Background(), &out)

	// --- Assert ---
	require.NoError(t, runErr)
	assert.Equal(t, "json", cfg.LogFormat, "the file fills flags left unset")
	assert.Equal(t, filepath.Join(dir, "widgets"), cfg.ComponentsPath, "flags win over the file")
	assert.Contains(t, out.String(), `<span class="livespan-inline">42</span>`)
	assert.Contains(t, out.String(), `<em class="pill">ok`)
	testutil.AssertLogged(t, logs, "Rendering document.", `"level":"DEBUG"`)
}
