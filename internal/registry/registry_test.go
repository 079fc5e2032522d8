package registry

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/livespan/internal/fragment"
	"github.com/zclconf/go-cty/cty"
)

type namedComponent struct {
	name string
	body string
}

func (c namedComponent) Name() string { return c.name }

func (c namedComponent) Render(context.Context, map[string]cty.Value) (string, error) {
	return c.body, nil
}

type rawParser struct{}

func (rawParser) Parse(name string, src []byte) (fragment.Component, error) {
	return namedComponent{name: name, body: string(src)}, nil
}

type testModule struct{}

func (testModule) Register(r *Registry) {
	r.Register(namedComponent{name: "Note"})
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := New()
	r.RegisterModules(testModule{})

	c, ok := r.Lookup("Note")
	require.True(t, ok)
	assert.Equal(t, "Note", c.Name())

	_, ok = r.Lookup("Missing")
	assert.False(t, ok)

	assert.Panics(t, func() { r.Register(namedComponent{name: "Note"}) })
}

func TestRegistry_WaitReady(t *testing.T) {
	r := New()
	assert.False(t, r.Ready())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, r.WaitReady(ctx), context.DeadlineExceeded)

	done := make(chan error, 1)
	go func() { done <- r.WaitReady(context.Background()) }()
	r.MarkReady()
	r.MarkReady()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("WaitReady did not return after MarkReady")
	}
	assert.True(t, r.Ready())
}

func TestRegistry_LoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "cards"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Alert.tpl"), []byte("<div>${children}</div>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cards", "Card.tpl"), []byte("<section/>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("ignored"), 0o644))

	r := New()
	require.NoError(t, r.LoadDir(context.Background(), dir, rawParser{}))
	assert.Equal(t, []string{"Alert", "Card"}, r.Names())

	t.Run("duplicate names are rejected", func(t *testing.T) {
		err := r.LoadDir(context.Background(), dir, rawParser{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already registered")
	})
}

func TestRegistry_LoadDirAsync(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Card.tpl"), []byte("x"), 0o644))

	r := New()
	errs := r.LoadDirAsync(context.Background(), dir, rawParser{})
	require.NoError(t, r.WaitReady(context.Background()))
	require.NoError(t, <-errs)

	_, ok := r.Lookup("Card")
	assert.True(t, ok)
}

func TestRegistry_LoadDirAsync_MarksReadyOnFailure(t *testing.T) {
	r := New()
	errs := r.LoadDirAsync(context.Background(), filepath.Join(t.TempDir(), "missing"), rawParser{})
	require.NoError(t, r.WaitReady(context.Background()))
	assert.Error(t, <-errs)
}
