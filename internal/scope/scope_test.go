package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vk/livespan/internal/scopeid"
)

func TestHandle_String(t *testing.T) {
	assert.Equal(t, "p.md#2@7", Handle{Key: scopeid.Fragment("p.md", 2), Gen: 7}.String())
	assert.Equal(t, "p.md@1", Handle{Key: scopeid.Root("p.md"), Gen: 1}.String())
}

func TestHandle_IsZero(t *testing.T) {
	assert.True(t, Handle{}.IsZero())
	assert.False(t, Handle{Key: scopeid.Root("p.md"), Gen: 1}.IsZero())
}
