package testutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// AssertLogged checks that every message appears in the captured log output.
func AssertLogged(t *testing.T, logs *SafeBuffer, messages ...string) {
	t.Helper()
	out := logs.String()
	for _, msg := range messages {
		require.True(t, strings.Contains(out, msg), "expected log message %q was not found in logs", msg)
	}
}
