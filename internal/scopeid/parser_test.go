// internal/scopeid/parser_test.go
package scopeid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name        string
		raw         string
		expectErr   bool
		expectedKey Key
	}{
		{
			name:        "page root",
			raw:         "notes/today.md",
			expectedKey: Root("notes/today.md"),
		},
		{
			name:        "fragment",
			raw:         "notes/today.md#3",
			expectedKey: Fragment("notes/today.md", 3),
		},
		{
			name:        "zero index",
			raw:         "a.md#0",
			expectedKey: Fragment("a.md", 0),
		},
		{
			name:      "error - empty",
			raw:       "",
			expectErr: true,
		},
		{
			name:      "error - empty page",
			raw:       "#2",
			expectErr: true,
		},
		{
			name:      "error - non numeric suffix",
			raw:       "a.md#x",
			expectErr: true,
		},
		{
			name:      "error - hash inside page",
			raw:       "a#b.md#1",
			expectErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			key, err := Parse(tc.raw)
			if tc.expectErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expectedKey, key)
		})
	}
}

func TestKey_RoundTrip(t *testing.T) {
	for _, k := range []Key{Root("p.md"), Fragment("dir/p.md", 0), Fragment("p.md", 42)} {
		parsed, err := Parse(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}
}

func TestKey_Helpers(t *testing.T) {
	k := Fragment("p.md", 2)
	assert.False(t, k.IsRoot())
	assert.Equal(t, Root("p.md"), k.PageRoot())
	assert.True(t, Root("p.md").Less(k))
	assert.True(t, Fragment("a.md", 9).Less(Fragment("b.md", 0)))
}
