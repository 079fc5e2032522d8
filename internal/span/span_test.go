package span

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRange_Contains(t *testing.T) {
	r := Range{From: 10, To: 20}
	assert.False(t, r.Contains(9))
	assert.True(t, r.Contains(10))
	assert.True(t, r.Contains(15))
	assert.True(t, r.Contains(20), "the end boundary is inclusive for the cursor")
	assert.False(t, r.Contains(21))
}

func TestRange_Intersects(t *testing.T) {
	r := Range{From: 10, To: 20}
	testCases := []struct {
		name string
		o    Range
		want bool
	}{
		{"before", Range{0, 9}, false},
		{"touching start", Range{5, 10}, true},
		{"inside", Range{12, 13}, true},
		{"insertion point", Range{15, 15}, true},
		{"touching end", Range{20, 25}, true},
		{"after", Range{21, 30}, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, r.Intersects(tc.o))
		})
	}
}

func TestList_ToProcess_KeepsIndexes(t *testing.T) {
	l := List{
		{Index: 0, Source: "a"},
		{Index: 1, Source: "b", Editing: true},
		{Index: 2, Source: "c"},
	}
	got := l.ToProcess()
	require.Len(t, got, 2)
	assert.Equal(t, 0, got[0].Index)
	assert.Equal(t, 2, got[1].Index)
}

func TestList_Unchanged(t *testing.T) {
	prev := List{
		{Kind: InlineExpression, Lang: "hcl", Source: "1 + 1", Range: Range{5, 16}},
		{Kind: BlockStatement, Lang: "hcl", Source: "x = 1\n", Range: Range{20, 40}, Index: 1},
	}

	t.Run("prose edit outside spans", func(t *testing.T) {
		next := List{prev[0], prev[1]}
		next[1].Range = Range{22, 42}
		assert.True(t, prev.Unchanged(next, []Range{{0, 2}}))
	})

	t.Run("edit inside a span", func(t *testing.T) {
		assert.False(t, prev.Unchanged(prev, []Range{{25, 26}}))
	})

	t.Run("different count", func(t *testing.T) {
		assert.False(t, prev.Unchanged(prev[:1], nil))
	})

	t.Run("different source", func(t *testing.T) {
		next := List{prev[0], prev[1]}
		next[1].Source = "x = 2\n"
		assert.False(t, prev.Unchanged(next, nil))
	})

	t.Run("cursor moved into a span", func(t *testing.T) {
		next := List{prev[0], prev[1]}
		next[0].Editing = true
		assert.False(t, prev.Unchanged(next, nil))
	})
}

func TestKind(t *testing.T) {
	assert.True(t, BlockStatement.IsBlock())
	assert.True(t, BlockComponent.IsBlock())
	assert.False(t, InlineComponent.IsBlock())
	assert.True(t, InlineComponent.IsComponent())
	assert.False(t, BlockStatement.IsComponent())
	assert.Equal(t, "block-component", BlockComponent.String())
}
