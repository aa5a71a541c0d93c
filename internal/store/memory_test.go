package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySaveAndGet(t *testing.T) {
	ctx := context.Background()
	b := NewMemory(nil)

	saved, err := b.Save(ctx, "box010", "", Document{"a": 1})
	require.NoError(t, err)

	id, ok := saved[FieldID].(string)
	require.True(t, ok)
	assert.NotEmpty(t, id)
	assert.NotNil(t, saved[FieldCreatedOn])

	got, err := b.Get(ctx, "box010", id)
	require.NoError(t, err)
	assert.Equal(t, float64(1), got["a"])
	assert.Equal(t, id, got[FieldID])
}

func TestMemoryGetNotFound(t *testing.T) {
	b := NewMemory(nil)

	_, err := b.Get(context.Background(), "box010", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemorySaveReplaceKeepsCreatedOn(t *testing.T) {
	ctx := context.Background()
	b := NewMemory(nil)

	first, err := b.Save(ctx, "box", "doc1", Document{"a": 1})
	require.NoError(t, err)

	second, err := b.Save(ctx, "box", "doc1", Document{"b": 2})
	require.NoError(t, err)

	assert.Equal(t, first[FieldCreatedOn], second[FieldCreatedOn])
	// Full replace: the old field is gone.
	assert.NotContains(t, second, "a")
	assert.Equal(t, float64(2), second["b"])
}

func TestMemorySaveNilPayload(t *testing.T) {
	b := NewMemory(nil)

	_, err := b.Save(context.Background(), "box", "", nil)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestMemoryUpdate(t *testing.T) {
	ctx := context.Background()
	b := NewMemory(nil)

	saved, err := b.Save(ctx, "box", "doc1", Document{"a": 1, "keep": "yes"})
	require.NoError(t, err)

	merged, err := b.Update(ctx, "box", "doc1", Document{"a": 2, FieldID: "evil"})
	require.NoError(t, err)

	assert.Equal(t, float64(2), merged["a"])
	assert.Equal(t, "yes", merged["keep"])
	// System fields cannot be overwritten by a patch.
	assert.Equal(t, "doc1", merged[FieldID])
	assert.Equal(t, saved[FieldCreatedOn], merged[FieldCreatedOn])
}

func TestMemoryUpdateNotFound(t *testing.T) {
	b := NewMemory(nil)

	_, err := b.Update(context.Background(), "box", "missing", Document{"a": 1})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryDelete(t *testing.T) {
	ctx := context.Background()
	b := NewMemory(nil)

	_, err := b.Save(ctx, "box", "doc1", Document{"a": 1})
	require.NoError(t, err)

	n, err := b.Delete(ctx, "box", "doc1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = b.Get(ctx, "box", "doc1")
	assert.ErrorIs(t, err, ErrNotFound)

	n, err = b.Delete(ctx, "box", "doc1")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestMemoryListCount(t *testing.T) {
	ctx := context.Background()
	b := NewMemory(nil)

	for i := 0; i < 5; i++ {
		_, err := b.Save(ctx, "box", fmt.Sprintf("doc%d", i), Document{"i": i})
		require.NoError(t, err)
	}
	for i := 0; i < 2; i++ {
		n, err := b.Delete(ctx, "box", fmt.Sprintf("doc%d", i))
		require.NoError(t, err)
		require.Equal(t, 1, n)
	}

	docs, err := b.List(ctx, "box", ListOptions{})
	require.NoError(t, err)
	assert.Len(t, docs, 3)
}

func TestMemoryListEmptyBox(t *testing.T) {
	b := NewMemory(nil)

	docs, err := b.List(context.Background(), "nope", ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestMemoryListSort(t *testing.T) {
	ctx := context.Background()
	b := NewMemory(nil)

	values := []float64{3, 1, 2}
	for i, v := range values {
		_, err := b.Save(ctx, "box", fmt.Sprintf("doc%d", i), Document{"x": v})
		require.NoError(t, err)
	}

	asc, err := b.List(ctx, "box", ListOptions{Sort: "x", Asc: true})
	require.NoError(t, err)
	require.Len(t, asc, 3)
	assert.Equal(t, float64(1), asc[0]["x"])
	assert.Equal(t, float64(2), asc[1]["x"])
	assert.Equal(t, float64(3), asc[2]["x"])

	desc, err := b.List(ctx, "box", ListOptions{Sort: "x", Asc: false})
	require.NoError(t, err)
	require.Len(t, desc, 3)
	assert.Equal(t, float64(3), desc[0]["x"])
	assert.Equal(t, float64(1), desc[2]["x"])
}

func TestMemoryListSkipLimit(t *testing.T) {
	ctx := context.Background()
	b := NewMemory(nil)

	for i := 0; i < 10; i++ {
		_, err := b.Save(ctx, "box", fmt.Sprintf("doc%02d", i), Document{"i": i})
		require.NoError(t, err)
	}

	docs, err := b.List(ctx, "box", ListOptions{Sort: "i", Asc: true, Skip: 3, Limit: 4})
	require.NoError(t, err)
	require.Len(t, docs, 4)
	assert.Equal(t, float64(3), docs[0]["i"])
	assert.Equal(t, float64(6), docs[3]["i"])
}

func TestMemoryListProjection(t *testing.T) {
	ctx := context.Background()
	b := NewMemory(nil)

	_, err := b.Save(ctx, "box", "doc1", Document{"a": 1, "b": 2, "c": 3})
	require.NoError(t, err)

	docs, err := b.List(ctx, "box", ListOptions{Fields: []string{"a", "c"}})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, Document{"a": float64(1), "c": float64(3)}, docs[0])
}

func TestMemoryListQueryFilter(t *testing.T) {
	ctx := context.Background()
	b := NewMemory(nil)

	_, err := b.Save(ctx, "box", "doc1", Document{"name": "Alpha"})
	require.NoError(t, err)
	_, err = b.Save(ctx, "box", "doc2", Document{"name": "beta"})
	require.NoError(t, err)

	docs, err := b.List(ctx, "box", ListOptions{Query: "alpha"})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Alpha", docs[0]["name"])
}

func TestMemoryCheckSecurity(t *testing.T) {
	ctx := context.Background()

	open := NewMemory(nil)
	assert.True(t, open.CheckSecurity(ctx, "box", "", true))

	readOnly := NewMemory(func(_ context.Context, _, _ string, write bool) bool {
		return !write
	})
	assert.True(t, readOnly.CheckSecurity(ctx, "box", "", false))
	assert.False(t, readOnly.CheckSecurity(ctx, "box", "id", true))
}

func TestSortDocumentsMissingFieldLast(t *testing.T) {
	docs := []Document{
		{"x": float64(2)},
		{"y": "no x"},
		{"x": float64(1)},
	}
	sortDocuments(docs, "x", true)
	assert.Equal(t, float64(1), docs[0]["x"])
	assert.Equal(t, float64(2), docs[1]["x"])
	assert.NotContains(t, docs[2], "x")

	sortDocuments(docs, "x", false)
	assert.Equal(t, float64(2), docs[0]["x"])
	assert.NotContains(t, docs[2], "x")
}

func TestCompareValues(t *testing.T) {
	assert.Negative(t, compareValues(float64(1), float64(2)))
	assert.Positive(t, compareValues("b", "a"))
	assert.Zero(t, compareValues(true, true))
	assert.Negative(t, compareValues(false, true))
	// int from Go-side writers compares against JSON float64.
	assert.Zero(t, compareValues(1, float64(1)))
}
