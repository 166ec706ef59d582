package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunk_SplitsWithRemainder(t *testing.T) {
	items := make([]int, 123)
	for i := range items {
		items[i] = i
	}

	chunks := Chunk(items, 50)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 50)
	assert.Len(t, chunks[1], 50)
	assert.Len(t, chunks[2], 23)

	// order is preserved across chunk boundaries
	assert.Equal(t, 49, chunks[0][49])
	assert.Equal(t, 50, chunks[1][0])
	assert.Equal(t, 122, chunks[2][22])
}

func TestChunk_ExactMultiple(t *testing.T) {
	chunks := Chunk([]string{"a", "b", "c", "d"}, 2)
	require.Len(t, chunks, 2)
	assert.Equal(t, []string{"a", "b"}, chunks[0])
	assert.Equal(t, []string{"c", "d"}, chunks[1])
}

func TestChunk_Empty(t *testing.T) {
	assert.Nil(t, Chunk([]int{}, 10))
	assert.Nil(t, Chunk[int](nil, 10))
}

func TestChunk_NonPositiveSize(t *testing.T) {
	chunks := Chunk([]int{1, 2, 3}, 0)
	require.Len(t, chunks, 1)
	assert.Equal(t, []int{1, 2, 3}, chunks[0])
}

func TestChunkCount(t *testing.T) {
	assert.Equal(t, 3, ChunkCount(123, 50))
	assert.Equal(t, 2, ChunkCount(100, 50))
	assert.Equal(t, 1, ChunkCount(1, 50))
	assert.Equal(t, 0, ChunkCount(0, 50))
	assert.Equal(t, 1, ChunkCount(5, 0))
}
