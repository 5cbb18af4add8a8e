package repository

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkStrings(t *testing.T) {
	ids := make([]string, 1200)
	for i := range ids {
		ids[i] = fmt.Sprintf("id-%d", i)
	}

	chunks := chunkStrings(ids, maxBatchWrite)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 500)
	assert.Len(t, chunks[1], 500)
	assert.Len(t, chunks[2], 200)
	assert.Equal(t, "id-0", chunks[0][0])
	assert.Equal(t, "id-1199", chunks[2][199])
}

func TestChunkStringsSmallAndEmpty(t *testing.T) {
	assert.Empty(t, chunkStrings(nil, maxInListIDs))
	assert.Empty(t, chunkStrings([]string{}, maxInListIDs))

	chunks := chunkStrings([]string{"a", "b"}, maxInListIDs)
	require.Len(t, chunks, 1)
	assert.Equal(t, []string{"a", "b"}, chunks[0])
}

func TestChunkStringsExactBoundary(t *testing.T) {
	ids := make([]string, maxInListIDs)
	for i := range ids {
		ids[i] = fmt.Sprintf("id-%d", i)
	}
	chunks := chunkStrings(ids, maxInListIDs)
	require.Len(t, chunks, 1)
	assert.Len(t, chunks[0], maxInListIDs)
}
