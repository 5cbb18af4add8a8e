package repository

const (
	// maxBatchWrite is the store's hard per-request write ceiling. Bulk
	// upserts are split into chunks of this size and committed sequentially.
	maxBatchWrite = 500

	// maxInListIDs is the store's ceiling on equality-list reads. Larger id
	// sets are split and the per-chunk results merged.
	maxInListIDs = 10
)

// chunkStrings splits ids into consecutive groups of at most size entries.
func chunkStrings(ids []string, size int) [][]string {
	if len(ids) == 0 {
		return nil
	}
	chunks := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}
