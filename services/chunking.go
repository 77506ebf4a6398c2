package services

import "strings"

// TextChunk is a run of consecutive pages sent to the model in one request.
type TextChunk struct {
	Index     int // 0-based position in the document
	FirstPage int // 1-based
	LastPage  int
	Text      string
}

// ChunkPages partitions pages into contiguous, non-overlapping runs of size
// pages joined by "\n". The last chunk may be shorter. A size below 1 is
// treated as 1.
func ChunkPages(pages []string, size int) []TextChunk {
	if size < 1 {
		size = 1
	}
	chunks := make([]TextChunk, 0, (len(pages)+size-1)/size)
	for start := 0; start < len(pages); start += size {
		end := min(start+size, len(pages))
		chunks = append(chunks, TextChunk{
			Index:     len(chunks),
			FirstPage: start + 1,
			LastPage:  end,
			Text:      strings.Join(pages[start:end], "\n"),
		})
	}
	return chunks
}

// BatchChunks groups chunk indexes 0..n-1 into consecutive batches of width.
func BatchChunks(n, width int) [][]int {
	if width < 1 {
		width = 1
	}
	batches := make([][]int, 0, (n+width-1)/width)
	for start := 0; start < n; start += width {
		end := min(start+width, n)
		batch := make([]int, 0, end-start)
		for i := start; i < end; i++ {
			batch = append(batch, i)
		}
		batches = append(batches, batch)
	}
	return batches
}
