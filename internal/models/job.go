package models

import (
	"time"
)

// ChunkJob is the persisted progress of one aggregation run.
// TotalChunks is always ceil(len(Documents)/ChunkSize) and Cursor only grows.
type ChunkJob struct {
	RunID       string     `json:"runId"`
	StartedAt   time.Time  `json:"startedAt"`
	Documents   []Document `json:"documents"`
	ChunkSize   int        `json:"chunkSize"`
	Cursor      int        `json:"cursor"`
	TotalChunks int        `json:"totalChunks"`
	Completed   bool       `json:"completed"`
	CompletedAt time.Time  `json:"completedAt"`
}

// NewChunkJob builds a job at cursor 0 over docs.
func NewChunkJob(runID string, docs []Document, chunkSize int, now time.Time) *ChunkJob {
	if docs == nil {
		docs = []Document{}
	}
	return &ChunkJob{
		RunID:       runID,
		StartedAt:   now,
		Documents:   docs,
		ChunkSize:   chunkSize,
		Cursor:      0,
		TotalChunks: TotalChunks(len(docs), chunkSize),
	}
}

// TotalChunks returns ceil(n/size).
func TotalChunks(n, size int) int {
	if size <= 0 || n <= 0 {
		return 0
	}
	return (n + size - 1) / size
}

// ChunkBounds returns the half-open document range of chunk index i.
func (j *ChunkJob) ChunkBounds(i int) (start, end int) {
	start = i * j.ChunkSize
	end = start + j.ChunkSize
	if end > len(j.Documents) {
		end = len(j.Documents)
	}
	if start > end {
		start = end
	}
	return start, end
}

// Chunk returns the documents of chunk index i.
func (j *ChunkJob) Chunk(i int) []Document {
	start, end := j.ChunkBounds(i)
	return j.Documents[start:end]
}

// ProcessedCount is the number of documents covered by chunks before the cursor.
func (j *ChunkJob) ProcessedCount() int {
	if j.Cursor <= 0 {
		return 0
	}
	_, end := j.ChunkBounds(j.Cursor - 1)
	return end
}

// Remaining is the number of documents not yet covered by the cursor.
func (j *ChunkJob) Remaining() int {
	return len(j.Documents) - j.ProcessedCount()
}
