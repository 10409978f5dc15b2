package models

// StatusView is what dashboard readers receive.
type StatusView struct {
	Ready bool            `json:"ready"`
	Data  *FinalAggregate `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

// ProgressView is the operational progress of the current job.
type ProgressView struct {
	RunID          string `json:"runId,omitempty"`
	Started        bool   `json:"started"`
	Done           bool   `json:"done"`
	ProcessedCount int    `json:"processedCount"`
	RemainingCount int    `json:"remainingCount"`
	ChunkIndex     int    `json:"chunkIndex"`
	TotalChunks    int    `json:"totalChunks"`
}

// WarmResult reports what a single invocation did.
type WarmResult struct {
	OK          bool `json:"ok"`
	Done        bool `json:"done"`
	Built       bool `json:"built,omitempty"`
	AlreadyDone bool `json:"alreadyDone,omitempty"`
	Enumerated  bool `json:"enumerated,omitempty"`
	Processed   int  `json:"processed"`
	Skipped     int  `json:"skipped"`
	Remaining   int  `json:"remaining"`
	Chunk       int  `json:"chunk"`
	Chunks      int  `json:"chunks"`
	Files       int  `json:"files"`
}
