package events

// ProgressEvent is the payload for Progress.
type ProgressEvent struct {
	// Percent is the overall progress, 0-100.
	Percent float64
}

// ChunkAttemptEvent is the payload for Attempt and ChunkAttempt.
type ChunkAttemptEvent struct {
	// ChunkNumber is the 1-based number of the dispatched chunk.
	ChunkNumber int
	TotalChunks int
	// ChunkSize is the byte size of the dispatched chunk.
	ChunkSize int64
}

// ChunkSuccessEvent is the payload for ChunkSuccess.
type ChunkSuccessEvent struct {
	ChunkNumber int
	ChunkSize   int64
	// ElapsedSeconds is the time between dispatching the chunk and its
	// transport reporting success.
	ElapsedSeconds float64
}

// ChunkAttemptFailureEvent is the payload for ChunkAttemptFailure.
type ChunkAttemptFailureEvent struct {
	// Attempt is the 1-based number of the failed attempt.
	Attempt     int
	MaxRetries  int
	ChunkNumber int
	TotalChunks int
}

// ErrorEvent is the payload for Error.
type ErrorEvent struct {
	Message string
	// ChunkNumber is the 1-based chunk the failure belongs to, 0 if the
	// failure is not tied to a chunk (negotiation, finalize, abort).
	ChunkNumber int
	// StatusCode is the server status of the failing response, 0 for
	// transport-level failures.
	StatusCode int
	// ResponseBody is the raw failing response body, if any.
	ResponseBody string
}

// StatusEvent is the payload for Online and Offline.
type StatusEvent struct {
	Message string
}
