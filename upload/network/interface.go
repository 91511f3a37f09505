// Package network holds the control-plane client that negotiates and
// finalizes an upload session, and the transport that moves single chunks.
package network

import (
	"context"
	"io"
)

// Destination is a pre-issued location for uploading exactly one chunk.
type Destination struct {
	URL     string            `json:"url"`
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers"`
}

// Session is the negotiated metadata governing one upload attempt.
// Destinations has one entry per chunk, in chunk order.
type Session struct {
	ID           string
	Destinations []Destination
	ObjectID     string
}

// ControlPlane negotiates and finalizes upload sessions.
type ControlPlane interface {
	InitUpload(destinationID string, chunkCount int) (Session, error)
	CompleteUpload(session Session) error
}

// ProgressFunc receives byte-level progress of one chunk transfer.
type ProgressFunc func(sent, total int64)

// Result is the single terminal outcome of one chunk transfer.
// A StatusCode of 0 means the transport itself failed (no server answer).
type Result struct {
	StatusCode int
	Body       string
}

// Success reports whether the chunk was accepted by the server.
func (r Result) Success() bool {
	switch r.StatusCode {
	case 200, 201, 204, 206:
		return true
	}
	return false
}

// ChunkTransport performs a single chunk upload. Implementations report zero
// or more progress ticks followed by exactly one Result, and must honor
// context cancellation.
type ChunkTransport interface {
	Put(ctx context.Context, dest Destination, body io.Reader, size int64, progress ProgressFunc) Result
}
