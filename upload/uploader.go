// Package upload implements a resumable chunked upload engine: it splits a
// file into fixed-size chunks, uploads them sequentially against pre-issued
// per-chunk destinations, and coordinates retries, pausing, aborting and
// connectivity loss while reporting progress through an event surface.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/HarishKumar097/web-uploads-sdk/upload/chunk"
	"github.com/HarishKumar097/web-uploads-sdk/upload/events"
	"github.com/HarishKumar097/web-uploads-sdk/upload/network"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/retryhttp"
	"github.com/docker/go-units"
)

// ErrUploadAborted is the message carried by the error event after Abort.
var ErrUploadAborted = errors.New("upload aborted")

type event struct {
	name    events.Name
	payload interface{}
}

// Uploader drives one chunked upload. Create it with New, subscribe to
// events with On, then call Start. A terminal success or error event ends
// the transfer, a fresh Uploader is needed for another one.
type Uploader struct {
	mu sync.Mutex

	cfg         Config
	logger      log.Logger
	emitter     *events.Emitter
	control     network.ControlPlane
	transport   network.ChunkTransport
	provider    *chunk.FileProvider
	stats       *chunk.Stats
	unsubscribe func()

	fileSize    int64
	chunkSize   int64
	totalChunks int

	session network.Session

	// cursor
	chunkIndex        int
	completedCount    int
	bytesConfirmed    int64
	currentChunkBytes int64

	// lifecycle flags
	started   bool
	paused    bool
	aborted   bool
	offline   bool
	completed bool
	finalized bool
	closed    bool

	retry retryController

	// in-flight transport handle; generation makes late callbacks from a
	// cancelled transport identifiable
	inflightCancel context.CancelFunc
	generation     uint64
}

// New validates the configuration and builds an inert engine. No network
// activity happens before Start.
func New(cfg Config) (*Uploader, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	provider, err := chunk.NewFileProvider(cfg.File)
	if err != nil {
		return nil, err
	}

	fileSize := provider.Size()
	if fileSize == 0 {
		return nil, fmt.Errorf("file is empty")
	}
	if cfg.MaxFileSizeKB > 0 && fileSize > cfg.MaxFileSizeKB*1024 {
		return nil, fmt.Errorf("file size %s exceeds the configured maximum of %s",
			units.HumanSize(float64(fileSize)), units.HumanSize(float64(cfg.MaxFileSizeKB*1024)))
	}

	chunkSize := cfg.ChunkSizeKB * 1024

	u := &Uploader{
		cfg:         cfg,
		logger:      cfg.Logger,
		emitter:     events.NewEmitter(),
		provider:    provider,
		stats:       chunk.NewStats(),
		fileSize:    fileSize,
		chunkSize:   chunkSize,
		totalChunks: chunk.TotalChunks(fileSize, chunkSize),
		retry: retryController{
			maxRetries: cfg.MaxRetries,
			delay:      cfg.RetryDelay,
		},
	}

	u.control = cfg.ControlPlane
	if u.control == nil {
		u.control = network.NewClient(retryhttp.NewClient(cfg.Logger), cfg.InitEndpoint, cfg.CompleteEndpoint, cfg.AccessToken, cfg.Logger)
	}
	u.transport = cfg.Transport
	if u.transport == nil {
		u.transport = network.NewHTTPTransport(cfg.HTTPClient, cfg.Logger)
	}

	if cfg.Connectivity != nil {
		u.unsubscribe = cfg.Connectivity.Subscribe(u.handleConnectivity)
	}

	return u, nil
}

// On subscribes a handler to the named event and returns an unsubscribe
// func. Multiple independent handlers per event are supported.
func (u *Uploader) On(name events.Name, fn events.Handler) func() {
	return u.emitter.On(name, fn)
}

// Stats returns the engine's transfer statistics. They are wiped on abort
// and after successful completion.
func (u *Uploader) Stats() *chunk.Stats {
	return u.stats
}

// TotalChunks returns the number of chunks the file is split into.
func (u *Uploader) TotalChunks() int {
	return u.totalChunks
}

// Start negotiates the session and begins uploading chunk 1. Calling Start
// more than once is a no-op.
func (u *Uploader) Start() {
	u.mu.Lock()
	if u.started || u.aborted || u.completed || u.closed {
		u.mu.Unlock()
		return
	}
	u.started = true
	u.mu.Unlock()

	u.logger.Infof("Uploading %s in %d chunks of %s",
		units.HumanSize(float64(u.fileSize)), u.totalChunks, units.HumanSize(float64(u.chunkSize)))

	go u.negotiate()
}

func (u *Uploader) negotiate() {
	session, err := u.control.InitUpload(u.cfg.DestinationID, u.totalChunks)
	if err != nil {
		u.emitTerminalError(fmt.Sprintf("upload initialization failed: %s", err), 0, err)
		return
	}
	if len(session.Destinations) != u.totalChunks {
		u.emitTerminalError(fmt.Sprintf("destination count mismatch: expected %d, got %d",
			u.totalChunks, len(session.Destinations)), 0, nil)
		return
	}

	u.mu.Lock()
	if u.aborted || u.closed {
		u.mu.Unlock()
		return
	}
	u.session = session
	evs, launch := u.dispatchLocked()
	u.mu.Unlock()

	u.fire(evs)
	if launch != nil {
		launch()
	}
}

// Pause suspends the upload: the in-flight chunk transport and any pending
// retry are cancelled. No-op unless the engine is actively uploading and
// under the retry ceiling.
func (u *Uploader) Pause() *Uploader {
	u.mu.Lock()
	if !u.sessionReadyLocked() || u.paused || u.offline || u.aborted || u.completed || u.retry.exhausted() {
		u.mu.Unlock()
		return u
	}
	u.cancelInflightLocked()
	u.paused = true
	index := u.chunkIndex
	u.mu.Unlock()

	u.logger.Debugf("Upload paused at chunk %d/%d", index+1, u.totalChunks)
	return u
}

// Resume continues a paused upload by re-dispatching the current chunk.
// No-op unless paused, online, not aborted and under the retry ceiling.
func (u *Uploader) Resume() *Uploader {
	u.mu.Lock()
	if !u.sessionReadyLocked() || !u.paused || u.offline || u.aborted || u.retry.exhausted() {
		u.mu.Unlock()
		return u
	}
	u.paused = false

	var evs []event
	var launch func()
	if u.chunkIndex < u.totalChunks {
		evs, launch = u.dispatchLocked()
	}
	u.mu.Unlock()

	u.fire(evs)
	if launch != nil {
		launch()
	}
	return u
}

// Abort cancels the in-flight chunk transport, resets all state and emits an
// abort error. The instance is spent afterwards. No-op when no transport is
// in flight.
func (u *Uploader) Abort() *Uploader {
	u.mu.Lock()
	if !u.sessionReadyLocked() || u.inflightCancel == nil {
		u.mu.Unlock()
		return u
	}
	u.cancelInflightLocked()
	u.aborted = true
	u.resetLocked()
	u.mu.Unlock()

	u.emitter.Emit(events.Error, events.ErrorEvent{Message: ErrUploadAborted.Error()})
	return u
}

// Close releases the connectivity subscription and cancels any in-flight
// work. It does not emit events.
func (u *Uploader) Close() {
	u.mu.Lock()
	if u.closed {
		u.mu.Unlock()
		return
	}
	u.closed = true
	u.cancelInflightLocked()
	unsubscribe := u.unsubscribe
	u.unsubscribe = nil
	u.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	if transport, ok := u.transport.(*network.HTTPTransport); ok {
		transport.CloseIdleConnections()
	}
}

func (u *Uploader) handleConnectivity(online bool) {
	if online {
		u.handleOnline()
	} else {
		u.handleOffline()
	}
}

func (u *Uploader) handleOffline() {
	u.mu.Lock()
	if u.offline || u.aborted || u.completed || u.closed {
		u.mu.Unlock()
		return
	}
	u.offline = true
	u.cancelInflightLocked()
	u.mu.Unlock()

	u.emitter.Emit(events.Offline, events.StatusEvent{Message: "connection lost, upload suspended"})
}

func (u *Uploader) handleOnline() {
	u.mu.Lock()
	if !u.offline || u.aborted || u.retry.exhausted() || !u.sessionReadyLocked() {
		u.mu.Unlock()
		return
	}
	u.offline = false

	evs := []event{{events.Online, events.StatusEvent{Message: "connection restored"}}}
	var launch func()
	finalizeNow := false
	if !u.paused {
		u.retry.cancel()
		if u.completedCount == u.totalChunks {
			finalizeNow = !u.finalized
		} else {
			var dispatchEvents []event
			dispatchEvents, launch = u.dispatchLocked()
			evs = append(evs, dispatchEvents...)
		}
	}
	u.mu.Unlock()

	u.fire(evs)
	if launch != nil {
		launch()
	}
	if finalizeNow {
		go u.finalize()
	}
}

// dispatchLocked prepares the transfer of the current chunk. It returns the
// attempt events and a launch func that starts the transport goroutine; the
// caller runs launch after releasing the lock and firing the events.
func (u *Uploader) dispatchLocked() ([]event, func()) {
	if !u.sessionReadyLocked() || u.paused || u.offline || u.aborted || u.completed || u.closed {
		return nil, nil
	}
	if u.chunkIndex >= u.totalChunks || u.inflightCancel != nil {
		return nil, nil
	}

	index := u.chunkIndex
	start := int64(index) * u.chunkSize
	body, size := u.provider.ExtractRange(start, start+u.chunkSize)
	u.currentChunkBytes = size

	dest := u.session.Destinations[index]
	generation := u.generation

	ctx, cancel := context.WithCancel(context.Background())
	u.inflightCancel = cancel
	dispatchedAt := time.Now()

	payload := events.ChunkAttemptEvent{
		ChunkNumber: index + 1,
		TotalChunks: u.totalChunks,
		ChunkSize:   size,
	}
	evs := []event{
		{events.Attempt, payload},
		{events.ChunkAttempt, payload},
	}

	launch := func() {
		go u.transportChunk(ctx, generation, index, dest, body, size, dispatchedAt)
	}
	return evs, launch
}

func (u *Uploader) transportChunk(ctx context.Context, generation uint64, index int, dest network.Destination, body io.Reader, size int64, dispatchedAt time.Time) {
	result := u.transport.Put(ctx, dest, body, size, func(sent, total int64) {
		u.handleProgress(generation, index, sent, total)
	})
	u.handleOutcome(generation, index, size, dispatchedAt, result)
}

func (u *Uploader) handleProgress(generation uint64, index int, sent, total int64) {
	u.mu.Lock()
	if generation != u.generation || u.completed || u.aborted || u.closed {
		u.mu.Unlock()
		return
	}
	percent := chunk.Progress(u.bytesConfirmed, u.fileSize, u.totalChunks, index, sent, total, u.chunkSize)
	u.mu.Unlock()

	u.emitter.Emit(events.Progress, events.ProgressEvent{Percent: percent})
}

func (u *Uploader) handleOutcome(generation uint64, index int, size int64, dispatchedAt time.Time, result network.Result) {
	u.mu.Lock()
	if generation != u.generation || u.closed {
		// a pause, abort or offline transition invalidated this transport
		u.mu.Unlock()
		return
	}
	if u.inflightCancel != nil {
		// the transport finished, release its context
		u.inflightCancel()
		u.inflightCancel = nil
	}

	var evs []event
	var launch func()
	finalizeNow := false

	switch {
	case result.Success():
		u.retry.reset()
		elapsed := time.Since(dispatchedAt)
		u.stats.Update(elapsed)
		u.completedCount++
		u.bytesConfirmed += size
		u.chunkIndex++

		evs = append(evs, event{events.ChunkSuccess, events.ChunkSuccessEvent{
			ChunkNumber:    index + 1,
			ChunkSize:      size,
			ElapsedSeconds: elapsed.Seconds(),
		}})

		if u.completedCount == u.totalChunks {
			if u.totalChunks == 1 {
				// single-chunk uploads succeed without a finalize call
				u.completed = true
				u.resetLocked()
				evs = append(evs, event{events.Success, nil})
			} else {
				finalizeNow = true
			}
		} else {
			var dispatchEvents []event
			dispatchEvents, launch = u.dispatchLocked()
			evs = append(evs, dispatchEvents...)
		}

	case result.StatusCode > 0:
		// a definitive server response is not a transient condition
		evs = append(evs, event{events.Error, events.ErrorEvent{
			Message:      fmt.Sprintf("chunk %d upload failed with status %d", index+1, result.StatusCode),
			ChunkNumber:  index + 1,
			StatusCode:   result.StatusCode,
			ResponseBody: result.Body,
		}})

	case u.retry.exhausted():
		evs = append(evs, event{events.Error, events.ErrorEvent{
			Message:     fmt.Sprintf("chunk %d upload failed after %d attempts", index+1, u.retry.failures),
			ChunkNumber: index + 1,
		}})

	default:
		attempt := u.retry.recordFailure()
		u.retry.schedule(u.retryAttempt)
		evs = append(evs, event{events.ChunkAttemptFailure, events.ChunkAttemptFailureEvent{
			Attempt:     attempt,
			MaxRetries:  u.retry.maxRetries,
			ChunkNumber: index + 1,
			TotalChunks: u.totalChunks,
		}})
	}
	u.mu.Unlock()

	u.fire(evs)
	if launch != nil {
		launch()
	}
	if finalizeNow {
		go u.finalize()
	}
}

// retryAttempt is the retry timer callback. Transitions that suspend the
// upload stop the timer, the state checks cover a timer that already fired
// and was waiting on the lock.
func (u *Uploader) retryAttempt() {
	u.mu.Lock()
	u.retry.timer = nil
	if u.paused || u.offline || u.aborted || u.completed || u.closed {
		u.mu.Unlock()
		return
	}
	evs, launch := u.dispatchLocked()
	u.mu.Unlock()

	u.fire(evs)
	if launch != nil {
		launch()
	}
}

func (u *Uploader) finalize() {
	u.mu.Lock()
	if u.finalized || u.aborted || u.completed || u.closed {
		u.mu.Unlock()
		return
	}
	u.finalized = true
	session := u.session
	u.mu.Unlock()

	err := u.control.CompleteUpload(session)

	u.mu.Lock()
	if u.aborted || u.closed {
		u.mu.Unlock()
		return
	}
	if err != nil {
		u.mu.Unlock()
		statusCode := 0
		var statusErr *network.StatusError
		if errors.As(err, &statusErr) {
			statusCode = statusErr.StatusCode
		}
		u.emitter.Emit(events.Error, events.ErrorEvent{
			Message:    fmt.Sprintf("upload finalization failed: %s", err),
			StatusCode: statusCode,
		})
		return
	}
	u.completed = true
	u.resetLocked()
	u.mu.Unlock()

	u.emitter.Emit(events.Success, nil)
}

func (u *Uploader) emitTerminalError(message string, chunkNumber int, err error) {
	statusCode := 0
	responseBody := ""
	var statusErr *network.StatusError
	if errors.As(err, &statusErr) {
		statusCode = statusErr.StatusCode
		responseBody = statusErr.Message
	}
	u.emitter.Emit(events.Error, events.ErrorEvent{
		Message:      message,
		ChunkNumber:  chunkNumber,
		StatusCode:   statusCode,
		ResponseBody: responseBody,
	})
}

// cancelInflightLocked invalidates the in-flight transport: its context is
// cancelled and its eventual late callbacks no longer match the generation.
// Any pending retry is cancelled with it.
func (u *Uploader) cancelInflightLocked() {
	if u.inflightCancel != nil {
		u.inflightCancel()
		u.inflightCancel = nil
	}
	u.generation++
	u.retry.cancel()
}

// resetLocked clears the session and zeroes every cursor. Used for both
// abort and post-success cleanup, nothing is carried over.
func (u *Uploader) resetLocked() {
	u.session = network.Session{}
	u.chunkIndex = 0
	u.completedCount = 0
	u.bytesConfirmed = 0
	u.currentChunkBytes = 0
	u.paused = false
	u.offline = false
	u.retry.reset()
	u.retry.cancel()
	u.stats.Reset()
}

func (u *Uploader) sessionReadyLocked() bool {
	return len(u.session.Destinations) > 0 && u.totalChunks > 0
}

func (u *Uploader) fire(evs []event) {
	for _, e := range evs {
		u.emitter.Emit(e.name, e.payload)
	}
}
