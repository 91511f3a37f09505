package upload

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/HarishKumar097/web-uploads-sdk/upload/events"
	"github.com/HarishKumar097/web-uploads-sdk/upload/network"
	"github.com/stretchr/testify/require"
)

type fakeControlPlane struct {
	mu             sync.Mutex
	initCalls      int
	completeCalls  int
	destinations   int // 0 means one per requested chunk
	initErr        error
	completeErr    error
	lastInitID     string
	lastChunkCount int
}

func (f *fakeControlPlane) InitUpload(destinationID string, chunkCount int) (network.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.initCalls++
	f.lastInitID = destinationID
	f.lastChunkCount = chunkCount
	if f.initErr != nil {
		return network.Session{}, f.initErr
	}

	count := f.destinations
	if count == 0 {
		count = chunkCount
	}
	destinations := make([]network.Destination, count)
	for i := range destinations {
		destinations[i] = network.Destination{
			URL:    fmt.Sprintf("https://storage.example.com/chunk-%d", i+1),
			Method: "PUT",
		}
	}
	return network.Session{ID: "session-1", Destinations: destinations, ObjectID: "object-1"}, nil
}

func (f *fakeControlPlane) CompleteUpload(network.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completeCalls++
	return f.completeErr
}

func (f *fakeControlPlane) counts() (initCalls, completeCalls int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.initCalls, f.completeCalls
}

type putFunc func(call int, ctx context.Context, dest network.Destination, size int64, progress network.ProgressFunc) network.Result

type fakeTransport struct {
	mu    sync.Mutex
	calls int
	fn    putFunc
}

func (f *fakeTransport) Put(ctx context.Context, dest network.Destination, _ io.Reader, size int64, progress network.ProgressFunc) network.Result {
	f.mu.Lock()
	f.calls++
	call := f.calls
	fn := f.fn
	f.mu.Unlock()
	return fn(call, ctx, dest, size, progress)
}

func (f *fakeTransport) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// succeed is a putFunc that reports one full progress tick and accepts the chunk.
func succeed(_ int, _ context.Context, _ network.Destination, size int64, progress network.ProgressFunc) network.Result {
	progress(size, size)
	return network.Result{StatusCode: 200}
}

type fakeConnectivity struct {
	mu       sync.Mutex
	onChange func(online bool)
}

func (f *fakeConnectivity) Subscribe(onChange func(online bool)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onChange = onChange
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.onChange = nil
	}
}

func (f *fakeConnectivity) set(online bool) {
	f.mu.Lock()
	onChange := f.onChange
	f.mu.Unlock()
	if onChange != nil {
		onChange(online)
	}
}

type recordedEvent struct {
	name    events.Name
	payload interface{}
}

type recorder struct {
	mu       sync.Mutex
	entries  []recordedEvent
	terminal chan struct{}
	once     sync.Once
}

var allEventNames = []events.Name{
	events.Progress, events.Attempt, events.ChunkAttempt, events.ChunkSuccess,
	events.ChunkAttemptFailure, events.Error, events.Success, events.Online, events.Offline,
}

func newRecorder(u *Uploader) *recorder {
	r := &recorder{terminal: make(chan struct{})}
	for _, name := range allEventNames {
		name := name
		u.On(name, func(payload interface{}) {
			r.mu.Lock()
			r.entries = append(r.entries, recordedEvent{name: name, payload: payload})
			r.mu.Unlock()
			if name == events.Success || name == events.Error {
				r.once.Do(func() { close(r.terminal) })
			}
		})
	}
	return r
}

func (r *recorder) waitTerminal(t *testing.T) {
	t.Helper()
	select {
	case <-r.terminal:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a terminal event")
	}
}

func (r *recorder) byName(name events.Name) []interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	var payloads []interface{}
	for _, e := range r.entries {
		if e.name == name {
			payloads = append(payloads, e.payload)
		}
	}
	return payloads
}

func (r *recorder) names() []events.Name {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]events.Name, len(r.entries))
	for i, e := range r.entries {
		names[i] = e.name
	}
	return names
}

// tempFile creates a sparse file of the given size.
func tempFile(t *testing.T, size int64) *os.File {
	t.Helper()

	path := filepath.Join(t.TempDir(), "payload.bin")
	file, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, file.Truncate(size))
	require.NoError(t, file.Close())

	file, err = os.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = file.Close()
	})
	return file
}
