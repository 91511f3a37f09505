package network

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/bitrise-io/go-utils/v2/log"
)

// DefaultHTTPClient creates an HTTP client tuned for chunk uploads.
// Chunk timeouts and retries are handled by the engine via context.
func DefaultHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 0,
		Transport: &http.Transport{
			MaxIdleConns:        50,
			MaxConnsPerHost:     20,
			IdleConnTimeout:     10 * time.Second,
			TLSHandshakeTimeout: 5 * time.Second,
			Proxy:               http.ProxyFromEnvironment,
		},
	}
}

// HTTPTransport uploads single chunks to their pre-issued destinations.
// It performs exactly one attempt per Put, retry policy belongs to the
// caller.
type HTTPTransport struct {
	client *http.Client
	logger log.Logger
}

// NewHTTPTransport creates a chunk transport. client may be nil, in which
// case DefaultHTTPClient is used.
func NewHTTPTransport(client *http.Client, logger log.Logger) *HTTPTransport {
	if client == nil {
		client = DefaultHTTPClient()
	}
	return &HTTPTransport{client: client, logger: logger}
}

// Put uploads one chunk. Progress ticks are reported as the request body is
// consumed, then exactly one Result is returned. A Result with StatusCode 0
// means the transport failed before the server answered.
func (t *HTTPTransport) Put(ctx context.Context, dest Destination, body io.Reader, size int64, progress ProgressFunc) Result {
	reader := body
	if progress != nil {
		reader = &progressReader{reader: body, total: size, progress: progress}
	}

	method := dest.Method
	if method == "" {
		method = http.MethodPut
	}

	req, err := http.NewRequestWithContext(ctx, method, dest.URL, reader)
	if err != nil {
		return Result{Body: err.Error()}
	}
	for k, v := range dest.Headers {
		req.Header.Set(k, v)
	}
	req.ContentLength = size

	resp, err := t.client.Do(req)
	if err != nil {
		return Result{Body: err.Error()}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			t.logger.Printf(err.Error())
		}
	}()

	responseBody := make([]byte, 1024)
	n, _ := io.ReadAtLeast(resp.Body, responseBody, 1)

	return Result{StatusCode: resp.StatusCode, Body: string(responseBody[:n])}
}

// CloseIdleConnections closes idle connections in the HTTP client.
func (t *HTTPTransport) CloseIdleConnections() {
	if transport, ok := t.client.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
}

// progressReader counts bytes leaving for the wire and reports them.
type progressReader struct {
	reader   io.Reader
	total    int64
	sent     int64
	progress ProgressFunc
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	if n > 0 {
		r.sent += int64(n)
		r.progress(r.sent, r.total)
	}
	return n, err
}
