package upload

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/HarishKumar097/web-uploads-sdk/upload/network"
	"github.com/bitrise-io/go-utils/v2/log"
)

const (
	// DefaultChunkSizeKB is the chunk size used when none is configured.
	DefaultChunkSizeKB = 16384
	// MinChunkSizeKB and MaxChunkSizeKB bound the configurable chunk size.
	MinChunkSizeKB = 5120
	MaxChunkSizeKB = 512000

	// DefaultMaxRetries is the per-chunk retry ceiling used when none is
	// configured.
	DefaultMaxRetries = 5
	// DefaultRetryDelay is the delay between chunk retry attempts used when
	// none is configured.
	DefaultRetryDelay = 2 * time.Second
)

// ConnectivityObserver lets the engine react to ambient connectivity changes
// without owning the detection mechanism. Subscribe registers a callback for
// connectivity transitions and returns an unsubscribe func.
type ConnectivityObserver interface {
	Subscribe(onChange func(online bool)) (unsubscribe func())
}

// Config holds configuration for one upload. It is validated once at
// construction and immutable afterwards.
type Config struct {
	// DestinationID is the caller-supplied destination identifier passed to
	// the control plane at negotiation. Required.
	DestinationID string

	// File is the payload to upload. Required. The engine reads byte ranges
	// from it but never closes it.
	File *os.File

	// ChunkSizeKB is the chunk size in kilobytes.
	// Default: DefaultChunkSizeKB, valid range [MinChunkSizeKB, MaxChunkSizeKB]
	ChunkSizeKB int64

	// MaxFileSizeKB is an optional ceiling on the payload size in kilobytes.
	// 0 means unlimited.
	MaxFileSizeKB int64

	// MaxRetries is the maximum number of retry attempts per chunk.
	// Default: DefaultMaxRetries
	MaxRetries int

	// RetryDelay is the delay before a chunk retry attempt.
	// Default: DefaultRetryDelay
	RetryDelay time.Duration

	// Endpoint is the control-plane endpoint for both negotiation and
	// finalization. Required unless ControlPlane is set.
	Endpoint string

	// InitEndpoint and CompleteEndpoint override Endpoint per operation.
	InitEndpoint     string
	CompleteEndpoint string

	// AccessToken is an optional bearer token for control-plane requests.
	AccessToken string

	// Logger defaults to log.NewLogger().
	Logger log.Logger

	// HTTPClient overrides the HTTP client used for chunk uploads.
	HTTPClient *http.Client

	// ControlPlane overrides the default control-plane client.
	ControlPlane network.ControlPlane

	// Transport overrides the default chunk transport.
	Transport network.ChunkTransport

	// Connectivity is an optional ambient connectivity observer. When nil,
	// the engine never transitions to offline on its own.
	Connectivity ConnectivityObserver
}

func (c Config) withDefaults() Config {
	if c.ChunkSizeKB == 0 {
		c.ChunkSizeKB = DefaultChunkSizeKB
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = DefaultRetryDelay
	}
	if c.Logger == nil {
		c.Logger = log.NewLogger()
	}
	if c.InitEndpoint == "" {
		c.InitEndpoint = c.Endpoint
	}
	if c.CompleteEndpoint == "" {
		c.CompleteEndpoint = c.Endpoint
	}
	return c
}

func (c Config) validate() error {
	if c.DestinationID == "" {
		return fmt.Errorf("DestinationID must not be empty")
	}
	if c.File == nil {
		return fmt.Errorf("File must not be nil")
	}
	if c.ChunkSizeKB < MinChunkSizeKB || c.ChunkSizeKB > MaxChunkSizeKB {
		return fmt.Errorf("ChunkSizeKB must be between %d and %d, got %d", MinChunkSizeKB, MaxChunkSizeKB, c.ChunkSizeKB)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("MaxRetries must not be negative")
	}
	if c.ControlPlane == nil && c.InitEndpoint == "" {
		return fmt.Errorf("Endpoint must not be empty")
	}
	return nil
}
