package upload

import (
	"fmt"
	"os"
	"time"

	"github.com/bitrise-io/go-steputils/v2/stepconf"
	"github.com/bitrise-io/go-utils/v2/env"
	"github.com/bitrise-io/go-utils/v2/log"
)

// Input is the env-var configuration surface for step-style construction.
type Input struct {
	DestinationID string          `env:"destination_id,required"`
	FilePath      string          `env:"file_path,required"`
	ChunkSizeKB   int64           `env:"chunk_size_kb,range[5120..512000]"`
	MaxFileSizeKB int64           `env:"max_file_size_kb"`
	MaxRetries    int             `env:"max_retries"`
	RetryDelaySec int             `env:"retry_delay_seconds"`
	Endpoint      string          `env:"upload_endpoint,required"`
	AccessToken   stepconf.Secret `env:"access_token"`
	Verbose       bool            `env:"verbose"`
}

// ParseInput reads and validates Input from the environment.
func ParseInput(envRepo env.Repository) (Input, error) {
	var input Input
	if err := stepconf.NewInputParser(envRepo).Parse(&input); err != nil {
		return Input{}, err
	}
	return input, nil
}

// Config opens the file and converts the parsed Input into a Config.
// The caller owns the returned file handle via Config.File.
func (i Input) Config(logger log.Logger) (Config, error) {
	file, err := os.Open(i.FilePath)
	if err != nil {
		return Config{}, fmt.Errorf("open file: %w", err)
	}

	if logger == nil {
		logger = log.NewLogger()
	}
	logger.EnableDebugLog(i.Verbose)

	return Config{
		DestinationID: i.DestinationID,
		File:          file,
		ChunkSizeKB:   i.ChunkSizeKB,
		MaxFileSizeKB: i.MaxFileSizeKB,
		MaxRetries:    i.MaxRetries,
		RetryDelay:    time.Duration(i.RetryDelaySec) * time.Second,
		Endpoint:      i.Endpoint,
		AccessToken:   string(i.AccessToken),
		Logger:        logger,
	}, nil
}
