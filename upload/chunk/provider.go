package chunk

import (
	"fmt"
	"io"
	"os"
)

// FileProvider reads byte ranges of the source file on demand.
// It performs no mutation, so ranges can be extracted repeatedly
// (for retries) and from multiple readers at once.
type FileProvider struct {
	file *os.File
	size int64
}

// NewFileProvider creates a FileProvider over an open file.
func NewFileProvider(file *os.File) (*FileProvider, error) {
	if file == nil {
		return nil, fmt.Errorf("file is nil")
	}
	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	return &FileProvider{file: file, size: info.Size()}, nil
}

// Size returns the total file size in bytes.
func (p *FileProvider) Size() int64 {
	return p.size
}

// ExtractRange returns a lazy reader over [start, end), with end clamped to
// the file size. The second return value is the clamped range length.
func (p *FileProvider) ExtractRange(start, end int64) (*io.SectionReader, int64) {
	if end > p.size {
		end = p.size
	}
	if start > end {
		start = end
	}
	return io.NewSectionReader(p.file, start, end-start), end - start
}
