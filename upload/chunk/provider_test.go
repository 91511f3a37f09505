package chunk

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFile(t *testing.T, size int) *os.File {
	t.Helper()

	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i)
	}
	path := filepath.Join(t.TempDir(), "payload.bin")
	require.NoError(t, os.WriteFile(path, data, 0600))

	file, err := os.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, file.Close())
	})
	return file
}

func TestNewFileProvider(t *testing.T) {
	provider, err := NewFileProvider(testFile(t, 100))
	require.NoError(t, err)
	assert.Equal(t, int64(100), provider.Size())
}

func TestNewFileProvider_NilFile(t *testing.T) {
	_, err := NewFileProvider(nil)
	assert.Error(t, err)
}

func TestExtractRange(t *testing.T) {
	provider, err := NewFileProvider(testFile(t, 100))
	require.NoError(t, err)

	tests := []struct {
		name       string
		start, end int64
		wantSize   int64
		wantFirst  byte
	}{
		{name: "full range", start: 0, end: 100, wantSize: 100, wantFirst: 0},
		{name: "middle range", start: 30, end: 60, wantSize: 30, wantFirst: 30},
		{name: "end clamped to file size", start: 90, end: 130, wantSize: 10, wantFirst: 90},
		{name: "start past end of file", start: 120, end: 130, wantSize: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader, size := provider.ExtractRange(tt.start, tt.end)
			assert.Equal(t, tt.wantSize, size)

			data, err := io.ReadAll(reader)
			require.NoError(t, err)
			require.Len(t, data, int(tt.wantSize))
			if tt.wantSize > 0 {
				assert.Equal(t, tt.wantFirst, data[0])
			}
		})
	}
}

func TestExtractRange_Repeatable(t *testing.T) {
	provider, err := NewFileProvider(testFile(t, 100))
	require.NoError(t, err)

	first, _ := provider.ExtractRange(20, 40)
	second, _ := provider.ExtractRange(20, 40)

	firstData, err := io.ReadAll(first)
	require.NoError(t, err)
	secondData, err := io.ReadAll(second)
	require.NoError(t, err)
	assert.Equal(t, firstData, secondData)
}

func TestExtractRange_CoversFileWithoutLoss(t *testing.T) {
	provider, err := NewFileProvider(testFile(t, 100))
	require.NoError(t, err)

	chunkSize := int64(30)
	var assembled []byte
	for start := int64(0); start < provider.Size(); start += chunkSize {
		reader, size := provider.ExtractRange(start, start+chunkSize)
		data, err := io.ReadAll(reader)
		require.NoError(t, err)
		require.Equal(t, size, int64(len(data)))
		assembled = append(assembled, data...)
	}

	require.Len(t, assembled, 100)
	for i, b := range assembled {
		require.Equal(t, byte(i), b)
	}
}
