// Package chunk provides the byte-range segmenter and the pure sizing and
// progress calculations for a chunked upload.
package chunk

// TotalChunks returns the number of chunks needed to cover fileSize bytes.
func TotalChunks(fileSize, chunkSize int64) int {
	if fileSize <= 0 || chunkSize <= 0 {
		return 0
	}
	return int((fileSize + chunkSize - 1) / chunkSize)
}

// Progress returns the overall upload progress in percent (0-100) while the
// chunk at chunkIndex is in flight and has sent bytes of total on the wire.
//
// The remaining byte budget is amortized evenly across the chunks that are
// not yet confirmed instead of using true byte counts for unsent chunks, so
// the value is approximate but non-decreasing and capped at 100.
func Progress(bytesConfirmed, fileSize int64, totalChunks, chunkIndex int, sent, total, chunkSize int64) float64 {
	if fileSize <= 0 {
		return 0
	}
	remaining := totalChunks - chunkIndex
	if remaining < 1 {
		remaining = 1
	}
	denominator := total
	if denominator <= 0 {
		denominator = chunkSize
	}

	confirmedFraction := float64(bytesConfirmed) / float64(fileSize)
	unconfirmedFraction := float64(fileSize-bytesConfirmed) / float64(fileSize)
	perChunkShare := unconfirmedFraction / float64(remaining)
	chunkFraction := float64(sent) / float64(denominator)

	progress := (confirmedFraction + chunkFraction*perChunkShare) * 100
	if progress > 100 {
		progress = 100
	}
	return progress
}
