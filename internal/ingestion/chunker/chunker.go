package chunker

import "errors"

// Default window used by the processing pipeline. Sizes are in
// characters (runes), not tokens.
const (
	DefaultSize    = 1000
	DefaultOverlap = 200
)

var ErrInvalidChunking = errors.New("chunk_overlap must be smaller than chunk_size")

// Split cuts text into overlapping windows: each chunk covers
// [offset, offset+size) and the offset advances by size-overlap. The
// final chunk may be shorter. Output is deterministic for a given
// input; empty text yields no chunks. Rune-based so multi-byte text is
// never cut mid-character.
func Split(text string, size, overlap int) ([]string, error) {
	if size <= 0 || overlap < 0 || overlap >= size {
		return nil, ErrInvalidChunking
	}

	r := []rune(text)
	if len(r) == 0 {
		return []string{}, nil
	}

	step := size - overlap
	out := make([]string, 0, len(r)/step+1)
	for start := 0; start < len(r); start += step {
		end := start + size
		if end > len(r) {
			end = len(r)
		}
		out = append(out, string(r[start:end]))
	}
	return out, nil
}
