// Package chunker splits document text into overlapping bounded-size chunks.
package chunker

import (
	"strings"
	"unicode/utf8"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters
// between consecutive chunks.
const DefaultChunkOverlap = 200

// Splitter produces overlapping chunks with a deterministic rule: identical
// (text, chunkSize, overlap) always yields an identical chunk sequence.
// Chunk size and overlap are fixed at construction; re-ingestion with the
// same splitter settings reproduces the same boundaries.
type Splitter struct {
	chunkSize int
	overlap   int
}

// Option configures the splitter.
type Option func(*Splitter)

// WithChunkSize sets the maximum chunk size in characters.
func WithChunkSize(size int) Option {
	return func(s *Splitter) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between consecutive chunks in characters.
func WithOverlap(overlap int) Option {
	return func(s *Splitter) {
		if overlap >= 0 {
			s.overlap = overlap
		}
	}
}

// New creates a splitter with the given options.
func New(opts ...Option) *Splitter {
	s := &Splitter{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Overlap must stay strictly below the chunk size.
	if s.overlap >= s.chunkSize {
		s.overlap = s.chunkSize / 4
	}

	return s
}

// ChunkSize returns the configured maximum chunk size.
func (s *Splitter) ChunkSize() int { return s.chunkSize }

// Overlap returns the configured overlap.
func (s *Splitter) Overlap() int { return s.overlap }

// Split cuts text into chunks of at most chunkSize characters where each
// chunk shares roughly overlap characters with its successor. It prefers
// breaking at a newline, space or period within the last 10% of the window
// and falls back to a hard cut when no such boundary exists. Every chunk is
// a contiguous substring of text.
//
// Blank text yields no chunks; text within chunkSize yields exactly one
// chunk equal to the whole text.
func (s *Splitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	n := len(text)
	if n <= s.chunkSize {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < n {
		end := start + s.chunkSize
		if end >= n {
			end = n
		} else {
			// Look for a clean break point within the last 10% of the chunk.
			lookBack := s.chunkSize / 10
			for i := end - 1; i >= end-lookBack && i > start; i-- {
				if text[i] == ' ' || text[i] == '\n' || text[i] == '.' {
					end = i + 1
					break
				}
			}
			// A hard cut must not split a multi-byte rune.
			end = alignToRuneStart(text, end)
			if end <= start {
				_, size := utf8.DecodeRuneInString(text[start:])
				end = start + size
			}
		}

		chunks = append(chunks, text[start:end])
		if end == n {
			break
		}

		// Step back by the overlap so consecutive chunks share context.
		next := end - s.overlap
		if next > start {
			next = alignToRuneStart(text, next)
		}
		if next <= start {
			_, size := utf8.DecodeRuneInString(text[start:])
			next = start + size
		}
		start = next
	}

	return chunks
}

// alignToRuneStart moves i back to the start of the rune containing text[i].
func alignToRuneStart(text string, i int) int {
	for i > 0 && !utf8.RuneStart(text[i]) {
		i--
	}
	return i
}
