// Package splitter enforces a maximum chunk size on chunks produced by a
// parser, the same way chunker's fallback path breaks an oversized file into
// fixed-line windows, but generalized to a hierarchy of separators and
// applied after parsing rather than in place of it.
package splitter

import (
	"strings"

	"codeindex/internal/hash"
	"codeindex/internal/model"
)

// Options controls the size ceiling and overlap used when a chunk must be
// split.
type Options struct {
	MaxChunkSize int // characters; <= 0 disables splitting
	Overlap      int // characters of overlap between adjacent pieces
}

// DefaultOptions mirrors the AST chunker's own default ceiling.
func DefaultOptions() Options {
	return Options{MaxChunkSize: 2000, Overlap: 200}
}

// separator hierarchy tried in order: paragraph, line, sentence, word,
// character. Each entry is tried as a literal split point; the last level
// (empty string) means split at arbitrary character boundaries.
var separators = []string{"\n\n", "\n", ". ", " ", ""}

// Split ensures c respects opts.MaxChunkSize, breaking it along the
// separator hierarchy with opts.Overlap characters of repeated context
// between consecutive pieces. symbol, chunk_type, and language are carried
// onto every piece; start_line/end_line are renumbered to describe the
// slice actually produced. A chunk already within the ceiling is returned
// unchanged as a single-element slice.
func Split(c model.Chunk, opts Options) []model.Chunk {
	if opts.MaxChunkSize <= 0 || len(c.Code) <= opts.MaxChunkSize {
		return []model.Chunk{c}
	}

	pieces := splitByHierarchy(c.Code, opts.MaxChunkSize, opts.Overlap, 0)
	if len(pieces) <= 1 {
		return []model.Chunk{c}
	}

	out := make([]model.Chunk, 0, len(pieces))
	line := c.StartLine
	for _, p := range pieces {
		lines := strings.Count(p, "\n")
		piece := c
		piece.Code = p
		piece.StartLine = line
		piece.EndLine = line + lines
		piece.ContentHash = hash.Hash(p)
		out = append(out, piece)
		line = piece.EndLine
	}
	return out
}

// splitByHierarchy recursively partitions text into pieces no larger than
// maxSize, preferring to break on the separator at the given level and
// falling through to finer-grained separators when a segment between
// matches is still too large.
func splitByHierarchy(text string, maxSize, overlap, level int) []string {
	if len(text) <= maxSize {
		return []string{text}
	}
	if level >= len(separators) {
		return chunkByCharacters(text, maxSize, overlap)
	}

	sep := separators[level]
	if sep == "" {
		return chunkByCharacters(text, maxSize, overlap)
	}

	segments := splitKeepingSeparator(text, sep)
	if len(segments) <= 1 {
		return splitByHierarchy(text, maxSize, overlap, level+1)
	}

	var pieces []string
	var current strings.Builder
	for _, seg := range segments {
		if current.Len() > 0 && current.Len()+len(seg) > maxSize {
			pieces = append(pieces, current.String())
			current.Reset()
			if overlap > 0 {
				current.WriteString(tailOverlap(pieces[len(pieces)-1], overlap))
			}
		}
		if len(seg) > maxSize {
			if current.Len() > 0 {
				pieces = append(pieces, current.String())
				current.Reset()
			}
			pieces = append(pieces, splitByHierarchy(seg, maxSize, overlap, level+1)...)
			continue
		}
		current.WriteString(seg)
	}
	if current.Len() > 0 {
		pieces = append(pieces, current.String())
	}
	return pieces
}

// splitKeepingSeparator splits text on sep, re-attaching sep to the end of
// every piece but the last so rejoining pieces reproduces the original text.
func splitKeepingSeparator(text, sep string) []string {
	parts := strings.Split(text, sep)
	if len(parts) <= 1 {
		return parts
	}
	out := make([]string, len(parts))
	for i, p := range parts {
		if i < len(parts)-1 {
			out[i] = p + sep
		} else {
			out[i] = p
		}
	}
	return out
}

// chunkByCharacters is the last resort: fixed-width windows with overlap,
// used when a single paragraph/line/word/sentence still exceeds maxSize.
func chunkByCharacters(text string, maxSize, overlap int) []string {
	if maxSize <= 0 {
		return []string{text}
	}
	if overlap >= maxSize {
		overlap = maxSize / 2
	}
	step := maxSize - overlap
	if step <= 0 {
		step = maxSize
	}

	var out []string
	for start := 0; start < len(text); start += step {
		end := start + maxSize
		if end > len(text) {
			end = len(text)
		}
		out = append(out, text[start:end])
		if end >= len(text) {
			break
		}
	}
	return out
}

func tailOverlap(s string, overlap int) string {
	if len(s) <= overlap {
		return s
	}
	return s[len(s)-overlap:]
}
