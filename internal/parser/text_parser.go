package parser

import (
	"context"
	"strings"

	"codeindex/internal/hash"
	"codeindex/internal/model"
)

// defaultWindowLines and defaultWindowOverlap mirror the AST chunker's own
// fallback sizing for unsupported languages.
const (
	defaultWindowLines   = 50
	defaultWindowOverlap = 10
)

// UniversalTextParser is the catch-all for any extension no other parser
// claims. Small files become a single chunk; large files are split into
// fixed-size, overlapping line windows so no single chunk grows unbounded.
type UniversalTextParser struct {
	WindowLines   int
	WindowOverlap int
}

// NewUniversalTextParser builds a text parser with the default window size.
func NewUniversalTextParser() *UniversalTextParser {
	return &UniversalTextParser{WindowLines: defaultWindowLines, WindowOverlap: defaultWindowOverlap}
}

// CanHandle always returns true; this parser is the fallback of last
// resort and is never registered ahead of a language-specific parser.
func (p *UniversalTextParser) CanHandle(ext string) bool {
	return true
}

// Parse never errors: malformed or binary-looking input still produces a
// best-effort chunk sequence.
func (p *UniversalTextParser) Parse(ctx context.Context, path string, content []byte) ([]model.Chunk, error) {
	text := string(content)
	if text == "" {
		return nil, nil
	}
	lines := strings.Split(text, "\n")

	windowLines := p.WindowLines
	if windowLines <= 0 {
		windowLines = defaultWindowLines
	}
	overlap := p.WindowOverlap
	if overlap >= windowLines {
		overlap = windowLines / 2
	}

	if len(lines) <= windowLines {
		return []model.Chunk{{
			FilePath:    path,
			StartLine:   1,
			EndLine:     len(lines),
			Code:        text,
			ChunkType:   model.ChunkUnknown,
			Language:    model.LanguageUnknown,
			ContentHash: hash.Hash(text),
		}}, nil
	}

	step := windowLines - overlap
	if step <= 0 {
		step = windowLines
	}

	var chunks []model.Chunk
	for start := 0; start < len(lines); start += step {
		end := start + windowLines
		if end > len(lines) {
			end = len(lines)
		}
		body := strings.Join(lines[start:end], "\n")
		chunks = append(chunks, model.Chunk{
			FilePath:    path,
			StartLine:   start + 1,
			EndLine:     end,
			Code:        body,
			ChunkType:   model.ChunkUnknown,
			Language:    model.LanguageUnknown,
			ContentHash: hash.Hash(body),
		})
		if end >= len(lines) {
			break
		}
	}
	return chunks, nil
}
