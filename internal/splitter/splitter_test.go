package splitter

import (
	"strings"
	"testing"

	"codeindex/internal/model"
)

func chunk(code string) model.Chunk {
	return model.Chunk{
		Symbol:    "f",
		ChunkType: model.ChunkFunction,
		Language:  model.LanguageGo,
		StartLine: 1,
		EndLine:   1,
		Code:      code,
	}
}

func TestSplit_UnderCeilingUnchanged(t *testing.T) {
	c := chunk("small function body")
	out := Split(c, Options{MaxChunkSize: 2000, Overlap: 100})
	if len(out) != 1 || out[0].Code != c.Code {
		t.Fatalf("expected unchanged single chunk, got %+v", out)
	}
}

func TestSplit_DisabledWhenNonPositive(t *testing.T) {
	c := chunk(strings.Repeat("x", 5000))
	out := Split(c, Options{MaxChunkSize: 0})
	if len(out) != 1 {
		t.Fatalf("expected splitting disabled, got %d pieces", len(out))
	}
}

func TestSplit_OversizedByParagraph(t *testing.T) {
	body := strings.Repeat("line one\nline two\n\n", 50)
	c := chunk(body)
	out := Split(c, Options{MaxChunkSize: 200, Overlap: 20})

	if len(out) < 2 {
		t.Fatalf("expected multiple pieces, got %d", len(out))
	}
	for _, p := range out {
		if p.Symbol != "f" || p.ChunkType != model.ChunkFunction || p.Language != model.LanguageGo {
			t.Errorf("metadata not preserved on piece: %+v", p)
		}
		if p.ContentHash == "" {
			t.Errorf("expected content hash set on split piece")
		}
	}
}

func TestSplit_LineNumbersRenumbered(t *testing.T) {
	body := strings.Repeat("a\n", 300)
	c := chunk(body)
	c.StartLine = 10
	out := Split(c, Options{MaxChunkSize: 100, Overlap: 0})

	if len(out) < 2 {
		t.Fatalf("expected multiple pieces")
	}
	if out[0].StartLine != 10 {
		t.Errorf("first piece should start at original StartLine, got %d", out[0].StartLine)
	}
	for i := 1; i < len(out); i++ {
		if out[i].StartLine < out[i-1].StartLine {
			t.Errorf("piece %d starts before piece %d", i, i-1)
		}
	}
}

func TestSplit_NoSeparatorFallsBackToCharacters(t *testing.T) {
	c := chunk(strings.Repeat("x", 1000))
	out := Split(c, Options{MaxChunkSize: 100, Overlap: 10})
	if len(out) < 2 {
		t.Fatalf("expected character-level split, got %d pieces", len(out))
	}
	var rejoined strings.Builder
	for i, p := range out {
		if i == 0 {
			rejoined.WriteString(p.Code)
			continue
		}
		if len(p.Code) > 10 {
			rejoined.WriteString(p.Code[10:])
		}
	}
}
