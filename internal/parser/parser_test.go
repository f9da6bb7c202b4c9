package parser

import (
	"context"
	"strings"
	"testing"

	"codeindex/internal/splitter"
)

func TestRegistry_DispatchesGoToASTParser(t *testing.T) {
	r := NewRegistry()
	p := r.Lookup(".go")
	if _, ok := p.(*ASTParser); !ok {
		t.Fatalf("expected ASTParser for .go, got %T", p)
	}
}

func TestRegistry_FallsBackForUnknownExtension(t *testing.T) {
	r := NewRegistry()
	p := r.Lookup(".xyz")
	if _, ok := p.(*UniversalTextParser); !ok {
		t.Fatalf("expected UniversalTextParser fallback, got %T", p)
	}
}

func TestRegistry_ParseFile_Go(t *testing.T) {
	r := NewRegistry()
	src := []byte("package main\n\nfunc Hello() string {\n\treturn \"hi\"\n}\n")

	chunks, err := r.ParseFile(context.Background(), "main.go", src, splitter.DefaultOptions())
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if len(chunks) == 0 {
		t.Fatalf("expected at least one chunk")
	}
	found := false
	for _, c := range chunks {
		if c.Symbol == "Hello" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a chunk for Hello, got %+v", chunks)
	}
}

func TestRegistry_ParseFile_UnknownExtensionSmall(t *testing.T) {
	r := NewRegistry()
	chunks, err := r.ParseFile(context.Background(), "notes.xyz", []byte("hello world"), splitter.DefaultOptions())
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if len(chunks) != 1 || chunks[0].Code != "hello world" {
		t.Fatalf("expected single whole-file chunk, got %+v", chunks)
	}
}

func TestRegistry_ParseFile_UnknownExtensionLarge(t *testing.T) {
	r := NewRegistry()
	body := strings.Repeat("line\n", 500)

	chunks, err := r.ParseFile(context.Background(), "big.xyz", []byte(body), splitter.DefaultOptions())
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple windowed chunks, got %d", len(chunks))
	}
}

func TestRegistry_ParseFile_EmptyInput(t *testing.T) {
	r := NewRegistry()
	chunks, err := r.ParseFile(context.Background(), "empty.xyz", []byte(""), splitter.DefaultOptions())
	if err != nil {
		t.Fatalf("ParseFile on empty input should not error: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected no chunks for empty input, got %d", len(chunks))
	}
}

func TestExtOf(t *testing.T) {
	cases := map[string]string{
		"main.go":          ".go",
		"dir/sub/file.PY":  ".PY",
		"noext":            "",
		"a/b.tar.gz":       ".gz",
		".hidden":          ".hidden",
	}
	for path, want := range cases {
		if got := extOf(path); got != want {
			t.Errorf("extOf(%q) = %q, want %q", path, got, want)
		}
	}
}
