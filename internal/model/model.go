// Package model defines the core records shared by every stage of the
// indexing pipeline: File, Chunk, EmbeddingRecord, and the ephemeral
// DiffResult produced when reconciling a file's chunks against the store.
package model

import "fmt"

// Language identifies the programming language a file or chunk belongs to.
type Language string

const (
	LanguageUnknown     Language = "unknown"
	LanguageGo          Language = "go"
	LanguagePython      Language = "python"
	LanguageJavaScript  Language = "javascript"
	LanguageTypeScript  Language = "typescript"
	LanguageRust        Language = "rust"
	LanguageJava        Language = "java"
	LanguageC           Language = "c"
	LanguageCPP         Language = "cpp"
	LanguageRuby        Language = "ruby"
	LanguagePHP         Language = "php"
	LanguageSwift       Language = "swift"
	LanguageKotlin      Language = "kotlin"
	LanguageScala       Language = "scala"
	LanguageCSharp      Language = "csharp"
	LanguageShell       Language = "shell"
	LanguageSQL         Language = "sql"
	LanguageYAML        Language = "yaml"
	LanguageJSON        Language = "json"
	LanguageXML         Language = "xml"
	LanguageMarkdown    Language = "markdown"
)

// ChunkType classifies the syntactic role of a Chunk.
type ChunkType string

const (
	ChunkFunction      ChunkType = "function"
	ChunkClass         ChunkType = "class"
	ChunkInterface     ChunkType = "interface"
	ChunkStruct        ChunkType = "struct"
	ChunkEnum          ChunkType = "enum"
	ChunkModule        ChunkType = "module"
	ChunkDocumentation ChunkType = "documentation"
	ChunkImport        ChunkType = "import"
	ChunkUnknown       ChunkType = "unknown"
)

// File is the unit of discovery: one path, as found by walking the
// repository root, with enough metadata to decide, on a later run, whether
// it needs re-parsing. The path is absolute when the root is absolute; it
// is not made relative to the repository.
type File struct {
	ID          int64
	Path        string
	MTime       int64
	SizeBytes   int64
	Language    Language
	ContentHash string
}

// Validate checks File's invariants: non-empty path, non-negative size.
func (f File) Validate() error {
	if f.Path == "" {
		return fmt.Errorf("file: path must not be empty")
	}
	if f.SizeBytes < 0 {
		return fmt.Errorf("file: size_bytes must be >= 0, got %d", f.SizeBytes)
	}
	return nil
}

// Chunk is a semantically meaningful unit of source extracted from a File.
type Chunk struct {
	ID          int64
	FileID      int64
	FilePath    string // denormalized for query convenience
	Symbol      string
	StartLine   int
	EndLine     int
	Code        string
	ChunkType   ChunkType
	Language    Language
	ContentHash string
}

// Validate checks Chunk's invariants.
func (c Chunk) Validate() error {
	if c.StartLine < 1 {
		return fmt.Errorf("chunk: start_line must be >= 1, got %d", c.StartLine)
	}
	if c.EndLine < c.StartLine {
		return fmt.Errorf("chunk: end_line (%d) must be >= start_line (%d)", c.EndLine, c.StartLine)
	}
	if c.Code == "" {
		return fmt.Errorf("chunk: code must not be empty")
	}
	return nil
}

// EmbeddingStatus reports the outcome of an embed attempt for one chunk.
type EmbeddingStatus string

const (
	EmbeddingSuccess EmbeddingStatus = "success"
	EmbeddingFailed  EmbeddingStatus = "failed"
)

// EmbeddingRecord is a vector computed for a Chunk by a specific
// provider/model pair.
type EmbeddingRecord struct {
	ChunkID    int64
	Provider   string
	Model      string
	Dimensions int
	Vector     []float32
	Status     EmbeddingStatus
}

// Validate checks EmbeddingRecord's invariants.
func (e EmbeddingRecord) Validate() error {
	if e.Status == EmbeddingSuccess {
		if e.Dimensions <= 0 {
			return fmt.Errorf("embedding: dimensions must be > 0 on success, got %d", e.Dimensions)
		}
		if len(e.Vector) != e.Dimensions {
			return fmt.Errorf("embedding: vector length %d != dimensions %d", len(e.Vector), e.Dimensions)
		}
	}
	return nil
}

// DiffResult is the ephemeral outcome of reconciling a file's freshly
// parsed chunks against the chunks already on record for it.
type DiffResult struct {
	Added     []Chunk
	Modified  []Chunk
	Deleted   []Chunk
	Unchanged []Chunk
}

// Total returns the number of chunks considered across all four sets.
func (d DiffResult) Total() int {
	return len(d.Added) + len(d.Modified) + len(d.Deleted) + len(d.Unchanged)
}
