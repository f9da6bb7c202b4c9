package parser

import (
	"context"
	"strings"

	"codeindex/internal/chunker"
	"codeindex/internal/hash"
	"codeindex/internal/model"
)

// ASTParser claims any extension the tree-sitter grammars cover and
// delegates to chunker.ASTChunker for the actual AST walk.
type ASTParser struct {
	chunker *chunker.ASTChunker
}

// NewASTParser builds an ASTParser with the default chunker.
func NewASTParser() *ASTParser {
	return &ASTParser{chunker: chunker.NewASTChunker()}
}

// CanHandle reports whether ext has a registered tree-sitter grammar.
func (p *ASTParser) CanHandle(ext string) bool {
	return chunker.GetLanguageConfig("x" + ext) != nil
}

// Parse walks content's AST and converts the resulting chunks into the
// canonical model, normalizing each chunk's content hash.
func (p *ASTParser) Parse(ctx context.Context, path string, content []byte) ([]model.Chunk, error) {
	raw, err := p.chunker.ChunkFile(ctx, path, content)
	if err != nil {
		// Malformed input must not propagate as a hard failure; fall back
		// to a single best-effort chunk covering the whole file.
		return NewUniversalTextParser().Parse(ctx, path, content)
	}

	out := make([]model.Chunk, 0, len(raw))
	for _, c := range raw {
		out = append(out, model.Chunk{
			FilePath:    path,
			Symbol:      c.NodeName,
			StartLine:   c.StartLine,
			EndLine:     c.EndLine,
			Code:        c.Content,
			ChunkType:   classifyNodeType(c.NodeType),
			Language:    languageFromString(c.Language),
			ContentHash: hash.Hash(c.Content),
		})
	}
	return out, nil
}

// classifyNodeType maps a tree-sitter node type, which varies across
// grammars, onto the canonical ChunkType vocabulary.
func classifyNodeType(nodeType string) model.ChunkType {
	switch {
	case strings.Contains(nodeType, "interface"):
		return model.ChunkInterface
	case strings.Contains(nodeType, "enum"):
		return model.ChunkEnum
	case strings.Contains(nodeType, "class") || strings.Contains(nodeType, "struct") || strings.Contains(nodeType, "impl"):
		return model.ChunkStruct
	case strings.Contains(nodeType, "function") || strings.Contains(nodeType, "method") || nodeType == "arrow_function":
		return model.ChunkFunction
	case strings.Contains(nodeType, "module") || nodeType == "namespace_definition" || nodeType == "mod_item":
		return model.ChunkModule
	case nodeType == "import" || nodeType == "export_statement":
		return model.ChunkImport
	case nodeType == "gap" || nodeType == "block":
		return model.ChunkUnknown
	default:
		return model.ChunkUnknown
	}
}

func languageFromString(s string) model.Language {
	switch strings.ToLower(s) {
	case "go":
		return model.LanguageGo
	case "python":
		return model.LanguagePython
	case "javascript":
		return model.LanguageJavaScript
	case "typescript", "tsx":
		return model.LanguageTypeScript
	case "rust":
		return model.LanguageRust
	case "java":
		return model.LanguageJava
	case "c":
		return model.LanguageC
	case "cpp":
		return model.LanguageCPP
	case "ruby":
		return model.LanguageRuby
	default:
		return model.LanguageUnknown
	}
}
