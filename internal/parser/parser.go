// Package parser dispatches a file to the parser that understands its
// extension, falling back to a generic text parser for anything else, then
// hands the result to splitter so every chunk respects the configured size
// ceiling.
package parser

import (
	"context"

	"codeindex/internal/chunker"
	"codeindex/internal/model"
	"codeindex/internal/splitter"
)

// Parser turns a file's content into chunks. Implementations must not panic
// or error out of malformed input; a best-effort single chunk is an
// acceptable degraded result.
type Parser interface {
	CanHandle(ext string) bool
	Parse(ctx context.Context, path string, content []byte) ([]model.Chunk, error)
}

// Registry dispatches by extension across registered parsers, falling back
// to a catch-all when nothing claims the extension.
type Registry struct {
	parsers  []Parser
	fallback Parser
}

// NewRegistry builds the default registry: the AST-backed parser for every
// language the tree-sitter grammars cover, and the universal text parser
// for everything else.
func NewRegistry() *Registry {
	return &Registry{
		parsers:  []Parser{NewASTParser()},
		fallback: NewUniversalTextParser(),
	}
}

// Register adds p ahead of the existing parsers, so it is preferred over
// the defaults for any extension it claims.
func (r *Registry) Register(p Parser) {
	r.parsers = append([]Parser{p}, r.parsers...)
}

// Lookup returns the parser that claims ext, or the fallback if none does.
func (r *Registry) Lookup(ext string) Parser {
	for _, p := range r.parsers {
		if p.CanHandle(ext) {
			return p
		}
	}
	return r.fallback
}

// ParseFile parses content for path with the appropriate parser, then
// splits any oversized chunk per opts. An empty opts.MaxChunkSize disables
// splitting.
func (r *Registry) ParseFile(ctx context.Context, path string, content []byte, opts splitter.Options) ([]model.Chunk, error) {
	p := r.Lookup(extOf(path))
	chunks, err := p.Parse(ctx, path, content)
	if err != nil {
		return nil, err
	}

	out := make([]model.Chunk, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, splitter.Split(c, opts)...)
	}
	return out, nil
}

// plainTextLanguages maps extensions with no tree-sitter grammar but that
// are still clearly source-adjacent text, not binary, so the universal
// text parser should still index them.
var plainTextLanguages = map[string]model.Language{
	".md":       model.LanguageMarkdown,
	".markdown": model.LanguageMarkdown,
	".yaml":     model.LanguageYAML,
	".yml":      model.LanguageYAML,
	".json":     model.LanguageJSON,
	".xml":      model.LanguageXML,
	".sql":      model.LanguageSQL,
	".sh":       model.LanguageShell,
	".bash":     model.LanguageShell,
}

// LanguageForPath resolves the language a path would be indexed under,
// without parsing it: an AST-backed language if a grammar covers the
// extension, a recognized plain-text language, or LanguageUnknown.
// LanguageUnknown does not by itself mean a file is unparseable — the
// universal text parser handles it — it is metadata only.
func LanguageForPath(path string) model.Language {
	ext := extOf(path)
	if cfg := chunker.GetLanguageConfig("x" + ext); cfg != nil {
		return languageFromString(cfg.Name)
	}
	if lang, ok := plainTextLanguages[ext]; ok {
		return lang
	}
	return model.LanguageUnknown
}

func extOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '.' {
			return path[i:]
		}
		if path[i] == '/' {
			break
		}
	}
	return ""
}
