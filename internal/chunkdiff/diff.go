// Package chunkdiff reconciles freshly parsed chunks for a file against the
// chunks already on record, keyed on (symbol, content_hash) rather than
// path+hash, so the comparison works at chunk granularity instead of file
// granularity.
package chunkdiff

import (
	"sort"

	"codeindex/internal/model"
)

// pairKey is the comparator's join key: symbol plus content hash. Chunks
// without a symbol (plain text windows) still compare equal only when both
// symbol and hash match, so two anonymous chunks at different hashes never
// collide.
type pairKey struct {
	symbol string
	hash   string
}

// Diff reconciles newChunks (freshly parsed) against existingChunks
// (on record for the same file) and returns the four disjoint sets.
// Pairing is by (symbol, content_hash): unmatched new chunks are Added,
// unmatched existing chunks are Deleted. A new chunk whose symbol matches
// an existing chunk but whose hash differs is classified Modified (the
// superseded existing chunk counts as matched and appears in no set, not
// even Deleted; the Modified entry carries the new chunk without the
// existing id); exact
// (symbol, hash) matches are Unchanged and keep the existing chunk's id.
// The comparator is order-independent and deterministic.
func Diff(newChunks, existingChunks []model.Chunk) model.DiffResult {
	existingBySymbol := make(map[string][]model.Chunk)
	existingByKey := make(map[pairKey]model.Chunk)
	for _, c := range existingChunks {
		existingBySymbol[c.Symbol] = append(existingBySymbol[c.Symbol], c)
		existingByKey[pairKey{c.Symbol, c.ContentHash}] = c
	}

	matchedExisting := make(map[int64]bool, len(existingChunks))

	var result model.DiffResult

	for _, nc := range newChunks {
		key := pairKey{nc.Symbol, nc.ContentHash}
		if ec, ok := existingByKey[key]; ok {
			// Exact match: unchanged, reuse existing identity.
			unchanged := nc
			unchanged.ID = ec.ID
			result.Unchanged = append(result.Unchanged, unchanged)
			matchedExisting[ec.ID] = true
			continue
		}

		// Same symbol, different hash: modified. The new chunk is reported;
		// the prior chunk for that symbol is marked matched so it is not
		// listed as Deleted.
		if candidates, ok := existingBySymbol[nc.Symbol]; ok && nc.Symbol != "" {
			var superseded *model.Chunk
			for i := range candidates {
				if !matchedExisting[candidates[i].ID] {
					superseded = &candidates[i]
					break
				}
			}
			if superseded != nil {
				result.Modified = append(result.Modified, nc)
				matchedExisting[superseded.ID] = true
				continue
			}
		}

		result.Added = append(result.Added, nc)
	}

	for _, ec := range existingChunks {
		if !matchedExisting[ec.ID] {
			result.Deleted = append(result.Deleted, ec)
		}
	}

	sortChunks(result.Added)
	sortChunks(result.Modified)
	sortChunks(result.Deleted)
	sortChunks(result.Unchanged)

	return result
}

func sortChunks(chunks []model.Chunk) {
	sort.Slice(chunks, func(i, j int) bool {
		if chunks[i].Symbol != chunks[j].Symbol {
			return chunks[i].Symbol < chunks[j].Symbol
		}
		if chunks[i].StartLine != chunks[j].StartLine {
			return chunks[i].StartLine < chunks[j].StartLine
		}
		return chunks[i].ContentHash < chunks[j].ContentHash
	})
}
