package store

import (
	"os"
	"testing"

	"codeindex/internal/db"
	"codeindex/internal/model"
)

func setupTestStore(t *testing.T) *VectorStore {
	t.Helper()

	cfg := db.DefaultConfig(":memory:")
	database, err := db.Open(cfg)
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	dir := t.TempDir()
	s, err := Open(database, cfg.Dialect(), dir)
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	return s
}

func TestVectorStore_UpsertAndGetFile(t *testing.T) {
	s := setupTestStore(t)

	f := model.File{Path: "main.go", SizeBytes: 42, Language: model.LanguageGo}
	id, err := s.UpsertFile(f)
	if err != nil {
		t.Fatalf("UpsertFile: %v", err)
	}
	if id == 0 {
		t.Fatalf("expected non-zero id")
	}

	got, ok, err := s.GetFileByPath("main.go")
	if err != nil {
		t.Fatalf("GetFileByPath: %v", err)
	}
	if !ok {
		t.Fatalf("expected file to be found")
	}
	if got.ID != id || got.SizeBytes != 42 || got.Language != model.LanguageGo {
		t.Errorf("unexpected file: %+v", got)
	}

	f.ID = id
	f.SizeBytes = 99
	if _, err := s.UpsertFile(f); err != nil {
		t.Fatalf("updating file: %v", err)
	}
	got, _, _ = s.GetFileByPath("main.go")
	if got.SizeBytes != 99 {
		t.Errorf("update did not take effect, size = %d", got.SizeBytes)
	}
}

func TestVectorStore_GetFileByPath_NotFound(t *testing.T) {
	s := setupTestStore(t)
	_, ok, err := s.GetFileByPath("missing.go")
	if err != nil {
		t.Fatalf("GetFileByPath: %v", err)
	}
	if ok {
		t.Errorf("expected not found")
	}
}

func chunkFixture(path, symbol, hash string, line int) model.Chunk {
	return model.Chunk{
		FilePath:    path,
		Symbol:      symbol,
		StartLine:   line,
		EndLine:     line + 1,
		Code:        "func " + symbol + "() {}",
		ChunkType:   model.ChunkFunction,
		Language:    model.LanguageGo,
		ContentHash: hash,
	}
}

func TestVectorStore_InsertAndFetchChunks(t *testing.T) {
	s := setupTestStore(t)

	chunks := []model.Chunk{
		chunkFixture("a.go", "Foo", "h1", 1),
		chunkFixture("a.go", "Bar", "h2", 10),
	}
	ids, err := s.InsertChunksBatch(chunks)
	if err != nil {
		t.Fatalf("InsertChunksBatch: %v", err)
	}
	if len(ids) != 2 || ids[0] == 0 || ids[1] == 0 {
		t.Fatalf("expected two non-zero ids, got %+v", ids)
	}

	byHash, err := s.GetChunksByHashes([]string{"h1"})
	if err != nil {
		t.Fatalf("GetChunksByHashes: %v", err)
	}
	if len(byHash) != 1 || byHash[0].Symbol != "Foo" {
		t.Fatalf("unexpected hash lookup result: %+v", byHash)
	}

	byPath, err := s.GetChunksByFilePath("a.go")
	if err != nil {
		t.Fatalf("GetChunksByFilePath: %v", err)
	}
	if len(byPath) != 2 {
		t.Fatalf("expected 2 chunks for a.go, got %d", len(byPath))
	}

	byIDs, err := s.GetChunksByIDs(ids)
	if err != nil {
		t.Fatalf("GetChunksByIDs: %v", err)
	}
	if len(byIDs) != 2 {
		t.Fatalf("expected 2 chunks by id, got %d", len(byIDs))
	}
}

func TestVectorStore_FilterAndInsertEmbeddings(t *testing.T) {
	s := setupTestStore(t)

	ids, err := s.InsertChunksBatch([]model.Chunk{chunkFixture("b.go", "Baz", "h3", 1)})
	if err != nil {
		t.Fatalf("InsertChunksBatch: %v", err)
	}
	chunkID := ids[0]

	missing, err := s.FilterExistingEmbeddings([]int64{chunkID}, "lmstudio", "nomic")
	if err != nil {
		t.Fatalf("FilterExistingEmbeddings: %v", err)
	}
	if len(missing) != 1 {
		t.Fatalf("expected chunk to be missing an embedding, got %+v", missing)
	}

	rec := model.EmbeddingRecord{
		ChunkID: chunkID, Provider: "lmstudio", Model: "nomic",
		Dimensions: 3, Vector: []float32{0.1, 0.2, 0.3}, Status: model.EmbeddingSuccess,
	}
	status, err := s.InsertEmbeddingsBatch([]model.EmbeddingRecord{rec})
	if err != nil {
		t.Fatalf("InsertEmbeddingsBatch: %v", err)
	}
	if status[chunkID] != model.EmbeddingSuccess {
		t.Errorf("status = %v, want success", status[chunkID])
	}

	missing, err = s.FilterExistingEmbeddings([]int64{chunkID}, "lmstudio", "nomic")
	if err != nil {
		t.Fatalf("FilterExistingEmbeddings: %v", err)
	}
	if len(missing) != 0 {
		t.Errorf("expected no missing embeddings after insert, got %+v", missing)
	}

	if err := s.DeleteEmbeddingsForChunks([]int64{chunkID}, "lmstudio", "nomic"); err != nil {
		t.Fatalf("DeleteEmbeddingsForChunks: %v", err)
	}
	missing, _ = s.FilterExistingEmbeddings([]int64{chunkID}, "lmstudio", "nomic")
	if len(missing) != 1 {
		t.Errorf("expected embedding gone after delete, missing = %+v", missing)
	}
}

func TestVectorStore_FragmentCountsAndClearAll(t *testing.T) {
	s := setupTestStore(t)

	if _, err := s.UpsertFile(model.File{Path: "c.go", Language: model.LanguageGo}); err != nil {
		t.Fatalf("UpsertFile: %v", err)
	}
	if _, err := s.InsertChunksBatch([]model.Chunk{chunkFixture("c.go", "Q", "h4", 1)}); err != nil {
		t.Fatalf("InsertChunksBatch: %v", err)
	}

	counts, err := s.FragmentCounts()
	if err != nil {
		t.Fatalf("FragmentCounts: %v", err)
	}
	if counts["files"] != 1 || counts["chunks"] != 1 {
		t.Errorf("unexpected fragment counts: %+v", counts)
	}

	if err := s.ClearAll(); err != nil {
		t.Fatalf("ClearAll: %v", err)
	}
	counts, _ = s.FragmentCounts()
	if counts["files"] != 0 || counts["chunks"] != 0 {
		t.Errorf("expected empty store after ClearAll, got %+v", counts)
	}
}

func TestVectorStore_Optimize(t *testing.T) {
	s := setupTestStore(t)
	if err := s.Optimize(); err != nil {
		t.Fatalf("Optimize: %v", err)
	}
}

func TestVectorStore_UsesLockFileInDir(t *testing.T) {
	cfg := db.DefaultConfig(":memory:")
	database, err := db.Open(cfg)
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	dir := t.TempDir()
	s, err := Open(database, cfg.Dialect(), dir)
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	if _, err := s.UpsertFile(model.File{Path: "x.go", Language: model.LanguageGo}); err != nil {
		t.Fatalf("UpsertFile: %v", err)
	}

	if _, err := os.Stat(dir + "/store.lock"); err != nil {
		t.Errorf("expected lock file to be created in %s: %v", dir, err)
	}
}
