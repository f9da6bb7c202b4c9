package chunkdiff

import (
	"testing"

	"codeindex/internal/model"
)

func chunk(id int64, symbol, hash string) model.Chunk {
	return model.Chunk{ID: id, Symbol: symbol, ContentHash: hash, StartLine: 1, EndLine: 2, Code: "x"}
}

func TestDiff_AllAdded(t *testing.T) {
	result := Diff([]model.Chunk{chunk(0, "a", "h1"), chunk(0, "b", "h2")}, nil)
	if len(result.Added) != 2 {
		t.Fatalf("Added = %d, want 2", len(result.Added))
	}
	if len(result.Modified) != 0 || len(result.Deleted) != 0 || len(result.Unchanged) != 0 {
		t.Fatalf("expected only Added, got %+v", result)
	}
}

func TestDiff_AllDeleted(t *testing.T) {
	result := Diff(nil, []model.Chunk{chunk(1, "a", "h1")})
	if len(result.Deleted) != 1 {
		t.Fatalf("Deleted = %d, want 1", len(result.Deleted))
	}
}

func TestDiff_Unchanged(t *testing.T) {
	existing := []model.Chunk{chunk(1, "a", "h1")}
	fresh := []model.Chunk{chunk(0, "a", "h1")}

	result := Diff(fresh, existing)
	if len(result.Unchanged) != 1 {
		t.Fatalf("Unchanged = %d, want 1", len(result.Unchanged))
	}
	if result.Unchanged[0].ID != 1 {
		t.Errorf("Unchanged chunk should reuse existing id, got %d", result.Unchanged[0].ID)
	}
	if len(result.Added) != 0 || len(result.Modified) != 0 || len(result.Deleted) != 0 {
		t.Fatalf("expected only Unchanged, got %+v", result)
	}
}

func TestDiff_Modified(t *testing.T) {
	existing := []model.Chunk{chunk(1, "a", "h1")}
	fresh := []model.Chunk{chunk(0, "a", "h2")}

	result := Diff(fresh, existing)
	if len(result.Modified) != 1 {
		t.Fatalf("Modified = %d, want 1", len(result.Modified))
	}
	if len(result.Added) != 0 || len(result.Deleted) != 0 || len(result.Unchanged) != 0 {
		t.Fatalf("expected only Modified, got %+v", result)
	}
}

func TestDiff_Mixed(t *testing.T) {
	existing := []model.Chunk{
		chunk(1, "keep", "h1"),
		chunk(2, "change", "hold"),
		chunk(3, "remove", "h3"),
	}
	fresh := []model.Chunk{
		chunk(0, "keep", "h1"),
		chunk(0, "change", "hnew"),
		chunk(0, "add", "h4"),
	}

	result := Diff(fresh, existing)
	if len(result.Unchanged) != 1 || result.Unchanged[0].Symbol != "keep" {
		t.Errorf("unexpected Unchanged: %+v", result.Unchanged)
	}
	if len(result.Modified) != 1 || result.Modified[0].Symbol != "change" {
		t.Errorf("unexpected Modified: %+v", result.Modified)
	}
	if len(result.Added) != 1 || result.Added[0].Symbol != "add" {
		t.Errorf("unexpected Added: %+v", result.Added)
	}
	if len(result.Deleted) != 1 || result.Deleted[0].Symbol != "remove" {
		t.Errorf("unexpected Deleted: %+v", result.Deleted)
	}
}

func TestDiff_OrderIndependent(t *testing.T) {
	existing := []model.Chunk{chunk(1, "a", "h1"), chunk(2, "b", "h2")}
	freshA := []model.Chunk{chunk(0, "a", "h1"), chunk(0, "b", "h2")}
	freshB := []model.Chunk{chunk(0, "b", "h2"), chunk(0, "a", "h1")}

	rA := Diff(freshA, existing)
	rB := Diff(freshB, existing)

	if len(rA.Unchanged) != len(rB.Unchanged) {
		t.Fatalf("diff result depends on input order")
	}
}
