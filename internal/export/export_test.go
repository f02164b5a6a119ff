package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"cartstore/internal/model"
)

func TestFilesystemExporter_WritesCartJSON(t *testing.T) {
	dir := t.TempDir()
	exp := NewFilesystemExporter(dir)
	lines := []model.Line{
		{ID: "p1", Name: "A", Price: 100, Quantity: 2, AddedAt: 1, UpdatedAt: 1},
		{ID: "p2", Name: "B", Price: 200, Quantity: 1, AddedAt: 2, UpdatedAt: 2},
	}
	if err := exp.Write("eid", lines); err != nil {
		t.Fatalf("Write error: %v", err)
	}

	b, err := os.ReadFile(filepath.Join(dir, "eid", "cart.json"))
	if err != nil {
		t.Fatalf("cart.json missing: %v", err)
	}
	var got []model.Line
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if len(got) != 2 || got[0].ID != "p1" {
		t.Fatalf("unexpected export: %+v", got)
	}
}

func TestFilesystemExporter_EmptyCartIsEmptyList(t *testing.T) {
	dir := t.TempDir()
	exp := NewFilesystemExporter(dir)
	if err := exp.Write("eid", nil); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	got, err := ReadExport(dir, "eid")
	if err != nil {
		t.Fatalf("ReadExport: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("want empty, got %+v", got)
	}
}
