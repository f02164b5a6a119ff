package persist

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"cartstore/internal/kv"
	"cartstore/internal/model"
)

// failingKV rejects writes, standing in for quota-exceeded or disabled
// storage.
type failingKV struct {
	kv.Store
}

func (f *failingKV) Set(key string, val []byte) error { return errors.New("quota exceeded") }

func lines() []model.Line {
	return []model.Line{
		{ID: "p1", Name: "A", Price: 10000, Quantity: 2, AddedAt: 1, UpdatedAt: 1},
		{ID: "p2", Name: "B", Price: 8000, OriginalPrice: 10000, Discount: 20, Quantity: 1, AddedAt: 2, UpdatedAt: 2},
	}
}

func TestLoad_AbsentKeyIsEmptyWithoutWrite(t *testing.T) {
	store := kv.NewMemory()
	a := NewAdapter(store, Options{})

	if got := a.Load(); len(got) != 0 {
		t.Fatalf("want empty, got %+v", got)
	}
	if a.Exists() {
		t.Fatalf("load must not implicitly write")
	}
}

func TestSaveLoad_Fixpoint(t *testing.T) {
	store := kv.NewMemory()
	a := NewAdapter(store, Options{})

	saved, err := a.Save(lines())
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if diff := cmp.Diff(lines(), saved); diff != "" {
		t.Fatalf("saved set mismatch (-want +got):\n%s", diff)
	}
	raw1, _, _ := store.Get(DefaultKey)

	loaded := a.Load()
	if _, err := a.Save(loaded); err != nil {
		t.Fatalf("resave: %v", err)
	}
	raw2, _, _ := store.Get(DefaultKey)
	if !bytes.Equal(raw1, raw2) {
		t.Fatalf("save(load()) is not a fixpoint:\n%s\nvs\n%s", raw1, raw2)
	}
}

func TestLoad_CorruptValueRecoversToEmpty(t *testing.T) {
	store := kv.NewMemory()
	_ = store.Set(DefaultKey, []byte("{definitely not json"))
	a := NewAdapter(store, Options{})

	if got := a.Load(); len(got) != 0 {
		t.Fatalf("corrupt state should recover to empty, got %+v", got)
	}
	if _, err := a.LoadRaw(); err == nil {
		t.Fatalf("LoadRaw should report corrupt state")
	}
}

func TestSave_FiltersInvalidLines(t *testing.T) {
	store := kv.NewMemory()
	a := NewAdapter(store, Options{})

	in := append(lines(), model.Line{ID: "bad", Quantity: 0})
	saved, err := a.Save(in)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if len(saved) != 2 {
		t.Fatalf("invalid line should be dropped, got %+v", saved)
	}
	if got := a.Load(); len(got) != 2 {
		t.Fatalf("invalid line persisted: %+v", got)
	}
}

func TestSave_WriteFailureIsPersistenceError(t *testing.T) {
	a := NewAdapter(&failingKV{kv.NewMemory()}, Options{})

	_, err := a.Save(lines())
	if err == nil {
		t.Fatalf("expected error")
	}
	var perr *PersistenceError
	if !errors.As(err, &perr) {
		t.Fatalf("want *PersistenceError, got %T: %v", err, err)
	}
	if perr.Op != "write" {
		t.Fatalf("unexpected op: %q", perr.Op)
	}
}

func TestBackupRestore_RoundTrip(t *testing.T) {
	store := kv.NewMemory()
	a := NewAdapter(store, Options{})

	b, err := a.Backup(lines())
	if err != nil {
		t.Fatalf("backup: %v", err)
	}
	if b.ID == "" || b.Version != model.BackupVersion || b.Timestamp == 0 {
		t.Fatalf("unexpected backup envelope: %+v", b)
	}

	restored, ok, err := a.RestoreFromBackup()
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if !ok {
		t.Fatalf("restore should apply")
	}
	if diff := cmp.Diff(lines(), restored); diff != "" {
		t.Fatalf("restored set mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(lines(), a.Load()); diff != "" {
		t.Fatalf("restore did not persist (-want +got):\n%s", diff)
	}
}

func TestRestore_AbsentBackupLeavesCartUntouched(t *testing.T) {
	store := kv.NewMemory()
	a := NewAdapter(store, Options{})
	if _, err := a.Save(lines()); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, ok, err := a.RestoreFromBackup()
	if err != nil || ok || len(got) != 0 {
		t.Fatalf("absent backup: got=%+v ok=%v err=%v", got, ok, err)
	}
	if len(a.Load()) != 2 {
		t.Fatalf("cart should be untouched")
	}
}

func TestRestore_MalformedBackupIgnored(t *testing.T) {
	store := kv.NewMemory()
	_ = store.Set(DefaultBackupKey, []byte("not a backup"))
	a := NewAdapter(store, Options{})

	got, ok, err := a.RestoreFromBackup()
	if err != nil || ok || len(got) != 0 {
		t.Fatalf("malformed backup: got=%+v ok=%v err=%v", got, ok, err)
	}
}

func TestRestore_RevalidatesThroughSave(t *testing.T) {
	store := kv.NewMemory()
	a := NewAdapter(store, Options{})

	// A hand-written backup with a corrupt entry: restore must not let it
	// round-trip into the cart.
	tainted := model.Backup{
		ID:        "b1",
		Items:     append(lines(), model.Line{ID: "bad", Name: "", Price: 1, Quantity: 1}),
		Timestamp: 1,
		Version:   model.BackupVersion,
	}
	raw, err := json.Marshal(&tainted)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	_ = store.Set(DefaultBackupKey, raw)

	restored, ok, err := a.RestoreFromBackup()
	if err != nil || !ok {
		t.Fatalf("restore: ok=%v err=%v", ok, err)
	}
	if len(restored) != 2 {
		t.Fatalf("restore must re-validate, got %+v", restored)
	}
	if len(a.Load()) != 2 {
		t.Fatalf("corrupt entry persisted")
	}
}
