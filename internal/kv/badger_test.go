package kv

import (
	"bytes"
	"testing"
)

func TestBadger_SetGetDelete(t *testing.T) {
	dir := t.TempDir()
	b, err := NewBadger(dir)
	if err != nil {
		t.Fatalf("badger open: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })

	_, found, err := b.Get("k")
	if err != nil || found {
		t.Fatalf("miss expected: found=%v err=%v", found, err)
	}
	if err := b.Set("k", []byte("v1")); err != nil {
		t.Fatalf("set: %v", err)
	}
	v, found, err := b.Get("k")
	if err != nil || !found || !bytes.Equal(v, []byte("v1")) {
		t.Fatalf("get: %q found=%v err=%v", v, found, err)
	}
	if err := b.Delete("k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, found, _ = b.Get("k")
	if found {
		t.Fatalf("deleted key still present")
	}
}
