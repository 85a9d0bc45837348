package tree

import (
	"errors"
	"testing"

	"ridtree/atomicop"
	"ridtree/pagecache"
	"ridtree/walog"
)

func TestClearEmptiesTreeInPlace(t *testing.T) {
	tr := newTestTree(t, int64Config())
	for i := int64(0); i < 10; i++ {
		tr.Put(i, r(uint32(i), 0, 0))
	}
	if err := tr.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if got := tr.Size(); got != 0 {
		t.Fatalf("Size() after Clear = %d, want 0", got)
	}
	if values, err := tr.Get(int64(0)); err != nil || len(values) != 0 {
		t.Fatalf("expected an empty multiset after Clear, got %v, %v", values, err)
	}
	// The tree should still be usable after Clear.
	if err := tr.Put(int64(1), r(1, 0, 0)); err != nil {
		t.Fatalf("Put after Clear: %v", err)
	}
}

func TestRollbackResyncsRootAndSizeFromMeta(t *testing.T) {
	tr := newTestTree(t, int64Config())
	for i := int64(0); i < 5; i++ {
		if err := tr.Put(i, r(uint32(i), 0, 0)); err != nil {
			t.Fatal(err)
		}
	}
	wantRoot, wantSize := tr.root, tr.size

	// Simulate an operation that mutated the in-memory root/size fields
	// (the way put/remove do, ahead of their enclosing op committing) and
	// then had to roll back — rollback must reload both from the meta
	// page rather than leave them at the speculative values.
	op := tr.coord.Begin(tr.cache)
	tr.root = 999999
	tr.size = 999999
	tr.rollback(op)

	if tr.root != wantRoot {
		t.Fatalf("root after rollback = %d, want %d", tr.root, wantRoot)
	}
	if tr.size != wantSize {
		t.Fatalf("size after rollback = %d, want %d", tr.size, wantSize)
	}
}

func TestClosedTreeRejectsOperations(t *testing.T) {
	tr := newTestTree(t, int64Config())
	tr.Put(int64(1), r(1, 0, 0))
	if err := tr.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := tr.Put(int64(2), r(1, 0, 0)); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestReopenPreservesData(t *testing.T) {
	dir := t.TempDir()
	cache, err := pagecache.NewCache(64)
	if err != nil {
		t.Fatal(err)
	}
	log, err := walog.Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	coord := atomicop.NewCoordinator(log)
	lockMgr := atomicop.NewManager()

	tr, err := Create(dir, "reopen", int64Config(), cache, coord, lockMgr)
	if err != nil {
		t.Fatal(err)
	}
	for i := int64(0); i < 50; i++ {
		if err := tr.Put(i, r(uint32(i), 0, 0)); err != nil {
			t.Fatal(err)
		}
	}
	if err := tr.Close(); err != nil {
		t.Fatal(err)
	}

	tr2, err := Open(dir, "reopen", int64Config(), cache, coord, lockMgr)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer tr2.Close()

	if got := tr2.Size(); got != 50 {
		t.Fatalf("Size() after reopen = %d, want 50", got)
	}
	values, err := tr2.Get(int64(25))
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if len(values) != 1 || values[0].ClusterID != 25 {
		t.Fatalf("Get(25) after reopen = %v", values)
	}
}
