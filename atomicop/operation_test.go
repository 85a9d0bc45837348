package atomicop

import (
	"path/filepath"
	"testing"

	"ridtree/pagecache"
	"ridtree/walog"
)

func newTestRig(t *testing.T) (*pagecache.Cache, *Coordinator) {
	t.Helper()
	cache, err := pagecache.NewCache(16)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	if err := cache.OpenFile(filepath.Join(t.TempDir(), "index.db"), 1); err != nil {
		t.Fatalf("open file: %v", err)
	}
	log, err := walog.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open walog: %v", err)
	}
	return cache, NewCoordinator(log)
}

func TestRollbackRestoresBeforeImage(t *testing.T) {
	cache, coord := newTestRig(t)

	fr, err := cache.NewPage(1)
	if err != nil {
		t.Fatalf("new page: %v", err)
	}
	copy(fr.Data, []byte("original"))
	cache.ReleasePageFromWrite(fr, true)
	if err := cache.Flush(1); err != nil {
		t.Fatalf("flush: %v", err)
	}

	op := coord.Begin(cache)
	fr2, err := cache.LoadPageForWrite(fr.ID)
	if err != nil {
		t.Fatalf("load for write: %v", err)
	}
	op.CapturePage(fr2)
	copy(fr2.Data, []byte("mutated!"))
	cache.ReleasePageFromWrite(fr2, true)

	if err := op.Rollback(); err != nil {
		t.Fatalf("rollback: %v", err)
	}

	got, err := cache.LoadPageForRead(fr.ID)
	if err != nil {
		t.Fatalf("load for read: %v", err)
	}
	defer cache.ReleasePageFromRead(got)
	if string(got.Data[:8]) != "original" {
		t.Fatalf("expected rollback to restore original contents, got %q", got.Data[:8])
	}
}

func TestCommitLeavesMutationInPlace(t *testing.T) {
	cache, coord := newTestRig(t)

	fr, err := cache.NewPage(1)
	if err != nil {
		t.Fatalf("new page: %v", err)
	}
	cache.ReleasePageFromWrite(fr, true)

	op := coord.Begin(cache)
	fr2, err := cache.LoadPageForWrite(fr.ID)
	if err != nil {
		t.Fatalf("load for write: %v", err)
	}
	op.CapturePage(fr2)
	copy(fr2.Data, []byte("committed"))
	cache.ReleasePageFromWrite(fr2, true)

	if err := op.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	got, err := cache.LoadPageForRead(fr.ID)
	if err != nil {
		t.Fatalf("load for read: %v", err)
	}
	defer cache.ReleasePageFromRead(got)
	if string(got.Data[:9]) != "committed" {
		t.Fatalf("expected committed contents to remain, got %q", got.Data[:9])
	}
}

func TestRollbackAfterCommitIsNoop(t *testing.T) {
	cache, coord := newTestRig(t)
	op := coord.Begin(cache)
	if err := op.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := op.Rollback(); err != nil {
		t.Fatalf("rollback after commit should be a no-op, got error: %v", err)
	}
}
