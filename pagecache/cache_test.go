package pagecache

import (
	"path/filepath"
	"testing"
)

func newTestCache(t *testing.T, capacity int) (*Cache, uint32) {
	t.Helper()
	c, err := NewCache(capacity)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	path := filepath.Join(t.TempDir(), "index.db")
	if err := c.OpenFile(path, 1); err != nil {
		t.Fatalf("open file: %v", err)
	}
	return c, 1
}

func TestNewPageRoundTripsThroughFlush(t *testing.T) {
	c, fileID := newTestCache(t, 8)

	fr, err := c.NewPage(fileID)
	if err != nil {
		t.Fatalf("new page: %v", err)
	}
	copy(fr.Data, []byte("hello page"))
	c.ReleasePageFromWrite(fr, true)

	if err := c.Flush(fileID); err != nil {
		t.Fatalf("flush: %v", err)
	}

	got, err := c.LoadPageForRead(fr.ID)
	if err != nil {
		t.Fatalf("load for read: %v", err)
	}
	defer c.ReleasePageFromRead(got)

	if string(got.Data[:10]) != "hello page" {
		t.Fatalf("unexpected page contents: %q", got.Data[:10])
	}
}

func TestEvictionSkipsPinnedPages(t *testing.T) {
	c, fileID := newTestCache(t, 2)

	pinned, err := c.NewPage(fileID)
	if err != nil {
		t.Fatalf("new page: %v", err)
	}
	// pinned stays pinned (no release) for the rest of the test.

	second, err := c.NewPage(fileID)
	if err != nil {
		t.Fatalf("new page: %v", err)
	}
	c.ReleasePageFromWrite(second, true)
	if err := c.Flush(fileID); err != nil {
		t.Fatalf("flush: %v", err)
	}

	// A third page forces eviction with capacity 2; the pinned page must
	// survive and the unpinned one is fair game.
	third, err := c.NewPage(fileID)
	if err != nil {
		t.Fatalf("new page under eviction pressure: %v", err)
	}
	c.ReleasePageFromWrite(third, true)

	if _, exists := c.frames[pinned.ID]; !exists {
		t.Fatalf("pinned page was evicted")
	}
}

func TestGetFilledUpToGrowsWithAllocation(t *testing.T) {
	c, fileID := newTestCache(t, 8)

	before, err := c.GetFilledUpTo(fileID)
	if err != nil {
		t.Fatalf("get filled up to: %v", err)
	}

	fr, err := c.NewPage(fileID)
	if err != nil {
		t.Fatalf("new page: %v", err)
	}
	c.ReleasePageFromWrite(fr, true)

	after, err := c.GetFilledUpTo(fileID)
	if err != nil {
		t.Fatalf("get filled up to: %v", err)
	}
	if after != before+1 {
		t.Fatalf("expected filled-up-to to grow by 1, got %d -> %d", before, after)
	}
}
