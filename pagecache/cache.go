package pagecache

import (
	"fmt"
	"os"
	"sync"

	"github.com/dgraph-io/ristretto/v2"
)

// Frame is a resident copy of one page plus the bookkeeping a caller needs
// to pin/unpin and mark it dirty. Data is always exactly PageSize bytes.
type Frame struct {
	ID   int64
	Data []byte

	mu       sync.RWMutex
	pinCount int32
	dirty    bool
}

func (fr *Frame) markDirty() {
	fr.mu.Lock()
	fr.dirty = true
	fr.mu.Unlock()
}

func (fr *Frame) isDirty() bool {
	fr.mu.RLock()
	defer fr.mu.RUnlock()
	return fr.dirty
}

// Cache is the shared page cache: one instance backs every file an index
// (and its null-key sibling file) opens. Eviction victims are chosen from
// an LRU recency list, the way the teacher's BufferPool does it, but a
// candidate is skipped if ristretto's admission policy still considers it
// hot — an actual behavioral difference from a plain hand-rolled LRU list.
type Cache struct {
	mu       sync.Mutex
	capacity int
	frames   map[int64]*Frame
	recency  []int64
	hot      *ristretto.Cache[int64, struct{}]
	files    map[uint32]*File
}

// NewCache builds a Cache admitting up to capacity resident pages.
func NewCache(capacity int) (*Cache, error) {
	hot, err := ristretto.NewCache(&ristretto.Config[int64, struct{}]{
		NumCounters: int64(capacity) * 10,
		MaxCost:     int64(capacity),
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("pagecache: init admission cache: %w", err)
	}
	return &Cache{
		capacity: capacity,
		frames:   make(map[int64]*Frame, capacity),
		hot:      hot,
		files:    make(map[uint32]*File),
	}, nil
}

// OpenFile registers a page file with the cache under fileID.
func (c *Cache) OpenFile(path string, fileID uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.files[fileID]; exists {
		return nil
	}
	f, err := OpenFile(path, fileID)
	if err != nil {
		return err
	}
	c.files[fileID] = f
	return nil
}

// CloseFile flushes and closes fileID's underlying file, dropping every
// resident frame that belongs to it.
func (c *Cache) CloseFile(fileID uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, exists := c.files[fileID]
	if !exists {
		return fmt.Errorf("pagecache: file %d not open", fileID)
	}
	if err := c.flushLocked(fileID); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	delete(c.files, fileID)
	for id := range c.frames {
		if fid, _ := SplitPageID(id); fid == fileID {
			delete(c.frames, id)
		}
	}
	c.dropRecencyForFile(fileID)
	return nil
}

// DeleteFile closes fileID (if open) and removes the underlying file from
// disk.
func (c *Cache) DeleteFile(path string, fileID uint32) error {
	c.mu.Lock()
	if f, exists := c.files[fileID]; exists {
		f.Close()
		delete(c.files, fileID)
		for id := range c.frames {
			if fid, _ := SplitPageID(id); fid == fileID {
				delete(c.frames, id)
			}
		}
	}
	c.mu.Unlock()
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("pagecache: delete %s: %w", path, err)
	}
	return nil
}

// TruncateFile resets fileID to hold zero pages and drops its resident
// frames without flushing them.
func (c *Cache) TruncateFile(fileID uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, exists := c.files[fileID]
	if !exists {
		return fmt.Errorf("pagecache: file %d not open", fileID)
	}
	for id := range c.frames {
		if fid, _ := SplitPageID(id); fid == fileID {
			delete(c.frames, id)
		}
	}
	c.dropRecencyForFile(fileID)
	return f.Truncate(0)
}

// IsFileExists reports whether fileID is currently open.
func (c *Cache) IsFileExists(fileID uint32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, exists := c.files[fileID]
	return exists
}

// GetFilledUpTo returns the page count currently allocated in fileID.
func (c *Cache) GetFilledUpTo(fileID uint32) (int64, error) {
	c.mu.Lock()
	f, exists := c.files[fileID]
	c.mu.Unlock()
	if !exists {
		return 0, fmt.Errorf("pagecache: file %d not open", fileID)
	}
	return f.FilledUpTo(), nil
}

// NewPage allocates a fresh, zeroed, dirty page in fileID and returns it
// pinned for write.
func (c *Cache) NewPage(fileID uint32) (*Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, exists := c.files[fileID]
	if !exists {
		return nil, fmt.Errorf("pagecache: file %d not open", fileID)
	}
	local := f.Allocate()
	id := GlobalPageID(fileID, local)

	fr := &Frame{ID: id, Data: make([]byte, PageSize), pinCount: 1, dirty: true}
	if err := c.admitLocked(fr); err != nil {
		return nil, err
	}
	return fr, nil
}

// LoadPageForRead pins pageID for read, loading it from disk on a cache
// miss.
func (c *Cache) LoadPageForRead(pageID int64) (*Frame, error) {
	return c.loadPage(pageID, false)
}

// LoadPageForWrite pins pageID for write, loading it from disk on a cache
// miss.
func (c *Cache) LoadPageForWrite(pageID int64) (*Frame, error) {
	return c.loadPage(pageID, true)
}

func (c *Cache) loadPage(pageID int64, forWrite bool) (*Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if fr, exists := c.frames[pageID]; exists {
		fmt.Printf("[pagecache] HIT  page=%d write=%v\n", pageID, forWrite)
		c.pin(fr)
		c.touchLocked(pageID)
		return fr, nil
	}

	fmt.Printf("[pagecache] MISS page=%d write=%v — loading from disk\n", pageID, forWrite)
	fileID, local := SplitPageID(pageID)
	f, exists := c.files[fileID]
	if !exists {
		return nil, fmt.Errorf("pagecache: file %d not open", fileID)
	}

	buf := make([]byte, PageSize)
	if err := f.ReadPage(local, buf); err != nil {
		return nil, err
	}

	fr := &Frame{ID: pageID, Data: buf, pinCount: 1}
	if err := c.admitLocked(fr); err != nil {
		return nil, err
	}
	return fr, nil
}

func (c *Cache) pin(fr *Frame) {
	fr.mu.Lock()
	fr.pinCount++
	fr.mu.Unlock()
}

// ReleasePageFromRead unpins a frame acquired via LoadPageForRead.
func (c *Cache) ReleasePageFromRead(fr *Frame) {
	fr.mu.Lock()
	if fr.pinCount > 0 {
		fr.pinCount--
	}
	fr.mu.Unlock()
}

// ReleasePageFromWrite unpins a frame acquired via LoadPageForWrite or
// NewPage, marking it dirty if the caller mutated it.
func (c *Cache) ReleasePageFromWrite(fr *Frame, dirty bool) {
	fr.mu.Lock()
	if fr.pinCount > 0 {
		fr.pinCount--
	}
	if dirty {
		fr.dirty = true
	}
	fr.mu.Unlock()
}

// admitLocked inserts fr into the cache, evicting an unpinned page first
// if the cache is at capacity. Caller holds c.mu.
func (c *Cache) admitLocked(fr *Frame) error {
	if len(c.frames) >= c.capacity {
		if err := c.evictLocked(); err != nil {
			return err
		}
	}
	c.frames[fr.ID] = fr
	c.hot.Set(fr.ID, struct{}{}, 1)
	c.touchLocked(fr.ID)
	return nil
}

// evictLocked picks the least recently used unpinned, non-hot frame and
// flushes it if dirty. Caller holds c.mu.
func (c *Cache) evictLocked() error {
	for i, id := range c.recency {
		fr, exists := c.frames[id]
		if !exists {
			c.recency = append(c.recency[:i], c.recency[i+1:]...)
			return c.evictLocked()
		}

		fr.mu.RLock()
		pinned := fr.pinCount > 0
		dirty := fr.dirty
		fr.mu.RUnlock()
		if pinned {
			continue
		}
		if _, stillHot := c.hot.Get(id); stillHot {
			continue
		}

		if dirty {
			if err := c.writeBackLocked(fr); err != nil {
				return err
			}
		}
		fmt.Printf("[pagecache] EVICT page=%d dirty=%v\n", id, dirty)
		delete(c.frames, id)
		c.recency = append(c.recency[:i], c.recency[i+1:]...)
		c.hot.Del(id)
		return nil
	}
	return fmt.Errorf("pagecache: all %d resident pages are pinned or hot, cannot evict", len(c.frames))
}

func (c *Cache) touchLocked(id int64) {
	for i, existing := range c.recency {
		if existing == id {
			c.recency = append(c.recency[:i], c.recency[i+1:]...)
			break
		}
	}
	c.recency = append(c.recency, id)
}

func (c *Cache) dropRecencyForFile(fileID uint32) {
	kept := c.recency[:0]
	for _, id := range c.recency {
		if fid, _ := SplitPageID(id); fid != fileID {
			kept = append(kept, id)
		}
	}
	c.recency = kept
}

func (c *Cache) writeBackLocked(fr *Frame) error {
	fileID, local := SplitPageID(fr.ID)
	f, exists := c.files[fileID]
	if !exists {
		return fmt.Errorf("pagecache: file %d not open for write-back of page %d", fileID, fr.ID)
	}
	fr.mu.RLock()
	data := make([]byte, len(fr.Data))
	copy(data, fr.Data)
	fr.mu.RUnlock()
	if err := f.WritePage(local, data); err != nil {
		return err
	}
	fr.mu.Lock()
	fr.dirty = false
	fr.mu.Unlock()
	return nil
}

// Flush writes every dirty resident page belonging to fileID back to disk.
func (c *Cache) Flush(fileID uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flushLocked(fileID)
}

func (c *Cache) flushLocked(fileID uint32) error {
	for id, fr := range c.frames {
		fid, _ := SplitPageID(id)
		if fid != fileID {
			continue
		}
		if fr.isDirty() {
			if err := c.writeBackLocked(fr); err != nil {
				return err
			}
		}
	}
	if f, exists := c.files[fileID]; exists {
		return f.Sync()
	}
	return nil
}

// FlushAll writes back every dirty resident page across every open file.
func (c *Cache) FlushAll() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for fileID := range c.files {
		if err := c.flushLocked(fileID); err != nil {
			return err
		}
	}
	return nil
}
