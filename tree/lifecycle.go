package tree

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"path/filepath"
	"sync"

	"ridtree/atomicop"
	"ridtree/keycodec"
	"ridtree/pagecache"
)

// metaPageLocal is the reserved local page 0 of a tree's main file, holding
// only the current root page id and total entry count; bucket pages start
// at local page 1.
const metaPageLocal = 0

// Tree is a persistent B+-tree index mapping keys to ordered multisets of
// RIDs, backed by a shared pagecache.Cache and made all-or-nothing per call
// by atomicop.
type Tree struct {
	mu sync.RWMutex

	name string

	cache   *pagecache.Cache
	coord   *atomicop.Coordinator
	lockMgr *atomicop.Manager

	codec *keycodec.Codec
	cmp   func(a, b []byte) int
	cfg   Config

	fileID     uint32
	nullFileID uint32
	mainPath   string
	nullPath   string

	root int64 // global page id of the root bucket, -1 if the tree holds no entries
	size int64 // cached copy of the entry count stored in the meta page

	null *NullBucket

	closed bool
}

func fileIDFor(name, suffix string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(name))
	h.Write([]byte{0})
	h.Write([]byte(suffix))
	// Keep the top bit clear so GlobalPageID(fileID, n) stays non-negative:
	// the tree uses negative page ids (-1) to mean "no page".
	return h.Sum32() & 0x7FFFFFFF
}

// Open opens the named index under dir, creating it if it does not already
// exist — one constructor for both cases, the way the teacher's
// OpenBPlusTree works.
func Open(dir, name string, cfg Config, cache *pagecache.Cache, coord *atomicop.Coordinator, lockMgr *atomicop.Manager) (*Tree, error) {
	fileID := fileIDFor(name, "main")
	nullFileID := fileIDFor(name, "null")
	mainPath := filepath.Join(dir, name+".ridtree")
	nullPath := filepath.Join(dir, name+".ridtree.null")

	if err := cache.OpenFile(mainPath, fileID); err != nil {
		return nil, err
	}
	if err := cache.OpenFile(nullPath, nullFileID); err != nil {
		return nil, err
	}

	codec := cfg.codec()
	t := &Tree{
		name:       name,
		cache:      cache,
		coord:      coord,
		lockMgr:    lockMgr,
		codec:      codec,
		cmp:        codec.Compare,
		cfg:        cfg,
		fileID:     fileID,
		nullFileID: nullFileID,
		mainPath:   mainPath,
		nullPath:   nullPath,
		root:       -1,
	}

	filled, err := cache.GetFilledUpTo(fileID)
	if err != nil {
		return nil, err
	}
	if filled == 0 {
		if err := t.initMeta(); err != nil {
			return nil, err
		}
	} else if err := t.loadMeta(); err != nil {
		return nil, err
	}

	null, err := openNullBucket(cache, coord, nullFileID)
	if err != nil {
		return nil, err
	}
	t.null = null

	return t, nil
}

// Create is Open under the name a caller uses when it knows the index does
// not exist yet; both paths are idempotent and identical.
func Create(dir, name string, cfg Config, cache *pagecache.Cache, coord *atomicop.Coordinator, lockMgr *atomicop.Manager) (*Tree, error) {
	return Open(dir, name, cfg, cache, coord, lockMgr)
}

func (t *Tree) initMeta() error {
	fr, err := t.cache.NewPage(t.fileID)
	if err != nil {
		return err
	}
	var emptyRoot int64 = -1
	binary.LittleEndian.PutUint64(fr.Data[0:8], uint64(emptyRoot))
	binary.LittleEndian.PutUint64(fr.Data[8:16], 0)
	t.cache.ReleasePageFromWrite(fr, true)
	t.root = -1
	t.size = 0
	return t.cache.Flush(t.fileID)
}

func (t *Tree) loadMeta() error {
	metaID := pagecache.GlobalPageID(t.fileID, metaPageLocal)
	fr, err := t.cache.LoadPageForRead(metaID)
	if err != nil {
		return err
	}
	t.root = int64(binary.LittleEndian.Uint64(fr.Data[0:8]))
	t.size = int64(binary.LittleEndian.Uint64(fr.Data[8:16]))
	t.cache.ReleasePageFromRead(fr)
	return nil
}

// rollback aborts op and reloads root/size from the meta page. put/remove
// mutate t.root/t.size in memory before their enclosing op is known to
// commit, so that Rollback's page before-image restore (which only
// touches pagecache.Cache, never the in-memory Tree) can leave those
// fields pointing at a page whose bytes were just rolled back to whatever
// they held before this call started. Reloading from the (now-restored)
// meta page is the only way back to a consistent view.
func (t *Tree) rollback(op *atomicop.Operation) {
	if err := op.Rollback(); err != nil {
		fmt.Printf("[tree] ROLLBACK FAILED tree=%s err=%v\n", t.name, err)
	}
	if err := t.loadMeta(); err != nil {
		fmt.Printf("[tree] META RESYNC FAILED tree=%s err=%v\n", t.name, err)
	}
}

// persistMeta writes the tree's current root pointer and size into the
// meta page as part of op, so a rollback of op also undoes the meta update.
func (t *Tree) persistMeta(op *atomicop.Operation) error {
	metaID := pagecache.GlobalPageID(t.fileID, metaPageLocal)
	fr, err := t.cache.LoadPageForWrite(metaID)
	if err != nil {
		return err
	}
	op.CapturePage(fr)
	binary.LittleEndian.PutUint64(fr.Data[0:8], uint64(t.root))
	binary.LittleEndian.PutUint64(fr.Data[8:16], uint64(t.size))
	t.cache.ReleasePageFromWrite(fr, true)
	return nil
}

// Size returns the total number of (key, RID) pairs currently stored,
// including entries under the null key.
func (t *Tree) Size() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.size
}

// Clear empties the index in place without releasing its file identity.
func (t *Tree) Clear() error {
	return t.withWrite(func() error {
		if t.closed {
			return ErrClosed
		}
		if err := t.cache.TruncateFile(t.fileID); err != nil {
			return err
		}
		if err := t.cache.TruncateFile(t.nullFileID); err != nil {
			return err
		}
		if err := t.initMeta(); err != nil {
			return err
		}
		return t.null.reset()
	})
}

// Delete removes the index's backing files entirely; the Tree is unusable
// afterward.
func (t *Tree) Delete() error {
	return t.withWrite(func() error {
		if err := t.cache.DeleteFile(t.mainPath, t.fileID); err != nil {
			return err
		}
		if err := t.cache.DeleteFile(t.nullPath, t.nullFileID); err != nil {
			return err
		}
		t.closed = true
		return nil
	})
}

// Close flushes and releases the index's backing files without deleting
// them; a later Open reopens the same data.
func (t *Tree) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	if err := t.cache.CloseFile(t.fileID); err != nil {
		return err
	}
	if err := t.cache.CloseFile(t.nullFileID); err != nil {
		return err
	}
	t.closed = true
	return nil
}

// Flush writes back every dirty page belonging to this index without
// closing it.
func (t *Tree) Flush() error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if err := t.cache.Flush(t.fileID); err != nil {
		return err
	}
	return t.cache.Flush(t.nullFileID)
}
