package atomicop

import (
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"

	"ridtree/pagecache"
	"ridtree/walog"
)

// state mirrors the teacher's TxnState machine (active/committed/aborted).
type state uint8

const (
	active state = iota
	committed
	rolledBack
)

const (
	recordBegin byte = iota
	recordCommit
	recordAbort
)

// Coordinator issues Operations and assigns their WAL-backed IDs. One
// Coordinator is shared by every tree using the same log.
type Coordinator struct {
	log    *walog.Log
	nextID uint64
}

// NewCoordinator wraps a walog.Log as the source of atomic operation IDs
// and commit/abort audit records.
func NewCoordinator(log *walog.Log) *Coordinator {
	return &Coordinator{log: log}
}

// Begin starts a new Operation against cache; pages captured through it
// via CapturePage can be restored to their pre-operation contents by
// Rollback.
func (c *Coordinator) Begin(cache *pagecache.Cache) *Operation {
	id := atomic.AddUint64(&c.nextID, 1)
	return &Operation{
		id:      id,
		cache:   cache,
		log:     c.log,
		state:   active,
		befores: make(map[int64][]byte),
	}
}

// Operation is the all-or-nothing envelope around one tree call.
type Operation struct {
	mu      sync.Mutex
	id      uint64
	cache   *pagecache.Cache
	log     *walog.Log
	state   state
	befores map[int64][]byte
}

// ID identifies the operation in WAL records, for diagnostics.
func (op *Operation) ID() uint64 { return op.id }

// CapturePage records fr's current contents as the before-image for its
// page, the first time this operation touches that page. Callers must
// call this before mutating fr.Data.
func (op *Operation) CapturePage(fr *pagecache.Frame) {
	op.mu.Lock()
	defer op.mu.Unlock()
	if _, exists := op.befores[fr.ID]; exists {
		return
	}
	cp := make([]byte, len(fr.Data))
	copy(cp, fr.Data)
	op.befores[fr.ID] = cp
}

func encodeOpRecord(kind byte, id uint64) []byte {
	buf := make([]byte, 9)
	buf[0] = kind
	binary.BigEndian.PutUint64(buf[1:], id)
	return buf
}

// Commit writes a commit record to the WAL and marks the operation
// closed. It does not itself flush dirty pages to the page file — callers
// flush the cache explicitly once the whole call has succeeded, the way
// the teacher calls cache.Flush after every successful mutation.
func (op *Operation) Commit() error {
	op.mu.Lock()
	defer op.mu.Unlock()
	if op.state != active {
		return fmt.Errorf("atomicop: operation %d is not active", op.id)
	}
	if _, err := op.log.Append(encodeOpRecord(recordCommit, op.id)); err != nil {
		return fmt.Errorf("atomicop: commit operation %d: %w", op.id, err)
	}
	if err := op.log.Sync(); err != nil {
		return fmt.Errorf("atomicop: sync commit of operation %d: %w", op.id, err)
	}
	op.state = committed
	fmt.Printf("[atomicop] COMMIT op=%d pages=%d\n", op.id, len(op.befores))
	return nil
}

// Rollback restores every captured page to its pre-operation contents and
// writes an abort record to the WAL.
func (op *Operation) Rollback() error {
	op.mu.Lock()
	defer op.mu.Unlock()
	if op.state != active {
		return nil
	}

	fmt.Printf("[atomicop] ROLLBACK op=%d pages=%d\n", op.id, len(op.befores))
	for pageID, before := range op.befores {
		fr, err := op.cache.LoadPageForWrite(pageID)
		if err != nil {
			return fmt.Errorf("atomicop: rollback operation %d: load page %d: %w", op.id, pageID, err)
		}
		copy(fr.Data, before)
		op.cache.ReleasePageFromWrite(fr, true)
	}

	if _, err := op.log.Append(encodeOpRecord(recordAbort, op.id)); err != nil {
		return fmt.Errorf("atomicop: abort record for operation %d: %w", op.id, err)
	}
	op.state = rolledBack
	return nil
}
