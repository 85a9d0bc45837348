package tree

import "ridtree/keycodec"

// KeyCursor traverses leaves in ascending order emitting each distinct
// stored key exactly once, regardless of how many RIDs sit in its
// multiset — the `keyCursor` operation of spec §4.5/§6, distinct from
// ForwardCursor/BackwardCursor which expand every multiset entry into one
// Item per RID. Grounded on
// OSBTreeMultiValue.OSBTreeFullKeyCursor, which walks the same leaf chain
// tracking a page index and an in-bucket item index rather than expanding
// each bucket entry's value list.
type KeyCursor struct {
	t         *Tree
	release   func()
	prefetch  int
	nextLeaf  int64
	buf       []keycodec.CompositeKey
	pos       int
	exhausted bool
	err       error
	closed    bool
}

// AscendingCursor opens a KeyCursor over every distinct key in the tree,
// ascending order. Callers must Close it, typically via defer.
func (t *Tree) AscendingCursor() (*KeyCursor, error) {
	release := t.lockMgr.AcquireRead(t.name)
	t.mu.RLock()
	c := &KeyCursor{
		t:        t,
		release:  func() { t.mu.RUnlock(); release() },
		prefetch: t.cfg.prefetch(),
	}

	if t.closed {
		c.release()
		return nil, ErrClosed
	}
	if t.root < 0 {
		c.exhausted = true
		return c, nil
	}

	leafID, err := t.descendLeftmostLeaf(t.root)
	if err != nil {
		c.release()
		return nil, err
	}
	c.nextLeaf = leafID
	if err := c.refill(); err != nil {
		c.release()
		return nil, err
	}
	return c, nil
}

func (c *KeyCursor) refill() error {
	c.buf = c.buf[:0]
	c.pos = 0

	leafID := c.nextLeaf
	for i := 0; i < c.prefetch && leafID >= 0; i++ {
		b, err := c.t.readBucket(leafID)
		if err != nil {
			return err
		}
		for _, key := range b.keys {
			ck, err := c.t.codec.Deserialize(key)
			if err != nil {
				return err
			}
			c.buf = append(c.buf, ck)
		}
		leafID = b.rightSibling
	}
	c.nextLeaf = leafID
	if leafID < 0 {
		c.exhausted = true
	}
	return nil
}

// Next advances the cursor and reports whether a key is available.
func (c *KeyCursor) Next() bool {
	if c.err != nil {
		return false
	}
	for c.pos >= len(c.buf) {
		if c.exhausted {
			return false
		}
		if err := c.refill(); err != nil {
			c.err = err
			return false
		}
	}
	c.pos++
	return true
}

// Key returns the key Next just advanced onto.
func (c *KeyCursor) Key() keycodec.CompositeKey {
	return c.buf[c.pos-1]
}

// Err returns the first error encountered during iteration, if any.
func (c *KeyCursor) Err() error {
	return c.err
}

// Close releases the cursor's read lock. Safe to call more than once.
func (c *KeyCursor) Close() {
	if c.closed {
		return
	}
	c.closed = true
	c.release()
}
