package tree

import (
	"ridtree/keycodec"
	"ridtree/rid"
)

// Item is one (key, single RID) pair a cursor yields. A multiset entry of
// N RIDs under one key is expanded into N successive items: in insertion
// order by ForwardCursor, in reverse insertion order by BackwardCursor.
type Item struct {
	Key   keycodec.CompositeKey
	Value rid.RID
}

// ForwardCursor walks the leaf chain left to right via each leaf's
// rightSibling pointer, prefetching a batch of leaves at a time to amortize
// pin and decode overhead across a streaming scan.
type ForwardCursor struct {
	t         *Tree
	release   func()
	lowParts  []keycodec.Part
	lowIncl   bool
	highParts []keycodec.Part
	hasHigh   bool
	highIncl  bool
	prefetch  int
	nextLeaf  int64
	buf       []Item
	pos       int
	exhausted bool
	err       error
	closed    bool
}

// RangeForward opens a forward cursor over [low, high]. A nil low means
// "from the smallest key"; a nil high means "to the largest key". low and
// high may be partial composite keys naming only a prefix of the tree's
// key arity; inclusiveLow/inclusiveHigh apply only to the components
// actually supplied. Callers must Close the cursor, typically via defer.
func (t *Tree) RangeForward(low, high any, inclusiveLow, inclusiveHigh bool) (*ForwardCursor, error) {
	release := t.lockMgr.AcquireRead(t.name)
	t.mu.RLock()
	c := &ForwardCursor{
		t:        t,
		release:  func() { t.mu.RUnlock(); release() },
		lowIncl:  inclusiveLow,
		highIncl: inclusiveHigh,
		prefetch: t.cfg.prefetch(),
	}

	if t.closed {
		c.release()
		return nil, ErrClosed
	}

	arity := t.codec.Arity()
	lowBound := keycodec.CompositeKey{Parts: []keycodec.Part{keycodec.Low()}}
	if low != nil {
		lk, err := t.codec.Preprocess(low)
		if err != nil {
			c.release()
			return nil, err
		}
		c.lowParts = lk.Parts
		lowBound = extendLow(lk, arity)
	}
	if high != nil {
		hk, err := t.codec.Preprocess(high)
		if err != nil {
			c.release()
			return nil, err
		}
		c.highParts = hk.Parts
		c.hasHigh = true
	}

	if t.root < 0 {
		c.exhausted = true
		return c, nil
	}

	leafID, err := t.descendToLeafForKey(lowBound)
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

// passesLow reports whether entry is at or past the lower bound. Compares
// only the prefix of entry that the (possibly partial) low key names, the
// same way passesHigh compares against the high key's named prefix.
func (c *ForwardCursor) passesLow(entry keycodec.CompositeKey) bool {
	if len(c.lowParts) == 0 {
		return true
	}
	n := len(c.lowParts)
	if n > len(entry.Parts) {
		n = len(entry.Parts)
	}
	cmp := c.t.codec.CompareKeys(keycodec.CompositeKey{Parts: entry.Parts[:n]}, keycodec.CompositeKey{Parts: c.lowParts})
	if cmp < 0 {
		return false
	}
	if cmp == 0 && !c.lowIncl {
		return false
	}
	return true
}

// passesHigh reports whether entry is still within the upper bound. A
// false return means the scan has reached or passed the end and should
// stop, whether the boundary itself is included or not.
func (c *ForwardCursor) passesHigh(entry keycodec.CompositeKey) bool {
	if !c.hasHigh {
		return true
	}
	n := len(c.highParts)
	if n > len(entry.Parts) {
		n = len(entry.Parts)
	}
	cmp := c.t.codec.CompareKeys(keycodec.CompositeKey{Parts: entry.Parts[:n]}, keycodec.CompositeKey{Parts: c.highParts})
	if cmp > 0 {
		return false
	}
	if cmp == 0 && !c.highIncl {
		return false
	}
	return true
}

func (c *ForwardCursor) refill() error {
	c.buf = c.buf[:0]
	c.pos = 0

	leafID := c.nextLeaf
	for i := 0; i < c.prefetch && leafID >= 0 && !c.exhausted; i++ {
		fr, err := c.t.cache.LoadPageForRead(leafID)
		if err != nil {
			return err
		}
		b, err := decodeBucket(leafID, fr.Data)
		c.t.cache.ReleasePageFromRead(fr)
		if err != nil {
			return err
		}

		for k, key := range b.keys {
			ck, err := c.t.codec.Deserialize(key)
			if err != nil {
				return err
			}
			if !c.passesHigh(ck) {
				c.exhausted = true
				leafID = -1
				break
			}
			if c.passesLow(ck) {
				for _, v := range b.values[k] {
					c.buf = append(c.buf, Item{Key: ck, Value: v})
				}
			}
		}
		if leafID < 0 {
			break
		}
		leafID = b.rightSibling
	}
	c.nextLeaf = leafID
	if leafID < 0 {
		c.exhausted = true
	}
	return nil
}

// Next advances the cursor and reports whether an item is available.
func (c *ForwardCursor) Next() bool {
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

// Item returns the item Next just advanced onto.
func (c *ForwardCursor) Item() Item {
	return c.buf[c.pos-1]
}

// Err returns the first error encountered during iteration, if any.
func (c *ForwardCursor) Err() error {
	return c.err
}

// Close releases the cursor's read lock. Safe to call more than once.
func (c *ForwardCursor) Close() {
	if c.closed {
		return
	}
	c.closed = true
	c.release()
}
