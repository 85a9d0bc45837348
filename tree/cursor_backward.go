package tree

import "ridtree/keycodec"

// BackwardCursor mirrors ForwardCursor but walks the leaf chain right to
// left via each leaf's leftSibling pointer, yielding items in descending
// key order.
type BackwardCursor struct {
	t         *Tree
	release   func()
	lowParts  []keycodec.Part
	lowIncl   bool
	hasLow    bool
	highParts []keycodec.Part
	highIncl  bool
	prefetch  int
	nextLeaf  int64
	buf       []Item
	pos       int
	exhausted bool
	err       error
	closed    bool
}

// RangeBackward opens a backward cursor over [low, high], descending order.
// A nil high means "from the largest key"; a nil low means "down to the
// smallest key". Callers must Close the cursor, typically via defer.
func (t *Tree) RangeBackward(low, high any, inclusiveLow, inclusiveHigh bool) (*BackwardCursor, error) {
	release := t.lockMgr.AcquireRead(t.name)
	t.mu.RLock()
	c := &BackwardCursor{
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
	highBound := keycodec.CompositeKey{Parts: []keycodec.Part{keycodec.High()}}
	if high != nil {
		hk, err := t.codec.Preprocess(high)
		if err != nil {
			c.release()
			return nil, err
		}
		c.highParts = hk.Parts
		highBound = extendHigh(hk, arity)
	}
	if low != nil {
		lk, err := t.codec.Preprocess(low)
		if err != nil {
			c.release()
			return nil, err
		}
		c.lowParts = lk.Parts
		c.hasLow = true
	}

	if t.root < 0 {
		c.exhausted = true
		return c, nil
	}

	leafID, err := t.descendToLeafForKey(highBound)
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

// passesHigh reports whether entry is at or below the upper bound. Compares
// only the prefix of entry that the (possibly partial) high key names, the
// same way passesLow compares against the low key's named prefix.
func (c *BackwardCursor) passesHigh(entry keycodec.CompositeKey) bool {
	if len(c.highParts) == 0 {
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

func (c *BackwardCursor) passesLow(entry keycodec.CompositeKey) bool {
	if !c.hasLow {
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

func (c *BackwardCursor) refill() error {
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

		for k := len(b.keys) - 1; k >= 0; k-- {
			ck, err := c.t.codec.Deserialize(b.keys[k])
			if err != nil {
				return err
			}
			if !c.passesLow(ck) {
				c.exhausted = true
				leafID = -1
				break
			}
			if c.passesHigh(ck) {
				values := b.values[k]
				for j := len(values) - 1; j >= 0; j-- {
					c.buf = append(c.buf, Item{Key: ck, Value: values[j]})
				}
			}
		}
		if leafID < 0 {
			break
		}
		leafID = b.leftSibling
	}
	c.nextLeaf = leafID
	if leafID < 0 {
		c.exhausted = true
	}
	return nil
}

// Next advances the cursor and reports whether an item is available.
func (c *BackwardCursor) Next() bool {
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
func (c *BackwardCursor) Item() Item {
	return c.buf[c.pos-1]
}

// Err returns the first error encountered during iteration, if any.
func (c *BackwardCursor) Err() error {
	return c.err
}

// Close releases the cursor's read lock. Safe to call more than once.
func (c *BackwardCursor) Close() {
	if c.closed {
		return
	}
	c.closed = true
	c.release()
}
