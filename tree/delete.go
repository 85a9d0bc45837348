package tree

import (
	"ridtree/atomicop"
	"ridtree/rid"
)

// Remove deletes a single occurrence of value from key's multiset, reporting
// whether a removal actually occurred — removing an absent key or an absent
// value from a present key's multiset is not an error, it simply reports
// false and leaves size unchanged. It never rebalances or merges underfull
// leaves with their siblings — a deliberate simplification: page occupancy
// is allowed to drop arbitrarily low after a delete, in exchange for a
// delete path that only ever touches the one target leaf and the meta page,
// never walking back up the tree.
func (t *Tree) Remove(key any, value rid.RID) (bool, error) {
	if key == nil {
		if !t.cfg.NullKeysSupported {
			return false, ErrNullKeyDisallowed
		}
		return t.removeNull(value)
	}

	ck, err := t.codec.Preprocess(key)
	if err != nil {
		return false, err
	}
	raw, err := t.codec.Serialize(ck)
	if err != nil {
		return false, err
	}

	var removed bool
	err = t.withWrite(func() error {
		if t.closed {
			return ErrClosed
		}
		if t.root < 0 {
			return nil
		}
		op := t.coord.Begin(t.cache)
		found, err := t.remove(op, raw, value)
		if err != nil {
			t.rollback(op)
			return err
		}
		if !found {
			t.rollback(op)
			return nil
		}
		if err := op.Commit(); err != nil {
			return err
		}
		removed = true
		return t.cache.Flush(t.fileID)
	})
	return removed, err
}

// remove reports whether value was found and removed from key's leaf entry.
func (t *Tree) remove(op *atomicop.Operation, raw []byte, value rid.RID) (bool, error) {
	_, leafID, err := t.descendToLeaf(raw)
	if err != nil {
		return false, err
	}
	fr, err := t.cache.LoadPageForWrite(leafID)
	if err != nil {
		return false, err
	}
	op.CapturePage(fr)
	b, err := decodeBucket(leafID, fr.Data)
	if err != nil {
		return false, err
	}

	idx, found := b.find(t.cmp, raw)
	if !found {
		t.cache.ReleasePageFromWrite(fr, false)
		return false, nil
	}
	if !b.removeValue(idx, value) {
		t.cache.ReleasePageFromWrite(fr, false)
		return false, nil
	}
	if err := t.writeBucket(fr, b); err != nil {
		return false, err
	}
	t.size--
	if err := t.persistMeta(op); err != nil {
		return false, err
	}
	return true, nil
}
