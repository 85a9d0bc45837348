package tree

import (
	"ridtree/atomicop"
	"ridtree/rid"
)

// Put inserts value into the multiset stored under key, creating the key's
// entry if it does not already exist. Duplicate values are permitted: the
// same RID can appear more than once under one key, and each occurrence is
// tracked and removable independently.
func (t *Tree) Put(key any, value rid.RID) error {
	if key == nil {
		if !t.cfg.NullKeysSupported {
			return ErrNullKeyDisallowed
		}
		return t.putNull(value)
	}

	ck, err := t.codec.Preprocess(key)
	if err != nil {
		return err
	}
	raw, err := t.codec.Serialize(ck)
	if err != nil {
		return err
	}

	return t.withWrite(func() error {
		if t.closed {
			return ErrClosed
		}
		op := t.coord.Begin(t.cache)
		if err := t.put(op, raw, value); err != nil {
			t.rollback(op)
			return err
		}
		if err := op.Commit(); err != nil {
			return err
		}
		return t.cache.Flush(t.fileID)
	})
}

func (t *Tree) put(op *atomicop.Operation, raw []byte, value rid.RID) error {
	if t.root < 0 {
		fr, err := t.cache.NewPage(t.fileID)
		if err != nil {
			return err
		}
		op.CapturePage(fr)
		b := newLeafBucket(fr.ID)
		b.addNewLeafEntry(t.cmp, raw, value)
		if err := t.writeBucket(fr, b); err != nil {
			return err
		}
		t.root = fr.ID
		t.size++
		return t.persistMeta(op)
	}

	path, leafID, err := t.descendToLeaf(raw)
	if err != nil {
		return err
	}
	fr, err := t.cache.LoadPageForWrite(leafID)
	if err != nil {
		return err
	}
	op.CapturePage(fr)
	b, err := decodeBucket(leafID, fr.Data)
	if err != nil {
		return err
	}

	idx, found := b.find(t.cmp, raw)
	var fits bool
	if found {
		fits = b.appendNewLeafEntry(idx, value)
	} else {
		fits = b.addNewLeafEntry(t.cmp, raw, value)
	}
	t.size++

	if fits {
		if err := t.writeBucket(fr, b); err != nil {
			return err
		}
		return t.persistMeta(op)
	}

	if err := t.splitLeaf(op, path, leafID, fr, b); err != nil {
		return err
	}
	return t.persistMeta(op)
}
