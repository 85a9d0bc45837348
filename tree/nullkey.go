package tree

import "ridtree/rid"

// putNull inserts value into the multiset stored under the null key. Called
// from Put when the caller's key is nil and the tree was configured with
// NullKeysSupported.
func (t *Tree) putNull(value rid.RID) error {
	return t.withWrite(func() error {
		if t.closed {
			return ErrClosed
		}
		op := t.coord.Begin(t.cache)
		if err := t.null.AddValue(op, value); err != nil {
			t.rollback(op)
			return err
		}
		t.size++
		if err := t.persistMeta(op); err != nil {
			t.rollback(op)
			return err
		}
		if err := op.Commit(); err != nil {
			return err
		}
		if err := t.cache.Flush(t.fileID); err != nil {
			return err
		}
		return t.cache.Flush(t.nullFileID)
	})
}

// removeNull deletes a single occurrence of value from the null key's
// multiset, reporting whether it was present. Called from Remove when the
// caller's key is nil.
func (t *Tree) removeNull(value rid.RID) (bool, error) {
	var removed bool
	err := t.withWrite(func() error {
		if t.closed {
			return ErrClosed
		}
		op := t.coord.Begin(t.cache)
		found, err := t.null.RemoveValue(op, value)
		if err != nil {
			t.rollback(op)
			return err
		}
		if !found {
			t.rollback(op)
			return nil
		}
		t.size--
		if err := t.persistMeta(op); err != nil {
			t.rollback(op)
			return err
		}
		if err := op.Commit(); err != nil {
			return err
		}
		if err := t.cache.Flush(t.fileID); err != nil {
			return err
		}
		if err := t.cache.Flush(t.nullFileID); err != nil {
			return err
		}
		removed = true
		return nil
	})
	return removed, err
}

// getNull returns a copy of the null key's current multiset. Called from
// Get when the caller's key is nil.
func (t *Tree) getNull() ([]rid.RID, error) {
	var out []rid.RID
	err := t.withRead(func() error {
		if t.closed {
			return ErrClosed
		}
		values, err := t.null.Values()
		if err != nil {
			return err
		}
		out = values
		return nil
	})
	return out, err
}
