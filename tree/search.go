package tree

import (
	"ridtree/keycodec"
	"ridtree/rid"
)

// descendToLeaf walks from the root to the leaf that would hold raw,
// recording every internal page visited along the way. The recorded path
// lets a later split walk back up to propagate a promoted key without the
// tree needing a stored parent pointer on every node.
func (t *Tree) descendToLeaf(raw []byte) (path []int64, leafID int64, err error) {
	nodeID := t.root
	for {
		if t.cfg.MaxDepth > 0 && len(path) > t.cfg.MaxDepth {
			return nil, -1, ErrMaxDepthExceeded
		}
		fr, err := t.cache.LoadPageForRead(nodeID)
		if err != nil {
			return nil, -1, err
		}
		b, err := decodeBucket(nodeID, fr.Data)
		t.cache.ReleasePageFromRead(fr)
		if err != nil {
			return nil, -1, err
		}
		if b.isLeaf {
			return path, nodeID, nil
		}
		idx := b.childIndex(t.cmp, raw)
		path = append(path, nodeID)
		nodeID = b.children[idx]
	}
}

// childIndexForKey is descendToLeaf's counterpart for a sentinel-bearing
// search key built by the boundary adapter, used by range cursors.
func (t *Tree) childIndexForKey(b *bucket, ck keycodec.CompositeKey) int {
	lo, hi := 0, len(b.keys)
	for lo < hi {
		mid := lo + (hi-lo)/2
		if t.codec.CompareKeyToRaw(ck, b.keys[mid]) >= 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

func (t *Tree) descendToLeafForKey(ck keycodec.CompositeKey) (int64, error) {
	nodeID := t.root
	for {
		fr, err := t.cache.LoadPageForRead(nodeID)
		if err != nil {
			return -1, err
		}
		b, err := decodeBucket(nodeID, fr.Data)
		t.cache.ReleasePageFromRead(fr)
		if err != nil {
			return -1, err
		}
		if b.isLeaf {
			return nodeID, nil
		}
		nodeID = b.children[t.childIndexForKey(b, ck)]
	}
}

// Get returns the ordered multiset of RIDs stored under key, or an empty
// slice if key has no entry — absence is not an error.
func (t *Tree) Get(key any) ([]rid.RID, error) {
	if key == nil {
		if !t.cfg.NullKeysSupported {
			return nil, ErrNullKeyDisallowed
		}
		return t.getNull()
	}

	ck, err := t.codec.Preprocess(key)
	if err != nil {
		return nil, err
	}
	raw, err := t.codec.Serialize(ck)
	if err != nil {
		return nil, err
	}

	var out []rid.RID
	err = t.withRead(func() error {
		if t.closed {
			return ErrClosed
		}
		if t.root < 0 {
			return nil
		}
		_, leafID, err := t.descendToLeaf(raw)
		if err != nil {
			return err
		}
		fr, err := t.cache.LoadPageForRead(leafID)
		if err != nil {
			return err
		}
		defer t.cache.ReleasePageFromRead(fr)
		b, err := decodeBucket(leafID, fr.Data)
		if err != nil {
			return err
		}
		idx, found := b.find(t.cmp, raw)
		if !found {
			return nil
		}
		out = make([]rid.RID, len(b.values[idx]))
		copy(out, b.values[idx])
		return nil
	})
	return out, err
}
