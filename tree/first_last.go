package tree

import (
	"ridtree/keycodec"
	"ridtree/rid"
)

// FirstItem returns the smallest key currently stored and a copy of its
// multiset. Descent always follows the leftmost child; because delete never
// merges or rebalances (tree/delete.go), the leftmost-descent leaf can be
// left empty while non-empty leaves remain to its right, so on landing in
// an empty leaf this backtracks along the leaf chain's rightSibling links
// — which span every leaf in key order regardless of where each sits in the
// internal tree — until a non-empty leaf is found or the chain runs out.
func (t *Tree) FirstItem() (keycodec.CompositeKey, []rid.RID, error) {
	var key keycodec.CompositeKey
	var values []rid.RID
	err := t.withRead(func() error {
		if t.closed {
			return ErrClosed
		}
		if t.root < 0 {
			return ErrEmptyTree
		}
		leafID, err := t.descendLeftmostLeaf(t.root)
		if err != nil {
			return err
		}
		for {
			b, err := t.readBucket(leafID)
			if err != nil {
				return err
			}
			if len(b.keys) > 0 {
				ck, err := t.codec.Deserialize(b.keys[0])
				if err != nil {
					return err
				}
				key = ck
				values = append([]rid.RID(nil), b.values[0]...)
				return nil
			}
			if b.rightSibling < 0 {
				return ErrEmptyTree
			}
			leafID = b.rightSibling
		}
	})
	return key, values, err
}

// LastItem returns the largest key currently stored and a copy of its
// multiset. Mirrors FirstItem: descends via the rightmost child, then
// backtracks along leftSibling links out of any emptied trailing leaves.
func (t *Tree) LastItem() (keycodec.CompositeKey, []rid.RID, error) {
	var key keycodec.CompositeKey
	var values []rid.RID
	err := t.withRead(func() error {
		if t.closed {
			return ErrClosed
		}
		if t.root < 0 {
			return ErrEmptyTree
		}
		leafID, err := t.descendRightmostLeaf(t.root)
		if err != nil {
			return err
		}
		for {
			b, err := t.readBucket(leafID)
			if err != nil {
				return err
			}
			if len(b.keys) > 0 {
				last := len(b.keys) - 1
				ck, err := t.codec.Deserialize(b.keys[last])
				if err != nil {
					return err
				}
				key = ck
				values = append([]rid.RID(nil), b.values[last]...)
				return nil
			}
			if b.leftSibling < 0 {
				return ErrEmptyTree
			}
			leafID = b.leftSibling
		}
	})
	return key, values, err
}

func (t *Tree) readBucket(pageID int64) (*bucket, error) {
	fr, err := t.cache.LoadPageForRead(pageID)
	if err != nil {
		return nil, err
	}
	b, err := decodeBucket(pageID, fr.Data)
	t.cache.ReleasePageFromRead(fr)
	return b, err
}

func (t *Tree) descendLeftmostLeaf(nodeID int64) (int64, error) {
	for {
		b, err := t.readBucket(nodeID)
		if err != nil {
			return -1, err
		}
		if b.isLeaf {
			return nodeID, nil
		}
		nodeID = b.children[0]
	}
}

func (t *Tree) descendRightmostLeaf(nodeID int64) (int64, error) {
	for {
		b, err := t.readBucket(nodeID)
		if err != nil {
			return -1, err
		}
		if b.isLeaf {
			return nodeID, nil
		}
		nodeID = b.children[len(b.children)-1]
	}
}
