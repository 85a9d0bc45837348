package tree

import (
	"ridtree/atomicop"
	"ridtree/pagecache"
)

// splitLeaf divides an overflowing leaf bucket in half, links the new right
// sibling into the leaf chain on both sides, and pushes the new right
// bucket's first key up to whatever comes next: the parent at the top of
// path, or a fresh root if leftID had no parent on this descent.
func (t *Tree) splitLeaf(op *atomicop.Operation, path []int64, leftID int64, leftFr *pagecache.Frame, left *bucket) error {
	mid := len(left.keys) / 2
	if mid == 0 {
		mid = 1
	}

	rightFr, err := t.cache.NewPage(t.fileID)
	if err != nil {
		return err
	}
	op.CapturePage(rightFr)

	right := newLeafBucket(rightFr.ID)
	right.keys = append(right.keys, left.keys[mid:]...)
	right.values = append(right.values, left.values[mid:]...)
	right.rightSibling = left.rightSibling
	right.leftSibling = leftID

	oldRightSibling := left.rightSibling
	left.keys = left.keys[:mid]
	left.values = left.values[:mid]
	left.rightSibling = rightFr.ID

	if oldRightSibling >= 0 {
		if err := t.relinkLeftSibling(op, oldRightSibling, rightFr.ID); err != nil {
			return err
		}
	}

	sepKey := append([]byte(nil), right.keys[0]...)

	if err := t.writeBucket(leftFr, left); err != nil {
		return err
	}
	if err := t.writeBucket(rightFr, right); err != nil {
		return err
	}

	return t.propagateSplit(op, path, leftID, sepKey, rightFr.ID)
}

func (t *Tree) relinkLeftSibling(op *atomicop.Operation, siblingID, newLeftSibling int64) error {
	fr, err := t.cache.LoadPageForWrite(siblingID)
	if err != nil {
		return err
	}
	op.CapturePage(fr)
	sib, err := decodeBucket(siblingID, fr.Data)
	if err != nil {
		return err
	}
	sib.leftSibling = newLeftSibling
	return t.writeBucket(fr, sib)
}

// propagateSplit inserts the separator (leftID, sepKey, rightID) into
// leftID's parent, splitting that parent in turn if it overflows, or
// creates a new root if leftID was already at the top of the tree.
func (t *Tree) propagateSplit(op *atomicop.Operation, path []int64, leftID int64, sepKey []byte, rightID int64) error {
	if len(path) == 0 {
		return t.createNewRoot(op, leftID, sepKey, rightID)
	}
	parentID := path[len(path)-1]
	ancestors := path[:len(path)-1]

	fr, err := t.cache.LoadPageForWrite(parentID)
	if err != nil {
		return err
	}
	op.CapturePage(fr)
	parent, err := decodeBucket(parentID, fr.Data)
	if err != nil {
		return err
	}

	idx := 0
	for idx < len(parent.children) && parent.children[idx] != leftID {
		idx++
	}
	fits := parent.addNonLeafEntry(idx, sepKey, rightID)
	if fits {
		return t.writeBucket(fr, parent)
	}
	return t.splitInternal(op, ancestors, parentID, fr, parent)
}

// splitInternal divides an overflowing internal bucket in half, promoting
// its middle separator key up rather than copying it down into both
// halves — the classic leaf-vs-internal split asymmetry.
func (t *Tree) splitInternal(op *atomicop.Operation, ancestors []int64, nodeID int64, fr *pagecache.Frame, node *bucket) error {
	mid := len(node.keys) / 2
	promoteKey := append([]byte(nil), node.keys[mid]...)

	rightFr, err := t.cache.NewPage(t.fileID)
	if err != nil {
		return err
	}
	op.CapturePage(rightFr)

	right := newInternalBucket(rightFr.ID)
	right.keys = append(right.keys, node.keys[mid+1:]...)
	right.children = append(right.children, node.children[mid+1:]...)

	node.keys = node.keys[:mid]
	node.children = node.children[:mid+1]

	if err := t.writeBucket(fr, node); err != nil {
		return err
	}
	if err := t.writeBucket(rightFr, right); err != nil {
		return err
	}

	return t.propagateSplit(op, ancestors, nodeID, promoteKey, rightFr.ID)
}

// createNewRoot builds a fresh two-child root above leftID and rightID —
// the only place a Put increases tree height.
func (t *Tree) createNewRoot(op *atomicop.Operation, leftID int64, sepKey []byte, rightID int64) error {
	fr, err := t.cache.NewPage(t.fileID)
	if err != nil {
		return err
	}
	op.CapturePage(fr)
	root := newInternalBucket(fr.ID)
	root.keys = append(root.keys, sepKey)
	root.children = append(root.children, leftID, rightID)
	if err := t.writeBucket(fr, root); err != nil {
		return err
	}
	t.root = fr.ID
	return nil
}
