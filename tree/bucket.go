package tree

import "ridtree/rid"

// bucket is the in-memory decoded form of one page: a leaf holds a sorted
// list of keys, each paired with the ordered multiset of RIDs stored
// under it; an internal bucket holds a sorted list of separator keys plus
// one more child pointer than it has keys, the shared-pointer invariant
// of a classic B+-tree.
//
// codec.go turns a bucket to and from the actual page bytes; every
// mutator here works purely against the decoded slices and reports
// whether an encoded copy of the result would still fit in one page, the
// signal the insert path uses to decide whether a split is needed.
type bucket struct {
	pageID       int64
	isLeaf       bool
	keys         [][]byte
	values       [][]rid.RID // leaf only, values[i] is the multiset under keys[i]
	children     []int64     // internal only, len(children) == len(keys)+1
	leftSibling  int64       // leaf only, -1 if none
	rightSibling int64       // leaf only, -1 if none
	treeSize     int64       // header field carried through encode/decode; never set by the tree, whose entry count lives in the meta page
}

func newLeafBucket(pageID int64) *bucket {
	return &bucket{pageID: pageID, isLeaf: true, leftSibling: -1, rightSibling: -1}
}

func newInternalBucket(pageID int64) *bucket {
	return &bucket{pageID: pageID, isLeaf: false, children: make([]int64, 0, 1)}
}

// find returns the index of key in b.keys and true if present, or the
// index it would be inserted at and false otherwise.
func (b *bucket) find(cmp func(a, b []byte) int, key []byte) (int, bool) {
	return findRaw(cmp, b.keys, key)
}

// childIndex returns which child to descend into for key, in an internal
// bucket: the last child whose separator is <= key, i.e. keys act as
// lower bounds on children[1:].
func (b *bucket) childIndex(cmp func(a, b []byte) int, key []byte) int {
	lo, hi := 0, len(b.keys)
	for lo < hi {
		mid := lo + (hi-lo)/2
		if cmp(b.keys[mid], key) <= 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// addNewLeafEntry inserts a brand-new key with a single-element multiset
// at its sorted position. It reports whether the resulting bucket still
// fits in one page; if not, the caller must split before committing.
func (b *bucket) addNewLeafEntry(cmp func(a, b []byte) int, key []byte, value rid.RID) bool {
	idx, _ := findRaw(cmp, b.keys, key)
	insertKeyAt(b, idx, key, []rid.RID{value})
	return encodedLeafSize(b) <= pageBudget
}

// appendNewLeafEntry appends value to the multiset already stored at
// index idx, preserving insertion order.
func (b *bucket) appendNewLeafEntry(idx int, value rid.RID) bool {
	b.values[idx] = append(b.values[idx], value)
	return encodedLeafSize(b) <= pageBudget
}

// removeValue drops the first occurrence of value from the multiset at
// idx (by RID identity, matching the earliest-inserted occurrence). If
// the multiset becomes empty the key entry itself is dropped. Reports
// whether the value was found.
func (b *bucket) removeValue(idx int, value rid.RID) bool {
	multiset := b.values[idx]
	for i, v := range multiset {
		if v.Equal(value) {
			b.values[idx] = append(multiset[:i], multiset[i+1:]...)
			if len(b.values[idx]) == 0 {
				b.keys = append(b.keys[:idx], b.keys[idx+1:]...)
				b.values = append(b.values[:idx], b.values[idx+1:]...)
			}
			return true
		}
	}
	return false
}

// addNonLeafEntry inserts sepKey at idx with rightChild placed immediately
// after leftChild in the children slice, preserving the shared-pointer
// invariant. Reports whether the result still fits in one page.
func (b *bucket) addNonLeafEntry(idx int, sepKey []byte, rightChild int64) bool {
	b.keys = insertBytes(b.keys, idx, sepKey)
	b.children = insertInt64(b.children, idx+1, rightChild)
	return encodedInternalSize(b) <= pageBudget
}

func insertKeyAt(b *bucket, idx int, key []byte, values []rid.RID) {
	b.keys = insertBytes(b.keys, idx, key)
	b.values = insertRIDs(b.values, idx, values)
}

func insertBytes(s [][]byte, idx int, v []byte) [][]byte {
	s = append(s, nil)
	copy(s[idx+1:], s[idx:])
	s[idx] = v
	return s
}

func insertRIDs(s [][]rid.RID, idx int, v []rid.RID) [][]rid.RID {
	s = append(s, nil)
	copy(s[idx+1:], s[idx:])
	s[idx] = v
	return s
}

func insertInt64(s []int64, idx int, v int64) []int64 {
	s = append(s, 0)
	copy(s[idx+1:], s[idx:])
	s[idx] = v
	return s
}

// findRaw is the binary search behind find and addNewLeafEntry. The
// comparator is passed in as a function so bucket.go has no dependency on
// keycodec.
func findRaw(cmp func(a, b []byte) int, keys [][]byte, key []byte) (int, bool) {
	lo, hi := 0, len(keys)
	for lo < hi {
		mid := lo + (hi-lo)/2
		if cmp(keys[mid], key) < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(keys) && cmp(keys[lo], key) == 0 {
		return lo, true
	}
	return lo, false
}
