package tree

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"ridtree/pagecache"
	"ridtree/rid"
)

// pageBudget is how many bytes of a page a bucket's encoded form may
// occupy. encodedLeafSize/encodedInternalSize already count the header, so
// the margin below pagecache.PageSize leaves a further bucketHeaderSize
// bytes of every page unused.
const pageBudget = pagecache.PageSize - bucketHeaderSize

// bucketHeaderSize: isLeaf(1) + entryCount(2) + leftSibling(8) +
// rightSibling(8) + treeSize(8) + checksum(8).
const bucketHeaderSize = 35

// checksumOffset is where the xxhash64 of everything after the header
// (i.e. bytes [bucketHeaderSize:]) is stored.
const checksumOffset = 27

// encodeBucket writes b into a fresh PageSize-byte buffer, the way
// node_to_index_page.go's SerializeNode lays out a Node: a small fixed
// header followed by length-prefixed keys, then either per-key RID
// multisets (leaf) or child page IDs (internal).
func encodeBucket(b *bucket) ([]byte, error) {
	data := make([]byte, pagecache.PageSize)
	offset := 0

	if b.isLeaf {
		data[offset] = 1
	} else {
		data[offset] = 0
	}
	offset++

	binary.LittleEndian.PutUint16(data[offset:], uint16(len(b.keys)))
	offset += 2

	binary.LittleEndian.PutUint64(data[offset:], uint64(b.leftSibling))
	offset += 8
	binary.LittleEndian.PutUint64(data[offset:], uint64(b.rightSibling))
	offset += 8
	binary.LittleEndian.PutUint64(data[offset:], uint64(b.treeSize))
	offset += 8

	// checksum is filled in after the body below; skip over it for now.
	offset += 8

	for _, key := range b.keys {
		if offset+4+len(key) > pagecache.PageSize {
			return nil, fmt.Errorf("tree: page overflow encoding key")
		}
		binary.LittleEndian.PutUint32(data[offset:], uint32(len(key)))
		offset += 4
		copy(data[offset:], key)
		offset += len(key)
	}

	if b.isLeaf {
		for _, multiset := range b.values {
			if offset+4 > pagecache.PageSize {
				return nil, fmt.Errorf("tree: page overflow encoding multiset count")
			}
			binary.LittleEndian.PutUint32(data[offset:], uint32(len(multiset)))
			offset += 4
			for _, v := range multiset {
				if offset+rid.Size > pagecache.PageSize {
					return nil, fmt.Errorf("tree: page overflow encoding rid")
				}
				v.Encode(data[offset:])
				offset += rid.Size
			}
		}
	} else {
		for _, child := range b.children {
			if offset+8 > pagecache.PageSize {
				return nil, fmt.Errorf("tree: page overflow encoding child pointer")
			}
			binary.LittleEndian.PutUint64(data[offset:], uint64(child))
			offset += 8
		}
	}

	sum := xxhash.Sum64(data[bucketHeaderSize:])
	binary.LittleEndian.PutUint64(data[checksumOffset:], sum)

	return data, nil
}

// decodeBucket is the inverse of encodeBucket.
func decodeBucket(pageID int64, data []byte) (*bucket, error) {
	if len(data) != pagecache.PageSize {
		return nil, fmt.Errorf("%w: page must be %d bytes", ErrCorrupt, pagecache.PageSize)
	}

	offset := 0
	isLeaf := data[offset] == 1
	offset++

	numKeys := int(binary.LittleEndian.Uint16(data[offset:]))
	offset += 2

	leftSibling := int64(binary.LittleEndian.Uint64(data[offset:]))
	offset += 8
	rightSibling := int64(binary.LittleEndian.Uint64(data[offset:]))
	offset += 8
	treeSize := int64(binary.LittleEndian.Uint64(data[offset:]))
	offset += 8

	wantSum := binary.LittleEndian.Uint64(data[offset:])
	offset += 8
	if gotSum := xxhash.Sum64(data[bucketHeaderSize:]); gotSum != wantSum {
		return nil, fmt.Errorf("%w: checksum mismatch on page %d", ErrCorrupt, pageID)
	}

	b := &bucket{
		pageID:       pageID,
		isLeaf:       isLeaf,
		leftSibling:  leftSibling,
		rightSibling: rightSibling,
		treeSize:     treeSize,
		keys:         make([][]byte, 0, numKeys),
	}

	for i := 0; i < numKeys; i++ {
		if offset+4 > len(data) {
			return nil, fmt.Errorf("%w: truncated key length at entry %d", ErrCorrupt, i)
		}
		keyLen := int(binary.LittleEndian.Uint32(data[offset:]))
		offset += 4
		if offset+keyLen > len(data) {
			return nil, fmt.Errorf("%w: truncated key at entry %d", ErrCorrupt, i)
		}
		key := make([]byte, keyLen)
		copy(key, data[offset:offset+keyLen])
		offset += keyLen
		b.keys = append(b.keys, key)
	}

	if isLeaf {
		b.values = make([][]rid.RID, 0, numKeys)
		for i := 0; i < numKeys; i++ {
			if offset+4 > len(data) {
				return nil, fmt.Errorf("%w: truncated multiset count at entry %d", ErrCorrupt, i)
			}
			count := int(binary.LittleEndian.Uint32(data[offset:]))
			offset += 4
			multiset := make([]rid.RID, 0, count)
			for j := 0; j < count; j++ {
				if offset+rid.Size > len(data) {
					return nil, fmt.Errorf("%w: truncated rid at entry %d/%d", ErrCorrupt, i, j)
				}
				multiset = append(multiset, rid.Decode(data[offset:]))
				offset += rid.Size
			}
			b.values = append(b.values, multiset)
		}
	} else {
		b.children = make([]int64, 0, numKeys+1)
		for i := 0; i <= numKeys; i++ {
			if offset+8 > len(data) {
				return nil, fmt.Errorf("%w: truncated child pointer %d", ErrCorrupt, i)
			}
			b.children = append(b.children, int64(binary.LittleEndian.Uint64(data[offset:])))
			offset += 8
		}
	}

	return b, nil
}

// encodedLeafSize projects the byte size of encoding b right now, without
// actually allocating a page buffer — used by mutators to decide whether
// an insert would overflow the page.
func encodedLeafSize(b *bucket) int {
	size := bucketHeaderSize
	for _, k := range b.keys {
		size += 4 + len(k)
	}
	for _, multiset := range b.values {
		size += 4 + len(multiset)*rid.Size
	}
	return size
}

func encodedInternalSize(b *bucket) int {
	size := bucketHeaderSize
	for _, k := range b.keys {
		size += 4 + len(k)
	}
	size += 8 * len(b.children)
	return size
}

// writeBucket encodes b into fr's page buffer and releases fr, dirty.
func (t *Tree) writeBucket(fr *pagecache.Frame, b *bucket) error {
	data, err := encodeBucket(b)
	if err != nil {
		return err
	}
	copy(fr.Data, data)
	t.cache.ReleasePageFromWrite(fr, true)
	return nil
}
