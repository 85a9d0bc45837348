package tree

import (
	"encoding/binary"
	"fmt"

	"ridtree/atomicop"
	"ridtree/pagecache"
	"ridtree/rid"
)

// NullBucket holds the RID multiset associated with the null key on one
// dedicated page, rather than threading a sentinel entry through the
// ordinary leaf chain — the null key has no ordering relationship with any
// other key, so it does not belong in the sorted keys of a leaf.
type NullBucket struct {
	cache  *pagecache.Cache
	coord  *atomicop.Coordinator
	fileID uint32
	pageID int64
}

func openNullBucket(cache *pagecache.Cache, coord *atomicop.Coordinator, fileID uint32) (*NullBucket, error) {
	nb := &NullBucket{cache: cache, coord: coord, fileID: fileID}
	filled, err := cache.GetFilledUpTo(fileID)
	if err != nil {
		return nil, err
	}
	if filled == 0 {
		if err := nb.reset(); err != nil {
			return nil, err
		}
		return nb, nil
	}
	nb.pageID = pagecache.GlobalPageID(fileID, 0)
	return nb, nil
}

func (nb *NullBucket) reset() error {
	fr, err := nb.cache.NewPage(nb.fileID)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(fr.Data[0:4], 0)
	nb.pageID = fr.ID
	nb.cache.ReleasePageFromWrite(fr, true)
	return nb.cache.Flush(nb.fileID)
}

func decodeNullValues(data []byte) ([]rid.RID, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: truncated null bucket header", ErrCorrupt)
	}
	count := int(binary.LittleEndian.Uint32(data[0:4]))
	need := 4 + count*rid.Size
	if need > len(data) {
		return nil, fmt.Errorf("%w: truncated null bucket body", ErrCorrupt)
	}
	values := make([]rid.RID, 0, count)
	offset := 4
	for i := 0; i < count; i++ {
		values = append(values, rid.Decode(data[offset:]))
		offset += rid.Size
	}
	return values, nil
}

func encodeNullValues(data []byte, values []rid.RID) error {
	need := 4 + len(values)*rid.Size
	if need > len(data) {
		return fmt.Errorf("tree: null key multiset of %d RIDs exceeds one page", len(values))
	}
	binary.LittleEndian.PutUint32(data[0:4], uint32(len(values)))
	offset := 4
	for _, v := range values {
		v.Encode(data[offset:])
		offset += rid.Size
	}
	return nil
}

// AddValue appends value to the null key's multiset as part of op.
func (nb *NullBucket) AddValue(op *atomicop.Operation, value rid.RID) error {
	fr, err := nb.cache.LoadPageForWrite(nb.pageID)
	if err != nil {
		return err
	}
	op.CapturePage(fr)
	values, err := decodeNullValues(fr.Data)
	if err != nil {
		return err
	}
	values = append(values, value)
	if err := encodeNullValues(fr.Data, values); err != nil {
		return err
	}
	nb.cache.ReleasePageFromWrite(fr, true)
	return nil
}

// RemoveValue drops the first occurrence of value from the null key's
// multiset as part of op, reporting whether it was present.
func (nb *NullBucket) RemoveValue(op *atomicop.Operation, value rid.RID) (bool, error) {
	fr, err := nb.cache.LoadPageForWrite(nb.pageID)
	if err != nil {
		return false, err
	}
	op.CapturePage(fr)
	values, err := decodeNullValues(fr.Data)
	if err != nil {
		return false, err
	}
	found := -1
	for i, v := range values {
		if v.Equal(value) {
			found = i
			break
		}
	}
	if found < 0 {
		nb.cache.ReleasePageFromWrite(fr, false)
		return false, nil
	}
	values = append(values[:found], values[found+1:]...)
	if err := encodeNullValues(fr.Data, values); err != nil {
		return false, err
	}
	nb.cache.ReleasePageFromWrite(fr, true)
	return true, nil
}

// Values returns a copy of the null key's current multiset.
func (nb *NullBucket) Values() ([]rid.RID, error) {
	fr, err := nb.cache.LoadPageForRead(nb.pageID)
	if err != nil {
		return nil, err
	}
	defer nb.cache.ReleasePageFromRead(fr)
	return decodeNullValues(fr.Data)
}
