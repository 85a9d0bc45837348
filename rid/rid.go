// Package rid defines the record identifier stored as values in the tree's
// leaf multisets: an opaque pair of cluster id and position, compared only
// by identity.
package rid

import (
	"encoding/binary"
	"fmt"
)

// Size is the fixed on-disk width of an RID, matching the row-pointer
// layout used by the storage layer this index sits on top of:
// clusterID uint32 | pageNumber uint32 | slot uint16.
const Size = 10

// RID is an opaque fixed-size record identifier: a cluster id plus a
// position within that cluster (page number + slot).
type RID struct {
	ClusterID  uint32
	PageNumber uint32
	Slot       uint16
}

// Equal reports whether two RIDs identify the same record.
func (r RID) Equal(other RID) bool {
	return r.ClusterID == other.ClusterID && r.PageNumber == other.PageNumber && r.Slot == other.Slot
}

// Encode writes the RID's fixed-width form into buf, which must be at
// least Size bytes long.
func (r RID) Encode(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], r.ClusterID)
	binary.LittleEndian.PutUint32(buf[4:8], r.PageNumber)
	binary.LittleEndian.PutUint16(buf[8:10], r.Slot)
}

// Decode reads a RID from its fixed-width form. buf must be at least Size
// bytes long.
func Decode(buf []byte) RID {
	return RID{
		ClusterID:  binary.LittleEndian.Uint32(buf[0:4]),
		PageNumber: binary.LittleEndian.Uint32(buf[4:8]),
		Slot:       binary.LittleEndian.Uint16(buf[8:10]),
	}
}

func (r RID) String() string {
	return fmt.Sprintf("(cluster=%d page=%d slot=%d)", r.ClusterID, r.PageNumber, r.Slot)
}
