package tree

import "ridtree/keycodec"

// Config carries the tunables spec §9 enumerates as tree construction
// options, named the way the teacher passes constructor parameters rather
// than a config-file format — nothing in the pack's storage engine reads
// a config file for this subsystem.
type Config struct {
	// KeyTypes describes the key's shape: one entry for a scalar key,
	// more for a composite key.
	KeyTypes []keycodec.Type
	// MaxKeySize bounds a serialized key's on-page size.
	MaxKeySize int
	// MaxDepth is an optional sanity ceiling on tree height; 0 disables
	// the check. Exceeding it during a descent indicates runaway growth
	// from a badly-chosen key rather than a condition normal operation
	// should hit.
	MaxDepth int
	// CursorPrefetchSize bounds how many consecutive leaf pages a range
	// cursor pins and buffers in one batch; clamped into [1, N].
	CursorPrefetchSize int
	// Cipher optionally wraps every serialized key with symmetric
	// encryption; ordering still follows the plaintext keys, since
	// keycodec.Codec.Compare decrypts both sides before comparing.
	Cipher keycodec.Cipher
	// NullKeysSupported controls whether Put/Get/Remove accept a nil key,
	// routing it to a dedicated one-page null bucket instead of the
	// ordered leaf chain. Off by default; passing a nil key when this is
	// false fails with ErrNullKeyDisallowed.
	NullKeysSupported bool
}

func (c Config) codec() *keycodec.Codec {
	return keycodec.New(c.KeyTypes, c.MaxKeySize, c.Cipher)
}

func (c Config) prefetch() int {
	n := c.CursorPrefetchSize
	if n < 1 {
		return 1
	}
	return n
}
