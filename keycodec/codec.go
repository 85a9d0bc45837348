// Package keycodec turns typed Go values into the canonical, comparable
// byte form the tree stores on page, and back. It also carries the
// composite-key sentinel machinery (§C7 of the design) used to realize
// partial-prefix range boundaries.
package keycodec

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Type names the scalar kinds a Codec knows how to serialize.
type Type byte

const (
	TypeBytes Type = iota
	TypeString
	TypeInt64
	TypeFloat64
)

var (
	// ErrKeyTooBig is returned when a serialized key exceeds MaxKeySize.
	ErrKeyTooBig = errors.New("keycodec: serialized key exceeds MaxKeySize")
	// ErrSentinelKey is returned when Serialize is asked to persist a key
	// that still carries a boundary sentinel — sentinels are ephemeral,
	// search-only markers and are never written to a page.
	ErrSentinelKey = errors.New("keycodec: cannot serialize a sentinel-bearing key")
	// ErrWrongArity is returned when a key supplies more parts than the
	// tree's configured key arity.
	ErrWrongArity = errors.New("keycodec: key has more parts than the tree's key arity")
	// ErrIncompleteKey is returned by Serialize when a key has fewer parts
	// than the full arity — only full keys are storable.
	ErrIncompleteKey = errors.New("keycodec: key must supply all parts to be stored")
	// ErrUnknownType tags a decode failure against an unrecognized on-page
	// type tag, indicating either corruption or a codec/version mismatch.
	ErrUnknownType = errors.New("keycodec: unknown type tag while decoding key")
)

// Cipher optionally wraps the on-page form of a key with symmetric
// encryption. Encrypt/Decrypt operate on the plaintext produced by
// component encoding.
type Cipher interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte, offset, length int) ([]byte, error)
}

// Codec serializes and compares keys of a fixed shape: Types has one entry
// per component for a composite key, or a single entry for a scalar key.
type Codec struct {
	Types      []Type
	MaxKeySize int
	Cipher     Cipher
}

// New builds a Codec for the given component types.
func New(types []Type, maxKeySize int, cipher Cipher) *Codec {
	return &Codec{Types: types, MaxKeySize: maxKeySize, Cipher: cipher}
}

// Arity is the number of components a full key of this tree carries.
func (c *Codec) Arity() int {
	if len(c.Types) == 0 {
		return 1
	}
	return len(c.Types)
}

// Preprocess canonicalizes a caller-supplied key into a CompositeKey,
// widening scalar numeric types the way the teacher's typed serializers do
// (int -> int64, float32 -> float64), and validates the part count does
// not exceed the tree's arity. Fewer parts than the arity is legal here —
// callers building partial-prefix search boundaries rely on it; only
// Serialize rejects incomplete keys.
func (c *Codec) Preprocess(key any) (CompositeKey, error) {
	switch v := key.(type) {
	case CompositeKey:
		if len(v.Parts) > c.Arity() {
			return CompositeKey{}, ErrWrongArity
		}
		return v, nil
	case []any:
		if len(v) > c.Arity() {
			return CompositeKey{}, ErrWrongArity
		}
		parts := make([]Part, len(v))
		for i, raw := range v {
			parts[i] = Part{Value: widen(raw)}
		}
		return CompositeKey{Parts: parts}, nil
	default:
		if c.Arity() < 1 {
			return CompositeKey{}, ErrWrongArity
		}
		return CompositeKey{Parts: []Part{{Value: widen(key)}}}, nil
	}
}

func widen(v any) any {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case float32:
		return float64(x)
	default:
		return v
	}
}

// Serialize produces the on-page byte form of a full key: one type tag +
// length-prefixed payload per component, optionally wrapped by the
// configured Cipher as [4-byte plaintext length][ciphertext].
func (c *Codec) Serialize(ck CompositeKey) ([]byte, error) {
	if len(ck.Parts) != c.Arity() {
		return nil, ErrIncompleteKey
	}
	for _, p := range ck.Parts {
		if p.Sentinel != SentinelNone {
			return nil, ErrSentinelKey
		}
	}

	plain, err := encodeParts(ck.Parts, c.Types)
	if err != nil {
		return nil, err
	}

	out := plain
	if c.Cipher != nil {
		ciphertext, err := c.Cipher.Encrypt(plain)
		if err != nil {
			return nil, fmt.Errorf("keycodec: encrypt: %w", err)
		}
		out = make([]byte, 4+len(ciphertext))
		binary.LittleEndian.PutUint32(out[:4], uint32(len(plain)))
		copy(out[4:], ciphertext)
	}

	if c.MaxKeySize > 0 && len(out) > c.MaxKeySize {
		return nil, ErrKeyTooBig
	}
	return out, nil
}

// Deserialize is the inverse of Serialize: it recovers a full CompositeKey
// (no sentinels — those never reach disk) from on-page bytes.
func (c *Codec) Deserialize(raw []byte) (CompositeKey, error) {
	plain := raw
	if c.Cipher != nil {
		if len(raw) < 4 {
			return CompositeKey{}, fmt.Errorf("keycodec: encrypted key too short")
		}
		plainLen := int(binary.LittleEndian.Uint32(raw[:4]))
		decrypted, err := c.Cipher.Decrypt(raw[4:], 0, len(raw)-4)
		if err != nil {
			return CompositeKey{}, fmt.Errorf("keycodec: decrypt: %w", err)
		}
		if len(decrypted) != plainLen {
			return CompositeKey{}, fmt.Errorf("keycodec: decrypted length %d != recorded %d", len(decrypted), plainLen)
		}
		plain = decrypted
	}

	parts, err := decodeParts(plain)
	if err != nil {
		return CompositeKey{}, err
	}
	return CompositeKey{Parts: parts}, nil
}

// CompareKeys is the tree's total order over composite keys, sentinel
// aware: a low sentinel compares below every real value and a high
// sentinel compares above every real value, component by component.
func (c *Codec) CompareKeys(a, b CompositeKey) int {
	n := len(a.Parts)
	if len(b.Parts) < n {
		n = len(b.Parts)
	}
	for i := 0; i < n; i++ {
		if d := comparePart(a.Parts[i], b.Parts[i]); d != 0 {
			return d
		}
	}
	// Shorter partial key sorts before a longer key sharing its prefix —
	// this only arises transiently during boundary construction, since
	// Serialize refuses to persist a key with a mismatched part count.
	return len(a.Parts) - len(b.Parts)
}

// Compare is the tree's on-page sort/search order (wired as bucket.find /
// bucket.childIndex's cmp): it decodes both sides and compares them the
// same way CompareKeys does, component by component. Raw byte comparison
// of the length-prefixed encoding (encodeParts writes [type][4-byte
// length][payload] per component) is NOT a substitute for this: a
// variable-length TypeString/TypeBytes payload sorts by its length prefix
// first, so e.g. "b" (length 1) would sort before "aa" (length 2) even
// though "aa" < "b" lexicographically. Decoding first is the only way raw
// on-page keys and CompareKeys agree, which every cursor boundary check
// (passesLow/passesHigh) requires. When a Cipher is configured this still
// decrypts and decodes both sides — an AES-GCM-sealed key's plaintext
// order is real, it is only the ciphertext bytes that carry none of it.
// A key that fails to decode (corruption) falls back to raw byte order so
// callers get a total, if meaningless, order rather than a panic.
func (c *Codec) Compare(a, b []byte) int {
	ak, aerr := c.Deserialize(a)
	if aerr != nil {
		return bytesCompare(a, b)
	}
	bk, berr := c.Deserialize(b)
	if berr != nil {
		return bytesCompare(a, b)
	}
	return c.CompareKeys(ak, bk)
}

// CompareKeyToRaw compares an in-memory (possibly sentinel-bearing)
// CompositeKey against a raw on-page key, decoding the latter first. Used
// by the tree's boundary adapter (§C7), where the search side may carry a
// low/high sentinel that never has a raw byte form of its own.
func (c *Codec) CompareKeyToRaw(search CompositeKey, raw []byte) int {
	stored, err := c.Deserialize(raw)
	if err != nil {
		return 0
	}
	return c.CompareKeys(search, stored)
}

func bytesCompare(a, b []byte) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return len(a) - len(b)
}
