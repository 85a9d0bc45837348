package keycodec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// sentinelKind marks a Part as an ephemeral boundary marker rather than a
// real stored value. Sentinel-bearing keys exist only in memory, built by
// the tree's boundary adapter (§C7) to pad a partial composite key out to
// full arity for a range-scan search.
type sentinelKind byte

const (
	// SentinelNone marks an ordinary value-bearing part.
	SentinelNone sentinelKind = iota
	// SentinelLow compares below every real value of its component type.
	SentinelLow
	// SentinelHigh compares above every real value of its component type.
	SentinelHigh
)

// Part is one component of a CompositeKey.
type Part struct {
	Value    any
	Sentinel sentinelKind
}

// Low returns a low-sentinel part, standing in for "no lower bound" at
// this component position.
func Low() Part { return Part{Sentinel: SentinelLow} }

// High returns a high-sentinel part, standing in for "no upper bound" at
// this component position.
func High() Part { return Part{Sentinel: SentinelHigh} }

// CompositeKey is an ordered tuple of key components. A tree with a
// single scalar key type still uses CompositeKey internally with one
// part; callers never see the wrapping unless they build composite keys
// or boundaries directly.
type CompositeKey struct {
	Parts []Part
}

func comparePart(a, b Part) int {
	if a.Sentinel != SentinelNone || b.Sentinel != SentinelNone {
		return sentinelRank(a.Sentinel) - sentinelRank(b.Sentinel)
	}
	return compareValue(a.Value, b.Value)
}

// sentinelRank places a low sentinel below, and a high sentinel above, any
// value-bearing part.
func sentinelRank(s sentinelKind) int {
	switch s {
	case SentinelLow:
		return -1
	case SentinelHigh:
		return 1
	default:
		return 0
	}
}

func compareValue(a, b any) int {
	switch av := a.(type) {
	case []byte:
		return bytes.Compare(av, b.([]byte))
	case string:
		bv := b.(string)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	case int64:
		bv := b.(int64)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	case float64:
		bv := b.(float64)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	default:
		panic(fmt.Sprintf("keycodec: unsupported key component type %T", a))
	}
}

func typeOf(v any) (Type, error) {
	switch v.(type) {
	case []byte:
		return TypeBytes, nil
	case string:
		return TypeString, nil
	case int64:
		return TypeInt64, nil
	case float64:
		return TypeFloat64, nil
	default:
		return 0, fmt.Errorf("keycodec: unsupported key component type %T", v)
	}
}

// encodeParts writes each part as [1-byte type tag][4-byte length][bytes].
// The tag is self-describing so Deserialize does not need the codec's
// configured Types to decode a well-formed key; declaredTypes is not
// consulted, each part's tag comes from its value's own Go type.
func encodeParts(parts []Part, declaredTypes []Type) ([]byte, error) {
	var buf bytes.Buffer
	for _, p := range parts {
		t, err := typeOf(p.Value)
		if err != nil {
			return nil, err
		}
		payload, err := encodeValue(t, p.Value)
		if err != nil {
			return nil, err
		}
		buf.WriteByte(byte(t))
		var lenBuf [4]byte
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(payload)))
		buf.Write(lenBuf[:])
		buf.Write(payload)
	}
	return buf.Bytes(), nil
}

func encodeValue(t Type, v any) ([]byte, error) {
	switch t {
	case TypeBytes:
		return v.([]byte), nil
	case TypeString:
		return []byte(v.(string)), nil
	case TypeInt64:
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], uint64(v.(int64))^(1<<63))
		return b[:], nil
	case TypeFloat64:
		bits := floatBitsOrdered(v.(float64))
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], bits)
		return b[:], nil
	default:
		return nil, ErrUnknownType
	}
}

// floatBitsOrdered maps a float64's bit pattern into one whose big-endian
// byte order matches numeric order, so raw byte comparison of the encoded
// form (used only as a corruption fallback in Compare) is never worse than
// approximately correct.
func floatBitsOrdered(f float64) uint64 {
	bits := math.Float64bits(f)
	if bits&(1<<63) != 0 {
		return ^bits
	}
	return bits | (1 << 63)
}

func decodeParts(buf []byte) ([]Part, error) {
	var parts []Part
	for len(buf) > 0 {
		if len(buf) < 5 {
			return nil, fmt.Errorf("keycodec: truncated key component header")
		}
		t := Type(buf[0])
		n := binary.LittleEndian.Uint32(buf[1:5])
		buf = buf[5:]
		if uint32(len(buf)) < n {
			return nil, fmt.Errorf("keycodec: truncated key component payload")
		}
		payload := buf[:n]
		buf = buf[n:]

		v, err := decodeValue(t, payload)
		if err != nil {
			return nil, err
		}
		parts = append(parts, Part{Value: v})
	}
	return parts, nil
}

func decodeValue(t Type, payload []byte) (any, error) {
	switch t {
	case TypeBytes:
		out := make([]byte, len(payload))
		copy(out, payload)
		return out, nil
	case TypeString:
		return string(payload), nil
	case TypeInt64:
		if len(payload) != 8 {
			return nil, fmt.Errorf("keycodec: int64 component has wrong width %d", len(payload))
		}
		return int64(binary.BigEndian.Uint64(payload) ^ (1 << 63)), nil
	case TypeFloat64:
		if len(payload) != 8 {
			return nil, fmt.Errorf("keycodec: float64 component has wrong width %d", len(payload))
		}
		return floatFromOrderedBits(binary.BigEndian.Uint64(payload)), nil
	default:
		return nil, ErrUnknownType
	}
}

func floatFromOrderedBits(bits uint64) float64 {
	if bits&(1<<63) != 0 {
		bits &^= 1 << 63
	} else {
		bits = ^bits
	}
	return math.Float64frombits(bits)
}
