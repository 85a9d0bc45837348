package tree

import "ridtree/keycodec"

// extendLow pads a partial composite key out to the tree's full key arity
// with low sentinels, realizing "no lower bound on the unspecified trailing
// components" — the descent boundary for the start of a forward range scan
// over a composite key's leading components.
func extendLow(ck keycodec.CompositeKey, arity int) keycodec.CompositeKey {
	return extendWith(ck, arity, keycodec.Low)
}

// extendHigh is extendLow's high-sentinel counterpart, used to find where a
// backward scan (or a forward scan's upper bound) should begin.
func extendHigh(ck keycodec.CompositeKey, arity int) keycodec.CompositeKey {
	return extendWith(ck, arity, keycodec.High)
}

func extendWith(ck keycodec.CompositeKey, arity int, fill func() keycodec.Part) keycodec.CompositeKey {
	if len(ck.Parts) >= arity {
		return ck
	}
	out := keycodec.CompositeKey{Parts: make([]keycodec.Part, arity)}
	copy(out.Parts, ck.Parts)
	for i := len(ck.Parts); i < arity; i++ {
		out.Parts[i] = fill()
	}
	return out
}

// matchesPrefix reports whether entry agrees with bound on exactly the
// components bound specifies. Used to detect an exact boundary match when
// applying an exclusive range endpoint against a (possibly partial) key.
func matchesPrefix(codec *keycodec.Codec, entry keycodec.CompositeKey, bound keycodec.CompositeKey) bool {
	n := len(bound.Parts)
	if n > len(entry.Parts) {
		n = len(entry.Parts)
	}
	return codec.CompareKeys(keycodec.CompositeKey{Parts: entry.Parts[:n]}, bound) == 0
}
