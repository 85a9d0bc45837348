package keycodec

import "testing"

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	c := New([]Type{TypeInt64, TypeString}, 256, nil)

	ck, err := c.Preprocess([]any{int64(42), "hello"})
	if err != nil {
		t.Fatalf("preprocess: %v", err)
	}

	raw, err := c.Serialize(ck)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}

	got, err := c.Deserialize(raw)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if c.CompareKeys(ck, got) != 0 {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, ck)
	}
}

func TestSerializeRejectsSentinel(t *testing.T) {
	c := New([]Type{TypeInt64}, 256, nil)
	ck := CompositeKey{Parts: []Part{Low()}}
	if _, err := c.Serialize(ck); err != ErrSentinelKey {
		t.Fatalf("expected ErrSentinelKey, got %v", err)
	}
}

func TestSerializeRejectsIncompleteKey(t *testing.T) {
	c := New([]Type{TypeInt64, TypeString}, 256, nil)
	ck, _ := c.Preprocess(int64(1))
	if _, err := c.Serialize(ck); err != ErrIncompleteKey {
		t.Fatalf("expected ErrIncompleteKey, got %v", err)
	}
}

func TestSerializeRejectsOversizeKey(t *testing.T) {
	c := New([]Type{TypeString}, 8, nil)
	ck, _ := c.Preprocess("this string is far longer than eight bytes")
	if _, err := c.Serialize(ck); err != ErrKeyTooBig {
		t.Fatalf("expected ErrKeyTooBig, got %v", err)
	}
}

func TestCompareKeysOrdering(t *testing.T) {
	c := New([]Type{TypeInt64}, 256, nil)
	a, _ := c.Preprocess(int64(1))
	b, _ := c.Preprocess(int64(2))
	if c.CompareKeys(a, b) >= 0 {
		t.Fatalf("expected a < b")
	}
	if c.CompareKeys(b, a) <= 0 {
		t.Fatalf("expected b > a")
	}
	if c.CompareKeys(a, a) != 0 {
		t.Fatalf("expected a == a")
	}
}

func TestSentinelOrdering(t *testing.T) {
	c := New([]Type{TypeInt64}, 256, nil)
	real, _ := c.Preprocess(int64(100))
	low := CompositeKey{Parts: []Part{Low()}}
	high := CompositeKey{Parts: []Part{High()}}

	if c.CompareKeys(low, real) >= 0 {
		t.Fatalf("expected low sentinel to sort below any real value")
	}
	if c.CompareKeys(high, real) <= 0 {
		t.Fatalf("expected high sentinel to sort above any real value")
	}
}

func TestEncryptedRoundTrip(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	cipher, err := NewAESGCMCipher(key)
	if err != nil {
		t.Fatalf("new cipher: %v", err)
	}

	c := New([]Type{TypeBytes}, 4096, cipher)
	ck, _ := c.Preprocess([]byte("secret payload"))

	raw, err := c.Serialize(ck)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}

	got, err := c.Deserialize(raw)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if c.CompareKeys(ck, got) != 0 {
		t.Fatalf("encrypted round trip mismatch")
	}
}

func TestPreprocessWidensScalarTypes(t *testing.T) {
	c := New([]Type{TypeInt64}, 256, nil)
	ck, err := c.Preprocess(7)
	if err != nil {
		t.Fatalf("preprocess: %v", err)
	}
	if _, ok := ck.Parts[0].Value.(int64); !ok {
		t.Fatalf("expected int to widen to int64, got %T", ck.Parts[0].Value)
	}
}
