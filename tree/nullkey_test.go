package tree

import "testing"

func TestNullKeyMultiset(t *testing.T) {
	tr := newTestTree(t, int64Config())

	if err := tr.Put(nil, r(1, 0, 0)); err != nil {
		t.Fatalf("Put(nil): %v", err)
	}
	if err := tr.Put(nil, r(1, 0, 1)); err != nil {
		t.Fatalf("Put(nil): %v", err)
	}

	values, err := tr.Get(nil)
	if err != nil {
		t.Fatalf("Get(nil): %v", err)
	}
	if len(values) != 2 {
		t.Fatalf("expected 2 null-key values, got %d", len(values))
	}

	if removed, err := tr.Remove(nil, r(1, 0, 0)); err != nil || !removed {
		t.Fatalf("Remove(nil): removed=%v err=%v", removed, err)
	}
	values, err = tr.Get(nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(values) != 1 || !values[0].Equal(r(1, 0, 1)) {
		t.Fatalf("unexpected remaining null values: %v", values)
	}
}

func TestNullKeyIndependentFromOrderedKeys(t *testing.T) {
	tr := newTestTree(t, int64Config())
	tr.Put(int64(1), r(1, 0, 0))
	tr.Put(nil, r(2, 0, 0))

	orderedValues, err := tr.Get(int64(1))
	if err != nil {
		t.Fatal(err)
	}
	nullValues, err := tr.Get(nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(orderedValues) != 1 || len(nullValues) != 1 {
		t.Fatalf("ordered=%v null=%v", orderedValues, nullValues)
	}
	if tr.Size() != 2 {
		t.Fatalf("Size() = %d, want 2", tr.Size())
	}
}

func TestNullKeyDisallowedWhenNotConfigured(t *testing.T) {
	cfg := int64Config()
	cfg.NullKeysSupported = false
	tr := newTestTree(t, cfg)

	if err := tr.Put(nil, r(1, 0, 0)); err != ErrNullKeyDisallowed {
		t.Fatalf("Put(nil): expected ErrNullKeyDisallowed, got %v", err)
	}
	if _, err := tr.Get(nil); err != ErrNullKeyDisallowed {
		t.Fatalf("Get(nil): expected ErrNullKeyDisallowed, got %v", err)
	}
	if _, err := tr.Remove(nil, r(1, 0, 0)); err != ErrNullKeyDisallowed {
		t.Fatalf("Remove(nil): expected ErrNullKeyDisallowed, got %v", err)
	}
}
