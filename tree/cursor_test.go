package tree

import "testing"

func TestForwardCursorAscendingOrder(t *testing.T) {
	tr := newTestTree(t, int64Config())
	keys := []int64{5, 3, 8, 1, 9, 4, 7, 2, 6, 0}
	for _, k := range keys {
		tr.Put(k, r(uint32(k), 0, 0))
	}

	c, err := tr.RangeForward(nil, nil, true, true)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	var got []int64
	for c.Next() {
		got = append(got, c.Item().Key.Parts[0].Value.(int64))
	}
	if err := c.Err(); err != nil {
		t.Fatal(err)
	}
	if len(got) != len(keys) {
		t.Fatalf("got %d items, want %d", len(got), len(keys))
	}
	for i := 1; i < len(got); i++ {
		if got[i-1] >= got[i] {
			t.Fatalf("not strictly ascending at %d: %v", i, got)
		}
	}
}

func TestBackwardCursorDescendingOrderLargeTree(t *testing.T) {
	tr := newTestTree(t, int64Config())
	const n = 10000
	for i := int64(0); i < n; i++ {
		tr.Put(i, r(uint32(i), 0, 0))
	}

	c, err := tr.RangeBackward(nil, nil, true, true)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	count := int64(0)
	want := int64(n - 1)
	for c.Next() {
		got := c.Item().Key.Parts[0].Value.(int64)
		if got != want {
			t.Fatalf("at position %d: got key %d, want %d", count, got, want)
		}
		want--
		count++
	}
	if err := c.Err(); err != nil {
		t.Fatal(err)
	}
	if count != n {
		t.Fatalf("visited %d items, want %d", count, n)
	}
}

func TestRangeForwardInclusiveExclusiveBounds(t *testing.T) {
	tr := newTestTree(t, int64Config())
	for i := int64(0); i < 20; i++ {
		tr.Put(i, r(uint32(i), 0, 0))
	}

	c, err := tr.RangeForward(int64(5), int64(10), true, false)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	var got []int64
	for c.Next() {
		got = append(got, c.Item().Key.Parts[0].Value.(int64))
	}
	want := []int64{5, 6, 7, 8, 9}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestRangeBackwardInclusiveExclusiveBounds(t *testing.T) {
	tr := newTestTree(t, int64Config())
	for i := int64(0); i < 20; i++ {
		tr.Put(i, r(uint32(i), 0, 0))
	}

	c, err := tr.RangeBackward(int64(5), int64(10), false, true)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	var got []int64
	for c.Next() {
		got = append(got, c.Item().Key.Parts[0].Value.(int64))
	}
	want := []int64{10, 9, 8, 7, 6}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestCursorOnEmptyTree(t *testing.T) {
	tr := newTestTree(t, int64Config())
	c, err := tr.RangeForward(nil, nil, true, true)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	if c.Next() {
		t.Fatal("expected no items on empty tree")
	}
}

func TestCursorExpandsMultisetPerRID(t *testing.T) {
	tr := newTestTree(t, int64Config())
	tr.Put(int64(1), r(1, 0, 0))
	tr.Put(int64(1), r(1, 0, 1))
	tr.Put(int64(1), r(1, 0, 2))

	c, err := tr.RangeForward(nil, nil, true, true)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	count := 0
	for c.Next() {
		count++
	}
	if count != 3 {
		t.Fatalf("expected 3 items (one per RID), got %d", count)
	}
}

func TestAscendingCursorEmitsEachKeyOnce(t *testing.T) {
	tr := newTestTree(t, int64Config())
	tr.Put(int64(1), r(1, 0, 0))
	tr.Put(int64(1), r(1, 0, 1))
	tr.Put(int64(1), r(1, 0, 2))
	tr.Put(int64(2), r(2, 0, 0))

	c, err := tr.AscendingCursor()
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	var got []int64
	for c.Next() {
		got = append(got, c.Key().Parts[0].Value.(int64))
	}
	if err := c.Err(); err != nil {
		t.Fatal(err)
	}
	want := []int64{1, 2}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestAscendingCursorOnEmptyTree(t *testing.T) {
	tr := newTestTree(t, int64Config())
	c, err := tr.AscendingCursor()
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	if c.Next() {
		t.Fatal("expected no keys on empty tree")
	}
}

func TestCompositeKeyPartialPrefixScan(t *testing.T) {
	tr := newTestTree(t, compositeConfig())
	entries := []struct {
		tenant string
		seq    int64
	}{
		{"a", 1}, {"a", 2}, {"a", 3},
		{"b", 1}, {"b", 2},
		{"c", 1},
	}
	for _, e := range entries {
		key := []any{e.tenant, e.seq}
		tr.Put(key, r(1, 0, 0))
	}

	// Scan only tenant "b"'s entries via a partial-key boundary.
	c, err := tr.RangeForward([]any{"b"}, []any{"b"}, true, true)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	count := 0
	for c.Next() {
		tenant := c.Item().Key.Parts[0].Value.(string)
		if tenant != "b" {
			t.Fatalf("leaked entry from tenant %q", tenant)
		}
		count++
	}
	if count != 2 {
		t.Fatalf("expected 2 entries for tenant b, got %d", count)
	}
}
