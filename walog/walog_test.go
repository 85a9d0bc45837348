package walog

import "testing"

func TestAppendAndReplay(t *testing.T) {
	l, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer l.Close()

	want := [][]byte{[]byte("first"), []byte("second"), []byte("third")}
	var lsns []uint64
	for _, payload := range want {
		lsn, err := l.Append(payload)
		if err != nil {
			t.Fatalf("append: %v", err)
		}
		lsns = append(lsns, lsn)
	}
	if err := l.Sync(); err != nil {
		t.Fatalf("sync: %v", err)
	}

	var got []Record
	if err := l.ReplayFromLSN(0, func(r Record) error {
		got = append(got, r)
		return nil
	}); err != nil {
		t.Fatalf("replay: %v", err)
	}

	if len(got) != len(want) {
		t.Fatalf("expected %d records, got %d", len(want), len(got))
	}
	for i, r := range got {
		if r.LSN != lsns[i] {
			t.Fatalf("record %d: expected lsn %d, got %d", i, lsns[i], r.LSN)
		}
		if string(r.Data) != string(want[i]) {
			t.Fatalf("record %d: expected %q, got %q", i, want[i], r.Data)
		}
	}
}

func TestReplayFromLSNSkipsEarlierRecords(t *testing.T) {
	l, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer l.Close()

	first, err := l.Append([]byte("a"))
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	second, err := l.Append([]byte("b"))
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	var got []Record
	if err := l.ReplayFromLSN(second, func(r Record) error {
		got = append(got, r)
		return nil
	}); err != nil {
		t.Fatalf("replay: %v", err)
	}
	if len(got) != 1 || got[0].LSN != second {
		t.Fatalf("expected only lsn %d (after %d), got %+v", second, first, got)
	}
}

func TestRecoverReopensExistingSegments(t *testing.T) {
	dir := t.TempDir()

	l1, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	lsn, err := l1.Append([]byte("payload"))
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := l1.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	l2, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer l2.Close()

	if l2.currentLSN != lsn {
		t.Fatalf("expected recovered currentLSN %d, got %d", lsn, l2.currentLSN)
	}
}
