package tree

import (
	"testing"

	"ridtree/atomicop"
	"ridtree/keycodec"
	"ridtree/pagecache"
	"ridtree/rid"
	"ridtree/walog"
)

func newTestTree(t *testing.T, cfg Config) *Tree {
	t.Helper()
	dir := t.TempDir()

	cache, err := pagecache.NewCache(64)
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	log, err := walog.Open(dir)
	if err != nil {
		t.Fatalf("walog.Open: %v", err)
	}
	coord := atomicop.NewCoordinator(log)
	lockMgr := atomicop.NewManager()

	tr, err := Create(dir, "idx", cfg, cache, coord, lockMgr)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	t.Cleanup(func() { tr.Close() })
	return tr
}

func int64Config() Config {
	return Config{
		KeyTypes:           []keycodec.Type{keycodec.TypeInt64},
		MaxKeySize:         256,
		CursorPrefetchSize: 2,
		NullKeysSupported:  true,
	}
}

func stringConfig() Config {
	return Config{
		KeyTypes:           []keycodec.Type{keycodec.TypeString},
		MaxKeySize:         256,
		CursorPrefetchSize: 4,
	}
}

func compositeConfig() Config {
	return Config{
		KeyTypes:           []keycodec.Type{keycodec.TypeString, keycodec.TypeInt64},
		MaxKeySize:         256,
		CursorPrefetchSize: 4,
	}
}

func r(cluster, page uint32, slot uint16) rid.RID {
	return rid.RID{ClusterID: cluster, PageNumber: page, Slot: slot}
}
