// Command ridtree-inspect prints a human-readable dump of a ridtree index's
// on-disk page structure, for debugging.
//
// Usage: ridtree-inspect -dir <dir> -name <index-name> [-keytype int64]
package main

import (
	"flag"
	"fmt"
	"os"

	"ridtree/atomicop"
	"ridtree/keycodec"
	"ridtree/pagecache"
	"ridtree/tree"
	"ridtree/walog"
)

func main() {
	dir := flag.String("dir", ".", "directory containing the index's files")
	name := flag.String("name", "", "index name, without extension")
	keyType := flag.String("keytype", "int64", "key component type: bytes|string|int64|float64")
	cachePages := flag.Int("cache-pages", 256, "resident page cache capacity")
	flag.Parse()

	if *name == "" {
		fmt.Fprintln(os.Stderr, "Usage: ridtree-inspect -dir <dir> -name <index-name> [-keytype int64]")
		os.Exit(1)
	}

	kt, err := parseKeyType(*keyType)
	if err != nil {
		fail(err)
	}

	cache, err := pagecache.NewCache(*cachePages)
	if err != nil {
		fail(err)
	}
	log, err := walog.Open(*dir)
	if err != nil {
		fail(err)
	}
	defer log.Close()

	coord := atomicop.NewCoordinator(log)
	lockMgr := atomicop.NewManager()

	idx, err := tree.Open(*dir, *name, tree.Config{
		KeyTypes:           []keycodec.Type{kt},
		MaxKeySize:         4096,
		CursorPrefetchSize: 8,
	}, cache, coord, lockMgr)
	if err != nil {
		fail(err)
	}
	defer idx.Close()

	if err := idx.Inspect(os.Stdout); err != nil {
		fail(err)
	}
}

func parseKeyType(s string) (keycodec.Type, error) {
	switch s {
	case "bytes":
		return keycodec.TypeBytes, nil
	case "string":
		return keycodec.TypeString, nil
	case "int64":
		return keycodec.TypeInt64, nil
	case "float64":
		return keycodec.TypeFloat64, nil
	default:
		return 0, fmt.Errorf("unknown key type %q", s)
	}
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
