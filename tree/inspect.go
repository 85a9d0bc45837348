package tree

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"

	"ridtree/keycodec"
)

// Inspect writes a human-readable BFS dump of the tree's on-disk structure
// to w: the entry count and allocated page count, then each level's buckets
// with their keys and (for leaves) each key's RID multiset, followed by
// the null key's multiset.
func (t *Tree) Inspect(w io.Writer) error {
	return t.withRead(func() error {
		pages, _ := t.cache.GetFilledUpTo(t.fileID)
		fmt.Fprintf(w, "Index %q: %s entries across %s pages\n",
			t.name, humanize.Comma(t.size), humanize.Comma(pages))

		if t.root < 0 {
			fmt.Fprintln(w, "  (empty tree)")
		} else {
			if err := t.inspectLevels(w); err != nil {
				return err
			}
		}

		nullValues, err := t.null.Values()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "  Null key: %s RID(s)\n", humanize.Comma(int64(len(nullValues))))
		return nil
	})
}

func (t *Tree) inspectLevels(w io.Writer) error {
	queue := []int64{t.root}
	level := 0
	for len(queue) > 0 {
		fmt.Fprintf(w, "  Level %d:\n", level)
		var next []int64
		for _, pageID := range queue {
			fr, err := t.cache.LoadPageForRead(pageID)
			if err != nil {
				fmt.Fprintf(w, "    [page %d] read error: %v\n", pageID, err)
				continue
			}
			b, err := decodeBucket(pageID, fr.Data)
			t.cache.ReleasePageFromRead(fr)
			if err != nil {
				fmt.Fprintf(w, "    [page %d] decode error: %v\n", pageID, err)
				continue
			}

			if b.isLeaf {
				fmt.Fprintf(w, "    [page %d] LEAF keys=%d left=%d right=%d\n",
					pageID, len(b.keys), b.leftSibling, b.rightSibling)
				for i, key := range b.keys {
					ck, err := t.codec.Deserialize(key)
					if err != nil {
						fmt.Fprintf(w, "      <undecodable key>: %v\n", err)
						continue
					}
					fmt.Fprintf(w, "      %s -> %d RID(s): %v\n", formatCompositeKey(ck), len(b.values[i]), b.values[i])
				}
				continue
			}

			keyStrs := make([]string, len(b.keys))
			for i, key := range b.keys {
				ck, err := t.codec.Deserialize(key)
				if err != nil {
					keyStrs[i] = "<undecodable>"
					continue
				}
				keyStrs[i] = formatCompositeKey(ck)
			}
			fmt.Fprintf(w, "    [page %d] INTERNAL keys=%v children=%v\n", pageID, keyStrs, b.children)
			next = append(next, b.children...)
		}
		queue = next
		level++
	}
	return nil
}

func formatCompositeKey(ck keycodec.CompositeKey) string {
	if len(ck.Parts) == 1 {
		return fmt.Sprintf("%v", ck.Parts[0].Value)
	}
	vals := make([]any, len(ck.Parts))
	for i, p := range ck.Parts {
		vals[i] = p.Value
	}
	return fmt.Sprintf("%v", vals)
}
