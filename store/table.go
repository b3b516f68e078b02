package store

import (
	"bytes"

	"github.com/google/btree"
)

// entry is a single key/value pair stored in a KVTable. Ordering is by
// key, byte-lexicographic, which is exactly what the lexicon and the
// posting-list/term-list scans need.
type entry struct {
	key   []byte
	value []byte
}

func lessEntry(a, b entry) bool {
	return bytes.Compare(a.key, b.key) < 0
}

// KVTable is an ordered, in-memory keyed byte-string table: the
// building block every one of the six per-table managers is built on
// top of via a store.Table view (see adapters.go).
//
// Grounded on collectionv2/container.go's BTreeContainer, generalized
// from *Row items to raw byte-string keys/values.
type KVTable struct {
	tree *btree.BTreeG[entry]
}

func newKVTable() *KVTable {
	return &KVTable{
		tree: btree.NewG(32, lessEntry),
	}
}

// Clone returns a copy-on-write snapshot: mutations on the receiver after
// Clone do not affect the returned table and vice versa. This is what
// makes a captured Snapshot immune to concurrent writes on the live
// engine (see store/engine.go).
func (t *KVTable) Clone() *KVTable {
	return &KVTable{tree: t.tree.Clone()}
}

func (t *KVTable) Get(key []byte) ([]byte, bool) {
	e, ok := t.tree.Get(entry{key: key})
	if !ok {
		return nil, false
	}
	return e.value, true
}

func (t *KVTable) Put(key, value []byte) {
	t.tree.ReplaceOrInsert(entry{key: key, value: value})
}

func (t *KVTable) Delete(key []byte) bool {
	_, existed := t.tree.Delete(entry{key: key})
	return existed
}

func (t *KVTable) Len() int {
	return t.tree.Len()
}

// Scan iterates keys in [from, to) ascending. A nil from/to means
// unbounded on that side. fn returning false stops the scan early.
//
// Only ascending scans are needed by this facade (term-list/posting-list
// order and skip_to are always forward), so, unlike the teacher's
// IndexBtree.Traverse, there is no reverse mode here.
func (t *KVTable) Scan(from, to []byte, fn func(key, value []byte) bool) {
	iter := func(e entry) bool {
		return fn(e.key, e.value)
	}

	hasFrom := len(from) > 0
	hasTo := len(to) > 0

	switch {
	case !hasFrom && !hasTo:
		t.tree.Ascend(iter)
	case hasFrom && !hasTo:
		t.tree.AscendGreaterOrEqual(entry{key: from}, iter)
	case !hasFrom && hasTo:
		t.tree.AscendLessThan(entry{key: to}, iter)
	default:
		t.tree.AscendRange(entry{key: from}, entry{key: to}, iter)
	}
}
