package store

import "github.com/fulldump/idxdb/dberrors"

// Table is the uniform, per-table contract the tables package's managers
// are written against, regardless of whether they sit on a read-only
// Snapshot or a writable BufferedEngine.
type Table interface {
	Get(key []byte) ([]byte, bool)
	Put(key, value []byte) error
	Delete(key []byte) error
	Scan(from, to []byte, fn func(key, value []byte) bool)
}

// snapshotTable adapts one named table of a Snapshot to Table. Writes
// always fail: the Read Database never calls them (mutation entry points
// on the Read Database fail before reaching a manager), so a call here
// means a programming error, not user input.
type snapshotTable struct {
	table *KVTable
}

func (s *snapshotTable) Get(key []byte) ([]byte, bool) { return s.table.Get(key) }
func (s *snapshotTable) Scan(from, to []byte, fn func(key, value []byte) bool) {
	s.table.Scan(from, to, fn)
}
func (s *snapshotTable) Put(key, value []byte) error { return dberrors.ErrInternal }
func (s *snapshotTable) Delete(key []byte) error     { return dberrors.ErrInternal }

// NewSnapshotTable exposes one named table of a Snapshot as a Table.
func NewSnapshotTable(snap *Snapshot, name string) Table {
	return &snapshotTable{table: snap.Table(name)}
}

// bufferedTable adapts one named table of a BufferedEngine to Table.
type bufferedTable struct {
	engine *BufferedEngine
	name   string
}

func (b *bufferedTable) Get(key []byte) ([]byte, bool) { return b.engine.Get(b.name, key) }
func (b *bufferedTable) Scan(from, to []byte, fn func(key, value []byte) bool) {
	b.engine.Scan(b.name, from, to, fn)
}
func (b *bufferedTable) Put(key, value []byte) error {
	b.engine.Put(b.name, key, value)
	return nil
}
func (b *bufferedTable) Delete(key []byte) error {
	b.engine.Delete(b.name, key)
	return nil
}

// NewBufferedTable exposes one named table of a BufferedEngine as a Table.
func NewBufferedTable(engine *BufferedEngine, name string) Table {
	return &bufferedTable{engine: engine, name: name}
}

// TableNames lists the six co-operating tables, exported for callers
// (e.g. tables.Manager) that need to construct one Table per name.
func TableNames() []string {
	out := make([]string, len(tableNames))
	copy(out, tableNames)
	return out
}
