package tables

import (
	"github.com/fulldump/idxdb/store"
)

// Manager is the Table Manager contract: handles to the six underlying
// tables, plus reopen for reader-snapshot invalidation.
type Manager interface {
	Record() *RecordManager
	Attribute() *AttributeManager
	Lexicon() *LexiconManager
	TermList() *TermListManager
	PostList() *PostListManager
	PositionList() *PositionListManager

	// ReopenBecauseOverwritten refreshes all six table handles to the
	// current committed revision.
	ReopenBecauseOverwritten() error

	// Stale reports whether a newer revision has been committed since
	// this manager's handles were captured, without refreshing them.
	Stale() bool
}

// BufferedManager is the writable Table Manager variant: a Manager that
// buffers writes until Apply, or discards them with Cancel.
type BufferedManager interface {
	Manager
	Apply() error
	Cancel()
}

// managers holds the six per-table façades that newManagers builds over
// one store.Table per named table. Shared by DiskManager and
// BufferedTableManager.
type managers struct {
	record       *RecordManager
	attribute    *AttributeManager
	lexicon      *LexiconManager
	termlist     *TermListManager
	postlist     *PostListManager
	positionlist *PositionListManager
}

func newManagers(tables map[string]store.Table) *managers {
	return &managers{
		record:       &RecordManager{table: tables[store.TableRecord]},
		attribute:    &AttributeManager{table: tables[store.TableAttribute]},
		lexicon:      &LexiconManager{table: tables[store.TableLexicon]},
		termlist:     &TermListManager{table: tables[store.TableTermList], lexicon: nil},
		postlist:     &PostListManager{table: tables[store.TablePostList]},
		positionlist: &PositionListManager{table: tables[store.TablePositionList]},
	}
}

// DiskManager is the read-only Table Manager variant: it opens the six
// tables against a fixed committed store.Snapshot.
type DiskManager struct {
	engine *store.Engine
	snap   *store.Snapshot
	m      *managers
}

// OpenDisk opens dir read-only against its current committed revision.
// block_size only matters when a database is first created, so a
// read-only open always passes the default; store.OpenEngine only
// consults it when dir has no existing database yet, in which case this
// call creates an empty one at the default block size.
func OpenDisk(dir string) (*DiskManager, error) {
	engine, err := store.OpenEngine(dir, false, store.DefaultBlockSize)
	if err != nil {
		return nil, err
	}
	dm := &DiskManager{engine: engine}
	dm.setSnapshot(engine.Snapshot())
	return dm, nil
}

func (d *DiskManager) setSnapshot(snap *store.Snapshot) {
	d.snap = snap
	tbls := make(map[string]store.Table, len(store.TableNames()))
	for _, name := range store.TableNames() {
		tbls[name] = store.NewSnapshotTable(snap, name)
	}
	d.m = newManagers(tbls)
	d.m.termlist.lexicon = d.m.lexicon
	d.m.postlist.lexicon = d.m.lexicon
}

func (d *DiskManager) Record() *RecordManager             { return d.m.record }
func (d *DiskManager) Attribute() *AttributeManager        { return d.m.attribute }
func (d *DiskManager) Lexicon() *LexiconManager            { return d.m.lexicon }
func (d *DiskManager) TermList() *TermListManager          { return d.m.termlist }
func (d *DiskManager) PostList() *PostListManager          { return d.m.postlist }
func (d *DiskManager) PositionList() *PositionListManager  { return d.m.positionlist }

func (d *DiskManager) Stale() bool { return d.snap.Stale() }

func (d *DiskManager) ReopenBecauseOverwritten() error {
	d.setSnapshot(d.engine.Snapshot())
	return nil
}

func (d *DiskManager) Close() error {
	return d.engine.Close()
}

// BufferedTableManager is the writable Table Manager variant: it wraps a
// store.BufferedEngine, so every read sees buffered writes.
type BufferedTableManager struct {
	engine *store.BufferedEngine
	m      *managers
}

// OpenBuffered opens dir for writing, creating it if necessary.
// performRecovery controls WAL recovery on a torn trailing write.
// blockSize must be a power of two in [2048, 65536]; it is validated
// when dir has no existing database and ignored when reopening one.
func OpenBuffered(dir string, performRecovery bool, blockSize int) (*BufferedTableManager, error) {
	engine, err := store.OpenBuffered(dir, performRecovery, blockSize)
	if err != nil {
		return nil, err
	}
	bm := &BufferedTableManager{engine: engine}
	bm.rebuild()
	return bm, nil
}

func (b *BufferedTableManager) rebuild() {
	tbls := make(map[string]store.Table, len(store.TableNames()))
	for _, name := range store.TableNames() {
		tbls[name] = store.NewBufferedTable(b.engine, name)
	}
	b.m = newManagers(tbls)
	b.m.termlist.lexicon = b.m.lexicon
	b.m.postlist.lexicon = b.m.lexicon
}

func (b *BufferedTableManager) Record() *RecordManager            { return b.m.record }
func (b *BufferedTableManager) Attribute() *AttributeManager       { return b.m.attribute }
func (b *BufferedTableManager) Lexicon() *LexiconManager           { return b.m.lexicon }
func (b *BufferedTableManager) TermList() *TermListManager         { return b.m.termlist }
func (b *BufferedTableManager) PostList() *PostListManager         { return b.m.postlist }
func (b *BufferedTableManager) PositionList() *PositionListManager { return b.m.positionlist }

// Stale is always false for the writer: only one writer holds a
// directory at a time, so nothing else can advance the revision out
// from under it.
func (b *BufferedTableManager) Stale() bool { return false }

// ReopenBecauseOverwritten is a no-op for the writer; kept so it
// satisfies Manager uniformly alongside DiskManager.
func (b *BufferedTableManager) ReopenBecauseOverwritten() error { return nil }

func (b *BufferedTableManager) Apply() error { return b.engine.Apply() }
func (b *BufferedTableManager) Cancel()      { b.engine.Cancel() }

func (b *BufferedTableManager) Close() error { return b.engine.Close() }
