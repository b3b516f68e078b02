package database

import (
	"testing"

	"github.com/fulldump/biff"
	"github.com/fulldump/idxdb/dberrors"
	"github.com/fulldump/idxdb/store"
	"github.com/fulldump/idxdb/tables"
	"github.com/fulldump/idxdb/types"
)

// staleThenFreshManager wraps a real tables.Manager, reporting Stale as
// true until it has been reopened staleUntilReopens times. It stands in
// for scenario 6's concurrent writer overwrite deterministically,
// without relying on a real inter-process race to land mid-call.
type staleThenFreshManager struct {
	tables.Manager
	staleUntilReopens int
	reopens           int
}

func (m *staleThenFreshManager) Stale() bool {
	return m.reopens < m.staleUntilReopens
}

func (m *staleThenFreshManager) ReopenBecauseOverwritten() error {
	m.reopens++
	return m.Manager.ReopenBecauseOverwritten()
}

func TestScenario6_GetDocumentRetriesThenSucceeds(t *testing.T) {
	dir := testDir(t)
	wdb, err := OpenWritable(dir, false, store.DefaultBlockSize, nil)
	biff.AssertNil(err)
	defer wdb.Close()

	did, err := wdb.AddDocument(&types.Document{
		Data:  []byte("hello"),
		Terms: map[string]types.TermData{"cat": {WDF: 1, Positions: []uint32{0}}},
	})
	biff.AssertNil(err)
	biff.AssertNil(wdb.Flush())

	fake := &staleThenFreshManager{Manager: wdb.tables, staleUntilReopens: 2}
	rdb := &ReadDatabase{handle: newDBHandle(fake)}

	doc, err := rdb.GetDocument(did)
	biff.AssertNil(err)
	biff.AssertEqual(string(doc.Data), "hello")
	biff.AssertEqual(fake.reopens, 2)
}

func TestGetDocument_ExhaustsRetryBudgetAndReraises(t *testing.T) {
	dir := testDir(t)
	wdb, err := OpenWritable(dir, false, store.DefaultBlockSize, nil)
	biff.AssertNil(err)
	defer wdb.Close()

	did, err := wdb.AddDocument(&types.Document{Data: []byte("x")})
	biff.AssertNil(err)
	biff.AssertNil(wdb.Flush())

	fake := &staleThenFreshManager{Manager: wdb.tables, staleUntilReopens: 999}
	rdb := &ReadDatabase{handle: newDBHandle(fake)}

	_, err = rdb.GetDocument(did)
	biff.AssertEqual(err, dberrors.ErrDatabaseModified)
}

func TestP5_SingleTableReadsDoNotRetry(t *testing.T) {
	dir := testDir(t)
	wdb, err := OpenWritable(dir, false, store.DefaultBlockSize, nil)
	biff.AssertNil(err)
	defer wdb.Close()

	_, err = wdb.AddDocument(&types.Document{Data: []byte("x")})
	biff.AssertNil(err)
	biff.AssertNil(wdb.Flush())

	fake := &staleThenFreshManager{Manager: wdb.tables, staleUntilReopens: 999}
	rdb := &ReadDatabase{handle: newDBHandle(fake)}

	// GetDocCount is a single-table read: it consults Record() directly
	// and has no retry contract, unlike get_document.
	biff.AssertEqual(rdb.GetDocCount(), uint64(1))
	biff.AssertEqual(fake.reopens, 0)
}

// TestDeleteDocument_FailurePartwayCancelsAllBufferedWork verifies that
// a failure partway through delete_document doesn't just roll back its
// own writes: it cancels the entire buffered change set, wiping any
// earlier write from the same session that hadn't been Flushed yet.
func TestDeleteDocument_FailurePartwayCancelsAllBufferedWork(t *testing.T) {
	dir := testDir(t)
	wdb, err := OpenWritable(dir, false, store.DefaultBlockSize, nil)
	biff.AssertNil(err)
	defer wdb.Close()

	// An unrelated prior write, left buffered (never flushed).
	priorID, err := wdb.AddDocument(&types.Document{Data: []byte("prior")})
	biff.AssertNil(err)

	// A second, also-buffered document with two terms.
	brokenID, err := wdb.AddDocument(&types.Document{
		Data: []byte("broken"),
		Terms: map[string]types.TermData{
			"cat": {WDF: 1},
			"dog": {WDF: 1},
		},
	})
	biff.AssertNil(err)

	// Corrupt brokenID's own posting list out from under it: its
	// term-list still lists "cat", but the posting entry is gone, so
	// delete_document's per-term cleanup loop is guaranteed to fail
	// when it reaches "cat", regardless of map iteration order.
	biff.AssertNil(wdb.tables.PostList().DeleteEntry("cat", brokenID))

	err = wdb.DeleteDocument(brokenID)
	biff.AssertEqual(err, dberrors.ErrNotFound)

	// The failed delete_document cancelled the entire buffer, so the
	// unrelated prior write is gone too, not just brokenID's own state.
	_, err = wdb.GetDocument(priorID)
	biff.AssertEqual(err, dberrors.ErrNotFound)
}
