package store

import (
	"os"
	"testing"

	"github.com/fulldump/biff"
)

func testDir(t *testing.T) string {
	dir, err := os.MkdirTemp("", "idxdb-store-*")
	biff.AssertNil(err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

func TestEngine_CommitAndSnapshot(t *testing.T) {
	dir := testDir(t)

	e, err := OpenEngine(dir, false, DefaultBlockSize)
	biff.AssertNil(err)
	defer e.Close()

	err = e.Commit([]walOp{
		{Table: TableRecord, Kind: opPut, Key: []byte("1"), Value: []byte("hello")},
	})
	biff.AssertNil(err)

	snap := e.Snapshot()
	value, ok := snap.Table(TableRecord).Get([]byte("1"))
	biff.AssertEqual(ok, true)
	biff.AssertEqual(string(value), "hello")
	biff.AssertEqual(snap.Revision(), uint64(1))
}

func TestEngine_SnapshotIsolatedFromLaterCommits(t *testing.T) {
	dir := testDir(t)

	e, err := OpenEngine(dir, false, DefaultBlockSize)
	biff.AssertNil(err)
	defer e.Close()

	e.Commit([]walOp{{Table: TableLexicon, Kind: opPut, Key: []byte("cat"), Value: []byte("1")}})
	snap := e.Snapshot()

	e.Commit([]walOp{{Table: TableLexicon, Kind: opPut, Key: []byte("dog"), Value: []byte("1")}})

	_, ok := snap.Table(TableLexicon).Get([]byte("dog"))
	biff.AssertEqual(ok, false)
	biff.AssertEqual(snap.Stale(), true)
}

func TestEngine_ReplaysWALOnReopen(t *testing.T) {
	dir := testDir(t)

	e, err := OpenEngine(dir, false, DefaultBlockSize)
	biff.AssertNil(err)
	e.Commit([]walOp{{Table: TableRecord, Kind: opPut, Key: []byte("1"), Value: []byte("world")}})
	e.Close()

	e2, err := OpenEngine(dir, false, DefaultBlockSize)
	biff.AssertNil(err)
	defer e2.Close()

	value, ok := e2.Get(TableRecord, []byte("1"))
	biff.AssertEqual(ok, true)
	biff.AssertEqual(string(value), "world")
	biff.AssertEqual(e2.Revision(), uint64(1))
}

func TestEngine_ScanRange(t *testing.T) {
	dir := testDir(t)
	e, err := OpenEngine(dir, false, DefaultBlockSize)
	biff.AssertNil(err)
	defer e.Close()

	e.Commit([]walOp{
		{Table: TableLexicon, Kind: opPut, Key: []byte("ant"), Value: []byte("1")},
		{Table: TableLexicon, Kind: opPut, Key: []byte("cat"), Value: []byte("1")},
		{Table: TableLexicon, Kind: opPut, Key: []byte("dog"), Value: []byte("1")},
	})

	var got []string
	e.Scan(TableLexicon, []byte("b"), []byte("e"), func(key, _ []byte) bool {
		got = append(got, string(key))
		return true
	})
	biff.AssertEqual(got, []string{"cat", "dog"})
}

func TestEngine_RejectsInvalidBlockSizeOnCreate(t *testing.T) {
	dir := testDir(t)

	_, err := OpenEngine(dir, false, 1000) // not a power of two
	biff.AssertEqual(err != nil, true)

	_, err = OpenEngine(dir, false, 1024) // power of two, below minimum
	biff.AssertEqual(err != nil, true)

	_, err = OpenEngine(dir, false, 131072) // power of two, above maximum
	biff.AssertEqual(err != nil, true)
}

func TestEngine_IgnoresBlockSizeOnReopen(t *testing.T) {
	dir := testDir(t)

	e, err := OpenEngine(dir, false, 4096)
	biff.AssertNil(err)
	biff.AssertEqual(e.BlockSize(), 4096)
	e.Commit([]walOp{{Table: TableRecord, Kind: opPut, Key: []byte("1"), Value: []byte("x")}})
	biff.AssertNil(e.Close())

	// An existing database ignores whatever block_size is passed,
	// including an otherwise-invalid one, and never errors on reopen.
	e2, err := OpenEngine(dir, false, 999)
	biff.AssertNil(err)
	defer e2.Close()
	biff.AssertEqual(e2.BlockSize(), DefaultBlockSize)
}
