package database

import (
	"os"
	"testing"

	"github.com/fulldump/biff"
	"github.com/fulldump/idxdb/dberrors"
	"github.com/fulldump/idxdb/store"
	"github.com/fulldump/idxdb/types"
)

func testDir(t *testing.T) string {
	dir, err := os.MkdirTemp("", "idxdb-database-*")
	biff.AssertNil(err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

func TestScenario1_EmptyDatabase(t *testing.T) {
	rdb, err := OpenRead(testDir(t))
	biff.AssertNil(err)
	defer rdb.Close()

	biff.AssertEqual(rdb.GetDocCount(), uint64(0))
	biff.AssertEqual(rdb.GetAvLength(), float64(0))
	biff.AssertEqual(rdb.TermExists("x"), false)
	biff.AssertEqual(rdb.GetTermFreq("x"), uint32(0))
}

func TestScenario2And3_InsertAndQuery(t *testing.T) {
	dir := testDir(t)
	wdb, err := OpenWritable(dir, false, store.DefaultBlockSize, nil)
	biff.AssertNil(err)
	defer wdb.Close()

	doc1 := &types.Document{
		Data: []byte("hello"),
		Keys: map[uint32][]byte{1: []byte("a")},
		Terms: map[string]types.TermData{
			"cat": {WDF: 2, Positions: []uint32{0, 3}},
			"dog": {WDF: 1, Positions: []uint32{1}},
		},
	}
	did1, err := wdb.AddDocument(doc1)
	biff.AssertNil(err)
	biff.AssertNil(wdb.Flush())

	biff.AssertEqual(wdb.GetDocCount(), uint64(1))
	biff.AssertEqual(wdb.GetAvLength(), float64(3))
	biff.AssertEqual(wdb.GetTermFreq("cat"), uint32(1))

	cursor := wdb.OpenPostList("cat")
	biff.AssertEqual(cursor.Next(), true)
	biff.AssertEqual(cursor.DocID(), did1)
	biff.AssertEqual(cursor.WDF(), uint32(2))
	biff.AssertEqual(cursor.DocLength(), uint64(3))
	biff.AssertEqual(cursor.Next(), false)
	cursor.Close()

	doc2 := &types.Document{
		Data:  []byte("world"),
		Terms: map[string]types.TermData{"cat": {WDF: 1, Positions: []uint32{5}}},
	}
	_, err = wdb.AddDocument(doc2)
	biff.AssertNil(err)
	biff.AssertNil(wdb.Flush())

	biff.AssertEqual(wdb.GetTermFreq("cat"), uint32(2))
	biff.AssertEqual(wdb.GetCollectionFreq("cat"), uint64(3))
	biff.AssertEqual(wdb.GetDocCount(), uint64(2))
	biff.AssertEqual(wdb.GetAvLength(), float64(2))

	got, err := wdb.GetDocument(did1)
	biff.AssertNil(err)
	biff.AssertEqual(string(got.Data), "hello")
	biff.AssertEqual(string(got.Keys[1]), "a")
	biff.AssertEqual(got.Terms["cat"].WDF, uint32(2))
	biff.AssertEqual(got.Terms["cat"].Positions, []uint32{0, 3})
}

func TestScenario4_DeleteDocument(t *testing.T) {
	dir := testDir(t)
	wdb, err := OpenWritable(dir, false, store.DefaultBlockSize, nil)
	biff.AssertNil(err)
	defer wdb.Close()

	did1, err := wdb.AddDocument(&types.Document{
		Data:  []byte("hello"),
		Terms: map[string]types.TermData{"cat": {WDF: 2, Positions: []uint32{0, 3}}, "dog": {WDF: 1, Positions: []uint32{1}}},
	})
	biff.AssertNil(err)
	_, err = wdb.AddDocument(&types.Document{
		Data:  []byte("world"),
		Terms: map[string]types.TermData{"cat": {WDF: 1, Positions: []uint32{5}}},
	})
	biff.AssertNil(err)
	biff.AssertNil(wdb.Flush())

	biff.AssertNil(wdb.DeleteDocument(did1))
	biff.AssertNil(wdb.Flush())

	biff.AssertEqual(wdb.GetDocCount(), uint64(1))
	biff.AssertEqual(wdb.GetTermFreq("cat"), uint32(1))
	biff.AssertEqual(wdb.GetTermFreq("dog"), uint32(0))
	biff.AssertEqual(wdb.TermExists("dog"), false)

	cursor := wdb.OpenPostList("cat")
	biff.AssertEqual(cursor.Next(), true)
	biff.AssertEqual(cursor.WDF(), uint32(1))
	biff.AssertEqual(cursor.DocLength(), uint64(1))
	biff.AssertEqual(cursor.Next(), false)
	cursor.Close()

	biff.AssertEqual(len(wdb.tables.Attribute().GetAllAttributes(did1)), 0)
}

func TestScenario5_UnflushedWritesVisibleInSessionOnly(t *testing.T) {
	dir := testDir(t)
	wdb, err := OpenWritable(dir, false, store.DefaultBlockSize, nil)
	biff.AssertNil(err)

	did1, err := wdb.AddDocument(&types.Document{Data: []byte("hello")})
	biff.AssertNil(err)

	doc, err := wdb.GetDocument(did1)
	biff.AssertNil(err)
	biff.AssertEqual(string(doc.Data), "hello")

	// Abandon without flushing: close without ever calling Flush/EndSession.
	wdb.handle.release()

	rdb, err := OpenRead(dir)
	biff.AssertNil(err)
	defer rdb.Close()
	biff.AssertEqual(rdb.GetDocCount(), uint64(0))
}

func TestReservedOperationsAreUnimplemented(t *testing.T) {
	wdb, err := OpenWritable(testDir(t), false, store.DefaultBlockSize, nil)
	biff.AssertNil(err)
	defer wdb.Close()

	biff.AssertEqual(wdb.BeginTransaction(), dberrors.ErrUnimplemented)
	biff.AssertEqual(wdb.CommitTransaction(), dberrors.ErrUnimplemented)
	biff.AssertEqual(wdb.CancelTransaction(), dberrors.ErrUnimplemented)
	biff.AssertEqual(wdb.ReplaceDocument(1, &types.Document{}), dberrors.ErrUnimplemented)

	_, err = wdb.GetDocLength(1)
	biff.AssertEqual(err, dberrors.ErrUnimplemented)

	_, err = wdb.OpenPositionList(1, "x")
	biff.AssertEqual(err, dberrors.ErrUnimplemented)
}

func TestReadDatabaseMutationsFail(t *testing.T) {
	rdb, err := OpenRead(testDir(t))
	biff.AssertNil(err)
	defer rdb.Close()

	_, err = rdb.AddDocument(&types.Document{})
	biff.AssertEqual(err, dberrors.ErrInvalidOperation)

	biff.AssertEqual(rdb.DeleteDocument(1), dberrors.ErrInvalidOperation)
	biff.AssertEqual(rdb.Flush(), dberrors.ErrInvalidOperation)
}
