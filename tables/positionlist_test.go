package tables

import (
	"testing"

	"github.com/fulldump/biff"
	"github.com/fulldump/idxdb/dberrors"
	"github.com/fulldump/idxdb/types"
)

func TestPositionListManager_SetAndCursor(t *testing.T) {
	m := newTestManager(t).PositionList()

	id := types.DocID(1)
	biff.AssertNil(m.SetPositionList(id, "cat", []uint32{2, 5, 9}))

	cursor, err := m.OpenPositionList(id, "cat")
	biff.AssertNil(err)

	var got []uint32
	for cursor.Next() {
		got = append(got, cursor.Position())
	}
	biff.AssertEqual(got, []uint32{2, 5, 9})
	biff.AssertEqual(cursor.AtEnd(), true)
}

func TestPositionListManager_Delete(t *testing.T) {
	m := newTestManager(t).PositionList()

	id := types.DocID(1)
	m.SetPositionList(id, "cat", []uint32{1})
	biff.AssertNil(m.DeletePositionList(id, "cat"))

	_, err := m.OpenPositionList(id, "cat")
	biff.AssertEqual(err, dberrors.ErrNotFound)
}

func TestPositionListManager_MissingIsNotFound(t *testing.T) {
	m := newTestManager(t).PositionList()
	_, err := m.OpenPositionList(types.DocID(1), "ghost")
	biff.AssertEqual(err, dberrors.ErrNotFound)
}
