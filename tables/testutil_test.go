package tables

import (
	"os"
	"testing"

	"github.com/fulldump/biff"
	"github.com/fulldump/idxdb/store"
)

func newTestManager(t *testing.T) *BufferedTableManager {
	dir, err := os.MkdirTemp("", "idxdb-tables-*")
	biff.AssertNil(err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	m, err := OpenBuffered(dir, false, store.DefaultBlockSize)
	biff.AssertNil(err)
	t.Cleanup(func() { m.Close() })

	return m
}
