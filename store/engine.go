// Package store is the low-level storage engine underneath the six
// tables: an ordered keyed byte-string table per named table, a
// write-ahead log for durability, and a buffering overlay satisfying
// apply/cancel.
//
// Grounded on collectionv2/container.go (BTreeContainer) and
// collectionv2/storage.go (JSONStorage, Load/replay).
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fulldump/idxdb/dberrors"
)

// Table names for the six co-operating tables.
const (
	TableRecord       = "record"
	TableAttribute    = "attribute"
	TableLexicon      = "lexicon"
	TableTermList     = "termlist"
	TablePostList     = "postlist"
	TablePositionList = "positionlist"
)

var tableNames = []string{
	TableRecord,
	TableAttribute,
	TableLexicon,
	TableTermList,
	TablePostList,
	TablePositionList,
}

const walFilename = "wal.log"

// Block size bounds for a writable-create: a power of two in [2048,
// 65536]. Ignored when opening an existing database, since the on-disk
// layout it would govern was already fixed at creation.
const (
	DefaultBlockSize = 8192
	minBlockSize     = 2048
	maxBlockSize     = 65536
)

func validateBlockSize(n int) error {
	if n < minBlockSize || n > maxBlockSize || n&(n-1) != 0 {
		return fmt.Errorf("%w: %d (must be a power of two in [%d, %d])", dberrors.ErrInvalidBlockSize, n, minBlockSize, maxBlockSize)
	}
	return nil
}

// Engine owns the six committed tables for one database directory plus
// the write-ahead log that makes commits durable. It has no notion of
// "buffered but not yet applied" — that is BufferedEngine's job.
type Engine struct {
	dir       string
	wal       *wal
	blockSize int

	mu       sync.RWMutex
	revision uint64
	tables   map[string]*KVTable
}

// OpenEngine opens (or creates) the six tables for dir. When the WAL's
// last write is torn (interrupted mid-append) and performRecovery is
// false, ErrNeedsRecovery is returned; when true, the torn tail is
// discarded silently.
//
// blockSize is a writable-create-only argument: it must be a power of
// two in [2048, 65536] and is validated only when dir has no existing
// WAL yet; it is silently ignored when reopening an existing database,
// whose on-disk block size was already fixed at creation.
func OpenEngine(dir string, performRecovery bool, blockSize int) (*Engine, error) {
	walPath := filepath.Join(dir, walFilename)

	isNew := true
	if _, err := os.Stat(walPath); err == nil {
		isNew = false
	}

	if isNew {
		if err := validateBlockSize(blockSize); err != nil {
			return nil, err
		}
	} else {
		blockSize = DefaultBlockSize
	}

	w, err := openWAL(walPath, blockSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", dberrors.ErrIO, err.Error())
	}

	result, err := replayWAL(walPath, blockSize)
	if err != nil {
		w.close()
		return nil, fmt.Errorf("%w: %s", dberrors.ErrDatabaseCorrupt, err.Error())
	}

	if result.torn {
		if !performRecovery {
			w.close()
			return nil, dberrors.ErrNeedsRecovery
		}
		if err := truncateTornTail(filepath.Join(dir, walFilename), result.batches); err != nil {
			w.close()
			return nil, fmt.Errorf("%w: %s", dberrors.ErrIO, err.Error())
		}
		// truncateTornTail renamed a new file over the one w holds open;
		// reopen so later commits append to the recovered log.
		w.close()
		if w, err = openWAL(walPath, blockSize); err != nil {
			return nil, fmt.Errorf("%w: %s", dberrors.ErrIO, err.Error())
		}
	}

	e := &Engine{
		dir:       dir,
		wal:       w,
		blockSize: blockSize,
		tables:    freshTables(),
	}

	for _, batch := range result.batches {
		e.applyOpsLocked(batch.Ops)
		e.revision++
	}

	return e, nil
}

func freshTables() map[string]*KVTable {
	m := make(map[string]*KVTable, len(tableNames))
	for _, name := range tableNames {
		m[name] = newKVTable()
	}
	return m
}

func (e *Engine) applyOpsLocked(ops []walOp) {
	for _, op := range ops {
		t := e.tables[op.Table]
		switch op.Kind {
		case opPut:
			t.Put(op.Key, op.Value)
		case opDelete:
			t.Delete(op.Key)
		}
	}
}

// Commit appends ops to the WAL and applies them to the live tables as
// one atomic step: either every op lands, or (on WAL write failure)
// none do and the error is returned for the caller to surface.
func (e *Engine) Commit(ops []walOp) error {
	if len(ops) == 0 {
		return nil
	}

	batch := newWALBatch(ops)

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.wal.append(batch); err != nil {
		return fmt.Errorf("%w: %s", dberrors.ErrIO, err.Error())
	}

	e.applyOpsLocked(ops)
	e.revision++

	return nil
}

// Revision returns the current committed revision number, bumped once
// per successful Commit.
func (e *Engine) Revision() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.revision
}

// Get reads directly from the live committed table, used by
// BufferedEngine to fall through pending overlay misses.
func (e *Engine) Get(table string, key []byte) ([]byte, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.tables[table].Get(key)
}

// Scan reads directly from the live committed table.
func (e *Engine) Scan(table string, from, to []byte, fn func(key, value []byte) bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	e.tables[table].Scan(from, to, fn)
}

// Snapshot captures an immutable, isolated view of every table at the
// current revision. Thanks to KVTable.Clone's copy-on-write semantics
// this is O(1) and subsequent commits on the live engine cannot affect
// it — exactly the "committed on-disk revision" the Disk (read-only)
// Table Manager variant is specified to open against.
func (e *Engine) Snapshot() *Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	clones := make(map[string]*KVTable, len(e.tables))
	for name, t := range e.tables {
		clones[name] = t.Clone()
	}

	return &Snapshot{
		revision: e.revision,
		tables:   clones,
		engine:   e,
	}
}

// BlockSize returns the block size this engine's WAL I/O is buffered
// at: the requested value for a freshly created database, or
// DefaultBlockSize for one that was reopened.
func (e *Engine) BlockSize() int {
	return e.blockSize
}

func (e *Engine) Close() error {
	return e.wal.close()
}

// Snapshot is an isolated, immutable view of all six tables as of the
// revision it was captured at.
type Snapshot struct {
	revision uint64
	tables   map[string]*KVTable
	engine   *Engine
}

func (s *Snapshot) Revision() uint64 { return s.revision }

func (s *Snapshot) Table(name string) *KVTable { return s.tables[name] }

// Stale reports whether the live engine has committed a newer revision
// than the one this snapshot was captured at — the trigger for
// dberrors.ErrDatabaseModified in the Read Database's reader-retry
// protocol.
func (s *Snapshot) Stale() bool {
	return s.engine.Revision() != s.revision
}
