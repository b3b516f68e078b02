package database

import (
	"io"
	"log"
	"time"

	"github.com/fulldump/idxdb/dberrors"
	"github.com/fulldump/idxdb/locking"
	"github.com/fulldump/idxdb/tables"
	"github.com/fulldump/idxdb/types"
)

// WritableDatabase is the write-side facade: a ReadDatabase over a
// buffered Table Manager. Every public entry point, read or write,
// serializes on the single embedded ReadDatabase.mu, so a caller never
// observes a write half-applied across the six tables.
type WritableDatabase struct {
	ReadDatabase

	tables tables.BufferedManager
	dir    string
	lock   *locking.Lock
	logger *log.Logger
}

// OpenWritable opens dir for writing, creating its tables if necessary.
// blockSize is a writable-create-only construction argument: a power of
// two in [2048, 65536], validated when dir has no existing database yet
// and ignored when reopening one. A nil logger defaults to discarding
// output.
func OpenWritable(dir string, performRecovery bool, blockSize int, logger *log.Logger) (*WritableDatabase, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	bm, err := tables.OpenBuffered(dir, performRecovery, blockSize)
	if err != nil {
		return nil, err
	}
	return &WritableDatabase{
		ReadDatabase: ReadDatabase{handle: newDBHandle(bm)},
		tables:       bm,
		dir:          dir,
		logger:       logger,
	}, nil
}

// BeginSession acquires the single-writer lock on the directory,
// blocking up to timeout (timeout == 0 is a non-blocking try-once
// acquire).
func (wdb *WritableDatabase) BeginSession(timeout time.Duration) error {
	wdb.mu.Lock()
	defer wdb.mu.Unlock()

	lock, err := locking.Acquire(wdb.dir, timeout)
	if err != nil {
		wdb.logger.Printf("begin_session: %s", err.Error())
		return err
	}
	wdb.lock = lock
	wdb.logger.Printf("begin_session: acquired")
	return nil
}

// EndSession forces a flush then releases the lock; on flush failure
// the lock is still released after surfacing the error.
func (wdb *WritableDatabase) EndSession() error {
	wdb.mu.Lock()
	defer wdb.mu.Unlock()

	applyErr := wdb.tables.Apply()
	var releaseErr error
	if wdb.lock != nil {
		releaseErr = wdb.lock.Release()
		wdb.lock = nil
	}

	if applyErr != nil {
		wdb.logger.Printf("end_session: apply failed: %s", applyErr.Error())
		return applyErr
	}
	if releaseErr != nil {
		wdb.logger.Printf("end_session: release failed: %s", releaseErr.Error())
		return releaseErr
	}
	wdb.logger.Printf("end_session: ok")
	return nil
}

// Flush commits the buffered change set without ending the session.
func (wdb *WritableDatabase) Flush() error {
	wdb.mu.Lock()
	defer wdb.mu.Unlock()

	if err := wdb.tables.Apply(); err != nil {
		wdb.logger.Printf("flush: %s", err.Error())
		return err
	}
	return nil
}

// BeginTransaction is reserved for a future multi-call transaction API.
func (wdb *WritableDatabase) BeginTransaction() error {
	wdb.mu.Lock()
	defer wdb.mu.Unlock()
	return dberrors.ErrUnimplemented
}

// CommitTransaction is reserved for a future multi-call transaction API.
func (wdb *WritableDatabase) CommitTransaction() error {
	wdb.mu.Lock()
	defer wdb.mu.Unlock()
	return dberrors.ErrUnimplemented
}

// CancelTransaction is reserved for a future multi-call transaction API.
func (wdb *WritableDatabase) CancelTransaction() error {
	wdb.mu.Lock()
	defer wdb.mu.Unlock()
	return dberrors.ErrUnimplemented
}

// ReplaceDocument is reserved for a future single-call replace; callers
// currently compose it from DeleteDocument followed by AddDocument.
func (wdb *WritableDatabase) ReplaceDocument(did types.DocID, doc *types.Document) error {
	wdb.mu.Lock()
	defer wdb.mu.Unlock()
	return dberrors.ErrUnimplemented
}

// AddDocument runs the insert protocol: failure at any step cancels the
// ENTIRE buffered manager, discarding every write buffered since the
// last Apply, not just this call's own writes. This mirrors Cancel's
// all-or-nothing contract across the six tables one level up: a partial
// add_document is itself a change that must not survive a failure.
func (wdb *WritableDatabase) AddDocument(doc *types.Document) (types.DocID, error) {
	wdb.mu.Lock()
	defer wdb.mu.Unlock()

	did, err := wdb.doAddDocument(doc)
	if err != nil {
		wdb.tables.Cancel()
		wdb.logger.Printf("add_document: cancelled buffer after error: %s", err.Error())
		return 0, err
	}
	return did, nil
}

func (wdb *WritableDatabase) doAddDocument(doc *types.Document) (types.DocID, error) {
	m := wdb.tables

	var newDocLen uint64
	for _, data := range doc.Terms {
		newDocLen += uint64(data.WDF)
	}

	did, err := m.Record().AddRecord(doc.Data, newDocLen)
	if err != nil {
		return 0, err
	}
	if did == 0 {
		return 0, dberrors.ErrInternal
	}

	for keyID, value := range doc.Keys {
		if err := m.Attribute().AddAttribute(did, keyID, value); err != nil {
			return 0, err
		}
	}

	if err := m.TermList().SetEntries(did, newDocLen, doc.Terms); err != nil {
		return 0, err
	}

	if err := m.Record().ModifyTotalLength(0, newDocLen); err != nil {
		return 0, err
	}

	// PostList.AddEntry drives the lexicon's increment_termfreq
	// internally (tables/postlist.go), keeping I4 in lockstep with the
	// posting list it backs rather than updating it separately here.
	for term, data := range doc.Terms {
		if err := m.PostList().AddEntry(term, did, data.WDF, newDocLen); err != nil {
			return 0, err
		}
		if err := m.PositionList().SetPositionList(did, term, data.Positions); err != nil {
			return 0, err
		}
	}

	return did, nil
}

// DeleteDocument runs the delete protocol, including attribute removal
// (the six tables must end up with no trace of did anywhere).
func (wdb *WritableDatabase) DeleteDocument(did types.DocID) error {
	wdb.mu.Lock()
	defer wdb.mu.Unlock()

	if err := wdb.doDeleteDocument(did); err != nil {
		wdb.tables.Cancel()
		wdb.logger.Printf("delete_document: cancelled buffer after error: %s", err.Error())
		return err
	}
	return nil
}

func (wdb *WritableDatabase) doDeleteDocument(did types.DocID) error {
	m := wdb.tables

	// GetDocLength doubles as the existence check: SetEntries always
	// writes the doclen key together with the term entries, so a
	// missing doclen means did was never added or was already deleted.
	oldDocLen, err := m.TermList().GetDocLength(did)
	if err != nil {
		return err
	}

	// PostList.DeleteEntry drives the lexicon's decrement_termfreq
	// internally, mirroring AddEntry's symmetric responsibility.
	for term := range m.TermList().Terms(did) {
		if err := m.PostList().DeleteEntry(term, did); err != nil {
			return err
		}
		if err := m.PositionList().DeletePositionList(did, term); err != nil {
			return err
		}
	}

	if err := m.Record().ModifyTotalLength(oldDocLen, 0); err != nil {
		return err
	}

	if err := m.Attribute().DeleteAllAttributes(did); err != nil {
		return err
	}

	if err := m.TermList().DeleteTermList(did); err != nil {
		return err
	}

	return m.Record().DeleteRecord(did)
}

// Close best-effort ends the session, swallowing the error since a
// destructor-style cleanup has nowhere to report failure, and releases
// this database's reference on the underlying tables.
func (wdb *WritableDatabase) Close() {
	if wdb.lock != nil {
		if err := wdb.EndSession(); err != nil {
			wdb.logger.Printf("close: end_session failed: %s", err.Error())
		}
	}
	wdb.handle.release()
}
