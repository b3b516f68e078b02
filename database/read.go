// Package database implements the Read and Writable Database facades
// over the Table Manager in package tables.
package database

import (
	"errors"
	"sync"

	"github.com/fulldump/idxdb/dberrors"
	"github.com/fulldump/idxdb/tables"
	"github.com/fulldump/idxdb/types"
)

// maxSnapshotRetries bounds the reader-snapshot retry protocol: how many
// times get_document reopens and retries after seeing DatabaseModified.
const maxSnapshotRetries = 5

// ReadDatabase is the read-side facade. Every public method acquires mu
// for its duration; cursor methods do not, since a cursor reads only
// immutable table state captured at open time.
type ReadDatabase struct {
	mu     sync.RWMutex
	handle *dbHandle
}

// OpenRead opens dir read-only against its current committed revision.
func OpenRead(dir string) (*ReadDatabase, error) {
	dm, err := tables.OpenDisk(dir)
	if err != nil {
		return nil, err
	}
	return &ReadDatabase{handle: newDBHandle(dm)}, nil
}

func (db *ReadDatabase) manager() tables.Manager { return db.handle.manager }

// Close releases this database's reference on the underlying tables.
func (db *ReadDatabase) Close() { db.handle.release() }

// GetDocCount returns invariant I1.
func (db *ReadDatabase) GetDocCount() uint64 {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.manager().Record().GetDocCount()
}

// GetAvLength returns invariant I2's average, 0 when the collection is
// empty.
func (db *ReadDatabase) GetAvLength() float64 {
	db.mu.RLock()
	defer db.mu.RUnlock()
	count := db.manager().Record().GetDocCount()
	if count == 0 {
		return 0
	}
	return float64(db.manager().Record().GetTotalLength()) / float64(count)
}

// GetDocLength is unimplemented on the Read Database: reading a single
// document's length outside of GetDocument was never wired up on the
// read-only path and is left reserved rather than half-supported.
func (db *ReadDatabase) GetDocLength(did types.DocID) (uint64, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return 0, dberrors.ErrUnimplemented
}

// GetTermFreq returns 0 for an absent term rather than an error (P6).
func (db *ReadDatabase) GetTermFreq(term string) uint32 {
	db.mu.RLock()
	defer db.mu.RUnlock()
	freq, err := db.manager().Lexicon().GetEntry(term)
	if err != nil {
		return 0
	}
	return freq
}

// GetCollectionFreq returns the sum of wdf across term's posting list.
func (db *ReadDatabase) GetCollectionFreq(term string) uint64 {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.manager().PostList().GetCollectionFreq(term)
}

// TermExists reports lexicon membership.
func (db *ReadDatabase) TermExists(term string) bool {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.manager().Lexicon().TermExists(term)
}

// OpenPostList returns a cursor over term's posting list.
func (db *ReadDatabase) OpenPostList(term string) *PostListCursor {
	db.mu.RLock()
	defer db.mu.RUnlock()
	cursor := db.manager().PostList().OpenPostList(term)
	db.handle.retain()
	return &PostListCursor{PostListCursor: cursor, handle: db.handle}
}

// OpenTermList returns a cursor over did's term list.
func (db *ReadDatabase) OpenTermList(did types.DocID) (*TermListCursor, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	cursor, err := db.manager().TermList().OpenTermList(did)
	if err != nil {
		return nil, err
	}
	db.handle.retain()
	return &TermListCursor{TermListCursor: cursor, handle: db.handle}, nil
}

// OpenPositionList is unimplemented on the Read Database: position data
// is only exposed indirectly, through GetDocument's internal traversal.
func (db *ReadDatabase) OpenPositionList(did types.DocID, term string) (*PositionListCursor, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return nil, dberrors.ErrUnimplemented
}

// OpenDocument returns a lazy document handle: unlike GetDocument it
// does not eagerly read every table.
func (db *ReadDatabase) OpenDocument(did types.DocID) (*DocumentCursor, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if _, err := db.manager().Record().GetRecord(did); err != nil {
		return nil, err
	}
	db.handle.retain()
	return &DocumentCursor{handle: db.handle, did: did}, nil
}

// GetDocument eagerly fetches did's full contents, transparently
// retrying against a fresh snapshot if a concurrent writer overwrites
// the one this call started reading.
func (db *ReadDatabase) GetDocument(did types.DocID) (*types.Document, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.getDocumentWithRetry(did)
}

func (db *ReadDatabase) getDocumentWithRetry(did types.DocID) (*types.Document, error) {
	var lastErr error
	for attempt := 0; attempt <= maxSnapshotRetries; attempt++ {
		doc, err := db.getDocumentOnce(did)
		if err == nil {
			return doc, nil
		}
		if !errors.Is(err, dberrors.ErrDatabaseModified) {
			return nil, err
		}
		lastErr = err
		if reopenErr := db.manager().ReopenBecauseOverwritten(); reopenErr != nil {
			return nil, reopenErr
		}
	}
	// Retry budget exhausted: re-raise the last DatabaseModified rather
	// than returning a generic error, so a caller can tell the two
	// failure modes apart.
	return nil, lastErr
}

// getDocumentOnce performs one, single-snapshot traversal of the record,
// attribute, term-list and position-list tables for did. Staleness is checked at each table boundary rather
// than surfaced as a per-call error from the tables themselves, since a
// Snapshot's clone is always internally consistent — what can go stale
// is whether it is still the CURRENT snapshot.
func (db *ReadDatabase) getDocumentOnce(did types.DocID) (*types.Document, error) {
	m := db.manager()

	if m.Stale() {
		return nil, dberrors.ErrDatabaseModified
	}
	data, err := m.Record().GetRecord(did)
	if err != nil {
		return nil, err
	}

	if m.Stale() {
		return nil, dberrors.ErrDatabaseModified
	}
	keys := m.Attribute().GetAllAttributes(did)

	if m.Stale() {
		return nil, dberrors.ErrDatabaseModified
	}
	cursor, err := m.TermList().OpenTermList(did)
	if err != nil {
		return nil, err
	}

	terms := map[string]types.TermData{}
	for cursor.Next() {
		term := cursor.TermName()
		positions, err := db.readPositions(did, term)
		if err != nil {
			return nil, err
		}
		terms[term] = types.TermData{WDF: cursor.WDF(), Positions: positions}
	}

	if m.Stale() {
		return nil, dberrors.ErrDatabaseModified
	}

	return &types.Document{Data: data, Keys: keys, Terms: terms}, nil
}

// AddDocument fails immediately: this database was opened read-only.
// WritableDatabase shadows this method with the real insert protocol.
func (db *ReadDatabase) AddDocument(doc *types.Document) (types.DocID, error) {
	return 0, dberrors.ErrInvalidOperation
}

// DeleteDocument fails immediately: this database was opened read-only.
func (db *ReadDatabase) DeleteDocument(did types.DocID) error {
	return dberrors.ErrInvalidOperation
}

// Flush fails immediately: this database was opened read-only.
func (db *ReadDatabase) Flush() error {
	return dberrors.ErrInvalidOperation
}

// readPositions reads term's positions for did directly from the
// position-list manager: GetDocument needs positions even though the
// public OpenPositionList entry point is gated off — that restriction
// applies to the public cursor, not to this internal traversal.
func (db *ReadDatabase) readPositions(did types.DocID, term string) ([]uint32, error) {
	cursor, err := db.manager().PositionList().OpenPositionList(did, term)
	if err != nil {
		if errors.Is(err, dberrors.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var positions []uint32
	for cursor.Next() {
		positions = append(positions, cursor.Position())
	}
	return positions, nil
}
