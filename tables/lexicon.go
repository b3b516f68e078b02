package tables

import (
	"github.com/fulldump/idxdb/dberrors"
	"github.com/fulldump/idxdb/store"
)

// LexiconManager is the façade over the lexicon table: one entry per
// term the collection currently indexes, holding termfreq (the number
// of documents whose posting list currently carries the term).
type LexiconManager struct {
	table store.Table
}

// GetEntry returns the termfreq for term, or ErrNotFound if the term has
// no live postings.
func (m *LexiconManager) GetEntry(term string) (uint32, error) {
	raw, ok := m.table.Get(lexiconKey(term))
	if !ok {
		return 0, dberrors.ErrNotFound
	}
	return decodeUint32(raw), nil
}

// TermExists reports whether term currently has any live posting.
func (m *LexiconManager) TermExists(term string) bool {
	_, ok := m.table.Get(lexiconKey(term))
	return ok
}

// IncrementTermFreq bumps term's termfreq by one, creating the entry if
// this is the term's first live posting.
func (m *LexiconManager) IncrementTermFreq(term string) error {
	freq := uint32(0)
	if raw, ok := m.table.Get(lexiconKey(term)); ok {
		freq = decodeUint32(raw)
	}
	return m.table.Put(lexiconKey(term), encodeUint32(freq+1))
}

// DecrementTermFreq drops term's termfreq by one, removing the entry
// entirely once its posting list is empty.
func (m *LexiconManager) DecrementTermFreq(term string) error {
	raw, ok := m.table.Get(lexiconKey(term))
	if !ok {
		return nil
	}
	freq := decodeUint32(raw)
	if freq <= 1 {
		return m.table.Delete(lexiconKey(term))
	}
	return m.table.Put(lexiconKey(term), encodeUint32(freq-1))
}
