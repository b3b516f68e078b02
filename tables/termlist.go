package tables

import (
	"github.com/fulldump/idxdb/dberrors"
	"github.com/fulldump/idxdb/store"
	"github.com/fulldump/idxdb/types"
)

// TermListManager is the façade over the term-list table: per-document,
// the set of terms it contains together with their wdf. lexicon is
// wired in by the Table Manager so TermListCursor.TermFreq can serve
// the collection-wide count alongside the per-document one.
type TermListManager struct {
	table   store.Table
	lexicon *LexiconManager
}

// SetEntries writes docid's doclen and its (term -> wdf) pairs. Term
// entries already stored for docid that are not in terms are left in
// place. Used by add_document.
func (m *TermListManager) SetEntries(id types.DocID, doclen uint64, terms map[string]types.TermData) error {
	if err := m.table.Put(termlistDocLenKey(id), encodeUint64(doclen)); err != nil {
		return err
	}
	for term, data := range terms {
		if err := m.table.Put(termlistTermKey(id, term), encodeUint32(data.WDF)); err != nil {
			return err
		}
	}
	return nil
}

// DeleteTermList removes docid's doclen entry and every term entry.
func (m *TermListManager) DeleteTermList(id types.DocID) error {
	if err := m.table.Delete(termlistDocLenKey(id)); err != nil {
		return err
	}
	from, to := termlistDocRange(id)
	var keys [][]byte
	m.table.Scan(from, to, func(key, _ []byte) bool {
		keys = append(keys, append([]byte(nil), key...))
		return true
	})
	for _, key := range keys {
		if err := m.table.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

// GetDocLength returns docid's stored length, as recorded by SetEntries.
func (m *TermListManager) GetDocLength(id types.DocID) (uint64, error) {
	raw, ok := m.table.Get(termlistDocLenKey(id))
	if !ok {
		return 0, dberrors.ErrNotFound
	}
	return decodeUint64(raw), nil
}

// Terms returns every term in docid's term list, grounded on the wdf
// stored alongside each — used by delete_document to drive per-term
// posting-list and lexicon cleanup without a live cursor.
func (m *TermListManager) Terms(id types.DocID) map[string]uint32 {
	from, to := termlistDocRange(id)
	out := map[string]uint32{}
	m.table.Scan(from, to, func(key, value []byte) bool {
		out[termlistTermFromKey(key)] = decodeUint32(value)
		return true
	})
	return out
}

// TermListCursor walks the terms of one document in key order, exposing
// next/at_end/term_name/wdf/term_freq/doc_length per position.
type TermListCursor struct {
	manager *TermListManager
	docID   types.DocID
	terms   []string
	wdfs    []uint32
	pos     int
}

// OpenTermList returns a fresh cursor positioned before the first term.
func (m *TermListManager) OpenTermList(id types.DocID) (*TermListCursor, error) {
	if _, ok := m.table.Get(termlistDocLenKey(id)); !ok {
		return nil, dberrors.ErrNotFound
	}
	from, to := termlistDocRange(id)
	var terms []string
	var wdfs []uint32
	m.table.Scan(from, to, func(key, value []byte) bool {
		terms = append(terms, termlistTermFromKey(key))
		wdfs = append(wdfs, decodeUint32(value))
		return true
	})
	return &TermListCursor{manager: m, docID: id, terms: terms, wdfs: wdfs, pos: -1}, nil
}

// Next advances the cursor and reports whether a term is now positioned.
func (c *TermListCursor) Next() bool {
	c.pos++
	return c.pos < len(c.terms)
}

// AtEnd reports whether the cursor has advanced past the last term.
func (c *TermListCursor) AtEnd() bool { return c.pos >= len(c.terms) }

// TermName returns the term at the cursor's current position.
func (c *TermListCursor) TermName() string { return c.terms[c.pos] }

// WDF returns the within-document frequency at the cursor's position.
func (c *TermListCursor) WDF() uint32 { return c.wdfs[c.pos] }

// TermFreq returns the collection-wide document frequency of the term
// at the cursor's current position.
func (c *TermListCursor) TermFreq() (uint32, error) {
	return c.manager.lexicon.GetEntry(c.terms[c.pos])
}

// DocLength returns the document's stored length.
func (c *TermListCursor) DocLength() (uint64, error) {
	return c.manager.GetDocLength(c.docID)
}
