package tables

import (
	"sort"

	"github.com/fulldump/idxdb/dberrors"
	"github.com/fulldump/idxdb/store"
	"github.com/fulldump/idxdb/types"
)

// PostListManager is the façade over the posting-list table: per-term,
// the ordered set of (docid, wdf, doclen) postings. lexicon is wired in
// so termfreq stays in lockstep with the postings that actually back
// it, rather than trusting every caller to update both in step.
type PostListManager struct {
	table   store.Table
	lexicon *LexiconManager
}

// AddEntry adds or overwrites term's posting for docid. termfreq is
// bumped only the first time a term reaches a document; the collection
// frequency accumulator is adjusted by the wdf delta either way.
func (m *PostListManager) AddEntry(term string, id types.DocID, wdf uint32, doclen uint64) error {
	key := postlistKey(term, id)
	delta := int64(wdf)
	if raw, ok := m.table.Get(key); ok {
		oldWDF, _ := decodePostlistValue(raw)
		delta = int64(wdf) - int64(oldWDF)
	} else if err := m.lexicon.IncrementTermFreq(term); err != nil {
		return err
	}
	if err := m.table.Put(key, postlistValue(wdf, doclen)); err != nil {
		return err
	}
	return m.adjustCollectionFreq(term, delta)
}

// DeleteEntry removes term's posting for docid, dropping termfreq and
// the collection frequency accumulator to match.
func (m *PostListManager) DeleteEntry(term string, id types.DocID) error {
	key := postlistKey(term, id)
	raw, ok := m.table.Get(key)
	if !ok {
		return dberrors.ErrNotFound
	}
	wdf, _ := decodePostlistValue(raw)
	if err := m.table.Delete(key); err != nil {
		return err
	}
	if err := m.lexicon.DecrementTermFreq(term); err != nil {
		return err
	}
	return m.adjustCollectionFreq(term, -int64(wdf))
}

// GetCollectionFreq returns the sum of wdf across every live posting of
// term, maintained incrementally rather than recomputed by scan.
func (m *PostListManager) GetCollectionFreq(term string) uint64 {
	raw, ok := m.table.Get(postlistCollFreqKey(term))
	if !ok {
		return 0
	}
	return decodeUint64(raw)
}

func (m *PostListManager) adjustCollectionFreq(term string, delta int64) error {
	key := postlistCollFreqKey(term)
	cur := int64(0)
	if raw, ok := m.table.Get(key); ok {
		cur = int64(decodeUint64(raw))
	}
	cur += delta
	if cur <= 0 {
		return m.table.Delete(key)
	}
	return m.table.Put(key, encodeUint64(uint64(cur)))
}

// PostListCursor walks the postings of one term in ascending docid
// order, exposing next/at_end/skip_to/docid/wdf/doclength per position.
type PostListCursor struct {
	docIDs  []types.DocID
	wdfs    []uint32
	doclens []uint64
	pos     int
}

// OpenPostList returns a fresh cursor positioned before the first
// posting of term. The reserved collection-frequency entry (docid 0)
// is never surfaced to callers.
func (m *PostListManager) OpenPostList(term string) *PostListCursor {
	from, to := postlistRangeForTerm(term)
	c := &PostListCursor{pos: -1}
	m.table.Scan(from, to, func(key, value []byte) bool {
		id := postlistDocIDFromKey(key)
		if id == 0 {
			return true
		}
		wdf, doclen := decodePostlistValue(value)
		c.docIDs = append(c.docIDs, id)
		c.wdfs = append(c.wdfs, wdf)
		c.doclens = append(c.doclens, doclen)
		return true
	})
	return c
}

// Next advances the cursor and reports whether a posting is now
// positioned.
func (c *PostListCursor) Next() bool {
	c.pos++
	return c.pos < len(c.docIDs)
}

// AtEnd reports whether the cursor has advanced past the last posting.
func (c *PostListCursor) AtEnd() bool { return c.pos >= len(c.docIDs) }

// SkipTo advances the cursor to the first posting with docid >= target
// and reports whether one was found. Calls must be made with
// non-decreasing target, matching how term intersection drives it.
func (c *PostListCursor) SkipTo(target types.DocID) bool {
	start := c.pos + 1
	if start < 0 {
		start = 0
	}
	idx := sort.Search(len(c.docIDs)-start, func(i int) bool {
		return c.docIDs[start+i] >= target
	})
	c.pos = start + idx
	return c.pos < len(c.docIDs)
}

// DocID returns the docid at the cursor's current position.
func (c *PostListCursor) DocID() types.DocID { return c.docIDs[c.pos] }

// WDF returns the within-document frequency at the cursor's position.
func (c *PostListCursor) WDF() uint32 { return c.wdfs[c.pos] }

// DocLength returns the doclen recorded alongside this posting.
func (c *PostListCursor) DocLength() uint64 { return c.doclens[c.pos] }
