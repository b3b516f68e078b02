// Package types holds the domain values shared between the table
// managers and the database facade: document ids, term postings and the
// document contents a caller submits to or reads back from the index.
package types

// DocID identifies a document. Zero means "none"; a live docid is never
// reused (invariant I6 of the database facade).
type DocID uint64

// TermData is the per-document record for a single term: how many times
// it occurs (wdf) and where.
type TermData struct {
	WDF       uint32
	Positions []uint32 // strictly increasing
}

// Document is what indexing clients submit and what get_document returns.
type Document struct {
	Data  []byte
	Keys  map[uint32][]byte
	Terms map[string]TermData
}

// Length is the sum of wdf over all terms, i.e. the document length used
// for avlength (invariant I2).
func (d *Document) Length() uint64 {
	var total uint64
	for _, t := range d.Terms {
		total += uint64(t.WDF)
	}
	return total
}

// Posting is one entry of a term's posting list.
type Posting struct {
	DocID   DocID
	WDF     uint32
	DocLen  uint64
}
