package tables

import (
	"github.com/fulldump/idxdb/dberrors"
	"github.com/fulldump/idxdb/store"
	"github.com/fulldump/idxdb/types"
)

// PositionListManager is the façade over the position-list table: per
// (docid, term), the ascending sequence of within-document positions
// used for phrase and proximity matching.
type PositionListManager struct {
	table store.Table
}

// SetPositionList stores (or replaces) the positions of term in docid.
func (m *PositionListManager) SetPositionList(id types.DocID, term string, positions []uint32) error {
	return m.table.Put(positionKey(id, term), encodePositions(positions))
}

// DeletePositionList removes the positions of term in docid, if any.
func (m *PositionListManager) DeletePositionList(id types.DocID, term string) error {
	return m.table.Delete(positionKey(id, term))
}

// PositionListCursor walks one (docid, term)'s positions in ascending
// order.
type PositionListCursor struct {
	positions []uint32
	pos       int
}

// OpenPositionList returns a fresh cursor over term's positions in
// docid, or ErrNotFound if none were ever set.
func (m *PositionListManager) OpenPositionList(id types.DocID, term string) (*PositionListCursor, error) {
	raw, ok := m.table.Get(positionKey(id, term))
	if !ok {
		return nil, dberrors.ErrNotFound
	}
	return &PositionListCursor{positions: decodePositions(raw), pos: -1}, nil
}

// Next advances the cursor and reports whether a position is now
// positioned.
func (c *PositionListCursor) Next() bool {
	c.pos++
	return c.pos < len(c.positions)
}

// AtEnd reports whether the cursor has advanced past the last position.
func (c *PositionListCursor) AtEnd() bool { return c.pos >= len(c.positions) }

// Position returns the position at the cursor's current index.
func (c *PositionListCursor) Position() uint32 { return c.positions[c.pos] }
