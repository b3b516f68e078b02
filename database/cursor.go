package database

import (
	"sync/atomic"

	"github.com/fulldump/idxdb/tables"
	"github.com/fulldump/idxdb/types"
)

// dbHandle is a reference-counted owner of a tables.Manager, shared
// between the Database that created it and every cursor opened from it:
// the underlying tables outlive a cursor even if the caller drops the
// Database first.
type dbHandle struct {
	manager tables.Manager
	refs    int32
}

func newDBHandle(m tables.Manager) *dbHandle {
	return &dbHandle{manager: m, refs: 1}
}

func (h *dbHandle) retain() {
	atomic.AddInt32(&h.refs, 1)
}

func (h *dbHandle) release() {
	if atomic.AddInt32(&h.refs, -1) == 0 {
		if closer, ok := h.manager.(interface{ Close() error }); ok {
			closer.Close()
		}
	}
}

// DocumentCursor is the lazy document handle returned by open_document:
// unlike get_document it does not eagerly read every table.
type DocumentCursor struct {
	handle *dbHandle
	did    types.DocID
}

// DocID returns the docid this cursor was opened for.
func (c *DocumentCursor) DocID() types.DocID { return c.did }

// Data reads the document's opaque record payload.
func (c *DocumentCursor) Data() ([]byte, error) {
	return c.handle.manager.Record().GetRecord(c.did)
}

// Attributes reads every (key-id, value) pair stored for this document.
func (c *DocumentCursor) Attributes() map[uint32][]byte {
	return c.handle.manager.Attribute().GetAllAttributes(c.did)
}

// Terms opens a term-list cursor for this document.
func (c *DocumentCursor) Terms() (*TermListCursor, error) {
	cursor, err := c.handle.manager.TermList().OpenTermList(c.did)
	if err != nil {
		return nil, err
	}
	c.handle.retain()
	return &TermListCursor{TermListCursor: cursor, handle: c.handle}, nil
}

// Close releases this cursor's reference on the underlying tables.
func (c *DocumentCursor) Close() { c.handle.release() }

// TermListCursor wraps tables.TermListCursor with the reference-counted
// handle every database cursor carries.
type TermListCursor struct {
	*tables.TermListCursor
	handle *dbHandle
}

// Close releases this cursor's reference on the underlying tables.
func (c *TermListCursor) Close() { c.handle.release() }

// PostListCursor wraps tables.PostListCursor with the reference-counted
// handle every database cursor carries.
type PostListCursor struct {
	*tables.PostListCursor
	handle *dbHandle
}

// Close releases this cursor's reference on the underlying tables.
func (c *PostListCursor) Close() { c.handle.release() }

// PositionListCursor wraps tables.PositionListCursor with the
// reference-counted handle every database cursor carries.
type PositionListCursor struct {
	*tables.PositionListCursor
	handle *dbHandle
}

// Close releases this cursor's reference on the underlying tables.
func (c *PositionListCursor) Close() { c.handle.release() }
