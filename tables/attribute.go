package tables

import (
	"github.com/fulldump/idxdb/store"
	"github.com/fulldump/idxdb/types"
)

// AttributeManager is the façade over the attribute table: per-document
// sets of (keyid, value) pairs, e.g. sort/collapse keys.
type AttributeManager struct {
	table store.Table
}

// AddAttribute stores or overwrites one (keyid, value) pair for docid.
func (m *AttributeManager) AddAttribute(id types.DocID, keyID uint32, value []byte) error {
	return m.table.Put(attributeKey(id, keyID), value)
}

// GetAllAttributes returns every (keyid, value) pair stored for docid.
func (m *AttributeManager) GetAllAttributes(id types.DocID) map[uint32][]byte {
	from, to := attributeDocRange(id)
	out := map[uint32][]byte{}
	m.table.Scan(from, to, func(key, value []byte) bool {
		v := append([]byte(nil), value...)
		out[attributeKeyID(key)] = v
		return true
	})
	return out
}

// DeleteAllAttributes removes every attribute stored for docid, used by
// the delete_document protocol to leave no orphaned attributes behind.
func (m *AttributeManager) DeleteAllAttributes(id types.DocID) error {
	from, to := attributeDocRange(id)
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
