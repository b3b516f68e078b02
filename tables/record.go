package tables

import (
	"fmt"

	"github.com/fulldump/idxdb/dberrors"
	"github.com/fulldump/idxdb/store"
	"github.com/fulldump/idxdb/types"
)

var recordKeyNextID = []byte{0x02}

// RecordManager is the thin, stateless façade over the record table:
// the docid-keyed store of opaque document payloads, document lengths,
// and the running doccount/total-length aggregates. It does not know
// whether the table beneath it is buffered.
type RecordManager struct {
	table store.Table
}

// AddRecord allocates the next unused docid (never reusing a live one,
// invariant I6), stores (data, doclen) and bumps doccount.
func (m *RecordManager) AddRecord(data []byte, doclen uint64) (types.DocID, error) {
	id, err := m.allocateID()
	if err != nil {
		return 0, err
	}

	value, err := encodeRecordValue(data, doclen)
	if err != nil {
		return 0, fmt.Errorf("encode record: %w", err)
	}

	if err := m.table.Put(recordKeyForDoc(id), value); err != nil {
		return 0, err
	}

	if err := m.adjustDocCount(1); err != nil {
		return 0, err
	}

	return id, nil
}

func (m *RecordManager) allocateID() (types.DocID, error) {
	next := uint64(1)
	if raw, ok := m.table.Get(recordKeyNextID); ok {
		next = decodeUint64(raw)
	}
	if err := m.table.Put(recordKeyNextID, encodeUint64(next+1)); err != nil {
		return 0, err
	}
	return types.DocID(next), nil
}

// GetRecord returns the stored opaque data for docid.
func (m *RecordManager) GetRecord(id types.DocID) ([]byte, error) {
	raw, ok := m.table.Get(recordKeyForDoc(id))
	if !ok {
		return nil, dberrors.ErrNotFound
	}
	data, _, err := decodeRecordValue(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", dberrors.ErrDatabaseCorrupt, err.Error())
	}
	return data, nil
}

// GetDocLength returns the document length stored alongside the record.
func (m *RecordManager) GetDocLength(id types.DocID) (uint64, error) {
	raw, ok := m.table.Get(recordKeyForDoc(id))
	if !ok {
		return 0, dberrors.ErrNotFound
	}
	_, doclen, err := decodeRecordValue(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", dberrors.ErrDatabaseCorrupt, err.Error())
	}
	return doclen, nil
}

// DeleteRecord removes docid's record and decrements doccount.
func (m *RecordManager) DeleteRecord(id types.DocID) error {
	key := recordKeyForDoc(id)
	if _, ok := m.table.Get(key); !ok {
		return dberrors.ErrNotFound
	}
	if err := m.table.Delete(key); err != nil {
		return err
	}
	return m.adjustDocCount(-1)
}

// GetDocCount returns invariant I1.
func (m *RecordManager) GetDocCount() uint64 {
	raw, ok := m.table.Get(recordKeyDocCount)
	if !ok {
		return 0
	}
	return decodeUint64(raw)
}

// GetTotalLength returns invariant I2's numerator.
func (m *RecordManager) GetTotalLength() uint64 {
	raw, ok := m.table.Get(recordKeyTotalLength)
	if !ok {
		return 0
	}
	return decodeUint64(raw)
}

func (m *RecordManager) adjustDocCount(delta int64) error {
	count := int64(m.GetDocCount()) + delta
	if count < 0 {
		count = 0
	}
	return m.table.Put(recordKeyDocCount, encodeUint64(uint64(count)))
}

// ModifyTotalLength is the compensating update used by insert/delete/
// replace: insert passes old=0, delete passes new=0.
func (m *RecordManager) ModifyTotalLength(oldDocLen, newDocLen uint64) error {
	total := int64(m.GetTotalLength()) - int64(oldDocLen) + int64(newDocLen)
	if total < 0 {
		total = 0
	}
	return m.table.Put(recordKeyTotalLength, encodeUint64(uint64(total)))
}
