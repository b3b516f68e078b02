// Package tables implements the six per-table managers (record,
// attribute, lexicon, term-list, posting-list, position-list) and the
// Table Manager that hands out handles to all six, on top of the store
// package's ordered keyed byte-string tables.
//
// Key/value encodings here are deliberately simple, fixed-width or
// length-prefixed binary layouts; encoding/binary is used directly
// since these are internal on-disk key formats, not a wire protocol
// exposed to callers, and no example repo in the pack ships an
// importable posting/lexicon key codec library to lean on instead.
package tables

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"

	"github.com/fulldump/idxdb/types"
)

func encodeDocID(id types.DocID) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(id))
	return b
}

func decodeDocID(b []byte) types.DocID {
	return types.DocID(binary.BigEndian.Uint64(b))
}

func encodeUint32(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

func decodeUint32(b []byte) uint32 {
	return binary.BigEndian.Uint32(b)
}

func encodeUint64(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func decodeUint64(b []byte) uint64 {
	return binary.BigEndian.Uint64(b)
}

// prefixEnd returns the smallest byte string that sorts strictly after
// every string with the given prefix, i.e. the exclusive upper bound for
// a prefix range scan. Returns nil (unbounded) if prefix is all 0xFF.
func prefixEnd(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] != 0xFF {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}

// --- record table ---
//
// Per-document key is the raw 8-byte docid. doccount/total_length are
// dedicated single-byte reserved keys, which can never collide with an
// 8-byte docid key.

var (
	recordKeyDocCount    = []byte{0x00}
	recordKeyTotalLength = []byte{0x01}
)

func recordKeyForDoc(id types.DocID) []byte {
	return encodeDocID(id)
}

type recordValue struct {
	Data   []byte
	DocLen uint64
}

func encodeRecordValue(data []byte, doclen uint64) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(recordValue{Data: data, DocLen: doclen}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeRecordValue(b []byte) (data []byte, doclen uint64, err error) {
	var v recordValue
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&v); err != nil {
		return nil, 0, err
	}
	return v.Data, v.DocLen, nil
}

// --- attribute table ---
//
// Key is docid(8) ++ keyid(4). A prefix range over the first 8 bytes
// yields every attribute of one document.

func attributeKey(id types.DocID, keyID uint32) []byte {
	key := make([]byte, 12)
	copy(key[:8], encodeDocID(id))
	binary.BigEndian.PutUint32(key[8:], keyID)
	return key
}

func attributeKeyID(key []byte) uint32 {
	return binary.BigEndian.Uint32(key[8:12])
}

func attributeDocRange(id types.DocID) (from, to []byte) {
	from = encodeDocID(id)
	to = encodeDocID(id + 1)
	return
}

// --- lexicon table ---
//
// Key is the raw term bytes: byte ordering of the key IS term ordering,
// so a lexicon scan visits terms alphabetically for free. Value is a
// big-endian uint32 termfreq.

func lexiconKey(term string) []byte {
	return []byte(term)
}

// --- term-list table ---
//
// Key is docid(8) ++ marker(1) ++ [term bytes if marker is termMarker].
// The doclen entry uses a marker (0x00) that sorts before every term
// entry (marker 0x01), so a prefix range scan bounded by the two markers
// isolates exactly the term entries for one document.

const (
	termlistMarkerDocLen byte = 0x00
	termlistMarkerTerm   byte = 0x01
)

func termlistDocLenKey(id types.DocID) []byte {
	key := make([]byte, 9)
	copy(key, encodeDocID(id))
	key[8] = termlistMarkerDocLen
	return key
}

func termlistTermKey(id types.DocID, term string) []byte {
	key := make([]byte, 9+len(term))
	copy(key, encodeDocID(id))
	key[8] = termlistMarkerTerm
	copy(key[9:], term)
	return key
}

func termlistTermFromKey(key []byte) string {
	return string(key[9:])
}

func termlistDocRange(id types.DocID) (from, to []byte) {
	base := encodeDocID(id)
	from = append(append([]byte(nil), base...), termlistMarkerTerm)
	to = append(append([]byte(nil), base...), termlistMarkerTerm+1)
	return
}

// --- posting-list table ---
//
// Key is a length-prefixed term (2-byte big-endian length + term bytes)
// followed by the docid(8), so entries for one term sort together,
// ascending by docid within that term.

func postlistTermPrefix(term string) []byte {
	prefix := make([]byte, 2+len(term))
	binary.BigEndian.PutUint16(prefix, uint16(len(term)))
	copy(prefix[2:], term)
	return prefix
}

func postlistKey(term string, id types.DocID) []byte {
	prefix := postlistTermPrefix(term)
	return append(prefix, encodeDocID(id)...)
}

func postlistKeyFrom(term string, id types.DocID) []byte {
	return postlistKey(term, id)
}

func postlistDocIDFromKey(key []byte) types.DocID {
	return decodeDocID(key[len(key)-8:])
}

func postlistRangeForTerm(term string) (from, to []byte) {
	prefix := postlistTermPrefix(term)
	return prefix, prefixEnd(prefix)
}

// postlistCollFreqKey reserves docid 0 (never allocated to a real
// document, see RecordManager.allocateID) as the running collection
// frequency accumulator for term, so get_collection_freq stays O(1)
// instead of summing every posting.
func postlistCollFreqKey(term string) []byte {
	return postlistKey(term, 0)
}

func postlistValue(wdf uint32, doclen uint64) []byte {
	v := make([]byte, 12)
	binary.BigEndian.PutUint32(v[:4], wdf)
	binary.BigEndian.PutUint64(v[4:], doclen)
	return v
}

func decodePostlistValue(v []byte) (wdf uint32, doclen uint64) {
	return binary.BigEndian.Uint32(v[:4]), binary.BigEndian.Uint64(v[4:])
}

// --- position-list table ---
//
// Key is docid(8) ++ length-prefixed term. Value is an ascending
// sequence of positions, delta-encoded as unsigned varints so that a
// (typically small) run of nearby positions stays compact.

func positionKey(id types.DocID, term string) []byte {
	prefix := postlistTermPrefix(term)
	key := make([]byte, 8+len(prefix))
	copy(key, encodeDocID(id))
	copy(key[8:], prefix)
	return key
}

func encodePositions(positions []uint32) []byte {
	buf := make([]byte, 0, len(positions)*2)
	var prev uint32
	for _, p := range positions {
		delta := p - prev
		var tmp [binary.MaxVarintLen32]byte
		n := binary.PutUvarint(tmp[:], uint64(delta))
		buf = append(buf, tmp[:n]...)
		prev = p
	}
	return buf
}

func decodePositions(b []byte) []uint32 {
	if len(b) == 0 {
		return nil
	}
	var positions []uint32
	var prev uint32
	for len(b) > 0 {
		delta, n := binary.Uvarint(b)
		if n <= 0 {
			break
		}
		prev += uint32(delta)
		positions = append(positions, prev)
		b = b[n:]
	}
	return positions
}
