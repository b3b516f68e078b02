package store

import (
	"bytes"
	"sort"
	"sync"
)

// pendingOp is one uncommitted mutation held in a BufferedEngine's
// overlay, keyed by the string form of the row key.
type pendingOp struct {
	deleted bool
	value   []byte
}

// BufferedEngine layers an in-memory, multi-table write buffer over an
// Engine. Reads see buffered writes; nothing is durable until Apply.
//
// This split (buffered vs committed) has no direct teacher analogue —
// collectionv2.Collection always persists immediately — and is new
// machinery built in the teacher's plain struct-plus-mutex idiom.
type BufferedEngine struct {
	engine *Engine

	mu      sync.Mutex
	pending map[string]map[string]pendingOp // table -> key -> op
}

// OpenBuffered opens the underlying Engine and wraps it with an empty
// write buffer. blockSize is validated and applied only when dir has no
// existing database yet.
func OpenBuffered(dir string, performRecovery bool, blockSize int) (*BufferedEngine, error) {
	e, err := OpenEngine(dir, performRecovery, blockSize)
	if err != nil {
		return nil, err
	}
	return &BufferedEngine{
		engine:  e,
		pending: freshPending(),
	}, nil
}

func freshPending() map[string]map[string]pendingOp {
	m := make(map[string]map[string]pendingOp, len(tableNames))
	for _, name := range tableNames {
		m[name] = map[string]pendingOp{}
	}
	return m
}

func (b *BufferedEngine) Get(table string, key []byte) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if op, ok := b.pending[table][string(key)]; ok {
		if op.deleted {
			return nil, false
		}
		return op.value, true
	}
	return b.engine.Get(table, key)
}

func (b *BufferedEngine) Put(table string, key, value []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending[table][string(key)] = pendingOp{value: value}
}

func (b *BufferedEngine) Delete(table string, key []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending[table][string(key)] = pendingOp{deleted: true}
}

type kv struct {
	key, value []byte
}

func inRange(key, from, to []byte) bool {
	if len(from) > 0 && bytes.Compare(key, from) < 0 {
		return false
	}
	if len(to) > 0 && bytes.Compare(key, to) >= 0 {
		return false
	}
	return true
}

// Scan merges the committed table with the pending overlay: pending
// deletes shadow committed rows, pending puts override or add rows, and
// the whole thing is walked in ascending key order.
func (b *BufferedEngine) Scan(table string, from, to []byte, fn func(key, value []byte) bool) {
	b.mu.Lock()
	pending := b.pending[table]
	overlay := make(map[string]pendingOp, len(pending))
	for k, op := range pending {
		overlay[k] = op
	}
	b.mu.Unlock()

	var merged []kv

	b.engine.Scan(table, from, to, func(key, value []byte) bool {
		if _, shadowed := overlay[string(key)]; shadowed {
			return true // pending op (put override or delete) wins, handled below
		}
		merged = append(merged, kv{key: append([]byte(nil), key...), value: append([]byte(nil), value...)})
		return true
	})

	for k, op := range overlay {
		if op.deleted {
			continue
		}
		key := []byte(k)
		if !inRange(key, from, to) {
			continue
		}
		merged = append(merged, kv{key: key, value: op.value})
	}

	sort.Slice(merged, func(i, j int) bool {
		return bytes.Compare(merged[i].key, merged[j].key) < 0
	})

	for _, e := range merged {
		if !fn(e.key, e.value) {
			return
		}
	}
}

// Apply commits the entire pending buffer across all six tables in one
// atomic Engine.Commit. On failure the buffer is left intact so the
// caller can inspect or Cancel it.
func (b *BufferedEngine) Apply() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var ops []walOp
	for _, table := range tableNames {
		for key, op := range b.pending[table] {
			if op.deleted {
				ops = append(ops, walOp{Table: table, Kind: opDelete, Key: []byte(key)})
			} else {
				ops = append(ops, walOp{Table: table, Kind: opPut, Key: []byte(key), Value: op.value})
			}
		}
	}

	if len(ops) == 0 {
		return nil
	}

	if err := b.engine.Commit(ops); err != nil {
		return err
	}

	b.pending = freshPending()
	return nil
}

// Cancel discards the entire pending buffer across all six tables.
// Idempotent: calling it with nothing pending is a no-op.
func (b *BufferedEngine) Cancel() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = freshPending()
}

// Revision exposes the underlying committed Engine's revision, which
// advances by one on every Apply that had pending writes.
func (b *BufferedEngine) Revision() uint64 {
	return b.engine.Revision()
}

func (b *BufferedEngine) Close() error {
	return b.engine.Close()
}
