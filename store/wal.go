package store

import (
	"bufio"
	"fmt"
	"hash/crc32"
	"io"
	"os"

	jsonv2 "github.com/go-json-experiment/json"
	"github.com/google/uuid"
)

// opKind is the mutation kind recorded in a WAL entry.
type opKind byte

const (
	opPut opKind = iota
	opDelete
)

// walOp is one key/value mutation against one of the six named tables.
type walOp struct {
	Table string `json:"table"`
	Kind  opKind `json:"kind"`
	Key   []byte `json:"key"`
	Value []byte `json:"value,omitempty"`
}

// walBatch is one atomic commit: every op in it is applied to the
// six in-memory tables together, or none are. Grounded on
// collectionv2/storage.go's Command framing, generalized from a single
// JSON document command to an arbitrary list of table ops so that one
// batch can span all six tables in a single atomic commit.
type walBatch struct {
	ID       string  `json:"id"`
	Checksum uint32  `json:"checksum"`
	Ops      []walOp `json:"ops"`
}

func newWALBatch(ops []walOp) *walBatch {
	b := &walBatch{
		ID:  uuid.New().String(),
		Ops: ops,
	}
	b.Checksum = b.computeChecksum()
	return b
}

func (b *walBatch) computeChecksum() uint32 {
	h := crc32.NewIEEE()
	for _, op := range b.Ops {
		h.Write([]byte(op.Table))
		h.Write([]byte{byte(op.Kind)})
		h.Write(op.Key)
		h.Write(op.Value)
	}
	return h.Sum32()
}

// wal is an append-only, newline-delimited JSON log of committed
// batches. Grounded on collectionv2/storage.go's JSONStorage: open for
// append, one JSON object per line, replay on open.
type wal struct {
	filename string
	file     *os.File
	writer   *bufio.Writer
}

func openWAL(filename string, blockSize int) (*wal, error) {
	f, err := os.OpenFile(filename, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0666)
	if err != nil {
		return nil, fmt.Errorf("open wal: %w", err)
	}
	return &wal{
		filename: filename,
		file:     f,
		writer:   bufio.NewWriterSize(f, blockSize),
	}, nil
}

func (w *wal) append(batch *walBatch) error {
	data, err := jsonv2.Marshal(batch)
	if err != nil {
		return fmt.Errorf("encode wal batch: %w", err)
	}
	if _, err := w.writer.Write(data); err != nil {
		return fmt.Errorf("write wal batch: %w", err)
	}
	if err := w.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("write wal separator: %w", err)
	}
	if err := w.writer.Flush(); err != nil {
		return fmt.Errorf("flush wal: %w", err)
	}
	return w.file.Sync()
}

func (w *wal) close() error {
	if err := w.writer.Flush(); err != nil {
		return err
	}
	return w.file.Close()
}

// replayResult is the outcome of replaying the WAL on open.
type replayResult struct {
	batches []*walBatch
	// torn is true when the last line in the file is present but fails
	// to decode or fails its checksum: a write that was interrupted
	// mid-append (process crash between Write and Sync).
	torn bool
}

// replayWAL reads every complete, checksum-valid batch from the log.
// Grounded on collectionv2/loader.go's sequential replay loop, simplified
// because WAL batches (unlike the teacher's per-command log) are already
// atomic units, so no cross-line re-assembly is required.
func replayWAL(filename string, blockSize int) (*replayResult, error) {
	f, err := os.Open(filename)
	if os.IsNotExist(err) {
		return &replayResult{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open wal for replay: %w", err)
	}
	defer f.Close()

	result := &replayResult{}

	scanner := bufio.NewScanner(f)
	const maxLine = 64 * 1024 * 1024
	scanner.Buffer(make([]byte, 0, blockSize), maxLine)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		batch := &walBatch{}
		if err := jsonv2.Unmarshal(line, batch); err != nil {
			result.torn = true
			continue
		}
		if batch.computeChecksum() != batch.Checksum {
			result.torn = true
			continue
		}
		if result.torn {
			// A bad line followed by a good one is not a torn tail.
			return nil, fmt.Errorf("wal batch %s follows a corrupt batch", batch.ID)
		}
		result.batches = append(result.batches, batch)
	}

	if err := scanner.Err(); err != nil {
		if err == io.ErrUnexpectedEOF {
			result.torn = true
			return result, nil
		}
		return nil, fmt.Errorf("scan wal: %w", err)
	}

	return result, nil
}

// truncateTornTail rewrites the WAL file keeping only the batches that
// replayed cleanly, discarding a torn trailing write. Used when
// PerformRecovery is true.
func truncateTornTail(filename string, batches []*walBatch) error {
	tmp := filename + ".recover"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0666)
	if err != nil {
		return fmt.Errorf("create recovery file: %w", err)
	}

	w := bufio.NewWriter(f)
	for _, batch := range batches {
		data, err := jsonv2.Marshal(batch)
		if err != nil {
			f.Close()
			os.Remove(tmp)
			return fmt.Errorf("re-encode batch during recovery: %w", err)
		}
		w.Write(data)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("flush recovery file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}

	return os.Rename(tmp, filename)
}
