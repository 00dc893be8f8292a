package shm

import (
	"os"
	"sync/atomic"

	"github.com/pkg/errors"
)

// Writer is the bridge side of the file. Simulator plugins and tests use it
// to publish frames.
type Writer struct {
	file    *os.File
	mem     []byte
	payload []byte
	version uint64
}

// Create creates or truncates the bridge file at path and maps it.
func Create(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "create bridge file")
	}
	if err := f.Truncate(int64(FileSize)); err != nil {
		_ = f.Close()
		return nil, errors.Wrap(err, "size bridge file")
	}
	mem, err := mapFile(f, FileSize, true)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	atomic.StoreUint32(word32(mem, offLayout), layoutVersion)
	atomic.StoreUint32(word32(mem, offMagic), magic)
	return &Writer{file: f, mem: mem, payload: make([]byte, payloadSize)}, nil
}

// WriteFrame publishes f. Lists longer than their capacity are cut.
func (w *Writer) WriteFrame(f Frame) error {
	clear(w.payload)
	relative, standings, err := encodePayload(w.payload, f)
	if err != nil {
		return err
	}
	w.version++
	atomic.StoreUint64(word64(w.mem, offBegin), w.version)
	atomic.StoreUint32(word32(w.mem, offRelative), uint32(relative))
	atomic.StoreUint32(word32(w.mem, offStandings), uint32(standings))
	copy(w.mem[headerSize:], w.payload)
	atomic.StoreUint64(word64(w.mem, offEnd), w.version)
	return nil
}

// Close unmaps and removes the file, which readers observe as the source
// going away.
func (w *Writer) Close() error {
	if w.mem == nil {
		return nil
	}
	err := unmap(w.mem)
	w.mem = nil
	if cerr := w.file.Close(); err == nil {
		err = errors.Wrap(cerr, "close bridge file")
	}
	if rerr := os.Remove(w.file.Name()); err == nil {
		err = errors.Wrap(rerr, "remove bridge file")
	}
	return err
}
