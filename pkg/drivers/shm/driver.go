package shm

import (
	"log/slog"
	"os"
	"sync/atomic"
	"unsafe"

	"simtelemetry/pkg/model"

	"github.com/prometheus/client_golang/prometheus"
)

// readAttempts bounds how often Poll retries a frame the bridge is writing.
const readAttempts = 4

type Options struct {
	Name     string
	Producer model.ProducerID
	Path     string
	Logger   *slog.Logger
}

// Driver implements source.Driver and source.ListDriver on top of a bridge
// file. It is not safe for concurrent use.
type Driver struct {
	name     string
	producer model.ProducerID
	path     string
	log      *slog.Logger
	torn     prometheus.Counter

	file *os.File
	mem  []byte

	// frame holds the last consistent payload, scratch the one being read.
	frame     []byte
	scratch   []byte
	seen      uint64
	relative  int
	standings int
	last      model.TelemetrySnapshot
}

func New(opts Options) *Driver {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	name := opts.Name
	if name == "" {
		name = "shm"
	}
	return &Driver{
		name:     name,
		producer: opts.Producer,
		path:     opts.Path,
		log:      logger.With("driver", name),
		torn:     tornReadsTotal.WithLabelValues(name),
		frame:    make([]byte, payloadSize),
		scratch:  make([]byte, payloadSize),
	}
}

func (d *Driver) ID() model.ProducerID {
	return d.producer
}

func (d *Driver) Name() string {
	return d.name
}

// Probe maps the bridge file. It succeeds only once the bridge published a
// complete frame, and undoes every step on failure.
func (d *Driver) Probe() bool {
	if d.mem != nil {
		return true
	}
	f, err := os.Open(d.path)
	if err != nil {
		d.log.Debug("bridge file not available", "path", d.path, "error", err)
		return false
	}
	if fi, err := f.Stat(); err != nil || fi.Size() < int64(FileSize) {
		d.log.Debug("bridge file too small", "path", d.path)
		_ = f.Close()
		return false
	}
	mem, err := mapFile(f, FileSize, false)
	if err != nil {
		d.log.Debug("bridge file not mappable", "path", d.path, "error", err)
		_ = f.Close()
		return false
	}
	if atomic.LoadUint32(word32(mem, offMagic)) != magic ||
		atomic.LoadUint32(word32(mem, offLayout)) != layoutVersion ||
		atomic.LoadUint64(word64(mem, offEnd)) == 0 {
		d.log.Debug("bridge file has no frame", "path", d.path)
		_ = unmap(mem)
		_ = f.Close()
		return false
	}

	d.file, d.mem = f, mem
	d.seen = 0
	if !d.read() {
		d.Release()
		return false
	}
	d.log.Info("bridge file mapped", "path", d.path)
	return true
}

func (d *Driver) IsLive() bool {
	return d.file != nil && linked(d.file)
}

// Poll returns the newest consistent frame. When the bridge rewrites the
// frame on every attempt the previous frame is returned.
func (d *Driver) Poll() (model.TelemetrySnapshot, bool) {
	if d.mem == nil {
		return model.TelemetrySnapshot{}, false
	}
	if !d.read() {
		d.torn.Inc()
	}
	return d.last, true
}

// RelativeCars reports the count the bridge wrote, which may exceed len(dst).
func (d *Driver) RelativeCars(dst []model.RelativeCarEntry) (int, bool) {
	if d.mem == nil {
		return 0, false
	}
	if err := decodeList(d.frame, relativeOffset, relativeSize, model.RelativeCapacity, d.relative, dst); err != nil {
		d.log.Warn("relative cars undecodable", "error", err)
		return 0, false
	}
	return d.relative, true
}

// Standings reports the count the bridge wrote, which may exceed len(dst).
func (d *Driver) Standings(dst []model.StandingsEntry) (int, bool) {
	if d.mem == nil {
		return 0, false
	}
	if err := decodeList(d.frame, standingsOffset, standingsSize, model.StandingsCapacity, d.standings, dst); err != nil {
		d.log.Warn("standings undecodable", "error", err)
		return 0, false
	}
	return d.standings, true
}

func (d *Driver) Release() {
	if d.mem != nil {
		if err := unmap(d.mem); err != nil {
			d.log.Warn("unmap bridge file", "error", err)
		}
		d.mem = nil
	}
	if d.file != nil {
		if err := d.file.Close(); err != nil {
			d.log.Warn("close bridge file", "error", err)
		}
		d.file = nil
	}
}

// read copies the frame if the bridge published a new one. It returns false
// when no consistent copy could be taken.
func (d *Driver) read() bool {
	for i := 0; i < readAttempts; i++ {
		end := atomic.LoadUint64(word64(d.mem, offEnd))
		if end == d.seen {
			return true
		}
		relative := atomic.LoadUint32(word32(d.mem, offRelative))
		standings := atomic.LoadUint32(word32(d.mem, offStandings))
		copy(d.scratch, d.mem[headerSize:])
		if atomic.LoadUint64(word64(d.mem, offBegin)) != end {
			continue
		}

		s, err := decodeTelemetry(d.scratch)
		if err != nil {
			d.log.Warn("telemetry undecodable", "error", err)
			return false
		}
		d.frame, d.scratch = d.scratch, d.frame
		d.seen = end
		d.relative, d.standings = int(relative), int(standings)
		d.last = s
		return true
	}
	return false
}

// word64 and word32 view header fields for atomic access. The mapping is page
// aligned and so are the offsets; the host must be little-endian.
func word64(mem []byte, off int) *uint64 {
	return (*uint64)(unsafe.Pointer(&mem[off]))
}

func word32(mem []byte, off int) *uint32 {
	return (*uint32)(unsafe.Pointer(&mem[off]))
}
