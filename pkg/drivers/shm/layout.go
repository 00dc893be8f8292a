// Package shm reads telemetry from a memory-mapped file written by a
// simulator-side bridge plugin.
//
// The file starts with a 32-byte header followed by one frame:
//
//	0   magic           uint32 "SIMT"
//	4   layout version  uint32
//	8   version begin   uint64, incremented before the bridge writes
//	16  version end     uint64, set to begin once the write completed
//	24  relative count  uint32
//	28  standings count uint32
//	32  telemetry, then model.RelativeCapacity relative entries, then
//	    model.StandingsCapacity standings entries
//
// All values are little-endian and packed. A reader loads version end,
// copies the frame, then loads version begin; the copy is consistent when
// both are equal.
package shm

import (
	"encoding/binary"

	"simtelemetry/pkg/model"

	"github.com/pkg/errors"
)

const (
	magic         uint32 = 0x544d4953 // "SIMT"
	layoutVersion uint32 = 1

	offMagic     = 0
	offLayout    = 4
	offBegin     = 8
	offEnd       = 16
	offRelative  = 24
	offStandings = 28
	headerSize   = 32
)

var (
	telemetrySize = binary.Size(model.TelemetrySnapshot{})
	relativeSize  = binary.Size(model.RelativeCarEntry{})
	standingsSize = binary.Size(model.StandingsEntry{})

	relativeOffset  = telemetrySize
	standingsOffset = relativeOffset + model.RelativeCapacity*relativeSize
	payloadSize     = standingsOffset + model.StandingsCapacity*standingsSize

	// FileSize is the size of a bridge file.
	FileSize = headerSize + payloadSize
)

var order = binary.LittleEndian

// Frame is one complete update written by a bridge.
type Frame struct {
	Telemetry model.TelemetrySnapshot
	Relative  []model.RelativeCarEntry
	Standings []model.StandingsEntry
}

// encodePayload writes f into payload and returns the list counts stored.
// Lists longer than their capacity are cut.
func encodePayload(payload []byte, f Frame) (relative, standings int, err error) {
	if _, err = binary.Encode(payload, order, &f.Telemetry); err != nil {
		return 0, 0, errors.Wrap(err, "encode telemetry")
	}
	relative = min(len(f.Relative), model.RelativeCapacity)
	if relative > 0 {
		if _, err = binary.Encode(payload[relativeOffset:], order, f.Relative[:relative]); err != nil {
			return 0, 0, errors.Wrap(err, "encode relative cars")
		}
	}
	standings = min(len(f.Standings), model.StandingsCapacity)
	if standings > 0 {
		if _, err = binary.Encode(payload[standingsOffset:], order, f.Standings[:standings]); err != nil {
			return 0, 0, errors.Wrap(err, "encode standings")
		}
	}
	return relative, standings, nil
}

func decodeTelemetry(payload []byte) (model.TelemetrySnapshot, error) {
	var s model.TelemetrySnapshot
	_, err := binary.Decode(payload, order, &s)
	return s, errors.Wrap(err, "decode telemetry")
}

// decodeList decodes up to len(dst) entries of a list of capacity entries
// stored at off.
func decodeList[T any](payload []byte, off, size, capacity, count int, dst []T) error {
	n := min(count, capacity, len(dst))
	if n <= 0 {
		return nil
	}
	_, err := binary.Decode(payload[off:off+n*size], order, dst[:n])
	return errors.Wrap(err, "decode list")
}
