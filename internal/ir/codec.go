package ir

import "encoding/binary"

// Encode lays out records as a flat little-endian byte buffer, Size bytes
// per Record, suitable for SafeDecode/UnsafeDecode to invert.
func Encode(records []Record) []byte {
	buf := make([]byte, len(records)*Size)
	for i, r := range records {
		b := buf[i*Size:]
		binary.LittleEndian.PutUint16(b[0:2], uint16(r.Op))
		binary.LittleEndian.PutUint16(b[2:4], uint16(r.X))
		binary.LittleEndian.PutUint16(b[4:6], uint16(r.Y))
		binary.LittleEndian.PutUint16(b[6:8], uint16(r.Z))
	}
	return buf
}

// ErrTruncated is returned by SafeDecode when buf's length is not a
// multiple of Size, or when a record is otherwise unreadable.
const ErrTruncated = Error("ir: truncated record buffer")

// Error is the typed error kind this package raises; it is a static
// (translation-time or tooling-time) failure, never a runtime trap.
type Error string

func (e Error) Error() string { return string(e) }

// SafeDecode bounds-checks buf on every record before reading it, failing
// cleanly with ErrTruncated instead of panicking on malformed input. Use
// this whenever buf did not just come out of Encode in the same process
// (e.g. a deserialized on-disk cache entry).
func SafeDecode(buf []byte) ([]Record, error) {
	if len(buf)%Size != 0 {
		return nil, ErrTruncated
	}
	n := len(buf) / Size
	out := make([]Record, n)
	for i := 0; i < n; i++ {
		b := buf[i*Size:]
		if len(b) < Size {
			return nil, ErrTruncated
		}
		out[i] = Record{
			Op: Opcode(binary.LittleEndian.Uint16(b[0:2])),
			X:  Slot(binary.LittleEndian.Uint16(b[2:4])),
			Y:  Slot(binary.LittleEndian.Uint16(b[4:6])),
			Z:  Slot(binary.LittleEndian.Uint16(b[6:8])),
		}
	}
	return out, nil
}

// UnsafeDecode assumes buf is exactly the output of Encode for some
// []Record (or an equally well-formed buffer) and skips the per-record
// length check SafeDecode makes. The executor does not call it: translated
// functions keep their []Record in memory, so neither decoder sits on the
// dispatch path.
//
// Passing a buffer whose length is not a multiple of Size is undefined
// behavior on the Rust source this was translated from; in Go the trailing
// partial record is silently dropped, and a buffer not produced by Encode
// decodes to whatever records its bytes spell — this package never
// promises memory-unsafety immunity for its unsafe path, only the store's
// guarded handles (internal/arena) carry that guarantee.
func UnsafeDecode(buf []byte) []Record {
	n := len(buf) / Size
	out := make([]Record, n)
	for i := 0; i < n; i++ {
		b := buf[i*Size : i*Size+Size : i*Size+Size]
		out[i] = Record{
			Op: Opcode(binary.LittleEndian.Uint16(b[0:2])),
			X:  Slot(binary.LittleEndian.Uint16(b[2:4])),
			Y:  Slot(binary.LittleEndian.Uint16(b[4:6])),
			Z:  Slot(binary.LittleEndian.Uint16(b[6:8])),
		}
	}
	return out
}
