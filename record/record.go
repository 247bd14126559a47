// Package record defines the on-medium record framing rules (§4.2, §6):
// a record is <header byte><length field><payload bytes>, with the header
// byte programmed last so a crash mid-write never produces a record that
// looks complete but isn't.
//
// The package has no notion of banks or cursors — it only knows how to turn
// a length value into wire bytes and back, and what the three header byte
// values mean relative to a backend's empty byte. The engine package owns
// everything about where records live and how the log is walked.
package record

import "github.com/aleofreddi/txflash/bank"

// Header is a record's framing byte, one of Empty, Record, or an unknown
// (structurally invalid) value.
type Header byte

// EmptyHeader returns the header byte value an unwritten slot reads as for
// a backend whose empty byte is emptyByte.
func EmptyHeader(emptyByte byte) Header {
	return Header(emptyByte)
}

// RecordHeader returns the header byte value a written record starts with,
// for a backend whose empty byte is emptyByte: (emptyByte+1) mod 256.
func RecordHeader(emptyByte byte) Header {
	return Header(emptyByte + 1)
}

// SwitchHeader returns the reserved (emptyByte+2) mod 256 header value.
// The protocol never writes it; it exists only so an implementation can
// name it explicitly instead of having it fall silently into "unknown
// header". See the Open Questions in the design notes: SWITCH carries no
// defined semantics and must be rejected exactly like any other unknown
// header.
func SwitchHeader(emptyByte byte) Header {
	return Header(emptyByte + 2)
}

// Width returns sizeof(P) in bytes: the wire width of the little-endian
// length field that follows a record's header byte. This is a build-time
// configuration choice (§6) — banks written with one width cannot be read
// back with another.
func Width[P bank.Uint]() int {
	var zero P
	return widthOf(zero)
}

func widthOf[P bank.Uint](zero P) int {
	switch any(zero).(type) {
	case uint8:
		return 1
	case uint16:
		return 2
	case uint32:
		return 4
	case uint64:
		return 8
	default:
		// Unreachable: bank.Uint only permits the four cases above.
		panic("record: unsupported position type")
	}
}

// PutLength encodes length into dst as a little-endian Width[P]() byte
// field. Panics if len(dst) != Width[P]().
func PutLength[P bank.Uint](dst []byte, length P) {
	w := Width[P]()
	if len(dst) != w {
		panic("record: dst has wrong width for PutLength")
	}

	v := uint64(length)
	for i := 0; i < w; i++ {
		dst[i] = byte(v >> (8 * i))
	}
}

// GetLength decodes a little-endian Width[P]() byte field. Panics if
// len(src) != Width[P]().
func GetLength[P bank.Uint](src []byte) P {
	w := Width[P]()
	if len(src) != w {
		panic("record: src has wrong width for GetLength")
	}

	var v uint64
	for i := 0; i < w; i++ {
		v |= uint64(src[i]) << (8 * i)
	}

	return P(v)
}

// HeaderSize is the size in bytes of the record header field.
const HeaderSize = 1

// Overhead returns the number of bytes a record needs beyond its payload: the header byte, the length field, and — per
// §4.4's "remaining" check — the one terminating byte every record must
// leave room for so the log has a legal continuation point.
func Overhead[P bank.Uint]() int {
	return HeaderSize + Width[P]() + 1
}

// Size returns the total on-medium footprint of a record carrying
// payloadLen bytes, not counting the trailing terminator byte reserved by
// Overhead (i.e. HeaderSize + Width[P]() + payloadLen).
func Size[P bank.Uint](payloadLen int) int {
	return HeaderSize + Width[P]() + payloadLen
}
