package engine

import (
	"fmt"

	"github.com/aleofreddi/txflash/record"
)

// classify reads byte 0 of each bank and applies the §4.3 table to pick the
// active bank and cursor. It never mutates bank content; only initialize
// (via Reset or write) does that, once classify has returned.
func (e *Engine[P]) classify() (state, error) {
	var h0, h1 [1]byte

	if err := e.backend(bank0ID).ReadAt(0, h0[:]); err != nil {
		return stateInvalid, fmt.Errorf("read bank0 header: %w", err)
	}

	if err := e.backend(bank1ID).ReadAt(0, h1[:]); err != nil {
		return stateInvalid, fmt.Errorf("read bank1 header: %w", err)
	}

	emptyByte := e.backend(bank0ID).EmptyByte()
	empty := byte(record.EmptyHeader(emptyByte))
	rec := byte(record.RecordHeader(emptyByte))

	e.readBank, e.writeBank = bank0ID, bank0ID
	e.readPos, e.writePos = 0, 0

	switch {
	case h0[0] == empty && h1[0] == empty:
		return stateEmpty, nil

	case h0[0] == empty && h1[0] == rec:
		e.readBank, e.writeBank = bank1ID, bank1ID
		return e.fastForward()

	case h0[0] == rec && h1[0] == empty:
		return e.fastForward()

	case h0[0] == rec && h1[0] == rec:
		// bank1 can only hold a record if bank0 filled up and the engine
		// swapped into it, so bank1 is unambiguously the newer of the two.
		e.readBank, e.writeBank = bank1ID, bank1ID
		return e.fastForward()

	default:
		return stateInvalid, nil
	}
}

// fastForward walks the active bank (e.readBank, which equals e.writeBank
// at this point) from offset 0 until it finds the empty header slot that
// marks the next free write position (§4.4). Precondition: byte 0 of the
// active bank is RECORD.
func (e *Engine[P]) fastForward() (state, error) {
	active := e.backend(e.readBank)
	emptyByte := active.EmptyByte()
	w := record.Width[P]()

	p := P(0)

	for {
		if e.remaining(e.readBank, p) < P(record.HeaderSize+w+1) {
			return stateInvalid, nil
		}

		lenBuf := make([]byte, w)
		if err := active.ReadAt(p+P(record.HeaderSize), lenBuf); err != nil {
			return stateInvalid, fmt.Errorf("read record length at %d: %w", p, err)
		}

		length := record.GetLength[P](lenBuf)

		if e.remaining(e.readBank, p) < P(record.Size[P](int(length))+1) {
			return stateInvalid, nil
		}

		next := p + P(record.Size[P](int(length)))

		var hdr [1]byte
		if err := active.ReadAt(next, hdr[:]); err != nil {
			return stateInvalid, fmt.Errorf("read header at %d: %w", next, err)
		}

		switch hdr[0] {
		case emptyByte:
			e.readPos, e.writePos = p, next
			return stateValid, nil

		case byte(record.RecordHeader(emptyByte)):
			p = next

		default:
			return stateInvalid, nil
		}
	}
}
