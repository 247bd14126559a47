// Package engine implements TxEngine: the transactional configuration store
// described by the specification this module implements — a dual-bank,
// log-structured, crash-safe append scheme with deferred bank-swap erases.
//
// Scheduling model: single-threaded, no internal concurrency (§5). Every
// exported method runs to completion on the caller's goroutine; the only
// suspension happens inside a Backend's Erase/ReadAt/WriteAt, which the
// engine never retries or runs concurrently with another call. Engine is
// not safe for concurrent use — wrap it externally if callers need that,
// and never point two engines at overlapping bank regions.
package engine

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/aleofreddi/txflash/bank"
	"github.com/aleofreddi/txflash/record"
	"github.com/aleofreddi/txflash/txlog"
)

// bankID names one of the engine's two banks. Unlike the source's
// enum class Bank : bool, this never needs to be compared for equality
// against anything but its own two values, so a plain uint8 suffices.
type bankID uint8

const (
	bank0ID bankID = iota
	bank1ID
)

func (id bankID) other() bankID {
	if id == bank0ID {
		return bank1ID
	}

	return bank0ID
}

// state is the outcome of classification + fast-forward (§4.3, §4.4).
type state uint8

const (
	stateEmpty state = iota
	stateValid
	stateInvalid
)

func (s state) String() string {
	switch s {
	case stateEmpty:
		return "empty"
	case stateValid:
		return "valid"
	case stateInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Engine is the transactional configuration store. It owns bank0 and bank1
// for its lifetime: callers must not retain or mutate either Backend after
// calling New — the Go equivalent of the source's move-only bank ownership,
// since Go has no move semantics to enforce it for us. This mirrors how
// pkg/fs.NewAtomicWriter in the teacher repo takes an FS by convention
// without the language enforcing exclusivity.
type Engine[P bank.Uint] struct {
	banks [2]bank.Backend[P]

	defaultPayload []byte

	readBank, writeBank bankID
	readPos, writePos   P

	log *logrus.Entry

	lastWriteErr error
}

// New constructs an Engine over bank0 and bank1, classifying their current
// content and recovering or initializing as needed (§4.3).
//
// defaultPayload is used to materialize the initial record when both banks
// are empty, and to reset content when they are structurally invalid; it
// may be nil or empty, in which case a zero-length record is written and
// Length reports 0.
//
// log scopes the engine's debug diagnostics (§7); pass nil to use the
// package's default logger.
func New[P bank.Uint](bank0, bank1 bank.Backend[P], defaultPayload []byte, log *logrus.Entry) (*Engine[P], error) {
	if bank0.EmptyByte() != bank1.EmptyByte() {
		return nil, fmt.Errorf("%w: bank0=0x%02x bank1=0x%02x", bank.ErrEmptyByteMismatch, bank0.EmptyByte(), bank1.EmptyByte())
	}

	if log == nil {
		log = txlog.Default()
	}

	e := &Engine[P]{
		banks:          [2]bank.Backend[P]{bank0, bank1},
		defaultPayload: defaultPayload,
		log:            log,
	}

	if err := e.initialize(); err != nil {
		return nil, err
	}

	return e, nil
}

func (e *Engine[P]) backend(id bankID) bank.Backend[P] {
	return e.banks[id]
}

// remaining returns bank.Length() - pos for the named bank. Safe because
// every caller maintains pos <= Length() as an invariant.
func (e *Engine[P]) remaining(id bankID, pos P) P {
	return e.backend(id).Length() - pos
}

func (e *Engine[P]) initialize() error {
	st, err := e.classify()
	if err != nil {
		return err
	}

	e.log.WithFields(logrus.Fields{
		"state":      st.String(),
		"read_bank":  e.readBank,
		"read_pos":   e.readPos,
		"write_bank": e.writeBank,
		"write_pos":  e.writePos,
	}).Debug("parsed flash")

	switch st {
	case stateInvalid:
		e.log.WithError(ErrUnrecoverable).Debug("flash content is invalid, resetting")
		return e.Reset()
	case stateEmpty:
		e.log.Debug("initializing empty flash with default payload")
		_, err := e.write(e.defaultPayload)
		return err
	default:
		return nil
	}
}

// Length reports the current configuration's length. It returns 0 if the
// engine was initialized on an empty medium with no default payload and
// Write has not yet been called, since the stored record is then
// zero-length.
func (e *Engine[P]) Length() P {
	w := record.Width[P]()
	buf := make([]byte, w)

	if err := e.backend(e.readBank).ReadAt(e.readPos+1, buf); err != nil {
		return 0
	}

	return record.GetLength[P](buf)
}

// Read copies the current configuration into dst, which must have capacity
// at least Length(). Logical misuse (dst too small, or length()==0) is not
// an error per §7 — it is simply a zero-or-partial-byte copy.
func (e *Engine[P]) Read(dst []byte) error {
	n := int(e.Length())
	if n > len(dst) {
		n = len(dst)
	}

	if n == 0 {
		return nil
	}

	off := e.readPos + 1 + P(record.Width[P]())

	return e.backend(e.readBank).ReadAt(off, dst[:n])
}

// LastWriteErr returns the cause of the most recent Write's false result,
// or nil if the most recent Write succeeded (or none has been called).
// This is additive relative to the source's plain bool return — it never
// changes Write's contract, only gives callers a reason to log.
func (e *Engine[P]) LastWriteErr() error {
	return e.lastWriteErr
}

// Write stores a new configuration, appending to the active bank or
// swapping to the other bank and deferring an erase when the active bank
// would overflow (§4.5). It returns false iff the record plus its
// terminator does not fit in the smaller of the two banks; on false, no
// erase or program has occurred and engine state is unchanged.
func (e *Engine[P]) Write(payload []byte) (bool, error) {
	e.lastWriteErr = nil
	return e.write(payload)
}

func (e *Engine[P]) write(payload []byte) (bool, error) {
	need := P(record.Size[P](len(payload)) + 1) // +1 terminator, per §4.4/§4.5

	min0, min1 := e.remaining(bank0ID, 0), e.remaining(bank1ID, 0)

	minCap := min0
	if min1 < minCap {
		minCap = min1
	}

	if minCap < need {
		e.lastWriteErr = fmt.Errorf("%w: need %d, bank0=%d bank1=%d", ErrPayloadTooLarge, need, min0, min1)
		e.log.WithError(e.lastWriteErr).Debug("payload exceeds bank size")

		return false, nil
	}

	if e.remaining(e.writeBank, e.writePos) >= need {
		return e.appendInPlace(payload)
	}

	return e.swapAndWrite(payload)
}

// appendInPlace writes length, then payload, then header — in that order —
// at the engine's current write cursor (§4.2). The header is programmed
// last: until it transitions from empty to RECORD, the slot is
// indistinguishable from unwritten space, so a crash before the header
// write completes leaves whichever record was newest before it as the
// newest valid one.
func (e *Engine[P]) appendInPlace(payload []byte) (bool, error) {
	target := e.backend(e.writeBank)
	w := record.Width[P]()

	lenBuf := make([]byte, w)
	record.PutLength[P](lenBuf, P(len(payload)))

	if err := target.WriteAt(e.writePos+1, lenBuf); err != nil {
		return false, err
	}

	if err := target.WriteAt(e.writePos+1+P(w), payload); err != nil {
		return false, err
	}

	header := byte(record.RecordHeader(target.EmptyByte()))
	if err := target.WriteAt(e.writePos, []byte{header}); err != nil {
		return false, err
	}

	e.readBank = e.writeBank
	e.readPos = e.writePos
	e.writePos += P(record.Size[P](len(payload)))

	return true, nil
}

// swapAndWrite implements §4.5 step 3: migrate the write cursor to the
// other bank, erasing it first, and recurse once. When the target is
// bank0 — completing a full cycle bank0 -> bank1 -> bank0 — bank1's erase
// is deferred until after bank0 holds a valid record, so a crash between
// the two erases still leaves a recoverable newest record (classification
// always prefers bank1 when both banks show RECORD at offset 0).
func (e *Engine[P]) swapAndWrite(payload []byte) (bool, error) {
	target := e.writeBank.other()
	e.writePos = 0

	if err := e.backend(target).Erase(); err != nil {
		return false, err
	}

	e.writeBank = target

	ok, err := e.write(payload)
	if err != nil {
		return false, err
	}

	if target == bank0ID && ok {
		if err := e.backend(bank1ID).Erase(); err != nil {
			return false, err
		}
	}

	return ok, nil
}

// Reset erases both banks and writes the default payload as the initial
// record; if defaultPayload is nil or empty, that record is zero-length and
// Length reports 0 (§4.5). Previous content is unrecoverable after this call.
func (e *Engine[P]) Reset() error {
	e.log.Debug("resetting flash to default value")

	if err := e.backend(bank0ID).Erase(); err != nil {
		return err
	}

	if err := e.backend(bank1ID).Erase(); err != nil {
		return err
	}

	e.readBank, e.writeBank = bank0ID, bank0ID
	e.readPos, e.writePos = 0, 0

	_, err := e.write(e.defaultPayload)

	return err
}
