package engine_test

import (
	"errors"

	"github.com/aleofreddi/txflash/bank"
	"github.com/aleofreddi/txflash/record"
)

// errSimulatedPowerLoss marks a WriteAt call a haltingBank deliberately
// failed to simulate power loss mid-operation.
var errSimulatedPowerLoss = errors.New("simulated power loss")

// haltingBank wraps a MemoryBank and fails exactly its Nth WriteAt call
// (1-indexed, counting from when it was constructed, across the whole
// backend lifetime) instead of performing it — modeling a crash between
// two backend chunk writes. Per the specification's concurrency model,
// the only suspension points are inside a backend's Erase/WriteAt call, so
// failing a whole call (rather than partially applying it) is the right
// granularity to simulate power loss at.
type haltingBank[P bank.Uint] struct {
	*bank.MemoryBank[P]
	writeCalls int
	haltAtCall int // 0 means never halt
}

func newHaltingBank[P bank.Uint](length P, emptyByte byte) *haltingBank[P] {
	return &haltingBank[P]{MemoryBank: bank.NewMemoryBank[P](length, emptyByte)}
}

func (h *haltingBank[P]) WriteAt(pos P, src []byte) error {
	h.writeCalls++
	if h.haltAtCall != 0 && h.writeCalls == h.haltAtCall {
		return errSimulatedPowerLoss
	}

	return h.MemoryBank.WriteAt(pos, src)
}

// spyBank wraps a MemoryBank and counts Erase/WriteAt calls, the Go
// equivalent of the source test suite's fakeit spies (tx_flash_test.cc
// mocks read_chunk/erase/write_chunk to assert exactly which operations a
// given Write call performs).
type spyBank[P bank.Uint] struct {
	*bank.MemoryBank[P]
	eraseCount int
	writeCount int
}

func newSpyBank[P bank.Uint](length P, emptyByte byte) *spyBank[P] {
	return &spyBank[P]{MemoryBank: bank.NewMemoryBank[P](length, emptyByte)}
}

func newSpyBankFromBytes[P bank.Uint](data []byte, emptyByte byte) *spyBank[P] {
	return &spyBank[P]{MemoryBank: bank.NewMemoryBankFromBytes[P](data, emptyByte)}
}

func (s *spyBank[P]) Erase() error {
	s.eraseCount++
	return s.MemoryBank.Erase()
}

func (s *spyBank[P]) WriteAt(pos P, src []byte) error {
	s.writeCount++
	return s.MemoryBank.WriteAt(pos, src)
}

// rawRecord16 builds a bankLen-byte buffer holding exactly one record with
// the given payload at offset 0, using a 2-byte little-endian length field,
// with every remaining byte set to emptyByte. Used to seed pre-existing
// on-medium state for scenarios C-E and the fast-forward and recovery tests.
func rawRecord16(emptyByte byte, payload []byte, bankLen int) []byte {
	buf := make([]byte, bankLen)
	for i := range buf {
		buf[i] = emptyByte
	}

	buf[0] = byte(record.RecordHeader(emptyByte))
	record.PutLength[uint16](buf[1:3], uint16(len(payload)))
	copy(buf[3:], payload)

	return buf
}
