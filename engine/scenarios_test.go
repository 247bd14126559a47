package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleofreddi/txflash/engine"
)

// All scenarios use W=2 (uint16 position type), little-endian length field,
// matching the assumption stated at the top of the specification's
// testable-properties section.

func Test_Scenario_A_Empty_Init_Then_Write_Cycle(t *testing.T) {
	t.Parallel()

	b0 := newSpyBank[uint16](20, 0x00)
	b1 := newSpyBank[uint16](20, 0x00)

	e, err := engine.New[uint16](b0, b1, []byte("!!!!\x00"), nil)
	require.NoError(t, err)

	require.EqualValues(t, 5, e.Length())

	got := make([]byte, 5)
	require.NoError(t, e.Read(got))
	assert.Equal(t, "!!!!\x00", string(got))

	snap := b0.Snapshot()
	assert.Equal(t, []byte{0x01, 0x05, 0x00, '!', '!', '!', '!', 0x00}, snap[:8])
	assert.Equal(t, byte(0x00), snap[8])

	ok, err := e.Write([]byte("0001\x00"))
	require.NoError(t, err)
	require.True(t, ok)

	require.EqualValues(t, 5, e.Length())

	got = make([]byte, 5)
	require.NoError(t, e.Read(got))
	assert.Equal(t, "0001\x00", string(got))

	assert.Equal(t, 0, b1.writeCount, "bank1 must stay untouched")
}

func Test_Scenario_B_Overflow_To_Bank1_Then_Back_To_Bank0(t *testing.T) {
	t.Parallel()

	b0 := newSpyBank[uint16](20, 0x00)
	b1 := newSpyBank[uint16](20, 0x00)

	e, err := engine.New[uint16](b0, b1, []byte("0000\x00"), nil)
	require.NoError(t, err)

	ok, err := e.Write([]byte("0001\x00"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0, b1.eraseCount)

	ok, err = e.Write([]byte("0002\x00"))
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, 1, b1.eraseCount, "swap into bank1 erases it once")
	assert.Equal(t, 0, b0.eraseCount, "bank0 retains its records until the swap back")

	got := make([]byte, 5)
	require.NoError(t, e.Read(got))
	assert.Equal(t, "0002\x00", string(got))

	ok, err = e.Write([]byte("0003****\x00"))
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, 1, b0.eraseCount, "swap back into bank0 erases it once")
	assert.Equal(t, 2, b1.eraseCount, "bank1's stale copy is erased only after bank0 is valid again")

	got = make([]byte, 9)
	require.NoError(t, e.Read(got))
	assert.Equal(t, "0003****\x00", string(got))
}

func Test_Scenario_C_PreExisting_Record_On_Bank0_Only(t *testing.T) {
	t.Parallel()

	b0 := newSpyBankFromBytes[uint16](rawRecord16(0x00, []byte("0000\x00"), 20), 0x00)
	b1 := newSpyBank[uint16](20, 0x00)

	e, err := engine.New[uint16](b0, b1, nil, nil)
	require.NoError(t, err)

	got := make([]byte, 5)
	require.NoError(t, e.Read(got))
	assert.Equal(t, "0000\x00", string(got))

	b1WritesBefore := b1.writeCount

	ok, err := e.Write([]byte("0001\x00"))
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, b1WritesBefore, b1.writeCount, "bank1 unchanged")
	assert.Equal(t, 0, b0.eraseCount)
}

func Test_Scenario_D_PreExisting_Record_On_Bank1_Only(t *testing.T) {
	t.Parallel()

	b0 := newSpyBank[uint16](20, 0x00)
	b1 := newSpyBankFromBytes[uint16](rawRecord16(0x00, []byte("0000\x00"), 20), 0x00)

	e, err := engine.New[uint16](b0, b1, nil, nil)
	require.NoError(t, err)

	got := make([]byte, 5)
	require.NoError(t, e.Read(got))
	assert.Equal(t, "0000\x00", string(got))

	b0WritesBefore := b0.writeCount

	ok, err := e.Write([]byte("0001\x00"))
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, b0WritesBefore, b0.writeCount, "bank0 unchanged")
}

func Test_Scenario_E_Both_Banks_Hold_A_Record_Selects_Bank1(t *testing.T) {
	t.Parallel()

	b0 := newSpyBankFromBytes[uint16](rawRecord16(0x00, []byte("0000\x00"), 20), 0x00)
	b1 := newSpyBankFromBytes[uint16](rawRecord16(0x00, []byte("0001\x00"), 20), 0x00)

	e, err := engine.New[uint16](b0, b1, nil, nil)
	require.NoError(t, err)

	got := make([]byte, 5)
	require.NoError(t, e.Read(got))
	assert.Equal(t, "0001\x00", string(got))

	ok, err := e.Write([]byte("0002\x00"))
	require.NoError(t, err)
	require.True(t, ok)

	got = make([]byte, 5)
	require.NoError(t, e.Read(got))
	assert.Equal(t, "0002\x00", string(got))
}

func Test_Scenario_F_Corrupt_Header_Recovers_To_Default(t *testing.T) {
	t.Parallel()

	corrupt := make([]byte, 20)
	for i := range corrupt {
		corrupt[i] = 0x00
	}

	corrupt[0] = 0xab // neither empty (0x00) nor RECORD (0x01)

	b0 := newSpyBankFromBytes[uint16](corrupt, 0x00)
	b1 := newSpyBank[uint16](20, 0x00)

	e, err := engine.New[uint16](b0, b1, []byte("default\x00"), nil)
	require.NoError(t, err)

	assert.Equal(t, 1, b0.eraseCount)
	assert.Equal(t, 1, b1.eraseCount)

	got := make([]byte, 8)
	require.NoError(t, e.Read(got))
	assert.Equal(t, "default\x00", string(got))
}

func Test_Scenario_G_Oversized_Write_Rejected_Without_Side_Effects(t *testing.T) {
	t.Parallel()

	b0 := newSpyBank[uint16](20, 0x00)
	b1 := newSpyBank[uint16](20, 0x00)

	e, err := engine.New[uint16](b0, b1, nil, nil)
	require.NoError(t, err)

	eraseBefore0, eraseBefore1 := b0.eraseCount, b1.eraseCount
	writeBefore0, writeBefore1 := b0.writeCount, b1.writeCount

	ok, err := e.Write([]byte("this payload won't fit\x00"))
	require.NoError(t, err)
	assert.False(t, ok)
	require.Error(t, e.LastWriteErr())

	assert.Equal(t, eraseBefore0, b0.eraseCount)
	assert.Equal(t, eraseBefore1, b1.eraseCount)
	assert.Equal(t, writeBefore0, b0.writeCount)
	assert.Equal(t, writeBefore1, b1.writeCount)
}
