package gbcore

import (
	"testing"

	"github.com/pixeldrift/gbcore/internal/interrupts"
	"github.com/pixeldrift/gbcore/internal/joypad"
	"github.com/stretchr/testify/require"
)

// blankROM returns a minimal ROM-only cartridge image: large enough to
// carry a header (cartridge.Load doesn't verify the checksum) but
// otherwise zeroed, suitable for exercising the scheduler without a
// real game.
func blankROM(t *testing.T) []byte {
	t.Helper()
	return make([]byte, 0x8000)
}

func TestNewBuildsAMachine(t *testing.T) {
	g, result := New(blankROM(t))
	require.Equal(t, SuccessROM, result)
	require.NotNil(t, g)
	require.Equal(t, uint16(0x0100), g.CPU.PC)
	require.Equal(t, uint16(0xFFFE), g.CPU.SP)
}

func TestNewRejectsUndersizedROM(t *testing.T) {
	g, result := New(make([]byte, 0x10))
	require.Nil(t, g)
	require.Equal(t, InvalidROM, result)
}

func TestFrameAdvancesAtLeastOneFrameOfCycles(t *testing.T) {
	g, result := New(blankROM(t))
	require.Equal(t, SuccessROM, result)

	g.Frame()
	require.GreaterOrEqual(t, g.totalCycles, uint64(CyclesPerFrame))
	// the scheduler never overshoots by more than the longest opcode.
	require.Less(t, g.totalCycles, uint64(CyclesPerFrame+24))
}

func TestPauseStopsFrameAdvancing(t *testing.T) {
	g, _ := New(blankROM(t))
	g.Pause()
	require.True(t, g.Paused())
	g.Frame()
	require.EqualValues(t, 0, g.totalCycles)

	g.Resume()
	g.Frame()
	require.Greater(t, g.totalCycles, uint64(0))
}

func TestSaveStateRoundTrip(t *testing.T) {
	rom := blankROM(t)
	g, result := New(rom)
	require.Equal(t, SuccessROM, result)

	g.Frame()
	g.Frame()
	wantPC := g.CPU.PC
	wantCycles := g.totalCycles

	for _, compressFB := range []bool{false, true} {
		for _, compressState := range []bool{false, true} {
			blob := g.SaveState(compressFB, compressState)

			fresh, result := New(rom)
			require.Equal(t, SuccessROM, result)

			loadResult := fresh.LoadState(blob)
			require.Equal(t, SuccessSaveState, loadResult)
			require.Equal(t, wantPC, fresh.CPU.PC)
			require.Equal(t, wantCycles, fresh.totalCycles)
		}
	}
}

func TestLoadStateRejectsCorruptData(t *testing.T) {
	g, _ := New(blankROM(t))
	blob := g.SaveState(true, true)
	blob[len(blob)-1] ^= 0xFF // flip a byte inside the compressed state section

	result := g.LoadState(blob)
	require.Equal(t, CorruptSaveState, result)
}

func TestLoadStateRejectsBadSignature(t *testing.T) {
	g, _ := New(blankROM(t))
	blob := g.SaveState(false, false)
	blob[0] = 'x'

	require.Equal(t, CorruptSaveState, g.LoadState(blob))
}

func TestPressRequestsJoypadInterrupt(t *testing.T) {
	g, _ := New(blankROM(t))
	g.Interrupts.Enable = 1 << interrupts.JoypadFlag
	g.MMU.Write(0xFF00, 0x1F) // clears bit 5: selects the face-button group

	g.Press(joypad.ButtonA)
	require.True(t, g.Interrupts.Pending())
}

func TestWithPreferDMGForcesNativeDMG(t *testing.T) {
	g, result := New(blankROM(t), WithPreferModel(PreferDMG))
	require.Equal(t, SuccessROM, result)
	require.Equal(t, systemDMG, g.system)
}
