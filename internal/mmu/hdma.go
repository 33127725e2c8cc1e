package mmu

import (
	"github.com/pixeldrift/gbcore/internal/state"
	"github.com/pixeldrift/gbcore/internal/types"
)

// hdmaMode selects between the two CGB VRAM-DMA transfer styles.
type hdmaMode uint8

const (
	gdmaMode hdmaMode = iota
	hdmaModeHBlank
)

// hdma implements the CGB HDMA1-5 registers (0xFF51-0xFF55). GDMA copies
// one 16-byte block on every Tick (one per M-cycle) until the whole
// length is done, without waiting for HBlank; HBlank-mode copies one
// 16-byte block per HBlank period, gated by the PPU calling SetHBlank.
type hdma struct {
	mode         hdmaMode
	transferring bool
	source       uint16
	destination  uint16
	blocks       uint8
	hblankReady  bool
}

func newHDMA(regs *types.HardwareRegisters) *hdma {
	h := &hdma{}
	regs.RegisterHardware(types.HDMA1, func(v uint8) { h.source = (h.source & 0x00F0) | uint16(v)<<8 }, types.NoRead)
	regs.RegisterHardware(types.HDMA2, func(v uint8) { h.source = (h.source & 0xFF00) | uint16(v&0xF0) }, types.NoRead)
	regs.RegisterHardware(types.HDMA3, func(v uint8) {
		h.destination = (h.destination & 0x00F0) | uint16(v&0x1F)<<8
	}, types.NoRead)
	regs.RegisterHardware(types.HDMA4, func(v uint8) { h.destination = (h.destination & 0xFF00) | uint16(v&0xF0) }, types.NoRead)
	regs.RegisterHardware(types.HDMA5, h.writeHDMA5, h.readHDMA5)
	return h
}

func (h *hdma) readHDMA5() uint8 {
	if !h.transferring {
		return 0xFF
	}
	return h.blocks - 1
}

func (h *hdma) writeHDMA5(v uint8) {
	if h.transferring && v&0x80 == 0 {
		h.transferring = false
		return
	}
	h.blocks = (v & 0x7F) + 1
	h.transferring = true
	if v&0x80 != 0 {
		h.mode = hdmaModeHBlank
	} else {
		h.mode = gdmaMode
	}
	h.hblankReady = h.mode == gdmaMode
}

// SetHBlank is called by the PPU on entry to HBlank, permitting one more
// 16-byte block to transfer in HBlank mode.
func (h *hdma) SetHBlank() {
	if h.mode == hdmaModeHBlank {
		h.hblankReady = true
	}
}

// Tick drains one transfer block when active. In GDMA mode the whole
// transfer completes across consecutive ticks without waiting on HBlank;
// in HBlank mode at most one block drains per HBlank window.
func (h *hdma) Tick(read func(uint16) uint8, write func(uint16, uint8)) {
	if !h.transferring || !h.hblankReady {
		return
	}
	for i := uint16(0); i < 16; i++ {
		write(0x8000+h.destination+i, read(h.source+i))
	}
	h.source += 16
	h.destination += 16
	h.blocks--
	if h.mode == hdmaModeHBlank {
		h.hblankReady = false
	}
	if h.blocks == 0 {
		h.transferring = false
	}
}

func (h *hdma) Save(s *state.State) {
	s.Write8(uint8(h.mode))
	s.WriteBool(h.transferring)
	s.Write16(h.source)
	s.Write16(h.destination)
	s.Write8(h.blocks)
	s.WriteBool(h.hblankReady)
}

func (h *hdma) Load(s *state.State) {
	h.mode = hdmaMode(s.Read8())
	h.transferring = s.ReadBool()
	h.source = s.Read16()
	h.destination = s.Read16()
	h.blocks = s.Read8()
	h.hblankReady = s.ReadBool()
}
