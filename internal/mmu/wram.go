package mmu

import "github.com/pixeldrift/gbcore/internal/state"

// wram is the 8x4KiB work-RAM array: bank 0 fixed at 0xC000, banks 1-7
// switchable (CGB only, via SVBK) at 0xD000, with the usual 0xE000-0xFDFF
// echo mirroring both.
type wram struct {
	bank uint8
	raw  [8][0x1000]uint8
}

func newWRAM() *wram {
	return &wram{bank: 1}
}

func (w *wram) Read(addr uint16) uint8 {
	switch {
	case addr < 0xD000:
		return w.raw[0][addr&0xFFF]
	case addr < 0xE000:
		return w.raw[w.bank][addr&0xFFF]
	case addr < 0xF000:
		return w.raw[0][addr&0xFFF]
	default:
		return w.raw[w.bank][addr&0xFFF]
	}
}

func (w *wram) Write(addr uint16, v uint8) {
	switch {
	case addr < 0xD000:
		w.raw[0][addr&0xFFF] = v
	case addr < 0xE000:
		w.raw[w.bank][addr&0xFFF] = v
	case addr < 0xF000:
		w.raw[0][addr&0xFFF] = v
	default:
		w.raw[w.bank][addr&0xFFF] = v
	}
}

func (w *wram) Save(s *state.State) {
	s.Write8(w.bank)
	for i := range w.raw {
		s.WriteData(w.raw[i][:])
	}
}

func (w *wram) Load(s *state.State) {
	w.bank = s.Read8()
	for i := range w.raw {
		s.ReadData(w.raw[i][:])
	}
}
