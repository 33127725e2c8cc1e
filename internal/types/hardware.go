package types

import "fmt"

// HardwareRegisters is the per-instance table of memory-mapped I/O
// registers at 0xFF00-0xFF7F and 0xFFFF. It is owned by the MMU rather
// than a package-level global so that more than one GBCore can exist in
// the same process without registers leaking between them.
type HardwareRegisters [0x80]*Hardware

// Read returns the value of the register mapped to address, or 0xFF if
// nothing is mapped there (matching the real bus's open-collector pull-up
// behaviour on an unmapped read).
func (h *HardwareRegisters) Read(address uint16) uint8 {
	reg := h[address&0x007F]
	if reg == nil {
		return 0xFF
	}
	return reg.Read()
}

// Write writes value to the register mapped to address. Writes to
// unmapped addresses are silently dropped.
func (h *HardwareRegisters) Write(address uint16, value uint8) {
	reg := h[address&0x007F]
	if reg == nil {
		return
	}
	reg.Write(value)
}

// Hardware is a single memory-mapped register backed by getter/setter
// closures owned by whichever component implements it (PPU, timer,
// APU channel, ...).
type Hardware struct {
	address      HardwareAddress
	set          func(v uint8)
	get          func() uint8
	writeHandler WriteHandler
}

// HardwareOpt configures a Hardware register at registration time.
type HardwareOpt func(*Hardware)

// RegisterHardware binds address to the given set/get pair on h. A nil
// set or get makes a write or read of the register panic; pass NoWrite or
// NoRead for a read-only or write-only register instead.
func (h *HardwareRegisters) RegisterHardware(address HardwareAddress, set func(v uint8), get func() uint8, opts ...HardwareOpt) {
	reg := &Hardware{address: address, set: set, get: get}
	for _, opt := range opts {
		opt(reg)
	}
	h[address&0x007F] = reg
}

// WithWriteHandler wraps the register's set call with writeHandler,
// letting a component intercept the write before/instead of applying it
// directly. No register in this module is registered with a write
// handler; in particular STAT writes are applied directly, with no
// STAT-write quirk.
func WithWriteHandler(writeHandler func(writeFn func())) HardwareOpt {
	return func(h *Hardware) {
		h.writeHandler = writeHandler
	}
}

// WriteHandler wraps the deferred application of a register write.
type WriteHandler func(writeFn func())

func (h *Hardware) Read() uint8 {
	if h.get != nil {
		return h.get()
	}
	panic(fmt.Sprintf("hardware: no read function for address 0x%04X", h.address))
}

func (h *Hardware) Write(value uint8) {
	if h.set == nil {
		panic(fmt.Sprintf("hardware: no write function for address 0x%04X", h.address))
	}
	if h.writeHandler != nil {
		h.writeHandler(func() { h.set(value) })
		return
	}
	h.set(value)
}

// NoRead is a read function for write-only registers: reading one back
// always yields 0xFF.
func NoRead() uint8 {
	return 0xFF
}

// NoWrite is a write function for read-only registers: the write is
// accepted and discarded.
func NoWrite(v uint8) {}
