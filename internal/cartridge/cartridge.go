package cartridge

import (
	"fmt"

	"github.com/cespare/xxhash"
	"github.com/pixeldrift/gbcore/internal/state"
)

// LoadError is the sum type returned from cartridge/battery load entry
// points; internal per-cycle reads and writes never return an error,
// only ROM and save-file ingestion does.
type LoadError uint8

const (
	LoadOK LoadError = iota
	InvalidROM
	InvalidBattery
)

func (e LoadError) Error() string {
	switch e {
	case InvalidROM:
		return "cartridge: invalid ROM image"
	case InvalidBattery:
		return "cartridge: battery save does not match cartridge RAM size"
	default:
		return "cartridge: ok"
	}
}

// Cartridge owns the parsed header and the mapper it selected, and
// provides battery persistence with an integrity pre-check distinct from
// the save-state FNV hash.
type Cartridge struct {
	Header Header
	mapper Mapper
	rom    []byte
}

// Load parses rom's header and constructs the matching Mapper. An
// initial battery image (possibly nil) is validated and copied into the
// mapper's RAM before being handed back for play.
func Load(rom []byte, battery []byte) (*Cartridge, error) {
	if len(rom) < 0x150 {
		return nil, InvalidROM
	}
	header, err := ParseHeader(rom)
	if err != nil {
		return nil, InvalidROM
	}

	c := &Cartridge{Header: header, rom: rom}
	c.mapper = New(header, rom, nil)

	if len(battery) > 0 {
		if err := c.LoadBattery(battery); err != nil {
			return c, err
		}
	}
	return c, nil
}

// Read/Write forward directly to the mapper; the MMU is the only caller.
func (c *Cartridge) Read(address uint16) uint8    { return c.mapper.Read(address) }
func (c *Cartridge) Write(address uint16, v uint8) { c.mapper.Write(address, v) }

// Tick advances the cartridge's RTC, if it has one.
func (c *Cartridge) Tick(tCycles int) {
	switch m := c.mapper.(type) {
	case *mbc3:
		m.Tick(tCycles)
	case *huc3:
		m.Tick(tCycles)
	}
}

// RAM exposes the mapper's battery-backed RAM for saving.
func (c *Cartridge) RAM() []byte { return c.mapper.RAM() }

// batteryHash is the fast pre-check used to reject a truncated `.sav`
// file before it's copied into SRAM, distinct from the FNV-1a-64 hash
// mandated for the save-state container itself.
func batteryHash(data []byte) uint64 {
	return xxhash.Sum64(data)
}

// SaveBattery returns the RAM payload plus an xxhash trailer used by
// LoadBattery to detect truncation.
func (c *Cartridge) SaveBattery() []byte {
	ram := c.mapper.RAM()
	out := make([]byte, len(ram)+8)
	copy(out, ram)
	h := batteryHash(ram)
	for i := 0; i < 8; i++ {
		out[len(ram)+i] = byte(h >> (8 * i))
	}
	return out
}

// LoadBattery validates and installs a battery payload produced by
// SaveBattery. A length or hash mismatch returns InvalidBattery rather
// than copying a truncated/corrupt image into SRAM.
func (c *Cartridge) LoadBattery(data []byte) error {
	ram := c.mapper.RAM()
	if len(data) != len(ram)+8 {
		return InvalidBattery
	}
	payload := data[:len(ram)]
	var want uint64
	for i := 0; i < 8; i++ {
		want |= uint64(data[len(ram)+i]) << (8 * i)
	}
	if batteryHash(payload) != want {
		return InvalidBattery
	}
	copy(ram, payload)
	return nil
}

func (c *Cartridge) Save(s *state.State) {
	c.mapper.Save(s)
}

func (c *Cartridge) Load(s *state.State) {
	c.mapper.Load(s)
}

func (c *Cartridge) String() string {
	return fmt.Sprintf("%s", c.Header)
}
