// Package cartridge parses ROM headers and implements the mapper family
// (plain ROM, MBC1, MBC2, MBC3+RTC, MBC5, HuC1, HuC3+RTC) that decodes
// CPU accesses to 0x0000-0x7FFF and 0xA000-0xBFFF into bank-switched ROM
// and battery-backed RAM.
package cartridge

import "fmt"

// CGBSupport is the cartridge's declared Game Boy Color compatibility,
// read from the header byte at 0x0143.
type CGBSupport uint8

const (
	DMGOnly CGBSupport = iota
	CGBSupported
	CGBOnly
)

// Type is the raw cartridge-type byte at header offset 0x0147, identifying
// which mapper family (if any) the cartridge uses.
type Type uint8

const (
	ROM               Type = 0x00
	MBC1              Type = 0x01
	MBC1RAM           Type = 0x02
	MBC1RAMBATT       Type = 0x03
	MBC2              Type = 0x05
	MBC2BATT          Type = 0x06
	ROMRAM            Type = 0x08
	ROMRAMBATT        Type = 0x09
	MMM01             Type = 0x0B
	MMM01RAM          Type = 0x0C
	MMM01RAMBATT      Type = 0x0D
	MBC3TIMERBATT     Type = 0x0F
	MBC3TIMERRAMBATT  Type = 0x10
	MBC3              Type = 0x11
	MBC3RAM           Type = 0x12
	MBC3RAMBATT       Type = 0x13
	MBC5              Type = 0x19
	MBC5RAM           Type = 0x1A
	MBC5RAMBATT       Type = 0x1B
	MBC5RUMBLE        Type = 0x1C
	MBC5RUMBLERAM     Type = 0x1D
	MBC5RUMBLERAMBATT Type = 0x1E
	POCKETCAMERA      Type = 0x1F
	HUDSONHUC3        Type = 0xFE
	HUDSONHUC1        Type = 0xFF
)

// HasBattery reports whether this cartridge type persists RAM/RTC across
// power cycles.
func (t Type) HasBattery() bool {
	switch t {
	case MBC1RAMBATT, MBC2BATT, ROMRAMBATT, MMM01RAMBATT,
		MBC3TIMERBATT, MBC3TIMERRAMBATT, MBC3RAMBATT,
		MBC5RAMBATT, MBC5RUMBLERAMBATT, HUDSONHUC1, HUDSONHUC3:
		return true
	}
	return false
}

// HasRTC reports whether this cartridge type carries a real-time clock.
func (t Type) HasRTC() bool {
	switch t {
	case MBC3TIMERBATT, MBC3TIMERRAMBATT, HUDSONHUC3:
		return true
	}
	return false
}

var ramSizeByCode = map[uint8]int{
	0x00: 0,
	0x01: 2 * 1024, // listed in some docs, unused by licensed titles
	0x02: 8 * 1024,
	0x03: 32 * 1024,
	0x04: 128 * 1024,
	0x05: 64 * 1024,
}

// Header is the parsed cartridge header at ROM offset 0x0100-0x014F.
type Header struct {
	Title            string
	ManufacturerCode string
	CGBSupport       CGBSupport
	NewLicenseeCode  string
	SGBFlag          bool
	CartridgeType    Type
	ROMSize          int
	RAMSize          int
	CountryCode      uint8
	OldLicenseeCode  uint8
	MaskROMVersion   uint8
	HeaderChecksum   uint8
	GlobalChecksum   uint16
}

// ParseHeader parses the 0x150-byte header out of a full ROM image. rom
// must be at least 0x150 bytes long.
func ParseHeader(rom []byte) (Header, error) {
	if len(rom) < 0x150 {
		return Header{}, fmt.Errorf("cartridge: ROM too small to contain a header (%d bytes)", len(rom))
	}
	h := Header{}

	switch rom[0x143] {
	case 0x80:
		h.CGBSupport = CGBSupported
	case 0xC0:
		h.CGBSupport = CGBOnly
	default:
		h.CGBSupport = DMGOnly
	}

	if h.CGBSupport == DMGOnly {
		h.Title = trimNulls(rom[0x134:0x144])
	} else {
		h.Title = trimNulls(rom[0x134:0x143])
	}
	h.ManufacturerCode = trimNulls(rom[0x13F:0x143])
	h.NewLicenseeCode = string(rom[0x144:0x146])
	h.SGBFlag = rom[0x146] == 0x03
	h.CartridgeType = Type(rom[0x147])
	h.ROMSize = (32 * 1024) << rom[0x148]
	h.RAMSize = ramSizeByCode[rom[0x149]]
	h.CountryCode = rom[0x14A]
	h.OldLicenseeCode = rom[0x14B]
	h.MaskROMVersion = rom[0x14C]
	h.HeaderChecksum = rom[0x14D]
	h.GlobalChecksum = uint16(rom[0x14E])<<8 | uint16(rom[0x14F])

	// MBC2 carries its own fixed 512x4-bit RAM regardless of the RAM-size
	// byte, which is conventionally zero for this cartridge type.
	if h.CartridgeType == MBC2 || h.CartridgeType == MBC2BATT {
		h.RAMSize = 512
	}

	return h, nil
}

// VerifyChecksum recomputes the header checksum (the same 8-bit running
// sum the boot ROM itself checks before releasing the CPU) and reports
// whether it matches the stored byte at 0x014D.
func VerifyChecksum(rom []byte) bool {
	if len(rom) < 0x150 {
		return false
	}
	var sum uint8
	for addr := 0x134; addr <= 0x14C; addr++ {
		sum = sum - rom[addr] - 1
	}
	return sum == rom[0x14D]
}

func (h Header) CGB() bool {
	return h.CGBSupport != DMGOnly
}

func (h Header) String() string {
	return fmt.Sprintf("%s (type=%#02x rom=%dKiB ram=%dKiB cgb=%v)",
		h.Title, uint8(h.CartridgeType), h.ROMSize/1024, h.RAMSize/1024, h.CGB())
}

func trimNulls(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
