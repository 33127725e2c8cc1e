package gbcore

import (
	"github.com/pixeldrift/gbcore/internal/types"
	"github.com/pixeldrift/gbcore/pkg/corelog"
)

// PreferModel resolves which hardware the core boots a cartridge on when
// its header doesn't force the choice (CGBOnly always boots CGB;
// DMGOnly carts are free to run DMG-native or under CGB compatibility
// colorization).
type PreferModel uint8

const (
	// PreferGBC runs a DMG-only cartridge under CGB hardware in
	// DMG-compatibility mode, colorized from the boot ROM's palette
	// table. This is the default.
	PreferGBC PreferModel = iota
	// PreferDMG runs a dual-mode (CGBSupported) cartridge on DMG
	// hardware instead of CGB.
	PreferDMG
	// ForceDMG always boots DMG hardware, regardless of the
	// cartridge's declared CGB support (CGBOnly carts can't actually
	// run this way on real hardware; ForceDMG is downgraded to the
	// cartridge's natural model in that case).
	ForceDMG
)

// Option configures a GBCore at construction time.
type Option func(*GBCore)

// WithBootROM installs a boot ROM image (256 bytes for DMG, 2304 bytes
// for CGB) to execute before cartridge code, instead of jumping
// straight to 0x100 with post-boot register values.
func WithBootROM(raw []byte) Option {
	return func(g *GBCore) { g.bootROM = raw }
}

// WithModel pins the hardware model instead of letting New derive it
// from the cartridge header and PreferModel.
func WithModel(m types.Model) Option {
	return func(g *GBCore) { g.forcedModel = m }
}

// WithLogger attaches a structured logger; the default is a no-op sink.
func WithLogger(l corelog.Logger) Option {
	return func(g *GBCore) { g.log = l }
}

// WithSaveRAM seeds the cartridge's battery-backed RAM from a payload
// previously produced by GBCore.SaveBattery.
func WithSaveRAM(data []byte) Option {
	return func(g *GBCore) { g.initialBattery = data }
}

// WithPreferModel changes how New resolves ambiguous (CGBSupported or
// DMGOnly) cartridges. Default is PreferGBC.
func WithPreferModel(p PreferModel) Option {
	return func(g *GBCore) { g.preferModel = p }
}

// WithROMPath records the host filesystem path of the ROM image, stored
// verbatim in save states so LoadState can report a path mismatch.
func WithROMPath(path string) Option {
	return func(g *GBCore) { g.romPath = path }
}
