package apu

import "github.com/pixeldrift/gbcore/internal/types"

// noiseChannel is the pseudo-random noise channel (NR41-NR44), driven by
// a 15-bit LFSR clocked at divisor<<shift T-cycles.
type noiseChannel struct {
	*volumeChannel

	lfsr uint16

	clockShift  uint8
	widthMode   bool
	divisorCode uint8
}

var noiseDivisors = [8]uint16{8, 16, 32, 48, 64, 80, 96, 112}

func newNoiseChannel(a *APU, regs *types.HardwareRegisters) *noiseChannel {
	c := &noiseChannel{lfsr: 0x7FFF}
	base := newChannel()
	base.stepWaveGeneration = func() {
		bit := (c.lfsr & 0x1) ^ ((c.lfsr >> 1) & 0x1)
		c.lfsr = (c.lfsr >> 1) | (bit << 14)
		if c.widthMode {
			c.lfsr &^= 1 << 6
			c.lfsr |= bit << 6
		}
	}
	base.reloadFrequencyTimer = func() {
		c.frequencyTimer = noiseDivisors[c.divisorCode] << c.clockShift
	}
	c.volumeChannel = newVolumeChannel(base)

	regs.RegisterHardware(types.NR41, func(v uint8) {
		c.lengthCounter = 0x40 - uint(v&0x3F)
	}, types.NoRead)
	regs.RegisterHardware(types.NR42, writeEnabled(a, c.setNRx2), c.getNRx2)
	regs.RegisterHardware(types.NR43, writeEnabled(a, func(v uint8) {
		c.clockShift = v >> 4
		c.widthMode = v&0x08 != 0
		c.divisorCode = v & 0x7
	}), func() uint8 {
		b := c.clockShift << 4
		if c.widthMode {
			b |= 0x08
		}
		return b | c.divisorCode
	})
	regs.RegisterHardware(types.NR44, writeEnabled(a, func(v uint8) {
		if a.firstHalfOfLengthPeriod && !c.lengthCounterEnabled && v&0x40 != 0 && c.lengthCounter > 0 {
			c.lengthCounter--
			if c.lengthCounter == 0 {
				c.enabled = false
			}
		}
		c.lengthCounterEnabled = v&0x40 != 0
		if v&0x80 != 0 {
			c.enabled = c.dacEnabled
			if c.lengthCounter == 0 {
				c.lengthCounter = 0x40
				if c.lengthCounterEnabled && a.firstHalfOfLengthPeriod {
					c.lengthCounter--
				}
			}
			c.reloadFrequencyTimer()
			c.initVolumeEnvelope()
			c.lfsr = 0x7FFF
		}
	}), func() uint8 {
		b := uint8(0)
		if c.lengthCounterEnabled {
			b |= 0x40
		}
		return b | 0xBF
	})

	return c
}

func (c *noiseChannel) amplitude() uint8 {
	if !c.isEnabled() || c.lfsr&0x1 != 0 {
		return 0
	}
	return c.currentVolume
}
