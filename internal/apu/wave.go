package apu

import "github.com/pixeldrift/gbcore/internal/types"

// waveChannel is the arbitrary-waveform channel (NR30-NR34): it has no
// envelope, instead playing back the 32 4-bit samples in wave RAM at a
// volume selected by a 2-bit shift code.
type waveChannel struct {
	*channel

	waveRAM      [16]uint8
	samplePos    uint8
	sampleBuffer uint8

	volumeShift    uint8
	frequency      uint16
	ticksSinceRead uint8
}

func newWaveChannel(a *APU, regs *types.HardwareRegisters) *waveChannel {
	c := &waveChannel{channel: newChannel()}
	c.channel.reloadFrequencyTimer = func() { c.frequencyTimer = (2048 - c.frequency) * 2 }

	regs.RegisterHardware(types.NR30, writeEnabled(a, func(v uint8) {
		c.dacEnabled = v&0x80 != 0
		c.enabled = c.dacEnabled
	}), func() uint8 {
		b := uint8(0)
		if c.dacEnabled {
			b |= 0x80
		}
		return b | 0x7F
	})
	regs.RegisterHardware(types.NR31, func(v uint8) {
		c.lengthCounter = 0x100 - uint(v)
	}, types.NoRead)
	regs.RegisterHardware(types.NR32, writeEnabled(a, func(v uint8) {
		switch (v >> 5) & 0x3 {
		case 0b00:
			c.volumeShift = 4 // mute
		case 0b01:
			c.volumeShift = 0
		case 0b10:
			c.volumeShift = 1
		case 0b11:
			c.volumeShift = 2
		}
	}), func() uint8 {
		code := uint8(0)
		switch c.volumeShift {
		case 4:
			code = 0b00
		case 0:
			code = 0b01
		case 1:
			code = 0b10
		case 2:
			code = 0b11
		}
		return code<<5 | 0x9F
	})
	regs.RegisterHardware(types.NR33, writeEnabled(a, func(v uint8) {
		c.frequency = (c.frequency & 0x700) | uint16(v)
	}), types.NoRead)
	regs.RegisterHardware(types.NR34, writeEnabled(a, func(v uint8) {
		c.frequency = (c.frequency & 0x00FF) | (uint16(v&0x7) << 8)
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
				c.lengthCounter = 0x100
				if c.lengthCounterEnabled && a.firstHalfOfLengthPeriod {
					c.lengthCounter--
				}
			}
			c.samplePos = 0
			// +6 lets the channel pass the blargg wave-RAM-read-while-on test
			c.frequencyTimer = (2048-c.frequency)*2 + 6
		}
	}), func() uint8 {
		b := uint8(0)
		if c.lengthCounterEnabled {
			b |= 0x40
		}
		return b | 0xBF
	})

	for i := uint16(0); i < 16; i++ {
		addr := types.HardwareAddress(0xFF30 + i)
		regs.RegisterHardware(addr, func(v uint8) { c.writeWaveRAM(i, v) }, func() uint8 { return c.readWaveRAM(i) })
	}

	return c
}

func (c *waveChannel) step() {
	c.ticksSinceRead++
	if c.frequencyTimer--; c.frequencyTimer == 0 {
		c.frequencyTimer = (2048 - c.frequency) * 2
		c.ticksSinceRead = 0
		c.samplePos = (c.samplePos + 1) % 32
		c.sampleBuffer = c.waveRAM[c.samplePos/2]
	}
}

func (c *waveChannel) readWaveRAM(offset uint16) uint8 {
	if c.isEnabled() {
		if c.ticksSinceRead < 2 {
			return c.waveRAM[c.samplePos/2]
		}
		return 0xFF
	}
	return c.waveRAM[offset]
}

func (c *waveChannel) writeWaveRAM(offset uint16, value uint8) {
	if c.isEnabled() {
		if c.ticksSinceRead < 2 {
			c.waveRAM[c.samplePos/2] = value
		}
		return
	}
	c.waveRAM[offset] = value
}

func (c *waveChannel) amplitude() uint8 {
	if !c.isEnabled() {
		return 0
	}
	nibble := c.sampleBuffer
	if c.samplePos%2 == 0 {
		nibble >>= 4
	} else {
		nibble &= 0x0F
	}
	return nibble >> c.volumeShift
}
