package apu

import "github.com/pixeldrift/gbcore/internal/types"

var dutyPatterns = [4][8]uint8{
	{0, 0, 0, 0, 0, 0, 0, 1},
	{1, 0, 0, 0, 0, 0, 0, 1},
	{1, 0, 0, 0, 0, 1, 1, 1},
	{0, 1, 1, 1, 1, 1, 1, 0},
}

// pulse1 is the sweep-capable square channel (NR10-NR14).
type pulse1 struct {
	*volumeChannel

	duty      uint8
	frequency uint16

	dutyPosition uint8

	sweepPeriod     uint8
	sweepNegate     bool
	sweepShift      uint8
	sweepTimer      uint8
	sweepShadow     uint16
	sweepEnabled    bool
	sweepHasNegated bool
}

func newPulse1(a *APU, regs *types.HardwareRegisters) *pulse1 {
	c := &pulse1{}
	base := newChannel()
	base.stepWaveGeneration = func() { c.dutyPosition = (c.dutyPosition + 1) & 0x7 }
	base.reloadFrequencyTimer = func() { c.frequencyTimer = (2048 - c.frequency) * 4 }
	c.volumeChannel = newVolumeChannel(base)

	regs.RegisterHardware(types.NR10, writeEnabled(a, func(v uint8) {
		c.sweepPeriod = (v >> 4) & 0x7
		c.sweepNegate = v&0x08 != 0
		c.sweepShift = v & 0x7
		if !c.sweepNegate && c.sweepHasNegated {
			c.enabled = false
		}
	}), func() uint8 {
		b := (c.sweepPeriod << 4) | c.sweepShift
		if c.sweepNegate {
			b |= 0x08
		}
		return b | 0x80
	})
	regs.RegisterHardware(types.NR11, func(v uint8) {
		if a.enabled {
			c.duty = v >> 6
		}
		c.lengthCounter = 0x40 - uint(v&0x3F)
	}, func() uint8 {
		if a.enabled {
			return (c.duty << 6) | 0x3F
		}
		return 0x3F
	})
	regs.RegisterHardware(types.NR12, writeEnabled(a, c.setNRx2), c.getNRx2)
	regs.RegisterHardware(types.NR13, writeEnabled(a, func(v uint8) {
		c.frequency = (c.frequency & 0x700) | uint16(v)
	}), types.NoRead)
	regs.RegisterHardware(types.NR14, writeEnabled(a, func(v uint8) {
		c.frequency = (c.frequency & 0x00FF) | (uint16(v&0x07) << 8)
		c.setLengthEnable(a, v&0x40 != 0)
		if v&0x80 != 0 {
			c.trigger(a)
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

func (c *pulse1) setLengthEnable(a *APU, enable bool) {
	if a.firstHalfOfLengthPeriod && !c.lengthCounterEnabled && enable && c.lengthCounter > 0 {
		c.lengthCounter--
		if c.lengthCounter == 0 {
			c.enabled = false
		}
	}
	c.lengthCounterEnabled = enable
}

func (c *pulse1) trigger(a *APU) {
	c.enabled = c.dacEnabled
	if c.lengthCounter == 0 {
		c.lengthCounter = 0x40
		if c.lengthCounterEnabled && a.firstHalfOfLengthPeriod {
			c.lengthCounter--
		}
	}
	c.reloadFrequencyTimer()
	c.initVolumeEnvelope()

	c.sweepShadow = c.frequency
	if c.sweepPeriod > 0 {
		c.sweepTimer = c.sweepPeriod
	} else {
		c.sweepTimer = 8
	}
	c.sweepEnabled = c.sweepPeriod > 0 || c.sweepShift > 0
	c.sweepHasNegated = false
	if c.sweepShift > 0 {
		c.sweepCalculate()
	}
}

func (c *pulse1) sweepClock() {
	if c.sweepTimer > 0 {
		c.sweepTimer--
	}
	if c.sweepTimer != 0 {
		return
	}
	if c.sweepPeriod > 0 {
		c.sweepTimer = c.sweepPeriod
	} else {
		c.sweepTimer = 8
	}
	if !c.sweepEnabled || c.sweepPeriod == 0 {
		return
	}
	next := c.sweepCalculate()
	if next <= 0x7FF && c.sweepShift > 0 {
		c.sweepShadow = next
		c.frequency = next
		c.sweepCalculate()
	}
}

func (c *pulse1) sweepCalculate() uint16 {
	next := c.sweepShadow >> c.sweepShift
	if c.sweepNegate {
		next = c.sweepShadow - next
	} else {
		next = c.sweepShadow + next
	}
	if next > 0x7FF {
		c.enabled = false
	}
	c.sweepHasNegated = c.sweepNegate
	return next
}

func (c *pulse1) amplitude() uint8 {
	if !c.isEnabled() || dutyPatterns[c.duty][c.dutyPosition] == 0 {
		return 0
	}
	return c.currentVolume
}

// pulse2 is the plain square channel (NR21-NR24): same waveform
// generation as pulse1, no frequency sweep.
type pulse2 struct {
	*volumeChannel

	duty      uint8
	frequency uint16

	dutyPosition uint8
}

func newPulse2(a *APU, regs *types.HardwareRegisters) *pulse2 {
	c := &pulse2{}
	base := newChannel()
	base.stepWaveGeneration = func() { c.dutyPosition = (c.dutyPosition + 1) & 0x7 }
	base.reloadFrequencyTimer = func() { c.frequencyTimer = (2048 - c.frequency) * 4 }
	c.volumeChannel = newVolumeChannel(base)

	regs.RegisterHardware(types.NR21, func(v uint8) {
		if a.enabled {
			c.duty = v >> 6
		}
		c.lengthCounter = 0x40 - uint(v&0x3F)
	}, func() uint8 {
		if a.enabled {
			return (c.duty << 6) | 0x3F
		}
		return 0x3F
	})
	regs.RegisterHardware(types.NR22, writeEnabled(a, c.setNRx2), c.getNRx2)
	regs.RegisterHardware(types.NR23, writeEnabled(a, func(v uint8) {
		c.frequency = (c.frequency & 0x700) | uint16(v)
	}), types.NoRead)
	regs.RegisterHardware(types.NR24, writeEnabled(a, func(v uint8) {
		c.frequency = (c.frequency & 0x00FF) | (uint16(v&0x07) << 8)
		c.setLengthEnable(a, v&0x40 != 0)
		if v&0x80 != 0 {
			c.trigger(a)
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

func (c *pulse2) setLengthEnable(a *APU, enable bool) {
	if a.firstHalfOfLengthPeriod && !c.lengthCounterEnabled && enable && c.lengthCounter > 0 {
		c.lengthCounter--
		if c.lengthCounter == 0 {
			c.enabled = false
		}
	}
	c.lengthCounterEnabled = enable
}

func (c *pulse2) trigger(a *APU) {
	c.enabled = c.dacEnabled
	if c.lengthCounter == 0 {
		c.lengthCounter = 0x40
		if c.lengthCounterEnabled && a.firstHalfOfLengthPeriod {
			c.lengthCounter--
		}
	}
	c.reloadFrequencyTimer()
	c.initVolumeEnvelope()
}

func (c *pulse2) amplitude() uint8 {
	if !c.isEnabled() || dutyPatterns[c.duty][c.dutyPosition] == 0 {
		return 0
	}
	return c.currentVolume
}
