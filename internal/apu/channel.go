package apu

// channel is the state shared by all four sound-generating channels: a
// length counter, a DAC-gate, and the frequency timer that drives each
// channel's own waveform generator at its own rate.
type channel struct {
	enabled    bool
	dacEnabled bool

	lengthCounter        uint
	lengthCounterEnabled bool

	frequencyTimer uint16

	reloadFrequencyTimer func()
	stepWaveGeneration    func()
}

func newChannel() *channel {
	return &channel{}
}

func (c *channel) step() {
	c.frequencyTimer--
	if c.frequencyTimer == 0 {
		c.reloadFrequencyTimer()
		c.stepWaveGeneration()
	}
}

func (c *channel) isEnabled() bool {
	return c.enabled && c.dacEnabled
}

// lengthStep decrements the length counter on frame-sequencer steps
// 0, 2, 4 and 6; reaching zero disables the channel regardless of what
// the DAC is doing.
func (c *channel) lengthStep() {
	if c.lengthCounterEnabled && c.lengthCounter > 0 {
		c.lengthCounter--
		if c.lengthCounter == 0 {
			c.enabled = false
		}
	}
}

// volumeChannel adds envelope state to channel, shared by the two pulse
// channels and the noise channel (the wave channel has no envelope).
type volumeChannel struct {
	*channel

	startingVolume  uint8
	envelopeAddMode bool
	period          uint8

	volumeEnvelopeTimer uint8
	currentVolume       uint8
}

func newVolumeChannel(c *channel) *volumeChannel {
	return &volumeChannel{channel: c}
}

// volumeStep ticks the envelope on frame-sequencer step 7.
func (v *volumeChannel) volumeStep() {
	if v.period == 0 {
		return
	}
	if v.volumeEnvelopeTimer > 0 {
		v.volumeEnvelopeTimer--
	}
	if v.volumeEnvelopeTimer == 0 {
		v.volumeEnvelopeTimer = v.period
		if v.envelopeAddMode && v.currentVolume < 0xF {
			v.currentVolume++
		} else if !v.envelopeAddMode && v.currentVolume > 0 {
			v.currentVolume--
		}
	}
}

func (v *volumeChannel) setNRx2(val uint8) {
	v.startingVolume = val >> 4
	v.envelopeAddMode = val&0x08 != 0
	v.period = val & 0x7
	v.dacEnabled = val&0xF8 != 0
	if !v.dacEnabled {
		v.enabled = false
	}
}

func (v *volumeChannel) getNRx2() uint8 {
	b := (v.startingVolume << 4) | v.period
	if v.envelopeAddMode {
		b |= 0x08
	}
	return b
}

func (v *volumeChannel) initVolumeEnvelope() {
	v.volumeEnvelopeTimer = v.period
	v.currentVolume = v.startingVolume
}

// writeEnabled drops a register write unless the APU master switch
// (NR52 bit 7) is on.
func writeEnabled(a *APU, f func(v uint8)) func(v uint8) {
	return func(v uint8) {
		if a.enabled {
			f(v)
		}
	}
}
