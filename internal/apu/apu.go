// Package apu implements the Game Boy's four-channel audio processing
// unit: two pulse channels, a programmable wave channel and a noise
// channel, mixed down through a 512 Hz frame sequencer into a pull-based
// stereo sample buffer. It owns no audio device — callers drain
// generated samples via ReadSamples, decoupling the core from any
// particular host audio backend.
package apu

import (
	"io"

	"github.com/pixeldrift/gbcore/internal/state"
	"github.com/pixeldrift/gbcore/internal/types"
)

const (
	cpuFrequency = 4194304

	// SampleRate is the rate at which ReadSamples produces interleaved
	// left/right i16 frames.
	SampleRate = 44100

	// frameSequencerPeriod is the number of T-cycles between 512 Hz
	// frame-sequencer ticks (4194304 / 512).
	frameSequencerPeriod = 8192

	// maxBufferedFrames bounds the pull buffer so a host that stops
	// draining samples doesn't grow the queue without limit.
	maxBufferedFrames = SampleRate / 2
)

// APU is the Game Boy's audio processing unit.
type APU struct {
	regs  *types.HardwareRegisters
	model types.Model

	enabled bool

	pulse1 *pulse1
	pulse2 *pulse2
	wave   *waveChannel
	noise  *noiseChannel

	frameSeqCounter         int
	frameSeqStep            uint8
	firstHalfOfLengthPeriod bool

	sampleAccum float64

	volumeLeft, volumeRight uint8
	vinLeft, vinRight       bool
	leftEnable, rightEnable [4]bool

	samples []int16

	recorder *wavRecorder
}

// New constructs an APU and binds its registers (NR10-NR52, wave RAM) into
// regs. model is stored on the APU; no register or length-counter
// behaviour depends on it.
func New(regs *types.HardwareRegisters, model types.Model) *APU {
	a := &APU{
		regs:            regs,
		model:           model,
		frameSeqCounter: frameSequencerPeriod,
		samples:         make([]int16, 0, maxBufferedFrames*2),
	}

	a.pulse1 = newPulse1(a, regs)
	a.pulse2 = newPulse2(a, regs)
	a.wave = newWaveChannel(a, regs)
	a.noise = newNoiseChannel(a, regs)

	regs.RegisterHardware(0xFF15, types.NoWrite, types.NoRead)
	regs.RegisterHardware(0xFF1F, types.NoWrite, types.NoRead)

	regs.RegisterHardware(types.NR50, func(v uint8) {
		if !a.enabled {
			return
		}
		a.volumeRight = v & 0x7
		a.volumeLeft = (v >> 4) & 0x7
		a.vinRight = v&0x08 != 0
		a.vinLeft = v&0x80 != 0
	}, func() uint8 {
		b := a.volumeRight | a.volumeLeft<<4
		if a.vinRight {
			b |= 0x08
		}
		if a.vinLeft {
			b |= 0x80
		}
		return b
	})
	regs.RegisterHardware(types.NR51, func(v uint8) {
		if !a.enabled {
			return
		}
		for i := 0; i < 4; i++ {
			a.rightEnable[i] = v&(1<<uint(i)) != 0
			a.leftEnable[i] = v&(1<<uint(i+4)) != 0
		}
	}, func() uint8 {
		b := uint8(0)
		for i := 0; i < 4; i++ {
			if a.rightEnable[i] {
				b |= 1 << uint(i)
			}
			if a.leftEnable[i] {
				b |= 1 << uint(i+4)
			}
		}
		return b
	})
	regs.RegisterHardware(types.NR52, func(v uint8) {
		turnOn := v&0x80 != 0
		if !turnOn && a.enabled {
			for addr := types.NR10; addr < types.NR52; addr++ {
				regs.Write(addr, 0)
			}
			a.enabled = false
		} else if turnOn && !a.enabled {
			a.enabled = true
			a.frameSeqStep = 0
		}
	}, func() uint8 {
		b := uint8(0x70)
		if a.enabled {
			b |= 0x80
		}
		if a.pulse1.enabled {
			b |= 0x01
		}
		if a.pulse2.enabled {
			b |= 0x02
		}
		if a.wave.enabled {
			b |= 0x04
		}
		if a.noise.enabled {
			b |= 0x08
		}
		return b
	})

	return a
}

// Tick advances the APU by tCycles T-cycles, stepping the frame
// sequencer, all four channel waveform generators, and producing any
// samples due at the 44.1kHz output rate.
func (a *APU) Tick(tCycles int) {
	for i := 0; i < tCycles; i++ {
		a.tickOne()
	}
}

func (a *APU) tickOne() {
	if a.frameSeqCounter--; a.frameSeqCounter <= 0 {
		a.frameSeqCounter += frameSequencerPeriod
		a.firstHalfOfLengthPeriod = a.frameSeqStep&0x1 == 0

		switch a.frameSeqStep {
		case 0, 2, 4, 6:
			a.pulse1.lengthStep()
			a.pulse2.lengthStep()
			a.wave.lengthStep()
			a.noise.lengthStep()
		}
		if a.frameSeqStep == 2 || a.frameSeqStep == 6 {
			a.pulse1.sweepClock()
		}
		if a.frameSeqStep == 7 {
			a.pulse1.volumeStep()
			a.pulse2.volumeStep()
			a.noise.volumeStep()
		}
		a.frameSeqStep = (a.frameSeqStep + 1) & 7
	}

	a.pulse1.step()
	a.pulse2.step()
	a.wave.step()
	a.noise.step()

	a.sampleAccum += 1
	const tCyclesPerSample = float64(cpuFrequency) / float64(SampleRate)
	if a.sampleAccum >= tCyclesPerSample {
		a.sampleAccum -= tCyclesPerSample
		a.pushSample()
	}
}

// pushSample mixes the current channel outputs into one stereo i16
// frame, per §4.4: each channel's [0..15] output normalizes to [0..1],
// the four channels sum per side, are scaled by the NR50 master volume
// gain, and finally by INT16_MAX/4 to stay within range with all four
// channels near full scale.
func (a *APU) pushSample() {
	amplitudes := [4]uint8{
		a.pulse1.amplitude(),
		a.pulse2.amplitude(),
		a.wave.amplitude(),
		a.noise.amplitude(),
	}

	var leftSum, rightSum float64
	for i, amp := range amplitudes {
		normalized := float64(amp) / 15.0
		if a.leftEnable[i] {
			leftSum += normalized
		}
		if a.rightEnable[i] {
			rightSum += normalized
		}
	}

	leftGain := float64(a.volumeLeft+1) / 8.0
	rightGain := float64(a.volumeRight+1) / 8.0

	const scale = 32767.0 / 4.0
	left := int16(leftSum * leftGain * scale)
	right := int16(rightSum * rightGain * scale)

	if len(a.samples) < maxBufferedFrames*2 {
		a.samples = append(a.samples, left, right)
	}

	if a.recorder != nil {
		_ = a.recorder.writeFrame(left, right)
	}
}

// ReadSamples drains up to len(buf) interleaved left/right i16 samples
// into buf, returning the count actually written. The host calls this
// from its own audio pump; unread samples accumulate up to
// maxBufferedFrames worth of audio before new samples are dropped.
func (a *APU) ReadSamples(buf []int16) int {
	n := copy(buf, a.samples)
	a.samples = a.samples[:copy(a.samples, a.samples[n:])]
	return n
}

// StartRecording begins writing a PCM RIFF/WAVE capture of the mixed
// output to w; StopRecording back-patches the header's length fields.
func (a *APU) StartRecording(w io.WriteSeeker) error {
	rec, err := newWAVRecorder(w)
	if err != nil {
		return err
	}
	a.recorder = rec
	return nil
}

// StopRecording finalizes and detaches the active WAV recorder, if any.
func (a *APU) StopRecording() error {
	if a.recorder == nil {
		return nil
	}
	err := a.recorder.close()
	a.recorder = nil
	return err
}

func (a *APU) Save(s *state.State) {
	s.WriteBool(a.enabled)
	s.Write16(uint16(a.frameSeqCounter))
	s.Write8(a.frameSeqStep)
	s.Write8(a.volumeLeft)
	s.Write8(a.volumeRight)
	s.WriteBool(a.vinLeft)
	s.WriteBool(a.vinRight)
	for i := 0; i < 4; i++ {
		s.WriteBool(a.leftEnable[i])
		s.WriteBool(a.rightEnable[i])
	}

	s.WriteBool(a.pulse1.enabled)
	s.WriteBool(a.pulse1.dacEnabled)
	s.Write16(uint16(a.pulse1.lengthCounter))
	s.WriteBool(a.pulse1.lengthCounterEnabled)
	s.Write16(a.pulse1.frequencyTimer)
	s.Write8(a.pulse1.duty)
	s.Write8(a.pulse1.dutyPosition)
	s.Write16(a.pulse1.frequency)
	s.Write8(a.pulse1.currentVolume)
	s.Write8(a.pulse1.volumeEnvelopeTimer)
	s.Write8(a.pulse1.sweepTimer)
	s.Write16(a.pulse1.sweepShadow)
	s.WriteBool(a.pulse1.sweepEnabled)

	s.WriteBool(a.pulse2.enabled)
	s.WriteBool(a.pulse2.dacEnabled)
	s.Write16(uint16(a.pulse2.lengthCounter))
	s.WriteBool(a.pulse2.lengthCounterEnabled)
	s.Write16(a.pulse2.frequencyTimer)
	s.Write8(a.pulse2.duty)
	s.Write8(a.pulse2.dutyPosition)
	s.Write16(a.pulse2.frequency)
	s.Write8(a.pulse2.currentVolume)
	s.Write8(a.pulse2.volumeEnvelopeTimer)

	s.WriteBool(a.wave.enabled)
	s.WriteBool(a.wave.dacEnabled)
	s.Write16(uint16(a.wave.lengthCounter))
	s.WriteBool(a.wave.lengthCounterEnabled)
	s.Write16(a.wave.frequencyTimer)
	s.WriteData(a.wave.waveRAM[:])
	s.Write8(a.wave.samplePos)
	s.Write8(a.wave.sampleBuffer)
	s.Write8(a.wave.volumeShift)
	s.Write16(a.wave.frequency)

	s.WriteBool(a.noise.enabled)
	s.WriteBool(a.noise.dacEnabled)
	s.Write16(uint16(a.noise.lengthCounter))
	s.WriteBool(a.noise.lengthCounterEnabled)
	s.Write16(a.noise.frequencyTimer)
	s.Write16(a.noise.lfsr)
	s.Write8(a.noise.clockShift)
	s.WriteBool(a.noise.widthMode)
	s.Write8(a.noise.divisorCode)
	s.Write8(a.noise.currentVolume)
	s.Write8(a.noise.volumeEnvelopeTimer)
}

func (a *APU) Load(s *state.State) {
	a.enabled = s.ReadBool()
	a.frameSeqCounter = int(s.Read16())
	a.frameSeqStep = s.Read8()
	a.volumeLeft = s.Read8()
	a.volumeRight = s.Read8()
	a.vinLeft = s.ReadBool()
	a.vinRight = s.ReadBool()
	for i := 0; i < 4; i++ {
		a.leftEnable[i] = s.ReadBool()
		a.rightEnable[i] = s.ReadBool()
	}

	a.pulse1.enabled = s.ReadBool()
	a.pulse1.dacEnabled = s.ReadBool()
	a.pulse1.lengthCounter = uint(s.Read16())
	a.pulse1.lengthCounterEnabled = s.ReadBool()
	a.pulse1.frequencyTimer = s.Read16()
	a.pulse1.duty = s.Read8()
	a.pulse1.dutyPosition = s.Read8()
	a.pulse1.frequency = s.Read16()
	a.pulse1.currentVolume = s.Read8()
	a.pulse1.volumeEnvelopeTimer = s.Read8()
	a.pulse1.sweepTimer = s.Read8()
	a.pulse1.sweepShadow = s.Read16()
	a.pulse1.sweepEnabled = s.ReadBool()

	a.pulse2.enabled = s.ReadBool()
	a.pulse2.dacEnabled = s.ReadBool()
	a.pulse2.lengthCounter = uint(s.Read16())
	a.pulse2.lengthCounterEnabled = s.ReadBool()
	a.pulse2.frequencyTimer = s.Read16()
	a.pulse2.duty = s.Read8()
	a.pulse2.dutyPosition = s.Read8()
	a.pulse2.frequency = s.Read16()
	a.pulse2.currentVolume = s.Read8()
	a.pulse2.volumeEnvelopeTimer = s.Read8()

	a.wave.enabled = s.ReadBool()
	a.wave.dacEnabled = s.ReadBool()
	a.wave.lengthCounter = uint(s.Read16())
	a.wave.lengthCounterEnabled = s.ReadBool()
	a.wave.frequencyTimer = s.Read16()
	s.ReadData(a.wave.waveRAM[:])
	a.wave.samplePos = s.Read8()
	a.wave.sampleBuffer = s.Read8()
	a.wave.volumeShift = s.Read8()
	a.wave.frequency = s.Read16()

	a.noise.enabled = s.ReadBool()
	a.noise.dacEnabled = s.ReadBool()
	a.noise.lengthCounter = uint(s.Read16())
	a.noise.lengthCounterEnabled = s.ReadBool()
	a.noise.frequencyTimer = s.Read16()
	a.noise.lfsr = s.Read16()
	a.noise.clockShift = s.Read8()
	a.noise.widthMode = s.ReadBool()
	a.noise.divisorCode = s.Read8()
	a.noise.currentVolume = s.Read8()
	a.noise.volumeEnvelopeTimer = s.Read8()
}
