// Package apu emulates the NES 2A03 sound hardware: two pulse
// channels, triangle, noise and DPCM, stepped at CPU clock rate and
// resampled to the output rate with an integer accumulator so that
// identical register write sequences always produce identical PCM.
//
// Reference:
//   https://www.nesdev.org/wiki/APU
package apu

type Machine int

const (
	MachineNTSC Machine = iota
	MachinePAL
)

// CPU base clocks, Hz.
const (
	BaseFreqNTSC = 1789773
	BaseFreqPAL  = 1662607
)

// Frame sequencer rate, Hz.
const frameCounterRate = 240

// Channel indices, also used by register snapshots.
const (
	ChannelPulse1 = iota
	ChannelPulse2
	ChannelTriangle
	ChannelNoise
	ChannelDPCM

	NumChannels
)

// RegisterImage is a copy of the $4000-$4017 register values plus
// the per-channel synthesis readouts, taken under the caller's lock
// for debug and visualization consumers.
type RegisterImage struct {
	Regs      [0x18]byte
	Frequency [NumChannels]float64
	Volume    [NumChannels]int
}

type APU struct {
	pulse1   pulse
	pulse2   pulse
	triangle triangle
	noise    noise
	dmc      dmc
	mixer    mixer

	clockRate  int
	sampleRate int

	cycle       uint64
	sampleAccum int
	frameAccum  int
	framePeriod int
	frameMode   byte
	frameStep   uint64

	regs [0x18]byte
	buf  []int16
}

func New() *APU {
	a := &APU{
		mixer:     newMixer(),
		clockRate: BaseFreqNTSC,
	}
	a.pulse1.channel = 1
	a.pulse2.channel = 2
	a.noise.shiftRegister = 1
	a.framePeriod = a.clockRate / frameCounterRate
	return a
}

// SetupSound sets the output sample rate and the machine clock.
// Must be called before Process; safe to call again to reconfigure.
func (a *APU) SetupSound(sampleRate int, machine Machine) {
	a.sampleRate = sampleRate
	a.ChangeMachineRate(machine)
}

// ChangeMachineRate switches the emulated CPU clock between NTSC
// and PAL.
func (a *APU) ChangeMachineRate(machine Machine) {
	pal := machine == MachinePAL
	if pal {
		a.clockRate = BaseFreqPAL
	} else {
		a.clockRate = BaseFreqNTSC
	}
	a.noise.pal = pal
	a.dmc.pal = pal
	a.framePeriod = a.clockRate / frameCounterRate
}

// SetChipLevel adjusts a chip group's output level, 0.0 to 1.0.
func (a *APU) SetChipLevel(chip ChipLevel, level float64) {
	a.mixer.setLevel(chip, level)
}

// SetupMixer reconfigures the output filters. bass and treble are
// cutoff frequencies in Hz, volume is 0..100.
func (a *APU) SetupMixer(bass, treble, volume int) {
	a.mixer.setup(bass, treble, volume, a.sampleRate)
}

// Reset restores power-on channel state. Mixer levels, filter
// settings and machine rates survive a reset.
func (a *APU) Reset() {
	a.pulse1 = pulse{channel: 1}
	a.pulse2 = pulse{channel: 2}
	pal := a.noise.pal
	a.triangle = triangle{}
	a.noise = noise{pal: pal, shiftRegister: 1}
	sample := a.dmc.sample
	a.dmc = dmc{pal: pal, sample: sample}
	a.cycle = 0
	a.sampleAccum = 0
	a.frameAccum = 0
	a.frameMode = 0
	a.frameStep = 0
	a.regs = [0x18]byte{}
	a.mixer.reset()
}

// Write writes an APU register, $4000-$4017.
func (a *APU) Write(address uint16, data byte) {
	if address >= 0x4000 && address < 0x4018 {
		a.regs[address-0x4000] = data
	}
	switch address {
	case 0x4000:
		a.pulse1.writeControl(data)
	case 0x4001:
		a.pulse1.writeSweep(data)
	case 0x4002:
		a.pulse1.writeTimerLow(data)
	case 0x4003:
		a.pulse1.writeTimerHigh(data)
	case 0x4004:
		a.pulse2.writeControl(data)
	case 0x4005:
		a.pulse2.writeSweep(data)
	case 0x4006:
		a.pulse2.writeTimerLow(data)
	case 0x4007:
		a.pulse2.writeTimerHigh(data)
	case 0x4008:
		a.triangle.writeLinear(data)
	case 0x4009:
		// unused
	case 0x400a:
		a.triangle.writeTimerLow(data)
	case 0x400b:
		a.triangle.writeTimerHigh(data)
	case 0x400c:
		a.noise.writeControl(data)
	case 0x400d:
		// unused
	case 0x400e:
		a.noise.writePeriod(data)
	case 0x400f:
		a.noise.writeLength(data)
	case 0x4010:
		a.dmc.writeControl(data)
	case 0x4011:
		a.dmc.writeValue(data)
	case 0x4012:
		a.dmc.writeSampleAddress(data)
	case 0x4013:
		a.dmc.writeSampleLength(data)
	case 0x4015:
		a.writeStatus(data)
	case 0x4017:
		a.writeFrameCounter(data)
	}
}

// Read reads an APU register. Only $4015 is readable.
func (a *APU) Read(address uint16) byte {
	if address == 0x4015 {
		return a.readStatus()
	}
	return 0
}

// GetReg returns the last value written to a register.
func (a *APU) GetReg(address uint16) byte {
	if address >= 0x4000 && address < 0x4018 {
		return a.regs[address-0x4000]
	}
	return 0
}

func (a *APU) writeStatus(data byte) {
	a.pulse1.enabled = data&0x01 != 0
	a.pulse2.enabled = data&0x02 != 0
	a.triangle.enabled = data&0x04 != 0
	a.noise.enabled = data&0x08 != 0
	a.dmc.enabled = data&0x10 != 0

	if !a.pulse1.enabled {
		a.pulse1.lengthValue = 0
	}
	if !a.pulse2.enabled {
		a.pulse2.lengthValue = 0
	}
	if !a.triangle.enabled {
		a.triangle.lengthValue = 0
	}
	if !a.noise.enabled {
		a.noise.lengthValue = 0
	}
	if !a.dmc.enabled {
		a.dmc.currentLength = 0
		a.dmc.bitCount = 0
	} else if a.dmc.currentLength == 0 {
		a.dmc.restart()
	}
}

func (a *APU) readStatus() byte {
	var status byte
	if a.pulse1.lengthValue > 0 {
		status |= 0x01
	}
	if a.pulse2.lengthValue > 0 {
		status |= 0x02
	}
	if a.triangle.lengthValue > 0 {
		status |= 0x04
	}
	if a.noise.lengthValue > 0 {
		status |= 0x08
	}
	if a.dmc.currentLength > 0 {
		status |= 0x10
	}
	return status
}

func (a *APU) writeFrameCounter(data byte) {
	a.frameMode = (data >> 7) & 1
	a.frameStep = 0
	a.frameAccum = 0
	// Switching to 5-step mode clocks the units immediately.
	if a.frameMode == 1 {
		a.stepEnvelopes()
		a.stepLengths()
		a.stepSweeps()
	}
}

// Process advances the emulation by the given number of CPU cycles
// and returns the PCM samples produced. The returned slice is reused
// by the next call.
func (a *APU) Process(cycles int) []int16 {
	a.buf = a.buf[:0]
	for i := 0; i < cycles; i++ {
		a.stepTimers()

		a.frameAccum++
		if a.frameAccum >= a.framePeriod {
			a.frameAccum -= a.framePeriod
			a.stepFrameCounter()
		}

		a.sampleAccum += a.sampleRate
		if a.sampleAccum >= a.clockRate {
			a.sampleAccum -= a.clockRate
			a.buf = append(a.buf, a.mixer.sample(
				a.pulse1.output(),
				a.pulse2.output(),
				a.triangle.output(),
				a.noise.output(),
				a.dmc.output(),
			))
		}

		a.cycle++
	}
	return a.buf
}

func (a *APU) stepTimers() {
	// Pulse, noise and DMC timers run at half CPU rate.
	if a.cycle%2 == 0 {
		a.pulse1.stepTimer()
		a.pulse2.stepTimer()
		a.noise.stepTimer()
		a.dmc.stepTimer()
	}
	a.triangle.stepTimer()
}

// stepFrameCounter runs the 240 Hz frame sequencer.
// https://www.nesdev.org/wiki/APU_Frame_Counter
func (a *APU) stepFrameCounter() {
	if a.frameMode == 0 {
		// 4-step mode.
		a.stepEnvelopes()
		switch a.frameStep % 4 {
		case 1, 3:
			a.stepLengths()
			a.stepSweeps()
		}
	} else {
		// 5-step mode.
		switch a.frameStep % 5 {
		case 0, 2:
			a.stepEnvelopes()
			a.stepLengths()
			a.stepSweeps()
		case 1, 3:
			a.stepEnvelopes()
		}
	}
	a.frameStep++
}

func (a *APU) stepEnvelopes() {
	a.pulse1.stepEnvelope()
	a.pulse2.stepEnvelope()
	a.triangle.stepLinear()
	a.noise.stepEnvelope()
}

func (a *APU) stepLengths() {
	a.pulse1.stepLength()
	a.pulse2.stepLength()
	a.triangle.stepLength()
	a.noise.stepLength()
}

func (a *APU) stepSweeps() {
	a.pulse1.stepSweep()
	a.pulse2.stepSweep()
}

// LoadSample maps raw DPCM data at $C000 for the memory reader.
func (a *APU) LoadSample(data []byte) {
	a.dmc.sample = data
}

// ClearSample detaches the DPCM sample buffer and stops playback.
// Must be called before the owner of the data frees it.
func (a *APU) ClearSample() {
	a.dmc.sample = nil
	a.dmc.currentLength = 0
	a.dmc.bitCount = 0
}

// DPCMPlaying reports whether the DMC is still fetching sample data.
func (a *APU) DPCMPlaying() bool {
	return a.dmc.playing()
}

// SamplePos returns the DMC read position within the current sample.
func (a *APU) SamplePos() int {
	if a.dmc.sampleLength == 0 {
		return 0
	}
	return int(a.dmc.sampleLength - a.dmc.currentLength)
}

// DeltaCounter returns the DMC DAC value.
func (a *APU) DeltaCounter() int {
	return int(a.dmc.value)
}

// ChannelFrequency returns the instantaneous frequency of a channel
// in Hz, for visualization.
func (a *APU) ChannelFrequency(channel int) float64 {
	clock := float64(a.clockRate)
	switch channel {
	case ChannelPulse1:
		return clock / (16 * (float64(a.pulse1.timerPeriod) + 1))
	case ChannelPulse2:
		return clock / (16 * (float64(a.pulse2.timerPeriod) + 1))
	case ChannelTriangle:
		return clock / (32 * (float64(a.triangle.timerPeriod) + 1))
	case ChannelNoise:
		return clock / (16 * (float64(a.noise.timerPeriod) + 1))
	case ChannelDPCM:
		return clock / (float64(a.dmc.timerPeriod) + 1)
	}
	return 0
}

// ChannelVolume returns the current output volume of a channel,
// 0..15 (0..127 for DPCM).
func (a *APU) ChannelVolume(channel int) int {
	switch channel {
	case ChannelPulse1:
		return a.pulse1.volume()
	case ChannelPulse2:
		return a.pulse2.volume()
	case ChannelTriangle:
		if a.triangle.output() > 0 {
			return 15
		}
		return 0
	case ChannelNoise:
		return a.noise.volume()
	case ChannelDPCM:
		return int(a.dmc.value)
	}
	return 0
}

// Snapshot copies the register image and the per-channel readouts.
// The caller is responsible for serializing against Process.
func (a *APU) Snapshot() RegisterImage {
	img := RegisterImage{Regs: a.regs}
	for ch := 0; ch < NumChannels; ch++ {
		img.Frequency[ch] = a.ChannelFrequency(ch)
		img.Volume[ch] = a.ChannelVolume(ch)
	}
	return img
}
