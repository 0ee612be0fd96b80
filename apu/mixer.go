package apu

import "math"

// Reference:
//   https://www.nesdev.org/wiki/APU_Mixer
//
// The mixer uses the standard nonlinear lookup approximation, then
// applies per-chip levels, a high-pass filter to strip the DC offset
// (and simulate the console's bass response) and a low-pass filter
// for the treble cut.

var pulseMixTable [31]float64
var tndMixTable [203]float64

func init() {
	for i := 1; i < 31; i++ {
		pulseMixTable[i] = 95.52 / (8128.0/float64(i) + 100)
	}
	for i := 1; i < 203; i++ {
		tndMixTable[i] = 163.67 / (24329.0/float64(i) + 100)
	}
}

// ChipLevel identifies a mixing level group.
type ChipLevel int

const (
	LevelAPU1 ChipLevel = iota // pulse 1 and 2
	LevelAPU2                  // triangle, noise, DMC
)

type mixer struct {
	levelAPU1 float64
	levelAPU2 float64
	volume    float64

	// One-pole filter coefficients, recomputed when the sample rate
	// or the filter settings change.
	highpassRate float64
	lowpassRate  float64

	hpPrevIn  float64
	hpPrevOut float64
	lpPrev    float64
}

func newMixer() mixer {
	return mixer{
		levelAPU1:    1.0,
		levelAPU2:    1.0,
		volume:       1.0,
		highpassRate: 1.0,
		lowpassRate:  1.0,
	}
}

// setup recomputes the filter coefficients. bass and treble are
// cutoff frequencies in Hz; volume is 0..100.
func (m *mixer) setup(bass, treble, volume, sampleRate int) {
	if sampleRate <= 0 {
		return
	}
	if bass < 1 {
		bass = 1
	}
	if treble < 1 {
		treble = 1
	}
	m.highpassRate = math.Exp(-2 * math.Pi * float64(bass) / float64(sampleRate))
	m.lowpassRate = 1 - math.Exp(-2*math.Pi*float64(treble)/float64(sampleRate))
	m.volume = float64(volume) / 100.0
}

func (m *mixer) setLevel(chip ChipLevel, level float64) {
	switch chip {
	case LevelAPU1:
		m.levelAPU1 = level
	case LevelAPU2:
		m.levelAPU2 = level
	}
}

// reset clears the filter state, not the configuration.
func (m *mixer) reset() {
	m.hpPrevIn = 0
	m.hpPrevOut = 0
	m.lpPrev = 0
}

// sample mixes one set of channel outputs into a signed 16-bit value.
func (m *mixer) sample(p1, p2, t, n, d byte) int16 {
	x := pulseMixTable[int(p1)+int(p2)]*m.levelAPU1 +
		tndMixTable[3*int(t)+2*int(n)+int(d)]*m.levelAPU2

	// High-pass: y[i] = R * (y[i-1] + x[i] - x[i-1])
	hp := m.highpassRate * (m.hpPrevOut + x - m.hpPrevIn)
	m.hpPrevIn = x
	m.hpPrevOut = hp

	// Low-pass: y[i] = y[i-1] + a * (x[i] - y[i-1])
	m.lpPrev += m.lowpassRate * (hp - m.lpPrev)

	out := m.lpPrev * m.volume * 32767
	if out > 32767 {
		out = 32767
	} else if out < -32768 {
		out = -32768
	}
	return int16(out)
}
