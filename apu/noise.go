package apu

// Reference:
//   https://www.nesdev.org/wiki/APU_Noise

var noisePeriodNTSC = [16]uint16{
	4, 8, 16, 32, 64, 96, 128, 160, 202, 254, 380, 508, 762, 1016, 2034, 4068,
}

var noisePeriodPAL = [16]uint16{
	4, 8, 14, 30, 60, 88, 118, 148, 188, 236, 354, 472, 708, 944, 1890, 3778,
}

type noise struct {
	enabled bool
	pal     bool

	shortMode     bool
	shiftRegister uint16

	timerPeriod uint16
	timerValue  uint16

	lengthHalt  bool
	lengthValue byte

	envelopeEnabled bool
	envelopeLoop    bool
	envelopeStart   bool
	envelopePeriod  byte
	envelopeValue   byte
	envelopeVolume  byte
	constantVolume  byte

	periodIndex byte
}

// writeControl writes $400C.
func (n *noise) writeControl(data byte) {
	n.lengthHalt = (data>>5)&1 == 1
	n.envelopeLoop = (data>>5)&1 == 1
	n.envelopeEnabled = (data>>4)&1 == 0
	n.envelopePeriod = data & 0x0f
	n.constantVolume = data & 0x0f
	n.envelopeStart = true
}

// writePeriod writes $400E: mode flag and period table index.
func (n *noise) writePeriod(data byte) {
	n.shortMode = (data>>7)&1 == 1
	n.periodIndex = data & 0x0f
	if n.pal {
		n.timerPeriod = noisePeriodPAL[n.periodIndex]
	} else {
		n.timerPeriod = noisePeriodNTSC[n.periodIndex]
	}
}

// writeLength writes $400F.
func (n *noise) writeLength(data byte) {
	if n.enabled {
		n.lengthValue = lengthTable[data>>3]
	}
	n.envelopeStart = true
}

// stepShift advances the 15-bit LFSR. The feedback taps are bit 0
// and bit 1, or bit 6 in short mode.
func (n *noise) stepShift() {
	var shift byte = 1
	if n.shortMode {
		shift = 6
	}
	b1 := n.shiftRegister & 1
	b2 := (n.shiftRegister >> shift) & 1
	n.shiftRegister >>= 1
	n.shiftRegister |= (b1 ^ b2) << 14
}

func (n *noise) stepTimer() {
	if n.timerValue == 0 {
		n.timerValue = n.timerPeriod
		n.stepShift()
	} else {
		n.timerValue--
	}
}

func (n *noise) stepLength() {
	if !n.lengthHalt && n.lengthValue > 0 {
		n.lengthValue--
	}
}

func (n *noise) stepEnvelope() {
	if n.envelopeStart {
		n.envelopeVolume = 15
		n.envelopeValue = n.envelopePeriod
		n.envelopeStart = false
	} else if n.envelopeValue > 0 {
		n.envelopeValue--
	} else {
		if n.envelopeLoop {
			n.envelopeVolume = 15
		} else if n.envelopeVolume > 0 {
			n.envelopeVolume--
		}
		n.envelopeValue = n.envelopePeriod
	}
}

func (n *noise) output() byte {
	if !n.enabled || n.lengthValue == 0 {
		return 0
	}
	if n.shiftRegister&1 == 1 {
		return 0
	}
	if n.envelopeEnabled {
		return n.envelopeVolume
	}
	return n.constantVolume
}

func (n *noise) volume() int {
	if n.envelopeEnabled {
		return int(n.envelopeVolume)
	}
	return int(n.constantVolume)
}
