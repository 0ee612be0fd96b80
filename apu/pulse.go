package apu

// Reference:
//   https://www.nesdev.org/wiki/APU_Pulse

var dutyTable = [4][8]byte{
	{0, 1, 0, 0, 0, 0, 0, 0},
	{0, 1, 1, 0, 0, 0, 0, 0},
	{0, 1, 1, 1, 1, 0, 0, 0},
	{1, 0, 0, 1, 1, 1, 1, 1},
}

// Length counter load values, indexed by the 5-bit field of the
// length register.
var lengthTable = [32]byte{
	10, 254, 20, 2, 40, 4, 80, 6, 160, 8, 60, 10, 14, 12, 26, 14,
	12, 16, 24, 18, 48, 20, 96, 22, 192, 24, 72, 26, 16, 28, 32, 30,
}

type pulse struct {
	enabled bool
	channel byte // 1 or 2, sweep negate differs between them

	dutyMode  byte
	dutyValue byte

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

	sweepEnabled bool
	sweepPeriod  byte
	sweepNegate  bool
	sweepShift   byte
	sweepValue   byte
	sweepReload  bool
}

// writeControl writes $4000/$4004: duty, length halt and volume.
func (p *pulse) writeControl(data byte) {
	p.dutyMode = (data >> 6) & 3
	p.lengthHalt = (data>>5)&1 == 1
	p.envelopeLoop = (data>>5)&1 == 1
	p.envelopeEnabled = (data>>4)&1 == 0
	p.envelopePeriod = data & 0x0f
	p.constantVolume = data & 0x0f
	p.envelopeStart = true
}

// writeSweep writes $4001/$4005.
func (p *pulse) writeSweep(data byte) {
	p.sweepEnabled = (data>>7)&1 == 1
	p.sweepPeriod = (data >> 4) & 7
	p.sweepNegate = (data>>3)&1 == 1
	p.sweepShift = data & 7
	p.sweepReload = true
}

// writeTimerLow writes $4002/$4006.
func (p *pulse) writeTimerLow(data byte) {
	p.timerPeriod = (p.timerPeriod & 0xff00) | uint16(data)
}

// writeTimerHigh writes $4003/$4007: timer high bits plus the length
// counter load. The duty sequence and envelope restart.
func (p *pulse) writeTimerHigh(data byte) {
	p.timerPeriod = (p.timerPeriod & 0x00ff) | (uint16(data&7) << 8)
	if p.enabled {
		p.lengthValue = lengthTable[data>>3]
	}
	p.envelopeStart = true
	p.dutyValue = 0
}

func (p *pulse) stepTimer() {
	if p.timerValue == 0 {
		p.timerValue = p.timerPeriod
		p.dutyValue = (p.dutyValue + 1) % 8
	} else {
		p.timerValue--
	}
}

func (p *pulse) stepEnvelope() {
	if p.envelopeStart {
		p.envelopeVolume = 15
		p.envelopeValue = p.envelopePeriod
		p.envelopeStart = false
	} else if p.envelopeValue > 0 {
		p.envelopeValue--
	} else {
		if p.envelopeLoop {
			p.envelopeVolume = 15
		} else if p.envelopeVolume > 0 {
			p.envelopeVolume--
		}
		p.envelopeValue = p.envelopePeriod
	}
}

func (p *pulse) stepSweep() {
	if p.sweepReload {
		if p.sweepEnabled && p.sweepValue == 0 {
			p.sweep()
		}
		p.sweepValue = p.sweepPeriod
		p.sweepReload = false
	} else if p.sweepValue > 0 {
		p.sweepValue--
	} else {
		if p.sweepEnabled {
			p.sweep()
		}
		p.sweepValue = p.sweepPeriod
	}
}

func (p *pulse) sweep() {
	delta := p.timerPeriod >> p.sweepShift
	if p.sweepNegate {
		p.timerPeriod -= delta
		// Pulse 1 uses one's complement negation.
		if p.channel == 1 {
			p.timerPeriod--
		}
	} else {
		p.timerPeriod += delta
	}
}

func (p *pulse) stepLength() {
	if !p.lengthHalt && p.lengthValue > 0 {
		p.lengthValue--
	}
}

func (p *pulse) output() byte {
	if !p.enabled || p.lengthValue == 0 {
		return 0
	}
	if dutyTable[p.dutyMode][p.dutyValue] == 0 {
		return 0
	}
	// Periods below 8 or above $7FF silence the channel.
	if p.timerPeriod < 8 || p.timerPeriod > 0x7ff {
		return 0
	}
	if p.envelopeEnabled {
		return p.envelopeVolume
	}
	return p.constantVolume
}

func (p *pulse) volume() int {
	if p.envelopeEnabled {
		return int(p.envelopeVolume)
	}
	return int(p.constantVolume)
}
