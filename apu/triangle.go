package apu

// Reference:
//   https://www.nesdev.org/wiki/APU_Triangle

var triangleTable = [32]byte{
	15, 14, 13, 12, 11, 10, 9, 8, 7, 6, 5, 4, 3, 2, 1, 0,
	0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15,
}

type triangle struct {
	enabled bool

	timerPeriod uint16
	timerValue  uint16
	dutyValue   byte

	lengthHalt  bool
	lengthValue byte

	linearControl bool
	linearReload  bool
	linearPeriod  byte
	linearValue   byte
}

// writeLinear writes $4008: control flag and linear counter period.
func (t *triangle) writeLinear(data byte) {
	t.linearControl = (data>>7)&1 == 1
	t.lengthHalt = (data>>7)&1 == 1
	t.linearPeriod = data & 0x7f
}

// writeTimerLow writes $400A.
func (t *triangle) writeTimerLow(data byte) {
	t.timerPeriod = (t.timerPeriod & 0xff00) | uint16(data)
}

// writeTimerHigh writes $400B: timer high bits, length counter load,
// and the linear counter reload flag.
func (t *triangle) writeTimerHigh(data byte) {
	t.timerPeriod = (t.timerPeriod & 0x00ff) | (uint16(data&7) << 8)
	if t.enabled {
		t.lengthValue = lengthTable[data>>3]
	}
	t.linearReload = true
}

// stepTimer runs at CPU rate, twice the speed of the other channels.
func (t *triangle) stepTimer() {
	if t.timerValue == 0 {
		t.timerValue = t.timerPeriod
		if t.lengthValue > 0 && t.linearValue > 0 {
			t.dutyValue = (t.dutyValue + 1) % 32
		}
	} else {
		t.timerValue--
	}
}

func (t *triangle) stepLength() {
	if !t.lengthHalt && t.lengthValue > 0 {
		t.lengthValue--
	}
}

func (t *triangle) stepLinear() {
	if t.linearReload {
		t.linearValue = t.linearPeriod
	} else if t.linearValue > 0 {
		t.linearValue--
	}
	if !t.linearControl {
		t.linearReload = false
	}
}

func (t *triangle) output() byte {
	if !t.enabled || t.lengthValue == 0 || t.linearValue == 0 {
		return 0
	}
	// Very low periods produce ultrasonic frequencies that only
	// alias after resampling, mute them instead.
	if t.timerPeriod < 2 {
		return 0
	}
	return triangleTable[t.dutyValue]
}
