package apu

// Reference:
//   https://www.nesdev.org/wiki/APU_DMC
//
// There is no CPU in this emulation, so the memory reader fetches
// from a sample buffer loaded with LoadSample and mapped at $C000.

var dmcPeriodNTSC = [16]uint16{
	428, 380, 340, 320, 286, 254, 226, 214, 190, 160, 142, 128, 106, 84, 72, 54,
}

var dmcPeriodPAL = [16]uint16{
	398, 354, 316, 298, 276, 236, 210, 198, 176, 148, 132, 118, 98, 78, 66, 50,
}

type dmc struct {
	enabled bool
	pal     bool

	sample []byte // mapped at $C000

	value byte // 7-bit DAC

	sampleAddress  uint16
	sampleLength   uint16
	currentAddress uint16
	currentLength  uint16

	shiftRegister byte
	bitCount      byte

	timerPeriod uint16
	timerValue  uint16

	loop bool
	irq  bool
}

// writeControl writes $4010: IRQ enable, loop flag and rate index.
func (d *dmc) writeControl(data byte) {
	d.irq = (data>>7)&1 == 1
	d.loop = (data>>6)&1 == 1
	if d.pal {
		d.timerPeriod = dmcPeriodPAL[data&0x0f]
	} else {
		d.timerPeriod = dmcPeriodNTSC[data&0x0f]
	}
}

// writeValue writes $4011: direct DAC load.
func (d *dmc) writeValue(data byte) {
	d.value = data & 0x7f
}

// writeSampleAddress writes $4012: %11AAAAAA.AA000000.
func (d *dmc) writeSampleAddress(data byte) {
	d.sampleAddress = 0xc000 | (uint16(data) << 6)
}

// writeSampleLength writes $4013: %LLLL.LLLL0001.
func (d *dmc) writeSampleLength(data byte) {
	d.sampleLength = (uint16(data) << 4) | 1
}

func (d *dmc) restart() {
	d.currentAddress = d.sampleAddress
	d.currentLength = d.sampleLength
}

func (d *dmc) stepTimer() {
	if !d.enabled {
		return
	}
	d.stepReader()
	if d.timerValue == 0 {
		d.timerValue = d.timerPeriod
		d.stepShifter()
	} else {
		d.timerValue--
	}
}

func (d *dmc) stepReader() {
	if d.currentLength == 0 || d.bitCount != 0 {
		return
	}
	d.shiftRegister = d.readSample(d.currentAddress)
	d.bitCount = 8
	d.currentAddress++
	if d.currentAddress == 0 {
		d.currentAddress = 0x8000
	}
	d.currentLength--
	if d.currentLength == 0 && d.loop {
		d.restart()
	}
}

func (d *dmc) readSample(address uint16) byte {
	if address < 0xc000 || d.sample == nil {
		return 0
	}
	offset := int(address - 0xc000)
	if offset >= len(d.sample) {
		return 0
	}
	return d.sample[offset]
}

func (d *dmc) stepShifter() {
	if d.bitCount == 0 {
		return
	}
	if d.shiftRegister&1 == 1 {
		if d.value <= 125 {
			d.value += 2
		}
	} else if d.value >= 2 {
		d.value -= 2
	}
	d.shiftRegister >>= 1
	d.bitCount--
}

func (d *dmc) output() byte {
	return d.value
}

// playing reports whether sample bytes remain to be fetched.
func (d *dmc) playing() bool {
	return d.currentLength > 0 || d.bitCount > 0
}
