package sound

import (
	"math"

	"github.com/mkazune/famisound/song"
)

// Precomputed tuning tables. Built once at startup, read-only after.

// NoteCount covers octaves 0-7, note 0 is C-0 and note 57 is A-4.
const NoteCount = 96

const a4Note = 57
const a4Freq = 440.0

var periodTableNTSC [NoteCount]int
var periodTablePAL [NoteCount]int

// VibratoLength is the number of phase steps in one vibrato cycle.
const VibratoLength = 64

// Peak pitch offsets for the 16 vibrato depth settings.
var vibratoDepths = [16]float64{
	1.0, 1.5, 2.5, 4.0, 5.0, 7.0, 10, 12, 14, 17, 22, 30, 44, 64, 96, 128,
}

var vibratoTable [16 * VibratoLength]int

func init() {
	for n := 0; n < NoteCount; n++ {
		freq := a4Freq * math.Pow(2, float64(n-a4Note)/12)
		periodTableNTSC[n] = clampPeriod(int(math.Round(1789773/(16*freq) - 1)))
		periodTablePAL[n] = clampPeriod(int(math.Round(1662607/(16*freq) - 1)))
	}
	for d := 0; d < 16; d++ {
		for p := 0; p < VibratoLength; p++ {
			s := math.Sin(2 * math.Pi * float64(p) / VibratoLength)
			vibratoTable[d*VibratoLength+p] = int(math.Round(vibratoDepths[d] * s))
		}
	}
}

func clampPeriod(p int) int {
	if p < 0 {
		return 0
	}
	if p > 0x7ff {
		return 0x7ff
	}
	return p
}

// ReadPeriodTable returns the timer period for a note on the given
// machine.
func ReadPeriodTable(index int, machine song.Machine) int {
	if index < 0 {
		index = 0
	}
	if index >= NoteCount {
		index = NoteCount - 1
	}
	if machine == song.PAL {
		return periodTablePAL[index]
	}
	return periodTableNTSC[index]
}

// ReadVibratoTable returns the pitch offset at a flat table index,
// depth*VibratoLength + phase.
func ReadVibratoTable(index int) int {
	if index < 0 || index >= len(vibratoTable) {
		return 0
	}
	return vibratoTable[index]
}
