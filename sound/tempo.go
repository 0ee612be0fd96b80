package sound

import "github.com/mkazune/famisound/song"

// tempoCounter converts the song's tempo/speed settings into row
// boundaries. It keeps an integer accumulator in "tempo units" so
// that live playback and offline rendering step rows on exactly the
// same ticks: every tick subtracts tempo*24, a row is due whenever
// the accumulator is empty, and stepping refills it with
// speed*60*frameRate. At the defaults (tempo 150, speed 6, 60 Hz)
// that plays a row every 6 ticks.
type tempoCounter struct {
	frameRate int
	tempo     int
	speed     int
	accum     int
}

func newTempoCounter() *tempoCounter {
	return &tempoCounter{frameRate: 60, tempo: 150, speed: 6}
}

// LoadTempo resets the counter from a track's declared settings.
func (t *tempoCounter) LoadTempo(track *song.Track, frameRate int) {
	if frameRate > 0 {
		t.frameRate = frameRate
	}
	t.tempo = 150
	t.speed = 6
	if track != nil {
		if track.Tempo > 0 {
			t.tempo = track.Tempo
		}
		if track.Speed > 0 {
			t.speed = track.Speed
		}
	}
	t.accum = 0
}

// SetTempo applies an Fxx tempo change (param >= 0x20).
func (t *tempoCounter) SetTempo(tempo int) {
	if tempo < 1 {
		tempo = 1
	}
	t.tempo = tempo
}

// SetSpeed applies an Fxx speed change. A row always takes at least
// one tick.
func (t *tempoCounter) SetSpeed(speed int) {
	if speed < 1 {
		speed = 1
	}
	t.speed = speed
}

// Tick advances the accumulator by one engine tick and reports
// whether a row boundary was crossed.
func (t *tempoCounter) Tick() bool {
	step := t.accum <= 0
	if step {
		t.accum += 60 * t.speed * t.frameRate
		if t.accum < 0 {
			t.accum = 0
		}
	}
	t.accum -= 24 * t.tempo
	return step
}

// Tempo returns the instantaneous tempo in BPM at highlight 4.
func (t *tempoCounter) Tempo() float64 {
	return float64(t.tempo) * 6 / float64(t.speed)
}

// defaultAverageBPMSamples is the size of the BPM smoothing window.
const defaultAverageBPMSamples = 24

// tempoDisplay keeps a circular history of per-tick tempo samples
// and averages them for display.
type tempoDisplay struct {
	counter *tempoCounter
	window  [defaultAverageBPMSamples]float64
	pos     int
	filled  int
}

func newTempoDisplay(counter *tempoCounter) *tempoDisplay {
	return &tempoDisplay{counter: counter}
}

// Tick records the current instantaneous tempo.
func (d *tempoDisplay) Tick() {
	d.window[d.pos] = d.counter.Tempo()
	d.pos = (d.pos + 1) % len(d.window)
	if d.filled < len(d.window) {
		d.filled++
	}
}

// AverageBPM returns the smoothed tempo, or the instantaneous value
// when no samples were recorded yet.
func (d *tempoDisplay) AverageBPM() float64 {
	if d.filled == 0 {
		return d.counter.Tempo()
	}
	var sum float64
	for i := 0; i < d.filled; i++ {
		sum += d.window[i]
	}
	return sum / float64(d.filled)
}
