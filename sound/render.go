package sound

import (
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// RenderSpec describes a WAV render job. Exactly one of Ticks or
// Loops is used: Ticks > 0 renders a fixed number of engine ticks,
// otherwise the track is rendered Loops times through.
type RenderSpec struct {
	Track int
	Ticks int
	Loops int
}

// waveRenderer streams rendered PCM into a RIFF/WAVE file. It is
// driven from the engine goroutine in place of the audio device.
type waveRenderer struct {
	file    *os.File
	enc     *wav.Encoder
	spec    RenderSpec
	started bool
	done    bool

	sampleRate int
	sampleSize int

	ticksDone int
	rowsDone  int
	totalRows int

	playerStarted bool
	samples       int
	buf           audio.IntBuffer
}

// newWaveRenderer creates the output file and writes the WAV header
// for a mono stream of the given format.
func newWaveRenderer(path string, spec RenderSpec, sampleRate, sampleSize, totalRows int) (*waveRenderer, error) {
	if spec.Ticks <= 0 && spec.Loops <= 0 {
		return nil, fmt.Errorf("render: spec needs ticks or loops")
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("render: create %s: %w", path, err)
	}
	r := &waveRenderer{
		file:       f,
		enc:        wav.NewEncoder(f, sampleRate, sampleSize, 1, 1),
		spec:       spec,
		sampleRate: sampleRate,
		sampleSize: sampleSize,
		totalRows:  totalRows,
	}
	r.buf.Format = &audio.Format{NumChannels: 1, SampleRate: sampleRate}
	r.buf.SourceBitDepth = sampleSize
	return r, nil
}

func (r *waveRenderer) Start()        { r.started = true }
func (r *waveRenderer) Started() bool { return r.started }

// Finished stays true once the stop condition has been hit, even if
// more ticks arrive before the engine tears the job down.
func (r *waveRenderer) Finished() bool { return r.done }

func (r *waveRenderer) RenderTrack() int { return r.spec.Track }

// ShouldStartPlayer reports that the renderer still needs the engine
// to start playback on its behalf.
func (r *waveRenderer) ShouldStartPlayer() bool { return r.started && !r.playerStarted }

func (r *waveRenderer) PlayerStarted() { r.playerStarted = true }

func (r *waveRenderer) Tick() {
	if !r.started || r.done {
		return
	}
	r.ticksDone++
	if r.spec.Ticks > 0 && r.ticksDone >= r.spec.Ticks {
		r.done = true
	}
}

func (r *waveRenderer) StepRow() {
	if !r.started || r.done {
		return
	}
	r.rowsDone++
	if r.spec.Ticks <= 0 && r.rowsDone >= r.totalRows*r.spec.Loops {
		r.done = true
	}
}

// ShouldStopRender reports whether the job reached its end condition.
func (r *waveRenderer) ShouldStopRender() bool { return r.done }

// ShouldStopPlayer reports whether playback started for this job and
// must now be halted.
func (r *waveRenderer) ShouldStopPlayer() bool { return r.done && r.playerStarted }

// FlushBuffer encodes one tick's worth of samples. 8 bit output is
// unsigned per the RIFF convention.
func (r *waveRenderer) FlushBuffer(samples []int16) error {
	if !r.started {
		return nil
	}
	r.buf.Data = r.buf.Data[:0]
	for _, s := range samples {
		v := int(s)
		if r.sampleSize == 8 {
			v = (v >> 8) + 128
		}
		r.buf.Data = append(r.buf.Data, v)
	}
	if err := r.enc.Write(&r.buf); err != nil {
		return fmt.Errorf("render: write: %w", err)
	}
	r.samples += len(samples)
	return nil
}

func (r *waveRenderer) SamplesWritten() int { return r.samples }

// Close finalizes the WAV header and closes the file.
func (r *waveRenderer) Close() error {
	if err := r.enc.Close(); err != nil {
		r.file.Close()
		return fmt.Errorf("render: finalize: %w", err)
	}
	if err := r.file.Close(); err != nil {
		return fmt.Errorf("render: close: %w", err)
	}
	return nil
}
