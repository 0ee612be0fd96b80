package integration

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkazune/famisound/config"
	"github.com/mkazune/famisound/song"
	"github.com/mkazune/famisound/sound"
)

// countingOutput is a device stand-in that takes samples without
// pacing the engine.
type countingOutput struct {
	samples chan int
}

func (o *countingOutput) FlushBuffer(samples []int16) error {
	select {
	case o.samples <- len(samples):
	default:
	}
	time.Sleep(time.Millisecond)
	return nil
}

func (o *countingOutput) Reset()       {}
func (o *countingOutput) Close() error { return nil }

// TestDemoPlayback plays the built-in song end to end: engine
// goroutine, sequencer, APU emulation and output, wired the way the
// command-line front end wires them.
func TestDemoPlayback(t *testing.T) {
	out := &countingOutput{samples: make(chan int, 1)}
	open := func(device, sampleRate, sampleSize, channels, bufferLenMs int) (sound.Output, error) {
		return out, nil
	}

	engine := sound.NewEngine(config.Default(), open)
	require.True(t, engine.AssignDocument(song.Demo()))
	go engine.Run()
	defer engine.Shutdown()

	engine.StartPlayer(sound.PlayFromStart, 0)
	require.Eventually(t, engine.IsPlaying, time.Second, time.Millisecond)

	// PCM is flowing and the playback position advances.
	select {
	case n := <-out.samples:
		assert.Greater(t, n, 0)
	case <-time.After(time.Second):
		t.Fatal("no samples produced")
	}
	require.Eventually(t, func() bool {
		_, row := engine.GetPlayerPos()
		return row > 0
	}, 2*time.Second, time.Millisecond)

	// The channel readouts show a sounding lead note.
	require.Eventually(t, func() bool {
		return engine.GetChannelNote(song.ChanPulse1) >= 0 &&
			engine.GetChannelVolume(song.ChanPulse1) > 0
	}, 2*time.Second, time.Millisecond)

	engine.StopPlayer()
	require.True(t, engine.WaitForStop())
}

// TestRenderReproducible renders the demo twice and checks the
// output is byte for byte reproducible.
func TestRenderReproducible(t *testing.T) {
	dir := t.TempDir()
	var renders [][]byte

	for _, name := range []string{"a.wav", "b.wav"} {
		path := filepath.Join(dir, name)
		engine := sound.NewEngine(config.Default(), nil)
		require.True(t, engine.AssignDocument(song.Demo()))
		go engine.Run()

		require.NoError(t, engine.RenderToFile(path, sound.RenderSpec{Loops: 1}))
		require.Eventually(t, engine.IsRendering, time.Second, time.Millisecond)
		require.Eventually(t, func() bool { return !engine.IsRendering() }, 10*time.Second, time.Millisecond)
		require.True(t, engine.Shutdown())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		renders = append(renders, data)
	}
	assert.Equal(t, renders[0], renders[1])
}
