// Package audio outputs PCM through portaudio. The engine hands it
// finished sample blocks; the blocking stream writes provide the
// pacing for real-time playback.
package audio

import (
	"fmt"
	"sync"

	"github.com/golang/glog"
	"github.com/gordonklaus/portaudio"
)

var initOnce sync.Once
var initErr error

func initialize() error {
	initOnce.Do(func() {
		initErr = portaudio.Initialize()
	})
	return initErr
}

// DeviceInfo describes one selectable output device.
type DeviceInfo struct {
	Index int
	Name  string
}

// Devices enumerates the available output devices.
func Devices() ([]DeviceInfo, error) {
	if err := initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize audio: %w", err)
	}
	devs, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate audio devices: %w", err)
	}
	var out []DeviceInfo
	for _, d := range devs {
		if d.MaxOutputChannels > 0 {
			out = append(out, DeviceInfo{Index: len(out), Name: d.Name})
		}
	}
	return out, nil
}

// BlockCount derives the number of buffer blocks from the requested
// buffer length: 2 blocks, plus one more per 66 ms above 100 ms.
func BlockCount(bufferLenMs int) int {
	blocks := 2
	if bufferLenMs > 100 {
		blocks += bufferLenMs / 66
	}
	return blocks
}

// Channel is an open output stream.
type Channel struct {
	stream   *portaudio.Stream
	out      []int16
	pending  []int16
	channels int

	underruns int
}

// OpenChannel opens an output stream on the given device index at the
// requested format. An out-of-range device index silently falls back
// to the first device. Only 16-bit samples are supported by the
// device path; sampleSize is validated here so callers fail early.
func OpenChannel(device, sampleRate, sampleSize, channels, bufferLenMs, blocks int) (*Channel, error) {
	if sampleSize != 8 && sampleSize != 16 {
		return nil, fmt.Errorf("unsupported sample size: %d", sampleSize)
	}
	if err := initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize audio: %w", err)
	}

	devs, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate audio devices: %w", err)
	}
	var outputs []*portaudio.DeviceInfo
	for _, d := range devs {
		if d.MaxOutputChannels > 0 {
			outputs = append(outputs, d)
		}
	}
	if len(outputs) == 0 {
		return nil, fmt.Errorf("no audio output devices available")
	}
	if device < 0 || device >= len(outputs) {
		glog.Warningf("Invalid audio device index %d, falling back to 0", device)
		device = 0
	}

	frames := sampleRate * bufferLenMs / 1000 / blocks
	if frames < 64 {
		frames = 64
	}

	params := portaudio.HighLatencyParameters(nil, outputs[device])
	params.Output.Channels = channels
	params.SampleRate = float64(sampleRate)
	params.FramesPerBuffer = frames

	c := &Channel{
		out:      make([]int16, frames*channels),
		channels: channels,
	}
	stream, err := portaudio.OpenStream(params, &c.out)
	if err != nil {
		return nil, fmt.Errorf("failed to open the audio stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("failed to start the audio stream: %w", err)
	}
	c.stream = stream

	glog.Infof("Opened audio channel: %d Hz, %d bits, %d ms (%d blocks of %d frames)",
		sampleRate, sampleSize, bufferLenMs, blocks, frames)
	return c, nil
}

// FlushBuffer queues samples for output, blocking while full blocks
// are written to the device. Underruns are counted and logged, not
// returned as errors, so playback continues after a glitch.
func (c *Channel) FlushBuffer(samples []int16) error {
	c.pending = append(c.pending, samples...)
	for len(c.pending) >= len(c.out) {
		copy(c.out, c.pending[:len(c.out)])
		c.pending = c.pending[len(c.out):]
		if err := c.stream.Write(); err != nil {
			if err == portaudio.OutputUnderflowed {
				c.underruns++
				glog.Warningf("Audio underrun (%d total)", c.underruns)
				continue
			}
			return fmt.Errorf("failed to write to the audio stream: %w", err)
		}
	}
	return nil
}

// Underruns returns the number of buffer underruns since open.
func (c *Channel) Underruns() int {
	return c.underruns
}

// Reset drops any samples not yet written to the device.
func (c *Channel) Reset() {
	c.pending = c.pending[:0]
}

// Close stops and closes the stream.
func (c *Channel) Close() error {
	if c.stream == nil {
		return nil
	}
	if err := c.stream.Stop(); err != nil {
		glog.Warningf("Failed to stop the audio stream: %v", err)
	}
	err := c.stream.Close()
	c.stream = nil
	return err
}
