// Package config holds the persisted settings the sound engine
// consumes. The engine takes a Config value at construction instead
// of reading ambient global state.
package config

// Sound holds the audio device settings.
type Sound struct {
	SampleRate    int // Hz
	SampleSize    int // bits, 8 or 16
	BufferLength  int // milliseconds
	Device        int // output device index
	BassFilter    int // high-pass cutoff, Hz
	TrebleFilter  int // low-pass cutoff, Hz
	TrebleDamping int // dB
	MixVolume     int // 0..100
}

// ChipLevels holds per-chip output levels, 0..100.
type ChipLevels struct {
	APU1 int // pulse channels
	APU2 int // triangle, noise, DPCM
}

// General holds behavior toggles.
type General struct {
	// RetrieveChanState restores per-channel state captured at the
	// cursor position when playback starts mid-song.
	RetrieveChanState bool
}

// Display holds settings that only affect readouts.
type Display struct {
	AverageBPM bool
}

type Config struct {
	Sound      Sound
	ChipLevels ChipLevels
	General    General
	Display    Display
}

// Default returns the settings used when nothing is persisted.
func Default() Config {
	return Config{
		Sound: Sound{
			SampleRate:    44100,
			SampleSize:    16,
			BufferLength:  40,
			Device:        0,
			BassFilter:    30,
			TrebleFilter:  12000,
			TrebleDamping: 24,
			MixVolume:     100,
		},
		ChipLevels: ChipLevels{APU1: 100, APU2: 100},
		General:    General{RetrieveChanState: false},
		Display:    Display{AverageBPM: true},
	}
}
