package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/golang/glog"
	"github.com/urfave/cli"

	"github.com/mkazune/famisound/audio"
	"github.com/mkazune/famisound/config"
	"github.com/mkazune/famisound/song"
	"github.com/mkazune/famisound/sound"
)

func openChannel(device, sampleRate, sampleSize, channels, bufferLenMs int) (sound.Output, error) {
	return audio.OpenChannel(device, sampleRate, sampleSize, channels, bufferLenMs,
		audio.BlockCount(bufferLenMs))
}

func settings(c *cli.Context) config.Config {
	cfg := config.Default()
	if v := c.GlobalInt("samplerate"); v > 0 {
		cfg.Sound.SampleRate = v
	}
	if v := c.GlobalInt("buffer"); v > 0 {
		cfg.Sound.BufferLength = v
	}
	cfg.Sound.Device = c.GlobalInt("device")
	return cfg
}

func play(c *cli.Context) error {
	engine := sound.NewEngine(settings(c), openChannel)
	engine.AssignDocument(song.Demo())
	go engine.Run()
	defer engine.Shutdown()

	engine.StartPlayer(sound.PlayFromStart, c.Int("track"))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	<-sig
	glog.Infoln("Stopping")
	engine.StopPlayer()
	if !engine.WaitForStop() {
		return fmt.Errorf("the player did not stop in time")
	}
	return nil
}

func render(c *cli.Context) error {
	engine := sound.NewEngine(settings(c), nil)
	engine.AssignDocument(song.Demo())
	go engine.Run()
	defer engine.Shutdown()

	err := engine.RenderToFile(c.String("out"), sound.RenderSpec{
		Track: c.Int("track"),
		Ticks: c.Int("ticks"),
		Loops: c.Int("loops"),
	})
	if err != nil {
		return err
	}

	started := false
	for deadline := time.Now().Add(5 * time.Second); ; {
		if engine.IsRendering() {
			started = true
		} else if started {
			break
		} else if time.Now().After(deadline) {
			return fmt.Errorf("the render did not start")
		}
		time.Sleep(50 * time.Millisecond)
	}
	glog.Infof("Wrote %s", c.String("out"))
	return nil
}

func devices(c *cli.Context) error {
	devs, err := audio.Devices()
	if err != nil {
		return err
	}
	for _, d := range devs {
		fmt.Printf("%d: %s\n", d.Index, d.Name)
	}
	return nil
}

func main() {
	flag.CommandLine.Parse([]string{"-logtostderr"})

	app := cli.NewApp()
	app.Name = "famisound"
	app.Usage = "NES tracker sound engine"
	app.Flags = []cli.Flag{
		cli.IntFlag{Name: "samplerate", Value: 44100, Usage: "output sample rate, Hz"},
		cli.IntFlag{Name: "buffer", Value: 40, Usage: "audio buffer length, ms"},
		cli.IntFlag{Name: "device", Value: 0, Usage: "output device index"},
	}
	app.Commands = []cli.Command{
		{
			Name:  "play",
			Usage: "play the built-in demo song",
			Flags: []cli.Flag{
				cli.IntFlag{Name: "track", Value: 0, Usage: "track index"},
			},
			Action: play,
		},
		{
			Name:  "render",
			Usage: "render the built-in demo song to a WAV file",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "out", Value: "out.wav", Usage: "output file"},
				cli.IntFlag{Name: "track", Value: 0, Usage: "track index"},
				cli.IntFlag{Name: "ticks", Usage: "render a fixed number of ticks"},
				cli.IntFlag{Name: "loops", Value: 1, Usage: "times through the track"},
			},
			Action: render,
		},
		{
			Name:   "devices",
			Usage:  "list audio output devices",
			Action: devices,
		},
	}
	if err := app.Run(os.Args); err != nil {
		glog.Fatalln(err)
	}
}
