// Command fuzzbox runs the channel engine on the system audio device.
//
// It registers the configured number of input/output channel pairs,
// starts them as pass-through, then swaps every channel to the configured
// stage. Input ports are fed with a test tone; output ports are mixed to
// the speakers. The stage follows changes to the config file and MIDI
// control changes until Enter is pressed or the process is signalled.
//
// Usage:
//
//	fuzzbox [flags]
//
// Examples:
//
//	fuzzbox -stage fuzz -fuzz 0.8 -level 0.4
//	fuzzbox -config fuzzbox.json -midi "Launch Control"
//	fuzzbox -offline 2s -channels 4
//	fuzzbox -response 4096 -fuzz 0.9
//	fuzzbox -list-midi
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gitlab.com/gomidi/midi/v2"

	"github.com/cwbudde/algo-fuzzbox/control"
)

// logger is the process-wide structured logger.
var logger = slog.Default()

// initLogger installs a text handler on stderr. Debug mode adds source
// locations.
func initLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:     level,
		AddSource: debug,
	})
	logger = slog.New(h)
	slog.SetDefault(logger)
}

type options struct {
	configPath string
	client     string
	unique     bool
	channels   int
	topology   string
	stage      string
	fuzz       float64
	level      float64
	bits       int
	sampleRate int
	bufferSize int
	toneHz     float64
	toneAmp    float64
	midiPort   string
	midiCh     int
	offline    time.Duration
	response   int
	meter      time.Duration
	listMIDI   bool
	debug      bool
}

func parseFlags(args []string) (options, *flag.FlagSet, error) {
	var o options

	fs := flag.NewFlagSet("fuzzbox", flag.ContinueOnError)
	fs.StringVar(&o.configPath, "config", "", "JSON config file, watched for changes")
	fs.StringVar(&o.client, "client", "", "host client name (overrides config)")
	fs.BoolVar(&o.unique, "unique", false, "append a random suffix to the client name")
	fs.IntVar(&o.channels, "channels", 0, "number of channels (overrides config)")
	fs.StringVar(&o.topology, "topology", "", "channel topology: one-to-one or all-to-one (overrides config)")
	fs.StringVar(&o.stage, "stage", "", "stage type: passthrough, fuzz, fuzzface, quantize (overrides config)")
	fs.Float64Var(&o.fuzz, "fuzz", -1, "fuzz control in [0, 1] (overrides config)")
	fs.Float64Var(&o.level, "level", -1, "level control in [0, 1] (overrides config)")
	fs.IntVar(&o.bits, "bits", 0, "quantizer fraction bits (overrides config)")
	fs.IntVar(&o.sampleRate, "rate", 48000, "sample rate in Hz")
	fs.IntVar(&o.bufferSize, "buffer", 256, "block size in frames")
	fs.Float64Var(&o.toneHz, "tone", 220, "test tone frequency in Hz")
	fs.Float64Var(&o.toneAmp, "amp", 0.25, "test tone amplitude")
	fs.StringVar(&o.midiPort, "midi", "", "MIDI input port for fuzz/level control")
	fs.IntVar(&o.midiCh, "midi-channel", control.AnyChannel, "MIDI channel 0-15, -1 for any")
	fs.DurationVar(&o.offline, "offline", 0, "render this long through an in-memory host and print peaks, then exit")
	fs.IntVar(&o.response, "response", 0, "print the stage frequency response with an N-point FFT (power of two), then exit")
	fs.DurationVar(&o.meter, "meter", time.Second, "peak meter log interval (debug level), 0 disables")
	fs.BoolVar(&o.listMIDI, "list-midi", false, "list MIDI inputs and exit")
	fs.BoolVar(&o.debug, "debug", false, "enable debug logging (adds source location)")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: fuzzbox [flags]\n\n")
		fmt.Fprintf(fs.Output(), "Runs the fuzz channel engine on the audio device.\n\n")
		fs.PrintDefaults()
	}

	err := fs.Parse(args)

	return o, fs, err
}

func main() {
	os.Exit(realMain(os.Args[1:]))
}

// realMain is the single place that turns errors into exit codes.
func realMain(args []string) int {
	opts, _, err := parseFlags(args)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}

	if err != nil {
		return 2
	}

	initLogger(opts.debug)
	defer midi.CloseDriver()

	if opts.listMIDI {
		for _, name := range control.Inputs() {
			fmt.Println(name)
		}

		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts); err != nil {
		logger.Error("fuzzbox failed", "error", err)
		return 1
	}

	return 0
}
