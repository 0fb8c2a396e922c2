package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/cwbudde/algo-fuzzbox/config"
	"github.com/cwbudde/algo-fuzzbox/engine/stage"
	"github.com/cwbudde/algo-fuzzbox/measure/response"
)

// responseFreqs are the frequencies listed below the peak, in Hz.
var responseFreqs = []float64{50, 100, 200, 500, 1000, 2000, 5000, 10000, 20000}

// printResponse measures the configured stage with an o.response point
// FFT and prints its peak and the level at a few frequencies.
func printResponse(cfg config.Config, o options, w io.Writer) error {
	factory, err := cfg.Factory(nil)
	if err != nil {
		return err
	}

	rate := float64(o.sampleRate)

	s, err := stage.Build(factory, stage.Context{Channel: 1, SampleRate: rate})
	if err != nil {
		return err
	}

	res, err := response.Measure(s, rate, o.response)
	if err != nil {
		return err
	}

	freq, db := res.Peak()

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "stage\t%s\n", cfg.Stage)
	fmt.Fprintf(tw, "peak\t%.1f Hz\t%.2f dB\n", freq, db)
	fmt.Fprintln(tw, "freq Hz\tdB")

	for _, f := range responseFreqs {
		if f > rate/2 {
			break
		}

		fmt.Fprintf(tw, "%.0f\t%.2f\n", res.Freqs[res.Bin(f)], res.At(f))
	}

	return tw.Flush()
}
