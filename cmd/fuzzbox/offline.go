package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-fuzzbox/config"
	"github.com/cwbudde/algo-fuzzbox/dsp/core"
	"github.com/cwbudde/algo-fuzzbox/host/memhost"
	"github.com/cwbudde/algo-fuzzbox/host/otohost"
)

// renderOffline runs the configured engine on an in-memory host for
// o.offline and prints the peak level of every output channel.
func renderOffline(ctx context.Context, name string, cfg config.Config, o options, w io.Writer) error {
	frames := int(o.offline.Seconds() * float64(o.sampleRate))
	if frames < 1 {
		return fmt.Errorf("offline duration %v is shorter than one sample", o.offline)
	}

	client, err := memhost.New(name, core.WithSampleRate(float64(o.sampleRate)), core.WithBlockSize(o.bufferSize))
	if err != nil {
		return err
	}
	defer client.Close()

	a, err := start(client, cfg, o, logger.With("client", name, "host", "memory"))
	if err != nil {
		return err
	}

	err = printPeaks(ctx, a, client, frames, o, w)

	return errors.Join(err, a.ctl.Shutdown())
}

func printPeaks(ctx context.Context, a *app, client *memhost.Client, frames int, o options, w io.Writer) error {
	tone := make([]float32, frames)
	otohost.NewTone(o.toneHz, o.toneAmp, float64(o.sampleRate)).Fill(tone)

	ids := a.ctl.Identities()
	inputs := make(map[string][]float32, len(ids))
	outputs := make([]string, 0, len(ids))

	for _, id := range ids {
		inputs[id.InputName] = tone
		outputs = append(outputs, id.OutputName)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	res, err := client.Run(inputs, outputs...)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "channel\toutput\tpeak\tpeak dB")

	work := make([]float64, frames)

	for _, id := range ids {
		core.Widen(work, res[id.OutputName])
		peak := vecmath.MaxAbs(work)
		fmt.Fprintf(tw, "%d\t%s\t%.6f\t%.2f\n", id.ID, id.OutputName, peak, core.LinearToDB(peak))
	}

	return tw.Flush()
}
