package engine

import (
	"math"
	"sync/atomic"

	"github.com/cwbudde/algo-fuzzbox/dsp/core"
	"github.com/cwbudde/algo-fuzzbox/engine/channel"
	"github.com/cwbudde/algo-fuzzbox/engine/stage"
	"github.com/cwbudde/algo-fuzzbox/host"
	"github.com/cwbudde/algo-vecmath"
)

type channelProc struct {
	id    channel.ID
	in    host.Port
	out   host.Port
	stage stage.Stage
	peak  atomic.Uint64 // math.Float64bits of the last block peak, NaN samples skipped
}

// processor is the state captured by one installed callback. It owns its
// channel resources until release is called after deactivation.
type processor struct {
	chans []channelProc
	work  []float64
}

func newProcessor(res []channel.Resource, stages []stage.Stage, maxBlock int) *processor {
	p := &processor{
		chans: make([]channelProc, len(res)),
		work:  make([]float64, maxBlock),
	}

	for i, r := range res {
		p.chans[i].id = r.ID
		p.chans[i].in = r.In
		p.chans[i].out = r.Out
		p.chans[i].stage = stages[i]
	}

	return p
}

// process is the host callback.
func (p *processor) process(s host.Scope) host.Control {
	frames := s.Frames()

	for i := range p.chans {
		ch := &p.chans[i]

		in := s.Buffer(ch.in)
		out := s.Buffer(ch.out)
		n := min(frames, len(in), len(out))

		peak := 0.0

		for off := 0; off < n; off += len(p.work) {
			end := min(off+len(p.work), n)
			w := p.work[:end-off]

			core.Widen(w, in[off:end])
			ch.stage.Process(w)

			if m := vecmath.MaxAbs(w); m > peak {
				peak = m
			}

			core.Narrow(out[off:end], w)
		}

		clear(out[n:])
		ch.peak.Store(math.Float64bits(peak))
	}

	return host.Continue
}

// release hands the channel resources back. The processor must no longer
// be installed.
func (p *processor) release() []channel.Resource {
	res := make([]channel.Resource, len(p.chans))
	for i := range p.chans {
		ch := &p.chans[i]
		res[i] = channel.Resource{ID: ch.id, In: ch.in, Out: ch.out}
		ch.in, ch.out = nil, nil
	}

	return res
}

func (p *processor) peaks() []Peak {
	out := make([]Peak, len(p.chans))
	for i := range p.chans {
		lin := math.Float64frombits(p.chans[i].peak.Load())
		out[i] = Peak{Channel: p.chans[i].id, Linear: lin, DB: core.LinearToDB(lin)}
	}

	return out
}
