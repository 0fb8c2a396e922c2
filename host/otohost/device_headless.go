//go:build headless

package otohost

import (
	"sync"
	"time"
)

// tickerDevice pulls one buffer per buffer period and discards it.
type tickerDevice struct {
	sampleRate int
	bufferSize int
	stop       chan struct{}
	wg         sync.WaitGroup
}

func newDevice(sampleRate, bufferSize int) device {
	return &tickerDevice{sampleRate: sampleRate, bufferSize: bufferSize}
}

func (d *tickerDevice) start(r *reader) error {
	d.stop = make(chan struct{})
	period := time.Duration(float64(time.Second) * float64(d.bufferSize) / float64(d.sampleRate))
	buf := make([]byte, d.bufferSize*bytesPerSample)

	d.wg.Add(1)

	go func() {
		defer d.wg.Done()

		t := time.NewTicker(period)
		defer t.Stop()

		for {
			select {
			case <-d.stop:
				return
			case <-t.C:
				_, _ = r.Read(buf)
			}
		}
	}()

	return nil
}

func (d *tickerDevice) close() error {
	if d.stop != nil {
		close(d.stop)
		d.wg.Wait()
		d.stop = nil
	}

	return nil
}
