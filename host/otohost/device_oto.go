//go:build !headless

package otohost

import (
	"fmt"

	"github.com/ebitengine/oto/v3"
)

type otoDevice struct {
	sampleRate int
	bufferSize int
	player     *oto.Player
}

func newDevice(sampleRate, bufferSize int) device {
	return &otoDevice{sampleRate: sampleRate, bufferSize: bufferSize}
}

func (d *otoDevice) start(r *reader) error {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   d.sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
	})
	if err != nil {
		return fmt.Errorf("otohost: open device: %w", err)
	}
	<-ready

	d.player = ctx.NewPlayer(r)
	d.player.SetBufferSize(d.bufferSize * bytesPerSample * 4)
	d.player.Play()

	return nil
}

func (d *otoDevice) close() error {
	if d.player == nil {
		return nil
	}

	err := d.player.Close()
	d.player = nil

	return err
}
