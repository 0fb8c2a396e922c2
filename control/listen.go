package control

import (
	"context"
	"fmt"
	"log/slog"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// Listen feeds messages from the named MIDI input into m until ctx is
// done. A MIDI driver must be registered by importing one, for example
// gitlab.com/gomidi/midi/v2/drivers/rtmididrv.
func Listen(ctx context.Context, port string, m *Mapper, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	in, err := midi.FindInPort(port)
	if err != nil {
		return fmt.Errorf("control: midi input %q: %w", port, err)
	}

	return ListenTo(ctx, in, m, logger)
}

// ListenTo is Listen for an already resolved input port.
func ListenTo(ctx context.Context, in drivers.In, m *Mapper, logger *slog.Logger) error {
	logger = logger.With("midi", in.String())

	stop, err := midi.ListenTo(in, func(msg midi.Message, _ int32) {
		if m.Handle(msg) {
			logger.Debug("midi control", "msg", msg.String(), "values", m.Values())
		}
	}, midi.HandleError(func(err error) {
		logger.Warn("midi listener error", "error", err)
	}))
	if err != nil {
		return fmt.Errorf("control: listen %s: %w", in.String(), err)
	}

	logger.Info("midi input connected")

	<-ctx.Done()
	stop()

	if err := in.Close(); err != nil {
		logger.Debug("closing midi input", "error", err)
	}

	return nil
}

// Inputs returns the names of the available MIDI inputs.
func Inputs() []string {
	var names []string
	for _, in := range midi.GetInPorts() {
		names = append(names, in.String())
	}

	return names
}
