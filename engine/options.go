package engine

import (
	"errors"
	"fmt"
	"log/slog"
)

const defaultMaxBlockSize = 1024

type config struct {
	logger       *slog.Logger
	maxBlockSize int
}

// Option configures a [Controller].
type Option func(*config) error

// WithLogger sets the logger for control-plane events. The real-time path
// never logs.
func WithLogger(l *slog.Logger) Option {
	return func(cfg *config) error {
		if l == nil {
			return errors.New("engine: nil logger")
		}

		cfg.logger = l

		return nil
	}
}

// WithMaxBlockSize sets the length of the float64 work buffer. Host blocks
// longer than this are processed in chunks. Defaults to the client's buffer
// size, or 1024 if the client reports none.
func WithMaxBlockSize(n int) Option {
	return func(cfg *config) error {
		if n < 1 {
			return fmt.Errorf("engine: max block size must be >= 1: %d", n)
		}

		cfg.maxBlockSize = n

		return nil
	}
}
