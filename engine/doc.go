// Package engine runs per-channel processing stages on a host client and
// swaps them while live.
//
// A [Controller] owns the channel registry of one client. Activate
// registers the channel ports and installs a process callback that runs
// one stage per channel on every block. Reconfigure replaces the stages
// while keeping the channels: it stops the running callback, moves the
// channel ports into a new callback and installs that. The host never runs
// the old and new callback at the same time, so the real-time path needs
// no locks. Swapping produces a short gap in the output.
//
// The process callback converts host float32 buffers into a preallocated
// float64 work buffer and does not allocate, lock, or return errors.
package engine
