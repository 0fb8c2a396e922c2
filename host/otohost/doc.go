// Package otohost implements a host client that plays the mixed output
// ports through the system audio device using oto.
//
// oto is output only, so input ports are fed from a [Source], by default a
// sine tone. All output ports are summed into one mono stream. Blocks are
// rendered on oto's reader goroutine whenever the device asks for data.
//
// Built with the headless tag, the device is replaced by a ticker that
// consumes blocks at the configured sample rate and discards them.
package otohost
