//go:build !headless

package main

import (
	// Registers the rtmidi driver used by -midi and -list-midi.
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)
