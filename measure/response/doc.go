// Package response measures the impulse and frequency response of a
// processing stage.
//
// A unit impulse is run through a fresh stage and the result transformed
// with an FFT. This is exact for linear stages; for stages with a
// nonlinear part (quantization) it describes the small-signal behavior.
//
// # Usage
//
//	s, _ := stage.Build(stage.FuzzFace(), stage.Context{Channel: 1, SampleRate: 48000})
//	res, _ := response.Measure(s, 48000, 4096)
//	freq, db := res.Peak()
package response
