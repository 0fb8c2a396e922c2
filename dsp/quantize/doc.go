// Package quantize reduces sample precision to a fixed-point grid.
//
// The default grid simulates a 24-bit fixed-point mantissa: samples are
// clamped to [-2^23, 2^23] and rounded to the nearest multiple of 2^-23.
// Quantization is stateless and idempotent, so it can run in place on the
// real-time path after any other stage.
package quantize
