// Package effects provides non-I/O DSP effect kernels.
//
// Effects in this package:
//   - FuzzFace: Fuzz Face pedal model built from a fixed IIR recursion whose
//     coefficients are derived from the fuzz and level controls.
//
// Effects are designed for real-time processing with zero-allocation
// hot paths and support both single-sample and buffer-based processing.
package effects
