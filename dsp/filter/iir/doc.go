// Package iir provides a third-order direct-form I IIR section.
//
// Unlike the transposed biquad runtime in dsp/filter/biquad, a [Section]
// keeps explicit histories of the three most recent input and output
// samples. Models derived from analog transfer-function fits (see
// dsp/effects) fill the [Coefficients] directly and rely on the history
// layout being observable through [Section.State].
package iir
