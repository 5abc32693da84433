// Copyright (C) 2021 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package transfer maps per-pixel radiance values into a bounded processing
// domain before an image is processed, and back again afterwards.
//
// Three strategies are available: Linear (identity), SRGB (fixed 2.2 gamma)
// and HDR (log2 compression of roughly [0,65536] into [0,1], followed by the
// same gamma curve). All of them are plain float32 arithmetic. Invalid input
// is not clamped or rejected: negative bases and non-positive logarithm
// arguments yield NaN, and a zero exposure yields infinities, exactly as
// IEEE-754 dictates.
package transfer

import "math"

// Exponents of the gamma curve shared by SRGB and HDR
const (
	gammaEncode = float32(1.0 / 2.2)
	gammaDecode = float32(2.2)
)

// HDR log2 range. Compresses [0..65536] into [0..1]
const (
	hdrLogRange    = float32(16)
	hdrRcpLogRange = float32(1.0 / 16.0)
)

// A color transfer function. Forward maps a value from the working radiance
// domain toward the processing domain, Inverse maps it back. Inverse(Forward(x))
// equals x up to floating point rounding on the valid domain of the strategy.
// Implementations are pure and may be called from many goroutines at once.
type Function interface {
	Forward(x float32) float32
	Inverse(x float32) float32
}

// Identity transfer function, for data already in a numerically stable range
type Linear struct{}

var _ Function = Linear{}

func (Linear) Forward(x float32) float32 { return x }
func (Linear) Inverse(x float32) float32 { return x }

// sRGB-like transfer function with a fixed gamma of 2.2 instead of the
// piecewise sRGB curve. Defined for x>=0, negative values yield NaN.
type SRGB struct{}

var _ Function = SRGB{}

// Gamma encode, linear to perceptual
func (SRGB) Forward(x float32) float32 { return pow32(x, gammaEncode) }

// Gamma decode, perceptual to linear
func (SRGB) Inverse(x float32) float32 { return pow32(x, gammaDecode) }

// HDR transfer function: exposure scaling, log2 compression and the SRGB
// gamma curve. Compresses [0..65536] to [0..1] at exposure 1.
//
// The zero value is not usable, construct with NewHDR or NewHDRDefault.
// SetExposure is not synchronized: it must be called before the value is
// shared with goroutines calling Forward or Inverse, or be ordered before
// them by other means. WithExposure returns a reconfigured copy instead.
type HDR struct {
	exposure    float32
	rcpExposure float32
}

var _ Function = HDR{}

// Creates a HDR transfer function with the given exposure. The exposure is
// expected to be positive, but this is not checked.
func NewHDR(exposure float32) *HDR {
	h := &HDR{}
	h.SetExposure(exposure)
	return h
}

// Creates a HDR transfer function with exposure 1
func NewHDRDefault() *HDR { return NewHDR(1) }

// Sets the exposure and its cached reciprocal together. A zero exposure
// makes the reciprocal +Inf, and Inverse diverge.
func (h *HDR) SetExposure(exposure float32) {
	*h = HDR{exposure: exposure, rcpExposure: 1 / exposure}
}

// Returns a copy of h with the given exposure. h itself is unchanged.
func (h HDR) WithExposure(exposure float32) HDR {
	h.SetExposure(exposure)
	return h
}

func (h HDR) Exposure() float32 { return h.exposure }

func (h HDR) Forward(x float32) float32 {
	x = float32(x * h.exposure)
	return pow32(log2f(x+1)*hdrRcpLogRange, gammaEncode)
}

func (h HDR) Inverse(x float32) float32 {
	y := pow32(x, gammaDecode)
	return (exp2f(y*hdrLogRange) - 1) * h.rcpExposure
}

func pow32(x, y float32) float32 { return float32(math.Pow(float64(x), float64(y))) }
func log2f(v float32) float32    { return float32(math.Log2(float64(v))) }
func exp2f(v float32) float32    { return float32(math.Exp2(float64(v))) }
