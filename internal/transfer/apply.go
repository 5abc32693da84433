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

package transfer

import (
	"gonum.org/v1/gonum/floats"
)

// Applies f.Forward to all values in place. Dispatches on the concrete type
// once per slice, so the inner loops call the strategies directly
func ForwardSlice(f Function, data []float32) {
	switch tf := f.(type) {
	case Linear, *Linear:
		// no op
	case SRGB, *SRGB:
		var s SRGB
		for i, d := range data {
			data[i] = s.Forward(d)
		}
	case HDR:
		tf.forwardSlice(data)
	case *HDR:
		tf.forwardSlice(data)
	default:
		for i, d := range data {
			data[i] = f.Forward(d)
		}
	}
}

// Applies f.Inverse to all values in place. Dispatches on the concrete type
// once per slice, so the inner loops call the strategies directly
func InverseSlice(f Function, data []float32) {
	switch tf := f.(type) {
	case Linear, *Linear:
		// no op
	case SRGB, *SRGB:
		var s SRGB
		for i, d := range data {
			data[i] = s.Inverse(d)
		}
	case HDR:
		tf.inverseSlice(data)
	case *HDR:
		tf.inverseSlice(data)
	default:
		for i, d := range data {
			data[i] = f.Inverse(d)
		}
	}
}

func (h HDR) forwardSlice(data []float32) {
	for i, d := range data {
		data[i] = h.Forward(d)
	}
}

func (h HDR) inverseSlice(data []float32) {
	for i, d := range data {
		data[i] = h.Inverse(d)
	}
}

// Samples the forward curve of f at n evenly spaced points in [lo, hi].
// Returns nil slices if n<2
func Curve(f Function, lo, hi float64, n int) (xs, ys []float64) {
	if n < 2 {
		return nil, nil
	}
	xs = floats.Span(make([]float64, n), lo, hi)
	ys = make([]float64, n)
	for i, x := range xs {
		ys[i] = float64(f.Forward(float32(x)))
	}
	return xs, ys
}
