// Copyright (C) 2020 Markus L. Noga
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

package fits

import (
	"runtime"

	"github.com/mlnoga/radiance/internal/transfer"
)

//////////////////////////////////////////////////////////////////
// CPU-limited pixel operations. Parallelized across CPUs
//////////////////////////////////////////////////////////////////

// A pixel function. Operates in-place. For parallelization across CPUs.
type PixelFunction func(data []float32, params interface{})

// Apply given pixel function to the image. Uses thead parallelism across all available CPUs. Operates in-place.
func (f *Image) ApplyPixelFunction(pf PixelFunction, args interface{}) {
	data := f.Data

	// split into 8*NumCPU() work packages, limit parallelism to NumCPUS()
	numBatches := 8 * runtime.NumCPU()
	batchSize := (len(data) + numBatches - 1) / (numBatches)
	sem := make(chan bool, runtime.NumCPU())
	for lower := 0; lower < len(data); lower += batchSize {
		upper := lower + batchSize
		if upper > len(data) {
			upper = len(data)
		}

		sem <- true
		go func(data []float32) {
			pf(data, args)
			<-sem
		}(data[lower:upper])
	}

	for i := 0; i < cap(sem); i++ { // wait for goroutines to finish
		sem <- true
	}
}

func pfForward(data []float32, params interface{}) {
	transfer.ForwardSlice(params.(transfer.Function), data)
}

// Encodes all pixel values with the forward transfer function. Operates in-place
func (f *Image) ApplyForward(tf transfer.Function) {
	f.ApplyPixelFunction(pfForward, tf)
}

func pfInverse(data []float32, params interface{}) {
	transfer.InverseSlice(params.(transfer.Function), data)
}

// Decodes all pixel values with the inverse transfer function. Operates in-place
func (f *Image) ApplyInverse(tf transfer.Function) {
	f.ApplyPixelFunction(pfInverse, tf)
}

type scaleOffset struct {
	scale, offset float32
}

func pfScaleOffset(data []float32, params interface{}) {
	so := params.(scaleOffset)
	for i, d := range data {
		data[i] = d*so.scale + so.offset
	}
}

// Multiplies all pixel values with scale, then adds offset. Operates in-place
func (f *Image) ApplyScaleOffset(scale, offset float32) {
	f.ApplyPixelFunction(pfScaleOffset, scaleOffset{scale, offset})
}
