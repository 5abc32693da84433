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

package stats

import (
	"fmt"
	"math"

	"github.com/mlnoga/radiance/internal/qsort"
	"github.com/valyala/fastrand"
)

// Number of values sampled for location and scale estimates. Smaller data is evaluated exactly
const NumSamples = 64 * 1024

// Statistics on a float32 data array. Non-finite values (NaN, +-Inf) are
// counted, but excluded from all other measures
type Stats struct {
	Min    float32 // Minimum
	Max    float32 // Maximum
	Mean   float32 // Mean (average)
	StdDev float32 // Standard deviation (norm 2, sigma)

	Location float32 // Median, sampled for large data
	Scale    float32 // MAD normalized to a Gaussian sigma, sampled for large data

	Finite    int // Number of finite values
	NaNs      int // Number of NaN values
	Infinites int // Number of +Inf or -Inf values
}

// Calculate statistics for a data array
func NewStats(data []float32) *Stats {
	s := &Stats{}
	s.calcMinMeanMax(data)
	if s.Finite == 0 {
		return s
	}
	s.StdDev = calcStdDev(data, s.Mean, s.Finite)

	samples := sampleFinite(data, s.Finite, NumSamples)
	s.Location = qsort.QSelectMedianFloat32(samples)
	for i, d := range samples {
		samples[i] = float32(math.Abs(float64(d - s.Location)))
	}
	s.Scale = qsort.QSelectMedianFloat32(samples) * 1.4826 // normalize to Gaussian std dev.
	return s
}

// Pretty print stats to string
func (s *Stats) String() string {
	str := fmt.Sprintf("Min %.6g Max %.6g Mean %.6g StdDev %.6g Location %.6g Scale %.6g",
		s.Min, s.Max, s.Mean, s.StdDev, s.Location, s.Scale)
	if s.NaNs > 0 || s.Infinites > 0 {
		str += fmt.Sprintf(" NaN %d Inf %d", s.NaNs, s.Infinites)
	}
	return str
}

// Number of non-finite values
func (s *Stats) NonFinite() int { return s.NaNs + s.Infinites }

// Pretty print stats to CSV header
func (s *Stats) ToCSVHeader() string {
	return "Min,Max,Mean,StdDev,Location,Scale,NaN,Inf"
}

// Pretty print stats to CSV line item
func (s *Stats) ToCSVLine() string {
	return fmt.Sprintf("%.6g,%.6g,%.6g,%.6g,%.6g,%.6g,%d,%d",
		s.Min, s.Max, s.Mean, s.StdDev, s.Location, s.Scale, s.NaNs, s.Infinites)
}

func (s *Stats) calcMinMeanMax(data []float32) {
	min, max, sum := float32(math.MaxFloat32), float32(-math.MaxFloat32), float64(0)
	for _, d := range data {
		if d != d {
			s.NaNs++
			continue
		}
		if math.IsInf(float64(d), 0) {
			s.Infinites++
			continue
		}
		if d < min {
			min = d
		}
		if d > max {
			max = d
		}
		sum += float64(d)
		s.Finite++
	}
	if s.Finite > 0 {
		s.Min, s.Max, s.Mean = min, max, float32(sum/float64(s.Finite))
	}
}

func calcStdDev(data []float32, mean float32, finite int) float32 {
	sumSq := float64(0)
	for _, d := range data {
		if isFinite(d) {
			diff := float64(d - mean)
			sumSq += diff * diff
		}
	}
	return float32(math.Sqrt(sumSq / float64(finite)))
}

// Returns up to numSamples finite values from data. Returns all of them in
// order if there are not more than numSamples, else a random subsample
func sampleFinite(data []float32, finite, numSamples int) []float32 {
	if finite <= numSamples {
		samples := make([]float32, 0, finite)
		for _, d := range data {
			if isFinite(d) {
				samples = append(samples, d)
			}
		}
		return samples
	}

	samples := make([]float32, numSamples)
	max := uint32(len(data))
	rng := fastrand.RNG{}
	for i := range samples {
		var d float32
		for {
			d = data[rng.Uint32n(max)]
			if isFinite(d) {
				break
			}
		}
		samples[i] = d
	}
	return samples
}

func isFinite(d float32) bool {
	return d == d && !math.IsInf(float64(d), 0)
}
