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
	"math"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// n evenly spaced float32 values in [lo, hi]
func grid(lo, hi float32, n int) []float32 {
	res := make([]float32, n)
	for i := range res {
		res[i] = lo + (hi-lo)*float32(i)/float32(n-1)
	}
	return res
}

func isNaN32(x float32) bool { return math.IsNaN(float64(x)) }
func isInf32(x float32) bool { return math.IsInf(float64(x), 0) }

func TestLinearIdentity(t *testing.T) {
	var l Linear
	xs := []float32{0, 1, -1, 1e-30, -1e-30, 0.5, 65536, 1e20, math.MaxFloat32, -math.MaxFloat32, math.SmallestNonzeroFloat32}
	for _, x := range xs {
		if got := l.Forward(x); got != x {
			t.Errorf("Linear.Forward(%g)=%g; want %g", x, got, x)
		}
		if got := l.Inverse(x); got != x {
			t.Errorf("Linear.Inverse(%g)=%g; want %g", x, got, x)
		}
	}
}

func TestBoundaries(t *testing.T) {
	tcs := []struct {
		name string
		got  float32
		want float32
	}{
		{"SRGB.Forward(0)", SRGB{}.Forward(0), 0},
		{"SRGB.Forward(1)", SRGB{}.Forward(1), 1},
		{"SRGB.Inverse(0)", SRGB{}.Inverse(0), 0},
		{"SRGB.Inverse(1)", SRGB{}.Inverse(1), 1},
		{"HDR.Forward(0)", NewHDRDefault().Forward(0), 0},
		{"HDR.Inverse(0)", NewHDRDefault().Inverse(0), 0},
		{"HDR(0.5).Forward(0)", NewHDR(0.5).Forward(0), 0},
		{"HDR(4).Inverse(0)", NewHDR(4).Inverse(0), 0},
	}
	for _, tc := range tcs {
		if tc.got != tc.want {
			t.Errorf("%s=%g; want %g", tc.name, tc.got, tc.want)
		}
	}
}

func TestSRGBRoundTrip(t *testing.T) {
	s := SRGB{}
	xs := grid(0, 1, 1025)
	fwdInv := make([]float32, len(xs))
	invFwd := make([]float32, len(xs))
	for i, x := range xs {
		fwdInv[i] = s.Forward(s.Inverse(x))
		invFwd[i] = s.Inverse(s.Forward(x))
	}
	opt := cmpopts.EquateApprox(1e-5, 1e-6)
	if diff := cmp.Diff(xs, fwdInv, opt); diff != "" {
		t.Errorf("Forward(Inverse(x)) mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(xs, invFwd, opt); diff != "" {
		t.Errorf("Inverse(Forward(x)) mismatch (-want +got):\n%s", diff)
	}
}

func TestHDRRoundTrip(t *testing.T) {
	h := NewHDRDefault()
	xs := append([]float32{0, 1e-3, 1e-2, 0.1, 0.5, 1, 2, 10, 100, 1000, 10000, 65535, 65536}, grid(0, 65536, 1001)...)
	got := make([]float32, len(xs))
	for i, x := range xs {
		got[i] = h.Inverse(h.Forward(x))
	}
	if diff := cmp.Diff(xs, got, cmpopts.EquateApprox(1e-4, 1e-5)); diff != "" {
		t.Errorf("Inverse(Forward(x)) mismatch (-want +got):\n%s", diff)
	}

	ys := grid(0.1, 1, 901)
	got = make([]float32, len(ys))
	for i, y := range ys {
		got[i] = h.Forward(h.Inverse(y))
	}
	if diff := cmp.Diff(ys, got, cmpopts.EquateApprox(1e-4, 1e-5)); diff != "" {
		t.Errorf("Forward(Inverse(y)) mismatch (-want +got):\n%s", diff)
	}
}

func TestHDRCompressesRange(t *testing.T) {
	h := NewHDRDefault()
	if got := h.Forward(65535); got != 1 {
		t.Errorf("Forward(65535)=%g; want 1", got)
	}
	for _, x := range grid(0, 65535, 257) {
		if y := h.Forward(x); y < 0 || y > 1 {
			t.Errorf("Forward(%g)=%g; want in [0,1]", x, y)
		}
	}
}

func TestMonotonic(t *testing.T) {
	tcs := []struct {
		name    string
		f       Function
		fwdGrid []float32
		invGrid []float32
	}{
		{"linear", Linear{}, grid(-10, 10, 1001), grid(-10, 10, 1001)},
		{"srgb", SRGB{}, grid(0, 1, 1001), grid(0, 1, 1001)},
		{"hdr", NewHDRDefault(), grid(0, 65536, 1001), grid(0, 1, 1001)},
		{"hdr exposure 8", NewHDR(8), grid(0, 8192, 1001), grid(0, 1, 1001)},
	}
	for _, tc := range tcs {
		for i := 1; i < len(tc.fwdGrid); i++ {
			a, b := tc.f.Forward(tc.fwdGrid[i-1]), tc.f.Forward(tc.fwdGrid[i])
			if !(a < b) {
				t.Errorf("%s: Forward(%g)=%g not below Forward(%g)=%g", tc.name, tc.fwdGrid[i-1], a, tc.fwdGrid[i], b)
			}
		}
		for i := 1; i < len(tc.invGrid); i++ {
			a, b := tc.f.Inverse(tc.invGrid[i-1]), tc.f.Inverse(tc.invGrid[i])
			if !(a < b) {
				t.Errorf("%s: Inverse(%g)=%g not below Inverse(%g)=%g", tc.name, tc.invGrid[i-1], a, tc.invGrid[i], b)
			}
		}
	}
}

func TestHDRExposureScaling(t *testing.T) {
	one := NewHDRDefault()
	for _, k := range []float32{0.25, 0.5, 2, 3.7, 100} {
		hk := NewHDR(k)
		for _, x := range grid(0, 600, 601) {
			got, want := hk.Forward(x), one.Forward(float32(k*x))
			if got != want {
				t.Errorf("exposure %g: Forward(%g)=%g; want %g", k, x, got, want)
			}
		}
	}
}

func TestHDRSetExposure(t *testing.T) {
	for _, e := range []float32{0.125, 1, 3, 1000} {
		h := NewHDRDefault()
		h.SetExposure(e)
		if h.Exposure() != e {
			t.Errorf("Exposure()=%g; want %g", h.Exposure(), e)
		}
		if h.rcpExposure != 1/e {
			t.Errorf("exposure %g: rcpExposure=%g; want %g", e, h.rcpExposure, 1/e)
		}
	}

	// zero exposure is not rejected, the reciprocal diverges
	h := NewHDR(0)
	if !isInf32(h.rcpExposure) {
		t.Errorf("exposure 0: rcpExposure=%g; want +Inf", h.rcpExposure)
	}
	if got := h.Inverse(0.5); !isInf32(got) {
		t.Errorf("exposure 0: Inverse(0.5)=%g; want +Inf", got)
	}
}

func TestHDRReconfigureIsIdempotent(t *testing.T) {
	h := NewHDR(2)
	xs := grid(0, 1000, 101)
	before := make([]float32, len(xs))
	for i, x := range xs {
		before[i] = h.Forward(x)
	}

	h.SetExposure(7)
	changed := false
	for i, x := range xs {
		if h.Forward(x) != before[i] {
			changed = true
		}
	}
	if !changed {
		t.Errorf("SetExposure(7) did not change any output")
	}

	h.SetExposure(2)
	for i, x := range xs {
		if got := h.Forward(x); got != before[i] {
			t.Errorf("after revert Forward(%g)=%g; want %g", x, got, before[i])
		}
	}
}

func TestHDRWithExposure(t *testing.T) {
	h := NewHDRDefault()
	h4 := h.WithExposure(4)
	if h.Exposure() != 1 {
		t.Errorf("original Exposure()=%g; want 1", h.Exposure())
	}
	if h4.Exposure() != 4 || h4.rcpExposure != 0.25 {
		t.Errorf("copy exposure=%g rcp=%g; want 4 and 0.25", h4.Exposure(), h4.rcpExposure)
	}
	if got, want := h4.Forward(10), NewHDR(4).Forward(10); got != want {
		t.Errorf("copy Forward(10)=%g; want %g", got, want)
	}
}

func TestDomainErrors(t *testing.T) {
	nans := []struct {
		name string
		got  float32
	}{
		{"SRGB.Forward(-1)", SRGB{}.Forward(-1)},
		{"SRGB.Forward(-1e-6)", SRGB{}.Forward(-1e-6)},
		{"SRGB.Inverse(-0.5)", SRGB{}.Inverse(-0.5)},
		{"HDR.Forward(-2)", NewHDRDefault().Forward(-2)},
		{"HDR(2).Forward(-0.6)", NewHDR(2).Forward(-0.6)},
		{"HDR.Inverse(-0.5)", NewHDRDefault().Inverse(-0.5)},
		{"Linear.Forward(NaN)", Linear{}.Forward(float32(math.NaN()))},
		{"SRGB.Forward(NaN)", SRGB{}.Forward(float32(math.NaN()))},
		{"HDR.Forward(NaN)", NewHDRDefault().Forward(float32(math.NaN()))},
		{"HDR.Inverse(NaN)", NewHDRDefault().Inverse(float32(math.NaN()))},
	}
	for _, tc := range nans {
		if !isNaN32(tc.got) {
			t.Errorf("%s=%g; want NaN", tc.name, tc.got)
		}
	}

	// at exactly -1/exposure the log argument is zero, the result diverges
	if got := NewHDR(2).Forward(-0.5); !isInf32(got) && !isNaN32(got) {
		t.Errorf("HDR(2).Forward(-0.5)=%g; want non-finite", got)
	}
}

func TestHDRScenario(t *testing.T) {
	h := NewHDR(2)
	got := h.Forward(100)
	want := math.Pow(math.Log2(100.0*2.0+1.0)*(1.0/16.0), 1/2.2)
	if math.Abs(float64(got)-want) > 1e-6*want {
		t.Errorf("HDR(2).Forward(100)=%.9g; want %.9g", got, want)
	}
	back := h.Inverse(got)
	if math.Abs(float64(back)-100) > 1e-4*100 {
		t.Errorf("HDR(2).Inverse(%g)=%.9g; want 100", got, back)
	}
}

func TestSRGBApproximatesPiecewiseCurve(t *testing.T) {
	s := SRGB{}
	for _, x := range grid(0, 1, 1001) {
		exact := colorful.LinearRgb(float64(x), 0, 0).R
		if d := math.Abs(float64(s.Forward(x)) - exact); d > 0.05 {
			t.Errorf("Forward(%g)=%g deviates %g from piecewise sRGB %g", x, s.Forward(x), d, exact)
		}
	}
}

func TestConcurrentReaders(t *testing.T) {
	h := NewHDR(3)
	data := grid(0, 20000, 8000)
	want := make([]float32, len(data))
	for i, d := range data {
		want[i] = h.Forward(d)
	}

	got := append([]float32(nil), data...)
	var wg sync.WaitGroup
	chunk := len(got) / 8
	for lower := 0; lower < len(got); lower += chunk {
		wg.Add(1)
		go func(part []float32) {
			defer wg.Done()
			for i, d := range part {
				part[i] = h.Forward(d)
			}
		}(got[lower : lower+chunk])
	}
	wg.Wait()

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("concurrent Forward mismatch (-want +got):\n%s", diff)
	}
}
