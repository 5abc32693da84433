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
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestSliceMatchesScalar(t *testing.T) {
	hdr := NewHDR(1.5)
	fs := []Function{Linear{}, &Linear{}, SRGB{}, &SRGB{}, *hdr, hdr, halve{}}
	src := append(grid(0, 1000, 257), -1, -0.5)

	for _, f := range fs {
		wantFwd := make([]float32, len(src))
		wantInv := make([]float32, len(src))
		for i, x := range src {
			wantFwd[i] = f.Forward(x)
			wantInv[i] = f.Inverse(x)
		}

		gotFwd := append([]float32(nil), src...)
		ForwardSlice(f, gotFwd)
		if diff := cmp.Diff(wantFwd, gotFwd, cmpopts.EquateNaNs()); diff != "" {
			t.Errorf("%T ForwardSlice mismatch (-want +got):\n%s", f, diff)
		}

		gotInv := append([]float32(nil), src...)
		InverseSlice(f, gotInv)
		if diff := cmp.Diff(wantInv, gotInv, cmpopts.EquateNaNs()); diff != "" {
			t.Errorf("%T InverseSlice mismatch (-want +got):\n%s", f, diff)
		}
	}
}

func TestCurve(t *testing.T) {
	if xs, ys := Curve(SRGB{}, 0, 1, 1); xs != nil || ys != nil {
		t.Errorf("Curve with n=1 returned %v, %v; want nil", xs, ys)
	}

	xs, ys := Curve(NewHDRDefault(), 0, 65535, 5)
	wantXs := []float64{0, 16383.75, 32767.5, 49151.25, 65535}
	if diff := cmp.Diff(wantXs, xs); diff != "" {
		t.Errorf("Curve xs mismatch (-want +got):\n%s", diff)
	}
	if ys[0] != 0 || ys[len(ys)-1] != 1 {
		t.Errorf("Curve ys endpoints %g, %g; want 0, 1", ys[0], ys[len(ys)-1])
	}
	for i := 1; i < len(ys); i++ {
		if ys[i] <= ys[i-1] {
			t.Errorf("Curve ys[%d]=%g not above ys[%d]=%g", i, ys[i], i-1, ys[i-1])
		}
	}
}
