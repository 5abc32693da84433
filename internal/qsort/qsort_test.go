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

package qsort

import (
	"testing"

	"github.com/valyala/fastrand"
)

// random permutation of 1..n
func permutation(rng *fastrand.RNG, n int) []float32 {
	arr := make([]float32, n)
	for j := 0; j < len(arr); j++ {
		arr[j] = float32(j + 1)
	}
	for j := 0; j < len(arr); j++ {
		k := rng.Uint32n(uint32(len(arr)))
		arr[j], arr[k] = arr[k], arr[j]
	}
	return arr
}

func TestMedian(t *testing.T) {
	rng := fastrand.RNG{}
	for i := 1; i < 1000; i++ {
		arr := permutation(&rng, i)

		var expect float32
		if (i & 1) != 0 {
			expect = float32((i + 1) / 2)
		} else {
			expect = 0.5 * (float32(i/2) + float32(i/2+1))
		}

		res := QSelectMedianFloat32(arr)
		if res != expect {
			t.Errorf("median(1..%d)=%f; want %f", i, res, expect)
		}
	}
	if res := QSelectMedianFloat32(nil); res != 0 {
		t.Errorf("median(nil)=%f; want 0", res)
	}
}

func TestSelect(t *testing.T) {
	rng := fastrand.RNG{}
	for _, n := range []int{1, 2, 7, 64, 513} {
		for _, k := range []int{1, (n + 1) / 2, n} {
			arr := permutation(&rng, n)
			res := QSelectFloat32(arr, k)
			if res != float32(k) {
				t.Errorf("select(1..%d, %d)=%f; want %d", n, k, res, k)
			}
			for i := 0; i < k-1; i++ {
				if arr[i] > res {
					t.Errorf("select(1..%d, %d): arr[%d]=%f above result", n, k, i, arr[i])
				}
			}
		}
	}
}
