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

// Select median of an array of float32. For even lengths, returns the mean
// of the two middle elements. Partially reorders the array.
// Array must not contain IEEE NaN
func QSelectMedianFloat32(a []float32) float32 {
	if len(a) == 0 {
		return 0
	}
	k := len(a) >> 1
	upper := QSelectFloat32(a, k+1)
	if len(a)&1 != 0 {
		return upper
	}
	// after selection, a[:k] holds the k lowest elements in any order
	lower := a[0]
	for _, v := range a[1:k] {
		if v > lower {
			lower = v
		}
	}
	return 0.5 * (lower + upper)
}

// Select kth lowest element from an array of float32, counting from 1.
// Partially reorders the array: afterwards a[k-1] holds the result, all
// elements before it are lower or equal, all after it greater or equal.
// Array must not contain IEEE NaN
func QSelectFloat32(a []float32, k int) float32 {
	left, right := 0, len(a)-1
	for left < right {
		index := partition(a, left, right)
		offset := index - left + 1
		if k <= offset {
			right = index
		} else {
			left = index + 1
			k = k - offset
		}
	}
	return a[left]
}

// Hoare partition of a[left..right] around the middle element. Returns r such
// that every element of a[left..r] is lower or equal to every element of a[r+1..right]
func partition(a []float32, left, right int) int {
	pivot := a[(left+right)>>1]
	l, r := left-1, right+1
	for {
		for {
			l++
			if a[l] >= pivot {
				break
			}
		}
		for {
			r--
			if a[r] <= pivot {
				break
			}
		}
		if l >= r {
			return r
		}
		a[l], a[r] = a[r], a[l]
	}
}
