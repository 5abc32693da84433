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
	"fmt"
	"strings"

	"github.com/mlnoga/radiance/internal/stats"
	"github.com/mlnoga/radiance/internal/transfer"
)

// A FITS image.
// Spec here:   https://fits.gsfc.nasa.gov/standard40/fits_standard40aa-le.pdf
// Primer here: https://fits.gsfc.nasa.gov/fits_primer.html
type Image struct {
	ID       int    // Sequential ID number, for log output. Counted upwards from 0
	FileName string // Original file name, if any, for log output.

	Header Header  // The header with all keys, values, comments, history entries etc.
	Bitpix int32   // Bits per pixel value from the header. Positive values are integral, negative floating.
	Bzero  float32 // Zero offset. True pixel value is Bzero + Bscale * Data[i].
	Bscale float32 // Value scaler. True pixel value is Bzero + Bscale * Data[i].
	Naxisn []int32 // Axis dimensions. Most quickly varying dimension first (i.e. X,Y)
	Pixels int32   // Number of pixels in the image. Product of Naxisn[]

	Data []float32 // The image data

	Exposure float32 // Image exposure in seconds

	Stats *stats.Stats // Image statistics, nil until calculated
}

// Header keys for the transfer function applied to the pixel data
const (
	KeyTransfer         = "TRANSFER"
	KeyTransferExposure = "TFEXPOS"
)

// Largest number of pixels accepted when reading images, 1 GiB of float32 data
const MaxPixels = 1 << 28

// Returns the number of pixels for the given axis dimensions. Rejects
// negative dimensions and images larger than MaxPixels
func PixelsOf(naxisn []int32) (int32, error) {
	if len(naxisn) == 0 {
		return 0, nil
	}
	pixels := int64(1)
	for i, n := range naxisn {
		if n < 0 {
			return 0, fmt.Errorf("negative dimension NAXIS%d=%d", i+1, n)
		}
		pixels *= int64(n)
		if pixels > MaxPixels {
			return 0, fmt.Errorf("image dimensions %v exceed %d pixels", naxisn, MaxPixels)
		}
	}
	return int32(pixels), nil
}

// Creates a FITS image initialized with empty header
func NewImage() *Image {
	return &Image{
		Header: NewHeader(),
		Bscale: 1,
	}
}

// Creates a FITS image from given naxisn. Data is not copied, allocated if nil. naxisn is deep copied
func NewImageFromNaxisn(naxisn []int32, data []float32) *Image {
	numPixels := int32(1)
	for _, naxis := range naxisn {
		numPixels *= naxis
	}
	if data == nil {
		data = make([]float32, numPixels)
	}
	return &Image{
		Header: NewHeader(),
		Bitpix: -32,
		Bscale: 1,
		Naxisn: append([]int32(nil), naxisn...), // clone slice
		Pixels: numPixels,
		Data:   data,
	}
}

// Creates a deep copy of the given image, including pixel data and header
func NewImageFromImage(img *Image) *Image {
	return &Image{
		ID:       img.ID,
		FileName: img.FileName,
		Header:   img.Header.Clone(),
		Bitpix:   img.Bitpix,
		Bzero:    img.Bzero,
		Bscale:   img.Bscale,
		Naxisn:   append([]int32(nil), img.Naxisn...),
		Pixels:   img.Pixels,
		Data:     append([]float32(nil), img.Data...),
		Exposure: img.Exposure,
		Stats:    img.Stats,
	}
}

// FITS header data
type Header struct {
	Bools    map[string]bool
	Ints     map[string]int32
	Floats   map[string]float32
	Strings  map[string]string
	Dates    map[string]string
	Comments []string
	History  []string
	End      bool
	Length   int32
}

// Creates a FITS header initialized with empty maps and arrays
func NewHeader() Header {
	return Header{
		Bools:    make(map[string]bool),
		Ints:     make(map[string]int32),
		Floats:   make(map[string]float32),
		Strings:  make(map[string]string),
		Dates:    make(map[string]string),
		Comments: make([]string, 0),
		History:  make([]string, 0),
		End:      false,
	}
}

// Returns a deep copy of the header
func (h Header) Clone() Header {
	c := NewHeader()
	for k, v := range h.Bools {
		c.Bools[k] = v
	}
	for k, v := range h.Ints {
		c.Ints[k] = v
	}
	for k, v := range h.Floats {
		c.Floats[k] = v
	}
	for k, v := range h.Strings {
		c.Strings[k] = v
	}
	for k, v := range h.Dates {
		c.Dates[k] = v
	}
	c.Comments = append(c.Comments, h.Comments...)
	c.History = append(c.History, h.History...)
	c.End, c.Length = h.End, h.Length
	return c
}

const fitsBlockSize int = 2880 // Block size of FITS header and data units
const HeaderLineSize int = 80  // Line size of a FITS header

func (f *Image) DimensionsToString() string {
	b := strings.Builder{}
	for i, naxis := range f.Naxisn {
		if i > 0 {
			fmt.Fprintf(&b, "x%d", naxis)
		} else {
			fmt.Fprintf(&b, "%d", naxis)
		}
	}
	return b.String()
}

// Recalculates image statistics from the pixel data
func (f *Image) UpdateStats() *stats.Stats {
	f.Stats = stats.NewStats(f.Data)
	return f.Stats
}

// Records the transfer function applied to the pixel data in the header
func (f *Image) SetTransfer(tf transfer.Function) error {
	c, err := transfer.ConfigOf(tf)
	if err != nil {
		return err
	}
	f.Header.Strings[KeyTransfer] = c.Type
	if m, _ := transfer.ModeOf(tf); m == transfer.ModeHDR {
		f.Header.Floats[KeyTransferExposure] = c.Exposure
	} else {
		delete(f.Header.Floats, KeyTransferExposure)
	}
	delete(f.Header.Ints, KeyTransferExposure)
	return nil
}

// Removes transfer function information from the header, marking the data as linear
func (f *Image) ClearTransfer() {
	delete(f.Header.Strings, KeyTransfer)
	delete(f.Header.Floats, KeyTransferExposure)
	delete(f.Header.Ints, KeyTransferExposure)
}

// Returns the transfer function recorded in the header, and false if there is none
func (f *Image) Transfer() (tf transfer.Function, ok bool, err error) {
	t, ok := f.Header.Strings[KeyTransfer]
	if !ok {
		return nil, false, nil
	}
	c := transfer.Config{Type: t, Exposure: 1}
	if e, found := f.Header.Floats[KeyTransferExposure]; found {
		c.Exposure = e
	} else if e, found := f.Header.Ints[KeyTransferExposure]; found {
		c.Exposure = float32(e)
	}
	tf, err = c.Build()
	if err != nil {
		return nil, true, fmt.Errorf("%d: invalid transfer function in header: %w", f.ID, err)
	}
	return tf, true, nil
}

// Appends a history line to the header
func (f *Image) AddHistory(format string, args ...interface{}) {
	f.Header.History = append(f.Header.History, fmt.Sprintf(format, args...))
}

// Equal tells whether a and b contain the same elements.
// A nil argument is equivalent to an empty slice.
func EqualInt32Slice(a, b []int32) bool {
	if len(a) != len(b) {
		return false
	}
	for i, v := range a {
		if v != b[i] {
			return false
		}
	}
	return true
}
