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
	"bufio"
	"fmt"
	"image"
	"image/color"
	"io"
	"os"

	"github.com/mlnoga/radiance/internal/stats"
	"golang.org/x/image/tiff"
)

// Write a FITS image to 16-bit TIFF, using the given preview mapping. Chooses
// grayscale or color output based on the image dimensions
func (f *Image) WriteTIFF16ToFile(fileName string, p Preview) error {
	file, err := os.Create(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	if err = f.WriteTIFF16(writer, p); err != nil {
		return err
	}
	if err = writer.Flush(); err != nil {
		return err
	}
	return file.Close()
}

// Write a FITS image to 16-bit TIFF, using the given preview mapping.
func (f *Image) WriteTIFF16(writer io.Writer, p Preview) error {
	img, err := f.toImage(p, true)
	if err != nil {
		return err
	}
	return tiff.Encode(writer, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
}

// Converts the pixel data into a Golang image, with 16 or 8 bits per channel
func (f *Image) toImage(p Preview, sixteen bool) (image.Image, error) {
	if len(f.Naxisn) < 2 {
		return nil, fmt.Errorf("%d: cannot convert %s pixel image", f.ID, f.DimensionsToString())
	}
	width, height := int(f.Naxisn[0]), int(f.Naxisn[1])
	size := width * height
	rect := image.Rectangle{image.Point{0, 0}, image.Point{width, height}}

	switch {
	case len(f.Naxisn) == 2:
		if sixteen {
			img := image.NewGray16(rect)
			for i, v := range f.Data[:size] {
				img.SetGray16(i%width, i/width, color.Gray16{uint16(p.mapGray(v)*65535 + 0.5)})
			}
			return img, nil
		}
		img := image.NewGray(rect)
		for i, v := range f.Data[:size] {
			img.SetGray(i%width, i/width, color.Gray{uint8(p.mapGray(v)*255 + 0.5)})
		}
		return img, nil

	case len(f.Naxisn) == 3 && f.Naxisn[2] == 3:
		rs, gs, bs := f.Data[:size], f.Data[size:2*size], f.Data[2*size:3*size]
		if sixteen {
			img := image.NewRGBA64(rect)
			for i := range rs {
				c := p.mapRGB(rs[i], gs[i], bs[i])
				img.SetRGBA64(i%width, i/width, color.RGBA64{uint16(c.R*65535 + 0.5), uint16(c.G*65535 + 0.5), uint16(c.B*65535 + 0.5), 65535})
			}
			return img, nil
		}
		img := image.NewRGBA(rect)
		for i := range rs {
			r, g, b := p.mapRGB(rs[i], gs[i], bs[i]).RGB255()
			img.SetRGBA(i%width, i/width, color.RGBA{r, g, b, 255})
		}
		return img, nil
	}
	return nil, fmt.Errorf("%d: cannot convert %s pixel image", f.ID, f.DimensionsToString())
}

// Read a color or grayscale TIFF image into a FITS image. Values are normalized to [0,1]
func (f *Image) ReadTIFF(reader io.Reader) error {
	t, err := tiff.Decode(reader)
	if err != nil {
		return fmt.Errorf("%d: %w", f.ID, err)
	}

	// determine width, height, color depth and number of color channels
	width, height := t.Bounds().Dx(), t.Bounds().Dy()
	minX, minY := t.Bounds().Min.X, t.Bounds().Min.Y
	bitpix, channels := colorModelToBitpixAndChannels(t.ColorModel())
	if channels == 0 {
		return fmt.Errorf("%d: unsupported TIFF color model", f.ID)
	}

	// set FITS metadata
	f.Bitpix = bitpix
	f.Naxisn = []int32{int32(width), int32(height), channels}
	if channels == 1 {
		f.Naxisn = f.Naxisn[:2]
	}
	if f.Pixels, err = PixelsOf([]int32{int32(width), int32(height), channels}); err != nil {
		return fmt.Errorf("%d: %w", f.ID, err)
	}
	f.Bzero, f.Bscale = 0, 1

	// read and convert pixels
	f.Data = make([]float32, f.Pixels)
	size := width * height
	const norm = 1.0 / 65535
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := y*width + x
			if channels == 1 {
				c := color.Gray16Model.Convert(t.At(minX+x, minY+y)).(color.Gray16)
				f.Data[i] = float32(c.Y) * norm
			} else {
				c := color.NRGBA64Model.Convert(t.At(minX+x, minY+y)).(color.NRGBA64)
				f.Data[i] = float32(c.R) * norm
				f.Data[i+size] = float32(c.G) * norm
				f.Data[i+2*size] = float32(c.B) * norm
			}
		}
	}

	f.Stats = stats.NewStats(f.Data)
	return nil
}

func colorModelToBitpixAndChannels(m color.Model) (bitpix, channels int32) {
	switch m {
	case color.RGBAModel, color.NRGBAModel:
		return 8, 3
	case color.RGBA64Model, color.NRGBA64Model:
		return 16, 3
	case color.GrayModel, color.AlphaModel:
		return 8, 1
	case color.Gray16Model, color.Alpha16Model:
		return 16, 1
	default:
		return 0, 0
	}
}
