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
	"image/jpeg"
	"io"
	"os"
)

// Write a FITS image to JPG, using the given preview mapping. Chooses
// grayscale or color output based on the image dimensions
func (f *Image) WriteJPGToFile(fileName string, p Preview, quality int) error {
	file, err := os.Create(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	if err = f.WriteJPG(writer, p, quality); err != nil {
		return err
	}
	if err = writer.Flush(); err != nil {
		return err
	}
	return file.Close()
}

// Write a FITS image to JPG, using the given preview mapping.
func (f *Image) WriteJPG(writer io.Writer, p Preview, quality int) error {
	img, err := f.toImage(p, false)
	if err != nil {
		return err
	}
	return jpeg.Encode(writer, img, &jpeg.Options{Quality: quality})
}
