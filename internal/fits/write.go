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
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path"
	"sort"
	"strings"
)

// Keys written from the image structure, never copied from the header maps
var reservedKeys = map[string]bool{
	"SIMPLE": true, "BITPIX": true, "NAXIS": true, "BZERO": true, "BSCALE": true,
	"EXPTIME": true, "EXPOSURE": true, "END": true, "EXTEND": true,
}

// Writes an in-memory FITS image to a file with given filename. Compresses
// with gzip if the name ends in .gz or .gzip. Creates/overwrites the file if necessary
func (fits *Image) WriteFile(fileName string, replaceNaNs bool) error {
	f, err := os.OpenFile(fileName, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	var w io.Writer = bw
	var gz *gzip.Writer
	if lExt := strings.ToLower(path.Ext(fileName)); lExt == ".gz" || lExt == ".gzip" {
		gz = gzip.NewWriter(bw)
		w = gz
	}
	if err = fits.Write(w, replaceNaNs); err != nil {
		return err
	}
	if gz != nil {
		if err = gz.Close(); err != nil {
			return err
		}
	}
	if err = bw.Flush(); err != nil {
		return err
	}
	return f.Close()
}

// Writes an in-memory FITS image to an io.Writer as 32-bit floating point data.
// Optionally replaces NaNs with zeros for compatibility with other software
func (fits *Image) Write(w io.Writer, replaceNaNs bool) error {
	// Build header in string buffer
	sb := strings.Builder{}
	writeBool(&sb, "SIMPLE", true, "FITS standard 4.0")
	writeInt32(&sb, "BITPIX", -32, "32-bit floating point")
	writeInt32(&sb, "NAXIS", int32(len(fits.Naxisn)), "[1] Number of axis")
	for i := 0; i < len(fits.Naxisn); i++ {
		writeInt32(&sb, fmt.Sprintf("NAXIS%d", i+1), fits.Naxisn[i], "[1] Axis size")
	}
	writeFloat32(&sb, "BZERO", 0, "[1] Zero offset")
	writeFloat32(&sb, "BSCALE", 1, "[1] Value scaler")
	if fits.Exposure > 0 {
		writeFloat32(&sb, "EXPTIME", fits.Exposure, "[s] Exposure time")
	}
	if t, ok := fits.Header.Strings[KeyTransfer]; ok {
		writeString(&sb, KeyTransfer, t, "Transfer function of pixel data")
		if e, ok := fits.Header.Floats[KeyTransferExposure]; ok {
			writeFloat32(&sb, KeyTransferExposure, e, "Transfer function exposure")
		} else if e, ok := fits.Header.Ints[KeyTransferExposure]; ok {
			writeFloat32(&sb, KeyTransferExposure, float32(e), "Transfer function exposure")
		}
	}
	fits.Header.writeOther(&sb)
	for _, c := range fits.Header.Comments {
		writeText(&sb, "COMMENT", c)
	}
	for _, h := range fits.Header.History {
		writeText(&sb, "HISTORY", h)
	}
	writeEnd(&sb)

	// Pad current header block with spaces if necessary
	if bytesInHeaderBlock := sb.Len() % fitsBlockSize; bytesInHeaderBlock > 0 {
		sb.WriteString(strings.Repeat(" ", fitsBlockSize-bytesInHeaderBlock))
	}

	// Write header block(s)
	if _, err := io.WriteString(w, sb.String()); err != nil {
		return err
	}

	// Write payload data
	if err := writeFloat32Array(w, fits.Data, replaceNaNs); err != nil {
		return err
	}

	// Pad data block with zeros if necessary
	if bytesInDataBlock := (len(fits.Data) * 4) % fitsBlockSize; bytesInDataBlock > 0 {
		_, err := w.Write(make([]byte, fitsBlockSize-bytesInDataBlock))
		return err
	}
	return nil
}

// Writes all header entries not derived from the image structure, sorted by key
func (h *Header) writeOther(w io.Writer) {
	for _, k := range sortedKeys(h.Bools) {
		if !isReserved(k) {
			writeBool(w, k, h.Bools[k], "")
		}
	}
	for _, k := range sortedKeys(h.Ints) {
		if !isReserved(k) {
			writeInt32(w, k, h.Ints[k], "")
		}
	}
	for _, k := range sortedKeys(h.Floats) {
		if !isReserved(k) {
			writeFloat32(w, k, h.Floats[k], "")
		}
	}
	for _, k := range sortedKeys(h.Strings) {
		if !isReserved(k) {
			writeString(w, k, h.Strings[k], "")
		}
	}
	for _, k := range sortedKeys(h.Dates) {
		if !isReserved(k) {
			writeString(w, k, h.Dates[k], "")
		}
	}
}

func isReserved(key string) bool {
	return reservedKeys[key] || strings.HasPrefix(key, "NAXIS") ||
		key == KeyTransfer || key == KeyTransferExposure || len(key) > 8
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Writes a FITS header line, padded or truncated to the line size
func writeLine(w io.Writer, line string) {
	if len(line) > HeaderLineSize {
		line = line[:HeaderLineSize]
	}
	fmt.Fprintf(w, "%-80s", line)
}

// Writes a FITS header key value pair, with comment if there is room for it
func writeKeyValue(w io.Writer, key, value, comment string) {
	line := fmt.Sprintf("%-8s= %20s", key, value)
	if comment != "" && len(line)+3 < HeaderLineSize {
		line += " / " + comment
	}
	writeLine(w, line)
}

// Writes a FITS header boolean value
func writeBool(w io.Writer, key string, value bool, comment string) {
	v := "F"
	if value {
		v = "T"
	}
	writeKeyValue(w, key, v, comment)
}

// Writes a FITS header int32 value
func writeInt32(w io.Writer, key string, value int32, comment string) {
	writeKeyValue(w, key, fmt.Sprintf("%d", value), comment)
}

// Writes a FITS header float32 value. Always carries a decimal point and enough digits to restore the value exactly
func writeFloat32(w io.Writer, key string, value float32, comment string) {
	writeKeyValue(w, key, fmt.Sprintf("%.8E", value), comment)
}

// Writes a FITS header string value, escaping quotes. Truncates to fit a single line
func writeString(w io.Writer, key, value, comment string) {
	value = strings.ReplaceAll(value, "'", "''")
	if len(value) > 68 {
		value = value[:68]
		if strings.HasSuffix(value, "'") && !strings.HasSuffix(value, "''") {
			value = value[:67]
		}
	}
	quoted := fmt.Sprintf("'%-8s'", value)
	writeKeyValue(w, key, fmt.Sprintf("%-20s", quoted), comment)
}

// Writes COMMENT or HISTORY text, wrapping long text over multiple lines
func writeText(w io.Writer, key, text string) {
	const width = HeaderLineSize - 8
	for {
		if len(text) <= width {
			writeLine(w, fmt.Sprintf("%-8s%s", key, text))
			return
		}
		writeLine(w, fmt.Sprintf("%-8s%s", key, text[:width]))
		text = text[width:]
	}
}

// Writes a FITS header end record
func writeEnd(w io.Writer) {
	writeLine(w, "END")
}

// Writes FITS binary body data in network byte order.
// Optionally replaces NaNs with zeros for compatibility with other software
func writeFloat32Array(w io.Writer, data []float32, replaceNaNs bool) error {
	buf := poolByte.Get(bufLen)
	defer poolByte.Put(buf)

	for block := 0; block < len(data); block += (bufLen >> 2) {
		size := len(data) - block
		if size > (bufLen >> 2) {
			size = (bufLen >> 2)
		}

		for offset := 0; offset < size; offset++ {
			d := data[block+offset]
			if replaceNaNs && d != d {
				d = 0
			}
			binary.BigEndian.PutUint32(buf[offset<<2:], math.Float32bits(d))
		}
		if _, err := w.Write(buf[:(size << 2)]); err != nil {
			return err
		}
	}
	return nil
}
