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
	"fmt"
	"strings"
)

// Enumerated type for the available transfer functions
type Mode int

const (
	ModeLinear Mode = iota
	ModeSRGB
	ModeHDR
)

var modeNames = [...]string{
	ModeLinear: "linear",
	ModeSRGB:   "srgb",
	ModeHDR:    "hdr",
}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeNames[m]
}

// Parses a mode name, ignoring case
func ParseMode(s string) (Mode, error) {
	l := strings.ToLower(strings.TrimSpace(s))
	for m, name := range modeNames {
		if l == name {
			return Mode(m), nil
		}
	}
	return 0, fmt.Errorf("unknown transfer function '%s', want one of %s", s, strings.Join(modeNames[:], ", "))
}

// Creates the transfer function for the given mode. Exposure is only used by ModeHDR
func New(mode Mode, exposure float32) (Function, error) {
	switch mode {
	case ModeLinear:
		return Linear{}, nil
	case ModeSRGB:
		return SRGB{}, nil
	case ModeHDR:
		return NewHDR(exposure), nil
	default:
		return nil, fmt.Errorf("unknown transfer function %v", mode)
	}
}

// Selects the transfer function for the given kind of source data.
// High dynamic range linear radiance is log-compressed, linear low dynamic
// range data is gamma encoded, and data which is already sRGB encoded is
// passed through unchanged.
func Select(hdr, srgb bool, exposure float32) Function {
	switch {
	case hdr:
		return NewHDR(exposure)
	case srgb:
		return Linear{}
	default:
		return SRGB{}
	}
}

// Returns the mode of a transfer function created by this package.
// Returns false for foreign implementations.
func ModeOf(f Function) (Mode, bool) {
	switch f.(type) {
	case Linear, *Linear:
		return ModeLinear, true
	case SRGB, *SRGB:
		return ModeSRGB, true
	case HDR, *HDR:
		return ModeHDR, true
	}
	return 0, false
}

// Returns the exposure of a HDR transfer function, and 1 for all others
func ExposureOf(f Function) float32 {
	switch tf := f.(type) {
	case HDR:
		return tf.Exposure()
	case *HDR:
		return tf.Exposure()
	}
	return 1
}

// Describes a transfer function for log output, e.g. "hdr exposure 2"
func Describe(f Function) string {
	m, ok := ModeOf(f)
	if !ok {
		return fmt.Sprintf("%T", f)
	}
	if m == ModeHDR {
		return fmt.Sprintf("%v exposure %.4g", m, ExposureOf(f))
	}
	return m.String()
}
