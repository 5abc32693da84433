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
	"github.com/lucasb-eyer/go-colorful"
	"github.com/mlnoga/radiance/internal/transfer"
)

// Display mapping for 8-bit and 16-bit previews. Maps the window [Min,Max]
// onto [0,1] and clamps. NaNs display as black. Linear data is companded
// with the piecewise sRGB curve, other data is assumed display-encoded already
type Preview struct {
	Min, Max float32
	Linear   bool
}

// Returns a preview mapping suitable for the image. Data carrying a non-linear
// transfer function is shown as-is on [0,1], linear data is companded on [Min,Max]
func (f *Image) DefaultPreview() Preview {
	if tf, ok, err := f.Transfer(); ok && err == nil {
		if m, _ := transfer.ModeOf(tf); m != transfer.ModeLinear {
			return Preview{Min: 0, Max: 1, Linear: false}
		}
	}
	if f.Stats == nil {
		f.UpdateStats()
	}
	p := Preview{Min: f.Stats.Min, Max: f.Stats.Max, Linear: true}
	if p.Min > 0 {
		p.Min = 0
	}
	if !(p.Max > p.Min) {
		p.Max = p.Min + 1
	}
	return p
}

// Maps an RGB value to a display color
func (p Preview) mapRGB(r, g, b float32) colorful.Color {
	scale := 1 / (p.Max - p.Min)
	c := colorful.Color{
		R: p.unit((r - p.Min) * scale),
		G: p.unit((g - p.Min) * scale),
		B: p.unit((b - p.Min) * scale),
	}
	if p.Linear {
		c = colorful.LinearRgb(c.R, c.G, c.B)
	}
	return c.Clamped()
}

// Maps a grayscale value to a display intensity in [0,1]
func (p Preview) mapGray(v float32) float64 {
	return p.mapRGB(v, v, v).R
}

// Clamps to [0,1], replacing NaNs with zeros
func (p Preview) unit(v float32) float64 {
	if v != v || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return float64(v)
}
