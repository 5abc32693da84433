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
	"encoding/json"
	"fmt"
	"math"
)

// Serializable transfer function settings. The functions themselves accept
// any exposure, validation happens here at the configuration layer.
type Config struct {
	Type     string  `json:"type"`     // linear, srgb or hdr
	Exposure float32 `json:"exposure"` // HDR only. Scales radiance before log compression
}

func NewConfigDefault() Config { return Config{Type: ModeHDR.String(), Exposure: 1} }

// Unmarshal the type from JSON with default values for missing entries
func (c *Config) UnmarshalJSON(data []byte) error {
	type defaults Config
	def := defaults(NewConfigDefault())
	if err := json.Unmarshal(data, &def); err != nil {
		return err
	}
	*c = Config(def)
	return nil
}

// Checks the type name, and for HDR that the exposure is positive and finite
func (c Config) Validate() error {
	m, err := ParseMode(c.Type)
	if err != nil {
		return err
	}
	if m == ModeHDR {
		e := float64(c.Exposure)
		if !(e > 0) || math.IsInf(e, 0) {
			return fmt.Errorf("exposure must be positive and finite, got %g", c.Exposure)
		}
	}
	return nil
}

// Validates the settings and creates the transfer function
func (c Config) Build() (Function, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	m, _ := ParseMode(c.Type)
	return New(m, c.Exposure)
}

// Returns the settings reproducing the given transfer function
func ConfigOf(f Function) (Config, error) {
	m, ok := ModeOf(f)
	if !ok {
		return Config{}, fmt.Errorf("cannot describe transfer function of type %T", f)
	}
	return Config{Type: m.String(), Exposure: ExposureOf(f)}, nil
}
