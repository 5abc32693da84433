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

// Pipeline operators applying radiance transfer functions to images
package encode

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/mlnoga/radiance/internal/fits"
	"github.com/mlnoga/radiance/internal/ops"
	"github.com/mlnoga/radiance/internal/stats"
	"github.com/mlnoga/radiance/internal/transfer"
)

// Transfer type for decoding with the function recorded in the image header
const TypeAuto = "auto"

// Builds a sequence that loads images, optionally scales them, encodes them and saves them
func NewOpEncode(opLoadMany *ops.OpLoadMany, opScaleOffset *OpScaleOffset, opForward *OpForward, opSave *ops.OpSave) *ops.OpSequence {
	return ops.NewOpSequence(opLoadMany, opScaleOffset, opForward, opSave)
}

// Builds a sequence that loads images, decodes them and saves them
func NewOpDecode(opLoadMany *ops.OpLoadMany, opInverse *OpInverse, opSave *ops.OpSave) *ops.OpSequence {
	return ops.NewOpSequence(opLoadMany, opInverse, opSave)
}

// Encodes linear radiance with the forward transfer function. Takes one input, produces one output
type OpForward struct {
	ops.OpUnaryBase
	Transfer transfer.Config `json:"transfer"`
}

var _ ops.Operator = (*OpForward)(nil) // this type is an Operator

func init() { ops.SetOperatorFactory(func() ops.Operator { return NewOpForwardDefault() }) } // register the operator for JSON decoding

func NewOpForwardDefault() *OpForward { return NewOpForward(transfer.NewConfigDefault()) }

func NewOpForward(tc transfer.Config) *OpForward {
	op := OpForward{
		OpUnaryBase: ops.OpUnaryBase{OpBase: ops.OpBase{Type: "tfForward", Active: true}},
		Transfer:    tc,
	}
	op.OpUnaryBase.Apply = op.Apply // assign class method to superclass abstract method
	return &op
}

// Unmarshal the type from JSON with default values for missing entries
func (op *OpForward) UnmarshalJSON(data []byte) error {
	type defaults OpForward
	def := defaults(*NewOpForwardDefault())
	if err := json.Unmarshal(data, &def); err != nil {
		return err
	}
	*op = OpForward(def)
	op.OpUnaryBase.Apply = op.Apply
	return nil
}

func (op *OpForward) Apply(f *fits.Image, c *ops.Context) (result *fits.Image, err error) {
	if !op.Active {
		return f, nil
	}
	tf, err := op.Transfer.Build()
	if err != nil {
		return nil, fmt.Errorf("%d: %s operator: %w", f.ID, op.Type, err)
	}
	if prev, ok, _ := f.Transfer(); ok {
		if m, _ := transfer.ModeOf(prev); m != transfer.ModeLinear {
			return nil, fmt.Errorf("%d: image is already encoded with %s", f.ID, transfer.Describe(prev))
		}
	}
	before := statsOf(f)

	name := transfer.Describe(tf)
	fmt.Fprintf(c.Log, "%d: Encoding with %s ...\n", f.ID, name)
	f.ApplyForward(tf)
	if err = f.SetTransfer(tf); err != nil {
		return nil, err
	}
	f.AddHistory("%s %s", op.Type, name)

	after := f.UpdateStats()
	fmt.Fprintf(c.Log, "%d: Encoded to %v\n", f.ID, after)
	warnNonFinite(c, f, before.NonFinite(), after.NonFinite())
	return f, nil
}

// Decodes encoded values back to linear radiance with the inverse transfer function.
// Takes one input, produces one output
type OpInverse struct {
	ops.OpUnaryBase
	Transfer transfer.Config `json:"transfer"`
}

var _ ops.Operator = (*OpInverse)(nil) // this type is an Operator

func init() { ops.SetOperatorFactory(func() ops.Operator { return NewOpInverseDefault() }) } // register the operator for JSON decoding

func NewOpInverseDefault() *OpInverse {
	return NewOpInverse(transfer.Config{Type: TypeAuto, Exposure: 1})
}

func NewOpInverse(tc transfer.Config) *OpInverse {
	op := OpInverse{
		OpUnaryBase: ops.OpUnaryBase{OpBase: ops.OpBase{Type: "tfInverse", Active: true}},
		Transfer:    tc,
	}
	op.OpUnaryBase.Apply = op.Apply // assign class method to superclass abstract method
	return &op
}

// Unmarshal the type from JSON with default values for missing entries
func (op *OpInverse) UnmarshalJSON(data []byte) error {
	type defaults OpInverse
	def := defaults(*NewOpInverseDefault())
	if err := json.Unmarshal(data, &def); err != nil {
		return err
	}
	*op = OpInverse(def)
	op.OpUnaryBase.Apply = op.Apply
	return nil
}

// Returns the transfer function to decode the image with. Auto mode uses the one from the header
func (op *OpInverse) transferFor(f *fits.Image, c *ops.Context) (transfer.Function, error) {
	recorded, ok, err := f.Transfer()
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(strings.TrimSpace(op.Transfer.Type), TypeAuto) {
		if !ok {
			return nil, fmt.Errorf("%d: no transfer function recorded in image header, specify one", f.ID)
		}
		return recorded, nil
	}

	tf, err := op.Transfer.Build()
	if err != nil {
		return nil, fmt.Errorf("%d: %s operator: %w", f.ID, op.Type, err)
	}
	if ok {
		if a, b := transfer.Describe(recorded), transfer.Describe(tf); a != b {
			fmt.Fprintf(c.Log, "%d: Warning: image header records %s, decoding with %s\n", f.ID, a, b)
		}
	}
	return tf, nil
}

func (op *OpInverse) Apply(f *fits.Image, c *ops.Context) (result *fits.Image, err error) {
	if !op.Active {
		return f, nil
	}
	tf, err := op.transferFor(f, c)
	if err != nil {
		return nil, err
	}
	before := statsOf(f)

	name := transfer.Describe(tf)
	fmt.Fprintf(c.Log, "%d: Decoding with %s ...\n", f.ID, name)
	f.ApplyInverse(tf)
	f.ClearTransfer()
	f.AddHistory("%s %s", op.Type, name)

	after := f.UpdateStats()
	fmt.Fprintf(c.Log, "%d: Decoded to %v\n", f.ID, after)
	warnNonFinite(c, f, before.NonFinite(), after.NonFinite())
	return f, nil
}

// Diagnostic: encodes and decodes a copy of the image, and logs the deviations from the original.
// Takes one input, produces one output (the unchanged input)
type OpRoundTrip struct {
	ops.OpUnaryBase
	Transfer transfer.Config `json:"transfer"`
}

var _ ops.Operator = (*OpRoundTrip)(nil) // this type is an Operator

func init() { ops.SetOperatorFactory(func() ops.Operator { return NewOpRoundTripDefault() }) } // register the operator for JSON decoding

func NewOpRoundTripDefault() *OpRoundTrip { return NewOpRoundTrip(transfer.NewConfigDefault()) }

func NewOpRoundTrip(tc transfer.Config) *OpRoundTrip {
	op := OpRoundTrip{
		OpUnaryBase: ops.OpUnaryBase{OpBase: ops.OpBase{Type: "tfRoundTrip", Active: true}},
		Transfer:    tc,
	}
	op.OpUnaryBase.Apply = op.Apply // assign class method to superclass abstract method
	return &op
}

// Unmarshal the type from JSON with default values for missing entries
func (op *OpRoundTrip) UnmarshalJSON(data []byte) error {
	type defaults OpRoundTrip
	def := defaults(*NewOpRoundTripDefault())
	if err := json.Unmarshal(data, &def); err != nil {
		return err
	}
	*op = OpRoundTrip(def)
	op.OpUnaryBase.Apply = op.Apply
	return nil
}

// Deviations of a round trip from the original values
type Deviation struct {
	MaxAbs    float32 // Maximum absolute deviation
	MaxRel    float32 // Maximum deviation relative to the original magnitude, for nonzero originals
	NonFinite int     // Number of finite originals with non-finite round trip results
}

func (d Deviation) String() string {
	return fmt.Sprintf("max abs %.4g max rel %.4g non-finite %d", d.MaxAbs, d.MaxRel, d.NonFinite)
}

// Compares round trip values to the originals. Non-finite originals are skipped
func Compare(orig, trip []float32) (d Deviation) {
	for i, o := range orig {
		if o != o || math.IsInf(float64(o), 0) {
			continue
		}
		t := trip[i]
		if t != t || math.IsInf(float64(t), 0) {
			d.NonFinite++
			continue
		}
		abs := float32(math.Abs(float64(t - o)))
		if abs > d.MaxAbs {
			d.MaxAbs = abs
		}
		if o != 0 {
			if rel := abs / float32(math.Abs(float64(o))); rel > d.MaxRel {
				d.MaxRel = rel
			}
		}
	}
	return d
}

func (op *OpRoundTrip) Apply(f *fits.Image, c *ops.Context) (result *fits.Image, err error) {
	if !op.Active {
		return f, nil
	}
	tf, err := op.Transfer.Build()
	if err != nil {
		return nil, fmt.Errorf("%d: %s operator: %w", f.ID, op.Type, err)
	}

	trip := fits.NewImageFromImage(f)
	trip.ApplyForward(tf)
	trip.ApplyInverse(tf)
	d := Compare(f.Data, trip.Data)
	fmt.Fprintf(c.Log, "%d: Round trip with %s: %v\n", f.ID, transfer.Describe(tf), d)
	return f, nil
}

// Logs image statistics. Takes one input, produces one output (the unchanged input)
type OpStats struct {
	ops.OpUnaryBase
	CSV bool `json:"csv"` // log as comma separated values instead of text

	csvHeader *sync.Once // header line is logged once per operator
}

var _ ops.Operator = (*OpStats)(nil) // this type is an Operator

func init() { ops.SetOperatorFactory(func() ops.Operator { return NewOpStatsDefault() }) } // register the operator for JSON decoding

func NewOpStatsDefault() *OpStats { return NewOpStats(false) }

func NewOpStats(csv bool) *OpStats {
	op := OpStats{
		OpUnaryBase: ops.OpUnaryBase{OpBase: ops.OpBase{Type: "stats", Active: true}},
		CSV:         csv,
		csvHeader:   &sync.Once{},
	}
	op.OpUnaryBase.Apply = op.Apply // assign class method to superclass abstract method
	return &op
}

// Unmarshal the type from JSON with default values for missing entries
func (op *OpStats) UnmarshalJSON(data []byte) error {
	type defaults OpStats
	def := defaults(*NewOpStatsDefault())
	if err := json.Unmarshal(data, &def); err != nil {
		return err
	}
	*op = OpStats(def)
	op.OpUnaryBase.Apply = op.Apply
	return nil
}

func (op *OpStats) Apply(f *fits.Image, c *ops.Context) (result *fits.Image, err error) {
	if !op.Active {
		return f, nil
	}
	s := f.UpdateStats()
	encoding := "linear"
	if tf, ok, err := f.Transfer(); ok && err == nil {
		encoding = transfer.Describe(tf)
	}
	if op.CSV {
		op.csvHeader.Do(func() { fmt.Fprintf(c.Log, "ID,File,Dimensions,Encoding,%s\n", s.ToCSVHeader()) })
		fmt.Fprintf(c.Log, "%d,%s,%s,%s,%s\n", f.ID, f.FileName, f.DimensionsToString(), encoding, s.ToCSVLine())
	} else {
		fmt.Fprintf(c.Log, "%d: %s %s %s: %v\n", f.ID, f.FileName, f.DimensionsToString(), encoding, s)
	}
	return f, nil
}

// Multiplies pixel values with a scale, then adds an offset. For instance to
// normalize integer sensor values before encoding. Takes one input, produces one output
type OpScaleOffset struct {
	ops.OpUnaryBase
	Scale  float32 `json:"scale"`
	Offset float32 `json:"offset"`
}

var _ ops.Operator = (*OpScaleOffset)(nil) // this type is an Operator

func init() { ops.SetOperatorFactory(func() ops.Operator { return NewOpScaleOffsetDefault() }) } // register the operator for JSON decoding

func NewOpScaleOffsetDefault() *OpScaleOffset { return NewOpScaleOffset(1, 0) }

func NewOpScaleOffset(scale, offset float32) *OpScaleOffset {
	op := OpScaleOffset{
		OpUnaryBase: ops.OpUnaryBase{OpBase: ops.OpBase{Type: "scaleOffset", Active: scale != 1 || offset != 0}},
		Scale:       scale,
		Offset:      offset,
	}
	op.OpUnaryBase.Apply = op.Apply // assign class method to superclass abstract method
	return &op
}

// Unmarshal the type from JSON with default values for missing entries
func (op *OpScaleOffset) UnmarshalJSON(data []byte) error {
	type defaults OpScaleOffset
	def := defaults(*NewOpScaleOffsetDefault())
	def.Active = true
	if err := json.Unmarshal(data, &def); err != nil {
		return err
	}
	*op = OpScaleOffset(def)
	op.OpUnaryBase.Apply = op.Apply
	return nil
}

func (op *OpScaleOffset) Apply(f *fits.Image, c *ops.Context) (result *fits.Image, err error) {
	if !op.Active {
		return f, nil
	}
	if tf, ok, _ := f.Transfer(); ok {
		if m, _ := transfer.ModeOf(tf); m != transfer.ModeLinear {
			fmt.Fprintf(c.Log, "%d: Warning: scaling values encoded with %s\n", f.ID, transfer.Describe(tf))
		}
	}
	fmt.Fprintf(c.Log, "%d: Scaling by %.6g and offsetting by %.6g\n", f.ID, op.Scale, op.Offset)
	f.ApplyScaleOffset(op.Scale, op.Offset)
	f.AddHistory("%s %g %g", op.Type, op.Scale, op.Offset)
	f.UpdateStats()
	return f, nil
}

// Returns the image statistics, calculating them if necessary
func statsOf(f *fits.Image) *stats.Stats {
	if f.Stats == nil {
		return f.UpdateStats()
	}
	return f.Stats
}

func warnNonFinite(c *ops.Context, f *fits.Image, before, after int) {
	if after > before {
		fmt.Fprintf(c.Log, "%d: Warning: %d values outside the domain of the transfer function became NaN or Inf\n", f.ID, after-before)
	}
}
