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

package encode

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	nl "github.com/mlnoga/radiance/internal"
	"github.com/mlnoga/radiance/internal/fits"
	"github.com/mlnoga/radiance/internal/ops"
	"github.com/mlnoga/radiance/internal/transfer"
)

func radianceImage() *fits.Image {
	data := []float32{0, 0.01, 0.5, 1, 10, 100, 1000, 65535}
	return fits.NewImageFromNaxisn([]int32{4, 2}, append([]float32(nil), data...))
}

func newTestContext(log io.Writer) *ops.Context {
	c := ops.NewContext(log)
	c.AllowAnyPath = true
	return c
}

func TestForwardInverse(t *testing.T) {
	log := bytes.Buffer{}
	c := newTestContext(&log)
	f := radianceImage()
	orig := append([]float32(nil), f.Data...)

	fwd := NewOpForward(transfer.Config{Type: "hdr", Exposure: 2})
	if _, err := fwd.Apply(f, c); err != nil {
		t.Fatalf("forward: %v", err)
	}
	hdr := transfer.NewHDR(2)
	for i, o := range orig {
		if want := hdr.Forward(o); f.Data[i] != want {
			t.Errorf("encoded[%d]=%f; want %f", i, f.Data[i], want)
		}
	}
	if f.Header.Strings[fits.KeyTransfer] != "hdr" || f.Header.Floats[fits.KeyTransferExposure] != 2 {
		t.Errorf("header %v %v; want hdr exposure 2", f.Header.Strings, f.Header.Floats)
	}

	if _, err := fwd.Apply(f, c); err == nil {
		t.Errorf("encoding twice accepted")
	}

	inv := NewOpInverseDefault()
	if _, err := inv.Apply(f, c); err != nil {
		t.Fatalf("inverse: %v", err)
	}
	if diff := cmp.Diff(orig, f.Data, cmpopts.EquateApprox(1e-4, 1e-5)); diff != "" {
		t.Errorf("decoded mismatch (-want +got):\n%s", diff)
	}
	if _, ok, _ := f.Transfer(); ok {
		t.Errorf("transfer still recorded after decoding")
	}
	want := []string{"tfForward hdr exposure 2", "tfInverse hdr exposure 2"}
	if diff := cmp.Diff(want, f.Header.History); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(log.String(), "0: Encoding with hdr exposure 2") {
		t.Errorf("log %q lacks encoding message", log.String())
	}
}

func TestInverseAutoRequiresHeader(t *testing.T) {
	c := newTestContext(io.Discard)
	if _, err := NewOpInverseDefault().Apply(radianceImage(), c); err == nil {
		t.Errorf("auto decoding without header accepted")
	}

	f := radianceImage()
	log := bytes.Buffer{}
	c.Log = &log
	f.SetTransfer(transfer.SRGB{})
	if _, err := NewOpInverse(transfer.Config{Type: "linear"}).Apply(f, c); err != nil {
		t.Fatalf("explicit inverse: %v", err)
	}
	if !strings.Contains(log.String(), "Warning: image header records srgb, decoding with linear") {
		t.Errorf("log %q lacks mismatch warning", log.String())
	}
}

func TestForwardInvalidConfig(t *testing.T) {
	c := newTestContext(io.Discard)
	for _, tc := range []transfer.Config{{Type: "hdr", Exposure: 0}, {Type: "pq", Exposure: 1}, {Type: TypeAuto}} {
		if _, err := NewOpForward(tc).Apply(radianceImage(), c); err == nil {
			t.Errorf("forward with %+v accepted", tc)
		}
	}
}

func TestForwardWarnsOnDomainErrors(t *testing.T) {
	log := bytes.Buffer{}
	c := newTestContext(&log)
	f := fits.NewImageFromNaxisn([]int32{3}, []float32{1, -2, 3})
	if _, err := NewOpForward(transfer.Config{Type: "srgb", Exposure: 1}).Apply(f, c); err != nil {
		t.Fatalf("forward: %v", err)
	}
	if f.Data[1] == f.Data[1] {
		t.Errorf("srgb forward of -2=%f; want NaN", f.Data[1])
	}
	if !strings.Contains(log.String(), "Warning: 1 values outside the domain") {
		t.Errorf("log %q lacks domain warning", log.String())
	}
}

func TestCompare(t *testing.T) {
	nan, inf := float32(math.NaN()), float32(math.Inf(1))
	d := Compare([]float32{1, 2, nan, 4, 0, -1}, []float32{1.5, 2, 3, inf, 0.25, -1})
	want := Deviation{MaxAbs: 0.5, MaxRel: 0.5, NonFinite: 1}
	if d != want {
		t.Errorf("Compare=%+v; want %+v", d, want)
	}
}

func TestRoundTripLeavesImage(t *testing.T) {
	log := bytes.Buffer{}
	c := newTestContext(&log)
	f := radianceImage()
	orig := append([]float32(nil), f.Data...)
	if _, err := NewOpRoundTripDefault().Apply(f, c); err != nil {
		t.Fatalf("roundtrip: %v", err)
	}
	if diff := cmp.Diff(orig, f.Data); diff != "" {
		t.Errorf("image changed (-want +got):\n%s", diff)
	}
	if !strings.Contains(log.String(), "Round trip with hdr exposure 1: max abs") {
		t.Errorf("log %q lacks round trip message", log.String())
	}
}

func TestStatsAndScaleOffset(t *testing.T) {
	log := bytes.Buffer{}
	c := newTestContext(&log)
	f := fits.NewImageFromNaxisn([]int32{3}, []float32{0, 32768, 65535})
	if _, err := NewOpScaleOffset(1.0/65535, 0).Apply(f, c); err != nil {
		t.Fatalf("scaleOffset: %v", err)
	}
	if f.Stats.Max < 0.9999 || f.Stats.Max > 1.0001 {
		t.Errorf("max after scaling=%f; want 1", f.Stats.Max)
	}
	if NewOpScaleOffsetDefault().Active {
		t.Errorf("identity scaleOffset is active by default")
	}

	log.Reset()
	if _, err := NewOpStats(true).Apply(f, c); err != nil {
		t.Fatalf("stats: %v", err)
	}
	if !strings.HasPrefix(log.String(), "ID,File,Dimensions,Encoding,Min,Max") {
		t.Errorf("csv log %q lacks header", log.String())
	}
	if !strings.Contains(log.String(), ",3,linear,") {
		t.Errorf("csv log %q lacks dimensions and encoding", log.String())
	}

	// one header for many images, one line per image
	log.Reset()
	c.Log = nl.NewSyncWriter(&log)
	st := NewOpStats(true)
	promises := make([]ops.Promise, 16)
	for i := range promises {
		g := fits.NewImageFromNaxisn([]int32{3}, []float32{0, float32(i), 1})
		g.ID = i
		promises[i] = func() (*fits.Image, error) { return g, nil }
	}
	outs, err := st.MakePromises(promises, c)
	if err != nil {
		t.Fatalf("MakePromises: %v", err)
	}
	if _, err := ops.MaterializeAll(outs, 8, true); err != nil {
		t.Fatalf("MaterializeAll: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(log.String()), "\n")
	if len(lines) != len(promises)+1 {
		t.Fatalf("got %d csv lines; want %d:\n%s", len(lines), len(promises)+1, log.String())
	}
	if !strings.HasPrefix(lines[0], "ID,File,") {
		t.Errorf("first csv line %q is not the header", lines[0])
	}
	for _, l := range lines[1:] {
		if strings.HasPrefix(l, "ID,") || strings.Count(l, ",") != strings.Count(lines[0], ",") {
			t.Errorf("malformed csv line %q", l)
		}
	}
}

func TestUnmarshalBindsFields(t *testing.T) {
	in := `{"type":"seq","active":true,"steps":[
		{"type":"scaleOffset","scale":2},
		{"type":"tfForward","transfer":{"type":"hdr","exposure":4}},
		{"type":"tfRoundTrip","transfer":{"type":"srgb"}},
		{"type":"tfInverse"},
		{"type":"stats"}]}`
	var seq ops.OpSequence
	if err := json.Unmarshal([]byte(in), &seq); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	types := []string{}
	for _, s := range seq.Steps {
		types = append(types, s.GetType())
	}
	if diff := cmp.Diff([]string{"scaleOffset", "tfForward", "tfRoundTrip", "tfInverse", "stats"}, types); diff != "" {
		t.Fatalf("step types mismatch (-want +got):\n%s", diff)
	}
	so := seq.Steps[0].(*OpScaleOffset)
	if !so.Active || so.Scale != 2 || so.Offset != 0 {
		t.Errorf("scaleOffset %+v; want active, scale 2, offset 0", so)
	}
	inv := seq.Steps[3].(*OpInverse)
	if !inv.Active || inv.Transfer.Type != TypeAuto {
		t.Errorf("inverse %+v; want active auto", inv)
	}

	// the unmarshaled operator applies its own settings, not the defaults
	fwd := seq.Steps[1].(*OpForward)
	f := radianceImage()
	if _, err := fwd.OpUnaryBase.Apply(f, newTestContext(io.Discard)); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if want := transfer.NewHDR(4).Forward(100); f.Data[5] != want {
		t.Errorf("encoded 100=%f; want %f for exposure 4", f.Data[5], want)
	}
}

func TestEncodeDecodeFiles(t *testing.T) {
	dir := t.TempDir()
	in := radianceImage()
	in.Exposure = 120
	inName := filepath.Join(dir, "m31.fits")
	if err := in.WriteFile(inName, false); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	log := bytes.Buffer{}
	c := newTestContext(&log)
	enc := NewOpEncode(ops.NewOpLoadMany([]string{filepath.Join(dir, "*.fits")}), NewOpScaleOffsetDefault(),
		NewOpForward(transfer.Config{Type: "hdr", Exposure: 0.5}), ops.NewOpSave("%dir/%auto.hdr.fits.gz"))
	if err := ops.Run(enc, c); err != nil {
		t.Fatalf("encode: %v\n%s", err, log.String())
	}

	encName := filepath.Join(dir, "m31.hdr.fits.gz")
	encoded, err := fits.NewImageFromFile(encName, 0, io.Discard)
	if err != nil {
		t.Fatalf("reading encoded: %v", err)
	}
	if encoded.Exposure != 120 || encoded.Header.Strings[fits.KeyTransfer] != "hdr" {
		t.Errorf("encoded exposure %f transfer %q; want 120, hdr", encoded.Exposure, encoded.Header.Strings[fits.KeyTransfer])
	}
	if encoded.Stats.Max > 1 {
		t.Errorf("encoded max=%f; want at most 1", encoded.Stats.Max)
	}

	dec := NewOpDecode(ops.NewOpLoadMany([]string{encName}), NewOpInverseDefault(), ops.NewOpSave(filepath.Join(dir, "decoded.fits")))
	if err := ops.Run(dec, c); err != nil {
		t.Fatalf("decode: %v\n%s", err, log.String())
	}
	decoded, err := fits.NewImageFromFile(filepath.Join(dir, "decoded.fits"), 0, io.Discard)
	if err != nil {
		t.Fatalf("reading decoded: %v", err)
	}
	if diff := cmp.Diff(in.Data, decoded.Data, cmpopts.EquateApprox(1e-4, 1e-5)); diff != "" {
		t.Errorf("decoded mismatch (-want +got):\n%s", diff)
	}
	if len(decoded.Header.History) != 2 {
		t.Errorf("history %v; want forward and inverse entries", decoded.Header.History)
	}

	if _, err := os.Stat(filepath.Join(dir, "decoded.fits")); err != nil {
		t.Errorf("decoded file missing: %v", err)
	}
}
