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
	"math"
	"testing"
)

func TestParseMode(t *testing.T) {
	tcs := []struct {
		in   string
		want Mode
		ok   bool
	}{
		{"linear", ModeLinear, true},
		{"SRGB", ModeSRGB, true},
		{" hdr ", ModeHDR, true},
		{"Hdr", ModeHDR, true},
		{"pq", 0, false},
		{"", 0, false},
	}
	for _, tc := range tcs {
		got, err := ParseMode(tc.in)
		if (err == nil) != tc.ok {
			t.Errorf("ParseMode(%q) err=%v; want ok=%v", tc.in, err, tc.ok)
			continue
		}
		if tc.ok && got != tc.want {
			t.Errorf("ParseMode(%q)=%v; want %v", tc.in, got, tc.want)
		}
	}
	if s := Mode(7).String(); s != "Mode(7)" {
		t.Errorf("Mode(7).String()=%q; want Mode(7)", s)
	}
}

func TestNew(t *testing.T) {
	for _, m := range []Mode{ModeLinear, ModeSRGB, ModeHDR} {
		f, err := New(m, 2)
		if err != nil {
			t.Fatalf("New(%v): %v", m, err)
		}
		if got, ok := ModeOf(f); !ok || got != m {
			t.Errorf("ModeOf(New(%v))=%v,%v; want %v,true", m, got, ok, m)
		}
	}
	if _, err := New(Mode(42), 1); err == nil {
		t.Errorf("New(Mode(42)) succeeded; want error")
	}
	if e := ExposureOf(NewHDR(2.5)); e != 2.5 {
		t.Errorf("ExposureOf(HDR(2.5))=%g; want 2.5", e)
	}
	if e := ExposureOf(SRGB{}); e != 1 {
		t.Errorf("ExposureOf(SRGB)=%g; want 1", e)
	}
}

func TestSelect(t *testing.T) {
	tcs := []struct {
		hdr, srgb bool
		want      Mode
	}{
		{true, false, ModeHDR},
		{true, true, ModeHDR},
		{false, true, ModeLinear},
		{false, false, ModeSRGB},
	}
	for _, tc := range tcs {
		f := Select(tc.hdr, tc.srgb, 3)
		if got, _ := ModeOf(f); got != tc.want {
			t.Errorf("Select(hdr=%v, srgb=%v)=%v; want %v", tc.hdr, tc.srgb, got, tc.want)
		}
	}
	if e := ExposureOf(Select(true, false, 3)); e != 3 {
		t.Errorf("Select(hdr) exposure=%g; want 3", e)
	}
}

type halve struct{}

func (halve) Forward(x float32) float32 { return x / 2 }
func (halve) Inverse(x float32) float32 { return x * 2 }

func TestDescribe(t *testing.T) {
	tcs := []struct {
		f    Function
		want string
	}{
		{Linear{}, "linear"},
		{SRGB{}, "srgb"},
		{NewHDR(2), "hdr exposure 2"},
		{halve{}, "transfer.halve"},
	}
	for _, tc := range tcs {
		if got := Describe(tc.f); got != tc.want {
			t.Errorf("Describe(%T)=%q; want %q", tc.f, got, tc.want)
		}
	}
}

func TestConfigUnmarshalDefaults(t *testing.T) {
	tcs := []struct {
		in   string
		want Config
	}{
		{`{}`, Config{Type: "hdr", Exposure: 1}},
		{`{"type":"srgb"}`, Config{Type: "srgb", Exposure: 1}},
		{`{"exposure":4}`, Config{Type: "hdr", Exposure: 4}},
		{`{"type":"linear","exposure":0.5}`, Config{Type: "linear", Exposure: 0.5}},
	}
	for _, tc := range tcs {
		var c Config
		if err := json.Unmarshal([]byte(tc.in), &c); err != nil {
			t.Fatalf("Unmarshal(%s): %v", tc.in, err)
		}
		if c != tc.want {
			t.Errorf("Unmarshal(%s)=%+v; want %+v", tc.in, c, tc.want)
		}
	}
}

func TestConfigValidate(t *testing.T) {
	tcs := []struct {
		c  Config
		ok bool
	}{
		{Config{"hdr", 1}, true},
		{Config{"hdr", 1e-3}, true},
		{Config{"hdr", 0}, false},
		{Config{"hdr", -2}, false},
		{Config{"hdr", float32(math.Inf(1))}, false},
		{Config{"hdr", float32(math.NaN())}, false},
		{Config{"srgb", 0}, true},
		{Config{"linear", -1}, true},
		{Config{"log", 1}, false},
	}
	for _, tc := range tcs {
		err := tc.c.Validate()
		if (err == nil) != tc.ok {
			t.Errorf("Validate(%+v)=%v; want ok=%v", tc.c, err, tc.ok)
		}
	}
}

func TestConfigBuild(t *testing.T) {
	f, err := Config{Type: "hdr", Exposure: 2}.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got, want := f.Forward(100), NewHDR(2).Forward(100); got != want {
		t.Errorf("built Forward(100)=%g; want %g", got, want)
	}
	c, err := ConfigOf(f)
	if err != nil || c != (Config{Type: "hdr", Exposure: 2}) {
		t.Errorf("ConfigOf=%+v,%v; want hdr exposure 2", c, err)
	}
	if _, err := ConfigOf(halve{}); err == nil {
		t.Errorf("ConfigOf(halve) succeeded; want error")
	}
	if _, err := (Config{Type: "hdr", Exposure: 0}).Build(); err == nil {
		t.Errorf("Build with exposure 0 succeeded; want error")
	}
}
