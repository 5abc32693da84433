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

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"strings"
	"time"

	nl "github.com/mlnoga/radiance/internal"
	"github.com/mlnoga/radiance/internal/ops"
	"github.com/mlnoga/radiance/internal/ops/encode"
	"github.com/mlnoga/radiance/internal/rest"
	"github.com/mlnoga/radiance/internal/transfer"
)

const version = "0.1.0"

var cpuprofile = flag.String("cpuprofile", "", "write cpu profile to `file`")
var memprofile = flag.String("memprofile", "", "write memory profile to `file`")

var tf = flag.String("tf", "", "transfer function, one of linear, srgb or hdr. Blank selects via -hdr and -srgb. For inverse, blank uses the one recorded in the image header")
var exposure = flag.Float64("exposure", 1, "exposure for the hdr transfer function, scales radiance before log compression")
var hdr = flag.Bool("hdr", false, "source is high dynamic range linear radiance, select hdr transfer function")
var srgb = flag.Bool("srgb", false, "source is already sRGB encoded, select linear transfer function")

var scale = flag.Float64("scale", 1, "multiply pixel values by this factor before encoding")
var offset = flag.Float64("offset", 0, "add this offset to pixel values before encoding, after scaling")

var out = flag.String("out", "%auto", "save output to `file`. `%auto` writes next to the input, appending the transfer function and .fits to its name. In patterns, %dir inserts the input directory, %auto the input name without extension and %d the image id")
var jpg = flag.String("jpg", "", "save 8bit preview of output as JPEG to `file`. `%auto` replaces the suffix of the output file with .jpg")
var log = flag.String("log", "", "save log output to `file`")
var csv = flag.Bool("csv", false, "print statistics as comma-separated values")
var replaceNaNs = flag.Bool("replaceNaNs", false, "write NaN pixels as zero in FITS output")

var curveN = flag.Int("curveN", 33, "number of points to print for the curve command")
var curveMax = flag.Float64("curveMax", 65535, "maximum input value for the curve command")

var addr = flag.String("addr", ":8080", "listen address for the serve command")
var chroot = flag.String("chroot", "", "change filesystem root to `dir` before serving, requires root")
var setuid = flag.Int("setuid", -1, "change user id before serving, -1 to keep")

func main() {
	logWriter := nl.Log
	start := time.Now()
	flag.Usage = func() {
		fmt.Fprintf(os.Stdout, `Radiance Copyright (c) 2021 Markus L. Noga
This program comes with ABSOLUTELY NO WARRANTY.
This is free software, and you are welcome to redistribute it under certain conditions.
Refer to https://www.gnu.org/licenses/gpl-3.0.en.html for details.

Usage: %s [-flag value] (forward|inverse|roundtrip|stats|curve|serve|legal|version) (img0.fits ... imgn.fits)

Commands:
  forward   Encode linear input images with the transfer function
  inverse   Decode encoded input images back to linear radiance
  roundtrip Encode and decode input images, and report deviations
  stats     Show input image statistics and encoding
  curve     Print the forward curve of the transfer function as CSV
  serve     Serve the REST API
  legal     Show license and attribution information
  version   Show version information

Flags:
`, os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *log != "" {
		if err := nl.LogAlsoToFile(*log); err != nil {
			nl.LogFatalf("Unable to open logfile '%s': %s\n", *log, err.Error())
		}
	}
	defer nl.LogSync()

	// Enable CPU profiling if flagged
	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			nl.LogFatal("Could not create CPU profile: ", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			nl.LogFatal("Could not start CPU profile: ", err)
		}
		defer pprof.StopCPUProfile()
	}

	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
		return
	}

	var err error
	switch args[0] {
	case "forward", "inverse", "roundtrip", "stats":
		nl.LogPrintf("Running on %v\n", nl.NewSysInfo())
		err = cmdImages(args[0], args[1:], logWriter)

	case "curve":
		err = cmdCurve(logWriter)

	case "serve":
		if err = rest.MakeSandbox(*chroot, *setuid, logWriter); err == nil {
			err = rest.Serve(*addr, version)
		}

	case "legal":
		nl.LogPrint(legal)

	case "version":
		nl.LogPrintln("Version", version)

	case "help", "?":
		flag.Usage()

	default:
		fmt.Fprintf(logWriter, "Unknown command '%s'\n\n", args[0])
		flag.Usage()
		return
	}

	elapsed := time.Since(start)
	fmt.Fprintf(logWriter, "\nDone after %v\n", elapsed)

	// Store memory profile if flagged
	if *memprofile != "" {
		f, err := os.Create(*memprofile)
		if err != nil {
			nl.LogFatal("Could not create memory profile: ", err)
		}
		defer f.Close()
		runtime.GC() // get up-to-date statistics
		if err := pprof.Lookup("allocs").WriteTo(f, 0); err != nil {
			nl.LogFatal("Could not write allocation profile: ", err)
		}
	}

	if err != nil {
		fmt.Fprintf(logWriter, "Error: %s\n", err.Error())
		nl.LogSync()
		os.Exit(-1)
	}
}

// Returns the transfer function settings from the command line flags
func transferConfig() (transfer.Config, error) {
	if *tf != "" {
		c := transfer.Config{Type: *tf, Exposure: float32(*exposure)}
		return c, c.Validate()
	}
	return transfer.ConfigOf(transfer.Select(*hdr, *srgb, float32(*exposure)))
}

// Builds and runs the operator sequence for the image commands
func cmdImages(cmd string, files []string, logWriter io.Writer) error {
	if len(files) == 0 {
		return fmt.Errorf("%s command needs at least one input file", cmd)
	}
	loadMany := ops.NewOpLoadMany(files)

	var seq *ops.OpSequence
	switch cmd {
	case "forward":
		tc, err := transferConfig()
		if err != nil {
			return err
		}
		seq = encode.NewOpEncode(loadMany,
			encode.NewOpScaleOffset(float32(*scale), float32(*offset)),
			encode.NewOpForward(tc),
			newOpSave(outPattern(tc.Type)),
		)
	case "inverse":
		tc := transfer.Config{Type: encode.TypeAuto, Exposure: float32(*exposure)}
		if *tf != "" {
			tc.Type = *tf
			if err := tc.Validate(); err != nil {
				return err
			}
		}
		seq = encode.NewOpDecode(loadMany, encode.NewOpInverse(tc), newOpSave(outPattern(transfer.ModeLinear.String())))
	case "roundtrip":
		tc, err := transferConfig()
		if err != nil {
			return err
		}
		seq = ops.NewOpSequence(loadMany, encode.NewOpRoundTrip(tc))
	case "stats":
		seq = ops.NewOpSequence(loadMany, encode.NewOpStats(*csv))
	}
	if cmd == "forward" || cmd == "inverse" {
		if p := jpgPattern(); p != "" {
			seq.Append(ops.NewOpSave(p))
		}
	}

	m, err := json.MarshalIndent(seq, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintf(logWriter, "\nProcessing with these settings:\n%s\n", string(m))

	c := ops.NewContext(logWriter)
	c.AllowAnyPath = true
	return ops.Run(seq, c)
}

func newOpSave(pattern string) *ops.OpSave {
	op := ops.NewOpSave(pattern)
	op.ReplaceNaNs = *replaceNaNs
	return op
}

// Expands %auto in the output flag to a name derived from the input and the transfer function
func outPattern(mode string) string {
	if *out == "%auto" {
		return "%dir/%auto." + mode + ".fits"
	}
	return *out
}

func jpgPattern() string {
	if *jpg != "%auto" {
		return *jpg
	}
	o := *out
	if o == "%auto" {
		return "%dir/%auto.jpg"
	}
	o = strings.TrimSuffix(o, ".gz")
	return strings.TrimSuffix(o, filepath.Ext(o)) + ".jpg"
}

// Prints the forward curve of the selected transfer function
func cmdCurve(logWriter io.Writer) error {
	tc, err := transferConfig()
	if err != nil {
		return err
	}
	f, err := tc.Build()
	if err != nil {
		return err
	}
	xs, ys := transfer.Curve(f, 0, *curveMax, *curveN)
	if xs == nil {
		return fmt.Errorf("curve needs at least 2 points, got %d", *curveN)
	}
	fmt.Fprintf(logWriter, "# %s\nx,forward\n", transfer.Describe(f))
	for i := range xs {
		fmt.Fprintf(logWriter, "%g,%g\n", xs[i], ys[i])
	}
	return nil
}
