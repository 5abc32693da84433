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

package rest

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"
	nl "github.com/mlnoga/radiance/internal"
	"github.com/mlnoga/radiance/internal/ops"
	_ "github.com/mlnoga/radiance/internal/ops/encode" // registers the transfer function operators
	"github.com/mlnoga/radiance/internal/transfer"
)

// Maximum number of values accepted per forward or inverse request
const MaxValues = 1 << 20

// Listens and serves the API on the given address, e.g. ":8080"
func Serve(addr, version string) error {
	return NewRouter(version).Run(addr)
}

// Creates the router with all API endpoints
func NewRouter(version string) *gin.Engine {
	r := gin.Default()
	api := r.Group("/api")
	{
		v1 := api.Group("/v1")
		{
			v1.GET("/ping", getPing)
			v1.GET("/info", getInfo(version))
			v1.POST("/forward", postValues(true))
			v1.POST("/inverse", postValues(false))
			v1.POST("/run", postRun)
		}
	}
	return r
}

func getPing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "pong",
	})
}

func getInfo(version string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version": version,
			"system":  nl.NewSysInfo(),
			"modes":   []string{transfer.ModeLinear.String(), transfer.ModeSRGB.String(), transfer.ModeHDR.String()},
		})
	}
}

type postValuesArgs struct {
	Transfer transfer.Config `json:"transfer"`
	Values   []float32       `json:"values" binding:"required"`
}

type postValuesResult struct {
	Transfer  string     `json:"transfer"`
	Values    []*float32 `json:"values"` // nil for NaN or Inf, which JSON cannot represent
	NonFinite int        `json:"nonFinite"`
}

// Applies the forward or inverse transfer function to an array of values
func postValues(forward bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		args := postValuesArgs{Transfer: transfer.NewConfigDefault()}
		if err := c.ShouldBind(&args); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if len(args.Values) > MaxValues {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("too many values, maximum is %d", MaxValues)})
			return
		}
		tf, err := args.Transfer.Build()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if forward {
			transfer.ForwardSlice(tf, args.Values)
		} else {
			transfer.InverseSlice(tf, args.Values)
		}
		c.JSON(http.StatusOK, toResult(tf, args.Values))
	}
}

func toResult(tf transfer.Function, values []float32) postValuesResult {
	res := postValuesResult{
		Transfer: transfer.Describe(tf),
		Values:   make([]*float32, len(values)),
	}
	for i := range values {
		if v := values[i]; v != v || math.IsInf(float64(v), 0) {
			res.NonFinite++
			continue
		}
		res.Values[i] = &values[i]
	}
	return res
}

func printArgs(logWriter io.Writer, prefix, suffix string, args interface{}) error {
	m, err := json.MarshalIndent(args, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintf(logWriter, "%s%s%s", prefix, string(m), suffix)
	return nil
}

type postRunArgs struct {
	FilePatterns []string        `json:"filePatterns" binding:"required"`
	Sequence     json.RawMessage `json:"sequence" binding:"required"`
}

// Loads the files matching the patterns, and applies the given operator to
// each of them. Streams the log as plain text
func postRun(c *gin.Context) {
	var args postRunArgs
	if err := c.ShouldBind(&args); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	op, err := ops.UnmarshalOperator(args.Sequence)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	header := c.Writer.Header()
	header.Set("Content-Type", "text/plain")
	c.Writer.WriteHeader(http.StatusOK)
	logWriter := nl.NewSyncWriter(c.Writer)

	seq := ops.NewOpSequence(ops.NewOpLoadMany(args.FilePatterns), op)
	if err := printArgs(logWriter, "Arguments:\n", "\n", seq); err != nil {
		fmt.Fprintf(logWriter, "Error printing arguments: %s\n", err.Error())
		return
	}

	if err := ops.Run(seq, ops.NewContext(logWriter)); err != nil {
		fmt.Fprintf(logWriter, "error: %s\n", err.Error())
	}
	c.Writer.Flush()
}
