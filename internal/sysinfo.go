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

package internal

import (
	"fmt"
	"runtime"

	"github.com/klauspost/cpuid"
	"github.com/pbnjay/memory"
)

// Host information for the startup banner and the info endpoint
type SysInfo struct {
	CPU           string `json:"cpu"`
	PhysicalCores int    `json:"physicalCores"`
	LogicalCores  int    `json:"logicalCores"`
	AVX2          bool   `json:"avx2"`
	MemoryMB      int    `json:"memoryMB"`
	MaxThreads    int    `json:"maxThreads"`
	GoVersion     string `json:"goVersion"`
}

func NewSysInfo() SysInfo {
	return SysInfo{
		CPU:           cpuid.CPU.BrandName,
		PhysicalCores: cpuid.CPU.PhysicalCores,
		LogicalCores:  cpuid.CPU.LogicalCores,
		AVX2:          cpuid.CPU.AVX2(),
		MemoryMB:      int(memory.TotalMemory() / 1024 / 1024),
		MaxThreads:    runtime.GOMAXPROCS(0),
		GoVersion:     runtime.Version(),
	}
}

func (s SysInfo) String() string {
	return fmt.Sprintf("%s, %d physical and %d logical cores, AVX2 %v, %d MiB memory, %d threads, %s",
		s.CPU, s.PhysicalCores, s.LogicalCores, s.AVX2, s.MemoryMB, s.MaxThreads, s.GoVersion)
}
