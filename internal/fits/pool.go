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

package fits

import (
	"sync"
)

// Pools of constant sized arrays of a given type, to reduce memory allocation overhead
// when many images are read or written concurrently
type sizedPool[T any] struct {
	sync.RWMutex
	m map[int]*sync.Pool
}

func newSizedPool[T any]() *sizedPool[T] {
	return &sizedPool[T]{m: make(map[int]*sync.Pool)}
}

// Returns a pool for arrays of the given size
func (p *sizedPool[T]) forSize(size int) *sync.Pool {
	p.RLock()
	pool := p.m[size]
	p.RUnlock()
	if pool != nil {
		return pool
	}
	p.Lock()
	defer p.Unlock()
	if pool = p.m[size]; pool == nil {
		pool = &sync.Pool{
			New: func() interface{} {
				return make([]T, size)
			},
		}
		p.m[size] = pool
	}
	return pool
}

// Retrieves an array of given size from the pool
func (p *sizedPool[T]) Get(size int) []T {
	return p.forSize(size).Get().([]T)
}

// Returns an array to the pool
func (p *sizedPool[T]) Put(arr []T) {
	p.forSize(cap(arr)).Put(arr[:cap(arr)])
}

// Buffers for pixel data IO
var poolByte = newSizedPool[byte]()
