// Copyright (c) 2026 Uber Technologies, Inc.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

// Package sync provides synchronization helpers that the standard library
// does not.
package sync

import "sync"

// KeyedMutex serializes callers that share a key while letting callers
// with different keys proceed in parallel. Entries are reference counted
// and removed once nobody holds or waits on them, so a long-running process
// that touches many ports does not grow without bound.
//
// The zero value is ready to use.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[int]*keyedEntry
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

// Lock acquires the lock for key and returns the function that releases it.
func (km *KeyedMutex) Lock(key int) (unlock func()) {
	km.mu.Lock()
	if km.locks == nil {
		km.locks = make(map[int]*keyedEntry)
	}
	e, ok := km.locks[key]
	if !ok {
		e = &keyedEntry{}
		km.locks[key] = e
	}
	e.refs++
	km.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()

		km.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(km.locks, key)
		}
		km.mu.Unlock()
	}
}

// Len returns the number of keys currently held or waited on.
func (km *KeyedMutex) Len() int {
	km.mu.Lock()
	defer km.mu.Unlock()
	return len(km.locks)
}
