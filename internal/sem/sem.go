/*
 * MIT License
 *
 * Copyright (c) 2026 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package sem bounds the number of concurrent downstream writer goroutines
// a proxy runs at once, as a thin worker-slot wrapper over
// golang.org/x/sync/semaphore.
package sem

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Sem bounds concurrent workers to Weighted() permits, non-positive meaning
// unbounded.
type Sem struct {
	max int64
	w   *semaphore.Weighted
}

// New returns a Sem allowing up to max simultaneous workers. max <= 0 means
// unbounded (NewWorker never blocks).
func New(max int64) *Sem {
	s := &Sem{max: max}
	if max > 0 {
		s.w = semaphore.NewWeighted(max)
	}
	return s
}

// Weighted returns the configured concurrency bound.
func (s *Sem) Weighted() int64 {
	return s.max
}

// NewWorker blocks until a slot is free or ctx is done.
func (s *Sem) NewWorker(ctx context.Context) error {
	if s.w == nil {
		return nil
	}
	return s.w.Acquire(ctx, 1)
}

// NewWorkerTry acquires a slot without blocking, returning false if none is
// free.
func (s *Sem) NewWorkerTry() bool {
	if s.w == nil {
		return true
	}
	return s.w.TryAcquire(1)
}

// DeferWorker releases a slot acquired by NewWorker/NewWorkerTry.
func (s *Sem) DeferWorker() {
	if s.w != nil {
		s.w.Release(1)
	}
}
