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

// Package proxy is the standalone tee process: it pulls frames from one
// upstream data socket and duplicates them to every live downstream
// subscriber, watching for per-subscriber backpressure.
package proxy

import "time"

// Config is the proxy's invocation contract: --upstream, --listen, --raw,
// and an optional --broker for FlowControl reporting.
type Config struct {
	Upstream string
	Listen   string
	Raw      bool
	Broker   string // empty disables FlowControl reporting

	FrameLimit uint32

	ConnectRetries    int
	ConnectBackoffMin time.Duration
	ConnectBackoffMax time.Duration

	// BackpressureLatency is the per-write threshold beyond which a
	// downstream is considered to be applying backpressure.
	BackpressureLatency time.Duration
	// BackpressureBudget is the per-downstream queued-byte budget; exceeding
	// it is the other backpressure trigger.
	BackpressureBudget int64

	// MaxDownstreams bounds concurrent downstream writer goroutines;
	// connections accepted beyond the bound are closed immediately.
	// Non-positive means unbounded.
	MaxDownstreams int64
}

func DefaultConfig() Config {
	return Config{
		ConnectRetries:      3,
		ConnectBackoffMin:   50 * time.Millisecond,
		ConnectBackoffMax:   400 * time.Millisecond,
		BackpressureLatency: 100 * time.Millisecond,
		BackpressureBudget:  4 << 20,
		MaxDownstreams:      64,
	}
}
