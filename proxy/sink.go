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

package proxy

import (
	"net"
	"sync/atomic"
	"time"

	"github.com/nabbar/gbe/wire"
)

const sinkMailboxSize = 256

// sink is one downstream subscriber. It samples its own write latency and
// tracks queued bytes so the proxy can detect backpressure without the
// upstream pump ever blocking on it directly.
type sink struct {
	conn net.Conn
	raw  bool

	mail chan wire.Frame
	done chan struct{}

	queuedBytes atomic.Int64
	lastLatency atomic.Int64 // nanoseconds
	droppedSelf atomic.Bool  // set once this sink has been dropped
}

func newSink(conn net.Conn, raw bool) *sink {
	return &sink{
		conn: conn,
		raw:  raw,
		mail: make(chan wire.Frame, sinkMailboxSize),
		done: make(chan struct{}),
	}
}

func (s *sink) run() {
	defer close(s.done)
	defer s.conn.Close()

	for f := range s.mail {
		s.queuedBytes.Add(-int64(len(f.Payload)))

		start := time.Now()
		var err error
		if s.raw {
			_, err = s.conn.Write(f.Payload)
		} else {
			err = wire.WriteFrame(s.conn, f)
		}
		s.lastLatency.Store(int64(time.Since(start)))

		if err != nil {
			return
		}
	}
}

// offer enqueues f, reporting the byte budget it now occupies. It never
// blocks: a full mailbox means the sink is already far behind and the
// caller should drop it.
func (s *sink) offer(f wire.Frame) (accepted bool, queuedBytes int64) {
	select {
	case s.mail <- f:
		q := s.queuedBytes.Add(int64(len(f.Payload)))
		return true, q
	default:
		return false, s.queuedBytes.Load()
	}
}

// overPressure reports whether this sink currently exceeds either
// backpressure trigger.
func (s *sink) overPressure(cfg Config) bool {
	if s.queuedBytes.Load() > cfg.BackpressureBudget {
		return true
	}
	if time.Duration(s.lastLatency.Load()) > cfg.BackpressureLatency {
		return true
	}
	return false
}

// close tears the sink down. Closing the conn as well as the mailbox matters:
// a writer blocked mid-Write only unblocks when the conn goes away.
func (s *sink) close() {
	if s.droppedSelf.Swap(true) {
		<-s.done
		return
	}
	close(s.mail)
	_ = s.conn.Close()
	<-s.done
}
