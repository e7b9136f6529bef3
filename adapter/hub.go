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

package adapter

import (
	"net"
	"sync"
	"time"

	"github.com/nabbar/gbe/wire"
)

// sink is one accepted data-subscriber connection. Each sink owns a bounded
// mailbox and its own writer goroutine so a slow reader blocks only itself,
// never the child-output pump or its sibling subscribers.
type sink struct {
	conn net.Conn
	raw  bool
	mail chan wire.Frame
	done chan struct{}
}

const sinkMailboxSize = 256

// sinkDrainGrace bounds how long closeAll lets the writers flush the frames
// still queued in their mailboxes before their conns are forced closed.
const sinkDrainGrace = 1 * time.Second

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
		var err error
		if s.raw {
			_, err = s.conn.Write(f.Payload)
		} else {
			err = wire.WriteFrame(s.conn, f)
		}
		if err != nil {
			return
		}
	}
}

// offer enqueues f for delivery, dropping the sink instead of blocking the
// caller if its mailbox is full.
func (s *sink) offer(f wire.Frame) bool {
	select {
	case s.mail <- f:
		return true
	default:
		return false
	}
}

// close tears the sink down. The conn is closed too, so a writer blocked
// mid-Write on a stalled peer unwinds instead of pinning the caller.
func (s *sink) close() {
	select {
	case <-s.done:
	default:
		close(s.mail)
	}
	_ = s.conn.Close()
	<-s.done
}

// hub fans a single ordered child-output stream out to every live sink.
// Frames are delivered in the order they are broadcast, per source, to
// every subscriber.
type hub struct {
	mu    sync.Mutex
	sinks map[*sink]struct{}
}

func newHub() *hub {
	return &hub{sinks: make(map[*sink]struct{})}
}

func (h *hub) add(s *sink) {
	h.mu.Lock()
	h.sinks[s] = struct{}{}
	h.mu.Unlock()
	go s.run()
}

// broadcast delivers f to every currently live sink, dropping any sink whose
// mailbox is saturated rather than letting it stall the others.
func (h *hub) broadcast(f wire.Frame) {
	h.mu.Lock()
	dead := make([]*sink, 0)
	for s := range h.sinks {
		if !s.offer(f) {
			dead = append(dead, s)
			delete(h.sinks, s)
		}
	}
	h.mu.Unlock()

	for _, s := range dead {
		s.close()
	}
}

// closeAll tears down every live sink, used once the child exits and the
// final frame has been broadcast (Draining → Dead). Each writer first flushes
// the frames already queued in its mailbox and then closes its conn (EOF for
// the subscriber); a writer still busy after sinkDrainGrace has its conn
// closed under it.
func (h *hub) closeAll() {
	h.mu.Lock()
	sinks := make([]*sink, 0, len(h.sinks))
	for s := range h.sinks {
		sinks = append(sinks, s)
	}
	h.sinks = make(map[*sink]struct{})
	h.mu.Unlock()

	deadline := time.Now().Add(sinkDrainGrace)
	for _, s := range sinks {
		select {
		case <-s.done:
		default:
			close(s.mail)
		}
	}
	for _, s := range sinks {
		select {
		case <-s.done:
		case <-time.After(time.Until(deadline)):
			_ = s.conn.Close()
			<-s.done
		}
	}
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sinks)
}
