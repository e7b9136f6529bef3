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

	"github.com/nabbar/gbe/wire"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("hub", func() {
	It("delivers broadcast frames to every sink in order", func() {
		h := newHub()

		type reader struct {
			frames chan wire.Frame
		}

		attach := func() *reader {
			client, server := net.Pipe()
			h.add(newSink(server, false))

			r := &reader{frames: make(chan wire.Frame, 16)}
			go func() {
				defer close(r.frames)
				for {
					f, err := wire.ReadFrame(client)
					if err != nil {
						return
					}
					r.frames <- f
				}
			}()
			return r
		}

		a := attach()
		b := attach()
		Expect(h.count()).To(Equal(2))

		for i := 0; i < 3; i++ {
			h.broadcast(wire.Frame{Seq: uint64(i), Payload: []byte{byte('a' + i)}})
		}
		h.closeAll()

		for _, r := range []*reader{a, b} {
			var got []wire.Frame
			for f := range r.frames {
				got = append(got, f)
			}
			Expect(got).To(HaveLen(3))
			for i, f := range got {
				Expect(f.Seq).To(BeEquivalentTo(i))
				Expect(f.Payload).To(Equal([]byte{byte('a' + i)}))
			}
		}
		Expect(h.count()).To(BeZero())
	})

	It("drops a sink whose mailbox saturates without stalling the broadcaster", func() {
		h := newHub()

		// The peer end is never read, so the sink's writer goroutine blocks on
		// its first write and the mailbox eventually fills.
		client, server := net.Pipe()
		defer client.Close()
		h.add(newSink(server, false))

		for i := 0; i < sinkMailboxSize+2; i++ {
			h.broadcast(wire.Frame{Seq: uint64(i), Payload: []byte("x")})
		}

		Expect(h.count()).To(BeZero())
	})

	It("writes raw payloads without a frame header when the sink is raw", func() {
		h := newHub()
		client, server := net.Pipe()
		h.add(newSink(server, true))

		done := make(chan []byte, 1)
		go func() {
			buf := make([]byte, 16)
			n, _ := client.Read(buf)
			done <- buf[:n]
		}()

		h.broadcast(wire.Frame{Payload: []byte("raw bytes")})
		Expect(<-done).To(Equal([]byte("raw bytes")))
		h.closeAll()
	})
})
