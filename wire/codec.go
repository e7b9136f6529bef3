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

package wire

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"github.com/nabbar/gbe/internal/wireerr"
)

// DefaultFrameLimit is the default oversize cutoff for a single control
// envelope.
const DefaultFrameLimit = 1 << 20 // 1 MiB

// ControlCodec reads and writes length-delimited control envelopes on one
// connection. It is not safe for concurrent Encode calls from multiple
// goroutines without external synchronization; callers serialize control
// writes per link, matching the per-link strict-ordering guarantee.
type ControlCodec struct {
	rw    io.ReadWriter
	limit uint32
}

// NewControlCodec wraps rw with the given oversize limit (DefaultFrameLimit
// when limit is 0).
func NewControlCodec(rw io.ReadWriter, limit uint32) *ControlCodec {
	if limit == 0 {
		limit = DefaultFrameLimit
	}
	return &ControlCodec{rw: rw, limit: limit}
}

// Encode writes one envelope: a 4-byte length prefix followed by the JSON
// body, as a single buffered write so the frame is delivered whole or not
// at all from the writer's perspective.
func (c *ControlCodec) Encode(m Message) error {
	body, err := json.Marshal(m)
	if err != nil {
		return err
	}
	if uint32(len(body)) > c.limit {
		return wireerr.New(wireerr.FrameTooLarge, fmt.Sprintf("control envelope %d bytes exceeds limit %d", len(body), c.limit))
	}

	buf := make([]byte, 4+len(body))
	binary.LittleEndian.PutUint32(buf[:4], uint32(len(body)))
	copy(buf[4:], body)

	_, err = c.rw.Write(buf)
	return err
}

// Decode reads one envelope. Partial reads on the stream are accumulated
// internally by io.ReadFull; an oversize length prefix is reported as
// FrameTooLarge without attempting to read the body, an unparseable body as
// UnknownVariant. Both are fatal for the link.
func (c *ControlCodec) Decode() (Message, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(c.rw, lenBuf[:]); err != nil {
		return Message{}, err
	}

	n := binary.LittleEndian.Uint32(lenBuf[:])
	if n > c.limit {
		return Message{}, wireerr.New(wireerr.FrameTooLarge, fmt.Sprintf("control envelope %d bytes exceeds limit %d", n, c.limit))
	}

	body := make([]byte, n)
	if _, err := io.ReadFull(c.rw, body); err != nil {
		return Message{}, wireerr.Wrap(wireerr.TruncatedFrame, err)
	}

	var m Message
	if err := json.Unmarshal(body, &m); err != nil {
		return Message{}, wireerr.Wrap(wireerr.UnknownVariant, err)
	}
	if m.Tag == "" {
		return Message{}, wireerr.New(wireerr.UnknownVariant, "missing tag")
	}

	return m, nil
}
