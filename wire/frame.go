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
	"io"

	"github.com/nabbar/gbe/internal/wireerr"
)

// FrameHeaderSize is the on-wire size of a data frame header: a u32 LE
// length followed by a u64 LE sequence number.
const FrameHeaderSize = 4 + 8

// Frame is one data-channel unit in framed mode.
type Frame struct {
	Seq     uint64
	Payload []byte
}

// WriteFrame writes the 12-byte header and payload as a single buffered
// write, so the frame reaches the kernel whole from the writer's
// perspective.
func WriteFrame(w io.Writer, f Frame) error {
	buf := make([]byte, FrameHeaderSize+len(f.Payload))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(f.Payload)))
	binary.LittleEndian.PutUint64(buf[4:12], f.Seq)
	copy(buf[12:], f.Payload)

	_, err := w.Write(buf)
	return err
}

// ReadFrame reads exactly one header then exactly that many payload bytes.
func ReadFrame(r io.Reader) (Frame, error) {
	var hdr [FrameHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Frame{}, err
	}

	length := binary.LittleEndian.Uint32(hdr[0:4])
	seq := binary.LittleEndian.Uint64(hdr[4:12])

	payload := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return Frame{}, wireerr.Wrap(wireerr.TruncatedFrame, err)
		}
	}

	return Frame{Seq: seq, Payload: payload}, nil
}
