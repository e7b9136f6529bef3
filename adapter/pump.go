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
	"bufio"
	"io"

	"github.com/nabbar/gbe/wire"
)

// linePump reads r (the child's combined stdout+stderr stream, in arrival
// order) and invokes emit once per line boundary, assigning sequence
// numbers starting at 0 and incrementing by one per frame regardless of
// how many subscribers are attached.
//
// Raw mode callers should not use linePump: they copy bytes straight
// through as they arrive, preserving no boundary beyond what the reader
// hands back (see rawPump).
func linePump(r io.Reader, emit func(wire.Frame)) error {
	br := bufio.NewReaderSize(r, 64*1024)
	var seq uint64

	for {
		line, err := br.ReadBytes('\n')
		if len(line) > 0 {
			payload := make([]byte, len(line))
			copy(payload, line)
			emit(wire.Frame{Seq: seq, Payload: payload})
			seq++
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}

// rawPump streams bytes verbatim as they are read, with no frame header and
// no sequence numbers, for tools that advertise the raw capability.
func rawPump(r io.Reader, emit func([]byte)) error {
	buf := make([]byte, 64*1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			emit(chunk)
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}
