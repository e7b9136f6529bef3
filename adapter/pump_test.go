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
	"bytes"
	"strings"

	"github.com/nabbar/gbe/wire"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("linePump", func() {
	It("emits one frame per line with sequence numbers from zero", func() {
		var got []wire.Frame
		err := linePump(strings.NewReader("1\n2\n3\n"), func(f wire.Frame) {
			got = append(got, f)
		})
		Expect(err).NotTo(HaveOccurred())

		Expect(got).To(HaveLen(3))
		for i, f := range got {
			Expect(f.Seq).To(BeEquivalentTo(i))
		}
		Expect(string(got[0].Payload)).To(Equal("1\n"))
		Expect(string(got[2].Payload)).To(Equal("3\n"))
	})

	It("flushes a trailing partial line as a final frame at EOF", func() {
		var got []wire.Frame
		err := linePump(strings.NewReader("complete\npartial"), func(f wire.Frame) {
			got = append(got, f)
		})
		Expect(err).NotTo(HaveOccurred())

		Expect(got).To(HaveLen(2))
		Expect(string(got[1].Payload)).To(Equal("partial"))
		Expect(got[1].Seq).To(BeEquivalentTo(1))
	})

	It("emits nothing for an empty stream", func() {
		count := 0
		err := linePump(strings.NewReader(""), func(wire.Frame) { count++ })
		Expect(err).NotTo(HaveOccurred())
		Expect(count).To(BeZero())
	})
})

var _ = Describe("rawPump", func() {
	It("passes bytes through verbatim with no framing", func() {
		var out bytes.Buffer
		err := rawPump(strings.NewReader("no\nboundaries\nhere"), func(b []byte) {
			out.Write(b)
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(out.String()).To(Equal("no\nboundaries\nhere"))
	})
})
