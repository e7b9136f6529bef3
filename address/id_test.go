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

package address_test

import (
	. "github.com/nabbar/gbe/address"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ToolID", func() {
	It("renders as <pid>-<zero-padded-three-digit-seq>", func() {
		id := NewToolID(4242, 7)
		Expect(id.String()).To(Equal("4242-007"))
	})
})

var _ = Describe("Capabilities", func() {
	It("treats raw and pty as the two reserved tokens", func() {
		caps := NewCapabilities("raw", "color")
		Expect(caps.Raw()).To(BeTrue())
		Expect(caps.PTY()).To(BeFalse())
		Expect(caps.Has("color")).To(BeTrue())
	})

	It("skips empty tokens and round-trips the rest through Tokens", func() {
		caps := NewCapabilities("pty", "", "color")
		Expect(caps.Tokens()).To(ConsistOf("pty", "color"))
	})
})
