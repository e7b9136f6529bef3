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

package wire_test

import (
	"bytes"

	. "github.com/nabbar/gbe/wire"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ControlCodec", func() {
	It("round-trips every control message variant", func() {
		buf := &bytes.Buffer{}
		codec := NewControlCodec(buf, 0)

		messages := []Message{
			Connect([]string{"raw", "pty"}),
			ConnectAck("1234-001", "unix:///tmp/gbe-1234-001.sock"),
			Subscribe("1234-001"),
			SubscribeAck("unix:///tmp/gbe-proxy-1234-001-abcd1234.sock", []string{"raw"}),
			Unsubscribe("1234-001"),
			FlowControl("1234-001", FlowBackpressure),
			QueryCapabilities("1234-001"),
			CapabilitiesResponse([]string{"pty"}),
			ErrorMsg("unknown_tool", "no such tool"),
			Disconnect(),
		}

		for _, m := range messages {
			Expect(codec.Encode(m)).To(Succeed())
		}

		for _, want := range messages {
			got, err := codec.Decode()
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(want))
		}
	})

	It("rejects a frame above the configured limit", func() {
		buf := &bytes.Buffer{}
		codec := NewControlCodec(buf, 8)

		err := codec.Encode(Connect([]string{"raw"}))
		Expect(err).To(HaveOccurred())
	})

	It("decodes an unrecognised tag without desyncing the stream, leaving variant validation to the caller", func() {
		buf := &bytes.Buffer{}
		codec := NewControlCodec(buf, 0)

		Expect(codec.Encode(Message{Tag: "bogus"})).To(Succeed())
		Expect(codec.Encode(Disconnect())).To(Succeed())

		first, err := codec.Decode()
		Expect(err).NotTo(HaveOccurred())
		Expect(first.Tag).To(BeEquivalentTo("bogus"))

		second, err := codec.Decode()
		Expect(err).NotTo(HaveOccurred())
		Expect(second.Tag).To(Equal(TagDisconnect))
	})

	It("reports unknown_variant for a frame with no tag at all", func() {
		buf := &bytes.Buffer{}
		codec := NewControlCodec(buf, 0)

		Expect(codec.Encode(Message{})).To(Succeed())

		_, err := codec.Decode()
		Expect(err).To(HaveOccurred())
		Expect(err).To(MatchError(ContainSubstring("unknown_variant")))
	})
})
