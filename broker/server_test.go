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

package broker_test

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"time"

	. "github.com/nabbar/gbe/broker"

	"github.com/nabbar/gbe/wire"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// newTestServer starts a broker on a scratch socket path and returns a
// dialer for the control socket plus a cancel func that drains it.
func newTestServer() (dial func() net.Conn, stop func()) {
	dir, err := os.MkdirTemp("", "gbe-broker-test-*")
	Expect(err).NotTo(HaveOccurred())

	cfg := DefaultConfig()
	cfg.ListenPath = filepath.Join(dir, "router.sock")
	cfg.DataDir = dir

	srv := New(cfg, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())

	go func() { _ = srv.Run(ctx) }()

	// Run binds synchronously before accepting, so the socket file appearing
	// means it is safe to dial.
	Eventually(func() error {
		_, err := os.Stat(cfg.ListenPath)
		return err
	}, 2*time.Second, 10*time.Millisecond).Should(Succeed())

	dial = func() net.Conn {
		conn, err := net.Dial("unix", cfg.ListenPath)
		Expect(err).NotTo(HaveOccurred())
		return conn
	}
	stop = func() {
		cancel()
		_ = os.RemoveAll(dir)
	}
	return dial, stop
}

var _ = Describe("Server", func() {
	var (
		dial func() net.Conn
		stop func()
	)

	BeforeEach(func() {
		dial, stop = newTestServer()
	})

	AfterEach(func() {
		stop()
	})

	It("assigns a ToolId and data-listen address on Connect", func() {
		conn := dial()
		defer conn.Close()
		codec := wire.NewControlCodec(conn, 0)

		Expect(codec.Encode(wire.Connect([]string{"raw"}))).To(Succeed())

		ack, err := codec.Decode()
		Expect(err).NotTo(HaveOccurred())
		Expect(ack.Tag).To(Equal(wire.TagConnectAck))
		Expect(ack.ToolID).NotTo(BeEmpty())
		Expect(ack.DataListen).To(HavePrefix("unix://"))
	})

	It("rejects a second Connect on the same link with duplicate_connect", func() {
		conn := dial()
		defer conn.Close()
		codec := wire.NewControlCodec(conn, 0)

		Expect(codec.Encode(wire.Connect(nil))).To(Succeed())
		_, err := codec.Decode()
		Expect(err).NotTo(HaveOccurred())

		Expect(codec.Encode(wire.Connect(nil))).To(Succeed())
		resp, err := codec.Decode()
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Tag).To(Equal(wire.TagError))
		Expect(resp.Code).To(Equal("duplicate_connect"))
	})

	It("answers Subscribe to an unregistered tool with unknown_tool and spawns nothing", func() {
		conn := dial()
		defer conn.Close()
		codec := wire.NewControlCodec(conn, 0)

		Expect(codec.Encode(wire.Connect(nil))).To(Succeed())
		_, err := codec.Decode()
		Expect(err).NotTo(HaveOccurred())

		Expect(codec.Encode(wire.Subscribe("X-999"))).To(Succeed())
		resp, err := codec.Decode()
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Tag).To(Equal(wire.TagError))
		Expect(resp.Code).To(Equal("unknown_tool"))
	})

	It("answers QueryCapabilities for a live tool with its advertised capabilities", func() {
		producer := dial()
		defer producer.Close()
		pc := wire.NewControlCodec(producer, 0)
		Expect(pc.Encode(wire.Connect([]string{"raw", "color"}))).To(Succeed())
		ack, err := pc.Decode()
		Expect(err).NotTo(HaveOccurred())

		querier := dial()
		defer querier.Close()
		qc := wire.NewControlCodec(querier, 0)
		Expect(qc.Encode(wire.Connect(nil))).To(Succeed())
		_, err = qc.Decode()
		Expect(err).NotTo(HaveOccurred())

		Expect(qc.Encode(wire.QueryCapabilities(ack.ToolID))).To(Succeed())
		resp, err := qc.Decode()
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Tag).To(Equal(wire.TagCapabilitiesResponse))
		Expect(resp.Capabilities).To(ConsistOf("raw", "color"))
	})

	It("removes the tool record on Disconnect", func() {
		conn := dial()
		codec := wire.NewControlCodec(conn, 0)
		Expect(codec.Encode(wire.Connect(nil))).To(Succeed())
		ack, err := codec.Decode()
		Expect(err).NotTo(HaveOccurred())

		Expect(codec.Encode(wire.Disconnect())).To(Succeed())
		conn.Close()

		// querying the now-gone tool from a fresh link should fail.
		Eventually(func() string {
			querier := dial()
			defer querier.Close()
			qc := wire.NewControlCodec(querier, 0)
			_ = qc.Encode(wire.Connect(nil))
			_, _ = qc.Decode()
			_ = qc.Encode(wire.QueryCapabilities(ack.ToolID))
			resp, err := qc.Decode()
			if err != nil {
				return ""
			}
			return resp.Code
		}, time.Second, 10*time.Millisecond).Should(Equal("unknown_tool"))
	})
})
