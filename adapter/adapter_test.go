//go:build linux || darwin

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
	"context"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/nabbar/gbe/wire"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// scriptedBroker accepts exactly one control link, answers its Connect with a
// ConnectAck pointing the data listener into dir, and records every message
// received afterwards.
type scriptedBroker struct {
	listenPath string
	dataPath   string
	received   chan wire.Message
	accepted   chan net.Conn
	stop       func()
}

func newScriptedBroker(dir string) *scriptedBroker {
	b := &scriptedBroker{
		listenPath: filepath.Join(dir, "router.sock"),
		dataPath:   filepath.Join(dir, "data.sock"),
		received:   make(chan wire.Message, 16),
		accepted:   make(chan net.Conn, 1),
	}

	ln, err := net.Listen("unix", b.listenPath)
	Expect(err).NotTo(HaveOccurred())
	b.stop = func() {
		_ = ln.Close()
		select {
		case conn := <-b.accepted:
			_ = conn.Close()
		default:
		}
	}

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		b.accepted <- conn
		defer conn.Close()
		defer close(b.received)

		codec := wire.NewControlCodec(conn, 0)
		first, err := codec.Decode()
		if err != nil || first.Tag != wire.TagConnect {
			return
		}
		if err := codec.Encode(wire.ConnectAck("9999-001", "unix://"+b.dataPath)); err != nil {
			return
		}
		for {
			msg, err := codec.Decode()
			if err != nil {
				return
			}
			b.received <- msg
		}
	}()

	return b
}

var _ = Describe("Adapter", func() {
	var dir string

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "gbe-adapter-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		_ = os.RemoveAll(dir)
	})

	It("drives the full lifecycle: connect, bind, pump, disconnect, unlink", func() {
		broker := newScriptedBroker(dir)
		defer broker.stop()

		cfg := DefaultConfig()
		cfg.BrokerAddr = broker.listenPath
		cfg.Command = "sh"
		// The sleep holds the child back long enough for the subscriber below
		// to attach; late subscribers see only frames produced after accept.
		cfg.Args = []string{"-c", "sleep 0.3; echo 1; echo 2; echo 3"}

		childExited := make(chan error, 1)
		a := New(cfg, Events{OnChildExit: func(err error) { childExited <- err }}, nil)

		runDone := make(chan error, 1)
		go func() { runDone <- a.Run(context.Background()) }()

		Eventually(func() error {
			_, err := os.Stat(broker.dataPath)
			return err
		}, 2*time.Second, 5*time.Millisecond).Should(Succeed())

		conn, err := net.Dial("unix", broker.dataPath)
		Expect(err).NotTo(HaveOccurred())
		defer conn.Close()

		var got []wire.Frame
		for {
			f, err := wire.ReadFrame(conn)
			if err != nil {
				break
			}
			got = append(got, f)
		}
		Expect(got).To(HaveLen(3))
		for i, f := range got {
			Expect(f.Seq).To(BeEquivalentTo(i))
		}
		Expect(string(got[0].Payload)).To(Equal("1\n"))
		Expect(string(got[2].Payload)).To(Equal("3\n"))

		Eventually(childExited, 2*time.Second).Should(Receive(BeNil()))
		Eventually(runDone, 2*time.Second).Should(Receive(BeNil()))
		Expect(a.State()).To(Equal(StateDead))

		// The Disconnect reached the broker and the socket file is gone.
		Eventually(broker.received, time.Second).Should(Receive(WithTransform(
			func(m wire.Message) wire.Tag { return m.Tag }, Equal(wire.TagDisconnect))))
		_, statErr := os.Stat(broker.dataPath)
		Expect(os.IsNotExist(statErr)).To(BeTrue())
	})

	It("terminates the child and unwinds when the control link closes", func() {
		broker := newScriptedBroker(dir)

		cfg := DefaultConfig()
		cfg.BrokerAddr = broker.listenPath
		cfg.Command = "sleep"
		cfg.Args = []string{"60"}
		cfg.ChildTermGrace = 200 * time.Millisecond

		a := New(cfg, Events{}, nil)

		runDone := make(chan error, 1)
		go func() { runDone <- a.Run(context.Background()) }()

		Eventually(func() error {
			_, err := os.Stat(broker.dataPath)
			return err
		}, 2*time.Second, 5*time.Millisecond).Should(Succeed())

		broker.stop()

		Eventually(runDone, 5*time.Second).Should(Receive())
		Expect(a.State()).To(Equal(StateDead))
	})

	It("reports connect failure without reaching Running", func() {
		cfg := DefaultConfig()
		cfg.BrokerAddr = filepath.Join(dir, "nobody-home.sock")

		a := New(cfg, Events{}, nil)
		Expect(a.Run(context.Background())).To(HaveOccurred())
		Expect(a.State()).To(Equal(StateDead))
	})
})

var _ = Describe("spawnChild", func() {
	It("combines stdout and stderr into one stream and reports a clean exit", func() {
		c, err := spawnChild("sh", []string{"-c", "echo out; echo err 1>&2"}, false)
		Expect(err).NotTo(HaveOccurred())

		var lines []string
		Expect(linePump(c.output, func(f wire.Frame) {
			lines = append(lines, string(f.Payload))
		})).To(Succeed())

		Expect(c.wait()).To(Succeed())
		Expect(lines).To(ConsistOf("out\n", "err\n"))
	})

	It("escalates SIGTERM to SIGKILL for a child that ignores the term signal", func() {
		// exec so no intermediate shell survives to hold the pipes open; an
		// ignored signal disposition is inherited across exec.
		c, err := spawnChild("sh", []string{"-c", "trap '' TERM; exec sleep 60"}, false)
		Expect(err).NotTo(HaveOccurred())

		start := time.Now()
		c.terminate(100 * time.Millisecond)
		Expect(c.wait()).To(HaveOccurred())
		Expect(time.Since(start)).To(BeNumerically("<", 5*time.Second))
	})
})
