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

package proxy

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nabbar/gbe/internal/logging"
	"github.com/nabbar/gbe/internal/sem"
	"github.com/nabbar/gbe/internal/wireerr"
	"github.com/nabbar/gbe/wire"
)

// Proxy is a standalone tee: one upstream reader, N downstream sinks.
type Proxy struct {
	cfg Config
	log *logrus.Entry

	mu    sync.Mutex
	sinks map[*sink]struct{}

	workers *sem.Sem

	backpressure atomic.Bool

	ctlCodec *wire.ControlCodec
	ctlConn  net.Conn
}

func New(cfg Config, log *logrus.Entry) *Proxy {
	if log == nil {
		log = logging.New("proxy", logrus.InfoLevel, nil)
	}
	return &Proxy{
		cfg:     cfg,
		log:     log,
		sinks:   make(map[*sink]struct{}),
		workers: sem.New(cfg.MaxDownstreams),
	}
}

func dialPath(addr string) string {
	return strings.TrimPrefix(addr, "unix://")
}

// Run connects to the upstream with backoff, binds the downstream listener,
// and tees frames until upstream EOF or ctx cancellation.
func (p *Proxy) Run(ctx context.Context) error {
	if p.cfg.Broker != "" {
		if err := p.connectControl(); err != nil {
			p.log.WithError(err).Warn("could not connect to broker control link")
		} else {
			defer p.ctlConn.Close()
		}
	}

	upstream, err := p.dialUpstream()
	if err != nil {
		p.reportError(wireerr.UpstreamUnavailable, err.Error())
		return err
	}
	defer upstream.Close()

	ln, err := net.Listen("unix", dialPath(p.cfg.Listen))
	if err != nil {
		p.reportError(wireerr.AddressInUse, err.Error())
		return err
	}
	defer ln.Close()

	go func() {
		<-ctx.Done()
		_ = ln.Close()
		_ = upstream.Close()
	}()

	acceptDone := make(chan struct{})
	go func() {
		defer close(acceptDone)
		p.acceptDownstreams(ln)
	}()

	err = p.pumpUpstream(upstream)
	if err != nil && (ctx.Err() != nil || errors.Is(err, net.ErrClosed)) {
		// A requested shutdown closes the upstream conn out from under the
		// pump; that is a clean exit, not an upstream failure.
		err = nil
	}

	_ = ln.Close()
	<-acceptDone
	p.closeAll()

	return err
}

func (p *Proxy) acceptDownstreams(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		if !p.workers.NewWorkerTry() {
			p.log.Warn("downstream limit reached, refusing subscriber")
			_ = conn.Close()
			continue
		}
		s := newSink(conn, p.cfg.Raw)
		p.mu.Lock()
		p.sinks[s] = struct{}{}
		p.mu.Unlock()
		go func() {
			defer p.workers.DeferWorker()
			s.run()
		}()
	}
}

// pumpUpstream reads frames (or raw byte batches) from upstream and tees
// each to every live downstream, preserving the upstream sequence exactly:
// no reordering, no coalescing.
func (p *Proxy) pumpUpstream(upstream net.Conn) error {
	if p.cfg.Raw {
		buf := make([]byte, 64*1024)
		for {
			n, err := upstream.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				p.broadcast(wire.Frame{Payload: chunk})
			}
			if err != nil {
				if errors.Is(err, io.EOF) {
					return nil
				}
				return err
			}
		}
	}

	for {
		f, err := wire.ReadFrame(upstream)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		p.broadcast(f)
	}
}

// broadcast tees f to every live sink, then checks each for backpressure.
// The default policy is to drop an over-pressure sink outright; FlowControl
// transitions are reported at most once per quiescent period. A sink whose
// mailbox saturates counts as over-pressure too: its buffer budget is
// exhausted in frame slots rather than bytes.
func (p *Proxy) broadcast(f wire.Frame) {
	p.mu.Lock()
	dead := make([]*sink, 0)
	for s := range p.sinks {
		if ok, _ := s.offer(f); !ok {
			dead = append(dead, s)
			delete(p.sinks, s)
		}
	}
	p.mu.Unlock()

	if len(dead) > 0 && !p.backpressure.Swap(true) {
		p.reportFlow(wire.FlowBackpressure)
	}
	for _, s := range dead {
		s.close()
	}

	p.checkBackpressure()
}

// checkBackpressure samples every live sink; if any is over threshold it is
// dropped (default policy) and a backpressure FlowControl is reported once.
// Once no sink remains over pressure, a flowing FlowControl is reported.
func (p *Proxy) checkBackpressure() {
	p.mu.Lock()
	over := make([]*sink, 0)
	for s := range p.sinks {
		if s.overPressure(p.cfg) {
			over = append(over, s)
			delete(p.sinks, s)
		}
	}
	p.mu.Unlock()

	if len(over) > 0 {
		if !p.backpressure.Swap(true) {
			p.reportFlow(wire.FlowBackpressure)
		}
		for _, s := range over {
			s.close()
		}
		return
	}

	if p.backpressure.Swap(false) {
		p.reportFlow(wire.FlowFlowing)
	}
}

// drainGrace bounds how long closeAll lets the writers flush the frames still
// queued in their mailboxes before their conns are forced closed.
const drainGrace = 1 * time.Second

// closeAll ends every live sink once the upstream is done: each writer first
// flushes the frames already queued in its mailbox and then closes its conn
// (EOF for the downstream); a writer still busy after drainGrace has its conn
// closed under it.
func (p *Proxy) closeAll() {
	p.mu.Lock()
	sinks := make([]*sink, 0, len(p.sinks))
	for s := range p.sinks {
		sinks = append(sinks, s)
	}
	p.sinks = make(map[*sink]struct{})
	p.mu.Unlock()

	deadline := time.Now().Add(drainGrace)
	for _, s := range sinks {
		if !s.droppedSelf.Swap(true) {
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

// dialUpstream connects with exponential backoff, bounded by the configured
// retry count and backoff cap.
func (p *Proxy) dialUpstream() (net.Conn, error) {
	backoff := p.cfg.ConnectBackoffMin
	var lastErr error
	for attempt := 0; attempt <= p.cfg.ConnectRetries; attempt++ {
		conn, err := net.Dial("unix", dialPath(p.cfg.Upstream))
		if err == nil {
			return conn, nil
		}
		lastErr = err
		if attempt == p.cfg.ConnectRetries {
			break
		}
		jitter := time.Duration(rand.Int63n(int64(backoff)/4 + 1))
		time.Sleep(backoff + jitter)
		backoff *= 2
		if backoff > p.cfg.ConnectBackoffMax {
			backoff = p.cfg.ConnectBackoffMax
		}
	}
	return nil, lastErr
}

// connectControl performs the adapter's same Connect handshake so this
// proxy has a control link to report FlowControl transitions on.
func (p *Proxy) connectControl() error {
	conn, err := net.Dial("unix", dialPath(p.cfg.Broker))
	if err != nil {
		return err
	}
	codec := wire.NewControlCodec(conn, p.cfg.FrameLimit)
	if err := codec.Encode(wire.Connect([]string{"proxy"})); err != nil {
		conn.Close()
		return err
	}
	if _, err := codec.Decode(); err != nil {
		conn.Close()
		return err
	}
	p.ctlConn = conn
	p.ctlCodec = codec
	return nil
}

func (p *Proxy) reportFlow(status wire.FlowStatus) {
	if p.ctlCodec == nil {
		return
	}
	_ = p.ctlCodec.Encode(wire.FlowControl(p.cfg.Upstream, status))
}

func (p *Proxy) reportError(code wireerr.Code, message string) {
	p.log.WithField(logging.FieldCode, string(code)).Error(message)
	if p.ctlCodec == nil {
		return
	}
	_ = p.ctlCodec.Encode(wire.ErrorMsg(string(code), message))
}
