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

package broker

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/nabbar/gbe/address"
	"github.com/nabbar/gbe/internal/logging"
	"github.com/nabbar/gbe/internal/wireerr"
	"github.com/nabbar/gbe/wire"
)

// Server is the broker: it accepts control connections and is the single
// place that decides subscription routing.
type Server struct {
	cfg     Config
	alloc   *address.Allocator
	reg     *Registry
	log     *logrus.Entry
	metrics *Metrics

	listener net.Listener
	draining atomic.Bool
	wg       sync.WaitGroup
}

// New builds a broker Server. metrics may be nil to disable Prometheus
// instrumentation entirely.
func New(cfg Config, log *logrus.Entry, metrics *Metrics) *Server {
	if log == nil {
		log = logging.New("broker", logrus.InfoLevel, nil)
	}
	return &Server{
		cfg:     cfg,
		alloc:   address.NewAllocator(cfg.DataDir),
		reg:     NewRegistry(),
		log:     log,
		metrics: metrics,
	}
}

// Run binds the control listener and serves connections until ctx is
// cancelled, then drains: refuse new Connects, disconnect every tool and
// proxy, wait up to ShutdownGrace, unlink everything it owns.
func (s *Server) Run(ctx context.Context) error {
	if err := address.Unlink(address.Address("unix://" + s.cfg.ListenPath)); err != nil {
		return wireerr.Wrap(wireerr.AddressInUse, err)
	}

	ln, err := net.Listen("unix", s.cfg.ListenPath)
	if err != nil {
		return wireerr.Wrap(wireerr.AddressInUse, err)
	}
	s.listener = ln
	s.log.WithField(logging.FieldAddress, s.cfg.ListenPath).Info("broker listening")

	// One group member watches for cancellation and flips draining before
	// closing the listener, so the other member's Accept error is the
	// expected shutdown signal rather than a real failure.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		s.draining.Store(true)
		_ = s.listener.Close()
		return nil
	})
	g.Go(s.acceptLoop)

	if err := g.Wait(); err != nil {
		s.log.WithError(err).Error("accept loop exited")
	}

	return s.shutdown()
}

func (s *Server) acceptLoop() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.draining.Load() {
				return nil
			}
			return err
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleLink(conn)
		}()
	}
}

// handleLink drives one control connection end to end: Connect, then a
// dispatch loop, then teardown on Disconnect or EOF. Every lifecycle
// transition is logged at info, every error response at warn.
func (s *Server) handleLink(conn net.Conn) {
	defer conn.Close()

	codec := wire.NewControlCodec(conn, s.cfg.FrameLimit)

	first, err := codec.Decode()
	if err != nil {
		return
	}
	if first.Tag != wire.TagConnect {
		s.respondError(codec, wireerr.NotReady, "expected Connect")
		return
	}
	if s.draining.Load() {
		s.respondError(codec, wireerr.NotReady, "broker is draining")
		return
	}

	id := s.alloc.NewID()
	dataAddr := s.alloc.AddressFor(id)
	caps := address.NewCapabilities(first.Capabilities...)

	tool := &Tool{ID: id, DataListen: dataAddr, Capabilities: caps, link: conn}
	s.reg.AddTool(tool)
	s.observeConnected(1)

	s.log.WithField(logging.FieldToolID, string(id)).WithField(logging.FieldEvent, "connect").Info("tool connected")

	if err := codec.Encode(wire.ConnectAck(string(id), dataAddr.String())); err != nil {
		s.teardownTool(id)
		return
	}

	s.dispatchLoop(codec, id)
	s.teardownTool(id)
}

func (s *Server) dispatchLoop(codec *wire.ControlCodec, self address.ToolID) {
	for {
		msg, err := codec.Decode()
		if err != nil {
			// Codec errors are fatal for the link, but the peer gets told
			// why, best-effort, before the close.
			var werr *wireerr.Error
			if errors.As(err, &werr) {
				s.respondError(codec, werr.Code, werr.Message)
			}
			return
		}

		switch msg.Tag {
		case wire.TagConnect:
			s.respondError(codec, wireerr.DuplicateConnect, "already connected")
			return

		case wire.TagSubscribe:
			s.handleSubscribe(codec, self, address.ToolID(msg.Target))

		case wire.TagUnsubscribe:
			s.handleUnsubscribe(codec, self, address.ToolID(msg.Target))

		case wire.TagQueryCapabilities:
			s.handleQueryCapabilities(codec, address.ToolID(msg.Target))

		case wire.TagFlowControl:
			s.log.WithField(logging.FieldUpstream, msg.Source).WithField("status", string(msg.Status)).Info("flow control")

		case wire.TagDisconnect:
			return

		default:
			s.respondError(codec, wireerr.UnknownVariant, string(msg.Tag))
			return
		}
	}
}

func (s *Server) handleSubscribe(codec *wire.ControlCodec, self, target address.ToolID) {
	t := s.reg.Tool(target)
	if t == nil {
		s.respondError(codec, wireerr.UnknownTool, "no such tool: "+string(target))
		return
	}

	addr, caps, werr := s.resolveSubscription(t)
	if werr != nil {
		s.respondError(codec, werr.Code, werr.Message)
		return
	}

	s.reg.AddSubscription(self, target)
	s.observeSubscribed(1)
	s.log.WithField(logging.FieldToolID, string(self)).WithField(logging.FieldTarget, string(target)).Info("subscribed")

	_ = codec.Encode(wire.SubscribeAck(addr.String(), caps))
}

func (s *Server) handleUnsubscribe(codec *wire.ControlCodec, self, target address.ToolID) {
	if !s.reg.RemoveSubscription(self, target) {
		s.respondError(codec, wireerr.InvalidState, "no such subscription")
		return
	}
	s.observeSubscribed(-1)
	s.releaseSubscription(target)
	s.log.WithField(logging.FieldToolID, string(self)).WithField(logging.FieldTarget, string(target)).Info("unsubscribed")
}

func (s *Server) handleQueryCapabilities(codec *wire.ControlCodec, target address.ToolID) {
	t := s.reg.Tool(target)
	if t == nil {
		s.respondError(codec, wireerr.UnknownTool, "no such tool: "+string(target))
		return
	}
	_ = codec.Encode(wire.CapabilitiesResponse(t.Capabilities.Tokens()))
}

func (s *Server) respondError(codec *wire.ControlCodec, code wireerr.Code, message string) {
	s.metrics.observeError(string(code))
	s.log.WithField(logging.FieldCode, string(code)).Warn(message)
	_ = codec.Encode(wire.ErrorMsg(string(code), message))
}

// teardownTool removes the tool record, tears down its own proxy (it is an
// upstream disconnect), and decrements the proxy subscriber count of every
// target it was itself subscribed to.
func (s *Server) teardownTool(id address.ToolID) {
	t, _, subscribedTo := s.reg.RemoveTool(id)
	if t == nil {
		return
	}
	s.observeConnected(-1)

	if p := s.reg.RemoveProxy(id); p != nil {
		s.terminateProxy(p)
	}

	for _, target := range subscribedTo {
		s.releaseSubscription(target)
	}

	_ = address.Unlink(t.DataListen)
	s.log.WithField(logging.FieldToolID, string(id)).WithField(logging.FieldEvent, "disconnect").Info("tool disconnected")
}

func (s *Server) observeConnected(delta int) {
	if s.metrics == nil {
		return
	}
	if delta > 0 {
		s.metrics.ConnectedTools.Inc()
	} else {
		s.metrics.ConnectedTools.Dec()
	}
}

func (s *Server) observeSubscribed(delta int) {
	if s.metrics == nil {
		return
	}
	if delta > 0 {
		s.metrics.ActiveSubs.Inc()
	} else {
		s.metrics.ActiveSubs.Dec()
	}
}

// shutdown terminates every proxy, unblocks every session goroutine, and
// unlinks every socket the broker owns before returning.
func (s *Server) shutdown() error {
	s.draining.Store(true)
	if s.listener != nil {
		_ = s.listener.Close()
	}

	tools, proxys := s.reg.Snapshot()

	var result *multierror.Error
	for _, p := range proxys {
		s.terminateProxy(p)
	}
	for _, t := range tools {
		// Closing the link unblocks the tool's session goroutine, whose
		// dispatch loop treats the resulting read error as a Disconnect.
		if t.link != nil {
			_ = t.link.Close()
		}
		if err := address.Unlink(t.DataListen); err != nil {
			result = multierror.Append(result, err)
		}
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(s.cfg.ShutdownGrace):
		s.log.Warn("shutdown grace period elapsed with connections still draining")
	}

	s.log.Info("broker shutdown complete")
	return result.ErrorOrNil()
}
