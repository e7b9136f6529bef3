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

	"github.com/sirupsen/logrus"

	"github.com/nabbar/gbe/address"
	"github.com/nabbar/gbe/internal/logging"
	"github.com/nabbar/gbe/internal/wireerr"
	"github.com/nabbar/gbe/wire"
)

// Events are the callbacks an embedder can observe the lifecycle through.
// Any of them may be left nil.
type Events struct {
	OnSubscriberAttached func()
	OnChildExit          func(error)
	OnDisconnect         func()
}

// Adapter drives one tool's full lifecycle: Connect, bind, spawn, pump,
// teardown, per the Connecting → Running → Draining → Dead state machine.
type Adapter struct {
	cfg    Config
	events Events
	log    *logrus.Entry

	state stateBox

	id         address.ToolID
	dataListen address.Address

	hub *hub
}

// New constructs an Adapter. log may be nil, in which case a default entry
// at info level is created.
func New(cfg Config, events Events, log *logrus.Entry) *Adapter {
	if log == nil {
		log = logging.New("adapter", logrus.InfoLevel, nil)
	}
	return &Adapter{cfg: cfg, events: events, log: log, hub: newHub()}
}

// State reports the adapter's current lifecycle state.
func (a *Adapter) State() State {
	return a.state.get()
}

// ToolID reports the identity assigned on Connect (empty before that).
func (a *Adapter) ToolID() address.ToolID {
	return a.id
}

// Run drives the full lifecycle: connect to the broker, bind a data
// listener, spawn the child, pump its output, and tear down cleanly on
// child exit, control-link closure, or ctx cancellation. It returns once
// the adapter reaches Dead.
func (a *Adapter) Run(ctx context.Context) error {
	a.state.set(StateConnecting)

	conn, codec, err := a.connect()
	if err != nil {
		a.state.set(StateDead)
		return err
	}
	defer conn.Close()

	a.log.WithField(logging.FieldToolID, string(a.id)).Info("connected")
	a.state.set(StateRunning)

	ln, err := net.Listen("unix", a.dataListen.Path())
	if err != nil {
		_ = codec.Encode(wire.ErrorMsg(string(wireerr.AddressInUse), err.Error()))
		a.state.set(StateDead)
		return err
	}
	defer ln.Close()
	defer address.Unlink(a.dataListen)

	c, err := spawnChild(a.cfg.Command, a.cfg.Args, a.cfg.PTY)
	if err != nil {
		_ = codec.Encode(wire.ErrorMsg(string(wireerr.UpstreamUnavailable), err.Error()))
		a.state.set(StateDead)
		return err
	}

	acceptDone := make(chan struct{})
	go func() {
		defer close(acceptDone)
		a.acceptSubscribers(ln)
	}()

	pumpDone := make(chan error, 1)
	go func() {
		pumpDone <- a.pumpChild(c)
	}()

	ctlDone := make(chan struct{})
	go func() {
		defer close(ctlDone)
		a.drainControl(codec)
	}()

	// Whatever ends the run, the pump must have returned before any sink is
	// closed: broadcast and closeAll on the same hub must not overlap.
	select {
	case <-ctx.Done():
		c.terminate(a.cfg.ChildTermGrace)
		<-pumpDone
	case <-ctlDone:
		c.terminate(a.cfg.ChildTermGrace)
		<-pumpDone
	case <-pumpDone:
	}
	childErr := c.wait()

	a.state.set(StateDraining)
	if a.events.OnChildExit != nil {
		a.events.OnChildExit(childErr)
	}

	_ = ln.Close()
	<-acceptDone

	a.hub.closeAll()

	_ = codec.Encode(wire.Disconnect())
	if a.events.OnDisconnect != nil {
		a.events.OnDisconnect()
	}

	a.state.set(StateDead)
	return childErr
}

// drainControl reads control messages until the link closes, so a broker-
// initiated Disconnect or EOF unwinds Run even with no local trigger.
func (a *Adapter) drainControl(codec *wire.ControlCodec) {
	for {
		msg, err := codec.Decode()
		if err != nil {
			return
		}
		if msg.Tag == wire.TagDisconnect {
			return
		}
	}
}

// acceptSubscribers accepts data-subscriber connections until ln is closed,
// adding each as an independent sink.
func (a *Adapter) acceptSubscribers(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		s := newSink(conn, a.cfg.raw())
		a.hub.add(s)
		if a.events.OnSubscriberAttached != nil {
			a.events.OnSubscriberAttached()
		}
	}
}

// pumpChild reads the child's combined output and broadcasts it to every
// live subscriber, framed or raw per the advertised capabilities.
func (a *Adapter) pumpChild(c *child) error {
	if a.cfg.raw() {
		return rawPump(c.output, func(b []byte) {
			a.hub.broadcast(wire.Frame{Payload: b})
		})
	}
	return linePump(c.output, func(f wire.Frame) {
		a.hub.broadcast(f)
	})
}
