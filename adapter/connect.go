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
	"fmt"
	"net"
	"strings"

	"github.com/nabbar/gbe/address"
	"github.com/nabbar/gbe/internal/wireerr"
	"github.com/nabbar/gbe/wire"
)

func dialPath(addr string) string {
	return strings.TrimPrefix(addr, "unix://")
}

// connect dials the broker, sends Connect with this adapter's advertised
// capabilities, and waits for ConnectAck.
func (a *Adapter) connect() (net.Conn, *wire.ControlCodec, error) {
	conn, err := net.Dial("unix", dialPath(a.cfg.BrokerAddr))
	if err != nil {
		return nil, nil, err
	}

	codec := wire.NewControlCodec(conn, a.cfg.FrameLimit)

	caps := a.cfg.Capabilities
	if a.cfg.PTY {
		caps = append(append([]string{}, caps...), "pty")
	}

	if err := codec.Encode(wire.Connect(caps)); err != nil {
		conn.Close()
		return nil, nil, err
	}

	msg, err := codec.Decode()
	if err != nil {
		conn.Close()
		return nil, nil, err
	}

	if msg.Tag == wire.TagError {
		conn.Close()
		return nil, nil, wireerr.New(wireerr.Code(msg.Code), msg.Message)
	}
	if msg.Tag != wire.TagConnectAck {
		conn.Close()
		return nil, nil, wireerr.New(wireerr.UnknownVariant, fmt.Sprintf("expected ConnectAck, got %s", msg.Tag))
	}

	a.id = address.ToolID(msg.ToolID)
	a.dataListen = address.Address(msg.DataListen)

	return conn, codec, nil
}
