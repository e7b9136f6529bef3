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

// Package adapter is the reusable tool-side control/data half: it registers
// with a broker, binds a data listener at the assigned address, spawns a
// child command, and multiplexes the child's combined output across
// accepted data subscribers.
package adapter

import "time"

// Config is the full set of knobs an embedder provides to Run.
type Config struct {
	// BrokerAddr is the broker's control-socket path (unix:// URI or bare path).
	BrokerAddr string

	// Command and Args describe the child process to spawn.
	Command string
	Args    []string

	// PTY requests a pseudo-terminal for the child; also advertised as the
	// "pty" capability.
	PTY bool

	// Capabilities are the additional freeform tokens advertised at Connect.
	// "pty" is added automatically when PTY is true; callers need not repeat it.
	Capabilities []string

	// FrameLimit bounds a single control envelope (DefaultFrameLimit if 0).
	FrameLimit uint32

	// ChildTermGrace bounds how long a child gets after SIGTERM before the
	// adapter escalates to SIGKILL on shutdown.
	ChildTermGrace time.Duration

	// DisconnectGrace is carried in the config but Run does not read it: the
	// wait for subscribers to drain after the child exits is bounded by the
	// hub's fixed one-second sinkDrainGrace, whatever this field holds.
	DisconnectGrace time.Duration
}

func DefaultConfig() Config {
	return Config{
		BrokerAddr:      "/tmp/gbe-router.sock",
		ChildTermGrace:  1 * time.Second,
		DisconnectGrace: 1 * time.Second,
	}
}

// raw reports whether this config's advertised capabilities include "raw".
func (c Config) raw() bool {
	for _, tok := range c.Capabilities {
		if tok == "raw" {
			return true
		}
	}
	return false
}
