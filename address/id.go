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

// Package address allocates ToolIds and the Unix-socket addresses derived
// from them, scoped to one broker process lifetime.
package address

import "fmt"

// ToolID is the opaque identity the broker hands out on Connect. Its
// canonical textual form is "<broker-pid>-<seq>" with seq a zero-padded
// three-digit counter; it is comparable as a plain string.
type ToolID string

// NewToolID formats a ToolID from a broker pid and sequence number.
func NewToolID(pid, seq int) ToolID {
	return ToolID(fmt.Sprintf("%d-%03d", pid, seq))
}

func (t ToolID) String() string {
	return string(t)
}

// Capabilities is an unordered set of freeform ASCII tokens advertised at
// Connect. The only broker-enforced token is "raw"; everything else is
// opaque and propagated verbatim to subscribers.
type Capabilities map[string]struct{}

// NewCapabilities builds a set from a token slice, deduplicating.
func NewCapabilities(tokens ...string) Capabilities {
	c := make(Capabilities, len(tokens))
	for _, t := range tokens {
		if t == "" {
			continue
		}
		c[t] = struct{}{}
	}
	return c
}

// Has reports whether token is present.
func (c Capabilities) Has(token string) bool {
	if c == nil {
		return false
	}
	_, ok := c[token]
	return ok
}

// Raw reports whether "raw" is present, which disables frame headers on
// this tool's outbound data.
func (c Capabilities) Raw() bool {
	return c.Has("raw")
}

// PTY reports whether the child should be attached to a pseudo-terminal.
func (c Capabilities) PTY() bool {
	return c.Has("pty")
}

// Tokens returns the set as a slice, order unspecified.
func (c Capabilities) Tokens() []string {
	out := make([]string, 0, len(c))
	for t := range c {
		out = append(out, t)
	}
	return out
}
