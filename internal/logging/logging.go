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

// Package logging is a thin structured-logging layer over logrus, carrying
// the field-name conventions the broker, adapter and proxy share (tool_id,
// event, address, target, code).
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Field names shared across the broker, adapter and proxy log lines.
const (
	FieldToolID   = "tool_id"
	FieldEvent    = "event"
	FieldAddress  = "address"
	FieldTarget   = "target"
	FieldCode     = "code"
	FieldUpstream = "upstream"
)

// New builds a component logger at the given level, writing to out (os.Stderr
// when out is nil). component is attached to every line so broker/proxy/
// adapter output can be told apart when collected together.
func New(component string, level logrus.Level, out io.Writer) *logrus.Entry {
	if out == nil {
		out = os.Stderr
	}

	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(level)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	return l.WithField("component", component)
}

// ParseLevel mirrors logrus.ParseLevel but falls back to InfoLevel instead
// of erroring, since CLI flags should degrade gracefully rather than abort.
func ParseLevel(s string) logrus.Level {
	lvl, err := logrus.ParseLevel(s)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}
