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

// Package wireerr models the fabric's wire-level error taxonomy: a small
// set of string codes so that Error{code, message} round-trips verbatim
// through the control codec.
package wireerr

import "fmt"

// Code is one of the fixed wire error codes in the taxonomy.
type Code string

const (
	UnknownTool          Code = "unknown_tool"
	NotReady             Code = "not_ready"
	DuplicateConnect     Code = "duplicate_connect"
	InvalidState         Code = "invalid_state"
	AddressInUse         Code = "address_in_use"
	FrameTooLarge        Code = "frame_too_large"
	TruncatedFrame       Code = "truncated_frame"
	BadHeader            Code = "bad_header"
	UnknownVariant       Code = "unknown_variant"
	UpstreamUnavailable  Code = "upstream_unavailable"
	PayloadLimitExceeded Code = "payload_limit_exceeded"
)

// Error is a wire-carryable error: a code plus a human message, optionally
// wrapping a local cause that never crosses the wire.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, cause error) *Error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return &Error{Code: code, Message: msg, cause: cause}
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is reports whether target is a wireerr.Error with the same Code, so
// callers can do `errors.Is(err, wireerr.New(wireerr.UnknownTool, ""))`.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}
