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

package address

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/google/uuid"
)

// Address is a unix:// URI pointing at a control or data socket.
type Address string

func (a Address) String() string {
	return string(a)
}

// Path returns the filesystem path component of a unix:// address.
func (a Address) Path() string {
	const prefix = "unix://"
	s := string(a)
	if len(s) >= len(prefix) && s[:len(prefix)] == prefix {
		return s[len(prefix):]
	}
	return s
}

// Allocator produces collision-free ToolIDs and the addresses derived from
// them, scoped to one broker process.
type Allocator struct {
	dir     string
	pid     int
	counter atomic.Int64
}

// NewAllocator returns an allocator rooted at dir (the system temp directory
// when dir is empty), tagging every address with the current process pid so
// that addresses never collide across broker restarts sharing one directory.
func NewAllocator(dir string) *Allocator {
	if dir == "" {
		dir = os.TempDir()
	}
	return &Allocator{dir: dir, pid: os.Getpid()}
}

// NewID returns the next ToolID for this broker lifetime. The counter starts
// at 1 and increases monotonically.
func (a *Allocator) NewID() ToolID {
	seq := a.counter.Add(1)
	return NewToolID(a.pid, int(seq))
}

// AddressFor returns the data-listen address for id, named for debuggability.
func (a *Allocator) AddressFor(id ToolID) Address {
	return Address(fmt.Sprintf("unix://%s", filepath.Join(a.dir, fmt.Sprintf("gbe-%s.sock", id))))
}

// ProxyAddress returns a fresh proxy address for upstream, unique even when
// multiple proxies for the same upstream have existed in this broker's
// lifetime (the nonce disambiguates a just-torn-down proxy's stale path from
// a newly spawned one).
func (a *Allocator) ProxyAddress(upstream ToolID) Address {
	nonce := uuid.NewString()[:8]
	return Address(fmt.Sprintf("unix://%s", filepath.Join(a.dir, fmt.Sprintf("gbe-proxy-%s-%s.sock", upstream, nonce))))
}

// Unlink removes any stale socket file at addr's path. It is a no-op if
// nothing exists there. Called before binding, per the allocator's
// before-bind invariant, and on cleanup.
func Unlink(addr Address) error {
	p := addr.Path()
	if p == "" {
		return nil
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
