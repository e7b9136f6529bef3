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
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"
)

// child wraps the spawned command, its combined stdout+stderr reader, and
// its stdin writer (the pty master in pty mode, a stdin pipe otherwise).
//
// cmd.Wait is called exactly once, by a single goroutine started at spawn
// time; every other observer of the exit (wait, terminate) reads done
// instead of calling Wait or Process.Wait itself, since the os package only
// tolerates one reaper per process.
type child struct {
	cmd    *exec.Cmd
	output io.Reader
	input  io.WriteCloser
	ptyFh  *os.File // pty master, non-nil when spawned under a pseudo-terminal

	done    chan struct{}
	ioDone  chan struct{} // non-nil in pipe mode: closed once both pipe readers hit EOF
	exitErr error
}

// reap starts the single goroutine allowed to call cmd.Wait. Call it once,
// immediately after a successful spawn. In pipe mode it first waits for both
// pipe readers to drain: Wait closes the parent's read ends, and reaping
// before EOF would discard output still buffered in the pipes.
func (c *child) reap() {
	c.done = make(chan struct{})
	go func() {
		if c.ioDone != nil {
			<-c.ioDone
		}
		c.exitErr = c.cmd.Wait()
		close(c.done)
	}()
}

// spawnChild starts command/args. When usePTY is set, stdin/stdout/stderr
// all attach to one pseudo-terminal fd, which gives arrival-order combining
// of stdout and stderr for free. Otherwise plain pipes are used and the two
// streams are interleaved into one reader in the order bytes actually
// arrive from the OS.
func spawnChild(command string, args []string, usePTY bool) (*child, error) {
	cmd := exec.Command(command, args...)

	if usePTY {
		f, err := pty.Start(cmd)
		if err != nil {
			return nil, err
		}
		c := &child{cmd: cmd, output: f, input: f, ptyFh: f}
		c.reap()
		return c, nil
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	pr, pw := io.Pipe()
	var writeMu sync.Mutex
	combine := func(r io.Reader) {
		buf := make([]byte, 32*1024)
		for {
			n, rerr := r.Read(buf)
			if n > 0 {
				writeMu.Lock()
				_, werr := pw.Write(buf[:n])
				writeMu.Unlock()
				if werr != nil {
					return
				}
			}
			if rerr != nil {
				return
			}
		}
	}

	ioDone := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); combine(stdout) }()
	go func() { defer wg.Done(); combine(stderr) }()
	go func() {
		wg.Wait()
		_ = pw.Close()
		close(ioDone)
	}()

	c := &child{cmd: cmd, output: pr, input: stdin, ioDone: ioDone}
	c.reap()
	return c, nil
}

// wait blocks until the child exits, returning its error (nil on a clean
// zero-status exit).
func (c *child) wait() error {
	<-c.done
	return c.exitErr
}

// terminate sends SIGTERM, waits up to grace, then SIGKILL. It does not
// itself reap the process; the goroutine started by reap does.
func (c *child) terminate(grace time.Duration) {
	if c.cmd.Process == nil {
		return
	}

	_ = c.cmd.Process.Signal(syscall.SIGTERM)
	select {
	case <-c.done:
	case <-time.After(grace):
		_ = c.cmd.Process.Kill()
		<-c.done
	}

	if c.ptyFh != nil {
		_ = c.ptyFh.Close()
	}
}
