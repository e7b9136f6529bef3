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

package broker

import (
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/nabbar/gbe/address"
	"github.com/nabbar/gbe/internal/wireerr"
)

// resolveSubscription implements the always-proxy routing policy: every
// Subscribe flows through a proxy, even for a single subscriber, so a second
// subscriber arriving mid-handoff never races a direct-address rewrite. It
// returns the proxy's address and the upstream's capabilities, spawning the
// proxy subprocess on first use.
func (s *Server) resolveSubscription(target *Tool) (address.Address, []string, *wireerr.Error) {
	if p := s.reg.Proxy(target.ID); p != nil && p.Cmd != nil && p.Cmd.Process != nil {
		s.reg.mu.Lock()
		p.Subs++
		s.reg.mu.Unlock()
		return p.Address, target.Capabilities.Tokens(), nil
	}

	proxyAddr := s.alloc.ProxyAddress(target.ID)
	if err := address.Unlink(proxyAddr); err != nil {
		return "", nil, wireerr.Wrap(wireerr.AddressInUse, err)
	}

	args := []string{
		"--upstream", target.DataListen.String(),
		"--listen", proxyAddr.String(),
	}
	if target.Capabilities.Raw() {
		args = append(args, "--raw")
	}
	if s.cfg.ListenPath != "" {
		args = append(args, "--broker", "unix://"+s.cfg.ListenPath)
	}

	cmd := exec.Command(s.cfg.ProxyBinary, args...)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return "", nil, wireerr.Wrap(wireerr.UpstreamUnavailable, err)
	}

	proxy := &Proxy{Upstream: target.ID, Address: proxyAddr, Cmd: cmd, Subs: 1, done: make(chan struct{})}

	// Exactly one goroutine ever calls cmd.Wait for this process; everyone
	// else (reapProxy, terminateProxy) reads proxy.done instead.
	go func() {
		proxy.exitErr = cmd.Wait()
		close(proxy.done)
	}()

	if !waitForSocket(proxyAddr, s.cfg.ProxySpawnTimeout) {
		_ = cmd.Process.Kill()
		<-proxy.done
		return "", nil, wireerr.New(wireerr.UpstreamUnavailable, "proxy did not come up in time")
	}

	s.reg.SetProxy(target.ID, proxy)
	if s.metrics != nil {
		s.metrics.ProxiesSpawned.Inc()
	}
	s.log.WithField("upstream", string(target.ID)).WithField("address", string(proxyAddr)).Info("spawned proxy")

	go s.reapProxy(target.ID, proxy)

	return proxyAddr, target.Capabilities.Tokens(), nil
}

// reapProxy waits for the spawned proxy's process to exit and removes its
// registry record, so an upstream disconnect or crash doesn't leave a
// phantom proxy record pointing at a dead process.
func (s *Server) reapProxy(upstream address.ToolID, p *Proxy) {
	<-p.done
	if removed := s.reg.RemoveProxy(upstream); removed != nil {
		_ = address.Unlink(removed.Address)
	}
}

// waitForSocket polls for addr's socket file to appear, bounded by timeout.
func waitForSocket(addr address.Address, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if _, err := os.Stat(addr.Path()); err == nil {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// releaseSubscription decrements target's proxy subscriber count and tears
// the proxy down as soon as it reaches zero; a reattach after that simply
// pays one more spawn.
func (s *Server) releaseSubscription(target address.ToolID) {
	p := s.reg.Proxy(target)
	if p == nil {
		return
	}

	s.reg.mu.Lock()
	p.Subs--
	empty := p.Subs <= 0
	s.reg.mu.Unlock()

	if !empty {
		return
	}

	s.terminateProxy(p)
}

// terminateProxy sends SIGTERM, waits a bounded grace period, then SIGKILL,
// and unlinks the proxy's socket and registry record.
func (s *Server) terminateProxy(p *Proxy) {
	if p == nil || p.Cmd == nil || p.Cmd.Process == nil {
		return
	}

	_ = p.Cmd.Process.Signal(syscall.SIGTERM)
	select {
	case <-p.done:
	case <-time.After(s.cfg.ProxyTermGrace):
		_ = p.Cmd.Process.Kill()
		<-p.done
	}

	s.reg.RemoveProxy(p.Upstream)
	_ = address.Unlink(p.Address)
}
