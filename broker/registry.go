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

// Package broker is the control-plane coordinator: it accepts control
// connections, allocates identities and data-listen addresses, tracks
// subscription topology, and decides whether a Subscribe is served directly
// or through a spawned proxy.
package broker

import (
	"os/exec"
	"sync"

	"github.com/nabbar/gbe/address"
)

// Tool is the broker-side record for one connected tool. It deliberately
// holds no reference to its subscribers or subscriptions directly; those
// live in the registry's two owned maps, keeping the tool graph acyclic at
// the struct level.
type Tool struct {
	ID           address.ToolID
	DataListen   address.Address
	Capabilities address.Capabilities

	// link is the control connection itself, exclusively owned by the
	// broker's session goroutine for this tool.
	link controlLink
}

type controlLink interface {
	Close() error
}

// Proxy is the broker-side record for a spawned tee subprocess, at most one
// per tool that has subscribers.
//
// done/exitErr are populated by a single reaping goroutine started once,
// right after Cmd.Start succeeds; every other observer of the process exit
// (the proxy-crash reaper, explicit termination) reads done instead of
// calling Wait or Process.Wait itself, since a process can only be reaped
// once.
type Proxy struct {
	Upstream address.ToolID
	Address  address.Address
	Cmd      *exec.Cmd
	Subs     int

	done    chan struct{}
	exitErr error
}

// Registry is the broker's mutable state: one map of tool records, one set
// of proxy records, and two cross-reference maps kept in lockstep instead
// of embedding pointers between tool records.
//
// Registry holds a single conceptual lock; hot data paths (data-plane I/O)
// never touch it; only control-plane decisions do, and only for the
// duration of a map read/write, never across a suspension point.
type Registry struct {
	mu sync.Mutex

	tools  map[address.ToolID]*Tool
	proxys map[address.ToolID]*Proxy // keyed by upstream ToolID

	subscribersOf   map[address.ToolID]map[address.ToolID]struct{} // target -> subscribers
	subscriptionsOf map[address.ToolID]map[address.ToolID]struct{} // subscriber -> targets
}

func NewRegistry() *Registry {
	return &Registry{
		tools:           make(map[address.ToolID]*Tool),
		proxys:          make(map[address.ToolID]*Proxy),
		subscribersOf:   make(map[address.ToolID]map[address.ToolID]struct{}),
		subscriptionsOf: make(map[address.ToolID]map[address.ToolID]struct{}),
	}
}

// AddTool registers a newly connected tool. Callers hold no other lock.
func (r *Registry) AddTool(t *Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.ID] = t
}

// Tool returns the live record for id (a pointer to it, not a copy) or nil
// if id is unknown.
func (r *Registry) Tool(id address.ToolID) *Tool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tools[id]
}

// RemoveTool deletes the tool record and all subscription edges touching
// it. It returns the removed record (nil if it was not present), the set of
// subscriber IDs that were watching it (its own proxy's subscribers, for
// upstream-disconnect teardown), and the set of targets it was itself
// subscribed to (whose proxy subscriber counts the caller must decrement),
// so all of that can happen outside the lock.
func (r *Registry) RemoveTool(id address.ToolID) (tool *Tool, watchers []address.ToolID, subscribedTo []address.ToolID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tools[id]
	if !ok {
		return nil, nil, nil
	}
	delete(r.tools, id)

	for s := range r.subscribersOf[id] {
		watchers = append(watchers, s)
		delete(r.subscriptionsOf[s], id)
	}
	delete(r.subscribersOf, id)

	for target := range r.subscriptionsOf[id] {
		subscribedTo = append(subscribedTo, target)
		delete(r.subscribersOf[target], id)
	}
	delete(r.subscriptionsOf, id)

	return t, watchers, subscribedTo
}

// AddSubscription records that subscriber now subscribes to target.
func (r *Registry) AddSubscription(subscriber, target address.ToolID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.subscribersOf[target] == nil {
		r.subscribersOf[target] = make(map[address.ToolID]struct{})
	}
	r.subscribersOf[target][subscriber] = struct{}{}

	if r.subscriptionsOf[subscriber] == nil {
		r.subscriptionsOf[subscriber] = make(map[address.ToolID]struct{})
	}
	r.subscriptionsOf[subscriber][target] = struct{}{}
}

// RemoveSubscription undoes AddSubscription. Returns true if it existed.
func (r *Registry) RemoveSubscription(subscriber, target address.ToolID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.subscribersOf[target][subscriber]; !ok {
		return false
	}
	delete(r.subscribersOf[target], subscriber)
	delete(r.subscriptionsOf[subscriber], target)
	return true
}

// SubscriberCount reports how many tools currently subscribe to target.
func (r *Registry) SubscriberCount(target address.ToolID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subscribersOf[target])
}

// Proxy returns the live proxy record for upstream, or nil.
func (r *Registry) Proxy(upstream address.ToolID) *Proxy {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.proxys[upstream]
}

// SetProxy stores or replaces the proxy record for upstream.
func (r *Registry) SetProxy(upstream address.ToolID, p *Proxy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.proxys[upstream] = p
}

// RemoveProxy deletes the proxy record for upstream, returning it.
func (r *Registry) RemoveProxy(upstream address.ToolID) *Proxy {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.proxys[upstream]
	delete(r.proxys, upstream)
	return p
}

// Snapshot returns every live tool and proxy record, for shutdown teardown.
func (r *Registry) Snapshot() ([]*Tool, []*Proxy) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tools := make([]*Tool, 0, len(r.tools))
	for _, t := range r.tools {
		tools = append(tools, t)
	}
	proxys := make([]*Proxy, 0, len(r.proxys))
	for _, p := range r.proxys {
		proxys = append(proxys, p)
	}
	return tools, proxys
}
