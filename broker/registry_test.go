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

package broker_test

import (
	. "github.com/nabbar/gbe/broker"

	"github.com/nabbar/gbe/address"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Registry", func() {
	var reg *Registry

	BeforeEach(func() {
		reg = NewRegistry()
	})

	It("round-trips a tool record by id", func() {
		id := address.ToolID("1-001")
		t := &Tool{ID: id, DataListen: "unix:///tmp/gbe-1-001.sock"}
		reg.AddTool(t)

		Expect(reg.Tool(id)).To(Equal(t))
		Expect(reg.Tool("unknown")).To(BeNil())
	})

	It("tracks both directions of a subscription", func() {
		sub := address.ToolID("1-002")
		target := address.ToolID("1-001")

		reg.AddSubscription(sub, target)
		Expect(reg.SubscriberCount(target)).To(Equal(1))

		ok := reg.RemoveSubscription(sub, target)
		Expect(ok).To(BeTrue())
		Expect(reg.SubscriberCount(target)).To(Equal(0))
	})

	It("reports false removing a subscription that was never added", func() {
		ok := reg.RemoveSubscription("ghost", "1-001")
		Expect(ok).To(BeFalse())
	})

	It("on RemoveTool, returns both the watchers that were watching it and the targets it was watching", func() {
		a := address.ToolID("1-001")
		b := address.ToolID("1-002")
		c := address.ToolID("1-003")

		reg.AddTool(&Tool{ID: a})
		reg.AddTool(&Tool{ID: b})
		reg.AddTool(&Tool{ID: c})

		// b and c both subscribe to a; a subscribes to c.
		reg.AddSubscription(b, a)
		reg.AddSubscription(c, a)
		reg.AddSubscription(a, c)

		tool, watchers, subscribedTo := reg.RemoveTool(a)
		Expect(tool.ID).To(Equal(a))
		Expect(watchers).To(ConsistOf(b, c))
		Expect(subscribedTo).To(ConsistOf(c))

		Expect(reg.Tool(a)).To(BeNil())
		Expect(reg.SubscriberCount(c)).To(Equal(0), "a's own subscription to c must be cleaned up too")
	})

	It("returns a nil tool and no edges when removing an unknown id", func() {
		tool, watchers, subscribedTo := reg.RemoveTool("ghost")
		Expect(tool).To(BeNil())
		Expect(watchers).To(BeEmpty())
		Expect(subscribedTo).To(BeEmpty())
	})

	It("round-trips a proxy record by upstream id", func() {
		upstream := address.ToolID("1-001")
		p := &Proxy{Upstream: upstream, Address: "unix:///tmp/gbe-proxy-1-001-abcd.sock", Subs: 1}

		reg.SetProxy(upstream, p)
		Expect(reg.Proxy(upstream)).To(Equal(p))

		removed := reg.RemoveProxy(upstream)
		Expect(removed).To(Equal(p))
		Expect(reg.Proxy(upstream)).To(BeNil())
	})

	It("snapshots every live tool and proxy", func() {
		reg.AddTool(&Tool{ID: "1-001"})
		reg.AddTool(&Tool{ID: "1-002"})
		reg.SetProxy("1-001", &Proxy{Upstream: "1-001"})

		tools, proxys := reg.Snapshot()
		Expect(tools).To(HaveLen(2))
		Expect(proxys).To(HaveLen(1))
	})
})
