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

import "github.com/prometheus/client_golang/prometheus"

// Metrics is the broker's optional Prometheus surface: connected tools,
// active subscriptions, proxies spawned, and control errors observed,
// broken down by code.
type Metrics struct {
	ConnectedTools prometheus.Gauge
	ActiveSubs     prometheus.Gauge
	ProxiesSpawned prometheus.Counter
	ControlErrors  *prometheus.CounterVec
}

// NewMetrics registers the broker's gauges/counters on reg and returns the
// handles used to update them. Callers that don't want metrics simply never
// call this and pass a nil *Metrics around.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ConnectedTools: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gbe", Subsystem: "broker", Name: "connected_tools",
			Help: "Number of tools currently connected to the broker.",
		}),
		ActiveSubs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gbe", Subsystem: "broker", Name: "active_subscriptions",
			Help: "Number of active Subscribe relationships.",
		}),
		ProxiesSpawned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gbe", Subsystem: "broker", Name: "proxies_spawned_total",
			Help: "Number of proxy subprocesses spawned since broker start.",
		}),
		ControlErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gbe", Subsystem: "broker", Name: "control_errors_total",
			Help: "Control-plane Error responses, by code.",
		}, []string{"code"}),
	}

	reg.MustRegister(m.ConnectedTools, m.ActiveSubs, m.ProxiesSpawned, m.ControlErrors)
	return m
}

func (m *Metrics) observeError(code string) {
	if m == nil {
		return
	}
	m.ControlErrors.WithLabelValues(code).Inc()
}
