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

import "time"

// Config is the broker's full configuration surface, bound from flags/
// viper by cmd/gbe-router.
type Config struct {
	// ListenPath is the broker's own control-socket path.
	ListenPath string `yaml:"listen"`
	// DataDir is the directory tool and proxy data sockets are created in.
	DataDir string `yaml:"data_dir"`
	// FrameLimit bounds a single control envelope (DefaultFrameLimit if 0).
	FrameLimit uint32 `yaml:"frame_limit,omitempty"`
	// ProxySpawnTimeout bounds how long Subscribe waits for a newly spawned
	// proxy's socket file to appear before failing upstream_unavailable.
	ProxySpawnTimeout time.Duration `yaml:"proxy_spawn_timeout"`
	// ProxyTermGrace bounds how long a terminated proxy gets after SIGTERM
	// before the broker escalates to SIGKILL.
	ProxyTermGrace time.Duration `yaml:"proxy_term_grace"`
	// ShutdownGrace bounds how long graceful shutdown waits for tools and
	// proxies to exit after being signalled.
	ShutdownGrace time.Duration `yaml:"shutdown_grace"`
	// MetricsListen, if non-empty, exposes Prometheus metrics over HTTP.
	MetricsListen string `yaml:"metrics_listen,omitempty"`
	// ProxyBinary is the path to the gbe-proxy executable to spawn.
	ProxyBinary string `yaml:"proxy_binary"`
}

func DefaultConfig() Config {
	return Config{
		ListenPath:        "/tmp/gbe-router.sock",
		DataDir:           "",
		ProxySpawnTimeout: 500 * time.Millisecond,
		ProxyTermGrace:    1 * time.Second,
		ShutdownGrace:     1 * time.Second,
		ProxyBinary:       "gbe-proxy",
	}
}
