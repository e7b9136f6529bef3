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

// Command gbe-proxy is the standalone tee subprocess the broker spawns on
// the first Subscribe to a given tool.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nabbar/gbe/internal/logging"
	"github.com/nabbar/gbe/proxy"
)

func main() {
	cfg := proxy.DefaultConfig()
	var logLevel string

	root := &cobra.Command{
		Use:   "gbe-proxy",
		Short: "Tee one upstream data stream to N downstream subscribers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cfg, logLevel)
		},
	}

	flags := root.Flags()
	flags.StringVar(&cfg.Upstream, "upstream", "", "upstream data-socket address (required)")
	flags.StringVar(&cfg.Listen, "listen", "", "downstream listen address (required)")
	flags.BoolVar(&cfg.Raw, "raw", false, "relay bytes unframed, verbatim")
	flags.StringVar(&cfg.Broker, "broker", "", "broker control-socket address for FlowControl reporting")
	flags.Int64Var(&cfg.MaxDownstreams, "max-downstreams", cfg.MaxDownstreams, "bound on concurrent downstream subscribers (<=0 unbounded)")
	flags.StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")

	_ = root.MarkFlagRequired("upstream")
	_ = root.MarkFlagRequired("listen")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cfg proxy.Config, logLevel string) error {
	log := logging.New("gbe-proxy", logging.ParseLevel(logLevel), os.Stderr)

	p := proxy.New(cfg, log.WithField(logging.FieldUpstream, cfg.Upstream))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := p.Run(ctx); err != nil {
		log.WithError(err).Error("proxy exited with error")
		return err
	}
	return nil
}
