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

// Command gbe-tool hosts one adapter: it connects to a broker, spawns the
// given command as its child, and serves that child's output to subscribers.
package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nabbar/gbe/adapter"
	"github.com/nabbar/gbe/internal/logging"
)

func main() {
	cfg := adapter.DefaultConfig()
	var caps string
	var logLevel string

	root := &cobra.Command{
		Use:   "gbe-tool -- <command> [args...]",
		Short: "Host one child command as a gbe tool",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Command = args[0]
			cfg.Args = args[1:]
			if caps != "" {
				cfg.Capabilities = strings.Split(caps, ",")
			}
			return run(cfg, logLevel)
		},
	}

	flags := root.Flags()
	flags.StringVar(&cfg.BrokerAddr, "broker", cfg.BrokerAddr, "broker control-socket address")
	flags.BoolVar(&cfg.PTY, "pty", false, "spawn the child under a pseudo-terminal")
	flags.StringVar(&caps, "capabilities", "", "comma-separated additional capability tokens (e.g. raw)")
	flags.StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cfg adapter.Config, logLevel string) error {
	log := logging.New("gbe-tool", logging.ParseLevel(logLevel), os.Stderr)

	events := adapter.Events{
		OnSubscriberAttached: func() {
			log.Info("subscriber attached")
		},
		OnChildExit: func(err error) {
			if err != nil {
				log.WithError(err).Warn("child exited")
			} else {
				log.Info("child exited cleanly")
			}
		},
		OnDisconnect: func() {
			log.Info("disconnected from broker")
		},
	}

	a := adapter.New(cfg, events, log)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return a.Run(ctx)
}
