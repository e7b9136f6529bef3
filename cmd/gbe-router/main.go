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

// Command gbe-router runs the broker: the control-plane coordinator every
// tool and proxy in the fabric connects to.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/nabbar/gbe/broker"
	"github.com/nabbar/gbe/internal/logging"
)

func main() {
	cfg := broker.DefaultConfig()
	var logLevel string
	var configFile string
	var printConfig bool

	root := &cobra.Command{
		Use:   "gbe-router",
		Short: "Run the gbe control-plane broker",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configFile != "" {
				if err := loadConfigFile(configFile, &cfg); err != nil {
					return err
				}
			}
			applyEnvOverrides(cmd, &cfg, &logLevel)

			if printConfig {
				out, err := yaml.Marshal(cfg)
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), string(out))
				return nil
			}
			return run(cfg, logLevel)
		},
	}

	flags := root.Flags()
	flags.StringVar(&cfg.ListenPath, "listen", cfg.ListenPath, "broker control-socket path")
	flags.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory for tool and proxy data sockets")
	flags.StringVar(&cfg.ProxyBinary, "proxy-binary", cfg.ProxyBinary, "path to the gbe-proxy executable")
	flags.StringVar(&cfg.MetricsListen, "metrics-listen", cfg.MetricsListen, "address to expose Prometheus metrics on (empty disables)")
	flags.DurationVar(&cfg.ProxySpawnTimeout, "proxy-spawn-timeout", cfg.ProxySpawnTimeout, "bound on waiting for a spawned proxy's socket to appear")
	flags.DurationVar(&cfg.ProxyTermGrace, "proxy-term-grace", cfg.ProxyTermGrace, "grace period between SIGTERM and SIGKILL for a proxy")
	flags.DurationVar(&cfg.ShutdownGrace, "shutdown-grace", cfg.ShutdownGrace, "grace period for draining on shutdown")
	flags.StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")
	flags.StringVar(&configFile, "config", "", "optional YAML file of config defaults, overridden by flags and env")
	flags.BoolVar(&printConfig, "print-config", false, "print the fully resolved config as YAML and exit")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfigFile merges a YAML config file's fields into cfg. Any field the
// file doesn't set keeps its current (default) value, since cfg is decoded
// into in place rather than replaced.
func loadConfigFile(path string, cfg *broker.Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides lets environment variables named GBE_ROUTER_ plus the
// upper-cased flag name stand in for the listen, data-dir, proxy-binary,
// metrics-listen and log-level flags when the caller did not pass them
// explicitly; an unset variable leaves the current (file or default) value.
// The duration flags are not read from the environment.
func applyEnvOverrides(cmd *cobra.Command, cfg *broker.Config, logLevel *string) {
	v := viper.New()
	v.SetEnvPrefix("GBE_ROUTER")
	v.AutomaticEnv()
	_ = v.BindPFlags(cmd.Flags())

	if !cmd.Flags().Changed("listen") && v.IsSet("listen") {
		cfg.ListenPath = v.GetString("listen")
	}
	if !cmd.Flags().Changed("data-dir") && v.IsSet("data-dir") {
		cfg.DataDir = v.GetString("data-dir")
	}
	if !cmd.Flags().Changed("proxy-binary") && v.IsSet("proxy-binary") {
		cfg.ProxyBinary = v.GetString("proxy-binary")
	}
	if !cmd.Flags().Changed("metrics-listen") && v.IsSet("metrics-listen") {
		cfg.MetricsListen = v.GetString("metrics-listen")
	}
	if !cmd.Flags().Changed("log-level") && v.IsSet("log-level") {
		*logLevel = v.GetString("log-level")
	}
}

func run(cfg broker.Config, logLevel string) error {
	log := logging.New("gbe-router", logging.ParseLevel(logLevel), os.Stderr)

	var metrics *broker.Metrics
	if cfg.MetricsListen != "" {
		reg := prometheus.NewRegistry()
		metrics = broker.NewMetrics(reg)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: cfg.MetricsListen, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.WithError(err).Error("metrics server exited")
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
	}

	srv := broker.New(cfg, log.WithField(logging.FieldEvent, "broker"), metrics)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := srv.Run(ctx); err != nil {
		log.WithError(err).Error("broker exited with error")
		return err
	}
	return nil
}
