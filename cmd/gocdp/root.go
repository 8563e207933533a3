package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/localrivet/gocdp"
	"github.com/localrivet/gocdp/client"
	"github.com/localrivet/gocdp/config"
	"github.com/localrivet/gocdp/logx"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath  string
	host        string
	logLevel    string
	logFormat   string
	metricsAddr string
}

// app is the state prepared before a subcommand runs.
type app struct {
	flags globalFlags

	cfg       *config.Config
	logger    *slog.Logger
	logCloser io.Closer
	registry  *prometheus.Registry
	metrics   *http.Server
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "gocdp",
		Short:         "DevTools protocol client",
		Version:       gocdp.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.teardown()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configPath, "config", "", "config file (.json, .yaml, .toml)")
	pf.StringVar(&a.flags.host, "host", "", "browser host or ws:// endpoint (default "+config.DefaultHost+")")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&a.flags.logFormat, "log-format", "", "log format: text or json")
	pf.StringVar(&a.flags.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")

	root.AddCommand(
		newVersionCmd(a),
		newSendCmd(a),
		newListenCmd(a),
		newNewTargetCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg := config.Default()
	if a.flags.configPath != "" {
		loaded, err := config.Load(a.flags.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	} else {
		cfg.ApplyEnv()
	}

	if a.flags.host != "" {
		cfg.Host = a.flags.host
	}
	if a.flags.logLevel != "" {
		cfg.Log.Level = a.flags.logLevel
	}
	if a.flags.logFormat != "" {
		cfg.Log.Format = a.flags.logFormat
	}
	if a.flags.metricsAddr != "" {
		cfg.MetricsAddr = a.flags.metricsAddr
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	if cfg.Log.Output == "" {
		cfg.Log.Output = "stderr"
	}
	logger, closer, err := logx.New(cfg.Log)
	if err != nil {
		return err
	}
	a.logger, a.logCloser = logger, closer

	if cfg.MetricsAddr != "" {
		return a.serveMetrics(cmd.Context(), cfg.MetricsAddr)
	}
	return nil
}

func (a *app) serveMetrics(ctx context.Context, addr string) error {
	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	a.metrics = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	go func() {
		if err := a.metrics.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server failed", "error", err)
		}
	}()
	a.logger.Info("serving metrics", "addr", ln.Addr().String())
	return nil
}

func (a *app) teardown() error {
	if a.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = a.metrics.Shutdown(ctx)
	}
	if a.logCloser != nil {
		return a.logCloser.Close()
	}
	return nil
}

// connect opens a client using the prepared configuration.
func (a *app) connect(ctx context.Context) (*client.Client, error) {
	opts := append(a.cfg.ClientOptions(), client.WithLogger(a.logger))
	if a.registry != nil {
		opts = append(opts, client.WithMetrics(a.registry))
	}
	return client.Connect(ctx, a.cfg.Host, opts...)
}
