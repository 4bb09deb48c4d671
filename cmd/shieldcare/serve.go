package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"shieldcare/internal/eligibility/handler"
	"shieldcare/internal/platform/httpserver"
	httpmetrics "shieldcare/internal/platform/metrics"
	"shieldcare/internal/platform/middleware"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd)
		},
	}
	cmd.Flags().String("addr", "", "listen address (overrides server.addr)")
	return cmd
}

func (a *app) serve(cmd *cobra.Command) error {
	ctx := cmd.Context()
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		a.cfg.Server.Addr = addr
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	workflow, err := a.newWorkflow(reg, a.logger)
	if err != nil {
		return err
	}
	defer workflow.Close()
	connector, err := a.newWallet()
	if err != nil {
		return err
	}
	httpMetrics := httpmetrics.New(reg)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger(a.logger))
	r.Use(middleware.Instrument(httpMetrics))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	handler.New(workflow, connector, a.logger,
		handler.WithMetrics(httpMetrics),
		handler.WithWalletRequired(a.cfg.Wallet.Required),
	).Register(r)

	a.logger.InfoContext(ctx, "starting shieldcare",
		"addr", a.cfg.Server.Addr,
		"version", version,
		"wallet_required", a.cfg.Wallet.Required,
	)
	srv := httpserver.New(a.cfg.Server.Addr, r)
	return httpserver.Run(ctx, srv, a.cfg.Server.ShutdownTimeout, a.logger)
}
