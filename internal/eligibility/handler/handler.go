// Package handler exposes the eligibility workflow over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"shieldcare/internal/eligibility"
	"shieldcare/internal/health"
	"shieldcare/internal/platform/metrics"
	"shieldcare/internal/wallet"
	dErrors "shieldcare/pkg/domain-errors"
	"shieldcare/pkg/platform/httputil"
)

// Workflow is the subset of the eligibility workflow the handler drives.
type Workflow interface {
	Snapshot() eligibility.Snapshot
	SetField(ctx context.Context, metric health.Metric, raw string) error
	SubmitWith(ctx context.Context, edits ...eligibility.FieldEdit) (*eligibility.Run, error)
	Reset(ctx context.Context) eligibility.Snapshot
	Subscribe(buffer int) (<-chan eligibility.Event, func())
}

// Wallet connects wallets and validates their session tokens.
type Wallet interface {
	wallet.TokenValidator
	Connect(ctx context.Context) (*wallet.Session, error)
}

// Handler wires eligibility endpoints to the workflow.
type Handler struct {
	workflow Workflow
	wallet   Wallet
	logger   *slog.Logger
	metrics  *metrics.Metrics
	stream   *streamer

	walletRequired bool
}

type Option func(*Handler)

// WithMetrics records wallet sessions issued through the handler.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) {
		h.metrics = m
	}
}

// WithWalletRequired controls whether submit and reset need a wallet token.
// Defaults to true.
func WithWalletRequired(required bool) Option {
	return func(h *Handler) {
		h.walletRequired = required
	}
}

// New constructs an eligibility handler with its dependencies.
func New(workflow Workflow, w Wallet, logger *slog.Logger, opts ...Option) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	h := &Handler{
		workflow: workflow,
		wallet:   w,
		logger:   logger,

		walletRequired: true,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.stream = newStreamer(workflow, logger)
	return h
}

// Register mounts eligibility endpoints on the router. Submit and reset
// require a connected wallet unless the gate is disabled.
func (h *Handler) Register(r chi.Router) {
	r.Post("/wallet/connect", h.HandleConnect)
	r.Get("/health-status", h.HandleHealthStatus)
	r.Route("/eligibility", func(r chi.Router) {
		r.Get("/", h.HandleSnapshot)
		r.Put("/form", h.HandleSetForm)
		r.Get("/events", h.stream.ServeHTTP)
		r.Group(func(r chi.Router) {
			if h.walletRequired {
				r.Use(wallet.RequireWallet(h.wallet, h.logger))
			}
			r.Post("/submit", h.HandleSubmit)
			r.Post("/reset", h.HandleReset)
		})
	})
}

// HandleConnect handles POST /wallet/connect.
func (h *Handler) HandleConnect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, err := h.wallet.Connect(ctx)
	if err != nil {
		if ctx.Err() != nil {
			h.logger.DebugContext(ctx, "wallet connection abandoned by client", "error", err)
			return
		}
		h.logger.ErrorContext(ctx, "wallet connection failed", "error", err)
		httputil.WriteError(w, err)
		return
	}
	h.metrics.IncrementWalletsIssued()
	httputil.WriteJSON(w, http.StatusOK, WalletResponse{
		Address:   session.Address,
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
	})
}

// HandleSnapshot handles GET /eligibility.
func (h *Handler) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, FromSnapshot(h.workflow.Snapshot()))
}

// HandleSetForm handles PUT /eligibility/form.
func (h *Handler) HandleSetForm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[FormRequest](w, r, h.logger, false)
	if !ok {
		return
	}
	if req.IsEmpty() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "at least one field is required"))
		return
	}
	if err := h.applyEdits(ctx, req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromSnapshot(h.workflow.Snapshot()))
}

// HandleSubmit handles POST /eligibility/submit. An optional body sets form
// fields; they are kept only if the run starts.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	address := wallet.AddressFrom(ctx)

	req, ok := httputil.DecodeAndPrepare[FormRequest](w, r, h.logger, true)
	if !ok {
		return
	}

	run, err := h.workflow.SubmitWith(ctx, req.Edits()...)
	if err != nil {
		h.logger.WarnContext(ctx, "eligibility submission rejected",
			"address", address,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	snap := h.workflow.Snapshot()
	h.logger.InfoContext(ctx, "eligibility run accepted",
		"address", address,
		"run_id", run.ID(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusAccepted, SubmitResponse{
		RunID:   run.ID(),
		Stage:   snap.Stage,
		Message: snap.Message,
	})
}

// HandleReset handles POST /eligibility/reset.
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	snap := h.workflow.Reset(ctx)
	h.logger.InfoContext(ctx, "eligibility workflow reset", "address", wallet.AddressFrom(ctx))
	httputil.WriteJSON(w, http.StatusOK, FromSnapshot(snap))
}

// HandleHealthStatus handles GET /health-status?metric=&value=.
func (h *Handler) HandleHealthStatus(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	metric, err := health.ParseMetric(q.Get("metric"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "metric must be one of age, bloodPressure, bloodSugar"))
		return
	}
	value, err := strconv.Atoi(q.Get("value"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "value must be a whole number"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, StatusResponse{
		Metric: metric,
		Value:  value,
		Status: health.Status(value, metric),
		Hint:   metric.Hint(),
	})
}

func (h *Handler) applyEdits(ctx context.Context, req *FormRequest) error {
	for _, edit := range req.Edits() {
		if err := h.workflow.SetField(ctx, edit.Metric, edit.Raw); err != nil {
			return err
		}
	}
	return nil
}
