package handlers

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mixdispatch/api/internal/platform/httpx"
	"github.com/mixdispatch/api/internal/services"
)

const (
	maxExportBodySize = 8 * 1024

	defaultExportRateLimit  = 5
	defaultExportRateWindow = time.Minute
)

// ExportHandlers exposes the finished-order export endpoint. Exports scan
// a whole date range of orders, so requests are rate limited per client.
type ExportHandlers struct {
	exports services.ExportService
	limiter rateLimiter
}

// ExportOption customises ExportHandlers construction.
type ExportOption func(*ExportHandlers)

// WithExportRateLimiter overrides the default per-client limiter.
func WithExportRateLimiter(limiter rateLimiter) ExportOption {
	return func(h *ExportHandlers) {
		h.limiter = limiter
	}
}

// NewExportHandlers constructs a new ExportHandlers instance.
func NewExportHandlers(exports services.ExportService, opts ...ExportOption) *ExportHandlers {
	h := &ExportHandlers{
		exports: exports,
		limiter: newSlidingWindowLimiter(defaultExportRateLimit, defaultExportRateWindow, nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Routes registers the /exports endpoints.
func (h *ExportHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/orders", h.exportOrders)
}

type exportOrdersRequest struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Status *string `json:"status"`
}

func (h *ExportHandlers) exportOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.exports == nil {
		writeServiceUnavailable(ctx, w, "export")
		return
	}
	if h.limiter != nil && !h.limiter.Allow(clientKey(r)) {
		httpx.WriteError(ctx, w, httpx.NewError("rate_limited", "too many export requests, retry later", http.StatusTooManyRequests))
		return
	}

	var req exportOrdersRequest
	if err := decodeJSONBody(r, maxExportBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	from, err := parseTimeParam(req.From)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "from must be an RFC 3339 timestamp", http.StatusBadRequest))
		return
	}
	to, err := parseTimeParam(req.To)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "to must be an RFC 3339 timestamp", http.StatusBadRequest))
		return
	}

	cmd := services.ExportOrdersCommand{From: from, To: to}
	if req.Status != nil {
		status, ok := parseOrderStatus(*req.Status)
		if !ok {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "status is not a known order status", http.StatusBadRequest))
			return
		}
		cmd.Status = &status
	}

	result, err := h.exports.ExportOrders(ctx, cmd)
	if err != nil {
		writeExportError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, exportResultPayload{
		ObjectName: result.ObjectName,
		Orders:     result.Orders,
		Deliveries: result.Deliveries,
		WrittenAt:  formatTime(result.WrittenAt),
	})
}

type exportResultPayload struct {
	ObjectName string `json:"object_name"`
	Orders     int    `json:"orders"`
	Deliveries int    `json:"deliveries"`
	WrittenAt  string `json:"written_at"`
}

// clientKey identifies the caller for rate limiting. RealIP middleware
// rewrites RemoteAddr from forwarding headers before this runs.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}

func writeExportError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrExportInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrExportUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("export_unavailable", err.Error(), http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("export_error", "failed to export orders", http.StatusInternalServerError))
	}
}
