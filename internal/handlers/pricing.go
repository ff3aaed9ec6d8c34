package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/mixdispatch/api/internal/domain"
	"github.com/mixdispatch/api/internal/platform/httpx"
	"github.com/mixdispatch/api/internal/services"
)

// PricingHandlers exposes read-only price resolution endpoints. Responses
// carry both raw amounts and display strings rendered with the facility
// currency and locale.
type PricingHandlers struct {
	pricing  services.PricingService
	settings services.SettingsService
	locale   string
}

// NewPricingHandlers constructs a new PricingHandlers instance.
func NewPricingHandlers(pricing services.PricingService, settings services.SettingsService, locale string) *PricingHandlers {
	return &PricingHandlers{
		pricing:  pricing,
		settings: settings,
		locale:   locale,
	}
}

// Routes registers the /pricing endpoints.
func (h *PricingHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/best-price", h.resolveBestPrice)
	r.Get("/orders/{orderID}", h.priceOrder)
	r.Get("/pump-orders/{orderID}", h.pricePumpOrder)
}

type resolvedPricePayload struct {
	Amount        *float64 `json:"amount"`
	AmountDisplay string   `json:"amount_display,omitempty"`
	Reason        string   `json:"reason"`
	RuleID        *string  `json:"rule_id,omitempty"`
}

func (h *PricingHandlers) resolveBestPrice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.pricing == nil {
		writeServiceUnavailable(ctx, w, "pricing")
		return
	}

	query := r.URL.Query()
	cmd := services.ResolvePriceCommand{
		RecipeID:   strings.TrimSpace(query.Get("recipe_id")),
		CustomerID: strings.TrimSpace(query.Get("customer_id")),
		SiteID:     strings.TrimSpace(query.Get("site_id")),
	}

	resolved, err := h.pricing.ResolvePrice(ctx, cmd)
	if err != nil {
		writePricingError(ctx, w, err)
		return
	}

	formatter := h.formatter(ctx)
	payload := resolvedPricePayload{
		Amount: cloneFloatPointer(resolved.Amount),
		Reason: resolved.Reason,
		RuleID: cloneStringPointer(resolved.RuleID),
	}
	if formatter != nil && resolved.Amount != nil {
		payload.AmountDisplay = formatter.Format(*resolved.Amount)
	}
	writeJSONResponse(w, http.StatusOK, payload)
}

type orderPricingPayload struct {
	PriceConcrete      *float64 `json:"price_concrete"`
	PriceTransport     *float64 `json:"price_transport"`
	PriceSurcharges    *float64 `json:"price_surcharges"`
	SkippedSurcharges  []string `json:"skipped_surcharges,omitempty"`
	DistanceDriven     *float64 `json:"distance_driven,omitempty"`
	Total              float64  `json:"total"`
	TotalWithVAT       float64  `json:"total_with_vat"`
	RoundingCorrection float64  `json:"rounding_correction"`
	GrandTotal         float64  `json:"grand_total"`
	GrandTotalDisplay  string   `json:"grand_total_display,omitempty"`
}

func (h *PricingHandlers) priceOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.pricing == nil {
		writeServiceUnavailable(ctx, w, "pricing")
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	pricing, err := h.pricing.PriceOrder(ctx, services.PriceOrderCommand{OrderID: orderID})
	if err != nil {
		writePricingError(ctx, w, err)
		return
	}

	payload := orderPricingPayload{
		PriceConcrete:      cloneFloatPointer(pricing.PriceConcrete),
		PriceTransport:     cloneFloatPointer(pricing.PriceTransport),
		PriceSurcharges:    cloneFloatPointer(pricing.PriceSurcharges),
		SkippedSurcharges:  pricing.SkippedSurcharges,
		DistanceDriven:     cloneFloatPointer(pricing.DistanceDriven),
		Total:              pricing.Total,
		TotalWithVAT:       pricing.TotalWithVAT,
		RoundingCorrection: pricing.RoundingCorrection,
		GrandTotal:         pricing.GrandTotal,
	}
	if formatter := h.formatter(ctx); formatter != nil {
		payload.GrandTotalDisplay = formatter.Format(pricing.GrandTotal)
	}
	writeJSONResponse(w, http.StatusOK, payload)
}

type pumpOrderPricingPayload struct {
	PriceWork          *float64 `json:"price_work"`
	PriceSurcharges    *float64 `json:"price_surcharges"`
	SkippedSurcharges  []string `json:"skipped_surcharges,omitempty"`
	Total              float64  `json:"total"`
	TotalWithVAT       float64  `json:"total_with_vat"`
	RoundingCorrection float64  `json:"rounding_correction"`
	GrandTotal         float64  `json:"grand_total"`
	GrandTotalDisplay  string   `json:"grand_total_display,omitempty"`
}

func (h *PricingHandlers) pricePumpOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.pricing == nil {
		writeServiceUnavailable(ctx, w, "pricing")
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	pricing, err := h.pricing.PricePumpOrder(ctx, services.PricePumpOrderCommand{OrderID: orderID})
	if err != nil {
		writePricingError(ctx, w, err)
		return
	}

	payload := pumpOrderPricingPayload{
		PriceWork:          cloneFloatPointer(pricing.PriceWork),
		PriceSurcharges:    cloneFloatPointer(pricing.PriceSurcharges),
		SkippedSurcharges:  pricing.SkippedSurcharges,
		Total:              pricing.Total,
		TotalWithVAT:       pricing.TotalWithVAT,
		RoundingCorrection: pricing.RoundingCorrection,
		GrandTotal:         pricing.GrandTotal,
	}
	if formatter := h.formatter(ctx); formatter != nil {
		payload.GrandTotalDisplay = formatter.Format(pricing.GrandTotal)
	}
	writeJSONResponse(w, http.StatusOK, payload)
}

// formatter builds a display formatter from the current facility settings.
// Display strings are cosmetic, so a settings failure never fails the
// pricing request.
func (h *PricingHandlers) formatter(ctx context.Context) *domain.AmountFormatter {
	if h.settings == nil {
		return nil
	}
	settings, err := h.settings.Current(ctx)
	if err != nil {
		return nil
	}
	return domain.NewAmountFormatter(h.locale, settings)
}

func writePricingError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrPricingInvalidInput), errors.Is(err, services.ErrPricingMissingInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrPricingNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("pricing_target_not_found", err.Error(), http.StatusNotFound))
	case errors.Is(err, domain.ErrUnsupportedPriceType), errors.Is(err, domain.ErrUnsupportedSurchargeType):
		httpx.WriteError(ctx, w, httpx.NewError("pricing_data_invalid", err.Error(), http.StatusUnprocessableEntity))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("pricing_error", "failed to resolve price", http.StatusInternalServerError))
	}
}
