package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mixdispatch/api/internal/platform/httpx"
	"github.com/mixdispatch/api/internal/services"
)

// PumpOrderHandlers exposes the pump order lifecycle endpoints.
type PumpOrderHandlers struct {
	orders services.PumpOrderService
}

// NewPumpOrderHandlers constructs a new PumpOrderHandlers instance.
func NewPumpOrderHandlers(orders services.PumpOrderService) *PumpOrderHandlers {
	return &PumpOrderHandlers{orders: orders}
}

// Routes registers the /pump-orders endpoints.
func (h *PumpOrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/", h.createPumpOrder)
	r.Get("/", h.listPumpOrders)
	r.Get("/{orderID}", h.getPumpOrder)
	r.Post("/{orderID}:transition", h.transitionPumpOrder)
	r.Post("/{orderID}:archive", h.archivePumpOrder)
	r.Put("/{orderID}/surcharges", h.replaceSurcharges)
}

type createPumpOrderRequest struct {
	PumpID     string   `json:"pump_id"`
	CustomerID string   `json:"customer_id"`
	SiteID     string   `json:"site_id"`
	Hours      *float64 `json:"hours"`
	Comment    string   `json:"comment"`

	PricePerHourOverride *float64 `json:"price_per_hour_override"`
	SurchargeIDs         []string `json:"surcharge_ids"`
}

func (h *PumpOrderHandlers) createPumpOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		writeServiceUnavailable(ctx, w, "pump_order")
		return
	}

	var req createPumpOrderRequest
	if err := decodeJSONBody(r, maxOrderBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	order, err := h.orders.CreatePumpOrder(ctx, services.CreatePumpOrderCommand{
		PumpID:               strings.TrimSpace(req.PumpID),
		CustomerID:           strings.TrimSpace(req.CustomerID),
		SiteID:               strings.TrimSpace(req.SiteID),
		Hours:                req.Hours,
		Comment:              req.Comment,
		PricePerHourOverride: req.PricePerHourOverride,
		SurchargeIDs:         req.SurchargeIDs,
	})
	if err != nil {
		writePumpOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, pumpOrderResponse{Order: buildPumpOrderPayload(order)})
}

func (h *PumpOrderHandlers) listPumpOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		writeServiceUnavailable(ctx, w, "pump_order")
		return
	}

	filter, err := parseOrderListFilter(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	orders, err := h.orders.ListPumpOrders(ctx, filter)
	if err != nil {
		writePumpOrderError(ctx, w, err)
		return
	}

	items := make([]pumpOrderSummaryPayload, 0, len(orders))
	for _, order := range orders {
		items = append(items, buildPumpOrderSummary(order))
	}
	writeJSONResponse(w, http.StatusOK, pumpOrderListResponse{Items: items})
}

func (h *PumpOrderHandlers) getPumpOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		writeServiceUnavailable(ctx, w, "pump_order")
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	order, err := h.orders.GetPumpOrder(ctx, orderID)
	if err != nil {
		writePumpOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, pumpOrderResponse{Order: buildPumpOrderPayload(order)})
}

func (h *PumpOrderHandlers) transitionPumpOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		writeServiceUnavailable(ctx, w, "pump_order")
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	var req transitionOrderRequest
	if err := decodeJSONBody(r, maxOrderBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	status, ok := parseOrderStatus(req.Status)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "status must be a valid order status", http.StatusBadRequest))
		return
	}

	order, err := h.orders.TransitionStatus(ctx, services.OrderStatusTransitionCommand{
		OrderID:      orderID,
		TargetStatus: status,
		Reason:       strings.TrimSpace(req.Reason),
	})
	if err != nil {
		writePumpOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, pumpOrderResponse{Order: buildPumpOrderPayload(order)})
}

func (h *PumpOrderHandlers) archivePumpOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		writeServiceUnavailable(ctx, w, "pump_order")
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	if err := h.orders.ArchivePumpOrder(ctx, orderID); err != nil {
		writePumpOrderError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PumpOrderHandlers) replaceSurcharges(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		writeServiceUnavailable(ctx, w, "pump_order")
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	var req replaceSurchargesRequest
	if err := decodeJSONBody(r, maxOrderBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	order, err := h.orders.ReplaceSurcharges(ctx, services.ReplaceOrderSurchargesCommand{
		OrderID: orderID,
		Items:   buildSurchargeItemInputs(req.Items),
	})
	if err != nil {
		writePumpOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, pumpOrderResponse{Order: buildPumpOrderPayload(order)})
}

type pumpOrderListResponse struct {
	Items []pumpOrderSummaryPayload `json:"items"`
}

type pumpOrderSummaryPayload struct {
	ID        string   `json:"id"`
	Number    string   `json:"number"`
	Status    string   `json:"status"`
	Customer  string   `json:"customer,omitempty"`
	Site      string   `json:"site,omitempty"`
	Hours     *float64 `json:"hours,omitempty"`
	Hidden    bool     `json:"hidden,omitempty"`
	CreatedAt string   `json:"created_at"`
}

type pumpOrderResponse struct {
	Order pumpOrderPayload `json:"order"`
}

type pumpOrderPayload struct {
	ID     string `json:"id"`
	Number string `json:"number"`
	Status string `json:"status"`

	PumpID     *string             `json:"pump_id,omitempty"`
	Pump       pumpSnapshotPayload `json:"pump"`
	CustomerID *string             `json:"customer_id,omitempty"`
	Customer   string              `json:"customer,omitempty"`
	SiteID     *string             `json:"site_id,omitempty"`
	Site       string              `json:"site,omitempty"`

	Hours                 *float64 `json:"hours,omitempty"`
	PricePerHourOverride  *float64 `json:"price_per_hour_override,omitempty"`
	PriceSurchargesTotals *float64 `json:"price_surcharges_totals,omitempty"`

	Comment    string                 `json:"comment,omitempty"`
	Surcharges []surchargeItemPayload `json:"surcharges"`

	Hidden    bool   `json:"hidden,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

type pumpSnapshotPayload struct {
	RegistrationNumber string   `json:"registration_number,omitempty"`
	Driver             string   `json:"driver,omitempty"`
	DriverContact      string   `json:"driver_contact,omitempty"`
	PumpType           string   `json:"pump_type,omitempty"`
	PricePerHour       *float64 `json:"price_per_hour,omitempty"`
}

func buildPumpOrderSummary(order services.PumpOrder) pumpOrderSummaryPayload {
	return pumpOrderSummaryPayload{
		ID:        order.ID,
		Number:    order.Number,
		Status:    string(order.Status),
		Customer:  order.Customer,
		Site:      order.Site,
		Hours:     cloneFloatPointer(order.Hours),
		Hidden:    order.Hidden,
		CreatedAt: formatTime(order.CreatedAt),
	}
}

func buildPumpOrderPayload(order services.PumpOrder) pumpOrderPayload {
	return pumpOrderPayload{
		ID:     order.ID,
		Number: order.Number,
		Status: string(order.Status),
		PumpID: cloneStringPointer(order.PumpID),
		Pump: pumpSnapshotPayload{
			RegistrationNumber: order.Pump.RegistrationNumber,
			Driver:             order.Pump.Driver,
			DriverContact:      order.Pump.DriverContact,
			PumpType:           order.Pump.PumpType,
			PricePerHour:       cloneFloatPointer(order.Pump.PricePerHour),
		},
		CustomerID:            cloneStringPointer(order.CustomerID),
		Customer:              order.Customer,
		SiteID:                cloneStringPointer(order.SiteID),
		Site:                  order.Site,
		Hours:                 cloneFloatPointer(order.Hours),
		PricePerHourOverride:  cloneFloatPointer(order.PricePerHourOverride),
		PriceSurchargesTotals: cloneFloatPointer(order.PriceSurchargesTotals),
		Comment:               order.Comment,
		Surcharges:            buildSurchargeItemPayloads(order.Surcharges),
		Hidden:                order.Hidden,
		CreatedAt:             formatTime(order.CreatedAt),
		UpdatedAt:             formatTime(order.UpdatedAt),
	}
}

func writePumpOrderError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrPumpOrderInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrPumpOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("pump_order_not_found", "pump order not found", http.StatusNotFound))
	case errors.Is(err, services.ErrPumpOrderInvalidState):
		httpx.WriteError(ctx, w, httpx.NewError("pump_order_invalid_state", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrPumpOrderConflict):
		httpx.WriteError(ctx, w, httpx.NewError("pump_order_conflict", err.Error(), http.StatusConflict))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("pump_order_error", "failed to process pump order request", http.StatusInternalServerError))
	}
}
