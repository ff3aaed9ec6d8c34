package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/mixdispatch/api/internal/domain"
	"github.com/mixdispatch/api/internal/platform/httpx"
	"github.com/mixdispatch/api/internal/services"
)

const (
	defaultOrderPageSize = 50
	maxOrderPageSize     = 200
	maxOrderBodySize     = 64 * 1024
)

// OrderHandlers exposes the dispatcher-facing order lifecycle endpoints.
type OrderHandlers struct {
	orders services.OrderService
}

// NewOrderHandlers constructs a new OrderHandlers instance.
func NewOrderHandlers(orders services.OrderService) *OrderHandlers {
	return &OrderHandlers{orders: orders}
}

// Routes registers the /orders endpoints.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/", h.createOrder)
	r.Get("/", h.listOrders)
	r.Get("/{orderID}", h.getOrder)
	r.Post("/{orderID}:transition", h.transitionOrder)
	r.Post("/{orderID}:archive", h.archiveOrder)
	r.Put("/{orderID}/overrides", h.updateOverrides)
	r.Put("/{orderID}/surcharges", h.replaceSurcharges)
	r.Post("/{orderID}/deliveries", h.recordDelivery)
	r.Post("/{orderID}/batches", h.recordBatch)
}

type createOrderRequest struct {
	RecipeID   string  `json:"recipe_id"`
	CustomerID string  `json:"customer_id"`
	SiteID     string  `json:"site_id"`
	ContractID string  `json:"contract_id"`
	Volume     float64 `json:"volume"`
	Comment    string  `json:"comment"`

	WithoutTransport bool `json:"without_transport"`

	PriceConcreteOverride   *float64 `json:"price_concrete_override"`
	PriceTransportOverride  *float64 `json:"price_transport_override"`
	PriceSurchargesOverride *float64 `json:"price_surcharges_override"`
	DistanceDrivenOverride  *float64 `json:"distance_driven_override"`
	PricePerKmOverride      *float64 `json:"price_per_km_override"`
	TransportZoneOverride   *string  `json:"transport_zone_override"`

	SurchargeIDs []string `json:"surcharge_ids"`
}

func (h *OrderHandlers) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		writeServiceUnavailable(ctx, w, "order")
		return
	}

	var req createOrderRequest
	if err := decodeJSONBody(r, maxOrderBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	order, err := h.orders.CreateOrder(ctx, services.CreateOrderCommand{
		RecipeID:                strings.TrimSpace(req.RecipeID),
		CustomerID:              strings.TrimSpace(req.CustomerID),
		SiteID:                  strings.TrimSpace(req.SiteID),
		ContractID:              strings.TrimSpace(req.ContractID),
		Volume:                  req.Volume,
		Comment:                 req.Comment,
		WithoutTransport:        req.WithoutTransport,
		PriceConcreteOverride:   req.PriceConcreteOverride,
		PriceTransportOverride:  req.PriceTransportOverride,
		PriceSurchargesOverride: req.PriceSurchargesOverride,
		DistanceDrivenOverride:  req.DistanceDrivenOverride,
		PricePerKmOverride:      req.PricePerKmOverride,
		TransportZoneOverride:   req.TransportZoneOverride,
		SurchargeIDs:            req.SurchargeIDs,
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		writeServiceUnavailable(ctx, w, "order")
		return
	}

	filter, err := parseOrderListFilter(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	orders, err := h.orders.ListOrders(ctx, filter)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	items := make([]orderSummaryPayload, 0, len(orders))
	for _, order := range orders {
		items = append(items, buildOrderSummary(order))
	}
	writeJSONResponse(w, http.StatusOK, orderListResponse{Items: items})
}

func (h *OrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		writeServiceUnavailable(ctx, w, "order")
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	opts := parseOrderReadOptions(r)
	detail, err := h.orders.GetOrder(ctx, orderID, opts)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	payload := orderDetailResponse{Order: buildOrderPayload(detail.Order)}
	if opts.IncludeDeliveries {
		payload.Deliveries = buildDeliveryPayloads(detail.Deliveries)
	}
	if opts.IncludeBatches {
		payload.Batches = buildBatchPayloads(detail.Batches)
	}
	if opts.IncludeMaterials {
		payload.Materials = buildOrderMaterialPayloads(detail.Materials)
	}
	writeJSONResponse(w, http.StatusOK, payload)
}

type transitionOrderRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

func (h *OrderHandlers) transitionOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		writeServiceUnavailable(ctx, w, "order")
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
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) archiveOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		writeServiceUnavailable(ctx, w, "order")
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	if err := h.orders.ArchiveOrder(ctx, orderID); err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *OrderHandlers) updateOverrides(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		writeServiceUnavailable(ctx, w, "order")
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	body, err := readLimitedBody(r, maxOrderBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	cmd, err := parseOverridesRequest(orderID, body)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	order, err := h.orders.UpdateOverrides(ctx, cmd)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

type surchargeItemRequest struct {
	SurchargeID string   `json:"surcharge_id"`
	Amount      *float64 `json:"amount"`
}

type replaceSurchargesRequest struct {
	Items []surchargeItemRequest `json:"items"`
}

func (h *OrderHandlers) replaceSurcharges(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		writeServiceUnavailable(ctx, w, "order")
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
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

type recordDeliveryRequest struct {
	CarID  string  `json:"car_id"`
	Volume float64 `json:"volume"`
}

func (h *OrderHandlers) recordDelivery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		writeServiceUnavailable(ctx, w, "order")
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	var req recordDeliveryRequest
	if err := decodeJSONBody(r, maxOrderBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	delivery, err := h.orders.RecordDelivery(ctx, services.RecordDeliveryCommand{
		OrderID: orderID,
		CarID:   strings.TrimSpace(req.CarID),
		Volume:  req.Volume,
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, deliveryResponse{Delivery: buildDeliveryPayload(delivery)})
}

type batchMaterialRequest struct {
	MaterialID string  `json:"material_id"`
	Required   float64 `json:"required"`
	Dosed      float64 `json:"dosed"`
}

type recordBatchRequest struct {
	Volume     float64                `json:"volume"`
	ProducedAt *string                `json:"produced_at"`
	Materials  []batchMaterialRequest `json:"materials"`
}

func (h *OrderHandlers) recordBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		writeServiceUnavailable(ctx, w, "order")
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	var req recordBatchRequest
	if err := decodeJSONBody(r, maxOrderBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	cmd := services.RecordBatchCommand{
		OrderID: orderID,
		Volume:  req.Volume,
	}
	if req.ProducedAt != nil {
		ts, err := parseTimeParam(strings.TrimSpace(*req.ProducedAt))
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "produced_at must be a valid RFC3339 timestamp", http.StatusBadRequest))
			return
		}
		cmd.ProducedAt = &ts
	}
	for _, line := range req.Materials {
		cmd.Materials = append(cmd.Materials, services.BatchMaterialInput{
			MaterialID: strings.TrimSpace(line.MaterialID),
			Required:   line.Required,
			Dosed:      line.Dosed,
		})
	}

	batch, err := h.orders.RecordBatch(ctx, cmd)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, batchResponse{Batch: buildBatchPayload(batch)})
}

// parseOverridesRequest keeps "key absent" apart from "key set to null":
// an absent key leaves the stored override untouched, an explicit null
// clears it.
func parseOverridesRequest(orderID string, body []byte) (services.UpdateOrderOverridesCommand, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return services.UpdateOrderOverridesCommand{}, errors.New("invalid JSON body")
	}

	cmd := services.UpdateOrderOverridesCommand{OrderID: orderID}

	floatField := func(key string, set *bool, target **float64) error {
		value, ok := raw[key]
		if !ok {
			return nil
		}
		*set = true
		if string(value) == "null" {
			return nil
		}
		var parsed float64
		if err := json.Unmarshal(value, &parsed); err != nil {
			return errors.New(key + " must be a number or null")
		}
		*target = &parsed
		return nil
	}

	if err := floatField("price_concrete", &cmd.SetPriceConcrete, &cmd.PriceConcrete); err != nil {
		return cmd, err
	}
	if err := floatField("price_transport", &cmd.SetPriceTransport, &cmd.PriceTransport); err != nil {
		return cmd, err
	}
	if err := floatField("price_surcharges", &cmd.SetPriceSurcharges, &cmd.PriceSurcharges); err != nil {
		return cmd, err
	}
	if err := floatField("distance_driven", &cmd.SetDistanceDriven, &cmd.DistanceDriven); err != nil {
		return cmd, err
	}
	if err := floatField("price_per_km", &cmd.SetPricePerKm, &cmd.PricePerKm); err != nil {
		return cmd, err
	}

	if value, ok := raw["transport_zone_id"]; ok {
		cmd.SetTransportZone = true
		if string(value) != "null" {
			var parsed string
			if err := json.Unmarshal(value, &parsed); err != nil {
				return cmd, errors.New("transport_zone_id must be a string or null")
			}
			trimmed := strings.TrimSpace(parsed)
			cmd.TransportZoneID = &trimmed
		}
	}

	if value, ok := raw["without_transport"]; ok {
		cmd.SetWithoutTransport = true
		var parsed bool
		if err := json.Unmarshal(value, &parsed); err != nil {
			return cmd, errors.New("without_transport must be a boolean")
		}
		cmd.WithoutTransport = parsed
	}

	return cmd, nil
}

func parseOrderListFilter(r *http.Request) (services.OrderListFilter, error) {
	query := r.URL.Query()
	filter := services.OrderListFilter{}

	if raw := strings.TrimSpace(query.Get("status")); raw != "" {
		status, ok := parseOrderStatus(raw)
		if !ok {
			return filter, errors.New("status must be a valid order status")
		}
		filter.Status = &status
	}
	if raw := strings.TrimSpace(query.Get("customer_id")); raw != "" {
		filter.CustomerID = &raw
	}
	if raw := strings.TrimSpace(query.Get("created_after")); raw != "" {
		ts, err := parseTimeParam(raw)
		if err != nil {
			return filter, errors.New("created_after must be a valid RFC3339 timestamp")
		}
		filter.CreatedFrom = &ts
	}
	if raw := strings.TrimSpace(query.Get("created_before")); raw != "" {
		ts, err := parseTimeParam(raw)
		if err != nil {
			return filter, errors.New("created_before must be a valid RFC3339 timestamp")
		}
		filter.CreatedTo = &ts
	}

	includeHidden, err := parseBoolParam(query.Get("include_hidden"))
	if err != nil {
		return filter, errors.New("include_hidden must be a boolean")
	}
	filter.IncludeHidden = includeHidden

	limit, err := parseLimitParam(query.Get("limit"), defaultOrderPageSize, maxOrderPageSize)
	if err != nil {
		return filter, errors.New("limit must be an integer")
	}
	filter.Limit = limit

	return filter, nil
}

func parseOrderReadOptions(r *http.Request) services.OrderReadOptions {
	opts := services.OrderReadOptions{}
	for _, raw := range r.URL.Query()["include"] {
		for _, part := range strings.Split(raw, ",") {
			switch strings.ToLower(strings.TrimSpace(part)) {
			case "deliveries":
				opts.IncludeDeliveries = true
			case "batches":
				opts.IncludeBatches = true
			case "materials":
				opts.IncludeMaterials = true
			}
		}
	}
	return opts
}

func parseOrderStatus(raw string) (services.OrderStatus, bool) {
	status := domain.OrderStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !status.Valid() {
		return "", false
	}
	return status, true
}

type orderListResponse struct {
	Items []orderSummaryPayload `json:"items"`
}

type orderSummaryPayload struct {
	ID        string  `json:"id"`
	Number    string  `json:"number"`
	Status    string  `json:"status"`
	Volume    float64 `json:"volume"`
	Customer  string  `json:"customer,omitempty"`
	Site      string  `json:"site,omitempty"`
	Recipe    string  `json:"recipe,omitempty"`
	Hidden    bool    `json:"hidden,omitempty"`
	CreatedAt string  `json:"created_at"`
}

type orderResponse struct {
	Order orderPayload `json:"order"`
}

type orderDetailResponse struct {
	Order      orderPayload           `json:"order"`
	Deliveries []deliveryPayload      `json:"deliveries,omitempty"`
	Batches    []batchPayload         `json:"batches,omitempty"`
	Materials  []orderMaterialPayload `json:"materials,omitempty"`
}

type orderPayload struct {
	ID     string  `json:"id"`
	Number string  `json:"number"`
	Status string  `json:"status"`
	Volume float64 `json:"volume"`

	Recipe     recipeSnapshotPayload `json:"recipe"`
	RecipeID   *string               `json:"recipe_id,omitempty"`
	CustomerID *string               `json:"customer_id,omitempty"`
	Customer   string                `json:"customer,omitempty"`
	SiteID     *string               `json:"site_id,omitempty"`
	Site       string                `json:"site,omitempty"`
	ContractID *string               `json:"contract_id,omitempty"`

	Comment          string `json:"comment,omitempty"`
	WithoutTransport bool   `json:"without_transport"`

	PriceConcreteOverride   *float64 `json:"price_concrete_override,omitempty"`
	PriceTransportOverride  *float64 `json:"price_transport_override,omitempty"`
	PriceSurchargesOverride *float64 `json:"price_surcharges_override,omitempty"`
	DistanceDrivenOverride  *float64 `json:"distance_driven_override,omitempty"`
	PricePerKmOverride      *float64 `json:"price_per_km_override,omitempty"`
	TransportZoneOverride   *string  `json:"transport_zone_override,omitempty"`

	Surcharges []surchargeItemPayload `json:"surcharges"`

	Hidden    bool   `json:"hidden,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

type recipeSnapshotPayload struct {
	Name             string   `json:"name"`
	Number           *string  `json:"number,omitempty"`
	RecipeClass      string   `json:"recipe_class,omitempty"`
	Description      string   `json:"description,omitempty"`
	ConsistencyClass string   `json:"consistency_class,omitempty"`
	ExposureClasses  string   `json:"exposure_classes,omitempty"`
	Price            *float64 `json:"price,omitempty"`
	PriceNote        string   `json:"price_note,omitempty"`
}

type surchargeItemPayload struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Price    float64  `json:"price"`
	Type     string   `json:"type"`
	UnitName *string  `json:"unit_name,omitempty"`
	Amount   *float64 `json:"amount,omitempty"`
}

type deliveryResponse struct {
	Delivery deliveryPayload `json:"delivery"`
}

type deliveryPayload struct {
	ID                 string   `json:"id"`
	OrderID            string   `json:"order_id"`
	Volume             float64  `json:"volume"`
	CarID              *string  `json:"car_id,omitempty"`
	RegistrationNumber string   `json:"registration_number,omitempty"`
	Driver             string   `json:"driver,omitempty"`
	TransportTypeName  string   `json:"transport_type_name,omitempty"`
	PricePerKm         *float64 `json:"price_per_km,omitempty"`
	SiteDistance       *float64 `json:"site_distance,omitempty"`
	DistanceDriven     *float64 `json:"distance_driven,omitempty"`
	CreatedAt          string   `json:"created_at"`
}

type batchResponse struct {
	Batch batchPayload `json:"batch"`
}

type batchPayload struct {
	ID         string                 `json:"id"`
	OrderID    string                 `json:"order_id"`
	Volume     float64                `json:"volume"`
	Materials  []batchMaterialPayload `json:"materials"`
	ProducedAt string                 `json:"produced_at"`
}

type batchMaterialPayload struct {
	MaterialID *string `json:"material_id,omitempty"`
	Name       string  `json:"name"`
	Required   float64 `json:"required"`
	Dosed      float64 `json:"dosed"`
}

type orderMaterialPayload struct {
	ID         string   `json:"id"`
	MaterialID *string  `json:"material_id,omitempty"`
	Name       string   `json:"name"`
	Amount     float64  `json:"amount"`
	KValue     *float64 `json:"k_value,omitempty"`
	KRatio     *float64 `json:"k_ratio,omitempty"`
}

func buildOrderSummary(order services.Order) orderSummaryPayload {
	return orderSummaryPayload{
		ID:        order.ID,
		Number:    order.Number,
		Status:    string(order.Status),
		Volume:    order.Volume,
		Customer:  order.Customer,
		Site:      order.Site,
		Recipe:    order.Recipe.Name,
		Hidden:    order.Hidden,
		CreatedAt: formatTime(order.CreatedAt),
	}
}

func buildOrderPayload(order services.Order) orderPayload {
	return orderPayload{
		ID:     order.ID,
		Number: order.Number,
		Status: string(order.Status),
		Volume: order.Volume,
		Recipe: recipeSnapshotPayload{
			Name:             order.Recipe.Name,
			Number:           cloneStringPointer(order.Recipe.Number),
			RecipeClass:      order.Recipe.RecipeClass,
			Description:      order.Recipe.Description,
			ConsistencyClass: order.Recipe.ConsistencyClass,
			ExposureClasses:  order.Recipe.ExposureClasses,
			Price:            cloneFloatPointer(order.Recipe.Price),
			PriceNote:        order.Recipe.PriceNote,
		},
		RecipeID:                cloneStringPointer(order.RecipeID),
		CustomerID:              cloneStringPointer(order.CustomerID),
		Customer:                order.Customer,
		SiteID:                  cloneStringPointer(order.SiteID),
		Site:                    order.Site,
		ContractID:              cloneStringPointer(order.ContractID),
		Comment:                 order.Comment,
		WithoutTransport:        order.WithoutTransport,
		PriceConcreteOverride:   cloneFloatPointer(order.PriceConcreteOverride),
		PriceTransportOverride:  cloneFloatPointer(order.PriceTransportOverride),
		PriceSurchargesOverride: cloneFloatPointer(order.PriceSurchargesOverride),
		DistanceDrivenOverride:  cloneFloatPointer(order.DistanceDrivenOverride),
		PricePerKmOverride:      cloneFloatPointer(order.PricePerKmOverride),
		TransportZoneOverride:   cloneStringPointer(order.TransportZoneOverride),
		Surcharges:              buildSurchargeItemPayloads(order.Surcharges),
		Hidden:                  order.Hidden,
		CreatedAt:               formatTime(order.CreatedAt),
		UpdatedAt:               formatTime(order.UpdatedAt),
	}
}

func buildSurchargeItemPayloads(items []domain.SurchargeItem) []surchargeItemPayload {
	result := make([]surchargeItemPayload, 0, len(items))
	for _, item := range items {
		result = append(result, surchargeItemPayload{
			ID:       item.ID,
			Name:     item.Name,
			Price:    item.Price,
			Type:     string(item.Type),
			UnitName: cloneStringPointer(item.UnitName),
			Amount:   cloneFloatPointer(item.Amount),
		})
	}
	return result
}

func buildSurchargeItemInputs(items []surchargeItemRequest) []services.SurchargeItemInput {
	result := make([]services.SurchargeItemInput, 0, len(items))
	for _, item := range items {
		result = append(result, services.SurchargeItemInput{
			SurchargeID: strings.TrimSpace(item.SurchargeID),
			Amount:      item.Amount,
		})
	}
	return result
}

func buildDeliveryPayload(delivery services.Delivery) deliveryPayload {
	return deliveryPayload{
		ID:                 delivery.ID,
		OrderID:            delivery.OrderID,
		Volume:             delivery.Volume,
		CarID:              cloneStringPointer(delivery.CarID),
		RegistrationNumber: delivery.Car.RegistrationNumber,
		Driver:             delivery.Car.Driver,
		TransportTypeName:  delivery.Car.TransportTypeName,
		PricePerKm:         cloneFloatPointer(delivery.Car.PricePerKm),
		SiteDistance:       cloneFloatPointer(delivery.SiteDistance),
		DistanceDriven:     cloneFloatPointer(delivery.DistanceDriven),
		CreatedAt:          formatTime(delivery.CreatedAt),
	}
}

func buildDeliveryPayloads(deliveries []services.Delivery) []deliveryPayload {
	if len(deliveries) == 0 {
		return nil
	}
	result := make([]deliveryPayload, 0, len(deliveries))
	for _, delivery := range deliveries {
		result = append(result, buildDeliveryPayload(delivery))
	}
	return result
}

func buildBatchPayload(batch services.Batch) batchPayload {
	payload := batchPayload{
		ID:         batch.ID,
		OrderID:    batch.OrderID,
		Volume:     batch.Volume,
		Materials:  make([]batchMaterialPayload, 0, len(batch.Materials)),
		ProducedAt: formatTime(batch.ProducedAt),
	}
	for _, line := range batch.Materials {
		payload.Materials = append(payload.Materials, batchMaterialPayload{
			MaterialID: cloneStringPointer(line.MaterialID),
			Name:       line.Name,
			Required:   line.Required,
			Dosed:      line.Dosed,
		})
	}
	return payload
}

func buildBatchPayloads(batches []services.Batch) []batchPayload {
	if len(batches) == 0 {
		return nil
	}
	result := make([]batchPayload, 0, len(batches))
	for _, batch := range batches {
		result = append(result, buildBatchPayload(batch))
	}
	return result
}

func buildOrderMaterialPayloads(materials []services.OrderMaterial) []orderMaterialPayload {
	if len(materials) == 0 {
		return nil
	}
	result := make([]orderMaterialPayload, 0, len(materials))
	for _, line := range materials {
		result = append(result, orderMaterialPayload{
			ID:         line.ID,
			MaterialID: cloneStringPointer(line.MaterialID),
			Name:       line.Name,
			Amount:     line.Amount,
			KValue:     cloneFloatPointer(line.KValue),
			KRatio:     cloneFloatPointer(line.KRatio),
		})
	}
	return result
}

func writeOrderError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrOrderInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
	case errors.Is(err, services.ErrOrderInvalidState):
		httpx.WriteError(ctx, w, httpx.NewError("order_invalid_state", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrOrderArchived):
		httpx.WriteError(ctx, w, httpx.NewError("order_archived", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrOrderConflict):
		httpx.WriteError(ctx, w, httpx.NewError("order_conflict", err.Error(), http.StatusConflict))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("order_error", "failed to process order request", http.StatusInternalServerError))
	}
}

func writeBodyError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errBodyTooLarge):
		httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
	case errors.Is(err, errEmptyBody):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body is required", http.StatusBadRequest))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	}
}

func writeServiceUnavailable(ctx context.Context, w http.ResponseWriter, name string) {
	httpx.WriteError(ctx, w, httpx.NewError(name+"_service_unavailable", name+" service unavailable", http.StatusServiceUnavailable))
}
