package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mixdispatch/api/internal/domain"
	"github.com/mixdispatch/api/internal/services"
)

type stubOrderService struct {
	createFn     func(context.Context, services.CreateOrderCommand) (services.Order, error)
	getFn        func(context.Context, string, services.OrderReadOptions) (services.OrderDetail, error)
	listFn       func(context.Context, services.OrderListFilter) ([]services.Order, error)
	transitionFn func(context.Context, services.OrderStatusTransitionCommand) (services.Order, error)
	overridesFn  func(context.Context, services.UpdateOrderOverridesCommand) (services.Order, error)
	surchargesFn func(context.Context, services.ReplaceOrderSurchargesCommand) (services.Order, error)
	deliveryFn   func(context.Context, services.RecordDeliveryCommand) (services.Delivery, error)
	batchFn      func(context.Context, services.RecordBatchCommand) (services.Batch, error)
	archiveFn    func(context.Context, string) error
}

func (s *stubOrderService) CreateOrder(ctx context.Context, cmd services.CreateOrderCommand) (services.Order, error) {
	if s.createFn != nil {
		return s.createFn(ctx, cmd)
	}
	return services.Order{}, errors.New("not implemented")
}

func (s *stubOrderService) GetOrder(ctx context.Context, orderID string, opts services.OrderReadOptions) (services.OrderDetail, error) {
	if s.getFn != nil {
		return s.getFn(ctx, orderID, opts)
	}
	return services.OrderDetail{}, errors.New("not implemented")
}

func (s *stubOrderService) ListOrders(ctx context.Context, filter services.OrderListFilter) ([]services.Order, error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return nil, errors.New("not implemented")
}

func (s *stubOrderService) TransitionStatus(ctx context.Context, cmd services.OrderStatusTransitionCommand) (services.Order, error) {
	if s.transitionFn != nil {
		return s.transitionFn(ctx, cmd)
	}
	return services.Order{}, errors.New("not implemented")
}

func (s *stubOrderService) UpdateOverrides(ctx context.Context, cmd services.UpdateOrderOverridesCommand) (services.Order, error) {
	if s.overridesFn != nil {
		return s.overridesFn(ctx, cmd)
	}
	return services.Order{}, errors.New("not implemented")
}

func (s *stubOrderService) ReplaceSurcharges(ctx context.Context, cmd services.ReplaceOrderSurchargesCommand) (services.Order, error) {
	if s.surchargesFn != nil {
		return s.surchargesFn(ctx, cmd)
	}
	return services.Order{}, errors.New("not implemented")
}

func (s *stubOrderService) RecordDelivery(ctx context.Context, cmd services.RecordDeliveryCommand) (services.Delivery, error) {
	if s.deliveryFn != nil {
		return s.deliveryFn(ctx, cmd)
	}
	return services.Delivery{}, errors.New("not implemented")
}

func (s *stubOrderService) RecordBatch(ctx context.Context, cmd services.RecordBatchCommand) (services.Batch, error) {
	if s.batchFn != nil {
		return s.batchFn(ctx, cmd)
	}
	return services.Batch{}, errors.New("not implemented")
}

func (s *stubOrderService) ArchiveOrder(ctx context.Context, orderID string) error {
	if s.archiveFn != nil {
		return s.archiveFn(ctx, orderID)
	}
	return errors.New("not implemented")
}

func newOrderRouter(svc services.OrderService) http.Handler {
	handler := NewOrderHandlers(svc)
	router := chi.NewRouter()
	handler.Routes(router)
	return router
}

func TestOrderHandlers_CreateOrder(t *testing.T) {
	now := time.Date(2025, time.June, 10, 8, 30, 0, 0, time.UTC)
	svc := &stubOrderService{}
	var gotCmd services.CreateOrderCommand
	svc.createFn = func(_ context.Context, cmd services.CreateOrderCommand) (services.Order, error) {
		gotCmd = cmd
		return services.Order{
			ID:         "ord_1",
			Number:     "2025-0042",
			Status:     domain.OrderStatusSent,
			Volume:     cmd.Volume,
			Recipe:     domain.RecipeSnapshot{Name: "C25/30"},
			CustomerID: &cmd.CustomerID,
			Customer:   "Acme Construction",
			CreatedAt:  now,
		}, nil
	}

	body := map[string]any{
		"recipe_id":     " rcp_1 ",
		"customer_id":   "cus_1",
		"site_id":       "site_1",
		"volume":        7.5,
		"comment":       "pour at noon",
		"surcharge_ids": []string{"sur_1"},
	}
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(payload))
	resp := httptest.NewRecorder()
	newOrderRouter(svc).ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	if gotCmd.RecipeID != "rcp_1" {
		t.Fatalf("expected trimmed recipe id, got %q", gotCmd.RecipeID)
	}
	if gotCmd.Volume != 7.5 || len(gotCmd.SurchargeIDs) != 1 {
		t.Fatalf("unexpected command: %#v", gotCmd)
	}
	var decoded orderResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if decoded.Order.ID != "ord_1" || decoded.Order.Status != "sent" {
		t.Fatalf("unexpected order payload: %#v", decoded.Order)
	}
	if decoded.Order.Recipe.Name != "C25/30" {
		t.Fatalf("expected recipe snapshot in payload, got %#v", decoded.Order.Recipe)
	}
}

func TestOrderHandlers_CreateOrderRejectsInvalidJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{not json"))
	resp := httptest.NewRecorder()
	newOrderRouter(&stubOrderService{}).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestOrderHandlers_CreateOrderWithoutService(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{}"))
	resp := httptest.NewRecorder()
	newOrderRouter(nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.Code)
	}
}

func TestOrderHandlers_ListOrdersParsesFilter(t *testing.T) {
	svc := &stubOrderService{}
	var gotFilter services.OrderListFilter
	svc.listFn = func(_ context.Context, filter services.OrderListFilter) ([]services.Order, error) {
		gotFilter = filter
		return []services.Order{{ID: "ord_1", Status: domain.OrderStatusFinished}}, nil
	}

	req := httptest.NewRequest(http.MethodGet, "/?status=finished&customer_id=cus_1&include_hidden=true&limit=25&created_after=2025-06-01T00:00:00Z", nil)
	resp := httptest.NewRecorder()
	newOrderRouter(svc).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if gotFilter.Status == nil || *gotFilter.Status != domain.OrderStatusFinished {
		t.Fatalf("expected finished status filter, got %#v", gotFilter.Status)
	}
	if gotFilter.CustomerID == nil || *gotFilter.CustomerID != "cus_1" {
		t.Fatalf("expected customer filter, got %#v", gotFilter.CustomerID)
	}
	if !gotFilter.IncludeHidden || gotFilter.Limit != 25 {
		t.Fatalf("unexpected filter: %#v", gotFilter)
	}
	if gotFilter.CreatedFrom == nil || !gotFilter.CreatedFrom.Equal(time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected created_after bound, got %#v", gotFilter.CreatedFrom)
	}
	var decoded orderListResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(decoded.Items) != 1 || decoded.Items[0].ID != "ord_1" {
		t.Fatalf("unexpected list payload: %#v", decoded)
	}
}

func TestOrderHandlers_ListOrdersRejectsUnknownStatus(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?status=melted", nil)
	resp := httptest.NewRecorder()
	newOrderRouter(&stubOrderService{}).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestOrderHandlers_GetOrderIncludesChildren(t *testing.T) {
	svc := &stubOrderService{}
	var gotOpts services.OrderReadOptions
	svc.getFn = func(_ context.Context, orderID string, opts services.OrderReadOptions) (services.OrderDetail, error) {
		if orderID != "ord_1" {
			t.Fatalf("expected order id ord_1, got %s", orderID)
		}
		gotOpts = opts
		return services.OrderDetail{
			Order:      services.Order{ID: "ord_1", Status: domain.OrderStatusInProduction},
			Deliveries: []services.Delivery{{ID: "del_1", OrderID: "ord_1", Volume: 7}},
			Batches:    []services.Batch{{ID: "bat_1", OrderID: "ord_1", Volume: 1}},
		}, nil
	}

	req := httptest.NewRequest(http.MethodGet, "/ord_1?include=deliveries,batches", nil)
	resp := httptest.NewRecorder()
	newOrderRouter(svc).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if !gotOpts.IncludeDeliveries || !gotOpts.IncludeBatches || gotOpts.IncludeMaterials {
		t.Fatalf("unexpected read options: %#v", gotOpts)
	}
	var decoded orderDetailResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(decoded.Deliveries) != 1 || len(decoded.Batches) != 1 || decoded.Materials != nil {
		t.Fatalf("unexpected detail payload: %#v", decoded)
	}
}

func TestOrderHandlers_GetOrderNotFound(t *testing.T) {
	svc := &stubOrderService{}
	svc.getFn = func(context.Context, string, services.OrderReadOptions) (services.OrderDetail, error) {
		return services.OrderDetail{}, services.ErrOrderNotFound
	}

	req := httptest.NewRequest(http.MethodGet, "/ord_missing", nil)
	resp := httptest.NewRecorder()
	newOrderRouter(svc).ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "order_not_found") {
		t.Fatalf("expected order_not_found code, got %s", resp.Body.String())
	}
}

func TestOrderHandlers_TransitionOrder(t *testing.T) {
	svc := &stubOrderService{}
	var gotCmd services.OrderStatusTransitionCommand
	svc.transitionFn = func(_ context.Context, cmd services.OrderStatusTransitionCommand) (services.Order, error) {
		gotCmd = cmd
		return services.Order{ID: cmd.OrderID, Status: cmd.TargetStatus}, nil
	}

	payload, _ := json.Marshal(map[string]any{"status": "IN_PRODUCTION", "reason": " line accepted "})
	req := httptest.NewRequest(http.MethodPost, "/ord_1:transition", bytes.NewReader(payload))
	resp := httptest.NewRecorder()
	newOrderRouter(svc).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if gotCmd.OrderID != "ord_1" || gotCmd.TargetStatus != domain.OrderStatusInProduction {
		t.Fatalf("unexpected command: %#v", gotCmd)
	}
	if gotCmd.Reason != "line accepted" {
		t.Fatalf("expected trimmed reason, got %q", gotCmd.Reason)
	}
}

func TestOrderHandlers_TransitionOrderRejectsUnknownStatus(t *testing.T) {
	payload, _ := json.Marshal(map[string]any{"status": "vanished"})
	req := httptest.NewRequest(http.MethodPost, "/ord_1:transition", bytes.NewReader(payload))
	resp := httptest.NewRecorder()
	newOrderRouter(&stubOrderService{}).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestOrderHandlers_TransitionOrderInvalidState(t *testing.T) {
	svc := &stubOrderService{}
	svc.transitionFn = func(context.Context, services.OrderStatusTransitionCommand) (services.Order, error) {
		return services.Order{}, services.ErrOrderInvalidState
	}

	payload, _ := json.Marshal(map[string]any{"status": "sent"})
	req := httptest.NewRequest(http.MethodPost, "/ord_1:transition", bytes.NewReader(payload))
	resp := httptest.NewRecorder()
	newOrderRouter(svc).ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "order_invalid_state") {
		t.Fatalf("expected order_invalid_state code, got %s", resp.Body.String())
	}
}

func TestOrderHandlers_UpdateOverridesKeepsAbsentAndNullApart(t *testing.T) {
	svc := &stubOrderService{}
	var gotCmd services.UpdateOrderOverridesCommand
	svc.overridesFn = func(_ context.Context, cmd services.UpdateOrderOverridesCommand) (services.Order, error) {
		gotCmd = cmd
		return services.Order{ID: cmd.OrderID}, nil
	}

	body := `{"price_concrete": 95.5, "price_transport": null, "without_transport": true}`
	req := httptest.NewRequest(http.MethodPut, "/ord_1/overrides", strings.NewReader(body))
	resp := httptest.NewRecorder()
	newOrderRouter(svc).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if !gotCmd.SetPriceConcrete || gotCmd.PriceConcrete == nil || *gotCmd.PriceConcrete != 95.5 {
		t.Fatalf("expected price_concrete set to 95.5, got %#v", gotCmd)
	}
	if !gotCmd.SetPriceTransport || gotCmd.PriceTransport != nil {
		t.Fatalf("expected price_transport cleared, got %#v", gotCmd)
	}
	if gotCmd.SetPriceSurcharges || gotCmd.SetDistanceDriven || gotCmd.SetPricePerKm || gotCmd.SetTransportZone {
		t.Fatalf("expected untouched fields to stay unset, got %#v", gotCmd)
	}
	if !gotCmd.SetWithoutTransport || !gotCmd.WithoutTransport {
		t.Fatalf("expected without_transport true, got %#v", gotCmd)
	}
}

func TestOrderHandlers_UpdateOverridesRejectsBadValue(t *testing.T) {
	req := httptest.NewRequest(http.MethodPut, "/ord_1/overrides", strings.NewReader(`{"price_per_km": "cheap"}`))
	resp := httptest.NewRecorder()
	newOrderRouter(&stubOrderService{}).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestOrderHandlers_ReplaceSurcharges(t *testing.T) {
	svc := &stubOrderService{}
	var gotCmd services.ReplaceOrderSurchargesCommand
	svc.surchargesFn = func(_ context.Context, cmd services.ReplaceOrderSurchargesCommand) (services.Order, error) {
		gotCmd = cmd
		return services.Order{ID: cmd.OrderID}, nil
	}

	amount := 3.0
	payload, _ := json.Marshal(replaceSurchargesRequest{Items: []surchargeItemRequest{
		{SurchargeID: " sur_1 ", Amount: &amount},
		{SurchargeID: "sur_2"},
	}})
	req := httptest.NewRequest(http.MethodPut, "/ord_1/surcharges", bytes.NewReader(payload))
	resp := httptest.NewRecorder()
	newOrderRouter(svc).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if len(gotCmd.Items) != 2 || gotCmd.Items[0].SurchargeID != "sur_1" {
		t.Fatalf("unexpected items: %#v", gotCmd.Items)
	}
	if gotCmd.Items[0].Amount == nil || *gotCmd.Items[0].Amount != 3.0 || gotCmd.Items[1].Amount != nil {
		t.Fatalf("unexpected amounts: %#v", gotCmd.Items)
	}
}

func TestOrderHandlers_RecordDelivery(t *testing.T) {
	svc := &stubOrderService{}
	svc.deliveryFn = func(_ context.Context, cmd services.RecordDeliveryCommand) (services.Delivery, error) {
		if cmd.OrderID != "ord_1" || cmd.CarID != "car_1" || cmd.Volume != 7 {
			t.Fatalf("unexpected command: %#v", cmd)
		}
		return services.Delivery{ID: "del_1", OrderID: cmd.OrderID, Volume: cmd.Volume, CarID: &cmd.CarID}, nil
	}

	payload, _ := json.Marshal(map[string]any{"car_id": "car_1", "volume": 7})
	req := httptest.NewRequest(http.MethodPost, "/ord_1/deliveries", bytes.NewReader(payload))
	resp := httptest.NewRecorder()
	newOrderRouter(svc).ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var decoded deliveryResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if decoded.Delivery.ID != "del_1" || decoded.Delivery.CarID == nil {
		t.Fatalf("unexpected delivery payload: %#v", decoded.Delivery)
	}
}

func TestOrderHandlers_RecordBatchParsesProducedAt(t *testing.T) {
	svc := &stubOrderService{}
	var gotCmd services.RecordBatchCommand
	svc.batchFn = func(_ context.Context, cmd services.RecordBatchCommand) (services.Batch, error) {
		gotCmd = cmd
		return services.Batch{ID: "bat_1", OrderID: cmd.OrderID, Volume: cmd.Volume}, nil
	}

	payload, _ := json.Marshal(map[string]any{
		"volume":      1.0,
		"produced_at": "2025-06-10T09:15:00Z",
		"materials": []map[string]any{
			{"material_id": "mat_1", "required": 320, "dosed": 318.5},
		},
	})
	req := httptest.NewRequest(http.MethodPost, "/ord_1/batches", bytes.NewReader(payload))
	resp := httptest.NewRecorder()
	newOrderRouter(svc).ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	if gotCmd.ProducedAt == nil || !gotCmd.ProducedAt.Equal(time.Date(2025, time.June, 10, 9, 15, 0, 0, time.UTC)) {
		t.Fatalf("expected parsed produced_at, got %#v", gotCmd.ProducedAt)
	}
	if len(gotCmd.Materials) != 1 || gotCmd.Materials[0].Dosed != 318.5 {
		t.Fatalf("unexpected materials: %#v", gotCmd.Materials)
	}
}

func TestOrderHandlers_ArchiveOrder(t *testing.T) {
	svc := &stubOrderService{}
	archived := ""
	svc.archiveFn = func(_ context.Context, orderID string) error {
		archived = orderID
		return nil
	}

	req := httptest.NewRequest(http.MethodPost, "/ord_1:archive", nil)
	resp := httptest.NewRecorder()
	newOrderRouter(svc).ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
	if archived != "ord_1" {
		t.Fatalf("expected ord_1 archived, got %q", archived)
	}
}

func TestOrderHandlers_ArchiveOrderAlreadyArchived(t *testing.T) {
	svc := &stubOrderService{}
	svc.archiveFn = func(context.Context, string) error {
		return services.ErrOrderArchived
	}

	req := httptest.NewRequest(http.MethodPost, "/ord_1:archive", nil)
	resp := httptest.NewRecorder()
	newOrderRouter(svc).ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "order_archived") {
		t.Fatalf("expected order_archived code, got %s", resp.Body.String())
	}
}
