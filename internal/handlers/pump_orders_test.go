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

	"github.com/go-chi/chi/v5"

	"github.com/mixdispatch/api/internal/domain"
	"github.com/mixdispatch/api/internal/services"
)

type stubPumpOrderService struct {
	createFn     func(context.Context, services.CreatePumpOrderCommand) (services.PumpOrder, error)
	getFn        func(context.Context, string) (services.PumpOrder, error)
	listFn       func(context.Context, services.OrderListFilter) ([]services.PumpOrder, error)
	transitionFn func(context.Context, services.OrderStatusTransitionCommand) (services.PumpOrder, error)
	surchargesFn func(context.Context, services.ReplaceOrderSurchargesCommand) (services.PumpOrder, error)
	archiveFn    func(context.Context, string) error
}

func (s *stubPumpOrderService) CreatePumpOrder(ctx context.Context, cmd services.CreatePumpOrderCommand) (services.PumpOrder, error) {
	if s.createFn != nil {
		return s.createFn(ctx, cmd)
	}
	return services.PumpOrder{}, errors.New("not implemented")
}

func (s *stubPumpOrderService) GetPumpOrder(ctx context.Context, orderID string) (services.PumpOrder, error) {
	if s.getFn != nil {
		return s.getFn(ctx, orderID)
	}
	return services.PumpOrder{}, errors.New("not implemented")
}

func (s *stubPumpOrderService) ListPumpOrders(ctx context.Context, filter services.OrderListFilter) ([]services.PumpOrder, error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return nil, errors.New("not implemented")
}

func (s *stubPumpOrderService) TransitionStatus(ctx context.Context, cmd services.OrderStatusTransitionCommand) (services.PumpOrder, error) {
	if s.transitionFn != nil {
		return s.transitionFn(ctx, cmd)
	}
	return services.PumpOrder{}, errors.New("not implemented")
}

func (s *stubPumpOrderService) ReplaceSurcharges(ctx context.Context, cmd services.ReplaceOrderSurchargesCommand) (services.PumpOrder, error) {
	if s.surchargesFn != nil {
		return s.surchargesFn(ctx, cmd)
	}
	return services.PumpOrder{}, errors.New("not implemented")
}

func (s *stubPumpOrderService) ArchivePumpOrder(ctx context.Context, orderID string) error {
	if s.archiveFn != nil {
		return s.archiveFn(ctx, orderID)
	}
	return errors.New("not implemented")
}

func newPumpOrderRouter(svc services.PumpOrderService) http.Handler {
	handler := NewPumpOrderHandlers(svc)
	router := chi.NewRouter()
	handler.Routes(router)
	return router
}

func TestPumpOrderHandlers_CreatePumpOrder(t *testing.T) {
	svc := &stubPumpOrderService{}
	var gotCmd services.CreatePumpOrderCommand
	svc.createFn = func(_ context.Context, cmd services.CreatePumpOrderCommand) (services.PumpOrder, error) {
		gotCmd = cmd
		return services.PumpOrder{
			ID:     "pord_1",
			Number: "P-2025-0007",
			Status: domain.OrderStatusSent,
			PumpID: &cmd.PumpID,
			Pump:   domain.PumpSnapshot{RegistrationNumber: "PMP 123", PumpType: "boom"},
			Hours:  cmd.Hours,
		}, nil
	}

	hours := 4.5
	payload, _ := json.Marshal(map[string]any{
		"pump_id":     " pmp_1 ",
		"customer_id": "cus_1",
		"site_id":     "site_1",
		"hours":       hours,
	})
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(payload))
	resp := httptest.NewRecorder()
	newPumpOrderRouter(svc).ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	if gotCmd.PumpID != "pmp_1" || gotCmd.Hours == nil || *gotCmd.Hours != 4.5 {
		t.Fatalf("unexpected command: %#v", gotCmd)
	}
	var decoded pumpOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if decoded.Order.ID != "pord_1" || decoded.Order.Pump.RegistrationNumber != "PMP 123" {
		t.Fatalf("unexpected payload: %#v", decoded.Order)
	}
}

func TestPumpOrderHandlers_ListPumpOrders(t *testing.T) {
	svc := &stubPumpOrderService{}
	svc.listFn = func(_ context.Context, filter services.OrderListFilter) ([]services.PumpOrder, error) {
		if filter.Status == nil || *filter.Status != domain.OrderStatusSent {
			t.Fatalf("expected sent filter, got %#v", filter.Status)
		}
		return []services.PumpOrder{{ID: "pord_1", Status: domain.OrderStatusSent}}, nil
	}

	req := httptest.NewRequest(http.MethodGet, "/?status=sent", nil)
	resp := httptest.NewRecorder()
	newPumpOrderRouter(svc).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var decoded pumpOrderListResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(decoded.Items) != 1 || decoded.Items[0].ID != "pord_1" {
		t.Fatalf("unexpected list payload: %#v", decoded)
	}
}

func TestPumpOrderHandlers_GetPumpOrderNotFound(t *testing.T) {
	svc := &stubPumpOrderService{}
	svc.getFn = func(context.Context, string) (services.PumpOrder, error) {
		return services.PumpOrder{}, services.ErrPumpOrderNotFound
	}

	req := httptest.NewRequest(http.MethodGet, "/pord_missing", nil)
	resp := httptest.NewRecorder()
	newPumpOrderRouter(svc).ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "pump_order_not_found") {
		t.Fatalf("expected pump_order_not_found code, got %s", resp.Body.String())
	}
}

func TestPumpOrderHandlers_TransitionInvalidState(t *testing.T) {
	svc := &stubPumpOrderService{}
	svc.transitionFn = func(context.Context, services.OrderStatusTransitionCommand) (services.PumpOrder, error) {
		return services.PumpOrder{}, services.ErrPumpOrderInvalidState
	}

	payload, _ := json.Marshal(map[string]any{"status": "finished"})
	req := httptest.NewRequest(http.MethodPost, "/pord_1:transition", bytes.NewReader(payload))
	resp := httptest.NewRecorder()
	newPumpOrderRouter(svc).ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "pump_order_invalid_state") {
		t.Fatalf("expected pump_order_invalid_state code, got %s", resp.Body.String())
	}
}

func TestPumpOrderHandlers_ReplaceSurcharges(t *testing.T) {
	svc := &stubPumpOrderService{}
	var gotCmd services.ReplaceOrderSurchargesCommand
	svc.surchargesFn = func(_ context.Context, cmd services.ReplaceOrderSurchargesCommand) (services.PumpOrder, error) {
		gotCmd = cmd
		return services.PumpOrder{ID: cmd.OrderID}, nil
	}

	payload, _ := json.Marshal(replaceSurchargesRequest{Items: []surchargeItemRequest{{SurchargeID: "sur_1"}}})
	req := httptest.NewRequest(http.MethodPut, "/pord_1/surcharges", bytes.NewReader(payload))
	resp := httptest.NewRecorder()
	newPumpOrderRouter(svc).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if gotCmd.OrderID != "pord_1" || len(gotCmd.Items) != 1 {
		t.Fatalf("unexpected command: %#v", gotCmd)
	}
}

func TestPumpOrderHandlers_ArchivePumpOrder(t *testing.T) {
	svc := &stubPumpOrderService{}
	svc.archiveFn = func(_ context.Context, orderID string) error {
		if orderID != "pord_1" {
			t.Fatalf("expected pord_1, got %s", orderID)
		}
		return nil
	}

	req := httptest.NewRequest(http.MethodPost, "/pord_1:archive", nil)
	resp := httptest.NewRecorder()
	newPumpOrderRouter(svc).ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
}
