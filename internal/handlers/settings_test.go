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

type stubSettingsService struct {
	currentFn func(context.Context) (services.FacilitySettings, error)
	updateFn  func(context.Context, services.UpdateSettingsCommand) (services.FacilitySettings, error)
	reloadFn  func(context.Context) (services.FacilitySettings, error)

	listCompanyFn   func(context.Context) ([]services.CompanySurcharge, error)
	createCompanyFn func(context.Context, services.UpsertSurchargeCommand) (services.CompanySurcharge, error)
	updateCompanyFn func(context.Context, string, services.UpsertSurchargeCommand) (services.CompanySurcharge, error)
	deleteCompanyFn func(context.Context, string) error

	listPumpFn   func(context.Context) ([]services.PumpSurcharge, error)
	createPumpFn func(context.Context, services.UpsertSurchargeCommand) (services.PumpSurcharge, error)
	updatePumpFn func(context.Context, string, services.UpsertSurchargeCommand) (services.PumpSurcharge, error)
	deletePumpFn func(context.Context, string) error
}

func (s *stubSettingsService) Current(ctx context.Context) (services.FacilitySettings, error) {
	if s.currentFn != nil {
		return s.currentFn(ctx)
	}
	return services.FacilitySettings{}, errors.New("not implemented")
}

func (s *stubSettingsService) Update(ctx context.Context, cmd services.UpdateSettingsCommand) (services.FacilitySettings, error) {
	if s.updateFn != nil {
		return s.updateFn(ctx, cmd)
	}
	return services.FacilitySettings{}, errors.New("not implemented")
}

func (s *stubSettingsService) Reload(ctx context.Context) (services.FacilitySettings, error) {
	if s.reloadFn != nil {
		return s.reloadFn(ctx)
	}
	return services.FacilitySettings{}, errors.New("not implemented")
}

func (s *stubSettingsService) ListCompanySurcharges(ctx context.Context) ([]services.CompanySurcharge, error) {
	if s.listCompanyFn != nil {
		return s.listCompanyFn(ctx)
	}
	return nil, errors.New("not implemented")
}

func (s *stubSettingsService) CreateCompanySurcharge(ctx context.Context, cmd services.UpsertSurchargeCommand) (services.CompanySurcharge, error) {
	if s.createCompanyFn != nil {
		return s.createCompanyFn(ctx, cmd)
	}
	return services.CompanySurcharge{}, errors.New("not implemented")
}

func (s *stubSettingsService) UpdateCompanySurcharge(ctx context.Context, surchargeID string, cmd services.UpsertSurchargeCommand) (services.CompanySurcharge, error) {
	if s.updateCompanyFn != nil {
		return s.updateCompanyFn(ctx, surchargeID, cmd)
	}
	return services.CompanySurcharge{}, errors.New("not implemented")
}

func (s *stubSettingsService) DeleteCompanySurcharge(ctx context.Context, surchargeID string) error {
	if s.deleteCompanyFn != nil {
		return s.deleteCompanyFn(ctx, surchargeID)
	}
	return errors.New("not implemented")
}

func (s *stubSettingsService) ListPumpSurcharges(ctx context.Context) ([]services.PumpSurcharge, error) {
	if s.listPumpFn != nil {
		return s.listPumpFn(ctx)
	}
	return nil, errors.New("not implemented")
}

func (s *stubSettingsService) CreatePumpSurcharge(ctx context.Context, cmd services.UpsertSurchargeCommand) (services.PumpSurcharge, error) {
	if s.createPumpFn != nil {
		return s.createPumpFn(ctx, cmd)
	}
	return services.PumpSurcharge{}, errors.New("not implemented")
}

func (s *stubSettingsService) UpdatePumpSurcharge(ctx context.Context, surchargeID string, cmd services.UpsertSurchargeCommand) (services.PumpSurcharge, error) {
	if s.updatePumpFn != nil {
		return s.updatePumpFn(ctx, surchargeID, cmd)
	}
	return services.PumpSurcharge{}, errors.New("not implemented")
}

func (s *stubSettingsService) DeletePumpSurcharge(ctx context.Context, surchargeID string) error {
	if s.deletePumpFn != nil {
		return s.deletePumpFn(ctx, surchargeID)
	}
	return errors.New("not implemented")
}

func newSettingsRouter(svc services.SettingsService) http.Handler {
	handler := NewSettingsHandlers(svc)
	router := chi.NewRouter()
	handler.Routes(router)
	return router
}

func TestSettingsHandlers_CurrentSettings(t *testing.T) {
	svc := &stubSettingsService{}
	svc.currentFn = func(context.Context) (services.FacilitySettings, error) {
		return services.FacilitySettings{VATRate: 21, CurrencySymbol: "EUR", FacilityName: "Plant North"}, nil
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp := httptest.NewRecorder()
	newSettingsRouter(svc).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var decoded settingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if decoded.Settings.VATRate != 21 || decoded.Settings.FacilityName != "Plant North" {
		t.Fatalf("unexpected settings payload: %#v", decoded.Settings)
	}
}

func TestSettingsHandlers_UpdateSettings(t *testing.T) {
	svc := &stubSettingsService{}
	var gotCmd services.UpdateSettingsCommand
	svc.updateFn = func(_ context.Context, cmd services.UpdateSettingsCommand) (services.FacilitySettings, error) {
		gotCmd = cmd
		return cmd.Settings, nil
	}

	payload, _ := json.Marshal(map[string]any{
		"vat_rate":                21,
		"currency_symbol":         " EUR ",
		"rounding_precision":      2,
		"transport_zones_enabled": true,
		"facility_name":           "Plant North",
	})
	req := httptest.NewRequest(http.MethodPut, "/", bytes.NewReader(payload))
	resp := httptest.NewRecorder()
	newSettingsRouter(svc).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if gotCmd.Settings.CurrencySymbol != "EUR" {
		t.Fatalf("expected trimmed currency symbol, got %q", gotCmd.Settings.CurrencySymbol)
	}
	if !gotCmd.Settings.TransportZonesEnabled || gotCmd.Settings.RoundingPrecision != 2 {
		t.Fatalf("unexpected settings command: %#v", gotCmd.Settings)
	}
}

func TestSettingsHandlers_ReloadSettings(t *testing.T) {
	svc := &stubSettingsService{}
	reloaded := false
	svc.reloadFn = func(context.Context) (services.FacilitySettings, error) {
		reloaded = true
		return services.FacilitySettings{VATRate: 19}, nil
	}

	req := httptest.NewRequest(http.MethodPost, "/:reload", nil)
	resp := httptest.NewRecorder()
	newSettingsRouter(svc).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if !reloaded {
		t.Fatal("expected reload to be called")
	}
}

func TestSettingsHandlers_CreateCompanySurcharge(t *testing.T) {
	svc := &stubSettingsService{}
	var gotCmd services.UpsertSurchargeCommand
	svc.createCompanyFn = func(_ context.Context, cmd services.UpsertSurchargeCommand) (services.CompanySurcharge, error) {
		gotCmd = cmd
		return services.CompanySurcharge{ID: "sur_1", Name: cmd.Name, Price: cmd.Price, Type: cmd.Type}, nil
	}

	payload, _ := json.Marshal(map[string]any{"name": "Winter additive", "price": 12.5, "type": "per_cubic_meter"})
	req := httptest.NewRequest(http.MethodPost, "/company-surcharges", bytes.NewReader(payload))
	resp := httptest.NewRecorder()
	newSettingsRouter(svc).ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	if gotCmd.Type != domain.SurchargeTypePerCubicMeter || gotCmd.Price != 12.5 {
		t.Fatalf("unexpected command: %#v", gotCmd)
	}
	var decoded surchargeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if decoded.Surcharge.ID != "sur_1" {
		t.Fatalf("unexpected payload: %#v", decoded.Surcharge)
	}
}

func TestSettingsHandlers_UpdatePumpSurchargeUsesPathID(t *testing.T) {
	svc := &stubSettingsService{}
	gotID := ""
	svc.updatePumpFn = func(_ context.Context, surchargeID string, cmd services.UpsertSurchargeCommand) (services.PumpSurcharge, error) {
		gotID = surchargeID
		return services.PumpSurcharge{ID: surchargeID, Name: cmd.Name}, nil
	}

	payload, _ := json.Marshal(map[string]any{"name": "Hose extension", "price": 30, "type": "fixed"})
	req := httptest.NewRequest(http.MethodPut, "/pump-surcharges/psur_1", bytes.NewReader(payload))
	resp := httptest.NewRecorder()
	newSettingsRouter(svc).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if gotID != "psur_1" {
		t.Fatalf("expected path id psur_1, got %q", gotID)
	}
}

func TestSettingsHandlers_DeleteCompanySurchargeNotFound(t *testing.T) {
	svc := &stubSettingsService{}
	svc.deleteCompanyFn = func(context.Context, string) error {
		return services.ErrSettingsNotFound
	}

	req := httptest.NewRequest(http.MethodDelete, "/company-surcharges/sur_missing", nil)
	resp := httptest.NewRecorder()
	newSettingsRouter(svc).ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "settings_not_found") {
		t.Fatalf("expected settings_not_found code, got %s", resp.Body.String())
	}
}

func TestSettingsHandlers_InvalidSurchargeTypeRejected(t *testing.T) {
	svc := &stubSettingsService{}
	svc.createPumpFn = func(context.Context, services.UpsertSurchargeCommand) (services.PumpSurcharge, error) {
		return services.PumpSurcharge{}, services.ErrSettingsInvalidInput
	}

	payload, _ := json.Marshal(map[string]any{"name": "Bad", "price": 1, "type": "per_cubic_meter"})
	req := httptest.NewRequest(http.MethodPost, "/pump-surcharges", bytes.NewReader(payload))
	resp := httptest.NewRecorder()
	newSettingsRouter(svc).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestSettingsHandlers_WithoutService(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp := httptest.NewRecorder()
	newSettingsRouter(nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.Code)
	}
}
