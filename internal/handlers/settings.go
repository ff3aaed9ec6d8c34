package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mixdispatch/api/internal/domain"
	"github.com/mixdispatch/api/internal/platform/httpx"
	"github.com/mixdispatch/api/internal/services"
)

const maxSettingsBodySize = 32 * 1024

// SettingsHandlers exposes the facility settings document and the two
// surcharge catalogs that price against it.
type SettingsHandlers struct {
	settings services.SettingsService
}

// NewSettingsHandlers constructs a new SettingsHandlers instance.
func NewSettingsHandlers(settings services.SettingsService) *SettingsHandlers {
	return &SettingsHandlers{settings: settings}
}

// Routes registers the /settings endpoints.
func (h *SettingsHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.currentSettings)
	r.Put("/", h.updateSettings)
	r.Post("/:reload", h.reloadSettings)

	r.Get("/company-surcharges", h.listCompanySurcharges)
	r.Post("/company-surcharges", h.createCompanySurcharge)
	r.Put("/company-surcharges/{surchargeID}", h.updateCompanySurcharge)
	r.Delete("/company-surcharges/{surchargeID}", h.deleteCompanySurcharge)

	r.Get("/pump-surcharges", h.listPumpSurcharges)
	r.Post("/pump-surcharges", h.createPumpSurcharge)
	r.Put("/pump-surcharges/{surchargeID}", h.updatePumpSurcharge)
	r.Delete("/pump-surcharges/{surchargeID}", h.deletePumpSurcharge)
}

type settingsRequest struct {
	VATRate               int    `json:"vat_rate"`
	CurrencySymbol        string `json:"currency_symbol"`
	RoundingPrecision     int    `json:"rounding_precision"`
	TransportZonesEnabled bool   `json:"transport_zones_enabled"`
	CountDistanceDoubled  bool   `json:"count_distance_doubled"`
	DatetimeFormat        string `json:"datetime_format"`
	AutoPrint             bool   `json:"auto_print"`
	CompanyName           string `json:"company_name"`
	CompanyStreet         string `json:"company_street"`
	CompanyCity           string `json:"company_city"`
	CompanyZip            string `json:"company_zip"`
	FacilityName          string `json:"facility_name"`
	FacilityStreet        string `json:"facility_street"`
	FacilityCity          string `json:"facility_city"`
}

func (req settingsRequest) command() services.UpdateSettingsCommand {
	return services.UpdateSettingsCommand{Settings: domain.FacilitySettings{
		VATRate:               req.VATRate,
		CurrencySymbol:        strings.TrimSpace(req.CurrencySymbol),
		RoundingPrecision:     req.RoundingPrecision,
		TransportZonesEnabled: req.TransportZonesEnabled,
		CountDistanceDoubled:  req.CountDistanceDoubled,
		DatetimeFormat:        strings.TrimSpace(req.DatetimeFormat),
		AutoPrint:             req.AutoPrint,
		CompanyName:           strings.TrimSpace(req.CompanyName),
		CompanyStreet:         strings.TrimSpace(req.CompanyStreet),
		CompanyCity:           strings.TrimSpace(req.CompanyCity),
		CompanyZip:            strings.TrimSpace(req.CompanyZip),
		FacilityName:          strings.TrimSpace(req.FacilityName),
		FacilityStreet:        strings.TrimSpace(req.FacilityStreet),
		FacilityCity:          strings.TrimSpace(req.FacilityCity),
	}}
}

func (h *SettingsHandlers) currentSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.settings == nil {
		writeServiceUnavailable(ctx, w, "settings")
		return
	}

	settings, err := h.settings.Current(ctx)
	if err != nil {
		writeSettingsError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, settingsResponse{Settings: buildSettingsPayload(settings)})
}

func (h *SettingsHandlers) updateSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.settings == nil {
		writeServiceUnavailable(ctx, w, "settings")
		return
	}

	var req settingsRequest
	if err := decodeJSONBody(r, maxSettingsBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	settings, err := h.settings.Update(ctx, req.command())
	if err != nil {
		writeSettingsError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, settingsResponse{Settings: buildSettingsPayload(settings)})
}

func (h *SettingsHandlers) reloadSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.settings == nil {
		writeServiceUnavailable(ctx, w, "settings")
		return
	}

	settings, err := h.settings.Reload(ctx)
	if err != nil {
		writeSettingsError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, settingsResponse{Settings: buildSettingsPayload(settings)})
}

type surchargeRequest struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Type     string  `json:"type"`
	UnitName *string `json:"unit_name"`
}

func (req surchargeRequest) command() services.UpsertSurchargeCommand {
	return services.UpsertSurchargeCommand{
		Name:     strings.TrimSpace(req.Name),
		Price:    req.Price,
		Type:     domain.SurchargeType(strings.TrimSpace(req.Type)),
		UnitName: req.UnitName,
	}
}

func (h *SettingsHandlers) listCompanySurcharges(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.settings == nil {
		writeServiceUnavailable(ctx, w, "settings")
		return
	}

	surcharges, err := h.settings.ListCompanySurcharges(ctx)
	if err != nil {
		writeSettingsError(ctx, w, err)
		return
	}

	items := make([]surchargePayload, 0, len(surcharges))
	for _, surcharge := range surcharges {
		items = append(items, buildCompanySurchargePayload(surcharge))
	}
	writeJSONResponse(w, http.StatusOK, surchargeListResponse{Items: items})
}

func (h *SettingsHandlers) createCompanySurcharge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.settings == nil {
		writeServiceUnavailable(ctx, w, "settings")
		return
	}

	var req surchargeRequest
	if err := decodeJSONBody(r, maxSettingsBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	surcharge, err := h.settings.CreateCompanySurcharge(ctx, req.command())
	if err != nil {
		writeSettingsError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, surchargeResponse{Surcharge: buildCompanySurchargePayload(surcharge)})
}

func (h *SettingsHandlers) updateCompanySurcharge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.settings == nil {
		writeServiceUnavailable(ctx, w, "settings")
		return
	}

	surchargeID := strings.TrimSpace(chi.URLParam(r, "surchargeID"))
	if surchargeID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "surcharge id is required", http.StatusBadRequest))
		return
	}

	var req surchargeRequest
	if err := decodeJSONBody(r, maxSettingsBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	surcharge, err := h.settings.UpdateCompanySurcharge(ctx, surchargeID, req.command())
	if err != nil {
		writeSettingsError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, surchargeResponse{Surcharge: buildCompanySurchargePayload(surcharge)})
}

func (h *SettingsHandlers) deleteCompanySurcharge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.settings == nil {
		writeServiceUnavailable(ctx, w, "settings")
		return
	}

	surchargeID := strings.TrimSpace(chi.URLParam(r, "surchargeID"))
	if surchargeID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "surcharge id is required", http.StatusBadRequest))
		return
	}

	if err := h.settings.DeleteCompanySurcharge(ctx, surchargeID); err != nil {
		writeSettingsError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SettingsHandlers) listPumpSurcharges(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.settings == nil {
		writeServiceUnavailable(ctx, w, "settings")
		return
	}

	surcharges, err := h.settings.ListPumpSurcharges(ctx)
	if err != nil {
		writeSettingsError(ctx, w, err)
		return
	}

	items := make([]surchargePayload, 0, len(surcharges))
	for _, surcharge := range surcharges {
		items = append(items, buildPumpSurchargePayload(surcharge))
	}
	writeJSONResponse(w, http.StatusOK, surchargeListResponse{Items: items})
}

func (h *SettingsHandlers) createPumpSurcharge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.settings == nil {
		writeServiceUnavailable(ctx, w, "settings")
		return
	}

	var req surchargeRequest
	if err := decodeJSONBody(r, maxSettingsBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	surcharge, err := h.settings.CreatePumpSurcharge(ctx, req.command())
	if err != nil {
		writeSettingsError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, surchargeResponse{Surcharge: buildPumpSurchargePayload(surcharge)})
}

func (h *SettingsHandlers) updatePumpSurcharge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.settings == nil {
		writeServiceUnavailable(ctx, w, "settings")
		return
	}

	surchargeID := strings.TrimSpace(chi.URLParam(r, "surchargeID"))
	if surchargeID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "surcharge id is required", http.StatusBadRequest))
		return
	}

	var req surchargeRequest
	if err := decodeJSONBody(r, maxSettingsBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	surcharge, err := h.settings.UpdatePumpSurcharge(ctx, surchargeID, req.command())
	if err != nil {
		writeSettingsError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, surchargeResponse{Surcharge: buildPumpSurchargePayload(surcharge)})
}

func (h *SettingsHandlers) deletePumpSurcharge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.settings == nil {
		writeServiceUnavailable(ctx, w, "settings")
		return
	}

	surchargeID := strings.TrimSpace(chi.URLParam(r, "surchargeID"))
	if surchargeID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "surcharge id is required", http.StatusBadRequest))
		return
	}

	if err := h.settings.DeletePumpSurcharge(ctx, surchargeID); err != nil {
		writeSettingsError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type settingsResponse struct {
	Settings settingsPayload `json:"settings"`
}

type settingsPayload struct {
	VATRate               int    `json:"vat_rate"`
	CurrencySymbol        string `json:"currency_symbol"`
	RoundingPrecision     int    `json:"rounding_precision"`
	TransportZonesEnabled bool   `json:"transport_zones_enabled"`
	CountDistanceDoubled  bool   `json:"count_distance_doubled"`
	DatetimeFormat        string `json:"datetime_format"`
	AutoPrint             bool   `json:"auto_print"`
	CompanyName           string `json:"company_name"`
	CompanyStreet         string `json:"company_street"`
	CompanyCity           string `json:"company_city"`
	CompanyZip            string `json:"company_zip"`
	FacilityName          string `json:"facility_name"`
	FacilityStreet        string `json:"facility_street"`
	FacilityCity          string `json:"facility_city"`
	UpdatedAt             string `json:"updated_at,omitempty"`
}

type surchargeListResponse struct {
	Items []surchargePayload `json:"items"`
}

type surchargeResponse struct {
	Surcharge surchargePayload `json:"surcharge"`
}

type surchargePayload struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Type      string  `json:"type"`
	UnitName  *string `json:"unit_name,omitempty"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at,omitempty"`
}

func buildSettingsPayload(settings domain.FacilitySettings) settingsPayload {
	return settingsPayload{
		VATRate:               settings.VATRate,
		CurrencySymbol:        settings.CurrencySymbol,
		RoundingPrecision:     settings.RoundingPrecision,
		TransportZonesEnabled: settings.TransportZonesEnabled,
		CountDistanceDoubled:  settings.CountDistanceDoubled,
		DatetimeFormat:        settings.DatetimeFormat,
		AutoPrint:             settings.AutoPrint,
		CompanyName:           settings.CompanyName,
		CompanyStreet:         settings.CompanyStreet,
		CompanyCity:           settings.CompanyCity,
		CompanyZip:            settings.CompanyZip,
		FacilityName:          settings.FacilityName,
		FacilityStreet:        settings.FacilityStreet,
		FacilityCity:          settings.FacilityCity,
		UpdatedAt:             formatTime(settings.UpdatedAt),
	}
}

func buildCompanySurchargePayload(surcharge domain.CompanySurcharge) surchargePayload {
	return surchargePayload{
		ID:        surcharge.ID,
		Name:      surcharge.Name,
		Price:     surcharge.Price,
		Type:      string(surcharge.Type),
		UnitName:  cloneStringPointer(surcharge.UnitName),
		CreatedAt: formatTime(surcharge.CreatedAt),
		UpdatedAt: formatTime(surcharge.UpdatedAt),
	}
}

func buildPumpSurchargePayload(surcharge domain.PumpSurcharge) surchargePayload {
	return surchargePayload{
		ID:        surcharge.ID,
		Name:      surcharge.Name,
		Price:     surcharge.Price,
		Type:      string(surcharge.Type),
		UnitName:  cloneStringPointer(surcharge.UnitName),
		CreatedAt: formatTime(surcharge.CreatedAt),
		UpdatedAt: formatTime(surcharge.UpdatedAt),
	}
}

func writeSettingsError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrSettingsInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrSettingsNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("settings_not_found", err.Error(), http.StatusNotFound))
	case errors.Is(err, services.ErrSettingsConflict):
		httpx.WriteError(ctx, w, httpx.NewError("settings_conflict", err.Error(), http.StatusConflict))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("settings_error", "failed to process settings request", http.StatusInternalServerError))
	}
}
