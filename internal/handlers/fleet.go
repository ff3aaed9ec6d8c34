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

const maxFleetBodySize = 16 * 1024

// FleetHandlers exposes driver, mixer truck and pump endpoints.
type FleetHandlers struct {
	fleet services.FleetService
}

// NewFleetHandlers constructs a new FleetHandlers instance.
func NewFleetHandlers(fleet services.FleetService) *FleetHandlers {
	return &FleetHandlers{fleet: fleet}
}

// Routes registers the /fleet endpoints.
func (h *FleetHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/drivers", h.createDriver)
	r.Get("/drivers", h.listDrivers)
	r.Put("/drivers/{driverID}", h.updateDriver)

	r.Post("/cars", h.createCar)
	r.Get("/cars", h.listCars)
	r.Get("/cars/{carID}", h.getCar)
	r.Put("/cars/{carID}", h.updateCar)
	r.Post("/cars/{carID}:archive", h.archiveCar)

	r.Post("/pumps", h.createPump)
	r.Get("/pumps", h.listPumps)
	r.Get("/pumps/{pumpID}", h.getPump)
	r.Put("/pumps/{pumpID}", h.updatePump)
	r.Post("/pumps/{pumpID}:archive", h.archivePump)
}

type driverRequest struct {
	Name    string `json:"name"`
	Contact string `json:"contact"`
}

func (h *FleetHandlers) createDriver(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.fleet == nil {
		writeServiceUnavailable(ctx, w, "fleet")
		return
	}

	var req driverRequest
	if err := decodeJSONBody(r, maxFleetBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	driver, err := h.fleet.CreateDriver(ctx, services.UpsertDriverCommand{
		Name:    strings.TrimSpace(req.Name),
		Contact: strings.TrimSpace(req.Contact),
	})
	if err != nil {
		writeFleetError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, driverResponse{Driver: buildDriverPayload(driver)})
}

func (h *FleetHandlers) listDrivers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.fleet == nil {
		writeServiceUnavailable(ctx, w, "fleet")
		return
	}

	includeHidden, err := parseBoolParam(r.URL.Query().Get("include_hidden"))
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "include_hidden must be a boolean", http.StatusBadRequest))
		return
	}

	drivers, err := h.fleet.ListDrivers(ctx, includeHidden)
	if err != nil {
		writeFleetError(ctx, w, err)
		return
	}

	items := make([]driverPayload, 0, len(drivers))
	for _, driver := range drivers {
		items = append(items, buildDriverPayload(driver))
	}
	writeJSONResponse(w, http.StatusOK, driverListResponse{Items: items})
}

func (h *FleetHandlers) updateDriver(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.fleet == nil {
		writeServiceUnavailable(ctx, w, "fleet")
		return
	}

	driverID := strings.TrimSpace(chi.URLParam(r, "driverID"))
	if driverID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "driver id is required", http.StatusBadRequest))
		return
	}

	var req driverRequest
	if err := decodeJSONBody(r, maxFleetBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	driver, err := h.fleet.UpdateDriver(ctx, driverID, services.UpsertDriverCommand{
		Name:    strings.TrimSpace(req.Name),
		Contact: strings.TrimSpace(req.Contact),
	})
	if err != nil {
		writeFleetError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, driverResponse{Driver: buildDriverPayload(driver)})
}

type carRequest struct {
	RegistrationNumber           string   `json:"registration_number"`
	DriverID                     *string  `json:"driver_id"`
	PricePerKm                   *float64 `json:"price_per_km"`
	TransportTypeID              *string  `json:"transport_type_id"`
	ChargeTransportAutomatically bool     `json:"charge_transport_automatically"`
}

func (req carRequest) command() services.UpsertCarCommand {
	return services.UpsertCarCommand{
		RegistrationNumber:           strings.TrimSpace(req.RegistrationNumber),
		DriverID:                     req.DriverID,
		PricePerKm:                   req.PricePerKm,
		TransportTypeID:              req.TransportTypeID,
		ChargeTransportAutomatically: req.ChargeTransportAutomatically,
	}
}

func (h *FleetHandlers) createCar(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.fleet == nil {
		writeServiceUnavailable(ctx, w, "fleet")
		return
	}

	var req carRequest
	if err := decodeJSONBody(r, maxFleetBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	car, err := h.fleet.CreateCar(ctx, req.command())
	if err != nil {
		writeFleetError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, carResponse{Car: buildCarPayload(car)})
}

func (h *FleetHandlers) listCars(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.fleet == nil {
		writeServiceUnavailable(ctx, w, "fleet")
		return
	}

	includeHidden, err := parseBoolParam(r.URL.Query().Get("include_hidden"))
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "include_hidden must be a boolean", http.StatusBadRequest))
		return
	}

	cars, err := h.fleet.ListCars(ctx, includeHidden)
	if err != nil {
		writeFleetError(ctx, w, err)
		return
	}

	items := make([]carPayload, 0, len(cars))
	for _, car := range cars {
		items = append(items, buildCarPayload(car))
	}
	writeJSONResponse(w, http.StatusOK, carListResponse{Items: items})
}

func (h *FleetHandlers) getCar(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.fleet == nil {
		writeServiceUnavailable(ctx, w, "fleet")
		return
	}

	carID := strings.TrimSpace(chi.URLParam(r, "carID"))
	if carID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "car id is required", http.StatusBadRequest))
		return
	}

	car, err := h.fleet.GetCar(ctx, carID)
	if err != nil {
		writeFleetError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, carResponse{Car: buildCarPayload(car)})
}

func (h *FleetHandlers) updateCar(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.fleet == nil {
		writeServiceUnavailable(ctx, w, "fleet")
		return
	}

	carID := strings.TrimSpace(chi.URLParam(r, "carID"))
	if carID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "car id is required", http.StatusBadRequest))
		return
	}

	var req carRequest
	if err := decodeJSONBody(r, maxFleetBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	car, err := h.fleet.UpdateCar(ctx, carID, req.command())
	if err != nil {
		writeFleetError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, carResponse{Car: buildCarPayload(car)})
}

func (h *FleetHandlers) archiveCar(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.fleet == nil {
		writeServiceUnavailable(ctx, w, "fleet")
		return
	}

	carID := strings.TrimSpace(chi.URLParam(r, "carID"))
	if carID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "car id is required", http.StatusBadRequest))
		return
	}

	if err := h.fleet.ArchiveCar(ctx, carID); err != nil {
		writeFleetError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type pumpRequest struct {
	RegistrationNumber string   `json:"registration_number"`
	DriverID           *string  `json:"driver_id"`
	PricePerKm         *float64 `json:"price_per_km"`
	PumpType           string   `json:"pump_type"`
	PricePerHour       *float64 `json:"price_per_hour"`
}

func (req pumpRequest) command() services.UpsertPumpCommand {
	return services.UpsertPumpCommand{
		RegistrationNumber: strings.TrimSpace(req.RegistrationNumber),
		DriverID:           req.DriverID,
		PricePerKm:         req.PricePerKm,
		PumpType:           strings.TrimSpace(req.PumpType),
		PricePerHour:       req.PricePerHour,
	}
}

func (h *FleetHandlers) createPump(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.fleet == nil {
		writeServiceUnavailable(ctx, w, "fleet")
		return
	}

	var req pumpRequest
	if err := decodeJSONBody(r, maxFleetBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	pump, err := h.fleet.CreatePump(ctx, req.command())
	if err != nil {
		writeFleetError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, pumpResponse{Pump: buildPumpPayload(pump)})
}

func (h *FleetHandlers) listPumps(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.fleet == nil {
		writeServiceUnavailable(ctx, w, "fleet")
		return
	}

	includeHidden, err := parseBoolParam(r.URL.Query().Get("include_hidden"))
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "include_hidden must be a boolean", http.StatusBadRequest))
		return
	}

	pumps, err := h.fleet.ListPumps(ctx, includeHidden)
	if err != nil {
		writeFleetError(ctx, w, err)
		return
	}

	items := make([]pumpPayload, 0, len(pumps))
	for _, pump := range pumps {
		items = append(items, buildPumpPayload(pump))
	}
	writeJSONResponse(w, http.StatusOK, pumpListResponse{Items: items})
}

func (h *FleetHandlers) getPump(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.fleet == nil {
		writeServiceUnavailable(ctx, w, "fleet")
		return
	}

	pumpID := strings.TrimSpace(chi.URLParam(r, "pumpID"))
	if pumpID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "pump id is required", http.StatusBadRequest))
		return
	}

	pump, err := h.fleet.GetPump(ctx, pumpID)
	if err != nil {
		writeFleetError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, pumpResponse{Pump: buildPumpPayload(pump)})
}

func (h *FleetHandlers) updatePump(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.fleet == nil {
		writeServiceUnavailable(ctx, w, "fleet")
		return
	}

	pumpID := strings.TrimSpace(chi.URLParam(r, "pumpID"))
	if pumpID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "pump id is required", http.StatusBadRequest))
		return
	}

	var req pumpRequest
	if err := decodeJSONBody(r, maxFleetBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	pump, err := h.fleet.UpdatePump(ctx, pumpID, req.command())
	if err != nil {
		writeFleetError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, pumpResponse{Pump: buildPumpPayload(pump)})
}

func (h *FleetHandlers) archivePump(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.fleet == nil {
		writeServiceUnavailable(ctx, w, "fleet")
		return
	}

	pumpID := strings.TrimSpace(chi.URLParam(r, "pumpID"))
	if pumpID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "pump id is required", http.StatusBadRequest))
		return
	}

	if err := h.fleet.ArchivePump(ctx, pumpID); err != nil {
		writeFleetError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type driverListResponse struct {
	Items []driverPayload `json:"items"`
}

type driverResponse struct {
	Driver driverPayload `json:"driver"`
}

type driverPayload struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Contact   string `json:"contact,omitempty"`
	Hidden    bool   `json:"hidden,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

type carListResponse struct {
	Items []carPayload `json:"items"`
}

type carResponse struct {
	Car carPayload `json:"car"`
}

type carPayload struct {
	ID                           string   `json:"id"`
	RegistrationNumber           string   `json:"registration_number"`
	DriverID                     *string  `json:"driver_id,omitempty"`
	PricePerKm                   *float64 `json:"price_per_km,omitempty"`
	TransportTypeID              *string  `json:"transport_type_id,omitempty"`
	ChargeTransportAutomatically bool     `json:"charge_transport_automatically"`
	Hidden                       bool     `json:"hidden,omitempty"`
	CreatedAt                    string   `json:"created_at"`
	UpdatedAt                    string   `json:"updated_at,omitempty"`
}

type pumpListResponse struct {
	Items []pumpPayload `json:"items"`
}

type pumpResponse struct {
	Pump pumpPayload `json:"pump"`
}

type pumpPayload struct {
	ID                 string   `json:"id"`
	RegistrationNumber string   `json:"registration_number"`
	DriverID           *string  `json:"driver_id,omitempty"`
	PricePerKm         *float64 `json:"price_per_km,omitempty"`
	PumpType           string   `json:"pump_type,omitempty"`
	PricePerHour       *float64 `json:"price_per_hour,omitempty"`
	Hidden             bool     `json:"hidden,omitempty"`
	CreatedAt          string   `json:"created_at"`
	UpdatedAt          string   `json:"updated_at,omitempty"`
}

func buildDriverPayload(driver services.Driver) driverPayload {
	return driverPayload{
		ID:        driver.ID,
		Name:      driver.Name,
		Contact:   driver.Contact,
		Hidden:    driver.Hidden,
		CreatedAt: formatTime(driver.CreatedAt),
		UpdatedAt: formatTime(driver.UpdatedAt),
	}
}

func buildCarPayload(car services.Car) carPayload {
	return carPayload{
		ID:                           car.ID,
		RegistrationNumber:           car.Vehicle.RegistrationNumber,
		DriverID:                     cloneStringPointer(car.Vehicle.DriverID),
		PricePerKm:                   cloneFloatPointer(car.Vehicle.PricePerKm),
		TransportTypeID:              cloneStringPointer(car.TransportTypeID),
		ChargeTransportAutomatically: car.ChargeTransportAutomatically,
		Hidden:                       car.Hidden,
		CreatedAt:                    formatTime(car.CreatedAt),
		UpdatedAt:                    formatTime(car.UpdatedAt),
	}
}

func buildPumpPayload(pump services.Pump) pumpPayload {
	return pumpPayload{
		ID:                 pump.ID,
		RegistrationNumber: pump.Vehicle.RegistrationNumber,
		DriverID:           cloneStringPointer(pump.Vehicle.DriverID),
		PricePerKm:         cloneFloatPointer(pump.Vehicle.PricePerKm),
		PumpType:           pump.PumpType,
		PricePerHour:       cloneFloatPointer(pump.PricePerHour),
		Hidden:             pump.Hidden,
		CreatedAt:          formatTime(pump.CreatedAt),
		UpdatedAt:          formatTime(pump.UpdatedAt),
	}
}

func writeFleetError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrFleetInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrFleetNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("fleet_not_found", err.Error(), http.StatusNotFound))
	case errors.Is(err, services.ErrFleetRegistrationTaken):
		httpx.WriteError(ctx, w, httpx.NewError("registration_taken", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrFleetConflict):
		httpx.WriteError(ctx, w, httpx.NewError("fleet_conflict", err.Error(), http.StatusConflict))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("fleet_error", "failed to process fleet request", http.StatusInternalServerError))
	}
}
