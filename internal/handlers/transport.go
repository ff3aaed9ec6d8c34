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

const maxTransportBodySize = 16 * 1024

// TransportHandlers exposes transport zone and transport type endpoints.
type TransportHandlers struct {
	transport services.TransportService
}

// NewTransportHandlers constructs a new TransportHandlers instance.
func NewTransportHandlers(transport services.TransportService) *TransportHandlers {
	return &TransportHandlers{transport: transport}
}

// Routes registers the /transport endpoints.
func (h *TransportHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/zones", h.listZones)
	r.Post("/zones", h.createZone)
	r.Put("/zones/{zoneID}", h.updateZone)
	r.Delete("/zones/{zoneID}", h.deleteZone)
	r.Get("/zones:match", h.matchZones)
	r.Get("/types", h.listTypes)
	r.Post("/types", h.createType)
	r.Delete("/types/{typeID}", h.deleteType)
}

type zoneRequest struct {
	Name            string   `json:"name"`
	DistanceKmMin   float64  `json:"distance_km_min"`
	DistanceKmMax   float64  `json:"distance_km_max"`
	MinInclusive    bool     `json:"min_inclusive"`
	MaxInclusive    bool     `json:"max_inclusive"`
	Price           float64  `json:"price"`
	PriceIsPerM3    bool     `json:"price_is_per_m3"`
	MinimalVolume   *float64 `json:"minimal_volume"`
	TransportTypeID *string  `json:"transport_type_id"`
}

func (req zoneRequest) command() services.UpsertZoneCommand {
	return services.UpsertZoneCommand{
		Name:            strings.TrimSpace(req.Name),
		DistanceKmMin:   req.DistanceKmMin,
		DistanceKmMax:   req.DistanceKmMax,
		MinInclusive:    req.MinInclusive,
		MaxInclusive:    req.MaxInclusive,
		Price:           req.Price,
		PriceIsPerM3:    req.PriceIsPerM3,
		MinimalVolume:   req.MinimalVolume,
		TransportTypeID: req.TransportTypeID,
	}
}

func (h *TransportHandlers) listZones(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.transport == nil {
		writeServiceUnavailable(ctx, w, "transport")
		return
	}

	zones, err := h.transport.ListZones(ctx)
	if err != nil {
		writeTransportError(ctx, w, err)
		return
	}

	items := make([]zonePayload, 0, len(zones))
	for _, zone := range zones {
		items = append(items, buildZonePayload(zone))
	}
	writeJSONResponse(w, http.StatusOK, zoneListResponse{Items: items})
}

func (h *TransportHandlers) createZone(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.transport == nil {
		writeServiceUnavailable(ctx, w, "transport")
		return
	}

	var req zoneRequest
	if err := decodeJSONBody(r, maxTransportBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	zone, err := h.transport.CreateZone(ctx, req.command())
	if err != nil {
		writeTransportError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, zoneResponse{Zone: buildZonePayload(zone)})
}

func (h *TransportHandlers) updateZone(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.transport == nil {
		writeServiceUnavailable(ctx, w, "transport")
		return
	}

	zoneID := strings.TrimSpace(chi.URLParam(r, "zoneID"))
	if zoneID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "zone id is required", http.StatusBadRequest))
		return
	}

	var req zoneRequest
	if err := decodeJSONBody(r, maxTransportBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	zone, err := h.transport.UpdateZone(ctx, zoneID, req.command())
	if err != nil {
		writeTransportError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, zoneResponse{Zone: buildZonePayload(zone)})
}

func (h *TransportHandlers) deleteZone(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.transport == nil {
		writeServiceUnavailable(ctx, w, "transport")
		return
	}

	zoneID := strings.TrimSpace(chi.URLParam(r, "zoneID"))
	if zoneID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "zone id is required", http.StatusBadRequest))
		return
	}

	if err := h.transport.DeleteZone(ctx, zoneID); err != nil {
		writeTransportError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TransportHandlers) matchZones(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.transport == nil {
		writeServiceUnavailable(ctx, w, "transport")
		return
	}

	query := r.URL.Query()
	distance, err := parseFloatParam(query.Get("distance"))
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "distance must be a number", http.StatusBadRequest))
		return
	}

	match := services.MatchZonesQuery{Distance: distance}
	if raw := strings.TrimSpace(query.Get("transport_type_id")); raw != "" {
		match.TransportTypeID = &raw
	}

	ranked, err := h.transport.MatchZones(ctx, match)
	if err != nil {
		writeTransportError(ctx, w, err)
		return
	}

	items := make([]rankedZonePayload, 0, len(ranked))
	for _, entry := range ranked {
		items = append(items, rankedZonePayload{
			Zone: buildZonePayload(entry.Zone),
			Tier: int(entry.Tier),
		})
	}
	writeJSONResponse(w, http.StatusOK, rankedZoneListResponse{Items: items})
}

func (h *TransportHandlers) listTypes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.transport == nil {
		writeServiceUnavailable(ctx, w, "transport")
		return
	}

	types, err := h.transport.ListTransportTypes(ctx)
	if err != nil {
		writeTransportError(ctx, w, err)
		return
	}

	items := make([]transportTypePayload, 0, len(types))
	for _, entry := range types {
		items = append(items, transportTypePayload{
			ID:        entry.ID,
			Name:      entry.Name,
			CreatedAt: formatTime(entry.CreatedAt),
		})
	}
	writeJSONResponse(w, http.StatusOK, transportTypeListResponse{Items: items})
}

type createTransportTypeRequest struct {
	Name string `json:"name"`
}

func (h *TransportHandlers) createType(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.transport == nil {
		writeServiceUnavailable(ctx, w, "transport")
		return
	}

	var req createTransportTypeRequest
	if err := decodeJSONBody(r, maxTransportBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	created, err := h.transport.CreateTransportType(ctx, strings.TrimSpace(req.Name))
	if err != nil {
		writeTransportError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, transportTypePayload{
		ID:        created.ID,
		Name:      created.Name,
		CreatedAt: formatTime(created.CreatedAt),
	})
}

func (h *TransportHandlers) deleteType(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.transport == nil {
		writeServiceUnavailable(ctx, w, "transport")
		return
	}

	typeID := strings.TrimSpace(chi.URLParam(r, "typeID"))
	if typeID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "transport type id is required", http.StatusBadRequest))
		return
	}

	if err := h.transport.DeleteTransportType(ctx, typeID); err != nil {
		writeTransportError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type zoneListResponse struct {
	Items []zonePayload `json:"items"`
}

type zoneResponse struct {
	Zone zonePayload `json:"zone"`
}

type zonePayload struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	DistanceKmMin   float64  `json:"distance_km_min"`
	DistanceKmMax   float64  `json:"distance_km_max"`
	MinInclusive    bool     `json:"min_inclusive"`
	MaxInclusive    bool     `json:"max_inclusive"`
	Price           float64  `json:"price"`
	PriceIsPerM3    bool     `json:"price_is_per_m3"`
	MinimalVolume   *float64 `json:"minimal_volume,omitempty"`
	TransportTypeID *string  `json:"transport_type_id,omitempty"`
	CreatedAt       string   `json:"created_at"`
	UpdatedAt       string   `json:"updated_at,omitempty"`
}

type rankedZoneListResponse struct {
	Items []rankedZonePayload `json:"items"`
}

type rankedZonePayload struct {
	Zone zonePayload `json:"zone"`
	Tier int         `json:"tier"`
}

type transportTypeListResponse struct {
	Items []transportTypePayload `json:"items"`
}

type transportTypePayload struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

func buildZonePayload(zone services.TransportZone) zonePayload {
	return zonePayload{
		ID:              zone.ID,
		Name:            zone.Name,
		DistanceKmMin:   zone.DistanceKmMin,
		DistanceKmMax:   zone.DistanceKmMax,
		MinInclusive:    zone.MinInclusive,
		MaxInclusive:    zone.MaxInclusive,
		Price:           zone.Price,
		PriceIsPerM3:    zone.PriceIsPerM3,
		MinimalVolume:   cloneFloatPointer(zone.MinimalVolume),
		TransportTypeID: cloneStringPointer(zone.TransportTypeID),
		CreatedAt:       formatTime(zone.CreatedAt),
		UpdatedAt:       formatTime(zone.UpdatedAt),
	}
}

func writeTransportError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrTransportInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrTransportNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("transport_not_found", err.Error(), http.StatusNotFound))
	case errors.Is(err, services.ErrTransportTypeInUse):
		httpx.WriteError(ctx, w, httpx.NewError("transport_type_in_use", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrTransportConflict):
		httpx.WriteError(ctx, w, httpx.NewError("transport_conflict", err.Error(), http.StatusConflict))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("transport_error", "failed to process transport request", http.StatusInternalServerError))
	}
}
