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

const maxCatalogBodySize = 128 * 1024

// CatalogHandlers exposes material, recipe and defaults template endpoints.
type CatalogHandlers struct {
	catalog services.CatalogService
}

// NewCatalogHandlers constructs a new CatalogHandlers instance.
func NewCatalogHandlers(catalog services.CatalogService) *CatalogHandlers {
	return &CatalogHandlers{catalog: catalog}
}

// Routes registers the /catalog endpoints.
func (h *CatalogHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/materials", h.createMaterial)
	r.Get("/materials", h.listMaterials)
	r.Get("/materials/{materialID}", h.getMaterial)
	r.Put("/materials/{materialID}", h.updateMaterial)
	r.Post("/materials/{materialID}:archive", h.archiveMaterial)
	r.Post("/materials/{materialID}/stock-adjustments", h.adjustStock)

	r.Post("/recipes", h.createRecipe)
	r.Get("/recipes", h.listRecipes)
	r.Get("/recipes/{recipeID}", h.getRecipe)
	r.Put("/recipes/{recipeID}", h.updateRecipe)
	r.Post("/recipes/{recipeID}:archive", h.archiveRecipe)

	r.Post("/defaults", h.createDefaults)
	r.Get("/defaults", h.listDefaults)
	r.Put("/defaults/{defaultsID}", h.updateDefaults)
}

type materialRequest struct {
	Name     string   `json:"name"`
	LongName string   `json:"long_name"`
	Type     string   `json:"type"`
	Unit     string   `json:"unit"`
	Stock    *float64 `json:"stock"`
}

func (req materialRequest) command() services.UpsertMaterialCommand {
	return services.UpsertMaterialCommand{
		Name:     strings.TrimSpace(req.Name),
		LongName: strings.TrimSpace(req.LongName),
		Type:     domain.MaterialType(strings.TrimSpace(req.Type)),
		Unit:     strings.TrimSpace(req.Unit),
		Stock:    req.Stock,
	}
}

func (h *CatalogHandlers) createMaterial(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		writeServiceUnavailable(ctx, w, "catalog")
		return
	}

	var req materialRequest
	if err := decodeJSONBody(r, maxCatalogBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	material, err := h.catalog.CreateMaterial(ctx, req.command())
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, materialResponse{Material: buildMaterialPayload(material)})
}

func (h *CatalogHandlers) listMaterials(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		writeServiceUnavailable(ctx, w, "catalog")
		return
	}

	query := r.URL.Query()
	filter := services.MaterialListFilter{}
	if raw := strings.TrimSpace(query.Get("type")); raw != "" {
		materialType := domain.MaterialType(raw)
		if !materialType.Valid() {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "type must be a valid material type", http.StatusBadRequest))
			return
		}
		filter.Type = &materialType
	}
	includeHidden, err := parseBoolParam(query.Get("include_hidden"))
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "include_hidden must be a boolean", http.StatusBadRequest))
		return
	}
	filter.IncludeHidden = includeHidden

	materials, err := h.catalog.ListMaterials(ctx, filter)
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}

	items := make([]materialPayload, 0, len(materials))
	for _, material := range materials {
		items = append(items, buildMaterialPayload(material))
	}
	writeJSONResponse(w, http.StatusOK, materialListResponse{Items: items})
}

func (h *CatalogHandlers) getMaterial(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		writeServiceUnavailable(ctx, w, "catalog")
		return
	}

	materialID := strings.TrimSpace(chi.URLParam(r, "materialID"))
	if materialID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "material id is required", http.StatusBadRequest))
		return
	}

	material, err := h.catalog.GetMaterial(ctx, materialID)
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, materialResponse{Material: buildMaterialPayload(material)})
}

func (h *CatalogHandlers) updateMaterial(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		writeServiceUnavailable(ctx, w, "catalog")
		return
	}

	materialID := strings.TrimSpace(chi.URLParam(r, "materialID"))
	if materialID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "material id is required", http.StatusBadRequest))
		return
	}

	var req materialRequest
	if err := decodeJSONBody(r, maxCatalogBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	material, err := h.catalog.UpdateMaterial(ctx, materialID, req.command())
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, materialResponse{Material: buildMaterialPayload(material)})
}

func (h *CatalogHandlers) archiveMaterial(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		writeServiceUnavailable(ctx, w, "catalog")
		return
	}

	materialID := strings.TrimSpace(chi.URLParam(r, "materialID"))
	if materialID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "material id is required", http.StatusBadRequest))
		return
	}

	if err := h.catalog.ArchiveMaterial(ctx, materialID); err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type adjustStockRequest struct {
	Delta   float64 `json:"delta"`
	Reason  string  `json:"reason"`
	OrderID *string `json:"order_id"`
}

func (h *CatalogHandlers) adjustStock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		writeServiceUnavailable(ctx, w, "catalog")
		return
	}

	materialID := strings.TrimSpace(chi.URLParam(r, "materialID"))
	if materialID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "material id is required", http.StatusBadRequest))
		return
	}

	var req adjustStockRequest
	if err := decodeJSONBody(r, maxCatalogBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	material, err := h.catalog.AdjustStock(ctx, services.AdjustStockCommand{
		MaterialID: materialID,
		Delta:      req.Delta,
		Reason:     strings.TrimSpace(req.Reason),
		OrderID:    req.OrderID,
	})
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, materialResponse{Material: buildMaterialPayload(material)})
}

type recipeMaterialRequest struct {
	MaterialID string   `json:"material_id"`
	Amount     float64  `json:"amount"`
	Delay      float64  `json:"delay"`
	KValue     *float64 `json:"k_value"`
	KRatio     *float64 `json:"k_ratio"`
}

type recipeRequest struct {
	Name                      string   `json:"name"`
	Number                    *string  `json:"number"`
	RecipeClass               string   `json:"recipe_class"`
	Description               string   `json:"description"`
	Comment                   string   `json:"comment"`
	ConsistencyClass          string   `json:"consistency_class"`
	ExposureClasses           string   `json:"exposure_classes"`
	Price                     *float64 `json:"price"`
	BatchVolumeLimit          *float64 `json:"batch_volume_limit"`
	LiftPourDuration          *float64 `json:"lift_pour_duration"`
	LiftSemiPourDuration      *float64 `json:"lift_semi_pour_duration"`
	MixerSemiOpeningDuration  *float64 `json:"mixer_semi_opening_duration"`
	MixerSemiOpening2Duration *float64 `json:"mixer_semi_opening_2_duration"`
	MixerOpeningDuration      *float64 `json:"mixer_opening_duration"`
	MixingDuration            *float64 `json:"mixing_duration"`
	DMax                      *float64 `json:"d_max"`
	ClContent                 *float64 `json:"cl_content"`
	VC                        *float64 `json:"vc"`
	CementMin                 *float64 `json:"cement_min"`
	WorkabilityTime           *float64 `json:"workability_time"`
	DefaultsID                *string  `json:"defaults_id"`

	Materials []recipeMaterialRequest `json:"materials"`
}

func (req recipeRequest) input() services.RecipeInput {
	return services.RecipeInput{
		Name:                      strings.TrimSpace(req.Name),
		Number:                    req.Number,
		RecipeClass:               strings.TrimSpace(req.RecipeClass),
		Description:               req.Description,
		Comment:                   req.Comment,
		ConsistencyClass:          strings.TrimSpace(req.ConsistencyClass),
		ExposureClasses:           strings.TrimSpace(req.ExposureClasses),
		Price:                     req.Price,
		BatchVolumeLimit:          req.BatchVolumeLimit,
		LiftPourDuration:          req.LiftPourDuration,
		LiftSemiPourDuration:      req.LiftSemiPourDuration,
		MixerSemiOpeningDuration:  req.MixerSemiOpeningDuration,
		MixerSemiOpening2Duration: req.MixerSemiOpening2Duration,
		MixerOpeningDuration:      req.MixerOpeningDuration,
		MixingDuration:            req.MixingDuration,
		DMax:                      req.DMax,
		ClContent:                 req.ClContent,
		VC:                        req.VC,
		CementMin:                 req.CementMin,
		WorkabilityTime:           req.WorkabilityTime,
		DefaultsID:                req.DefaultsID,
	}
}

func (req recipeRequest) materialInputs() []services.RecipeMaterialInput {
	result := make([]services.RecipeMaterialInput, 0, len(req.Materials))
	for _, line := range req.Materials {
		result = append(result, services.RecipeMaterialInput{
			MaterialID: strings.TrimSpace(line.MaterialID),
			Amount:     line.Amount,
			Delay:      line.Delay,
			KValue:     line.KValue,
			KRatio:     line.KRatio,
		})
	}
	return result
}

func (h *CatalogHandlers) createRecipe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		writeServiceUnavailable(ctx, w, "catalog")
		return
	}

	var req recipeRequest
	if err := decodeJSONBody(r, maxCatalogBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	detail, err := h.catalog.CreateRecipe(ctx, services.CreateRecipeCommand{
		Recipe:    req.input(),
		Materials: req.materialInputs(),
	})
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, buildRecipeDetailResponse(detail))
}

func (h *CatalogHandlers) listRecipes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		writeServiceUnavailable(ctx, w, "catalog")
		return
	}

	query := r.URL.Query()
	filter := services.RecipeListFilter{}
	if raw := strings.TrimSpace(query.Get("class")); raw != "" {
		filter.RecipeClass = &raw
	}
	includeHidden, err := parseBoolParam(query.Get("include_hidden"))
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "include_hidden must be a boolean", http.StatusBadRequest))
		return
	}
	filter.IncludeHidden = includeHidden

	recipes, err := h.catalog.ListRecipes(ctx, filter)
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}

	items := make([]recipeSummaryPayload, 0, len(recipes))
	for _, recipe := range recipes {
		items = append(items, recipeSummaryPayload{
			ID:          recipe.ID,
			Name:        recipe.Name,
			Number:      cloneStringPointer(recipe.Number),
			RecipeClass: recipe.RecipeClass,
			Price:       cloneFloatPointer(recipe.Price),
			Hidden:      recipe.Hidden,
			CreatedAt:   formatTime(recipe.CreatedAt),
		})
	}
	writeJSONResponse(w, http.StatusOK, recipeListResponse{Items: items})
}

func (h *CatalogHandlers) getRecipe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		writeServiceUnavailable(ctx, w, "catalog")
		return
	}

	recipeID := strings.TrimSpace(chi.URLParam(r, "recipeID"))
	if recipeID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "recipe id is required", http.StatusBadRequest))
		return
	}

	detail, err := h.catalog.GetRecipe(ctx, recipeID)
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildRecipeDetailResponse(detail))
}

func (h *CatalogHandlers) updateRecipe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		writeServiceUnavailable(ctx, w, "catalog")
		return
	}

	recipeID := strings.TrimSpace(chi.URLParam(r, "recipeID"))
	if recipeID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "recipe id is required", http.StatusBadRequest))
		return
	}

	var req recipeRequest
	if err := decodeJSONBody(r, maxCatalogBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	detail, err := h.catalog.UpdateRecipe(ctx, services.UpdateRecipeCommand{
		RecipeID:  recipeID,
		Recipe:    req.input(),
		Materials: req.materialInputs(),
	})
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildRecipeDetailResponse(detail))
}

func (h *CatalogHandlers) archiveRecipe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		writeServiceUnavailable(ctx, w, "catalog")
		return
	}

	recipeID := strings.TrimSpace(chi.URLParam(r, "recipeID"))
	if recipeID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "recipe id is required", http.StatusBadRequest))
		return
	}

	if err := h.catalog.ArchiveRecipe(ctx, recipeID); err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type defaultsRequest struct {
	Name                      string   `json:"name"`
	BatchVolumeLimit          *float64 `json:"batch_volume_limit"`
	LiftPourDuration          *float64 `json:"lift_pour_duration"`
	LiftSemiPourDuration      *float64 `json:"lift_semi_pour_duration"`
	MixerSemiOpeningDuration  *float64 `json:"mixer_semi_opening_duration"`
	MixerSemiOpening2Duration *float64 `json:"mixer_semi_opening_2_duration"`
	MixerOpeningDuration      *float64 `json:"mixer_opening_duration"`
	MixingDuration            *float64 `json:"mixing_duration"`
}

func (req defaultsRequest) command() services.UpsertDefaultsCommand {
	return services.UpsertDefaultsCommand{
		Name:                      strings.TrimSpace(req.Name),
		BatchVolumeLimit:          req.BatchVolumeLimit,
		LiftPourDuration:          req.LiftPourDuration,
		LiftSemiPourDuration:      req.LiftSemiPourDuration,
		MixerSemiOpeningDuration:  req.MixerSemiOpeningDuration,
		MixerSemiOpening2Duration: req.MixerSemiOpening2Duration,
		MixerOpeningDuration:      req.MixerOpeningDuration,
		MixingDuration:            req.MixingDuration,
	}
}

func (h *CatalogHandlers) createDefaults(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		writeServiceUnavailable(ctx, w, "catalog")
		return
	}

	var req defaultsRequest
	if err := decodeJSONBody(r, maxCatalogBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	created, err := h.catalog.CreateDefaults(ctx, req.command())
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, defaultsResponse{Defaults: buildDefaultsPayload(created)})
}

func (h *CatalogHandlers) listDefaults(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		writeServiceUnavailable(ctx, w, "catalog")
		return
	}

	templates, err := h.catalog.ListDefaults(ctx)
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}

	items := make([]defaultsPayload, 0, len(templates))
	for _, template := range templates {
		items = append(items, buildDefaultsPayload(template))
	}
	writeJSONResponse(w, http.StatusOK, defaultsListResponse{Items: items})
}

func (h *CatalogHandlers) updateDefaults(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		writeServiceUnavailable(ctx, w, "catalog")
		return
	}

	defaultsID := strings.TrimSpace(chi.URLParam(r, "defaultsID"))
	if defaultsID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "defaults id is required", http.StatusBadRequest))
		return
	}

	var req defaultsRequest
	if err := decodeJSONBody(r, maxCatalogBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	updated, err := h.catalog.UpdateDefaults(ctx, defaultsID, req.command())
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, defaultsResponse{Defaults: buildDefaultsPayload(updated)})
}

type materialListResponse struct {
	Items []materialPayload `json:"items"`
}

type materialResponse struct {
	Material materialPayload `json:"material"`
}

type materialPayload struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	LongName  string  `json:"long_name,omitempty"`
	Type      string  `json:"type"`
	Unit      string  `json:"unit,omitempty"`
	Stock     float64 `json:"stock"`
	Hidden    bool    `json:"hidden,omitempty"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at,omitempty"`
}

type recipeListResponse struct {
	Items []recipeSummaryPayload `json:"items"`
}

type recipeSummaryPayload struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Number      *string  `json:"number,omitempty"`
	RecipeClass string   `json:"recipe_class,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Hidden      bool     `json:"hidden,omitempty"`
	CreatedAt   string   `json:"created_at"`
}

type recipeDetailResponse struct {
	Recipe    recipePayload           `json:"recipe"`
	Materials []recipeMaterialPayload `json:"materials"`
}

type recipePayload struct {
	ID                        string   `json:"id"`
	Name                      string   `json:"name"`
	Number                    *string  `json:"number,omitempty"`
	RecipeClass               string   `json:"recipe_class,omitempty"`
	Description               string   `json:"description,omitempty"`
	Comment                   string   `json:"comment,omitempty"`
	ConsistencyClass          string   `json:"consistency_class,omitempty"`
	ExposureClasses           string   `json:"exposure_classes,omitempty"`
	Price                     *float64 `json:"price,omitempty"`
	BatchVolumeLimit          *float64 `json:"batch_volume_limit,omitempty"`
	LiftPourDuration          *float64 `json:"lift_pour_duration,omitempty"`
	LiftSemiPourDuration      *float64 `json:"lift_semi_pour_duration,omitempty"`
	MixerSemiOpeningDuration  *float64 `json:"mixer_semi_opening_duration,omitempty"`
	MixerSemiOpening2Duration *float64 `json:"mixer_semi_opening_2_duration,omitempty"`
	MixerOpeningDuration      *float64 `json:"mixer_opening_duration,omitempty"`
	MixingDuration            *float64 `json:"mixing_duration,omitempty"`
	DMax                      *float64 `json:"d_max,omitempty"`
	ClContent                 *float64 `json:"cl_content,omitempty"`
	VC                        *float64 `json:"vc,omitempty"`
	CementMin                 *float64 `json:"cement_min,omitempty"`
	WorkabilityTime           *float64 `json:"workability_time,omitempty"`
	DefaultsID                *string  `json:"defaults_id,omitempty"`
	Hidden                    bool     `json:"hidden,omitempty"`
	CreatedAt                 string   `json:"created_at"`
	UpdatedAt                 string   `json:"updated_at,omitempty"`
}

type recipeMaterialPayload struct {
	ID         string   `json:"id"`
	MaterialID string   `json:"material_id"`
	Amount     float64  `json:"amount"`
	Delay      float64  `json:"delay"`
	KValue     *float64 `json:"k_value,omitempty"`
	KRatio     *float64 `json:"k_ratio,omitempty"`
}

type defaultsListResponse struct {
	Items []defaultsPayload `json:"items"`
}

type defaultsResponse struct {
	Defaults defaultsPayload `json:"defaults"`
}

type defaultsPayload struct {
	ID                        string   `json:"id"`
	Name                      string   `json:"name"`
	BatchVolumeLimit          *float64 `json:"batch_volume_limit,omitempty"`
	LiftPourDuration          *float64 `json:"lift_pour_duration,omitempty"`
	LiftSemiPourDuration      *float64 `json:"lift_semi_pour_duration,omitempty"`
	MixerSemiOpeningDuration  *float64 `json:"mixer_semi_opening_duration,omitempty"`
	MixerSemiOpening2Duration *float64 `json:"mixer_semi_opening_2_duration,omitempty"`
	MixerOpeningDuration      *float64 `json:"mixer_opening_duration,omitempty"`
	MixingDuration            *float64 `json:"mixing_duration,omitempty"`
	CreatedAt                 string   `json:"created_at"`
	UpdatedAt                 string   `json:"updated_at,omitempty"`
}

func buildMaterialPayload(material services.Material) materialPayload {
	return materialPayload{
		ID:        material.ID,
		Name:      material.Name,
		LongName:  material.LongName,
		Type:      string(material.Type),
		Unit:      material.Unit,
		Stock:     material.Stock,
		Hidden:    material.Hidden,
		CreatedAt: formatTime(material.CreatedAt),
		UpdatedAt: formatTime(material.UpdatedAt),
	}
}

func buildRecipeDetailResponse(detail services.RecipeDetail) recipeDetailResponse {
	recipe := detail.Recipe
	response := recipeDetailResponse{
		Recipe: recipePayload{
			ID:                        recipe.ID,
			Name:                      recipe.Name,
			Number:                    cloneStringPointer(recipe.Number),
			RecipeClass:               recipe.RecipeClass,
			Description:               recipe.Description,
			Comment:                   recipe.Comment,
			ConsistencyClass:          recipe.ConsistencyClass,
			ExposureClasses:           recipe.ExposureClasses,
			Price:                     cloneFloatPointer(recipe.Price),
			BatchVolumeLimit:          cloneFloatPointer(recipe.BatchVolumeLimit),
			LiftPourDuration:          cloneFloatPointer(recipe.LiftPourDuration),
			LiftSemiPourDuration:      cloneFloatPointer(recipe.LiftSemiPourDuration),
			MixerSemiOpeningDuration:  cloneFloatPointer(recipe.MixerSemiOpeningDuration),
			MixerSemiOpening2Duration: cloneFloatPointer(recipe.MixerSemiOpening2Duration),
			MixerOpeningDuration:      cloneFloatPointer(recipe.MixerOpeningDuration),
			MixingDuration:            cloneFloatPointer(recipe.MixingDuration),
			DMax:                      cloneFloatPointer(recipe.DMax),
			ClContent:                 cloneFloatPointer(recipe.ClContent),
			VC:                        cloneFloatPointer(recipe.VC),
			CementMin:                 cloneFloatPointer(recipe.CementMin),
			WorkabilityTime:           cloneFloatPointer(recipe.WorkabilityTime),
			DefaultsID:                cloneStringPointer(recipe.DefaultsID),
			Hidden:                    recipe.Hidden,
			CreatedAt:                 formatTime(recipe.CreatedAt),
			UpdatedAt:                 formatTime(recipe.UpdatedAt),
		},
		Materials: make([]recipeMaterialPayload, 0, len(detail.Materials)),
	}
	for _, line := range detail.Materials {
		response.Materials = append(response.Materials, recipeMaterialPayload{
			ID:         line.ID,
			MaterialID: line.MaterialID,
			Amount:     line.Amount,
			Delay:      line.Delay,
			KValue:     cloneFloatPointer(line.KValue),
			KRatio:     cloneFloatPointer(line.KRatio),
		})
	}
	return response
}

func buildDefaultsPayload(template services.Defaults) defaultsPayload {
	return defaultsPayload{
		ID:                        template.ID,
		Name:                      template.Name,
		BatchVolumeLimit:          cloneFloatPointer(template.BatchVolumeLimit),
		LiftPourDuration:          cloneFloatPointer(template.LiftPourDuration),
		LiftSemiPourDuration:      cloneFloatPointer(template.LiftSemiPourDuration),
		MixerSemiOpeningDuration:  cloneFloatPointer(template.MixerSemiOpeningDuration),
		MixerSemiOpening2Duration: cloneFloatPointer(template.MixerSemiOpening2Duration),
		MixerOpeningDuration:      cloneFloatPointer(template.MixerOpeningDuration),
		MixingDuration:            cloneFloatPointer(template.MixingDuration),
		CreatedAt:                 formatTime(template.CreatedAt),
		UpdatedAt:                 formatTime(template.UpdatedAt),
	}
}

func writeCatalogError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrCatalogInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCatalogNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("catalog_not_found", err.Error(), http.StatusNotFound))
	case errors.Is(err, services.ErrCatalogConflict):
		httpx.WriteError(ctx, w, httpx.NewError("catalog_conflict", err.Error(), http.StatusConflict))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("catalog_error", "failed to process catalog request", http.StatusInternalServerError))
	}
}
