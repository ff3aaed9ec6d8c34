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

const maxCustomerBodySize = 32 * 1024

// CustomerHandlers exposes customer, construction site, contract and
// discount rule endpoints.
type CustomerHandlers struct {
	customers services.CustomerService
}

// NewCustomerHandlers constructs a new CustomerHandlers instance.
func NewCustomerHandlers(customers services.CustomerService) *CustomerHandlers {
	return &CustomerHandlers{customers: customers}
}

// Routes registers the /customers endpoints. Sites, contracts and prices
// hang off the owning customer for listing and live at the top level for
// mutation by their own IDs.
func (h *CustomerHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/", h.createCustomer)
	r.Get("/", h.listCustomers)
	r.Get("/{customerID}", h.getCustomer)
	r.Put("/{customerID}", h.updateCustomer)
	r.Post("/{customerID}:archive", h.archiveCustomer)

	r.Get("/{customerID}/sites", h.listSites)
	r.Post("/{customerID}/sites", h.createSite)
	r.Put("/sites/{siteID}", h.updateSite)

	r.Get("/{customerID}/contracts", h.listContracts)
	r.Post("/contracts", h.createContract)
	r.Put("/contracts/{contractID}", h.updateContract)
	r.Delete("/contracts/{contractID}", h.deleteContract)

	r.Get("/{customerID}/prices", h.listPriceRules)
	r.Post("/prices", h.createPriceRule)
	r.Put("/prices/{priceID}", h.updatePriceRule)
	r.Delete("/prices/{priceID}", h.deletePriceRule)
}

type customerRequest struct {
	Name      string `json:"name"`
	Street    string `json:"street"`
	City      string `json:"city"`
	Zip       string `json:"zip"`
	CompanyID string `json:"company_id"`
	VATID     string `json:"vat_id"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
}

func (req customerRequest) command() services.UpsertCustomerCommand {
	return services.UpsertCustomerCommand{
		Name:      strings.TrimSpace(req.Name),
		Street:    strings.TrimSpace(req.Street),
		City:      strings.TrimSpace(req.City),
		Zip:       strings.TrimSpace(req.Zip),
		CompanyID: strings.TrimSpace(req.CompanyID),
		VATID:     strings.TrimSpace(req.VATID),
		Phone:     strings.TrimSpace(req.Phone),
		Email:     strings.TrimSpace(req.Email),
	}
}

func (h *CustomerHandlers) createCustomer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.customers == nil {
		writeServiceUnavailable(ctx, w, "customer")
		return
	}

	var req customerRequest
	if err := decodeJSONBody(r, maxCustomerBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	customer, err := h.customers.CreateCustomer(ctx, req.command())
	if err != nil {
		writeCustomerError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, customerResponse{Customer: buildCustomerPayload(customer)})
}

func (h *CustomerHandlers) listCustomers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.customers == nil {
		writeServiceUnavailable(ctx, w, "customer")
		return
	}

	query := r.URL.Query()
	filter := services.CustomerListFilter{}
	if prefix := optionalString(query.Get("name_prefix")); prefix != nil {
		filter.NamePrefix = prefix
	}
	includeHidden, err := parseBoolParam(query.Get("include_hidden"))
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "include_hidden must be a boolean", http.StatusBadRequest))
		return
	}
	filter.IncludeHidden = includeHidden

	customers, err := h.customers.ListCustomers(ctx, filter)
	if err != nil {
		writeCustomerError(ctx, w, err)
		return
	}

	items := make([]customerPayload, 0, len(customers))
	for _, customer := range customers {
		items = append(items, buildCustomerPayload(customer))
	}
	writeJSONResponse(w, http.StatusOK, customerListResponse{Items: items})
}

func (h *CustomerHandlers) getCustomer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.customers == nil {
		writeServiceUnavailable(ctx, w, "customer")
		return
	}

	customerID := strings.TrimSpace(chi.URLParam(r, "customerID"))
	if customerID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "customer id is required", http.StatusBadRequest))
		return
	}

	customer, err := h.customers.GetCustomer(ctx, customerID)
	if err != nil {
		writeCustomerError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, customerResponse{Customer: buildCustomerPayload(customer)})
}

func (h *CustomerHandlers) updateCustomer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.customers == nil {
		writeServiceUnavailable(ctx, w, "customer")
		return
	}

	customerID := strings.TrimSpace(chi.URLParam(r, "customerID"))
	if customerID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "customer id is required", http.StatusBadRequest))
		return
	}

	var req customerRequest
	if err := decodeJSONBody(r, maxCustomerBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	customer, err := h.customers.UpdateCustomer(ctx, customerID, req.command())
	if err != nil {
		writeCustomerError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, customerResponse{Customer: buildCustomerPayload(customer)})
}

func (h *CustomerHandlers) archiveCustomer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.customers == nil {
		writeServiceUnavailable(ctx, w, "customer")
		return
	}

	customerID := strings.TrimSpace(chi.URLParam(r, "customerID"))
	if customerID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "customer id is required", http.StatusBadRequest))
		return
	}

	if err := h.customers.ArchiveCustomer(ctx, customerID); err != nil {
		writeCustomerError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type siteRequest struct {
	Name     string   `json:"name"`
	Street   string   `json:"street"`
	City     string   `json:"city"`
	Distance *float64 `json:"distance"`
}

func (h *CustomerHandlers) listSites(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.customers == nil {
		writeServiceUnavailable(ctx, w, "customer")
		return
	}

	customerID := strings.TrimSpace(chi.URLParam(r, "customerID"))
	sites, err := h.customers.ListSites(ctx, customerID)
	if err != nil {
		writeCustomerError(ctx, w, err)
		return
	}

	items := make([]sitePayload, 0, len(sites))
	for _, site := range sites {
		items = append(items, buildSitePayload(site))
	}
	writeJSONResponse(w, http.StatusOK, siteListResponse{Items: items})
}

func (h *CustomerHandlers) createSite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.customers == nil {
		writeServiceUnavailable(ctx, w, "customer")
		return
	}

	customerID := strings.TrimSpace(chi.URLParam(r, "customerID"))
	if customerID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "customer id is required", http.StatusBadRequest))
		return
	}

	var req siteRequest
	if err := decodeJSONBody(r, maxCustomerBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	site, err := h.customers.CreateSite(ctx, services.UpsertSiteCommand{
		CustomerID: &customerID,
		Name:       strings.TrimSpace(req.Name),
		Street:     strings.TrimSpace(req.Street),
		City:       strings.TrimSpace(req.City),
		Distance:   req.Distance,
	})
	if err != nil {
		writeCustomerError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, siteResponse{Site: buildSitePayload(site)})
}

func (h *CustomerHandlers) updateSite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.customers == nil {
		writeServiceUnavailable(ctx, w, "customer")
		return
	}

	siteID := strings.TrimSpace(chi.URLParam(r, "siteID"))
	if siteID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "site id is required", http.StatusBadRequest))
		return
	}

	var req siteRequest
	if err := decodeJSONBody(r, maxCustomerBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	site, err := h.customers.UpdateSite(ctx, siteID, services.UpsertSiteCommand{
		Name:     strings.TrimSpace(req.Name),
		Street:   strings.TrimSpace(req.Street),
		City:     strings.TrimSpace(req.City),
		Distance: req.Distance,
	})
	if err != nil {
		writeCustomerError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, siteResponse{Site: buildSitePayload(site)})
}

type contractRequest struct {
	Name          string   `json:"name"`
	CustomerID    string   `json:"customer_id"`
	SiteID        string   `json:"site_id"`
	RecipeID      *string  `json:"recipe_id"`
	CarID         *string  `json:"car_id"`
	DefaultVolume *float64 `json:"default_volume"`
}

func (req contractRequest) command() services.UpsertContractCommand {
	return services.UpsertContractCommand{
		Name:          strings.TrimSpace(req.Name),
		CustomerID:    strings.TrimSpace(req.CustomerID),
		SiteID:        strings.TrimSpace(req.SiteID),
		RecipeID:      req.RecipeID,
		CarID:         req.CarID,
		DefaultVolume: req.DefaultVolume,
	}
}

func (h *CustomerHandlers) listContracts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.customers == nil {
		writeServiceUnavailable(ctx, w, "customer")
		return
	}

	customerID := strings.TrimSpace(chi.URLParam(r, "customerID"))
	contracts, err := h.customers.ListContracts(ctx, customerID)
	if err != nil {
		writeCustomerError(ctx, w, err)
		return
	}

	items := make([]contractPayload, 0, len(contracts))
	for _, contract := range contracts {
		items = append(items, buildContractPayload(contract))
	}
	writeJSONResponse(w, http.StatusOK, contractListResponse{Items: items})
}

func (h *CustomerHandlers) createContract(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.customers == nil {
		writeServiceUnavailable(ctx, w, "customer")
		return
	}

	var req contractRequest
	if err := decodeJSONBody(r, maxCustomerBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	contract, err := h.customers.CreateContract(ctx, req.command())
	if err != nil {
		writeCustomerError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, contractResponse{Contract: buildContractPayload(contract)})
}

func (h *CustomerHandlers) updateContract(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.customers == nil {
		writeServiceUnavailable(ctx, w, "customer")
		return
	}

	contractID := strings.TrimSpace(chi.URLParam(r, "contractID"))
	if contractID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "contract id is required", http.StatusBadRequest))
		return
	}

	var req contractRequest
	if err := decodeJSONBody(r, maxCustomerBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	contract, err := h.customers.UpdateContract(ctx, contractID, req.command())
	if err != nil {
		writeCustomerError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, contractResponse{Contract: buildContractPayload(contract)})
}

func (h *CustomerHandlers) deleteContract(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.customers == nil {
		writeServiceUnavailable(ctx, w, "customer")
		return
	}

	contractID := strings.TrimSpace(chi.URLParam(r, "contractID"))
	if contractID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "contract id is required", http.StatusBadRequest))
		return
	}

	if err := h.customers.DeleteContract(ctx, contractID); err != nil {
		writeCustomerError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type priceRuleRequest struct {
	CustomerID string  `json:"customer_id"`
	RecipeID   *string `json:"recipe_id"`
	SiteID     *string `json:"site_id"`
	Amount     float64 `json:"amount"`
	Type       string  `json:"type"`
	Note       string  `json:"note"`
}

func (req priceRuleRequest) command() services.UpsertPriceRuleCommand {
	return services.UpsertPriceRuleCommand{
		CustomerID: strings.TrimSpace(req.CustomerID),
		RecipeID:   req.RecipeID,
		SiteID:     req.SiteID,
		Amount:     req.Amount,
		Type:       domain.PriceType(strings.TrimSpace(req.Type)),
		Note:       strings.TrimSpace(req.Note),
	}
}

func (h *CustomerHandlers) listPriceRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.customers == nil {
		writeServiceUnavailable(ctx, w, "customer")
		return
	}

	customerID := strings.TrimSpace(chi.URLParam(r, "customerID"))
	prices, err := h.customers.ListPriceRules(ctx, customerID)
	if err != nil {
		writeCustomerError(ctx, w, err)
		return
	}

	items := make([]priceRulePayload, 0, len(prices))
	for _, price := range prices {
		items = append(items, buildPriceRulePayload(price))
	}
	writeJSONResponse(w, http.StatusOK, priceRuleListResponse{Items: items})
}

func (h *CustomerHandlers) createPriceRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.customers == nil {
		writeServiceUnavailable(ctx, w, "customer")
		return
	}

	var req priceRuleRequest
	if err := decodeJSONBody(r, maxCustomerBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	price, err := h.customers.CreatePriceRule(ctx, req.command())
	if err != nil {
		writeCustomerError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, priceRuleResponse{Price: buildPriceRulePayload(price)})
}

func (h *CustomerHandlers) updatePriceRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.customers == nil {
		writeServiceUnavailable(ctx, w, "customer")
		return
	}

	priceID := strings.TrimSpace(chi.URLParam(r, "priceID"))
	if priceID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "price id is required", http.StatusBadRequest))
		return
	}

	var req priceRuleRequest
	if err := decodeJSONBody(r, maxCustomerBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	price, err := h.customers.UpdatePriceRule(ctx, priceID, req.command())
	if err != nil {
		writeCustomerError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, priceRuleResponse{Price: buildPriceRulePayload(price)})
}

func (h *CustomerHandlers) deletePriceRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.customers == nil {
		writeServiceUnavailable(ctx, w, "customer")
		return
	}

	priceID := strings.TrimSpace(chi.URLParam(r, "priceID"))
	if priceID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "price id is required", http.StatusBadRequest))
		return
	}

	if err := h.customers.DeletePriceRule(ctx, priceID); err != nil {
		writeCustomerError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type customerListResponse struct {
	Items []customerPayload `json:"items"`
}

type customerResponse struct {
	Customer customerPayload `json:"customer"`
}

type customerPayload struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Street    string `json:"street,omitempty"`
	City      string `json:"city,omitempty"`
	Zip       string `json:"zip,omitempty"`
	CompanyID string `json:"company_id,omitempty"`
	VATID     string `json:"vat_id,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Email     string `json:"email,omitempty"`
	Hidden    bool   `json:"hidden,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

type siteListResponse struct {
	Items []sitePayload `json:"items"`
}

type siteResponse struct {
	Site sitePayload `json:"site"`
}

type sitePayload struct {
	ID         string   `json:"id"`
	CustomerID *string  `json:"customer_id,omitempty"`
	Name       string   `json:"name"`
	Street     string   `json:"street,omitempty"`
	City       string   `json:"city,omitempty"`
	Distance   *float64 `json:"distance,omitempty"`
	Hidden     bool     `json:"hidden,omitempty"`
	CreatedAt  string   `json:"created_at"`
	UpdatedAt  string   `json:"updated_at,omitempty"`
}

type contractListResponse struct {
	Items []contractPayload `json:"items"`
}

type contractResponse struct {
	Contract contractPayload `json:"contract"`
}

type contractPayload struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	CustomerID    string   `json:"customer_id"`
	SiteID        string   `json:"site_id"`
	RecipeID      *string  `json:"recipe_id,omitempty"`
	CarID         *string  `json:"car_id,omitempty"`
	DefaultVolume *float64 `json:"default_volume,omitempty"`
	CreatedAt     string   `json:"created_at"`
	UpdatedAt     string   `json:"updated_at,omitempty"`
}

type priceRuleListResponse struct {
	Items []priceRulePayload `json:"items"`
}

type priceRuleResponse struct {
	Price priceRulePayload `json:"price"`
}

type priceRulePayload struct {
	ID         string  `json:"id"`
	CustomerID string  `json:"customer_id"`
	RecipeID   *string `json:"recipe_id,omitempty"`
	SiteID     *string `json:"site_id,omitempty"`
	Amount     float64 `json:"amount"`
	Type       string  `json:"type"`
	Note       string  `json:"note,omitempty"`
	CreatedAt  string  `json:"created_at"`
	UpdatedAt  string  `json:"updated_at,omitempty"`
}

func buildCustomerPayload(customer services.Customer) customerPayload {
	return customerPayload{
		ID:        customer.ID,
		Name:      customer.Name,
		Street:    customer.Street,
		City:      customer.City,
		Zip:       customer.Zip,
		CompanyID: customer.CompanyID,
		VATID:     customer.VATID,
		Phone:     customer.Phone,
		Email:     customer.Email,
		Hidden:    customer.Hidden,
		CreatedAt: formatTime(customer.CreatedAt),
		UpdatedAt: formatTime(customer.UpdatedAt),
	}
}

func buildSitePayload(site services.ConstructionSite) sitePayload {
	return sitePayload{
		ID:         site.ID,
		CustomerID: cloneStringPointer(site.CustomerID),
		Name:       site.Name,
		Street:     site.Street,
		City:       site.City,
		Distance:   cloneFloatPointer(site.Distance),
		Hidden:     site.Hidden,
		CreatedAt:  formatTime(site.CreatedAt),
		UpdatedAt:  formatTime(site.UpdatedAt),
	}
}

func buildContractPayload(contract services.Contract) contractPayload {
	return contractPayload{
		ID:            contract.ID,
		Name:          contract.Name,
		CustomerID:    contract.CustomerID,
		SiteID:        contract.SiteID,
		RecipeID:      cloneStringPointer(contract.RecipeID),
		CarID:         cloneStringPointer(contract.CarID),
		DefaultVolume: cloneFloatPointer(contract.DefaultVolume),
		CreatedAt:     formatTime(contract.CreatedAt),
		UpdatedAt:     formatTime(contract.UpdatedAt),
	}
}

func buildPriceRulePayload(price services.Price) priceRulePayload {
	return priceRulePayload{
		ID:         price.ID,
		CustomerID: price.CustomerID,
		RecipeID:   cloneStringPointer(price.RecipeID),
		SiteID:     cloneStringPointer(price.SiteID),
		Amount:     price.Amount,
		Type:       string(price.Type),
		Note:       price.Note,
		CreatedAt:  formatTime(price.CreatedAt),
		UpdatedAt:  formatTime(price.UpdatedAt),
	}
}

func writeCustomerError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrCustomerInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCustomerNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("customer_not_found", err.Error(), http.StatusNotFound))
	case errors.Is(err, services.ErrPriceRuleDuplicate):
		httpx.WriteError(ctx, w, httpx.NewError("price_rule_duplicate", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrCustomerConflict):
		httpx.WriteError(ctx, w, httpx.NewError("customer_conflict", err.Error(), http.StatusConflict))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("customer_error", "failed to process customer request", http.StatusInternalServerError))
	}
}
