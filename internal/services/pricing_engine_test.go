package services

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	domain "github.com/mixdispatch/api/internal/domain"
	"github.com/mixdispatch/api/internal/repositories"
)

// repoFailure is a categorised repository error for stubbing.
type repoFailure struct {
	notFound    bool
	conflict    bool
	unavailable bool
	msg         string
}

func (e repoFailure) Error() string       { return e.msg }
func (e repoFailure) IsNotFound() bool    { return e.notFound }
func (e repoFailure) IsConflict() bool    { return e.conflict }
func (e repoFailure) IsUnavailable() bool { return e.unavailable }

func notFoundErr(msg string) error { return repoFailure{notFound: true, msg: msg} }

func eqStrPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

type stubPriceRepo struct {
	findByScopeFn func(context.Context, repositories.PriceScope) ([]domain.Price, error)
	findFn        func(context.Context, string) (domain.Price, error)
	insertFn      func(context.Context, domain.Price) error
	updateFn      func(context.Context, domain.Price) error
	deleteFn      func(context.Context, string) error
}

func (s *stubPriceRepo) Insert(ctx context.Context, price domain.Price) error {
	if s.insertFn != nil {
		return s.insertFn(ctx, price)
	}
	return nil
}

func (s *stubPriceRepo) Update(ctx context.Context, price domain.Price) error {
	if s.updateFn != nil {
		return s.updateFn(ctx, price)
	}
	return nil
}

func (s *stubPriceRepo) Delete(ctx context.Context, priceID string) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, priceID)
	}
	return nil
}

func (s *stubPriceRepo) FindByID(ctx context.Context, priceID string) (domain.Price, error) {
	if s.findFn != nil {
		return s.findFn(ctx, priceID)
	}
	return domain.Price{}, notFoundErr("price not found")
}

func (s *stubPriceRepo) FindByScope(ctx context.Context, scope repositories.PriceScope) ([]domain.Price, error) {
	if s.findByScopeFn != nil {
		return s.findByScopeFn(ctx, scope)
	}
	return nil, nil
}

func (s *stubPriceRepo) ListByCustomer(context.Context, string) ([]domain.Price, error) {
	return nil, nil
}

// scopedRules returns a FindByScope stub matching stored rules exactly,
// including absent optional fields.
func scopedRules(rules []domain.Price) func(context.Context, repositories.PriceScope) ([]domain.Price, error) {
	return func(_ context.Context, scope repositories.PriceScope) ([]domain.Price, error) {
		var out []domain.Price
		for _, rule := range rules {
			if rule.CustomerID == scope.CustomerID &&
				eqStrPtr(rule.RecipeID, scope.RecipeID) &&
				eqStrPtr(rule.SiteID, scope.SiteID) {
				out = append(out, rule)
			}
		}
		return out, nil
	}
}

type stubRecipeRepo struct {
	findFn             func(context.Context, string) (domain.Recipe, error)
	insertFn           func(context.Context, domain.Recipe, []domain.RecipeMaterial) error
	updateFn           func(context.Context, domain.Recipe) error
	replaceMaterialsFn func(context.Context, string, []domain.RecipeMaterial) error
	listMaterialsFn    func(context.Context, string) ([]domain.RecipeMaterial, error)
	listFn             func(context.Context, repositories.RecipeListFilter) ([]domain.Recipe, error)
}

func (s *stubRecipeRepo) Insert(ctx context.Context, recipe domain.Recipe, materials []domain.RecipeMaterial) error {
	if s.insertFn != nil {
		return s.insertFn(ctx, recipe, materials)
	}
	return nil
}

func (s *stubRecipeRepo) Update(ctx context.Context, recipe domain.Recipe) error {
	if s.updateFn != nil {
		return s.updateFn(ctx, recipe)
	}
	return nil
}

func (s *stubRecipeRepo) ReplaceMaterials(ctx context.Context, recipeID string, materials []domain.RecipeMaterial) error {
	if s.replaceMaterialsFn != nil {
		return s.replaceMaterialsFn(ctx, recipeID, materials)
	}
	return nil
}

func (s *stubRecipeRepo) FindByID(ctx context.Context, recipeID string) (domain.Recipe, error) {
	if s.findFn != nil {
		return s.findFn(ctx, recipeID)
	}
	return domain.Recipe{}, notFoundErr("recipe not found")
}

func (s *stubRecipeRepo) FindByName(context.Context, string) (domain.Recipe, error) {
	return domain.Recipe{}, notFoundErr("recipe not found")
}

func (s *stubRecipeRepo) ListMaterials(ctx context.Context, recipeID string) ([]domain.RecipeMaterial, error) {
	if s.listMaterialsFn != nil {
		return s.listMaterialsFn(ctx, recipeID)
	}
	return nil, nil
}

func (s *stubRecipeRepo) List(ctx context.Context, filter repositories.RecipeListFilter) ([]domain.Recipe, error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return nil, nil
}

type stubSiteRepo struct {
	findFn           func(context.Context, string) (domain.ConstructionSite, error)
	insertFn         func(context.Context, domain.ConstructionSite) error
	updateFn         func(context.Context, domain.ConstructionSite) error
	listByCustomerFn func(context.Context, string) ([]domain.ConstructionSite, error)
}

func (s *stubSiteRepo) Insert(ctx context.Context, site domain.ConstructionSite) error {
	if s.insertFn != nil {
		return s.insertFn(ctx, site)
	}
	return nil
}

func (s *stubSiteRepo) Update(ctx context.Context, site domain.ConstructionSite) error {
	if s.updateFn != nil {
		return s.updateFn(ctx, site)
	}
	return nil
}

func (s *stubSiteRepo) FindByID(ctx context.Context, siteID string) (domain.ConstructionSite, error) {
	if s.findFn != nil {
		return s.findFn(ctx, siteID)
	}
	return domain.ConstructionSite{}, notFoundErr("site not found")
}

func (s *stubSiteRepo) ListByCustomer(ctx context.Context, customerID string) ([]domain.ConstructionSite, error) {
	if s.listByCustomerFn != nil {
		return s.listByCustomerFn(ctx, customerID)
	}
	return nil, nil
}

func (s *stubSiteRepo) List(context.Context, bool) ([]domain.ConstructionSite, error) {
	return nil, nil
}

type stubOrderRepo struct {
	insertFn                func(context.Context, domain.Order) error
	updateFn                func(context.Context, domain.Order) error
	updateStatusFn          func(context.Context, string, domain.OrderStatus, time.Time) error
	setHiddenFn             func(context.Context, string, bool, time.Time) error
	findFn                  func(context.Context, string) (domain.Order, error)
	listFn                  func(context.Context, repositories.OrderListFilter) ([]domain.Order, error)
	replaceSurchargesFn     func(context.Context, string, []domain.SurchargeItem, time.Time) error
	appendDeliveryFn        func(context.Context, domain.Delivery) error
	listDeliveriesFn        func(context.Context, string) ([]domain.Delivery, error)
	appendBatchFn           func(context.Context, domain.Batch) error
	listBatchesFn           func(context.Context, string) ([]domain.Batch, error)
	replaceOrderMaterialsFn func(context.Context, string, []domain.OrderMaterial) error
	listOrderMaterialsFn    func(context.Context, string) ([]domain.OrderMaterial, error)
}

func (s *stubOrderRepo) Insert(ctx context.Context, order domain.Order) error {
	if s.insertFn != nil {
		return s.insertFn(ctx, order)
	}
	return nil
}

func (s *stubOrderRepo) Update(ctx context.Context, order domain.Order) error {
	if s.updateFn != nil {
		return s.updateFn(ctx, order)
	}
	return nil
}

func (s *stubOrderRepo) UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus, updatedAt time.Time) error {
	if s.updateStatusFn != nil {
		return s.updateStatusFn(ctx, orderID, status, updatedAt)
	}
	return nil
}

func (s *stubOrderRepo) SetHidden(ctx context.Context, orderID string, hidden bool, updatedAt time.Time) error {
	if s.setHiddenFn != nil {
		return s.setHiddenFn(ctx, orderID, hidden, updatedAt)
	}
	return nil
}

func (s *stubOrderRepo) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if s.findFn != nil {
		return s.findFn(ctx, orderID)
	}
	return domain.Order{}, notFoundErr("order not found")
}

func (s *stubOrderRepo) List(ctx context.Context, filter repositories.OrderListFilter) ([]domain.Order, error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return nil, nil
}

func (s *stubOrderRepo) ReplaceSurcharges(ctx context.Context, orderID string, items []domain.SurchargeItem, updatedAt time.Time) error {
	if s.replaceSurchargesFn != nil {
		return s.replaceSurchargesFn(ctx, orderID, items, updatedAt)
	}
	return nil
}

func (s *stubOrderRepo) AppendDelivery(ctx context.Context, delivery domain.Delivery) error {
	if s.appendDeliveryFn != nil {
		return s.appendDeliveryFn(ctx, delivery)
	}
	return nil
}

func (s *stubOrderRepo) ListDeliveries(ctx context.Context, orderID string) ([]domain.Delivery, error) {
	if s.listDeliveriesFn != nil {
		return s.listDeliveriesFn(ctx, orderID)
	}
	return nil, nil
}

func (s *stubOrderRepo) AppendBatch(ctx context.Context, batch domain.Batch) error {
	if s.appendBatchFn != nil {
		return s.appendBatchFn(ctx, batch)
	}
	return nil
}

func (s *stubOrderRepo) ListBatches(ctx context.Context, orderID string) ([]domain.Batch, error) {
	if s.listBatchesFn != nil {
		return s.listBatchesFn(ctx, orderID)
	}
	return nil, nil
}

func (s *stubOrderRepo) ReplaceOrderMaterials(ctx context.Context, orderID string, materials []domain.OrderMaterial) error {
	if s.replaceOrderMaterialsFn != nil {
		return s.replaceOrderMaterialsFn(ctx, orderID, materials)
	}
	return nil
}

func (s *stubOrderRepo) ListOrderMaterials(ctx context.Context, orderID string) ([]domain.OrderMaterial, error) {
	if s.listOrderMaterialsFn != nil {
		return s.listOrderMaterialsFn(ctx, orderID)
	}
	return nil, nil
}

type stubPumpOrderRepo struct {
	insertFn            func(context.Context, domain.PumpOrder) error
	updateFn            func(context.Context, domain.PumpOrder) error
	updateStatusFn      func(context.Context, string, domain.OrderStatus, time.Time) error
	findFn              func(context.Context, string) (domain.PumpOrder, error)
	listFn              func(context.Context, repositories.OrderListFilter) ([]domain.PumpOrder, error)
	replaceSurchargesFn func(context.Context, string, []domain.SurchargeItem, time.Time) error
}

func (s *stubPumpOrderRepo) Insert(ctx context.Context, order domain.PumpOrder) error {
	if s.insertFn != nil {
		return s.insertFn(ctx, order)
	}
	return nil
}

func (s *stubPumpOrderRepo) Update(ctx context.Context, order domain.PumpOrder) error {
	if s.updateFn != nil {
		return s.updateFn(ctx, order)
	}
	return nil
}

func (s *stubPumpOrderRepo) UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus, updatedAt time.Time) error {
	if s.updateStatusFn != nil {
		return s.updateStatusFn(ctx, orderID, status, updatedAt)
	}
	return nil
}

func (s *stubPumpOrderRepo) FindByID(ctx context.Context, orderID string) (domain.PumpOrder, error) {
	if s.findFn != nil {
		return s.findFn(ctx, orderID)
	}
	return domain.PumpOrder{}, notFoundErr("pump order not found")
}

func (s *stubPumpOrderRepo) List(ctx context.Context, filter repositories.OrderListFilter) ([]domain.PumpOrder, error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return nil, nil
}

func (s *stubPumpOrderRepo) ReplaceSurcharges(ctx context.Context, orderID string, items []domain.SurchargeItem, updatedAt time.Time) error {
	if s.replaceSurchargesFn != nil {
		return s.replaceSurchargesFn(ctx, orderID, items, updatedAt)
	}
	return nil
}

type stubZoneRepo struct {
	listFn   func(context.Context) ([]domain.TransportZone, error)
	findFn   func(context.Context, string) (domain.TransportZone, error)
	insertFn func(context.Context, domain.TransportZone) error
	updateFn func(context.Context, domain.TransportZone) error
	deleteFn func(context.Context, string) error
}

func (s *stubZoneRepo) Insert(ctx context.Context, zone domain.TransportZone) error {
	if s.insertFn != nil {
		return s.insertFn(ctx, zone)
	}
	return nil
}

func (s *stubZoneRepo) Update(ctx context.Context, zone domain.TransportZone) error {
	if s.updateFn != nil {
		return s.updateFn(ctx, zone)
	}
	return nil
}

func (s *stubZoneRepo) Delete(ctx context.Context, zoneID string) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, zoneID)
	}
	return nil
}

func (s *stubZoneRepo) FindByID(ctx context.Context, zoneID string) (domain.TransportZone, error) {
	if s.findFn != nil {
		return s.findFn(ctx, zoneID)
	}
	return domain.TransportZone{}, notFoundErr("zone not found")
}

func (s *stubZoneRepo) List(ctx context.Context) ([]domain.TransportZone, error) {
	if s.listFn != nil {
		return s.listFn(ctx)
	}
	return nil, nil
}

type stubTransportTypeRepo struct {
	findFn   func(context.Context, string) (domain.TransportType, error)
	listFn   func(context.Context) ([]domain.TransportType, error)
	insertFn func(context.Context, domain.TransportType) error
	deleteFn func(context.Context, string) error
}

func (s *stubTransportTypeRepo) Insert(ctx context.Context, transportType domain.TransportType) error {
	if s.insertFn != nil {
		return s.insertFn(ctx, transportType)
	}
	return nil
}

func (s *stubTransportTypeRepo) Update(context.Context, domain.TransportType) error {
	return nil
}

func (s *stubTransportTypeRepo) Delete(ctx context.Context, transportTypeID string) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, transportTypeID)
	}
	return nil
}

func (s *stubTransportTypeRepo) FindByID(ctx context.Context, transportTypeID string) (domain.TransportType, error) {
	if s.findFn != nil {
		return s.findFn(ctx, transportTypeID)
	}
	return domain.TransportType{}, notFoundErr("transport type not found")
}

func (s *stubTransportTypeRepo) List(ctx context.Context) ([]domain.TransportType, error) {
	if s.listFn != nil {
		return s.listFn(ctx)
	}
	return nil, nil
}

type stubSettingsRepo struct {
	getFn  func(context.Context) (domain.FacilitySettings, error)
	saveFn func(context.Context, domain.FacilitySettings) error
}

func (s *stubSettingsRepo) Get(ctx context.Context) (domain.FacilitySettings, error) {
	if s.getFn != nil {
		return s.getFn(ctx)
	}
	return domain.FacilitySettings{}, nil
}

func (s *stubSettingsRepo) Save(ctx context.Context, settings domain.FacilitySettings) error {
	if s.saveFn != nil {
		return s.saveFn(ctx, settings)
	}
	return nil
}

func newTestPricingService(t *testing.T, deps PricingServiceDeps) PricingService {
	t.Helper()
	if deps.Prices == nil {
		deps.Prices = &stubPriceRepo{}
	}
	if deps.Recipes == nil {
		deps.Recipes = &stubRecipeRepo{}
	}
	if deps.Sites == nil {
		deps.Sites = &stubSiteRepo{}
	}
	if deps.Orders == nil {
		deps.Orders = &stubOrderRepo{}
	}
	if deps.PumpOrders == nil {
		deps.PumpOrders = &stubPumpOrderRepo{}
	}
	if deps.Zones == nil {
		deps.Zones = &stubZoneRepo{}
	}
	if deps.Settings == nil {
		deps.Settings = &stubSettingsRepo{}
	}
	if deps.Transport == nil {
		transport, err := NewTransportService(TransportServiceDeps{
			Zones: deps.Zones,
			Types: &stubTransportTypeRepo{},
		})
		if err != nil {
			t.Fatalf("NewTransportService: %v", err)
		}
		deps.Transport = transport
	}
	svc, err := NewPricingService(deps)
	if err != nil {
		t.Fatalf("NewPricingService: %v", err)
	}
	return svc
}

func TestResolvePricePrecedence(t *testing.T) {
	ctx := context.Background()
	recipeID := "rcp_1"
	siteID := "sit_1"

	recipes := &stubRecipeRepo{
		findFn: func(_ context.Context, id string) (domain.Recipe, error) {
			if id != recipeID {
				return domain.Recipe{}, notFoundErr("recipe not found")
			}
			return domain.Recipe{ID: recipeID, Name: "C25/30", Price: valuePtr(1000.0)}, nil
		},
	}

	cases := []struct {
		name       string
		rules      []domain.Price
		wantAmount float64
		wantReason string
	}{
		{
			name: "site scoped rule wins over everything",
			rules: []domain.Price{
				{ID: "prc_site", CustomerID: "cus_1", RecipeID: &recipeID, SiteID: &siteID, Type: domain.PriceTypeAbsolute, Amount: 960},
				{ID: "prc_pair", CustomerID: "cus_1", RecipeID: &recipeID, Type: domain.PriceTypeAbsolute, Amount: 970},
				{ID: "prc_cust", CustomerID: "cus_1", Type: domain.PriceTypePercent, Amount: 50},
			},
			wantAmount: 960,
			wantReason: "special price defined for recipe, customer and construction site",
		},
		{
			name: "recipe and customer rule applies relative amount",
			rules: []domain.Price{
				{ID: "prc_pair", CustomerID: "cus_1", RecipeID: &recipeID, Type: domain.PriceTypeRelative, Amount: -50},
			},
			wantAmount: 950,
			wantReason: "special price defined for recipe and customer",
		},
		{
			name: "customer only percent rule reinterprets the base price",
			rules: []domain.Price{
				{ID: "prc_cust", CustomerID: "cus_1", Type: domain.PriceTypePercent, Amount: 50},
			},
			wantAmount: 500,
			wantReason: "customer price applied to recipe base price",
		},
		{
			name: "customer only relative percent shifts the base price",
			rules: []domain.Price{
				{ID: "prc_cust", CustomerID: "cus_1", Type: domain.PriceTypeRelativePercent, Amount: 20},
			},
			wantAmount: 1200,
			wantReason: "customer price applied to recipe base price",
		},
		{
			name:       "no rules falls back to the recipe base price",
			rules:      nil,
			wantAmount: 1000,
			wantReason: "recipe base price",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newTestPricingService(t, PricingServiceDeps{
				Prices:  &stubPriceRepo{findByScopeFn: scopedRules(tc.rules)},
				Recipes: recipes,
			})
			resolved, err := svc.ResolvePrice(ctx, ResolvePriceCommand{
				RecipeID:   recipeID,
				CustomerID: "cus_1",
				SiteID:     siteID,
			})
			if err != nil {
				t.Fatalf("ResolvePrice: %v", err)
			}
			if resolved.Amount == nil {
				t.Fatalf("resolved amount is nil, want %v", tc.wantAmount)
			}
			if math.Abs(*resolved.Amount-tc.wantAmount) > 1e-9 {
				t.Fatalf("amount = %v, want %v", *resolved.Amount, tc.wantAmount)
			}
			if resolved.Reason != tc.wantReason {
				t.Fatalf("reason = %q, want %q", resolved.Reason, tc.wantReason)
			}
		})
	}
}

func TestResolvePriceRequiresCustomerOrRecipe(t *testing.T) {
	svc := newTestPricingService(t, PricingServiceDeps{})
	_, err := svc.ResolvePrice(context.Background(), ResolvePriceCommand{})
	if !errors.Is(err, ErrPricingMissingInput) {
		t.Fatalf("err = %v, want ErrPricingMissingInput", err)
	}
}

func TestResolvePriceRecipeWithoutBasePrice(t *testing.T) {
	ctx := context.Background()
	recipes := &stubRecipeRepo{
		findFn: func(context.Context, string) (domain.Recipe, error) {
			return domain.Recipe{ID: "rcp_1", Name: "unpriced"}, nil
		},
	}

	// A percent rule cannot apply without a base price, so the tier is
	// skipped and the price stays unknown.
	svc := newTestPricingService(t, PricingServiceDeps{
		Recipes: recipes,
		Prices: &stubPriceRepo{findByScopeFn: scopedRules([]domain.Price{
			{ID: "prc_cust", CustomerID: "cus_1", Type: domain.PriceTypePercent, Amount: 50},
		})},
	})
	resolved, err := svc.ResolvePrice(ctx, ResolvePriceCommand{RecipeID: "rcp_1", CustomerID: "cus_1"})
	if err != nil {
		t.Fatalf("ResolvePrice: %v", err)
	}
	if resolved.Amount != nil {
		t.Fatalf("amount = %v, want nil", *resolved.Amount)
	}
	if resolved.Reason != "no price available" {
		t.Fatalf("reason = %q, want %q", resolved.Reason, "no price available")
	}
}

func TestPriceOrderZonePerM3AppliesMinimalVolume(t *testing.T) {
	ctx := context.Background()
	siteID := "sit_1"

	orders := &stubOrderRepo{
		findFn: func(context.Context, string) (domain.Order, error) {
			return domain.Order{
				ID:     "ord_1",
				Volume: 6,
				SiteID: &siteID,
				Recipe: domain.RecipeSnapshot{Name: "C25/30", Price: valuePtr(100.0)},
			}, nil
		},
	}
	sites := &stubSiteRepo{
		findFn: func(context.Context, string) (domain.ConstructionSite, error) {
			return domain.ConstructionSite{ID: siteID, Distance: valuePtr(5.0)}, nil
		},
	}
	zones := &stubZoneRepo{
		listFn: func(context.Context) ([]domain.TransportZone, error) {
			return []domain.TransportZone{{
				ID:            "tz_1",
				DistanceKmMin: 0,
				DistanceKmMax: 10,
				MinInclusive:  true,
				MaxInclusive:  true,
				Price:         200,
				PriceIsPerM3:  true,
				MinimalVolume: valuePtr(10.0),
			}}, nil
		},
	}
	settings := &stubSettingsRepo{
		getFn: func(context.Context) (domain.FacilitySettings, error) {
			return domain.FacilitySettings{TransportZonesEnabled: true}, nil
		},
	}

	svc := newTestPricingService(t, PricingServiceDeps{
		Orders:   orders,
		Sites:    sites,
		Zones:    zones,
		Settings: settings,
	})
	pricing, err := svc.PriceOrder(ctx, PriceOrderCommand{OrderID: "ord_1"})
	if err != nil {
		t.Fatalf("PriceOrder: %v", err)
	}
	if pricing.PriceConcrete == nil || *pricing.PriceConcrete != 600 {
		t.Fatalf("PriceConcrete = %v, want 600", pricing.PriceConcrete)
	}
	// 6 m3 ordered but the zone bills at least 10 m3.
	if pricing.PriceTransport == nil || *pricing.PriceTransport != 2000 {
		t.Fatalf("PriceTransport = %v, want 2000", pricing.PriceTransport)
	}
	if pricing.Total != 2600 {
		t.Fatalf("Total = %v, want 2600", pricing.Total)
	}
}

func TestPriceOrderDistanceBilling(t *testing.T) {
	ctx := context.Background()
	siteID := "sit_1"

	orders := &stubOrderRepo{
		findFn: func(context.Context, string) (domain.Order, error) {
			return domain.Order{
				ID:                 "ord_1",
				Volume:             8,
				SiteID:             &siteID,
				PricePerKmOverride: valuePtr(5.0),
			}, nil
		},
	}
	sites := &stubSiteRepo{
		findFn: func(context.Context, string) (domain.ConstructionSite, error) {
			return domain.ConstructionSite{ID: siteID, Distance: valuePtr(12.0)}, nil
		},
	}
	settings := &stubSettingsRepo{
		getFn: func(context.Context) (domain.FacilitySettings, error) {
			return domain.FacilitySettings{CountDistanceDoubled: true}, nil
		},
	}

	svc := newTestPricingService(t, PricingServiceDeps{
		Orders:   orders,
		Sites:    sites,
		Settings: settings,
	})
	pricing, err := svc.PriceOrder(ctx, PriceOrderCommand{OrderID: "ord_1"})
	if err != nil {
		t.Fatalf("PriceOrder: %v", err)
	}
	if pricing.DistanceDriven == nil || *pricing.DistanceDriven != 24 {
		t.Fatalf("DistanceDriven = %v, want 24", pricing.DistanceDriven)
	}
	if pricing.PriceTransport == nil || *pricing.PriceTransport != 120 {
		t.Fatalf("PriceTransport = %v, want 120", pricing.PriceTransport)
	}
}

func TestPriceOrderUsesFirstDeliveryRate(t *testing.T) {
	ctx := context.Background()
	siteID := "sit_1"

	orders := &stubOrderRepo{
		findFn: func(context.Context, string) (domain.Order, error) {
			return domain.Order{ID: "ord_1", Volume: 8, SiteID: &siteID}, nil
		},
		listDeliveriesFn: func(context.Context, string) ([]domain.Delivery, error) {
			return []domain.Delivery{
				{ID: "dlv_1", Car: domain.CarSnapshot{PricePerKm: valuePtr(4.0)}},
				{ID: "dlv_2", Car: domain.CarSnapshot{PricePerKm: valuePtr(9.0)}},
			}, nil
		},
	}
	sites := &stubSiteRepo{
		findFn: func(context.Context, string) (domain.ConstructionSite, error) {
			return domain.ConstructionSite{ID: siteID, Distance: valuePtr(10.0)}, nil
		},
	}

	svc := newTestPricingService(t, PricingServiceDeps{Orders: orders, Sites: sites})
	pricing, err := svc.PriceOrder(ctx, PriceOrderCommand{OrderID: "ord_1"})
	if err != nil {
		t.Fatalf("PriceOrder: %v", err)
	}
	if pricing.PriceTransport == nil || *pricing.PriceTransport != 40 {
		t.Fatalf("PriceTransport = %v, want 40 from the first delivery", pricing.PriceTransport)
	}
}

func TestPriceOrderTransportOverrides(t *testing.T) {
	ctx := context.Background()

	t.Run("without transport forces zero", func(t *testing.T) {
		orders := &stubOrderRepo{
			findFn: func(context.Context, string) (domain.Order, error) {
				return domain.Order{ID: "ord_1", Volume: 5, WithoutTransport: true}, nil
			},
		}
		svc := newTestPricingService(t, PricingServiceDeps{Orders: orders})
		pricing, err := svc.PriceOrder(ctx, PriceOrderCommand{OrderID: "ord_1"})
		if err != nil {
			t.Fatalf("PriceOrder: %v", err)
		}
		if pricing.PriceTransport == nil || *pricing.PriceTransport != 0 {
			t.Fatalf("PriceTransport = %v, want explicit 0", pricing.PriceTransport)
		}
	})

	t.Run("manual transport price wins over the no-transport flag", func(t *testing.T) {
		orders := &stubOrderRepo{
			findFn: func(context.Context, string) (domain.Order, error) {
				return domain.Order{
					ID:                     "ord_1",
					Volume:                 5,
					WithoutTransport:       true,
					PriceTransportOverride: valuePtr(500.0),
				}, nil
			},
		}
		svc := newTestPricingService(t, PricingServiceDeps{Orders: orders})
		pricing, err := svc.PriceOrder(ctx, PriceOrderCommand{OrderID: "ord_1"})
		if err != nil {
			t.Fatalf("PriceOrder: %v", err)
		}
		if pricing.PriceTransport == nil || *pricing.PriceTransport != 500 {
			t.Fatalf("PriceTransport = %v, want 500", pricing.PriceTransport)
		}
	})

	t.Run("zone override without a known distance leaves transport unknown", func(t *testing.T) {
		orders := &stubOrderRepo{
			findFn: func(context.Context, string) (domain.Order, error) {
				return domain.Order{
					ID:                    "ord_1",
					Volume:                5,
					TransportZoneOverride: valuePtr("tz_1"),
				}, nil
			},
		}
		zones := &stubZoneRepo{
			findFn: func(context.Context, string) (domain.TransportZone, error) {
				return domain.TransportZone{ID: "tz_1", Price: 300}, nil
			},
		}
		settings := &stubSettingsRepo{
			getFn: func(context.Context) (domain.FacilitySettings, error) {
				return domain.FacilitySettings{TransportZonesEnabled: true}, nil
			},
		}
		svc := newTestPricingService(t, PricingServiceDeps{Orders: orders, Zones: zones, Settings: settings})
		pricing, err := svc.PriceOrder(ctx, PriceOrderCommand{OrderID: "ord_1"})
		if err != nil {
			t.Fatalf("PriceOrder: %v", err)
		}
		if pricing.PriceTransport != nil {
			t.Fatalf("PriceTransport = %v, want nil", *pricing.PriceTransport)
		}
	})

	t.Run("explicit zero override is honored", func(t *testing.T) {
		orders := &stubOrderRepo{
			findFn: func(context.Context, string) (domain.Order, error) {
				return domain.Order{
					ID:                     "ord_1",
					Volume:                 5,
					PriceTransportOverride: valuePtr(0.0),
				}, nil
			},
		}
		settings := &stubSettingsRepo{
			getFn: func(context.Context) (domain.FacilitySettings, error) {
				return domain.FacilitySettings{TransportZonesEnabled: true}, nil
			},
		}
		svc := newTestPricingService(t, PricingServiceDeps{Orders: orders, Settings: settings})
		pricing, err := svc.PriceOrder(ctx, PriceOrderCommand{OrderID: "ord_1"})
		if err != nil {
			t.Fatalf("PriceOrder: %v", err)
		}
		if pricing.PriceTransport == nil || *pricing.PriceTransport != 0 {
			t.Fatalf("PriceTransport = %v, want explicit 0", pricing.PriceTransport)
		}
	})

	t.Run("missing inputs leave transport unknown", func(t *testing.T) {
		orders := &stubOrderRepo{
			findFn: func(context.Context, string) (domain.Order, error) {
				return domain.Order{ID: "ord_1", Volume: 5}, nil
			},
		}
		svc := newTestPricingService(t, PricingServiceDeps{Orders: orders})
		pricing, err := svc.PriceOrder(ctx, PriceOrderCommand{OrderID: "ord_1"})
		if err != nil {
			t.Fatalf("PriceOrder: %v", err)
		}
		if pricing.PriceTransport != nil {
			t.Fatalf("PriceTransport = %v, want nil", *pricing.PriceTransport)
		}
	})
}

func TestPriceOrderVATAndRounding(t *testing.T) {
	ctx := context.Background()
	orders := &stubOrderRepo{
		findFn: func(context.Context, string) (domain.Order, error) {
			return domain.Order{
				ID:                    "ord_1",
				Volume:                5,
				WithoutTransport:      true,
				PriceConcreteOverride: valuePtr(1000.40),
			}, nil
		},
	}
	settings := &stubSettingsRepo{
		getFn: func(context.Context) (domain.FacilitySettings, error) {
			return domain.FacilitySettings{VATRate: 21, RoundingPrecision: 0}, nil
		},
	}

	svc := newTestPricingService(t, PricingServiceDeps{Orders: orders, Settings: settings})
	pricing, err := svc.PriceOrder(ctx, PriceOrderCommand{OrderID: "ord_1"})
	if err != nil {
		t.Fatalf("PriceOrder: %v", err)
	}
	if math.Abs(pricing.TotalWithVAT-1210.484) > 1e-9 {
		t.Fatalf("TotalWithVAT = %v, want 1210.484", pricing.TotalWithVAT)
	}
	if math.Abs(pricing.RoundingCorrection-(-0.484)) > 1e-9 {
		t.Fatalf("RoundingCorrection = %v, want -0.484", pricing.RoundingCorrection)
	}
	if math.Abs(pricing.GrandTotal-1210) > 1e-9 {
		t.Fatalf("GrandTotal = %v, want 1210", pricing.GrandTotal)
	}
}

func TestPricePumpOrderBillsHoursAndSurcharges(t *testing.T) {
	ctx := context.Background()
	pumpOrders := &stubPumpOrderRepo{
		findFn: func(context.Context, string) (domain.PumpOrder, error) {
			return domain.PumpOrder{
				ID:    "pord_1",
				Hours: valuePtr(3.0),
				Pump:  domain.PumpSnapshot{PricePerHour: valuePtr(40.0)},
				Surcharges: []domain.SurchargeItem{
					{ID: "sur_1", Name: "setup", Type: domain.SurchargeTypeFixed, Price: 30},
					{ID: "sur_2", Name: "hose", Type: domain.SurchargeTypePerOtherUnit, Price: 10, Amount: valuePtr(2.0)},
					{ID: "sur_3", Name: "waiting", Type: domain.SurchargeTypePerOtherUnit, Price: 15},
				},
			}, nil
		},
	}

	svc := newTestPricingService(t, PricingServiceDeps{PumpOrders: pumpOrders})
	pricing, err := svc.PricePumpOrder(ctx, PricePumpOrderCommand{OrderID: "pord_1"})
	if err != nil {
		t.Fatalf("PricePumpOrder: %v", err)
	}
	if pricing.PriceWork == nil || *pricing.PriceWork != 120 {
		t.Fatalf("PriceWork = %v, want 120", pricing.PriceWork)
	}
	if pricing.PriceSurcharges == nil || *pricing.PriceSurcharges != 50 {
		t.Fatalf("PriceSurcharges = %v, want 50", pricing.PriceSurcharges)
	}
	// The amount-less per-other-unit line is reported, not summed.
	if len(pricing.SkippedSurcharges) != 1 || pricing.SkippedSurcharges[0] != "waiting" {
		t.Fatalf("SkippedSurcharges = %v, want [waiting]", pricing.SkippedSurcharges)
	}
	if pricing.Total != 170 {
		t.Fatalf("Total = %v, want 170", pricing.Total)
	}
}
