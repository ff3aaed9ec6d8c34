package repositories

import (
	"context"
	"time"

	domain "github.com/mixdispatch/api/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Materials() MaterialRepository
	Recipes() RecipeRepository
	Defaults() DefaultsRepository
	Customers() CustomerRepository
	Sites() SiteRepository
	Contracts() ContractRepository
	Prices() PriceRepository
	TransportTypes() TransportTypeRepository
	TransportZones() TransportZoneRepository
	Drivers() DriverRepository
	Cars() CarRepository
	Pumps() PumpRepository
	CompanySurcharges() CompanySurchargeRepository
	PumpSurcharges() PumpSurchargeRepository
	Orders() OrderRepository
	PumpOrders() PumpOrderRepository
	StockMovements() StockMovementRepository
	Settings() SettingsRepository
	Counters() CounterRepository
	Health() HealthRepository
	UnitOfWork
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// UnitOfWork allows grouping repository operations in a transactional boundary when supported.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// MaterialRepository persists raw ingredients and their stock levels.
type MaterialRepository interface {
	Insert(ctx context.Context, material domain.Material) error
	Update(ctx context.Context, material domain.Material) error
	FindByID(ctx context.Context, materialID string) (domain.Material, error)
	FindByName(ctx context.Context, name string) (domain.Material, error)
	List(ctx context.Context, filter MaterialListFilter) ([]domain.Material, error)
	AdjustStock(ctx context.Context, materialID string, delta float64) (domain.Material, error)
}

// MaterialListFilter narrows material listings.
type MaterialListFilter struct {
	Type          *domain.MaterialType
	IncludeHidden bool
}

// RecipeRepository persists concrete formulas and their material lists.
type RecipeRepository interface {
	Insert(ctx context.Context, recipe domain.Recipe, materials []domain.RecipeMaterial) error
	Update(ctx context.Context, recipe domain.Recipe) error
	ReplaceMaterials(ctx context.Context, recipeID string, materials []domain.RecipeMaterial) error
	FindByID(ctx context.Context, recipeID string) (domain.Recipe, error)
	FindByName(ctx context.Context, name string) (domain.Recipe, error)
	ListMaterials(ctx context.Context, recipeID string) ([]domain.RecipeMaterial, error)
	List(ctx context.Context, filter RecipeListFilter) ([]domain.Recipe, error)
}

// RecipeListFilter narrows recipe listings.
type RecipeListFilter struct {
	RecipeClass   *string
	IncludeHidden bool
}

// DefaultsRepository persists recipe timing templates.
type DefaultsRepository interface {
	Insert(ctx context.Context, defaults domain.Defaults) error
	Update(ctx context.Context, defaults domain.Defaults) error
	FindByID(ctx context.Context, defaultsID string) (domain.Defaults, error)
	List(ctx context.Context) ([]domain.Defaults, error)
}

// CustomerRepository persists billable parties.
type CustomerRepository interface {
	Insert(ctx context.Context, customer domain.Customer) error
	Update(ctx context.Context, customer domain.Customer) error
	FindByID(ctx context.Context, customerID string) (domain.Customer, error)
	List(ctx context.Context, filter CustomerListFilter) ([]domain.Customer, error)
}

// CustomerListFilter narrows customer listings.
type CustomerListFilter struct {
	NamePrefix    *string
	IncludeHidden bool
}

// SiteRepository persists construction sites.
type SiteRepository interface {
	Insert(ctx context.Context, site domain.ConstructionSite) error
	Update(ctx context.Context, site domain.ConstructionSite) error
	FindByID(ctx context.Context, siteID string) (domain.ConstructionSite, error)
	ListByCustomer(ctx context.Context, customerID string) ([]domain.ConstructionSite, error)
	List(ctx context.Context, includeHidden bool) ([]domain.ConstructionSite, error)
}

// ContractRepository persists repeat-order contracts.
type ContractRepository interface {
	Insert(ctx context.Context, contract domain.Contract) error
	Update(ctx context.Context, contract domain.Contract) error
	Delete(ctx context.Context, contractID string) error
	FindByID(ctx context.Context, contractID string) (domain.Contract, error)
	ListByCustomer(ctx context.Context, customerID string) ([]domain.Contract, error)
}

// PriceRepository persists discount rules. Scope lookups return rules
// ordered by ID so ties resolve deterministically.
type PriceRepository interface {
	Insert(ctx context.Context, price domain.Price) error
	Update(ctx context.Context, price domain.Price) error
	Delete(ctx context.Context, priceID string) error
	FindByID(ctx context.Context, priceID string) (domain.Price, error)
	FindByScope(ctx context.Context, scope PriceScope) ([]domain.Price, error)
	ListByCustomer(ctx context.Context, customerID string) ([]domain.Price, error)
}

// PriceScope identifies one precedence tier of the best-price lookup. Nil
// fields must be absent on the stored rule, not wildcards.
type PriceScope struct {
	CustomerID string
	RecipeID   *string
	SiteID     *string
}

// TransportTypeRepository persists vehicle transport categories.
type TransportTypeRepository interface {
	Insert(ctx context.Context, transportType domain.TransportType) error
	Update(ctx context.Context, transportType domain.TransportType) error
	Delete(ctx context.Context, transportTypeID string) error
	FindByID(ctx context.Context, transportTypeID string) (domain.TransportType, error)
	List(ctx context.Context) ([]domain.TransportType, error)
}

// TransportZoneRepository persists distance-range transport pricing rules.
// List returns zones in a stable order (by ID).
type TransportZoneRepository interface {
	Insert(ctx context.Context, zone domain.TransportZone) error
	Update(ctx context.Context, zone domain.TransportZone) error
	Delete(ctx context.Context, zoneID string) error
	FindByID(ctx context.Context, zoneID string) (domain.TransportZone, error)
	List(ctx context.Context) ([]domain.TransportZone, error)
}

// DriverRepository persists vehicle operators.
type DriverRepository interface {
	Insert(ctx context.Context, driver domain.Driver) error
	Update(ctx context.Context, driver domain.Driver) error
	FindByID(ctx context.Context, driverID string) (domain.Driver, error)
	List(ctx context.Context, includeHidden bool) ([]domain.Driver, error)
}

// CarRepository persists mixer trucks. Registration numbers are unique
// across cars and pumps.
type CarRepository interface {
	Insert(ctx context.Context, car domain.Car) error
	Update(ctx context.Context, car domain.Car) error
	FindByID(ctx context.Context, carID string) (domain.Car, error)
	FindByRegistration(ctx context.Context, registration string) (domain.Car, error)
	List(ctx context.Context, includeHidden bool) ([]domain.Car, error)
}

// PumpRepository persists concrete pumps.
type PumpRepository interface {
	Insert(ctx context.Context, pump domain.Pump) error
	Update(ctx context.Context, pump domain.Pump) error
	FindByID(ctx context.Context, pumpID string) (domain.Pump, error)
	FindByRegistration(ctx context.Context, registration string) (domain.Pump, error)
	List(ctx context.Context, includeHidden bool) ([]domain.Pump, error)
}

// CompanySurchargeRepository persists facility-wide surcharge definitions.
type CompanySurchargeRepository interface {
	Insert(ctx context.Context, surcharge domain.CompanySurcharge) error
	Update(ctx context.Context, surcharge domain.CompanySurcharge) error
	Delete(ctx context.Context, surchargeID string) error
	FindByID(ctx context.Context, surchargeID string) (domain.CompanySurcharge, error)
	List(ctx context.Context) ([]domain.CompanySurcharge, error)
}

// PumpSurchargeRepository persists pump surcharge definitions.
type PumpSurchargeRepository interface {
	Insert(ctx context.Context, surcharge domain.PumpSurcharge) error
	Update(ctx context.Context, surcharge domain.PumpSurcharge) error
	Delete(ctx context.Context, surchargeID string) error
	FindByID(ctx context.Context, surchargeID string) (domain.PumpSurcharge, error)
	List(ctx context.Context) ([]domain.PumpSurcharge, error)
}

// OrderRepository persists orders and their owned child records. Children
// are cascade-deleted with the order.
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) error
	Update(ctx context.Context, order domain.Order) error
	UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus, updatedAt time.Time) error
	SetHidden(ctx context.Context, orderID string, hidden bool, updatedAt time.Time) error
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	List(ctx context.Context, filter OrderListFilter) ([]domain.Order, error)
	ReplaceSurcharges(ctx context.Context, orderID string, items []domain.SurchargeItem, updatedAt time.Time) error

	AppendDelivery(ctx context.Context, delivery domain.Delivery) error
	ListDeliveries(ctx context.Context, orderID string) ([]domain.Delivery, error)
	AppendBatch(ctx context.Context, batch domain.Batch) error
	ListBatches(ctx context.Context, orderID string) ([]domain.Batch, error)
	ReplaceOrderMaterials(ctx context.Context, orderID string, materials []domain.OrderMaterial) error
	ListOrderMaterials(ctx context.Context, orderID string) ([]domain.OrderMaterial, error)
}

// OrderListFilter narrows order listings.
type OrderListFilter struct {
	Status        *domain.OrderStatus
	CustomerID    *string
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
	IncludeHidden bool
	Limit         int
}

// PumpOrderRepository persists pump orders and their surcharge lines.
type PumpOrderRepository interface {
	Insert(ctx context.Context, order domain.PumpOrder) error
	Update(ctx context.Context, order domain.PumpOrder) error
	UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus, updatedAt time.Time) error
	FindByID(ctx context.Context, orderID string) (domain.PumpOrder, error)
	List(ctx context.Context, filter OrderListFilter) ([]domain.PumpOrder, error)
	ReplaceSurcharges(ctx context.Context, orderID string, items []domain.SurchargeItem, updatedAt time.Time) error
}

// StockMovementRepository records signed stock changes per material.
type StockMovementRepository interface {
	Append(ctx context.Context, movement domain.StockMovement) error
	ListByMaterial(ctx context.Context, materialID string, limit int) ([]domain.StockMovement, error)
}

// SettingsRepository persists the facility settings singleton.
type SettingsRepository interface {
	Get(ctx context.Context) (domain.FacilitySettings, error)
	Save(ctx context.Context, settings domain.FacilitySettings) error
}

// CounterRepository yields monotonically increasing sequence values used
// for order numbering.
type CounterRepository interface {
	Next(ctx context.Context, name string, step int64) (int64, error)
	Configure(ctx context.Context, name string, cfg CounterConfig) error
}

// CounterConfig adjusts counter behaviour.
type CounterConfig struct {
	Start    *int64
	Step     *int64
	MaxValue *int64
}

// HealthRepository answers readiness probes against the record store and
// other runtime dependencies.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}
