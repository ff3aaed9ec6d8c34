package services

import (
	"context"
	"time"

	domain "github.com/mixdispatch/api/internal/domain"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Pagination         = domain.Pagination
	SortOrder          = domain.SortOrder
	Material           = domain.Material
	MaterialType       = domain.MaterialType
	Recipe             = domain.Recipe
	RecipeMaterial     = domain.RecipeMaterial
	Defaults           = domain.Defaults
	Customer           = domain.Customer
	ConstructionSite   = domain.ConstructionSite
	Contract           = domain.Contract
	Price              = domain.Price
	PriceType          = domain.PriceType
	ResolvedPrice      = domain.ResolvedPrice
	TransportType      = domain.TransportType
	TransportZone      = domain.TransportZone
	RankedZone         = domain.RankedZone
	Driver             = domain.Driver
	Car                = domain.Car
	Pump               = domain.Pump
	CompanySurcharge   = domain.CompanySurcharge
	PumpSurcharge      = domain.PumpSurcharge
	SurchargeItem      = domain.SurchargeItem
	SurchargeType      = domain.SurchargeType
	Order              = domain.Order
	OrderStatus        = domain.OrderStatus
	OrderPricing       = domain.OrderPricing
	RecipeSnapshot     = domain.RecipeSnapshot
	Delivery           = domain.Delivery
	Batch              = domain.Batch
	BatchMaterial      = domain.BatchMaterial
	OrderMaterial      = domain.OrderMaterial
	StockMovement      = domain.StockMovement
	PumpOrder          = domain.PumpOrder
	PumpSnapshot       = domain.PumpSnapshot
	FacilitySettings   = domain.FacilitySettings
	SystemHealthReport = domain.SystemHealthReport
)

// PricingService resolves best prices and computes order price breakdowns.
// All operations are read-only against the record store.
type PricingService interface {
	ResolvePrice(ctx context.Context, cmd ResolvePriceCommand) (ResolvedPrice, error)
	PriceOrder(ctx context.Context, cmd PriceOrderCommand) (OrderPricing, error)
	PricePumpOrder(ctx context.Context, cmd PricePumpOrderCommand) (PumpOrderPricing, error)
}

// ResolvePriceCommand identifies the scope of a best-price lookup. Site is
// only meaningful together with a customer.
type ResolvePriceCommand struct {
	RecipeID   string
	CustomerID string
	SiteID     string
}

// PriceOrderCommand requests a full price breakdown for a stored order.
type PriceOrderCommand struct {
	OrderID string
}

// PricePumpOrderCommand requests a price breakdown for a pump order.
type PricePumpOrderCommand struct {
	OrderID string
}

// PumpOrderPricing is the computed price breakdown of a pump order.
type PumpOrderPricing struct {
	PriceWork          *float64
	PriceSurcharges    *float64
	SkippedSurcharges  []string
	Total              float64
	TotalWithVAT       float64
	RoundingCorrection float64
	GrandTotal         float64
}

// TransportService manages transport zones and matches them against
// delivery distances.
type TransportService interface {
	MatchZones(ctx context.Context, query MatchZonesQuery) ([]RankedZone, error)
	ListZones(ctx context.Context) ([]TransportZone, error)
	CreateZone(ctx context.Context, cmd UpsertZoneCommand) (TransportZone, error)
	UpdateZone(ctx context.Context, zoneID string, cmd UpsertZoneCommand) (TransportZone, error)
	DeleteZone(ctx context.Context, zoneID string) error
	ListTransportTypes(ctx context.Context) ([]TransportType, error)
	CreateTransportType(ctx context.Context, name string) (TransportType, error)
	DeleteTransportType(ctx context.Context, transportTypeID string) error
}

// MatchZonesQuery carries the distance and optional vehicle scope of a zone
// lookup.
type MatchZonesQuery struct {
	Distance        float64
	TransportTypeID *string
}

// UpsertZoneCommand carries the writable fields of a transport zone.
type UpsertZoneCommand struct {
	Name            string
	DistanceKmMin   float64
	DistanceKmMax   float64
	MinInclusive    bool
	MaxInclusive    bool
	Price           float64
	PriceIsPerM3    bool
	MinimalVolume   *float64
	TransportTypeID *string
}

// OrderService owns the order lifecycle: creation with snapshots, status
// transitions, surcharge replacement, deliveries and production records.
type OrderService interface {
	CreateOrder(ctx context.Context, cmd CreateOrderCommand) (Order, error)
	GetOrder(ctx context.Context, orderID string, opts OrderReadOptions) (OrderDetail, error)
	ListOrders(ctx context.Context, filter OrderListFilter) ([]Order, error)
	TransitionStatus(ctx context.Context, cmd OrderStatusTransitionCommand) (Order, error)
	UpdateOverrides(ctx context.Context, cmd UpdateOrderOverridesCommand) (Order, error)
	ReplaceSurcharges(ctx context.Context, cmd ReplaceOrderSurchargesCommand) (Order, error)
	RecordDelivery(ctx context.Context, cmd RecordDeliveryCommand) (Delivery, error)
	RecordBatch(ctx context.Context, cmd RecordBatchCommand) (Batch, error)
	ArchiveOrder(ctx context.Context, orderID string) error
}

// CreateOrderCommand carries everything needed to dispatch a new order.
type CreateOrderCommand struct {
	RecipeID   string
	CustomerID string
	SiteID     string
	ContractID string
	Volume     float64
	Comment    string

	WithoutTransport bool

	PriceConcreteOverride   *float64
	PriceTransportOverride  *float64
	PriceSurchargesOverride *float64
	DistanceDrivenOverride  *float64
	PricePerKmOverride      *float64
	TransportZoneOverride   *string

	SurchargeIDs []string
}

// OrderReadOptions toggles loading of owned child records.
type OrderReadOptions struct {
	IncludeDeliveries bool
	IncludeBatches    bool
	IncludeMaterials  bool
}

// OrderDetail bundles an order with its optionally loaded children.
type OrderDetail struct {
	Order      Order
	Deliveries []Delivery
	Batches    []Batch
	Materials  []OrderMaterial
}

// OrderListFilter narrows order listings.
type OrderListFilter struct {
	Status        *OrderStatus
	CustomerID    *string
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
	IncludeHidden bool
	Limit         int
}

// OrderStatusTransitionCommand moves an order along the lifecycle graph.
type OrderStatusTransitionCommand struct {
	OrderID      string
	TargetStatus OrderStatus
	Reason       string
}

// UpdateOrderOverridesCommand replaces the user-override fields of an
// order. Each Set flag distinguishes "set to this value, including zero"
// from "leave the stored override untouched"; a Set flag with a nil value
// clears the override.
type UpdateOrderOverridesCommand struct {
	OrderID string

	SetPriceConcrete    bool
	PriceConcrete       *float64
	SetPriceTransport   bool
	PriceTransport      *float64
	SetPriceSurcharges  bool
	PriceSurcharges     *float64
	SetDistanceDriven   bool
	DistanceDriven      *float64
	SetPricePerKm       bool
	PricePerKm          *float64
	SetTransportZone    bool
	TransportZoneID     *string
	SetWithoutTransport bool
	WithoutTransport    bool
}

// ReplaceOrderSurchargesCommand atomically swaps the surcharge line items
// of an order.
type ReplaceOrderSurchargesCommand struct {
	OrderID string
	Items   []SurchargeItemInput
}

// SurchargeItemInput references a surcharge definition with the per-order
// multiplier.
type SurchargeItemInput struct {
	SurchargeID string
	Amount      *float64
}

// RecordDeliveryCommand registers one vehicle trip against an order.
type RecordDeliveryCommand struct {
	OrderID string
	CarID   string
	Volume  float64
}

// RecordBatchCommand registers one produced batch with its material doses.
type RecordBatchCommand struct {
	OrderID    string
	Volume     float64
	Materials  []BatchMaterialInput
	ProducedAt *time.Time
}

// BatchMaterialInput is one dosed material line reported by the line.
type BatchMaterialInput struct {
	MaterialID string
	Required   float64
	Dosed      float64
}

// PumpOrderService owns the pump order lifecycle and surcharges.
type PumpOrderService interface {
	CreatePumpOrder(ctx context.Context, cmd CreatePumpOrderCommand) (PumpOrder, error)
	GetPumpOrder(ctx context.Context, orderID string) (PumpOrder, error)
	ListPumpOrders(ctx context.Context, filter OrderListFilter) ([]PumpOrder, error)
	TransitionStatus(ctx context.Context, cmd OrderStatusTransitionCommand) (PumpOrder, error)
	ReplaceSurcharges(ctx context.Context, cmd ReplaceOrderSurchargesCommand) (PumpOrder, error)
	ArchivePumpOrder(ctx context.Context, orderID string) error
}

// CreatePumpOrderCommand carries everything needed to dispatch pump work.
type CreatePumpOrderCommand struct {
	PumpID     string
	CustomerID string
	SiteID     string
	Hours      *float64
	Comment    string

	PricePerHourOverride *float64
	SurchargeIDs         []string
}

// CatalogService manages materials, recipes and defaults templates.
type CatalogService interface {
	CreateMaterial(ctx context.Context, cmd UpsertMaterialCommand) (Material, error)
	UpdateMaterial(ctx context.Context, materialID string, cmd UpsertMaterialCommand) (Material, error)
	GetMaterial(ctx context.Context, materialID string) (Material, error)
	ListMaterials(ctx context.Context, filter MaterialListFilter) ([]Material, error)
	ArchiveMaterial(ctx context.Context, materialID string) error
	AdjustStock(ctx context.Context, cmd AdjustStockCommand) (Material, error)

	CreateRecipe(ctx context.Context, cmd CreateRecipeCommand) (RecipeDetail, error)
	UpdateRecipe(ctx context.Context, cmd UpdateRecipeCommand) (RecipeDetail, error)
	GetRecipe(ctx context.Context, recipeID string) (RecipeDetail, error)
	ListRecipes(ctx context.Context, filter RecipeListFilter) ([]Recipe, error)
	ArchiveRecipe(ctx context.Context, recipeID string) error

	CreateDefaults(ctx context.Context, cmd UpsertDefaultsCommand) (Defaults, error)
	UpdateDefaults(ctx context.Context, defaultsID string, cmd UpsertDefaultsCommand) (Defaults, error)
	ListDefaults(ctx context.Context) ([]Defaults, error)
}

// UpsertMaterialCommand carries the writable fields of a material.
type UpsertMaterialCommand struct {
	Name     string
	LongName string
	Type     MaterialType
	Unit     string
	Stock    *float64
}

// MaterialListFilter narrows material listings.
type MaterialListFilter struct {
	Type          *MaterialType
	IncludeHidden bool
}

// AdjustStockCommand applies a signed stock delta with an audit reason.
type AdjustStockCommand struct {
	MaterialID string
	Delta      float64
	Reason     string
	OrderID    *string
}

// RecipeMaterialInput is one material line of a recipe write.
type RecipeMaterialInput struct {
	MaterialID string
	Amount     float64
	Delay      float64
	KValue     *float64
	KRatio     *float64
}

// CreateRecipeCommand carries a new recipe with its material list.
type CreateRecipeCommand struct {
	Recipe    RecipeInput
	Materials []RecipeMaterialInput
}

// UpdateRecipeCommand atomically replaces recipe fields and materials.
type UpdateRecipeCommand struct {
	RecipeID  string
	Recipe    RecipeInput
	Materials []RecipeMaterialInput
}

// RecipeInput carries the writable fields of a recipe.
type RecipeInput struct {
	Name                      string
	Number                    *string
	RecipeClass               string
	Description               string
	Comment                   string
	ConsistencyClass          string
	ExposureClasses           string
	Price                     *float64
	BatchVolumeLimit          *float64
	LiftPourDuration          *float64
	LiftSemiPourDuration      *float64
	MixerSemiOpeningDuration  *float64
	MixerSemiOpening2Duration *float64
	MixerOpeningDuration      *float64
	MixingDuration            *float64
	DMax                      *float64
	ClContent                 *float64
	VC                        *float64
	CementMin                 *float64
	WorkabilityTime           *float64
	DefaultsID                *string
}

// RecipeListFilter narrows recipe listings.
type RecipeListFilter struct {
	RecipeClass   *string
	IncludeHidden bool
}

// RecipeDetail bundles a recipe with its material list.
type RecipeDetail struct {
	Recipe    Recipe
	Materials []RecipeMaterial
}

// UpsertDefaultsCommand carries the writable fields of a defaults template.
type UpsertDefaultsCommand struct {
	Name                      string
	BatchVolumeLimit          *float64
	LiftPourDuration          *float64
	LiftSemiPourDuration      *float64
	MixerSemiOpeningDuration  *float64
	MixerSemiOpening2Duration *float64
	MixerOpeningDuration      *float64
	MixingDuration            *float64
}

// CustomerService manages customers, sites, contracts and discount rules.
type CustomerService interface {
	CreateCustomer(ctx context.Context, cmd UpsertCustomerCommand) (Customer, error)
	UpdateCustomer(ctx context.Context, customerID string, cmd UpsertCustomerCommand) (Customer, error)
	GetCustomer(ctx context.Context, customerID string) (Customer, error)
	ListCustomers(ctx context.Context, filter CustomerListFilter) ([]Customer, error)
	ArchiveCustomer(ctx context.Context, customerID string) error

	CreateSite(ctx context.Context, cmd UpsertSiteCommand) (ConstructionSite, error)
	UpdateSite(ctx context.Context, siteID string, cmd UpsertSiteCommand) (ConstructionSite, error)
	ListSites(ctx context.Context, customerID string) ([]ConstructionSite, error)

	CreateContract(ctx context.Context, cmd UpsertContractCommand) (Contract, error)
	UpdateContract(ctx context.Context, contractID string, cmd UpsertContractCommand) (Contract, error)
	DeleteContract(ctx context.Context, contractID string) error
	ListContracts(ctx context.Context, customerID string) ([]Contract, error)

	CreatePriceRule(ctx context.Context, cmd UpsertPriceRuleCommand) (Price, error)
	UpdatePriceRule(ctx context.Context, priceID string, cmd UpsertPriceRuleCommand) (Price, error)
	DeletePriceRule(ctx context.Context, priceID string) error
	ListPriceRules(ctx context.Context, customerID string) ([]Price, error)
}

// UpsertCustomerCommand carries the writable fields of a customer.
type UpsertCustomerCommand struct {
	Name      string
	Street    string
	City      string
	Zip       string
	CompanyID string
	VATID     string
	Phone     string
	Email     string
}

// CustomerListFilter narrows customer listings.
type CustomerListFilter struct {
	NamePrefix    *string
	IncludeHidden bool
}

// UpsertSiteCommand carries the writable fields of a construction site.
// CustomerID is required on create and immutable afterwards.
type UpsertSiteCommand struct {
	CustomerID *string
	Name       string
	Street     string
	City       string
	Distance   *float64
}

// UpsertContractCommand carries the writable fields of a contract.
type UpsertContractCommand struct {
	Name          string
	CustomerID    string
	SiteID        string
	RecipeID      *string
	CarID         *string
	DefaultVolume *float64
}

// UpsertPriceRuleCommand carries the writable fields of a discount rule.
type UpsertPriceRuleCommand struct {
	CustomerID string
	RecipeID   *string
	SiteID     *string
	Amount     float64
	Type       PriceType
	Note       string
}

// FleetService manages drivers, cars and pumps.
type FleetService interface {
	CreateDriver(ctx context.Context, cmd UpsertDriverCommand) (Driver, error)
	UpdateDriver(ctx context.Context, driverID string, cmd UpsertDriverCommand) (Driver, error)
	ListDrivers(ctx context.Context, includeHidden bool) ([]Driver, error)

	CreateCar(ctx context.Context, cmd UpsertCarCommand) (Car, error)
	UpdateCar(ctx context.Context, carID string, cmd UpsertCarCommand) (Car, error)
	GetCar(ctx context.Context, carID string) (Car, error)
	ListCars(ctx context.Context, includeHidden bool) ([]Car, error)
	ArchiveCar(ctx context.Context, carID string) error

	CreatePump(ctx context.Context, cmd UpsertPumpCommand) (Pump, error)
	UpdatePump(ctx context.Context, pumpID string, cmd UpsertPumpCommand) (Pump, error)
	GetPump(ctx context.Context, pumpID string) (Pump, error)
	ListPumps(ctx context.Context, includeHidden bool) ([]Pump, error)
	ArchivePump(ctx context.Context, pumpID string) error
}

// UpsertDriverCommand carries the writable fields of a driver.
type UpsertDriverCommand struct {
	Name    string
	Contact string
}

// UpsertCarCommand carries the writable fields of a mixer truck.
type UpsertCarCommand struct {
	RegistrationNumber           string
	DriverID                     *string
	PricePerKm                   *float64
	TransportTypeID              *string
	ChargeTransportAutomatically bool
}

// UpsertPumpCommand carries the writable fields of a pump.
type UpsertPumpCommand struct {
	RegistrationNumber string
	DriverID           *string
	PricePerKm         *float64
	PumpType           string
	PricePerHour       *float64
}

// SettingsService owns the facility settings singleton and the
// facility-wide surcharge definitions.
type SettingsService interface {
	Current(ctx context.Context) (FacilitySettings, error)
	Update(ctx context.Context, cmd UpdateSettingsCommand) (FacilitySettings, error)
	Reload(ctx context.Context) (FacilitySettings, error)

	ListCompanySurcharges(ctx context.Context) ([]CompanySurcharge, error)
	CreateCompanySurcharge(ctx context.Context, cmd UpsertSurchargeCommand) (CompanySurcharge, error)
	UpdateCompanySurcharge(ctx context.Context, surchargeID string, cmd UpsertSurchargeCommand) (CompanySurcharge, error)
	DeleteCompanySurcharge(ctx context.Context, surchargeID string) error

	ListPumpSurcharges(ctx context.Context) ([]PumpSurcharge, error)
	CreatePumpSurcharge(ctx context.Context, cmd UpsertSurchargeCommand) (PumpSurcharge, error)
	UpdatePumpSurcharge(ctx context.Context, surchargeID string, cmd UpsertSurchargeCommand) (PumpSurcharge, error)
	DeletePumpSurcharge(ctx context.Context, surchargeID string) error
}

// UpdateSettingsCommand replaces the facility settings wholesale.
type UpdateSettingsCommand struct {
	Settings FacilitySettings
}

// UpsertSurchargeCommand carries the writable fields of a surcharge
// definition.
type UpsertSurchargeCommand struct {
	Name     string
	Price    float64
	Type     SurchargeType
	UnitName *string
}

// ExportService writes finished-order exports for the manager module.
type ExportService interface {
	ExportOrders(ctx context.Context, cmd ExportOrdersCommand) (ExportResult, error)
}

// ExportOrdersCommand selects the orders to export.
type ExportOrdersCommand struct {
	From   time.Time
	To     time.Time
	Status *OrderStatus
}

// ExportResult describes the written export object.
type ExportResult struct {
	ObjectName string
	Orders     int
	Deliveries int
	WrittenAt  time.Time
}

// SystemService reports runtime health for readiness endpoints.
type SystemService interface {
	Health(ctx context.Context) (SystemHealthReport, error)
}

// OrderEventPublisher delivers order lifecycle events to downstream
// consumers and returns the broker message ID.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, message OrderEventMessage) (string, error)
}

// OrderEventMessage is the payload delivered to the production-line and
// manager modules via Pub/Sub.
type OrderEventMessage struct {
	Event          string    `json:"event"`
	OrderID        string    `json:"orderId"`
	OrderNumber    string    `json:"orderNumber,omitempty"`
	Status         string    `json:"status,omitempty"`
	PreviousStatus string    `json:"previousStatus,omitempty"`
	OccurredAt     time.Time `json:"occurredAt"`
}

// ExportObjectWriter persists a finished export file into the shared
// bucket the manager module reads from.
type ExportObjectWriter interface {
	WriteObject(ctx context.Context, objectName, contentType string, data []byte) error
}
