package domain

import (
	"time"
)

// Pagination defines standard paging inputs for list operations.
type Pagination struct {
	PageSize  int
	PageToken string
}

// SortOrder indicates ascending or descending ordering for list queries.
type SortOrder string

const (
	// SortAsc sorts results in ascending order.
	SortAsc SortOrder = "asc"
	// SortDesc sorts results in descending order.
	SortDesc SortOrder = "desc"
)

// MaterialType classifies a raw ingredient.
type MaterialType string

const (
	// MaterialTypeAdmixture is a chemical admixture.
	MaterialTypeAdmixture MaterialType = "admixture"
	// MaterialTypeAggregate is sand, gravel or crushed stone.
	MaterialTypeAggregate MaterialType = "aggregate"
	// MaterialTypeCement is a binding cement.
	MaterialTypeCement MaterialType = "cement"
	// MaterialTypeWater is mixing water.
	MaterialTypeWater MaterialType = "water"
	// MaterialTypeAddition is a supplementary cementitious addition.
	MaterialTypeAddition MaterialType = "addition"
)

// AllowedMaterialTypes lists every valid material type.
var AllowedMaterialTypes = []MaterialType{
	MaterialTypeAdmixture,
	MaterialTypeAggregate,
	MaterialTypeCement,
	MaterialTypeWater,
	MaterialTypeAddition,
}

// Valid reports whether the material type is one of the allowed set.
func (t MaterialType) Valid() bool {
	for _, allowed := range AllowedMaterialTypes {
		if t == allowed {
			return true
		}
	}
	return false
}

// Material is a raw ingredient consumed by recipes and tracked in stock.
type Material struct {
	ID        string
	Name      string
	LongName  string
	Type      MaterialType
	Unit      string
	Stock     float64
	Hidden    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Recipe is a concrete formula with its base price per cubic meter and
// production timing parameters.
type Recipe struct {
	ID                        string
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
	KValue                    *float64
	KRatio                    *float64
	DMax                      *float64
	ClContent                 *float64
	VC                        *float64
	CementMin                 *float64
	WorkabilityTime           *float64
	DefaultsID                *string
	Hidden                    bool
	CreatedAt                 time.Time
	UpdatedAt                 time.Time
}

// RecipeMaterial binds a material into a recipe with its dosed amount.
// KValue and KRatio are only meaningful for addition-type materials.
type RecipeMaterial struct {
	ID         string
	RecipeID   string
	MaterialID string
	Amount     float64
	Delay      float64
	KValue     *float64
	KRatio     *float64
}

// Defaults is a reusable template of recipe timing parameters.
type Defaults struct {
	ID                        string
	Name                      string
	BatchVolumeLimit          *float64
	LiftPourDuration          *float64
	LiftSemiPourDuration      *float64
	MixerSemiOpeningDuration  *float64
	MixerSemiOpening2Duration *float64
	MixerOpeningDuration      *float64
	MixingDuration            *float64
	CreatedAt                 time.Time
	UpdatedAt                 time.Time
}

// Customer is a billable party ordering concrete or pump work.
type Customer struct {
	ID        string
	Name      string
	Street    string
	City      string
	Zip       string
	CompanyID string
	VATID     string
	Phone     string
	Email     string
	Hidden    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ConstructionSite is a delivery destination with its recorded one-way
// distance from the facility in kilometers.
type ConstructionSite struct {
	ID         string
	CustomerID *string
	Name       string
	Street     string
	City       string
	Distance   *float64
	Hidden     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Contract pre-binds a customer, site and optionally a recipe and vehicle
// so repeat orders can be created with one pick.
type Contract struct {
	ID            string
	Name          string
	CustomerID    string
	SiteID        string
	RecipeID      *string
	CarID         *string
	DefaultVolume *float64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// PriceType selects how a discount rule's amount is interpreted against the
// recipe base price.
type PriceType string

const (
	// PriceTypeAbsolute replaces the base price with the rule amount.
	PriceTypeAbsolute PriceType = "absolute"
	// PriceTypeRelative adds the rule amount to the base price.
	PriceTypeRelative PriceType = "relative"
	// PriceTypePercent takes the rule amount as a percentage of the base price.
	PriceTypePercent PriceType = "percent"
	// PriceTypeRelativePercent shifts the base price by the rule amount percent.
	PriceTypeRelativePercent PriceType = "relative_percent"
)

// Valid reports whether the price type is a known interpretation mode.
func (t PriceType) Valid() bool {
	switch t {
	case PriceTypeAbsolute, PriceTypeRelative, PriceTypePercent, PriceTypeRelativePercent:
		return true
	}
	return false
}

// Price is a discount rule scoped to a customer and optionally narrowed to a
// recipe and a construction site.
type Price struct {
	ID         string
	CustomerID string
	RecipeID   *string
	SiteID     *string
	Amount     float64
	Type       PriceType
	Note       string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ResolvedPrice is the outcome of best-price resolution. Amount is nil when
// nothing was resolvable, Reason always describes which tier matched.
type ResolvedPrice struct {
	Amount *float64
	Reason string
	RuleID *string
}

// TransportType categorizes vehicles for zone scoping.
type TransportType struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TransportZone is a distance-range transport pricing rule. Each bound has
// its own inclusive flag. Price is per cubic meter when PriceIsPerM3 is set,
// otherwise it is a flat amount per delivery.
type TransportZone struct {
	ID              string
	Name            string
	DistanceKmMin   float64
	DistanceKmMax   float64
	MinInclusive    bool
	MaxInclusive    bool
	Price           float64
	PriceIsPerM3    bool
	MinimalVolume   *float64
	TransportTypeID *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Matches reports whether the distance falls inside the zone's interval,
// honoring each bound's inclusive flag independently.
func (z TransportZone) Matches(distance float64) bool {
	if z.MinInclusive {
		if distance < z.DistanceKmMin {
			return false
		}
	} else if distance <= z.DistanceKmMin {
		return false
	}
	if z.MaxInclusive {
		return distance <= z.DistanceKmMax
	}
	return distance < z.DistanceKmMax
}

// ZoneMatchTier ranks how well a zone fits a requested distance and vehicle.
type ZoneMatchTier int

const (
	// ZoneMatchTypeAndDistance means both the distance and the vehicle's
	// transport type matched.
	ZoneMatchTypeAndDistance ZoneMatchTier = 1
	// ZoneMatchDistanceOnly means only the distance matched.
	ZoneMatchDistanceOnly ZoneMatchTier = 2
	// ZoneMatchNone means the zone is offered for manual override only.
	ZoneMatchNone ZoneMatchTier = 3
)

// RankedZone pairs a zone with its match tier for a particular lookup.
type RankedZone struct {
	Zone TransportZone
	Tier ZoneMatchTier
}

// Driver operates a car or pump.
type Driver struct {
	ID        string
	Name      string
	Contact   string
	Hidden    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Vehicle carries the fields common to cars and pumps.
type Vehicle struct {
	RegistrationNumber string
	DriverID           *string
	PricePerKm         *float64
}

// Car is a mixer truck.
type Car struct {
	ID                           string
	Vehicle                      Vehicle
	TransportTypeID              *string
	ChargeTransportAutomatically bool
	Hidden                       bool
	CreatedAt                    time.Time
	UpdatedAt                    time.Time
}

// Pump is a concrete pump billed by the hour.
type Pump struct {
	ID           string
	Vehicle      Vehicle
	PumpType     string
	PricePerHour *float64
	Hidden       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	// OrderStatusSent is the initial state of a freshly dispatched order.
	OrderStatusSent OrderStatus = "sent"
	// OrderStatusInProduction means the production line accepted the order.
	OrderStatusInProduction OrderStatus = "in_production"
	// OrderStatusFinished is the terminal success state.
	OrderStatusFinished OrderStatus = "finished"
	// OrderStatusAbortedByDispatcher means the dispatcher recalled the order.
	OrderStatusAbortedByDispatcher OrderStatus = "aborted_by_dispatcher"
	// OrderStatusAbortedBeforeProduction is terminal, aborted before any batch.
	OrderStatusAbortedBeforeProduction OrderStatus = "aborted_before_production"
	// OrderStatusAbortedInProduction is terminal, aborted mid-production.
	OrderStatusAbortedInProduction OrderStatus = "aborted_in_production"
)

// Valid reports whether the status is a known lifecycle state.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusSent, OrderStatusInProduction, OrderStatusFinished,
		OrderStatusAbortedByDispatcher, OrderStatusAbortedBeforeProduction,
		OrderStatusAbortedInProduction:
		return true
	}
	return false
}

// SurchargeType selects how a surcharge line item is priced.
type SurchargeType string

const (
	// SurchargeTypeFixed charges the item price once.
	SurchargeTypeFixed SurchargeType = "fixed"
	// SurchargeTypePerCubicMeter multiplies the price by the order volume.
	// Valid for concrete orders only.
	SurchargeTypePerCubicMeter SurchargeType = "per_cubic_meter"
	// SurchargeTypePerOtherUnit multiplies the price by the item amount.
	SurchargeTypePerOtherUnit SurchargeType = "per_other_unit"
)

// Valid reports whether the surcharge type is a known pricing mode.
func (t SurchargeType) Valid() bool {
	switch t {
	case SurchargeTypeFixed, SurchargeTypePerCubicMeter, SurchargeTypePerOtherUnit:
		return true
	}
	return false
}

// CompanySurcharge is a facility-wide surcharge definition copied onto
// concrete orders as line items.
type CompanySurcharge struct {
	ID        string
	Name      string
	Price     float64
	Type      SurchargeType
	UnitName  *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PumpSurcharge is a surcharge definition for pump orders. Only fixed and
// per-other-unit pricing modes are allowed.
type PumpSurcharge struct {
	ID        string
	Name      string
	Price     float64
	Type      SurchargeType
	UnitName  *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SurchargeItem is a surcharge definition snapshotted onto an order, with
// the per-order multiplier filled in at dispatch time.
type SurchargeItem struct {
	ID       string
	Name     string
	Price    float64
	Type     SurchargeType
	UnitName *string
	Amount   *float64
}

// RecipeSnapshot holds the pricing-relevant recipe fields copied onto an
// order when the recipe is assigned. Later recipe edits never change it.
type RecipeSnapshot struct {
	Name                      string
	Number                    *string
	RecipeClass               string
	Description               string
	Comment                   string
	ConsistencyClass          string
	ExposureClasses           string
	BatchVolumeLimit          *float64
	LiftPourDuration          *float64
	LiftSemiPourDuration      *float64
	MixerSemiOpeningDuration  *float64
	MixerSemiOpening2Duration *float64
	MixerOpeningDuration      *float64
	MixingDuration            *float64
	KValue                    *float64
	KRatio                    *float64
	DMax                      *float64
	ClContent                 *float64
	VC                        *float64
	CementMin                 *float64
	WorkabilityTime           *float64
	Price                     *float64
	PriceNote                 string
}

// SnapshotRecipe copies the pricing-relevant fields of a recipe. The
// resolved price and its audit note are supplied by the caller.
func SnapshotRecipe(r Recipe, price *float64, priceNote string) RecipeSnapshot {
	return RecipeSnapshot{
		Name:                      r.Name,
		Number:                    r.Number,
		RecipeClass:               r.RecipeClass,
		Description:               r.Description,
		Comment:                   r.Comment,
		ConsistencyClass:          r.ConsistencyClass,
		ExposureClasses:           r.ExposureClasses,
		BatchVolumeLimit:          r.BatchVolumeLimit,
		LiftPourDuration:          r.LiftPourDuration,
		LiftSemiPourDuration:      r.LiftSemiPourDuration,
		MixerSemiOpeningDuration:  r.MixerSemiOpeningDuration,
		MixerSemiOpening2Duration: r.MixerSemiOpening2Duration,
		MixerOpeningDuration:      r.MixerOpeningDuration,
		MixingDuration:            r.MixingDuration,
		KValue:                    r.KValue,
		KRatio:                    r.KRatio,
		DMax:                      r.DMax,
		ClContent:                 r.ClContent,
		VC:                        r.VC,
		CementMin:                 r.CementMin,
		WorkabilityTime:           r.WorkabilityTime,
		Price:                     price,
		PriceNote:                 priceNote,
	}
}

// Order is the billable unit. For each priced component it holds either a
// user override (explicit zero allowed, nil means unset) or derives the
// value at read time. Recipe, customer and site data are snapshotted at
// creation; the *ID fields are weak back-references kept for traceability.
type Order struct {
	ID     string
	Number string
	Status OrderStatus
	Volume float64

	Recipe     RecipeSnapshot
	RecipeID   *string
	CustomerID *string
	Customer   string
	SiteID     *string
	Site       string
	ContractID *string

	Comment          string
	WithoutTransport bool

	PriceConcreteOverride   *float64
	PriceTransportOverride  *float64
	PriceSurchargesOverride *float64
	DistanceDrivenOverride  *float64
	PricePerKmOverride      *float64
	TransportZoneOverride   *string

	Surcharges []SurchargeItem

	Hidden    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Terminal reports whether the order can never leave its current status.
func (o Order) Terminal() bool {
	switch o.Status {
	case OrderStatusFinished, OrderStatusAbortedBeforeProduction, OrderStatusAbortedInProduction:
		return true
	}
	return false
}

// CarSnapshot holds the vehicle fields copied onto a delivery at dispatch.
type CarSnapshot struct {
	RegistrationNumber string
	Driver             string
	DriverContact      string
	TransportTypeName  string
	PricePerKm         *float64
}

// Delivery is one vehicle trip fulfilling part of an order. DistanceDriven
// is the site distance multiplied by the facility distance factor.
type Delivery struct {
	ID             string
	OrderID        string
	Volume         float64
	CarID          *string
	Car            CarSnapshot
	SiteDistance   *float64
	DistanceDriven *float64
	CreatedAt      time.Time
}

// OrderMaterial records the materials actually dosed into an order.
type OrderMaterial struct {
	ID         string
	OrderID    string
	MaterialID *string
	Name       string
	Amount     float64
	KValue     *float64
	KRatio     *float64
}

// BatchMaterial is one material consumption line inside a batch.
type BatchMaterial struct {
	MaterialID *string
	Name       string
	Required   float64
	Dosed      float64
}

// Batch is one produced portion of an order as reported by the line.
type Batch struct {
	ID         string
	OrderID    string
	Volume     float64
	Materials  []BatchMaterial
	ProducedAt time.Time
}

// StockMovement is a signed change of a material's stock level.
type StockMovement struct {
	ID         string
	MaterialID string
	Amount     float64
	Reason     string
	OrderID    *string
	CreatedAt  time.Time
}

// PumpSnapshot holds the pump fields copied onto a pump order.
type PumpSnapshot struct {
	RegistrationNumber string
	Driver             string
	DriverContact      string
	PumpType           string
	PricePerHour       *float64
}

// PumpOrder bills pump work by the hour plus surcharges. Customer and site
// are stored as display snapshots alongside weak back-references.
type PumpOrder struct {
	ID     string
	Number string
	Status OrderStatus

	PumpID     *string
	Pump       PumpSnapshot
	CustomerID *string
	Customer   string
	SiteID     *string
	Site       string

	Hours                 *float64
	PricePerHourOverride  *float64
	PriceSurchargesTotals *float64

	Comment    string
	Surcharges []SurchargeItem

	Hidden    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FacilitySettings is the immutable process-wide configuration snapshot
// injected into every pricing call. It is reloaded wholesale, never
// partially mutated.
type FacilitySettings struct {
	VATRate               int
	CurrencySymbol        string
	RoundingPrecision     int
	TransportZonesEnabled bool
	CountDistanceDoubled  bool
	DatetimeFormat        string
	AutoPrint             bool
	CompanyName           string
	CompanyStreet         string
	CompanyCity           string
	CompanyZip            string
	FacilityName          string
	FacilityStreet        string
	FacilityCity          string
	UpdatedAt             time.Time
}

// DistanceFactor returns the multiplier applied to a site's one-way
// distance when deriving the driven distance.
func (s FacilitySettings) DistanceFactor() float64 {
	if s.CountDistanceDoubled {
		return 2
	}
	return 1
}
