package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domain "github.com/mixdispatch/api/internal/domain"
	"github.com/mixdispatch/api/internal/repositories"
)

var (
	// ErrPricingInvalidInput indicates a malformed pricing request.
	ErrPricingInvalidInput = errors.New("pricing: invalid input")
	// ErrPricingNotFound indicates a referenced record does not exist.
	ErrPricingNotFound = errors.New("pricing: not found")
	// ErrPricingMissingInput indicates neither a customer nor a recipe was
	// supplied, so there is nothing to resolve against.
	ErrPricingMissingInput = errors.New("pricing: missing input")
)

// Audit reasons for the price resolution tiers.
const (
	priceReasonRecipeCustomerSite = "special price defined for recipe, customer and construction site"
	priceReasonRecipeCustomer     = "special price defined for recipe and customer"
	priceReasonCustomerOnly       = "customer price applied to recipe base price"
	priceReasonRecipeBase         = "recipe base price"
	priceReasonNone               = "no price available"
)

// PricingServiceDeps wires the read-side repositories the engine consults.
type PricingServiceDeps struct {
	Prices     repositories.PriceRepository
	Recipes    repositories.RecipeRepository
	Sites      repositories.SiteRepository
	Orders     repositories.OrderRepository
	PumpOrders repositories.PumpOrderRepository
	Zones      repositories.TransportZoneRepository
	Settings   repositories.SettingsRepository
	Transport  TransportService
}

// NewPricingService builds the pricing engine. All operations are reads;
// stored orders are never mutated by a pricing call.
func NewPricingService(deps PricingServiceDeps) (PricingService, error) {
	if deps.Prices == nil {
		return nil, fmt.Errorf("pricing service: price repository is required")
	}
	if deps.Recipes == nil {
		return nil, fmt.Errorf("pricing service: recipe repository is required")
	}
	if deps.Sites == nil {
		return nil, fmt.Errorf("pricing service: site repository is required")
	}
	if deps.Orders == nil {
		return nil, fmt.Errorf("pricing service: order repository is required")
	}
	if deps.PumpOrders == nil {
		return nil, fmt.Errorf("pricing service: pump order repository is required")
	}
	if deps.Zones == nil {
		return nil, fmt.Errorf("pricing service: transport zone repository is required")
	}
	if deps.Settings == nil {
		return nil, fmt.Errorf("pricing service: settings repository is required")
	}
	if deps.Transport == nil {
		return nil, fmt.Errorf("pricing service: transport service is required")
	}
	return &pricingService{
		prices:     deps.Prices,
		recipes:    deps.Recipes,
		sites:      deps.Sites,
		orders:     deps.Orders,
		pumpOrders: deps.PumpOrders,
		zones:      deps.Zones,
		settings:   deps.Settings,
		transport:  deps.Transport,
	}, nil
}

type pricingService struct {
	prices     repositories.PriceRepository
	recipes    repositories.RecipeRepository
	sites      repositories.SiteRepository
	orders     repositories.OrderRepository
	pumpOrders repositories.PumpOrderRepository
	zones      repositories.TransportZoneRepository
	settings   repositories.SettingsRepository
	transport  TransportService
}

// ResolvePrice walks the precedence tiers strictly in order: the exact
// (recipe, customer, site) rule, then the (recipe, customer) rule, then the
// customer-only rule reinterpreted against the recipe base price, then the
// recipe base price itself. A recipe without a base price resolves to an
// unknown amount rather than an error; only the complete absence of both a
// customer and a recipe fails.
func (s *pricingService) ResolvePrice(ctx context.Context, cmd ResolvePriceCommand) (ResolvedPrice, error) {
	recipeID := strings.TrimSpace(cmd.RecipeID)
	customerID := strings.TrimSpace(cmd.CustomerID)
	siteID := strings.TrimSpace(cmd.SiteID)
	if recipeID == "" && customerID == "" {
		return ResolvedPrice{}, fmt.Errorf("%w: neither customer nor recipe supplied", ErrPricingMissingInput)
	}

	var basePrice *float64
	if recipeID != "" {
		recipe, err := s.recipes.FindByID(ctx, recipeID)
		if err != nil {
			return ResolvedPrice{}, s.mapRepositoryError(err)
		}
		basePrice = recipe.Price
	}

	if customerID != "" {
		type tier struct {
			scope  repositories.PriceScope
			reason string
		}
		var tiers []tier
		if recipeID != "" && siteID != "" {
			tiers = append(tiers, tier{
				scope:  repositories.PriceScope{CustomerID: customerID, RecipeID: &recipeID, SiteID: &siteID},
				reason: priceReasonRecipeCustomerSite,
			})
		}
		if recipeID != "" {
			tiers = append(tiers, tier{
				scope:  repositories.PriceScope{CustomerID: customerID, RecipeID: &recipeID},
				reason: priceReasonRecipeCustomer,
			})
		}
		tiers = append(tiers, tier{
			scope:  repositories.PriceScope{CustomerID: customerID},
			reason: priceReasonCustomerOnly,
		})
		for _, t := range tiers {
			rules, err := s.prices.FindByScope(ctx, t.scope)
			if err != nil {
				return ResolvedPrice{}, s.mapRepositoryError(err)
			}
			if len(rules) == 0 {
				continue
			}
			// Ties are resolved by the repository's stable ID ordering.
			rule := rules[0]
			if basePrice == nil && rule.Type != domain.PriceTypeAbsolute {
				continue
			}
			amount, err := domain.ApplyPriceType(rule.Type, rule.Amount, basePrice)
			if err != nil {
				return ResolvedPrice{}, err
			}
			return ResolvedPrice{Amount: &amount, Reason: t.reason, RuleID: valuePtr(rule.ID)}, nil
		}
	}

	if basePrice != nil {
		return ResolvedPrice{Amount: basePrice, Reason: priceReasonRecipeBase}, nil
	}
	return ResolvedPrice{Reason: priceReasonNone}, nil
}

// PriceOrder computes the full breakdown for a stored order. Overrides win
// over derivation per component, an explicit zero override included. Unknown
// components stay nil and count as zero only in the summed total.
func (s *pricingService) PriceOrder(ctx context.Context, cmd PriceOrderCommand) (OrderPricing, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return OrderPricing{}, fmt.Errorf("%w: order id is required", ErrPricingInvalidInput)
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return OrderPricing{}, s.mapRepositoryError(err)
	}
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return OrderPricing{}, s.mapRepositoryError(err)
	}

	var pricing OrderPricing

	if order.PriceConcreteOverride != nil {
		pricing.PriceConcrete = order.PriceConcreteOverride
	} else if order.Recipe.Price != nil {
		pricing.PriceConcrete = valuePtr(*order.Recipe.Price * order.Volume)
	}

	pricing.DistanceDriven, err = s.drivenDistance(ctx, order, settings)
	if err != nil {
		return OrderPricing{}, err
	}

	pricing.PriceTransport, err = s.transportPrice(ctx, order, settings, pricing.DistanceDriven)
	if err != nil {
		return OrderPricing{}, err
	}

	if order.PriceSurchargesOverride != nil {
		pricing.PriceSurcharges = order.PriceSurchargesOverride
	} else {
		surcharges, err := domain.SurchargeTotal(order.Surcharges, valuePtr(order.Volume))
		if err != nil {
			return OrderPricing{}, err
		}
		pricing.PriceSurcharges = valuePtr(surcharges.Total)
		pricing.SkippedSurcharges = surcharges.Skipped
	}

	pricing.Total = sumComponents(pricing.PriceConcrete, pricing.PriceTransport, pricing.PriceSurcharges)
	pricing.FinalizeTotals(settings)
	return pricing, nil
}

// PricePumpOrder bills pump work as hours times hourly rate plus surcharges.
// Per-cubic-meter surcharge lines are invalid on pump orders and fail.
func (s *pricingService) PricePumpOrder(ctx context.Context, cmd PricePumpOrderCommand) (PumpOrderPricing, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return PumpOrderPricing{}, fmt.Errorf("%w: order id is required", ErrPricingInvalidInput)
	}
	order, err := s.pumpOrders.FindByID(ctx, orderID)
	if err != nil {
		return PumpOrderPricing{}, s.mapRepositoryError(err)
	}
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return PumpOrderPricing{}, s.mapRepositoryError(err)
	}

	var pricing PumpOrderPricing

	pricePerHour := order.PricePerHourOverride
	if pricePerHour == nil {
		pricePerHour = order.Pump.PricePerHour
	}
	if order.Hours != nil && pricePerHour != nil {
		pricing.PriceWork = valuePtr(*order.Hours * *pricePerHour)
	}

	if order.PriceSurchargesTotals != nil {
		pricing.PriceSurcharges = order.PriceSurchargesTotals
	} else {
		surcharges, err := domain.SurchargeTotal(order.Surcharges, nil)
		if err != nil {
			return PumpOrderPricing{}, err
		}
		pricing.PriceSurcharges = valuePtr(surcharges.Total)
		pricing.SkippedSurcharges = surcharges.Skipped
	}

	totals := domain.OrderPricing{Total: sumComponents(pricing.PriceWork, pricing.PriceSurcharges)}
	totals.FinalizeTotals(settings)
	pricing.Total = totals.Total
	pricing.TotalWithVAT = totals.TotalWithVAT
	pricing.RoundingCorrection = totals.RoundingCorrection
	pricing.GrandTotal = totals.GrandTotal
	return pricing, nil
}

// drivenDistance returns the override if present, otherwise the site's
// recorded one-way distance multiplied by the facility distance factor.
// A missing site or unrecorded distance yields nil, never an error; the
// site back-reference is weak and may dangle.
func (s *pricingService) drivenDistance(ctx context.Context, order domain.Order, settings domain.FacilitySettings) (*float64, error) {
	if order.DistanceDrivenOverride != nil {
		return order.DistanceDrivenOverride, nil
	}
	if order.SiteID == nil {
		return nil, nil
	}
	site, err := s.sites.FindByID(ctx, *order.SiteID)
	if err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsNotFound() {
			return nil, nil
		}
		return nil, s.mapRepositoryError(err)
	}
	if site.Distance == nil {
		return nil, nil
	}
	return valuePtr(*site.Distance * settings.DistanceFactor()), nil
}

func (s *pricingService) transportPrice(ctx context.Context, order domain.Order, settings domain.FacilitySettings, distance *float64) (*float64, error) {
	if order.PriceTransportOverride != nil {
		return order.PriceTransportOverride, nil
	}
	if order.WithoutTransport {
		return valuePtr(0.0), nil
	}
	if settings.TransportZonesEnabled {
		zone, err := s.effectiveZone(ctx, order, distance)
		if err != nil || zone == nil {
			return nil, err
		}
		if zone.PriceIsPerM3 {
			volume := order.Volume
			if zone.MinimalVolume != nil && *zone.MinimalVolume > volume {
				volume = *zone.MinimalVolume
			}
			return valuePtr(zone.Price * volume), nil
		}
		return valuePtr(zone.Price), nil
	}
	if distance == nil {
		return nil, nil
	}
	pricePerKm, err := s.effectivePricePerKm(ctx, order)
	if err != nil || pricePerKm == nil {
		return nil, err
	}
	return valuePtr(*pricePerKm * *distance), nil
}

// effectiveZone resolves a zone only when the driven distance is known.
// With a distance in hand the dispatcher's zone override wins over the
// matcher. Tier-three results exist for manual selection and are never
// applied automatically.
func (s *pricingService) effectiveZone(ctx context.Context, order domain.Order, distance *float64) (*domain.TransportZone, error) {
	if distance == nil {
		return nil, nil
	}
	if order.TransportZoneOverride != nil {
		zone, err := s.zones.FindByID(ctx, *order.TransportZoneOverride)
		if err != nil {
			return nil, s.mapRepositoryError(err)
		}
		return &zone, nil
	}
	ranked, err := s.transport.MatchZones(ctx, MatchZonesQuery{Distance: *distance})
	if err != nil {
		return nil, err
	}
	if len(ranked) == 0 || ranked[0].Tier == domain.ZoneMatchNone {
		return nil, nil
	}
	zone := ranked[0].Zone
	return &zone, nil
}

// effectivePricePerKm falls back to the first delivery's vehicle rate
// when the order carries no override.
func (s *pricingService) effectivePricePerKm(ctx context.Context, order domain.Order) (*float64, error) {
	if order.PricePerKmOverride != nil {
		return order.PricePerKmOverride, nil
	}
	deliveries, err := s.orders.ListDeliveries(ctx, order.ID)
	if err != nil {
		return nil, s.mapRepositoryError(err)
	}
	for _, delivery := range deliveries {
		if delivery.Car.PricePerKm != nil {
			return delivery.Car.PricePerKm, nil
		}
	}
	return nil, nil
}

func sumComponents(components ...*float64) float64 {
	var total float64
	for _, c := range components {
		if c != nil {
			total += *c
		}
	}
	return total
}

func (s *pricingService) mapRepositoryError(err error) error {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) && repoErr.IsNotFound() {
		return fmt.Errorf("%w: %v", ErrPricingNotFound, err)
	}
	return err
}
