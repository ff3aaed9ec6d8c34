package domain

import (
	"errors"
	"fmt"
)

// ErrValidation is the root of all input validation failures. Invalid input
// is always surfaced to the caller, never silently corrected.
var ErrValidation = errors.New("domain: validation failed")

// ValidateMaterial checks the material against the allowed type set.
func ValidateMaterial(m Material) error {
	if m.Name == "" {
		return fmt.Errorf("%w: material name is required", ErrValidation)
	}
	if !m.Type.Valid() {
		return fmt.Errorf("%w: material type %q is not allowed", ErrValidation, m.Type)
	}
	if m.Stock < 0 {
		return fmt.Errorf("%w: material stock must not be negative", ErrValidation)
	}
	return nil
}

// ValidateRecipe checks basic recipe invariants before a write.
func ValidateRecipe(r Recipe) error {
	if r.Name == "" {
		return fmt.Errorf("%w: recipe name is required", ErrValidation)
	}
	if r.Price != nil && *r.Price < 0 {
		return fmt.Errorf("%w: recipe price must not be negative", ErrValidation)
	}
	if r.Number != nil && *r.Number == "" {
		return fmt.Errorf("%w: recipe number must not be empty when set", ErrValidation)
	}
	return nil
}

// ValidateRecipeMaterial enforces that k-factor corrections appear only on
// addition-type materials and that the dosed amount is not negative.
func ValidateRecipeMaterial(rm RecipeMaterial, materialType MaterialType) error {
	if rm.Amount < 0 {
		return fmt.Errorf("%w: material amount must not be negative", ErrValidation)
	}
	if (rm.KValue != nil || rm.KRatio != nil) && materialType != MaterialTypeAddition {
		return fmt.Errorf("%w: k-factors are only allowed on addition materials, got %q", ErrValidation, materialType)
	}
	return nil
}

// ValidatePriceRule checks the discount rule shape. Scope uniqueness is the
// repository's concern; this only validates the row itself.
func ValidatePriceRule(p Price) error {
	if p.CustomerID == "" {
		return fmt.Errorf("%w: price rule requires a customer", ErrValidation)
	}
	if !p.Type.Valid() {
		return fmt.Errorf("%w: price type %q is not allowed", ErrValidation, p.Type)
	}
	if p.SiteID != nil && p.RecipeID == nil {
		return fmt.Errorf("%w: a site-scoped price rule also requires a recipe", ErrValidation)
	}
	return nil
}

// ValidateTransportZone checks the zone interval and amounts.
func ValidateTransportZone(z TransportZone) error {
	if z.DistanceKmMin < 0 || z.DistanceKmMax < 0 {
		return fmt.Errorf("%w: zone distances must not be negative", ErrValidation)
	}
	if z.DistanceKmMax < z.DistanceKmMin {
		return fmt.Errorf("%w: zone maximum distance is below its minimum", ErrValidation)
	}
	if z.Price < 0 {
		return fmt.Errorf("%w: zone price must not be negative", ErrValidation)
	}
	if z.MinimalVolume != nil && *z.MinimalVolume < 0 {
		return fmt.Errorf("%w: zone minimal volume must not be negative", ErrValidation)
	}
	return nil
}

// ValidateSurchargeDefinition checks a company or pump surcharge
// definition. pumpScoped restricts the allowed pricing modes to fixed and
// per-other-unit.
func ValidateSurchargeDefinition(name string, price float64, surchargeType SurchargeType, unitName *string, pumpScoped bool) error {
	if name == "" {
		return fmt.Errorf("%w: surcharge name is required", ErrValidation)
	}
	if !surchargeType.Valid() {
		return fmt.Errorf("%w: surcharge type %q is not allowed", ErrValidation, surchargeType)
	}
	if pumpScoped && surchargeType == SurchargeTypePerCubicMeter {
		return fmt.Errorf("%w: per cubic meter surcharges are not allowed on pump orders", ErrValidation)
	}
	if unitName != nil && surchargeType != SurchargeTypePerOtherUnit {
		return fmt.Errorf("%w: unit name is only allowed on per-other-unit surcharges", ErrValidation)
	}
	return nil
}

// ValidateOrderVolume rejects non-positive order volumes.
func ValidateOrderVolume(volume float64) error {
	if volume <= 0 {
		return fmt.Errorf("%w: order volume must be positive", ErrValidation)
	}
	return nil
}

// ValidateFacilitySettings checks the settings snapshot before it replaces
// the active one.
func ValidateFacilitySettings(s FacilitySettings) error {
	if s.VATRate < 0 || s.VATRate > 100 {
		return fmt.Errorf("%w: VAT rate must be between 0 and 100", ErrValidation)
	}
	if s.RoundingPrecision < 0 {
		return fmt.Errorf("%w: rounding precision must not be negative", ErrValidation)
	}
	return nil
}
