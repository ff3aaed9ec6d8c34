package domain

import (
	"errors"
	"fmt"
	"math"
)

// ErrUnsupportedPriceType indicates a discount rule carries an unknown type.
// It signals corrupted data, not bad user input.
var ErrUnsupportedPriceType = errors.New("pricing: unsupported price type")

// ErrUnsupportedSurchargeType indicates a surcharge line carries an unknown
// pricing mode.
var ErrUnsupportedSurchargeType = errors.New("pricing: unsupported surcharge type")

// ApplyPriceType interprets a rule amount against a recipe base price.
// basePrice may be nil for absolute rules, which ignore it.
func ApplyPriceType(priceType PriceType, amount float64, basePrice *float64) (float64, error) {
	switch priceType {
	case PriceTypeAbsolute:
		return amount, nil
	case PriceTypeRelative:
		if basePrice == nil {
			return 0, fmt.Errorf("%w: relative rule without base price", ErrUnsupportedPriceType)
		}
		return *basePrice + amount, nil
	case PriceTypePercent:
		if basePrice == nil {
			return 0, fmt.Errorf("%w: percent rule without base price", ErrUnsupportedPriceType)
		}
		return *basePrice * amount / 100, nil
	case PriceTypeRelativePercent:
		if basePrice == nil {
			return 0, fmt.Errorf("%w: relative percent rule without base price", ErrUnsupportedPriceType)
		}
		return *basePrice * (100 + amount) / 100, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedPriceType, priceType)
	}
}

// SurchargeTotalResult reports the aggregated surcharge cost together with
// the names of items skipped because a required operand was missing.
type SurchargeTotalResult struct {
	Total   float64
	Skipped []string
}

// SurchargeItemTotal prices a single line item. volume is the order volume
// used by per-cubic-meter items; pass nil for pump orders, where that mode
// is invalid. A nil result with a nil error means the item has a missing
// operand and contributes nothing.
func SurchargeItemTotal(item SurchargeItem, volume *float64) (*float64, error) {
	switch item.Type {
	case SurchargeTypeFixed:
		total := item.Price
		return &total, nil
	case SurchargeTypePerOtherUnit:
		if item.Amount == nil {
			return nil, nil
		}
		total := item.Price * *item.Amount
		return &total, nil
	case SurchargeTypePerCubicMeter:
		if volume == nil {
			return nil, fmt.Errorf("%w: per cubic meter surcharge on volume-less order", ErrUnsupportedSurchargeType)
		}
		total := item.Price * *volume
		return &total, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedSurchargeType, item.Type)
	}
}

// SurchargeTotal sums the line items of an order. Items missing an operand
// degrade to zero and are listed in Skipped instead of failing the sum.
func SurchargeTotal(items []SurchargeItem, volume *float64) (SurchargeTotalResult, error) {
	var result SurchargeTotalResult
	for _, item := range items {
		itemTotal, err := SurchargeItemTotal(item, volume)
		if err != nil {
			return SurchargeTotalResult{}, err
		}
		if itemTotal == nil {
			result.Skipped = append(result.Skipped, item.Name)
			continue
		}
		result.Total += *itemTotal
	}
	return result, nil
}

// OrderPricing is the computed price breakdown of an order. Component
// pointers stay nil when the component is unknowable; unknown components
// count as zero only in Total.
type OrderPricing struct {
	PriceConcrete      *float64
	PriceTransport     *float64
	PriceSurcharges    *float64
	SkippedSurcharges  []string
	DistanceDriven     *float64
	Total              float64
	TotalWithVAT       float64
	RoundingCorrection float64
	GrandTotal         float64
}

// RoundHalfAwayFromZero rounds to the given number of decimal places with
// ties going away from zero, matching invoice rounding rules rather than
// banker's rounding.
func RoundHalfAwayFromZero(value float64, places int) float64 {
	shift := math.Pow(10, float64(places))
	return math.Round(value*shift) / shift
}

// FinalizeTotals fills the VAT, rounding correction and grand total fields
// from Total using the facility settings. The correction is kept as a
// separate auditable amount.
func (p *OrderPricing) FinalizeTotals(settings FacilitySettings) {
	p.TotalWithVAT = p.Total * (1 + float64(settings.VATRate)/100)
	rounded := RoundHalfAwayFromZero(p.TotalWithVAT, settings.RoundingPrecision)
	p.RoundingCorrection = rounded - p.TotalWithVAT
	p.GrandTotal = p.TotalWithVAT + p.RoundingCorrection
}
