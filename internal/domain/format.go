package domain

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// AmountFormatter renders monetary amounts for endpoint payloads and
// printouts using the facility locale and currency symbol.
type AmountFormatter struct {
	printer *message.Printer
	symbol  string
	scale   int
}

// NewAmountFormatter builds a formatter for the given BCP 47 locale tag.
// Unknown tags fall back to English formatting.
func NewAmountFormatter(locale string, settings FacilitySettings) *AmountFormatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	scale := settings.RoundingPrecision
	if scale < 2 {
		scale = 2
	}
	return &AmountFormatter{
		printer: message.NewPrinter(tag),
		symbol:  settings.CurrencySymbol,
		scale:   scale,
	}
}

// Format renders an amount with grouping separators and the currency
// symbol, e.g. "1 210,48 Kč" under a Czech locale.
func (f *AmountFormatter) Format(amount float64) string {
	formatted := f.printer.Sprint(number.Decimal(amount,
		number.MinFractionDigits(f.scale),
		number.MaxFractionDigits(f.scale),
	))
	if f.symbol == "" {
		return formatted
	}
	return formatted + " " + f.symbol
}

// FormatOptional renders an amount pointer, using placeholder for nil so
// unknown components stay visually distinct from zero.
func (f *AmountFormatter) FormatOptional(amount *float64, placeholder string) string {
	if amount == nil {
		return placeholder
	}
	return f.Format(*amount)
}

// NormalizeRegistration uppercases and trims a vehicle registration number
// so uniqueness checks are case-insensitive.
func NormalizeRegistration(reg string) string {
	return strings.ToUpper(strings.TrimSpace(reg))
}
