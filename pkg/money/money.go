// Package money provides currency rounding, VAT and formatting utilities for
// the storefront. Prices are stored net in SAR; display formatting also
// covers PKR and USD for the Urdu and English storefront locales.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// RoundHalfUp rounds value to the specified decimals using HALF-UP mode.
func RoundHalfUp(value float64, decimals int) float64 {
	f, _ := decimal.NewFromFloat(value).Round(int32(decimals)).Float64()
	return f
}

// GrossFromNet returns gross from net using given vat rate (e.g., 0.15).
func GrossFromNet(net, vatRate float64) float64 {
	gross := decimal.NewFromFloat(net).Mul(decimal.NewFromFloat(1 + vatRate))
	f, _ := gross.Round(2).Float64()
	return f
}

// VATFromNet returns the VAT portion for a net amount.
func VATFromNet(net, vatRate float64) float64 {
	vat := decimal.NewFromFloat(net).Mul(decimal.NewFromFloat(vatRate))
	f, _ := vat.Round(2).Float64()
	return f
}

// LineTotal returns unit price × quantity rounded to 2 decimals.
func LineTotal(unitPrice float64, qty int) float64 {
	total := decimal.NewFromFloat(unitPrice).Mul(decimal.NewFromInt(int64(qty)))
	f, _ := total.Round(2).Float64()
	return f
}

// Sum adds amounts without float accumulation drift.
func Sum(amounts ...float64) float64 {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(decimal.NewFromFloat(a))
	}
	f, _ := total.Round(2).Float64()
	return f
}

// currencySymbols maps ISO currency codes to display symbols.
var currencySymbols = map[string]string{
	"SAR": "ر.س",
	"PKR": "₨",
	"USD": "$",
}

// Format renders an amount with its currency symbol, e.g. "1,250.00 ر.س".
// Unknown currencies fall back to the ISO code.
func Format(amount float64, currency string) string {
	sym, ok := currencySymbols[currency]
	if !ok {
		sym = currency
	}
	return fmt.Sprintf("%s %s", group(decimal.NewFromFloat(amount).Round(2).StringFixed(2)), sym)
}

// group inserts thousands separators into a fixed-point decimal string.
func group(s string) string {
	neg := false
	if len(s) > 0 && s[0] == '-' {
		neg = true
		s = s[1:]
	}
	intPart, fracPart := s, ""
	for i := range s {
		if s[i] == '.' {
			intPart, fracPart = s[:i], s[i:]
			break
		}
	}
	if len(intPart) > 3 {
		var out []byte
		lead := len(intPart) % 3
		if lead > 0 {
			out = append(out, intPart[:lead]...)
		}
		for i := lead; i < len(intPart); i += 3 {
			if len(out) > 0 {
				out = append(out, ',')
			}
			out = append(out, intPart[i:i+3]...)
		}
		intPart = string(out)
	}
	if neg {
		return "-" + intPart + fracPart
	}
	return intPart + fracPart
}
