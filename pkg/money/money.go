// Package money holds the currency helpers shared by reports, templates
// and imports. Amounts are shopspring decimals everywhere; formatting is
// the last step before display and parsed input goes straight back to a
// decimal, never through a float.
package money

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("money: invalid amount")

// Round normalizes v to cents, half up.
func Round(v decimal.Decimal) decimal.Decimal {
	return v.Round(2)
}

// FormatBRL renders v in Brazilian convention: R$ 1.234,56. Negative
// amounts carry a leading minus: -R$ 123,45.
func FormatBRL(v decimal.Decimal) string {
	s := v.Round(2).StringFixed(2)

	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}

	intPart, fracPart, _ := strings.Cut(s, ".")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteString("R$ ")
	writeGrouped(&b, intPart)
	b.WriteByte(',')
	b.WriteString(fracPart)
	return b.String()
}

func writeGrouped(b *strings.Builder, digits string) {
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
		if len(digits) > lead {
			b.WriteByte('.')
		}
	}
	for i := lead; i < len(digits); i += 3 {
		b.WriteString(digits[i : i+3])
		if i+3 < len(digits) {
			b.WriteByte('.')
		}
	}
}

// ParseBRL reads an amount as typed by users or exported by spreadsheets:
// "1.234,56", "1234,56", "R$ 1.234,56" and the plain machine form
// "1234.56". A lone dot is taken as the decimal separator.
func ParseBRL(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "R$")
	s = strings.TrimPrefix(s, "r$")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return decimal.Decimal{}, ErrInvalidAmount
	}

	hasComma := strings.Contains(s, ",")
	if hasComma {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	}

	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, ErrInvalidAmount
	}
	return v, nil
}
