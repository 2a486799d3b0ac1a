package encoding

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Alignment selects how Pad positions text inside its field.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignCenter
	AlignRight
)

const ellipsis = "..."

// Truncate shortens s to at most max characters, appending an ellipsis
// when text was dropped. The result is never longer than max.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= len(ellipsis) {
		return string(r[:max])
	}
	return string(r[:max-len(ellipsis)]) + ellipsis
}

// Pad fits s into a field of exactly width characters. Longer input
// is truncated, shorter input is padded with spaces on the side the
// alignment dictates.
func Pad(s string, width int, align Alignment) string {
	if width <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) > width {
		return Truncate(s, width)
	}
	gap := width - len(r)
	switch align {
	case AlignRight:
		return strings.Repeat(" ", gap) + s
	case AlignCenter:
		left := gap / 2
		return strings.Repeat(" ", left) + s + strings.Repeat(" ", gap-left)
	default:
		return s + strings.Repeat(" ", gap)
	}
}

// Center is shorthand for Pad with center alignment.
func Center(s string, width int) string {
	return Pad(s, width, AlignCenter)
}

// TwoColumn lays out a label and a value on one line of exactly width
// characters. The value keeps its full length and sits flush right;
// the label is truncated or padded to fill the remainder minus one
// separating space. A value as wide as the line takes the whole line.
func TwoColumn(left, right string, width int) string {
	if width <= 0 {
		return ""
	}
	rlen := len([]rune(right))
	if rlen >= width {
		return Truncate(right, width)
	}
	lwidth := width - rlen - 1
	return Pad(Truncate(left, lwidth), lwidth, AlignLeft) + " " + right
}

// currencySymbols maps ISO currency codes to the prefix printed before
// amounts. Unlisted codes fall back to the code itself.
var currencySymbols = map[string]string{
	"CRC": "₡",
	"USD": "$",
	"EUR": "€",
}

// Money formats an amount for printing: currency symbol, integer
// rounding, no thousands separators. Receipt amounts in colones carry
// no decimals.
func Money(amount decimal.Decimal, currency string) string {
	sym, ok := currencySymbols[currency]
	if !ok {
		sym = currency + " "
	}
	return sym + amount.Round(0).StringFixed(0)
}

// SignedMoney prefixes negative amounts with a minus sign outside the
// currency symbol, as discount lines print them.
func SignedMoney(amount decimal.Decimal, currency string) string {
	if amount.IsNegative() {
		return "-" + Money(amount.Neg(), currency)
	}
	return Money(amount, currency)
}
