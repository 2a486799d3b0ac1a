package encoding

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestTruncate(t *testing.T) {
	cases := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 32, "short"},
		{"exactly-eight", 13, "exactly-eight"},
		{"a very long product name here", 12, "a very lo..."},
		{"abcdef", 3, "abc"},
		{"abcdef", 0, ""},
		{"abcdef", -1, ""},
	}
	for _, c := range cases {
		got := Truncate(c.in, c.max)
		if got != c.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", c.in, c.max, got, c.want)
		}
		if c.max >= 0 && len([]rune(got)) > c.max {
			t.Errorf("Truncate(%q, %d) exceeds bound: %q", c.in, c.max, got)
		}
	}
}

func TestPadWidth(t *testing.T) {
	for _, align := range []Alignment{AlignLeft, AlignCenter, AlignRight} {
		got := Pad("abc", 10, align)
		if len([]rune(got)) != 10 {
			t.Errorf("Pad align=%d produced width %d", align, len(got))
		}
	}
	if got := Pad("abc", 10, AlignRight); got != "       abc" {
		t.Errorf("right pad: %q", got)
	}
	if got := Pad("abc", 10, AlignLeft); got != "abc       " {
		t.Errorf("left pad: %q", got)
	}
}

func TestTwoColumnExactWidth(t *testing.T) {
	cases := []struct {
		left, right string
		width       int
	}{
		{"Subtotal", "10000", 32},
		{"a quite long label that overflows", "999", 32},
		{"", "0", 32},
		{"x", "1", 4},
	}
	for _, c := range cases {
		got := TwoColumn(c.left, c.right, c.width)
		if len([]rune(got)) != c.width {
			t.Errorf("TwoColumn(%q, %q, %d) width = %d: %q",
				c.left, c.right, c.width, len([]rune(got)), got)
		}
	}
}

func TestTwoColumnRightFlush(t *testing.T) {
	got := TwoColumn("TOTAL", "11000", 32)
	want := "TOTAL                      11000"
	if got != want {
		t.Errorf("got %q want %q", got, want)
	}
}

func TestTwoColumnValueFillsLine(t *testing.T) {
	got := TwoColumn("ignored", "123456", 6)
	if got != "123456" {
		t.Errorf("got %q", got)
	}
}

func TestMoney(t *testing.T) {
	cases := []struct {
		amount   string
		currency string
		want     string
	}{
		{"4500", "CRC", "₡4500"},
		{"11000", "CRC", "₡11000"},
		{"10.5", "USD", "$11"},
		{"20", "XXX", "XXX 20"},
	}
	for _, c := range cases {
		d, _ := decimal.NewFromString(c.amount)
		if got := Money(d, c.currency); got != c.want {
			t.Errorf("Money(%s, %s) = %q, want %q", c.amount, c.currency, got, c.want)
		}
	}
}

func TestSignedMoney(t *testing.T) {
	d := decimal.NewFromInt(-1000)
	if got := SignedMoney(d, "CRC"); got != "-₡1000" {
		t.Errorf("got %q", got)
	}
}
