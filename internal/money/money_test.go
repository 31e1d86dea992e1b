package money

import (
	"testing"

	"github.com/shopspring/decimal"

	"stellarsignals/internal/errs"
)

func TestParse_Valid(t *testing.T) {
	d, err := Parse("1000.5")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if got := Format(d); got != "1000.50000000" {
		t.Fatalf("got=%q", got)
	}
}

func TestParse_Malformed(t *testing.T) {
	for _, in := range []string{"", "abc", "10.0.0", "1e"} {
		if _, err := Parse(in); !errs.IsInvalidArgument(err) {
			t.Fatalf("input=%q err=%v want ErrInvalidArgument", in, err)
		}
	}
}

func TestApplyPercent_GoldShare(t *testing.T) {
	base := decimal.NewFromInt(1000)
	pct := decimal.NewFromInt(8)
	got := ApplyPercent(base, pct)
	if Format(got) != "80.00000000" {
		t.Fatalf("got=%q want 80.00000000", Format(got))
	}
}

func TestApplyPercent_NoFloatDrift(t *testing.T) {
	// 0.1% of 123.456789 must be exact to 8 digits, not a float approximation.
	base, _ := Parse("123.456789")
	pct, _ := Parse("0.1")
	if got := Format(ApplyPercent(base, pct)); got != "0.12345679" {
		t.Fatalf("got=%q want 0.12345679", got)
	}
}

func TestSum(t *testing.T) {
	a, _ := Parse("80")
	b, _ := Parse("20")
	if got := Format(Sum(a, b)); got != "100.00000000" {
		t.Fatalf("got=%q", got)
	}
}
