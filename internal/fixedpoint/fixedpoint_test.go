package fixedpoint

import (
	"math/big"
	"testing"
)

func TestParseMantissa(t *testing.T) {
	got, err := ParseMantissa("0.5")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want, _ := new(big.Int).SetString("500000000000000000", 10)
	if got.Cmp(want) != 0 {
		t.Fatalf("mantissa mismatch: %s != %s", got, want)
	}

	got, err = ParseMantissa("1")
	if err != nil {
		t.Fatalf("parse one: %v", err)
	}
	if got.Cmp(One()) != 0 {
		t.Fatalf("one mismatch: %s", got)
	}

	got, err = ParseMantissa("")
	if err != nil || got.Sign() != 0 {
		t.Fatalf("empty should parse to zero: %v %v", got, err)
	}
}

func TestParseMantissaInvalid(t *testing.T) {
	for _, input := range []string{"-0.1", "abc", "0.0000000000000000001"} {
		if _, err := ParseMantissa(input); err == nil {
			t.Fatalf("expected error for %q", input)
		}
	}
}

func TestMulMantissaFloors(t *testing.T) {
	half, _ := ParseMantissa("0.5")
	if got := MulMantissa(big.NewInt(101), half); got.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("expected 50, got %s", got)
	}
	if got := MulMantissa(nil, half); got.Sign() != 0 {
		t.Fatalf("nil amount should be zero")
	}
}

func TestFormat(t *testing.T) {
	if got := FormatAmount(big.NewInt(1500), 3); got != "1.500" {
		t.Fatalf("format amount: %s", got)
	}
	if got := FormatAmount(big.NewInt(42), 0); got != "42" {
		t.Fatalf("format zero decimals: %s", got)
	}
	m, _ := ParseMantissa("0.25")
	if got := FormatMantissa(m); got != "0.25" {
		t.Fatalf("format mantissa: %s", got)
	}
}

func TestParseAmount(t *testing.T) {
	got, err := ParseAmount("750")
	if err != nil || got.Cmp(big.NewInt(750)) != 0 {
		t.Fatalf("parse amount: %v %v", got, err)
	}
	if _, err := ParseAmount("-1"); err == nil {
		t.Fatalf("expected error for negative amount")
	}
	if _, err := ParseAmount("1.5"); err == nil {
		t.Fatalf("expected error for fractional amount")
	}
}
