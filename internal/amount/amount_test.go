package amount

import (
	"encoding/json"
	"errors"
	"math/big"
	"testing"
)

func TestNormalizeEncodings(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   any
		want string
	}{
		{name: "big int pointer", in: big.NewInt(151), want: "151"},
		{name: "big int value", in: *big.NewInt(42), want: "42"},
		{name: "decimal string", in: "1000000000000000000", want: "1000000000000000000"},
		{name: "hex string", in: "0xde0b6b3a7640000", want: "1000000000000000000"},
		{name: "uppercase hex prefix", in: "0Xff", want: "255"},
		{name: "padded string", in: "  97  ", want: "97"},
		{name: "leading zeros", in: "000151", want: "151"},
		{name: "json number", in: json.Number("12345"), want: "12345"},
		{name: "float64 integer", in: float64(300), want: "300"},
		{name: "int", in: 7, want: "7"},
		{name: "int64", in: int64(9), want: "9"},
		{name: "uint64 max", in: uint64(18446744073709551615), want: "18446744073709551615"},
		{name: "zero", in: "0", want: "0"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := Normalize(tc.in)
			if err != nil {
				t.Fatalf("Normalize(%v): %v", tc.in, err)
			}
			if got != tc.want {
				t.Fatalf("Normalize(%v) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []any{"151", "0x97", big.NewInt(1234567890), float64(2048), json.Number("99")}
	for _, in := range inputs {
		first, err := Normalize(in)
		if err != nil {
			t.Fatalf("Normalize(%v): %v", in, err)
		}
		second, err := Normalize(first)
		if err != nil {
			t.Fatalf("Normalize(%q): %v", first, err)
		}
		if second != first {
			t.Fatalf("not idempotent: %q -> %q", first, second)
		}
	}
}

func TestNormalizeRejections(t *testing.T) {
	t.Parallel()

	overMax := new(big.Int).Lsh(big.NewInt(1), 256)

	cases := []struct {
		name string
		in   any
		want error
	}{
		{name: "negative string", in: "-5", want: ErrNegative},
		{name: "negative int", in: -5, want: ErrNegative},
		{name: "fractional float", in: 1.5, want: ErrNotInteger},
		{name: "float past 2^53", in: float64(1 << 54), want: ErrNotInteger},
		{name: "garbage string", in: "12abc", want: ErrNotInteger},
		{name: "over uint256", in: overMax, want: ErrOutOfRange},
		{name: "bool", in: true, want: ErrUnsupported},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Normalize(tc.in)
			if !errors.Is(err, tc.want) {
				t.Fatalf("Normalize(%v) err = %v, want %v", tc.in, err, tc.want)
			}
		})
	}

	if _, err := Normalize(nil); err == nil {
		t.Fatalf("expected error for nil")
	}
	if _, err := Normalize(""); err == nil {
		t.Fatalf("expected error for empty string")
	}
	if _, err := Normalize("0x"); err == nil {
		t.Fatalf("expected error for bare 0x")
	}
}

func TestNormalizeMaxUint256Boundary(t *testing.T) {
	t.Parallel()

	max := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	got, err := Normalize(max)
	if err != nil {
		t.Fatalf("Normalize(2^256-1): %v", err)
	}
	if got != max.String() {
		t.Fatalf("Normalize(2^256-1) = %q", got)
	}
}

func TestBigRoundTrip(t *testing.T) {
	t.Parallel()

	n, err := Big("151")
	if err != nil {
		t.Fatalf("Big: %v", err)
	}
	if n.Int64() != 151 {
		t.Fatalf("Big(151) = %s", n)
	}
	if _, err := Big("x"); err == nil {
		t.Fatalf("expected error for garbage input")
	}
	if _, err := Big("-1"); !errors.Is(err, ErrNegative) {
		t.Fatalf("expected ErrNegative, got %v", err)
	}
}

func TestMustBigPanics(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	MustBig("not-a-number")
}

func TestToDisplay(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		amount     *big.Int
		decimals   uint8
		multiplier int64
		want       string
	}{
		{name: "nil", amount: nil, decimals: 18, want: "0"},
		{name: "one ether", amount: big.NewInt(1_000_000_000_000_000_000), decimals: 18, want: "1"},
		{name: "fractional", amount: big.NewInt(1_500_000), decimals: 6, want: "1.5"},
		{name: "display multiplier", amount: big.NewInt(5), decimals: 12, multiplier: 1_000_000, want: "0.000005"},
		{name: "zero decimals", amount: big.NewInt(7), decimals: 0, want: "7"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := ToDisplay(tc.amount, tc.decimals, tc.multiplier); got != tc.want {
				t.Fatalf("ToDisplay = %q, want %q", got, tc.want)
			}
		})
	}
}
