// Package amount canonicalizes the numeric encodings RPC providers return
// for token amounts. Depending on the provider and field, an amount may
// arrive as a *big.Int, a 0x-prefixed hex string, a decimal string, or a
// plain JSON number; everything downstream operates on one canonical
// decimal-string form.
package amount

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"
)

var (
	ErrNotInteger    = errors.New("amount: not an integer")
	ErrNegative      = errors.New("amount: negative")
	ErrUnsupported   = errors.New("amount: unsupported encoding")
	ErrOutOfRange    = errors.New("amount: exceeds 256 bits")
	errEmpty       = errors.New("amount: empty value")

	maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
)

const (
	maxSafeFloatInt  = float64(1 << 53)
	displayPrecision = 6
)

// Normalize converts v to a canonical decimal string. It is idempotent
// (normalizing a canonical string returns it unchanged) and lossless for
// integers up to 256 bits. Negative and fractional values are rejected.
func Normalize(v any) (string, error) {
	switch x := v.(type) {
	case *big.Int:
		if x == nil {
			return "", errEmpty
		}
		return canonBig(x)
	case big.Int:
		return canonBig(&x)
	case string:
		return normalizeString(x)
	case fmt.Stringer:
		return normalizeString(x.String())
	case float64:
		return normalizeFloat(x)
	case float32:
		return normalizeFloat(float64(x))
	case int:
		return canonBig(big.NewInt(int64(x)))
	case int64:
		return canonBig(big.NewInt(x))
	case uint64:
		return canonBig(new(big.Int).SetUint64(x))
	case nil:
		return "", errEmpty
	default:
		return "", fmt.Errorf("%w: %T", ErrUnsupported, v)
	}
}

func normalizeString(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", errEmpty
	}
	if strings.HasPrefix(s, "-") {
		return "", fmt.Errorf("%w: %s", ErrNegative, s)
	}
	base := 10
	digits := s
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		base = 16
		digits = s[2:]
		if digits == "" {
			return "", errEmpty
		}
	}
	n, ok := new(big.Int).SetString(digits, base)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrNotInteger, s)
	}
	return canonBig(n)
}

func normalizeFloat(f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("%w: %v", ErrNotInteger, f)
	}
	if f < 0 {
		return "", fmt.Errorf("%w: %v", ErrNegative, f)
	}
	if f != math.Trunc(f) {
		return "", fmt.Errorf("%w: %v", ErrNotInteger, f)
	}
	if f >= maxSafeFloatInt {
		// Above 2^53 a float64 no longer identifies one integer.
		return "", fmt.Errorf("%w: float %v beyond exact integer range", ErrNotInteger, f)
	}
	return canonBig(big.NewInt(int64(f)))
}

func canonBig(n *big.Int) (string, error) {
	if n.Sign() < 0 {
		return "", fmt.Errorf("%w: %s", ErrNegative, n)
	}
	if n.Cmp(maxUint256) > 0 {
		return "", fmt.Errorf("%w: %s", ErrOutOfRange, n)
	}
	return n.String(), nil
}

// Big parses a canonical decimal string back into a big.Int.
func Big(s string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotInteger, s)
	}
	if n.Sign() < 0 {
		return nil, fmt.Errorf("%w: %q", ErrNegative, s)
	}
	return n, nil
}

// MustBig is Big for trusted canonical inputs; it panics on malformed input.
func MustBig(s string) *big.Int {
	n, err := Big(s)
	if err != nil {
		panic(err)
	}
	return n
}

// ToDisplay renders smallest-unit amount for humans. displayMultiplier is the
// cosmetic scaling factor from the token config; it is applied here and
// nowhere else.
func ToDisplay(amount *big.Int, decimals uint8, displayMultiplier int64) string {
	if amount == nil {
		return "0"
	}
	scaled := new(big.Float).SetInt(amount)
	scaled.Quo(scaled, new(big.Float).SetInt(pow10(int(decimals))))
	if displayMultiplier > 1 {
		scaled.Mul(scaled, new(big.Float).SetInt64(displayMultiplier))
	}
	return strings.TrimRight(strings.TrimRight(scaled.Text('f', displayPrecision), "0"), ".")
}

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}
