package amount

import (
	"math/big"
	"strings"
)

// ProtocolDecimals is the protocol-wide exponent: on-chain amounts are
// integers denominated in 10^-6 of the display unit ("micro" units).
const ProtocolDecimals = 6

// DustThreshold is the micro-unit floor below which a balance is treated
// as zero. Scaled-balance accounting on chain can leave residues of a few
// micro-units after a full withdrawal; those are not real positions.
const DustThreshold = 100

var ten = big.NewInt(10)

// parseMicro parses a decimal-string integer amount. Returns false for
// anything that is not a plain non-negative integer (signs, exponents,
// separators, empty input).
func parseMicro(micro string) (*big.Int, bool) {
	s := strings.TrimSpace(micro)
	if s == "" {
		return nil, false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return nil, false
		}
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, false
	}
	return v, true
}

// pow10 returns 10^n as a big.Int. n <= 0 yields 1.
func pow10(n int) *big.Int {
	if n <= 0 {
		return big.NewInt(1)
	}
	return new(big.Int).Exp(ten, big.NewInt(int64(n)), nil)
}

// ToDisplay converts a micro-unit integer string into a display-precision
// decimal string. The conversion is lossless: every micro-unit digit is
// preserved, with trailing fractional zeros trimmed. Malformed or negative
// input yields "0".
func ToDisplay(micro string, decimals int) string {
	v, ok := parseMicro(micro)
	if !ok {
		return "0"
	}
	if decimals <= 0 {
		return v.String()
	}

	quo, rem := new(big.Int).QuoRem(v, pow10(decimals), new(big.Int))
	if rem.Sign() == 0 {
		return quo.String()
	}

	frac := rem.String()
	for len(frac) < decimals {
		frac = "0" + frac
	}
	frac = strings.TrimRight(frac, "0")

	return quo.String() + "." + frac
}

// ToMicro converts a display-precision decimal string into a micro-unit
// integer string. Fractional digits beyond the exponent are truncated
// toward zero, never rounded up, so a transfer is never over-credited.
// Malformed, negative, or empty input yields "0".
func ToMicro(display string, decimals int) string {
	s := strings.TrimSpace(display)
	if s == "" {
		return "0"
	}

	intPart := s
	fracPart := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart = s[:i]
		fracPart = s[i+1:]
		if strings.IndexByte(fracPart, '.') >= 0 {
			return "0"
		}
	}
	if intPart == "" && fracPart == "" {
		return "0"
	}
	for _, c := range intPart + fracPart {
		if c < '0' || c > '9' {
			return "0"
		}
	}

	if decimals < 0 {
		decimals = 0
	}
	// Floor: drop fractional digits beyond the exponent.
	if len(fracPart) > decimals {
		fracPart = fracPart[:decimals]
	}
	for len(fracPart) < decimals {
		fracPart += "0"
	}

	v, ok := new(big.Int).SetString(intPart+fracPart, 10)
	if !ok {
		// intPart and fracPart can both be empty only when s == "."
		return "0"
	}
	return v.String()
}

// ToFloat converts a micro-unit string to a float64 display value. Only for
// ratio and rendering math (LTV, health factor, chart axes) — never for
// amounts that travel back to the chain, which stay decimal strings
// end to end. Malformed input yields 0.
func ToFloat(micro string, decimals int) float64 {
	v, ok := parseMicro(micro)
	if !ok {
		return 0
	}
	r := new(big.Rat).SetFrac(v, pow10(decimals))
	f, _ := r.Float64()
	return f
}

// ExceedsDust reports whether a micro-unit amount is above the dust
// threshold, i.e. large enough to count as a real balance.
func ExceedsDust(micro string, dust int64) bool {
	v, ok := parseMicro(micro)
	if !ok {
		return false
	}
	return v.Cmp(big.NewInt(dust)) > 0
}

// IsZero reports whether a micro-unit amount parses to zero. Malformed
// input counts as zero, matching the ToDisplay/ToMicro fallback.
func IsZero(micro string) bool {
	v, ok := parseMicro(micro)
	if !ok {
		return true
	}
	return v.Sign() == 0
}

// Valid reports whether the string is a well-formed positive micro amount,
// suitable for gating a transaction. Zero is not a valid transfer amount.
func Valid(micro string) bool {
	v, ok := parseMicro(micro)
	return ok && v.Sign() > 0
}
