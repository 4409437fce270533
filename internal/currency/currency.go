// Package currency converts between lovelace, the integer base unit of the
// Cardano settlement layer, and ADA, the display unit. All stored and
// transmitted amounts in this repository are lovelace int64 values; floating
// point only ever appears at the presentation boundary.
package currency

import (
	"math"
	"strconv"
	"strings"
)

const (
	// LovelacePerADA is the number of base units in one ADA.
	LovelacePerADA int64 = 1_000_000

	// MaxLovelace is the maximum ADA supply (45 billion ADA) in lovelace.
	// Amounts above this are rejected before persistence or wallet submission.
	MaxLovelace int64 = 45_000_000_000_000_000

	// Symbol is the ADA currency symbol.
	Symbol = "₳"
)

var pow10 = [...]int64{1, 10, 100, 1_000, 10_000, 100_000, 1_000_000}

// FormatLovelace renders a lovelace amount as an ADA string with the given
// number of fractional digits, e.g. FormatLovelace(2_500_000, 6) == "2.500000 ₳".
// Formatting is pure integer arithmetic so that every valid amount survives a
// format/parse round trip exactly; float64 cannot represent the upper end of
// the supply range.
func FormatLovelace(lovelace int64, decimals int) string {
	return formatADA(lovelace, decimals) + " " + Symbol
}

// FormatLovelacePlain is FormatLovelace without the currency symbol.
func FormatLovelacePlain(lovelace int64, decimals int) string {
	return formatADA(lovelace, decimals)
}

func formatADA(lovelace int64, decimals int) string {
	if decimals < 0 {
		decimals = 0
	}

	neg := lovelace < 0
	abs := lovelace
	if neg {
		abs = -abs
	}

	if decimals >= 6 {
		whole := abs / LovelacePerADA
		frac := pad(abs%LovelacePerADA, 6) + strings.Repeat("0", decimals-6)
		return sign(neg) + strconv.FormatInt(whole, 10) + "." + frac
	}

	// Round half away from zero to the requested precision.
	scale := pow10[6-decimals]
	scaled := (abs + scale/2) / scale
	if decimals == 0 {
		return sign(neg) + strconv.FormatInt(scaled, 10)
	}
	whole := scaled / pow10[decimals]
	frac := scaled % pow10[decimals]
	return sign(neg) + strconv.FormatInt(whole, 10) + "." + pad(frac, decimals)
}

// ToLovelace converts an ADA amount to lovelace, rounding half away from
// zero. Non-finite input yields zero rather than an error; callers must not
// treat a zero result as a parse failure signal.
func ToLovelace(ada float64) int64 {
	if math.IsNaN(ada) || math.IsInf(ada, 0) {
		return 0
	}
	return int64(math.Round(ada * float64(LovelacePerADA)))
}

// ParseADA parses an ADA display string ("10.5", "10.5 ADA", "10.500000 ₳")
// into lovelace. Parsing is integer arithmetic on the decimal digits; digits
// beyond the sixth fractional place round half away from zero. Unparseable
// input, including trailing garbage after the number, yields zero; a digit
// run too large for int64 saturates instead of wrapping.
func ParseADA(s string) int64 {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, Symbol)
	if n := len(s); n >= 3 && strings.EqualFold(s[n-3:], "ADA") {
		s = s[:n-3]
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	var whole int64
	i := 0
	sawDigit := false
	overflow := false
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		d := int64(s[i] - '0')
		if whole > (math.MaxInt64-d)/10 {
			overflow = true
		} else {
			whole = whole*10 + d
		}
		sawDigit = true
		i++
	}

	var frac int64
	fracDigits := 0
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			if fracDigits < 6 {
				frac = frac*10 + int64(s[i]-'0')
				fracDigits++
			} else if fracDigits == 6 {
				// The seventh digit decides the rounding direction.
				if s[i] >= '5' {
					frac++
				}
				fracDigits++
			}
			sawDigit = true
			i++
		}
	}
	if !sawDigit || i != len(s) {
		return 0
	}
	for fracDigits < 6 {
		frac *= 10
		fracDigits++
	}

	if overflow || whole > (math.MaxInt64-frac)/LovelacePerADA {
		if neg {
			return -math.MaxInt64
		}
		return math.MaxInt64
	}

	lovelace := whole*LovelacePerADA + frac
	if neg {
		lovelace = -lovelace
	}
	return lovelace
}

// IsValidLovelace reports whether an amount is inside the range every
// consumer accepts: non-negative and at most the maximum supply.
func IsValidLovelace(lovelace int64) bool {
	return lovelace >= 0 && lovelace <= MaxLovelace
}

// FormatCompact renders large amounts with K/M suffixes for dense display
// surfaces, falling back to the full six-digit form below a thousand ADA.
func FormatCompact(lovelace int64) string {
	ada := float64(lovelace) / float64(LovelacePerADA)
	switch {
	case ada >= 1_000_000:
		return strconv.FormatFloat(ada/1_000_000, 'f', 2, 64) + "M " + Symbol
	case ada >= 1_000:
		return strconv.FormatFloat(ada/1_000, 'f', 2, 64) + "K " + Symbol
	default:
		return FormatLovelace(lovelace, 6)
	}
}

func sign(neg bool) string {
	if neg {
		return "-"
	}
	return ""
}

func pad(v int64, width int) string {
	s := strconv.FormatInt(v, 10)
	for len(s) < width {
		s = "0" + s
	}
	return s
}
