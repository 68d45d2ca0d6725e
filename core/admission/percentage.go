package admission

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// CalcPercentage returns marks/total*100 with exactly 2 decimals, eg: ("425", "500") -> "85.00".
// Halves round away from zero: ("1", "800") -> "0.13".
// Returns "" if either value is not a number or total <= 0.
func CalcPercentage(marks, total string) string {
	m, ok := parseNumber(marks)
	if !ok {
		return ""
	}
	t, ok := parseNumber(total)
	if !ok || t <= 0 {
		return ""
	}
	return formatHundredths(m / t * 100)
}

// formatHundredths rounds the exact value of `x` to 2 decimals, halves away from zero.
// strconv rounds exact halves to even, eg: 0.125 -> "0.12".
func formatHundredths(x float64) string {
	sign := ""
	if x < 0 {
		sign = "-"
		x = -x
	}
	r := new(big.Rat).SetFloat64(x)
	r.Mul(r, big.NewRat(100, 1))
	r.Add(r, big.NewRat(1, 2))
	n := new(big.Int).Quo(r.Num(), r.Denom()) // floor, r > 0

	units, cents := new(big.Int).QuoRem(n, big.NewInt(100), new(big.Int))
	return fmt.Sprintf("%s%s.%02d", sign, units.String(), cents.Int64())
}

func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
