package gradebook

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// methodTolerance is the percentage-point distance within which a recomputed
// category percent is considered to agree with the host's displayed value.
const methodTolerance = 0.1

var (
	leadingNumber = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)`)
	firstNumber   = regexp.MustCompile(`\d+(\.\d+)?`)
	anyNumber     = regexp.MustCompile(`-?\d+(\.\d+)?`)
)

func numbersNearlyMatch(a, b, tolerance float64) bool {
	return math.Abs(a-b) < tolerance
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// ratioPercent applies the aggregate edge-case ordering: nothing gradable,
// extra-credit-only denominator, zero numerator, then the plain ratio.
func ratioPercent(points, maxPoints float64) *float64 {
	switch {
	case points == 0 && maxPoints == 0:
		return nil
	case maxPoints == 0:
		return ptr(math.Inf(1))
	case points == 0:
		return ptr(0.0)
	}
	return ptr(points * 100 / maxPoints)
}

func isExtraCredit(p *float64) bool {
	return p != nil && math.IsInf(*p, 1)
}

// parseLeadingFloat mirrors a lenient "read the number at the start" parse:
// "9.5 pts" yields 9.5 while "pts" fails.
func parseLeadingFloat(text string) (float64, bool) {
	match := leadingNumber.FindString(strings.TrimSpace(text))
	if match == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(match, 64)
	if err != nil || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// parseFirstNumber extracts the first unsigned number, as in "/ 10" or "(40%)".
func parseFirstNumber(text string) (float64, bool) {
	match := firstNumber.FindString(text)
	if match == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// parseDisplayedPercent reads the first decimal number anywhere in a displayed
// grade such as "87.5%" or "B+ (87.5%)".
func parseDisplayedPercent(text string) (float64, bool) {
	match := anyNumber.FindString(text)
	if match == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func formatNumber(v float64) string {
	if math.IsInf(v, 1) {
		return "Infinity"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return "—"
	}
	return formatNumber(*v)
}

func ptr[T any](v T) *T {
	return &v
}

func valueOr[T any](v *T, fallback T) T {
	if v == nil {
		return fallback
	}
	return *v
}
