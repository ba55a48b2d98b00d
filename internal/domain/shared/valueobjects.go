package shared

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ══════════════════════════════════════════════════════════════════════════════
// CGPA
// ══════════════════════════════════════════════════════════════════════════════

// CGPA bounds.
const (
	MinCGPA = 0.0
	MaxCGPA = 10.0
)

// CGPA is a cumulative grade point average in [0, 10].
type CGPA float64

// IsValid reports whether the value is finite and within bounds.
func (c CGPA) IsValid() bool {
	f := float64(c)
	return !math.IsNaN(f) && !math.IsInf(f, 0) && f >= MinCGPA && f <= MaxCGPA
}

// Float64 returns the raw value.
func (c CGPA) Float64() float64 {
	return float64(c)
}

// String formats with the shortest representation that parses back to the same value.
func (c CGPA) String() string {
	return strconv.FormatFloat(float64(c), 'f', -1, 64)
}

// ParseCGPA parses a raw decimal cell. Non-numeric, hex, NaN, Inf and
// out-of-range values fail.
func ParseCGPA(raw string) (CGPA, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, NewValidationError("Cgpa", raw, "value is empty")
	}
	if !isDecimal(s) {
		return 0, NewValidationError("Cgpa", raw, "not a number")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, NewValidationError("Cgpa", raw, "not a number")
	}
	c := CGPA(f)
	if !c.IsValid() {
		return 0, NewValidationError("Cgpa", raw, fmt.Sprintf("must be within [%g, %g]", MinCGPA, MaxCGPA))
	}
	return c, nil
}

// isDecimal rejects the Go-only float syntax ParseFloat accepts: hex
// mantissas and digit separators.
func isDecimal(s string) bool {
	if strings.Contains(s, "_") {
		return false
	}
	body := strings.TrimLeft(s, "+-")
	return !strings.HasPrefix(body, "0x") && !strings.HasPrefix(body, "0X")
}

// ══════════════════════════════════════════════════════════════════════════════
// REGISTRATION ID
// ══════════════════════════════════════════════════════════════════════════════

// RegistrationID is an opaque registration number. It is never parsed as a
// number so leading zeros and formatting survive.
type RegistrationID string

// NewRegistrationID trims surrounding whitespace and rejects empty values.
func NewRegistrationID(raw string) (RegistrationID, error) {
	id := strings.TrimSpace(raw)
	if id == "" {
		return "", NewValidationError("Regd No.", raw, "value is empty")
	}
	return RegistrationID(id), nil
}

// String returns the ID text.
func (r RegistrationID) String() string {
	return string(r)
}

// ══════════════════════════════════════════════════════════════════════════════
// CGPA RANGE
// ══════════════════════════════════════════════════════════════════════════════

// CGPARange is an inclusive CGPA interval.
type CGPARange struct {
	Min CGPA
	Max CGPA
}

// NewCGPARange validates bounds and order.
func NewCGPARange(min, max float64) (CGPARange, error) {
	r := CGPARange{Min: CGPA(min), Max: CGPA(max)}
	if !r.Min.IsValid() {
		return CGPARange{}, NewValidationError("min", r.Min.String(), "must be within [0, 10]")
	}
	if !r.Max.IsValid() {
		return CGPARange{}, NewValidationError("max", r.Max.String(), "must be within [0, 10]")
	}
	if r.Min > r.Max {
		return CGPARange{}, NewValidationError("min", r.Min.String(), "must not exceed max")
	}
	return r, nil
}

// Contains reports whether c lies within the range, bounds included.
func (r CGPARange) Contains(c CGPA) bool {
	return c >= r.Min && c <= r.Max
}

// String returns "[min, max]".
func (r CGPARange) String() string {
	return fmt.Sprintf("[%s, %s]", r.Min, r.Max)
}
