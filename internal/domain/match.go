package domain

import "math"

// Region is a face rectangle in probe pixel coordinates.
type Region struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// MatchResult is the outcome of identifying one probe against the gallery.
// Label is set only when Matched is true. Distance is the best verified
// distance seen, or +Inf when no entry verified.
type MatchResult struct {
	Matched  bool    `json:"matched"`
	Label    string  `json:"label,omitempty"`
	Distance float64 `json:"distance"`
	Region   Region  `json:"region"`
	Compared int     `json:"compared"`
	Skipped  int     `json:"skipped"`
}

// NoMatch returns the empty-handed result.
func NoMatch() *MatchResult {
	return &MatchResult{Distance: math.Inf(1)}
}

// CheckInOutcome is what one capture cycle produced.
type CheckInOutcome struct {
	Match    *MatchResult      `json:"match"`
	Recorded bool              `json:"recorded"`
	Record   *AttendanceRecord `json:"record,omitempty"`
}

// OfferEnrollment reports whether the operator should be asked to register.
func (o *CheckInOutcome) OfferEnrollment() bool {
	return o.Match == nil || !o.Match.Matched
}
