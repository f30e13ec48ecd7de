package domain

import (
	"math"
	"strings"
	"time"
)

// Reason markers shared by the reconciler and the UI.
const (
	MarkerCorrected = "düzeltildi"
	MarkerRemoved   = "kaldırıldı"
)

type CheckOutcome string

const (
	CheckVerified   CheckOutcome = "verified"
	CheckCorrected  CheckOutcome = "corrected"
	CheckFiltered   CheckOutcome = "filtered"
	CheckUnverified CheckOutcome = "unverified"
)

// ValidationCheck records one cross-check of a single fact.
type ValidationCheck struct {
	Field    string `json:"field"`
	Verified bool   `json:"verified"`
	Reason   string `json:"reason"`
}

// Outcome classifies the check the same way the UI does, from the reason text.
func (c ValidationCheck) Outcome() CheckOutcome {
	switch {
	case c.Verified:
		return CheckVerified
	case strings.Contains(c.Reason, MarkerCorrected):
		return CheckCorrected
	case strings.Contains(c.Reason, MarkerRemoved):
		return CheckFiltered
	default:
		return CheckUnverified
	}
}

type ValidationSummary struct {
	Verified          int               `json:"verified"`
	Unverified        int               `json:"unverified"`
	Filtered          int               `json:"filtered"`
	TotalChecks       int               `json:"totalChecks"`
	VerificationScore int               `json:"verificationScore"`
	Duration          time.Duration     `json:"duration"`
	Checks            []ValidationCheck `json:"checks"`
}

// NewValidationSummary derives the counts and score from checks. It returns
// nil when there is nothing to report. Corrected checks count as unverified.
func NewValidationSummary(checks []ValidationCheck, d time.Duration) *ValidationSummary {
	if len(checks) == 0 {
		return nil
	}
	s := &ValidationSummary{
		TotalChecks: len(checks),
		Duration:    d,
		Checks:      append([]ValidationCheck(nil), checks...),
	}
	for _, c := range checks {
		switch c.Outcome() {
		case CheckVerified:
			s.Verified++
		case CheckFiltered:
			s.Filtered++
		default:
			s.Unverified++
		}
	}
	s.VerificationScore = int(math.Round(100 * float64(s.Verified) / float64(s.TotalChecks)))
	return s
}

// Count returns how many checks ended with the given outcome.
func (s *ValidationSummary) Count(o CheckOutcome) int {
	if s == nil {
		return 0
	}
	n := 0
	for _, c := range s.Checks {
		if c.Outcome() == o {
			n++
		}
	}
	return n
}
