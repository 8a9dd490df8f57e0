// Package pnr extracts reservation codes (PNRs) from raw scanner text.
//
// Extraction is two-tier. The boarding-pass rule looks for a
// SURNAME/GIVEN passenger segment followed by a 6-7 character code; when a
// scan is too degraded for that, the loose rule takes the first standalone
// run of 6-7 uppercase letters or digits. Neither rule validates the code,
// so any such token can be a false positive.
package pnr

import (
	"regexp"
	"strings"
)

// Tier identifies which rule produced a match.
type Tier int

const (
	TierNone Tier = iota
	TierBoardingPass
	TierLoose
)

func (t Tier) String() string {
	switch t {
	case TierBoardingPass:
		return "boarding_pass"
	case TierLoose:
		return "loose"
	default:
		return "none"
	}
}

var (
	// Optional BCBP format code (M1), passenger segment, whitespace, code.
	boardingPassPattern = regexp.MustCompile(`(?:^|\s)(?:M\d)?[A-Z]+/[A-Z][A-Z ]*?\s+([A-Z0-9]{6,7})(?:\s|$)`)

	// A run of exactly 6-7 code characters, not part of a longer run.
	loosePattern = regexp.MustCompile(`(?:^|[^A-Z0-9])([A-Z0-9]{6,7})(?:[^A-Z0-9]|$)`)
)

// Extract returns the reservation code found in raw, if any.
func Extract(raw string) (string, bool) {
	code, tier := ExtractTier(raw)
	return code, tier != TierNone
}

// ExtractTier is Extract that also reports the rule that matched.
func ExtractTier(raw string) (string, Tier) {
	raw = strings.TrimRight(raw, "\r\n")
	if m := boardingPassPattern.FindStringSubmatch(raw); m != nil {
		return m[1], TierBoardingPass
	}
	if m := loosePattern.FindStringSubmatch(raw); m != nil {
		return m[1], TierLoose
	}
	return "", TierNone
}
