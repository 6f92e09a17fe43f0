package stcourier

import (
	"strings"

	"golang.org/x/text/cases"
)

var (
	folder      = cases.Fold()
	stateTokens = []string{"tamil nadu", "tamilnadu", "tn"}
)

// IsEligible reports whether the carrier's booking API serves the shipping state. Matching is a
// case-folded substring test on the trimmed state name.
func IsEligible(state string) bool {
	normalized := folder.String(strings.TrimSpace(state))
	if normalized == "" {
		return false
	}
	for _, token := range stateTokens {
		if strings.Contains(normalized, token) {
			return true
		}
	}
	return false
}
