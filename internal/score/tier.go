// Package score maps similarity percentages onto display tiers.
package score

import (
	"fmt"
	"math"

	"github.com/abelbrown/codesim/internal/model"
)

// Tier is a discrete similarity band. Higher tiers mean more similar code.
type Tier int

const (
	VeryLow Tier = iota + 1
	Low
	Medium
	High
	VeryHigh
)

var labels = map[Tier]string{
	VeryLow:  "Very Low",
	Low:      "Low",
	Medium:   "Medium",
	High:     "High",
	VeryHigh: "Very High",
}

// Label is the human readable name of the tier.
func (t Tier) Label() string {
	if l, ok := labels[t]; ok {
		return l
	}
	return "Unknown"
}

// Weight is the visual emphasis, 1 (Very Low) to 5 (Very High), and 0
// for a tier Classify never returns. Palettes are indexed by it.
func (t Tier) Weight() int {
	if t < VeryLow || t > VeryHigh {
		return 0
	}
	return int(t)
}

func (t Tier) String() string { return t.Label() }

// Classify maps a score in [0, 100] to its tier. Anything outside that
// range, or NaN, is a contract violation by the service.
func Classify(similarity float64) (Tier, error) {
	if math.IsNaN(similarity) || similarity < 0 || similarity > 100 {
		return 0, &model.MalformedResponseError{
			Op:     "classify",
			Reason: fmt.Sprintf("similarity %v outside [0, 100]", similarity),
		}
	}
	switch {
	case similarity >= 80:
		return VeryHigh, nil
	case similarity >= 60:
		return High, nil
	case similarity >= 40:
		return Medium, nil
	case similarity >= 20:
		return Low, nil
	default:
		return VeryLow, nil
	}
}

// Passes reports whether similarity meets the minimum threshold.
// The service applies the threshold; the CLI summary uses this to flag
// results that slipped through.
func Passes(similarity, threshold float64) bool {
	return similarity >= threshold
}

// Format renders a score the way results are shown: two decimals and a
// percent sign.
func Format(similarity float64) string {
	return fmt.Sprintf("%.2f%%", similarity)
}
