package source

import (
	"strconv"
	"strings"
)

// ChildOption is one child market of a categorical market, reduced to what
// the ladder heuristic needs.
type ChildOption struct {
	Title  string
	Active bool
}

// LadderPolicy decides whether a categorical market's children form a
// "ladder" of nested or cumulative events (successive date or threshold
// cutoffs) rather than a mutually exclusive partition. Ladders break the
// sum-of-prices arbitrage premise — the children's payouts overlap, so the
// summed asks can sit far below $1 with no riskless bundle — and must be
// excluded at discovery time.
//
// The decision is a lexical heuristic over the parent and child titles,
// tuned to one provider's phrasing. It has known false negatives (undetected
// ladders pass through) and can exclude valid partitioned markets whose
// titles merely look ladder-like. That is an accepted limitation of the
// approach, not something the word lists can be extended out of.
type LadderPolicy struct {
	// ParentPhrases are comparison/temporal markers that must appear in the
	// parent title for a market to be considered at all.
	ParentPhrases []string
	// DateTokens are substrings that mark a child title as date-like.
	DateTokens []string
	// ThresholdMarks are symbols and words that mark a child title as a
	// numeric threshold.
	ThresholdMarks []string
	// MinMonotonicRun is the minimum number of children whose leading digit
	// runs must form a strictly monotonic sequence to count as a ladder.
	MinMonotonicRun int
}

// DefaultLadderPolicy returns the phrase and symbol lists tuned to
// opinion.trade market titles.
func DefaultLadderPolicy() LadderPolicy {
	return LadderPolicy{
		ParentPhrases: []string{
			" by ", " before ", " hit ", " price ",
			" above ", " below ", " over ", " under ",
			" at least ", " at most ", " or above ", " or below ",
		},
		DateTokens: []string{
			"jan", "feb", "mar", "apr", "may", "jun",
			"jul", "aug", "sep", "oct", "nov", "dec",
			"202", // year prefix; covers 2020s titles
		},
		ThresholdMarks: []string{
			"$", "%", ">", "<", "↑", "↓",
			"bps", "million", "billion",
			"m", "k", // bare magnitude letters, deliberately loose
		},
		MinMonotonicRun: 3,
	}
}

// IsLadder reports whether a categorical market looks like a ladder. Both
// conditions must hold: the parent title carries a comparison/temporal
// phrase, and the active, non-empty-titled children look like dates,
// thresholds, or a strictly monotonic numeric sequence.
func (p LadderPolicy) IsLadder(parentTitle string, children []ChildOption) bool {
	if len(children) < 2 {
		return false
	}

	parent := strings.ToLower(parentTitle)
	parentHint := false
	for _, phrase := range p.ParentPhrases {
		if strings.Contains(parent, phrase) {
			parentHint = true
			break
		}
	}
	if !parentHint {
		return false
	}

	var numericMarkers []int64
	hasDateLike := false
	hasThreshold := false

	for _, cm := range children {
		if !cm.Active {
			continue
		}
		title := strings.ToLower(strings.TrimSpace(cm.Title))
		if title == "" {
			continue
		}

		if !hasDateLike {
			for _, tok := range p.DateTokens {
				if strings.Contains(title, tok) {
					hasDateLike = true
					break
				}
			}
		}
		if !hasThreshold {
			for _, mark := range p.ThresholdMarks {
				if strings.Contains(title, mark) {
					hasThreshold = true
					break
				}
			}
		}

		if v, ok := leadingDigits(title); ok {
			numericMarkers = append(numericMarkers, v)
		}
	}

	return hasDateLike || hasThreshold || p.monotonic(numericMarkers)
}

// monotonic reports whether vals is long enough and entirely increasing or
// entirely decreasing. Sequences like 20/40/60 are the classic ladder shape.
func (p LadderPolicy) monotonic(vals []int64) bool {
	if len(vals) < p.MinMonotonicRun {
		return false
	}
	inc, dec := true, true
	for i := 1; i < len(vals); i++ {
		if vals[i] <= vals[i-1] {
			inc = false
		}
		if vals[i] >= vals[i-1] {
			dec = false
		}
	}
	return inc || dec
}

// leadingDigits extracts the first run of ASCII digits from s. Runs too long
// for an int64 (token-id-sized blobs) are discarded.
func leadingDigits(s string) (int64, bool) {
	var buf strings.Builder
	for _, ch := range s {
		if ch >= '0' && ch <= '9' {
			buf.WriteRune(ch)
		} else if buf.Len() > 0 {
			break
		}
	}
	if buf.Len() == 0 {
		return 0, false
	}
	v, err := strconv.ParseInt(buf.String(), 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
