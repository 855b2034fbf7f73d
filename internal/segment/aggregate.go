package segment

import "solana-entry-engine/internal/domain"

// AllowEntry turns the ordered window labels into a binary entry decision.
//
// Decision table, evaluated in order:
//  1. Any label in {unknown, bad, risk, flat} rejects.
//  2. Two or more middle labels reject, always.
//  3. All labels in {best, good} accept.
//  4. With at least three labels, exactly one middle that sits in window 1
//     or 2 (never the last) while the last window is best or good accepts:
//     an early dip with confirmed recovery.
//  5. Everything else rejects.
func AllowEntry(labels []domain.SegmentLabel) bool {
	if len(labels) == 0 {
		return false
	}

	middles := 0
	middleIdx := -1
	for i, l := range labels {
		switch l {
		case domain.SegmentBest, domain.SegmentGood:
			// qualifying
		case domain.SegmentMiddle:
			middles++
			middleIdx = i
		default:
			// unknown, bad, risk, flat: hard reject
			return false
		}
	}

	if middles >= 2 {
		return false
	}
	if middles == 0 {
		return true
	}

	// Exactly one middle: allowed only as an early dip with recovery
	// confirmed by the final window.
	if len(labels) < 3 {
		return false
	}
	last := labels[len(labels)-1]
	if middleIdx == len(labels)-1 {
		return false
	}
	return last == domain.SegmentBest || last == domain.SegmentGood
}
