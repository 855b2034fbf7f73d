package domain

// SegmentLabel classifies a token's price behaviour within one early-life window.
type SegmentLabel string

// Segment label values, ordered roughly from most to least desirable.
const (
	SegmentBest    SegmentLabel = "best"
	SegmentGood    SegmentLabel = "good"
	SegmentMiddle  SegmentLabel = "middle"
	SegmentBad     SegmentLabel = "bad"
	SegmentRisk    SegmentLabel = "risk"
	SegmentFlat    SegmentLabel = "flat"
	SegmentUnknown SegmentLabel = "unknown"
)

// SegmentCount is the number of fixed early-life windows.
const SegmentCount = 3

// Valid reports whether l is one of the defined labels.
func (l SegmentLabel) Valid() bool {
	switch l {
	case SegmentBest, SegmentGood, SegmentMiddle, SegmentBad, SegmentRisk, SegmentFlat, SegmentUnknown:
		return true
	}
	return false
}

// Resolved reports whether the label has been computed for its window.
// A label is written once when the window end is reached and is never
// downgraded back to unknown.
func (l SegmentLabel) Resolved() bool {
	return l != SegmentUnknown && l != ""
}
