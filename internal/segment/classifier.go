package segment

import (
	"errors"

	"solana-entry-engine/internal/config"
	"solana-entry-engine/internal/domain"
	"solana-entry-engine/internal/features"
)

// Classifier labels the three fixed early-life windows of a token.
type Classifier struct {
	art       *Artifact
	windows   [domain.SegmentCount]config.SegmentWindow
	extractor *features.Extractor
}

// NewClassifier creates a classifier from a validated artifact.
// Segment windows can be shorter than the global feature horizons, so the
// per-window extractor only requires two points; horizons self-cap.
func NewClassifier(art *Artifact, windows [domain.SegmentCount]config.SegmentWindow, featCfg config.Features) *Classifier {
	return &Classifier{
		art:       art,
		windows:   windows,
		extractor: features.NewExtractor(featCfg, 2),
	}
}

// Windows returns the configured segment windows.
func (c *Classifier) Windows() [domain.SegmentCount]config.SegmentWindow {
	return c.windows
}

// LabelWindow classifies the points of a single window.
// Returns unknown (with no error) when the window holds fewer than two
// points; extraction errors propagate.
func (c *Classifier) LabelWindow(points []*domain.MetricPoint) (domain.SegmentLabel, error) {
	fv, err := c.extractor.Extract(points)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientHistory) {
			return domain.SegmentUnknown, nil
		}
		return domain.SegmentUnknown, err
	}
	return c.art.predict(fv.Cond), nil
}

// ResolveLabels fills in labels for every window whose end has been reached
// and whose label is still unknown. Already-resolved labels are never
// recomputed or downgraded. points must cover the token's history from
// second 0, ordered ascending. Returns whether any label changed.
func (c *Classifier) ResolveLabels(state *domain.TokenDecisionState, points []*domain.MetricPoint, nowIteration int64) (bool, error) {
	changed := false
	for i, w := range c.windows {
		if state.SegmentLabels[i].Resolved() {
			continue
		}
		if nowIteration < w.EndSec {
			continue // window not yet computable
		}

		var windowPoints []*domain.MetricPoint
		for _, p := range points {
			if p.Second >= w.StartSec && p.Second < w.EndSec {
				windowPoints = append(windowPoints, p)
			}
		}

		label, err := c.LabelWindow(windowPoints)
		if err != nil {
			return changed, err
		}
		if label.Resolved() {
			state.SegmentLabels[i] = label
			changed = true
		}
	}
	return changed, nil
}

// AllResolved reports whether every segment label has been computed.
func AllResolved(labels [domain.SegmentCount]domain.SegmentLabel) bool {
	for _, l := range labels {
		if !l.Resolved() {
			return false
		}
	}
	return true
}
