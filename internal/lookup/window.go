// Package lookup provides deterministic scans over ordered metric windows.
package lookup

import (
	"errors"

	"solana-entry-engine/internal/domain"
)

// ErrNoData is returned when a lookup runs against an empty window.
var ErrNoData = errors.New("no metric data available")

// PriceAt returns the price at the last second <= target.
// If every recorded second is after target, the first available price is
// returned. Returns ErrNoData for an empty window.
func PriceAt(target int64, points []*domain.MetricPoint) (float64, error) {
	if len(points) == 0 {
		return 0, ErrNoData
	}

	for i := len(points) - 1; i >= 0; i-- {
		if points[i].Second <= target {
			return points[i].Price, nil
		}
	}
	return points[0].Price, nil
}

// EarliestAtOrAbove returns the first point with Second >= fromSecond and
// Price >= price. Returns nil when no such point exists.
func EarliestAtOrAbove(fromSecond int64, price float64, points []*domain.MetricPoint) *domain.MetricPoint {
	for _, p := range points {
		if p.Second >= fromSecond && p.Price >= price {
			return p
		}
	}
	return nil
}

// MinPriceIn returns the minimum price among points with Second in
// [start, end] inclusive. Returns ErrNoData when the range holds no points.
func MinPriceIn(start, end int64, points []*domain.MetricPoint) (float64, error) {
	found := false
	minPrice := 0.0
	for _, p := range points {
		if p.Second < start || p.Second > end {
			continue
		}
		if !found || p.Price < minPrice {
			minPrice = p.Price
			found = true
		}
	}
	if !found {
		return 0, ErrNoData
	}
	return minPrice, nil
}

// MaxPriceBefore returns the maximum price among points with Second
// strictly before sec. Returns ErrNoData when no earlier points exist.
func MaxPriceBefore(sec int64, points []*domain.MetricPoint) (float64, error) {
	found := false
	maxPrice := 0.0
	for _, p := range points {
		if p.Second >= sec {
			continue
		}
		if !found || p.Price > maxPrice {
			maxPrice = p.Price
			found = true
		}
	}
	if !found {
		return 0, ErrNoData
	}
	return maxPrice, nil
}

// Ordered reports whether seconds are strictly ascending. Windows read from
// storage must satisfy this; a violation is a data inconsistency.
func Ordered(points []*domain.MetricPoint) bool {
	for i := 1; i < len(points); i++ {
		if points[i].Second <= points[i-1].Second {
			return false
		}
	}
	return true
}
