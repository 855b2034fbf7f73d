package memory

import (
	"context"
	"errors"
	"testing"

	"solana-entry-engine/internal/domain"
	"solana-entry-engine/internal/storage"
)

func TestMetricStore_UpsertAndReadRecent(t *testing.T) {
	store := NewMetricStore()
	ctx := context.Background()

	points := []*domain.MetricPoint{
		{TokenID: "t1", Second: 0, Price: 1.0, Liquidity: 100},
		{TokenID: "t1", Second: 1, Price: 1.1, Liquidity: 110},
		{TokenID: "t1", Second: 2, Price: 1.2, Liquidity: 120},
	}
	if err := store.Upsert(ctx, points); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	result, err := store.ReadRecent(ctx, "t1", 2)
	if err != nil {
		t.Fatalf("ReadRecent failed: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("Expected 2 points, got %d", len(result))
	}
	if result[0].Second != 1 || result[1].Second != 2 {
		t.Errorf("Expected seconds [1,2], got [%d,%d]", result[0].Second, result[1].Second)
	}
}

func TestMetricStore_UpsertReplacesSameSecond(t *testing.T) {
	store := NewMetricStore()
	ctx := context.Background()

	if err := store.Upsert(ctx, []*domain.MetricPoint{{TokenID: "t1", Second: 5, Price: 1.0}}); err != nil {
		t.Fatalf("first Upsert failed: %v", err)
	}
	if err := store.Upsert(ctx, []*domain.MetricPoint{{TokenID: "t1", Second: 5, Price: 2.0}}); err != nil {
		t.Fatalf("second Upsert failed: %v", err)
	}

	count, err := store.Count(ctx, "t1")
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 row after update, got %d", count)
	}

	result, _ := store.ReadRecent(ctx, "t1", 1)
	if result[0].Price != 2.0 {
		t.Errorf("Expected updated price 2.0, got %f", result[0].Price)
	}
}

func TestMetricStore_InvalidInput(t *testing.T) {
	store := NewMetricStore()
	ctx := context.Background()

	err := store.Upsert(ctx, []*domain.MetricPoint{{TokenID: "", Second: 0}})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}

	_, err = store.ReadRecent(ctx, "t1", 0)
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for zero window, got %v", err)
	}
}

func TestMetricStore_ReadRange(t *testing.T) {
	store := NewMetricStore()
	ctx := context.Background()

	var points []*domain.MetricPoint
	for sec := int64(0); sec < 10; sec++ {
		points = append(points, &domain.MetricPoint{TokenID: "t1", Second: sec, Price: float64(sec)})
	}
	if err := store.Upsert(ctx, points); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	result, err := store.ReadRange(ctx, "t1", 3, 6)
	if err != nil {
		t.Fatalf("ReadRange failed: %v", err)
	}
	if len(result) != 4 {
		t.Fatalf("Expected 4 points in [3,6], got %d", len(result))
	}
	if result[0].Second != 3 || result[3].Second != 6 {
		t.Errorf("Range bounds wrong: got [%d,%d]", result[0].Second, result[3].Second)
	}
}

func TestMetricStore_EarliestPriceAt(t *testing.T) {
	store := NewMetricStore()
	ctx := context.Background()

	points := []*domain.MetricPoint{
		{TokenID: "t1", Second: 10, Price: 1.5},
		{TokenID: "t1", Second: 12, Price: 1.7},
	}
	if err := store.Upsert(ctx, points); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	price, err := store.EarliestPriceAt(ctx, "t1", 11)
	if err != nil {
		t.Fatalf("EarliestPriceAt failed: %v", err)
	}
	if price == nil || *price != 1.7 {
		t.Errorf("Expected price 1.7 at second>=11, got %v", price)
	}

	price, err = store.EarliestPriceAt(ctx, "t1", 13)
	if err != nil {
		t.Fatalf("EarliestPriceAt failed: %v", err)
	}
	if price != nil {
		t.Errorf("Expected nil past end of history, got %v", *price)
	}
}

func TestMetricStore_TokenIsolation(t *testing.T) {
	store := NewMetricStore()
	ctx := context.Background()

	_ = store.Upsert(ctx, []*domain.MetricPoint{{TokenID: "t1", Second: 0, Price: 1}})
	_ = store.Upsert(ctx, []*domain.MetricPoint{{TokenID: "t2", Second: 0, Price: 2}})

	result, _ := store.ReadRecent(ctx, "t1", 10)
	if len(result) != 1 || result[0].Price != 1 {
		t.Errorf("Token t1 window leaked data: %+v", result)
	}
}
