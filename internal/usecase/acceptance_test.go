package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketSniper/internal/domain"
	"MarketSniper/internal/ports"
)

var sniperTask = domain.Task{ID: 1, Link: "https://market/1", Pages: 1, Float: 0.01, Price: 1000, Amount: 2}

func newTestAcceptance(store *memoryStore, notifier ports.Notifier, metrics ports.Metrics) *AcceptanceEngine {
	return NewAcceptanceEngine(store, notifier, metrics, NewMessages("en"), discardLogger())
}

func TestEvaluateAcceptsQualifyingListing(t *testing.T) {
	engine := newTestAcceptance(newMemoryStore(), nil, nil)

	entries, errs := engine.Evaluate(sniperTask,
		map[string]domain.Listing{"L1": {ID: "L1", Price: 800, Fee: 100, AssetID: "A1"}},
		[]domain.InspectionResult{{ListingID: "L1", AssetID: "A1", Float: 0.005}},
	)

	assert.Empty(t, errs)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.CartEntry{
		ListingID:  "L1",
		ItemID:     "A1",
		Subtotal:   800,
		Fee:        100,
		AssetFloat: 0.005,
		TaskID:     1,
	}, entries[0])
}

func TestEvaluateRejections(t *testing.T) {
	tests := []struct {
		name    string
		listing domain.Listing
		result  domain.InspectionResult
	}{
		{
			name:    "float above limit",
			listing: domain.Listing{ID: "L1", Price: 800, Fee: 100},
			result:  domain.InspectionResult{ListingID: "L1", Float: 0.02},
		},
		{
			name:    "price above limit",
			listing: domain.Listing{ID: "L1", Price: 950, Fee: 100},
			result:  domain.InspectionResult{ListingID: "L1", Float: 0.005},
		},
		{
			name:    "zero fee",
			listing: domain.Listing{ID: "L1", Price: 800},
			result:  domain.InspectionResult{ListingID: "L1", Float: 0.005},
		},
		{
			name:    "zero price",
			listing: domain.Listing{ID: "L1", Fee: 100},
			result:  domain.InspectionResult{ListingID: "L1", Float: 0.005},
		},
		{
			name:    "listing missing",
			listing: domain.Listing{ID: "other", Price: 800, Fee: 100},
			result:  domain.InspectionResult{ListingID: "L1", Float: 0.005},
		},
	}

	engine := newTestAcceptance(newMemoryStore(), nil, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, errs := engine.Evaluate(sniperTask,
				map[string]domain.Listing{tt.listing.ID: tt.listing},
				[]domain.InspectionResult{tt.result},
			)
			assert.Empty(t, entries)
			assert.Empty(t, errs)
		})
	}
}

func TestEvaluateCollectsDistinctErrorsInOrder(t *testing.T) {
	engine := newTestAcceptance(newMemoryStore(), nil, nil)

	entries, errs := engine.Evaluate(sniperTask,
		map[string]domain.Listing{
			"L1": {ID: "L1", Price: 800, Fee: 100},
			"L2": {ID: "L2", Price: 800, Fee: 100},
		},
		[]domain.InspectionResult{
			{ListingID: "L1", Float: 0.001, Status: "500", Error: "Valve's servers didn't reply"},
			{ListingID: "L2", Status: "400", Error: "Invalid link"},
			{ListingID: "L3", Status: "500", Error: "Valve's servers didn't reply"},
		},
	)

	assert.Empty(t, entries, "error results never reach the cart")
	assert.Equal(t, []string{"500: Valve's servers didn't reply", "400: Invalid link"}, errs)
}

func TestEvaluateIsRepeatable(t *testing.T) {
	engine := newTestAcceptance(newMemoryStore(), nil, nil)
	listings := map[string]domain.Listing{
		"L1": {ID: "L1", Price: 800, Fee: 100},
		"L2": {ID: "L2", Price: 600, Fee: 60},
	}
	results := []domain.InspectionResult{
		{ListingID: "L1", AssetID: "A1", Float: 0.005},
		{ListingID: "L2", AssetID: "A2", Float: 0.009},
	}

	first, _ := engine.Evaluate(sniperTask, listings, results)
	second, _ := engine.Evaluate(sniperTask, listings, results)
	assert.Equal(t, first, second)
	assert.Len(t, first, 2)
}

func TestAcceptStoresAndNotifies(t *testing.T) {
	store := newMemoryStore()
	notifier := &recordingNotifier{}
	metrics := &recordingMetrics{}
	engine := newTestAcceptance(store, notifier, metrics)

	entries, err := engine.Accept(context.Background(), sniperTask,
		map[string]domain.Listing{"L1": {ID: "L1", Price: 800, Fee: 100}},
		[]domain.InspectionResult{
			{ListingID: "L1", AssetID: "A1", Float: 0.005},
			{ListingID: "L2", Status: "500", Error: "timeout"},
			{ListingID: "L3", Status: "404", Error: "not found"},
		},
	)

	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, entries, store.cart)
	assert.Equal(t, []string{"500: timeout\n404: not found"}, notifier.messages)
	assert.Equal(t, 1, metrics.cartAdded)
	assert.Equal(t, 2, metrics.inspections)
}

func TestAcceptNotifiesEvenWhenInsertFails(t *testing.T) {
	store := newMemoryStore()
	store.addErr = errBoom
	notifier := &recordingNotifier{}
	engine := newTestAcceptance(store, notifier, &recordingMetrics{})

	_, err := engine.Accept(context.Background(), sniperTask,
		map[string]domain.Listing{"L1": {ID: "L1", Price: 800, Fee: 100}},
		[]domain.InspectionResult{
			{ListingID: "L1", AssetID: "A1", Float: 0.005},
			{ListingID: "L2", Status: "500", Error: "timeout"},
		},
	)

	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, []string{"500: timeout"}, notifier.messages)
}

func TestAcceptWithoutMatchesSkipsWrite(t *testing.T) {
	store := newMemoryStore()
	store.addErr = errBoom
	notifier := &recordingNotifier{}
	engine := newTestAcceptance(store, notifier, nil)

	entries, err := engine.Accept(context.Background(), sniperTask,
		map[string]domain.Listing{"L1": {ID: "L1", Price: 800, Fee: 100}},
		[]domain.InspectionResult{{ListingID: "L1", AssetID: "A1", Float: 0.02}},
	)

	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Empty(t, notifier.messages)
}
