package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Vidhya-shiva/prabha-backend-file/internal/domain"
	"github.com/Vidhya-shiva/prabha-backend-file/internal/repositories"
)

func seed(qty map[string]map[string]int) domain.ProductStock {
	variants := make(map[string]map[string]domain.VariantStock, len(qty))
	for size, colors := range qty {
		variants[size] = map[string]domain.VariantStock{}
		for color, n := range colors {
			variants[size][color] = domain.VariantStock{Quantity: n}
		}
	}
	return domain.ProductStock{ProductID: "P1", Title: "Kanchi Silk", Variants: variants}
}

func quantity(t *testing.T, repo *InventoryRepository, size, color string) int {
	t.Helper()
	stock, err := repo.GetStock(context.Background(), "P1")
	if err != nil {
		t.Fatalf("GetStock: %v", err)
	}
	v, ok := stock.Variant(size, color)
	if !ok {
		t.Fatalf("variant %s/%s missing", size, color)
	}
	return v.Quantity
}

func TestInventoryReserveIsAllOrNothing(t *testing.T) {
	repo := NewInventoryRepository(seed(map[string]map[string]int{"Free": {"Red": 5, "Blue": 1}}))
	_, err := repo.Reserve(context.Background(), repositories.InventoryAdjustRequest{Lines: []domain.StockLine{
		{ProductID: "P1", Size: "Free", Color: "Red", Quantity: 2},
		{ProductID: "P1", Size: "Free", Color: "Blue", Quantity: 2},
	}})
	var invErr *repositories.InventoryError
	if !errors.As(err, &invErr) || invErr.Code != repositories.InventoryErrorInsufficientStock {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	if invErr.Available != 1 || invErr.Color != "Blue" {
		t.Fatalf("unexpected error detail %+v", invErr)
	}
	if got := quantity(t, repo, "Free", "Red"); got != 5 {
		t.Fatalf("red must be untouched, got %d", got)
	}
}

func TestInventoryReserveAggregatesDuplicateLines(t *testing.T) {
	repo := NewInventoryRepository(seed(map[string]map[string]int{"Free": {"Red": 3}}))
	_, err := repo.Reserve(context.Background(), repositories.InventoryAdjustRequest{Lines: []domain.StockLine{
		{ProductID: "P1", Size: "Free", Color: "Red", Quantity: 2},
		{ProductID: "P1", Size: "Free", Color: "Red", Quantity: 2},
	}})
	if err == nil {
		t.Fatal("expected aggregated lines to exceed stock")
	}
	if got := quantity(t, repo, "Free", "Red"); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
}

func TestInventoryReserveClassifiesLevelAndReleaseRestores(t *testing.T) {
	repo := NewInventoryRepository(seed(map[string]map[string]int{"Free": {"Red": 6}}))
	result, err := repo.Reserve(context.Background(), repositories.InventoryAdjustRequest{Lines: []domain.StockLine{
		{ProductID: "P1", Size: "Free", Color: "Red", Quantity: 2},
	}})
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if level := result.Products["P1"].Level; level != domain.StockLevelLowStock {
		t.Fatalf("expected low stock, got %s", level)
	}
	if _, err := repo.Release(context.Background(), repositories.InventoryAdjustRequest{Lines: []domain.StockLine{
		{ProductID: "P1", Size: "Free", Color: "Red", Quantity: 2},
	}}); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if got := quantity(t, repo, "Free", "Red"); got != 6 {
		t.Fatalf("expected 6 after release, got %d", got)
	}
}

func TestInventoryReserveUnknownVariant(t *testing.T) {
	repo := NewInventoryRepository(seed(map[string]map[string]int{"Free": {"Red": 1}}))
	cases := []struct {
		line domain.StockLine
		code repositories.InventoryErrorCode
	}{
		{domain.StockLine{ProductID: "P9", Size: "Free", Color: "Red", Quantity: 1}, repositories.InventoryErrorProductNotFound},
		{domain.StockLine{ProductID: "P1", Size: "XL", Color: "Red", Quantity: 1}, repositories.InventoryErrorVariantNotFound},
		{domain.StockLine{ProductID: "P1", Size: "Free", Color: "Green", Quantity: 1}, repositories.InventoryErrorVariantNotFound},
	}
	for _, tc := range cases {
		_, err := repo.Reserve(context.Background(), repositories.InventoryAdjustRequest{Lines: []domain.StockLine{tc.line}})
		var invErr *repositories.InventoryError
		if !errors.As(err, &invErr) || invErr.Code != tc.code {
			t.Fatalf("line %+v: expected %s, got %v", tc.line, tc.code, err)
		}
	}
}

func TestInventoryReleaseSkipsUnresolvableLines(t *testing.T) {
	repo := NewInventoryRepository(seed(map[string]map[string]int{"Free": {"Red": 3}}))
	result, err := repo.Release(context.Background(), repositories.InventoryAdjustRequest{Lines: []domain.StockLine{
		{ProductID: "P1", Size: "Free", Color: "Red", Quantity: 2},
		{ProductID: "P2", Size: "Free", Color: "Red", Quantity: 2},
		{ProductID: "P1", Size: "XL", Color: "Red", Quantity: 1},
	}})
	if err != nil {
		t.Fatalf("Release: %v", err)
	}
	if got := quantity(t, repo, "Free", "Red"); got != 5 {
		t.Fatalf("expected 5 after partial release, got %d", got)
	}
	if len(result.Skipped) != 2 {
		t.Fatalf("expected 2 skipped lines, got %d", len(result.Skipped))
	}
	codes := map[repositories.InventoryErrorCode]bool{}
	for _, skipped := range result.Skipped {
		codes[skipped.Code] = true
	}
	if !codes[repositories.InventoryErrorProductNotFound] || !codes[repositories.InventoryErrorVariantNotFound] {
		t.Fatalf("unexpected skipped codes %v", codes)
	}
}

func TestInventoryConcurrentReservationsNeverOversell(t *testing.T) {
	const stock, workers = 4, 32
	repo := NewInventoryRepository(seed(map[string]map[string]int{"Free": {"Red": stock}}))

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Reserve(context.Background(), repositories.InventoryAdjustRequest{Lines: []domain.StockLine{
				{ProductID: "P1", Size: "Free", Color: "Red", Quantity: 1},
			}})
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if successes != stock {
		t.Fatalf("expected exactly %d successful reservations, got %d", stock, successes)
	}
	if got := quantity(t, repo, "Free", "Red"); got != 0 {
		t.Fatalf("expected stock to be exhausted, got %d", got)
	}
}
