package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Vidhya-shiva/prabha-backend-file/internal/repositories"
)

const (
	eventInventoryReserve        = "inventory.reserve"
	eventInventoryReserveFailed  = "inventory.reserve.failed"
	eventInventoryRelease        = "inventory.release"
	eventInventoryReleaseSkipped = "inventory.release.skipped"
	eventInventoryLevelRecounted = "inventory.level"
	eventInventoryVariantLevel   = "inventory.level.variant"
)

var (
	// ErrInventoryInvalidInput signals the caller provided invalid arguments.
	ErrInventoryInvalidInput = errors.New("inventory: invalid input")
	// ErrInventoryInsufficientStock indicates the requested quantity exceeds availability.
	ErrInventoryInsufficientStock = errors.New("inventory: insufficient stock")
	// ErrInventoryUnresolved indicates the product, size or color does not exist.
	ErrInventoryUnresolved = errors.New("inventory: product or variant not found")
	// ErrInventoryUnavailable indicates the ledger store could not be reached.
	ErrInventoryUnavailable = errors.New("inventory: store unavailable")
)

// InventoryServiceDeps bundles the collaborators required to construct an inventory service.
type InventoryServiceDeps struct {
	Inventory repositories.InventoryRepository
	Metrics   OrderMetrics
	Clock     func() time.Time
	Logger    func(ctx context.Context, event string, fields map[string]any)
}

type inventoryService struct {
	repo    repositories.InventoryRepository
	metrics OrderMetrics
	clock   func() time.Time
	logger  func(context.Context, string, map[string]any)
}

// NewInventoryService wires dependencies into a concrete InventoryService implementation.
func NewInventoryService(deps InventoryServiceDeps) (InventoryService, error) {
	if deps.Inventory == nil {
		return nil, errors.New("inventory service: inventory repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger
	}
	var metrics OrderMetrics = noopMetrics{}
	if deps.Metrics != nil {
		metrics = deps.Metrics
	}
	return &inventoryService{
		repo:    deps.Inventory,
		metrics: metrics,
		clock: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

// Reserve decrements every line atomically. Nothing is written when any line fails.
func (s *inventoryService) Reserve(ctx context.Context, lines []StockLine) error {
	if err := validateStockLines(lines); err != nil {
		return err
	}
	result, err := s.repo.Reserve(ctx, repositories.InventoryAdjustRequest{Lines: lines, Now: s.clock()})
	if err != nil {
		mapped := s.mapRepositoryError(err)
		outcome := "error"
		switch {
		case errors.Is(mapped, ErrInventoryInsufficientStock):
			outcome = "insufficient"
		case errors.Is(mapped, ErrInventoryUnresolved):
			outcome = "unresolved"
		}
		s.metrics.Reservation(ctx, outcome)
		s.logger(ctx, eventInventoryReserveFailed, map[string]any{
			"lines": len(lines),
			"error": err.Error(),
		})
		return mapped
	}
	s.metrics.Reservation(ctx, "reserved")
	s.logger(ctx, eventInventoryReserve, map[string]any{"lines": len(lines)})
	s.logLevels(ctx, result, lines)
	return nil
}

// Release increments every line it can resolve. Lines whose product or variant has since been removed
// are logged and skipped so the rest of the order still returns to stock.
func (s *inventoryService) Release(ctx context.Context, lines []StockLine) error {
	if err := validateStockLines(lines); err != nil {
		return err
	}
	result, err := s.repo.Release(ctx, repositories.InventoryAdjustRequest{Lines: lines, Now: s.clock()})
	if err != nil {
		return s.mapRepositoryError(err)
	}
	for _, skipped := range result.Skipped {
		s.logger(ctx, eventInventoryReleaseSkipped, map[string]any{
			"productId": skipped.ProductID,
			"size":      skipped.Size,
			"color":     skipped.Color,
			"code":      string(skipped.Code),
			"error":     skipped.Error(),
		})
	}
	s.logger(ctx, eventInventoryRelease, map[string]any{
		"lines":   len(lines) - len(result.Skipped),
		"skipped": len(result.Skipped),
	})
	s.logLevels(ctx, result, lines)
	return nil
}

func (s *inventoryService) GetStock(ctx context.Context, productID string) (ProductStock, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return ProductStock{}, fmt.Errorf("%w: product id is required", ErrInventoryInvalidInput)
	}
	stock, err := s.repo.GetStock(ctx, productID)
	if err != nil {
		return ProductStock{}, s.mapRepositoryError(err)
	}
	return stock, nil
}

func (s *inventoryService) logLevels(ctx context.Context, result repositories.InventoryAdjustResult, lines []StockLine) {
	for id, product := range result.Products {
		s.logger(ctx, eventInventoryLevelRecounted, map[string]any{
			"productId": id,
			"level":     string(product.Level),
			"total":     product.TotalQuantity(),
		})
	}
	for _, line := range lines {
		product, ok := result.Products[line.ProductID]
		if !ok {
			continue
		}
		variant, ok := product.Variant(line.Size, line.Color)
		if !ok {
			continue
		}
		s.logger(ctx, eventInventoryVariantLevel, map[string]any{
			"productId": line.ProductID,
			"size":      line.Size,
			"color":     line.Color,
			"quantity":  variant.Quantity,
			"level":     string(variant.Level()),
		})
	}
}

func (s *inventoryService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	var invErr *repositories.InventoryError
	if errors.As(err, &invErr) {
		switch invErr.Code {
		case repositories.InventoryErrorInsufficientStock:
			return fmt.Errorf("%w: %w", ErrInventoryInsufficientStock, invErr)
		case repositories.InventoryErrorProductNotFound, repositories.InventoryErrorVariantNotFound:
			return fmt.Errorf("%w: %w", ErrInventoryUnresolved, invErr)
		}
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrInventoryUnresolved, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("%w: %v", ErrInventoryUnavailable, err)
		}
	}
	return fmt.Errorf("inventory: %w", err)
}

func validateStockLines(lines []StockLine) error {
	if len(lines) == 0 {
		return fmt.Errorf("%w: at least one line is required", ErrInventoryInvalidInput)
	}
	for i, line := range lines {
		if strings.TrimSpace(line.ProductID) == "" {
			return fmt.Errorf("%w: line %d product id is required", ErrInventoryInvalidInput, i)
		}
		if line.Quantity <= 0 {
			return fmt.Errorf("%w: line %d quantity must be positive", ErrInventoryInvalidInput, i)
		}
	}
	return nil
}
