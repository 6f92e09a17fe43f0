package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Vidhya-shiva/prabha-backend-file/internal/platform/auth"
	"github.com/Vidhya-shiva/prabha-backend-file/internal/platform/httpx"
	"github.com/Vidhya-shiva/prabha-backend-file/internal/services"
)

type variantStockPayload struct {
	Quantity   int      `json:"quantity"`
	StockLevel string   `json:"stockLevel"`
	Images     []string `json:"images,omitempty"`
}

// InventoryHandlers exposes read-only stock snapshots to administrators.
type InventoryHandlers struct {
	authn     *auth.Authenticator
	inventory services.InventoryService
}

// NewInventoryHandlers constructs the inventory endpoints.
func NewInventoryHandlers(authn *auth.Authenticator, inventory services.InventoryService) *InventoryHandlers {
	return &InventoryHandlers{authn: authn, inventory: inventory}
}

// Routes registers the /inventory endpoints.
func (h *InventoryHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.With(requireAdmin(h.authn)).Get("/{productID}", h.getStock)
}

func (h *InventoryHandlers) getStock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stock, err := h.inventory.GetStock(ctx, chi.URLParam(r, "productID"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	variants := make(map[string]map[string]variantStockPayload, len(stock.Variants))
	for size, colors := range stock.Variants {
		out := make(map[string]variantStockPayload, len(colors))
		for color, v := range colors {
			out[color] = variantStockPayload{Quantity: v.Quantity, StockLevel: string(v.Level()), Images: v.Images}
		}
		variants[size] = out
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"productId":     stock.ProductID,
		"title":         stock.Title,
		"active":        stock.Active,
		"stockLevel":    string(stock.Level),
		"totalQuantity": stock.TotalQuantity(),
		"variants":      variants,
		"updatedAt":     formatTime(stock.UpdatedAt),
	})
}
