package domain

import (
	"sort"
	"time"
)

// LowStockThreshold is the quantity below which a variant is reported as low stock.
const LowStockThreshold = 5

// StockLevel is the derived availability classification stored on a product.
type StockLevel string

const (
	StockLevelInStock    StockLevel = "In Stock"
	StockLevelLowStock   StockLevel = "Low Stock"
	StockLevelOutOfStock StockLevel = "Out of Stock"
)

// ClassifyStock maps a quantity to its stock level.
func ClassifyStock(quantity int) StockLevel {
	switch {
	case quantity <= 0:
		return StockLevelOutOfStock
	case quantity < LowStockThreshold:
		return StockLevelLowStock
	default:
		return StockLevelInStock
	}
}

// VariantStock is the counter for one size+color combination.
type VariantStock struct {
	Quantity int
	Images   []string
}

// Level classifies this variant's own counter. ProductStock.Level classifies the product total.
func (v VariantStock) Level() StockLevel {
	return ClassifyStock(v.Quantity)
}

// ProductStock is the per-product stock record: size -> color -> counter.
type ProductStock struct {
	ProductID string
	Title     string
	Active    bool
	Level     StockLevel
	Variants  map[string]map[string]VariantStock
	UpdatedAt time.Time
}

// Variant resolves the counter for size and color.
func (p ProductStock) Variant(size, color string) (VariantStock, bool) {
	colors, ok := p.Variants[size]
	if !ok {
		return VariantStock{}, false
	}
	v, ok := colors[color]
	return v, ok
}

// SetQuantity overwrites the quantity for an existing variant. It reports false when the variant is unknown.
func (p *ProductStock) SetQuantity(size, color string, quantity int) bool {
	colors, ok := p.Variants[size]
	if !ok {
		return false
	}
	v, ok := colors[color]
	if !ok {
		return false
	}
	v.Quantity = quantity
	colors[color] = v
	return true
}

// TotalQuantity sums every variant counter.
func (p ProductStock) TotalQuantity() int {
	total := 0
	for _, colors := range p.Variants {
		for _, v := range colors {
			total += v.Quantity
		}
	}
	return total
}

// Recalculate refreshes the derived stock level from the variant counters.
func (p *ProductStock) Recalculate() {
	p.Level = ClassifyStock(p.TotalQuantity())
}

// Clone returns a deep copy so callers cannot mutate shared maps.
func (p ProductStock) Clone() ProductStock {
	out := p
	out.Variants = make(map[string]map[string]VariantStock, len(p.Variants))
	for size, colors := range p.Variants {
		copied := make(map[string]VariantStock, len(colors))
		for color, v := range colors {
			v.Images = append([]string(nil), v.Images...)
			copied[color] = v
		}
		out.Variants[size] = copied
	}
	return out
}

// StockLine is a single reserve/release instruction against a variant.
type StockLine struct {
	ProductID string
	Size      string
	Color     string
	Quantity  int
	Label     string
}

// VariantKey identifies a variant across products.
type VariantKey struct {
	ProductID string
	Size      string
	Color     string
}

// Key returns the variant identity of the line.
func (l StockLine) Key() VariantKey {
	return VariantKey{ProductID: l.ProductID, Size: l.Size, Color: l.Color}
}

// AggregateStockLines merges lines targeting the same variant and sorts them deterministically.
func AggregateStockLines(lines []StockLine) []StockLine {
	index := make(map[VariantKey]int, len(lines))
	out := make([]StockLine, 0, len(lines))
	for _, line := range lines {
		key := line.Key()
		if pos, ok := index[key]; ok {
			out[pos].Quantity += line.Quantity
			continue
		}
		index[key] = len(out)
		out = append(out, line)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.ProductID != b.ProductID {
			return a.ProductID < b.ProductID
		}
		if a.Size != b.Size {
			return a.Size < b.Size
		}
		return a.Color < b.Color
	})
	return out
}

// StockLinesFromItems converts an order snapshot to ledger instructions.
func StockLinesFromItems(items []OrderItem) []StockLine {
	lines := make([]StockLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, StockLine{
			ProductID: item.ProductID,
			Size:      item.Size,
			Color:     item.Color,
			Quantity:  item.Quantity,
			Label:     item.Title,
		})
	}
	return lines
}
