package services

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/Vidhya-shiva/prabha-backend-file/internal/carrier/stcourier"
	domain "github.com/Vidhya-shiva/prabha-backend-file/internal/domain"
	"github.com/Vidhya-shiva/prabha-backend-file/internal/repositories"
	"github.com/Vidhya-shiva/prabha-backend-file/internal/repositories/memory"
)

var fixedNow = time.Date(2024, time.May, 1, 10, 0, 0, 0, time.UTC)

type stubCarrier struct {
	mu          sync.Mutex
	bookFn      func(ctx context.Context, order Order, weight float64) (CarrierBooking, error)
	cancelFn    func(ctx context.Context, awb, orderID string) error
	bookCalls   int
	cancelCalls int
	weights     []float64
}

func (s *stubCarrier) Name() string { return stcourier.CourierName }

func (s *stubCarrier) Eligible(addr ShippingAddress) bool {
	return stcourier.IsEligible(addr.State)
}

func (s *stubCarrier) Book(ctx context.Context, order Order, weight float64) (CarrierBooking, error) {
	s.mu.Lock()
	s.bookCalls++
	s.weights = append(s.weights, weight)
	s.mu.Unlock()
	if s.bookFn != nil {
		return s.bookFn(ctx, order, weight)
	}
	return CarrierBooking{
		CourierName:      stcourier.CourierName,
		AWBNumber:        "ST" + order.ID,
		TrackingURL:      "https://erpstcourier.com/tracking?awbno=ST" + order.ID,
		VolumetricWeight: stcourier.VolumetricWeight(weight),
		Response:         map[string]any{"status": "1"},
	}, nil
}

func (s *stubCarrier) Cancel(ctx context.Context, awb, orderID string) error {
	s.mu.Lock()
	s.cancelCalls++
	s.mu.Unlock()
	if s.cancelFn != nil {
		return s.cancelFn(ctx, awb, orderID)
	}
	return nil
}

func (s *stubCarrier) calls() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bookCalls, s.cancelCalls
}

type captureEvents struct {
	mu     sync.Mutex
	events []OrderEvent
	err    error
}

func (c *captureEvents) PublishOrderEvent(_ context.Context, event OrderEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return c.err
}

func (c *captureEvents) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.events))
	for _, e := range c.events {
		out = append(out, e.Type)
	}
	return out
}

type mapCache struct {
	mu     sync.Mutex
	data   map[string][]Order
	purges int
}

func (c *mapCache) Get(key string) ([]Order, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok
}

func (c *mapCache) Set(key string, orders []Order) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.data == nil {
		c.data = map[string][]Order{}
	}
	c.data[key] = orders
}

func (c *mapCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = nil
	c.purges++
}

type stubVerifier struct {
	err   error
	calls int
}

func (s *stubVerifier) VerifyPayment(context.Context, VerifyPaymentCommand) error {
	s.calls++
	return s.err
}

// flakyOrders fails the Nth Update call and delegates everything else.
type flakyOrders struct {
	repositories.OrderRepository
	mu      sync.Mutex
	updates int
	failOn  int
}

func (f *flakyOrders) Update(ctx context.Context, orderID string, mutate repositories.OrderMutation) (domain.Order, error) {
	f.mu.Lock()
	f.updates++
	fail := f.updates == f.failOn
	f.mu.Unlock()
	if fail {
		return domain.Order{}, errBoom
	}
	return f.OrderRepository.Update(ctx, orderID, mutate)
}

type harness struct {
	registry  *memory.Registry
	carrier   *stubCarrier
	events    *captureEvents
	cache     *mapCache
	verifier  *stubVerifier
	inventory InventoryService
	orders    OrderService
	courier   CourierService
	webhooks  CourierWebhookService
	logs      []string
}

func newHarness(t *testing.T, products ...domain.ProductStock) *harness {
	t.Helper()
	h := &harness{
		registry: memory.NewRegistry(),
		carrier:  &stubCarrier{},
		events:   &captureEvents{},
		cache:    &mapCache{},
		verifier: &stubVerifier{},
	}
	for _, p := range products {
		h.registry.Products().Put(p)
	}
	clock := func() time.Time { return fixedNow }
	var logMu sync.Mutex
	logger := func(_ context.Context, event string, _ map[string]any) {
		logMu.Lock()
		h.logs = append(h.logs, event)
		logMu.Unlock()
	}

	inv, err := NewInventoryService(InventoryServiceDeps{Inventory: h.registry.Inventory(), Clock: clock, Logger: logger})
	if err != nil {
		t.Fatalf("NewInventoryService: %v", err)
	}
	h.inventory = inv

	seq := 0
	var seqMu sync.Mutex
	orders, err := NewOrderService(OrderServiceDeps{
		Orders:    h.registry.Orders(),
		Carts:     h.registry.Carts(),
		Inventory: inv,
		Carrier:   h.carrier,
		Payments:  h.verifier,
		Events:    h.events,
		Cache:     h.cache,
		Clock:     clock,
		IDGenerator: func() string {
			seqMu.Lock()
			defer seqMu.Unlock()
			seq++
			return "CKT_0000000" + strconv.Itoa(seq)
		},
		Logger: logger,
	})
	if err != nil {
		t.Fatalf("NewOrderService: %v", err)
	}
	h.orders = orders

	courier, err := NewCourierService(CourierServiceDeps{
		Orders:  h.registry.Orders(),
		Carrier: h.carrier,
		Events:  h.events,
		Cache:   h.cache,
		Clock:   clock,
		Logger:  logger,
	})
	if err != nil {
		t.Fatalf("NewCourierService: %v", err)
	}
	h.courier = courier

	webhooks, err := NewCourierWebhookService(CourierWebhookServiceDeps{
		Orders: h.registry.Orders(),
		Events: h.events,
		Cache:  h.cache,
		Clock:  clock,
		Logger: logger,
	})
	if err != nil {
		t.Fatalf("NewCourierWebhookService: %v", err)
	}
	h.webhooks = webhooks
	return h
}

func (h *harness) hasLog(event string) bool {
	for _, e := range h.logs {
		if e == event {
			return true
		}
	}
	return false
}

func product(id string, qty map[string]map[string]int) domain.ProductStock {
	variants := make(map[string]map[string]domain.VariantStock, len(qty))
	for size, colors := range qty {
		variants[size] = map[string]domain.VariantStock{}
		for color, n := range colors {
			variants[size][color] = domain.VariantStock{Quantity: n}
		}
	}
	return domain.ProductStock{ProductID: id, Title: "Saree " + id, Active: true, Variants: variants}
}

func tnAddress() *ShippingAddress {
	return &ShippingAddress{
		Street:   "12 Temple St",
		Village:  "Pongalur",
		PO:       "Pongalur PO",
		District: "Tiruppur",
		State:    "Tamil Nadu",
		Pincode:  "641667",
		Country:  "India",
	}
}

func keralaAddress() *ShippingAddress {
	addr := tnAddress()
	addr.State = "Kerala"
	addr.District = "Palakkad"
	return addr
}

func placeCmd(addr *ShippingAddress, items ...OrderItemInput) PlaceOrderCommand {
	return PlaceOrderCommand{
		UserID:          "user-1",
		UserName:        "Meena",
		CustomerPhone:   "+91 98765 43210",
		Items:           items,
		TotalAmount:     2499,
		ShippingAddress: addr,
	}
}

func item(productID, size, color string, qty int) OrderItemInput {
	return OrderItemInput{ID: productID, Title: "Kanchi Silk", Price: 2499, Quantity: qty, Size: size, Color: color}
}

func stockOf(t *testing.T, h *harness, productID, size, color string) int {
	t.Helper()
	stock, err := h.inventory.GetStock(context.Background(), productID)
	if err != nil {
		t.Fatalf("GetStock: %v", err)
	}
	v, ok := stock.Variant(size, color)
	if !ok {
		t.Fatalf("variant %s/%s missing", size, color)
	}
	return v.Quantity
}

func mustPlace(t *testing.T, h *harness, cmd PlaceOrderCommand) Order {
	t.Helper()
	order, err := h.orders.PlaceOrder(context.Background(), cmd)
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	return order
}

// holdClaim marks the order as having a booking in flight since claimedAt.
func holdClaim(t *testing.T, h *harness, orderID string, claimedAt time.Time) {
	t.Helper()
	_, err := h.registry.Orders().Update(context.Background(), orderID, func(order *domain.Order) error {
		order.Courier.BookingStatus = domain.BookingStatusPending
		order.Courier.ClaimedAt = claimedAt
		return nil
	})
	if err != nil {
		t.Fatalf("hold claim: %v", err)
	}
}

var errBoom = errors.New("boom")
