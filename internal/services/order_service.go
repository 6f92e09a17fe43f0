package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	domain "github.com/Vidhya-shiva/prabha-backend-file/internal/domain"
	"github.com/Vidhya-shiva/prabha-backend-file/internal/repositories"
)

const (
	defaultAdminListLimit = 50
	maxOrderIDAttempts    = 3
	adminListCacheKey     = "orders:all"

	defaultUserEmail = "N/A"
	defaultUserName  = "Customer"
	defaultItemName  = "Product"

	noteOrderPlaced     = "Order placed"
	noteCancelledByUser = "Cancelled by user"

	bookingLocationShop   = "PRABHA TEX - Pongalur"
	bookingLocationSystem = "System"
	bookingLocationAdmin  = "Admin Panel"

	// bookingClaimTTL bounds how long a pending booking claim blocks other bookings. It must exceed
	// the carrier timeout.
	bookingClaimTTL = 2 * time.Minute
)

var (
	// ErrOrderInvalidInput signals the caller provided invalid data.
	ErrOrderInvalidInput = errors.New("order: invalid input")
	// ErrOrderNotFound indicates the order could not be located.
	ErrOrderNotFound = errors.New("order: not found")
	// ErrOrderInvalidStatus indicates the requested status is not part of the lifecycle.
	ErrOrderInvalidStatus = errors.New("order: invalid status")
	// ErrOrderNotCancellable indicates the order has progressed past the point of cancellation.
	ErrOrderNotCancellable = errors.New("order: not cancellable")
	// ErrOrderAlreadyTerminal indicates the order is Cancelled or Delivered and cannot change status.
	ErrOrderAlreadyTerminal = errors.New("order: already in a terminal status")
	// ErrOrderPaymentRequired indicates a pre-paid order arrived without a payment reference.
	ErrOrderPaymentRequired = errors.New("order: payment details required")
	// ErrOrderPaymentInvalid indicates the supplied payment signature did not verify.
	ErrOrderPaymentInvalid = errors.New("order: payment verification failed")
	// ErrOrderConflict indicates a concurrent update or duplicate id.
	ErrOrderConflict = errors.New("order: conflict")
	// ErrOrderUnavailable indicates the order store could not be reached.
	ErrOrderUnavailable = errors.New("order: repository unavailable")
	// ErrOrderPersistence indicates the order could not be saved.
	ErrOrderPersistence = errors.New("order: persistence failed")

	errBookingNotNeeded = errors.New("order: auto-booking not required")
)

// PaymentVerifier checks checkout signatures for pre-paid placements.
type PaymentVerifier interface {
	VerifyPayment(ctx context.Context, cmd VerifyPaymentCommand) error
}

// OrderServiceDeps bundles collaborators required to construct the order service.
type OrderServiceDeps struct {
	Orders         repositories.OrderRepository
	Carts          repositories.CartRepository
	Inventory      InventoryService
	Carrier        CarrierGateway
	Payments       PaymentVerifier
	Events         OrderEventPublisher
	Cache          OrderListCache
	Metrics        OrderMetrics
	Clock          func() time.Time
	IDGenerator    func() string
	AdminListLimit int
	Logger         func(ctx context.Context, event string, fields map[string]any)
}

type orderService struct {
	orders     repositories.OrderRepository
	carts      repositories.CartRepository
	inventory  InventoryService
	carrier    CarrierGateway
	payments   PaymentVerifier
	events     OrderEventPublisher
	cache      OrderListCache
	metrics    OrderMetrics
	clock      func() time.Time
	newID      func() string
	adminLimit int
	logger     func(context.Context, string, map[string]any)
}

// NewOrderService wires dependencies into a concrete OrderService implementation.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	if deps.Inventory == nil {
		return nil, errors.New("order service: inventory service is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = OrderIDGenerator(defaultOrderIDPrefix, clock)
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger
	}
	var metrics OrderMetrics = noopMetrics{}
	if deps.Metrics != nil {
		metrics = deps.Metrics
	}
	limit := deps.AdminListLimit
	if limit <= 0 {
		limit = defaultAdminListLimit
	}

	return &orderService{
		orders:    deps.Orders,
		carts:     deps.Carts,
		inventory: deps.Inventory,
		carrier:   deps.Carrier,
		payments:  deps.Payments,
		events:    deps.Events,
		cache:     deps.Cache,
		metrics:   metrics,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:      idGen,
		adminLimit: limit,
		logger:     logger,
	}, nil
}

// PlaceOrder creates a cash-on-delivery order.
func (s *orderService) PlaceOrder(ctx context.Context, cmd PlaceOrderCommand) (Order, error) {
	return s.placeOrder(ctx, cmd, false)
}

// PlaceOrderWithPayment creates a pre-paid order after checking the gateway references.
func (s *orderService) PlaceOrderWithPayment(ctx context.Context, cmd PlaceOrderCommand) (Order, error) {
	return s.placeOrder(ctx, cmd, true)
}

func (s *orderService) placeOrder(ctx context.Context, cmd PlaceOrderCommand, prepaid bool) (Order, error) {
	phone, err := validatePlacement(cmd)
	if err != nil {
		return Order{}, err
	}
	items, err := normaliseOrderItems(cmd.Items)
	if err != nil {
		return Order{}, err
	}

	method, err := resolvePaymentMethod(cmd.PaymentMethod, prepaid)
	if err != nil {
		return Order{}, err
	}
	online := prepaid && method == domain.PaymentMethodOnline
	if online {
		if err := s.checkPayment(ctx, cmd.Payment); err != nil {
			return Order{}, err
		}
	}

	lines := domain.StockLinesFromItems(items)
	if err := s.inventory.Reserve(ctx, lines); err != nil {
		return Order{}, err
	}

	now := s.clock()
	order := Order{
		UserID:          strings.TrimSpace(cmd.UserID),
		UserEmail:       firstNonEmpty(strings.TrimSpace(cmd.UserEmail), defaultUserEmail),
		UserName:        firstNonEmpty(strings.TrimSpace(cmd.UserName), defaultUserName),
		CustomerPhone:   phone,
		Items:           items,
		TotalAmount:     cmd.TotalAmount,
		PaymentMethod:   method,
		ShippingAddress: trimAddress(*cmd.ShippingAddress),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	note := noteOrderPlaced
	if online {
		paidAt := now
		order.PaymentDetails = domain.PaymentDetails{
			GatewayOrderID:   strings.TrimSpace(cmd.Payment.GatewayOrderID),
			GatewayPaymentID: strings.TrimSpace(cmd.Payment.GatewayPaymentID),
			Status:           domain.PaymentStatusCompleted,
			PaidAt:           &paidAt,
		}
		note = "Paid: " + order.PaymentDetails.GatewayPaymentID
	}
	order.SetStatus(domain.OrderStatusPlaced, now, note)

	if err := s.insertWithFreshID(ctx, &order); err != nil {
		s.releaseBestEffort(ctx, order.ID, lines, "placement.compensate")
		return Order{}, err
	}

	s.clearCart(ctx, order.UserID, now)
	s.invalidateList()
	s.logger(ctx, "order.placed", map[string]any{
		"orderId":       order.ID,
		"userId":        order.UserID,
		"paymentMethod": string(order.PaymentMethod),
		"items":         len(order.Items),
		"totalAmount":   order.TotalAmount,
	})
	publishOrderEvent(ctx, s.events, s.logger, OrderEvent{
		Type:          OrderEventPlaced,
		OrderID:       order.ID,
		UserID:        order.UserID,
		CurrentStatus: string(order.Status),
		ActorID:       order.UserID,
		OccurredAt:    now,
		Metadata: map[string]any{
			"paymentMethod": string(order.PaymentMethod),
			"totalAmount":   order.TotalAmount,
		},
	})
	return order, nil
}

// insertWithFreshID retries with a new id when the generated one is already taken.
func (s *orderService) insertWithFreshID(ctx context.Context, order *Order) error {
	var lastErr error
	for attempt := 0; attempt < maxOrderIDAttempts; attempt++ {
		order.ID = s.newID()
		err := s.orders.Insert(ctx, *order)
		if err == nil {
			return nil
		}
		lastErr = err
		if !repositories.IsConflict(err) {
			break
		}
		s.logger(ctx, "order.id.collision", map[string]any{"orderId": order.ID, "attempt": attempt + 1})
	}
	mapped := s.mapRepositoryError(lastErr)
	if errors.Is(mapped, ErrOrderUnavailable) {
		return mapped
	}
	return fmt.Errorf("%w: %v", ErrOrderPersistence, lastErr)
}

func (s *orderService) checkPayment(ctx context.Context, payment *PaymentConfirmation) error {
	if payment == nil || strings.TrimSpace(payment.GatewayPaymentID) == "" {
		return ErrOrderPaymentRequired
	}
	signature := strings.TrimSpace(payment.Signature)
	gatewayOrderID := strings.TrimSpace(payment.GatewayOrderID)
	if signature == "" || gatewayOrderID == "" {
		return nil
	}
	if s.payments == nil {
		return fmt.Errorf("%w: verifier not configured", ErrOrderPaymentInvalid)
	}
	err := s.payments.VerifyPayment(ctx, VerifyPaymentCommand{
		GatewayOrderID:   gatewayOrderID,
		GatewayPaymentID: strings.TrimSpace(payment.GatewayPaymentID),
		Signature:        signature,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOrderPaymentInvalid, err)
	}
	return nil
}

func (s *orderService) GetOrder(ctx context.Context, orderID string) (Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}
	return order, nil
}

func (s *orderService) ListUserOrders(ctx context.Context, userID string) ([]Order, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrOrderInvalidInput)
	}
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, s.mapRepositoryError(err)
	}
	return orders, nil
}

// ListAllOrders returns the newest orders for the admin panel, served from the cache when warm.
func (s *orderService) ListAllOrders(ctx context.Context) ([]Order, error) {
	if s.cache != nil {
		if cached, ok := s.cache.Get(adminListCacheKey); ok {
			return cached, nil
		}
	}
	orders, err := s.orders.ListRecent(ctx, s.adminLimit)
	if err != nil {
		return nil, s.mapRepositoryError(err)
	}
	if s.cache != nil {
		s.cache.Set(adminListCacheKey, orders)
	}
	return orders, nil
}

func (s *orderService) CancelOrder(ctx context.Context, cmd CancelOrderCommand) (Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	return s.cancel(ctx, orderID, noteCancelledByUser, strings.TrimSpace(cmd.ActorID))
}

// cancel claims the Cancelled status atomically, then returns the stock. A release failure is
// logged; the cancellation stands.
func (s *orderService) cancel(ctx context.Context, orderID, note, actor string) (Order, error) {
	now := s.clock()
	var previous OrderStatus
	updated, err := s.orders.Update(ctx, orderID, func(order *Order) error {
		switch {
		case order.Status == domain.OrderStatusCancelled:
			return fmt.Errorf("%w: order already cancelled", ErrOrderNotCancellable)
		case !order.Status.Cancellable():
			return fmt.Errorf("%w: cannot cancel %s order", ErrOrderNotCancellable, strings.ToLower(string(order.Status)))
		}
		previous = order.Status
		order.SetStatus(domain.OrderStatusCancelled, now, note)
		return nil
	})
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}

	s.releaseBestEffort(ctx, updated.ID, domain.StockLinesFromItems(updated.Items), "cancel")
	s.invalidateList()
	s.logger(ctx, "order.cancelled", map[string]any{
		"orderId":  updated.ID,
		"previous": string(previous),
	})
	publishOrderEvent(ctx, s.events, s.logger, OrderEvent{
		Type:           OrderEventCancelled,
		OrderID:        updated.ID,
		UserID:         updated.UserID,
		PreviousStatus: string(previous),
		CurrentStatus:  string(updated.Status),
		ActorID:        actor,
		OccurredAt:     now,
		Metadata:       map[string]any{"note": note},
	})
	return updated, nil
}

// TransitionStatus moves the order to the requested status. Entering Confirmed books a consignment
// when the carrier serves the address and none exists yet; the booking outcome never blocks the
// transition.
func (s *orderService) TransitionStatus(ctx context.Context, cmd StatusTransitionCommand) (StatusTransitionResult, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return StatusTransitionResult{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	target, ok := domain.ParseOrderStatus(strings.TrimSpace(cmd.Status))
	if !ok {
		return StatusTransitionResult{}, fmt.Errorf("%w: %q", ErrOrderInvalidStatus, cmd.Status)
	}
	note := strings.TrimSpace(cmd.Note)
	if note == "" {
		note = "Updated to " + string(target)
	}
	actor := strings.TrimSpace(cmd.ActorID)

	if target == domain.OrderStatusCancelled {
		order, err := s.cancel(ctx, orderID, note, actor)
		if err != nil {
			return StatusTransitionResult{}, err
		}
		return StatusTransitionResult{Order: order, CourierBooked: order.HasConsignment()}, nil
	}

	if target == domain.OrderStatusConfirmed && s.carrier != nil {
		order, handled, err := s.confirmWithBooking(ctx, orderID, note, actor, cmd.Weight)
		if handled || err != nil {
			if err != nil {
				return StatusTransitionResult{}, err
			}
			return StatusTransitionResult{Order: order, CourierBooked: order.HasConsignment()}, nil
		}
	}

	now := s.clock()
	var previous OrderStatus
	updated, err := s.orders.Update(ctx, orderID, func(order *Order) error {
		if err := ensureNotTerminal(order); err != nil {
			return err
		}
		previous = order.Status
		order.SetStatus(target, now, note)
		return nil
	})
	if err != nil {
		return StatusTransitionResult{}, s.mapRepositoryError(err)
	}
	s.afterTransition(ctx, updated, previous, actor, now)
	return StatusTransitionResult{Order: updated, CourierBooked: updated.HasConsignment()}, nil
}

// confirmWithBooking claims the booking slot by flipping bookingStatus to pending, calls the carrier
// outside any transaction and commits the outcome together with the status change. handled is false
// when no booking was needed and the caller should run a plain transition.
func (s *orderService) confirmWithBooking(ctx context.Context, orderID, note, actor string, weightOverride *float64) (Order, bool, error) {
	claimed, err := s.orders.Update(ctx, orderID, func(order *Order) error {
		if err := ensureNotTerminal(order); err != nil {
			return err
		}
		now := s.clock()
		if order.Status == domain.OrderStatusConfirmed ||
			order.HasConsignment() ||
			order.Courier.ClaimHeld(now, bookingClaimTTL) ||
			!s.carrier.Eligible(order.ShippingAddress) {
			return errBookingNotNeeded
		}
		claimBooking(order, now)
		return nil
	})
	if errors.Is(err, errBookingNotNeeded) {
		return Order{}, false, nil
	}
	if err != nil {
		return Order{}, true, s.mapRepositoryError(err)
	}

	weight := autoBookingWeight(claimed, weightOverride)
	booking, bookErr := s.carrier.Book(ctx, claimed, weight)
	now := s.clock()
	if bookErr != nil {
		s.metrics.Booking(ctx, string(CourierBookingModeAuto), "failed")
		s.logger(ctx, "courier.autobook.failed", map[string]any{
			"orderId": orderID,
			"error":   bookErr.Error(),
		})
	} else {
		s.metrics.Booking(ctx, string(CourierBookingModeAuto), "booked")
	}

	var previous OrderStatus
	cancelledMeanwhile := false
	updated, err := s.orders.Update(ctx, orderID, func(order *Order) error {
		if bookErr != nil {
			recordBookingFailure(order, s.carrierName(), weight, now, bookErr,
				"Auto-Booking Failed", "Auto-booking failed: "+carrierMessage(bookErr), true)
		} else {
			recordBooking(order, booking, weight, now, bookingLocationShop, "Auto-booked on confirmation")
		}
		previous = order.Status
		if order.Status == domain.OrderStatusCancelled {
			cancelledMeanwhile = true
			order.UpdatedAt = now
			return nil
		}
		order.SetStatus(domain.OrderStatusConfirmed, now, note)
		return nil
	})
	if err != nil {
		if bookErr == nil {
			s.logger(ctx, "courier.autobook.orphaned", map[string]any{
				"orderId": orderID,
				"awb":     booking.AWBNumber,
				"error":   err.Error(),
			})
		}
		settleClaim(ctx, s.orders, s.logger, orderID, booking, bookErr, s.carrierName(), weight, now)
		return Order{}, true, s.mapRepositoryError(err)
	}

	if bookErr != nil {
		publishOrderEvent(ctx, s.events, s.logger, OrderEvent{
			Type:          OrderEventCourierBookingFailed,
			OrderID:       updated.ID,
			UserID:        updated.UserID,
			CurrentStatus: string(updated.Status),
			ActorID:       actor,
			OccurredAt:    now,
			Metadata:      map[string]any{"mode": string(CourierBookingModeAuto), "reason": carrierMessage(bookErr)},
		})
	} else {
		publishOrderEvent(ctx, s.events, s.logger, OrderEvent{
			Type:          OrderEventCourierBooked,
			OrderID:       updated.ID,
			UserID:        updated.UserID,
			CurrentStatus: string(updated.Status),
			ActorID:       actor,
			OccurredAt:    now,
			Metadata:      map[string]any{"mode": string(CourierBookingModeAuto), "awb": booking.AWBNumber},
		})
	}

	if cancelledMeanwhile {
		s.invalidateList()
		return Order{}, true, fmt.Errorf("%w: order was cancelled during booking", ErrOrderConflict)
	}
	s.afterTransition(ctx, updated, previous, actor, now)
	return updated, true, nil
}

func ensureNotTerminal(order *Order) error {
	if order.Status.Terminal() {
		return fmt.Errorf("%w: order is %s", ErrOrderAlreadyTerminal, strings.ToLower(string(order.Status)))
	}
	return nil
}

// claimBooking takes the booking slot so concurrent requests do not call the carrier twice.
func claimBooking(order *Order, now time.Time) {
	order.Courier.BookingStatus = domain.BookingStatusPending
	order.Courier.ClaimedAt = now
	order.UpdatedAt = now
}

// settleClaim records the carrier outcome on the courier substructure when the commit that should
// have carried it failed. The order status is left alone. If this write fails too the claim expires
// after bookingClaimTTL.
func settleClaim(ctx context.Context, orders repositories.OrderRepository, logger func(context.Context, string, map[string]any),
	orderID string, booking CarrierBooking, bookErr error, carrierName string, weight float64, now time.Time) {
	_, err := orders.Update(ctx, orderID, func(order *Order) error {
		if order.Courier.BookingStatus != domain.BookingStatusPending {
			return errBookingNotNeeded
		}
		if bookErr != nil {
			recordBookingFailure(order, carrierName, weight, now, bookErr, "Booking Failed", carrierMessage(bookErr), false)
			return nil
		}
		recordBooking(order, booking, weight, now, bookingLocationSystem, "Booking recorded after a failed save")
		return nil
	})
	if err != nil && !errors.Is(err, errBookingNotNeeded) {
		logger(ctx, "courier.claim.settle_failed", map[string]any{
			"orderId": orderID,
			"error":   err.Error(),
		})
	}
}

func (s *orderService) afterTransition(ctx context.Context, order Order, previous OrderStatus, actor string, now time.Time) {
	s.invalidateList()
	s.logger(ctx, "order.status.changed", map[string]any{
		"orderId":  order.ID,
		"previous": string(previous),
		"current":  string(order.Status),
	})
	publishOrderEvent(ctx, s.events, s.logger, OrderEvent{
		Type:           OrderEventStatusChanged,
		OrderID:        order.ID,
		UserID:         order.UserID,
		PreviousStatus: string(previous),
		CurrentStatus:  string(order.Status),
		ActorID:        actor,
		OccurredAt:     now,
	})
}

func (s *orderService) carrierName() string {
	if named, ok := s.carrier.(interface{ Name() string }); ok {
		return named.Name()
	}
	return ""
}

func (s *orderService) releaseBestEffort(ctx context.Context, orderID string, lines []StockLine, reason string) {
	if len(lines) == 0 {
		return
	}
	if err := s.inventory.Release(ctx, lines); err != nil {
		s.logger(ctx, "inventory.release.failed", map[string]any{
			"orderId": orderID,
			"reason":  reason,
			"error":   err.Error(),
		})
	}
}

func (s *orderService) clearCart(ctx context.Context, userID string, now time.Time) {
	if s.carts == nil {
		return
	}
	if err := s.carts.Clear(ctx, userID, now); err != nil {
		s.logger(ctx, "cart.clear.failed", map[string]any{
			"userId": userID,
			"error":  err.Error(),
		})
	}
}

func (s *orderService) invalidateList() {
	if s.cache != nil {
		s.cache.Purge()
	}
}

func (s *orderService) mapRepositoryError(err error) error {
	return mapOrderRepositoryError(err)
}

func mapOrderRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrOrderNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrOrderConflict, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("%w: %v", ErrOrderUnavailable, err)
		}
	}
	return err
}

// validatePlacement runs the placement checks in their fixed order and returns the resolved phone.
func validatePlacement(cmd PlaceOrderCommand) (string, error) {
	if strings.TrimSpace(cmd.UserID) == "" {
		return "", fmt.Errorf("%w: User ID is required", ErrOrderInvalidInput)
	}
	if len(cmd.Items) == 0 {
		return "", fmt.Errorf("%w: Order items are required", ErrOrderInvalidInput)
	}
	if math.IsNaN(cmd.TotalAmount) || cmd.TotalAmount <= 0 {
		return "", fmt.Errorf("%w: Valid amount required", ErrOrderInvalidInput)
	}
	if missing := missingAddressFields(cmd.ShippingAddress); len(missing) > 0 {
		return "", fmt.Errorf("%w: Missing: %s", ErrOrderInvalidInput, strings.Join(missing, ", "))
	}
	phone := firstNonEmpty(strings.TrimSpace(cmd.CustomerPhone), strings.TrimSpace(cmd.Phone))
	if phone == "" {
		return "", fmt.Errorf("%w: Customer phone number is required", ErrOrderInvalidInput)
	}
	return phone, nil
}

func missingAddressFields(addr *ShippingAddress) []string {
	if addr == nil {
		return []string{"street", "village", "district", "state", "pincode", "country"}
	}
	fields := []struct {
		name  string
		value string
	}{
		{"street", addr.Street},
		{"village", addr.Village},
		{"district", addr.District},
		{"state", addr.State},
		{"pincode", addr.Pincode},
		{"country", addr.Country},
	}
	var missing []string
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

func trimAddress(addr ShippingAddress) ShippingAddress {
	return ShippingAddress{
		Street:   strings.TrimSpace(addr.Street),
		Village:  strings.TrimSpace(addr.Village),
		PO:       strings.TrimSpace(addr.PO),
		Taluk:    strings.TrimSpace(addr.Taluk),
		District: strings.TrimSpace(addr.District),
		State:    strings.TrimSpace(addr.State),
		Pincode:  strings.TrimSpace(addr.Pincode),
		Country:  strings.TrimSpace(addr.Country),
	}
}

// normaliseOrderItems builds the canonical item snapshot: id from id or productId, name and title
// falling back to each other and then to "Product".
func normaliseOrderItems(inputs []OrderItemInput) ([]OrderItem, error) {
	items := make([]OrderItem, 0, len(inputs))
	for i, in := range inputs {
		id := firstNonEmpty(strings.TrimSpace(in.ID), strings.TrimSpace(in.ProductID))
		if id == "" {
			return nil, fmt.Errorf("%w: item %d: product id is required", ErrOrderInvalidInput, i+1)
		}
		if in.Quantity < 1 {
			return nil, fmt.Errorf("%w: item %d: quantity must be at least 1", ErrOrderInvalidInput, i+1)
		}
		size := strings.TrimSpace(in.Size)
		color := strings.TrimSpace(in.Color)
		if size == "" || color == "" {
			return nil, fmt.Errorf("%w: item %d: size and color are required", ErrOrderInvalidInput, i+1)
		}
		name := strings.TrimSpace(in.Name)
		title := strings.TrimSpace(in.Title)
		items = append(items, OrderItem{
			ProductID:     id,
			Name:          firstNonEmpty(name, title, defaultItemName),
			Title:         firstNonEmpty(title, name, defaultItemName),
			Price:         in.Price,
			Quantity:      in.Quantity,
			Size:          size,
			Color:         color,
			Image:         strings.TrimSpace(in.Image),
			Collection:    strings.TrimSpace(in.Collection),
			OriginalPrice: in.OriginalPrice,
			Discount:      in.Discount,
		})
	}
	return items, nil
}

func resolvePaymentMethod(raw string, prepaid bool) (domain.PaymentMethod, error) {
	method := domain.PaymentMethod(strings.ToLower(strings.TrimSpace(raw)))
	switch method {
	case "":
		if prepaid {
			return domain.PaymentMethodOnline, nil
		}
		return domain.PaymentMethodCOD, nil
	case domain.PaymentMethodCOD, domain.PaymentMethodOnline:
		return method, nil
	}
	return "", fmt.Errorf("%w: unsupported payment method %q", ErrOrderInvalidInput, raw)
}

// autoBookingWeight prefers the caller's weight, else 0.5kg per piece with a 1kg floor.
func autoBookingWeight(order Order, override *float64) float64 {
	if override != nil && *override > 0 {
		return *override
	}
	weight := 0.5 * float64(order.TotalQuantity())
	if weight < 1 {
		weight = 1
	}
	return weight
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
