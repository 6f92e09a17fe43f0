package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	domain "github.com/Vidhya-shiva/prabha-backend-file/internal/domain"
	"github.com/Vidhya-shiva/prabha-backend-file/internal/repositories"
)

var (
	// ErrCourierInvalidInput signals missing or malformed booking fields.
	ErrCourierInvalidInput = errors.New("courier: invalid input")
	// ErrCourierAlreadyBooked indicates the order already carries a booked consignment.
	ErrCourierAlreadyBooked = errors.New("courier: already booked")
	// ErrCourierBookingInProgress indicates another request holds the booking slot.
	ErrCourierBookingInProgress = errors.New("courier: booking in progress")
	// ErrCourierNotBooked indicates there is no consignment to cancel.
	ErrCourierNotBooked = errors.New("courier: no booking found")
	// ErrCourierAlreadyCancelled indicates the consignment was already cancelled.
	ErrCourierAlreadyCancelled = errors.New("courier: already cancelled")
)

// CarrierError describes a failed carrier call. Only the explicit courier endpoints surface it.
type CarrierError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *CarrierError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("courier %s: %s", e.Op, e.Message)
}

func (e *CarrierError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// CourierServiceDeps bundles collaborators required to construct the courier service.
type CourierServiceDeps struct {
	Orders  repositories.OrderRepository
	Carrier CarrierGateway
	Events  OrderEventPublisher
	Cache   OrderListCache
	Metrics OrderMetrics
	Clock   func() time.Time
	Logger  func(ctx context.Context, event string, fields map[string]any)
}

type courierService struct {
	orders  repositories.OrderRepository
	carrier CarrierGateway
	events  OrderEventPublisher
	cache   OrderListCache
	metrics OrderMetrics
	clock   func() time.Time
	logger  func(context.Context, string, map[string]any)
}

// NewCourierService wires dependencies into a concrete CourierService implementation. Without a
// carrier every booking takes the manual path.
func NewCourierService(deps CourierServiceDeps) (CourierService, error) {
	if deps.Orders == nil {
		return nil, errors.New("courier service: order repository is required")
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
	return &courierService{
		orders:  deps.Orders,
		carrier: deps.Carrier,
		events:  deps.Events,
		cache:   deps.Cache,
		metrics: metrics,
		clock: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

func (s *courierService) BookCourier(ctx context.Context, cmd BookCourierCommand) (CourierBookingResult, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return CourierBookingResult{}, fmt.Errorf("%w: order id is required", ErrCourierInvalidInput)
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return CourierBookingResult{}, mapOrderRepositoryError(err)
	}
	if err := ensureBookable(&order, s.clock()); err != nil {
		return CourierBookingResult{}, err
	}

	if s.carrier != nil && s.carrier.Eligible(order.ShippingAddress) {
		return s.bookViaCarrier(ctx, orderID, cmd)
	}
	return s.bookManually(ctx, orderID, cmd)
}

func (s *courierService) bookViaCarrier(ctx context.Context, orderID string, cmd BookCourierCommand) (CourierBookingResult, error) {
	if cmd.Weight <= 0 {
		return CourierBookingResult{}, fmt.Errorf("%w: Valid weight is required for %s booking", ErrCourierInvalidInput, s.carrierName())
	}
	claimed, err := s.orders.Update(ctx, orderID, func(order *Order) error {
		now := s.clock()
		if err := ensureBookable(order, now); err != nil {
			return err
		}
		claimBooking(order, now)
		return nil
	})
	if err != nil {
		return CourierBookingResult{}, mapOrderRepositoryError(err)
	}

	booking, bookErr := s.carrier.Book(ctx, claimed, cmd.Weight)
	now := s.clock()
	updated, err := s.orders.Update(ctx, orderID, func(order *Order) error {
		if bookErr != nil {
			recordBookingFailure(order, s.carrierName(), cmd.Weight, now, bookErr, "Booking Failed", carrierMessage(bookErr), false)
			return nil
		}
		recordBooking(order, booking, cmd.Weight, now, bookingLocationShop, "Consignment booked successfully")
		order.AppendStatus(order.Status, now, "Courier booked - AWB: "+booking.AWBNumber)
		return nil
	})
	if err != nil {
		if bookErr == nil {
			s.logger(ctx, "courier.book.orphaned", map[string]any{
				"orderId": orderID,
				"awb":     booking.AWBNumber,
				"error":   err.Error(),
			})
		}
		settleClaim(ctx, s.orders, s.logger, orderID, booking, bookErr, s.carrierName(), cmd.Weight, now)
		return CourierBookingResult{}, mapOrderRepositoryError(err)
	}
	s.invalidateList()

	if bookErr != nil {
		s.metrics.Booking(ctx, string(CourierBookingModeAPI), "failed")
		s.logger(ctx, "courier.book.failed", map[string]any{"orderId": orderID, "error": bookErr.Error()})
		s.publish(ctx, updated, OrderEventCourierBookingFailed, cmd.ActorID, now, map[string]any{
			"mode":   string(CourierBookingModeAPI),
			"reason": carrierMessage(bookErr),
		})
		return CourierBookingResult{}, asCarrierError("book", bookErr)
	}

	s.metrics.Booking(ctx, string(CourierBookingModeAPI), "booked")
	s.logger(ctx, "courier.book.succeeded", map[string]any{"orderId": orderID, "awb": booking.AWBNumber})
	s.publish(ctx, updated, OrderEventCourierBooked, cmd.ActorID, now, map[string]any{
		"mode": string(CourierBookingModeAPI),
		"awb":  booking.AWBNumber,
	})
	return CourierBookingResult{Order: updated, Mode: CourierBookingModeAPI}, nil
}

func (s *courierService) bookManually(ctx context.Context, orderID string, cmd BookCourierCommand) (CourierBookingResult, error) {
	name := strings.TrimSpace(cmd.CourierName)
	awb := strings.TrimSpace(cmd.AWBNumber)
	if name == "" {
		return CourierBookingResult{}, fmt.Errorf("%w: Courier name is required for manual bookings", ErrCourierInvalidInput)
	}
	if awb == "" {
		return CourierBookingResult{}, fmt.Errorf("%w: AWB/Tracking number is required", ErrCourierInvalidInput)
	}
	weight := ""
	if cmd.Weight > 0 {
		weight = formatWeight(cmd.Weight)
	}

	now := s.clock()
	updated, err := s.orders.Update(ctx, orderID, func(order *Order) error {
		if err := ensureBookable(order, now); err != nil {
			return err
		}
		order.Courier = CourierDetails{
			CourierName:     name,
			AWBNumber:       awb,
			TrackingURL:     strings.TrimSpace(cmd.TrackingURL),
			BookingStatus:   domain.BookingStatusBooked,
			BookingResponse: map[string]any{"manual": true},
			Weight:          weight,
			StatusHistory: []CourierStatusEntry{{
				Status:    "Manually Added",
				Timestamp: now,
				Location:  bookingLocationAdmin,
				Remarks:   "Tracking details added manually",
			}},
		}
		order.AppendStatus(order.Status, now, fmt.Sprintf("Manual courier added - %s: %s", name, awb))
		return nil
	})
	if err != nil {
		return CourierBookingResult{}, mapOrderRepositoryError(err)
	}
	s.invalidateList()
	s.metrics.Booking(ctx, string(CourierBookingModeManual), "booked")
	s.logger(ctx, "courier.book.manual", map[string]any{"orderId": orderID, "courier": name, "awb": awb})
	s.publish(ctx, updated, OrderEventCourierBooked, cmd.ActorID, now, map[string]any{
		"mode":    string(CourierBookingModeManual),
		"awb":     awb,
		"courier": name,
	})
	return CourierBookingResult{Order: updated, Mode: CourierBookingModeManual}, nil
}

func (s *courierService) CancelCourier(ctx context.Context, cmd CancelCourierCommand) (CourierCancelResult, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return CourierCancelResult{}, fmt.Errorf("%w: order id is required", ErrCourierInvalidInput)
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return CourierCancelResult{}, mapOrderRepositoryError(err)
	}
	if err := ensureCancellable(&order, ""); err != nil {
		return CourierCancelResult{}, err
	}
	awb := order.Courier.AWBNumber

	mode := CourierBookingModeManual
	if s.carrier != nil && s.carrier.Eligible(order.ShippingAddress) && order.Courier.CourierName == s.carrierName() {
		mode = CourierBookingModeAPI
		if err := s.carrier.Cancel(ctx, awb, orderID); err != nil {
			s.logger(ctx, "courier.cancel.failed", map[string]any{"orderId": orderID, "awb": awb, "error": err.Error()})
			return CourierCancelResult{}, asCarrierError("cancel", err)
		}
	}

	now := s.clock()
	updated, err := s.orders.Update(ctx, orderID, func(order *Order) error {
		if err := ensureCancellable(order, awb); err != nil {
			return err
		}
		order.Courier.BookingStatus = domain.BookingStatusCancelled
		if mode == CourierBookingModeAPI {
			order.Courier.StatusHistory = append(order.Courier.StatusHistory, CourierStatusEntry{
				Status: "Cancelled", Timestamp: now, Location: bookingLocationSystem, Remarks: "Booking cancelled via API",
			})
			order.AppendStatus(order.Status, now, "Courier booking cancelled - AWB: "+awb)
			return nil
		}
		order.Courier.StatusHistory = append(order.Courier.StatusHistory, CourierStatusEntry{
			Status: "Cancelled", Timestamp: now, Location: bookingLocationAdmin, Remarks: "Booking cancelled manually",
		})
		order.AppendStatus(order.Status, now, fmt.Sprintf("Courier booking cancelled - %s: %s", order.Courier.CourierName, awb))
		return nil
	})
	if err != nil {
		return CourierCancelResult{}, mapOrderRepositoryError(err)
	}
	s.invalidateList()
	s.logger(ctx, "courier.cancelled", map[string]any{"orderId": orderID, "awb": awb, "mode": string(mode)})
	s.publish(ctx, updated, OrderEventCourierCancelled, cmd.ActorID, now, map[string]any{
		"mode": string(mode),
		"awb":  awb,
	})
	return CourierCancelResult{Order: updated, AWBNumber: awb, Mode: mode}, nil
}

func (s *courierService) GetCourierDetails(ctx context.Context, orderID string) (CourierDetails, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return CourierDetails{}, fmt.Errorf("%w: order id is required", ErrCourierInvalidInput)
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return CourierDetails{}, mapOrderRepositoryError(err)
	}
	return order.Courier, nil
}

func (s *courierService) carrierName() string {
	if named, ok := s.carrier.(interface{ Name() string }); ok {
		return named.Name()
	}
	return ""
}

func (s *courierService) invalidateList() {
	if s.cache != nil {
		s.cache.Purge()
	}
}

func (s *courierService) publish(ctx context.Context, order Order, eventType, actor string, now time.Time, metadata map[string]any) {
	publishOrderEvent(ctx, s.events, s.logger, OrderEvent{
		Type:          eventType,
		OrderID:       order.ID,
		UserID:        order.UserID,
		CurrentStatus: string(order.Status),
		ActorID:       strings.TrimSpace(actor),
		OccurredAt:    now,
		Metadata:      metadata,
	})
}

// ensureBookable rejects booked orders and orders whose pending claim is still live. An expired
// claim is treated as abandoned.
func ensureBookable(order *Order, now time.Time) error {
	switch {
	case order.Courier.BookingStatus == domain.BookingStatusBooked:
		return fmt.Errorf("%w: AWB %s", ErrCourierAlreadyBooked, order.Courier.AWBNumber)
	case order.Courier.ClaimHeld(now, bookingClaimTTL):
		return ErrCourierBookingInProgress
	}
	return nil
}

// ensureCancellable rejects orders without a consignment. A non-empty awb must still match so a
// rebooking between read and write is not cancelled by mistake.
func ensureCancellable(order *Order, awb string) error {
	if !order.HasConsignment() {
		return ErrCourierNotBooked
	}
	if awb != "" && order.Courier.AWBNumber != awb {
		return fmt.Errorf("%w: consignment changed during cancellation", ErrOrderConflict)
	}
	if order.Courier.BookingStatus == domain.BookingStatusCancelled {
		return ErrCourierAlreadyCancelled
	}
	return nil
}

// recordBooking replaces the courier substructure with a fresh booking.
func recordBooking(order *Order, booking CarrierBooking, weight float64, now time.Time, location, remarks string) {
	order.Courier = CourierDetails{
		CourierName:      booking.CourierName,
		AWBNumber:        booking.AWBNumber,
		TrackingURL:      booking.TrackingURL,
		BookingStatus:    domain.BookingStatusBooked,
		BookingResponse:  booking.Response,
		Weight:           formatWeight(weight),
		VolumetricWeight: booking.VolumetricWeight,
		StatusHistory: []CourierStatusEntry{{
			Status:    "Booked",
			Timestamp: now,
			Location:  location,
			Remarks:   remarks,
		}},
	}
	order.UpdatedAt = now
}

func recordBookingFailure(order *Order, courierName string, weight float64, now time.Time, cause error, status, remarks string, auto bool) {
	response := map[string]any{"error": carrierMessage(cause)}
	if auto {
		response["autoBooking"] = true
	}
	order.Courier = CourierDetails{
		CourierName:     courierName,
		BookingStatus:   domain.BookingStatusFailed,
		BookingResponse: response,
		Weight:          formatWeight(weight),
		StatusHistory: []CourierStatusEntry{{
			Status:    status,
			Timestamp: now,
			Location:  bookingLocationSystem,
			Remarks:   remarks,
		}},
	}
	order.UpdatedAt = now
}

func carrierMessage(err error) string {
	if err == nil {
		return ""
	}
	var carrierErr *CarrierError
	if errors.As(err, &carrierErr) && carrierErr.Message != "" {
		return carrierErr.Message
	}
	return err.Error()
}

func asCarrierError(op string, err error) error {
	var carrierErr *CarrierError
	if errors.As(err, &carrierErr) {
		return carrierErr
	}
	return &CarrierError{Op: op, Message: err.Error(), Err: err}
}

func formatWeight(weight float64) string {
	return strconv.FormatFloat(weight, 'f', -1, 64)
}
