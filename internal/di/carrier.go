package di

import (
	"context"
	"errors"

	"github.com/Vidhya-shiva/prabha-backend-file/internal/carrier/stcourier"
	"github.com/Vidhya-shiva/prabha-backend-file/internal/services"
)

// stCourierGateway exposes the ST Courier client through the services carrier contract.
type stCourierGateway struct {
	client *stcourier.Client
}

func newCarrierGateway(client *stcourier.Client) services.CarrierGateway {
	return &stCourierGateway{client: client}
}

// Name is the courier name recorded on API bookings.
func (g *stCourierGateway) Name() string { return stcourier.CourierName }

func (g *stCourierGateway) Eligible(addr services.ShippingAddress) bool {
	return g.client.Eligible(addr)
}

func (g *stCourierGateway) Book(ctx context.Context, order services.Order, weight float64) (services.CarrierBooking, error) {
	booking, err := g.client.Book(ctx, order, weight)
	if err != nil {
		return services.CarrierBooking{}, carrierError("book", err)
	}
	return services.CarrierBooking{
		CourierName:      booking.CourierName,
		AWBNumber:        booking.AWBNumber,
		TrackingURL:      booking.TrackingURL,
		VolumetricWeight: stcourier.VolumetricWeight(weight),
		Response:         booking.Raw,
	}, nil
}

func (g *stCourierGateway) Cancel(ctx context.Context, awbNumber, orderID string) error {
	if _, err := g.client.Cancel(ctx, awbNumber, orderID); err != nil {
		return carrierError("cancel", err)
	}
	return nil
}

func carrierError(op string, err error) error {
	var stErr *stcourier.Error
	if errors.As(err, &stErr) {
		return &services.CarrierError{Op: stErr.Op, StatusCode: stErr.StatusCode, Message: stErr.Message, Err: err}
	}
	return &services.CarrierError{Op: op, Message: err.Error(), Err: err}
}
