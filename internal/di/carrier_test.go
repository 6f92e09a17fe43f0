package di

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vidhya-shiva/prabha-backend-file/internal/carrier/stcourier"
	"github.com/Vidhya-shiva/prabha-backend-file/internal/domain"
	"github.com/Vidhya-shiva/prabha-backend-file/internal/services"
)

func tamilNaduOrder() domain.Order {
	return domain.Order{
		ID:       "CKT_1",
		UserName: "Meena",
		Items:    []domain.OrderItem{{ProductID: "P1", Quantity: 1, Size: "Free", Color: "Red"}},
		ShippingAddress: domain.ShippingAddress{
			Village:  "Pongalur",
			District: "Tiruppur",
			State:    "Tamil Nadu",
			Pincode:  "641667",
			Country:  "India",
		},
	}
}

func TestCarrierGatewayBookMapsBooking(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"status":"1","awbno":"ST77","result":"Booked"}]`))
	}))
	defer srv.Close()

	gateway := newCarrierGateway(stcourier.NewClient(stcourier.Config{BookURL: srv.URL, APIToken: "t"}))
	require.True(t, gateway.Eligible(tamilNaduOrder().ShippingAddress))
	named, ok := gateway.(interface{ Name() string })
	require.True(t, ok)
	assert.Equal(t, "ST Courier", named.Name())

	booking, err := gateway.Book(context.Background(), tamilNaduOrder(), 1.5)
	require.NoError(t, err)
	assert.Equal(t, "ST77", booking.AWBNumber)
	assert.Equal(t, stcourier.CourierName, booking.CourierName)
	assert.Equal(t, "0.30", booking.VolumetricWeight)
	assert.Equal(t, "ST77", booking.Response["awbno"])
}

func TestCarrierGatewayTranslatesErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"message":"Service down"}`))
	}))
	defer srv.Close()

	gateway := newCarrierGateway(stcourier.NewClient(stcourier.Config{BookURL: srv.URL, CancelURL: srv.URL, APIToken: "t"}))

	_, err := gateway.Book(context.Background(), tamilNaduOrder(), 1)
	var carrierErr *services.CarrierError
	require.True(t, errors.As(err, &carrierErr))
	assert.Equal(t, "book", carrierErr.Op)
	assert.Equal(t, http.StatusBadGateway, carrierErr.StatusCode)
	assert.Equal(t, "Service down", carrierErr.Message)

	err = gateway.Cancel(context.Background(), "ST77", "CKT_1")
	require.True(t, errors.As(err, &carrierErr))
	assert.Equal(t, "cancel", carrierErr.Op)
}
