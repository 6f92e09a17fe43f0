package di

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vidhya-shiva/prabha-backend-file/internal/domain"
	"github.com/Vidhya-shiva/prabha-backend-file/internal/platform/config"
	"github.com/Vidhya-shiva/prabha-backend-file/internal/platform/idempotency"
	"github.com/Vidhya-shiva/prabha-backend-file/internal/repositories/memory"
	"github.com/Vidhya-shiva/prabha-backend-file/internal/services"
)

type recordingPublisher struct {
	events []services.OrderEvent
}

func (p *recordingPublisher) PublishOrderEvent(_ context.Context, event services.OrderEvent) error {
	p.events = append(p.events, event)
	return nil
}

func memoryConfig() config.Config {
	return config.Config{
		Persistence: config.PersistenceConfig{Driver: config.DriverMemory},
		Events:      config.EventsConfig{Sink: config.SinkNone},
		Orders:      config.OrdersConfig{IDPrefix: "CKT", CacheTTL: time.Minute, AdminLimit: 50},
	}
}

func TestNewContainerMemoryDriver(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

	reg := memory.NewRegistry()
	reg.Products().Put(domain.ProductStock{
		ProductID: "P1",
		Title:     "Kanchipuram Silk",
		Active:    true,
		Variants: map[string]map[string]domain.VariantStock{
			"Free": {"Red": {Quantity: 3}},
		},
	})
	reg.CartStore().Put(domain.Cart{UserID: "U1", Items: []domain.CartItem{{ProductID: "P1", Quantity: 2}}})

	events := &recordingPublisher{}
	c, err := NewContainer(ctx, memoryConfig(),
		WithRegistry(reg),
		WithEventPublisher(events),
		WithClock(func() time.Time { return now }),
		WithBuildInfo(services.BuildInfo{Version: "test"}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close(ctx) })

	require.NotNil(t, c.Services.Orders)
	require.NotNil(t, c.Services.Courier)
	require.NotNil(t, c.Services.Webhooks)
	require.NotNil(t, c.Services.Payments)
	require.NotNil(t, c.Services.Inventory)
	require.NotNil(t, c.Services.Health)
	require.NotNil(t, c.Infra.Auth)
	assert.False(t, c.Infra.Auth.Enabled())
	assert.IsType(t, &idempotency.MemoryStore{}, c.Infra.Idempotency)
	assert.Nil(t, c.Infra.Archive)

	order, err := c.Services.Orders.PlaceOrder(ctx, services.PlaceOrderCommand{
		UserID:        "U1",
		UserName:      "Meena",
		CustomerPhone: "9876543210",
		TotalAmount:   2400,
		Items: []services.OrderItemInput{
			{ProductID: "P1", Title: "Kanchipuram Silk", Price: 1200, Quantity: 2, Size: "Free", Color: "Red"},
		},
		ShippingAddress: &services.ShippingAddress{
			Street:   "1 Temple Road",
			Village:  "Pongalur",
			District: "Tiruppur",
			State:    "Tamil Nadu",
			Pincode:  "641667",
			Country:  "India",
		},
	})
	require.NoError(t, err)
	assert.Regexp(t, `^CKT_\d{8}_\d{5}$`, order.ID)

	stock, err := c.Services.Inventory.GetStock(ctx, "P1")
	require.NoError(t, err)
	variant, ok := stock.Variant("Free", "Red")
	require.True(t, ok)
	assert.Equal(t, 1, variant.Quantity)

	cancelled, err := c.Services.Orders.CancelOrder(ctx, services.CancelOrderCommand{OrderID: order.ID, ActorID: "U1"})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, cancelled.Status)

	stock, err = c.Services.Inventory.GetStock(ctx, "P1")
	require.NoError(t, err)
	variant, _ = stock.Variant("Free", "Red")
	assert.Equal(t, 3, variant.Quantity)

	require.NotEmpty(t, events.events)
	assert.Equal(t, services.OrderEventPlaced, events.events[0].Type)

	report := c.Services.Health.Report(ctx)
	assert.Equal(t, domain.HealthStatusOK, report.Status)
	assert.Equal(t, "test", report.Version)
}

func TestNewContainerBuildsMemoryRegistryFromConfig(t *testing.T) {
	ctx := context.Background()

	c, err := NewContainer(ctx, memoryConfig())
	require.NoError(t, err)

	assert.IsType(t, &memory.Registry{}, c.Repositories)
	require.NoError(t, c.Close(ctx))
	require.NoError(t, c.Close(ctx))
}

func TestNewEventPublisherDisabledSink(t *testing.T) {
	publisher, _, closeFn, err := newEventPublisher(context.Background(), config.EventsConfig{Sink: config.SinkNone}, nil)
	require.NoError(t, err)
	assert.Nil(t, publisher)
	assert.Nil(t, closeFn)
}

func TestDialKafkaWithoutBrokers(t *testing.T) {
	err := dialKafka(context.Background(), nil)
	require.Error(t, err)
}
