package di

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/pubsub"
	gcs "cloud.google.com/go/storage"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Vidhya-shiva/prabha-backend-file/internal/carrier/stcourier"
	"github.com/Vidhya-shiva/prabha-backend-file/internal/payments"
	"github.com/Vidhya-shiva/prabha-backend-file/internal/platform/auth"
	"github.com/Vidhya-shiva/prabha-backend-file/internal/platform/cache"
	"github.com/Vidhya-shiva/prabha-backend-file/internal/platform/config"
	pfirestore "github.com/Vidhya-shiva/prabha-backend-file/internal/platform/firestore"
	"github.com/Vidhya-shiva/prabha-backend-file/internal/platform/idempotency"
	"github.com/Vidhya-shiva/prabha-backend-file/internal/platform/jobs"
	"github.com/Vidhya-shiva/prabha-backend-file/internal/platform/observability"
	"github.com/Vidhya-shiva/prabha-backend-file/internal/platform/requestctx"
	"github.com/Vidhya-shiva/prabha-backend-file/internal/platform/storage"
	"github.com/Vidhya-shiva/prabha-backend-file/internal/repositories"
	firestorerepo "github.com/Vidhya-shiva/prabha-backend-file/internal/repositories/firestore"
	"github.com/Vidhya-shiva/prabha-backend-file/internal/repositories/memory"
	"github.com/Vidhya-shiva/prabha-backend-file/internal/services"
)

const (
	probeTimeout          = 2 * time.Second
	idempotencyCollection = "idempotencyKeys"
	usersCollection       = "users"
)

// Services bundles the service-layer contracts that handlers rely upon.
type Services struct {
	Orders    services.OrderService
	Courier   services.CourierService
	Webhooks  services.CourierWebhookService
	Payments  services.PaymentService
	Inventory services.InventoryService
	Health    services.HealthService
}

// Infrastructure exposes the adapters the HTTP layer wires directly.
type Infrastructure struct {
	Auth        *auth.Authenticator
	Idempotency idempotency.Store
	Archive     *storage.WebhookArchive
}

// Container wires repositories, services, and background infrastructure for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services
	Infra        Infrastructure

	logger  *zap.Logger
	closers []func(context.Context) error
}

// Option customises NewContainer.
type Option func(*options)

type options struct {
	logger   *zap.Logger
	registry repositories.Registry
	events   services.OrderEventPublisher
	build    services.BuildInfo
	clock    func() time.Time
	meter    metric.Meter
}

// WithLogger sets the base logger; subsystems derive named children from it.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithRegistry bypasses driver selection, mainly for tests backed by the memory registry.
func WithRegistry(reg repositories.Registry) Option {
	return func(o *options) { o.registry = reg }
}

// WithEventPublisher bypasses the configured event sink.
func WithEventPublisher(events services.OrderEventPublisher) Option {
	return func(o *options) { o.events = events }
}

// WithBuildInfo sets the version reported by the health endpoints.
func WithBuildInfo(build services.BuildInfo) Option {
	return func(o *options) { o.build = build }
}

// WithClock overrides the wall clock shared by every service.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithMeter overrides the OpenTelemetry meter used for order counters.
func WithMeter(meter metric.Meter) Option {
	return func(o *options) { o.meter = meter }
}

// NewContainer constructs the runtime dependencies for cfg.
func NewContainer(ctx context.Context, cfg config.Config, opts ...Option) (*Container, error) {
	o := options{logger: zap.NewNop(), clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	c := &Container{Config: cfg, logger: o.logger}
	var probes []repositories.HealthProbe

	var provider *pfirestore.Provider
	reg := o.registry
	if reg == nil {
		switch cfg.Persistence.Driver {
		case config.DriverMemory:
			o.logger.Warn("using in-memory persistence; data is lost on restart")
			reg = memory.NewRegistry()
		default:
			provider = pfirestore.NewProvider(cfg.Firestore)
			fsReg, err := firestorerepo.NewRegistry(provider)
			if err != nil {
				return nil, fmt.Errorf("build firestore registry: %w", err)
			}
			reg = fsReg
		}
	}
	c.Repositories = reg
	c.closers = append(c.closers, reg.Close)
	if pinger, ok := reg.(interface{ Ping(context.Context) error }); ok {
		probes = append(probes, repositories.HealthProbe{Name: "firestore", Timeout: probeTimeout, Probe: pinger.Ping})
	}

	events := o.events
	if events == nil {
		publisher, probe, closeFn, err := newEventPublisher(ctx, cfg.Events, o.logger.Named("events"))
		if err != nil {
			_ = c.Close(ctx)
			return nil, err
		}
		if publisher != nil {
			events = publisher
			probes = append(probes, probe)
			c.closers = append(c.closers, closeFn)
		}
	}

	metrics, err := observability.NewOrderMetrics(o.meter)
	if err != nil {
		_ = c.Close(ctx)
		return nil, fmt.Errorf("build order metrics: %w", err)
	}
	listCache := cache.NewTTL[[]services.Order](cfg.Orders.CacheTTL, o.clock)

	var carrier services.CarrierGateway
	if cfg.Carrier.Enabled() {
		carrier = newCarrierGateway(stcourier.NewClient(stcourier.Config{
			BookURL:      cfg.Carrier.APIURL,
			CancelURL:    cfg.Carrier.CancelURL,
			APIToken:     cfg.Carrier.APIToken,
			CustomerCode: cfg.Carrier.CustomerCode,
			Sender: stcourier.Sender{
				Name:     cfg.Carrier.SenderName,
				Address1: cfg.Carrier.SenderAddress1,
				Address2: cfg.Carrier.SenderAddress2,
				Pincode:  cfg.Carrier.SenderPincode,
				Phone:    cfg.Carrier.SenderPhone,
			},
			Timeout: cfg.Carrier.Timeout,
		}))
	} else {
		o.logger.Warn("carrier API not configured; courier bookings are manual only")
	}

	razorpay := payments.NewRazorpayProvider(payments.RazorpayProviderConfig{
		KeyID:     cfg.Razorpay.KeyID,
		KeySecret: cfg.Razorpay.KeySecret,
		APIURL:    cfg.Razorpay.APIURL,
		Logger:    observability.EventLogger(o.logger, "payments"),
		Clock:     o.clock,
	})
	if !razorpay.Configured() {
		o.logger.Warn("razorpay credentials missing; online payments will fail")
	}

	svc, err := buildServices(cfg, reg, serviceInfra{
		carrier:  carrier,
		payments: razorpay,
		events:   events,
		cache:    listCache,
		metrics:  metrics,
		clock:    o.clock,
		logger:   o.logger,
	})
	if err != nil {
		_ = c.Close(ctx)
		return nil, err
	}

	probeSet, err := repositories.NewHealthProbeSet(probes, o.clock)
	if err != nil {
		_ = c.Close(ctx)
		return nil, fmt.Errorf("build health probes: %w", err)
	}
	health, err := services.NewHealthService(services.HealthServiceDeps{
		Probes: probeSet,
		Build:  o.build,
		Clock:  o.clock,
	})
	if err != nil {
		_ = c.Close(ctx)
		return nil, fmt.Errorf("build health service: %w", err)
	}
	svc.Health = health
	c.Services = svc

	authOpts := []auth.Option{auth.WithLogger(o.logger.Named("auth"))}
	if provider != nil {
		authOpts = append(authOpts, auth.WithAdminChecker(firestoreAdminChecker(provider)))
	}
	c.Infra.Auth = auth.NewAuthenticator(cfg.Auth.JWTSecret, authOpts...)
	if !c.Infra.Auth.Enabled() {
		o.logger.Warn("JWT_SECRET not set; admin routes are unprotected")
	}

	if provider != nil {
		c.Infra.Idempotency = idempotency.NewFirestoreStore(provider, idempotencyCollection)
	} else {
		c.Infra.Idempotency = idempotency.NewMemoryStore()
	}

	if bucket := strings.TrimSpace(cfg.Storage.WebhookArchiveBucket); bucket != "" {
		archive, closeFn, err := newWebhookArchive(ctx, bucket, o.clock)
		if err != nil {
			o.logger.Warn("webhook archive disabled", zap.Error(err))
		} else {
			c.Infra.Archive = archive
			c.closers = append(c.closers, closeFn)
		}
	}

	return c, nil
}

// Close releases clients in reverse construction order.
func (c *Container) Close(ctx context.Context) error {
	if c == nil {
		return nil
	}
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

type serviceInfra struct {
	carrier  services.CarrierGateway
	payments payments.Provider
	events   services.OrderEventPublisher
	cache    services.OrderListCache
	metrics  services.OrderMetrics
	clock    func() time.Time
	logger   *zap.Logger
}

func buildServices(cfg config.Config, reg repositories.Registry, infra serviceInfra) (Services, error) {
	var svc Services

	inventorySvc, err := services.NewInventoryService(services.InventoryServiceDeps{
		Inventory: reg.Inventory(),
		Metrics:   infra.metrics,
		Clock:     infra.clock,
		Logger:    observability.EventLogger(infra.logger, "inventory"),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build inventory service: %w", err)
	}
	svc.Inventory = inventorySvc

	paymentSvc, err := services.NewPaymentService(services.PaymentServiceDeps{
		Provider: infra.payments,
		Clock:    infra.clock,
		Logger:   observability.EventLogger(infra.logger, "payments"),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build payment service: %w", err)
	}
	svc.Payments = paymentSvc

	orderSvc, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:         reg.Orders(),
		Carts:          reg.Carts(),
		Inventory:      inventorySvc,
		Carrier:        infra.carrier,
		Payments:       paymentSvc,
		Events:         infra.events,
		Cache:          infra.cache,
		Metrics:        infra.metrics,
		Clock:          infra.clock,
		IDGenerator:    services.OrderIDGenerator(cfg.Orders.IDPrefix, infra.clock),
		AdminListLimit: cfg.Orders.AdminLimit,
		Logger:         observability.EventLogger(infra.logger, "orders"),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build order service: %w", err)
	}
	svc.Orders = orderSvc

	courierSvc, err := services.NewCourierService(services.CourierServiceDeps{
		Orders:  reg.Orders(),
		Carrier: infra.carrier,
		Events:  infra.events,
		Cache:   infra.cache,
		Metrics: infra.metrics,
		Clock:   infra.clock,
		Logger:  observability.EventLogger(infra.logger, "courier"),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build courier service: %w", err)
	}
	svc.Courier = courierSvc

	webhookSvc, err := services.NewCourierWebhookService(services.CourierWebhookServiceDeps{
		Orders:      reg.Orders(),
		Events:      infra.events,
		Cache:       infra.cache,
		Metrics:     infra.metrics,
		CourierName: cfg.Carrier.Name,
		Clock:       infra.clock,
		Logger:      observability.EventLogger(infra.logger, "webhook"),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build courier webhook service: %w", err)
	}
	svc.Webhooks = webhookSvc

	return svc, nil
}

// newEventPublisher builds the configured sink. A nil publisher means events are disabled.
func newEventPublisher(ctx context.Context, cfg config.EventsConfig, logger *zap.Logger) (services.OrderEventPublisher, repositories.HealthProbe, func(context.Context) error, error) {
	switch cfg.Sink {
	case config.SinkPubSub:
		client, err := pubsub.NewClient(ctx, cfg.PubSubProject)
		if err != nil {
			return nil, repositories.HealthProbe{}, nil, fmt.Errorf("build pubsub client: %w", err)
		}
		topic := client.Topic(cfg.PubSubTopic)
		publisher, err := jobs.NewPubSubOrderEventPublisher(topic)
		if err != nil {
			_ = client.Close()
			return nil, repositories.HealthProbe{}, nil, err
		}
		probe := repositories.HealthProbe{
			Name:    "pubsub",
			Timeout: probeTimeout,
			Probe: func(ctx context.Context) error {
				ok, err := topic.Exists(ctx)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("topic %s does not exist", cfg.PubSubTopic)
				}
				return nil
			},
		}
		closeFn := func(context.Context) error {
			publisher.Close()
			return client.Close()
		}
		logger.Info("order events publish to pubsub", zap.String("topic", cfg.PubSubTopic))
		return publisher, probe, closeFn, nil

	case config.SinkKafka:
		writer, err := jobs.NewKafkaWriter(jobs.KafkaConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
			Logger:  logger,
		})
		if err != nil {
			return nil, repositories.HealthProbe{}, nil, err
		}
		publisher, err := jobs.NewKafkaOrderEventPublisher(writer)
		if err != nil {
			_ = writer.Close()
			return nil, repositories.HealthProbe{}, nil, err
		}
		probe := repositories.HealthProbe{
			Name:    "kafka",
			Timeout: probeTimeout,
			Probe: func(ctx context.Context) error {
				return dialKafka(ctx, cfg.KafkaBrokers)
			},
		}
		closeFn := func(context.Context) error { return publisher.Close() }
		logger.Info("order events publish to kafka", zap.String("topic", cfg.KafkaTopic), zap.Strings("brokers", cfg.KafkaBrokers))
		return publisher, probe, closeFn, nil

	default:
		return nil, repositories.HealthProbe{}, nil, nil
	}
}

// dialKafka succeeds when any broker accepts a connection.
func dialKafka(ctx context.Context, brokers []string) error {
	var lastErr error = errors.New("no kafka brokers configured")
	for _, broker := range brokers {
		conn, err := kafka.DialContext(ctx, "tcp", broker)
		if err != nil {
			lastErr = err
			continue
		}
		return conn.Close()
	}
	return lastErr
}

func newWebhookArchive(ctx context.Context, bucket string, clock func() time.Time) (*storage.WebhookArchive, func(context.Context) error, error) {
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("build storage client: %w", err)
	}
	archive, err := storage.NewWebhookArchive(bucket, storage.GCSOpener(client), clock)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return archive, func(context.Context) error { return client.Close() }, nil
}

// firestoreAdminChecker confirms admin status from users/{id}.isAdmin for tokens that carry no role.
func firestoreAdminChecker(provider *pfirestore.Provider) auth.AdminChecker {
	return func(ctx context.Context, actor requestctx.Actor) (bool, error) {
		client, err := provider.Client(ctx)
		if err != nil {
			return false, err
		}
		snap, err := client.Collection(usersCollection).Doc(actor.UserID).Get(ctx)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return false, nil
			}
			return false, pfirestore.WrapError("users.get", err)
		}
		isAdmin, _ := snap.Data()["isAdmin"].(bool)
		return isAdmin, nil
	}
}
