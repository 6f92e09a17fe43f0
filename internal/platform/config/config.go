package config

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvFile           = ".env"
	defaultPort              = "5000"
	defaultReadTimeout       = 15 * time.Second
	defaultWriteTimeout      = 60 * time.Second
	defaultIdleTimeout       = 120 * time.Second
	defaultPersistenceDriver = DriverFirestore
	defaultCarrierTimeout    = 30 * time.Second
	defaultCarrierName       = "ST Courier"
	defaultRazorpayAPIURL    = "https://api.razorpay.com/v1"
	defaultEventsSink        = SinkNone
	defaultOrderTopic        = "order-events"
	defaultOrderIDPrefix     = "CKT"
	defaultOrdersCacheTTL    = 2 * time.Minute
	defaultOrdersAdminLimit  = 50
	defaultIdempotencyHeader = "Idempotency-Key"
	defaultIdempotencyTTL    = 24 * time.Hour
)

// Persistence drivers.
const (
	DriverFirestore = "firestore"
	DriverMemory    = "memory"
)

// Event sinks.
const (
	SinkNone   = "none"
	SinkPubSub = "pubsub"
	SinkKafka  = "kafka"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server      ServerConfig
	Persistence PersistenceConfig
	Firestore   FirestoreConfig
	Carrier     CarrierConfig
	Razorpay    RazorpayConfig
	Auth        AuthConfig
	Events      EventsConfig
	Storage     StorageConfig
	Secrets     SecretsConfig
	Orders      OrdersConfig
	Idempotency IdempotencyConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// PersistenceConfig selects the repository backend.
type PersistenceConfig struct {
	Driver string
}

// FirestoreConfig stores database parameters.
type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
}

// CarrierConfig holds the ST Courier booking API settings and the sender block printed on labels.
type CarrierConfig struct {
	Name           string
	APIURL         string
	CancelURL      string
	APIToken       string
	CustomerCode   string
	SenderName     string
	SenderAddress1 string
	SenderAddress2 string
	SenderPincode  string
	SenderPhone    string
	Timeout        time.Duration
}

// Enabled reports whether the booking API is configured.
func (c CarrierConfig) Enabled() bool {
	return strings.TrimSpace(c.APIURL) != "" && strings.TrimSpace(c.APIToken) != ""
}

// RazorpayConfig holds payment gateway credentials.
type RazorpayConfig struct {
	KeyID     string
	KeySecret string
	APIURL    string
}

// AuthConfig controls bearer-token verification for admin routes.
type AuthConfig struct {
	JWTSecret string
}

// EventsConfig selects where order events are published.
type EventsConfig struct {
	Sink          string
	PubSubProject string
	PubSubTopic   string
	KafkaBrokers  []string
	KafkaTopic    string
}

// StorageConfig lists bucket names used by the application.
type StorageConfig struct {
	WebhookArchiveBucket string
}

// SecretsConfig configures the Secret Manager resolver.
type SecretsConfig struct {
	ProjectID string
}

// OrdersConfig tunes the order endpoints.
type OrdersConfig struct {
	IDPrefix   string
	CacheTTL   time.Duration
	AdminLimit int
}

// IdempotencyConfig controls idempotency middleware behaviour.
type IdempotencyConfig struct {
	Header string
	TTL    time.Duration
}

// SecretResolver resolves references to external secrets (e.g. Secret Manager URIs).
type SecretResolver interface {
	ResolveSecret(ctx context.Context, ref string) (string, error)
}

// SecretResolverFunc adapts ordinary functions to SecretResolver.
type SecretResolverFunc func(context.Context, string) (string, error)

// ResolveSecret resolves the secret using the wrapped function.
func (f SecretResolverFunc) ResolveSecret(ctx context.Context, ref string) (string, error) {
	return f(ctx, ref)
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// SecretError describes failures while resolving a secret reference.
type SecretError struct {
	Ref string
	Err error
}

// Error implements the error interface.
func (e *SecretError) Error() string {
	return fmt.Sprintf("secret resolution failed for ref %q: %v", e.Ref, e.Err)
}

// Unwrap exposes the underlying error.
func (e *SecretError) Unwrap() error { return e.Err }

var errSecretResolverNotConfigured = errors.New("secret resolver not configured")

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
	secret       SecretResolver
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) { o.envFile = path }
}

// WithEnvMap injects an explicit key/value map. Values in the map take precedence over the system
// environment.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) { o.envMap = values }
}

// WithoutSystemEnv disables reading from the process environment.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) { o.useSystemEnv = false }
}

// WithSecretResolver sets the resolver used for secret:// and sm:// references.
func WithSecretResolver(resolver SecretResolver) Option {
	return func(o *loaderOptions) { o.secret = resolver }
}

// Lookup returns a single raw value using the same precedence as Load. main uses it to read the
// secrets project before the resolver exists.
func Lookup(key string, opts ...Option) (string, bool, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	lookup, err := options.lookupFunc()
	if err != nil {
		return "", false, err
	}
	value, ok := lookup(key)
	return value, ok, nil
}

func defaultOptions() loaderOptions {
	return loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
		secret: SecretResolverFunc(func(ctx context.Context, ref string) (string, error) {
			return "", errSecretResolverNotConfigured
		}),
	}
}

func (o loaderOptions) lookupFunc() (func(string) (string, bool), error) {
	dotEnvValues, err := loadDotEnv(o.envFile)
	if err != nil {
		return nil, err
	}
	return func(key string) (string, bool) {
		if value, ok := o.envMap[key]; ok {
			return value, true
		}
		if o.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		value, ok := dotEnvValues[key]
		return value, ok
	}, nil
}

// Load assembles the application configuration from defaults, .env overrides, environment variables
// and Secret Manager references.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	lookup, err := options.lookupFunc()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Server: ServerConfig{
			Port:         stringWithDefault(lookup, "API_SERVER_PORT", stringWithDefault(lookup, "PORT", defaultPort)),
			ReadTimeout:  durationWithDefault(lookup, "API_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(lookup, "API_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationWithDefault(lookup, "API_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Persistence: PersistenceConfig{
			Driver: strings.ToLower(stringWithDefault(lookup, "API_PERSISTENCE_DRIVER", defaultPersistenceDriver)),
		},
		Firestore: FirestoreConfig{
			ProjectID:    stringWithDefault(lookup, "API_FIRESTORE_PROJECT_ID", ""),
			EmulatorHost: stringWithDefault(lookup, "API_FIRESTORE_EMULATOR_HOST", ""),
		},
		Carrier: CarrierConfig{
			Name:           stringWithDefault(lookup, "ST_COURIER_NAME", defaultCarrierName),
			APIURL:         stringWithDefault(lookup, "ST_COURIER_API_URL", ""),
			CancelURL:      stringWithDefault(lookup, "ST_COURIER_CANCEL_URL", ""),
			APIToken:       stringWithDefault(lookup, "ST_COURIER_API_TOKEN", ""),
			CustomerCode:   stringWithDefault(lookup, "ST_COURIER_CUSTOMER_CODE", ""),
			SenderName:     stringWithDefault(lookup, "ST_COURIER_SENDER_NAME", ""),
			SenderAddress1: stringWithDefault(lookup, "ST_COURIER_SENDER_ADDRESS1", ""),
			SenderAddress2: stringWithDefault(lookup, "ST_COURIER_SENDER_ADDRESS2", ""),
			SenderPincode:  stringWithDefault(lookup, "ST_COURIER_SENDER_PINCODE", ""),
			SenderPhone:    stringWithDefault(lookup, "ST_COURIER_SENDER_PHONE", ""),
			Timeout:        durationWithDefault(lookup, "ST_COURIER_TIMEOUT", defaultCarrierTimeout),
		},
		Razorpay: RazorpayConfig{
			KeyID:     stringWithDefault(lookup, "RAZORPAY_KEY_ID", ""),
			KeySecret: stringWithDefault(lookup, "RAZORPAY_KEY_SECRET", ""),
			APIURL:    stringWithDefault(lookup, "RAZORPAY_API_URL", defaultRazorpayAPIURL),
		},
		Auth: AuthConfig{
			JWTSecret: stringWithDefault(lookup, "JWT_SECRET", ""),
		},
		Events: EventsConfig{
			Sink:          strings.ToLower(stringWithDefault(lookup, "API_EVENTS_SINK", defaultEventsSink)),
			PubSubProject: stringWithDefault(lookup, "API_PUBSUB_PROJECT_ID", ""),
			PubSubTopic:   stringWithDefault(lookup, "API_PUBSUB_ORDER_TOPIC", defaultOrderTopic),
			KafkaBrokers:  csvWithDefault(lookup, "API_KAFKA_BROKERS"),
			KafkaTopic:    stringWithDefault(lookup, "API_KAFKA_ORDER_TOPIC", defaultOrderTopic),
		},
		Storage: StorageConfig{
			WebhookArchiveBucket: stringWithDefault(lookup, "API_WEBHOOK_ARCHIVE_BUCKET", ""),
		},
		Secrets: SecretsConfig{
			ProjectID: stringWithDefault(lookup, "API_SECRETS_PROJECT_ID", ""),
		},
		Orders: OrdersConfig{
			IDPrefix:   stringWithDefault(lookup, "ORDER_ID_PREFIX", defaultOrderIDPrefix),
			CacheTTL:   durationWithDefault(lookup, "API_ORDERS_CACHE_TTL", defaultOrdersCacheTTL),
			AdminLimit: intWithDefault(lookup, "API_ORDERS_ADMIN_LIMIT", defaultOrdersAdminLimit),
		},
		Idempotency: IdempotencyConfig{
			Header: stringWithDefault(lookup, "API_IDEMPOTENCY_HEADER", defaultIdempotencyHeader),
			TTL:    durationWithDefault(lookup, "API_IDEMPOTENCY_TTL", defaultIdempotencyTTL),
		},
	}

	if cfg.Secrets.ProjectID == "" {
		cfg.Secrets.ProjectID = cfg.Firestore.ProjectID
	}
	if cfg.Events.PubSubProject == "" {
		cfg.Events.PubSubProject = cfg.Firestore.ProjectID
	}

	for _, field := range []*string{
		&cfg.Carrier.APIToken,
		&cfg.Razorpay.KeySecret,
		&cfg.Auth.JWTSecret,
	} {
		resolved, err := resolveSecret(ctx, *field, options.secret)
		if err != nil {
			return Config{}, err
		}
		*field = resolved
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func resolveSecret(ctx context.Context, value string, resolver SecretResolver) (string, error) {
	if !isSecretReference(value) {
		return value, nil
	}
	normalized := normalizeSecretReference(value)
	if resolver == nil {
		return "", &SecretError{Ref: normalized, Err: errSecretResolverNotConfigured}
	}
	secret, err := resolver.ResolveSecret(ctx, normalized)
	if err != nil {
		return "", &SecretError{Ref: normalized, Err: err}
	}
	return secret, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	}
	switch cfg.Persistence.Driver {
	case DriverMemory:
	case DriverFirestore:
		if cfg.Firestore.ProjectID == "" {
			missing = append(missing, "Firestore.ProjectID")
		}
	default:
		missing = append(missing, "Persistence.Driver")
	}
	switch cfg.Events.Sink {
	case SinkNone:
	case SinkPubSub:
		if cfg.Events.PubSubProject == "" {
			missing = append(missing, "Events.PubSubProject")
		}
		if cfg.Events.PubSubTopic == "" {
			missing = append(missing, "Events.PubSubTopic")
		}
	case SinkKafka:
		if len(cfg.Events.KafkaBrokers) == 0 {
			missing = append(missing, "Events.KafkaBrokers")
		}
		if cfg.Events.KafkaTopic == "" {
			missing = append(missing, "Events.KafkaTopic")
		}
	default:
		missing = append(missing, "Events.Sink")
	}
	if cfg.Carrier.Timeout <= 0 {
		missing = append(missing, "Carrier.Timeout")
	}
	if strings.TrimSpace(cfg.Orders.IDPrefix) == "" {
		missing = append(missing, "Orders.IDPrefix")
	}
	if cfg.Orders.AdminLimit <= 0 {
		missing = append(missing, "Orders.AdminLimit")
	}
	if strings.TrimSpace(cfg.Idempotency.Header) == "" {
		missing = append(missing, "Idempotency.Header")
	}
	if cfg.Idempotency.TTL <= 0 {
		missing = append(missing, "Idempotency.TTL")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func isSecretReference(value string) bool {
	trimmed := strings.TrimSpace(value)
	return strings.HasPrefix(trimmed, "secret://") || strings.HasPrefix(trimmed, "sm://")
}

func normalizeSecretReference(value string) string {
	trimmed := strings.TrimSpace(value)
	if rest, ok := strings.CutPrefix(trimmed, "sm://"); ok {
		return "secret://" + rest
	}
	return trimmed
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}
	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		key, value, ok := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		values[key] = strings.Trim(strings.TrimSpace(value), "\"'")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func csvWithDefault(lookup func(string) (string, bool), key string) []string {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return []string{}
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
