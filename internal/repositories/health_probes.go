package repositories

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/Vidhya-shiva/prabha-backend-file/internal/domain"
)

const defaultProbeTimeout = 1500 * time.Millisecond

// HealthProbe checks one backing dependency, for example the Firestore client or the event sink.
type HealthProbe struct {
	Name    string
	Timeout time.Duration
	Probe   func(context.Context) error
}

// HealthProbeSet runs every probe concurrently, each under its own timeout.
type HealthProbeSet struct {
	probes  []HealthProbe
	timeout time.Duration
	now     func() time.Time
}

// NewHealthProbeSet validates the probes. clock may be nil.
func NewHealthProbeSet(probes []HealthProbe, clock func() time.Time) (*HealthProbeSet, error) {
	for _, p := range probes {
		if strings.TrimSpace(p.Name) == "" {
			return nil, errors.New("health: probe name is required")
		}
		if p.Probe == nil {
			return nil, errors.New("health: probe " + p.Name + " has no function")
		}
	}
	if clock == nil {
		clock = time.Now
	}
	return &HealthProbeSet{
		probes:  append([]HealthProbe(nil), probes...),
		timeout: defaultProbeTimeout,
		now:     clock,
	}, nil
}

// Collect runs the probes and folds their outcomes: a timeout is an error, any other failure
// degrades the service.
func (s *HealthProbeSet) Collect(ctx context.Context) domain.HealthReport {
	checks := make(map[string]domain.HealthCheck, len(s.probes))
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, probe := range s.probes {
		wg.Add(1)
		go func(probe HealthProbe) {
			defer wg.Done()
			check := s.run(ctx, probe)
			mu.Lock()
			checks[probe.Name] = check
			mu.Unlock()
		}(probe)
	}
	wg.Wait()

	status := domain.HealthStatusOK
	for _, check := range checks {
		if check.Status == domain.HealthStatusError {
			status = domain.HealthStatusError
			break
		}
		if check.Status == domain.HealthStatusDegraded {
			status = domain.HealthStatusDegraded
		}
	}
	return domain.HealthReport{Status: status, Checks: checks, GeneratedAt: s.now().UTC()}
}

func (s *HealthProbeSet) run(ctx context.Context, probe HealthProbe) domain.HealthCheck {
	timeout := probe.Timeout
	if timeout <= 0 {
		timeout = s.timeout
	}
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := s.now()
	err := probe.Probe(probeCtx)
	end := s.now()

	check := domain.HealthCheck{Status: domain.HealthStatusOK, Detail: "ok", Latency: end.Sub(start), CheckedAt: end.UTC()}
	switch {
	case err == nil && probeCtx.Err() == nil:
	case errors.Is(err, context.DeadlineExceeded) || (err == nil && probeCtx.Err() != nil):
		check.Status = domain.HealthStatusError
		check.Detail = "timeout"
	case errors.Is(err, context.Canceled):
		check.Status = domain.HealthStatusError
		check.Detail = "cancelled"
	default:
		check.Status = domain.HealthStatusDegraded
		check.Detail = err.Error()
	}
	return check
}
