package services

import (
	"context"
	"time"

	domain "github.com/Vidhya-shiva/prabha-backend-file/internal/domain"
)

// BuildInfo captures runtime metadata exposed via the health endpoint.
type BuildInfo struct {
	Version   string
	StartedAt time.Time
}

// HealthCollector gathers dependency probe results.
type HealthCollector interface {
	Collect(ctx context.Context) domain.HealthReport
}

// HealthService reports liveness together with dependency status.
type HealthService interface {
	Report(ctx context.Context) domain.HealthReport
}

// HealthServiceDeps bundles collaborators required to construct a health service.
type HealthServiceDeps struct {
	Probes HealthCollector
	Build  BuildInfo
	Clock  func() time.Time
}

type healthService struct {
	probes HealthCollector
	build  BuildInfo
	clock  func() time.Time
}

// NewHealthService assembles the health service. Without probes the report only carries build data.
func NewHealthService(deps HealthServiceDeps) (HealthService, error) {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	build := deps.Build
	if build.StartedAt.IsZero() {
		build.StartedAt = clock()
	}
	if build.Version == "" {
		build.Version = "dev"
	}
	return &healthService{
		probes: deps.Probes,
		build:  build,
		clock: func() time.Time {
			return clock().UTC()
		},
	}, nil
}

func (s *healthService) Report(ctx context.Context) domain.HealthReport {
	now := s.clock()
	report := domain.HealthReport{Status: domain.HealthStatusOK}
	if s.probes != nil {
		report = s.probes.Collect(ctx)
	}
	if report.Checks == nil {
		report.Checks = map[string]domain.HealthCheck{}
	}
	if report.Status == "" {
		report.Status = domain.HealthStatusOK
	}
	if report.GeneratedAt.IsZero() {
		report.GeneratedAt = now
	}
	report.Version = s.build.Version
	report.Uptime = now.Sub(s.build.StartedAt)
	return report
}
