package doctor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/doeshing/phishnet-go/internal/application/config"
	"github.com/doeshing/phishnet-go/internal/domain"
	"github.com/doeshing/phishnet-go/internal/ports"
)

const probeKey = "phishnet.doctor.probe"

// Service runs environment diagnostics.
type Service struct {
	ConfigProvider ports.ConfigProvider
	Store          ports.KeyValueStore
	// Dial is used to probe the scan endpoint; defaults to net.Dialer.
	Dial func(ctx context.Context, network, address string) (net.Conn, error)
}

// Run executes checks and returns a report.
func (s *Service) Run(ctx context.Context) (domain.HealthReport, error) {
	var checks []domain.HealthCheck

	cfg, err := s.ConfigProvider.Load(ctx)
	if err != nil {
		checks = append(checks, fail("Config file", fmt.Sprintf("load failed: %v", err)))
		return domain.HealthReport{Checks: checks}, err
	}
	if err := config.Validate(cfg); err != nil {
		checks = append(checks, fail("Config file", err.Error()))
	} else {
		checks = append(checks, ok("Config file", fmt.Sprintf("loaded format %s", cfg.ConfigFormatVersion)))
	}

	checks = append(checks, s.storageCheck(ctx, cfg))
	checks = append(checks, s.endpointCheck(ctx, cfg.Scan))

	return domain.HealthReport{Checks: checks}, nil
}

func (s *Service) storageCheck(ctx context.Context, cfg domain.Config) domain.HealthCheck {
	name := fmt.Sprintf("Storage (%s)", cfg.Storage.Backend)
	if s.Store == nil {
		return warn(name, "store not opened")
	}
	stamp := []byte(time.Now().UTC().Format(domain.TimestampFormat))
	if err := s.Store.Set(ctx, probeKey, stamp); err != nil {
		return fail(name, fmt.Sprintf("write failed: %v", err))
	}
	got, err := s.Store.Get(ctx, probeKey)
	if err != nil || string(got) != string(stamp) {
		return fail(name, "read-back mismatch")
	}
	if err := s.Store.Delete(ctx, probeKey); err != nil {
		return warn(name, fmt.Sprintf("cleanup failed: %v", err))
	}

	if _, err := s.Store.Get(ctx, cfg.StorageKeys.Protection); errors.Is(err, domain.ErrNotFound) {
		return warn(name, "protection state not set; interception is off")
	}
	return ok(name, "read/write ok")
}

func (s *Service) endpointCheck(ctx context.Context, scan domain.ScanSettings) domain.HealthCheck {
	u, err := url.Parse(scan.Endpoint)
	if err != nil || u.Host == "" {
		return fail("Scan endpoint", "invalid endpoint")
	}
	host := u.Host
	if u.Port() == "" {
		port := "80"
		if u.Scheme == "https" {
			port = "443"
		}
		host = net.JoinHostPort(u.Hostname(), port)
	}

	dial := s.Dial
	if dial == nil {
		dial = (&net.Dialer{}).DialContext
	}
	ctx, cancel := context.WithTimeout(ctx, scan.TimeoutDuration())
	defer cancel()
	conn, err := dial(ctx, "tcp", host)
	if err != nil {
		return warn("Scan endpoint", fmt.Sprintf("%s unreachable; navigations will fail open", host))
	}
	conn.Close()
	return ok("Scan endpoint", fmt.Sprintf("%s reachable", host))
}

func ok(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthOK, Details: details}
}

func warn(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthWarn, Details: details}
}

func fail(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthError, Details: details}
}
