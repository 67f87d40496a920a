package doctor

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/doeshing/phishnet-go/internal/domain"
	"github.com/doeshing/phishnet-go/internal/infrastructure/storage"
)

type staticConfig struct {
	cfg domain.Config
	err error
}

func (s staticConfig) Load(context.Context) (domain.Config, error) { return s.cfg, s.err }

func testConfig() domain.Config {
	return domain.Config{
		ConfigFormatVersion: "1",
		Scan:                domain.ScanSettings{Endpoint: "http://scanner.test:5000/api/v1/urls/scan"},
		Storage:             domain.StorageSettings{Backend: domain.StorageBackendMemory},
		StorageKeys:         domain.StorageKeys{Protection: domain.DefaultProtectionStorageKey},
	}
}

func TestRunReportsUnreachableEndpointAsWarning(t *testing.T) {
	var dialed string
	svc := &Service{
		ConfigProvider: staticConfig{cfg: testConfig()},
		Store:          storage.NewMemoryStore(),
		Dial: func(_ context.Context, _, address string) (net.Conn, error) {
			dialed = address
			return nil, errors.New("refused")
		},
	}

	report, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if dialed != "scanner.test:5000" {
		t.Fatalf("unexpected dial target %q", dialed)
	}
	if report.Failed() {
		t.Fatalf("unreachable endpoint must only warn: %+v", report.Checks)
	}
	if len(report.Checks) != 3 {
		t.Fatalf("expected 3 checks, got %d", len(report.Checks))
	}
	if report.Checks[2].Status != domain.HealthWarn {
		t.Fatalf("expected endpoint warning, got %+v", report.Checks[2])
	}
}

func TestRunReachableEndpoint(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()
	svc := &Service{
		ConfigProvider: staticConfig{cfg: testConfig()},
		Store:          storage.NewMemoryStore(),
		Dial: func(context.Context, string, string) (net.Conn, error) {
			return client, nil
		},
	}
	report, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Checks[2].Status != domain.HealthOK {
		t.Fatalf("expected endpoint ok, got %+v", report.Checks[2])
	}
}

func TestRunConfigFailure(t *testing.T) {
	svc := &Service{ConfigProvider: staticConfig{err: errors.New("boom")}}
	report, err := svc.Run(context.Background())
	if err == nil || !report.Failed() {
		t.Fatal("expected failing report")
	}
}
