package commands

import (
	"context"
	"time"

	"github.com/doeshing/phishnet-go/internal/app"
	"github.com/doeshing/phishnet-go/internal/domain"
)

// ContainerProvider builds the container on first use.
type ContainerProvider func(ctx context.Context) (*app.Container, error)

// History command constants
const (
	DefaultHistoryLimit = domain.DefaultHistoryLimit
)

// Display constants
const (
	TimestampFormat = "2006-01-02 15:04:05"
	msgNoHistory    = "No scans recorded yet."
)

// clientTimeout bounds CLI calls to a running server.
const clientTimeout = 5 * time.Second
