package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/doeshing/phishnet-go/internal/application/config"
	"github.com/doeshing/phishnet-go/internal/application/doctor"
	"github.com/doeshing/phishnet-go/internal/application/gate"
	"github.com/doeshing/phishnet-go/internal/application/messaging"
	"github.com/doeshing/phishnet-go/internal/domain"
	"github.com/doeshing/phishnet-go/internal/infrastructure/cache"
	configinfra "github.com/doeshing/phishnet-go/internal/infrastructure/config"
	"github.com/doeshing/phishnet-go/internal/infrastructure/ignore"
	"github.com/doeshing/phishnet-go/internal/infrastructure/scanner"
	"github.com/doeshing/phishnet-go/internal/infrastructure/storage"
	"github.com/doeshing/phishnet-go/internal/infrastructure/transport"
	"github.com/doeshing/phishnet-go/internal/pkg/logger"
	"github.com/doeshing/phishnet-go/internal/ports"
)

// Options controls how the container is built.
type Options struct {
	ConfigPath string
	Verbose    bool
}

// Container wires up application services with infrastructure adapters.
type Container struct {
	Config       domain.Config
	ConfigLoader *configinfra.FileLoader
	Logger       ports.Logger

	Store   ports.KeyValueStore
	Cache   *cache.ScanCache
	Scanner *scanner.Client
	Tokens  *storage.StoreTokenSource
	Filter  *ignore.Matcher
	Hub     *transport.Hub

	Guard         *gate.NavigationGuard
	Dispatcher    *messaging.Dispatcher
	DoctorService *doctor.Service

	// StoreErr is set when the key-value store could not be opened; commands
	// that need it report this error.
	StoreErr error
}

// BuildContainer constructs the dependency graph. A store that cannot be
// opened (for example a LevelDB directory locked by a running server) does
// not fail the build; Guard is left nil and StoreErr records why.
func BuildContainer(ctx context.Context, opts Options) (*Container, error) {
	cfgLoader := configinfra.NewFileLoader(opts.ConfigPath)
	cfg, err := cfgLoader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgLoader.Path(), err)
	}

	log := logger.NewStd(opts.Verbose)
	filter, err := ignore.NewMatcher(cfg.Ignore, cfg.Server.InterstitialURL)
	if err != nil {
		return nil, err
	}

	c := &Container{
		Config:       cfg,
		ConfigLoader: cfgLoader,
		Logger:       log,
		Cache:        cache.NewScanCache(cfg.Scan.CacheTTLDuration()),
		Scanner:      scanner.NewClient(cfg.Scan.Endpoint, cfg.Scan.TimeoutDuration(), log),
		Filter:       filter,
		Hub:          transport.NewHub(log),
	}
	c.DoctorService = &doctor.Service{ConfigProvider: cfgLoader}

	store, err := storage.Open(cfg.Storage)
	if err != nil {
		c.StoreErr = fmt.Errorf("open %s storage: %w", cfg.Storage.Backend, err)
		return c, nil
	}
	c.Store = store
	c.DoctorService.Store = store
	c.Tokens = storage.NewStoreTokenSource(store, cfg.StorageKeys.AccessToken)

	guard, err := gate.NewGuard(gate.Dependencies{
		Config:    cfg,
		Store:     store,
		Scanner:   c.Scanner,
		Tokens:    c.Tokens,
		Navigator: c.Hub,
		Cache:     c.Cache,
		Filter:    filter,
		Logger:    log,
	})
	if err != nil {
		store.Close()
		return nil, err
	}
	guard.Start(ctx)
	c.Guard = guard
	c.Dispatcher = messaging.NewDispatcher(guard.Protection(), guard.Warnings(), log)
	return c, nil
}

// RequireGuard returns the guard or the reason it is unavailable.
func (c *Container) RequireGuard() (*gate.NavigationGuard, error) {
	if c.Guard != nil {
		return c.Guard, nil
	}
	if c.StoreErr != nil {
		return nil, c.StoreErr
	}
	return nil, errors.New("navigation guard unavailable")
}

// Close releases the guard and the store.
func (c *Container) Close() error {
	if c.Hub != nil {
		c.Hub.Close()
	}
	if c.Guard != nil {
		c.Guard.Close()
	}
	if c.Store != nil {
		return c.Store.Close()
	}
	return nil
}
