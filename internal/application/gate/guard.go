package gate

import (
	"context"
	"errors"

	"github.com/doeshing/phishnet-go/internal/application/history"
	"github.com/doeshing/phishnet-go/internal/application/protection"
	"github.com/doeshing/phishnet-go/internal/application/warning"
	"github.com/doeshing/phishnet-go/internal/domain"
	"github.com/doeshing/phishnet-go/internal/ports"
)

// Dependencies are the adapters a NavigationGuard is built from.
type Dependencies struct {
	Config    domain.Config
	Store     ports.KeyValueStore
	Scanner   ports.ThreatScanner
	Tokens    ports.TokenSource
	Navigator ports.TabNavigator
	Cache     ports.VerdictCache
	Filter    ports.URLFilter
	Logger    ports.Logger
}

// NavigationGuard owns every table the gate reads and writes: protection
// flags, per-tab warnings, the verdict cache and the scan history.
type NavigationGuard struct {
	protection *protection.Store
	warnings   *warning.Coordinator
	history    *history.Log
	cache      ports.VerdictCache
	gate       *Gate
}

// NewGuard wires the application services over deps.
func NewGuard(deps Dependencies) (*NavigationGuard, error) {
	switch {
	case deps.Store == nil:
		return nil, errors.New("key-value store is required")
	case deps.Scanner == nil:
		return nil, errors.New("scanner is required")
	case deps.Navigator == nil:
		return nil, errors.New("tab navigator is required")
	case deps.Cache == nil:
		return nil, errors.New("verdict cache is required")
	case deps.Filter == nil:
		return nil, errors.New("url filter is required")
	case deps.Logger == nil:
		return nil, errors.New("logger is required")
	}

	keys := deps.Config.StorageKeys
	g := &NavigationGuard{
		protection: protection.NewStore(deps.Store, keys.Protection, deps.Logger),
		warnings:   warning.NewCoordinator(deps.Navigator, deps.Logger),
		history:    history.NewLog(deps.Store, keys.History, deps.Config.History.MaxEntries, deps.Logger),
		cache:      deps.Cache,
	}

	interstitial := deps.Config.Server.InterstitialURL
	if interstitial == "" {
		interstitial = domain.DefaultInterstitialURL
	}
	g.gate = &Gate{
		Protection:      g.protection,
		Filter:          deps.Filter,
		Warnings:        g.warnings,
		Cache:           deps.Cache,
		Scanner:         deps.Scanner,
		Tokens:          deps.Tokens,
		History:         g.history,
		Navigator:       deps.Navigator,
		InterstitialURL: interstitial,
		Logger:          deps.Logger,
	}
	return g, nil
}

// Start loads persisted protection state and history.
func (g *NavigationGuard) Start(ctx context.Context) {
	g.protection.Load(ctx)
	g.history.Load(ctx)
}

// HandleNavigation runs one navigation through the gate.
func (g *NavigationGuard) HandleNavigation(ctx context.Context, ev domain.NavigationEvent) (domain.GateResult, error) {
	return g.gate.Handle(ctx, ev)
}

func (g *NavigationGuard) Protection() *protection.Store { return g.protection }

func (g *NavigationGuard) Warnings() *warning.Coordinator { return g.warnings }

func (g *NavigationGuard) History() *history.Log { return g.history }

func (g *NavigationGuard) Cache() ports.VerdictCache { return g.cache }

// Close detaches from storage notifications. The store itself is owned by the caller.
func (g *NavigationGuard) Close() {
	g.protection.Close()
}
