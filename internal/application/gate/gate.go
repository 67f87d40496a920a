// Package gate decides, for every top-level navigation, whether to let it
// through, serve a cached verdict, scan, or redirect to the interstitial.
package gate

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/doeshing/phishnet-go/internal/application/warning"
	"github.com/doeshing/phishnet-go/internal/domain"
	"github.com/doeshing/phishnet-go/internal/ports"
)

// ProtectionReader exposes the current protection flags.
type ProtectionReader interface {
	Get() domain.ProtectionState
}

// HistoryAppender records completed scans.
type HistoryAppender interface {
	Append(ctx context.Context, rec domain.HistoryRecord)
}

// Gate composes the guard's tables into the per-navigation decision.
type Gate struct {
	Protection      ProtectionReader
	Filter          ports.URLFilter
	Warnings        *warning.Coordinator
	Cache           ports.VerdictCache
	Scanner         ports.ThreatScanner
	Tokens          ports.TokenSource
	History         HistoryAppender
	Navigator       ports.TabNavigator
	InterstitialURL string
	Logger          ports.Logger

	NewID func() string
	Now   func() time.Time
}

// Handle runs the decision steps in order and stops at the first match.
// The only error it returns is a failure to steer the tab to the interstitial.
func (g *Gate) Handle(ctx context.Context, ev domain.NavigationEvent) (domain.GateResult, error) {
	if !ev.IsTopLevelFrame {
		return domain.GateResult{Outcome: domain.OutcomeSubFrame}, nil
	}
	if !g.Protection.Get().IsProtected {
		return domain.GateResult{Outcome: domain.OutcomeUnprotected}, nil
	}

	seq := g.Warnings.BeginNavigation(ev.TabID)
	fields := map[string]interface{}{"tab": ev.TabID, "url": ev.URL}

	if g.Filter.ShouldIgnore(ev.URL) {
		return domain.GateResult{Outcome: domain.OutcomeIgnored}, nil
	}
	if g.Warnings.ConsumeAllowOnce(ev.TabID, ev.URL) {
		g.Logger.Info("allowed once", fields)
		return domain.GateResult{Outcome: domain.OutcomeAllowedOnce}, nil
	}
	if g.Warnings.HasPendingFor(ev.TabID, ev.URL) {
		g.Logger.Debug("warning already pending", fields)
		return domain.GateResult{Outcome: domain.OutcomeAlreadyPending}, nil
	}

	if verdict, ok := g.Cache.Get(ev.URL); ok {
		g.Logger.Debug("cache hit", map[string]interface{}{"tab": ev.TabID, "url": ev.URL, "verdict": verdict.String()})
		if !verdict.Unsafe() {
			return domain.GateResult{Outcome: domain.OutcomeCachedSafe, Verdict: verdict, FromCache: true}, nil
		}
		return g.warn(ctx, ev, seq, verdict, true)
	}

	result := g.scan(ctx, ev.URL)
	g.Cache.Put(ev.URL, result.Verdict)
	g.History.Append(ctx, domain.HistoryRecord{
		ID:        g.newID(),
		URL:       ev.URL,
		Verdict:   result.Verdict,
		Threats:   result.Threats,
		Timestamp: g.now(),
	})

	if !result.Verdict.Unsafe() {
		return domain.GateResult{Outcome: domain.OutcomeScannedSafe, Verdict: result.Verdict}, nil
	}
	return g.warn(ctx, ev, seq, result.Verdict, false)
}

func (g *Gate) scan(ctx context.Context, url string) domain.ScanResult {
	token := ""
	if g.Tokens != nil {
		t, err := g.Tokens.Token(ctx)
		if err != nil {
			g.Logger.Warn("access token unavailable", map[string]interface{}{"error": err.Error()})
		}
		token = t
	}
	g.Logger.Debug("scanning", map[string]interface{}{"url": url})
	result := g.Scanner.Scan(ctx, url, token)
	if result.Threats == nil {
		result.Threats = []domain.ThreatMatch{}
	}
	g.Logger.Debug("scan result", map[string]interface{}{"url": url, "verdict": result.Verdict.String()})
	return result
}

// warn registers the pending warning and redirects the tab, unless a newer
// navigation on the same tab has started since seq.
func (g *Gate) warn(ctx context.Context, ev domain.NavigationEvent, seq uint64, verdict domain.Verdict, fromCache bool) (domain.GateResult, error) {
	res := domain.GateResult{Verdict: verdict, FromCache: fromCache}
	if !g.Warnings.RegisterPendingIfCurrent(ev.TabID, seq, ev.URL, verdict) {
		g.Logger.Info("discarding superseded verdict", map[string]interface{}{"tab": ev.TabID, "url": ev.URL, "verdict": verdict.String()})
		res.Outcome = domain.OutcomeSuperseded
		return res, nil
	}

	target, err := BuildInterstitialURL(g.InterstitialURL, ev.URL, verdict, ev.TabID)
	if err != nil {
		return res, err
	}
	res.Outcome = domain.OutcomeRedirected
	res.Redirect = target

	g.Logger.Info("redirecting to warning page", map[string]interface{}{"tab": ev.TabID, "url": ev.URL, "verdict": verdict.String()})
	if err := g.Navigator.Navigate(ctx, ev.TabID, target); err != nil {
		return res, fmt.Errorf("redirect tab %d: %w", ev.TabID, err)
	}
	return res, nil
}

func (g *Gate) newID() string {
	if g.NewID != nil {
		return g.NewID()
	}
	return uuid.NewString()
}

func (g *Gate) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now().UTC()
}
