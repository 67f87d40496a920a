// Package warning tracks, per tab, the interstitial awaiting a decision and
// the one-shot exemptions granted when the user chooses to continue.
package warning

import (
	"context"
	"sort"
	"sync"

	"github.com/doeshing/phishnet-go/internal/domain"
	"github.com/doeshing/phishnet-go/internal/ports"
)

type tabState struct {
	pending   *domain.PendingWarning
	allowOnce string
	seq       uint64
}

// Coordinator owns the pending-warning and allow-once tables. At most one of
// each exists per tab; all methods are safe for concurrent use.
type Coordinator struct {
	mu   sync.Mutex
	tabs map[int]*tabState

	navigator ports.TabNavigator
	logger    ports.Logger
}

func NewCoordinator(navigator ports.TabNavigator, logger ports.Logger) *Coordinator {
	return &Coordinator{
		tabs:      make(map[int]*tabState),
		navigator: navigator,
		logger:    logger,
	}
}

func (c *Coordinator) tab(tabID int) *tabState {
	st, ok := c.tabs[tabID]
	if !ok {
		st = &tabState{}
		c.tabs[tabID] = st
	}
	return st
}

// BeginNavigation marks the start of a new top-level navigation in tabID and
// returns its sequence number.
func (c *Coordinator) BeginNavigation(tabID int) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.tab(tabID)
	st.seq++
	return st.seq
}

// RegisterPending replaces any pending warning for the tab.
func (c *Coordinator) RegisterPending(tabID int, url string, verdict domain.Verdict) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tab(tabID).pending = &domain.PendingWarning{TabID: tabID, URL: url, Verdict: verdict}
}

// RegisterPendingIfCurrent records the warning only when seq is still the
// tab's latest navigation. It reports whether the warning was recorded.
func (c *Coordinator) RegisterPendingIfCurrent(tabID int, seq uint64, url string, verdict domain.Verdict) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.tabs[tabID]
	if !ok || st.seq != seq {
		return false
	}
	st.pending = &domain.PendingWarning{TabID: tabID, URL: url, Verdict: verdict}
	return true
}

// GetPending returns the tab's pending warning, if any.
func (c *Coordinator) GetPending(tabID int) (domain.PendingWarning, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.tabs[tabID]
	if !ok || st.pending == nil {
		return domain.PendingWarning{}, false
	}
	return *st.pending, true
}

// HasPendingFor reports whether the tab already shows a warning for url.
func (c *Coordinator) HasPendingFor(tabID int, url string) bool {
	p, ok := c.GetPending(tabID)
	return ok && p.URL == url
}

// GrantAllowOnce replaces the tab's exemption with url.
func (c *Coordinator) GrantAllowOnce(tabID int, url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tab(tabID).allowOnce = url
}

// ConsumeAllowOnce removes and reports a matching exemption. A non-matching
// exemption is left in place.
func (c *Coordinator) ConsumeAllowOnce(tabID int, url string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.tabs[tabID]
	if !ok || st.allowOnce == "" || st.allowOnce != url {
		return false
	}
	st.allowOnce = ""
	return true
}

// Resolve applies the user's decision for the tab's pending warning.
func (c *Coordinator) Resolve(ctx context.Context, tabID int, decision domain.Decision) domain.ResolveResult {
	if decision != domain.DecisionContinue && decision != domain.DecisionStaySafe {
		return domain.ResolveResult{OK: false, Reason: domain.ReasonUnknownDecision}
	}

	c.mu.Lock()
	st, ok := c.tabs[tabID]
	if !ok || st.pending == nil {
		c.mu.Unlock()
		return domain.ResolveResult{OK: false, Reason: domain.ReasonMissingPending}
	}
	target := st.pending.URL
	st.pending = nil
	if decision == domain.DecisionContinue {
		st.allowOnce = target
	}
	c.mu.Unlock()

	if decision == domain.DecisionStaySafe {
		c.logger.Info("user stayed safe", map[string]interface{}{"tab": tabID, "url": target})
		return domain.ResolveResult{OK: true}
	}

	c.logger.Info("user continued past warning", map[string]interface{}{"tab": tabID, "url": target})
	if c.navigator != nil {
		if err := c.navigator.Navigate(ctx, tabID, target); err != nil {
			c.logger.Error("navigate tab to original destination", err, map[string]interface{}{"tab": tabID})
		}
	}
	return domain.ResolveResult{OK: true}
}

// ForgetTab drops everything held for a closed tab.
func (c *Coordinator) ForgetTab(tabID int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tabs, tabID)
}

// Pending lists every unresolved warning ordered by tab.
func (c *Coordinator) Pending() []domain.PendingWarning {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.PendingWarning, 0, len(c.tabs))
	for _, st := range c.tabs {
		if st.pending != nil {
			out = append(out, *st.pending)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TabID < out[j].TabID })
	return out
}

// Exemptions lists the allow-once grants not yet consumed, ordered by tab.
func (c *Coordinator) Exemptions() []domain.AllowOnceExemption {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []domain.AllowOnceExemption
	for tabID, st := range c.tabs {
		if st.allowOnce != "" {
			out = append(out, domain.AllowOnceExemption{TabID: tabID, URL: st.allowOnce})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TabID < out[j].TabID })
	return out
}
