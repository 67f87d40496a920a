// Package messaging answers the cross-context messages exchanged with the
// popup, the settings page and the interstitial view.
package messaging

import (
	"context"
	"fmt"

	"github.com/doeshing/phishnet-go/internal/application/protection"
	"github.com/doeshing/phishnet-go/internal/application/warning"
	"github.com/doeshing/phishnet-go/internal/domain"
	"github.com/doeshing/phishnet-go/internal/ports"
)

// Dispatcher routes a Message to the service that owns it.
type Dispatcher struct {
	protection *protection.Store
	warnings   *warning.Coordinator
	logger     ports.Logger
}

func NewDispatcher(store *protection.Store, warnings *warning.Coordinator, logger ports.Logger) *Dispatcher {
	return &Dispatcher{protection: store, warnings: warnings, logger: logger}
}

// Dispatch returns the JSON-encodable response for msg. Protocol-level misses
// are reported inside the response; only unknown message types are errors.
func (d *Dispatcher) Dispatch(ctx context.Context, msg domain.Message) (interface{}, error) {
	switch msg.NormalizedType() {
	case domain.MessageProtectionState:
		return d.protectionState(msg), nil
	case domain.MessageWarningPageReady:
		return d.pageReady(msg), nil
	case domain.MessageWarningDecision:
		return d.decision(ctx, msg), nil
	case domain.MessageTabRemoved:
		if tabID, ok := msg.ResolveTabID(); ok {
			d.warnings.ForgetTab(tabID)
			d.logger.Debug("tab state pruned", map[string]interface{}{"tab": tabID})
		}
		return domain.AckResponse{OK: true}, nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownMessage, msg.Type)
	}
}

// protectionState applies the payload; non-object payloads are acknowledged
// and ignored.
func (d *Dispatcher) protectionState(msg domain.Message) domain.AckResponse {
	if len(msg.Payload) == 0 {
		return domain.AckResponse{OK: true}
	}
	update, err := protection.DecodeUpdate(msg.Payload)
	if err != nil {
		d.logger.Warn("ignoring malformed protection payload", map[string]interface{}{"error": err.Error()})
		return domain.AckResponse{OK: true}
	}
	if update.Empty() {
		d.logger.Debug("protection payload carried no known fields", nil)
		return domain.AckResponse{OK: true}
	}
	d.protection.Apply(update)
	return domain.AckResponse{OK: true}
}

func (d *Dispatcher) pageReady(msg domain.Message) domain.PendingResponse {
	tabID, ok := msg.ResolveTabID()
	if !ok {
		return domain.PendingResponse{}
	}
	resp := domain.PendingResponse{TabID: &tabID}
	if pending, found := d.warnings.GetPending(tabID); found {
		resp.URL = &pending.URL
		resp.Verdict = &pending.Verdict
	}
	return resp
}

func (d *Dispatcher) decision(ctx context.Context, msg domain.Message) domain.ResolveResult {
	tabID, ok := msg.ResolveTabID()
	if !ok {
		res := domain.ResolveResult{OK: false, Reason: domain.ReasonMissingTab}
		d.logger.Debug("decision not applied", map[string]interface{}{"error": res.Err().Error()})
		return res
	}
	res := d.warnings.Resolve(ctx, tabID, msg.Decision)
	if err := res.Err(); err != nil {
		d.logger.Debug("decision not applied", map[string]interface{}{"tab": tabID, "error": err.Error()})
	}
	return res
}
