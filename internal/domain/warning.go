package domain

import "errors"

// PendingWarning is the unresolved interstitial currently shown to a tab.
type PendingWarning struct {
	TabID   int     `json:"tabId"`
	URL     string  `json:"url"`
	Verdict Verdict `json:"verdict"`
}

// AllowOnceExemption lets one tab pass one URL through the gate a single time.
type AllowOnceExemption struct {
	TabID int    `json:"tabId"`
	URL   string `json:"url"`
}

// Decision is the user's answer on the interstitial.
type Decision string

const (
	DecisionContinue Decision = "continue"
	DecisionStaySafe Decision = "stay_safe"
)

// Resolution reasons returned to the interstitial.
const (
	ReasonMissingPending  = "missing-pending"
	ReasonMissingTab      = "missing-tab"
	ReasonUnknownDecision = "unknown-decision"
)

// ResolveResult reports whether a decision was recorded.
type ResolveResult struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

// Err maps a rejected result to its sentinel error; nil when OK.
func (r ResolveResult) Err() error {
	if r.OK {
		return nil
	}
	switch r.Reason {
	case ReasonMissingPending:
		return ErrMissingPending
	case ReasonMissingTab:
		return ErrMissingTab
	case ReasonUnknownDecision:
		return ErrUnknownDecision
	default:
		return errors.New(r.Reason)
	}
}
