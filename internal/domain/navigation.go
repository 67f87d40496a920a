package domain

// NavigationEvent is one navigation attempt observed in a tab.
type NavigationEvent struct {
	TabID           int    `json:"tabId"`
	URL             string `json:"url"`
	IsTopLevelFrame bool   `json:"isTopLevelFrame"`
}

// GateOutcome names the branch NavigationGate took.
type GateOutcome string

const (
	OutcomeSubFrame       GateOutcome = "sub-frame"
	OutcomeUnprotected    GateOutcome = "unprotected"
	OutcomeIgnored        GateOutcome = "ignored"
	OutcomeAllowedOnce    GateOutcome = "allowed-once"
	OutcomeAlreadyPending GateOutcome = "already-pending"
	OutcomeCachedSafe     GateOutcome = "cached-safe"
	OutcomeScannedSafe    GateOutcome = "scanned-safe"
	OutcomeRedirected     GateOutcome = "redirected"
	OutcomeSuperseded     GateOutcome = "superseded"
)

// GateResult is what Handle returns for one navigation.
type GateResult struct {
	Outcome   GateOutcome `json:"outcome"`
	Verdict   Verdict     `json:"verdict,omitempty"`
	FromCache bool        `json:"fromCache,omitempty"`
	Redirect  string      `json:"redirect,omitempty"`
}

// Allowed reports whether the navigation proceeds to its original target.
func (r GateResult) Allowed() bool {
	switch r.Outcome {
	case OutcomeRedirected, OutcomeAlreadyPending:
		return false
	default:
		return true
	}
}
