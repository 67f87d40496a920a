package domain

import "encoding/json"

// Message types exchanged between the coordinator and its UI contexts.
const (
	MessageProtectionState  = "protection-state"
	MessageWarningPageReady = "warning-page-ready"
	MessageWarningDecision  = "warning-decision"
	MessageTabRemoved       = "tab-removed"
)

// legacyProtectionStateType is the namespaced name older popups still send.
const legacyProtectionStateType = "phishnet.protection-state"

// MessageSender identifies the context a message came from.
type MessageSender struct {
	TabID *int `json:"tabId,omitempty"`
}

// Message is the envelope for every cross-context message.
type Message struct {
	Type     string          `json:"type"`
	TabID    *int            `json:"tabId,omitempty"`
	URL      string          `json:"url,omitempty"`
	Decision Decision        `json:"decision,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	Sender   *MessageSender  `json:"sender,omitempty"`
}

// NormalizedType folds legacy aliases onto the current message names.
func (m Message) NormalizedType() string {
	if m.Type == legacyProtectionStateType {
		return MessageProtectionState
	}
	return m.Type
}

// ResolveTabID prefers the sender's tab over the payload's.
func (m Message) ResolveTabID() (int, bool) {
	if m.Sender != nil && m.Sender.TabID != nil {
		return *m.Sender.TabID, true
	}
	if m.TabID != nil {
		return *m.TabID, true
	}
	return 0, false
}

// AckResponse answers protection-state and tab-removed messages.
type AckResponse struct {
	OK bool `json:"ok"`
}

// PendingResponse answers warning-page-ready; all fields are null when nothing is pending.
type PendingResponse struct {
	URL     *string  `json:"url"`
	Verdict *Verdict `json:"verdict"`
	TabID   *int     `json:"tabId"`
}

// TabInstruction is pushed to the browser side to steer a tab.
type TabInstruction struct {
	Type  string `json:"type"`
	TabID int    `json:"tabId"`
	URL   string `json:"url"`
}

// InstructionNavigate asks the browser to load URL in TabID.
const InstructionNavigate = "navigate"
