package domain

import (
	"strings"
	"time"
)

// Verdict is the classification the scanning service assigns to a URL.
type Verdict string

const (
	VerdictSafe       Verdict = "SAFE"
	VerdictSuspicious Verdict = "SUSPICIOUS"
	VerdictMalicious  Verdict = "MALICIOUS"
)

// ParseVerdict maps a wire status onto a Verdict.
func ParseVerdict(value string) (Verdict, bool) {
	switch Verdict(strings.ToUpper(strings.TrimSpace(value))) {
	case VerdictSafe:
		return VerdictSafe, true
	case VerdictSuspicious:
		return VerdictSuspicious, true
	case VerdictMalicious:
		return VerdictMalicious, true
	default:
		return "", false
	}
}

// Unsafe reports whether the verdict must route the user through the interstitial.
func (v Verdict) Unsafe() bool {
	return v == VerdictSuspicious || v == VerdictMalicious
}

func (v Verdict) String() string {
	return string(v)
}

// ThreatMatch is a single finding reported by the scanning service.
type ThreatMatch struct {
	Type     string `json:"type"`
	Platform string `json:"platform"`
	URL      string `json:"url"`
}

// ScanResult is the normalized outcome of one scan call.
type ScanResult struct {
	Verdict Verdict       `json:"status"`
	Threats []ThreatMatch `json:"threats"`
}

// SafeResult is the fail-open outcome.
func SafeResult() ScanResult {
	return ScanResult{Verdict: VerdictSafe, Threats: []ThreatMatch{}}
}

// CacheEntry is the last known verdict for an exact URL string.
type CacheEntry struct {
	URL        string    `json:"url"`
	Verdict    Verdict   `json:"verdict"`
	InsertedAt time.Time `json:"inserted_at"`
}

// FreshAt reports whether the entry is still inside its TTL window at now.
func (e CacheEntry) FreshAt(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.InsertedAt) < ttl
}
