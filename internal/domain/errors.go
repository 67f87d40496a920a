package domain

import "errors"

var (
	ErrScanTimeout     = errors.New("scan timed out")
	ErrScanNetwork     = errors.New("scan transport failed")
	ErrScanBadResponse = errors.New("scan returned a bad response")
	ErrStorage         = errors.New("storage failure")
	ErrNotFound        = errors.New("key not found")
	ErrUnknownMessage  = errors.New("unknown message type")
)

// Protocol-level misses reported back to the interstitial.
var (
	ErrMissingPending  = errors.New(ReasonMissingPending)
	ErrMissingTab      = errors.New(ReasonMissingTab)
	ErrUnknownDecision = errors.New(ReasonUnknownDecision)
)
