package assets

import (
	_ "embed"
)

// DefaultConfigYAML contains the embedded default configuration.
//
//go:embed defaults/config.yaml
var DefaultConfigYAML []byte

// WarningPageHTML is the interstitial template served at /warning.
//
//go:embed web/warning.html
var WarningPageHTML string
