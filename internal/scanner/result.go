package scanner

// This package re-exports types from internal/types for convenience.
// The canonical types live in internal/types to avoid import cycles.

import "github.com/umbrella-scan/umbrella/internal/types"

type (
	Status     = types.Status
	Outcome    = types.Outcome
	ScanResult = types.ScanResult
)

const (
	StatusClean       = types.StatusClean
	StatusInfected    = types.StatusInfected
	StatusUnscannable = types.StatusUnscannable
)
