// aviation/errors.go
// Copyright(c) 2024-2026 openscope contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import "errors"

var (
	ErrFixNotInRoute          = errors.New("Fix not in aircraft's route")
	ErrInvalidRouteString     = errors.New("Route not understood")
	ErrMissingDirectory       = errors.New("No procedure directory provided")
	ErrMissingRunway          = errors.New("No runway assignment provided")
	ErrNoMatchingRouteSegment = errors.New("Route amendment shares no fix with the current route")
	ErrNotRNAVCapable         = errors.New("Aircraft is not RNAV capable")
	ErrUnknownFix             = errors.New("Unknown fix")
	ErrUnknownProcedure       = errors.New("Unknown procedure")
	ErrUnknownRunway          = errors.New("Unknown runway")
	ErrUnknownTransition      = errors.New("Not a valid transition for procedure")
	ErrUnresolvedHoldPosition = errors.New("Unable to resolve holding fix position")
)
