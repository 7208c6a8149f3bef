// sim/advance.go
// Copyright(c) 2024-2026 openscope contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	av "github.com/javs/openscope/aviation"
	"github.com/javs/openscope/math"
)

// Aircraft are considered to have passed a fix once within this distance
// of it.
const waypointCaptureDistance = 0.5 // nm

// Advance is called each simulation step with the aircraft's position;
// it pops the current waypoint once the aircraft has passed it. A
// waypoint with an active hold is never passed; the aircraft circles
// until the hold is released.
func Advance(f *av.Fms, pos math.Point2LL) {
	wp := f.CurrentWaypoint()
	if wp == nil || wp.IsHold() {
		return
	}
	if math.NMDistance2LL(pos, wp.Location) < waypointCaptureDistance {
		f.NextWaypoint()
	}
}
