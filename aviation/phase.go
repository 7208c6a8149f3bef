// aviation/phase.go
// Copyright(c) 2024-2026 openscope contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

// FlightPhase is the coarse state of the flight; the Fms tracks it so the
// surrounding simulation can suspend and resume progress around holds.
type FlightPhase int

const (
	PhaseApron FlightPhase = iota
	PhaseTaxi
	PhaseTakeoff
	PhaseClimb
	PhaseCruise
	PhaseDescent
	PhaseApproach
	PhaseLanding
	PhaseHold
)

func (p FlightPhase) String() string {
	return []string{"apron", "taxi", "takeoff", "climb", "cruise", "descent",
		"approach", "landing", "hold"}[int(p)]
}
