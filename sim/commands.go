// sim/commands.go
// Copyright(c) 2024-2026 openscope contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"fmt"

	av "github.com/javs/openscope/aviation"
	"github.com/javs/openscope/math"
)

// CommandKind enumerates the route commands the dispatcher understands;
// the set is closed, so an unhandled command is a compile-time concern
// rather than a runtime surprise.
type CommandKind int

const (
	CommandNewRoute CommandKind = iota
	CommandAmendRoute
	CommandDirect
	CommandHold
	CommandExitHold
	CommandDepartureProcedure
	CommandArrivalProcedure
)

func (k CommandKind) String() string {
	return []string{"new route", "amend route", "direct", "hold", "exit hold",
		"departure procedure", "arrival procedure"}[int(k)]
}

// Command is one typed route instruction for an aircraft's Fms. Only the
// fields its Kind calls for are meaningful.
type Command struct {
	Kind CommandKind

	// Route string for CommandNewRoute, CommandAmendRoute, and the
	// procedure replacements.
	Route string

	// Fix for CommandDirect and CommandHold.
	Fix string

	// Runway for the procedure replacements.
	Runway *av.Runway

	// Hold geometry for CommandHold.
	InboundHeading float32
	Turn           av.TurnDirection
	LegLength      string
	Position       math.Point2LL // aircraft's present position
}

// Dispatch applies the command to the Fms. Commands either fully apply
// or return an error with the route unchanged.
func Dispatch(f *av.Fms, cmd Command) error {
	switch cmd.Kind {
	case CommandNewRoute:
		return f.ReplaceFlightPlan(cmd.Route)

	case CommandAmendRoute:
		if !f.IsValidRouteAmendment(cmd.Route) {
			return av.ErrNoMatchingRouteSegment
		}
		return f.ReplaceRouteUpToSharedRouteSegment(cmd.Route)

	case CommandDirect:
		return f.SkipToWaypoint(cmd.Fix)

	case CommandHold:
		err := f.CreateLegWithHoldingPattern(cmd.InboundHeading, cmd.Turn, cmd.LegLength,
			cmd.Fix, cmd.Position)
		if err != nil {
			return err
		}
		f.SetFlightPhase(av.PhaseHold)
		return nil

	case CommandExitHold:
		f.CancelHold()
		f.ExitHoldIfHolding()
		return nil

	case CommandDepartureProcedure:
		return f.ReplaceDepartureProcedure(cmd.Route, cmd.Runway)

	case CommandArrivalProcedure:
		return f.ReplaceArrivalProcedure(cmd.Route, cmd.Runway)

	default:
		return fmt.Errorf("%d: unhandled command kind", cmd.Kind)
	}
}
