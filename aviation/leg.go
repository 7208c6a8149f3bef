// aviation/leg.go
// Copyright(c) 2024-2026 openscope contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"log/slog"
	"slices"
	"strings"

	"github.com/brunoga/deep"
)

// ProcedureRef identifies the published procedure a leg was expanded
// from; a Leg with a nil ProcedureRef is a direct leg with exactly one
// waypoint.
type ProcedureRef struct {
	Id       string
	Category ProcedureCategory
	Entry    string
	Exit     string
}

// Leg is one contiguous segment of the route, sourced from one
// route-string segment. The leg owns its waypoints exclusively; procedure
// expansions are deep-copied out of the directory so that later in-place
// mutation (holds, advancement) can never alias directory state.
type Leg struct {
	RouteString string // canonical lowercase source segment
	Waypoints   WaypointArray
	Procedure   *ProcedureRef
}

func (l *Leg) IsProcedure() bool { return l.Procedure != nil }

// IndexOfWaypoint returns the index of the named waypoint in the leg, or
// -1. Names are case-insensitive.
func (l *Leg) IndexOfWaypoint(name string) int {
	name = strings.ToLower(name)
	return slices.IndexFunc(l.Waypoints, func(wp Waypoint) bool { return wp.Fix == name })
}

func (l *Leg) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("route_string", l.RouteString),
		slog.Bool("procedure", l.IsProcedure()),
		slog.Int("waypoints", len(l.Waypoints)))
}

// makeDirectLeg builds a single-waypoint leg for a fix flown direct,
// optionally as a hold. The fix must resolve through the Locator.
func makeDirectLeg(elem RouteElement, loc Locator) (Leg, error) {
	p, ok := loc.Locate(elem.Fix)
	if !ok {
		return Leg{}, ErrUnknownFix
	}

	wp := Waypoint{Fix: elem.Fix, Location: p}
	if elem.Kind == RouteElementHoldFix {
		wp.Hold = DefaultHoldPattern()
	}

	return Leg{
		RouteString: elem.RouteString(),
		Waypoints:   WaypointArray{wp},
	}, nil
}

// makeProcedureLeg expands a procedure segment through the directory. The
// expansion is copied so the leg owns its waypoints.
func makeProcedureLeg(elem RouteElement, dir ProcedureDirectory, runway string) (Leg, error) {
	proc, ok := dir.Procedure(elem.Procedure)
	if !ok {
		return Leg{}, ErrUnknownProcedure
	}

	wps, err := dir.ExpandProcedure(elem.Procedure, elem.Entry, elem.Exit, runway)
	if err != nil {
		return Leg{}, err
	}

	return Leg{
		RouteString: elem.RouteString(),
		Waypoints:   deep.MustCopy(wps),
		Procedure: &ProcedureRef{
			Id:       proc.Id,
			Category: proc.Category,
			Entry:    elem.Entry,
			Exit:     elem.Exit,
		},
	}, nil
}
