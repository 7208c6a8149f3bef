// aviation/fms.go
// Copyright(c) 2024-2026 openscope contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"log/slog"
	"slices"
	"strings"

	"github.com/javs/openscope/log"
	"github.com/javs/openscope/math"
	"github.com/javs/openscope/util"
)

type FlightCategory int

const (
	FlightCategoryDeparture FlightCategory = iota
	FlightCategoryArrival
)

func (c FlightCategory) String() string {
	return []string{"departure", "arrival"}[int(c)]
}

// AircraftCapabilities carries the aircraft properties the route engine
// cares about when resolving clearances.
type AircraftCapabilities struct {
	Category FlightCategory
	RNAV     bool
}

// RunwayAssignment references externally-owned runways; the Fms stores
// the references and compares names, nothing more.
type RunwayAssignment struct {
	Departure *Runway
	Arrival   *Runway
}

func (ra RunwayAssignment) forCategory(c ProcedureCategory) *Runway {
	return util.Select(c == DepartureProcedure, ra.Departure, ra.Arrival)
}

// Fms owns an aircraft's active route: an ordered collection of legs,
// the history of segments already flown, runway assignments, and the
// flight phase. All operations are synchronous in-memory transformations;
// callers must serialize access to one instance.
type Fms struct {
	legs []Leg

	// Route segments consumed by advancement, in traversal order, each
	// value at most once.
	previousRouteSegments []string

	runways      RunwayAssignment
	capabilities AircraftCapabilities

	phase        FlightPhase
	prevPhase    FlightPhase // restored when a hold ends
	hasPrevPhase bool

	dir ProcedureDirectory
	lg  *log.Logger
}

// MakeFms builds the engine for an aircraft cleared on the given route.
// Missing collaborators are constructor-level failures, not recoverable
// results.
func MakeFms(routeString string, runways RunwayAssignment, ac AircraftCapabilities,
	dir ProcedureDirectory, lg *log.Logger) (*Fms, error) {
	if dir == nil {
		return nil, ErrMissingDirectory
	}
	if runways.forCategory(procedureCategoryFor(ac.Category)) == nil {
		return nil, ErrMissingRunway
	}

	f := &Fms{
		runways:      runways,
		capabilities: ac,
		phase:        util.Select(ac.Category == FlightCategoryDeparture, PhaseApron, PhaseCruise),
		dir:          dir,
		lg:           lg,
	}

	elems, err := ParseRouteString(routeString)
	if err != nil {
		return nil, err
	}
	legs, err := f.buildLegs(elems)
	if err != nil {
		return nil, err
	}
	f.legs = legs

	lg.Info("fms initialized", slog.Any("fms", f))
	return f, nil
}

func procedureCategoryFor(c FlightCategory) ProcedureCategory {
	return util.Select(c == FlightCategoryDeparture, DepartureProcedure, ArrivalProcedure)
}

// buildLegs constructs legs for the parsed elements without touching the
// engine's state, so callers can commit all-or-nothing.
func (f *Fms) buildLegs(elems []RouteElement) ([]Leg, error) {
	var legs []Leg
	for _, elem := range elems {
		switch elem.Kind {
		case RouteElementFix, RouteElementHoldFix:
			leg, err := makeDirectLeg(elem, f.dir)
			if err != nil {
				return nil, err
			}
			legs = append(legs, leg)

		case RouteElementProcedure:
			proc, ok := f.dir.Procedure(elem.Procedure)
			if !ok {
				return nil, ErrUnknownProcedure
			}
			if proc.IsRNAV && !f.capabilities.RNAV {
				return nil, ErrNotRNAVCapable
			}
			leg, err := makeProcedureLeg(elem, f.dir, f.runwayNameFor(proc.Category))
			if err != nil {
				return nil, err
			}
			legs = append(legs, leg)

		case RouteElementPresentPositionHold:
			// Only meaningful through CreateLegWithHoldingPattern, where
			// the present position is supplied.
			return nil, ErrUnresolvedHoldPosition
		}
	}
	if len(legs) == 0 {
		return nil, ErrInvalidRouteString
	}
	return legs, nil
}

func (f *Fms) runwayNameFor(c ProcedureCategory) string {
	if rwy := f.runways.forCategory(c); rwy != nil {
		return rwy.Name
	}
	return ""
}

///////////////////////////////////////////////////////////////////////////
// Queries

// CurrentWaypoint returns the fix the aircraft is navigating to: the
// first waypoint of the first leg that has any. Returns nil only when the
// route is exhausted.
func (f *Fms) CurrentWaypoint() *Waypoint {
	for i := range f.legs {
		if len(f.legs[i].Waypoints) > 0 {
			return &f.legs[i].Waypoints[0]
		}
	}
	return nil
}

// CurrentLeg returns the leg that holds the current waypoint.
func (f *Fms) CurrentLeg() *Leg {
	for i := range f.legs {
		if len(f.legs[i].Waypoints) > 0 {
			return &f.legs[i]
		}
	}
	return nil
}

// HasNextWaypoint reports whether any waypoint follows the current one,
// in this leg or a later one.
func (f *Fms) HasNextWaypoint() bool {
	n := 0
	for i := range f.legs {
		n += len(f.legs[i].Waypoints)
		if n > 1 {
			return true
		}
	}
	return false
}

// RemainingWaypoints returns copies of all waypoints still ahead,
// flattened across legs.
func (f *Fms) RemainingWaypoints() WaypointArray {
	var wps WaypointArray
	for i := range f.legs {
		wps = append(wps, f.legs[i].Waypoints...)
	}
	return wps
}

// AltitudeRestrictedWaypoints returns the upcoming waypoints that carry
// an altitude restriction.
func (f *Fms) AltitudeRestrictedWaypoints() WaypointArray {
	return util.FilterSlice(f.RemainingWaypoints(),
		func(wp Waypoint) bool { return wp.AltRestriction != nil })
}

// SpeedRestrictedWaypoints returns the upcoming waypoints that carry a
// speed restriction.
func (f *Fms) SpeedRestrictedWaypoints() WaypointArray {
	return util.FilterSlice(f.RemainingWaypoints(),
		func(wp Waypoint) bool { return wp.Speed != 0 })
}

// NextAltitudeRestrictedWaypoint returns the first upcoming waypoint with
// an altitude restriction, if there is one.
func (f *Fms) NextAltitudeRestrictedWaypoint() (Waypoint, bool) {
	for _, wp := range f.RemainingWaypoints() {
		if wp.AltRestriction != nil {
			return wp, true
		}
	}
	return Waypoint{}, false
}

// TopAltitude returns the highest altitude-restriction ceiling across the
// remaining route; ok is false if no waypoint restricts the ceiling.
func (f *Fms) TopAltitude() (float32, bool) {
	var top float32
	ok := false
	for _, wp := range f.AltitudeRestrictedWaypoints() {
		if alt := wp.AltRestriction.Range[1]; alt != 0 {
			top = max(top, alt)
			ok = true
		}
	}
	return top, ok
}

// BottomAltitude returns the lowest altitude-restriction floor across the
// remaining route; ok is false if no waypoint restricts the floor.
func (f *Fms) BottomAltitude() (float32, bool) {
	var bottom float32
	ok := false
	for _, wp := range f.AltitudeRestrictedWaypoints() {
		if alt := wp.AltRestriction.Range[0]; alt != 0 {
			if !ok || alt < bottom {
				bottom = alt
			}
			ok = true
		}
	}
	return bottom, ok
}

// RemainingRouteDistance returns the along-route distance in nautical
// miles from the given position through every remaining waypoint.
func (f *Fms) RemainingRouteDistance(from math.Point2LL) float32 {
	var d float32
	p := from
	for _, wp := range f.RemainingWaypoints() {
		d += math.NMDistance2LL(p, wp.Location)
		p = wp.Location
	}
	return d
}

// FlightPlanRoute returns the serialized upcoming route, always
// lowercase; independent legs are joined by "..".
func (f *Fms) FlightPlanRoute() string {
	return strings.Join(util.MapSlice(f.legs, func(l Leg) string { return l.RouteString }), "..")
}

// PreviousRouteSegments returns the flown segment history, in traversal
// order.
func (f *Fms) PreviousRouteSegments() []string {
	return util.DuplicateSlice(f.previousRouteSegments)
}

func (f *Fms) DepartureRunway() *Runway { return f.runways.Departure }
func (f *Fms) ArrivalRunway() *Runway   { return f.runways.Arrival }

func (f *Fms) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("route", f.FlightPlanRoute()),
		slog.Any("previous_segments", f.previousRouteSegments),
		slog.String("phase", f.phase.String()))
}

// findWaypoint returns the leg and waypoint index of the named fix via a
// linear scan in route order, or false. Names are case-insensitive.
func (f *Fms) findWaypoint(name string) (int, int, bool) {
	for li := range f.legs {
		if wi := f.legs[li].IndexOfWaypoint(name); wi != -1 {
			return li, wi, true
		}
	}
	return 0, 0, false
}

///////////////////////////////////////////////////////////////////////////
// Validation

// IsValidRoute reports whether the route string parses and fully resolves
// through the directory, with any procedure segment compatible with the
// given runway assignment. It never mutates the route.
func (f *Fms) IsValidRoute(routeString string, runways RunwayAssignment) bool {
	elems, err := ParseRouteString(routeString)
	if err != nil {
		return false
	}

	for _, elem := range elems {
		switch elem.Kind {
		case RouteElementFix, RouteElementHoldFix:
			if _, ok := f.dir.Locate(elem.Fix); !ok {
				return false
			}

		case RouteElementProcedure:
			proc, ok := f.dir.Procedure(elem.Procedure)
			if !ok || !proc.HasTransition(elem.Entry, elem.Exit) {
				return false
			}
			rwy := runways.forCategory(proc.Category)
			if rwy == nil || !proc.ValidTransitionRunway(rwy.Name) {
				return false
			}

		case RouteElementPresentPositionHold:
			// Can't be part of a cleared route.
			return false
		}
	}
	return true
}

// IsValidProcedureRoute is the stricter check for exactly one procedure
// segment. A request matching a leg already in the route is treated as
// already cleared and valid without further lookups.
func (f *Fms) IsValidProcedureRoute(routeString string, runways RunwayAssignment,
	category ProcedureCategory) bool {
	elems, err := ParseRouteString(routeString)
	if err != nil || len(elems) != 1 || elems[0].Kind != RouteElementProcedure {
		return false
	}
	elem := elems[0]

	if slices.ContainsFunc(f.legs, func(l Leg) bool { return l.RouteString == elem.RouteString() }) {
		return true
	}

	proc, ok := f.dir.Procedure(elem.Procedure)
	if !ok {
		return false
	}
	if category != AnyProcedureCategory && proc.Category != category {
		return false
	}
	if proc.IsRNAV && !f.capabilities.RNAV {
		return false
	}
	if !proc.HasTransition(elem.Entry, elem.Exit) {
		return false
	}
	rwy := runways.forCategory(proc.Category)
	return rwy != nil && proc.ValidTransitionRunway(rwy.Name)
}

// IsValidRouteAmendment reports whether a partial reroute shares at least
// one forward-looking direct fix with the current route. Fixes already in
// the flown-segment history don't count; this keeps an amendment with no
// continuity from silently discarding the whole plan.
func (f *Fms) IsValidRouteAmendment(routeString string) bool {
	elems, err := ParseRouteString(routeString)
	if err != nil {
		return false
	}

	for _, elem := range elems {
		if elem.Kind != RouteElementFix && elem.Kind != RouteElementHoldFix {
			continue
		}
		if slices.Contains(f.previousRouteSegments, elem.Fix) {
			continue
		}
		if _, _, ok := f.findWaypoint(elem.Fix); ok {
			return true
		}
	}
	return false
}

///////////////////////////////////////////////////////////////////////////
// Route replacement and merge

// ReplaceFlightPlan discards all legs and rebuilds from the given route
// string; the flown-segment history is retained. On error the existing
// route is left unchanged.
func (f *Fms) ReplaceFlightPlan(routeString string) error {
	elems, err := ParseRouteString(routeString)
	if err != nil {
		return err
	}
	legs, err := f.buildLegs(elems)
	if err != nil {
		return err
	}

	f.legs = legs
	f.lg.Info("flight plan replaced", slog.Any("fms", f))
	return nil
}

// ReplaceRouteUpToSharedRouteSegment merges a partial reroute into the
// route: everything before the first fix shared with the current plan is
// replaced by the amendment's preceding segments, and the route from the
// shared fix onward is untouched. The replaced segments were never flown,
// so they are not recorded in the history.
func (f *Fms) ReplaceRouteUpToSharedRouteSegment(routeString string) error {
	elems, err := ParseRouteString(routeString)
	if err != nil {
		return err
	}

	// The first amendment fix that is also an upcoming waypoint anchors
	// the merge.
	shared := -1
	var sharedLeg int
	for i, elem := range elems {
		if elem.Kind != RouteElementFix && elem.Kind != RouteElementHoldFix {
			continue
		}
		if li, _, ok := f.findWaypoint(elem.Fix); ok {
			shared, sharedLeg = i, li
			break
		}
	}
	if shared == -1 {
		return ErrNoMatchingRouteSegment
	}

	prefix, err := f.buildLegsAllowEmpty(elems[:shared])
	if err != nil {
		return err
	}

	f.legs = append(prefix, f.legs[sharedLeg:]...)
	f.lg.Info("route amended", slog.String("amendment", routeString), slog.Any("fms", f))
	return nil
}

// buildLegsAllowEmpty is buildLegs without the non-empty requirement, for
// amendment prefixes that may begin at the shared fix itself.
func (f *Fms) buildLegsAllowEmpty(elems []RouteElement) ([]Leg, error) {
	if len(elems) == 0 {
		return nil, nil
	}
	return f.buildLegs(elems)
}

// ReplaceDepartureProcedure swaps the route's departure procedure for the
// one in the given route string, creating it at the front of the route if
// none existed: the SID precedes everything else the aircraft will fly.
// The runway becomes the departure runway assignment.
func (f *Fms) ReplaceDepartureProcedure(routeString string, runway *Runway) error {
	return f.replaceProcedure(routeString, runway, DepartureProcedure)
}

// ReplaceArrivalProcedure swaps the route's arrival procedure, appending
// it after the intervening direct segments if none existed.
func (f *Fms) ReplaceArrivalProcedure(routeString string, runway *Runway) error {
	return f.replaceProcedure(routeString, runway, ArrivalProcedure)
}

func (f *Fms) replaceProcedure(routeString string, runway *Runway, category ProcedureCategory) error {
	elems, err := ParseRouteString(routeString)
	if err != nil {
		return err
	}
	if len(elems) != 1 || elems[0].Kind != RouteElementProcedure {
		return ErrInvalidRouteString
	}
	elem := elems[0]

	// Already cleared for this exact procedure route.
	if slices.ContainsFunc(f.legs, func(l Leg) bool { return l.RouteString == elem.RouteString() }) {
		return nil
	}

	if runway == nil {
		return ErrMissingRunway
	}
	proc, ok := f.dir.Procedure(elem.Procedure)
	if !ok {
		return ErrUnknownProcedure
	}
	if proc.Category != category {
		return ErrUnknownProcedure
	}
	if proc.IsRNAV && !f.capabilities.RNAV {
		return ErrNotRNAVCapable
	}
	if !proc.ValidTransitionRunway(runway.Name) {
		return ErrUnknownRunway
	}

	leg, err := makeProcedureLeg(elem, f.dir, runway.Name)
	if err != nil {
		return err
	}

	// All lookups done; commit.
	legs := slices.Clone(f.legs)
	if i := slices.IndexFunc(legs, func(l Leg) bool {
		return l.IsProcedure() && l.Procedure.Category == category
	}); i != -1 {
		legs = util.DeleteSliceElement(legs, i)
	}

	if category == DepartureProcedure {
		// Don't leave a direct leg to the procedure's exit fix duplicated
		// immediately after the procedure.
		if len(legs) > 0 && !legs[0].IsProcedure() && legs[0].RouteString == elem.Exit {
			legs = util.DeleteSliceElement(legs, 0)
		}
		legs = util.InsertSliceElement(legs, 0, leg)
		f.runways.Departure = runway
	} else {
		if n := len(legs); n > 0 && !legs[n-1].IsProcedure() && legs[n-1].RouteString == elem.Entry {
			legs = util.DeleteSliceElement(legs, n-1)
		}
		legs = append(legs, leg)
		f.runways.Arrival = runway
	}

	f.legs = legs
	f.lg.Info("procedure replaced", slog.String("procedure", elem.RouteString()),
		slog.String("category", category.String()), slog.Any("fms", f))
	return nil
}

///////////////////////////////////////////////////////////////////////////
// Advancement

// recordFlownSegment folds a consumed leg's route string into the
// history; each value appears at most once no matter how many times it is
// reached.
func (f *Fms) recordFlownSegment(routeString string) {
	if !slices.Contains(f.previousRouteSegments, routeString) {
		f.previousRouteSegments = append(f.previousRouteSegments, routeString)
	}
}

// dropExhaustedFrontLegs removes any empty legs from the front of the
// route, recording each in the history.
func (f *Fms) dropExhaustedFrontLegs() {
	for len(f.legs) > 0 && len(f.legs[0].Waypoints) == 0 {
		f.recordFlownSegment(f.legs[0].RouteString)
		f.legs = util.DeleteSliceElement(f.legs, 0)
	}
}

// NextWaypoint advances past the current waypoint as the aircraft passes
// it. When that exhausts the front leg, the leg is dropped and its route
// string recorded, and the next leg's first waypoint becomes current.
func (f *Fms) NextWaypoint() {
	f.dropExhaustedFrontLegs()
	if len(f.legs) == 0 {
		return
	}

	leg := &f.legs[0]
	leg.Waypoints = util.DeleteSliceElement(leg.Waypoints, 0)
	if len(leg.Waypoints) == 0 {
		f.recordFlownSegment(leg.RouteString)
		f.legs = util.DeleteSliceElement(f.legs, 0)
	}

	if wp := f.CurrentWaypoint(); wp != nil {
		f.lg.Debug("advanced to next waypoint", slog.Any("waypoint", *wp))
	} else {
		f.lg.Debug("route exhausted")
	}
}

// SkipToWaypoint discards everything strictly before the named waypoint,
// making it current. Skipped legs are recorded in the history in order.
// It is a no-op if the waypoint is already current, and returns
// ErrFixNotInRoute, without mutation, if the name matches nothing.
func (f *Fms) SkipToWaypoint(name string) error {
	li, wi, ok := f.findWaypoint(name)
	if !ok {
		return ErrFixNotInRoute
	}
	if wp := f.CurrentWaypoint(); wp != nil && wp == &f.legs[li].Waypoints[wi] {
		return nil
	}

	for i := 0; i < li; i++ {
		f.recordFlownSegment(f.legs[0].RouteString)
		f.legs = util.DeleteSliceElement(f.legs, 0)
	}
	leg := &f.legs[0]
	leg.Waypoints = leg.Waypoints[wi:]

	f.lg.Debug("skipped to waypoint", slog.String("fix", strings.ToLower(name)), slog.Any("fms", f))
	return nil
}

///////////////////////////////////////////////////////////////////////////
// Holds

// CreateLegWithHoldingPattern establishes a hold: over the aircraft's
// present position (the "gps" segment), over a fix already in the route
// (the existing waypoint is mutated in place, never duplicated), or over
// a known fix not currently in the route (a new front leg is
// synthesized). The route is untouched on failure.
func (f *Fms) CreateLegWithHoldingPattern(inboundHeading float32, turn TurnDirection,
	legLength string, holdRouteSegment string, holdPosition math.Point2LL) error {
	seg := strings.ToLower(strings.TrimSpace(holdRouteSegment))
	hold := &HoldPattern{
		InboundHeading: inboundHeading,
		TurnDirection:  turn,
		LegLength:      util.Select(legLength != "", legLength, DefaultHoldPattern().LegLength),
	}

	if seg == PresentPositionFix {
		if holdPosition.IsZero() {
			return ErrUnresolvedHoldPosition
		}
		f.prependHoldLeg(PresentPositionFix, holdPosition, hold)
		return nil
	}

	if li, wi, ok := f.findWaypoint(seg); ok {
		wp := &f.legs[li].Waypoints[wi]
		wp.Hold = hold
		if !f.legs[li].IsProcedure() {
			f.legs[li].RouteString = "@" + seg
		}
		return f.SkipToWaypoint(seg)
	}

	p, ok := f.dir.Locate(seg)
	if !ok {
		if holdPosition.IsZero() {
			return ErrUnresolvedHoldPosition
		}
		p = holdPosition
	}
	f.prependHoldLeg("@"+seg, p, hold)
	return nil
}

func (f *Fms) prependHoldLeg(routeString string, p math.Point2LL, hold *HoldPattern) {
	fix := strings.TrimPrefix(routeString, "@")
	f.legs = util.InsertSliceElement(f.legs, 0, Leg{
		RouteString: routeString,
		Waypoints: WaypointArray{{
			Fix:          fix,
			Location:     p,
			Hold:         hold,
			HoldFixOwned: true,
		}},
	})
	f.lg.Info("holding pattern established", slog.String("segment", routeString), slog.Any("fms", f))
}

// CancelHold releases the hold at the current waypoint: hold metadata is
// detached, and a waypoint that existed only to anchor the hold is
// dropped from the route.
func (f *Fms) CancelHold() {
	wp := f.CurrentWaypoint()
	if wp == nil || wp.Hold == nil {
		return
	}
	if wp.HoldFixOwned {
		f.NextWaypoint()
		return
	}
	wp.Hold = nil
	if leg := f.CurrentLeg(); !leg.IsProcedure() {
		leg.RouteString = strings.TrimPrefix(leg.RouteString, "@")
	}
}

///////////////////////////////////////////////////////////////////////////
// Flight phase

func (f *Fms) FlightPhase() FlightPhase { return f.phase }

// SetFlightPhase transitions the phase state machine. Entering HOLD
// records the prior phase so it can be restored when the hold ends;
// only one prior phase is retained.
func (f *Fms) SetFlightPhase(p FlightPhase) {
	if p == f.phase {
		return
	}
	if p == PhaseHold {
		f.prevPhase = f.phase
		f.hasPrevPhase = true
	}
	f.lg.Debug("flight phase", slog.String("from", f.phase.String()), slog.String("to", p.String()))
	f.phase = p
}

// ExitHoldIfHolding is a no-op unless the flight is in the HOLD phase, in
// which case the phase recorded when the hold began is restored.
func (f *Fms) ExitHoldIfHolding() {
	if f.phase != PhaseHold {
		return
	}
	if f.hasPrevPhase {
		f.phase = f.prevPhase
		f.hasPrevPhase = false
	} else {
		f.phase = PhaseCruise
	}
}
