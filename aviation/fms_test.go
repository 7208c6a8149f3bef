// aviation/fms_test.go
// Copyright(c) 2024-2026 openscope contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"errors"
	"reflect"
	"slices"
	"testing"

	"github.com/javs/openscope/math"

	"github.com/davecgh/go-spew/spew"
)

func testRunway(t *testing.T, d *FileDirectory, name string) *Runway {
	t.Helper()
	ap, ok := d.Airports["klas"]
	if !ok {
		t.Fatalf("klas not in directory")
	}
	rwy, ok := ap.Runway(name)
	if !ok {
		t.Fatalf("runway %s not at klas", name)
	}
	return rwy
}

func makeTestFms(t *testing.T, route string, category FlightCategory) (*Fms, *FileDirectory) {
	t.Helper()
	d := makeTestDirectory(t)
	rwy := testRunway(t, d, "19l")
	f, err := MakeFms(route, RunwayAssignment{Departure: rwy, Arrival: rwy},
		AircraftCapabilities{Category: category, RNAV: true}, d, nil)
	if err != nil {
		t.Fatalf("MakeFms(%q): %v", route, err)
	}
	return f, d
}

func TestMakeFms(t *testing.T) {
	f, _ := makeTestFms(t, "COWBY..BIKKR..DAG.KEPEC3.KLAS", FlightCategoryArrival)

	if n := len(f.legs); n != 3 {
		t.Fatalf("got %d legs, expected 3: %s", n, spew.Sdump(f.legs))
	}
	if n := len(f.legs[2].Waypoints); n != 12 {
		t.Errorf("procedure leg has %d waypoints, expected 12: %s", n, f.legs[2].Waypoints.Encode())
	}
	if n := len(f.RemainingWaypoints()); n != 14 {
		t.Errorf("got %d remaining waypoints, expected 14", n)
	}
	if wp := f.CurrentWaypoint(); wp == nil || wp.Fix != "cowby" {
		t.Errorf("current waypoint %+v, expected cowby", wp)
	}
	if s := f.FlightPlanRoute(); s != "cowby..bikkr..dag.kepec3.klas" {
		t.Errorf("flight plan route %q", s)
	}
	if f.FlightPhase() != PhaseCruise {
		t.Errorf("arrival should start in cruise, got %s", f.FlightPhase())
	}
	if !f.legs[2].IsProcedure() || f.legs[2].Procedure.Id != "kepec3" {
		t.Errorf("procedure leg not identified: %+v", f.legs[2].Procedure)
	}

	f, _ = makeTestFms(t, "klas.tralr6.mlf", FlightCategoryDeparture)
	if n := len(f.legs); n != 1 || len(f.legs[0].Waypoints) != 6 {
		t.Errorf("TRALR6 departure: %s", spew.Sdump(f.legs))
	}
	if f.FlightPhase() != PhaseApron {
		t.Errorf("departure should start at the apron, got %s", f.FlightPhase())
	}
}

func TestMakeFmsErrors(t *testing.T) {
	d := makeTestDirectory(t)
	rwy := testRunway(t, d, "19l")
	arrival := AircraftCapabilities{Category: FlightCategoryArrival, RNAV: true}
	both := RunwayAssignment{Departure: rwy, Arrival: rwy}

	for _, c := range []struct {
		route   string
		runways RunwayAssignment
		ac      AircraftCapabilities
		dir     ProcedureDirectory
		err     error
	}{
		{"cowby", both, arrival, nil, ErrMissingDirectory},
		{"cowby", RunwayAssignment{Departure: rwy}, arrival, d, ErrMissingRunway},
		{"cowby....bikkr", both, arrival, d, ErrInvalidRouteString},
		{"nosuch", both, arrival, d, ErrUnknownFix},
		{"dag.nosuch1.klas", both, arrival, d, ErrUnknownProcedure},
		{"mlf.kepec3.klas", both, arrival, d, ErrUnknownTransition},
		{"dag.kepec3.klas", both, AircraftCapabilities{Category: FlightCategoryArrival}, d, ErrNotRNAVCapable},
		{"gps..cowby", both, arrival, d, ErrUnresolvedHoldPosition},
	} {
		if _, err := MakeFms(c.route, c.runways, c.ac, c.dir, nil); !errors.Is(err, c.err) {
			t.Errorf("MakeFms(%q): got %v, expected %v", c.route, err, c.err)
		}
	}
}

func TestNextWaypoint(t *testing.T) {
	f, _ := makeTestFms(t, "cowby..bikkr..dag.kepec3.klas", FlightCategoryArrival)

	f.NextWaypoint()
	if prev := f.PreviousRouteSegments(); !reflect.DeepEqual(prev, []string{"cowby"}) {
		t.Errorf("after one advance: history %v", prev)
	}
	if wp := f.CurrentWaypoint(); wp.Fix != "bikkr" {
		t.Errorf("after one advance: current %s", wp.Fix)
	}

	f.NextWaypoint()
	if prev := f.PreviousRouteSegments(); !reflect.DeepEqual(prev, []string{"cowby", "bikkr"}) {
		t.Errorf("after two advances: history %v", prev)
	}
	if wp := f.CurrentWaypoint(); wp.Fix != "dag" {
		t.Errorf("after two advances: current %s", wp.Fix)
	}

	// The procedure leg is consumed waypoint by waypoint and recorded only
	// when its last fix is passed.
	for i := 0; i < 11; i++ {
		f.NextWaypoint()
	}
	if prev := f.PreviousRouteSegments(); len(prev) != 2 {
		t.Errorf("procedure leg recorded before exhaustion: %v", prev)
	}
	f.NextWaypoint()

	want := []string{"cowby", "bikkr", "dag.kepec3.klas"}
	if prev := f.PreviousRouteSegments(); !reflect.DeepEqual(prev, want) {
		t.Errorf("exhausted route history %v, expected %v", prev, want)
	}
	if wp := f.CurrentWaypoint(); wp != nil {
		t.Errorf("exhausted route still has current waypoint %s", wp.Fix)
	}
	if f.HasNextWaypoint() {
		t.Errorf("exhausted route claims a next waypoint")
	}

	// Advancing past the end is quietly a no-op.
	f.NextWaypoint()
	if prev := f.PreviousRouteSegments(); !reflect.DeepEqual(prev, want) {
		t.Errorf("history changed by advancing an exhausted route: %v", prev)
	}
}

func TestPreviousRouteSegmentsRecordedOnce(t *testing.T) {
	f, _ := makeTestFms(t, "cowby..bikkr..cowby", FlightCategoryArrival)

	for i := 0; i < 3; i++ {
		f.NextWaypoint()
	}
	want := []string{"cowby", "bikkr"}
	if prev := f.PreviousRouteSegments(); !reflect.DeepEqual(prev, want) {
		t.Errorf("history %v, expected %v", prev, want)
	}
}

func TestSkipToWaypoint(t *testing.T) {
	f, _ := makeTestFms(t, "cowby..bikkr..dag.kepec3.klas", FlightCategoryArrival)

	// Case-insensitive; skipped legs recorded, earlier fixes in the
	// procedure leg dropped without a record.
	if err := f.SkipToWaypoint("KEPEC"); err != nil {
		t.Fatalf("SkipToWaypoint: %v", err)
	}
	if prev := f.PreviousRouteSegments(); !reflect.DeepEqual(prev, []string{"cowby", "bikkr"}) {
		t.Errorf("history %v", prev)
	}
	if wp := f.CurrentWaypoint(); wp.Fix != "kepec" {
		t.Errorf("current %s, expected kepec", wp.Fix)
	}
	if n := len(f.RemainingWaypoints()); n != 8 {
		t.Errorf("%d waypoints remain, expected 8", n)
	}

	// Skipping to the current waypoint changes nothing.
	if err := f.SkipToWaypoint("kepec"); err != nil {
		t.Errorf("SkipToWaypoint to current: %v", err)
	}
	if n := len(f.RemainingWaypoints()); n != 8 {
		t.Errorf("no-op skip mutated the route: %d waypoints", n)
	}

	// Unknown fixes leave the route untouched.
	if err := f.SkipToWaypoint("nosuch"); !errors.Is(err, ErrFixNotInRoute) {
		t.Errorf("got %v, expected ErrFixNotInRoute", err)
	}
	if n := len(f.RemainingWaypoints()); n != 8 {
		t.Errorf("failed skip mutated the route: %d waypoints", n)
	}
}

func TestHasNextWaypoint(t *testing.T) {
	f, _ := makeTestFms(t, "cowby", FlightCategoryArrival)
	if f.HasNextWaypoint() {
		t.Errorf("single-fix route claims a next waypoint")
	}

	f, _ = makeTestFms(t, "cowby..bikkr", FlightCategoryArrival)
	if !f.HasNextWaypoint() {
		t.Errorf("two-fix route claims no next waypoint")
	}
	f.NextWaypoint()
	if f.HasNextWaypoint() {
		t.Errorf("last waypoint claims a successor")
	}
}

func TestAltitudeAndSpeedRestrictions(t *testing.T) {
	f, _ := makeTestFms(t, "cowby..bikkr..dag.kepec3.klas", FlightCategoryArrival)

	if wps := f.AltitudeRestrictedWaypoints(); len(wps) != 5 {
		t.Errorf("%d altitude-restricted waypoints, expected 5: %s", len(wps), wps.Encode())
	}
	if wps := f.SpeedRestrictedWaypoints(); len(wps) != 2 {
		t.Errorf("%d speed-restricted waypoints, expected 2: %s", len(wps), wps.Encode())
	}
	if wp, ok := f.NextAltitudeRestrictedWaypoint(); !ok || wp.Fix != "misen" {
		t.Errorf("next restricted waypoint %+v, expected misen", wp)
	}

	if top, ok := f.TopAltitude(); !ok || top != 24000 {
		t.Errorf("top altitude %v %v, expected 24000", top, ok)
	}
	if bottom, ok := f.BottomAltitude(); !ok || bottom != 7000 {
		t.Errorf("bottom altitude %v %v, expected 7000", bottom, ok)
	}

	// Both are computed over the remaining route only.
	if err := f.SkipToWaypoint("ipumy"); err != nil {
		t.Fatalf("SkipToWaypoint: %v", err)
	}
	if top, ok := f.TopAltitude(); !ok || top != 9000 {
		t.Errorf("top altitude after skip %v %v, expected 9000", top, ok)
	}
	if bottom, ok := f.BottomAltitude(); !ok || bottom != 7000 {
		t.Errorf("bottom altitude after skip %v %v, expected 7000", bottom, ok)
	}

	f, _ = makeTestFms(t, "cowby", FlightCategoryArrival)
	if _, ok := f.TopAltitude(); ok {
		t.Errorf("unrestricted route reports a top altitude")
	}
	if _, ok := f.BottomAltitude(); ok {
		t.Errorf("unrestricted route reports a bottom altitude")
	}
}

func TestRemainingRouteDistance(t *testing.T) {
	f, _ := makeTestFms(t, "cowby..bikkr", FlightCategoryArrival)
	d := makeTestDirectory(t)

	cowby, _ := d.Locate("cowby")
	bikkr, _ := d.Locate("bikkr")
	want := math.NMDistance2LL(cowby, bikkr)

	got := f.RemainingRouteDistance(cowby)
	if diff := got - want; diff < -0.01 || diff > 0.01 {
		t.Errorf("remaining distance %v nm, expected %v nm", got, want)
	}
}

func TestIsValidRoute(t *testing.T) {
	f, d := makeTestFms(t, "cowby", FlightCategoryArrival)
	rwy19l := testRunway(t, d, "19l")
	rwy07r := testRunway(t, d, "07r")
	runways := RunwayAssignment{Departure: rwy19l, Arrival: rwy19l}

	for _, c := range []struct {
		route   string
		runways RunwayAssignment
		want    bool
	}{
		{"cowby..bikkr", runways, true},
		{"cowby..bikkr..dag.kepec3.klas", runways, true},
		{"@bikkr", runways, true},
		{"nosuch", runways, false},
		{"dag.kepec3", runways, false},
		{"mlf.kepec3.klas", runways, false},
		{"gps", runways, false},
		{"dag.kepec3.klas", RunwayAssignment{Arrival: rwy07r}, false},
		{"dag.kepec3.klas", RunwayAssignment{Departure: rwy19l}, false},
	} {
		if got := f.IsValidRoute(c.route, c.runways); got != c.want {
			t.Errorf("IsValidRoute(%q) = %v, expected %v", c.route, got, c.want)
		}
	}
}

func TestIsValidProcedureRoute(t *testing.T) {
	f, d := makeTestFms(t, "cowby..bikkr..dag.kepec3.klas", FlightCategoryArrival)
	rwy19l := testRunway(t, d, "19l")
	rwy07r := testRunway(t, d, "07r")
	runways := RunwayAssignment{Departure: rwy19l, Arrival: rwy19l}

	if !f.IsValidProcedureRoute("dag.kepec3.klas", runways, ArrivalProcedure) {
		t.Errorf("valid arrival procedure rejected")
	}
	if !f.IsValidProcedureRoute("DAG.KEPEC3.KLAS", runways, AnyProcedureCategory) {
		t.Errorf("category-agnostic query rejected")
	}
	if f.IsValidProcedureRoute("dag.kepec3.klas", runways, DepartureProcedure) {
		t.Errorf("arrival procedure accepted as a departure")
	}
	if !f.IsValidProcedureRoute("klas.tralr6.mlf", runways, DepartureProcedure) {
		t.Errorf("valid departure procedure rejected")
	}
	if f.IsValidProcedureRoute("cowby", runways, AnyProcedureCategory) {
		t.Errorf("direct fix accepted as a procedure route")
	}
	if f.IsValidProcedureRoute("cowby..dag.kepec3.klas", runways, ArrivalProcedure) {
		t.Errorf("multi-segment route accepted as a procedure route")
	}

	// A procedure already in the route is valid as-is, even when the
	// runway assignment wouldn't pass the transition check.
	if !f.IsValidProcedureRoute("dag.kepec3.klas", RunwayAssignment{Arrival: rwy07r}, ArrivalProcedure) {
		t.Errorf("already-cleared procedure rejected")
	}
}

func TestIsValidRouteAmendment(t *testing.T) {
	f, _ := makeTestFms(t, "cowby..bikkr..dag.kepec3.klas", FlightCategoryArrival)

	if !f.IsValidRouteAmendment("hitme..holdm..bikkr..dag") {
		t.Errorf("amendment sharing bikkr rejected")
	}
	if !f.IsValidRouteAmendment("sunst") {
		t.Errorf("amendment sharing a procedure-leg fix rejected")
	}
	if f.IsValidRouteAmendment("hitme..holdm") {
		t.Errorf("amendment sharing nothing accepted")
	}
	if f.IsValidRouteAmendment("cowby....bikkr") {
		t.Errorf("malformed amendment accepted")
	}

	// Fixes already flown no longer anchor an amendment.
	f.NextWaypoint()
	if f.IsValidRouteAmendment("cowby") {
		t.Errorf("amendment anchored on a flown fix accepted")
	}
}

func TestReplaceFlightPlan(t *testing.T) {
	f, _ := makeTestFms(t, "cowby..bikkr", FlightCategoryArrival)
	f.NextWaypoint()

	if err := f.ReplaceFlightPlan("mlf.grnpa1.klas"); err != nil {
		t.Fatalf("ReplaceFlightPlan: %v", err)
	}
	if s := f.FlightPlanRoute(); s != "mlf.grnpa1.klas" {
		t.Errorf("flight plan route %q", s)
	}
	if n := len(f.RemainingWaypoints()); n != 6 {
		t.Errorf("%d waypoints, expected 6", n)
	}
	// A full replacement doesn't erase what was already flown.
	if prev := f.PreviousRouteSegments(); !reflect.DeepEqual(prev, []string{"cowby"}) {
		t.Errorf("history %v", prev)
	}

	// A failed replacement leaves the route alone.
	if err := f.ReplaceFlightPlan("nosuch"); !errors.Is(err, ErrUnknownFix) {
		t.Errorf("got %v, expected ErrUnknownFix", err)
	}
	if s := f.FlightPlanRoute(); s != "mlf.grnpa1.klas" {
		t.Errorf("failed replacement changed the route to %q", s)
	}
}

func TestReplaceRouteUpToSharedRouteSegment(t *testing.T) {
	f, _ := makeTestFms(t, "cowby..sunst..bikkr..dag.kepec3.klas", FlightCategoryArrival)

	if err := f.ReplaceRouteUpToSharedRouteSegment("hitme..holdm..bikkr..dag"); err != nil {
		t.Fatalf("amendment: %v", err)
	}
	if s := f.FlightPlanRoute(); s != "hitme..holdm..bikkr..dag.kepec3.klas" {
		t.Errorf("amended route %q: %s", s, spew.Sdump(f.legs))
	}
	if n := len(f.legs); n != 4 {
		t.Errorf("%d legs after amendment, expected 4", n)
	}
	if !f.legs[3].IsProcedure() || len(f.legs[3].Waypoints) != 12 {
		t.Errorf("procedure leg disturbed by amendment: %+v", f.legs[3])
	}
	// Replaced-but-never-flown segments don't enter the history.
	if prev := f.PreviousRouteSegments(); len(prev) != 0 {
		t.Errorf("history %v, expected empty", prev)
	}

	// Sharing the current fix itself replaces nothing.
	if err := f.ReplaceRouteUpToSharedRouteSegment("hitme..holdm"); err != nil {
		t.Fatalf("amendment: %v", err)
	}
	if s := f.FlightPlanRoute(); s != "hitme..holdm..bikkr..dag.kepec3.klas" {
		t.Errorf("no-op amendment changed the route to %q", s)
	}

	// No shared fix: rejected, untouched.
	err := f.ReplaceRouteUpToSharedRouteSegment("cowby..sunst2")
	if !errors.Is(err, ErrUnknownFix) && !errors.Is(err, ErrNoMatchingRouteSegment) {
		t.Errorf("got %v", err)
	}
	if s := f.FlightPlanRoute(); s != "hitme..holdm..bikkr..dag.kepec3.klas" {
		t.Errorf("failed amendment changed the route to %q", s)
	}
}

func TestReplaceDepartureProcedure(t *testing.T) {
	f, d := makeTestFms(t, "mlf", FlightCategoryDeparture)
	rwy19l := testRunway(t, d, "19l")

	if err := f.ReplaceDepartureProcedure("klas.tralr6.mlf", rwy19l); err != nil {
		t.Fatalf("ReplaceDepartureProcedure: %v", err)
	}
	// The direct leg to the procedure's exit fix is absorbed.
	if n := len(f.legs); n != 1 {
		t.Fatalf("%d legs, expected 1: %s", n, spew.Sdump(f.legs))
	}
	if f.legs[0].RouteString != "klas.tralr6.mlf" || len(f.legs[0].Waypoints) != 6 {
		t.Errorf("unexpected leg: %+v", f.legs[0])
	}
	if f.DepartureRunway() != rwy19l {
		t.Errorf("departure runway not updated")
	}

	// Swapping the SID replaces it in place.
	if err := f.ReplaceDepartureProcedure("klas.boach6.mlf", rwy19l); err != nil {
		t.Fatalf("ReplaceDepartureProcedure: %v", err)
	}
	if n := len(f.legs); n != 1 || f.legs[0].RouteString != "klas.boach6.mlf" {
		t.Errorf("SID not swapped: %s", f.FlightPlanRoute())
	}

	// Re-clearing the same procedure route is a no-op.
	if err := f.ReplaceDepartureProcedure("klas.boach6.mlf", rwy19l); err != nil {
		t.Errorf("re-clearance: %v", err)
	}

	for _, c := range []struct {
		route  string
		runway *Runway
		err    error
	}{
		{"cowby", rwy19l, ErrInvalidRouteString},
		{"klas.tralr6.mlf", nil, ErrMissingRunway},
		{"klas.tralr6.mlf", testRunway(t, d, "07r"), ErrUnknownRunway},
		{"dag.kepec3.klas", rwy19l, ErrUnknownProcedure}, // arrival, not a SID
		{"klas.nosuch1.mlf", rwy19l, ErrUnknownProcedure},
	} {
		if err := f.ReplaceDepartureProcedure(c.route, c.runway); !errors.Is(err, c.err) {
			t.Errorf("ReplaceDepartureProcedure(%q): got %v, expected %v", c.route, err, c.err)
		}
	}
}

func TestReplaceArrivalProcedure(t *testing.T) {
	f, d := makeTestFms(t, "cowby..bikkr", FlightCategoryArrival)
	rwy19l := testRunway(t, d, "19l")

	// No arrival in the route yet: the STAR goes at the end.
	if err := f.ReplaceArrivalProcedure("dag.kepec3.klas", rwy19l); err != nil {
		t.Fatalf("ReplaceArrivalProcedure: %v", err)
	}
	if s := f.FlightPlanRoute(); s != "cowby..bikkr..dag.kepec3.klas" {
		t.Errorf("route %q", s)
	}

	// Swap for a different STAR, same position.
	if err := f.ReplaceArrivalProcedure("mlf.grnpa1.klas", rwy19l); err != nil {
		t.Fatalf("ReplaceArrivalProcedure: %v", err)
	}
	if s := f.FlightPlanRoute(); s != "cowby..bikkr..mlf.grnpa1.klas" {
		t.Errorf("route %q", s)
	}

	// A trailing direct leg to the STAR's entry fix is absorbed.
	f, _ = makeTestFms(t, "cowby..dag", FlightCategoryArrival)
	if err := f.ReplaceArrivalProcedure("dag.kepec3.klas", rwy19l); err != nil {
		t.Fatalf("ReplaceArrivalProcedure: %v", err)
	}
	if s := f.FlightPlanRoute(); s != "cowby..dag.kepec3.klas" {
		t.Errorf("entry fix not absorbed: %q", s)
	}
	if n := len(f.legs); n != 2 {
		t.Errorf("%d legs, expected 2: %s", n, spew.Sdump(f.legs))
	}
}

func TestHoldAtExistingFix(t *testing.T) {
	f, _ := makeTestFms(t, "cowby..bikkr..dag.kepec3.klas", FlightCategoryArrival)

	err := f.CreateLegWithHoldingPattern(270, TurnLeft, "2min", "BIKKR", math.Point2LL{})
	if err != nil {
		t.Fatalf("hold at bikkr: %v", err)
	}

	wp := f.CurrentWaypoint()
	if wp == nil || wp.Fix != "bikkr" {
		t.Fatalf("current waypoint %+v, expected bikkr", wp)
	}
	if wp.Hold == nil || wp.Hold.TurnDirection != TurnLeft || wp.Hold.LegLength != "2min" ||
		wp.Hold.InboundHeading != 270 {
		t.Errorf("hold pattern %+v", wp.Hold)
	}
	if wp.HoldFixOwned {
		t.Errorf("existing waypoint marked as hold-owned")
	}

	// The existing waypoint is reused, never duplicated.
	n := 0
	for _, w := range f.RemainingWaypoints() {
		if w.Fix == "bikkr" {
			n++
		}
	}
	if n != 1 {
		t.Errorf("bikkr appears %d times after hold", n)
	}
	if s := f.FlightPlanRoute(); s != "@bikkr..dag.kepec3.klas" {
		t.Errorf("route %q", s)
	}
	if prev := f.PreviousRouteSegments(); !slices.Contains(prev, "cowby") {
		t.Errorf("leading leg not recorded: %v", prev)
	}

	// Cancelling detaches the hold and keeps the waypoint.
	f.CancelHold()
	if wp := f.CurrentWaypoint(); wp.Fix != "bikkr" || wp.Hold != nil {
		t.Errorf("after cancel: %+v", wp)
	}
	if s := f.FlightPlanRoute(); s != "bikkr..dag.kepec3.klas" {
		t.Errorf("route after cancel %q", s)
	}
}

func TestHoldAtProcedureFix(t *testing.T) {
	f, _ := makeTestFms(t, "cowby..dag.kepec3.klas", FlightCategoryArrival)

	if err := f.CreateLegWithHoldingPattern(0, TurnClosest, "", "kepec", math.Point2LL{}); err != nil {
		t.Fatalf("hold at kepec: %v", err)
	}
	wp := f.CurrentWaypoint()
	if wp.Fix != "kepec" || wp.Hold == nil {
		t.Fatalf("current waypoint %+v", wp)
	}
	if wp.Hold.LegLength != "1min" {
		t.Errorf("default leg length not applied: %q", wp.Hold.LegLength)
	}
	// A procedure leg keeps its route string.
	if leg := f.CurrentLeg(); leg.RouteString != "dag.kepec3.klas" {
		t.Errorf("leg route string %q", leg.RouteString)
	}
}

func TestLegsDoNotAliasDirectoryState(t *testing.T) {
	f, d := makeTestFms(t, "dag.kepec3.klas", FlightCategoryArrival)

	// Attaching a hold inside the leg must not leak into the directory's
	// cached expansion, which other aircraft share.
	if err := f.CreateLegWithHoldingPattern(0, TurnRight, "", "kepec", math.Point2LL{}); err != nil {
		t.Fatalf("hold at kepec: %v", err)
	}
	wps, err := d.ExpandProcedure("kepec3", "dag", "klas", "19l")
	if err != nil {
		t.Fatalf("expand KEPEC3: %v", err)
	}
	for _, wp := range wps {
		if wp.Hold != nil {
			t.Errorf("%s: hold leaked into the shared expansion", wp.Fix)
		}
	}
}

func TestHoldAtFixOutsideRoute(t *testing.T) {
	f, _ := makeTestFms(t, "cowby..bikkr", FlightCategoryArrival)

	if err := f.CreateLegWithHoldingPattern(0, TurnRight, "", "holdm", math.Point2LL{}); err != nil {
		t.Fatalf("hold at holdm: %v", err)
	}
	wp := f.CurrentWaypoint()
	if wp.Fix != "holdm" || wp.Hold == nil || !wp.HoldFixOwned {
		t.Fatalf("current waypoint %+v", wp)
	}
	if wp.Location.IsZero() {
		t.Errorf("holdm location not resolved from the directory")
	}
	if s := f.FlightPlanRoute(); s != "@holdm..cowby..bikkr" {
		t.Errorf("route %q", s)
	}

	// The synthesized fix exists only for the hold; cancelling removes it.
	f.CancelHold()
	if wp := f.CurrentWaypoint(); wp.Fix != "cowby" {
		t.Errorf("after cancel: current %s, expected cowby", wp.Fix)
	}
}

func TestHoldAtPresentPosition(t *testing.T) {
	f, _ := makeTestFms(t, "cowby..bikkr", FlightCategoryArrival)
	pos := math.Point2LL{-115.2, 36.1}

	if err := f.CreateLegWithHoldingPattern(0, TurnRight, "", "gps", pos); err != nil {
		t.Fatalf("present-position hold: %v", err)
	}
	wp := f.CurrentWaypoint()
	if wp.Fix != PresentPositionFix || wp.Hold == nil || !wp.HoldFixOwned {
		t.Fatalf("current waypoint %+v", wp)
	}
	if wp.Location != pos {
		t.Errorf("hold anchored at %s, expected %s", wp.Location.DDString(), pos.DDString())
	}

	// Without a position there is nothing to anchor to.
	f2, _ := makeTestFms(t, "cowby", FlightCategoryArrival)
	if err := f2.CreateLegWithHoldingPattern(0, TurnRight, "", "gps", math.Point2LL{}); !errors.Is(err, ErrUnresolvedHoldPosition) {
		t.Errorf("got %v, expected ErrUnresolvedHoldPosition", err)
	}
}

func TestHoldAtUnknownFix(t *testing.T) {
	f, _ := makeTestFms(t, "cowby..bikkr", FlightCategoryArrival)
	pos := math.Point2LL{-115.2, 36.1}

	// An unknown fix with an explicit position still anchors a hold.
	if err := f.CreateLegWithHoldingPattern(0, TurnRight, "", "zzzzz", pos); err != nil {
		t.Fatalf("hold at unknown fix with position: %v", err)
	}
	if wp := f.CurrentWaypoint(); wp.Fix != "zzzzz" || wp.Location != pos {
		t.Errorf("current waypoint %+v", wp)
	}

	// Without one the request fails and the route is untouched.
	f2, _ := makeTestFms(t, "cowby..bikkr", FlightCategoryArrival)
	err := f2.CreateLegWithHoldingPattern(0, TurnRight, "", "zzzzz", math.Point2LL{})
	if !errors.Is(err, ErrUnresolvedHoldPosition) {
		t.Errorf("got %v, expected ErrUnresolvedHoldPosition", err)
	}
	if s := f2.FlightPlanRoute(); s != "cowby..bikkr" {
		t.Errorf("failed hold changed the route to %q", s)
	}
}

func TestFlightPhaseHold(t *testing.T) {
	f, _ := makeTestFms(t, "cowby..bikkr", FlightCategoryArrival)
	if f.FlightPhase() != PhaseCruise {
		t.Fatalf("initial phase %s", f.FlightPhase())
	}

	f.SetFlightPhase(PhaseDescent)
	f.SetFlightPhase(PhaseHold)
	if f.FlightPhase() != PhaseHold {
		t.Errorf("phase %s, expected hold", f.FlightPhase())
	}

	// Leaving the hold restores the phase in effect when it began.
	f.ExitHoldIfHolding()
	if f.FlightPhase() != PhaseDescent {
		t.Errorf("phase %s after hold, expected descent", f.FlightPhase())
	}

	// Not holding: nothing happens.
	f.ExitHoldIfHolding()
	if f.FlightPhase() != PhaseDescent {
		t.Errorf("phase %s, expected descent", f.FlightPhase())
	}

	// Re-entering the hold phase while already holding doesn't clobber the
	// saved phase.
	f.SetFlightPhase(PhaseHold)
	f.SetFlightPhase(PhaseHold)
	f.ExitHoldIfHolding()
	if f.FlightPhase() != PhaseDescent {
		t.Errorf("phase %s, expected descent", f.FlightPhase())
	}
}
