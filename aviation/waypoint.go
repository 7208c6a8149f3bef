// aviation/waypoint.go
// Copyright(c) 2024-2026 openscope contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/javs/openscope/math"
	"github.com/javs/openscope/util"
)

///////////////////////////////////////////////////////////////////////////
// TurnDirection

// TurnDirection specifies the direction of a turn.
type TurnDirection int

const (
	TurnClosest TurnDirection = iota // default: turn the shortest direction
	TurnLeft
	TurnRight
)

func (t TurnDirection) String() string {
	return []string{"closest", "left", "right"}[int(t)]
}

// ParseTurnDirection maps the textual direction given with hold
// instructions to a TurnDirection.
func ParseTurnDirection(s string) (TurnDirection, error) {
	switch strings.ToLower(s) {
	case "left", "l":
		return TurnLeft, nil
	case "right", "r":
		return TurnRight, nil
	default:
		return TurnClosest, fmt.Errorf("%s: invalid turn direction", s)
	}
}

///////////////////////////////////////////////////////////////////////////
// AltitudeRestriction

type AltitudeRestriction struct {
	// We treat 0 as "unset", which works naturally for the bottom but
	// requires occasional care at the top.
	Range [2]float32
}

func (a AltitudeRestriction) TargetAltitude(alt float32) float32 {
	if a.Range[1] != 0 {
		return math.Clamp(alt, a.Range[0], a.Range[1])
	} else {
		return max(alt, a.Range[0])
	}
}

// Encoded returns the restriction in the encoded form in which it is
// specified in navigation data files, e.g. "5000+" for "at or above
// 5000".
func (a AltitudeRestriction) Encoded() string {
	if a.Range[0] != 0 {
		if a.Range[0] == a.Range[1] {
			return fmt.Sprintf("%.0f", a.Range[0])
		} else if a.Range[1] != 0 {
			return fmt.Sprintf("%.0f-%.0f", a.Range[0], a.Range[1])
		} else {
			return fmt.Sprintf("%.0f+", a.Range[0])
		}
	} else if a.Range[1] != 0 {
		return fmt.Sprintf("%.0f-", a.Range[1])
	} else {
		return ""
	}
}

// ParseAltitudeRestriction parses an altitude restriction in the compact
// text format used in navigation data files.
func ParseAltitudeRestriction(s string) (*AltitudeRestriction, error) {
	n := len(s)
	if n == 0 {
		return nil, fmt.Errorf("%s: no altitude provided for crossing restriction", s)
	}

	if s[n-1] == '-' {
		// At or below
		alt, err := strconv.Atoi(s[:n-1])
		if err != nil {
			return nil, fmt.Errorf("%s: error parsing altitude restriction: %v", s, err)
		}
		return &AltitudeRestriction{Range: [2]float32{0, float32(alt)}}, nil
	} else if s[n-1] == '+' {
		// At or above
		alt, err := strconv.Atoi(s[:n-1])
		if err != nil {
			return nil, fmt.Errorf("%s: error parsing altitude restriction: %v", s, err)
		}
		return &AltitudeRestriction{Range: [2]float32{float32(alt), 0}}, nil
	} else if alts := strings.Split(s, "-"); len(alts) == 2 {
		// Between
		if low, err := strconv.Atoi(alts[0]); err != nil {
			return nil, fmt.Errorf("%s: error parsing altitude restriction: %v", s, err)
		} else if high, err := strconv.Atoi(alts[1]); err != nil {
			return nil, fmt.Errorf("%s: error parsing altitude restriction: %v", s, err)
		} else if low > high {
			return nil, fmt.Errorf("%s: low altitude %d is above high altitude %d", s, low, high)
		} else {
			return &AltitudeRestriction{Range: [2]float32{float32(low), float32(high)}}, nil
		}
	} else {
		// At
		if alt, err := strconv.Atoi(s); err != nil {
			return nil, fmt.Errorf("%s: error parsing altitude restriction: %v", s, err)
		} else {
			return &AltitudeRestriction{Range: [2]float32{float32(alt), float32(alt)}}, nil
		}
	}
}

///////////////////////////////////////////////////////////////////////////
// HoldPattern

// HoldPattern gives the racetrack pattern an aircraft is to fly over a
// fix; a Waypoint carries one only while a hold is active there.
type HoldPattern struct {
	InboundHeading float32
	TurnDirection  TurnDirection
	// LegLength is either time- or distance-based, e.g. "1min" or "3nm".
	LegLength string
}

// DefaultHoldPattern is used when a hold is requested without explicit
// geometry: right turns, one minute legs.
func DefaultHoldPattern() *HoldPattern {
	return &HoldPattern{TurnDirection: TurnRight, LegLength: "1min"}
}

func (h HoldPattern) DisplayName(fix string) string {
	n := fmt.Sprintf("%s (%s", fix, h.TurnDirection)
	if h.LegLength != "" {
		n += ", " + h.LegLength
	}
	return n + ")"
}

///////////////////////////////////////////////////////////////////////////
// Waypoint

// Waypoint is a single navigation fix on the route. Fix names are
// case-insensitive on input and stored canonically lowercase.
type Waypoint struct {
	Fix            string
	Location       math.Point2LL
	AltRestriction *AltitudeRestriction // nil if unrestricted
	Speed          int                  // knots; 0 = unset
	Hold           *HoldPattern         // nil unless the aircraft is to hold here
	HoldFixOwned   bool                 // synthesized solely to anchor a hold
}

func (wp *Waypoint) IsHold() bool { return wp.Hold != nil }

func (wp Waypoint) LogValue() slog.Value {
	attrs := []slog.Attr{slog.String("fix", wp.Fix)}
	if wp.AltRestriction != nil {
		attrs = append(attrs, slog.String("altitude_restriction", wp.AltRestriction.Encoded()))
	}
	if wp.Speed != 0 {
		attrs = append(attrs, slog.Int("speed", wp.Speed))
	}
	if wp.Hold != nil {
		attrs = append(attrs, slog.String("hold", wp.Hold.DisplayName(wp.Fix)))
	}
	return slog.GroupValue(attrs...)
}

///////////////////////////////////////////////////////////////////////////
// WaypointArray

type WaypointArray []Waypoint

// Encode returns the compact textual form of the waypoints as they are
// given in navigation data files.
func (wa WaypointArray) Encode() string {
	var entries []string
	for _, w := range wa {
		s := w.Fix
		if w.AltRestriction != nil {
			s += "/a" + w.AltRestriction.Encoded()
		}
		if w.Speed != 0 {
			s += fmt.Sprintf("/s%d", w.Speed)
		}
		entries = append(entries, s)
	}

	return strings.Join(entries, " ")
}

// Names returns the fix names of the waypoints, in order.
func (wa WaypointArray) Names() []string {
	return util.MapSlice(wa, func(wp Waypoint) string { return wp.Fix })
}

// InitializeLocations resolves each waypoint's position through the given
// Locator, accumulating errors for unknown fixes.
func (wa WaypointArray) InitializeLocations(loc Locator, e *util.ErrorLogger) WaypointArray {
	for i, wp := range wa {
		if wp.Location.IsZero() {
			if p, ok := loc.Locate(wp.Fix); ok {
				wa[i].Location = p
			} else if e != nil {
				e.Push(wp.Fix)
				e.ErrorString("unable to locate waypoint")
				e.Pop()
			}
		}
	}
	return wa
}

// ParseWaypoints parses a whitespace-separated list of fixes with optional
// /a altitude and /s speed annotations, e.g. "kepec/a13000-14000/s230".
func ParseWaypoints(str string) (WaypointArray, error) {
	var waypoints WaypointArray
	for _, field := range strings.Fields(str) {
		if len(field) == 0 {
			return nil, fmt.Errorf("Empty waypoint in string: %q", str)
		}

		wp := Waypoint{}
		for i, f := range strings.Split(field, "/") {
			if i == 0 {
				wp.Fix = strings.ToLower(f)
			} else if len(f) == 0 {
				return nil, fmt.Errorf("no command found after / in %q", field)
			} else if f[0] == 'a' {
				ar, err := ParseAltitudeRestriction(f[1:])
				if err != nil {
					return nil, err
				}
				wp.AltRestriction = ar
			} else if f[0] == 's' {
				kts, err := strconv.Atoi(f[1:])
				if err != nil {
					return nil, fmt.Errorf("%s: error parsing number after speed restriction: %v", f[1:], err)
				}
				wp.Speed = kts
			} else {
				return nil, fmt.Errorf("%s: unknown fix modifier in %q", f, field)
			}
		}

		waypoints = append(waypoints, wp)
	}

	return waypoints, nil
}
