// aviation/routestring.go
// Copyright(c) 2024-2026 openscope contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"strings"

	"github.com/javs/openscope/util"
)

// The route string grammar: tokens are joined by "." within a procedure
// segment and segments are joined to each other by "..". A procedure
// segment is exactly three dot-joined tokens, entry.procedure.exit; a
// single token is a fix flown direct. A leading "@" marks a fix the
// aircraft is to hold over, and the bare token "gps" is a hold at the
// aircraft's present position.
//
//	cowby
//	cowby..bikkr..dag.kepec3.klas
//	cowby..@bikkr..dag.kepec3.klas

// PresentPositionFix is the sentinel route segment for a hold at the
// aircraft's present position rather than over a named fix.
const PresentPositionFix = "gps"

type RouteElementKind int

const (
	RouteElementFix RouteElementKind = iota
	RouteElementProcedure
	RouteElementHoldFix
	RouteElementPresentPositionHold
)

// RouteElement is one segment of a parsed route string. Identifiers are
// canonically lowercase; they are classified syntactically here and only
// resolved against the procedure directory by the Fms.
type RouteElement struct {
	Kind RouteElementKind

	// Fix is set for RouteElementFix and RouteElementHoldFix.
	Fix string

	// Entry, Procedure, Exit are set for RouteElementProcedure.
	Entry     string
	Procedure string
	Exit      string
}

// RouteString returns the canonical textual form of the element.
func (e RouteElement) RouteString() string {
	switch e.Kind {
	case RouteElementProcedure:
		return e.Entry + "." + e.Procedure + "." + e.Exit
	case RouteElementHoldFix:
		return "@" + e.Fix
	case RouteElementPresentPositionHold:
		return PresentPositionFix
	default:
		return e.Fix
	}
}

// JoinRouteString reassembles elements into a full route string; elements
// are independent segments and so are joined by "..".
func JoinRouteString(elems []RouteElement) string {
	return strings.Join(util.MapSlice(elems, RouteElement.RouteString), "..")
}

// ParseRouteString parses a route string into its segments. It fails with
// ErrInvalidRouteString for anything syntactically malformed: empty
// segments (which triple dots and leading/trailing dots reduce to), or a
// dot-joined segment that isn't the three-token procedure shape.
func ParseRouteString(s string) ([]RouteElement, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return nil, ErrInvalidRouteString
	}

	var elems []RouteElement
	for _, seg := range strings.Split(s, "..") {
		if seg == "" {
			return nil, ErrInvalidRouteString
		}

		if strings.Contains(seg, ".") {
			tokens := strings.Split(seg, ".")
			if len(tokens) != 3 {
				// Two tokens is ambiguous, four or more is overlong.
				return nil, ErrInvalidRouteString
			}
			for _, t := range tokens {
				if t == "" || strings.Contains(t, "@") {
					return nil, ErrInvalidRouteString
				}
			}
			elems = append(elems, RouteElement{
				Kind:      RouteElementProcedure,
				Entry:     tokens[0],
				Procedure: tokens[1],
				Exit:      tokens[2],
			})
		} else if seg == PresentPositionFix {
			elems = append(elems, RouteElement{Kind: RouteElementPresentPositionHold})
		} else if fix, ok := strings.CutPrefix(seg, "@"); ok {
			if fix == "" || strings.Contains(fix, "@") {
				return nil, ErrInvalidRouteString
			}
			elems = append(elems, RouteElement{Kind: RouteElementHoldFix, Fix: fix})
		} else {
			if strings.Contains(seg, "@") {
				return nil, ErrInvalidRouteString
			}
			elems = append(elems, RouteElement{Kind: RouteElementFix, Fix: seg})
		}
	}

	return elems, nil
}
