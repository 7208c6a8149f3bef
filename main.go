// main.go
// Copyright(c) 2024-2026 openscope contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	av "github.com/javs/openscope/aviation"
	"github.com/javs/openscope/log"
	"github.com/javs/openscope/sim"
)

var (
	navFile  = flag.String("nav", "nav.yaml", "navigation data file")
	route    = flag.String("route", "", "initial route string")
	category = flag.String("category", "arrival", "aircraft category: departure or arrival")
	airport  = flag.String("airport", "", "airport for the runway assignment")
	runway   = flag.String("runway", "", "assigned runway")
	logLevel = flag.String("loglevel", "info", "logging level: debug, info, warn, error")
	logDir   = flag.String("logdir", "", "log directory (default: user config dir)")
)

func main() {
	flag.Parse()

	lg := log.New(*logLevel, *logDir)

	dir, err := av.LoadFileDirectory(*navFile, lg)
	if err != nil {
		lg.Errorf("%s: %v", *navFile, err)
		fmt.Fprintf(os.Stderr, "%s: %v\n", *navFile, err)
		os.Exit(1)
	}

	ap, ok := dir.Airports[strings.ToLower(*airport)]
	if !ok {
		fmt.Fprintf(os.Stderr, "%s: unknown airport\n", *airport)
		os.Exit(1)
	}
	rwy, ok := ap.Runway(*runway)
	if !ok {
		fmt.Fprintf(os.Stderr, "%s: unknown runway at %s\n", *runway, ap.Icao)
		os.Exit(1)
	}

	ac := av.AircraftCapabilities{RNAV: true}
	runways := av.RunwayAssignment{}
	if *category == "departure" {
		ac.Category = av.FlightCategoryDeparture
		runways.Departure = rwy
	} else {
		ac.Category = av.FlightCategoryArrival
		runways.Arrival = rwy
	}

	fms, err := av.MakeFms(*route, runways, ac, dir, lg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", *route, err)
		os.Exit(1)
	}

	repl(fms, rwy, lg)
}

// repl reads one structured command per line and applies it to the Fms.
// This is a driver for exercising the engine; it is not a controller
// phraseology parser.
func repl(fms *av.Fms, rwy *av.Runway, lg *log.Logger) {
	fmt.Printf("route: %s\n", fms.FlightPlanRoute())

	sc := bufio.NewScanner(os.Stdin)
	for fmt.Print("> "); sc.Scan(); fmt.Print("> ") {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}

		var err error
		switch fields[0] {
		case "route":
			if len(fields) == 2 {
				err = sim.Dispatch(fms, sim.Command{Kind: sim.CommandNewRoute, Route: fields[1]})
			} else {
				err = fmt.Errorf("usage: route <route-string>")
			}

		case "amend":
			if len(fields) == 2 {
				err = sim.Dispatch(fms, sim.Command{Kind: sim.CommandAmendRoute, Route: fields[1]})
			} else {
				err = fmt.Errorf("usage: amend <route-string>")
			}

		case "direct":
			if len(fields) == 2 {
				err = sim.Dispatch(fms, sim.Command{Kind: sim.CommandDirect, Fix: fields[1]})
			} else {
				err = fmt.Errorf("usage: direct <fix>")
			}

		case "hold":
			cmd := sim.Command{Kind: sim.CommandHold, Turn: av.TurnRight}
			switch len(fields) {
			case 4:
				cmd.LegLength = fields[3]
				fallthrough
			case 3:
				cmd.Turn, err = av.ParseTurnDirection(fields[2])
				fallthrough
			case 2:
				cmd.Fix = fields[1]
			default:
				err = fmt.Errorf("usage: hold <fix> [left|right] [leg length]")
			}
			if err == nil {
				err = sim.Dispatch(fms, cmd)
			}

		case "exithold":
			err = sim.Dispatch(fms, sim.Command{Kind: sim.CommandExitHold})

		case "sid":
			if len(fields) == 2 {
				err = sim.Dispatch(fms, sim.Command{Kind: sim.CommandDepartureProcedure,
					Route: fields[1], Runway: rwy})
			} else {
				err = fmt.Errorf("usage: sid <entry.procedure.exit>")
			}

		case "star":
			if len(fields) == 2 {
				err = sim.Dispatch(fms, sim.Command{Kind: sim.CommandArrivalProcedure,
					Route: fields[1], Runway: rwy})
			} else {
				err = fmt.Errorf("usage: star <entry.procedure.exit>")
			}

		case "next":
			fms.NextWaypoint()

		case "state":
			fmt.Printf("route: %s\n", fms.FlightPlanRoute())
			fmt.Printf("flown: %s\n", strings.Join(fms.PreviousRouteSegments(), " "))
			if wp := fms.CurrentWaypoint(); wp != nil {
				fmt.Printf("current: %s %s\n", wp.Fix, wp.Location.DDString())
			}
			if top, ok := fms.TopAltitude(); ok {
				fmt.Printf("top altitude: %.0f\n", top)
			}
			if bottom, ok := fms.BottomAltitude(); ok {
				fmt.Printf("bottom altitude: %.0f\n", bottom)
			}
			fmt.Printf("phase: %s\n", fms.FlightPhase())

		case "quit", "exit":
			return

		default:
			err = fmt.Errorf("%s: unknown command", fields[0])
		}

		if err != nil {
			fmt.Printf("error: %v\n", err)
			lg.Warnf("%s: %v", sc.Text(), err)
		}
	}
}
