// aviation/directory.go
// Copyright(c) 2024-2026 openscope contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/javs/openscope/log"
	"github.com/javs/openscope/math"
	"github.com/javs/openscope/util"

	lru "github.com/hashicorp/golang-lru/v2"
	"gopkg.in/yaml.v3"
)

// Locator is a simple interface to abstract looking up the location of a
// named thing (e.g. a fix), so that the route code doesn't need to know
// where navigation data comes from.
type Locator interface {
	Locate(name string) (math.Point2LL, bool)
}

// ProcedureDirectory is the read-only navigation data service the Fms
// resolves identifiers through; it is injected at construction and never
// mutated by the route code.
type ProcedureDirectory interface {
	Locator

	// Procedure returns the published procedure with the given
	// identifier, if there is one.
	Procedure(id string) (*Procedure, bool)

	// ExpandProcedure returns the ordered fixes flown for the procedure
	// between the given entry and exit, including the runway transition
	// if one applies. The returned slice may be shared; callers must not
	// mutate it.
	ExpandProcedure(id, entry, exit, runway string) (WaypointArray, error)
}

///////////////////////////////////////////////////////////////////////////
// Runways and airports

// Runway is externally owned; the Fms only stores references and compares
// names.
type Runway struct {
	Name      string        `yaml:"name"`
	Heading   float32       `yaml:"heading"`
	Threshold math.Point2LL `yaml:"-"`
}

type Airport struct {
	Icao     string
	Location math.Point2LL
	Runways  []Runway
}

func (ap *Airport) Runway(name string) (*Runway, bool) {
	name = strings.ToLower(name)
	for i := range ap.Runways {
		if ap.Runways[i].Name == name {
			return &ap.Runways[i], true
		}
	}
	return nil, false
}

///////////////////////////////////////////////////////////////////////////
// Procedure

type ProcedureCategory int

const (
	DepartureProcedure ProcedureCategory = iota // SID
	ArrivalProcedure                            // STAR

	// AnyProcedureCategory is only meaningful in queries, when the caller
	// wants the category inferred from directory metadata.
	AnyProcedureCategory
)

func (c ProcedureCategory) String() string {
	return []string{"departure", "arrival"}[int(c)]
}

func (c *ProcedureCategory) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	switch strings.ToLower(s) {
	case "departure", "sid":
		*c = DepartureProcedure
	case "arrival", "star":
		*c = ArrivalProcedure
	default:
		return fmt.Errorf("%s: unknown procedure category", s)
	}
	return nil
}

// Procedure is a published departure or arrival: a body of fixes plus
// entry and exit transitions. For a departure the entries are keyed by
// runway and the route-string entry token is the airport; for an arrival
// the entries are the en-route transitions and the exits are keyed by
// runway.
type Procedure struct {
	Id       string
	Name     string
	Category ProcedureCategory
	Airport  string
	IsRNAV   bool
	Runways  []string // valid transition runways

	Entries map[string]WaypointArray
	Body    WaypointArray
	Exits   map[string]WaypointArray
}

// ValidTransitionRunway reports whether the named runway is one of the
// procedure's valid transition runways.
func (p *Procedure) ValidTransitionRunway(runway string) bool {
	return slices.Contains(p.Runways, strings.ToLower(runway))
}

// HasTransition reports whether the given route-string entry and exit
// tokens name a published way into and out of the procedure.
func (p *Procedure) HasTransition(entry, exit string) bool {
	if p.Category == DepartureProcedure {
		_, ok := p.Exits[exit]
		return entry == p.Airport && ok
	} else {
		_, ok := p.Entries[entry]
		return exit == p.Airport && ok
	}
}

func (p *Procedure) expand(entry, exit, runway string) (WaypointArray, error) {
	if !p.HasTransition(entry, exit) {
		return nil, ErrUnknownTransition
	}

	var wps WaypointArray
	if p.Category == DepartureProcedure {
		// Runway-specific initial fixes, then the body, then the exit
		// transition.
		wps = append(wps, p.Entries[runway]...)
		wps = append(wps, p.Body...)
		wps = append(wps, p.Exits[exit]...)
	} else {
		// Entry transition, then the body, then the runway fixes if the
		// arrival runway is known.
		wps = append(wps, p.Entries[entry]...)
		wps = append(wps, p.Body...)
		wps = append(wps, p.Exits[runway]...)
	}

	if len(wps) == 0 {
		return nil, ErrUnknownTransition
	}
	return wps, nil
}

///////////////////////////////////////////////////////////////////////////
// FileDirectory

// FileDirectory is a ProcedureDirectory loaded from a YAML navigation
// data file. Procedure expansions are cached since the same
// procedure/transition combinations recur across aircraft.
type FileDirectory struct {
	Fixes      map[string]math.Point2LL
	Airports   map[string]*Airport
	Procedures map[string]*Procedure

	expansions *lru.Cache[string, WaypointArray]
	lg         *log.Logger
}

// The YAML-facing structure; fix lists are compact annotated strings
// handled by ParseWaypoints.
type fileDirectorySpec struct {
	Fixes    map[string][2]float32 `yaml:"fixes"` // latitude, longitude
	Airports map[string]struct {
		Location [2]float32 `yaml:"location"`
		Runways  []Runway   `yaml:"runways"`
	} `yaml:"airports"`
	Procedures []struct {
		Id       string            `yaml:"id"`
		Name     string            `yaml:"name"`
		Category ProcedureCategory `yaml:"category"`
		Airport  string            `yaml:"airport"`
		Rnav     bool              `yaml:"rnav"`
		Runways  []string          `yaml:"runways"`
		Entries  map[string]string `yaml:"entries"`
		Body     string            `yaml:"body"`
		Exits    map[string]string `yaml:"exits"`
	} `yaml:"procedures"`
}

func LoadFileDirectory(path string, lg *log.Logger) (*FileDirectory, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return MakeFileDirectory(b, lg)
}

func MakeFileDirectory(contents []byte, lg *log.Logger) (*FileDirectory, error) {
	var spec fileDirectorySpec
	if err := yaml.Unmarshal(contents, &spec); err != nil {
		return nil, err
	}

	d := &FileDirectory{
		Fixes:      make(map[string]math.Point2LL),
		Airports:   make(map[string]*Airport),
		Procedures: make(map[string]*Procedure),
		lg:         lg,
	}
	d.expansions, _ = lru.New[string, WaypointArray](64)

	var e util.ErrorLogger
	for name, ll := range spec.Fixes {
		d.Fixes[strings.ToLower(name)] = math.Point2LL{ll[1], ll[0]}
	}
	for icao, aspec := range spec.Airports {
		e.Push(icao)
		ap := &Airport{
			Icao:     strings.ToLower(icao),
			Location: math.Point2LL{aspec.Location[1], aspec.Location[0]},
		}
		for _, rwy := range aspec.Runways {
			rwy.Name = strings.ToLower(rwy.Name)
			if rwy.Threshold.IsZero() {
				rwy.Threshold = ap.Location
			}
			ap.Runways = append(ap.Runways, rwy)
		}
		d.Airports[ap.Icao] = ap
		e.Pop()
	}

	parse := func(s string, e *util.ErrorLogger) WaypointArray {
		wps, err := ParseWaypoints(s)
		if err != nil {
			e.Error(err)
			return nil
		}
		return wps.InitializeLocations(d, e)
	}

	for _, pspec := range spec.Procedures {
		e.Push(pspec.Id)
		p := &Procedure{
			Id:       strings.ToLower(pspec.Id),
			Name:     pspec.Name,
			Category: pspec.Category,
			Airport:  strings.ToLower(pspec.Airport),
			IsRNAV:   pspec.Rnav,
			Entries:  make(map[string]WaypointArray),
			Exits:    make(map[string]WaypointArray),
		}
		for _, rwy := range pspec.Runways {
			p.Runways = append(p.Runways, strings.ToLower(rwy))
		}

		if _, ok := d.Airports[p.Airport]; !ok {
			e.ErrorString("airport %q is unknown", pspec.Airport)
		}

		for _, name := range util.SortedMapKeys(pspec.Entries) {
			e.Push("entry " + name)
			p.Entries[strings.ToLower(name)] = parse(pspec.Entries[name], &e)
			e.Pop()
		}
		p.Body = parse(pspec.Body, &e)
		for _, name := range util.SortedMapKeys(pspec.Exits) {
			e.Push("exit " + name)
			p.Exits[strings.ToLower(name)] = parse(pspec.Exits[name], &e)
			e.Pop()
		}

		if _, ok := d.Procedures[p.Id]; ok {
			e.ErrorString("duplicate procedure id")
		}
		d.Procedures[p.Id] = p
		e.Pop()
	}

	if e.HaveErrors() {
		e.PrintErrors(lg)
		return nil, fmt.Errorf("invalid navigation data:\n%s", e.String())
	}

	lg.Info("loaded procedure directory",
		"fixes", len(d.Fixes), "airports", len(d.Airports), "procedures", len(d.Procedures))

	return d, nil
}

func (d *FileDirectory) Locate(name string) (math.Point2LL, bool) {
	name = strings.ToLower(name)
	if p, ok := d.Fixes[name]; ok {
		return p, true
	}
	if ap, ok := d.Airports[name]; ok {
		return ap.Location, true
	}
	return math.Point2LL{}, false
}

func (d *FileDirectory) Procedure(id string) (*Procedure, bool) {
	p, ok := d.Procedures[strings.ToLower(id)]
	return p, ok
}

func (d *FileDirectory) ExpandProcedure(id, entry, exit, runway string) (WaypointArray, error) {
	p, ok := d.Procedure(id)
	if !ok {
		return nil, ErrUnknownProcedure
	}

	key := strings.ToLower(strings.Join([]string{id, entry, exit, runway}, "|"))
	if wps, ok := d.expansions.Get(key); ok {
		return wps, nil
	}

	wps, err := p.expand(strings.ToLower(entry), strings.ToLower(exit), strings.ToLower(runway))
	if err != nil {
		return nil, err
	}
	d.expansions.Add(key, wps)
	return wps, nil
}
