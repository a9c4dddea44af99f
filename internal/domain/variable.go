// Package domain holds the types shared across every layer of the
// ingestion pipeline: the closed canonical-variable and model-name sum
// types, the run/metric/snapshot rows, and the sentinel error taxonomy.
package domain

import "fmt"

// Variable is one of the four canonical meteorological variables the
// pipeline tracks. The set is closed; adding a fifth requires a code
// change here, not a config change.
type Variable string

const (
	Precip    Variable = "precip"
	WindSpeed Variable = "wind_speed"
	MSLP      Variable = "mslp"
	Hgt500    Variable = "hgt_500"
)

// Variables lists the canonical set in the fixed order the orchestrator
// processes them: insertion order for a given (run, lead_hour) must be
// deterministic across invocations.
var Variables = []Variable{Precip, WindSpeed, MSLP, Hgt500}

// Unit returns the fixed physical unit for v.
func (v Variable) Unit() string {
	switch v {
	case Precip:
		return "mm"
	case WindSpeed:
		return "m/s"
	case MSLP:
		return "Pa"
	case Hgt500:
		return "m"
	default:
		return ""
	}
}

func (v Variable) Valid() bool {
	switch v {
	case Precip, WindSpeed, MSLP, Hgt500:
		return true
	default:
		return false
	}
}

func (v Variable) String() string { return string(v) }

// ParseVariable rejects anything outside the closed set.
func ParseVariable(s string) (Variable, error) {
	v := Variable(s)
	if !v.Valid() {
		return "", fmt.Errorf("domain: unknown variable %q", s)
	}
	return v, nil
}

// ModelName is one of the four NWP providers the pipeline fetches from.
type ModelName string

const (
	GFS      ModelName = "GFS"
	NAM      ModelName = "NAM"
	ECMWFIFS ModelName = "ECMWF_IFS"
	HRRR     ModelName = "HRRR"
)

var ModelNames = []ModelName{GFS, NAM, ECMWFIFS, HRRR}

func (m ModelName) Valid() bool {
	switch m {
	case GFS, NAM, ECMWFIFS, HRRR:
		return true
	default:
		return false
	}
}

func (m ModelName) String() string { return string(m) }

func ParseModelName(s string) (ModelName, error) {
	m := ModelName(s)
	if !m.Valid() {
		return "", fmt.Errorf("domain: unknown model name %q", s)
	}
	return m, nil
}

// maxLeadHour is each model's documented forecast horizon, in hours.
// GFS and ECMWF IFS publish out to 120h, NAM to 72h, HRRR to 48h; all
// four step every 6 hours.
var maxLeadHour = map[ModelName]int{
	GFS:      120,
	NAM:      72,
	ECMWFIFS: 120,
	HRRR:     48,
}

// LeadHours returns m's full published forecast horizon in 6-hour
// steps, e.g. HRRR's {0, 6, ..., 48}. Unknown models get the empty set.
func (m ModelName) LeadHours() []int {
	max, ok := maxLeadHour[m]
	if !ok {
		return nil
	}
	hours := make([]int, 0, max/6+1)
	for h := 0; h <= max; h += 6 {
		hours = append(hours, h)
	}
	return hours
}
