package conf

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the layout of every date stored in an experiment:
// YYYYMMDDHH.
const DateLayout = "2006010215"

// ModelType selects the model variant an experiment runs.
type ModelType string

const (
	// Atmos - atmospheric GCM alone
	Atmos ModelType = "atmos"
	// Ocean - ocean model forced by prescribed fluxes
	Ocean ModelType = "mom4p1_falsecoupled"
	// Coupled - ocean and atmosphere coupled
	Coupled ModelType = "coupled"
)

// ParseModelType ...
func ParseModelType(s string) (ModelType, error) {
	switch t := ModelType(s); t {
	case Atmos, Ocean, Coupled:
		return t, nil
	}
	return "", fmt.Errorf("%w: `%s`", ErrUnknownModelType, s)
}

// HasAtmos reports whether the atmospheric component takes part in the run.
func (t ModelType) HasAtmos() bool {
	return t == Atmos || t == Coupled
}

// HasOcean reports whether the ocean component takes part in the run.
func (t ModelType) HasOcean() bool {
	return t == Ocean || t == Coupled
}

// RunMode tells whether a segment starts from initial conditions
// or continues from a restart.
type RunMode string

const (
	// Cold start from the model built-in initial conditions
	Cold RunMode = "cold"
	// Warm restart from previously saved state
	Warm RunMode = "warm"
)

// Unit of a restart interval.
type Unit int

const (
	// Whole - a single segment covering the whole range
	Whole Unit = iota
	Hours
	Days
	Weeks
	Months
	Years
)

var unitNames = map[string]Unit{
	"hours":  Hours,
	"days":   Days,
	"weeks":  Weeks,
	"months": Months,
	"years":  Years,
}

// Interval is a calendar duration such as "10 days" or "1 month".
// The zero value means "no interval".
type Interval struct {
	N    int
	Unit Unit
}

// ParseInterval parses strings in the form "<integer> <unit>". Units
// can be singular or plural. An empty string gives the zero Interval.
func ParseInterval(s string) (Interval, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Interval{}, nil
	}

	fields := strings.Fields(s)
	if len(fields) != 2 {
		return Interval{}, NewConfigError("restart_interval", fmt.Sprintf("malformed interval `%s`", s), nil)
	}

	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return Interval{}, NewConfigError("restart_interval", fmt.Sprintf("malformed interval `%s`", s), err)
	}
	if n <= 0 {
		return Interval{}, NewConfigError("restart_interval", fmt.Sprintf("interval must be positive, got %d", n), nil)
	}

	units := strings.ToLower(fields[1])
	if !strings.HasSuffix(units, "s") {
		units += "s"
	}
	unit, ok := unitNames[units]
	if !ok {
		return Interval{}, NewConfigError("restart_interval", fmt.Sprintf("unknown unit `%s`", fields[1]), nil)
	}

	return Interval{N: n, Unit: unit}, nil
}

// IsWhole reports whether the interval spans the whole range.
func (iv Interval) IsWhole() bool {
	return iv.Unit == Whole || iv.N == 0
}

// AddTo returns t advanced by times intervals. Steps are always
// computed from t, so month arithmetic does not drift. Month and
// year steps landing past the end of a month stop at its last day.
func (iv Interval) AddTo(t time.Time, times int) time.Time {
	n := iv.N * times
	switch iv.Unit {
	case Hours:
		return t.Add(time.Duration(n) * time.Hour)
	case Days:
		return t.AddDate(0, 0, n)
	case Weeks:
		return t.AddDate(0, 0, 7*n)
	case Months:
		return addMonths(t, n)
	case Years:
		return addMonths(t, 12*n)
	}
	return t
}

func addMonths(t time.Time, n int) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location()).AddDate(0, n, 0)
	day := t.Day()
	if last := daysIn(first.Year(), first.Month()); day > last {
		day = last
	}
	return first.AddDate(0, 0, day-1)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func (iv Interval) String() string {
	if iv.IsWhole() {
		return "whole range"
	}
	for name, u := range unitNames {
		if u == iv.Unit {
			return fmt.Sprintf("%d %s", iv.N, name)
		}
	}
	return fmt.Sprintf("%d ?", iv.N)
}

// ParseDate parses a YYYYMMDDHH date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// FormatDate formats t as YYYYMMDDHH.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
