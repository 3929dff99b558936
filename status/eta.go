// Package status follows the jobs of a running segment and
// estimates when the model will complete.
package status

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CalcETA estimates the remaining wall time, as hours and minutes,
// of a job that ran for h hours and m minutes to complete fraction
// of its work. A zero fraction is taken as 1.
func CalcETA(h, m float64, fraction float64) (int, int) {
	if fraction == 0 {
		fraction = 1
	}
	elapsed := h*60 + m
	remain := int(elapsed/fraction - elapsed)
	if remain < 0 {
		remain = 0
	}
	return remain / 60, remain % 60
}

// Fraction returns the fraction of the simulated window
// [begin, finish + 1 day) covered when the model reached current,
// clamped to [0, 1].
func Fraction(current, begin, finish time.Time) float64 {
	end := finish.AddDate(0, 0, 1)
	total := end.Sub(begin)
	if total <= 0 {
		return 0
	}
	fraction := float64(current.Sub(begin)) / float64(total)
	if fraction < 0 {
		return 0
	}
	if fraction > 1 {
		return 1
	}
	return fraction
}

// ParseElapsed parses the HH:MM elapsed time printed by qstat.
func ParseElapsed(s string) (float64, float64, error) {
	hs, ms, found := strings.Cut(s, ":")
	if !found {
		return 0, 0, fmt.Errorf("malformed elapsed time `%s`", s)
	}
	h, err := strconv.ParseFloat(hs, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed elapsed time `%s`: %w", s, err)
	}
	m, err := strconv.ParseFloat(ms, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed elapsed time `%s`: %w", s, err)
	}
	return h, m, nil
}

// FormatETA formats the progress line of a running model.
func FormatETA(elapsed string, fraction float64, remh, remm int) string {
	return fmt.Sprintf("Model running time: %s, %.2f %% completed, Estimated %02d:%02d",
		elapsed, 100*fraction, remh, remm)
}
