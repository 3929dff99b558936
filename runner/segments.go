package runner

import (
	"time"

	"github.com/luizirber/bosun/conf"
	"github.com/parro-it/fileargs"
)

// Range returns begin and the values obtained stepping from it,
// step(begin, 1), step(begin, 2) and so on, while they are less
// than end. Steps are counted from begin, so a step function
// that does not accumulate error never drifts. It stops at the
// first step that does not advance.
func Range[T any](begin, end T, step func(from T, n int) T, less func(a, b T) bool) []T {
	var res []T
	prev := begin
	for n, v := 0, begin; less(v, end); n, v = n+1, step(begin, n+1) {
		if n > 0 && !less(prev, v) {
			break
		}
		res = append(res, v)
		prev = v
	}
	return res
}

func beforeTime(a, b time.Time) bool {
	return a.Before(b)
}

// Segments splits [begin, end) in periods no longer than iv. Every
// period starts where the previous one ends, and the last one ends
// at end. A whole interval gives a single period.
func Segments(begin, end time.Time, iv conf.Interval) []*fileargs.Period {
	if !begin.Before(end) {
		return nil
	}
	if iv.IsWhole() {
		return []*fileargs.Period{{Start: begin, Duration: end.Sub(begin)}}
	}

	starts := Range(begin, end, iv.AddTo, beforeTime)
	periods := make([]*fileargs.Period, len(starts))
	for i, start := range starts {
		finish := end
		if i+1 < len(starts) {
			finish = starts[i+1]
		}
		periods[i] = &fileargs.Period{Start: start, Duration: finish.Sub(start)}
	}
	return periods
}

// segmentLength stores the length of the segment from period to
// finish in `months`, when both are on the same day of the month,
// or in `days`, and removes the other key.
func segmentLength(exp conf.Experiment, period, finish time.Time) {
	if period.Day() == finish.Day() {
		months := 12*(finish.Year()-period.Year()) + int(finish.Month()) - int(period.Month())
		exp.Set("months", months)
		exp.Delete("days")
		return
	}
	exp.Set("days", int(finish.Sub(period).Hours()/24))
	exp.Delete("months")
}
