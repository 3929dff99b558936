package runner

import (
	"testing"
	"time"

	"github.com/luizirber/bosun/conf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) time.Time {
	t, err := conf.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func lessInt(a, b int) bool { return a < b }

func TestRange(t *testing.T) {
	byThree := func(from, n int) int { return from + 3*n }
	assert.Equal(t, []int{0, 3, 6, 9}, Range(0, 10, byThree, lessInt))
	assert.Equal(t, []int{0, 3, 6}, Range(0, 9, byThree, lessInt))
	assert.Empty(t, Range(10, 10, byThree, lessInt))

	stuck := func(from, n int) int { return from }
	assert.Equal(t, []int{1}, Range(1, 5, stuck, lessInt))
}

func TestSegmentsWholeRange(t *testing.T) {
	segs := Segments(date("2008010100"), date("2008020100"), conf.Interval{})
	require.Len(t, segs, 1)
	assert.Equal(t, date("2008010100"), segs[0].Start)
	assert.Equal(t, 31*24*time.Hour, segs[0].Duration)
}

func TestSegmentsTiling(t *testing.T) {
	begin, end := date("2008010100"), date("2008020100")
	iv, err := conf.ParseInterval("10 days")
	require.NoError(t, err)

	segs := Segments(begin, end, iv)
	require.Len(t, segs, 4)

	var days []int
	next := begin
	for _, seg := range segs {
		assert.Equal(t, next, seg.Start)
		assert.LessOrEqual(t, seg.Duration, 10*24*time.Hour)
		days = append(days, int(seg.Duration.Hours()/24))
		next = seg.Start.Add(seg.Duration)
	}
	assert.Equal(t, []int{10, 10, 10, 1}, days)
	assert.Equal(t, end, next)
}

func TestSegmentsMonths(t *testing.T) {
	iv, err := conf.ParseInterval("1 month")
	require.NoError(t, err)

	segs := Segments(date("2008010100"), date("2008040100"), iv)
	require.Len(t, segs, 3)
	assert.Equal(t, date("2008020100"), segs[1].Start)
	assert.Equal(t, date("2008030100"), segs[2].Start)
	assert.Equal(t, 31*24*time.Hour, segs[2].Duration)
}

func TestSegmentsMonthEnd(t *testing.T) {
	iv, err := conf.ParseInterval("1 month")
	require.NoError(t, err)

	segs := Segments(date("2008013100"), date("2008053100"), iv)
	var starts []string
	for _, seg := range segs {
		starts = append(starts, conf.FormatDate(seg.Start))
		assert.LessOrEqual(t, seg.Duration, 31*24*time.Hour)
	}
	assert.Equal(t, []string{"2008013100", "2008022900", "2008033100", "2008043000"}, starts)

	last := segs[len(segs)-1]
	assert.Equal(t, date("2008053100"), last.Start.Add(last.Duration))
}

func TestSegmentsEmpty(t *testing.T) {
	assert.Empty(t, Segments(date("2008020100"), date("2008010100"), conf.Interval{}))
	assert.Empty(t, Segments(date("2008010100"), date("2008010100"), conf.Interval{N: 1, Unit: conf.Days}))
}

func TestSegmentLength(t *testing.T) {
	exp := conf.Experiment{"days": 3}
	segmentLength(exp, date("2008010100"), date("2008030100"))
	assert.Equal(t, 2, exp["months"])
	assert.False(t, exp.Has("days"))

	segmentLength(exp, date("2008010100"), date("2008011100"))
	assert.Equal(t, 10, exp["days"])
	assert.False(t, exp.Has("months"))

	segmentLength(exp, date("2007120100"), date("2008020100"))
	assert.Equal(t, 2, exp["months"])
}
