package conf

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInterval(t *testing.T) {
	iv, err := ParseInterval("1 month")
	require.NoError(t, err)
	assert.Equal(t, Interval{N: 1, Unit: Months}, iv)

	iv, err = ParseInterval("10 Days")
	require.NoError(t, err)
	assert.Equal(t, Interval{N: 10, Unit: Days}, iv)

	iv, err = ParseInterval("")
	require.NoError(t, err)
	assert.True(t, iv.IsWhole())

	for _, bad := range []string{"month", "0 days", "-1 days", "x days", "3 fortnights"} {
		_, err := ParseInterval(bad)
		assert.True(t, IsConfigError(err), bad)
	}
}

func TestIntervalAddTo(t *testing.T) {
	jan31 := time.Date(2008, 1, 31, 0, 0, 0, 0, time.UTC)
	month := Interval{N: 1, Unit: Months}
	assert.Equal(t, "2008022900", FormatDate(month.AddTo(jan31, 1)))
	assert.Equal(t, "2008033100", FormatDate(month.AddTo(jan31, 2)))
	assert.Equal(t, "2008043000", FormatDate(month.AddTo(jan31, 3)))
	assert.Equal(t, "2009013100", FormatDate(Interval{N: 1, Unit: Years}.AddTo(jan31, 1)))

	feb29 := time.Date(2008, 2, 29, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "2009022812", FormatDate(Interval{N: 1, Unit: Years}.AddTo(feb29, 1)))
	assert.Equal(t, "2012022912", FormatDate(Interval{N: 4, Unit: Years}.AddTo(feb29, 1)))

	jan1 := time.Date(2008, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2008040100", FormatDate(month.AddTo(jan1, 3)))
	assert.Equal(t, "2008011100", FormatDate(Interval{N: 5, Unit: Days}.AddTo(jan1, 2)))
	assert.Equal(t, "2008010112", FormatDate(Interval{N: 6, Unit: Hours}.AddTo(jan1, 2)))
	assert.Equal(t, "1 months", month.String())
}

func TestParseModelType(t *testing.T) {
	typ, err := ParseModelType("mom4p1_falsecoupled")
	require.NoError(t, err)
	assert.Equal(t, Ocean, typ)
	assert.False(t, typ.HasAtmos())

	_, err = ParseModelType("wrf")
	assert.True(t, errors.Is(err, ErrUnknownModelType))
}
