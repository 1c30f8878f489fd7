package countdown

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatNonPositive(t *testing.T) {
	for _, d := range []time.Duration{0, -time.Millisecond, -time.Hour, time.Duration(-1 << 62)} {
		assert.Equal(t, "00:00", Format(d), "duration %v", d)
	}
}

func TestFormatKnownValues(t *testing.T) {
	cases := []struct {
		ms   int64
		want string
	}{
		{1, "00:00"},
		{999, "00:00"},
		{1000, "00:01"},
		{59_999, "00:59"},
		{60_000, "01:00"},
		{61_500, "01:01"},
		{600_000, "10:00"},
		{5_999_999, "99:59"},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprint(tc.ms), func(t *testing.T) {
			assert.Equal(t, tc.want, FormatMillis(tc.ms))
		})
	}
}

func TestFormatMillisBeyondDurationRange(t *testing.T) {
	assert.Equal(t, "166666666:40", FormatMillis(10_000_000_000_000))
	assert.Equal(t, "153722867280912:55", FormatMillis(math.MaxInt64))
	assert.Equal(t, "00:00", FormatMillis(math.MinInt64))
}

func TestFormatRoundTripsWholeSeconds(t *testing.T) {
	pattern := regexp.MustCompile(`^(\d{2}):(\d{2})$`)

	for ms := int64(1); ms < 6_000_000; ms += 7_919 {
		got := FormatMillis(ms)
		parts := pattern.FindStringSubmatch(got)
		require.NotNil(t, parts, "format %q for %dms", got, ms)

		minutes, _ := strconv.Atoi(parts[1])
		seconds, _ := strconv.Atoi(parts[2])
		assert.Less(t, seconds, 60)
		assert.Equal(t, ms/1000, int64(minutes*60+seconds), "decode %q", got)
	}
}
