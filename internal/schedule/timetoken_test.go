package schedule

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnit_ParseTimes(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		want     []TimeToken
		warnings int
	}{
		{
			name: "single time",
			text: "7:30",
			want: []TimeToken{{Hour: 19, Minute: 30}},
		},
		{
			name: "several times",
			text: "5:30, 7:30 & 9:40",
			want: []TimeToken{{Hour: 17, Minute: 30}, {Hour: 19, Minute: 30}, {Hour: 21, Minute: 40}},
		},
		{
			name: "sunday matinee",
			text: "7:30 (plus 3:55 Sunday)",
			want: []TimeToken{{Hour: 19, Minute: 30}, {Hour: 15, Minute: 55, Restriction: Sunday}},
		},
		{
			name: "weekend matinee",
			text: "7:30 (also 2:00 Sat & Sun)",
			want: []TimeToken{{Hour: 19, Minute: 30}, {Hour: 14, Minute: 0, Restriction: Saturday | Sunday}},
		},
		{
			name: "extra time before primary",
			text: "(Saturday 1:15) 7:00",
			want: []TimeToken{{Hour: 19, Minute: 0}, {Hour: 13, Minute: 15, Restriction: Saturday}},
		},
		{
			name:     "unparseable parenthetical",
			text:     "7:30 (ticket office closes at 9)",
			want:     []TimeToken{{Hour: 19, Minute: 30}},
			warnings: 1,
		},
		{
			name:     "extra time without weekday runs every day",
			text:     "7:30 (and 9:45)",
			want:     []TimeToken{{Hour: 19, Minute: 30}, {Hour: 21, Minute: 45}},
			warnings: 1,
		},
		{
			name: "ticket sale notice is not a showtime",
			text: "7:30 Tickets go on sale at 6:00",
			want: []TimeToken{{Hour: 19, Minute: 30}},
		},
		{
			name:     "impossible times are dropped",
			text:     "0:30 7:75 24:00 8:15",
			want:     []TimeToken{{Hour: 20, Minute: 15}},
			warnings: 3,
		},
		{
			name: "no times",
			text: "Closed for the holiday",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, warnings := ParseTimes(tt.text)
			assert.Equal(t, tt.want, got)
			require.Len(t, warnings, tt.warnings)
			for _, w := range warnings {
				assert.Equal(t, WarningParse, w.Kind)
				assert.True(t, w.Date.IsZero())
			}
		})
	}
}

func TestUnit_ParseTimes_PMConvention(t *testing.T) {
	for h := 1; h <= 11; h++ {
		got, _ := ParseTimes(fmt.Sprintf("%d:05", h))
		require.Len(t, got, 1)
		assert.Equal(t, h+12, got[0].Hour, "literal %d", h)
	}

	got, _ := ParseTimes("12:45")
	require.Len(t, got, 1)
	assert.Equal(t, 12, got[0].Hour, "noon stays noon")

	got, _ = ParseTimes("13:45")
	require.Len(t, got, 1)
	assert.Equal(t, 13, got[0].Hour)
}

func TestUnit_WeekdaySet(t *testing.T) {
	assert.True(t, (Saturday | Sunday).Has(Sunday))
	assert.False(t, Saturday.Has(Sunday))
	assert.True(t, WeekdaySet(0).Valid())
	assert.True(t, (Saturday | Sunday).Valid())
	assert.False(t, WeekdaySet(1<<5).Valid())
	assert.Equal(t, "Saturday+Sunday", (Saturday | Sunday).String())
	assert.Equal(t, "15:55 Sunday", TimeToken{Hour: 15, Minute: 55, Restriction: Sunday}.String())
}
