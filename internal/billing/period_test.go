package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDueDate(t *testing.T) {
	hcm, err := time.LoadLocation("Asia/Ho_Chi_Minh")
	if err != nil {
		t.Skip("tzdata unavailable")
	}

	cases := []struct {
		name string
		p    Period
		day  int
		now  time.Time
		want time.Time
	}{
		{"later this month", Period{3, 2025}, 10, time.Date(2025, 3, 2, 9, 0, 0, 0, hcm),
			time.Date(2025, 3, 10, 23, 59, 59, 0, hcm)},
		{"due day itself is not passed", Period{3, 2025}, 2, time.Date(2025, 3, 2, 18, 0, 0, 0, hcm),
			time.Date(2025, 3, 2, 23, 59, 59, 0, hcm)},
		{"passed rolls to next month", Period{3, 2025}, 1, time.Date(2025, 3, 2, 9, 0, 0, 0, hcm),
			time.Date(2025, 4, 1, 23, 59, 59, 0, hcm)},
		{"clamped to February", Period{2, 2025}, 31, time.Date(2025, 2, 1, 0, 0, 0, 0, hcm),
			time.Date(2025, 2, 28, 23, 59, 59, 0, hcm)},
		{"leap year", Period{2, 2024}, 30, time.Date(2024, 2, 1, 0, 0, 0, 0, hcm),
			time.Date(2024, 2, 29, 23, 59, 59, 0, hcm)},
		{"roll over year end", Period{12, 2025}, 5, time.Date(2025, 12, 20, 0, 0, 0, 0, hcm),
			time.Date(2026, 1, 5, 23, 59, 59, 0, hcm)},
		{"roll clamps again", Period{1, 2025}, 31, time.Date(2025, 2, 1, 0, 0, 0, 0, hcm),
			time.Date(2025, 2, 28, 23, 59, 59, 0, hcm)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.True(t, tc.want.Equal(DueDate(tc.p, tc.day, tc.now)), "got %s", DueDate(tc.p, tc.day, tc.now))
		})
	}
}

func TestPeriod(t *testing.T) {
	assert.Equal(t, Period{12, 2024}, Period{1, 2025}.Prev())
	assert.Equal(t, Period{1, 2026}, Period{12, 2025}.Next())
	assert.Equal(t, "03/2025", Period{3, 2025}.String())
	assert.Equal(t, 29, Period{2, 2024}.DaysIn())
	assert.False(t, Period{13, 2025}.Valid())

	start := time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC)
	assert.True(t, IsFirstPeriod(start, Period{3, 2025}))
	assert.False(t, IsFirstPeriod(start, Period{4, 2025}))
	assert.Equal(t, Period{3, 2025}, PeriodOf(start))
}
