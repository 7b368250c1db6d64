package domain

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestOvernightAwareDuration(t *testing.T) {
	cases := []struct {
		start, end string
		want       float64
	}{
		{"08:00", "20:00", 12},
		{"20:00", "08:00", 12},
		{"08:00", "14:00", 6},
		{"22:30", "06:00", 7.5},
		{"08:00", "08:00", 24},
	}
	for _, c := range cases {
		got, err := OvernightAwareDuration(c.start, c.end)
		require.NoError(t, err)
		require.InDelta(t, c.want, got, 1e-9, "%s-%s", c.start, c.end)
	}

	_, err := OvernightAwareDuration("25:00", "08:00")
	require.Error(t, err)
}

func TestClassify(t *testing.T) {
	cases := map[string]Classification{
		"08:00": ClassificationDay,
		"14:00": ClassificationDay,
		"19:59": ClassificationDay,
		"20:00": ClassificationNight,
		"02:00": ClassificationNight,
		"07:59": ClassificationNight,
	}
	for start, want := range cases {
		got, err := Classify(start)
		require.NoError(t, err)
		require.Equal(t, want, got, start)
	}
}

func TestShiftNormalizeKeepsExtension(t *testing.T) {
	s := &Shift{
		Date:      time.Date(2025, 3, 1, 15, 4, 0, 0, time.UTC),
		StartTime: "20:00",
		EndTime:   "08:00",
		Extension: &Extension{Hours: 2},
	}
	require.NoError(t, s.Normalize())
	require.Equal(t, ClassificationNight, s.Classification)
	require.Equal(t, 14.0, s.Duration)
	require.Equal(t, StatusPending, s.Status)
	require.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), s.Date)
	require.Equal(t, time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC), s.StartAt())
	require.Equal(t, time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC), s.EndAt())
}

func TestShiftCovers(t *testing.T) {
	s := &Shift{Classification: ClassificationDay}
	require.True(t, s.Covers(ClassificationDay))
	require.False(t, s.Covers(ClassificationNight))

	s.Is24Hour = true
	require.True(t, s.Covers(ClassificationNight))
}

func TestWorkerCoversDate(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	w := &Worker{Kind: WorkerKindAgency, ContractStart: &start, ContractEnd: &end}

	require.True(t, w.CoversDate(end))
	require.False(t, w.CoversDate(end.AddDate(0, 0, 1)))
	require.False(t, w.CoversDate(start.AddDate(0, 0, -1)))

	staff := &Worker{Kind: WorkerKindStaff}
	require.True(t, staff.CoversDate(end.AddDate(5, 0, 0)))
}

func TestKindOf(t *testing.T) {
	err := NotFound("班次", 7)
	wrapped := fmt.Errorf("包装: %w", err)
	require.Equal(t, KindNotFound, KindOf(wrapped))
	require.True(t, IsKind(wrapped, KindNotFound))
	require.Equal(t, ErrorKind(""), KindOf(nil))
}
