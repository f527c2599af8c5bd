package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMonths(t *testing.T) {
	got := months(
		time.Date(2023, 11, 30, 15, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	)
	require.Equal(t, []time.Time{
		time.Date(2023, 11, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	}, got)

	require.Empty(t, months(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)))
}
