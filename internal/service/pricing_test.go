package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/atypikhouse/internal/model"
)

func d(s string) time.Time {
	t, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func cents(v int64) *int64 { return &v }

func window(start, end string, special *int64) model.Availability {
	return model.Availability{PropertyID: 1, StartDate: d(start), EndDate: d(end), SpecialPriceCents: special}
}

func TestTotalPriceSpecialWindowCoveringStay(t *testing.T) {
	// base 100.00, special 80.00, three nights
	ws := []model.Availability{window("2026-07-01", "2026-07-31", cents(8000))}
	require.Equal(t, int64(24000), TotalPrice(10000, ws, d("2026-07-10"), d("2026-07-13")))
}

func TestTotalPriceNoWindowsUsesBase(t *testing.T) {
	require.Equal(t, int64(50000), TotalPrice(10000, nil, d("2026-07-10"), d("2026-07-15")))
}

func TestTotalPriceWindowWithoutSpecialUsesBase(t *testing.T) {
	ws := []model.Availability{window("2026-07-01", "2026-07-31", nil)}
	require.Equal(t, int64(30000), TotalPrice(10000, ws, d("2026-07-10"), d("2026-07-13")))
}

func TestTotalPriceContiguousWindowsPartitionStay(t *testing.T) {
	ws := []model.Availability{
		// deliberately unsorted
		window("2026-07-05", "2026-07-10", cents(12000)),
		window("2026-07-01", "2026-07-05", cents(8000)),
	}
	// 07-03..07-05 at 80 (2 nights) + 07-05..07-08 at 120 (3 nights)
	require.Equal(t, int64(2*8000+3*12000), TotalPrice(10000, ws, d("2026-07-03"), d("2026-07-08")))
}

func TestTotalPriceGapChargedAtBase(t *testing.T) {
	ws := []model.Availability{
		window("2026-07-01", "2026-07-04", cents(8000)),
		window("2026-07-06", "2026-07-10", cents(9000)),
	}
	// 07-02..07-04 at 80, 07-04..07-06 at base, 07-06..07-08 at 90
	require.Equal(t, int64(2*8000+2*10000+2*9000), TotalPrice(10000, ws, d("2026-07-02"), d("2026-07-08")))
}

func TestTotalPriceOverlappingWindowsDoNotDoubleCount(t *testing.T) {
	ws := []model.Availability{
		window("2026-07-01", "2026-07-10", cents(8000)),
		window("2026-07-05", "2026-07-15", cents(9000)),
	}
	// the first window claims nights up to 07-08, nothing is counted twice
	require.Equal(t, int64(5*8000), TotalPrice(10000, ws, d("2026-07-03"), d("2026-07-08")))
}

func TestTotalPriceAdditiveAcrossInteriorSplit(t *testing.T) {
	ws := []model.Availability{window("2026-07-01", "2026-07-31", cents(8000))}
	whole := TotalPrice(10000, ws, d("2026-07-03"), d("2026-07-12"))
	left := TotalPrice(10000, ws, d("2026-07-03"), d("2026-07-07"))
	right := TotalPrice(10000, ws, d("2026-07-07"), d("2026-07-12"))
	require.Equal(t, whole, left+right)
}

func TestTotalPriceEmptyRange(t *testing.T) {
	require.Zero(t, TotalPrice(10000, nil, d("2026-07-03"), d("2026-07-03")))
	require.Zero(t, TotalPrice(10000, nil, d("2026-07-05"), d("2026-07-03")))
}
