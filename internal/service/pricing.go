package service

import (
	"sort"
	"time"

	"github.com/iliyamo/atypikhouse/internal/model"
)

// TotalPrice prices the stay [checkIn, checkOut) in cents.  Windows
// intersecting the stay are walked in start order; each overlap is
// charged at the window's rate and every night no window covers is
// charged at baseCents.  Overlapping windows never double count a
// night because the cursor only moves forward.
func TotalPrice(baseCents int64, windows []model.Availability, checkIn, checkOut time.Time) int64 {
	checkIn = model.DateOnly(checkIn)
	checkOut = model.DateOnly(checkOut)
	if !checkIn.Before(checkOut) {
		return 0
	}

	sorted := make([]model.Availability, len(windows))
	copy(sorted, windows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartDate.Before(sorted[j].StartDate)
	})

	var total int64
	cursor := checkIn
	for _, w := range sorted {
		s := laterOf(cursor, model.DateOnly(w.StartDate))
		e := earlierOf(checkOut, model.DateOnly(w.EndDate))
		if !s.Before(e) {
			continue
		}
		total += int64(model.Nights(cursor, s)) * baseCents
		total += int64(model.Nights(s, e)) * w.NightlyRate(baseCents)
		cursor = e
		if !cursor.Before(checkOut) {
			break
		}
	}
	total += int64(model.Nights(cursor, checkOut)) * baseCents
	return total
}

func laterOf(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func earlierOf(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
