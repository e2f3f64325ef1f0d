package reset

import "time"

const daysPerWeek = 7

// IsTradingHoliday reports whether t falls on a US market holiday, with the
// Sunday-observance shift applied to fixed-date holidays.
func IsTradingHoliday(t time.Time) bool {
	year := t.Year()

	newYearsDay := observedFixed(year, time.January, 1)
	mlkDay := nthWeekday(year, time.January, time.Monday, 3)
	presidentsDay := nthWeekday(year, time.February, time.Monday, 3)

	memorialDay := time.Date(year, time.May, 31, 0, 0, 0, 0, time.UTC)
	for memorialDay.Weekday() != time.Monday {
		memorialDay = memorialDay.AddDate(0, 0, -1)
	}

	independenceDay := observedFixed(year, time.July, 4)
	laborDay := nthWeekday(year, time.September, time.Monday, 1)
	thanksgivingDay := nthWeekday(year, time.November, time.Thursday, 4)
	christmasDay := observedFixed(year, time.December, 25)

	holidays := []time.Time{
		newYearsDay,
		mlkDay,
		presidentsDay,
		memorialDay,
		independenceDay,
		laborDay,
		thanksgivingDay,
		christmasDay,
	}

	for _, d := range holidays {
		if sameDate(t, d) {
			return true
		}
	}
	return false
}

// IsTradingDay reports whether the venue trades on t's date. Saturdays never
// trade; Sundays count as a trading day because the futures week opens Sunday
// evening.
func IsTradingDay(t time.Time) bool {
	if t.Weekday() == time.Saturday {
		return false
	}
	return !IsTradingHoliday(t)
}

// observedFixed shifts a fixed-date holiday to Monday when it lands on a
// Sunday.
func observedFixed(year int, month time.Month, day int) time.Time {
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if d.Weekday() == time.Sunday {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// nthWeekday returns the n-th given weekday of a month (n starting at 1).
func nthWeekday(year int, month time.Month, weekday time.Weekday, n int) time.Time {
	firstOfMonth := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	offset := int(weekday-firstOfMonth.Weekday()+daysPerWeek) % daysPerWeek
	return firstOfMonth.AddDate(0, 0, offset+(n-1)*daysPerWeek)
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
