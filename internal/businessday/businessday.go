// Package businessday centralizes the "today" boundary used by sequence
// allocation and open-account lookup. All day math happens in one fixed
// business timezone so that orders placed around midnight never straddle
// two different days depending on the server's locale.
package businessday

import "time"

// Clock resolves business-day boundaries in a fixed timezone.
type Clock struct {
	loc *time.Location
}

// New loads the named timezone (e.g. "America/Mexico_City").
func New(tzName string) (*Clock, error) {
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, err
	}
	return &Clock{loc: loc}, nil
}

// Now returns the current time in the business timezone.
func (c *Clock) Now() time.Time {
	return time.Now().In(c.loc)
}

// Bounds returns the [start, end) instants of the business day containing t.
// The returned times are absolute instants; callers pass them straight into
// timestamptz range predicates.
func (c *Clock) Bounds(t time.Time) (start, end time.Time) {
	local := t.In(c.loc)
	start = time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, c.loc)
	return start, start.AddDate(0, 0, 1)
}

// TodayBounds returns Bounds for the current instant.
func (c *Clock) TodayBounds() (start, end time.Time) {
	return c.Bounds(time.Now())
}

// DateBounds parses a YYYY-MM-DD date in the business timezone and returns
// that day's bounds.
func (c *Clock) DateBounds(date string) (start, end time.Time, err error) {
	t, err := time.ParseInLocation("2006-01-02", date, c.loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start, end = c.Bounds(t)
	return start, end, nil
}
