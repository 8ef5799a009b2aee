package chrono

import "time"

// API is the clock every component reads "today" from, service dates are always in the
// outreach program's local time.
type API interface {
	Now() time.Time
	Location() *time.Location
}

type StandardImpl struct {
	location *time.Location
}

// NewStandardImpl loads the named IANA location, an empty name means America/New_York.
func NewStandardImpl(name string) (StandardImpl, error) {
	if name == "" {
		name = "America/New_York"
	}
	location, err := time.LoadLocation(name)
	if err != nil {
		return StandardImpl{}, err
	}
	return StandardImpl{location: location}, nil
}

func (s StandardImpl) Now() time.Time {
	return time.Now().In(s.location)
}

func (s StandardImpl) Location() *time.Location {
	return s.location
}

// Fixed is a clock frozen at a single instant.
type Fixed struct {
	At time.Time
}

func (f Fixed) Now() time.Time {
	return f.At
}

func (f Fixed) Location() *time.Location {
	return f.At.Location()
}

// Yesterday returns the calendar day before now, at midnight.
func Yesterday(clock API) time.Time {
	now := clock.Now()
	y, m, d := now.AddDate(0, 0, -1).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, clock.Location())
}
