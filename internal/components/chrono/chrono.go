package chrono

import "time"

var ist *time.Location

func init() {
	var err error
	ist, err = time.LoadLocation("Asia/Kolkata")
	if err != nil {
		// minimal containers ship without tzdata, IST has no DST so a
		// fixed zone is equivalent.
		ist = time.FixedZone("IST", 5*60*60+30*60)
	}
}

// IST returns a [*time.Location] for Asia/Kolkata, the portal's timezone.
func IST() *time.Location {
	return ist
}

// TimeAPI is the interface that anything depending on the system clock should use.
type TimeAPI interface {
	// Now returns the current time in the portal's timezone.
	Now() time.Time
}

// StandardTime is the standard implementation of TimeAPI using the standard library.
type StandardTime struct{}

// NewStandardTime is the constructor of StandardTime.
func NewStandardTime() StandardTime {
	return StandardTime{}
}

func (s StandardTime) Now() time.Time {
	return time.Now().In(ist)
}

// FixedTime always returns the same instant.
type FixedTime struct {
	At time.Time
}

func (f FixedTime) Now() time.Time {
	return f.At.In(ist)
}
