package util

import "time"

var pacificLocation *time.Location

func init() {
	var err error
	pacificLocation, err = time.LoadLocation("America/Los_Angeles")
	if err != nil {
		pacificLocation = time.FixedZone("PT", -8*60*60)
	}
}

// NextPacificMidnight returns the next midnight in US Pacific time, when
// Google API daily quotas reset.
func NextPacificMidnight(now time.Time) time.Time {
	pt := now.In(pacificLocation)
	return time.Date(pt.Year(), pt.Month(), pt.Day()+1, 0, 0, 0, 0, pacificLocation)
}

// Clock returns the current time. Components take one so tests can pin "now".
type Clock func() time.Time

func SystemClock() time.Time {
	return time.Now().UTC()
}
