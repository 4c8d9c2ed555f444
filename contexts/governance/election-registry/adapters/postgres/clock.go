package postgresadapter

import "time"

// SystemClock is the runtime clock; votes are judged against its reading,
// never against a caller-supplied time.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
