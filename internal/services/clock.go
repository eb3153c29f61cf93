package services

import "time"

// Clock supplies the current time. Quota windows and record timestamps go
// through an injected Clock so tests can roll time forward instead of
// sleeping.
type Clock func() time.Time

// SystemClock is the production clock.
func SystemClock() time.Time { return time.Now().UTC() }
