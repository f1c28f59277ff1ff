package tokengate

import "time"

// Clock abstracts the engine's time source. Token issuance, revocation
// epochs, and expiry checks all read through it, so tests can substitute a
// manual clock and step time deterministically.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }
