// Package lockout tracks failed authentication attempts per subject and
// enforces temporary account locks once a threshold is crossed.
//
// The tracker keeps two Redis keys per subject: a fixed-window failure
// counter (INCR with TTL set on first increment) and a lock marker whose TTL
// is the lock duration. Attempts made while the lock marker exists are
// rejected without touching the counter, so probing a locked account cannot
// extend the lock.
//
// A successful authentication clears both keys. All state expires on its own;
// the tracker never needs an external janitor.
package lockout
