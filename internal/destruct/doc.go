// Package destruct implements the timed secure-erasure unit.
//
// The unit is built inert: an immutable plan serialized into the ramdisk.
// Activation re-executes this binary twice with the hidden destruct-trigger
// command, once per deadline, each in its own detached session. The two
// triggers race independently; the cleanup they run is idempotent, so the
// loser's pass over an already-destroyed session is a no-op.
//
// Deadlines: the failsafe fires a fixed grace period after the primary,
// bounding total exposure even if the primary trigger's process is killed.
package destruct
