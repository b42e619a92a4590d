// Package execution tracks the lifecycle of a single commanded trajectory.
//
// A Machine reconciles two unsynchronized signal sources into one
// authoritative state: commands issued by the movement controller (start,
// fail) and feedback events from the motion controller (running, ended,
// paused-by-user). Feedback events report logical trajectory status, which
// can run ahead of the physical robot: an "ended" event may arrive while the
// mechanism is still decelerating. The Ending and Pausing states hold the
// machine until a follow-up event confirms standstill, so callers never treat
// a trajectory as safely interruptible before the robot has actually stopped.
//
// One Machine governs exactly one trajectory execution lifecycle. It performs
// no I/O and never transitions on its own initiative; the caller drives it
// through Send and Process and reads the returned state after every call.
package execution
