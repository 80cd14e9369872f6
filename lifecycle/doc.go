// Package lifecycle drives the wake, process, sleep loop of a helperd
// application.
//
// A Controller owns the runtime state machine and invokes the three
// application hooks declared by Runner. OS signals are never acted on inside
// a handler: the Router only appends events to a queue, and the Controller
// drains that queue at the start of each tick, so TERM stops, HUP restarts,
// USR1 reloads configuration in place, and USR2 invokes an optional
// application hook, all from the loop's own goroutine.
package lifecycle
