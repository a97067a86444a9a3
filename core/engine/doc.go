// Package engine runs a complete solve: it builds the slot grid of the
// planning window, generates the tasks, computes their domains, runs the
// selected strategy and turns the outcome into a Result.
//
// Grid and domain problems abort the run with a typed *Error before any
// strategy starts. Everything a strategy cannot place is reported in
// Result.Unscheduled. Double bookings left by local search strategies are
// listed in Result.Conflicts, get advisory resolutions, and the lower
// priority task of each pair is moved to Unscheduled so the final assignment
// never double books a room or a person.
package engine
