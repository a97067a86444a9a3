// Package events defines the events the engine emits on the event bus.
//
// Available event types:
//   - SolveEvent: outcome of one engine run
//   - StrategyEvent: room count attempts made by the auto mode
//   - ConflictEvent: a double booking found after search and how it was handled
package events
