// Package slots builds the discrete grid of bookable slots of a planning
// horizon. Slots exist only on weekdays inside the working hours band and are
// 15 minutes long. The grid also groups slots by ISO week and exposes the
// 1-based period-relative index of every week of the horizon.
package slots
