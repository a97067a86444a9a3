// Package conflict proposes fixes for double bookings left in a solution.
// Proposals are advisory: the caller decides whether to apply them and must
// re-validate the result.
package conflict

import (
	"fmt"
	"sort"

	"github.com/kilianp07/slotplan/core/logger"
	"github.com/kilianp07/slotplan/core/model"
	"github.com/kilianp07/slotplan/core/solver"
)

// Strategy names the way a proposal frees a collision.
type Strategy string

const (
	PriorityReassignment Strategy = "priority_reassignment"
	TimeShift            Strategy = "time_shift"
	RoomSwap             Strategy = "room_swap"
)

// DefaultMaxShift is how far, in slots, a time shift may move a task.
const DefaultMaxShift = 8

// Proposal is a suggested move of one task.
type Proposal struct {
	Conflict model.Conflict  `json:"conflict"`
	Strategy Strategy        `json:"strategy"`
	Task     model.TaskID    `json:"task"`
	From     model.Placement `json:"from"`
	To       model.Placement `json:"to"`
	Reason   string          `json:"reason"`
}

// Resolver tries priority reassignment, time shift and room swap, in that
// order, for every conflict.
type Resolver struct {
	// MaxShift bounds time shifts. Zero uses DefaultMaxShift.
	MaxShift int
	log      logger.Logger
}

// NewResolver returns a resolver logging through log.
func NewResolver(log logger.Logger) *Resolver {
	return &Resolver{MaxShift: DefaultMaxShift, log: logger.OrNop(log)}
}

// Resolve returns at most one proposal per conflict. Conflicts no strategy
// can address are skipped.
func (r *Resolver) Resolve(p solver.Problem, a model.Assignment, conflicts []model.Conflict) ([]Proposal, error) {
	if len(conflicts) == 0 {
		return nil, nil
	}
	occ, err := solver.NewOccupancy(p, a)
	if err != nil {
		return nil, err
	}
	var out []Proposal
	for _, c := range conflicts {
		prop := r.byPriority(occ, c)
		if prop == nil {
			prop = r.byTimeShift(occ, c)
		}
		if prop == nil {
			prop = r.byRoomSwap(occ, c)
		}
		if prop == nil {
			r.log.Debugf("conflict %s/%s: no resolution found", c.TaskID, c.ConflictsWith)
			continue
		}
		out = append(out, *prop)
	}
	r.log.Infof("resolver: %d proposals for %d conflicts", len(out), len(conflicts))
	return out, nil
}

// byPriority moves the task of the less important group to the first free
// option of its domain.
func (r *Resolver) byPriority(occ *solver.Occupancy, c model.Conflict) *Proposal {
	a, okA := occ.Task(c.TaskID)
	b, okB := occ.Task(c.ConflictsWith)
	if !okA || !okB || a.Priority == b.Priority {
		return nil
	}
	loser, winner := a, b
	if b.Priority > a.Priority {
		loser, winner = b, a
	}
	for _, slot := range occ.Domain(loser.ID) {
		for room := 1; room <= occ.Rooms(); room++ {
			if occ.Free(loser.ID, slot, room) {
				return proposal(occ, c, PriorityReassignment, loser.ID, slot, room,
					fmt.Sprintf("group %s outranks group %s", winner.ID.GroupID, loser.ID.GroupID))
			}
		}
	}
	return nil
}

// byTimeShift moves one of the two tasks to the closest free start of the
// same day and room.
func (r *Resolver) byTimeShift(occ *solver.Occupancy, c model.Conflict) *Proposal {
	limit := r.MaxShift
	if limit <= 0 {
		limit = DefaultMaxShift
	}
	for _, id := range []model.TaskID{c.TaskID, c.ConflictsWith} {
		cur, room, ok := occ.Placement(id)
		if !ok {
			continue
		}
		day := occ.Grid().Slot(cur).Date()
		var near []int
		for _, s := range occ.Domain(id) {
			d := s - cur
			if d != 0 && abs(d) <= limit && occ.Grid().Slot(s).Date() == day {
				near = append(near, s)
			}
		}
		sort.SliceStable(near, func(i, j int) bool {
			di, dj := abs(near[i]-cur), abs(near[j]-cur)
			if di != dj {
				return di < dj
			}
			return near[i] < near[j]
		})
		for _, s := range near {
			if occ.Free(id, s, room) {
				return proposal(occ, c, TimeShift, id, s, room,
					fmt.Sprintf("shift by %d minutes", (s-cur)*model.SlotMinutes))
			}
		}
	}
	return nil
}

// byRoomSwap keeps the slot and moves the task to another free room. Only
// room conflicts qualify.
func (r *Resolver) byRoomSwap(occ *solver.Occupancy, c model.Conflict) *Proposal {
	if c.Type != model.RoomConflict || occ.Rooms() < 2 {
		return nil
	}
	for _, id := range []model.TaskID{c.TaskID, c.ConflictsWith} {
		slot, room, ok := occ.Placement(id)
		if !ok {
			continue
		}
		for other := 1; other <= occ.Rooms(); other++ {
			if other != room && occ.Free(id, slot, other) {
				return proposal(occ, c, RoomSwap, id, slot, other, fmt.Sprintf("move from room %d to room %d", room, other))
			}
		}
	}
	return nil
}

func proposal(occ *solver.Occupancy, c model.Conflict, s Strategy, id model.TaskID, slot, room int, reason string) *Proposal {
	p := &Proposal{Conflict: c, Strategy: s, Task: id, Reason: reason}
	if cur, curRoom, ok := occ.Placement(id); ok {
		p.From = model.Placement{Slot: occ.Grid().Slot(cur), Room: curRoom}
	}
	p.To = model.Placement{Slot: occ.Grid().Slot(slot), Room: room}
	return p
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
