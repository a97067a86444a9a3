package solver

import (
	"sort"

	"github.com/kilianp07/slotplan/core/model"
	"github.com/kilianp07/slotplan/core/slots"
)

// pos is the placement of a task on the board. Rooms are 1-based and room 0
// means unassigned.
type pos struct {
	slot int
	room int
}

// board tracks which tasks cover which grid slot, per room and per person.
// Strict strategies only ever place tasks on free cells; local search allows
// overlaps and counts them.
type board struct {
	grid   *slots.Grid
	tasks  []model.Task
	doms   [][]int
	length []int
	person []int
	rooms  int

	room [][][]int
	busy [][][]int
	at   []pos

	seen   []int
	stamp  int
	checks int
}

func newBoard(p Problem) *board {
	n := len(p.Tasks)
	b := &board{
		grid:   p.Grid,
		tasks:  p.Tasks,
		doms:   make([][]int, n),
		length: make([]int, n),
		person: make([]int, n),
		rooms:  p.Rooms,
		at:     make([]pos, n),
		seen:   make([]int, n),
	}
	people := make(map[string]int)
	for i, t := range p.Tasks {
		b.doms[i] = p.Domains[t.ID]
		b.length[i] = t.SlotCount()
		id, ok := people[t.Person()]
		if !ok {
			id = len(people)
			people[t.Person()] = id
		}
		b.person[i] = id
	}
	cells := p.Grid.Len()
	b.room = make([][][]int, p.Rooms)
	for r := range b.room {
		b.room[r] = make([][]int, cells)
	}
	b.busy = make([][][]int, len(people))
	for k := range b.busy {
		b.busy[k] = make([][]int, cells)
	}
	return b
}

func (b *board) placed(t int) bool { return b.at[t].room != 0 }

func (b *board) assign(t, slot, room int) {
	if b.placed(t) {
		b.unassign(t)
	}
	b.at[t] = pos{slot: slot, room: room}
	for k := slot; k < slot+b.length[t]; k++ {
		b.room[room-1][k] = append(b.room[room-1][k], t)
		b.busy[b.person[t]][k] = append(b.busy[b.person[t]][k], t)
	}
}

func (b *board) unassign(t int) {
	p := b.at[t]
	if p.room == 0 {
		return
	}
	for k := p.slot; k < p.slot+b.length[t]; k++ {
		b.room[p.room-1][k] = without(b.room[p.room-1][k], t)
		b.busy[b.person[t]][k] = without(b.busy[b.person[t]][k], t)
	}
	b.at[t] = pos{}
}

func without(list []int, t int) []int {
	for i, v := range list {
		if v == t {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// free reports whether t fits at (slot, room) without touching any other
// task of the room or of the same person.
func (b *board) free(t, slot, room int) bool {
	b.checks++
	p := b.person[t]
	for k := slot; k < slot+b.length[t]; k++ {
		for _, u := range b.room[room-1][k] {
			if u != t {
				return false
			}
		}
		for _, u := range b.busy[p][k] {
			if u != t {
				return false
			}
		}
	}
	return true
}

// fits reports whether t has at least one free option left.
func (b *board) fits(t int) bool {
	for _, s := range b.doms[t] {
		for r := 1; r <= b.rooms; r++ {
			if b.free(t, s, r) {
				return true
			}
		}
	}
	return false
}

// hits counts the distinct tasks t would collide with at (slot, room), per
// conflict kind.
func (b *board) hits(t, slot, room int) (roomHits, personHits int) {
	b.checks++
	b.stamp++
	for k := slot; k < slot+b.length[t]; k++ {
		for _, u := range b.room[room-1][k] {
			if u != t && b.seen[u] != b.stamp {
				b.seen[u] = b.stamp
				roomHits++
			}
		}
	}
	b.stamp++
	p := b.person[t]
	for k := slot; k < slot+b.length[t]; k++ {
		for _, u := range b.busy[p][k] {
			if u != t && b.seen[u] != b.stamp {
				b.seen[u] = b.stamp
				personHits++
			}
		}
	}
	return roomHits, personHits
}

// conflicts returns the number of colliding pairs of each kind.
func (b *board) conflicts() (roomPairs, personPairs int) {
	for t := range b.tasks {
		if !b.placed(t) {
			continue
		}
		r, p := b.hits(t, b.at[t].slot, b.at[t].room)
		roomPairs += r
		personPairs += p
	}
	return roomPairs / 2, personPairs / 2
}

// conflicted returns the placed tasks involved in at least one collision.
func (b *board) conflicted() []int {
	var out []int
	for t := range b.tasks {
		if !b.placed(t) {
			continue
		}
		if r, p := b.hits(t, b.at[t].slot, b.at[t].room); r+p > 0 {
			out = append(out, t)
		}
	}
	return out
}

func (b *board) unplacedCount() int {
	n := 0
	for t := range b.tasks {
		if !b.placed(t) {
			n++
		}
	}
	return n
}

func (b *board) snapshot() []pos {
	return append([]pos(nil), b.at...)
}

func (b *board) restore(s []pos) {
	for t := range b.tasks {
		b.unassign(t)
	}
	for t, p := range s {
		if p.room != 0 {
			b.assign(t, p.slot, p.room)
		}
	}
}

func (b *board) assignment() model.Assignment {
	a := make(model.Assignment)
	for t, p := range b.at {
		if p.room != 0 {
			a[b.tasks[t].ID] = model.Placement{Slot: b.grid.Slot(p.slot), Room: p.room}
		}
	}
	return a
}

func (b *board) unscheduled() []model.TaskID {
	var out []model.TaskID
	for t, p := range b.at {
		if p.room == 0 {
			out = append(out, b.tasks[t].ID)
		}
	}
	return out
}

// detect lists every colliding pair once, ordered by the first task index,
// room collisions before person collisions, then by the second task index.
func (b *board) detect() []model.Conflict {
	var out []model.Conflict
	for t := range b.tasks {
		if !b.placed(t) {
			continue
		}
		p := b.at[t]
		for _, u := range b.overlapping(t, b.room[p.room-1]) {
			out = append(out, model.Conflict{
				Type:          model.RoomConflict,
				TaskID:        b.tasks[t].ID,
				ConflictsWith: b.tasks[u].ID,
				Slot:          b.grid.Slot(max(p.slot, b.at[u].slot)),
				Room:          p.room,
			})
		}
		for _, u := range b.overlapping(t, b.busy[b.person[t]]) {
			out = append(out, model.Conflict{
				Type:          model.PersonConflict,
				TaskID:        b.tasks[t].ID,
				ConflictsWith: b.tasks[u].ID,
				Slot:          b.grid.Slot(max(p.slot, b.at[u].slot)),
				Person:        b.tasks[t].Person(),
			})
		}
	}
	return out
}

// overlapping returns the tasks after t sharing a cell of lane with t, in
// index order.
func (b *board) overlapping(t int, lane [][]int) []int {
	b.stamp++
	var us []int
	p := b.at[t]
	for k := p.slot; k < p.slot+b.length[t]; k++ {
		for _, u := range lane[k] {
			if u > t && b.seen[u] != b.stamp {
				b.seen[u] = b.stamp
				us = append(us, u)
			}
		}
	}
	sort.Ints(us)
	return us
}

// load places an existing assignment on a fresh board. Entries that do not
// belong to the problem or fall outside the grid are ignored.
func load(p Problem, a model.Assignment) *board {
	b := newBoard(p)
	for t, task := range p.Tasks {
		pl, ok := a[task.ID]
		if !ok || pl.Room < 1 || pl.Room > p.Rooms {
			continue
		}
		slot, ok := p.Grid.Index(pl.Slot)
		if !ok || !p.Grid.Contiguous(slot, b.length[t]) {
			continue
		}
		b.assign(t, slot, pl.Room)
	}
	return b
}

// Detect returns the room and person collisions of a.
func Detect(p Problem, a model.Assignment) []model.Conflict {
	if p.validate() != nil {
		return nil
	}
	return load(p, a).detect()
}

// Evict removes, for every colliding pair, the task of the lower priority
// group (the later task on equal priority). It returns the cleaned
// assignment and the evicted ids in task order.
func Evict(p Problem, a model.Assignment) (model.Assignment, []model.TaskID) {
	if p.validate() != nil {
		return a, nil
	}
	b := load(p, a)
	index := make(map[model.TaskID]int, len(p.Tasks))
	for i, t := range p.Tasks {
		index[t.ID] = i
	}
	evicted := make(map[int]bool)
	for _, c := range b.detect() {
		x, y := index[c.TaskID], index[c.ConflictsWith]
		if evicted[x] || evicted[y] {
			continue
		}
		loser := y
		if p.Tasks[x].Priority > p.Tasks[y].Priority {
			loser = x
		}
		evicted[loser] = true
	}
	var ids []model.TaskID
	for t := range p.Tasks {
		if evicted[t] {
			b.unassign(t)
			ids = append(ids, p.Tasks[t].ID)
		}
	}
	return b.assignment(), ids
}

// Occupancy answers feasibility questions against a fixed assignment.
type Occupancy struct {
	b     *board
	index map[model.TaskID]int
}

// NewOccupancy loads a onto a board for p.
func NewOccupancy(p Problem, a model.Assignment) (*Occupancy, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	o := &Occupancy{b: load(p, a), index: make(map[model.TaskID]int, len(p.Tasks))}
	for i, t := range p.Tasks {
		o.index[t.ID] = i
	}
	return o, nil
}

// Task returns the task with id.
func (o *Occupancy) Task(id model.TaskID) (model.Task, bool) {
	i, ok := o.index[id]
	if !ok {
		return model.Task{}, false
	}
	return o.b.tasks[i], true
}

// Domain returns the start indices of id.
func (o *Occupancy) Domain(id model.TaskID) []int {
	if i, ok := o.index[id]; ok {
		return o.b.doms[i]
	}
	return nil
}

// Placement returns the grid index and room of id when it is placed.
func (o *Occupancy) Placement(id model.TaskID) (slot, room int, ok bool) {
	i, found := o.index[id]
	if !found || !o.b.placed(i) {
		return 0, 0, false
	}
	return o.b.at[i].slot, o.b.at[i].room, true
}

// Free reports whether id could move to (slot, room) without colliding with
// any other placed task.
func (o *Occupancy) Free(id model.TaskID, slot, room int) bool {
	i, ok := o.index[id]
	if !ok || room < 1 || room > o.b.rooms || !o.b.grid.Contiguous(slot, o.b.length[i]) {
		return false
	}
	return o.b.free(i, slot, room)
}

// Rooms returns the room count.
func (o *Occupancy) Rooms() int { return o.b.rooms }

// Grid returns the slot grid.
func (o *Occupancy) Grid() *slots.Grid { return o.b.grid }
