// Package export writes engine results in exchange formats.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/kilianp07/slotplan/core/engine"
	"github.com/kilianp07/slotplan/core/model"
)

// Formats lists the supported output formats.
var Formats = []string{"json", "csv"}

// Write encodes res to w in the named format.
func Write(w io.Writer, format string, res *engine.Result) error {
	switch format {
	case "", "json":
		return WriteJSON(w, res)
	case "csv":
		return WriteCSV(w, res)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// WriteJSON writes the full result to w as indented JSON.
func WriteJSON(w io.Writer, res *engine.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

var csvHeader = []string{"task_id", "person_id", "group_id", "week", "status", "start", "end", "room"}

// WriteCSV writes one row per task. Scheduled tasks come first ordered by
// start time then room, unscheduled ones follow with empty slot columns.
func WriteCSV(w io.Writer, res *engine.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	ids := make([]model.TaskID, 0, len(res.Assignment))
	for id := range res.Assignment {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := res.Assignment[ids[i]], res.Assignment[ids[j]]
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		if a.Room != b.Room {
			return a.Room < b.Room
		}
		return ids[i].String() < ids[j].String()
	})
	for _, id := range ids {
		b := res.Assignment[id]
		rec := []string{
			id.String(),
			id.PersonID,
			id.GroupID,
			id.Week.String(),
			"scheduled",
			b.Start.Format(time.RFC3339),
			b.End.Format(time.RFC3339),
			strconv.Itoa(b.Room),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	invalid := make(map[model.TaskID]bool)
	for _, id := range res.Invalid() {
		invalid[id] = true
	}
	for _, id := range res.Unscheduled {
		status := "unscheduled"
		if invalid[id] {
			status = "invalid"
		}
		if err := cw.Write([]string{id.String(), id.PersonID, id.GroupID, id.Week.String(), status, "", "", ""}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
