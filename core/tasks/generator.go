// Package tasks expands group definitions into the concrete appointment
// occurrences a solve has to place.
package tasks

import (
	"fmt"
	"sort"

	"github.com/kilianp07/slotplan/core/model"
)

// Generate returns one task per person and required occurrence over weeks,
// which must be the distinct ISO weeks of the horizon in chronological
// order. Groups are emitted by ascending Priority, then person, then week.
func Generate(groups []model.Group, weeks []model.WeekTag) ([]model.Task, error) {
	ordered := make([]model.Group, len(groups))
	copy(ordered, groups)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Priority < ordered[j].Priority })

	seen := make(map[string]struct{}, len(ordered))
	var out []model.Task
	for _, g := range ordered {
		if err := g.Validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[g.ID]; dup {
			return nil, fmt.Errorf("duplicate group id %s", g.ID)
		}
		seen[g.ID] = struct{}{}

		for p := 1; p <= g.Count; p++ {
			if g.Frequency == model.FrequencyMonthly {
				t, err := model.NewTask(g, p, model.Monthly, 0)
				if err != nil {
					return nil, err
				}
				out = append(out, t)
				continue
			}
			for i, w := range weeks {
				period := i + 1
				if g.Frequency == model.FrequencyBiweekly && !g.Pattern.Matches(period) {
					continue
				}
				t, err := model.NewTask(g, p, w, period)
				if err != nil {
					return nil, err
				}
				out = append(out, t)
			}
		}
	}
	return out, nil
}
