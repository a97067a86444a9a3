package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupValidate(t *testing.T) {
	g := Group{ID: "a", Count: 2, Duration: 30, Frequency: FrequencyWeekly}
	require.NoError(t, g.Validate())
	assert.Equal(t, 2, g.SlotCount())
	assert.Equal(t, "a-2", g.PersonID(2))

	bad := []Group{
		{Count: 1, Duration: 15, Frequency: FrequencyWeekly},
		{ID: "a", Count: 1, Duration: 20, Frequency: FrequencyWeekly},
		{ID: "a", Count: 1, Duration: 0, Frequency: FrequencyWeekly},
		{ID: "a", Count: 1, Duration: 15, Frequency: "daily"},
		{ID: "a", Count: 1, Duration: 15, Frequency: FrequencyBiweekly, Pattern: "third"},
		{ID: "a", Count: -1, Duration: 15, Frequency: FrequencyWeekly},
	}
	for i, g := range bad {
		assert.Error(t, g.Validate(), "case %d", i)
	}
}

func TestRankGroups(t *testing.T) {
	groups := []Group{{ID: "x"}, {ID: "y"}, {ID: "z"}}
	ranked := RankGroups(groups, []string{"z", "x"})
	assert.Equal(t, 1, ranked[0].Priority)
	assert.Equal(t, 2, ranked[1].Priority)
	assert.Equal(t, 0, ranked[2].Priority)
	assert.Equal(t, 0, groups[0].Priority, "input must not be mutated")
}

func TestPatternMatches(t *testing.T) {
	assert.True(t, PatternOdd.Matches(1))
	assert.False(t, PatternOdd.Matches(2))
	assert.True(t, PatternEven.Matches(2))
	assert.True(t, PatternAny.Matches(3))
	assert.True(t, Pattern("").Matches(4))
}

func TestDayDecoding(t *testing.T) {
	var g Group
	require.NoError(t, json.Unmarshal([]byte(`{"id":"a","preferredDay":3}`), &g))
	assert.Equal(t, On(time.Wednesday), g.PreferredDay)
	require.NoError(t, json.Unmarshal([]byte(`{"id":"a","preferredDay":"any"}`), &g))
	assert.False(t, g.PreferredDay.Set)
	require.NoError(t, json.Unmarshal([]byte(`{"id":"a","preferredDay":"friday"}`), &g))
	assert.Equal(t, On(time.Friday), g.PreferredDay)
	assert.Error(t, json.Unmarshal([]byte(`{"id":"a","preferredDay":9}`), &g))

	b, err := json.Marshal(On(time.Monday))
	require.NoError(t, err)
	assert.Equal(t, "1", string(b))
}

func TestGroupConstraint(t *testing.T) {
	var c GroupConstraint
	require.NoError(t, json.Unmarshal([]byte(`{"group":"a","week":"all","type":"not_day","value":1}`), &c))
	require.NoError(t, c.Validate())
	assert.False(t, c.Allows(time.Monday, 1))
	assert.True(t, c.Allows(time.Tuesday, 1))

	require.NoError(t, json.Unmarshal([]byte(`{"group":"a","week":2,"type":"only_day","value":3}`), &c))
	assert.True(t, c.Allows(time.Monday, 1), "other weeks are untouched")
	assert.False(t, c.Allows(time.Monday, 2))
	assert.True(t, c.Allows(time.Wednesday, 2))

	assert.Error(t, GroupConstraint{Group: "a", Type: "sometimes", Value: On(time.Monday)}.Validate())
	assert.Error(t, GroupConstraint{Group: "a", Type: NotDay}.Validate())
}

func TestIndividualConstraints(t *testing.T) {
	base := time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)
	ic := IndividualConstraints{"a-1": {{Start: base.UnixMilli(), End: base.Add(time.Hour).UnixMilli()}}}
	assert.True(t, ic.Allows("a-1", base, base.Add(15*time.Minute)))
	assert.False(t, ic.Allows("a-1", base.Add(50*time.Minute), base.Add(65*time.Minute)))
	assert.True(t, ic.Allows("b-1", base, base.Add(time.Minute)))
	assert.True(t, ic.Has("a-1"))
}

func TestTaskIDRoundTrip(t *testing.T) {
	g := Group{ID: "grp-x", Count: 1, Duration: 45, Frequency: FrequencyWeekly, Priority: 2}
	task, err := NewTask(g, 1, WeekTag{Year: 2025, Week: 2}, 1)
	require.NoError(t, err)
	assert.Equal(t, "grp-x-1_2025-W02", task.ID.String())
	assert.Equal(t, 3, task.SlotCount())
	assert.Equal(t, 2, task.Priority)

	var back TaskID
	require.NoError(t, back.UnmarshalText([]byte(task.ID.String())))
	assert.Equal(t, task.ID, back)

	monthly, err := NewTask(g, 1, Monthly, 5)
	require.NoError(t, err)
	assert.Equal(t, 0, monthly.PeriodWeek)
	assert.Equal(t, "grp-x-1_monthly", monthly.ID.String())

	_, err = NewTask(g, 0, Monthly, 0)
	assert.Error(t, err)
	_, err = NewTask(Group{ID: "b", Duration: 10}, 1, Monthly, 0)
	assert.Error(t, err)
}

func TestSlot(t *testing.T) {
	day := time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC)
	s, err := NewSlot(day, 9*60+15)
	require.NoError(t, err)
	assert.Equal(t, "2025-01-08 09:15", s.Key())
	assert.Equal(t, time.Wednesday, s.Weekday())
	assert.Equal(t, 555, s.MinuteOfDay())
	assert.Equal(t, s.Start.Add(15*time.Minute), s.End())
	_, err = NewSlot(day, 10)
	assert.Error(t, err)
}

func TestSlotWallClockOnDSTDay(t *testing.T) {
	tehran, err := time.LoadLocation("Asia/Tehran")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	s, err := NewSlot(time.Date(2021, 3, 22, 12, 0, 0, 0, tehran), 9*60)
	require.NoError(t, err)
	assert.Equal(t, "2021-03-22 09:00", s.Key())
	assert.Equal(t, 9*60, s.MinuteOfDay())
}

func TestSessionTransitions(t *testing.T) {
	next, err := SessionDraft.Transition(SessionActive)
	require.NoError(t, err)
	assert.Equal(t, SessionActive, next)
	_, err = SessionActive.Transition(SessionDraft)
	assert.Error(t, err)
	_, err = SessionDraft.Transition(SessionArchived)
	assert.Error(t, err)
	assert.True(t, SessionActive.CanTransition(SessionArchived))
	assert.False(t, SessionArchived.CanTransition(SessionArchived))
}
