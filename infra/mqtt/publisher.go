package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	coremetrics "github.com/kilianp07/slotplan/core/metrics"
	coremqtt "github.com/kilianp07/slotplan/core/mqtt"
	"github.com/kilianp07/slotplan/core/solver"
)

// RunSummary is the JSON document published for every run.
type RunSummary struct {
	RunID       string       `json:"run_id"`
	Algorithm   string       `json:"algorithm"`
	Rooms       int          `json:"rooms"`
	Tasks       int          `json:"tasks"`
	Scheduled   int          `json:"scheduled"`
	Unscheduled int          `json:"unscheduled"`
	Invalid     int          `json:"invalid"`
	Conflicts   int          `json:"conflicts"`
	Stats       solver.Stats `json:"stats"`
	DurationMS  int64        `json:"duration_ms"`
	Error       string       `json:"error,omitempty"`
	Timestamp   int64        `json:"timestamp"`
}

// Publisher is a metrics sink pushing run summaries to
// <prefix>/runs/<run_id> and conflicts to <prefix>/runs/<run_id>/conflicts.
type Publisher struct {
	client coremqtt.Client
	prefix string
}

var (
	_ coremetrics.MetricsSink      = (*Publisher)(nil)
	_ coremetrics.ConflictRecorder = (*Publisher)(nil)
)

// NewPublisher wraps client. prefix defaults to "slotplan".
func NewPublisher(client coremqtt.Client, prefix string) *Publisher {
	if prefix == "" {
		prefix = "slotplan"
	}
	return &Publisher{client: client, prefix: prefix}
}

// NewPublisherFromConfig connects to the broker described by cfg.
func NewPublisherFromConfig(cfg Config) (*Publisher, error) {
	cfg.SetDefaults()
	cli, err := NewPahoClient(cfg)
	if err != nil {
		return nil, err
	}
	return NewPublisher(cli, cfg.TopicPrefix), nil
}

// RunTopic returns the topic of a run summary.
func (p *Publisher) RunTopic(runID string) string {
	return fmt.Sprintf("%s/runs/%s", p.prefix, runID)
}

func (p *Publisher) RecordSolve(rec coremetrics.SolveRecord) error {
	ts := rec.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	payload, err := json.Marshal(RunSummary{
		RunID:       rec.RunID,
		Algorithm:   rec.Algorithm,
		Rooms:       rec.Rooms,
		Tasks:       rec.Tasks,
		Scheduled:   rec.Scheduled,
		Unscheduled: rec.Unscheduled,
		Invalid:     rec.Invalid,
		Conflicts:   rec.Conflicts,
		Stats:       rec.Stats,
		DurationMS:  rec.Duration.Milliseconds(),
		Error:       rec.ErrorCode,
		Timestamp:   ts.UnixMilli(),
	})
	if err != nil {
		return err
	}
	return p.client.Publish(p.RunTopic(rec.RunID), payload)
}

func (p *Publisher) RecordConflict(rec coremetrics.ConflictRecord) error {
	payload, err := json.Marshal(struct {
		Conflict any    `json:"conflict"`
		Evicted  string `json:"evicted,omitempty"`
	}{rec.Conflict, evicted(rec)})
	if err != nil {
		return err
	}
	return p.client.Publish(p.RunTopic(rec.RunID)+"/conflicts", payload)
}

func evicted(rec coremetrics.ConflictRecord) string {
	if rec.Evicted.PersonID == "" {
		return ""
	}
	return rec.Evicted.String()
}

// Close disconnects the underlying client.
func (p *Publisher) Close() error {
	p.client.Disconnect()
	return nil
}
