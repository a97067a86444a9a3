package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/slotplan/core/metrics"
	"github.com/kilianp07/slotplan/infra/logger"
)

// InfluxConfig locates the InfluxDB bucket receiving run points.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// InfluxSink writes engine runs to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

var (
	_ coremetrics.StrategyRecorder = (*InfluxSink)(nil)
	_ coremetrics.ConflictRecorder = (*InfluxSink)(nil)
)

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.MetricsSink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordSolve writes one solve_run point.
func (s *InfluxSink) RecordSolve(rec coremetrics.SolveRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, solvePoint(rec))
}

func solvePoint(rec coremetrics.SolveRecord) *write.Point {
	p := write.NewPointWithMeasurement("solve_run").
		AddTag("algorithm", rec.Algorithm).
		AddTag("rooms", strconv.Itoa(rec.Rooms)).
		AddTag("timed_out", strconv.FormatBool(rec.Stats.TimedOut))
	if rec.Failed() {
		p = p.AddTag("error_code", rec.ErrorCode)
	}
	return p.AddTag("run_id", rec.RunID).
		AddField("tasks", rec.Tasks).
		AddField("scheduled", rec.Scheduled).
		AddField("unscheduled", rec.Unscheduled).
		AddField("invalid", rec.Invalid).
		AddField("conflicts", rec.Conflicts).
		AddField("backtracks", rec.Stats.Backtracks).
		AddField("iterations", rec.Stats.Iterations).
		AddField("final_cost", round3(rec.Stats.FinalCost)).
		AddField("duration_ms", round3(float64(rec.Duration.Microseconds())/1000)).
		SetTime(rec.Time)
}

// RecordStrategy writes an auto room attempt.
func (s *InfluxSink) RecordStrategy(rec coremetrics.StrategyRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("room_strategy").
		AddTag("algorithm", rec.Algorithm).
		AddTag("action", rec.Action).
		AddTag("run_id", rec.RunID).
		AddField("rooms", rec.Rooms).
		AddField("unscheduled", rec.Unscheduled).
		SetTime(rec.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordConflict writes a detected conflict.
func (s *InfluxSink) RecordConflict(rec coremetrics.ConflictRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("solve_conflict").
		AddTag("algorithm", rec.Algorithm).
		AddTag("type", string(rec.Conflict.Type)).
		AddTag("run_id", rec.RunID).
		AddField("task", rec.Conflict.TaskID.String()).
		AddField("conflicts_with", rec.Conflict.ConflictsWith.String()).
		AddField("slot", rec.Conflict.Slot.Key()).
		SetTime(rec.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the HTTP client.
func (s *InfluxSink) Close() error {
	s.client.Close()
	return nil
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
