// Package utils holds small helpers shared across folio packages.
package utils

import (
	"time"

	"github.com/rs/zerolog"
)

// Durations above which work is logged at warn level.
const (
	SlowOperation = 10 * time.Second
	SlowQuery     = 2 * time.Second
)

// Stopwatch times one unit of work, such as a valuation build, and logs the
// result with whatever counters the caller collected along the way.
type Stopwatch struct {
	op    string
	start time.Time
	now   func() time.Time
	log   zerolog.Logger
}

// StartStopwatch starts timing op.
func StartStopwatch(op string, log zerolog.Logger) *Stopwatch {
	return &Stopwatch{op: op, start: time.Now(), now: time.Now, log: log}
}

// Stop logs the elapsed time together with fields and returns it.
func (s *Stopwatch) Stop(fields map[string]interface{}) time.Duration {
	elapsed := s.now().Sub(s.start)

	ev := s.log.Debug()
	msg := "Operation finished"
	if elapsed > SlowOperation {
		ev = s.log.Warn()
		msg = "Slow operation"
	}
	ev.Str("operation", s.op).
		Dur("duration_ms", elapsed).
		Fields(fields).
		Msg(msg)

	return elapsed
}

// TimeQuery starts timing a price store query. Call the returned func with
// the number of rows read once the rows are drained.
func TimeQuery(query string, log zerolog.Logger) func(rows int64) {
	start := time.Now()
	return func(rows int64) {
		elapsed := time.Since(start)
		ev := log.Debug()
		if elapsed > SlowQuery {
			ev = log.Warn()
		}
		ev.Str("query", query).
			Dur("duration_ms", elapsed).
			Int64("rows", rows).
			Msg("Query finished")
	}
}
