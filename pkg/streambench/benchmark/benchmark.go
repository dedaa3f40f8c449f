// Package benchmark runs repeated streambench trials and aggregates them
// into a single throughput figure.
package benchmark

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/robertodauria/streambench/pkg/streambench/results"
)

var (
	// ErrNoTrialsRequested is returned when a run is asked for zero trials.
	ErrNoTrialsRequested = errors.New("no trials requested")
	// ErrDegenerateTiming is returned when the total elapsed time of all
	// trials is zero, e.g. on a clock with insufficient resolution.
	ErrDegenerateTiming = errors.New("degenerate timing: total elapsed time is zero")
)

// maxPreallocTrials bounds the trial slots reserved before the first trial
// runs. Larger runs grow the slice as trials complete.
const maxPreallocTrials = 1024

// TrialFunc runs the i-th trial.
type TrialFunc func(ctx context.Context, i int) (*results.Trial, error)

// ReportFunc is called after each successful trial, before the next one
// starts.
type ReportFunc func(i int, t *results.Trial)

// Accumulator holds the running totals of a benchmark run. It is a value
// type: Add returns the updated totals and leaves the receiver unchanged.
type Accumulator struct {
	TotalBytes int64
	TotalTime  time.Duration
	Trials     uint32
}

// Add folds t into the totals.
func (a Accumulator) Add(t *results.Trial) Accumulator {
	return Accumulator{
		TotalBytes: a.TotalBytes + t.BytesReceived,
		TotalTime:  a.TotalTime + t.Elapsed,
		Trials:     a.Trials + 1,
	}
}

// Throughput returns the aggregate throughput in GiB/s.
func (a Accumulator) Throughput() (float64, error) {
	if a.Trials == 0 {
		return 0, ErrNoTrialsRequested
	}
	tp, err := results.Throughput(a.TotalBytes, a.TotalTime)
	if err != nil {
		return 0, ErrDegenerateTiming
	}
	return tp, nil
}

// Run executes fn exactly n times, one trial after the other, and returns
// the aggregated result. The first failing trial aborts the run: no result
// is returned, since a partial trial would corrupt the average.
func Run(ctx context.Context, n uint32, fn TrialFunc, report ReportFunc) (*results.BenchmarkResult, error) {
	if n == 0 {
		return nil, ErrNoTrialsRequested
	}
	res := &results.BenchmarkResult{
		StartTime: time.Now().UTC(),
		Trials:    make([]results.Trial, 0, min(n, maxPreallocTrials)),
	}
	acc := Accumulator{}
	for i := 0; i < int(n); i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("run aborted before trial %d: %w", i, err)
		}
		t, err := fn(ctx, i)
		if err != nil {
			return nil, fmt.Errorf("run aborted at trial %d: %w", i, err)
		}
		acc = acc.Add(t)
		res.Trials = append(res.Trials, *t)
		if report != nil {
			report(i, t)
		}
	}
	res.EndTime = time.Now().UTC()

	tp, err := acc.Throughput()
	if err != nil {
		return nil, err
	}
	res.TotalBytes = acc.TotalBytes
	res.TotalTime = acc.TotalTime
	res.TrialCount = acc.Trials
	res.Throughput = tp
	summarizeTrials(res)
	return res, nil
}

// summarizeTrials fills the per-trial statistics of res.
func summarizeTrials(res *results.BenchmarkResult) {
	sum := 0.0
	res.MinTrialThroughput = math.Inf(1)
	res.MaxTrialThroughput = math.Inf(-1)
	for _, t := range res.Trials {
		sum += t.Throughput
		res.MinTrialThroughput = math.Min(res.MinTrialThroughput, t.Throughput)
		res.MaxTrialThroughput = math.Max(res.MaxTrialThroughput, t.Throughput)
	}
	res.MeanTrialThroughput = sum / float64(len(res.Trials))
}
