package benchmark

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robertodauria/streambench/pkg/streambench/results"
)

func fixedTrial(bytes int64, elapsed time.Duration) TrialFunc {
	return func(ctx context.Context, i int) (*results.Trial, error) {
		tp, _ := results.Throughput(bytes, elapsed)
		return &results.Trial{
			Index:         i,
			BytesReceived: bytes,
			Elapsed:       elapsed,
			Throughput:    tp,
		}, nil
	}
}

func TestRun_NoTrials(t *testing.T) {
	called := false
	res, err := Run(context.Background(), 0, func(ctx context.Context, i int) (*results.Trial, error) {
		called = true
		return &results.Trial{}, nil
	}, nil)
	assert.ErrorIs(t, err, ErrNoTrialsRequested)
	assert.Nil(t, res)
	assert.False(t, called)
}

func TestRun_ThreeGiB(t *testing.T) {
	var reported []int
	res, err := Run(context.Background(), 3, fixedTrial(results.GiB, time.Second),
		func(i int, tr *results.Trial) {
			reported = append(reported, i)
			assert.Equal(t, int64(results.GiB), tr.BytesReceived)
		})
	require.NoError(t, err)
	assert.Equal(t, int64(3*results.GiB), res.TotalBytes)
	assert.Equal(t, 3*time.Second, res.TotalTime)
	assert.Equal(t, uint32(3), res.TrialCount)
	assert.InDelta(t, 1.0, res.Throughput, 1e-9)
	assert.InDelta(t, 1.0, res.MeanTrialThroughput, 1e-9)
	assert.InDelta(t, 1.0, res.MinTrialThroughput, 1e-9)
	assert.InDelta(t, 1.0, res.MaxTrialThroughput, 1e-9)
	assert.Equal(t, []int{0, 1, 2}, reported)
	assert.Len(t, res.Trials, 3)
}

func TestRun_AggregateIsNotMeanOfTrials(t *testing.T) {
	trials := []results.Trial{
		{BytesReceived: results.GiB, Elapsed: time.Second, Throughput: 1},
		{BytesReceived: results.GiB, Elapsed: 3 * time.Second, Throughput: 1.0 / 3},
	}
	res, err := Run(context.Background(), 2, func(ctx context.Context, i int) (*results.Trial, error) {
		tr := trials[i]
		return &tr, nil
	}, nil)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, res.Throughput, 1e-9)
	assert.InDelta(t, 2.0/3, res.MeanTrialThroughput, 1e-9)
	assert.InDelta(t, 1.0/3, res.MinTrialThroughput, 1e-9)
	assert.InDelta(t, 1.0, res.MaxTrialThroughput, 1e-9)
}

func TestRun_DegenerateTiming(t *testing.T) {
	res, err := Run(context.Background(), 2, fixedTrial(1024, 0), nil)
	assert.ErrorIs(t, err, ErrDegenerateTiming)
	assert.Nil(t, res)
}

func TestRun_TrialErrorAbortsRun(t *testing.T) {
	trialErr := errors.New("stream interrupted")
	calls := 0
	reported := 0
	res, err := Run(context.Background(), 5, func(ctx context.Context, i int) (*results.Trial, error) {
		calls++
		if i == 2 {
			return nil, trialErr
		}
		return fixedTrial(100, time.Millisecond)(ctx, i)
	}, func(int, *results.Trial) { reported++ })
	assert.ErrorIs(t, err, trialErr)
	assert.Contains(t, err.Error(), "trial 2")
	assert.Nil(t, res)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, reported)
}

func TestRun_MaxTrials(t *testing.T) {
	trialErr := errors.New("boom")
	calls := 0
	res, err := Run(context.Background(), math.MaxUint32, func(ctx context.Context, i int) (*results.Trial, error) {
		calls++
		return nil, trialErr
	}, nil)
	assert.ErrorIs(t, err, trialErr)
	assert.Contains(t, err.Error(), "trial 0")
	assert.Nil(t, res)
	assert.Equal(t, 1, calls)
}

func TestRun_Sequential(t *testing.T) {
	running := 0
	maxRunning := 0
	_, err := Run(context.Background(), 10, func(ctx context.Context, i int) (*results.Trial, error) {
		running++
		if running > maxRunning {
			maxRunning = running
		}
		defer func() { running-- }()
		return fixedTrial(8, time.Microsecond)(ctx, i)
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, maxRunning)
}

func TestRun_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	res, err := Run(ctx, 3, func(ctx context.Context, i int) (*results.Trial, error) {
		calls++
		cancel()
		return fixedTrial(8, time.Second)(ctx, i)
	}, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, res)
	assert.Equal(t, 1, calls)
}

func TestAccumulator(t *testing.T) {
	var a Accumulator
	_, err := a.Throughput()
	assert.ErrorIs(t, err, ErrNoTrialsRequested)

	b := a.Add(&results.Trial{BytesReceived: results.GiB, Elapsed: 2 * time.Second})
	assert.Equal(t, Accumulator{}, a, "Add must not modify the receiver")
	assert.Equal(t, uint32(1), b.Trials)

	tp, err := b.Throughput()
	require.NoError(t, err)
	assert.InDelta(t, 0.5, tp, 1e-9)
	assert.Greater(t, tp, 0.0)

	_, err = Accumulator{Trials: 1, TotalBytes: 10}.Throughput()
	assert.ErrorIs(t, err, ErrDegenerateTiming)
}
