package emitter

import (
	"go.uber.org/zap"

	"github.com/robertodauria/streambench/pkg/streambench/results"
)

type Emitter interface {
	OnStart(trial int)
	OnMeasurement(trial int, m results.Measurement)
	OnTrial(trial int, t *results.Trial)
	OnError(err error)
	OnSummary(r *results.BenchmarkResult)
}

type LogEmitter struct{}

func (e *LogEmitter) OnStart(trial int) {
	zap.L().Sugar().Debugf("trial #%d: starting", trial)
}

func (e *LogEmitter) OnMeasurement(trial int, m results.Measurement) {
	if m.AppInfo == nil || m.AppInfo.ElapsedTime == 0 {
		return
	}
	tp := float64(m.AppInfo.NumBytes) / float64(m.AppInfo.ElapsedTime) * 8
	zap.L().Sugar().Debugf("trial #%d: throughput: %f Mb/s", trial, tp)
}

func (e *LogEmitter) OnTrial(trial int, t *results.Trial) {
	zap.L().Sugar().Infof("trial #%d: received %d bytes in %s (%.3f GiB/s)",
		trial, t.BytesReceived, t.Elapsed, t.Throughput)
}

func (e *LogEmitter) OnError(err error) {
	zap.L().Sugar().Errorf("error (%v)", err)
}

func (e *LogEmitter) OnSummary(r *results.BenchmarkResult) {
	zap.L().Sugar().Infow("Benchmark completed",
		"mid", r.MeasurementID,
		"trials", r.TrialCount,
		"total_bytes", r.TotalBytes,
		"total_time", r.TotalTime)
	zap.L().Sugar().Infof("Throughput: %.4f GiB/s (per-trial mean %.4f, min %.4f, max %.4f)",
		r.Throughput, r.MeanTrialThroughput, r.MinTrialThroughput, r.MaxTrialThroughput)
}
