// Package streambench implements the two ends of a streambench data stream:
// the Sender, which slices a shared payload into frames, and the Receiver,
// which drains a stream and measures how long it took.
package streambench

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/m-lab/go/memoryless"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/robertodauria/streambench/pkg/streambench/dataservice"
	"github.com/robertodauria/streambench/pkg/streambench/payload"
	"github.com/robertodauria/streambench/pkg/streambench/results"
	"github.com/robertodauria/streambench/pkg/streambench/spec"
)

// ErrStreamInterrupted is matched by every error returned by Receiver when
// the transport fails before the end of the stream.
var ErrStreamInterrupted = errors.New("stream interrupted")

// InterruptedError describes where a stream was interrupted.
type InterruptedError struct {
	Trial  int
	Offset int64
	Frames int64
	Err    error
}

func (e *InterruptedError) Error() string {
	return fmt.Sprintf("trial %d: %s at offset %d after %d frames: %v",
		e.Trial, ErrStreamInterrupted, e.Offset, e.Frames, e.Err)
}

// Unwrap makes both ErrStreamInterrupted and the transport error visible to
// errors.Is and errors.As.
func (e *InterruptedError) Unwrap() []error {
	return []error{ErrStreamInterrupted, e.Err}
}

// FrameSender is the sending half of a GiveMeData stream.
type FrameSender interface {
	Send(*dataservice.DataResponse) error
}

// Sender writes p to stream in frames of at most chunkSize bytes, in
// ascending offset order, until the payload is exhausted or ctx is done.
//
// The returned StreamResult is never nil and describes how far the stream
// got, even when an error is returned.
func Sender(ctx context.Context, stream FrameSender, p *payload.Payload,
	chunkSize int) (*results.StreamResult, error) {
	res := &results.StreamResult{
		Kind:        string(spec.StreamDownload),
		PayloadSize: p.Len(),
		ChunkSize:   chunkSize,
		StartTime:   time.Now().UTC(),
		State:       Aborted.String(),
	}
	defer func() {
		res.EndTime = time.Now().UTC()
	}()

	cursor, err := NewCursor(p, chunkSize)
	if err != nil {
		return res, err
	}

	for {
		// Stop within one frame of a cancellation.
		if err := ctx.Err(); err != nil {
			cursor.Abort()
			return res, fmt.Errorf("stream aborted at offset %d: %w", res.BytesSent, err)
		}
		frame, ok := cursor.Next()
		if !ok {
			break
		}
		if err := stream.Send(dataservice.NewFrame(frame)); err != nil {
			cursor.Abort()
			return res, fmt.Errorf("send failed at offset %d: %w", res.BytesSent, err)
		}
		res.FramesSent++
		res.BytesSent += int64(len(frame))
	}

	res.State = cursor.State().String()
	return res, nil
}

// Receiver requests one stream from client and drains it, counting bytes
// without retaining any frame.
//
// The timer starts right before the request is issued and stops once the
// end of the stream has been observed. Progress measurements are taken at
// memoryless intervals and sent over mchannel without blocking, so a slow
// consumer misses measurements rather than slowing down the stream.
// mchannel may be nil; otherwise it is closed when Receiver returns.
//
// Any transport error yields an *InterruptedError and no Trial.
func Receiver(ctx context.Context, client dataservice.DataServiceClient, trial int,
	mchannel chan<- results.Measurement) (*results.Trial, error) {
	if mchannel != nil {
		defer close(mchannel)
	}

	ticker, err := memoryless.NewTicker(ctx, memoryless.Config{
		Min:      spec.MinMeasureInterval,
		Expected: spec.AvgMeasureInterval,
		Max:      spec.MaxMeasureInterval,
	})
	if err != nil {
		return nil, err
	}
	defer ticker.Stop()

	var numBytes, frames int64
	start := time.Now()
	stream, err := client.GiveMeData(ctx, &dataservice.DataRequest{},
		grpc.MaxCallRecvMsgSize(spec.MaxMessageSize))
	if err != nil {
		return nil, &InterruptedError{Trial: trial, Err: err}
	}

	for {
		frame, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &InterruptedError{
				Trial:  trial,
				Offset: numBytes,
				Frames: frames,
				Err:    err,
			}
		}
		numBytes += int64(len(frame.GetValue()))
		frames++

		// Is it time to collect a measurement?
		select {
		case <-ticker.C:
			m := results.Measurement{
				AppInfo: &results.AppInfo{
					NumBytes:    numBytes,
					ElapsedTime: time.Since(start).Microseconds(),
				},
				Trial: trial,
			}
			select {
			case mchannel <- m:
			default:
				// discard measurement
			}
		default:
			// NOTHING
		}
	}
	end := time.Now()

	t := &results.Trial{
		Index:         trial,
		BytesReceived: numBytes,
		Frames:        frames,
		Elapsed:       end.Sub(start),
		StartTime:     start.UTC(),
		EndTime:       end.UTC(),
	}
	// A zero elapsed time is left for the aggregator to reject.
	if tp, err := results.Throughput(t.BytesReceived, t.Elapsed); err == nil {
		t.Throughput = tp
	}
	zap.L().Sugar().Debugw("Stream drained",
		"trial", trial,
		"bytes", numBytes,
		"frames", frames,
		"elapsed", t.Elapsed)
	return t, nil
}
