package results

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThroughput(t *testing.T) {
	tests := []struct {
		name    string
		bytes   int64
		elapsed time.Duration
		want    float64
		wantErr error
	}{
		{name: "1GiB-in-1s", bytes: GiB, elapsed: time.Second, want: 1.0},
		{name: "3GiB-in-3s", bytes: 3 * GiB, elapsed: 3 * time.Second, want: 1.0},
		{name: "512MiB-in-2s", bytes: GiB / 2, elapsed: 2 * time.Second, want: 0.25},
		{name: "zero-bytes", bytes: 0, elapsed: time.Second, want: 0},
		{name: "zero-elapsed", bytes: GiB, elapsed: 0, wantErr: ErrZeroElapsed},
		{name: "negative-elapsed", bytes: GiB, elapsed: -time.Second, wantErr: ErrZeroElapsed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Throughput(tt.bytes, tt.elapsed)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestThroughput_Positive(t *testing.T) {
	for _, b := range []int64{1, 8, 4000000, GiB} {
		for _, d := range []time.Duration{time.Nanosecond, time.Millisecond, time.Hour} {
			got, err := Throughput(b, d)
			require.NoError(t, err)
			assert.Greater(t, got, 0.0, "bytes=%d elapsed=%v", b, d)
		}
	}
}
