package monitor

import (
	"sync"
	"testing"

	"github.com/nzmon/nzmon/internal/nezha"
	"github.com/stretchr/testify/assert"
)

func counters(out, in float64, ms int64) Sample {
	return Sample{HasCounters: true, OutBytes: out, InBytes: in, TimestampMs: ms}
}

func TestRateComputerCounters(t *testing.T) {
	tests := []struct {
		name    string
		samples []Sample
		want    Rates // rates for the last sample
	}{
		{
			name:    "first sample is zero",
			samples: []Sample{counters(1000, 500, 1)},
			want:    Rates{},
		},
		{
			name:    "delta over one second",
			samples: []Sample{counters(1000, 500, 1), counters(3000, 1500, 1001)},
			want:    Rates{UploadBps: 2000, DownloadBps: 1000},
		},
		{
			name:    "delta over half a second",
			samples: []Sample{counters(0, 0, 100), counters(1000, 500, 600)},
			want:    Rates{UploadBps: 2000, DownloadBps: 1000},
		},
		{
			name:    "counter reset clamps to zero",
			samples: []Sample{counters(5000, 5000, 1), counters(100, 6000, 1001)},
			want:    Rates{UploadBps: 0, DownloadBps: 1000},
		},
		{
			name:    "reset becomes the new baseline",
			samples: []Sample{counters(5000, 5000, 1), counters(100, 100, 1001), counters(1124, 100, 2001)},
			want:    Rates{UploadBps: 1024, DownloadBps: 0},
		},
		{
			name:    "no elapsed time",
			samples: []Sample{counters(0, 0, 500), counters(1000, 1000, 500)},
			want:    Rates{},
		},
		{
			name:    "time went backwards",
			samples: []Sample{counters(0, 0, 500), counters(1000, 1000, 400)},
			want:    Rates{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc := NewRateComputer()
			var got Rates
			for _, s := range tt.samples {
				got = rc.Compute(1, s)
			}
			assert.InDelta(t, tt.want.UploadBps, got.UploadBps, 1e-9)
			assert.InDelta(t, tt.want.DownloadBps, got.DownloadBps, 1e-9)
			assert.GreaterOrEqual(t, got.UploadBps, 0.0)
			assert.GreaterOrEqual(t, got.DownloadBps, 0.0)
		})
	}
}

func TestRateComputerStateRefreshedAfterNonPositiveElapsed(t *testing.T) {
	rc := NewRateComputer()
	rc.Compute(1, counters(0, 0, 1000))
	rc.Compute(1, counters(500, 500, 900)) // backwards: 0, baseline moves
	got := rc.Compute(1, counters(1500, 1500, 1900))
	assert.InDelta(t, 1000, got.UploadBps, 1e-9)
	assert.InDelta(t, 1000, got.DownloadBps, 1e-9)
}

func TestRateComputerSpeedsBypassState(t *testing.T) {
	rc := NewRateComputer()

	got := rc.Compute(1, Sample{HasSpeed: true, UpSpeed: 300, DownSpeed: 200, TimestampMs: 5})
	assert.Equal(t, Rates{UploadBps: 300, DownloadBps: 200}, got)
	assert.Equal(t, 0, rc.Len())

	// Speeds win over counters in the same sample.
	got = rc.Compute(1, Sample{HasSpeed: true, UpSpeed: 1, HasCounters: true, OutBytes: 1e9, TimestampMs: 6})
	assert.Equal(t, Rates{UploadBps: 1}, got)
	assert.Equal(t, 0, rc.Len())
}

func TestRateComputerNothingReported(t *testing.T) {
	rc := NewRateComputer()
	assert.Equal(t, Rates{}, rc.Compute(1, Sample{TimestampMs: 10}))
	assert.Equal(t, 0, rc.Len())
}

func TestRateComputerPerServerState(t *testing.T) {
	rc := NewRateComputer()
	rc.Compute(1, counters(0, 0, 1))
	rc.Compute(2, counters(0, 0, 1))

	a := rc.Compute(1, counters(1000, 0, 1001))
	b := rc.Compute(2, counters(4000, 0, 1001))
	assert.InDelta(t, 1000, a.UploadBps, 1e-9)
	assert.InDelta(t, 4000, b.UploadBps, 1e-9)
	assert.Equal(t, 2, rc.Len())

	rc.Forget(1)
	assert.Equal(t, 1, rc.Len())
	// Forgotten servers start over.
	assert.Equal(t, Rates{}, rc.Compute(1, counters(9000, 0, 2001)))
}

func TestRateComputerConcurrent(t *testing.T) {
	rc := NewRateComputer()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := int64(1); j <= 100; j++ {
				rc.Compute(id, counters(float64(j*100), 0, j*1000))
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 8, rc.Len())
}

func TestSampleFromState(t *testing.T) {
	f := func(v float64) *float64 { return &v }

	s := SampleFromState(&nezha.State{NetInSpeed: f(10), NetOutSpeed: f(20), NetIn: f(1), NetOut: f(2)}, 42)
	assert.Equal(t, RateFromSpeed, s.Mode())
	assert.Equal(t, 20.0, s.UpSpeed)
	assert.Equal(t, 10.0, s.DownSpeed)
	assert.True(t, s.HasCounters)
	assert.Equal(t, int64(42), s.TimestampMs)

	s = SampleFromState(&nezha.State{NetInTransfer: f(7), NetOutTransfer: f(8)}, 1)
	assert.Equal(t, RateFromCounters, s.Mode())
	assert.Equal(t, 8.0, s.OutBytes)
	assert.Equal(t, 7.0, s.InBytes)

	assert.Equal(t, RateNone, SampleFromState(&nezha.State{}, 1).Mode())
	assert.Equal(t, RateNone, SampleFromState(nil, 1).Mode())
}

func TestFormatRate(t *testing.T) {
	tests := []struct {
		bps  float64
		want string
	}{
		{0, "0.00 B/s"},
		{500, "500.00 B/s"},
		{1023, "1023.00 B/s"},
		{1024, "1.00 KB/s"},
		{2048, "2.00 KB/s"},
		{2000, "1.95 KB/s"},
		{3000, "2.93 KB/s"},
		{1572864, "1.50 MB/s"},
		{1.5 * 1024 * 1024 * 1024, "1.50 GB/s"},
		{2048 * 1024 * 1024 * 1024, "2048.00 GB/s"},
		{-5, "0.00 B/s"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatRate(tt.bps))
		})
	}
}

func TestRateModeString(t *testing.T) {
	assert.Equal(t, "speed", RateFromSpeed.String())
	assert.Equal(t, "counters", RateFromCounters.String())
	assert.Equal(t, "none", RateNone.String())
}
