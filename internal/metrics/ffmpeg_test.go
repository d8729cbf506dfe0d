package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSetFFmpegProgress(t *testing.T) {
	sessionID := "test-session-1"
	defer DeleteFFmpegMetrics(sessionID)

	SetFFmpegProgress(sessionID, FFmpegProgress{FPS: 30, Speed: 1.5, Bitrate: 660.5, Frames: 900, SizeKB: 2})

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"fps", testutil.ToFloat64(ffmpegFPS.WithLabelValues(sessionID)), 30},
		{"speed", testutil.ToFloat64(ffmpegSpeed.WithLabelValues(sessionID)), 1.5},
		{"bitrate", testutil.ToFloat64(ffmpegBitrate.WithLabelValues(sessionID)), 660.5},
		{"frames", testutil.ToFloat64(ffmpegFrames.WithLabelValues(sessionID)), 900},
		{"bytes", testutil.ToFloat64(ffmpegOutputBytes.WithLabelValues(sessionID)), 2048},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestDeleteFFmpegMetrics(t *testing.T) {
	sessionID := "test-session-2"
	SetFFmpegProgress(sessionID, FFmpegProgress{FPS: 25})
	before := testutil.CollectAndCount(ffmpegFPS)

	DeleteFFmpegMetrics(sessionID)

	if after := testutil.CollectAndCount(ffmpegFPS); after != before-1 {
		t.Errorf("series count = %d, want %d", after, before-1)
	}
}

func TestSetSessionState(t *testing.T) {
	SetSessionState("running")
	for _, s := range SessionStates {
		want := 0.0
		if s == "running" {
			want = 1
		}
		if got := testutil.ToFloat64(sessionState.WithLabelValues(s)); got != want {
			t.Errorf("state %s = %v, want %v", s, got, want)
		}
	}
}

func TestCounters(t *testing.T) {
	started := testutil.ToFloat64(sessionsStarted)
	IncSessionsStarted()
	if got := testutil.ToFloat64(sessionsStarted); got != started+1 {
		t.Errorf("started = %v, want %v", got, started+1)
	}

	forced := testutil.ToFloat64(stopsTotal.WithLabelValues("forced"))
	IncStops(true)
	if got := testutil.ToFloat64(stopsTotal.WithLabelValues("forced")); got != forced+1 {
		t.Errorf("forced stops = %v, want %v", got, forced+1)
	}

	spawn := testutil.ToFloat64(sessionsFailed.WithLabelValues(FailureSpawn))
	IncSessionsFailed(FailureSpawn)
	if got := testutil.ToFloat64(sessionsFailed.WithLabelValues(FailureSpawn)); got != spawn+1 {
		t.Errorf("spawn failures = %v, want %v", got, spawn+1)
	}
}
