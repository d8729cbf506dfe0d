// Package metrics provides Prometheus metrics for restream sessions and the
// ffmpeg processes behind them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "restreamer"

var (
	ffmpegFPS = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "ffmpeg",
		Name:      "fps",
		Help:      "Current FFmpeg encoding FPS",
	}, []string{"session_id"})

	ffmpegSpeed = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "ffmpeg",
		Name:      "processing_speed",
		Help:      "FFmpeg processing speed multiplier",
	}, []string{"session_id"})

	ffmpegBitrate = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "ffmpeg",
		Name:      "bitrate_kbps",
		Help:      "Current FFmpeg output bitrate in kbit/s",
	}, []string{"session_id"})

	ffmpegFrames = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "ffmpeg",
		Name:      "frames",
		Help:      "Frames encoded so far",
	}, []string{"session_id"})

	ffmpegOutputBytes = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "ffmpeg",
		Name:      "output_bytes",
		Help:      "Bytes written to the destination so far",
	}, []string{"session_id"})
)

// FFmpegProgress is one set of encoder statistics.
type FFmpegProgress struct {
	FPS     float64
	Speed   float64
	Bitrate float64
	Frames  int64
	SizeKB  int64
}

// SetFFmpegProgress records the latest statistics for a session.
func SetFFmpegProgress(sessionID string, p FFmpegProgress) {
	ffmpegFPS.WithLabelValues(sessionID).Set(p.FPS)
	ffmpegSpeed.WithLabelValues(sessionID).Set(p.Speed)
	ffmpegBitrate.WithLabelValues(sessionID).Set(p.Bitrate)
	ffmpegFrames.WithLabelValues(sessionID).Set(float64(p.Frames))
	ffmpegOutputBytes.WithLabelValues(sessionID).Set(float64(p.SizeKB * 1024))
}

// DeleteFFmpegMetrics removes all metrics for a session.
func DeleteFFmpegMetrics(sessionID string) {
	ffmpegFPS.DeleteLabelValues(sessionID)
	ffmpegSpeed.DeleteLabelValues(sessionID)
	ffmpegBitrate.DeleteLabelValues(sessionID)
	ffmpegFrames.DeleteLabelValues(sessionID)
	ffmpegOutputBytes.DeleteLabelValues(sessionID)
}
