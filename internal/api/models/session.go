package models

import "time"

// Settings models
type LogoData struct {
	Enabled bool   `json:"enabled,omitempty" example:"true" doc:"Overlay the logo"`
	URL     string `json:"url,omitempty" example:"https://example.com/logo.png" doc:"Logo image URL"`
	Overlay string `json:"overlay,omitempty" example:"overlay=W-w-45:37" doc:"ffmpeg overlay filter placing the scaled logo"`
}

type SettingsData struct {
	SourceURL      string    `json:"source_url,omitempty" example:"https://example.com/live/master.m3u8" doc:"Video URL (HLS playlist, file or any ffmpeg input)"`
	DestinationURL string    `json:"destination_url,omitempty" example:"rtmps://live.example.com/app/key" doc:"RTMP output URL"`
	Resolution     string    `json:"resolution,omitempty" example:"720p" doc:"Output resolution label (4K, 1080p, 720p, 480p, 360p, 180p)"`
	FPS            int       `json:"fps,omitempty" minimum:"0" maximum:"240" example:"30" doc:"Output frame rate"`
	Audio          string    `json:"audio,omitempty" example:"copy" doc:"copy, or <channels>|<bitrate> such as 2|128k"`
	Logo           *LogoData `json:"logo,omitempty" doc:"Logo watermark"`
}

type SettingsRequest struct {
	Preset string `query:"preset" example:"default" doc:"Preset filling the fields omitted from the body"`
	Body   SettingsData
}

// Session models
type ProgressData struct {
	Frame       int64   `json:"frame" example:"1500" doc:"Frames encoded so far"`
	FPS         float64 `json:"fps" example:"30" doc:"Current encoding frame rate"`
	SizeKB      int64   `json:"size_kb" example:"2048" doc:"Output written so far in kB"`
	Size        string  `json:"size" example:"2.0 MiB" doc:"Output written so far, human readable"`
	Time        string  `json:"time" example:"00:00:50.00" doc:"Output timestamp"`
	BitrateKbps float64 `json:"bitrate_kbps" example:"660.5" doc:"Output bitrate in kbit/s"`
	Speed       float64 `json:"speed" example:"1.01" doc:"Encoding speed relative to realtime"`
}

type SessionData struct {
	ID          string        `json:"id" example:"3f1c2a9e-8d4b-4f3a-9b1e-2c7d5e6f7a8b" doc:"Session identifier"`
	State       string        `json:"state" enum:"pending,running,stopping,stopped,failed" example:"running" doc:"Lifecycle state"`
	Settings    SettingsData  `json:"settings" doc:"Settings the session was started with"`
	Destination string        `json:"destination" example:"rtmps://203.0.113.10/app/key" doc:"Destination handed to ffmpeg after DNS resolution"`
	Command     string        `json:"command" doc:"Generated ffmpeg command"`
	Args        []string      `json:"args" doc:"ffmpeg argv"`
	PID         int           `json:"pid,omitempty" example:"4242" doc:"Process ID"`
	CreatedAt   time.Time     `json:"created_at" doc:"When the session was requested"`
	StartedAt   *time.Time    `json:"started_at,omitempty" doc:"When the process was spawned"`
	EndedAt     *time.Time    `json:"ended_at,omitempty" doc:"When the process exited"`
	Started     string        `json:"started,omitempty" example:"3 minutes ago" doc:"Start time relative to now"`
	Uptime      string        `json:"uptime,omitempty" example:"3m12s" doc:"How long the process ran"`
	ExitCode    *int          `json:"exit_code,omitempty" example:"0" doc:"Exit code once the process has exited"`
	Forced      bool          `json:"forced,omitempty" doc:"Whether a stop request had to kill the process"`
	Error       string        `json:"error,omitempty" doc:"Failure reason"`
	Progress    *ProgressData `json:"progress,omitempty" doc:"Latest encoder statistics"`
	LogLines    int           `json:"log_lines" example:"42" doc:"Buffered diagnostic lines"`
}

type SessionResponse struct {
	Body SessionData
}

type SessionListData struct {
	Sessions []SessionData `json:"sessions" doc:"Retained sessions, newest first"`
	Count    int           `json:"count" example:"2" doc:"Number of sessions"`
}

type SessionListResponse struct {
	Body SessionListData
}

type SessionIDInput struct {
	SessionID string `path:"session_id" example:"3f1c2a9e-8d4b-4f3a-9b1e-2c7d5e6f7a8b" doc:"Session identifier"`
}

type StartData struct {
	Output  string      `json:"output" example:"Command executed successfully.\nStreaming in progress..." doc:"Command Output text"`
	Logs    []string    `json:"logs" doc:"ffmpeg lines seen while starting"`
	Command string      `json:"command" doc:"Generated ffmpeg command"`
	Session SessionData `json:"session" doc:"Started session"`
}

type StartResponse struct {
	Body StartData
}

type StopData struct {
	Output  string       `json:"output" example:"Stream stopped." doc:"Command Output text"`
	Forced  bool         `json:"forced" example:"false" doc:"Whether the process had to be killed"`
	Session *SessionData `json:"session,omitempty" doc:"Stopped session"`
}

type StopResponse struct {
	Body StopData
}

type LogLineData struct {
	Timestamp time.Time `json:"timestamp" doc:"When the line was read"`
	Level     string    `json:"level" example:"info" doc:"ffmpeg log level"`
	Message   string    `json:"message" doc:"Line text"`
}

type SessionLogsData struct {
	SessionID string        `json:"session_id" doc:"Session identifier"`
	Lines     []LogLineData `json:"lines" doc:"Buffered lines, oldest first"`
	Count     int           `json:"count" example:"42" doc:"Number of lines"`
}

type SessionLogsResponse struct {
	Body SessionLogsData
}

type CommandData struct {
	Command string   `json:"command" example:"ffmpeg -re -y -i https://example.com/live/master.m3u8 ..." doc:"Generated FFmpeg Command"`
	Args    []string `json:"args" doc:"ffmpeg argv"`
}

type CommandResponse struct {
	Body CommandData
}
