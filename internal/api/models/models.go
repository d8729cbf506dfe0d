package models

import "time"

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
	// Streaming reports whether a session is currently active.
	Streaming bool `json:"streaming" example:"false" doc:"Whether a stream is running"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"dev" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc1234" doc:"Git commit SHA"`
	BuildDate string `json:"build_date" example:"2024-12-15 14:30" doc:"Build timestamp"`
	BuildID   string `json:"build_id" example:"a1b2c3d4" doc:"Unique build identifier"`
	GoVersion string `json:"go_version" example:"go1.21.0" doc:"Go compiler version"`
	Compiler  string `json:"compiler" example:"gc" doc:"Compiler used"`
	Platform  string `json:"platform" example:"linux/amd64" doc:"Platform"`
}

type VersionResponse struct {
	Body VersionData
}

// Options models
type ResolutionData struct {
	Label  string `json:"label" example:"720p" doc:"Resolution label shown in the form"`
	Width  int    `json:"width" example:"1280" doc:"Output width"`
	Height int    `json:"height" example:"720" doc:"Output height"`
}

type AudioChoiceData struct {
	Value string `json:"value" example:"2|128k" doc:"Value to submit"`
	Label string `json:"label" example:"Stereo, 128k" doc:"Label shown in the form"`
}

type OptionsData struct {
	Resolutions []ResolutionData  `json:"resolutions" doc:"Selectable output resolutions"`
	FPS         []int             `json:"fps" example:"[24,30,60]" doc:"Selectable frame rates"`
	Audio       []AudioChoiceData `json:"audio" doc:"Selectable audio handling"`
	Defaults    SettingsData      `json:"defaults" doc:"Settings of the default preset"`
}

type OptionsResponse struct {
	Body OptionsData
}

// Preset models
type PresetData struct {
	Name        string       `json:"name" example:"default" doc:"Preset name"`
	Description string       `json:"description,omitempty" doc:"Preset description"`
	Settings    SettingsData `json:"settings" doc:"Form values of the preset"`
}

type PresetListData struct {
	Default string       `json:"default" example:"default" doc:"Name of the default preset"`
	Presets []PresetData `json:"presets" doc:"Available presets, default first"`
	Count   int          `json:"count" example:"1" doc:"Number of presets"`
}

type PresetListResponse struct {
	Body PresetListData
}

// Capabilities models
type CapabilitiesData struct {
	Binary          string    `json:"binary" example:"ffmpeg" doc:"Probed ffmpeg executable"`
	Version         string    `json:"version" example:"6.1.1" doc:"ffmpeg version"`
	RTMPS           bool      `json:"rtmps" example:"true" doc:"Whether RTMPS output is supported"`
	Message         string    `json:"message" example:"RTMPS is supported by this FFmpeg build." doc:"Protocol check result"`
	InputProtocols  []string  `json:"input_protocols" doc:"Supported input protocols"`
	OutputProtocols []string  `json:"output_protocols" doc:"Supported output protocols"`
	CheckedAt       time.Time `json:"checked_at" doc:"When the probe ran"`
}

type CapabilitiesResponse struct {
	Body CapabilitiesData
}
