package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/restreamer/internal/api/models"
	"github.com/smazurov/restreamer/internal/ffmpeg"
	"github.com/smazurov/restreamer/internal/session"
)

// settingsFor resolves the request body against the chosen or default preset.
func (s *Server) settingsFor(input *models.SettingsRequest) (ffmpeg.Settings, error) {
	base := ffmpeg.DefaultSettings()
	if s.presets != nil {
		if input.Preset != "" {
			p, err := s.presets.Get(input.Preset)
			if err != nil {
				return ffmpeg.Settings{}, mapPresetError(err)
			}
			base = p.Settings
		} else {
			base = s.presets.Default().Settings
		}
	}
	return mergeSettings(base, input.Body), nil
}

func startResponse(res *session.StartResult) *models.StartResponse {
	logs := res.Logs
	if logs == nil {
		logs = []string{}
	}
	return &models.StartResponse{
		Body: models.StartData{
			Output:  res.Output,
			Logs:    logs,
			Command: res.Command,
			Session: sessionToAPI(res.Session, time.Now()),
		},
	}
}

// registerSessionRoutes registers the endpoints behind the form buttons
func (s *Server) registerSessionRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "start-session",
		Method:      http.MethodPost,
		Path:        "/api/session",
		Summary:     "Run Command",
		Description: "Start restreaming with the submitted settings. Omitted fields come from the preset. Returns after a short startup window with the first ffmpeg lines.",
		Tags:        []string{"session"},
		Errors:      []int{400, 404, 409, 422, 500, 502},
	}, func(ctx context.Context, input *models.SettingsRequest) (*models.StartResponse, error) {
		settings, err := s.settingsFor(input)
		if err != nil {
			return nil, err
		}
		res, err := s.sessions.Start(ctx, settings)
		if err != nil {
			return nil, mapSessionError(err)
		}
		return startResponse(res), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "stop-session",
		Method:      http.MethodDelete,
		Path:        "/api/session",
		Summary:     "Stop Stream",
		Description: "Stop the running stream, killing ffmpeg if it does not exit in time",
		Tags:        []string{"session"},
		Errors:      []int{404, 500},
	}, func(ctx context.Context, _ *struct{}) (*models.StopResponse, error) {
		res, err := s.sessions.Stop(ctx)
		if err != nil {
			return nil, mapSessionError(err)
		}
		body := models.StopData{Output: res.Output, Forced: res.Forced}
		if res.Session != nil {
			data := sessionToAPI(res.Session, time.Now())
			body.Session = &data
		}
		return &models.StopResponse{Body: body}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "restart-session",
		Method:      http.MethodPost,
		Path:        "/api/session/restart",
		Summary:     "Restart Stream",
		Description: "Stop the active stream, if any, and start again with the settings of the active or most recent session",
		Tags:        []string{"session"},
		Errors:      []int{404, 409, 500, 502},
	}, func(ctx context.Context, _ *struct{}) (*models.StartResponse, error) {
		res, err := s.sessions.Restart(ctx)
		if err != nil {
			return nil, mapSessionError(err)
		}
		return startResponse(res), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-current-session",
		Method:      http.MethodGet,
		Path:        "/api/session",
		Summary:     "Current Session",
		Description: "Get the running session, or the most recent one when nothing runs",
		Tags:        []string{"session"},
		Errors:      []int{404},
	}, func(_ context.Context, _ *struct{}) (*models.SessionResponse, error) {
		sess, err := s.sessions.Current()
		if err != nil {
			return nil, mapSessionError(err)
		}
		return &models.SessionResponse{Body: sessionToAPI(sess, time.Now())}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "list-sessions",
		Method:      http.MethodGet,
		Path:        "/api/sessions",
		Summary:     "Session History",
		Description: "List retained sessions, newest first",
		Tags:        []string{"session"},
	}, func(_ context.Context, _ *struct{}) (*models.SessionListResponse, error) {
		now := time.Now()
		list := s.sessions.List()
		data := make([]models.SessionData, len(list))
		for i, sess := range list {
			data[i] = sessionToAPI(sess, now)
		}
		return &models.SessionListResponse{
			Body: models.SessionListData{Sessions: data, Count: len(data)},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-session",
		Method:      http.MethodGet,
		Path:        "/api/sessions/{session_id}",
		Summary:     "Get Session",
		Description: "Get one session by ID",
		Tags:        []string{"session"},
		Errors:      []int{404},
	}, func(_ context.Context, input *models.SessionIDInput) (*models.SessionResponse, error) {
		sess, err := s.sessions.Get(input.SessionID)
		if err != nil {
			return nil, mapSessionError(err)
		}
		return &models.SessionResponse{Body: sessionToAPI(sess, time.Now())}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-session-logs",
		Method:      http.MethodGet,
		Path:        "/api/sessions/{session_id}/logs",
		Summary:     "FFmpeg Logs",
		Description: "Get the buffered ffmpeg diagnostic lines of a session",
		Tags:        []string{"session"},
		Errors:      []int{404},
	}, func(_ context.Context, input *models.SessionIDInput) (*models.SessionLogsResponse, error) {
		lines, err := s.sessions.Logs(input.SessionID)
		if err != nil {
			return nil, mapSessionError(err)
		}
		data := make([]models.LogLineData, len(lines))
		for i, l := range lines {
			data[i] = models.LogLineData{Timestamp: l.Timestamp, Level: l.Level, Message: l.Message}
		}
		return &models.SessionLogsResponse{
			Body: models.SessionLogsData{SessionID: input.SessionID, Lines: data, Count: len(data)},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "preview-command",
		Method:      http.MethodPost,
		Path:        "/api/command",
		Summary:     "Generated FFmpeg Command",
		Description: "Build the ffmpeg command for the submitted settings without running it",
		Tags:        []string{"session"},
		Errors:      []int{400, 404, 422},
	}, func(ctx context.Context, input *models.SettingsRequest) (*models.CommandResponse, error) {
		settings, err := s.settingsFor(input)
		if err != nil {
			return nil, err
		}
		preview, err := s.sessions.Preview(ctx, settings)
		if err != nil {
			return nil, mapSessionError(err)
		}
		return &models.CommandResponse{
			Body: models.CommandData{Command: preview.Command, Args: preview.Args},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-capabilities",
		Method:      http.MethodGet,
		Path:        "/api/capabilities",
		Summary:     "Check FFmpeg Protocols",
		Description: "Probe the ffmpeg binary for RTMPS support and its protocol lists",
		Tags:        []string{"ffmpeg"},
		Errors:      []int{500},
	}, func(ctx context.Context, _ *struct{}) (*models.CapabilitiesResponse, error) {
		caps, err := s.sessions.Capabilities(ctx)
		if err != nil {
			return nil, mapSessionError(err)
		}
		return &models.CapabilitiesResponse{Body: capabilitiesToAPI(caps, time.Now())}, nil
	})
}
