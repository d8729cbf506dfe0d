package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/restreamer/internal/api/models"
	"github.com/smazurov/restreamer/internal/ffmpeg"
)

// registerOptionsRoutes registers the endpoints that populate the form
func (s *Server) registerOptionsRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-options",
		Method:      http.MethodGet,
		Path:        "/api/options",
		Summary:     "Form Options",
		Description: "Get the selectable resolutions, frame rates and audio handling plus the default values",
		Tags:        []string{"options"},
	}, func(_ context.Context, _ *struct{}) (*models.OptionsResponse, error) {
		resolutions := make([]models.ResolutionData, len(ffmpeg.Resolutions))
		for i, r := range ffmpeg.Resolutions {
			resolutions[i] = models.ResolutionData{Label: r.Label, Width: r.Width, Height: r.Height}
		}
		audio := make([]models.AudioChoiceData, len(ffmpeg.AudioChoices))
		for i, a := range ffmpeg.AudioChoices {
			audio[i] = models.AudioChoiceData{Value: a.Value, Label: a.Label}
		}

		defaults := ffmpeg.DefaultSettings()
		if s.presets != nil {
			defaults = s.presets.Default().Settings
		}

		return &models.OptionsResponse{
			Body: models.OptionsData{
				Resolutions: resolutions,
				FPS:         ffmpeg.FPSChoices,
				Audio:       audio,
				Defaults:    settingsToAPI(defaults),
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "list-presets",
		Method:      http.MethodGet,
		Path:        "/api/presets",
		Summary:     "Presets",
		Description: "List the named form presets loaded from the presets file",
		Tags:        []string{"options"},
	}, func(_ context.Context, _ *struct{}) (*models.PresetListResponse, error) {
		body := models.PresetListData{Presets: []models.PresetData{}}
		if s.presets != nil {
			body.Default = s.presets.DefaultName()
			for _, p := range s.presets.List() {
				body.Presets = append(body.Presets, models.PresetData{
					Name:        p.Name,
					Description: p.Description,
					Settings:    settingsToAPI(p.Settings),
				})
			}
		}
		body.Count = len(body.Presets)
		return &models.PresetListResponse{Body: body}, nil
	})
}
