package api

import (
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/restreamer/internal/presets"
	"github.com/smazurov/restreamer/internal/session"
)

// mapSessionError converts domain errors to HTTP errors. A generated command
// travels along as an error detail at location "command".
func mapSessionError(err error) error {
	var serr *session.Error
	if !errors.As(err, &serr) {
		return huma.Error500InternalServerError("internal server error", err)
	}

	var details []error
	if serr.Command != "" {
		details = append(details, &huma.ErrorDetail{
			Message:  "generated command",
			Location: "command",
			Value:    serr.Command,
		})
	}

	switch serr.Code {
	case session.CodeNotFound, session.CodeNotRunning:
		return huma.Error404NotFound(serr.Message, details...)
	case session.CodeAlreadyRunning:
		return huma.Error409Conflict(serr.Message, details...)
	case session.CodeInvalidSettings:
		return huma.Error400BadRequest(serr.Message, details...)
	case session.CodeResolveFailed:
		return huma.Error502BadGateway(serr.Message, details...)
	case session.CodeSpawnFailed, session.CodeProbeFailed:
		return huma.Error500InternalServerError(serr.Message, details...)
	default:
		return huma.Error500InternalServerError("internal server error", err)
	}
}

func mapPresetError(err error) error {
	if errors.Is(err, presets.ErrNotFound) {
		return huma.Error404NotFound(err.Error())
	}
	return huma.Error500InternalServerError("internal server error", err)
}
