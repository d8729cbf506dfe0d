package session

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/smazurov/restreamer/internal/ffmpeg"
)

func newValidator() *validator.Validate {
	v := validator.New()
	// report fields by their wire names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateSettings checks settings before anything is resolved or spawned.
func (s *Service) validateSettings(settings ffmpeg.Settings) error {
	if err := s.validate.Struct(settings); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return NewError(CodeInvalidSettings, "Invalid settings", err)
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fieldMessage(fe))
		}
		return NewError(CodeInvalidSettings, "Invalid settings: "+strings.Join(msgs, "; "), err)
	}
	if _, err := ffmpeg.ParseAudioOption(settings.Audio); err != nil {
		return NewError(CodeInvalidSettings, "Invalid settings: "+err.Error(), err)
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	// drop the root struct name: "Settings.logo.url" -> "logo.url"
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}
	switch fe.Tag() {
	case "required", "required_if":
		return field + " is required"
	case "url":
		return field + " must be a valid URL"
	case "gte", "lte":
		return field + " must be between 0 and 240"
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
