package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrSetup         = errors.New("setup error")
	ErrConfiguration = errors.New("configuration error")
	ErrValidation    = errors.New("validation error")
	ErrNotFound      = errors.New("not found")
	ErrRelocation    = errors.New("relocation failed")
	ErrClassifier    = errors.New("classifier unavailable")
	ErrExternalTool  = errors.New("external tool error")
	ErrTransient     = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// ErrorHint returns a short operator-facing next step for a wrapped error.
func ErrorHint(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSetup):
		return "check that the watch directory exists and is readable"
	case errors.Is(err, ErrConfiguration), errors.Is(err, ErrValidation):
		return "run shelver config validate"
	case errors.Is(err, ErrRelocation):
		return "check destination permissions and free space; the source file was left in place"
	case errors.Is(err, ErrClassifier):
		return "check llm settings; keyword fallback stays active"
	case errors.Is(err, ErrNotFound):
		return "the file moved or was deleted before processing"
	default:
		return "check logs for details"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
