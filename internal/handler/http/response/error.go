package response

import (
	"errors"
	"net/http"

	"github.com/avd-uisa/notify-go/internal/domain/notification"
	"github.com/avd-uisa/notify-go/internal/pkg/jwt"
	"github.com/avd-uisa/notify-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	case errors.Is(err, notification.ErrNotificationNotFound):
		NotFound(w, "Notification not found")
	case errors.Is(err, notification.ErrUnauthorized):
		Unauthorized(w, "Unauthorized to access this notification")
	case errors.Is(err, notification.ErrInvalidCategory):
		BadRequest(w, "Invalid notification category", nil)
	case errors.Is(err, notification.ErrInvalidCursor):
		BadRequest(w, "Invalid pagination cursor", nil)
	case errors.Is(err, jwt.ErrInvalidToken):
		Unauthorized(w, "Invalid token")

	// Default
	default:
		InternalServerError(w, "An unexpected error occurred")
	}
}
