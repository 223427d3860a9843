package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/relieflink/relief-gateway/internal/domain"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterValidation("user_type", validateUserType)
	validate.RegisterValidation("coordinate", validateCoordinate)
}

// validateUserType accepts only the closed role set.
func validateUserType(fl validator.FieldLevel) bool {
	return domain.ParseRole(fl.Field().String()) != domain.RoleUnknown
}

// validateCoordinate accepts decimal degree strings like "-33.86".
func validateCoordinate(fl validator.FieldLevel) bool {
	s := strings.TrimSpace(fl.Field().String())
	if s == "" {
		return false
	}
	dot := false
	for i, r := range s {
		switch {
		case r == '-' && i == 0:
		case r == '.' && !dot && i > 0:
			dot = true
		case r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

// validateRequest validates a request DTO and writes a 400 on failure.
func validateRequest(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	if err := validate.Struct(req); err != nil {
		sendError(w, r, "validation_failed", formatValidationErrors(err), http.StatusBadRequest)
		return false
	}
	return true
}

func formatValidationErrors(err error) string {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}

	var messages []string
	for _, fieldError := range validationErrors {
		messages = append(messages, formatFieldError(fieldError))
	}
	return strings.Join(messages, "; ")
}

func formatFieldError(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "user_type":
		return fmt.Sprintf("%s must be one of victim, volunteer, organization, donor, admin", field)
	case "coordinate":
		return fmt.Sprintf("%s must be a decimal coordinate", field)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
