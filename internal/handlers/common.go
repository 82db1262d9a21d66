package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"sponup-backend/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

// Validate checks request bodies against their validate tags
var Validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error            string `json:"error"`
	Field            string `json:"field,omitempty"`
	ValidationFailed bool   `json:"validation_failed,omitempty"`
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}

// respondValidation sends a field-level validation error
func respondValidation(w http.ResponseWriter, verr *services.ValidationError, statusCode int) {
	respondJSON(w, statusCode, ErrorResponse{
		Error:            verr.Message,
		Field:            verr.Field,
		ValidationFailed: true,
	})
}

// respondServiceError maps a service error onto an HTTP status
func respondServiceError(w http.ResponseWriter, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		respondValidation(w, verr, http.StatusBadRequest)
	case errors.Is(err, services.ErrNotFound):
		respondError(w, "not found", http.StatusNotFound)
	case errors.Is(err, services.ErrForbidden):
		respondError(w, "you do not have access to this resource", http.StatusForbidden)
	case errors.Is(err, services.ErrInvalidToken):
		respondError(w, "invalid identity token", http.StatusUnauthorized)
	case errors.Is(err, services.ErrAlreadyLinked):
		respondError(w, "already linked", http.StatusConflict)
	case errors.Is(err, services.ErrAlreadyPending):
		respondError(w, "already pending", http.StatusConflict)
	case errors.Is(err, services.ErrSubmissionsClosed):
		respondError(w, "submissions are closed for this challenge", http.StatusConflict)
	case errors.Is(err, services.ErrInvalidTransition):
		respondError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, services.ErrConflict):
		respondError(w, "conflict", http.StatusConflict)
	default:
		respondError(w, "Something went wrong, please try again", http.StatusInternalServerError)
	}
}

// decodeJSON reads the request body into dst and validates it. It writes
// the error response itself and reports whether the handler may go on.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return false
	}

	if err := Validate.Struct(dst); err != nil {
		var errs validator.ValidationErrors
		if errors.As(err, &errs) && len(errs) > 0 {
			respondValidation(w, fieldError(errs[0]), http.StatusBadRequest)
			return false
		}
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func fieldError(fe validator.FieldError) *services.ValidationError {
	field := fe.Field()
	var message string
	switch fe.Tag() {
	case "required":
		message = field + " is required"
	case "email":
		message = field + " must be a valid email"
	case "url":
		message = field + " must be a valid URL"
	case "oneof":
		message = field + " must be one of " + fe.Param()
	case "min":
		message = field + " needs at least " + fe.Param()
	case "max":
		message = field + " allows at most " + fe.Param()
	default:
		message = field + " is invalid"
	}
	return &services.ValidationError{Field: field, Message: message}
}
