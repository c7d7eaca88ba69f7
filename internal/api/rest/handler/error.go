package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/classhub/classhub-server/internal/api/rest/respond"
	"github.com/classhub/classhub-server/internal/model"
)

// handleError maps domain errors onto HTTP statuses and stable error codes.
// Email verification and reset tokens arrive in request bodies, so their
// failures are client errors here; session token failures answer 401 in the
// authenticate middleware instead.
func handleError(w http.ResponseWriter, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		respond.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", validationMessage(validationErrs))
		return
	}

	switch {
	case errors.Is(err, errMalformedBody):
		respond.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "malformed request body")
	case errors.Is(err, errInvalidPathID):
		respond.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid id in path")
	case errors.Is(err, model.ErrInvalidCredentials):
		respond.Error(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid email or password")
	case errors.Is(err, model.ErrAccountLocked):
		respond.Error(w, http.StatusLocked, "ACCOUNT_LOCKED", "account temporarily locked after repeated failed logins")
	case errors.Is(err, model.ErrAccountDeactivated):
		respond.Error(w, http.StatusUnauthorized, "ACCOUNT_DEACTIVATED", "account is deactivated")
	case errors.Is(err, model.ErrEmailTaken):
		respond.Error(w, http.StatusBadRequest, "EMAIL_TAKEN", "email is already registered")
	case errors.Is(err, model.ErrTokenExpired):
		respond.Error(w, http.StatusBadRequest, "TOKEN_EXPIRED", "token has expired")
	case errors.Is(err, model.ErrTokenInvalid):
		respond.Error(w, http.StatusBadRequest, "INVALID_TOKEN", "token is invalid or already used")
	case errors.Is(err, model.ErrInvalidPassword):
		respond.Error(w, http.StatusBadRequest, "INVALID_PASSWORD", "current password does not match")
	case errors.Is(err, model.ErrInvalidRole):
		respond.Error(w, http.StatusBadRequest, "INVALID_ROLE", "role is not valid")
	case errors.Is(err, model.ErrSelfDeactivation):
		respond.Error(w, http.StatusBadRequest, "CANNOT_DEACTIVATE_SELF", "cannot deactivate own account")
	case errors.Is(err, model.ErrPermissionDenied):
		respond.Error(w, http.StatusForbidden, "INSUFFICIENT_PERMISSIONS", "insufficient permissions")
	case errors.Is(err, model.ErrNotFound):
		respond.Error(w, http.StatusNotFound, "NOT_FOUND", "resource not found")
	case errors.Is(err, model.ErrEmailDelivery):
		respond.Error(w, http.StatusInternalServerError, "EMAIL_DELIVERY_FAILED", "failed to send email")
	default:
		respond.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

func validationMessage(errs validator.ValidationErrors) string {
	parts := make([]string, 0, len(errs))
	for _, fieldErr := range errs {
		parts = append(parts, fmt.Sprintf("%s failed on %s", fieldErr.Field(), fieldErr.Tag()))
	}

	return "validation failed: " + strings.Join(parts, ", ")
}
