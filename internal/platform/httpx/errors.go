package httpx

import (
	"errors"
	"net/http"

	"github.com/atlas-bms/atlas-bms/internal/shared"
)

// RespondError maps domain errors to RFC7807 responses. Validation and
// workflow errors echo their message; internal failures never leak details.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrInvalidTransition):
		Problem(w, http.StatusConflict, "Invalid Transition", err.Error())
	case errors.Is(err, shared.ErrRemote):
		Problem(w, http.StatusBadGateway, "Storage Unavailable", "the operation could not be completed")
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
