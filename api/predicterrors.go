package api

import (
	"net/http"

	"eve.evalgo.org/internal/mlerrors"
)

// statusForPredictError maps the pipeline's error taxonomy to an HTTP
// status: a client mistake is 400, an absent active model is 503 (the
// client may retry once a model is promoted), a transient dependency
// failure is also 503, and everything else is 500.
func statusForPredictError(err error) int {
	switch {
	case mlerrors.Is(err, mlerrors.KindValidation):
		return http.StatusBadRequest
	case mlerrors.Is(err, mlerrors.KindUnavailable):
		return http.StatusServiceUnavailable
	case mlerrors.Is(err, mlerrors.KindTransient):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
