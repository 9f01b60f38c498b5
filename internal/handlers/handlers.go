package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	md "github.com/oapi-codegen/nethttp-middleware"

	"github.com/materials-data-facility/connect/internal/api/write"
	"github.com/materials-data-facility/connect/internal/apierrors"
	"github.com/materials-data-facility/connect/internal/log"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// OAPIValidatorHandler is called when a Request does not follow the OpenAPI contract
func OAPIValidatorHandler(
	ctx context.Context,
	err error,
	w http.ResponseWriter,
	_ *http.Request,
	opts md.ErrorHandlerOpts,
) {
	log.Warn(ctx, "Request does not follow OAPI contract", log.ErrorAttr(err))

	write.ErrorResponse(ctx, w, apierrors.OAPIValidatorErrorMessage(err.Error(), opts.StatusCode))
}

// writeError maps err and writes the error body.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	write.ErrorResponse(r.Context(), w, apierrors.TransformToAPIError(r.Context(), err))
}

// decodeJSON reads the request body into v. A failed decode is answered
// here and reported as false.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))

	err := dec.Decode(v)
	if err != nil {
		log.Warn(r.Context(), "Receiving Request", log.ErrorAttr(err))
		write.ErrorResponse(r.Context(), w, apierrors.JSONDecodeErrorMessage())

		return false
	}

	return true
}
