package write

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/materials-data-facility/connect/internal/api/connectapi"
	"github.com/materials-data-facility/connect/internal/log"
	mdfcontext "github.com/materials-data-facility/connect/utils/context"
)

// ErrorResponse writes an error response to the client and logs the error
func ErrorResponse(ctx context.Context, w http.ResponseWriter, errorResponse connectapi.ErrorMessage) {
	requestID, _ := mdfcontext.GetRequestID(ctx)

	errorResponse.Error.RequestID = &requestID

	JSON(ctx, w, errorResponse.Error.Status, &errorResponse)
}

// JSON writes body with the given status.
func JSON(ctx context.Context, w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)

	err := enc.Encode(body)
	if err != nil {
		log.Error(ctx, "Failed to encode response", err)
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)

		return
	}
}
