package write_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/materials-data-facility/connect/internal/api/connectapi"
	"github.com/materials-data-facility/connect/internal/api/write"
	"github.com/materials-data-facility/connect/internal/testutils"
	mdfcontext "github.com/materials-data-facility/connect/utils/context"
)

func TestWriteErrorResponse(t *testing.T) {
	t.Run("should write error", func(t *testing.T) {
		ctx := mdfcontext.InjectRequestID(t.Context())
		w := httptest.NewRecorder()
		errorResponse := connectapi.ErrorMessage{
			Error: connectapi.DetailedError{
				Code:    "TEST_ERROR",
				Message: "This is a test error",
				Status:  http.StatusBadRequest,
			},
		}

		write.ErrorResponse(ctx, w, errorResponse)

		requestID, _ := mdfcontext.GetRequestID(ctx)

		err := testutils.GetJSONBody[connectapi.ErrorMessage](t, w)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, requestID, *err.Error.RequestID)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	})
}

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()

	write.JSON(t.Context(), w, http.StatusAccepted, connectapi.SubmitResponse{
		Success:  true,
		SourceID: "copper_oxide_films_v1",
		Version:  1,
	})

	body := testutils.GetJSONBody[connectapi.SubmitResponse](t, w)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.True(t, body.Success)
	assert.Equal(t, "copper_oxide_films_v1", body.SourceID)
}
