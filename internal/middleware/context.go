package middleware

import (
	"net/http"
	"strings"

	"github.com/materials-data-facility/connect/internal/api/write"
	"github.com/materials-data-facility/connect/internal/apierrors"
	"github.com/materials-data-facility/connect/internal/constants"
	"github.com/materials-data-facility/connect/internal/log"
	mdfcontext "github.com/materials-data-facility/connect/utils/context"
)

// InjectRequestID injects a RequestID into the context to be used by other middlewares
func InjectRequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := mdfcontext.InjectRequestID(r.Context())
			requestID, _ := mdfcontext.GetRequestID(ctx)

			w.Header().Set(constants.HeaderRequestID, requestID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// InjectIdentity reads the caller identity asserted by the gateway. Requests
// without a user id are rejected.
func InjectIdentity() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := mdfcontext.Identity{
				UserID: strings.TrimSpace(r.Header.Get(constants.HeaderUserID)),
				Email:  strings.TrimSpace(r.Header.Get(constants.HeaderUserEmail)),
				Name:   strings.TrimSpace(r.Header.Get(constants.HeaderUserName)),
			}

			if identity.UserID == "" {
				write.ErrorResponse(r.Context(), w,
					apierrors.UnauthorizedErrorMessage("Missing "+constants.HeaderUserID+" header"))

				return
			}

			ctx := mdfcontext.InjectIdentity(r.Context(), identity)
			ctx = log.InjectUser(ctx, identity.UserID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
