package middleware

import (
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"

	md "github.com/oapi-codegen/nethttp-middleware"

	"github.com/materials-data-facility/connect/internal/handlers"
)

// OAPIMiddleware validates a Request against the OpenAPI document
func OAPIMiddleware(swagger *openapi3.T) func(next http.Handler) http.Handler {
	return md.OapiRequestValidatorWithOptions(
		swagger, &md.Options{
			ErrorHandlerWithOpts: handlers.OAPIValidatorHandler,
			Options: openapi3filter.Options{
				AuthenticationFunc:    openapi3filter.NoopAuthenticationFunc,
				IncludeResponseStatus: true,
			},
			SilenceServersWarning: true,
		},
	)
}
