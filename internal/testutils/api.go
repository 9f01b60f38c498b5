package testutils

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/materials-data-facility/connect/internal/constants"
	"github.com/materials-data-facility/connect/internal/daemon"
	"github.com/materials-data-facility/connect/internal/handlers"
	"github.com/materials-data-facility/connect/internal/manager"
	mdfcontext "github.com/materials-data-facility/connect/utils/context"
)

const TestHostPrefix = "https://connect.test"

// NewAPIServer returns the full API handler, middlewares included.
func NewAPIServer(
	tb testing.TB,
	submissions manager.Submissions,
	flowInfo handlers.FlowInfo,
) http.Handler {
	tb.Helper()

	handler, err := daemon.NewHandler(handlers.NewAPI(submissions, flowInfo))
	assert.NoError(tb, err)

	return handler
}

type RequestOptions struct {
	Method   string // HTTP Method
	Endpoint string // Path below /api/v1
	Body     io.Reader
	// Identity sent in the gateway headers. Defaults to TestIdentity.
	Identity  *mdfcontext.Identity
	Anonymous bool
	Headers   map[string]string
}

// WithString is a helper function that converts a string to an io.Reader.
// It is intended to be used as the Body field in RequestOptions when making HTTP requests in tests.
func WithString(tb testing.TB, i any) io.Reader {
	tb.Helper()

	str, ok := i.(string)
	if !ok {
		assert.Fail(tb, "Must provide a string")
	}

	return strings.NewReader(str)
}

// WithJSON is a helper function that marshals an object to JSON and returns an io.Reader.
// It is intended to be used as the Body field in RequestOptions when making HTTP requests in tests.
func WithJSON(tb testing.TB, i any) io.Reader {
	tb.Helper()

	bs, err := json.Marshal(i)
	assert.NoError(tb, err)

	return bytes.NewReader(bs)
}

// GetJSONBody is used to get a response out of an HTTP Body encoded as JSON
// For error responses use connectapi.ErrorMessage as it's type
func GetJSONBody[t any](tb testing.TB, w *httptest.ResponseRecorder) t {
	tb.Helper()

	var typ t

	err := json.Unmarshal(w.Body.Bytes(), &typ)
	assert.NoError(tb, err)

	return typ
}

// NewHTTPRequest builds an HTTP Request with the identity headers set
func NewHTTPRequest(tb testing.TB, opt RequestOptions) *http.Request {
	tb.Helper()

	r, err := http.NewRequestWithContext(
		tb.Context(),
		opt.Method,
		TestHostPrefix+daemon.APIVersionedNamespace+opt.Endpoint,
		opt.Body,
	)
	assert.NoError(tb, err)

	switch opt.Method {
	case http.MethodGet, http.MethodDelete:
	case http.MethodPost, http.MethodPut:
		r.Header.Set("Content-Type", "application/json")
	default:
		assert.Fail(tb, "HTTP Method not supported!")
	}

	if !opt.Anonymous {
		identity := TestIdentity
		if opt.Identity != nil {
			identity = *opt.Identity
		}

		r.Header.Set(constants.HeaderUserID, identity.UserID)
		r.Header.Set(constants.HeaderUserEmail, identity.Email)
		r.Header.Set(constants.HeaderUserName, identity.Name)
	}

	for k, v := range opt.Headers {
		r.Header.Add(k, v)
	}

	return r
}

// MakeHTTPRequest creates an HTTP method and gets its response for it
// On POST methods, RequestOptions body should use WithString/WithJSON methods
func MakeHTTPRequest(tb testing.TB, server http.Handler, opt RequestOptions) *httptest.ResponseRecorder {
	tb.Helper()

	req := NewHTTPRequest(tb, opt)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	return w
}
