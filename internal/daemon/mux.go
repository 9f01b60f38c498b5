package daemon

import (
	"net/http"
	"strings"

	"github.com/materials-data-facility/connect/internal/api/connectapi"
	"github.com/materials-data-facility/connect/internal/api/write"
	"github.com/materials-data-facility/connect/internal/apierrors"
)

// ServeMux mounts route patterns below BaseURL and answers unknown routes
// with a JSON error body.
type ServeMux struct {
	httpServeMux http.ServeMux
	BaseURL      string
}

func NewServeMux(baseURL string) *ServeMux {
	return &ServeMux{
		httpServeMux: http.ServeMux{},
		BaseURL:      strings.TrimSuffix(baseURL, "/"),
	}
}

func (m *ServeMux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_, pattern := m.httpServeMux.Handler(r)
	if pattern == "" {
		write.ErrorResponse(r.Context(), w, connectapi.ErrorMessage{Error: connectapi.DetailedError{
			Code:    apierrors.NotFoundErr,
			Message: "No route for " + r.Method + " " + r.URL.Path,
			Status:  http.StatusNotFound,
		}})

		return
	}

	m.httpServeMux.ServeHTTP(w, r)
}

// HandleFunc registers handler for a pattern of the form "METHOD /path".
func (m *ServeMux) HandleFunc(
	pattern string,
	handler func(http.ResponseWriter, *http.Request),
) {
	method, path, found := strings.Cut(pattern, " ")
	if !found {
		panic("pattern must name a method: " + pattern)
	}

	m.httpServeMux.HandleFunc(method+" "+m.BaseURL+path, handler)
}
