package model

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/materials-data-facility/connect/internal/errs"
)

var (
	ErrInvalidLocation = errors.New("invalid Globus location")
	ErrMixedEndpoints  = errors.New("data sources must share one Globus endpoint")
)

const globusScheme = "globus"

var webAppHosts = map[string]struct{}{
	"app.globus.org": {},
	"www.globus.org": {},
	"globus.org":     {},
}

// GlobusLocation is a directory or file on a Globus collection.
type GlobusLocation struct {
	EndpointID string `json:"endpoint_id" dynamodbav:"endpoint_id"`
	Path       string `json:"path" dynamodbav:"path"`
}

func (l GlobusLocation) String() string {
	return fmt.Sprintf("%s://%s%s", globusScheme, l.EndpointID, l.Path)
}

// Join returns a location below l.
func (l GlobusLocation) Join(elem ...string) GlobusLocation {
	parts := append([]string{l.Path}, elem...)
	joined := path.Join(parts...)

	if !strings.HasSuffix(joined, "/") {
		joined += "/"
	}

	return GlobusLocation{EndpointID: l.EndpointID, Path: joined}
}

// ParseGlobusLocation accepts globus://<endpoint>/<path> and Globus web app
// file-manager links carrying origin_id and origin_path.
func ParseGlobusLocation(raw string) (GlobusLocation, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return GlobusLocation{}, errs.Wrap(ErrInvalidLocation, err)
	}

	var loc GlobusLocation

	switch {
	case u.Scheme == globusScheme:
		loc = GlobusLocation{EndpointID: u.Host, Path: u.Path}
	case u.Scheme == "https" || u.Scheme == "http":
		if _, ok := webAppHosts[u.Host]; !ok {
			return GlobusLocation{}, errs.Wrapf(ErrInvalidLocation, "unsupported host "+u.Host)
		}

		q := u.Query()
		loc = GlobusLocation{EndpointID: q.Get("origin_id"), Path: q.Get("origin_path")}
	default:
		return GlobusLocation{}, errs.Wrapf(ErrInvalidLocation, "unsupported scheme "+u.Scheme)
	}

	if _, err := uuid.Parse(loc.EndpointID); err != nil {
		return GlobusLocation{}, errs.Wrapf(ErrInvalidLocation, "endpoint id "+loc.EndpointID+" is not a UUID")
	}

	if loc.Path == "" {
		loc.Path = "/"
	}

	if !strings.HasPrefix(loc.Path, "/") && !strings.HasPrefix(loc.Path, "~") {
		loc.Path = "/" + loc.Path
	}

	return loc, nil
}

// ParseGlobusLocations parses every source and checks they live on the same
// endpoint.
func ParseGlobusLocations(raw []string) ([]GlobusLocation, error) {
	locations := make([]GlobusLocation, 0, len(raw))

	for _, r := range raw {
		loc, err := ParseGlobusLocation(r)
		if err != nil {
			return nil, err
		}

		if len(locations) > 0 && locations[0].EndpointID != loc.EndpointID {
			return nil, errs.Wrapf(ErrMixedEndpoints,
				fmt.Sprintf("%s and %s", locations[0].EndpointID, loc.EndpointID))
		}

		locations = append(locations, loc)
	}

	return locations, nil
}
