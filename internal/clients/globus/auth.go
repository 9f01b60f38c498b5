package globus

import (
	"net/http"
	"strings"
	"sync"

	"github.com/materials-data-facility/connect/utils/oauth2"
)

const (
	DefaultAuthURL  = "https://auth.globus.org"
	DefaultFlowsURL = "https://flows.globus.org"

	flowsResourceID = "eec9b274-0c81-4334-bdc2-54e90e689b9a"

	ScopeManageFlows = "https://auth.globus.org/scopes/" + flowsResourceID + "/manage_flows"
	ScopeRunStatus   = "https://auth.globus.org/scopes/" + flowsResourceID + "/run_status"
	ScopeRunManage   = "https://auth.globus.org/scopes/" + flowsResourceID + "/run_manage"
)

// Authorizer hands out HTTP clients authorised for a scope.
type Authorizer interface {
	Client(scope string) (*http.Client, error)
}

// ClientCredentials authorises a confidential Globus Auth client. One
// token injector is kept per scope.
type ClientCredentials struct {
	clientID     string
	clientSecret string
	tokenURL     string
	httpClient   *http.Client

	mu      sync.Mutex
	clients map[string]*http.Client
}

var _ Authorizer = (*ClientCredentials)(nil)

// NewClientCredentials creates an authorizer against authURL, which
// defaults to the public Globus Auth service.
func NewClientCredentials(clientID, clientSecret, authURL string, httpClient *http.Client) *ClientCredentials {
	if authURL == "" {
		authURL = DefaultAuthURL
	}

	return &ClientCredentials{
		clientID:     clientID,
		clientSecret: clientSecret,
		tokenURL:     strings.TrimSuffix(authURL, "/") + "/v2/oauth2/token",
		httpClient:   httpClient,
		clients:      make(map[string]*http.Client),
	}
}

func (c *ClientCredentials) Client(scope string) (*http.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if client, ok := c.clients[scope]; ok {
		return client, nil
	}

	opts := []oauth2.Option{
		oauth2.WithClientID(c.clientID),
		oauth2.WithClientSecret(c.clientSecret),
		oauth2.WithTokenURL(c.tokenURL),
		oauth2.WithScopes(scope),
	}

	if c.httpClient != nil {
		opts = append(opts, oauth2.WithAPIClient(c.httpClient), oauth2.WithTokenClient(c.httpClient))
	}

	client, err := oauth2.NewClient(opts...)
	if err != nil {
		return nil, err
	}

	c.clients[scope] = client

	return client, nil
}

// StaticAuthorizer returns the same client for every scope.
type StaticAuthorizer struct {
	HTTPClient *http.Client
}

func (s StaticAuthorizer) Client(string) (*http.Client, error) {
	if s.HTTPClient == nil {
		return http.DefaultClient, nil
	}

	return s.HTTPClient, nil
}
