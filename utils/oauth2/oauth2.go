package oauth2

import (
	"errors"
	"net/http"
	"time"

	"golang.org/x/oauth2/clientcredentials"
)

var (
	ErrClientIDMustBeSet     = errors.New("clientID must be set")
	ErrClientSecretMustBeSet = errors.New("clientSecret must be set")
	ErrTokenURLRequired      = errors.New("tokenURL must be set")
)

const defaultTimeout = 30 * time.Second

type ClientConfig struct {
	apiClient    *http.Client
	tokenClient  *http.Client
	clientID     string
	clientSecret string
	tokenURL     string
	scopes       []string
}

type Option func(*ClientConfig)

// WithAPIClient sets the client that executes the authorised requests.
func WithAPIClient(client *http.Client) Option {
	return func(c *ClientConfig) {
		c.apiClient = client
	}
}

// WithTokenClient sets the client used against the token endpoint.
func WithTokenClient(client *http.Client) Option {
	return func(c *ClientConfig) {
		c.tokenClient = client
	}
}

func WithClientID(id string) Option {
	return func(c *ClientConfig) {
		c.clientID = id
	}
}

func WithClientSecret(secret string) Option {
	return func(c *ClientConfig) {
		c.clientSecret = secret
	}
}

func WithTokenURL(url string) Option {
	return func(c *ClientConfig) {
		c.tokenURL = url
	}
}

func WithScopes(scopes ...string) Option {
	return func(c *ClientConfig) {
		c.scopes = append(c.scopes, scopes...)
	}
}

// NewClient returns an HTTP client whose requests carry a client
// credentials bearer token for the configured scopes.
func NewClient(opts ...Option) (*http.Client, error) {
	cfg := &ClientConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	err := validate(cfg)
	if err != nil {
		return nil, err
	}

	apiClient := cfg.apiClient
	if apiClient == nil {
		apiClient = &http.Client{Timeout: defaultTimeout}
	}

	tokenClient := cfg.tokenClient
	if tokenClient == nil {
		tokenClient = &http.Client{Timeout: defaultTimeout}
	}

	oauth2Config := &clientcredentials.Config{
		ClientID:     cfg.clientID,
		ClientSecret: cfg.clientSecret,
		TokenURL:     cfg.tokenURL,
		Scopes:       cfg.scopes,
	}

	return &http.Client{
		Transport: NewTokenInjector(apiClient, tokenClient, oauth2Config),
	}, nil
}

func validate(b *ClientConfig) error {
	var errList []error

	if b.clientID == "" {
		errList = append(errList, ErrClientIDMustBeSet)
	}

	if b.clientSecret == "" {
		errList = append(errList, ErrClientSecretMustBeSet)
	}

	if b.tokenURL == "" {
		errList = append(errList, ErrTokenURLRequired)
	}

	return errors.Join(errList...)
}
